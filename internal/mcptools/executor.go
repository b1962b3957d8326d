package mcptools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/credential"
	"github.com/Symbia-Labs/mcp-wallet/internal/integration"
	"github.com/Symbia-Labs/mcp-wallet/internal/openapi"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

// httpTimeout bounds every outbound tool-call request, matching the
// 30-second ceiling the spec sets for both spec fetch and tool execution.
const httpTimeout = 30 * time.Second

// ContentItem is one element of an MCP tool-call result's `content` array.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolCallResult is the MCP `tools/call` result payload.
type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func textResult(text string, isError bool) *ToolCallResult {
	return &ToolCallResult{Content: []ContentItem{{Type: "text", Text: text}}, IsError: isError}
}

// Executor resolves a tool name to an operation, decrypts its bound
// credential, and performs the outbound HTTP call.
type Executor struct {
	registry    *integration.Registry
	credentials *credential.Manager
	httpClient  *http.Client
	log         zerolog.Logger
}

// NewExecutor returns an Executor backed by registry and credentials.
func NewExecutor(registry *integration.Registry, credentials *credential.Manager, log zerolog.Logger) *Executor {
	return &Executor{
		registry:    registry,
		credentials: credentials,
		httpClient:  &http.Client{Timeout: httpTimeout},
		log:         log.With().Str("component", "tool_executor").Logger(),
	}
}

// Call resolves name, performs the HTTP exchange, and returns the framed
// tool result. Resolution failures (bad name, unknown integration/
// operation, locked wallet, unbound credential) are returned as errors;
// per the MCP dispatcher's contract these are turned into isError=true
// text results by the caller, never surfaced as JSON-RPC protocol errors.
func (e *Executor) Call(ctx context.Context, name string, arguments map[string]interface{}) (*ToolCallResult, error) {
	slug, dottedPath, err := parseToolName(name)
	if err != nil {
		return nil, err
	}

	integ, ok := e.registry.Get(slug)
	if !ok {
		return nil, walleterr.New(walleterr.KindIntegrationNotFound, fmt.Sprintf("no integration %q", slug))
	}
	op, ok := e.registry.LookupOperation(slug, dottedPath)
	if !ok {
		return nil, walleterr.New(walleterr.KindOperationNotFound, fmt.Sprintf("no operation %q on integration %q", dottedPath, slug))
	}

	if integ.CredentialID == nil {
		return nil, walleterr.New(walleterr.KindCredentialNotFound, fmt.Sprintf("integration %q has no bound credential", slug))
	}
	secret, err := e.credentials.GetDecrypted(*integ.CredentialID)
	if err != nil {
		return nil, err
	}
	defer secret.Wipe()

	reqURL, pathParamNames, err := buildURL(integ.ServerURL, op, arguments)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindInvalidArgument, "build request url", err)
	}

	queryParamNames := paramNamesByLocation(op, openapi.LocationQuery)
	headerParamNames := paramNamesByLocation(op, openapi.LocationHeader)

	q := reqURL.Query()
	for _, name := range queryParamNames {
		if v, ok := arguments[name]; ok {
			q.Set(name, stringifyArgument(v))
		}
	}
	reqURL.RawQuery = q.Encode()

	var bodyReader io.Reader
	method := string(op.Method)
	if method == "POST" || method == "PUT" || method == "PATCH" {
		body := bodyArguments(arguments, pathParamNames, queryParamNames, headerParamNames)
		if len(body) > 0 {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, walleterr.Wrap(walleterr.KindSerializationError, "encode request body", err)
			}
			bodyReader = bytes.NewReader(encoded)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorageError, "build http request", err)
	}
	if headerName := op.AuthScheme.HeaderName(); headerName != "" {
		req.Header.Set(headerName, op.AuthScheme.FormatHeaderValue(secret.Expose()))
	} else {
		req.Header.Set("Authorization", "Bearer "+secret.Expose())
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, name := range headerParamNames {
		if v, ok := arguments[name]; ok {
			req.Header.Set(name, stringifyArgument(v))
		}
	}

	e.log.Debug().Str("method", method).Str("url", reqURL.String()).Msg("dispatching tool call")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorageError, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorageError, "HTTP request failed: read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return textResult(fmt.Sprintf("HTTP %d - %s", resp.StatusCode, string(raw)), true), nil
	}

	return textResult(prettyOrRaw(raw), false), nil
}

// parseToolName splits "{slug}_{normalized_id with '.' as '_'}" at the
// first underscore into the integration slug and the dotted namespace
// path.
func parseToolName(name string) (slug, dottedPath string, err error) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 || idx == len(name)-1 {
		return "", "", walleterr.New(walleterr.KindOperationNotFound, fmt.Sprintf("malformed tool name %q", name))
	}
	slug = name[:idx]
	dottedPath = strings.ReplaceAll(name[idx+1:], "_", ".")
	return slug, dottedPath, nil
}

func paramNamesByLocation(op openapi.Operation, loc openapi.ParameterLocation) []string {
	var out []string
	for _, p := range op.Parameters {
		if p.Location == loc {
			out = append(out, p.Name)
		}
	}
	return out
}

// buildURL joins the integration's server URL and the operation's path,
// substituting "{name}" path segments with caller-supplied argument
// values.
func buildURL(serverURL string, op openapi.Operation, arguments map[string]interface{}) (*url.URL, []string, error) {
	base := strings.TrimRight(serverURL, "/")
	path := op.Path
	var pathParamNames []string

	for _, p := range op.Parameters {
		if p.Location != openapi.LocationPath {
			continue
		}
		pathParamNames = append(pathParamNames, p.Name)
		placeholder := "{" + p.Name + "}"
		v, ok := arguments[p.Name]
		if !ok {
			return nil, nil, fmt.Errorf("missing required path parameter %q", p.Name)
		}
		path = strings.ReplaceAll(path, placeholder, stringifyArgument(v))
	}

	u, err := url.Parse(base + path)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url: %w", err)
	}
	return u, pathParamNames, nil
}

// bodyArguments collects every argument not already routed to a path,
// query, or header parameter, for use as the POST/PUT/PATCH JSON body.
func bodyArguments(arguments map[string]interface{}, routed ...[]string) map[string]interface{} {
	excluded := make(map[string]bool)
	for _, names := range routed {
		for _, n := range names {
			excluded[n] = true
		}
	}
	body := make(map[string]interface{})
	for k, v := range arguments {
		if excluded[k] {
			continue
		}
		body[k] = v
	}
	return body
}

// stringifyArgument coerces an arbitrary JSON argument value to a string
// for path/query/header placement: native strings pass through unquoted,
// everything else is rendered as its JSON form.
func stringifyArgument(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.Trim(string(encoded), `"`)
}

// prettyOrRaw pretty-prints raw as JSON when it parses as JSON, and
// otherwise passes it through unchanged.
func prettyOrRaw(raw []byte) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}
