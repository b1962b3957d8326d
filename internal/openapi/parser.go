package openapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

const fetchTimeout = 30 * time.Second

// largeNumberPattern matches minimum/maximum/exclusiveMinimum/exclusiveMaximum
// fields whose value has 16 or more digits — large enough to overflow a
// signed 64-bit JSON-number round trip in some client SDKs. Such specs
// (a handful of real-world schemas included) are sanitized by clamping the
// field to the int32 range before parsing.
var largeNumberPattern = regexp.MustCompile(`(?m)^(\s*(minimum|maximum|exclusiveMinimum|exclusiveMaximum):\s*)(-?\d{16,})`)

// Parse auto-detects JSON vs YAML from the document's first non-whitespace
// character and parses accordingly.
func Parse(data []byte) (*ParsedSpec, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON parses an OpenAPI document already known to be JSON.
func ParseJSON(data []byte) (*ParsedSpec, error) {
	sanitized := sanitizeLargeNumbers(data)

	var raw rawSpec
	if err := json.Unmarshal(sanitized, &raw); err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "decode json", err)
	}
	return convertSpec(raw)
}

// ParseYAML parses an OpenAPI document already known to be YAML.
func ParseYAML(data []byte) (*ParsedSpec, error) {
	sanitized := sanitizeLargeNumbers(data)

	var generic interface{}
	if err := yaml.Unmarshal(sanitized, &generic); err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "decode yaml", err)
	}

	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "convert yaml to json", err)
	}

	var raw rawSpec
	if err := json.Unmarshal(asJSON, &raw); err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "decode converted yaml", err)
	}
	return convertSpec(raw)
}

// sanitizeLargeNumbers clamps oversized minimum/maximum bounds to the
// int32 range so they survive a JSON-number round trip in downstream
// tooling.
func sanitizeLargeNumbers(data []byte) []byte {
	return largeNumberPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := largeNumberPattern.FindSubmatch(match)
		if groups == nil {
			return match
		}
		prefix := groups[1]
		value := string(groups[3])
		replacement := "2147483647"
		if strings.HasPrefix(value, "-") {
			replacement = "-2147483647"
		}
		return append(append([]byte{}, prefix...), []byte(replacement)...)
	})
}

// FetchAndParse downloads an OpenAPI document over HTTP(S) and parses it,
// selecting JSON vs YAML from the Content-Type header, falling back to the
// URL's file extension.
func FetchAndParse(url string) (*ParsedSpec, error) {
	client := &http.Client{Timeout: fetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "fetch spec", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, walleterr.New(walleterr.KindParseError, fmt.Sprintf("fetch spec: http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindParseError, "read spec body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "yaml") {
		return ParseYAML(body)
	}
	if strings.Contains(contentType, "json") {
		return ParseJSON(body)
	}
	if strings.HasSuffix(url, ".yaml") || strings.HasSuffix(url, ".yml") {
		return ParseYAML(body)
	}
	return Parse(body)
}

func convertSpec(raw rawSpec) (*ParsedSpec, error) {
	if !strings.HasPrefix(raw.OpenAPI, "3.") {
		return nil, walleterr.New(walleterr.KindInvalidSpec, fmt.Sprintf("unsupported openapi version %q, only 3.x is supported", raw.OpenAPI))
	}

	resolver := newSchemaResolver(raw.Components.Schemas)

	servers := make([]ServerInfo, 0, len(raw.Servers))
	for _, s := range raw.Servers {
		servers = append(servers, ServerInfo{URL: s.URL, Description: s.Description})
	}

	schemes, err := convertSecuritySchemes(raw.Components.SecuritySchemes)
	if err != nil {
		return nil, err
	}

	var globalSecurity []SecurityRequirement
	for _, req := range raw.Security {
		for scheme, scopes := range req {
			globalSecurity = append(globalSecurity, SecurityRequirement{SchemeName: scheme, Scopes: scopes})
		}
	}

	ops := extractOperations(raw, resolver)
	for i := range ops {
		ops[i].AuthScheme = DetectAuthScheme(schemes, ops[i].Security)
	}

	return &ParsedSpec{
		Title:           raw.Info.Title,
		Description:     raw.Info.Description,
		Version:         raw.Info.Version,
		Servers:         servers,
		Operations:      ops,
		SecuritySchemes: schemes,
		GlobalSecurity:  globalSecurity,
	}, nil
}

func convertSecuritySchemes(raw map[string]rawSecurityScheme) (map[string]SecurityScheme, error) {
	out := make(map[string]SecurityScheme, len(raw))
	for name, rs := range raw {
		scheme, err := convertSecurityScheme(rs)
		if err != nil {
			return nil, err
		}
		out[name] = scheme
	}
	return out, nil
}

func convertSecurityScheme(rs rawSecurityScheme) (SecurityScheme, error) {
	switch rs.Type {
	case "apiKey":
		return SecurityScheme{
			Kind:           SchemeAPIKey,
			APIKeyName:     rs.Name,
			APIKeyLocation: ApiKeyLocation(rs.In),
		}, nil
	case "http":
		return SecurityScheme{
			Kind:         SchemeHTTP,
			HTTPScheme:   rs.Scheme,
			BearerFormat: rs.BearerFormat,
		}, nil
	case "oauth2":
		flows, err := convertOAuth2Flows(rs.Flows)
		if err != nil {
			return SecurityScheme{}, err
		}
		return SecurityScheme{Kind: SchemeOAuth2, Flows: flows}, nil
	case "openIdConnect":
		return SecurityScheme{Kind: SchemeOpenIDConnect, OpenIDConnectURL: rs.OpenIDConnectURL}, nil
	default:
		return SecurityScheme{}, walleterr.New(walleterr.KindInvalidSpec, fmt.Sprintf("unsupported security scheme type %q", rs.Type))
	}
}

func convertOAuth2Flows(raw *rawOAuth2Flows) (*OAuth2Flows, error) {
	if raw == nil {
		return &OAuth2Flows{}, nil
	}
	return &OAuth2Flows{
		AuthorizationCode: convertOAuth2Flow(raw.AuthorizationCode),
		ClientCredentials: convertOAuth2Flow(raw.ClientCredentials),
		Implicit:          convertOAuth2Flow(raw.Implicit),
		Password:          convertOAuth2Flow(raw.Password),
	}, nil
}

func convertOAuth2Flow(raw *rawOAuth2Flow) *OAuth2Flow {
	if raw == nil {
		return nil
	}
	return &OAuth2Flow{
		AuthorizationURL: raw.AuthorizationURL,
		TokenURL:         raw.TokenURL,
		RefreshURL:       raw.RefreshURL,
		Scopes:           raw.Scopes,
	}
}
