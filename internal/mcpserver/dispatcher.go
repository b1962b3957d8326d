// Package mcpserver implements the MCP JSON-RPC 2.0 request dispatcher:
// message parsing, notification/response filtering, and routing of
// initialize/ping/tools-list/tools-call to the wallet and tool executor.
// This is hand-rolled per spec.md's explicit mandate that the dispatcher
// itself — not a pre-built MCP server library — is the subject of the
// specification.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/mcptools"
	"github.com/Symbia-Labs/mcp-wallet/internal/wallet"
	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

// ProtocolVersion is the MCP protocol revision this dispatcher speaks.
const ProtocolVersion = "2024-11-05"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Dispatcher routes parsed JSON-RPC messages to the wallet and tool
// executor. A Dispatcher has no transport knowledge of its own; stdio and
// HTTP transports both call HandleMessage.
type Dispatcher struct {
	wallet        *wallet.Wallet
	executor      *mcptools.Executor
	log           zerolog.Logger
	serverName    string
	serverVersion string
}

// New returns a Dispatcher wired to w and executor.
func New(w *wallet.Wallet, executor *mcptools.Executor, serverName, serverVersion string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		wallet:        w,
		executor:      executor,
		log:           log.With().Str("component", "mcp_dispatcher").Logger(),
		serverName:    serverName,
		serverVersion: serverVersion,
	}
}

// HandleMessage parses and dispatches one JSON-RPC message. The second
// return value reports whether a response should be written back to the
// transport: false for notifications (no "id") and for response-shaped
// messages with no "method" (this is a server, so it never expects those,
// and silently ignores them per the JSON-RPC spec).
func (d *Dispatcher) HandleMessage(ctx context.Context, raw []byte) ([]byte, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return d.encode(response{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: CodeParseError, Message: "parse error: " + err.Error()},
		}), true
	}

	if env.Method == "" {
		// A message with no method is a response, not a request; this
		// server never sent a request, so there is nothing to correlate
		// it to.
		return nil, false
	}
	if env.ID == nil {
		d.handleNotification(env)
		return nil, false
	}

	result, rpcErr := d.dispatch(ctx, env)
	resp := response{JSONRPC: "2.0", ID: env.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return d.encode(resp), true
}

func (d *Dispatcher) handleNotification(env envelope) {
	switch env.Method {
	case "initialized", "notifications/initialized", "notifications/cancelled":
		d.log.Debug().Str("method", env.Method).Msg("received notification")
	default:
		d.log.Debug().Str("method", env.Method).Msg("received unknown notification")
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, env envelope) (interface{}, *rpcError) {
	switch env.Method {
	case "initialize":
		return d.handleInitialize(env.Params), nil
	case "ping":
		return map[string]interface{}{}, nil
	case "tools/list":
		return d.handleToolsList()
	case "tools/call":
		return d.handleToolsCall(ctx, env.Params)
	default:
		return nil, &rpcError{Code: CodeMethodNotFound, Message: "method not found: " + env.Method}
	}
}

type initializeParams struct {
	ClientInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

func (d *Dispatcher) handleInitialize(params json.RawMessage) map[string]interface{} {
	var p initializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err == nil && p.ClientInfo.Name != "" {
			d.log.Info().Str("client", p.ClientInfo.Name).Str("client_version", p.ClientInfo.Version).Msg("client initialized")
		}
	}

	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	}
}

func (d *Dispatcher) handleToolsList() (interface{}, *rpcError) {
	if d.wallet.State() != wallet.Unlocked {
		return nil, &rpcError{Code: CodeInternalError, Message: "wallet is locked"}
	}

	var tools []mcptools.Tool
	for _, integ := range d.wallet.Integrations().List() {
		ops := d.wallet.Integrations().ListOperations(integ.Key)
		tools = append(tools, mcptools.GenerateTools(integ.Key, ops)...)
	}
	if tools == nil {
		tools = []mcptools.Tool{}
	}
	return map[string]interface{}{"tools": tools}, nil
}

type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, *rpcError) {
	var p toolCallParams
	if err := json.Unmarshal(params, &p); err != nil || p.Name == "" {
		return nil, &rpcError{Code: CodeInvalidParams, Message: "invalid tools/call params"}
	}

	result, err := d.executor.Call(ctx, p.Name, p.Arguments)
	if err != nil {
		// Per spec.md §4.10/§7: executor errors are framed as
		// isError=true text content, never as JSON-RPC protocol errors,
		// so the MCP client model actually sees the failure.
		d.log.Warn().Err(err).Str("tool", p.Name).Str("kind", walleterr.Of(err).String()).Msg("tool call failed")
		return mcptools.ToolCallResult{
			Content: []mcptools.ContentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}
	return result, nil
}

func (d *Dispatcher) encode(resp response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to encode response")
		fallback, _ := json.Marshal(response{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &rpcError{Code: CodeInternalError, Message: "internal error encoding response"},
		})
		return fallback
	}
	return data
}
