package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/mcptools"
	"github.com/Symbia-Labs/mcp-wallet/internal/wallet"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	w.EnforcePolicy = false
	if err := w.Initialize(context.Background(), "irrelevant-password"); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	executor := mcptools.NewExecutor(w.Integrations(), w.Credentials(), zerolog.Nop())
	d := New(w, executor, "test-server", "0.0.1", zerolog.Nop())
	return d, w
}

func decodeResponse(t *testing.T, raw []byte) response {
	t.Helper()
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleMessageInitialize(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	if !ok {
		t.Fatal("expected a response for a request with an id")
	}
	resp := decodeResponse(t, raw)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %T", resp.Result)
	}
	if result["protocolVersion"] != ProtocolVersion {
		t.Fatalf("unexpected protocol version: %v", result["protocolVersion"])
	}
}

func TestHandleMessageNotificationProducesNoResponse(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if ok {
		t.Fatal("notifications must not produce a response")
	}
}

func TestHandleMessageResponseShapedMessageIsIgnored(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	if ok {
		t.Fatal("a message with no method must be silently ignored")
	}
}

func TestHandleMessageUnknownMethod(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"bogus"}`))
	if !ok {
		t.Fatal("expected a response")
	}
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleMessageParseError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{not json`))
	if !ok {
		t.Fatal("expected a response for malformed input")
	}
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

func TestHandleMessagePing(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":"abc","method":"ping"}`))
	if !ok {
		t.Fatal("expected a response")
	}
	resp := decodeResponse(t, raw)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleMessageToolsListEmptyWhenNoIntegrations(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if !ok {
		t.Fatal("expected a response")
	}
	resp := decodeResponse(t, raw)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]interface{})
	if !ok {
		t.Fatalf("expected a tools array, got %T", result["tools"])
	}
	if len(tools) != 0 {
		t.Fatalf("expected no tools for a wallet with no integrations, got %d", len(tools))
	}
}

func TestHandleMessageToolsCallUnknownToolIsFramedAsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope_does_not_exist","arguments":{}}}`))
	if !ok {
		t.Fatal("expected a response")
	}
	resp := decodeResponse(t, raw)
	if resp.Error != nil {
		t.Fatalf("tool errors must not be JSON-RPC protocol errors, got %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a tool call result, got %T", resp.Result)
	}
	if isErr, _ := result["isError"].(bool); !isErr {
		t.Fatal("expected isError=true for an unresolvable tool")
	}
}

func TestHandleMessageToolsListLockedWalletIsInternalError(t *testing.T) {
	d, w := newTestDispatcher(t)
	if err := w.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	raw, ok := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	if !ok {
		t.Fatal("expected a response")
	}
	resp := decodeResponse(t, raw)
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("expected an internal-error response for a locked wallet, got %+v", resp.Error)
	}
}
