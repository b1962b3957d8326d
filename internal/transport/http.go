package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/mcpserver"
)

// maxHTTPBody bounds a single /mcp request body.
const maxHTTPBody = 10 << 20

// HTTP serves the dispatcher over a single POST /mcp endpoint, plus a
// /health liveness check and a placeholder /mcp/sse for future streaming
// transport. The pack carries no HTTP-framework dependency grounded for
// this concern, so this uses stdlib net/http.ServeMux directly.
type HTTP struct {
	dispatcher *mcpserver.Dispatcher
	log        zerolog.Logger
	mux        *http.ServeMux
}

// NewHTTP returns an HTTP transport wired to dispatcher.
func NewHTTP(dispatcher *mcpserver.Dispatcher, log zerolog.Logger) *HTTP {
	h := &HTTP{
		dispatcher: dispatcher,
		log:        log.With().Str("component", "http_transport").Logger(),
		mux:        http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /mcp", h.handleMCP)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /mcp/sse", h.handleSSEUnsupported)
	h.mux.HandleFunc("GET /", h.handleRoot)
	return h
}

// Handler returns the transport's http.Handler, for use with http.Server
// or httptest.
func (h *HTTP) Handler() http.Handler {
	return h.mux
}

// Serve runs an http.Server on addr until ctx is cancelled.
func (h *HTTP) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (h *HTTP) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxHTTPBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp, ok := h.dispatcher.HandleMessage(r.Context(), body)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		h.log.Error().Err(err).Msg("failed to write response")
	}
}

func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *HTTP) handleSSEUnsupported(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "SSE streaming transport is not implemented", http.StatusNotImplemented)
}

func (h *HTTP) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("mcp-wallet MCP server\n"))
}
