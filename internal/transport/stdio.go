package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/Symbia-Labs/mcp-wallet/internal/mcpserver"
)

// maxMessageBytes bounds a single JSON-RPC line; MCP messages are small
// (tool descriptors and call results), so this is a generous ceiling
// against a runaway client.
const maxMessageBytes = 10 << 20

// Stdio serves the dispatcher over newline-delimited JSON-RPC on stdin/
// stdout. Stdout carries only JSON-RPC frames — every log line goes to
// stderr, which is why obslog.ModeStdioServer exists.
type Stdio struct {
	dispatcher *mcpserver.Dispatcher
	log        zerolog.Logger
}

// NewStdio returns a Stdio transport wired to dispatcher.
func NewStdio(dispatcher *mcpserver.Dispatcher, log zerolog.Logger) *Stdio {
	return &Stdio{dispatcher: dispatcher, log: log.With().Str("component", "stdio_transport").Logger()}
}

// Serve reads one JSON-RPC message per line from in, dispatches it, and
// writes any response (also one line) to out. It returns when in reaches
// EOF, or with ctx's error on the first line read after ctx is cancelled;
// a read already blocked on in is not interrupted by cancellation.
func (s *Stdio) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// Copy, since the scanner reuses its buffer on the next Scan.
		msg := append([]byte(nil), line...)

		resp, ok := s.dispatcher.HandleMessage(ctx, msg)
		if !ok {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Error().Err(err).Msg("stdio scan failed")
		return err
	}
	return nil
}
