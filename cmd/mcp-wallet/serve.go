package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Symbia-Labs/mcp-wallet/internal/mcpserver"
	"github.com/Symbia-Labs/mcp-wallet/internal/mcptools"
	"github.com/Symbia-Labs/mcp-wallet/internal/obslog"
	"github.com/Symbia-Labs/mcp-wallet/internal/transport"
	"github.com/Symbia-Labs/mcp-wallet/internal/wallet"
)

const (
	serverName    = "mcp-wallet"
	serverVersion = "0.1.0"
)

func newServeCmd(walletDir *string) *cobra.Command {
	var useHTTP bool
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio (default) or HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := obslog.ModeInteractive
			if !useHTTP {
				mode = obslog.ModeStdioServer
			}
			log := obslog.New(mode, obslog.ParseLevel(os.Getenv("MCP_WALLET_LOG_LEVEL")))

			if err := os.MkdirAll(*walletDir, 0o700); err != nil {
				return fmt.Errorf("create wallet directory: %w", err)
			}
			w, err := wallet.New(*walletDir, log)
			if err != nil {
				return err
			}
			if w.State() == wallet.NotInitialized {
				return fmt.Errorf("wallet is not initialized; run \"mcp-wallet init\" first")
			}
			if err := unlockServeWallet(w); err != nil {
				return err
			}

			executor := mcptools.NewExecutor(w.Integrations(), w.Credentials(), log)
			dispatcher := mcpserver.New(w, executor, serverName, serverVersion, log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if useHTTP {
				srv := transport.NewHTTP(dispatcher, log)
				log.Info().Str("addr", addr).Msg("serving MCP over HTTP")
				return srv.Serve(ctx, addr)
			}

			srv := transport.NewStdio(dispatcher, log)
			return srv.Serve(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().BoolVar(&useHTTP, "http", false, "serve over HTTP instead of stdio")
	cmd.Flags().StringVar(&addr, "addr", ":8787", "address to listen on, with --http")
	return cmd
}

// unlockServeWallet unlocks via session handoff when one is valid, and
// only falls back to an interactive password prompt otherwise; a stdio
// server's stdin is reserved for JSON-RPC, so prompting there would
// corrupt the protocol stream unless a session file lets it skip the
// prompt entirely.
func unlockServeWallet(w *wallet.Wallet) error {
	if ok, _ := w.HasValidSession(); ok {
		if err := w.UnlockWithSession(); err == nil {
			return nil
		}
	}
	password, err := promptPassword("Master password: ")
	if err != nil {
		return err
	}
	defer zeroBytes(password)
	return w.Unlock(string(password))
}
