package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Symbia-Labs/mcp-wallet/internal/session"
)

func newSessionCmd(walletDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage session handoff files",
	}
	cmd.AddCommand(newSessionCreateCmd(walletDir), newSessionClearCmd(walletDir))
	return cmd
}

func newSessionCreateCmd(walletDir *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a session handoff file so other processes can unlock without the master password",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}

			password, err := promptPassword("Master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(password)

			if err := w.Unlock(string(password)); err != nil {
				return err
			}

			sess, err := w.CreateSession(ttl)
			if err != nil {
				return err
			}
			fmt.Printf("session token: %s (expires in %s)\n", sess.Token, ttl)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", session.DefaultDuration, "how long the session stays valid")
	return cmd
}

func newSessionClearCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the session handoff file",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			return w.ClearSession()
		},
	}
}
