package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Symbia-Labs/mcp-wallet/internal/session"
)

func newUnlockCmd(walletDir *string) *cobra.Command {
	var createSession bool
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the wallet for this process, optionally minting a session handoff file",
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

			if createSession {
				sess, err := w.CreateSession(session.DefaultDuration)
				if err != nil {
					return err
				}
				fmt.Printf("session token: %s (expires in %s)\n", sess.Token, session.DefaultDuration)
			}

			fmt.Println("wallet unlocked")
			return nil
		},
	}
	cmd.Flags().BoolVar(&createSession, "session", false, "mint a session handoff file so other processes can unlock without the password")
	return cmd
}

// newLockCmd clears the session handoff file, so a serve process relying
// on UnlockWithSession can no longer recover the master key without the
// password. It cannot reach into a separately-running serve process to
// drop its in-memory key; that process keeps running unlocked until it
// exits or calls Lock itself.
func newLockCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Clear the session handoff file",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			return w.ClearSession()
		},
	}
}

func newStatusCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the wallet's current lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			fmt.Println(w.State())
			if remaining, ok, err := w.SessionRemaining(); err == nil && ok {
				fmt.Printf("session active, expires in %ds\n", remaining)
			}
			return nil
		},
	}
}

func newChangePasswordCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Change the master password, re-encrypting every stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}

			oldPassword, err := promptPassword("Current master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(oldPassword)

			newPassword, err := promptPassword("New master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(newPassword)

			confirm, err := promptPassword("Confirm new master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(confirm)

			if string(newPassword) != string(confirm) {
				return fmt.Errorf("passwords do not match")
			}

			if err := w.ChangePassword(context.Background(), string(oldPassword), string(newPassword)); err != nil {
				return err
			}
			fmt.Println("master password changed")
			return nil
		},
	}
}

// newReencryptAllCmd derives a fresh master key from the current password
// under a newly generated salt and rewrites every stored credential under
// it, without changing the password itself. Useful after bumping Argon2 parameters or recovering
// from a partially-applied change-password.
func newReencryptAllCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reencrypt-all",
		Short: "Re-encrypt every stored credential under a freshly derived master key (new salt, same password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}

			password, err := promptPassword("Master password (to re-derive the key): ")
			if err != nil {
				return err
			}
			defer zeroBytes(password)

			if err := w.ChangePassword(context.Background(), string(password), string(password)); err != nil {
				return err
			}
			fmt.Println("all credentials re-encrypted")
			return nil
		},
	}
}
