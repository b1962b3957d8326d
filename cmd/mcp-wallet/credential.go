package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newCredentialCmd(walletDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage stored credentials",
	}
	cmd.AddCommand(
		newCredentialAddCmd(walletDir),
		newCredentialListCmd(walletDir),
		newCredentialDeleteCmd(walletDir),
	)
	return cmd
}

func newCredentialAddCmd(walletDir *string) *cobra.Command {
	var provider, name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new API key credential, reading the secret value from stdin prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}

			secret, err := promptPassword("API key value: ")
			if err != nil {
				return err
			}
			defer zeroBytes(secret)

			cred, err := w.Credentials().AddAPIKey(provider, name, string(secret))
			if err != nil {
				return err
			}
			fmt.Printf("added credential %s (%s/%s, prefix %s)\n", cred.ID, cred.Provider, cred.Name, cred.Prefix)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "credential provider, e.g. \"stripe\"")
	cmd.Flags().StringVar(&name, "name", "", "human-readable credential name")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCredentialListCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credentials (metadata only, never the secret value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}

			creds, err := w.Credentials().List()
			if err != nil {
				return err
			}
			for _, c := range creds {
				fmt.Printf("%s  %-20s %-20s %s\n", c.ID, c.Provider, c.Name, c.Prefix)
			}
			return nil
		},
	}
}

func newCredentialDeleteCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <credential-id>",
		Short: "Delete a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid credential id: %w", err)
			}

			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}
			return w.Credentials().Delete(id)
		},
	}
}
