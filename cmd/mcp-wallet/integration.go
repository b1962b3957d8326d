package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newIntegrationCmd(walletDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration",
		Short: "Manage OpenAPI integrations",
	}
	cmd.AddCommand(
		newIntegrationAddCmd(walletDir),
		newIntegrationListCmd(walletDir),
		newIntegrationBindCmd(walletDir),
		newIntegrationSyncCmd(walletDir),
		newIntegrationRemoveCmd(walletDir),
	)
	return cmd
}

func newIntegrationAddCmd(walletDir *string) *cobra.Command {
	var specURL string
	cmd := &cobra.Command{
		Use:   "add <key>",
		Short: "Register an integration by fetching and parsing an OpenAPI spec URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}

			integ, err := w.Integrations().AddFromURL(args[0], specURL)
			if err != nil {
				return err
			}
			fmt.Printf("added integration %q: %d operations\n", integ.Key, integ.OperationCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&specURL, "spec-url", "", "URL of the OpenAPI 3.x spec (JSON or YAML)")
	_ = cmd.MarkFlagRequired("spec-url")
	return cmd
}

func newIntegrationListCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered integrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}

			for _, integ := range w.Integrations().List() {
				bound := "unbound"
				if integ.CredentialID != nil {
					bound = integ.CredentialID.String()
				}
				fmt.Printf("%-20s %-10s %3d ops  credential=%s\n", integ.Key, integ.Status, integ.OperationCount, bound)
			}
			return nil
		},
	}
}

func newIntegrationBindCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bind <key> <credential-id>",
		Short: "Bind an integration to a stored credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credID, err := uuid.Parse(args[1])
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
			return w.Integrations().SetCredential(args[0], credID)
		},
	}
}

func newIntegrationSyncCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <key>",
		Short: "Re-fetch an integration's spec and refresh its operations, preserving its identity and credential binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}
			return w.Integrations().Sync(args[0])
		},
	}
}

func newIntegrationRemoveCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove an integration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}
			if err := unlockInteractive(w); err != nil {
				return err
			}
			return w.Integrations().Remove(args[0])
		},
	}
}
