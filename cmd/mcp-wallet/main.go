// Command mcp-wallet runs the credential vault and its MCP server, or
// manages the vault from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var walletDir string

	root := &cobra.Command{
		Use:           "mcp-wallet",
		Short:         "Credential vault and MCP tool server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&walletDir, "wallet-dir", defaultWalletDir(), "directory holding the wallet's encrypted files")

	root.AddCommand(
		newInitCmd(&walletDir),
		newUnlockCmd(&walletDir),
		newLockCmd(&walletDir),
		newStatusCmd(&walletDir),
		newChangePasswordCmd(&walletDir),
		newReencryptAllCmd(&walletDir),
		newCredentialCmd(&walletDir),
		newIntegrationCmd(&walletDir),
		newSessionCmd(&walletDir),
		newServeCmd(&walletDir),
	)
	return root
}

func defaultWalletDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcp-wallet"
	}
	return home + "/.mcp-wallet"
}
