package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(walletDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new wallet, deriving a master key from a fresh master password",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWallet(*walletDir)
			if err != nil {
				return err
			}

			password, err := promptPassword("New master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(password)

			confirm, err := promptPassword("Confirm master password: ")
			if err != nil {
				return err
			}
			defer zeroBytes(confirm)

			if string(password) != string(confirm) {
				return fmt.Errorf("passwords do not match")
			}

			if err := w.Initialize(context.Background(), string(password)); err != nil {
				return err
			}
			fmt.Println("wallet initialized")
			return nil
		},
	}
}
