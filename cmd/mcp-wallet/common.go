package main

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/Symbia-Labs/mcp-wallet/internal/obslog"
	"github.com/Symbia-Labs/mcp-wallet/internal/wallet"
)

func openWallet(dir string) (*wallet.Wallet, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create wallet directory: %w", err)
	}
	log := obslog.New(obslog.ModeInteractive, obslog.ParseLevel(os.Getenv("MCP_WALLET_LOG_LEVEL")))
	return wallet.New(dir, log)
}

// unlockInteractive unlocks w, preferring a still-valid session handoff
// over prompting for the master password.
func unlockInteractive(w *wallet.Wallet) error {
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

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
