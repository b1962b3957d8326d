// Package keychain adapts the OS-native credential store (macOS Keychain,
// or the Secret Service API on Linux) as an optional hardware-backed home
// for the wallet's master key, as an alternative to deriving it fresh from
// the password every unlock.
package keychain

import (
	"encoding/base64"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/Symbia-Labs/mcp-wallet/internal/walleterr"
)

const (
	service = "com.symbia-labs.mcp-wallet"
	label   = "mcp-wallet master key"
)

// Store persists key (raw bytes) in the OS keychain under account, which
// callers should derive from the vault directory so distinct vaults do not
// collide on a single host.
func Store(account string, key []byte) error {
	encoded := base64.StdEncoding.EncodeToString(key)

	item := gokeychain.NewGenericPassword(service, account, label, []byte(encoded), "")
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := gokeychain.AddItem(item); err != nil {
		if err == gokeychain.ErrorDuplicateItem {
			query := gokeychain.NewGenericPassword(service, account, "", nil, "")
			update := gokeychain.NewItem()
			update.SetData([]byte(encoded))
			if err := gokeychain.UpdateItem(query, update); err != nil {
				return walleterr.Wrap(walleterr.KindKeychainError, "update keychain item", err)
			}
			return nil
		}
		return walleterr.Wrap(walleterr.KindKeychainError, "add keychain item", err)
	}
	return nil
}

// Load returns the key previously stored under account.
func Load(account string) ([]byte, error) {
	data, err := gokeychain.GetGenericPassword(service, account, "", "")
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindKeychainError, "read keychain item", err)
	}
	if len(data) == 0 {
		return nil, walleterr.New(walleterr.KindKeychainError, "no keychain entry for account")
	}

	key, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindKeychainError, "decode keychain payload", err)
	}
	return key, nil
}

// Remove deletes the account's keychain entry. Missing entries are not an
// error.
func Remove(account string) error {
	query := gokeychain.NewGenericPassword(service, account, "", nil, "")
	if err := gokeychain.DeleteItem(query); err != nil && err != gokeychain.ErrorItemNotFound {
		return walleterr.Wrap(walleterr.KindKeychainError, "delete keychain item", fmt.Errorf("%v", err))
	}
	return nil
}

// Available reports whether account has a stored key.
func Available(account string) bool {
	_, err := gokeychain.GetGenericPassword(service, account, "", "")
	return err == nil
}
