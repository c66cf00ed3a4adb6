package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/keyring"
)

// Passwd re-encrypts a protected file under a new password
func (a *App) Passwd(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	relPath, err := lm.Resolve(file)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", file, err)
	}
	absPath := lm.AbsPath(relPath)

	verify := func(password []byte) error {
		return lm.VerifyPassword(ctx, relPath, password)
	}
	currentPassword, _, err := a.GetPasswordWithRetry(lm, "Enter current password: ", absPath, verify)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(currentPassword)

	newPassword, err := core.ReadPasswordConfirm("Enter new password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassword)

	count, err := lm.ChangePassword(ctx, relPath, currentPassword, newPassword)
	if err != nil {
		return err
	}

	// Update the keyring only where an entry already exists
	key := a.scopeKey(lm, absPath)
	if a.Config.Keyring && keyring.HasPassword(key) {
		if err := keyring.SavePassword(key, string(newPassword)); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	if a.Cache != nil {
		_, hint := a.Cache.Get(absPath)
		a.Cache.Put(string(newPassword), hint, absPath)
	}

	fmt.Printf("password changed: %s (%d encrypted section(s) rewritten)\n", relPath, count)
	return nil
}
