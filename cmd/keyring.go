package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/keyring"
)

// keyringTarget resolves file and returns its keyring key
func (a *App) keyringTarget(lm *core.LockMark, file string) (string, string, error) {
	relPath, err := lm.Resolve(file)
	if err != nil {
		return "", "", fmt.Errorf("invalid path %s: %w", file, err)
	}
	return relPath, a.scopeKey(lm, lm.AbsPath(relPath)), nil
}

// KeyringSave verifies a password against file and stores it in the OS
// keyring under the file's cache scope
func (a *App) KeyringSave(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	relPath, key, err := a.keyringTarget(lm, file)
	if err != nil {
		return err
	}

	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	if err := lm.VerifyPassword(ctx, relPath, password); err != nil {
		return err
	}

	if err := keyring.SavePassword(key, string(password)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}

	fmt.Printf("Password saved to keyring (%s)\n", key)
	return nil
}

// KeyringDelete removes the stored password covering file
func (a *App) KeyringDelete(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	_, key, err := a.keyringTarget(lm, file)
	if err != nil {
		return err
	}

	if err := keyring.DeletePassword(key); err != nil {
		fmt.Println("No password stored in keyring")
		return nil
	}

	fmt.Println("Password removed from keyring")
	return nil
}

// KeyringStatus reports whether a password covering file is stored
func (a *App) KeyringStatus(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	_, key, err := a.keyringTarget(lm, file)
	if err != nil {
		return err
	}

	if keyring.HasPassword(key) {
		fmt.Printf("Password: stored in keyring (%s)\n", key)
	} else {
		fmt.Println("Password: not stored")
	}
	return nil
}
