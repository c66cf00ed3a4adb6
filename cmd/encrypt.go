package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockmark/internal/crypto"
)

// Encrypt writes <file>.locked holding an envelope of file
func (a *App) Encrypt(ctx context.Context, file string, hint *string, remove bool) error {
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

	password, source, err := a.GetNewPassword(absPath)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	locked, err := lm.EncryptFile(ctx, relPath, password, hint, remove)
	if err != nil {
		return err
	}
	fmt.Printf("encrypted: %s -> %s\n", relPath, locked)

	hintText := ""
	if hint != nil {
		hintText = *hint
	}
	a.remember(lm, lm.AbsPath(locked), password, hintText, source)
	return nil
}
