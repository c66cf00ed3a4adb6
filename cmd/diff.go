package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
)

// Diff compares the decrypted content of a .locked file with the local
// plaintext
func (a *App) Diff(ctx context.Context, file, plain string) error {
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

	var hint string
	verify := func(password []byte) error {
		data, env, err := lm.ReadEnvelope(ctx, relPath, password)
		if err != nil {
			return err
		}
		crypto.ClearBytes(data)
		hint = env.HintText()
		return nil
	}
	password, source, err := a.GetPasswordWithRetry(lm, "Enter password: ", absPath, verify)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	diff, err := lm.Diff(ctx, relPath, plain, password)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Printf("No changes detected (%s matches %s)\n", core.PlainPath(relPath), relPath)
	} else {
		fmt.Print(diff)
	}

	a.remember(lm, absPath, password, hint, source)
	return nil
}
