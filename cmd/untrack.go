package cmd

import (
	"context"
	"fmt"
)

// Untrack drops a file from the index. The file itself is left alone.
func (a *App) Untrack(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	relPath, err := lm.Untrack(ctx, file)
	if err != nil {
		return err
	}
	fmt.Printf("untracked: %s\n", relPath)
	return nil
}
