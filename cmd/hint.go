package cmd

import (
	"context"
	"fmt"
)

// Hint shows the hints stored in a protected file. No password needed.
func (a *App) Hint(ctx context.Context, file string) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	info, err := lm.Hints(ctx, file)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", info.Path, info.Kind)
	for i, h := range info.Hints {
		label := "(no hint)"
		if h != nil {
			label = *h
		}
		if len(info.Hints) == 1 {
			fmt.Printf("  hint: %s\n", label)
		} else {
			fmt.Printf("  %d: %s\n", i+1, label)
		}
	}

	if absPath := lm.AbsPath(info.Path); a.Cache != nil && a.Cache.Has(absPath) {
		if _, cachedHint := a.Cache.Get(absPath); cachedHint != "" {
			fmt.Printf("  password cached for this session (hint: %s)\n", cachedHint)
		} else {
			fmt.Println("  password cached for this session")
		}
	}
	return nil
}
