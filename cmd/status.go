package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/git"
)

// Status lists protected files recorded in the index
func (a *App) Status(ctx context.Context) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	status, err := lm.Status(ctx)
	if errors.Is(err, core.ErrNoIndex) {
		fmt.Println("No protected files recorded in this directory")
		fmt.Println("Run 'lockmark encrypt <file>' or 'lockmark seal --file <file>' to start")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("Protected files:")
	if len(status.Files) == 0 {
		fmt.Println("  (none)")
	}
	for _, file := range status.Files {
		hint := ""
		if file.Hint != nil {
			hint = fmt.Sprintf(", hint: %s", *file.Hint)
		}
		fmt.Printf("  %s (%s, %s%s)\n", file.Path, file.Kind, file.Status, hint)
	}

	fmt.Printf("\n%d envelope(s), %d inline file(s) with %d marker(s)\n",
		status.EnvelopeCount, status.InlineCount, status.MarkerCount)
	if status.ModifiedCount > 0 {
		fmt.Printf("%d modified since last recorded\n", status.ModifiedCount)
	}
	if status.MissingCount > 0 {
		fmt.Printf("%d missing\n", status.MissingCount)
	}
	if len(status.Plaintexts) > 0 {
		fmt.Printf("%d decrypted plaintext file(s) present\n", len(status.Plaintexts))
	}
	if !status.LastModified.IsZero() {
		fmt.Printf("Index: %s (last updated: %s)\n", a.Config.IndexPath, status.LastModified.Format(time.RFC3339))
	}

	fmt.Print(git.FormatExposure(status.Exposure))

	if a.Cache != nil {
		settings := a.Cache.Settings()
		fmt.Printf("\nSession cache: %d password(s), scope %s\n", a.Cache.Len(), settings.Scope)
	}
	return nil
}
