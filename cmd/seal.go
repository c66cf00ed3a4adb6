package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/marker"
)

// Seal encrypts text into an inline marker. With file set the marker is
// appended to that file, otherwise it is printed. Empty text is read
// from stdin.
func (a *App) Seal(ctx context.Context, text string, hint *string, hidden bool, file string) error {
	if hint != nil {
		if err := marker.ValidateHint(*hint); err != nil {
			return err
		}
	}
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}
	if text == "" {
		return fmt.Errorf("nothing to seal")
	}
	hidden = hidden || a.Config.Inline.Hidden

	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	// Markers printed to stdout share the workspace's cache entry
	absPath := lm.Root()
	if file != "" {
		relPath, err := lm.Resolve(file)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", file, err)
		}
		absPath = lm.AbsPath(relPath)
	}

	password, source, err := a.GetNewPassword(absPath)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	var encoded string
	if file != "" {
		encoded, err = lm.SealFile(ctx, file, text, password, hint, hidden)
		if err != nil {
			return err
		}
		fmt.Printf("sealed: 1 marker appended to %s\n", file)
	} else {
		encoded, err = marker.Encode(text, string(password), hint, hidden)
		if err != nil {
			return err
		}
		fmt.Println(encoded)
	}

	hintText := ""
	if hint != nil {
		hintText = *hint
	}
	a.remember(lm, absPath, password, hintText, source)
	return nil
}
