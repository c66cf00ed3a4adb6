package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/marker"
)

// Unseal replaces every marker in file by its plaintext, printing the
// result or rewriting the file in place
func (a *App) Unseal(ctx context.Context, file string, write bool) error {
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

	hint := ""
	if info, err := lm.PeekHints(ctx, relPath); err == nil && len(info.Hints) > 0 && info.Hints[0] != nil {
		hint = *info.Hints[0]
	}

	prompt := "Enter password: "
	if hint != "" {
		prompt = fmt.Sprintf("Enter password (hint: %s): ", hint)
	}

	// The password check unseals the text, and its result is what gets written
	var text string
	var count int
	verify := func(password []byte) error {
		var err error
		text, count, err = lm.UnsealFile(ctx, relPath, password, false)
		return err
	}
	password, source, err := a.GetPasswordWithRetry(lm, prompt, absPath, verify)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	if write {
		if err := lm.WriteUnsealed(ctx, relPath, text, count); err != nil {
			return err
		}
		fmt.Printf("unsealed: %d marker(s) in %s\n", count, relPath)
	} else {
		fmt.Print(text)
	}

	a.remember(lm, absPath, password, hint, source)
	return nil
}

// UnsealStdin replaces every marker in text read from stdin and prints
// the result. The hint of the first marker is shown in the prompt.
func (a *App) UnsealStdin() error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	text := string(data)

	m, ok := marker.Parse(text)
	if !ok {
		return marker.ErrNoMarker
	}

	password := a.envPassword()
	if password == nil {
		prompt := "Enter password: "
		if m.Hint != nil {
			prompt = fmt.Sprintf("Enter password (hint: %s): ", *m.Hint)
		}
		if password, err = core.ReadPassword(prompt); err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	out, _, err := marker.Replace(text, string(password))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
