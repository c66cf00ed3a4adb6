package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/envelope"
)

// DecryptOptions selects how an existing plaintext is handled
type DecryptOptions struct {
	Force     bool // Overwrite local plaintext
	KeepLocal bool
	KeepBoth  bool
	Stdout    bool // Print plaintext instead of writing it
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (o DecryptOptions) strategy() (core.MergeStrategy, error) {
	if boolToInt(o.Force)+boolToInt(o.KeepLocal)+boolToInt(o.KeepBoth) > 1 {
		return core.StrategyAsk, fmt.Errorf("--force, --keep-local, and --keep-both are mutually exclusive")
	}
	switch {
	case o.Force:
		return core.StrategyOverwrite, nil
	case o.KeepLocal:
		return core.StrategyKeepLocal, nil
	case o.KeepBoth:
		return core.StrategyKeepBoth, nil
	default:
		return core.StrategyAsk, nil
	}
}

// Decrypt restores the plaintext of a .locked file
func (a *App) Decrypt(ctx context.Context, file string, opts DecryptOptions) error {
	strategy, err := opts.strategy()
	if err != nil {
		return err
	}

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

	// The password check decrypts the envelope, and its result is what gets written
	var plaintext []byte
	var env *envelope.Envelope
	verify := func(password []byte) error {
		data, e, err := lm.ReadEnvelope(ctx, relPath, password)
		if err != nil {
			return err
		}
		plaintext, env = data, e
		return nil
	}

	password, source, err := a.GetPasswordWithRetry(lm, "Enter password: ", absPath, verify)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)
	defer crypto.ClearBytes(plaintext)

	if opts.Stdout {
		if _, err := os.Stdout.Write(plaintext); err != nil {
			return err
		}
	} else {
		result, err := lm.WritePlaintext(ctx, relPath, plaintext, env, strategy)
		if err != nil {
			return err
		}
		if len(result.Written) == 0 && len(result.Skipped) > 0 {
			a.Log.Debug().Str("path", result.Target).Msg("plaintext left unchanged")
		}
	}

	a.remember(lm, absPath, password, env.HintText(), source)
	return nil
}
