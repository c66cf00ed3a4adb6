package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/lockmark/internal/cache"
	"github.com/illarion/lockmark/internal/config"
	"github.com/illarion/lockmark/internal/core"
	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/envelope"
	"github.com/illarion/lockmark/internal/keyring"
	"github.com/illarion/lockmark/internal/logger"
	"github.com/illarion/lockmark/internal/marker"
	"golang.org/x/term"
)

// PasswordSource tells where a password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceCache
	SourceKeyring
	SourcePrompt
)

func (s PasswordSource) String() string {
	switch s {
	case SourceEnv:
		return "environment"
	case SourceCache:
		return "session cache"
	case SourceKeyring:
		return "keyring"
	default:
		return "prompt"
	}
}

// App carries what every command needs. Cache is only set while an
// interactive shell session is running.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Cache  *cache.Cache
}

// NewApp creates an App from loaded configuration
func NewApp(cfg *config.Config, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{Config: cfg, Log: log}
}

// workspace opens the current directory as the workspace
func (a *App) workspace() (*core.LockMark, error) {
	return core.New(".", a.Config.IndexPath, a.Log)
}

// scopeKey is the key shared by the session cache and the keyring
func (a *App) scopeKey(lm *core.LockMark, absPath string) string {
	return cache.ScopeKey(a.Config.Cache.Scope, absPath, []string{lm.Root()})
}

func (a *App) envPassword() []byte {
	if a.Config.Password == "" {
		return nil
	}
	return []byte(a.Config.Password)
}

// GetPasswordWithRetry finds a password for absPath and checks it with
// verify. Sources are tried in order: environment, session cache,
// keyring, prompt. A cached or stored password that verify rejects is
// discarded and the next source is tried.
// The caller is responsible for calling crypto.ClearBytes on the returned password.
func (a *App) GetPasswordWithRetry(lm *core.LockMark, prompt, absPath string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := a.envPassword(); password != nil {
		if err := verify(password); err != nil {
			crypto.ClearBytes(password)
			return nil, SourceEnv, err
		}
		return password, SourceEnv, nil
	}

	if a.Cache != nil {
		if cached, _ := a.Cache.Get(absPath); cached != "" {
			password := []byte(cached)
			err := verify(password)
			if err == nil {
				return password, SourceCache, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, SourceCache, err
			}
			a.Cache.ClearForFile(absPath)
			a.Log.Debug().Str("path", absPath).Msg("cached password rejected")
			fmt.Fprintln(os.Stderr, "warning: cached password did not work, forgetting it")
		}
	}

	if a.Config.Keyring {
		key := a.scopeKey(lm, absPath)
		if stored, err := keyring.GetPassword(key); err == nil {
			password := []byte(stored)
			err := verify(password)
			if err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, SourceKeyring, err
			}
			fmt.Fprintln(os.Stderr, "warning: keyring password is stale")
			fmt.Fprintln(os.Stderr, "Run 'lockmark keyring save <file>' after this to update it")
		} else if !keyring.IsNotFound(err) {
			a.Log.Debug().Err(err).Msg("keyring unavailable")
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if err := verify(password); err != nil {
		crypto.ClearBytes(password)
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// GetNewPassword finds a password for encrypting absPath: environment,
// then session cache, then a confirmed prompt.
// The caller is responsible for calling crypto.ClearBytes on the returned password.
func (a *App) GetNewPassword(absPath string) ([]byte, PasswordSource, error) {
	if password := a.envPassword(); password != nil {
		return password, SourceEnv, nil
	}
	if a.Cache != nil {
		if cached, _ := a.Cache.Get(absPath); cached != "" {
			return []byte(cached), SourceCache, nil
		}
	}
	password, err := core.ReadPasswordConfirm("Enter password: ")
	if err != nil {
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// remember stores a password that worked for absPath in the session
// cache and, for typed passwords, offers to keep it in the keyring
func (a *App) remember(lm *core.LockMark, absPath string, password []byte, hint string, source PasswordSource) {
	if a.Cache != nil && source != SourceEnv {
		a.Cache.Put(string(password), hint, absPath)
	}
	if source == SourcePrompt {
		a.OfferToSavePassword(a.scopeKey(lm, absPath), password)
	}
}

// OfferToSavePassword asks once whether a typed password should go to
// the keyring. It stays quiet when stdin is not a terminal or a
// password is already stored.
func (a *App) OfferToSavePassword(key string, password []byte) {
	if !a.Config.Keyring || a.Cache != nil || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}
	if keyring.HasPassword(key) {
		return
	}

	fmt.Fprint(os.Stderr, "Save password to keyring? [y/N]: ")
	var response string
	fmt.Scanln(&response)
	if strings.ToLower(strings.TrimSpace(response)) != "y" {
		return
	}

	if err := keyring.SavePassword(key, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Password saved to keyring")
}

// hintPtr turns a flag value into an optional hint; set tells whether
// the flag was given at all, so an explicit empty hint is kept
func hintPtr(value string, set bool) *string {
	if !set {
		return nil
	}
	return &value
}

// DescribeError turns an error into the message shown to the user. A
// wrong password and corrupted data read the same.
func DescribeError(err error) string {
	switch {
	case errors.Is(err, core.ErrWrongPassword), errors.Is(err, crypto.ErrAuthFailed):
		return "wrong password or corrupted data"
	case errors.Is(err, core.ErrNoIndex):
		return "no protected files recorded in this directory yet"
	case errors.Is(err, core.ErrPasswordRequired):
		return "password required"
	case errors.Is(err, core.ErrConflict):
		return err.Error() + "\nUse --force, --keep-local or --keep-both to resolve"
	case errors.Is(err, envelope.ErrUnsupportedVersion):
		return "envelope was written by an unsupported lockmark version"
	case errors.Is(err, envelope.ErrInvalidEnvelope), errors.Is(err, marker.ErrInvalidBlob):
		return "encrypted data is malformed: " + err.Error()
	case errors.Is(err, marker.ErrInvalidHint):
		return "hint must not contain newlines or the marker characters"
	default:
		return err.Error()
	}
}

// HandleError prints err and exits
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", DescribeError(err))
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
