package cmd

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/illarion/lockmark/internal/cache"
)

const shellHelp = `Commands:
  decrypt [--force|--keep-local|--keep-both] [--stdout] <file.locked>
  unseal [-w] <file>       Replace markers with plaintext
  encrypt [--hint H] [-r] <file>
  seal [--hint H] [--hidden] [--file F] <text...>
  passwd <file>            Change the password of an encrypted file
  hint <file>              Show hints
  status                   List protected files
  untrack <file>           Drop a file from the index
  forget <file>            Drop the cached password covering file
  clear                    Drop every cached password
  cache                    Show cache settings
  scope <file|folder|workspace>
  timeout <minutes>        0 keeps passwords until cleared
  on | off                 Enable or disable the cache
  help
  exit
`

// errExit ends the shell loop
var errExit = errors.New("exit")

// Shell runs an interactive session that keeps passwords in a session
// cache between commands. The cache sweep runs for the life of the
// session.
func (a *App) Shell(ctx context.Context, in io.Reader, out io.Writer) error {
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	root := lm.Root()
	lm.Close()

	c := cache.New(a.Config.CacheConfig(),
		cache.WithLogger(a.Log.Component("cache")),
		cache.WithRoots(root),
	)
	c.Start(ctx)
	a.Cache = c
	defer func() {
		c.Stop()
		c.Clear()
		a.Cache = nil
	}()

	fmt.Fprintf(out, "lockmark shell in %s (type 'help' for commands)\n", root)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, "lockmark> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		err := a.shellCommand(ctx, strings.Fields(scanner.Text()), out)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", DescribeError(err))
		}
	}
}

func (a *App) shellCommand(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return nil
	}
	name, args := args[0], args[1:]

	switch name {
	case "exit", "quit":
		return errExit
	case "help", "?":
		fmt.Fprint(out, shellHelp)
		return nil
	case "decrypt":
		fs := newShellFlags(name, out)
		var opts DecryptOptions
		fs.BoolVar(&opts.Force, "force", false, "")
		fs.BoolVar(&opts.KeepLocal, "keep-local", false, "")
		fs.BoolVar(&opts.KeepBoth, "keep-both", false, "")
		fs.BoolVar(&opts.Stdout, "stdout", false, "")
		file, err := parseOneFile(fs, args)
		if err != nil {
			return err
		}
		return a.Decrypt(ctx, file, opts)
	case "unseal":
		fs := newShellFlags(name, out)
		write := fs.Bool("w", false, "")
		file, err := parseOneFile(fs, args)
		if err != nil {
			return err
		}
		return a.Unseal(ctx, file, *write)
	case "encrypt":
		fs := newShellFlags(name, out)
		hint := fs.String("hint", "", "")
		remove := fs.Bool("r", false, "")
		file, err := parseOneFile(fs, args)
		if err != nil {
			return err
		}
		return a.Encrypt(ctx, file, hintPtr(*hint, flagSet(fs, "hint")), *remove)
	case "seal":
		fs := newShellFlags(name, out)
		hint := fs.String("hint", "", "")
		hidden := fs.Bool("hidden", false, "")
		file := fs.String("file", "", "")
		if err := fs.Parse(args); err != nil {
			return err
		}
		// Stdin belongs to the shell, so the text must be given inline
		if fs.NArg() == 0 {
			return fmt.Errorf("usage: seal [--hint H] [--hidden] [--file F] <text...>")
		}
		text := strings.Join(fs.Args(), " ")
		return a.Seal(ctx, text, hintPtr(*hint, flagSet(fs, "hint")), *hidden, *file)
	case "passwd":
		if len(args) != 1 {
			return fmt.Errorf("usage: passwd <file>")
		}
		return a.Passwd(ctx, args[0])
	case "untrack":
		if len(args) != 1 {
			return fmt.Errorf("usage: untrack <file>")
		}
		return a.Untrack(ctx, args[0])
	case "hint":
		if len(args) != 1 {
			return fmt.Errorf("usage: hint <file>")
		}
		return a.Hint(ctx, args[0])
	case "status":
		return a.Status(ctx)
	case "forget":
		if len(args) != 1 {
			return fmt.Errorf("usage: forget <file>")
		}
		return a.forget(args[0], out)
	case "clear":
		fmt.Fprintf(out, "cleared %d cached password(s)\n", a.Cache.Clear())
		return nil
	case "cache":
		a.printCache(out)
		return nil
	case "scope":
		if len(args) != 1 {
			return fmt.Errorf("usage: scope <file|folder|workspace>")
		}
		scope, err := cache.ParseScope(args[0])
		if err != nil {
			return err
		}
		a.reconfigure(func(cfg *cache.Config) { cfg.Scope = scope })
		a.Config.Cache.Scope = scope
		a.printCache(out)
		return nil
	case "timeout":
		if len(args) != 1 {
			return fmt.Errorf("usage: timeout <minutes>")
		}
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes < 0 {
			return fmt.Errorf("timeout must be a whole number of minutes, 0 or more")
		}
		a.reconfigure(func(cfg *cache.Config) { cfg.TimeoutMinutes = minutes })
		a.printCache(out)
		return nil
	case "on", "off":
		active := name == "on"
		a.reconfigure(func(cfg *cache.Config) { cfg.Active = active })
		a.printCache(out)
		return nil
	default:
		return fmt.Errorf("unknown command: %s (type 'help')", name)
	}
}

func newShellFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseOneFile(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("usage: %s [flags] <file>", fs.Name())
	}
	return fs.Arg(0), nil
}

// flagSet reports whether the named flag was given explicitly
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// reconfigure applies change to the current cache settings
func (a *App) reconfigure(change func(*cache.Config)) {
	cfg := a.Cache.Settings()
	change(&cfg)
	a.Cache.Configure(cfg.Active, cfg.TimeoutMinutes, cfg.Scope)
}

func (a *App) forget(file string, out io.Writer) error {
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

	if !a.Cache.Has(absPath) {
		fmt.Fprintf(out, "no cached password for %s\n", relPath)
		return nil
	}
	a.Cache.ClearForFile(absPath)
	fmt.Fprintf(out, "forgot cached password for %s\n", relPath)
	return nil
}

func (a *App) printCache(out io.Writer) {
	cfg := a.Cache.Settings()
	state := "off"
	if cfg.Active {
		state = "on"
	}
	timeout := "never"
	if cfg.TimeoutMinutes > 0 {
		timeout = fmt.Sprintf("%d min", cfg.TimeoutMinutes)
	}
	fmt.Fprintf(out, "cache: %s, scope: %s, expires: %s, entries: %d\n", state, cfg.Scope, timeout, a.Cache.Len())
}
