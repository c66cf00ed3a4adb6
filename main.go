package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/lockmark/cmd"
	"github.com/illarion/lockmark/internal/cache"
	"github.com/illarion/lockmark/internal/config"
	"github.com/illarion/lockmark/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encrypt":
		runEncrypt(ctx, os.Args[2:])
	case "decrypt":
		runDecrypt(ctx, os.Args[2:])
	case "seal":
		runSeal(ctx, os.Args[2:])
	case "unseal":
		runUnseal(ctx, os.Args[2:])
	case "hint":
		runHint(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "status", "ls":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "untrack":
		runUntrack(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "shell":
		runShell(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newApp loads configuration from the environment with overrides on top
func newApp(overrides *config.Config) *cmd.App {
	cfg, err := config.Load(overrides)
	if err != nil {
		cmd.HandleError(err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		cmd.HandleError(err)
	}
	return cmd.NewApp(cfg, logger.New(level, os.Stderr))
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// requireFile returns the single file argument or exits with usage
func requireFile(fs *flag.FlagSet, usage string) string {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return fs.Arg(0)
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func run(err error) {
	if err != nil {
		cmd.HandleError(err)
	}
}

func runEncrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	hint := fs.String("hint", "", "Hint shown when asking for the password")
	removeShort := fs.Bool("r", false, "Remove the plaintext file after encrypting")
	removeLong := fs.Bool("remove", false, "Remove the plaintext file after encrypting")
	parseFlags(fs, args)

	file := requireFile(fs, "lockmark encrypt [--hint H] [-r|--remove] <file>")
	app := newApp(nil)
	run(app.Encrypt(ctx, file, hintFlag(fs, *hint), *removeShort || *removeLong))
}

func hintFlag(fs *flag.FlagSet, value string) *string {
	if !isFlagSet(fs, "hint") {
		return nil
	}
	return &value
}

func runDecrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	var opts cmd.DecryptOptions
	fs.BoolVar(&opts.Force, "force", false, "Overwrite the local file without asking")
	fs.BoolVar(&opts.KeepLocal, "keep-local", false, "Keep the local file on conflict")
	fs.BoolVar(&opts.KeepBoth, "keep-both", false, "Write the decrypted copy next to the local file")
	fs.BoolVar(&opts.Stdout, "stdout", false, "Print plaintext instead of writing a file")
	parseFlags(fs, args)

	file := requireFile(fs, "lockmark decrypt [--force|--keep-local|--keep-both] [--stdout] <file.locked>")
	app := newApp(nil)
	run(app.Decrypt(ctx, file, opts))
}

func runSeal(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	hint := fs.String("hint", "", "Hint stored in the marker")
	hidden := fs.Bool("hidden", false, "Wrap the marker in %% tokens")
	file := fs.String("file", "", "Append the marker to this file")
	parseFlags(fs, args)

	text := strings.Join(fs.Args(), " ")
	app := newApp(nil)
	run(app.Seal(ctx, text, hintFlag(fs, *hint), *hidden, *file))
}

func runUnseal(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unseal", flag.ExitOnError)
	writeShort := fs.Bool("w", false, "Rewrite the file in place")
	writeLong := fs.Bool("write", false, "Rewrite the file in place")
	parseFlags(fs, args)

	app := newApp(nil)
	// Read from stdin without a file argument
	if fs.NArg() == 0 || fs.Arg(0) == "-" {
		run(app.UnsealStdin())
		return
	}
	file := requireFile(fs, "lockmark unseal [-w|--write] [<file>|-]")
	run(app.Unseal(ctx, file, *writeShort || *writeLong))
}

func runHint(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("hint", flag.ExitOnError)
	parseFlags(fs, args)

	file := requireFile(fs, "lockmark hint <file>")
	run(newApp(nil).Hint(ctx, file))
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parseFlags(fs, args)

	file := requireFile(fs, "lockmark passwd <file>")
	run(newApp(nil).Passwd(ctx, file))
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "Usage: lockmark diff <file.locked> [plain-file]")
		os.Exit(1)
	}
	run(newApp(nil).Diff(ctx, fs.Arg(0), fs.Arg(1)))
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseFlags(fs, args)

	run(newApp(nil).Status(ctx))
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	run(newApp(nil).Compact(ctx))
}

func runUntrack(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("untrack", flag.ExitOnError)
	parseFlags(fs, args)

	file := requireFile(fs, "lockmark untrack <file>")
	run(newApp(nil).Untrack(ctx, file))
}

func runKeyring(ctx context.Context, args []string) {
	usage := "Usage: lockmark keyring <save|delete|status> <file>"
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	app := newApp(nil)
	switch args[0] {
	case "save":
		run(app.KeyringSave(ctx, args[1]))
	case "delete":
		run(app.KeyringDelete(ctx, args[1]))
	case "status":
		run(app.KeyringStatus(ctx, args[1]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring action: %s\n%s\n", args[0], usage)
		os.Exit(1)
	}
}

func runShell(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	scope := fs.String("scope", "", "Cache scope: file, folder or workspace")
	timeout := fs.Int("timeout", 0, "Minutes before a cached password expires, 0 for never")
	noCache := fs.Bool("no-cache", false, "Start with the password cache disabled")
	noKeyring := fs.Bool("no-keyring", false, "Do not read passwords from the OS keyring")
	parseFlags(fs, args)

	overrides := &config.Config{}
	if isFlagSet(fs, "timeout") {
		overrides.Cache.TimeoutMinutes = *timeout
	}
	var parsedScope cache.Scope
	if *scope != "" {
		s, err := cache.ParseScope(*scope)
		if err != nil {
			cmd.HandleError(err)
		}
		parsedScope = s
		overrides.Cache.Scope = s
	}

	app := newApp(overrides)
	// Zero values cannot be merged over the environment
	if *scope != "" {
		app.Config.Cache.Scope = parsedScope
	}
	if isFlagSet(fs, "timeout") {
		app.Config.Cache.TimeoutMinutes = *timeout
	}
	if *noCache {
		app.Config.Cache.Active = false
	}
	if *noKeyring {
		app.Config.Keyring = false
	}

	run(app.Shell(ctx, os.Stdin, os.Stdout))
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lockmark completion <bash|zsh|fish>")
		os.Exit(1)
	}
	run(cmd.Completion(args[0]))
}

func printUsage() {
	fmt.Println("lockmark - Encrypt whole files or inline secrets with a password")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lockmark <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  encrypt     Encrypt a file into <file>.locked")
	fmt.Println("  decrypt     Decrypt a .locked file")
	fmt.Println("  seal        Encrypt text into an inline 🔐 marker")
	fmt.Println("  unseal      Replace inline markers with their plaintext")
	fmt.Println("  hint        Show password hints of an encrypted file")
	fmt.Println("  passwd      Change the password of an encrypted file")
	fmt.Println("  diff        Compare a .locked file with its plaintext")
	fmt.Println("  ls, status  Show protected files in this directory")
	fmt.Println("  untrack     Drop a file from the .lockmark index")
	fmt.Println("  compact     Compact the .lockmark index")
	fmt.Println("  keyring     Manage passwords in the OS keyring")
	fmt.Println("  shell       Interactive session with a password cache")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  lockmark encrypt .env --hint pet -r   # Encrypt .env and remove it")
	fmt.Println("  lockmark decrypt .env.locked          # Restore .env")
	fmt.Println("  lockmark seal --file notes.md token   # Append a marker to notes.md")
	fmt.Println("  lockmark unseal notes.md              # Print notes.md decrypted")
	fmt.Println()
	fmt.Println("Use 'lockmark help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "encrypt":
		fmt.Println("lockmark encrypt [--hint H] [-r|--remove] <file>")
		fmt.Println()
		fmt.Println("Encrypts a file into a JSON envelope written to <file>.locked.")
		fmt.Println("Prompts for the password twice unless LOCKMARK_PASSWORD is set.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --hint H        Store a hint shown when asking for the password")
		fmt.Println("  -r, --remove    Remove the plaintext file after encrypting")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  lockmark encrypt .env")
		fmt.Println("  lockmark encrypt --hint \"first pet\" -r secrets.yaml")
	case "decrypt":
		fmt.Println("lockmark decrypt [--force|--keep-local|--keep-both] [--stdout] <file.locked>")
		fmt.Println()
		fmt.Println("Decrypts an envelope next to the .locked file.")
		fmt.Println("When the plaintext already exists and differs, offers:")
		fmt.Println("  [l] Keep local version")
		fmt.Println("  [d] Use decrypted version (overwrite local)")
		fmt.Println("  [e] Edit merged (opens in $EDITOR, text files only)")
		fmt.Println("  [b] Keep both (save as .decrypted)")
		fmt.Println("  [x] Skip this file")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --force        Overwrite the local file without asking")
		fmt.Println("  --keep-local   Keep the local file on conflict")
		fmt.Println("  --keep-both    Keep both versions")
		fmt.Println("  --stdout       Print plaintext instead of writing a file")
	case "seal":
		fmt.Println("lockmark seal [--hint H] [--hidden] [--file F] [text...]")
		fmt.Println()
		fmt.Println("Encrypts text into an inline marker: 🔐hint💡payload🔐")
		fmt.Println("Text is read from stdin when not given as arguments.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --hint H    Hint stored in the marker")
		fmt.Println("  --hidden    Wrap the marker in %% tokens")
		fmt.Println("  --file F    Append the marker to F instead of printing it")
	case "unseal":
		fmt.Println("lockmark unseal [-w|--write] [<file>|-]")
		fmt.Println()
		fmt.Println("Replaces every inline marker with its plaintext.")
		fmt.Println("Without a file, reads text from stdin.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -w, --write    Rewrite the file in place instead of printing")
	case "hint":
		fmt.Println("lockmark hint <file>")
		fmt.Println()
		fmt.Println("Shows the hint of an envelope or of every marker in a file.")
		fmt.Println("Does not require a password.")
	case "passwd":
		fmt.Println("lockmark passwd <file>")
		fmt.Println()
		fmt.Println("Re-encrypts an envelope or every marker in a file with a new password.")
		fmt.Println("Hints are kept. A keyring entry for the file is updated.")
	case "diff":
		fmt.Println("lockmark diff <file.locked> [plain-file]")
		fmt.Println()
		fmt.Println("Shows a unified diff between the decrypted envelope and the local file.")
	case "status", "ls":
		fmt.Println("lockmark status")
		fmt.Println()
		fmt.Println("Lists files recorded in the .lockmark index with their state")
		fmt.Println("(unchanged, modified, missing) and warns about plaintext copies")
		fmt.Println("that git would commit.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "untrack":
		fmt.Println("lockmark untrack <file>")
		fmt.Println()
		fmt.Println("Removes a file from the .lockmark index, for example after it was")
		fmt.Println("deleted or moved. The file itself is not touched.")
	case "compact":
		fmt.Println("lockmark compact")
		fmt.Println()
		fmt.Println("Compacts the .lockmark index to reclaim unused disk space.")
	case "keyring":
		fmt.Println("lockmark keyring <save|delete|status> <file>")
		fmt.Println()
		fmt.Println("Stores, removes or checks the OS keyring password for a file.")
		fmt.Println("The entry follows the cache scope (LOCKMARK_CACHE_SCOPE).")
	case "shell":
		fmt.Println("lockmark shell [--scope file|folder|workspace] [--timeout N] [--no-cache] [--no-keyring]")
		fmt.Println()
		fmt.Println("Starts an interactive session. Passwords that work are kept in memory")
		fmt.Println("for the session and expire after the timeout. Type 'help' inside.")
	case "completion":
		fmt.Println("lockmark completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(lockmark completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(lockmark completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  lockmark completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
