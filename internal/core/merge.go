package core

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text files
)

// ErrConflict is returned by StrategyAbort when local plaintext differs
var ErrConflict = errors.New("local file differs from decrypted content")

// MergeStrategy defines how an existing plaintext is handled on decrypt
type MergeStrategy int

const (
	StrategyAsk       MergeStrategy = iota // Ask the user
	StrategyKeepLocal                      // Keep the local file
	StrategyOverwrite                      // Replace it with the decrypted content
	StrategyKeepBoth                       // Save decrypted content as .decrypted
	StrategyAbort                          // Fail with ErrConflict
)

// ConflictResolution is the choice made for one conflict
type ConflictResolution int

const (
	ResolutionKeepLocal ConflictResolution = iota
	ResolutionUseDecrypted
	ResolutionEditMerged
	ResolutionKeepBoth
	ResolutionSkip
)

// ConflictResult contains the resolution and optionally merged data
type ConflictResult struct {
	Resolution ConflictResolution
	MergedData []byte // Populated when Resolution == ResolutionEditMerged
}

// DecryptResult reports what a decrypt wrote and what it left alone
type DecryptResult struct {
	Source  string   // The .locked file
	Target  string   // Where the plaintext belongs
	Written []string // Files written
	Skipped []string // Files left untouched
}

// DetectFileType determines if a file is likely text or binary.
// Returns true if the file appears to be text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data
	if len(sample) > BinarySampleSize {
		sample = sample[:BinarySampleSize]
		// Do not judge a rune cut in half at the sample boundary
		for i := 0; i < utf8.UTFMax && len(sample) > 0 && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Tab, newline and carriage return are text
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// CompareFiles reports whether two contents are identical by SHA-256
func CompareFiles(local, decrypted []byte) bool {
	localHash := sha256.Sum256(local)
	decryptedHash := sha256.Sum256(decrypted)
	return bytes.Equal(localHash[:], decryptedHash[:])
}

// conflictOption is one entry of the interactive conflict menu
type conflictOption struct {
	key        string
	label      string
	resolution ConflictResolution
	textOnly   bool
}

var conflictOptions = []conflictOption{
	{"l", "Keep local version", ResolutionKeepLocal, false},
	{"d", "Use decrypted version (overwrite local)", ResolutionUseDecrypted, false},
	{"e", "Edit merged (opens in $EDITOR)", ResolutionEditMerged, true},
	{"b", "Keep both (save decrypted as " + DecryptedExt + ")", ResolutionKeepBoth, false},
	{"x", "Skip this file", ResolutionSkip, false},
}

// strategyResolutions maps non-interactive strategies to their outcome
var strategyResolutions = map[MergeStrategy]ConflictResolution{
	StrategyKeepLocal: ResolutionKeepLocal,
	StrategyOverwrite: ResolutionUseDecrypted,
	StrategyKeepBoth:  ResolutionKeepBoth,
}

// HandleConflict resolves a differing local plaintext, prompting the
// user when strategy is StrategyAsk
func HandleConflict(path string, localData, decryptedData []byte, strategy MergeStrategy) (*ConflictResult, error) {
	if resolution, ok := strategyResolutions[strategy]; ok {
		return &ConflictResult{Resolution: resolution}, nil
	}
	if strategy == StrategyAbort {
		return &ConflictResult{Resolution: ResolutionSkip}, fmt.Errorf("%s: %w", path, ErrConflict)
	}

	isText := DetectFileType(localData) && DetectFileType(decryptedData)
	fileType := "binary"
	if isText {
		fileType = "text"
	}

	var keys []string
	fmt.Printf("\nwarning: %s differs from the decrypted content (%s)\n\n", path, fileType)
	for _, opt := range conflictOptions {
		if opt.textOnly && !isText {
			continue
		}
		keys = append(keys, opt.key)
		fmt.Printf("  [%s] %s\n", opt.key, opt.label)
	}

	for {
		fmt.Printf("\nYour choice: ")
		choice, err := readChoice()
		if err != nil {
			return &ConflictResult{Resolution: ResolutionSkip}, err
		}

		opt, ok := findOption(choice, isText)
		if !ok {
			fmt.Printf("Please enter one of %s\n", strings.Join(keys, ", "))
			continue
		}
		if opt.resolution != ResolutionEditMerged {
			return &ConflictResult{Resolution: opt.resolution}, nil
		}

		merged, err := handleEditMerge(path, localData, decryptedData)
		if err != nil {
			fmt.Printf("merge failed: %v\n", err)
			continue
		}
		return &ConflictResult{Resolution: ResolutionEditMerged, MergedData: merged}, nil
	}
}

func findOption(key string, isText bool) (conflictOption, bool) {
	for _, opt := range conflictOptions {
		if opt.key == key && (isText || !opt.textOnly) {
			return opt, true
		}
	}
	return conflictOption{}, false
}

// readChoice reads a single character choice from the terminal
func readChoice() (string, error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		// Not a terminal, read a line instead
		var input string
		if _, err := fmt.Scanln(&input); err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(input)), nil
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return "", err
	}

	choice := strings.ToLower(string(buf[0]))
	fmt.Printf("%s\n", choice)
	return choice, nil
}

// getEditor returns VISUAL, then EDITOR, then a platform default
func getEditor() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if runtime.GOOS == "windows" {
		return "notepad"
	}
	return "vi"
}

// lineDiffs runs a line-mode diff from a to b
func lineDiffs(dmp *diffmatchpatch.DiffMatchPatch, a, b string) []diffmatchpatch.Diff {
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lineArray)
}

// createLineDiff creates git-style conflict content: common lines appear
// once and only differing sections are wrapped in conflict markers.
func createLineDiff(localData, decryptedData []byte) []byte {
	dmp := diffmatchpatch.New()
	return buildConflictFromDiffs(lineDiffs(dmp, string(localData), string(decryptedData)))
}

// buildConflictFromDiffs turns delete/insert runs into conflict hunks
func buildConflictFromDiffs(diffs []diffmatchpatch.Diff) []byte {
	var buf bytes.Buffer

	writeSide := func(i int, kind diffmatchpatch.Operation) int {
		for i < len(diffs) && diffs[i].Type == kind {
			text := diffs[i].Text
			buf.WriteString(text)
			if len(text) > 0 && text[len(text)-1] != '\n' {
				buf.WriteByte('\n')
			}
			i++
		}
		return i
	}

	i := 0
	for i < len(diffs) {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			buf.WriteString(diffs[i].Text)
			i++
			continue
		}

		buf.WriteString("<<<<<<< local\n")
		i = writeSide(i, diffmatchpatch.DiffDelete)
		buf.WriteString("=======\n")
		i = writeSide(i, diffmatchpatch.DiffInsert)
		buf.WriteString(">>>>>>> decrypted\n")
	}

	return buf.Bytes()
}

// createConflictFile writes conflict content to a private temp file
// that keeps the original extension for syntax highlighting
func createConflictFile(path string, localData, decryptedData []byte) (*os.File, error) {
	tmpFile, err := os.CreateTemp("", "lockmark-merge-*"+filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), FilePermSecure); err != nil {
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("failed to set temp file permissions: %w", err)
	}

	if _, err := tmpFile.Write(createLineDiff(localData, decryptedData)); err != nil {
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("failed to write conflict content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmpFile, nil
}

// invokeEditor opens the editor and waits for it to exit
func invokeEditor(filename string) error {
	editor := getEditor()
	if _, err := exec.LookPath(editor); err != nil {
		return fmt.Errorf("editor '%s' not found: %w\nPlease set VISUAL or EDITOR environment variable", editor, err)
	}

	cmd := exec.Command(editor, filename)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
	}
	return err
}

// handleEditMerge runs the editor-based merge and returns the result
func handleEditMerge(path string, localData, decryptedData []byte) ([]byte, error) {
	tmpFile, err := createConflictFile(path, localData, decryptedData)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile.Name())

	fmt.Printf("\nopening editor for merge...\n")
	if err := invokeEditor(tmpFile.Name()); err != nil {
		return nil, err
	}

	mergedData, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}

	if len(mergedData) == 0 && !confirm("\nwarning: edited file is empty\nUse this empty content? [y/N]: ") {
		return nil, fmt.Errorf("merge aborted by user")
	}
	if hasConflictMarkers(mergedData) && !confirm("\nwarning: conflict markers still present in file\nContinue anyway? [y/N]: ") {
		return nil, fmt.Errorf("merge aborted by user")
	}

	return mergedData, nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	choice, err := readChoice()
	return err == nil && choice == "y"
}

// hasConflictMarkers checks if content still contains unresolved conflict markers
func hasConflictMarkers(data []byte) bool {
	return bytes.Contains(data, []byte("<<<<<<<")) ||
		bytes.Contains(data, []byte("=======")) ||
		bytes.Contains(data, []byte(">>>>>>>"))
}

// GenerateUnifiedDiff returns a unified diff from decryptedData to
// localData, or "" when they are identical
func GenerateUnifiedDiff(path string, decryptedData, localData []byte) (string, error) {
	if CompareFiles(decryptedData, localData) {
		return "", nil
	}
	if !DetectFileType(decryptedData) || !DetectFileType(localData) {
		return fmt.Sprintf("Binary file %s has changed\n", path), nil
	}

	dmp := diffmatchpatch.New()
	decryptedStr := string(decryptedData)
	patches := dmp.PatchMake(decryptedStr, lineDiffs(dmp, decryptedStr, string(localData)))
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- a/%s%s\n", path, LockedExt)
	fmt.Fprintf(&result, "+++ b/%s\n", path)
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}
