package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Exposure reports how decrypted plaintext files relate to git
type Exposure struct {
	IsRepo    bool
	Tracked   []string // Plaintext committed to git (bad)
	Unignored []string // Plaintext not covered by .gitignore (warning)
	Ignored   []string // Plaintext in .gitignore (good)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// CheckExposure classifies decrypted plaintext paths. Outside a git
// repository it returns an Exposure with IsRepo false.
func CheckExposure(workDir string, plaintextFiles []string) *Exposure {
	exp := &Exposure{}
	if !IsGitRepo(workDir) {
		return exp
	}
	exp.IsRepo = true

	for _, file := range plaintextFiles {
		switch {
		case IsTracked(workDir, file):
			exp.Tracked = append(exp.Tracked, file)
		case IsIgnored(workDir, file):
			exp.Ignored = append(exp.Ignored, file)
		default:
			exp.Unignored = append(exp.Unignored, file)
		}
	}

	return exp
}

// FormatExposure formats exposure warnings for display
func FormatExposure(exp *Exposure) string {
	if exp == nil || !exp.IsRepo {
		return ""
	}
	if len(exp.Tracked)+len(exp.Unignored)+len(exp.Ignored) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	if len(exp.Tracked) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d decrypted file(s) tracked by git:\n", len(exp.Tracked)))
		for _, file := range exp.Tracked {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", file, file))
		}
	}
	for _, file := range exp.Unignored {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
	}
	if len(exp.Tracked) == 0 && len(exp.Unignored) == 0 {
		result.WriteString(fmt.Sprintf("   ok: %d decrypted file(s) in .gitignore\n", len(exp.Ignored)))
	}

	return result.String()
}
