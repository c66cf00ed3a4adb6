package cache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scope controls how many files share one cached password
type Scope int

const (
	ScopeFile      Scope = iota // One entry per file
	ScopeFolder                 // One entry per directory under a project root
	ScopeWorkspace              // One entry for everything
)

// String returns the configuration name of the scope
func (s Scope) String() string {
	switch s {
	case ScopeFile:
		return "file"
	case ScopeFolder:
		return "folder"
	case ScopeWorkspace:
		return "workspace"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope parses "file", "folder" or "workspace"
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "per-file", "":
		return ScopeFile, nil
	case "folder", "per-folder":
		return ScopeFolder, nil
	case "workspace", "per-workspace":
		return ScopeWorkspace, nil
	default:
		return ScopeFile, fmt.Errorf("unknown cache scope %q", s)
	}
}

// UnmarshalText lets Scope be read straight from configuration
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ScopeKey derives the cache key for filePath. roots are the project
// roots used by ScopeFolder; the longest root containing the file wins.
func ScopeKey(scope Scope, filePath string, roots []string) string {
	switch scope {
	case ScopeWorkspace:
		return "workspace"
	case ScopeFolder:
		dir := filepath.Dir(normalize(filePath))
		root := owningRoot(dir, roots)
		if root == "" {
			return "folder:" + filepath.ToSlash(dir)
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			rel = dir
		}
		return "folder:" + filepath.ToSlash(root) + ":" + filepath.ToSlash(rel)
	default:
		return "file:" + filepath.ToSlash(normalize(filePath))
	}
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func owningRoot(dir string, roots []string) string {
	best := ""
	for _, r := range roots {
		root := normalize(r)
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best
}
