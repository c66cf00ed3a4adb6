package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes workspace")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines file operations to a workspace root using
// Go 1.24's os.Root API. Every path handed to lockmark commands goes
// through it, and so do paths read back from the index.
type PathValidator struct {
	root     *os.Root
	rootPath string
}

// New opens the workspace at rootPath.
func New(rootPath string) (*PathValidator, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace root: %w", err)
	}

	return &PathValidator{
		root:     root,
		rootPath: absPath,
	}, nil
}

// Close releases the workspace root handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Root returns the absolute workspace path.
func (pv *PathValidator) Root() string {
	return pv.rootPath
}

// Abs returns the absolute location of a workspace-relative path.
func (pv *PathValidator) Abs(relPath string) string {
	return filepath.Join(pv.rootPath, filepath.FromSlash(relPath))
}

// Resolve accepts a path as typed by the user. Absolute paths that point
// inside the workspace are made relative first; everything else goes
// through ValidateAndNormalize.
func (pv *PathValidator) Resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(pv.rootPath, filepath.Clean(userPath))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
		}
		userPath = rel
	}
	return pv.ValidateAndNormalize(userPath)
}

// ValidateAndNormalize validates a relative path and returns it in the
// slash-separated form stored in the index. It rejects empty, absolute
// and escaping paths, plus anything filepath.IsLocal refuses (Windows
// reserved names and the like).
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(userPath)
	if cleanPath == "." {
		return "", fmt.Errorf("%w: %s", ErrEmptyPath, userPath)
	}
	if !filepath.IsLocal(cleanPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, cleanPath)
	}

	relPath, err := filepath.Rel(pv.rootPath, filepath.Join(pv.rootPath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(relPath), nil
}

// ValidateExistingPath re-checks a path read back from the index, so a
// tampered index cannot steer writes outside the workspace.
func (pv *PathValidator) ValidateExistingPath(storedPath string) (string, error) {
	return pv.ValidateAndNormalize(filepath.FromSlash(storedPath))
}

// WriteFileInRoot writes data to a workspace-relative path.
func (pv *PathValidator) WriteFileInRoot(path string, data []byte, perm os.FileMode) error {
	platformPath, err := pv.platform(path)
	if err != nil {
		return err
	}
	return pv.root.WriteFile(platformPath, data, perm)
}

// ReadFileInRoot reads a workspace-relative path.
func (pv *PathValidator) ReadFileInRoot(path string) ([]byte, error) {
	platformPath, err := pv.platform(path)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(platformPath)
}

// StatInRoot stats a workspace-relative path.
func (pv *PathValidator) StatInRoot(path string) (os.FileInfo, error) {
	platformPath, err := pv.platform(path)
	if err != nil {
		return nil, err
	}
	return pv.root.Stat(platformPath)
}

// RemoveInRoot deletes a workspace-relative file.
func (pv *PathValidator) RemoveInRoot(path string) error {
	platformPath, err := pv.platform(path)
	if err != nil {
		return err
	}
	return pv.root.Remove(platformPath)
}

// ExistsInRoot reports whether a workspace-relative path exists.
func (pv *PathValidator) ExistsInRoot(path string) bool {
	_, err := pv.StatInRoot(path)
	return err == nil
}

func (pv *PathValidator) platform(path string) (string, error) {
	platformPath := filepath.FromSlash(path)
	if _, err := pv.ValidateAndNormalize(platformPath); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return platformPath, nil
}
