package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestValidator(t *testing.T) (*PathValidator, string) {
	t.Helper()
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	t.Cleanup(func() { validator.Close() })
	return validator, validator.Root()
}

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	validator, _ := newTestValidator(t)

	tests := []struct {
		name    string
		input   string
		want    string
		errType error
	}{
		{"simple file", "notes.md", "notes.md", nil},
		{"nested file", "docs/a/notes.md", "docs/a/notes.md", nil},
		{"locked file", "secret.txt.locked", "secret.txt.locked", nil},
		{"dot slash", "./notes.md", "notes.md", nil},
		{"dot segments", "a/./b/../notes.md", "a/notes.md", nil},
		{"redundant slashes", "a//b///notes.md", "a/b/notes.md", nil},

		{"parent directory", "../notes.md", "", ErrPathEscapes},
		{"nested parent", "a/../../notes.md", "", ErrPathEscapes},
		{"absolute path", "/etc/passwd", "", ErrAbsolutePath},
		{"empty path", "", "", ErrEmptyPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ValidateAndNormalize(tt.input)

			if tt.errType != nil {
				if !errors.Is(err, tt.errType) {
					t.Errorf("Expected %v for %q, got %v", tt.errType, tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathValidator_Resolve(t *testing.T) {
	validator, root := newTestValidator(t)

	tests := []struct {
		name      string
		input     string
		want      string
		shouldErr bool
	}{
		{"relative", "notes.md", "notes.md", false},
		{"absolute inside", filepath.Join(root, "docs", "notes.md"), "docs/notes.md", false},
		{"absolute outside", filepath.Join(filepath.Dir(root), "elsewhere.md"), "", true},
		{"root itself", root, "", true},
		{"relative escape", "../notes.md", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.Resolve(tt.input)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPathValidator_ValidateExistingPath(t *testing.T) {
	validator, _ := newTestValidator(t)

	tests := []struct {
		name      string
		stored    string
		shouldErr bool
	}{
		{"normal path", "docs/notes.md", false},
		{"path traversal", "../etc/passwd", true},
		{"absolute path", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateExistingPath(tt.stored)

			if tt.shouldErr && err == nil {
				t.Errorf("Expected error for stored path %q, got none", tt.stored)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("Unexpected error for stored path %q: %v", tt.stored, err)
			}
		})
	}
}

func TestPathValidator_FileOperations(t *testing.T) {
	validator, root := newTestValidator(t)

	if err := os.MkdirAll(filepath.Join(root, "docs"), 0755); err != nil {
		t.Fatalf("Failed to create docs: %v", err)
	}

	path := "docs/notes.md.locked"
	data := []byte(`{"version":"1.0"}`)

	if validator.ExistsInRoot(path) {
		t.Fatal("File should not exist yet")
	}
	if err := validator.WriteFileInRoot(path, data, 0600); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if !validator.ExistsInRoot(path) {
		t.Fatal("File should exist after write")
	}

	got, err := validator.ReadFileInRoot(path)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", got, data)
	}

	info, err := validator.StatInRoot(path)
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if info.Size() != int64(len(data)) {
		t.Errorf("Size mismatch: got %d, want %d", info.Size(), len(data))
	}

	if got := validator.Abs(path); got != filepath.Join(root, "docs", "notes.md.locked") {
		t.Errorf("Abs mismatch: %s", got)
	}

	if err := validator.RemoveInRoot(path); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if validator.ExistsInRoot(path) {
		t.Error("File should be gone after remove")
	}
}

func TestPathValidator_RejectsOutsidePaths(t *testing.T) {
	validator, _ := newTestValidator(t)

	for _, p := range []string{"../outside.md", "/etc/passwd"} {
		if _, err := validator.ReadFileInRoot(p); err == nil {
			t.Errorf("Expected read error for %q", p)
		}
		if _, err := validator.StatInRoot(p); err == nil {
			t.Errorf("Expected stat error for %q", p)
		}
		if err := validator.RemoveInRoot(p); err == nil {
			t.Errorf("Expected remove error for %q", p)
		}
		if err := validator.WriteFileInRoot(p, []byte("x"), 0644); err == nil || !strings.Contains(err.Error(), "invalid path") {
			t.Errorf("Expected invalid path error for %q, got %v", p, err)
		}
	}
}

// os.Root must refuse to follow a traversal even when asked directly
func TestPathValidator_ActualEscapePrevention(t *testing.T) {
	validator, root := newTestValidator(t)

	targetFile := filepath.Join(filepath.Dir(root), "should_not_be_written.md")
	defer os.Remove(targetFile)

	if err := validator.WriteFileInRoot("../should_not_be_written.md", []byte("pwned"), 0644); err == nil {
		t.Error("Expected error when trying to write outside root, got none")
	}
	if _, statErr := os.Stat(targetFile); statErr == nil {
		t.Error("File was created outside workspace")
	}
	if _, statErr := os.Stat(filepath.Join(root, "should_not_be_written.md")); statErr == nil {
		t.Error("File was created inside workspace with invalid path")
	}
}
