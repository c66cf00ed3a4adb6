package core

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"plain ASCII text", []byte("Hello, World!\nThis is a test."), true},
		{"UTF-8 with special chars", []byte("Hello 世界! Ñoño café"), true},
		{"empty file", []byte(""), true},
		{"newlines and spaces", []byte("\n\n  \t  \n"), true},
		{"inline marker", []byte("token: 🔐animal💡AAAA🔐\n"), true},
		{"content with null bytes", []byte("Hello\x00World"), false},
		{"random binary data", []byte{0xFF, 0xFE, 0x00, 0x01, 0xAB, 0xCD}, false},
		{"non-UTF-8 sequences", []byte{0x80, 0x81, 0x82, 0x83, 0x84}, false},
		{"lots of non-printable", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.content); got != tt.want {
				t.Errorf("DetectFileType() for %s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDetectFileType_RuneAtSampleBoundary(t *testing.T) {
	content := []byte(strings.Repeat("a", BinarySampleSize-1) + "世界")
	if !DetectFileType(content) {
		t.Error("A multi-byte rune split by the sample should still be text")
	}
}

func TestCompareFiles(t *testing.T) {
	tests := []struct {
		name     string
		content1 []byte
		content2 []byte
		want     bool
	}{
		{"identical text", []byte("Hello, World!"), []byte("Hello, World!"), true},
		{"identical empty files", []byte(""), []byte(""), true},
		{"identical binary data", []byte{0x00, 0x01, 0xFF}, []byte{0x00, 0x01, 0xFF}, true},
		{"different text", []byte("data1"), []byte("data2"), false},
		{"empty vs non-empty", []byte(""), []byte("content"), false},
		{"whitespace difference", []byte("Hello World"), []byte("Hello  World"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareFiles(tt.content1, tt.content2); got != tt.want {
				t.Errorf("CompareFiles() for %s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCreateLineDiff_SingleLineChange(t *testing.T) {
	local := []byte("line1\nline2\nline3\n")
	decrypted := []byte("line1\nmodified\nline3\n")

	result := string(createLineDiff(local, decrypted))

	for _, want := range []string{"line1\n", "line3\n", "<<<<<<< local", "=======", ">>>>>>> decrypted", "line2", "modified"} {
		if !strings.Contains(result, want) {
			t.Errorf("Result should contain %q, got:\n%s", want, result)
		}
	}
	if strings.Count(result, "line1") != 1 {
		t.Error("Common lines should appear once")
	}
}

func TestCreateLineDiff_IdenticalFiles(t *testing.T) {
	content := []byte("line1\nline2\nline3\n")

	result := string(createLineDiff(content, content))

	if hasConflictMarkers([]byte(result)) {
		t.Error("Identical files should not have conflict markers")
	}
	if result != string(content) {
		t.Errorf("Identical files should return same content.\nGot: %q\nWant: %q", result, content)
	}
}

func TestCreateLineDiff_MultipleChanges(t *testing.T) {
	local := []byte("line1\nline2\nline3\nline4\nline5\n")
	decrypted := []byte("line1\nchanged2\nline3\nchanged4\nline5\n")

	result := string(createLineDiff(local, decrypted))

	if count := strings.Count(result, "<<<<<<< local"); count != 2 {
		t.Errorf("Expected 2 conflict sections, got %d", count)
	}
}

func TestCreateLineDiff_AddedAndRemovedLines(t *testing.T) {
	added := string(createLineDiff([]byte("line1\nline2\n"), []byte("line1\nline2\nline3\n")))
	if !strings.Contains(added, "<<<<<<< local") || !strings.Contains(added, "line3") {
		t.Errorf("Addition should be a conflict hunk, got:\n%s", added)
	}

	removed := string(createLineDiff([]byte("line1\nline2\nline3\n"), []byte("line1\nline3\n")))
	if !strings.Contains(removed, "<<<<<<< local\nline2\n=======\n") {
		t.Errorf("Removal should keep line2 on the local side, got:\n%s", removed)
	}
}

func TestHandleConflict_Strategies(t *testing.T) {
	local := []byte("local\n")
	decrypted := []byte("decrypted\n")

	tests := []struct {
		strategy MergeStrategy
		want     ConflictResolution
	}{
		{StrategyKeepLocal, ResolutionKeepLocal},
		{StrategyOverwrite, ResolutionUseDecrypted},
		{StrategyKeepBoth, ResolutionKeepBoth},
	}
	for _, tt := range tests {
		result, err := HandleConflict("notes.md", local, decrypted, tt.strategy)
		if err != nil {
			t.Fatalf("Strategy %d: unexpected error: %v", tt.strategy, err)
		}
		if result.Resolution != tt.want {
			t.Errorf("Strategy %d: got resolution %d, want %d", tt.strategy, result.Resolution, tt.want)
		}
	}

	result, err := HandleConflict("notes.md", local, decrypted, StrategyAbort)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Abort should return ErrConflict, got %v", err)
	}
	if result.Resolution != ResolutionSkip {
		t.Errorf("Abort should skip, got %d", result.Resolution)
	}
}

func TestGenerateUnifiedDiff(t *testing.T) {
	same := []byte("a\nb\n")
	diff, err := GenerateUnifiedDiff("notes.md", same, same)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff != "" {
		t.Errorf("Identical content should give empty diff, got %q", diff)
	}

	diff, err = GenerateUnifiedDiff("notes.md", []byte("a\nb\nc\n"), []byte("a\nB\nc\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{"--- a/notes.md.locked\n", "+++ b/notes.md\n", "@@", "-b", "+B"} {
		if !strings.Contains(diff, want) {
			t.Errorf("Diff should contain %q, got:\n%s", want, diff)
		}
	}

	diff, err = GenerateUnifiedDiff("blob.bin", []byte{0x00, 0x01}, []byte{0x00, 0x02})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff != "Binary file blob.bin has changed\n" {
		t.Errorf("Unexpected binary diff: %q", diff)
	}
}

func TestFindOption(t *testing.T) {
	if opt, ok := findOption("d", false); !ok || opt.resolution != ResolutionUseDecrypted {
		t.Errorf("'d' should select the decrypted version, got %+v, %v", opt, ok)
	}
	if _, ok := findOption("e", false); ok {
		t.Error("Edit merge should not be offered for binary files")
	}
	if opt, ok := findOption("e", true); !ok || opt.resolution != ResolutionEditMerged {
		t.Errorf("'e' should select edit merge for text, got %+v, %v", opt, ok)
	}
	if _, ok := findOption("q", true); ok {
		t.Error("Unknown keys should not match")
	}
}
