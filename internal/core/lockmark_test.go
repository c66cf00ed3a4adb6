package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/envelope"
	"github.com/illarion/lockmark/internal/marker"
	"github.com/illarion/lockmark/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPassword = []byte("correct-horse")

func newTestLockMark(t *testing.T) (*LockMark, string) {
	t.Helper()
	dir := t.TempDir()

	lm, err := New(dir, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { lm.Close() })
	return lm, lm.Root()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func strPtr(s string) *string { return &s }

func TestPlainPath(t *testing.T) {
	assert.Equal(t, "notes.md", PlainPath("notes.md.locked"))
	assert.Equal(t, "notes.md.decrypted", PlainPath("notes.md"))
	assert.Equal(t, ".locked.decrypted", PlainPath(".locked"))
	assert.Equal(t, "a/b.txt.locked", LockedPath("a/b.txt"))
}

func TestEncryptDecryptFile(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "docs/secret.txt", "hello")

	locked, err := lm.EncryptFile(ctx, "docs/secret.txt", testPassword, strPtr("animal"), true)
	require.NoError(t, err)
	assert.Equal(t, "docs/secret.txt.locked", locked)

	_, err = os.Stat(filepath.Join(dir, "docs/secret.txt"))
	assert.True(t, os.IsNotExist(err), "plaintext should be removed")

	env, err := envelope.Unpack([]byte(readFile(t, dir, locked)))
	require.NoError(t, err)
	assert.Equal(t, "animal", env.HintText())
	assert.Len(t, env.Salt, crypto.SaltSize)

	result, err := lm.DecryptFile(ctx, filepath.Join(dir, locked), testPassword, StrategyAbort)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/secret.txt"}, result.Written)
	assert.Equal(t, "hello", readFile(t, dir, "docs/secret.txt"))
}

func TestEncryptFile_Rejects(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "x")

	_, err := lm.EncryptFile(ctx, "a.txt", nil, nil, false)
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = lm.EncryptFile(ctx, "a.txt", testPassword, strPtr("two\nlines"), false)
	assert.ErrorIs(t, err, marker.ErrInvalidHint)

	_, err = lm.EncryptFile(ctx, "../a.txt", testPassword, nil, false)
	assert.Error(t, err)

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	require.NoError(t, err)
	_, err = lm.EncryptFile(ctx, locked, testPassword, nil, false)
	assert.ErrorIs(t, err, ErrAlreadyEncrypted)
}

func TestDecryptFile_WrongPassword(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "secret")

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, true)
	require.NoError(t, err)

	_, err = lm.DecryptFile(ctx, locked, []byte("wrong"), StrategyOverwrite)
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, crypto.ErrAuthFailed)

	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err), "nothing should be written on failure")
}

func TestDecryptFile_NotEncrypted(t *testing.T) {
	lm, dir := newTestLockMark(t)
	writeFile(t, dir, "plain.txt", "just text")

	_, err := lm.DecryptFile(context.Background(), "plain.txt", testPassword, StrategyAbort)
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestDecryptFile_Conflicts(t *testing.T) {
	tests := []struct {
		name      string
		strategy  MergeStrategy
		wantLocal string
		wantCopy  bool
		wantErr   error
	}{
		{"keep local", StrategyKeepLocal, "local edit", false, nil},
		{"overwrite", StrategyOverwrite, "original", false, nil},
		{"keep both", StrategyKeepBoth, "local edit", true, nil},
		{"abort", StrategyAbort, "local edit", false, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lm, dir := newTestLockMark(t)
			ctx := context.Background()
			writeFile(t, dir, "a.txt", "original")

			locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
			require.NoError(t, err)
			writeFile(t, dir, "a.txt", "local edit")

			_, err = lm.DecryptFile(ctx, locked, testPassword, tt.strategy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantLocal, readFile(t, dir, "a.txt"))
			_, statErr := os.Stat(filepath.Join(dir, "a.txt.decrypted"))
			assert.Equal(t, tt.wantCopy, statErr == nil)
			if tt.wantCopy {
				assert.Equal(t, "original", readFile(t, dir, "a.txt.decrypted"))
			}
		})
	}
}

func TestDecryptFile_KeepBothNumbersCopies(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "original")

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	require.NoError(t, err)
	writeFile(t, dir, "a.txt", "local edit")
	writeFile(t, dir, "a.txt.decrypted", "older copy")

	result, err := lm.DecryptFile(ctx, locked, testPassword, StrategyKeepBoth)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt.decrypted.1"}, result.Written)
	assert.Equal(t, "older copy", readFile(t, dir, "a.txt.decrypted"))
}

func TestDecryptFile_Unchanged(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "same")

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	require.NoError(t, err)

	result, err := lm.DecryptFile(ctx, locked, testPassword, StrategyAbort)
	require.NoError(t, err)
	assert.Empty(t, result.Written)
	assert.Equal(t, []string{"a.txt"}, result.Skipped)
}

func TestSealAndUnsealFile(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "notes.md", "# Notes\n")

	first, err := lm.SealFile(ctx, "notes.md", "api-key-1", testPassword, strPtr("work"), false)
	require.NoError(t, err)
	_, err = lm.SealFile(ctx, "notes.md", "api-key-2", testPassword, nil, true)
	require.NoError(t, err)

	content := readFile(t, dir, "notes.md")
	assert.True(t, strings.HasPrefix(content, "# Notes\n"+first+"\n"))
	assert.NotContains(t, content, "api-key")
	assert.Len(t, marker.ParseAll(content), 2)

	text, count, err := lm.UnsealFile(ctx, "notes.md", testPassword, false)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "# Notes\napi-key-1\napi-key-2\n", text)
	assert.Equal(t, content, readFile(t, dir, "notes.md"), "file untouched without write")

	_, _, err = lm.UnsealFile(ctx, "notes.md", []byte("wrong"), true)
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Equal(t, content, readFile(t, dir, "notes.md"))

	_, _, err = lm.UnsealFile(ctx, "notes.md", testPassword, true)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\napi-key-1\napi-key-2\n", readFile(t, dir, "notes.md"))
}

func TestSealFile_NewFileAndEnvelopeRejected(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()

	encoded, err := lm.SealFile(ctx, "fresh.md", "value", testPassword, nil, false)
	require.NoError(t, err)
	assert.Equal(t, encoded+"\n", readFile(t, dir, "fresh.md"))

	writeFile(t, dir, "a.txt", "x")
	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	require.NoError(t, err)
	_, err = lm.SealFile(ctx, locked, "value", testPassword, nil, false)
	assert.ErrorIs(t, err, ErrAlreadyEncrypted)
}

func TestHints(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()

	writeFile(t, dir, "a.txt", "x")
	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, strPtr("animal"), false)
	require.NoError(t, err)

	info, err := lm.Hints(ctx, locked)
	require.NoError(t, err)
	assert.Equal(t, storage.KindEnvelope, info.Kind)
	require.Len(t, info.Hints, 1)
	assert.Equal(t, "animal", *info.Hints[0])

	m1, err := marker.Encode("one", string(testPassword), strPtr("first"), false)
	require.NoError(t, err)
	m2, err := marker.Encode("two", string(testPassword), nil, true)
	require.NoError(t, err)
	writeFile(t, dir, "inline.md", "a "+m1+" b "+m2+"\n")

	info, err = lm.Hints(ctx, "inline.md")
	require.NoError(t, err)
	assert.Equal(t, storage.KindInline, info.Kind)
	require.Len(t, info.Hints, 2)
	assert.Equal(t, "first", *info.Hints[0])
	assert.Nil(t, info.Hints[1])

	writeFile(t, dir, "plain.md", "nothing here")
	_, err = lm.Hints(ctx, "plain.md")
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestChangePassword_Envelope(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "hello")

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, strPtr("animal"), true)
	require.NoError(t, err)
	before, err := envelope.Unpack([]byte(readFile(t, dir, locked)))
	require.NoError(t, err)

	_, err = lm.ChangePassword(ctx, locked, []byte("wrong"), []byte("new-pass"))
	assert.ErrorIs(t, err, ErrWrongPassword)

	count, err := lm.ChangePassword(ctx, locked, testPassword, []byte("new-pass"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := envelope.Unpack([]byte(readFile(t, dir, locked)))
	require.NoError(t, err)
	assert.Equal(t, "animal", after.HintText())
	assert.NotEqual(t, before.Salt, after.Salt)
	assert.NotEqual(t, before.IV, after.IV)

	assert.ErrorIs(t, lm.VerifyPassword(ctx, locked, testPassword), ErrWrongPassword)
	assert.NoError(t, lm.VerifyPassword(ctx, locked, []byte("new-pass")))
}

func TestChangePassword_Inline(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()

	m1, err := marker.Encode("one", string(testPassword), strPtr("h"), false)
	require.NoError(t, err)
	m2, err := marker.Encode("two", string(testPassword), nil, true)
	require.NoError(t, err)
	writeFile(t, dir, "inline.md", m1+"\n"+m2+"\n")

	count, err := lm.ChangePassword(ctx, "inline.md", testPassword, []byte("new-pass"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	content := readFile(t, dir, "inline.md")
	markers := marker.ParseAll(content)
	require.Len(t, markers, 2)
	assert.Equal(t, "h", markers[0].HintText())
	assert.False(t, markers[0].Hidden)
	assert.True(t, markers[1].Hidden)

	text, _, err := lm.UnsealFile(ctx, "inline.md", []byte("new-pass"), false)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", text)

	writeFile(t, dir, "plain.md", "no markers")
	_, err = lm.ChangePassword(ctx, "plain.md", testPassword, []byte("new-pass"))
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestDiff(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "line1\nline2\n")

	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	require.NoError(t, err)

	diff, err := lm.Diff(ctx, locked, "", testPassword)
	require.NoError(t, err)
	assert.Empty(t, diff)

	writeFile(t, dir, "a.txt", "line1\nchanged\n")
	diff, err = lm.Diff(ctx, locked, "", testPassword)
	require.NoError(t, err)
	assert.Contains(t, diff, "+++ b/a.txt")

	writeFile(t, dir, "other.txt", "line1\nline2\n")
	diff, err = lm.Diff(ctx, locked, "other.txt", testPassword)
	require.NoError(t, err)
	assert.Empty(t, diff)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	_, err = lm.Diff(ctx, locked, "", testPassword)
	assert.Error(t, err)
}

func TestStatusAndCompact(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()

	_, err := lm.Status(ctx)
	assert.ErrorIs(t, err, ErrNoIndex)
	assert.ErrorIs(t, lm.Compact(), ErrNoIndex)

	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "b.txt", "b")
	_, err = lm.EncryptFile(ctx, "a.txt", testPassword, strPtr("animal"), false)
	require.NoError(t, err)
	lockedB, err := lm.EncryptFile(ctx, "b.txt", testPassword, nil, true)
	require.NoError(t, err)
	_, err = lm.SealFile(ctx, "notes.md", "v", testPassword, nil, false)
	require.NoError(t, err)

	writeFile(t, dir, lockedB, "tampered")

	status, err := lm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.EnvelopeCount)
	assert.Equal(t, 1, status.InlineCount)
	assert.Equal(t, 1, status.MarkerCount)
	assert.Equal(t, 1, status.ModifiedCount)
	assert.Equal(t, []string{"a.txt"}, status.Plaintexts)
	require.NotNil(t, status.Exposure)

	byPath := map[string]FileStatus{}
	for _, fs := range status.Files {
		byPath[fs.Path] = fs
	}
	assert.Equal(t, "unchanged", byPath["a.txt.locked"].Status)
	assert.Equal(t, "modified", byPath["b.txt.locked"].Status)
	assert.Equal(t, "unchanged", byPath["notes.md"].Status)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt.locked")))
	status, err = lm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.MissingCount)

	relPath, err := lm.Untrack(ctx, "a.txt.locked")
	require.NoError(t, err)
	assert.Equal(t, "a.txt.locked", relPath)
	status, err = lm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.MissingCount)

	_, err = lm.Untrack(ctx, "a.txt.locked")
	assert.ErrorIs(t, err, ErrNotTracked)

	assert.NoError(t, lm.Compact())
}

func TestUntrack_NoIndex(t *testing.T) {
	lm, _ := newTestLockMark(t)

	_, err := lm.Untrack(context.Background(), "a.txt.locked")
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestWritePlaintext_UsesVerifiedContent(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	writeFile(t, dir, "a.txt", "original")
	locked, err := lm.EncryptFile(ctx, "a.txt", testPassword, strPtr("animal"), true)
	require.NoError(t, err)

	plaintext, env, err := lm.ReadEnvelope(ctx, locked, testPassword)
	require.NoError(t, err)

	result, err := lm.WritePlaintext(ctx, locked, plaintext, env, StrategyAbort)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, result.Written)
	assert.Equal(t, "original", readFile(t, dir, "a.txt"))

	writeFile(t, dir, "a.txt", "edited")
	_, err = lm.WritePlaintext(ctx, locked, plaintext, env, StrategyAbort)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "edited", readFile(t, dir, "a.txt"))

	_, err = lm.WritePlaintext(ctx, locked, plaintext, nil, StrategyOverwrite)
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestWriteUnsealed(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()
	_, err := lm.SealFile(ctx, "notes.md", "api-key", testPassword, nil, false)
	require.NoError(t, err)

	text, count, err := lm.UnsealFile(ctx, "notes.md", testPassword, false)
	require.NoError(t, err)
	require.NoError(t, lm.WriteUnsealed(ctx, "notes.md", text, count))
	assert.Equal(t, "api-key\n", readFile(t, dir, "notes.md"))

	status, err := lm.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Files, "unsealed files leave the index")

	_, _, err = lm.UnsealFile(ctx, "notes.md", testPassword, false)
	assert.ErrorIs(t, err, ErrNotEncrypted)
}

func TestPeekHints_LeavesIndexAlone(t *testing.T) {
	lm, dir := newTestLockMark(t)
	ctx := context.Background()

	m, err := marker.Encode("one", string(testPassword), strPtr("first"), false)
	require.NoError(t, err)
	writeFile(t, dir, "inline.md", "a "+m+"\n")

	info, err := lm.PeekHints(ctx, "inline.md")
	require.NoError(t, err)
	require.Len(t, info.Hints, 1)
	assert.Equal(t, "first", *info.Hints[0])

	_, err = lm.Status(ctx)
	assert.ErrorIs(t, err, ErrNoIndex, "peeking must not create the index")

	_, err = lm.Hints(ctx, "inline.md")
	require.NoError(t, err)
	status, err := lm.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, status.Files, 1)
}

func TestCanceledContext(t *testing.T) {
	lm, _ := newTestLockMark(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lm.EncryptFile(ctx, "a.txt", testPassword, nil, false)
	assert.True(t, errors.Is(err, context.Canceled))
	_, err = lm.Status(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
