package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/illarion/lockmark/internal/crypto"
	"github.com/illarion/lockmark/internal/envelope"
	"github.com/illarion/lockmark/internal/git"
	"github.com/illarion/lockmark/internal/logger"
	"github.com/illarion/lockmark/internal/marker"
	"github.com/illarion/lockmark/internal/security"
	"github.com/illarion/lockmark/internal/storage"
)

const (
	IndexFile          = ".lockmark"
	LockedExt          = ".locked"
	DecryptedExt       = ".decrypted"
	FilePermSecure     = 0600 // File: owner rw only
	MaxDecryptedCopies = 100  // Max numbered .decrypted.N copies
)

var (
	ErrNoIndex          = errors.New("no lockmark index in this workspace")
	ErrWrongPassword    = errors.New("wrong password or corrupted data")
	ErrPasswordRequired = errors.New("password required")
	ErrAlreadyEncrypted = errors.New("file is already encrypted")
	ErrNotEncrypted     = errors.New("file is not encrypted")
	ErrNotTracked       = errors.New("file is not in the index")
)

// LockMark runs lockmark operations inside one workspace
type LockMark struct {
	indexPath string
	validator *security.PathValidator
	log       *logger.Logger
}

// New opens the workspace at root. indexPath is taken relative to root
// unless absolute.
func New(root, indexPath string, log *logger.Logger) (*LockMark, error) {
	validator, err := security.New(root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}
	if indexPath == "" {
		indexPath = IndexFile
	}
	if !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(validator.Root(), indexPath)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &LockMark{
		indexPath: indexPath,
		validator: validator,
		log:       log.Component("core"),
	}, nil
}

// Close releases resources held by the LockMark instance
func (l *LockMark) Close() error {
	if l.validator != nil {
		return l.validator.Close()
	}
	return nil
}

// Root returns the absolute workspace root
func (l *LockMark) Root() string {
	return l.validator.Root()
}

// Resolve turns a user-supplied path into a workspace-relative one
func (l *LockMark) Resolve(path string) (string, error) {
	return l.validator.Resolve(path)
}

// AbsPath returns the absolute location of a workspace-relative path
func (l *LockMark) AbsPath(relPath string) string {
	return l.validator.Abs(relPath)
}

// openIndex opens the index, creating it on first use
func (l *LockMark) openIndex() (*storage.Storage, error) {
	db, err := storage.Open(l.indexPath)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// record stores or refreshes an index entry. Index failures are logged
// and do not fail the file operation that triggered them.
func (l *LockMark) record(entry storage.Entry) {
	db, err := l.openIndex()
	if err != nil {
		l.log.Warn().Err(err).Str("path", entry.Path).Msg("index unavailable")
		return
	}
	defer db.Close()

	if err := db.PutEntry(entry); err != nil {
		l.log.Warn().Err(err).Str("path", entry.Path).Msg("failed to update index")
		return
	}
	l.log.Debug().Str("path", entry.Path).Str("kind", string(entry.Kind)).Msg("index updated")
}

// forget drops an index entry, logging failures
func (l *LockMark) forget(path string) {
	db, err := l.openIndex()
	if err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("index unavailable")
		return
	}
	defer db.Close()

	if err := db.RemoveEntry(path); err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("failed to update index")
	}
}

// lookup returns the index entry for path, or nil
func (l *LockMark) lookup(path string) *storage.Entry {
	if _, err := os.Stat(l.indexPath); err != nil {
		return nil
	}
	db, err := l.openIndex()
	if err != nil {
		return nil
	}
	defer db.Close()

	entry, err := db.GetEntry(path)
	if err != nil {
		return nil
	}
	return entry
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// secureFileMode masks a file mode to preserve execute for owner only, removes group/other.
// Returns FilePermSecure (0600) if the result would be zero.
func secureFileMode(mode os.FileMode) os.FileMode {
	secure := mode & 0700
	if secure == 0 {
		return FilePermSecure
	}
	return secure
}

// readFile reads a workspace-relative file and returns its content and info
func (l *LockMark) readFile(relPath string) ([]byte, os.FileInfo, error) {
	info, err := l.validator.StatInRoot(relPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot access %s: %w", relPath, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", relPath)
	}
	data, err := l.validator.ReadFileInRoot(relPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read %s: %w", relPath, err)
	}
	return data, info, nil
}

// writeFile writes a workspace-relative file and returns the entry
// fields describing what was written
func (l *LockMark) writeFile(relPath string, data []byte, perm os.FileMode) (storage.Entry, error) {
	if err := l.validator.WriteFileInRoot(relPath, data, perm); err != nil {
		return storage.Entry{}, fmt.Errorf("cannot write %s: %w", relPath, err)
	}
	entry := storage.Entry{
		Path: relPath,
		Size: int64(len(data)),
		Hash: hashContent(data),
	}
	if info, err := l.validator.StatInRoot(relPath); err == nil {
		entry.ModTime = info.ModTime()
	} else {
		entry.ModTime = time.Now()
	}
	return entry, nil
}

// LockedPath returns the envelope file name for a plaintext file
func LockedPath(path string) string {
	return path + LockedExt
}

// PlainPath returns where a .locked file decrypts to
func PlainPath(lockedPath string) string {
	if strings.HasSuffix(lockedPath, LockedExt) && len(lockedPath) > len(LockedExt) {
		return strings.TrimSuffix(lockedPath, LockedExt)
	}
	return lockedPath + DecryptedExt
}

// wrapAuth maps authentication failures to ErrWrongPassword, keeping
// the crypto sentinel reachable through errors.Is.
func wrapAuth(path string, err error) error {
	if errors.Is(err, crypto.ErrAuthFailed) {
		return fmt.Errorf("%s: %w (%w)", path, ErrWrongPassword, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}

// EncryptFile writes <path>.locked holding an envelope of path's content
// and records it in the index. With remove the plaintext is deleted.
func (l *LockMark) EncryptFile(ctx context.Context, path string, password []byte, hint *string, remove bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", ErrPasswordRequired
	}
	if hint != nil && strings.ContainsAny(*hint, "\r\n") {
		return "", fmt.Errorf("%w: hint must be a single line", marker.ErrInvalidHint)
	}

	relPath, err := l.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	content, info, err := l.readFile(relPath)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(content)

	if strings.HasSuffix(relPath, LockedExt) || envelope.IsEnvelope(content) {
		return "", fmt.Errorf("%s: %w", relPath, ErrAlreadyEncrypted)
	}

	data, err := envelope.Encrypt(content, password, hint)
	if err != nil {
		return "", fmt.Errorf("%s: %w", relPath, err)
	}

	lockedPath := LockedPath(relPath)
	entry, err := l.writeFile(lockedPath, data, secureFileMode(info.Mode()))
	if err != nil {
		return "", err
	}
	entry.Kind = storage.KindEnvelope
	entry.Hint = hint
	entry.Version = envelope.Version

	if remove {
		if err := l.validator.RemoveInRoot(relPath); err != nil {
			fmt.Printf("warning: cannot remove %s: %v\n", relPath, err)
			entry.Plaintext = relPath
		} else {
			fmt.Printf("removed: %s\n", relPath)
		}
	} else {
		entry.Plaintext = relPath
	}

	l.record(entry)
	l.log.Debug().Str("path", lockedPath).Bool("hint", hint != nil).Msg("file encrypted")
	return lockedPath, nil
}

// ReadEnvelope decrypts a .locked file without writing anything
func (l *LockMark) ReadEnvelope(ctx context.Context, path string, password []byte) ([]byte, *envelope.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	return l.readEnvelope(relPath, password)
}

func (l *LockMark) readEnvelope(relPath string, password []byte) ([]byte, *envelope.Envelope, error) {
	data, _, err := l.readFile(relPath)
	if err != nil {
		return nil, nil, err
	}
	if !envelope.IsEnvelope(data) {
		return nil, nil, fmt.Errorf("%s: %w", relPath, ErrNotEncrypted)
	}

	plaintext, env, err := envelope.Decrypt(data, password)
	if err != nil {
		return nil, env, wrapAuth(relPath, err)
	}
	return plaintext, env, nil
}

// DecryptFile decrypts a .locked file next to itself. An existing
// plaintext that differs is resolved with strategy.
func (l *LockMark) DecryptFile(ctx context.Context, path string, password []byte, strategy MergeStrategy) (*DecryptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}

	plaintext, env, err := l.readEnvelope(relPath, password)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	return l.writePlaintext(relPath, plaintext, env, strategy)
}

// WritePlaintext writes plaintext already decrypted from the .locked file
// at path, resolving an existing local copy with strategy. The caller
// keeps ownership of plaintext.
func (l *LockMark) WritePlaintext(ctx context.Context, path string, plaintext []byte, env *envelope.Envelope, strategy MergeStrategy) (*DecryptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNotEncrypted)
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	return l.writePlaintext(relPath, plaintext, env, strategy)
}

func (l *LockMark) writePlaintext(relPath string, plaintext []byte, env *envelope.Envelope, strategy MergeStrategy) (*DecryptResult, error) {
	info, err := l.validator.StatInRoot(relPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", relPath, err)
	}
	mode := secureFileMode(info.Mode())

	target := PlainPath(relPath)
	result := &DecryptResult{Source: relPath, Target: target}

	data := plaintext
	if localData, err := l.validator.ReadFileInRoot(target); err == nil {
		defer crypto.ClearBytes(localData)

		if CompareFiles(localData, plaintext) {
			result.Skipped = append(result.Skipped, target)
			fmt.Printf("skipped: %s (unchanged)\n", target)
			l.recordDecrypted(relPath, env, target)
			return result, nil
		}

		conflict, err := HandleConflict(target, localData, plaintext, strategy)
		if err != nil {
			return result, err
		}

		switch conflict.Resolution {
		case ResolutionKeepLocal:
			result.Skipped = append(result.Skipped, target)
			fmt.Printf("skipped: %s (kept local version)\n", target)
			return result, nil
		case ResolutionSkip:
			result.Skipped = append(result.Skipped, target)
			fmt.Printf("skipped: %s\n", target)
			return result, nil
		case ResolutionEditMerged:
			data = conflict.MergedData
			defer crypto.ClearBytes(conflict.MergedData)
		case ResolutionKeepBoth:
			copyPath, err := l.freeCopyPath(target)
			if err != nil {
				return result, err
			}
			if _, err := l.writeFile(copyPath, plaintext, mode); err != nil {
				return result, err
			}
			result.Written = append(result.Written, copyPath)
			result.Skipped = append(result.Skipped, target)
			fmt.Printf("saved: %s (decrypted version)\n", copyPath)
			fmt.Printf("skipped: %s (kept local version)\n", target)
			return result, nil
		case ResolutionUseDecrypted:
			// Continue to overwrite
		}
	}

	if _, err := l.writeFile(target, data, mode); err != nil {
		return result, err
	}
	result.Written = append(result.Written, target)
	fmt.Printf("decrypted: %s\n", target)

	l.recordDecrypted(relPath, env, target)
	return result, nil
}

// recordDecrypted refreshes the envelope's entry with its plaintext sibling
func (l *LockMark) recordDecrypted(lockedPath string, env *envelope.Envelope, target string) {
	data, info, err := l.readFile(lockedPath)
	if err != nil {
		return
	}
	l.record(storage.Entry{
		Path:      lockedPath,
		Kind:      storage.KindEnvelope,
		Hint:      env.Hint,
		Version:   env.Version,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Hash:      hashContent(data),
		Plaintext: target,
	})
}

// freeCopyPath finds an unused <target>.decrypted[.N] name
func (l *LockMark) freeCopyPath(target string) (string, error) {
	copyPath := target + DecryptedExt
	if !l.validator.ExistsInRoot(copyPath) {
		return copyPath, nil
	}
	for i := 1; i < MaxDecryptedCopies; i++ {
		copyPath = fmt.Sprintf("%s%s.%d", target, DecryptedExt, i)
		if !l.validator.ExistsInRoot(copyPath) {
			return copyPath, nil
		}
	}
	return "", fmt.Errorf("%s: too many decrypted copies (max %d)", target, MaxDecryptedCopies)
}

// UnsealFile replaces every inline marker in a file by its plaintext.
// With write the file is rewritten in place and dropped from the index.
func (l *LockMark) UnsealFile(ctx context.Context, path string, password []byte, write bool) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return "", 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	content, _, err := l.readFile(relPath)
	if err != nil {
		return "", 0, err
	}

	text, count, err := marker.Replace(string(content), string(password))
	if err != nil {
		if errors.Is(err, marker.ErrNoMarker) {
			return "", 0, fmt.Errorf("%s: %w", relPath, ErrNotEncrypted)
		}
		return "", 0, wrapAuth(relPath, err)
	}

	if write {
		if err := l.writeUnsealed(relPath, text, count); err != nil {
			return "", 0, err
		}
	}
	return text, count, nil
}

// WriteUnsealed replaces the content of path with text produced by
// UnsealFile and drops the file from the index
func (l *LockMark) WriteUnsealed(ctx context.Context, path, text string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", path, err)
	}
	return l.writeUnsealed(relPath, text, count)
}

func (l *LockMark) writeUnsealed(relPath, text string, count int) error {
	info, err := l.validator.StatInRoot(relPath)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", relPath, err)
	}
	if _, err := l.writeFile(relPath, []byte(text), info.Mode().Perm()); err != nil {
		return err
	}
	l.forget(relPath)
	l.log.Debug().Str("path", relPath).Int("markers", count).Msg("markers unsealed in place")
	return nil
}

// SealFile appends text to a file as a new inline marker
func (l *LockMark) SealFile(ctx context.Context, path, text string, password []byte, hint *string, hidden bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	encoded, err := marker.Encode(text, string(password), hint, hidden)
	if err != nil {
		return "", err
	}

	var content []byte
	perm := os.FileMode(FilePermSecure)
	if existing, info, err := l.readFile(relPath); err == nil {
		if envelope.IsEnvelope(existing) {
			return "", fmt.Errorf("%s: %w", relPath, ErrAlreadyEncrypted)
		}
		content = existing
		perm = info.Mode().Perm()
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content = append(content, '\n')
		}
	} else if l.validator.ExistsInRoot(relPath) {
		return "", err
	}
	content = append(content, encoded...)
	content = append(content, '\n')

	entry, err := l.writeFile(relPath, content, perm)
	if err != nil {
		return "", err
	}
	l.recordInline(entry, string(content))
	return encoded, nil
}

func (l *LockMark) recordInline(entry storage.Entry, text string) {
	markers := marker.ParseAll(text)
	entry.Kind = storage.KindInline
	entry.Markers = len(markers)
	if len(markers) > 0 {
		entry.Hint = markers[0].Hint
	}
	l.record(entry)
}

// HintInfo lists the hints a protected file carries
type HintInfo struct {
	Path  string
	Kind  storage.Kind
	Hints []*string // One per envelope or marker, nil where absent
}

// PeekHints reads hints without a password and leaves the index alone
func (l *LockMark) PeekHints(ctx context.Context, path string) (*HintInfo, error) {
	info, _, err := l.inspect(ctx, path)
	return info, err
}

// Hints reads hints without a password and refreshes the index entry
func (l *LockMark) Hints(ctx context.Context, path string) (*HintInfo, error) {
	info, entry, err := l.inspect(ctx, path)
	if err != nil {
		return nil, err
	}
	if entry.Kind == storage.KindEnvelope {
		if prev := l.lookup(entry.Path); prev != nil {
			entry.Plaintext = prev.Plaintext
		}
	}
	l.record(entry)
	return info, nil
}

// inspect reads the hints of a protected file together with the index
// entry that describes it
func (l *LockMark) inspect(ctx context.Context, path string) (*HintInfo, storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Entry{}, err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return nil, storage.Entry{}, fmt.Errorf("invalid path %s: %w", path, err)
	}

	content, info, err := l.readFile(relPath)
	if err != nil {
		return nil, storage.Entry{}, err
	}

	entry := storage.Entry{
		Path:    relPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    hashContent(content),
	}

	if envelope.IsEnvelope(content) {
		env, err := envelope.Unpack(content)
		if err != nil {
			return nil, storage.Entry{}, fmt.Errorf("%s: %w", relPath, err)
		}
		entry.Kind = storage.KindEnvelope
		entry.Hint = env.Hint
		entry.Version = env.Version
		return &HintInfo{Path: relPath, Kind: storage.KindEnvelope, Hints: []*string{env.Hint}}, entry, nil
	}

	markers := marker.ParseAll(string(content))
	if len(markers) == 0 {
		return nil, storage.Entry{}, fmt.Errorf("%s: %w", relPath, ErrNotEncrypted)
	}
	hints := make([]*string, 0, len(markers))
	for _, m := range markers {
		hints = append(hints, m.Hint)
	}
	entry.Kind = storage.KindInline
	entry.Markers = len(markers)
	entry.Hint = markers[0].Hint
	return &HintInfo{Path: relPath, Kind: storage.KindInline, Hints: hints}, entry, nil
}

// ChangePassword re-encrypts an envelope, or every marker of an inline
// file, under newPassword. Each encryption gets a fresh salt and iv.
// It returns how many encrypted units were rewritten.
func (l *LockMark) ChangePassword(ctx context.Context, path string, currentPassword, newPassword []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(newPassword) == 0 {
		return 0, ErrPasswordRequired
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	content, info, err := l.readFile(relPath)
	if err != nil {
		return 0, err
	}

	if envelope.IsEnvelope(content) {
		plaintext, env, err := envelope.Decrypt(content, currentPassword)
		if err != nil {
			return 0, wrapAuth(relPath, err)
		}
		defer crypto.ClearBytes(plaintext)

		data, err := envelope.Encrypt(plaintext, newPassword, env.Hint)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", relPath, err)
		}
		entry, err := l.writeFile(relPath, data, info.Mode().Perm())
		if err != nil {
			return 0, err
		}
		entry.Kind = storage.KindEnvelope
		entry.Hint = env.Hint
		entry.Version = envelope.Version
		if prev := l.lookup(relPath); prev != nil {
			entry.Plaintext = prev.Plaintext
		}
		l.record(entry)
		l.log.Debug().Str("path", relPath).Msg("envelope password changed")
		return 1, nil
	}

	text, count, err := marker.Rekey(string(content), string(currentPassword), string(newPassword))
	if err != nil {
		if errors.Is(err, marker.ErrNoMarker) {
			return 0, fmt.Errorf("%s: %w", relPath, ErrNotEncrypted)
		}
		return 0, wrapAuth(relPath, err)
	}
	entry, err := l.writeFile(relPath, []byte(text), info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	l.recordInline(entry, text)
	l.log.Debug().Str("path", relPath).Int("markers", count).Msg("marker passwords changed")
	return count, nil
}

// VerifyPassword checks password against a protected file without
// writing anything
func (l *LockMark) VerifyPassword(ctx context.Context, path string, password []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", path, err)
	}
	content, _, err := l.readFile(relPath)
	if err != nil {
		return err
	}

	if envelope.IsEnvelope(content) {
		plaintext, _, err := envelope.Decrypt(content, password)
		if err != nil {
			return wrapAuth(relPath, err)
		}
		crypto.ClearBytes(plaintext)
		return nil
	}

	m, ok := marker.Parse(string(content))
	if !ok {
		return fmt.Errorf("%s: %w", relPath, ErrNotEncrypted)
	}
	if _, err := marker.Decrypt(m, string(password)); err != nil {
		return wrapAuth(relPath, err)
	}
	return nil
}

// Diff returns a unified diff from the decrypted content of a .locked
// file to its local plaintext. plainPath defaults to the decrypt target.
func (l *LockMark) Diff(ctx context.Context, path, plainPath string, password []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}

	target := PlainPath(relPath)
	if plainPath != "" {
		if target, err = l.Resolve(plainPath); err != nil {
			return "", fmt.Errorf("invalid path %s: %w", plainPath, err)
		}
	}

	decrypted, _, err := l.readEnvelope(relPath, password)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(decrypted)

	localData, err := l.validator.ReadFileInRoot(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not in working directory: %s", target)
		}
		return "", fmt.Errorf("cannot read %s: %w", target, err)
	}
	defer crypto.ClearBytes(localData)

	return GenerateUnifiedDiff(target, decrypted, localData)
}

// FileStatus is the state of one indexed file
type FileStatus struct {
	Path   string
	Kind   storage.Kind
	Hint   *string
	Status string // unchanged, modified, missing
}

// StatusInfo contains status information
type StatusInfo struct {
	Files         []FileStatus
	LastModified  time.Time
	EnvelopeCount int
	InlineCount   int
	MarkerCount   int
	ModifiedCount int
	MissingCount  int
	Plaintexts    []string // Decrypted siblings present on disk
	Exposure      *git.Exposure
}

// Status lists indexed files (no password required)
func (l *LockMark) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(l.indexPath); err != nil {
		return nil, ErrNoIndex
	}

	db, err := l.openIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer db.Close()

	status := &StatusInfo{Files: make([]FileStatus, 0)}
	if modified, err := db.GetModified(); err == nil {
		status.LastModified = modified
	}

	entries, err := db.Entries()
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Skip entries a tampered index could use to escape the workspace
		validPath, err := l.validator.ValidateExistingPath(entry.Path)
		if err != nil {
			l.log.Warn().Str("path", entry.Path).Msg("skipping invalid index entry")
			continue
		}

		fs := FileStatus{Path: validPath, Kind: entry.Kind, Hint: entry.Hint}
		switch entry.Kind {
		case storage.KindEnvelope:
			status.EnvelopeCount++
		case storage.KindInline:
			status.InlineCount++
			status.MarkerCount += entry.Markers
		}

		content, err := l.validator.ReadFileInRoot(validPath)
		switch {
		case err != nil:
			fs.Status = "missing"
			status.MissingCount++
		case hashContent(content) != entry.Hash:
			fs.Status = "modified"
			status.ModifiedCount++
		default:
			fs.Status = "unchanged"
		}
		status.Files = append(status.Files, fs)

		if entry.Plaintext != "" {
			if plain, err := l.validator.ValidateExistingPath(entry.Plaintext); err == nil && l.validator.ExistsInRoot(plain) {
				status.Plaintexts = append(status.Plaintexts, plain)
			}
		}
	}

	status.Exposure = git.CheckExposure(l.Root(), status.Plaintexts)
	return status, nil
}

// Compact rewrites the index to reclaim unused space
func (l *LockMark) Compact() error {
	if _, err := os.Stat(l.indexPath); err != nil {
		return ErrNoIndex
	}
	db, err := storage.Open(l.indexPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// Untrack removes a file from the index without touching it. It
// returns ErrNotTracked when the index has no entry for path.
func (l *LockMark) Untrack(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	relPath, err := l.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", path, err)
	}
	if _, err := os.Stat(l.indexPath); err != nil {
		return "", ErrNoIndex
	}
	db, err := l.openIndex()
	if err != nil {
		return "", err
	}
	defer db.Close()

	entry, err := db.GetEntry(relPath)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return "", fmt.Errorf("%s: %w", relPath, ErrNotTracked)
	}
	if err := db.RemoveEntry(relPath); err != nil {
		return "", err
	}
	l.log.Debug().Str("path", relPath).Msg("removed from index")
	return relPath, nil
}
