package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Format constants. Changing any of these breaks compatibility with
// existing envelopes and markers.
const (
	SaltSize   = 16     // Salt size in bytes
	IVSize     = 16     // GCM nonce size used by the format
	TagSize    = 16     // GCM authentication tag size
	KeySize    = 32     // AES-256 key size
	Iterations = 210000 // PBKDF2-HMAC-SHA512 iterations
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key")
	ErrInvalidSalt       = errors.New("invalid salt")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
)

// Sealed is the output of a single encryption: everything needed to
// decrypt except the password.
type Sealed struct {
	Ciphertext []byte
	Salt       []byte
	IV         []byte
	AuthTag    []byte
}

// DeriveKey derives a 32-byte key from a password and a 16-byte salt
func DeriveKey(password, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	return pbkdf2.Key(password, salt, Iterations, KeySize, sha512.New), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-256-GCM and returns the ciphertext
// and the authentication tag separately
func Encrypt(plaintext, key, iv []byte) ([]byte, []byte, error) {
	if len(iv) != IVSize {
		return nil, nil, fmt.Errorf("%w: iv must be %d bytes", ErrInvalidCiphertext, IVSize)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - TagSize

	ciphertext := make([]byte, split)
	copy(ciphertext, sealed[:split])
	tag := make([]byte, TagSize)
	copy(tag, sealed[split:])

	return ciphertext, tag, nil
}

// Decrypt verifies the tag and decrypts ciphertext using AES-256-GCM.
// Any verification failure is reported as ErrAuthFailed.
func Decrypt(ciphertext, key, iv, tag []byte) ([]byte, error) {
	if len(iv) != IVSize || len(tag) != TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(ciphertext)+TagSize)
	buf = append(buf, ciphertext...)
	buf = append(buf, tag...)

	plaintext, err := gcm.Open(nil, iv, buf, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Seal encrypts plaintext under a key derived from password.
// Every call draws a new salt and iv.
func Seal(plaintext, password []byte) (*Sealed, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv, err := GenerateRandom(IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	ciphertext, tag, err := Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}

	return &Sealed{
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
		AuthTag:    tag,
	}, nil
}

// Open decrypts s with a key derived from password
func Open(s *Sealed, password []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrInvalidCiphertext
	}

	key, err := DeriveKey(password, s.Salt)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	return Decrypt(s.Ciphertext, key, s.IV, s.AuthTag)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
