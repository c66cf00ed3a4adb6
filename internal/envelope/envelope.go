package envelope

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/lockmark/internal/crypto"
)

// Version is the only envelope layout currently understood
const Version = "1.0"

var (
	ErrInvalidEnvelope    = errors.New("invalid envelope")
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
)

// Envelope is a decoded whole-file encrypted record
type Envelope struct {
	Version    string
	Hint       *string // nil when the envelope carries no hint
	Ciphertext []byte
	Salt       []byte
	IV         []byte
	AuthTag    []byte
}

// wireEnvelope is the JSON form. Pointers let Unpack tell a missing
// field from an empty one.
type wireEnvelope struct {
	Version    *string `json:"version"`
	Hint       *string `json:"hint,omitempty"`
	Ciphertext *string `json:"ciphertext"`
	Salt       *string `json:"salt"`
	IV         *string `json:"iv"`
	AuthTag    *string `json:"authTag"`
}

// Sealed returns the cryptographic part of the envelope
func (e *Envelope) Sealed() *crypto.Sealed {
	return &crypto.Sealed{
		Ciphertext: e.Ciphertext,
		Salt:       e.Salt,
		IV:         e.IV,
		AuthTag:    e.AuthTag,
	}
}

// HintText returns the hint or "" when absent
func (e *Envelope) HintText() string {
	if e.Hint == nil {
		return ""
	}
	return *e.Hint
}

// Pack serializes an encryption result and optional hint
func Pack(s *crypto.Sealed, hint *string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nothing to pack", ErrInvalidEnvelope)
	}
	if len(s.Salt) != crypto.SaltSize || len(s.IV) != crypto.IVSize || len(s.AuthTag) != crypto.TagSize {
		return nil, fmt.Errorf("%w: salt, iv and tag must be %d bytes", ErrInvalidEnvelope, crypto.SaltSize)
	}

	enc := base64.StdEncoding
	version := Version
	ciphertext := enc.EncodeToString(s.Ciphertext)
	salt := enc.EncodeToString(s.Salt)
	iv := enc.EncodeToString(s.IV)
	tag := enc.EncodeToString(s.AuthTag)

	w := wireEnvelope{
		Version:    &version,
		Hint:       hint,
		Ciphertext: &ciphertext,
		Salt:       &salt,
		IV:         &iv,
		AuthTag:    &tag,
	}

	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Unpack parses envelope text. Structural problems are reported as
// ErrInvalidEnvelope or ErrUnsupportedVersion and never reach the cipher.
func Unpack(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	if w.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidEnvelope)
	}
	if *w.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, *w.Version)
	}

	ciphertext, err := decodeField("ciphertext", w.Ciphertext, -1)
	if err != nil {
		return nil, err
	}
	salt, err := decodeField("salt", w.Salt, crypto.SaltSize)
	if err != nil {
		return nil, err
	}
	iv, err := decodeField("iv", w.IV, crypto.IVSize)
	if err != nil {
		return nil, err
	}
	tag, err := decodeField("authTag", w.AuthTag, crypto.TagSize)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Version:    *w.Version,
		Hint:       w.Hint,
		Ciphertext: ciphertext,
		Salt:       salt,
		IV:         iv,
		AuthTag:    tag,
	}, nil
}

// decodeField base64-decodes a required field; size < 0 skips the length check
func decodeField(name string, value *string, size int) ([]byte, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidEnvelope, name)
	}
	b, err := base64.StdEncoding.DecodeString(*value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64", ErrInvalidEnvelope, name)
	}
	if size >= 0 && len(b) != size {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrInvalidEnvelope, name, len(b), size)
	}
	return b, nil
}

// Encrypt seals plaintext with password and packs it into envelope text
func Encrypt(plaintext, password []byte, hint *string) ([]byte, error) {
	sealed, err := crypto.Seal(plaintext, password)
	if err != nil {
		return nil, err
	}
	return Pack(sealed, hint)
}

// Decrypt unpacks envelope text and decrypts it. The parsed envelope is
// returned alongside the plaintext so callers can reuse the hint.
func Decrypt(data, password []byte) ([]byte, *Envelope, error) {
	env, err := Unpack(data)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := crypto.Open(env.Sealed(), password)
	if err != nil {
		return nil, env, err
	}
	return plaintext, env, nil
}

// IsEnvelope reports whether data looks like an envelope of any version
func IsEnvelope(data []byte) bool {
	var head struct {
		Version    *string `json:"version"`
		Ciphertext *string `json:"ciphertext"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.Version != nil && head.Ciphertext != nil
}
