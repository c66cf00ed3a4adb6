package marker

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/illarion/lockmark/internal/crypto"
)

const (
	Glyph        = '🔐'   // Opens and closes a marker
	Delim        = '💡'   // Separates the hint from the payload
	CommentToken = "%%" // Wraps a hidden marker on both sides
)

// headerSize is salt ‖ iv ‖ tag at the front of a combined blob
const headerSize = crypto.SaltSize + crypto.IVSize + crypto.TagSize

var (
	ErrNoMarker      = errors.New("no encrypted marker found")
	ErrInvalidMarker = errors.New("invalid marker")
	ErrInvalidBlob   = errors.New("invalid encrypted blob")
	ErrInvalidHint   = errors.New("invalid hint")
)

// Marker is one encrypted span found in text. Start and End are byte
// offsets of the whole marker, comment tokens included.
type Marker struct {
	Hint    *string
	Payload string // base64 combined blob
	Hidden  bool
	Start   int
	End     int
}

// HintText returns the hint or "" when absent
func (m Marker) HintText() string {
	if m.Hint == nil {
		return ""
	}
	return *m.Hint
}

// Combine packs s as salt ‖ iv ‖ tag ‖ ciphertext
func Combine(s *crypto.Sealed) []byte {
	blob := make([]byte, 0, headerSize+len(s.Ciphertext))
	blob = append(blob, s.Salt...)
	blob = append(blob, s.IV...)
	blob = append(blob, s.AuthTag...)
	blob = append(blob, s.Ciphertext...)
	return blob
}

// Split is the inverse of Combine
func Split(blob []byte) (*crypto.Sealed, error) {
	if len(blob) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidBlob, len(blob), headerSize)
	}
	return &crypto.Sealed{
		Salt:       blob[0:16],
		IV:         blob[16:32],
		AuthTag:    blob[32:48],
		Ciphertext: blob[48:],
	}, nil
}

// ValidateHint rejects hints that would break marker parsing
func ValidateHint(hint string) error {
	if strings.ContainsRune(hint, Glyph) || strings.ContainsRune(hint, Delim) {
		return fmt.Errorf("%w: must not contain %c or %c", ErrInvalidHint, Glyph, Delim)
	}
	if strings.ContainsAny(hint, "\r\n") {
		return fmt.Errorf("%w: must be a single line", ErrInvalidHint)
	}
	return nil
}

// Encode encrypts text with password and wraps it in a marker
func Encode(text, password string, hint *string, hidden bool) (string, error) {
	if hint != nil {
		if err := ValidateHint(*hint); err != nil {
			return "", err
		}
	}

	sealed, err := crypto.Seal([]byte(text), []byte(password))
	if err != nil {
		return "", err
	}

	return wrap(base64.StdEncoding.EncodeToString(Combine(sealed)), hint, hidden), nil
}

func wrap(payload string, hint *string, hidden bool) string {
	var b strings.Builder
	if hidden {
		b.WriteString(CommentToken)
	}
	b.WriteRune(Glyph)
	if hint != nil {
		b.WriteString(*hint)
		b.WriteRune(Delim)
	}
	b.WriteString(payload)
	b.WriteRune(Glyph)
	if hidden {
		b.WriteString(CommentToken)
	}
	return b.String()
}

// Decrypt decodes the marker's blob and decrypts it
func Decrypt(m Marker, password string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: payload is not base64", ErrInvalidBlob)
	}

	sealed, err := Split(blob)
	if err != nil {
		return "", err
	}

	plaintext, err := crypto.Open(sealed, []byte(password))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// DecryptText decrypts the first marker found in text
func DecryptText(text, password string) (string, error) {
	m, ok := Parse(text)
	if !ok {
		return "", ErrNoMarker
	}
	return Decrypt(m, password)
}

// Replace substitutes every marker in text by its plaintext. It fails
// without partial output if any marker does not decrypt.
func Replace(text, password string) (string, int, error) {
	return rewrite(text, func(m Marker) (string, error) {
		return Decrypt(m, password)
	})
}

// Rekey re-encrypts every marker in text under newPassword, keeping each
// marker's hint and visibility. Every marker gets a new salt and iv.
func Rekey(text, oldPassword, newPassword string) (string, int, error) {
	return rewrite(text, func(m Marker) (string, error) {
		plaintext, err := Decrypt(m, oldPassword)
		if err != nil {
			return "", err
		}
		return Encode(plaintext, newPassword, m.Hint, m.Hidden)
	})
}

func rewrite(text string, fn func(Marker) (string, error)) (string, int, error) {
	markers := ParseAll(text)
	if len(markers) == 0 {
		return "", 0, ErrNoMarker
	}

	var b strings.Builder
	prev := 0
	for _, m := range markers {
		replacement, err := fn(m)
		if err != nil {
			return "", 0, err
		}
		b.WriteString(text[prev:m.Start])
		b.WriteString(replacement)
		prev = m.End
	}
	b.WriteString(text[prev:])

	return b.String(), len(markers), nil
}

var (
	glyphLen = utf8.RuneLen(Glyph)
	delimLen = utf8.RuneLen(Delim)
)

// Parse returns the first marker in text
func Parse(text string) (Marker, bool) {
	return parseFrom(text, 0)
}

// ParseAll returns every non-overlapping marker in text, in order
func ParseAll(text string) []Marker {
	var markers []Marker
	pos := 0
	for {
		m, ok := parseFrom(text, pos)
		if !ok {
			return markers
		}
		markers = append(markers, m)
		pos = m.End
	}
}

// parseFrom finds the first marker at or after floor. Comment tokens
// before floor belong to an earlier marker.
func parseFrom(text string, floor int) (Marker, bool) {
	pos := floor
	for pos < len(text) {
		idx := strings.IndexRune(text[pos:], Glyph)
		if idx < 0 {
			return Marker{}, false
		}
		open := pos + idx

		m, next, ok := scanBody(text, open+glyphLen)
		if !ok {
			pos = next
			continue
		}

		m.Start = open
		if open-len(CommentToken) >= floor && strings.HasPrefix(text[open-len(CommentToken):], CommentToken) &&
			strings.HasPrefix(text[m.End:], CommentToken) {
			m.Hidden = true
			m.Start -= len(CommentToken)
			m.End += len(CommentToken)
		}
		return m, true
	}
	return Marker{}, false
}

// Scanner states
const (
	stateHead    = iota // hint or payload, not yet known
	statePayload        // after the delimiter, base64 only
)

// scanBody walks the runes after an opening glyph. On success it returns
// the marker with End set past the closing glyph. On failure it returns
// the offset where the search for the next opening glyph resumes.
func scanBody(text string, start int) (Marker, int, bool) {
	state := stateHead
	headIsPayload := true
	payloadStart := start
	var hint *string

	for i := start; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case r == Glyph:
			payload := text[payloadStart:i]
			if payload == "" || (state == stateHead && !headIsPayload) {
				// This glyph may open the next marker
				return Marker{}, i, false
			}
			return Marker{Hint: hint, Payload: payload, End: i + glyphLen}, 0, true

		case r == '\n' || r == '\r':
			return Marker{}, i + size, false

		case state == stateHead && r == Delim:
			h := text[start:i]
			hint = &h
			state = statePayload
			payloadStart = i + delimLen

		case state == statePayload:
			if !isBase64(r) {
				return Marker{}, i, false
			}

		default:
			if !isBase64(r) {
				headIsPayload = false
			}
		}

		i += size
	}

	return Marker{}, len(text), false
}

func isBase64(r rune) bool {
	return (r >= 'A' && r <= 'Z') ||
		(r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		r == '+' || r == '/' || r == '='
}
