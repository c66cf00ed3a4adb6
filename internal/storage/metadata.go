package storage

import (
	"time"
)

// Kind tells how a file carries its encrypted content
type Kind string

const (
	KindEnvelope Kind = "envelope" // The whole file is an envelope
	KindInline   Kind = "inline"   // Markers embedded in plain text
)

// Entry describes a protected file. It holds no secrets, so status and
// hint lookups work without a password.
type Entry struct {
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	Hint      *string   `json:"hint,omitempty"`
	Version   string    `json:"version,omitempty"`
	Markers   int       `json:"markers,omitempty"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modTime"`
	Hash      string    `json:"hash"`
	Plaintext string    `json:"plaintext,omitempty"` // Decrypted sibling, if one was written
}

// HintText returns the hint or "" when absent
func (e *Entry) HintText() string {
	if e.Hint == nil {
		return ""
	}
	return *e.Hint
}
