// Package ids defines the internal identifier types shared by the wire
// codec, the SES registry, and POD. A hex string and a raw 16-byte blob are
// both just encodings of the same 16 bytes; callers decode at the wire
// boundary and never carry a hex form past that point.
package ids

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// PaneUUID identifies a pane for the life of its shell.
type PaneUUID [16]byte

// SessionID identifies a MUX-chosen session.
type SessionID [16]byte

// NewPaneUUID draws a random v4 UUID for a new pane.
func NewPaneUUID() (PaneUUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return PaneUUID{}, fmt.Errorf("generate pane uuid: %w", err)
	}
	return PaneUUID(id), nil
}

// NewSessionID draws a random v4 UUID for a new session.
func NewSessionID() (SessionID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return SessionID{}, fmt.Errorf("generate session id: %w", err)
	}
	return SessionID(id), nil
}

// String renders 32 lowercase hex characters, the on-wire text form.
func (u PaneUUID) String() string { return hex.EncodeToString(u[:]) }
func (s SessionID) String() string { return hex.EncodeToString(s[:]) }

// IsZero reports whether the identifier is all-zero (unset).
func (u PaneUUID) IsZero() bool { return u == PaneUUID{} }
func (s SessionID) IsZero() bool { return s == SessionID{} }

// ParsePaneUUID decodes 32 hex characters into a PaneUUID.
func ParsePaneUUID(s string) (PaneUUID, error) {
	var u PaneUUID
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, fmt.Errorf("parse pane uuid %q: %w", s, err)
	}
	if len(b) != 16 {
		return u, fmt.Errorf("parse pane uuid %q: want 16 bytes, got %d", s, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// ParseSessionID decodes 32 hex characters into a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	var id SessionID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse session id %q: %w", s, err)
	}
	if len(b) != 16 {
		return id, fmt.Errorf("parse session id %q: want 16 bytes, got %d", s, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// PaneUUIDFromRaw copies 16 raw bytes (the binary wire encoding) into a PaneUUID.
func PaneUUIDFromRaw(b []byte) (PaneUUID, error) {
	var u PaneUUID
	if len(b) != 16 {
		return u, fmt.Errorf("pane uuid raw: want 16 bytes, got %d", len(b))
	}
	copy(u[:], b)
	return u, nil
}

// SessionIDFromRaw copies 16 raw bytes into a SessionID.
func SessionIDFromRaw(b []byte) (SessionID, error) {
	var id SessionID
	if len(b) != 16 {
		return id, fmt.Errorf("session id raw: want 16 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// HasPrefix reports whether the hex form of u starts with the given
// case-insensitive prefix. Used by reattach/targeted-message prefix matching.
func (u PaneUUID) HasPrefix(prefix string) bool {
	return hasHexPrefix(u[:], prefix)
}

func (s SessionID) HasPrefix(prefix string) bool {
	return hasHexPrefix(s[:], prefix)
}

func hasHexPrefix(raw []byte, prefix string) bool {
	full := hex.EncodeToString(raw)
	if len(prefix) > len(full) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if toLowerHexChar(prefix[i]) != full[i] {
			return false
		}
	}
	return true
}

func toLowerHexChar(c byte) byte {
	if c >= 'A' && c <= 'F' {
		return c - 'A' + 'a'
	}
	return c
}
