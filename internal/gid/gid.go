// Package gid implements the 16-byte entity identifier shared by
// participants, readers and writers discovered on the native middleware
// side.
package gid

import (
	"encoding/hex"
	"fmt"
)

// Gid is a raw 16-byte identity. The zero value is not a valid Gid for any
// real entity; use NotDiscovered as the sentinel for "not yet resolved".
type Gid [16]byte

// NotDiscovered marks a slot awaiting resolution (an all-ones sentinel).
var NotDiscovered = Gid{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// IsDiscovered reports whether g is a real, resolved identity.
func (g Gid) IsDiscovered() bool {
	return g != NotDiscovered
}

// String renders g as lowercase hex, matching the native middleware's
// conventional Gid display form.
func (g Gid) String() string {
	return hex.EncodeToString(g[:])
}

// Less provides a total order over Gids, used when admin views need stable
// iteration order over Gid-keyed collections.
func (g Gid) Less(other Gid) bool {
	for i := range g {
		if g[i] != other[i] {
			return g[i] < other[i]
		}
	}
	return false
}

// Parse decodes a lowercase (or uppercase) hex string into a Gid.
func Parse(s string) (Gid, error) {
	var g Gid
	b, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("gid: invalid hex %q: %w", s, err)
	}
	if len(b) != len(g) {
		return g, fmt.Errorf("gid: expected %d bytes, got %d", len(g), len(b))
	}
	copy(g[:], b)
	return g, nil
}
