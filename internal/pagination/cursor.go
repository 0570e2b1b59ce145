// Package pagination provides keyset (cursor) pagination over the composite
// order (created_at DESC, id DESC).
//
// Cursors are opaque, self-contained tokens derived from the boundary row of
// a page; no server-side state is retained between pages, and any page at any
// depth costs the same as the first. Exact totals are never computed.
package pagination

import (
	"encoding/base64"
	"strings"
	"time"
)

const (
	directionForward  = "f"
	directionBackward = "r"

	minCursorParts = 2
	maxCursorParts = 3
)

// Cursor encodes a resume position under the composite order: the boundary
// row's ordering-key value, its uniqueness tiebreak, and the direction of
// travel.
type Cursor struct {
	CreatedAt time.Time
	ID        string
	// Reverse is true for backward (previous-page) navigation.
	Reverse bool
}

// Encode serializes the cursor to an opaque token: base64 over
// "<RFC3339Nano>|<id>|<direction>". The encoding round-trips losslessly for
// timestamps at database precision.
func (c Cursor) Encode() string {
	direction := directionForward
	if c.Reverse {
		direction = directionBackward
	}

	data := c.CreatedAt.Format(time.RFC3339Nano) + "|" + c.ID + "|" + direction

	return base64.StdEncoding.EncodeToString([]byte(data))
}

// DecodeCursor parses an opaque cursor token.
//
// A malformed token must never fail the request: any decode error yields
// (zero, false), which callers treat as "no cursor" (first page).
func DecodeCursor(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}

	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}

	parts := strings.Split(string(data), "|")
	if len(parts) < minCursorParts || len(parts) > maxCursorParts {
		return Cursor{}, false
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, false
	}

	if parts[1] == "" {
		return Cursor{}, false
	}

	cursor := Cursor{CreatedAt: createdAt, ID: parts[1]}

	if len(parts) == maxCursorParts && parts[2] == directionBackward {
		cursor.Reverse = true
	}

	return cursor, true
}
