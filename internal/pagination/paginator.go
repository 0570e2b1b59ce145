package pagination

import (
	"strconv"
	"time"

	"github.com/tracelens-io/tracelens/internal/config"
)

const (
	defaultPageSize = 20
	defaultMaxSize  = 100
)

type (
	// Config bounds page sizes for list endpoints.
	Config struct {
		DefaultPageSize int
		MaxPageSize     int
	}

	// Page is one assembled page of items with its navigation cursors.
	// Next and Prev are encoded cursor tokens; empty means no link.
	Page[T any] struct {
		Items []T
		Next  string
		Prev  string
	}

	// KeyFunc extracts the composite ordering key from an item.
	KeyFunc[T any] func(item T) (createdAt time.Time, id string)
)

// LoadConfig loads pagination bounds from environment variables with fallback
// to defaults (20 per page, 100 max).
func LoadConfig() *Config {
	return &Config{
		DefaultPageSize: config.GetEnvInt("TRACELENS_PAGE_SIZE", defaultPageSize),
		MaxPageSize:     config.GetEnvInt("TRACELENS_MAX_PAGE_SIZE", defaultMaxSize),
	}
}

// ClampPageSize parses a raw per-page parameter and clamps it into
// [1, MaxPageSize]. Invalid or out-of-range values fall back to the default
// or the maximum; clamping never errors.
func (c *Config) ClampPageSize(raw string) int {
	if raw == "" {
		return c.DefaultPageSize
	}

	size, err := strconv.Atoi(raw)
	if err != nil || size <= 0 {
		return c.DefaultPageSize
	}

	if size > c.MaxPageSize {
		return c.MaxPageSize
	}

	return size
}

// BuildPage assembles a page from over-fetched rows (up to pageSize+1, as
// returned by the store) and derives the navigation cursors.
//
// For forward travel, rows arrive in display order (created_at DESC, id DESC)
// and the extra row signals a next page. For backward travel, rows arrive in
// scan order (ascending from the cursor position), the extra row signals an
// earlier previous page, and the page is re-reversed into display order so
// item ordering is stable regardless of travel direction.
//
// The presence of a request cursor always yields the opposite-direction link:
// a forward page reached via cursor offers Prev; a backward page always
// offers Next (the page the client came from).
func BuildPage[T any](rows []T, pageSize int, requestCursor *Cursor, key KeyFunc[T]) Page[T] {
	reverse := requestCursor != nil && requestCursor.Reverse

	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}

	if reverse {
		reverseInPlace(rows)
	}

	page := Page[T]{Items: rows}
	if len(rows) == 0 {
		return page
	}

	firstAt, firstID := key(rows[0])
	lastAt, lastID := key(rows[len(rows)-1])

	if reverse {
		page.Next = Cursor{CreatedAt: lastAt, ID: lastID}.Encode()

		if hasMore {
			page.Prev = Cursor{CreatedAt: firstAt, ID: firstID, Reverse: true}.Encode()
		}

		return page
	}

	if hasMore {
		page.Next = Cursor{CreatedAt: lastAt, ID: lastID}.Encode()
	}

	if requestCursor != nil {
		page.Prev = Cursor{CreatedAt: firstAt, ID: firstID, Reverse: true}.Encode()
	}

	return page
}

func reverseInPlace[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
