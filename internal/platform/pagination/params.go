// Package pagination implements the cursor paging shared by every list
// endpoint: an opaque base64 page token wrapping a Firestore start-after
// cursor, plus page size normalisation.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize applies when a caller passes no fallback of its own.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps page sizes when no explicit maximum is given.
	DefaultMaxPageSize = 200
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid page_size")
	ErrInvalidPageToken = errors.New("pagination: invalid page_token")
)

// Cursor is the Firestore start-after payload hidden inside a page token.
// StartAfter values mirror the order-by fields of the query that produced the
// page, so a cursor is only meaningful against the same query shape.
type Cursor struct {
	StartAfter []any `json:"startAfter,omitempty"`
}

// ParsePageSize normalises a raw page_size query value. An empty value falls
// back to the default, zero and negative values are treated the same way, and
// anything above the maximum is clamped rather than rejected.
func ParsePageSize(raw string, fallback, maximum int) (int, error) {
	if maximum <= 0 {
		maximum = DefaultMaxPageSize
	}
	if fallback <= 0 || fallback > maximum {
		fallback = min(DefaultPageSize, maximum)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	switch {
	case size <= 0:
		return fallback, nil
	case size > maximum:
		return maximum, nil
	default:
		return size, nil
	}
}
