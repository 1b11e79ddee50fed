package domain

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cursorVersion = "v1"

var ErrInvalidCursor = errors.New("invalid cursor")

// RepositoryCursor is the keyset position after the last row of a page.
type RepositoryCursor struct {
	Relevance int
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorFor returns the cursor positioned at row.
func CursorFor(row RankedRepository) RepositoryCursor {
	return RepositoryCursor{Relevance: row.Relevance, CreatedAt: row.CreatedAt, ID: row.ID}
}

// Encode returns the opaque, URL-safe form of c.
func (c RepositoryCursor) Encode() string {
	raw := strings.Join([]string{
		cursorVersion,
		strconv.Itoa(c.Relevance),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.ID.String(),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeRepositoryCursor parses a cursor produced by Encode.
func DecodeRepositoryCursor(s string) (*RepositoryCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 || parts[0] != cursorVersion {
		return nil, ErrInvalidCursor
	}

	rel, err := strconv.Atoi(parts[1])
	if err != nil || rel < 0 {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := uuid.Parse(parts[3])
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &RepositoryCursor{Relevance: rel, CreatedAt: createdAt, ID: id}, nil
}
