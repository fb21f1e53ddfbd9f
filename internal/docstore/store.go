// Package docstore provides the document contract used for staleness
// checks and context lookups.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned for an unknown document id
var ErrNotFound = errors.New("document not found")

// HashSource reports the current content hash of a document
type HashSource interface {
	ContentHash(ctx context.Context, docID string) (string, error)
}

// TextSource returns a slice of a document's text by character offsets
type TextSource interface {
	Text(ctx context.Context, docID string, start, end int) (string, error)
}

// Store is the full document store contract
type Store interface {
	HashSource
	TextSource
}

// HashText returns the hex SHA-256 of a document's text
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// slice cuts text by character (rune) offsets, clamping to the document
func slice(text string, start, end int) string {
	runes := []rune(text)
	start = max(0, min(start, len(runes)))
	end = max(start, min(end, len(runes)))
	return string(runes[start:end])
}
