// Package feed handles feed downloading, parsing, and entry identity.
package feed

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Item is a parsed feed item with explicit optional fields. Absent fields
// are empty strings, never sentinels.
type Item struct {
	GUID      string
	Link      string
	Title     string
	Published string
	Updated   string
	Summary   string
	Content   []string
}

// Key derives the stable deduplication key for an item.
// Stable identifiers win in priority order (GUID, then link); items with
// neither fall back to a content hash so repeated polls of an unchanged
// item still collide to the same key. Keys are scoped per feed by the
// entries table's unique constraint.
func Key(item Item) string {
	if v := strings.TrimSpace(item.GUID); v != "" {
		return v
	}
	if v := strings.TrimSpace(item.Link); v != "" {
		return v
	}
	raw := item.Title + "|" + item.Published + "|" + item.Updated
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// Text returns the matchable text for an item: title, summary, and every
// content value, non-empty only, newline-joined.
func Text(item Item) string {
	var parts []string
	if strings.TrimSpace(item.Title) != "" {
		parts = append(parts, item.Title)
	}
	if strings.TrimSpace(item.Summary) != "" {
		parts = append(parts, item.Summary)
	}
	for _, c := range item.Content {
		if strings.TrimSpace(c) != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n")
}
