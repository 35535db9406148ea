// internal/ingest/normalize.go
package ingest

import (
	"strconv"
	"strings"
	"time"

	"newshound/internal/database"
)

const (
	fallbackAuthor = "No author."
	fallbackTitle  = "No title."

	// Escaped comment sequence some upstreams wrap around self-text
	// bodies. It breaks embedding downstream, so it is removed
	// wherever it appears.
	commentMarker = "&lt;!-- SC_OFF --&gt;"
)

// Normalize completes a draft into a canonical message by applying a
// fixed fallback rule per field. The now argument fills in a missing
// publish date.
func Normalize(d Draft, now time.Time) database.Message {
	var m database.Message

	if d.Creator != "" {
		m.Author = d.Creator
	} else {
		m.Author = fallbackAuthor
	}

	if d.Title != "" {
		m.Title = d.Title
	} else {
		m.Title = fallbackTitle
	}

	if d.Published != nil {
		m.DateCreated = *d.Published
	} else {
		m.DateCreated = now
	}

	if d.GUID != "" {
		if numericGUID(d.GUID) {
			// Some upstreams put an internal numeric ID in the guid
			// instead of a link. Fall back to the explicit link.
			if d.Link != "" {
				m.SourceLink = d.Link
			}
		} else {
			m.SourceLink = d.GUID
		}
	}

	if d.FullContent != "" {
		m.Content = &d.FullContent
	} else if d.Content != "" {
		m.Content = &d.Content
	}

	if d.FullSnippet != "" {
		m.Description = &d.FullSnippet
	} else if d.Snippet != "" {
		m.Description = &d.Snippet
	}

	if m.Content != nil && strings.Contains(*m.Content, commentMarker) {
		cleaned := strings.ReplaceAll(*m.Content, commentMarker, "")
		m.Content = &cleaned
	}

	return m
}

// numericGUID reports whether a guid parses as a plain number rather
// than a URL or identifier string.
func numericGUID(guid string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(guid), 64)
	return err == nil
}
