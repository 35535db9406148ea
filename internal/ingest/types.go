// internal/ingest/types.go
package ingest

import (
	"context"
	"errors"
	"time"

	"newshound/internal/database"
)

var (
	// ErrConfig marks a call that cannot run because required
	// credentials or environment are missing. Surfaced to clients as
	// a fixable request error.
	ErrConfig = errors.New("missing source configuration")

	// ErrUpstream marks a network failure or malformed payload from
	// one upstream endpoint. Isolated per call inside the
	// orchestrator.
	ErrUpstream = errors.New("upstream fetch failed")
)

// Draft is a partially populated message produced by a source adapter.
// An empty string means the upstream field was absent.
type Draft struct {
	Creator     string
	Title       string
	Published   *time.Time
	GUID        string
	Link        string
	Content     string // plain body (RSS description, reddit selftext html)
	FullContent string // rich body (content:encoded)
	Snippet     string // plain-text form of Content
	FullSnippet string // plain-text form of FullContent
}

// SourceAdapter fetches one call's upstream endpoint and converts each
// raw item into a draft. Implementations exist per source kind and are
// selected by the call's source name.
type SourceAdapter interface {
	Fetch(ctx context.Context, call database.Call) (title string, drafts []Draft, err error)
}
