// internal/ingest/validation.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
)

var (
	ErrInvalidURL = errors.New("invalid feed URL")
	ErrNotAFeed   = errors.New("URL does not point to a valid feed")
)

// FeedValidationResult summarizes a probed feed for the registration
// response.
type FeedValidationResult struct {
	Title     string `json:"title"`
	FeedType  string `json:"feedType,omitempty"`
	ItemCount int    `json:"itemCount"`
}

// ValidateFeedURL probes a URL and confirms it parses as an RSS/Atom
// document before a call is registered for it.
func ValidateFeedURL(ctx context.Context, feedURL string) (*FeedValidationResult, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: must use HTTP or HTTPS", ErrInvalidURL)
	}
	if err := checkDestination(u.Hostname()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAFeed, err)
	}

	return &FeedValidationResult{
		Title:     feed.Title,
		FeedType:  feed.FeedType,
		ItemCount: len(feed.Items),
	}, nil
}
