// internal/ingest/reddit.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"newshound/internal/database"
)

// RedditAdapter fetches subreddit listings from the Reddit JSON API.
// Credentials are injected; the adapter never reads ambient state.
type RedditAdapter struct {
	logger    *log.Logger
	client    *http.Client
	token     string
	userAgent string
}

func NewRedditAdapter(logger *log.Logger, token, userAgent string) *RedditAdapter {
	return &RedditAdapter{
		logger:    logger,
		client:    newUpstreamClient(),
		token:     token,
		userAgent: userAgent,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Author       string  `json:"author"`
	Title        string  `json:"title"`
	CreatedUTC   float64 `json:"created_utc"`
	Permalink    string  `json:"permalink"`
	SelftextHTML string  `json:"selftext_html"`
	Subreddit    string  `json:"subreddit"`
}

func (a *RedditAdapter) Fetch(ctx context.Context, call database.Call) (string, []Draft, error) {
	// Credentials are checked before any request goes out.
	if a.token == "" || a.userAgent == "" {
		return "", nil, fmt.Errorf("%w: reddit token or user agent not set", ErrConfig)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, call.BaseURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: creating request: %v", ErrUpstream, err)
	}
	if call.RequestParams.Valid {
		req.URL.RawQuery = call.RequestParams.String
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Authorization", "Bearer "+a.token)

	if err := checkDestination(req.URL.Hostname()); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", nil, fmt.Errorf("%w: unexpected response status %d", ErrUpstream, resp.StatusCode)
	}

	const maxListingBytes = 5 << 20
	var listing redditListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingBytes)).Decode(&listing); err != nil {
		return "", nil, fmt.Errorf("%w: decoding listing: %v", ErrUpstream, err)
	}

	children := listing.Data.Children
	if len(children) == 0 {
		// No posts means no subreddit name either; the orchestrator
		// skips calls without a usable title.
		return "", nil, nil
	}

	drafts := make([]Draft, 0, len(children))
	for _, child := range children {
		drafts = append(drafts, draftFromPost(child.Data))
	}
	return children[0].Data.Subreddit, drafts, nil
}

// draftFromPost is the pure mapping from one reddit post to a draft.
// No I/O.
func draftFromPost(p redditPost) Draft {
	d := Draft{
		Creator: p.Author,
		Title:   p.Title,
		Content: p.SelftextHTML,
	}
	if p.Permalink != "" {
		permalink := "https://reddit.com" + p.Permalink
		d.GUID = permalink
		d.Link = permalink
	}
	if p.CreatedUTC > 0 {
		t := time.Unix(int64(p.CreatedUTC), 0).UTC()
		d.Published = &t
	}
	return d
}
