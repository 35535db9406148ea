// internal/ingest/rss.go
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newshound/internal/database"
)

const userAgent = "Newshound/0.1"

// newUpstreamClient builds the shared HTTP client used against
// upstream endpoints.
func newUpstreamClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}
}

// RSSAdapter fetches RSS and Atom endpoints.
type RSSAdapter struct {
	logger *log.Logger
	parser *gofeed.Parser
	client *http.Client
}

func NewRSSAdapter(logger *log.Logger) *RSSAdapter {
	return &RSSAdapter{
		logger: logger,
		parser: gofeed.NewParser(),
		client: newUpstreamClient(),
	}
}

func (a *RSSAdapter) Fetch(ctx context.Context, call database.Call) (string, []Draft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, call.BaseURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: creating request: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", userAgent)

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

	// Parse with a size limit (5MB) to avoid huge downloads
	const maxFeedBytes = 5 << 20
	parsed, err := a.parser.Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return "", nil, fmt.Errorf("%w: parsing feed: %v", ErrUpstream, err)
	}
	if parsed == nil {
		return "", nil, fmt.Errorf("%w: empty document", ErrUpstream)
	}

	drafts := make([]Draft, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		drafts = append(drafts, draftFromItem(item))
	}
	return parsed.Title, drafts, nil
}

// draftFromItem is the pure mapping from one parsed feed item to a
// draft. No I/O.
func draftFromItem(item *gofeed.Item) Draft {
	d := Draft{
		Title:       item.Title,
		GUID:        item.GUID,
		Link:        item.Link,
		Content:     item.Description,
		FullContent: item.Content,
	}

	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		d.Creator = item.DublinCoreExt.Creator[0]
	} else if item.Author != nil {
		d.Creator = item.Author.Name
	}

	if item.PublishedParsed != nil {
		d.Published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		d.Published = item.UpdatedParsed
	}

	d.Snippet = snippetFrom(d.Content)
	d.FullSnippet = snippetFrom(d.FullContent)
	return d
}
