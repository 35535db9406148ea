// internal/ingest/service.go
package ingest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"runtime"
	"sync"
	"time"

	"newshound/internal/database"
)

// Service orchestrates the full ingestion pipeline for a user: fetch
// every registered call concurrently, normalize, persist, and link the
// results to the user.
type Service struct {
	db          *database.DB
	logger      *log.Logger
	adapters    map[string]SourceAdapter
	concurrency int

	redditToken     string
	redditUserAgent string
}

func NewService(db *database.DB, logger *log.Logger, redditToken, redditUserAgent string, concurrency int) *Service {
	s := &Service{
		db:              db,
		logger:          logger,
		concurrency:     concurrencyLimit(concurrency),
		redditToken:     redditToken,
		redditUserAgent: redditUserAgent,
	}
	s.adapters = map[string]SourceAdapter{
		"rss":    NewRSSAdapter(logger),
		"reddit": NewRedditAdapter(logger, redditToken, redditUserAgent),
	}
	return s
}

// concurrencyLimit clamps the fan-out width, defaulting to a value
// tuned for an IO-bound workload.
func concurrencyLimit(requested int) int {
	if requested > 0 {
		if requested > 128 {
			return 128
		}
		return requested
	}
	limit := runtime.NumCPU() * 4
	if limit < 4 {
		limit = 4
	}
	if limit > 32 {
		limit = 32
	}
	return limit
}

type callResult struct {
	call     database.Call
	messages []database.UserMessage
	err      error
}

// RunAllCalls fetches every call registered for a user, in parallel,
// and returns the flat list of user messages from the calls that
// succeeded. A failing call is logged and skipped; it never aborts its
// siblings. Output order across calls is not deterministic; within one
// call the upstream item order is preserved.
func (s *Service) RunAllCalls(ctx context.Context, userID int64) ([]database.UserMessage, error) {
	calls, err := s.db.GetCallsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading calls for user %d: %w", userID, err)
	}
	if len(calls) == 0 {
		return nil, nil
	}

	results := make(chan callResult, len(calls))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, call := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(call database.Call) {
			defer wg.Done()
			defer func() { <-sem }()
			messages, err := s.runCall(ctx, call, userID)
			results <- callResult{call: call, messages: messages, err: err}
		}(call)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []database.UserMessage
	for result := range results {
		if result.err != nil {
			s.logger.Printf("Error running call %d (%s): %v",
				result.call.ID, result.call.BaseURL, result.err)
			continue
		}
		all = append(all, result.messages...)
	}
	return all, nil
}

// runCall executes the fetch → normalize → persist → link pipeline for
// one call.
func (s *Service) runCall(ctx context.Context, call database.Call, userID int64) ([]database.UserMessage, error) {
	adapter, ok := s.adapters[call.SourceName]
	if !ok {
		return nil, fmt.Errorf("no adapter for source %q", call.SourceName)
	}

	title, drafts, err := adapter.Fetch(ctx, call)
	if err != nil {
		return nil, err
	}

	if !call.FeedID.Valid {
		s.logger.Printf("Call %d has no feed ID, skipping. Please update the call in the database.", call.ID)
		return nil, nil
	}
	if title == "" {
		s.logger.Printf("Call %d yielded no feed title, skipping. Please update the call in the database.", call.ID)
		return nil, nil
	}

	now := time.Now().UTC()
	messages := make([]database.Message, 0, len(drafts))
	for _, d := range drafts {
		messages = append(messages, Normalize(d, now))
	}

	stored, err := s.db.AddMessages(ctx, call.FeedID.Int64, title, messages)
	if err != nil {
		return nil, fmt.Errorf("persisting messages: %w", err)
	}
	return s.db.AddUserMessages(ctx, stored, userID, call.FeedID.Int64)
}

// RegisterRSSCall validates that a URL parses as a feed, then stores a
// call for it.
func (s *Service) RegisterRSSCall(ctx context.Context, feedURL string, feedID int64) (*database.Call, error) {
	if _, err := ValidateFeedURL(ctx, feedURL); err != nil {
		return nil, err
	}
	return s.db.CreateCall(ctx, feedID, feedURL, "", "", "")
}

// RegisterRedditCall builds the subreddit listing URL, verifies the
// endpoint answers, and stores a call with its serialized parameters.
func (s *Service) RegisterRedditCall(ctx context.Context, subreddit, sort string, params url.Values, feedID int64) (*database.Call, error) {
	if s.redditToken == "" || s.redditUserAgent == "" {
		return nil, fmt.Errorf("%w: reddit token or user agent not set", ErrConfig)
	}
	if subreddit == "" {
		return nil, fmt.Errorf("%w: subreddit is required", database.ErrInvalidInput)
	}
	if sort == "" {
		sort = "hot"
	}

	listingURL := fmt.Sprintf("https://www.reddit.com/r/%s/%s.json", subreddit, sort)
	encoded := params.Encode()

	// Probe the endpoint before anything is stored.
	probe := database.Call{BaseURL: listingURL}
	if encoded != "" {
		probe.RequestParams.String = encoded
		probe.RequestParams.Valid = true
	}
	if _, _, err := s.adapters["reddit"].Fetch(ctx, probe); err != nil {
		return nil, err
	}

	return s.db.CreateCall(ctx, feedID, listingURL, "", encoded, "")
}
