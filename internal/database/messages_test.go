package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) int64 {
	t.Helper()
	result, err := db.Exec(
		"INSERT INTO users (username, password_hash, email) VALUES (?, 'x', 'test@example.com')",
		username,
	)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get user ID: %v", err)
	}
	return id
}

// createTestFeed wires up the folder/source/feed rows a message needs.
func createTestFeed(t *testing.T, db *DB, userID int64, name string) int64 {
	t.Helper()
	ctx := context.Background()

	folder, err := db.CreateFolder(ctx, userID, "folder-"+name)
	if err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}
	sourceID, err := db.GetSourceID(ctx, "rss")
	if err != nil {
		t.Fatalf("Failed to look up source: %v", err)
	}
	feed, err := db.CreateFeed(ctx, userID, folder.ID, sourceID, name)
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}
	return feed.ID
}

func strPtr(s string) *string { return &s }

func sampleMessages(n int) []Message {
	base := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	msgs := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, Message{
			Author:      fmt.Sprintf("author-%d", i),
			Title:       fmt.Sprintf("title-%d", i),
			Content:     strPtr(fmt.Sprintf("<p>content %d</p>", i)),
			DateCreated: base.Add(time.Duration(i) * time.Hour),
			SourceLink:  fmt.Sprintf("http://example.com/item/%d", i),
		})
	}
	return msgs
}

func TestAddMessagesDeduplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	first, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(3))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d messages, want 3", len(first))
	}
	for i, m := range first {
		if m.ID == 0 {
			t.Errorf("message %d has no ID", i)
		}
		if m.FeedID != feedID {
			t.Errorf("message %d FeedID = %d, want %d", i, m.FeedID, feedID)
		}
		if m.SourceName != "Feed A" {
			t.Errorf("message %d SourceName = %q", i, m.SourceName)
		}
	}

	// Same batch again: same rows come back, nothing new is inserted.
	second, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(3))
	if err != nil {
		t.Fatalf("second AddMessages failed: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("message %d ID changed: %d != %d", i, first[i].ID, second[i].ID)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		t.Fatalf("counting messages: %v", err)
	}
	if count != 3 {
		t.Errorf("messages table has %d rows, want 3", count)
	}
}

func TestAddMessagesScopesDedupToFeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedA := createTestFeed(t, db, userID, "Feed A")
	feedB := createTestFeed(t, db, userID, "Feed B")

	if _, err := db.AddMessages(ctx, feedA, "Feed A", sampleMessages(2)); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	// Identical links under another feed are distinct messages.
	if _, err := db.AddMessages(ctx, feedB, "Feed B", sampleMessages(2)); err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		t.Fatalf("counting messages: %v", err)
	}
	if count != 4 {
		t.Errorf("messages table has %d rows, want 4", count)
	}
}

func TestAddMessagesEmptyLinkFallback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	when := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{Author: "a", Title: "linkless", DateCreated: when}

	first, err := db.AddMessages(ctx, feedID, "Feed A", []Message{msg})
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	second, err := db.AddMessages(ctx, feedID, "Feed A", []Message{msg})
	if err != nil {
		t.Fatalf("second AddMessages failed: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Errorf("linkless message duplicated: %d != %d", first[0].ID, second[0].ID)
	}

	// Same title at a different timestamp is a new message.
	msg.DateCreated = when.Add(time.Hour)
	third, err := db.AddMessages(ctx, feedID, "Feed A", []Message{msg})
	if err != nil {
		t.Fatalf("third AddMessages failed: %v", err)
	}
	if third[0].ID == first[0].ID {
		t.Error("expected a new row for a different timestamp")
	}
}

func TestAddMessagesConcurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(5)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent AddMessages failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		t.Fatalf("counting messages: %v", err)
	}
	if count != 5 {
		t.Errorf("messages table has %d rows, want 5", count)
	}
}

func TestAddUserMessagesPreservesState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	stored, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(2))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	linked, err := db.AddUserMessages(ctx, stored, userID, feedID)
	if err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("got %d user messages, want 2", len(linked))
	}
	if linked[0].Seen || linked[0].Clicks != 0 || linked[0].Notes != "" {
		t.Errorf("fresh user message should carry defaults: %+v", linked[0])
	}

	// Interact with the first message, then re-link the batch.
	target := linked[0].MessageID
	if _, err := db.IncrementClicks(ctx, userID, target); err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if err := db.MarkSeen(ctx, userID, target, true); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if err := db.SetNotes(ctx, userID, target, "read later"); err != nil {
		t.Fatalf("SetNotes failed: %v", err)
	}

	relinked, err := db.AddUserMessages(ctx, stored, userID, feedID)
	if err != nil {
		t.Fatalf("second AddUserMessages failed: %v", err)
	}
	if relinked[0].ID != linked[0].ID {
		t.Errorf("user message row replaced: %d != %d", relinked[0].ID, linked[0].ID)
	}
	if !relinked[0].Seen {
		t.Error("seen flag lost on re-link")
	}
	if relinked[0].Clicks != 1 {
		t.Errorf("Clicks = %d, want 1", relinked[0].Clicks)
	}
	if relinked[0].Notes != "read later" {
		t.Errorf("Notes = %q, want %q", relinked[0].Notes, "read later")
	}
}

func TestUserMessageMutations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	stored, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(1))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if _, err := db.AddUserMessages(ctx, stored, userID, feedID); err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}
	msgID := stored[0].ID

	clicks, err := db.IncrementClicks(ctx, userID, msgID)
	if err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
	clicks, err = db.IncrementClicks(ctx, userID, msgID)
	if err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if clicks != 2 {
		t.Errorf("clicks = %d, want 2", clicks)
	}

	reactions, err := db.GetReactions(ctx)
	if err != nil || len(reactions) == 0 {
		t.Fatalf("GetReactions failed: %v (%d rows)", err, len(reactions))
	}
	if err := db.SetReaction(ctx, userID, msgID, &reactions[0].ID); err != nil {
		t.Fatalf("SetReaction failed: %v", err)
	}
	if err := db.SetReaction(ctx, userID, msgID, nil); err != nil {
		t.Fatalf("clearing reaction failed: %v", err)
	}

	messages, err := db.GetUserMessages(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserMessages failed: %v", err)
	}
	if messages[0].ReactID != nil {
		t.Error("reaction should be cleared")
	}

	// Mutating an unlinked message reports not found.
	if _, err := db.IncrementClicks(ctx, userID, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := db.MarkSeen(ctx, userID, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetUserMessagesOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	stored, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(3))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if _, err := db.AddUserMessages(ctx, stored, userID, feedID); err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}

	// Mark the newest message seen; it should sort after the unseen ones.
	if err := db.MarkSeen(ctx, userID, stored[2].ID, true); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	messages, err := db.GetUserMessages(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	want := []string{"title-1", "title-0", "title-2"}
	for i, title := range want {
		if messages[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, messages[i].Title, title)
		}
	}
}

func TestGetNews(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	otherID := createTestUser(t, db, "bob")
	feedID := createTestFeed(t, db, userID, "Feed A")
	otherFeed := createTestFeed(t, db, otherID, "Feed B")

	stored, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(2))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if _, err := db.AddUserMessages(ctx, stored, userID, feedID); err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}
	otherStored, err := db.AddMessages(ctx, otherFeed, "Feed B", sampleMessages(1))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if _, err := db.AddUserMessages(ctx, otherStored, otherID, otherFeed); err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}

	news, err := db.GetNews(ctx, userID)
	if err != nil {
		t.Fatalf("GetNews failed: %v", err)
	}
	if len(news.Folders) != 1 {
		t.Errorf("got %d folders, want 1", len(news.Folders))
	}
	if len(news.Feeds) != 1 {
		t.Errorf("got %d feeds, want 1", len(news.Feeds))
	}
	if len(news.Messages) != 2 {
		t.Errorf("got %d messages, want 2", len(news.Messages))
	}
	if len(news.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(news.Sources))
	}
	if len(news.Reactions) != 4 {
		t.Errorf("got %d reactions, want 4", len(news.Reactions))
	}
}

func TestGetMetrics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := createTestUser(t, db, "alice")
	feedID := createTestFeed(t, db, userID, "Feed A")

	stored, err := db.AddMessages(ctx, feedID, "Feed A", sampleMessages(3))
	if err != nil {
		t.Fatalf("AddMessages failed: %v", err)
	}
	if _, err := db.AddUserMessages(ctx, stored, userID, feedID); err != nil {
		t.Fatalf("AddUserMessages failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := db.IncrementClicks(ctx, userID, stored[0].ID); err != nil {
			t.Fatalf("IncrementClicks failed: %v", err)
		}
	}
	if _, err := db.IncrementClicks(ctx, userID, stored[1].ID); err != nil {
		t.Fatalf("IncrementClicks failed: %v", err)
	}
	if err := db.MarkSeen(ctx, userID, stored[0].ID, true); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	reactions, err := db.GetReactions(ctx)
	if err != nil {
		t.Fatalf("GetReactions failed: %v", err)
	}
	if err := db.SetReaction(ctx, userID, stored[0].ID, &reactions[0].ID); err != nil {
		t.Fatalf("SetReaction failed: %v", err)
	}
	if err := db.SetReaction(ctx, userID, stored[1].ID, &reactions[0].ID); err != nil {
		t.Fatalf("SetReaction failed: %v", err)
	}

	m, err := db.GetMetrics(ctx, userID)
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}
	if m.TotalClicks != 4 {
		t.Errorf("TotalClicks = %d, want 4", m.TotalClicks)
	}
	if len(m.Clicks) != 1 || m.Clicks[0].FeedName != "Feed A" || m.Clicks[0].Clicks != 4 {
		t.Errorf("per-feed clicks = %+v", m.Clicks)
	}
	if len(m.Reactions) != 1 || m.Reactions[0].Count != 2 {
		t.Errorf("reactions = %+v", m.Reactions)
	}
	if m.SeenMessages != 1 {
		t.Errorf("SeenMessages = %d, want 1", m.SeenMessages)
	}
}
