// internal/database/messages.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message is a canonical, deduplicated record of one upstream item.
// Rows are never updated after insert, even if upstream content changes.
type Message struct {
	ID          int64     `json:"id"`
	FeedID      int64     `json:"feed_id"`
	SourceName  string    `json:"source_name"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Content     *string   `json:"content"`
	Description *string   `json:"description"`
	DateCreated time.Time `json:"date_created"`
	SourceLink  string    `json:"source_link"`
}

// UserMessage is the per-user interaction state for one canonical
// message, joined with the message fields for client consumption.
type UserMessage struct {
	ID          int64     `json:"id"`
	MessageID   int64     `json:"message_id"`
	FeedID      int64     `json:"feed_id"`
	Notes       string    `json:"notes"`
	Clicks      int       `json:"clicks"`
	ReactID     *int64    `json:"react_id"`
	BookmarkID  *int64    `json:"bookmark_id"`
	Seen        bool      `json:"seen"`
	SourceName  string    `json:"source_name"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Content     *string   `json:"content"`
	Description *string   `json:"description"`
	DateCreated time.Time `json:"date_created"`
	SourceLink  string    `json:"source_link"`
}

// News is the aggregate payload a client needs to render everything a
// user subscribes to.
type News struct {
	Folders   []Folder      `json:"folders"`
	Feeds     []Feed        `json:"feeds"`
	Messages  []UserMessage `json:"messages"`
	Reactions []Reaction    `json:"reactions"`
	Sources   []Source      `json:"sources"`
	Bookmarks []Bookmark    `json:"bookmarks"`
}

// formatTimestamp formats a time for database storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// AddMessages persists a batch of normalized messages for a feed,
// inserting only previously-unseen ones. Each returned message carries
// its stable identifier, existing rows untouched; order matches the
// input. Dedup is enforced by a unique index on (feed_id, source_link)
// for non-empty links; empty links fall back to a lookup on
// (feed_id, title, date_created).
func (db *DB) AddMessages(ctx context.Context, feedID int64, sourceName string, msgs []Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (feed_id, source_name, author, title, content, description, date_created, source_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, source_link) WHERE source_link != '' DO NOTHING`)
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		m.FeedID = feedID
		m.SourceName = sourceName

		if m.SourceLink == "" {
			// No natural key; match on title and timestamp instead.
			existing, err := getMessageByTitleDate(ctx, tx, feedID, m.Title, m.DateCreated)
			if err == nil {
				out = append(out, *existing)
				continue
			}
			if err != sql.ErrNoRows {
				return nil, err
			}
		}

		if _, err := insert.ExecContext(ctx,
			m.FeedID, m.SourceName, m.Author, m.Title, m.Content, m.Description,
			formatTimestamp(m.DateCreated), m.SourceLink,
		); err != nil {
			return nil, fmt.Errorf("inserting message %q: %w", m.Title, err)
		}

		var stored *Message
		if m.SourceLink != "" {
			stored, err = getMessageByLink(ctx, tx, feedID, m.SourceLink)
		} else {
			stored, err = getMessageByTitleDate(ctx, tx, feedID, m.Title, m.DateCreated)
		}
		if err != nil {
			return nil, fmt.Errorf("reading back message %q: %w", m.Title, err)
		}
		out = append(out, *stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func getMessageByLink(ctx context.Context, tx *sql.Tx, feedID int64, link string) (*Message, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, feed_id, source_name, author, title, content, description, date_created, source_link
		 FROM messages WHERE feed_id = ? AND source_link = ?`,
		feedID, link,
	)
	return scanMessage(row)
}

func getMessageByTitleDate(ctx context.Context, tx *sql.Tx, feedID int64, title string, date time.Time) (*Message, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, feed_id, source_name, author, title, content, description, date_created, source_link
		 FROM messages WHERE feed_id = ? AND source_link = '' AND title = ? AND date_created = ?`,
		feedID, title, formatTimestamp(date),
	)
	return scanMessage(row)
}

func scanMessage(row *sql.Row) (*Message, error) {
	var m Message
	var content, description sql.NullString
	err := row.Scan(&m.ID, &m.FeedID, &m.SourceName, &m.Author, &m.Title,
		&content, &description, &m.DateCreated, &m.SourceLink)
	if err != nil {
		return nil, err
	}
	if content.Valid {
		m.Content = &content.String
	}
	if description.Valid {
		m.Description = &description.String
	}
	return &m, nil
}

// AddUserMessages ensures a user message row exists for each canonical
// message delivered to a user via a feed. Existing rows keep their
// notes, clicks, reaction, bookmark and seen state unchanged. The
// returned slice matches the input order.
func (db *DB) AddUserMessages(ctx context.Context, msgs []Message, userID, feedID int64) ([]UserMessage, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO user_messages (user_id, message_id, feed_id)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, message_id) DO NOTHING`)
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	out := make([]UserMessage, 0, len(msgs))
	for _, m := range msgs {
		if _, err := insert.ExecContext(ctx, userID, m.ID, feedID); err != nil {
			return nil, fmt.Errorf("linking message %d to user %d: %w", m.ID, userID, err)
		}

		row := tx.QueryRowContext(ctx, userMessageSelect+" WHERE um.user_id = ? AND um.message_id = ?", userID, m.ID)
		um, err := scanUserMessageRow(row)
		if err != nil {
			return nil, fmt.Errorf("reading back user message for message %d: %w", m.ID, err)
		}
		out = append(out, *um)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

const userMessageSelect = `
	SELECT um.id, um.message_id, um.feed_id, um.notes, um.clicks, um.react_id, um.bookmark_id, um.seen,
	       m.source_name, m.author, m.title, m.content, m.description, m.date_created, m.source_link
	FROM user_messages um
	JOIN messages m ON um.message_id = m.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserMessageRow(row rowScanner) (*UserMessage, error) {
	var um UserMessage
	var reactID, bookmarkID sql.NullInt64
	var content, description sql.NullString
	err := row.Scan(&um.ID, &um.MessageID, &um.FeedID, &um.Notes, &um.Clicks, &reactID, &bookmarkID, &um.Seen,
		&um.SourceName, &um.Author, &um.Title, &content, &description, &um.DateCreated, &um.SourceLink)
	if err != nil {
		return nil, err
	}
	if reactID.Valid {
		um.ReactID = &reactID.Int64
	}
	if bookmarkID.Valid {
		um.BookmarkID = &bookmarkID.Int64
	}
	if content.Valid {
		um.Content = &content.String
	}
	if description.Valid {
		um.Description = &description.String
	}
	return &um, nil
}

// GetUserMessages returns every message delivered to a user, unseen
// first, newest first within each group.
func (db *DB) GetUserMessages(ctx context.Context, userID int64) ([]UserMessage, error) {
	rows, err := db.QueryContext(ctx,
		userMessageSelect+" WHERE um.user_id = ? ORDER BY um.seen ASC, m.date_created DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserMessages(rows)
}

// GetUserMessagesByFeed returns the messages delivered to a user via
// one feed, newest first.
func (db *DB) GetUserMessagesByFeed(ctx context.Context, userID, feedID int64) ([]UserMessage, error) {
	rows, err := db.QueryContext(ctx,
		userMessageSelect+" WHERE um.user_id = ? AND um.feed_id = ? ORDER BY m.date_created DESC",
		userID, feedID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserMessages(rows)
}

// GetBookmarkedUserMessages returns the user's messages attached to any
// bookmark collection, newest first.
func (db *DB) GetBookmarkedUserMessages(ctx context.Context, userID int64) ([]UserMessage, error) {
	rows, err := db.QueryContext(ctx,
		userMessageSelect+" WHERE um.user_id = ? AND um.bookmark_id IS NOT NULL ORDER BY m.date_created DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserMessages(rows)
}

func scanUserMessages(rows *sql.Rows) ([]UserMessage, error) {
	var out []UserMessage
	for rows.Next() {
		um, err := scanUserMessageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *um)
	}
	return out, rows.Err()
}

// IncrementClicks bumps the click counter for a user's message and
// returns the new count.
func (db *DB) IncrementClicks(ctx context.Context, userID, messageID int64) (int, error) {
	result, err := db.ExecContext(ctx,
		"UPDATE user_messages SET clicks = clicks + 1 WHERE user_id = ? AND message_id = ?",
		userID, messageID,
	)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, fmt.Errorf("%w: user message for message %d", ErrNotFound, messageID)
	}

	var clicks int
	err = db.QueryRowContext(ctx,
		"SELECT clicks FROM user_messages WHERE user_id = ? AND message_id = ?",
		userID, messageID,
	).Scan(&clicks)
	return clicks, err
}

// SetReaction attaches a reaction to a user's message; nil clears it.
func (db *DB) SetReaction(ctx context.Context, userID, messageID int64, reactID *int64) error {
	return db.updateUserMessage(ctx, "react_id", userID, messageID, reactID)
}

// SetBookmark attaches a user's message to a bookmark collection; nil
// detaches it.
func (db *DB) SetBookmark(ctx context.Context, userID, messageID int64, bookmarkID *int64) error {
	return db.updateUserMessage(ctx, "bookmark_id", userID, messageID, bookmarkID)
}

// SetNotes replaces the notes on a user's message.
func (db *DB) SetNotes(ctx context.Context, userID, messageID int64, notes string) error {
	return db.updateUserMessage(ctx, "notes", userID, messageID, notes)
}

// MarkSeen sets the seen flag on a user's message.
func (db *DB) MarkSeen(ctx context.Context, userID, messageID int64, seen bool) error {
	return db.updateUserMessage(ctx, "seen", userID, messageID, seen)
}

func (db *DB) updateUserMessage(ctx context.Context, column string, userID, messageID int64, value any) error {
	result, err := db.ExecContext(ctx,
		fmt.Sprintf("UPDATE user_messages SET %s = ? WHERE user_id = ? AND message_id = ?", column),
		value, userID, messageID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: user message for message %d", ErrNotFound, messageID)
	}
	return nil
}

// GetNews assembles the full aggregate payload for a user.
func (db *DB) GetNews(ctx context.Context, userID int64) (*News, error) {
	folders, err := db.GetFoldersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading folders: %w", err)
	}
	feeds, err := db.GetFeedsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading feeds: %w", err)
	}
	messages, err := db.GetUserMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	reactions, err := db.GetReactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reactions: %w", err)
	}
	sources, err := db.GetSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	bookmarks, err := db.GetBookmarksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading bookmarks: %w", err)
	}

	return &News{
		Folders:   folders,
		Feeds:     feeds,
		Messages:  messages,
		Reactions: reactions,
		Sources:   sources,
		Bookmarks: bookmarks,
	}, nil
}

// FeedClicks is the click total for one feed.
type FeedClicks struct {
	FeedName string `json:"feed_name"`
	Clicks   int64  `json:"clicks"`
}

// FeedReactions counts one reaction kind within one feed.
type FeedReactions struct {
	FeedName  string `json:"feed_name"`
	ReactName string `json:"react_name"`
	Count     int64  `json:"count"`
}

// Metrics summarizes a user's interaction history.
type Metrics struct {
	TotalClicks  int64           `json:"total_clicks"`
	Clicks       []FeedClicks    `json:"clicks"`
	Reactions    []FeedReactions `json:"reactions"`
	SeenMessages int64           `json:"seen_messages"`
}

// GetMetrics computes per-feed click and reaction totals plus the seen
// message count for a user.
func (db *DB) GetMetrics(ctx context.Context, userID int64) (*Metrics, error) {
	m := &Metrics{}

	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(clicks), 0) FROM user_messages WHERE user_id = ?",
		userID,
	).Scan(&m.TotalClicks)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT f.feed_name, SUM(um.clicks)
		 FROM user_messages um
		 JOIN feeds f ON f.id = um.feed_id
		 WHERE um.user_id = ?
		 GROUP BY f.feed_name
		 ORDER BY f.feed_name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var fc FeedClicks
		if err := rows.Scan(&fc.FeedName, &fc.Clicks); err != nil {
			return nil, err
		}
		m.Clicks = append(m.Clicks, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reactRows, err := db.QueryContext(ctx,
		`SELECT f.feed_name, r.name, COUNT(*)
		 FROM user_messages um
		 JOIN feeds f ON f.id = um.feed_id
		 JOIN reactions r ON r.id = um.react_id
		 WHERE um.user_id = ?
		 GROUP BY f.feed_name, r.name
		 ORDER BY f.feed_name, r.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer reactRows.Close()
	for reactRows.Next() {
		var fr FeedReactions
		if err := reactRows.Scan(&fr.FeedName, &fr.ReactName, &fr.Count); err != nil {
			return nil, err
		}
		m.Reactions = append(m.Reactions, fr)
	}
	if err := reactRows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_messages WHERE user_id = ? AND seen = 1",
		userID,
	).Scan(&m.SeenMessages)
	if err != nil {
		return nil, err
	}

	return m, nil
}
