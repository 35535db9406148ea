// internal/database/queries.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Error definitions
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrInvalidInput = errors.New("invalid input")
)

// Folder groups a user's feeds.
type Folder struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Source is one of the fixed upstream protocols (rss, reddit).
type Source struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Img  string `json:"img"`
}

// Feed binds one source to one folder for one user.
type Feed struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	FolderID   int64  `json:"folder_id"`
	SourceID   int64  `json:"source_id"`
	SourceName string `json:"source_name"`
	SourceImg  string `json:"source_img"`
	FeedName   string `json:"feed_name"`
}

// Call is a configured upstream fetch target bound to one feed. The
// request fields are opaque strings stored at registration time.
type Call struct {
	ID             int64          `json:"id"`
	FeedID         sql.NullInt64  `json:"-"`
	SourceName     string         `json:"source_name"`
	BaseURL        string         `json:"base_url"`
	RequestBody    sql.NullString `json:"-"`
	RequestParams  sql.NullString `json:"-"`
	RequestHeaders sql.NullString `json:"-"`
}

// Reaction is a fixed reaction kind users can attach to a message.
type Reaction struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Img  string `json:"img"`
}

// Bookmark is a user-named collection of saved messages.
type Bookmark struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// CreateFolder inserts a folder, rejecting duplicate names per user
// before any side effect.
func (db *DB) CreateFolder(ctx context.Context, userID int64, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}

	var existing string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM folders WHERE user_id = ? AND name = ?",
		userID, name,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: folder name %q", ErrDuplicate, name)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		"INSERT INTO folders (user_id, name) VALUES (?, ?)",
		userID, name,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetFolder(ctx, id)
}

// GetFolder returns a folder by ID.
func (db *DB) GetFolder(ctx context.Context, folderID int64) (*Folder, error) {
	var f Folder
	err := db.QueryRowContext(ctx,
		"SELECT id, user_id, name, created_at FROM folders WHERE id = ?",
		folderID,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: folder %d", ErrNotFound, folderID)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFoldersByUser returns all folders belonging to a user.
func (db *DB) GetFoldersByUser(ctx context.Context, userID int64) ([]Folder, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM folders WHERE user_id = ? ORDER BY name",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// RenameFolder updates a folder's name.
func (db *DB) RenameFolder(ctx context.Context, folderID int64, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", ErrInvalidInput)
	}
	result, err := db.ExecContext(ctx,
		"UPDATE folders SET name = ? WHERE id = ?",
		name, folderID,
	)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: folder %d", ErrNotFound, folderID)
	}
	return db.GetFolder(ctx, folderID)
}

// DeleteFolder removes a folder; feeds, calls and user messages cascade.
func (db *DB) DeleteFolder(ctx context.Context, folderID int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", folderID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: folder %d", ErrNotFound, folderID)
	}
	return nil
}

// GetSourceID looks up a source by its name.
func (db *DB) GetSourceID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, "SELECT id FROM sources WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: source %q", ErrNotFound, name)
	}
	return id, err
}

// GetSources returns all known sources.
func (db *DB) GetSources(ctx context.Context) ([]Source, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, COALESCE(img, '') FROM sources ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Img); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// CreateFeed stores a feed and returns it joined with its source info.
func (db *DB) CreateFeed(ctx context.Context, userID, folderID, sourceID int64, feedName string) (*Feed, error) {
	if feedName == "" {
		return nil, fmt.Errorf("%w: feed name is required", ErrInvalidInput)
	}
	result, err := db.ExecContext(ctx,
		"INSERT INTO feeds (user_id, folder_id, source_id, feed_name) VALUES (?, ?, ?, ?)",
		userID, folderID, sourceID, feedName,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetFeed(ctx, id)
}

// GetFeed returns a feed by ID with its source name and image joined in.
func (db *DB) GetFeed(ctx context.Context, feedID int64) (*Feed, error) {
	var f Feed
	err := db.QueryRowContext(ctx,
		`SELECT f.id, f.user_id, f.folder_id, f.source_id, s.name, COALESCE(s.img, ''), f.feed_name
		 FROM feeds f
		 JOIN sources s ON f.source_id = s.id
		 WHERE f.id = ?`,
		feedID,
	).Scan(&f.ID, &f.UserID, &f.FolderID, &f.SourceID, &f.SourceName, &f.SourceImg, &f.FeedName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: feed %d", ErrNotFound, feedID)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFeedsByUser returns all of a user's feeds with source info joined in.
func (db *DB) GetFeedsByUser(ctx context.Context, userID int64) ([]Feed, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT f.id, f.user_id, f.folder_id, f.source_id, s.name, COALESCE(s.img, ''), f.feed_name
		 FROM feeds f
		 JOIN sources s ON f.source_id = s.id
		 WHERE f.user_id = ?
		 ORDER BY f.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeeds(rows)
}

// GetFeedsByFolder returns the feeds placed in one folder.
func (db *DB) GetFeedsByFolder(ctx context.Context, folderID int64) ([]Feed, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT f.id, f.user_id, f.folder_id, f.source_id, s.name, COALESCE(s.img, ''), f.feed_name
		 FROM feeds f
		 JOIN sources s ON f.source_id = s.id
		 WHERE f.folder_id = ?
		 ORDER BY f.id`,
		folderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeeds(rows)
}

func scanFeeds(rows *sql.Rows) ([]Feed, error) {
	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.UserID, &f.FolderID, &f.SourceID, &f.SourceName, &f.SourceImg, &f.FeedName); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// DeleteFeed removes a feed; its call and user messages cascade.
func (db *DB) DeleteFeed(ctx context.Context, feedID int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", feedID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: feed %d", ErrNotFound, feedID)
	}
	return nil
}

// CreateCall stores a call for a feed. The body, params and headers
// arguments may be empty; they are persisted as NULL in that case.
func (db *DB) CreateCall(ctx context.Context, feedID int64, baseURL, body, params, headers string) (*Call, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidInput)
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO calls (feed_id, base_url, request_body, request_params, request_headers)
		 VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))`,
		feedID, baseURL, body, params, headers,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetCall(ctx, id)
}

// GetCall returns a call by ID with its source name joined in.
func (db *DB) GetCall(ctx context.Context, callID int64) (*Call, error) {
	var c Call
	err := db.QueryRowContext(ctx,
		`SELECT c.id, c.feed_id, s.name, c.base_url, c.request_body, c.request_params, c.request_headers
		 FROM calls c
		 JOIN feeds f ON f.id = c.feed_id
		 JOIN sources s ON s.id = f.source_id
		 WHERE c.id = ?`,
		callID,
	).Scan(&c.ID, &c.FeedID, &c.SourceName, &c.BaseURL, &c.RequestBody, &c.RequestParams, &c.RequestHeaders)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: call %d", ErrNotFound, callID)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCallsByUser returns every call registered for a user's feeds,
// joined with the source name so the right adapter can be selected.
func (db *DB) GetCallsByUser(ctx context.Context, userID int64) ([]Call, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.feed_id, s.name, c.base_url, c.request_body, c.request_params, c.request_headers
		 FROM calls c
		 JOIN feeds f ON f.id = c.feed_id
		 JOIN sources s ON s.id = f.source_id
		 WHERE f.user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.FeedID, &c.SourceName, &c.BaseURL, &c.RequestBody, &c.RequestParams, &c.RequestHeaders); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// GetReactions returns the fixed reaction set.
func (db *DB) GetReactions(ctx context.Context) ([]Reaction, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, COALESCE(img, '') FROM reactions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.ID, &r.Name, &r.Img); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}

// CreateBookmark inserts a named bookmark collection for a user.
func (db *DB) CreateBookmark(ctx context.Context, userID int64, name string) (*Bookmark, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bookmark name is required", ErrInvalidInput)
	}
	var existing string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM bookmarks WHERE user_id = ? AND name = ?",
		userID, name,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: bookmark name %q", ErrDuplicate, name)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		"INSERT INTO bookmarks (user_id, name) VALUES (?, ?)",
		userID, name,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Bookmark{ID: id, UserID: userID, Name: name}, nil
}

// GetBookmarksByUser returns a user's bookmark collections.
func (db *DB) GetBookmarksByUser(ctx context.Context, userID int64) ([]Bookmark, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, user_id, name FROM bookmarks WHERE user_id = ? ORDER BY name",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// DeleteBookmark removes a bookmark collection; message references are
// set to NULL by the schema.
func (db *DB) DeleteBookmark(ctx context.Context, bookmarkID int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", bookmarkID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: bookmark %d", ErrNotFound, bookmarkID)
	}
	return nil
}
