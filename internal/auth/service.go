// internal/auth/service.go
package auth

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionLifetime = 24 * time.Hour

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Register creates a user with a hashed password. Usernames are unique.
func (s *Service) Register(db *sql.DB, username, password, email string) (*User, error) {
	var existing string
	err := db.QueryRow(
		"SELECT username FROM users WHERE username = ?",
		username,
	).Scan(&existing)
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	result, err := db.Exec(
		"INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)",
		username, string(hash), email,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &User{ID: id, Username: username, Email: email}, nil
}

// Authenticate verifies username and password, returning a new session
// if successful.
func (s *Service) Authenticate(db *sql.DB, username, password string) (*Session, error) {
	var user struct {
		id           int64
		passwordHash string
	}

	err := db.QueryRow(
		"SELECT id, password_hash FROM users WHERE username = ?",
		username,
	).Scan(&user.id, &user.passwordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.passwordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.id,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionLifetime),
	}

	_, err = db.Exec(
		"INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// ValidateSession returns the session for an ID if it has not expired.
func (s *Service) ValidateSession(db *sql.DB, sessionID string) (*Session, error) {
	var session Session
	err := db.QueryRow(
		`SELECT id, user_id, created_at, expires_at
		 FROM sessions
		 WHERE id = ?`,
		sessionID,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_, _ = db.Exec("DELETE FROM sessions WHERE id = ?", session.ID)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// InvalidateSession deletes a session.
func (s *Service) InvalidateSession(db *sql.DB, sessionID string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// Verify marks a user's account as verified.
func (s *Service) Verify(db *sql.DB, userID int64) error {
	_, err := db.Exec("UPDATE users SET verified = 1 WHERE id = ?", userID)
	return err
}

// CleanupSessions removes expired sessions.
func (s *Service) CleanupSessions(db *sql.DB) error {
	_, err := db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	return err
}
