package auth

import (
	"path/filepath"
	"testing"
	"time"

	"newshound/internal/database"
)

func setupTest(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "auth_test.db"), database.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(), db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s, db := setupTest(t)

	user, err := s.Register(db.DB, "alice", "s3cret", "alice@example.com")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}

	// The stored hash is never the plain password.
	var hash string
	if err := db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&hash); err != nil {
		t.Fatalf("reading hash: %v", err)
	}
	if hash == "s3cret" {
		t.Error("password stored in plain text")
	}

	if _, err := s.Register(db.DB, "alice", "other", "alice@example.com"); err != ErrDuplicateUsername {
		t.Errorf("error = %v, want ErrDuplicateUsername", err)
	}

	session, err := s.Authenticate(db.DB, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("session UserID = %d, want %d", session.UserID, user.ID)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session already expired")
	}

	if _, err := s.Authenticate(db.DB, "alice", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate(db.DB, "nobody", "s3cret"); err != ErrInvalidCredentials {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, db := setupTest(t)

	if _, err := s.Register(db.DB, "alice", "s3cret", "alice@example.com"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	session, err := s.Authenticate(db.DB, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	got, err := s.ValidateSession(db.DB, session.ID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if got.UserID != session.UserID {
		t.Errorf("UserID = %d, want %d", got.UserID, session.UserID)
	}

	if _, err := s.ValidateSession(db.DB, "no-such-session"); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}

	if err := s.InvalidateSession(db.DB, session.ID); err != nil {
		t.Fatalf("InvalidateSession failed: %v", err)
	}
	if _, err := s.ValidateSession(db.DB, session.ID); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSession(t *testing.T) {
	s, db := setupTest(t)

	if _, err := s.Register(db.DB, "alice", "s3cret", "alice@example.com"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	session, err := s.Authenticate(db.DB, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	// Force the session into the past.
	if _, err := db.Exec(
		"UPDATE sessions SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), session.ID,
	); err != nil {
		t.Fatalf("updating session: %v", err)
	}

	if _, err := s.ValidateSession(db.DB, session.ID); err != ErrSessionExpired {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}

	// The expired row is removed on access.
	if _, err := s.ValidateSession(db.DB, session.ID); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestCleanupSessions(t *testing.T) {
	s, db := setupTest(t)

	if _, err := s.Register(db.DB, "alice", "s3cret", "alice@example.com"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	live, err := s.Authenticate(db.DB, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	stale, err := s.Authenticate(db.DB, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := db.Exec(
		"UPDATE sessions SET expires_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), stale.ID,
	); err != nil {
		t.Fatalf("updating session: %v", err)
	}

	if err := s.CleanupSessions(db.DB); err != nil {
		t.Fatalf("CleanupSessions failed: %v", err)
	}

	if _, err := s.ValidateSession(db.DB, live.ID); err != nil {
		t.Errorf("live session lost: %v", err)
	}
	if _, err := s.ValidateSession(db.DB, stale.ID); err != ErrSessionNotFound {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}
