package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrCacheMiss = errors.New("cache miss")
)

type SQLiteStore struct {
	db *sql.DB

	clockMu sync.Mutex
	lastTS  time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        full_name TEXT NOT NULL,
        date_of_birth DATETIME,
        phone TEXT,
        preferred_language TEXT NOT NULL DEFAULT 'english',
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        session_name TEXT,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, is_active, updated_at);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        content TEXT NOT NULL,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'bot')),
        language TEXT NOT NULL DEFAULT 'english',
        message_type TEXT NOT NULL DEFAULT 'text',
        message_metadata TEXT,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (id),
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at);

    CREATE TABLE IF NOT EXISTS translation_cache (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source_text TEXT NOT NULL,
        source_language TEXT NOT NULL,
        target_language TEXT NOT NULL,
        translated_text TEXT NOT NULL,
        translation_service TEXT,
        created_at DATETIME NOT NULL,
        UNIQUE (source_text, source_language, target_language)
    );

    CREATE TABLE IF NOT EXISTS medical_knowledge (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        category TEXT,
        language TEXT NOT NULL DEFAULT 'english',
        tags TEXT, -- JSON array
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// now returns a UTC timestamp strictly greater than any previously issued by
// this store, so rows inserted back to back keep their order.
func (s *SQLiteStore) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := time.Now().UTC()
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// User methods

const userColumns = "id, email, password_hash, full_name, date_of_birth, phone, preferred_language, is_active, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user  User
		dob   sql.NullTime
		phone sql.NullString
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &dob, &phone,
		&user.PreferredLanguage, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		user.DateOfBirth = &dob.Time
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	user.IsActive = true
	if user.PreferredLanguage == "" {
		user.PreferredLanguage = "english"
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.FullName, user.DateOfBirth, user.Phone,
		user.PreferredLanguage, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, user *User) error {
	user.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET full_name = ?, date_of_birth = ?, phone = ?, preferred_language = ?, updated_at = ? WHERE id = ?",
		user.FullName, user.DateOfBirth, user.Phone, user.PreferredLanguage, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to execute user update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Session methods

const sessionColumns = "id, user_id, session_name, is_active, created_at, updated_at"

func scanSession(row rowScanner, extra ...any) (*ChatSession, error) {
	var (
		session ChatSession
		name    sql.NullString
	)
	dest := append([]any{&session.ID, &session.UserID, &name, &session.IsActive, &session.CreatedAt, &session.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	session.SessionName = name.String
	return &session, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID, name string) (*ChatSession, error) {
	now := s.now()
	session := &ChatSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionName: name,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		session.ID, session.UserID, session.SessionName, session.IsActive, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute session insert: %w", err)
	}
	return session, nil
}

// GetSession returns the session only if it belongs to userID. Soft-deleted
// sessions are still returned.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID, userID string) (*ChatSession, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM chat_sessions WHERE id = ? AND user_id = ?", sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions returns the user's active sessions, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	query := `
        SELECT s.id, s.user_id, s.session_name, s.is_active, s.created_at, s.updated_at,
               (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count
        FROM chat_sessions s
        WHERE s.user_id = ? AND s.is_active = TRUE
        ORDER BY s.updated_at DESC, s.rowid DESC
    `
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var count int
		session, err := scanSession(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		summaries = append(summaries, SessionSummary{ChatSession: *session, MessageCount: count})
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) SoftDeleteSession(ctx context.Context, sessionID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chat_sessions SET is_active = FALSE, updated_at = ? WHERE id = ? AND user_id = ?",
		s.now(), sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute session soft delete: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Message methods

const messageColumns = "id, session_id, user_id, content, sender, language, message_type, message_metadata, created_at"

// CreateMessage inserts msg and bumps the owning session's updated_at.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now()
	if msg.MessageType == "" {
		msg.MessageType = "text"
	}

	var metadata *string
	if len(msg.Metadata) > 0 {
		m := string(msg.Metadata)
		metadata = &m
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin message insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.UserID, msg.Content, msg.Sender, msg.Language, msg.MessageType, metadata, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "UPDATE chat_sessions SET updated_at = ? WHERE id = ?", msg.CreatedAt, msg.SessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			msg      Message
			metadata sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UserID, &msg.Content, &msg.Sender,
			&msg.Language, &msg.MessageType, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetRecentMessages returns the last n messages of a session, newest first.
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, sessionID string, n int) ([]Message, error) {
	return s.queryMessages(ctx, `
        SELECT `+messageColumns+`
        FROM messages
        WHERE session_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `, sessionID, n)
}

// GetSessionMessages returns every message of a session in chronological order.
func (s *SQLiteStore) GetSessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	return s.queryMessages(ctx, `
        SELECT `+messageColumns+`
        FROM messages
        WHERE session_id = ?
        ORDER BY created_at ASC, rowid ASC
    `, sessionID)
}
