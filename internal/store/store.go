// Package store persists per-chat portal credentials in SQLite. Passwords
// are sealed with a secret-derived key before they touch disk; the plain
// text exists only in memory for the duration of a fetch.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no credentials are saved for a chat.
var ErrNotFound = errors.New("no saved credentials for this chat")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	chat_id  INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	password BLOB NOT NULL,
	keyword  TEXT NOT NULL DEFAULT ''
);
`

// Credentials is a saved portal login bound to a Telegram chat.
type Credentials struct {
	ChatID   int64
	Username string
	Password string
	Keyword  string
}

// Store is a SQLite-backed credential store. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	key [32]byte
}

// Open opens (creating if needed) the database at path. sealSecret derives
// the sealing key and must stay stable across restarts or saved passwords
// become unreadable.
func Open(path, sealSecret string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init credential store schema: %w", err)
	}
	return &Store{db: db, key: sha256.Sum256([]byte(sealSecret))}, nil
}

// Save inserts or replaces the credentials for a chat.
func (s *Store) Save(ctx context.Context, creds Credentials) error {
	sealed, err := s.seal(creds.Password)
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, username, password, keyword)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			username = excluded.username,
			password = excluded.password,
			keyword  = excluded.keyword`,
		creds.ChatID, creds.Username, sealed, creds.Keyword,
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// ByChat returns the saved credentials for a chat, with the password
// unsealed. Returns ErrNotFound when the chat never ran /set.
func (s *Store) ByChat(ctx context.Context, chatID int64) (Credentials, error) {
	var (
		creds  Credentials
		sealed []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT chat_id, username, password, keyword FROM users WHERE chat_id = ?`, chatID)
	if err := row.Scan(&creds.ChatID, &creds.Username, &sealed, &creds.Keyword); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	password, err := s.unseal(sealed)
	if err != nil {
		return Credentials{}, fmt.Errorf("unseal password: %w", err)
	}
	creds.Password = password
	return creds, nil
}

// ByKeyword returns the chat's saved credentials only when keyword matches
// the one saved for it, ignoring case. A missing chat and a wrong keyword
// are both ErrNotFound; callers cannot distinguish them, which keeps the
// bot's reply from confirming whether credentials exist.
func (s *Store) ByKeyword(ctx context.Context, chatID int64, keyword string) (Credentials, error) {
	creds, err := s.ByChat(ctx, chatID)
	if err != nil {
		return Credentials{}, err
	}
	if creds.Keyword == "" || !strings.EqualFold(creds.Keyword, keyword) {
		return Credentials{}, ErrNotFound
	}
	return creds, nil
}

// Delete removes the credentials for a chat. Deleting a chat that was
// never saved is not an error.
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// Ping verifies the database connection, for the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// seal encrypts the password with a fresh random nonce prepended to the box.
func (s *Store) seal(password string) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], []byte(password), &nonce, &s.key), nil
}

func (s *Store) unseal(sealed []byte) (string, error) {
	if len(sealed) < 24 {
		return "", errors.New("sealed password too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return "", errors.New("sealed password cannot be opened with the configured secret")
	}
	return string(plain), nil
}
