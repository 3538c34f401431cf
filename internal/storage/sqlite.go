package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"telereader/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	channel_id      TEXT    NOT NULL,
	message_id      INTEGER NOT NULL,
	text            TEXT    NOT NULL DEFAULT '',
	cleaned_text    TEXT    NOT NULL DEFAULT '',
	date            TIMESTAMP NOT NULL,
	edit_date       TIMESTAMP,
	kind            TEXT    NOT NULL DEFAULT 'text',
	reply_to_id     INTEGER NOT NULL DEFAULT 0,
	forward_from_id INTEGER NOT NULL DEFAULT 0,
	sender_id       INTEGER NOT NULL DEFAULT 0,
	sender_username TEXT    NOT NULL DEFAULT '',
	raw             TEXT,
	PRIMARY KEY (channel_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);

CREATE TABLE IF NOT EXISTS backfill_checkpoints (
	channel_id         TEXT PRIMARY KEY,
	last_backfilled_id INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is the embedded alternative to the Mongo backend. Message
// text is optionally encrypted at rest; see encryption.go.
type SQLiteStore struct {
	db        *sql.DB
	encryptor *encryptor
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &SQLiteStore{db: db, encryptor: enc}, nil
}

func (s *SQLiteStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	text, err := s.encryptor.EncryptIfEnabled(msg.Text)
	if err != nil {
		return fmt.Errorf("failed to encrypt text: %w", err)
	}
	cleaned, err := s.encryptor.EncryptIfEnabled(msg.CleanedText)
	if err != nil {
		return fmt.Errorf("failed to encrypt cleaned text: %w", err)
	}

	var raw *string
	if msg.Raw != nil {
		encoded, err := json.Marshal(msg.Raw)
		if err != nil {
			return fmt.Errorf("failed to encode raw payload: %w", err)
		}
		encodedStr := string(encoded)
		raw = &encodedStr
	}

	var editDate *time.Time
	if msg.EditDate != nil {
		d := msg.EditDate.UTC()
		editDate = &d
	}

	query := `
		INSERT INTO messages (
			channel_id, message_id, text, cleaned_text, date, edit_date,
			kind, reply_to_id, forward_from_id, sender_id, sender_username, raw
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, message_id) DO UPDATE SET
			text            = excluded.text,
			cleaned_text    = excluded.cleaned_text,
			date            = excluded.date,
			edit_date       = excluded.edit_date,
			kind            = excluded.kind,
			reply_to_id     = excluded.reply_to_id,
			forward_from_id = excluded.forward_from_id,
			sender_id       = excluded.sender_id,
			sender_username = excluded.sender_username,
			raw             = excluded.raw
	`

	_, err = s.db.ExecContext(ctx, query,
		msg.ChannelID,
		msg.MessageID,
		text,
		cleaned,
		msg.Date.UTC(),
		editDate,
		string(msg.Kind),
		msg.ReplyToID,
		msg.ForwardFromID,
		msg.Author.ID,
		msg.Author.Username,
		raw,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %s/%d: %w", msg.ChannelID, msg.MessageID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, channelID string, messageID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete message %s/%d: %w", channelID, messageID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) GetLatestMessageID(ctx context.Context, channelID string) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(message_id) FROM messages WHERE channel_id = ?`,
		channelID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest message id for %s: %w", channelID, err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, channelID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_backfilled_id FROM backfill_checkpoints WHERE channel_id = ?`,
		channelID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint for %s: %w", channelID, err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	// MAX() keeps the update monotonic under concurrent writers.
	query := `
		INSERT INTO backfill_checkpoints (channel_id, last_backfilled_id)
		VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			last_backfilled_id = MAX(last_backfilled_id, excluded.last_backfilled_id)
	`
	_, err := s.db.ExecContext(ctx, query, channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to update checkpoint for %s: %w", channelID, err)
	}
	return nil
}

// GetMessageText returns the decrypted stored text columns for a
// message. Used by tests and diagnostic tooling.
func (s *SQLiteStore) GetMessageText(ctx context.Context, channelID string, messageID int64) (text, cleaned string, err error) {
	var storedText, storedCleaned string
	err = s.db.QueryRowContext(ctx,
		`SELECT text, cleaned_text FROM messages WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID,
	).Scan(&storedText, &storedCleaned)
	if err != nil {
		return "", "", fmt.Errorf("failed to get message %s/%d: %w", channelID, messageID, err)
	}

	text, err = s.encryptor.DecryptIfEnabled(storedText)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt text: %w", err)
	}
	cleaned, err = s.encryptor.DecryptIfEnabled(storedCleaned)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt cleaned text: %w", err)
	}
	return text, cleaned, nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
