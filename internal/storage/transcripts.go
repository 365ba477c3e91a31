// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/util"
)

// DefaultMaxTranscripts bounds the archive when no limit is configured.
const DefaultMaxTranscripts = 200

// MinIDPrefix is the shortest ID prefix Load and Delete accept.
const MinIDPrefix = 4

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound means no transcript matches the ID.
	ErrNotFound = errors.New("transcript not found")

	// ErrAmbiguousID means an ID prefix matches more than one transcript.
	ErrAmbiguousID = errors.New("transcript ID prefix is ambiguous")

	// ErrEmptyTranscript rejects saving a conversation without messages.
	ErrEmptyTranscript = errors.New("nothing to save: the conversation is empty")
)

// =============================================================================
// TYPES
// =============================================================================

// Transcript is an archived conversation.
type Transcript struct {
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []model.Message
}

// TranscriptMeta is what List returns for each transcript.
type TranscriptMeta struct {
	ID           string
	Title        string
	Model        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// FromTimeline builds a transcript from timeline messages. Placeholders
// still awaiting their first fragment are left out.
func FromTimeline(msgs []model.Message, modelName string) *Transcript {
	t := &Transcript{Model: modelName}
	for _, m := range msgs {
		if m.IsAwaitingFirstFragment() {
			continue
		}
		t.Messages = append(t.Messages, m)
	}
	t.Title = titleFor(t.Messages)
	return t
}

// titleFor derives a title from the first user message.
func titleFor(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Sender == model.SenderUser && strings.TrimSpace(m.Text) != "" {
			return util.TruncateWidth(util.FirstLine(m.Text), 60)
		}
	}
	return "New conversation"
}

// =============================================================================
// STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	transcript_id TEXT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	message_id    INTEGER NOT NULL,
	sender        TEXT NOT NULL,
	text          TEXT NOT NULL,
	is_error      INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	PRIMARY KEY (transcript_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at);
`

// Store is the transcript archive. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string

	// MaxTranscripts prunes the oldest transcripts on Save; 0 keeps all.
	MaxTranscripts int
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ARCHIVE_CHMOD_FAILED | path=%s error=%v", path, err)
	}

	return &Store{db: db, path: path, MaxTranscripts: DefaultMaxTranscripts}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes t, replacing any transcript with the same ID, and returns
// its ID. A new ID is assigned when t.ID is empty.
func (s *Store) Save(ctx context.Context, t *Transcript) (string, error) {
	if len(t.Messages) == 0 {
		return "", ErrEmptyTranscript
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Title == "" {
		t.Title = titleFor(t.Messages)
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, title, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, t.Model, t.CreatedAt.UnixMilli(), t.UpdatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE transcript_id = ?", t.ID); err != nil {
		return "", fmt.Errorf("failed to replace messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (transcript_id, seq, message_id, sender, text, is_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range t.Messages {
		if _, err := stmt.ExecContext(ctx, t.ID, i, m.ID, string(m.Sender), m.Text, m.IsError, m.CreatedAt.UnixMilli()); err != nil {
			return "", fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transcript: %w", err)
	}
	log.Printf("ARCHIVE_SAVED | id=%s messages=%d", t.ID, len(t.Messages))

	if err := s.enforceLimit(ctx); err != nil {
		log.Printf("ARCHIVE_PRUNE_FAILED | error=%v", err)
	}
	return t.ID, nil
}

// enforceLimit removes the oldest transcripts beyond MaxTranscripts.
func (s *Store) enforceLimit(ctx context.Context) error {
	if s.MaxTranscripts <= 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM transcripts WHERE id IN (
			SELECT id FROM transcripts
			ORDER BY updated_at DESC, id
			LIMIT -1 OFFSET ?
		)`, s.MaxTranscripts)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("ARCHIVE_PRUNED | removed=%d", n)
	}
	return nil
}

// =============================================================================
// LOAD / LIST / DELETE
// =============================================================================

// resolve maps a full ID or unique prefix to an ID.
func (s *Store) resolve(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if len(id) < MinIDPrefix {
		return "", fmt.Errorf("%w: %q (use at least %d characters)", ErrNotFound, id, MinIDPrefix)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM transcripts WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2",
		id, len(id), id)
	if err != nil {
		return "", fmt.Errorf("failed to look up transcript: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var found string
		if err := rows.Scan(&found); err != nil {
			return "", err
		}
		if found == id {
			return found, nil
		}
		ids = append(ids, found)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// Load returns the transcript with the given ID or unique ID prefix.
func (s *Store) Load(ctx context.Context, id string) (*Transcript, error) {
	id, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	t := &Transcript{ID: id}
	var created, updated int64
	err = s.db.QueryRowContext(ctx,
		"SELECT title, model, created_at, updated_at FROM transcripts WHERE id = ?", id,
	).Scan(&t.Title, &t.Model, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	t.CreatedAt = time.UnixMilli(created)
	t.UpdatedAt = time.UnixMilli(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, sender, text, is_error, created_at
		FROM messages WHERE transcript_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      model.Message
			sender string
			at     int64
		)
		if err := rows.Scan(&m.ID, &sender, &m.Text, &m.IsError, &at); err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		m.Sender = model.Sender(sender)
		m.CreatedAt = time.UnixMilli(at)
		t.Messages = append(t.Messages, m)
	}
	return t, rows.Err()
}

// List returns all transcripts, most recently updated first.
func (s *Store) List(ctx context.Context) ([]TranscriptMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.model, t.created_at, t.updated_at, COUNT(m.seq)
		FROM transcripts t
		LEFT JOIN messages m ON m.transcript_id = t.id
		GROUP BY t.id
		ORDER BY t.updated_at DESC, t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var metas []TranscriptMeta
	for rows.Next() {
		var (
			meta             TranscriptMeta
			created, updated int64
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.Model, &created, &updated, &meta.MessageCount); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.UnixMilli(created)
		meta.UpdatedAt = time.UnixMilli(updated)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Delete removes the transcript with the given ID or unique ID prefix and
// returns the full ID.
func (s *Store) Delete(ctx context.Context, id string) (string, error) {
	id, err := s.resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("failed to delete transcript: %w", err)
	}
	log.Printf("ARCHIVE_DELETED | id=%s", id)
	return id, nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// ShortID is the prefix shown in listings.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatList renders metas as a table.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved transcripts."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 10) + util.PadRight("Saved", 18) + util.PadRight("Messages", 10) + "Title\n")
	for _, m := range metas {
		sb.WriteString(util.PadRight(ShortID(m.ID), 10))
		sb.WriteString(util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 18))
		sb.WriteString(util.PadRight(fmt.Sprintf("%d", m.MessageCount), 10))
		sb.WriteString(util.TruncateWidth(m.Title, 50))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ExportMarkdown renders the transcript as a markdown document.
func (t *Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Title + "\n\n")
	sb.WriteString("- ID: " + t.ID + "\n")
	if t.Model != "" {
		sb.WriteString("- Model: " + t.Model + "\n")
	}
	sb.WriteString("- Saved: " + t.UpdatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, m := range t.Messages {
		label := "**" + m.Sender.DisplayName() + "**"
		if m.IsError {
			label += " (error)"
		}
		sb.WriteString(label + " (" + m.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(m.Text)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}
