// Package reporter provides error Reporter implementations that accept video attachments.
package reporter

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"

	"github.com/darkace1998/crash-video-recorder/models"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// StoredAttachment is an attachment copied into the spool.
type StoredAttachment struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id,omitempty"`
	SourcePath  string    `json:"source_path"`
	StoredPath  string    `json:"stored_path"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is a captured crash report with the attachments bound to it.
type Event struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Attachments int       `json:"attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

// Spool is a local Reporter. Attachments are copied into a directory and
// indexed in SQLite; CaptureEvent binds all pending attachments to a new event,
// mirroring a reporter scope that is cleared when an event is sent.
type Spool struct {
	db  *sql.DB
	dir string
	log *utils.ComponentLogger

	mu       sync.Mutex
	disabled bool
}

// NewSpool opens (or creates) the spool database and attachment directory.
func NewSpool(settings models.SpoolSettings) (*Spool, error) {
	if settings.DatabasePath == "" {
		return nil, fmt.Errorf("spool database path is required")
	}
	dir := settings.Directory
	if dir == "" {
		dir = filepath.Join(filepath.Dir(settings.DatabasePath), "attachments")
	}
	if err := utils.EnsureDir(filepath.Dir(settings.DatabasePath)); err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Spool{db: db, dir: dir, log: utils.NewComponentLogger("spool")}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Spool) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		event_id TEXT REFERENCES events(id),
		source_path TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attachments_event_id ON attachments(event_id);
	CREATE INDEX IF NOT EXISTS idx_attachments_created_at ON attachments(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Spool) Close() error {
	return s.db.Close()
}

// IsEnabled reports whether the spool accepts attachments.
func (s *Spool) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled
}

// SetEnabled toggles the spool.
func (s *Spool) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = !enabled
}

// MakeAttachment describes the file at path as an attachment.
func (s *Spool) MakeAttachment(path, filename, contentType string) (*models.Attachment, error) {
	return newAttachment(path, filename, contentType)
}

// AddAttachment copies the file into the spool and records it as pending.
func (s *Spool) AddAttachment(a *models.Attachment) error {
	if a == nil {
		return fmt.Errorf("nil attachment")
	}

	id := uuid.NewString()
	stored := filepath.Join(s.dir, id+"_"+a.Filename)
	size, err := utils.CopyFile(a.Path, stored)
	if err != nil {
		return fmt.Errorf("failed to spool attachment: %w", err)
	}
	sum, err := utils.CalculateFileSHA256(stored)
	if err != nil {
		_ = os.Remove(stored)
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO attachments (
			id, source_path, stored_path, filename, content_type, size, sha256, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, a.Path, stored, a.Filename, a.ContentType, size, sum, time.Now().UTC())
	if err != nil {
		_ = os.Remove(stored)
		return fmt.Errorf("failed to execute insert: %w", err)
	}

	s.log.Info("Attachment spooled", "attachment_id", id, "filename", a.Filename, "size_bytes", size)
	return nil
}

// CaptureEvent records an event and binds every pending attachment to it.
func (s *Spool) CaptureEvent(message string) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO events (id, message, created_at) VALUES (?, ?, ?)`,
		id, message, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	result, err := tx.Exec(`UPDATE attachments SET event_id = ? WHERE event_id IS NULL`, id)
	if err != nil {
		return "", fmt.Errorf("failed to bind attachments: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit event: %w", err)
	}

	bound, _ := result.RowsAffected()
	s.log.Info("Event captured", "event_id", id, "attachments", bound)
	return id, nil
}

// Flush is a no-op for the spool; writes are synchronous.
func (s *Spool) Flush(time.Duration) bool { return true }

// ListAttachments returns spooled attachments, newest first. With pendingOnly
// only attachments not yet bound to an event are returned.
func (s *Spool) ListAttachments(pendingOnly bool) ([]StoredAttachment, error) {
	query := `
		SELECT id, COALESCE(event_id, ''), source_path, stored_path, filename,
			content_type, size, sha256, created_at
		FROM attachments`
	if pendingOnly {
		query += ` WHERE event_id IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredAttachment
	for rows.Next() {
		var a StoredAttachment
		if err := rows.Scan(&a.ID, &a.EventID, &a.SourcePath, &a.StoredPath, &a.Filename,
			&a.ContentType, &a.Size, &a.SHA256, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListEvents returns captured events, newest first.
func (s *Spool) ListEvents() ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT e.id, e.message, e.created_at, COUNT(a.id)
		FROM events e LEFT JOIN attachments a ON a.event_id = e.id
		GROUP BY e.id, e.message, e.created_at
		ORDER BY e.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Message, &e.CreatedAt, &e.Attachments); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func newAttachment(path, filename, contentType string) (*models.Attachment, error) {
	size, err := utils.NonEmptyFileSize(path)
	if err != nil {
		return nil, fmt.Errorf("cannot attach %s: %w", path, err)
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	return &models.Attachment{
		Path:        path,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
	}, nil
}
