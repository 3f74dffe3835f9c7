package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/ticket-queue/internal/model"
)

// ArchiveMirrorRepo keeps a copy of every archive in a SQL table.  The
// key-value store expires archives after a few weeks; the mirror keeps them
// for as long as the operator wants and serves reads once the key is gone.
type ArchiveMirrorRepo struct {
	db *sql.DB
}

// NewArchiveMirrorRepo returns a mirror bound to the provided database.
func NewArchiveMirrorRepo(db *sql.DB) *ArchiveMirrorRepo { return &ArchiveMirrorRepo{db: db} }

const createArchiveTable = `CREATE TABLE IF NOT EXISTS daily_archives (
    archive_date DATE NOT NULL PRIMARY KEY,
    issued INT NOT NULL,
    called INT NOT NULL,
    payload JSON NOT NULL,
    archived_at DATETIME NOT NULL
)`

// EnsureSchema creates the mirror table when it does not exist.
func (r *ArchiveMirrorRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createArchiveTable)
	return err
}

// Upsert inserts or replaces the archive of its date.
func (r *ArchiveMirrorRepo) Upsert(ctx context.Context, a model.Archive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	archivedAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, a.ArchivedAt); err == nil {
		archivedAt = t.UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO daily_archives (archive_date, issued, called, payload, archived_at) VALUES (?, ?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE issued = VALUES(issued), called = VALUES(called), payload = VALUES(payload), archived_at = VALUES(archived_at)`,
		a.Date, a.Summary.Issued, a.Summary.Called, payload, archivedAt.Format("2006-01-02 15:04:05"))
	return err
}

// Get returns the mirrored archive of date.
func (r *ArchiveMirrorRepo) Get(ctx context.Context, date string) (model.Archive, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM daily_archives WHERE archive_date = ? LIMIT 1`, date).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Archive{}, ErrArchiveNotFound
	}
	if err != nil {
		return model.Archive{}, err
	}
	var a model.Archive
	if err := json.Unmarshal(payload, &a); err != nil {
		return model.Archive{}, fmt.Errorf("decode mirrored archive %s: %w", date, err)
	}
	return a, nil
}
