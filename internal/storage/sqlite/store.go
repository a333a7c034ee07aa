// Package sqlite provides a SQLite implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platebook/platebook/internal/domain"
	"github.com/platebook/platebook/internal/storage"

	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

// NewMemoryStore creates an in-memory SQLite store.
func NewMemoryStore() (*Store, error) {
	return newStore(":memory:")
}

// NewFileStore creates a file-based SQLite store.
func NewFileStore(path string) (*Store, error) {
	return newStore(path)
}

func newStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.UnavailableError{Err: fmt.Errorf("open database: %w", err)}
	}

	// Each pooled connection to :memory: would get its own database, so the
	// in-memory store must stay on a single connection.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// The sqlite driver opens lazily; force a connection so an unusable
	// database surfaces here rather than on the first photo write.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storage.UnavailableError{Err: fmt.Errorf("ping database: %w", err)}
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, storage.UnavailableError{Err: fmt.Errorf("migrate: %w", err)}
	}

	return store, nil
}

// migrate creates the photo collections if the schema version is behind.
// It runs at most once per version bump and is idempotent.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn in its own transaction. Begin or commit failure is reported
// as a storage.TxError; no partial write is observable after a failure.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.TxError{Op: op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return storage.TxError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return storage.TxError{Op: op, Err: err}
	}
	return nil
}

// State photo methods

func (s *Store) PutStatePhoto(ctx context.Context, code string, image []byte) error {
	return s.inTx(ctx, "put state photo", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO state_photos (state_code, image, updated_at)
			VALUES (?, ?, ?)
		`, code, image, time.Now())
		return err
	})
}

func (s *Store) GetStatePhoto(ctx context.Context, code string) (*domain.StatePhoto, error) {
	var photo domain.StatePhoto
	err := s.db.QueryRowContext(ctx, `
		SELECT state_code, image, updated_at FROM state_photos WHERE state_code = ?
	`, code).Scan(&photo.StateCode, &photo.Image, &photo.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "state_photo", ID: code}
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (s *Store) CountStatesWithPhotos(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM state_photos").Scan(&count)
	return count, err
}

// Gallery methods

func (s *Store) AddGalleryPhoto(ctx context.Context, image []byte) (int64, error) {
	var id int64
	err := s.inTx(ctx, "add gallery photo", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO gallery_photos (image, created_at) VALUES (?, ?)
		`, image, time.Now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetGalleryPhoto(ctx context.Context, id int64) (*domain.GalleryPhoto, error) {
	var photo domain.GalleryPhoto
	err := s.db.QueryRowContext(ctx, `
		SELECT id, image, created_at FROM gallery_photos WHERE id = ?
	`, id).Scan(&photo.ID, &photo.Image, &photo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "gallery_photo", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// DeleteGalleryPhoto removes the photo with the given id. Deleting an id that
// does not exist is a no-op success.
func (s *Store) DeleteGalleryPhoto(ctx context.Context, id int64) error {
	return s.inTx(ctx, "delete gallery photo", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM gallery_photos WHERE id = ?", id)
		return err
	})
}

func (s *Store) ListGalleryPhotos(ctx context.Context) ([]*domain.GalleryPhoto, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, image, created_at FROM gallery_photos ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*domain.GalleryPhoto
	for rows.Next() {
		var photo domain.GalleryPhoto
		if err := rows.Scan(&photo.ID, &photo.Image, &photo.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, &photo)
	}
	return photos, rows.Err()
}

// Settings methods

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound{Resource: "setting", ID: key}
	}
	return value, err
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.inTx(ctx, "set setting", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO settings (key, value, updated_at)
			VALUES (?, ?, ?)
		`, key, value, time.Now())
		return err
	})
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return s.inTx(ctx, "delete setting", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
		return err
	})
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
