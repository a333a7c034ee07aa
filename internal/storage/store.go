// Package storage provides storage abstractions for the plate tracking system.
package storage

import (
	"context"

	"github.com/platebook/platebook/internal/domain"
)

// Store is the interface for persistent photo storage. The two photo
// collections are independent; every mutating method commits in its own
// transaction scoped to the single collection it touches.
type Store interface {
	// State photos (one per state code, overwrite on re-put)
	PutStatePhoto(ctx context.Context, code string, image []byte) error
	GetStatePhoto(ctx context.Context, code string) (*domain.StatePhoto, error)
	CountStatesWithPhotos(ctx context.Context) (int, error)

	// Gallery photos (append-only ids, delete by id)
	AddGalleryPhoto(ctx context.Context, image []byte) (int64, error)
	GetGalleryPhoto(ctx context.Context, id int64) (*domain.GalleryPhoto, error)
	DeleteGalleryPhoto(ctx context.Context, id int64) error
	ListGalleryPhotos(ctx context.Context) ([]*domain.GalleryPhoto, error)

	// Settings (small key/value preferences, e.g. the share code)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// ShareCodeKey is the fixed settings key holding the relay share code.
// Absence of this setting suppresses relaying entirely.
const ShareCodeKey = "share_code"

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}

// UnavailableError is returned when the persistence layer itself cannot be
// opened or migrated. This is fatal: no store operation can succeed after it.
type UnavailableError struct {
	Err error
}

func (e UnavailableError) Error() string {
	return "store unavailable: " + e.Err.Error()
}

func (e UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable checks if an error is a store availability error.
func IsUnavailable(err error) bool {
	_, ok := err.(UnavailableError)
	return ok
}

// TxError is returned when a transaction fails to begin or commit. No partial
// write is observable after it; the operation is not retried automatically.
type TxError struct {
	Op  string
	Err error
}

func (e TxError) Error() string {
	return e.Op + " transaction failed: " + e.Err.Error()
}

func (e TxError) Unwrap() error { return e.Err }

// IsTxError checks if an error is a transaction failure.
func IsTxError(err error) bool {
	_, ok := err.(TxError)
	return ok
}
