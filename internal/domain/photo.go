package domain

import "time"

// StatePhoto is the single stored photo for one state. Writing a photo for a
// code that already has one replaces it.
type StatePhoto struct {
	StateCode string
	Image     []byte
	UpdatedAt time.Time
}

// NewStatePhoto creates a state photo record stamped with the current time.
func NewStatePhoto(code string, image []byte) *StatePhoto {
	return &StatePhoto{
		StateCode: code,
		Image:     image,
		UpdatedAt: time.Now(),
	}
}

// GalleryPhoto is one entry in the open-ended fun gallery. IDs are assigned
// by the store, strictly increasing, and never reused after deletion.
type GalleryPhoto struct {
	ID        int64
	Image     []byte
	CreatedAt time.Time
}
