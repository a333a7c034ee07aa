package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/platebook/platebook/internal/domain"
	"github.com/platebook/platebook/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewMemoryStore(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store)
}

func TestNewFileStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore(tmpDir + "/test.db")
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, store)
}

func TestMigrateIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	path := tmpDir + "/test.db"

	store, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.PutStatePhoto(ctx, "CA", []byte("golden gate")))
	require.NoError(t, store.Close())

	// Reopening runs the migration gate again; existing records survive.
	store, err = NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	photo, err := store.GetStatePhoto(ctx, "CA")
	require.NoError(t, err)
	assert.Equal(t, []byte("golden gate"), photo.Image)
}

// State photo tests

func TestPutAndGetStatePhoto(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.PutStatePhoto(ctx, "CA", []byte("plate photo"))
	require.NoError(t, err)

	photo, err := store.GetStatePhoto(ctx, "CA")
	require.NoError(t, err)

	assert.Equal(t, "CA", photo.StateCode)
	assert.Equal(t, []byte("plate photo"), photo.Image)
	assert.False(t, photo.UpdatedAt.IsZero())
}

func TestGetStatePhotoNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetStatePhoto(ctx, "NV")
	assert.True(t, storage.IsNotFound(err))
}

func TestPutStatePhotoOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutStatePhoto(ctx, "CA", []byte("first")))
	require.NoError(t, store.PutStatePhoto(ctx, "CA", []byte("second")))
	require.NoError(t, store.PutStatePhoto(ctx, "CA", []byte("third")))

	photo, err := store.GetStatePhoto(ctx, "CA")
	require.NoError(t, err)
	assert.Equal(t, []byte("third"), photo.Image)

	// Still exactly one record for the code.
	count, err := store.CountStatesWithPhotos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCountStatesWithPhotos(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CountStatesWithPhotos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i, state := range domain.States() {
		require.NoError(t, store.PutStatePhoto(ctx, state.Code, []byte(state.Name)))

		count, err = store.CountStatesWithPhotos(ctx)
		require.NoError(t, err)
		assert.Equal(t, i+1, count)
	}

	// Re-puts do not change the count.
	require.NoError(t, store.PutStatePhoto(ctx, "TX", []byte("replacement")))
	count, err = store.CountStatesWithPhotos(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCount, count)
}

// Gallery tests

func TestAddAndListGalleryPhotos(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.AddGalleryPhoto(ctx, []byte("one"))
	require.NoError(t, err)
	id2, err := store.AddGalleryPhoto(ctx, []byte("two"))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	photos, err := store.ListGalleryPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, id1, photos[0].ID)
	assert.Equal(t, []byte("one"), photos[0].Image)
	assert.Equal(t, id2, photos[1].ID)
	assert.Equal(t, []byte("two"), photos[1].Image)
}

func TestGetGalleryPhoto(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddGalleryPhoto(ctx, []byte("fun plate"))
	require.NoError(t, err)

	photo, err := store.GetGalleryPhoto(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("fun plate"), photo.Image)
	assert.False(t, photo.CreatedAt.IsZero())

	_, err = store.GetGalleryPhoto(ctx, id+1)
	assert.True(t, storage.IsNotFound(err))
}

func TestDeleteGalleryPhoto(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddGalleryPhoto(ctx, []byte("temporary"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteGalleryPhoto(ctx, id))

	photos, err := store.ListGalleryPhotos(ctx)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestDeleteGalleryPhotoAbsentIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.AddGalleryPhoto(ctx, []byte("keeper"))
	require.NoError(t, err)

	// Deleting an id that was never issued succeeds and changes nothing.
	require.NoError(t, store.DeleteGalleryPhoto(ctx, 9999))

	photos, err := store.ListGalleryPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, id, photos[0].ID)
}

func TestGalleryIDsNeverReused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var issued []int64
	for i := 0; i < 5; i++ {
		id, err := store.AddGalleryPhoto(ctx, []byte(fmt.Sprintf("photo-%d", i)))
		require.NoError(t, err)
		issued = append(issued, id)
		if i%2 == 0 {
			require.NoError(t, store.DeleteGalleryPhoto(ctx, id))
		}
	}

	for i := 1; i < len(issued); i++ {
		assert.Greater(t, issued[i], issued[i-1], "ids must be strictly increasing")
	}

	// Delete everything, then a re-add still gets a fresh id.
	for _, id := range issued {
		require.NoError(t, store.DeleteGalleryPhoto(ctx, id))
	}
	id, err := store.AddGalleryPhoto(ctx, []byte("after purge"))
	require.NoError(t, err)
	assert.Greater(t, id, issued[len(issued)-1])
}

// Settings tests

func TestSetAndGetSetting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SetSetting(ctx, storage.ShareCodeKey, "sekret")
	require.NoError(t, err)

	value, err := store.GetSetting(ctx, storage.ShareCodeKey)
	require.NoError(t, err)
	assert.Equal(t, "sekret", value)

	// Overwrite
	require.NoError(t, store.SetSetting(ctx, storage.ShareCodeKey, "rotated"))
	value, err = store.GetSetting(ctx, storage.ShareCodeKey)
	require.NoError(t, err)
	assert.Equal(t, "rotated", value)
}

func TestGetSettingNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetSetting(ctx, "missing")
	assert.True(t, storage.IsNotFound(err))
}

func TestDeleteSetting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, storage.ShareCodeKey, "sekret"))
	require.NoError(t, store.DeleteSetting(ctx, storage.ShareCodeKey))

	_, err := store.GetSetting(ctx, storage.ShareCodeKey)
	assert.True(t, storage.IsNotFound(err))
}
