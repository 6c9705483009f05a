package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImageStore(t *testing.T) {
	fixedClock(t, time.UnixMilli(5))
	store := NewMemoryImageStore()
	ctx := context.Background()

	p, err := store.Save(ctx, strings.NewReader("jpeg"), 4, "fries.jpg")
	require.NoError(t, err)
	assert.Equal(t, "uploads/5-fries.jpg", p)
	assert.True(t, store.Has(p))
	assert.Equal(t, 1, store.Len())

	obj, err := store.Open(ctx, p)
	require.NoError(t, err)
	body, _ := io.ReadAll(obj)
	assert.Equal(t, "jpeg", string(body))
	assert.Equal(t, "image/jpeg", obj.ContentType)

	require.NoError(t, store.Delete(ctx, p))
	assert.False(t, store.Has(p))
	assert.ErrorIs(t, store.Delete(ctx, p), ErrImageNotFound)
}

func TestMemoryImageStore_CanceledContext(t *testing.T) {
	store := NewMemoryImageStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, strings.NewReader("x"), 1, "x.png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}
