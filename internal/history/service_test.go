package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxplay/voxplay/internal/catalog"
	"github.com/voxplay/voxplay/internal/database"
	"github.com/voxplay/voxplay/internal/playback"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewService(db.Conn(), zerolog.Nop())
}

func playRequest(key, title string) playback.Request {
	return playback.Request{
		Device:  playback.Device{ID: "cc-1", Name: "Living Room TV", Class: playback.ClassChromecast},
		Command: playback.CommandPlayItem,
		Item:    &catalog.Item{Key: key, Type: catalog.TypeMovie, Title: title},
	}
}

func TestServiceRecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordDispatch(ctx, playRequest("101", "inception"))
	svc.RecordDispatch(ctx, playback.Request{
		Device:  playback.Device{ID: "cc-1", Name: "Living Room TV", Class: playback.ClassChromecast},
		Command: playback.CommandPause,
	})

	result, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, int64(2), result.TotalCount)

	// Newest first.
	assert.Equal(t, EventTransport, result.Items[0].EventType)
	assert.Equal(t, "pause", result.Items[0].Command)
	assert.Equal(t, EventPlayback, result.Items[1].EventType)
	assert.Equal(t, "101", result.Items[1].MediaKey)
	assert.Equal(t, "inception", result.Items[1].Title)
	assert.NotEmpty(t, result.Items[1].CreatedAt)
}

func TestServiceListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordDispatch(ctx, playRequest("101", "inception"))
	svc.RecordDispatch(ctx, playback.Request{
		Device:  playback.Device{Class: playback.ClassTheater},
		Command: playback.CommandStop,
	})

	result, err := svc.List(ctx, ListOptions{EventType: string(EventPlayback)})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "playItem", result.Items[0].Command)

	result, err = svc.List(ctx, ListOptions{MediaType: "episode"})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestServiceListPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordDispatch(ctx, playRequest("101", "inception"))
	}

	result, err := svc.List(ctx, ListOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(5), result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
}

func TestServiceDeleteAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordDispatch(ctx, playRequest("101", "inception"))
	require.NoError(t, svc.DeleteAll(ctx))

	result, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}
