package savedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "Saves", "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func settings(t *testing.T, src string) records.EngineSettings {
	t.Helper()
	doc, err := loader.Parse([]byte(src), loader.FormatJSON)
	require.NoError(t, err)
	s, err := records.DecodeSettings(doc)
	require.NoError(t, err)
	return s
}

func TestCreate_SeedsFromSettings(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2024, 5, 1, 10, 30, 15, 500, time.UTC)

	sv, err := s.Create(ctx, "  slot one ", settings(t, `{"world_seed": 99, "world_width": 64, "world_height": 16, "config_version": "0.1"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "slot one", sv.Name)
	assert.Equal(t, int64(99), sv.WorldSeed)
	assert.Equal(t, 32.0, sv.PlayerX)
	assert.Equal(t, 8.0, sv.PlayerY)
	assert.Positive(t, sv.ID)

	got, err := s.Get(ctx, sv.ID)
	require.NoError(t, err)
	assert.Equal(t, sv.Name, got.Name)
	assert.Equal(t, sv.WorldSeed, got.WorldSeed)
	assert.Equal(t, sv.PlayerX, got.PlayerX)
	assert.True(t, got.CreatedAt.Equal(now.Truncate(time.Second)))
}

func TestCreate_DefaultsWhenFieldsAbsent(t *testing.T) {
	s := openStore(t)
	sv, err := s.Create(context.Background(), "fresh", settings(t, `{"config_version": "0.1"}`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(records.DefaultWorldSeed), sv.WorldSeed)
	assert.Equal(t, float64(records.DefaultWorldWidth)/2, sv.PlayerX)
	assert.Equal(t, float64(records.DefaultWorldHeight)/2, sv.PlayerY)
}

func TestCreate_EmptyName(t *testing.T) {
	s := openStore(t)
	_, err := s.Create(context.Background(), " ", settings(t, `{}`), time.Now())
	assert.Error(t, err)
}

func TestListAndUpdatePosition(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cfg := settings(t, `{}`)

	a, err := s.Create(ctx, "a", cfg, now)
	require.NoError(t, err)
	_, err = s.Create(ctx, "b", cfg, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, s.UpdatePosition(ctx, a.ID, 1.5, 2.5, later))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, 1.5, all[0].PlayerX)
	assert.Equal(t, 2.5, all[0].PlayerY)
	assert.True(t, all[0].UpdatedAt.Equal(later))
	assert.True(t, all[0].CreatedAt.Equal(now))

	err = s.UpdatePosition(ctx, 999, 0, 0, later)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Get(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLatest_FollowsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cfg := settings(t, `{}`)

	if _, err := s.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty store: err=%v, want ErrNotFound", err)
	}

	a, err := s.Create(ctx, "a", cfg, now)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := s.Create(ctx, "b", cfg, now)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	got, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != b.ID {
		t.Fatalf("Latest id=%d, want %d on equal updated_at", got.ID, b.ID)
	}

	if err := s.UpdatePosition(ctx, a.ID, 3, 4, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	got, err = s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != a.ID || got.PlayerX != 3 || got.PlayerY != 4 {
		t.Fatalf("Latest = %+v, want save %d at (3, 4)", got, a.ID)
	}
}
