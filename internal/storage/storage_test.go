package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/schedule"
	"github.com/jwebster45206/wired-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot() *state.Snapshot {
	return &state.Snapshot{
		ID:               uuid.New(),
		Location:         "upper_hallway",
		CreditLevel:      2,
		Inventory:        []state.InventoryItem{{Item: "navi", Quantity: 1}},
		UnlockedCommands: []string{"inventory", "arls"},
		SceneID:          "SCENE_00_ENTRY",
		TimeOfDay:        ecc.Encode(clock.At(2, 20, 0)).Flip(3).Flip(12),
		Flags:            map[string]string{"sister_mood": "cold"},
		NPCs: map[string]schedule.NPC{
			"mika": {ID: "mika", Location: "kitchen", Manual: true, Sanity: schedule.Paranoid},
		},
	}
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisStorage("redis://"+mr.Addr(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	r, _ := setupTestRedis(t)
	f, err := NewFileStorage(t.TempDir(), testLogger())
	require.NoError(t, err)
	return map[string]Storage{
		"redis": r,
		"file":  f,
		"mock":  NewMockStorage(),
	}
}

func TestStorage_RoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Ping(ctx))

			snap := testSnapshot()
			require.NoError(t, s.SaveSnapshot(ctx, snap))

			loaded, err := s.LoadSnapshot(ctx, snap.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, snap, loaded)
			assert.Equal(t, ecc.DoubleBitDetected, loaded.TimeOfDay.Decode().Status,
				"a corrupted codeword must be stored as is")

			ids, err := s.ListSnapshots(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{snap.ID}, ids)

			require.NoError(t, s.DeleteSnapshot(ctx, snap.ID))
			loaded, err = s.LoadSnapshot(ctx, snap.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestStorage_ListIsSorted(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("c0000000-0000-4000-8000-000000000000"),
		uuid.MustParse("0a000000-0000-4000-8000-000000000000"),
		uuid.MustParse("f1000000-0000-4000-8000-000000000000"),
	}
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range ids {
				snap := testSnapshot()
				snap.ID = id
				require.NoError(t, s.SaveSnapshot(ctx, snap))
			}
			listed, err := s.ListSnapshots(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{ids[1], ids[0], ids[2]}, listed)
		})
	}
}

func TestStorage_LoadMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := s.LoadSnapshot(context.Background(), uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestRedisStorage_KeyAndTTL(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()
	snap := testSnapshot()
	require.NoError(t, r.SaveSnapshot(ctx, snap))

	key := "world:" + snap.ID.String()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 24*time.Hour, mr.TTL(key))

	mr.FastForward(25 * time.Hour)
	loaded, err := r.LoadSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded, "expired snapshot should read as missing")
}

func TestRedisStorage_ListSkipsMalformedKeys(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("world:not-a-uuid", "{}"))
	ids, err := r.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStorage_CorruptPayload(t *testing.T) {
	r, mr := setupTestRedis(t)
	id := uuid.New()
	require.NoError(t, mr.Set("world:"+id.String(), "not json"))
	_, err := r.LoadSnapshot(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	r, mr := setupTestRedis(t)
	require.NoError(t, r.WaitForConnection(context.Background(), 3, time.Millisecond))

	mr.Close()
	err := r.WaitForConnection(context.Background(), 2, time.Millisecond)
	assert.Error(t, err)
}

func TestNewRedisStorage_BadURL(t *testing.T) {
	_, err := NewRedisStorage("://nope", testLogger())
	assert.Error(t, err)
}

func TestFileStorage_Layout(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)

	snap := testSnapshot()
	require.NoError(t, f.SaveSnapshot(context.Background(), snap))

	_, err = os.Stat(filepath.Join(dir, snap.ID.String()+".json.zst"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json.zst"), []byte("x"), 0o644))
	ids, err := f.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{snap.ID}, ids)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id.String()+".json.zst"), []byte("plain"), 0o644))
	_, err = f.LoadSnapshot(context.Background(), id)
	assert.Error(t, err)
}

func TestMockStorage_PingError(t *testing.T) {
	m := NewMockStorage()
	m.SetPingError(errors.New("down"))
	assert.EqualError(t, m.Ping(context.Background()), "down")
}
