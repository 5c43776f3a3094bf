package session

import (
	"context"
	"os"
	"testing"
	"time"

	"fitplan/internal/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real database: set FITPLAN_TEST_DB_HOST (and the other
// FITPLAN_TEST_DB_* variables when they differ from the defaults below).
func newTestPostgresStore(t *testing.T, ttl time.Duration) *PostgresStore {
	t.Helper()
	host := os.Getenv("FITPLAN_TEST_DB_HOST")
	if host == "" {
		t.Skip("FITPLAN_TEST_DB_HOST not set")
	}

	cfg := database.Config{
		Host:     host,
		Port:     envOr("FITPLAN_TEST_DB_PORT", "5432"),
		Database: envOr("FITPLAN_TEST_DB_DATABASE", "postgres"),
		Username: envOr("FITPLAN_TEST_DB_USERNAME", "postgres"),
		Password: envOr("FITPLAN_TEST_DB_PASSWORD", "postgres"),
	}

	ctx := context.Background()
	db, err := database.NewService(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	store, err := NewPostgresStore(ctx, db, ttl)
	require.NoError(t, err)
	return store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := newTestPostgresStore(t, time.Hour)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	st, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.HasPlan())

	_, err = store.Update(ctx, id, func(st *State) error {
		st.Plan = "stored plan"
		return st.Progress.Set(4, true, true)
	})
	require.NoError(t, err)

	st, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "stored plan", st.Plan)
	assert.Equal(t, 1, st.Progress.CompletedCount())
	assert.Equal(t, "postgres", store.Health(ctx)["backend"])

	require.NoError(t, store.Delete(ctx, id))
	st, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.HasPlan())
}

func TestPostgresStore_ReadsKeepSessionAlive(t *testing.T) {
	store := newTestPostgresStore(t, 2*time.Second)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	_, err := store.Update(ctx, id, func(st *State) error { st.Plan = "stored plan"; return nil })
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		time.Sleep(time.Second)
		st, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, st.HasPlan(), "read %d", i)
	}
}
