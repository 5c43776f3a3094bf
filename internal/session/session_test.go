package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fitplan/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetUnknownReturnsFreshState(t *testing.T) {
	store := NewMemoryStore(10, time.Hour)

	st, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, st.HasPlan())
	assert.Zero(t, st.Progress.CompletedCount())
	assert.Equal(t, "0", store.Health(context.Background())["sessions"])
}

func TestMemoryStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	_, err := store.Update(ctx, "a", func(st *State) error {
		st.Plan = "plan A"
		return st.Progress.Set(1, true, true)
	})
	require.NoError(t, err)

	st, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "plan A", st.Plan)
	s, _ := st.Progress.Status(1)
	assert.Equal(t, progress.Completed, s)

	other, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, other.HasPlan())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)
	_, err := store.Update(ctx, "a", func(st *State) error { st.Plan = "p"; return nil })
	require.NoError(t, err)

	st, _ := store.Get(ctx, "a")
	require.NoError(t, st.Progress.Set(2, true, true))
	st.Plan = "mutated"

	again, _ := store.Get(ctx, "a")
	assert.Equal(t, "p", again.Plan)
	assert.Zero(t, again.Progress.CompletedCount())
}

func TestMemoryStore_FailedUpdateSavesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)
	boom := errors.New("boom")

	_, err := store.Update(ctx, "a", func(st *State) error {
		st.Plan = "half-written"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	st, _ := store.Get(ctx, "a")
	assert.False(t, st.HasPlan())
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 20*time.Millisecond)
	_, err := store.Update(ctx, "a", func(st *State) error { st.Plan = "p"; return nil })
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	st, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, st.HasPlan())
}

func TestMemoryStore_ReadsKeepSessionAlive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 200*time.Millisecond)
	_, err := store.Update(ctx, "a", func(st *State) error { st.Plan = "p"; return nil })
	require.NoError(t, err)

	// Six reads 80ms apart span well past the TTL measured from the write.
	for i := 0; i < 6; i++ {
		time.Sleep(80 * time.Millisecond)
		st, err := store.Get(ctx, "a")
		require.NoError(t, err)
		require.True(t, st.HasPlan(), "read %d", i)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)
	_, _ = store.Update(ctx, "a", func(st *State) error { st.Plan = "p"; return nil })

	require.NoError(t, store.Delete(ctx, "a"))
	st, _ := store.Get(ctx, "a")
	assert.False(t, st.HasPlan())
}

func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	var wg sync.WaitGroup
	for week := 1; week <= progress.Weeks; week++ {
		wg.Add(1)
		go func(week int) {
			defer wg.Done()
			_, err := store.Update(ctx, "a", func(st *State) error {
				return st.Progress.Set(week, true, true)
			})
			assert.NoError(t, err)
		}(week)
	}
	wg.Wait()

	st, _ := store.Get(ctx, "a")
	assert.True(t, st.Progress.AllCompleted())
}

func TestCookieManager_IssuesAndReusesID(t *testing.T) {
	m := NewCookieManager([]byte("0123456789abcdef0123456789abcdef"), false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, err := m.ID(rec, req)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Zero(t, cookies[0].MaxAge)

	req2 := httptest.NewRequest(http.MethodGet, "/plan", nil)
	req2.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	id2, err := m.ID(rec2, req2)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Empty(t, rec2.Result().Cookies())
}

func TestCookieManager_ForeignCookieGetsNewID(t *testing.T) {
	issuer := NewCookieManager([]byte("0123456789abcdef0123456789abcdef"), false)
	other := NewCookieManager([]byte("fedcba9876543210fedcba9876543210"), false)

	rec := httptest.NewRecorder()
	id, err := issuer.ID(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	id2, err := other.ID(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestStateClone_NilProgress(t *testing.T) {
	st := &State{Plan: "p"}
	c := st.Clone()
	require.NotNil(t, c.Progress)
	assert.Equal(t, "p", c.Plan)
}
