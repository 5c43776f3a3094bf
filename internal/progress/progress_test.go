package progress

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllNotCompleted(t *testing.T) {
	p := New()

	weeks := p.Ordered()
	require.Len(t, weeks, Weeks)
	for i, w := range weeks {
		assert.Equal(t, i+1, w.Number)
		assert.Equal(t, NotCompleted, w.Status())
	}
	assert.Zero(t, p.CompletedCount())
	assert.False(t, p.AllCompleted())
}

func TestSet_StatusNeedsBothAnswers(t *testing.T) {
	p := New()

	require.NoError(t, p.Set(3, true, false))
	s, err := p.Status(3)
	require.NoError(t, err)
	assert.Equal(t, NotCompleted, s)

	require.NoError(t, p.Set(3, true, true))
	s, err = p.Status(3)
	require.NoError(t, err)
	assert.Equal(t, Completed, s)
	assert.Equal(t, 1, p.CompletedCount())
}

func TestSet_RejectsOutOfRangeWeeks(t *testing.T) {
	p := New()
	assert.ErrorIs(t, p.Set(0, true, true), ErrInvalidWeek)
	assert.ErrorIs(t, p.Set(13, true, true), ErrInvalidWeek)

	_, err := p.Status(-1)
	assert.ErrorIs(t, err, ErrInvalidWeek)
}

func TestAllCompleted(t *testing.T) {
	p := New()
	for n := 1; n <= Weeks; n++ {
		require.NoError(t, p.Set(n, true, true))
	}
	assert.True(t, p.AllCompleted())

	require.NoError(t, p.Set(12, false, true))
	assert.False(t, p.AllCompleted())
	assert.Equal(t, 11, p.CompletedCount())
}

func TestDecodedPartialProgressIsFilled(t *testing.T) {
	var p WeeklyProgress
	require.NoError(t, json.Unmarshal([]byte(`{"weeks":{"2":{"number":2,"workout_done":true,"diet_done":true}}}`), &p))

	weeks := p.Ordered()
	require.Len(t, weeks, Weeks)
	assert.Equal(t, Completed, weeks[1].Status())
	assert.Equal(t, NotCompleted, weeks[0].Status())
}
