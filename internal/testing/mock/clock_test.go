package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.True(t, clock.Now().Equal(start))

	clock.Advance(time.Hour)
	assert.True(t, clock.Now().Equal(start.Add(time.Hour)))

	clock.Set(start)
	assert.True(t, clock.Now().Equal(start))
}

func TestClock_ZeroStartsNow(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.WithinDuration(t, time.Now(), clock.Now(), 2*time.Second)
	assert.Zero(t, clock.Now().Nanosecond())
}

func TestClock_Sleep(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	require.NoError(t, clock.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, clock.Sleep(context.Background(), 10*time.Second))
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, clock.Sleeps())
	assert.True(t, clock.Now().Equal(start.Add(15*time.Second)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
	assert.Len(t, clock.Sleeps(), 2)
}
