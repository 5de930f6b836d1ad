package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeFiresInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "b") })

	c.Advance(50 * time.Millisecond)
	require.Empty(t, fired)

	c.Advance(250 * time.Millisecond)
	require.Equal(t, []string{"a", "b", "c"}, fired)
	require.Equal(t, start.Add(300*time.Millisecond), c.Now())
	require.Zero(t, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(time.Time{})
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	c.Advance(2 * time.Second)
	require.False(t, fired)
}

func TestFakeChainedTimers(t *testing.T) {
	c := NewFake(time.Time{})
	var at []time.Duration
	start := c.Now()

	var schedule func(n int)
	schedule = func(n int) {
		if n == 0 {
			return
		}
		c.AfterFunc(100*time.Millisecond, func() {
			at = append(at, c.Now().Sub(start))
			schedule(n - 1)
		})
	}
	schedule(3)

	c.Advance(250 * time.Millisecond)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, at)
	require.Equal(t, 1, c.Pending())

	c.Advance(50 * time.Millisecond)
	require.Len(t, at, 3)
}
