package flow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeverityFor(t *testing.T) {
	require.Equal(t, SeverityNormal, SeverityFor(601))
	require.Equal(t, SeverityWarning, SeverityFor(600))
	require.Equal(t, SeverityWarning, SeverityFor(301))
	require.Equal(t, SeverityCritical, SeverityFor(300))
	require.Equal(t, SeverityCritical, SeverityFor(0))
	require.Equal(t, "critical", SeverityCritical.String())
}

func TestCountdownFiresOnceAtZero(t *testing.T) {
	var fired int32
	c := NewCountdown(3, func() { atomic.AddInt32(&fired, 1) })

	var seen []int
	c.OnTick(func(r int) { seen = append(seen, r) })

	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), ticks)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		ticks <- time.Time{}
	}
	<-done

	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
	require.Equal(t, 0, c.Remaining())
	require.Equal(t, []int{2, 1, 0}, seen)

	// 再次运行也不会重复触发，也不会出现负数
	c.Run(context.Background(), ticks)
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
	require.Equal(t, 0, c.Remaining())
}

func TestCountdownCancelDoesNotFire(t *testing.T) {
	var fired int32
	c := NewCountdown(5, func() { atomic.AddInt32(&fired, 1) })

	ticked := make(chan int, 1)
	c.OnTick(func(r int) { ticked <- r })

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, ticks)
		close(done)
	}()

	ticks <- time.Time{}
	require.Equal(t, 4, <-ticked)
	cancel()
	<-done

	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
	require.Equal(t, 4, c.Remaining())
}

func TestCountdownNonPositiveStartFiresImmediately(t *testing.T) {
	var fired int32
	c := NewCountdown(-10, func() { atomic.AddInt32(&fired, 1) })
	require.Equal(t, 0, c.Remaining())

	c.Run(context.Background(), nil)
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCountdownStartUsesClock(t *testing.T) {
	clock := newFakeClock()
	fired := make(chan struct{}, 1)
	c := NewCountdown(2, func() { fired <- struct{}{} })

	stop := c.Start(context.Background(), clock)
	defer stop()

	clock.tick()
	require.Equal(t, SeverityCritical, c.Severity())
	clock.tick()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("onTimeUp not called")
	}
	require.Equal(t, 0, c.Remaining())
}
