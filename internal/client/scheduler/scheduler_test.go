package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsAfterDelay(t *testing.T) {
	s := New()
	defer s.Stop()

	var ran atomic.Bool
	s.Schedule("c1", 10*time.Millisecond, func() { ran.Store(true) })
	assert.Equal(t, 1, s.Pending("c1"))

	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending("c1"))
}

func TestScheduler_CancelSingleTask(t *testing.T) {
	s := New()
	defer s.Stop()

	var a, b atomic.Bool
	cancelA := s.Schedule("c1", 20*time.Millisecond, func() { a.Store(true) })
	s.Schedule("c1", 20*time.Millisecond, func() { b.Store(true) })

	cancelA()
	cancelA()

	require.Eventually(t, b.Load, time.Second, 5*time.Millisecond)
	assert.False(t, a.Load())
}

func TestScheduler_CancelKeyLeavesOtherKeys(t *testing.T) {
	s := New()
	defer s.Stop()

	var c1, c2 atomic.Int32
	s.Schedule("c1", 20*time.Millisecond, func() { c1.Add(1) })
	s.Schedule("c1", 20*time.Millisecond, func() { c1.Add(1) })
	s.Schedule("c2", 20*time.Millisecond, func() { c2.Add(1) })

	assert.Equal(t, 2, s.CancelKey("c1"))
	assert.Equal(t, 0, s.CancelKey("c1"))

	require.Eventually(t, func() bool { return c2.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), c1.Load())
}

func TestScheduler_StopCancelsAndRejects(t *testing.T) {
	s := New()

	var ran atomic.Bool
	s.Schedule("c1", 20*time.Millisecond, func() { ran.Store(true) })
	s.Stop()
	s.Schedule("c1", time.Millisecond, func() { ran.Store(true) })

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
	assert.Equal(t, 0, s.Pending("c1"))
}

func TestScheduler_StopWaitsForRunningTask(t *testing.T) {
	s := New()

	started := make(chan struct{})
	var finished atomic.Bool
	s.Schedule("c1", time.Millisecond, func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	s.Stop()
	assert.True(t, finished.Load())
}
