package duel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepeater_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	r := newRepeater()
	r.start(time.Millisecond, func() bool {
		runs.Add(1)
		return false
	})

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	r.stop()
	r.wait()
	after := runs.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after stop")
}

func TestRepeater_StopsWhenFnReportsTerminal(t *testing.T) {
	var runs atomic.Int32
	r := newRepeater()
	r.start(time.Millisecond, func() bool {
		return runs.Add(1) >= 2
	})

	r.wait()
	assert.Equal(t, int32(2), runs.Load())
}

func TestRepeater_StopIsIdempotent(t *testing.T) {
	r := newRepeater()
	r.start(time.Millisecond, func() bool { return false })

	r.stop()
	r.stop()
	r.wait()
}
