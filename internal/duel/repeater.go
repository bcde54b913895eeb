package duel

import (
	"sync"
	"time"
)

// repeater is a cancellable repeating task bound to one session's lifetime.
// fn runs once per interval on a single goroutine; no run starts before the
// previous one returns. fn returning true, or a stop() call, ends the loop.
// stop is idempotent and does not wait for an in-flight run to finish.
type repeater struct {
	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newRepeater() *repeater {
	return &repeater{quit: make(chan struct{})}
}

func (r *repeater) start(interval time.Duration, fn func() bool) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if fn() {
					return
				}
			case <-r.quit:
				return
			}
		}
	}()
}

func (r *repeater) stop() {
	r.once.Do(func() {
		close(r.quit)
	})
}

// wait blocks until the loop goroutine has exited; used by tests and shutdown
func (r *repeater) wait() {
	r.wg.Wait()
}
