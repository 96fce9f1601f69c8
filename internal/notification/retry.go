package notification

import (
	"errors"
	"sync"
	"time"
)

var ErrSchedulerClosed = errors.New("retry scheduler closed")

// ShouldRetry reports whether an attempt that already used retryCount retries may retry again.
func ShouldRetry(retryCount, maxRetries int) bool {
	return retryCount < maxRetries
}

// Backoff is the delay before retry number n (1-based): base * 2^n.
func Backoff(n int, base time.Duration) time.Duration {
	if n < 0 {
		n = 0
	}
	return base << uint(n)
}

// Scheduler runs task once after delay.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) error
}

// TimerScheduler runs retries on in-process timers. Pending retries are lost on exit.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[*time.Timer]struct{})}
}

func (s *TimerScheduler) Schedule(delay time.Duration, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		task()
	})
	s.timers[t] = struct{}{}
	return nil
}

// Pending returns the number of timers that have not fired yet.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close cancels timers that have not fired and waits for running tasks to return.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
