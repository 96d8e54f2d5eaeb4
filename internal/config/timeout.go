package config

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TimeoutState says whether a procedure run is still reporting progress.
type TimeoutState int

const (
	TimeoutStateActive TimeoutState = iota
	TimeoutStateStuck
)

func (s TimeoutState) String() string {
	switch s {
	case TimeoutStateActive:
		return "active"
	case TimeoutStateStuck:
		return "stuck"
	default:
		return "unknown"
	}
}

// TimeoutError says which watchdog limit fired and by how much.
type TimeoutError struct {
	State   TimeoutState
	Elapsed time.Duration
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: procedure %s after %v (limit: %v)",
		e.State, e.Elapsed.Round(time.Second), e.Limit.Round(time.Second))
}

// IsStuck reports whether the stuck limit fired rather than the active one.
func (e *TimeoutError) IsStuck() bool {
	return e.State == TimeoutStateStuck
}

// TimeoutMonitor is the procedure watchdog. The active limit bounds the
// whole run; the stuck limit bounds the gap between two progress
// reports. Hardware that stops producing batches trips the stuck limit
// long before a slow but healthy acquisition trips the active one.
type TimeoutMonitor struct {
	mu           sync.RWMutex
	config       TimeoutConfig
	startedAt    time.Time
	lastProgress time.Time
	events       int64
}

func NewTimeoutMonitor(config TimeoutConfig) *TimeoutMonitor {
	now := time.Now()
	return &TimeoutMonitor{
		config:       config,
		startedAt:    now,
		lastProgress: now,
	}
}

// RecordProgress pushes the stuck deadline out. Every progress callback
// from a running procedure lands here.
func (m *TimeoutMonitor) RecordProgress() {
	m.mu.Lock()
	m.lastProgress = time.Now()
	m.events++
	m.mu.Unlock()
}

// ProgressEvents counts how many progress reports have arrived.
func (m *TimeoutMonitor) ProgressEvents() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.events
}

func (m *TimeoutMonitor) snapshot() (startedAt, lastProgress time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startedAt, m.lastProgress
}

// State reports stuck once the gap since the last progress report
// reaches the stuck limit.
func (m *TimeoutMonitor) State() TimeoutState {
	_, last := m.snapshot()
	if time.Since(last) >= m.config.Stuck {
		return TimeoutStateStuck
	}
	return TimeoutStateActive
}

// Deadline is the instant the watchdog will fire if no further progress
// arrives: the earlier of the stuck and active deadlines.
func (m *TimeoutMonitor) Deadline() time.Time {
	start, last := m.snapshot()
	stuck := last.Add(m.config.Stuck)
	active := start.Add(m.config.Active)
	if stuck.Before(active) {
		return stuck
	}
	return active
}

// TimeRemaining is the time left until Deadline, floored at zero.
func (m *TimeoutMonitor) TimeRemaining() time.Duration {
	if remaining := time.Until(m.Deadline()); remaining > 0 {
		return remaining
	}
	return 0
}

// IsExpired reports whether either limit has been reached.
func (m *TimeoutMonitor) IsExpired() bool {
	return !time.Now().Before(m.Deadline())
}

// Err returns a TimeoutError describing which limit fired, or nil while
// the watchdog is still satisfied.
func (m *TimeoutMonitor) Err() *TimeoutError {
	start, last := m.snapshot()
	now := time.Now()

	if sinceProgress := now.Sub(last); sinceProgress >= m.config.Stuck {
		return &TimeoutError{State: TimeoutStateStuck, Elapsed: sinceProgress, Limit: m.config.Stuck}
	}
	if elapsed := now.Sub(start); elapsed >= m.config.Active {
		return &TimeoutError{State: TimeoutStateActive, Elapsed: elapsed, Limit: m.config.Active}
	}
	return nil
}

// Reset restarts both clocks, for reuse across procedures.
func (m *TimeoutMonitor) Reset() {
	m.mu.Lock()
	now := time.Now()
	m.startedAt = now
	m.lastProgress = now
	m.events = 0
	m.mu.Unlock()
}

// ContextWithDeadline derives a context that is canceled when the
// watchdog fires. The deadline is re-evaluated after every sleep, so
// progress reported while waiting pushes the cancellation out.
func (m *TimeoutMonitor) ContextWithDeadline(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		for {
			remaining := m.TimeRemaining()
			if remaining <= 0 {
				cancel()
				return
			}
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()

	return ctx, cancel
}
