package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTimeoutState_String(t *testing.T) {
	tests := []struct {
		state TimeoutState
		want  string
	}{
		{TimeoutStateActive, "active"},
		{TimeoutStateStuck, "stuck"},
		{TimeoutState(7), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("TimeoutState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{
		State:   TimeoutStateStuck,
		Elapsed: 15 * time.Minute,
		Limit:   10 * time.Minute,
	}

	if !strings.Contains(err.Error(), "stuck") {
		t.Errorf("Error() = %q, want mention of the stuck state", err.Error())
	}
	if !strings.Contains(err.Error(), "10m") {
		t.Errorf("Error() = %q, want the limit", err.Error())
	}
	if !err.IsStuck() {
		t.Error("stuck error should report IsStuck")
	}

	active := &TimeoutError{State: TimeoutStateActive}
	if active.IsStuck() {
		t.Error("active error should not report IsStuck")
	}
}

func TestTimeoutMonitor_Fresh(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 10 * time.Minute})

	if m.State() != TimeoutStateActive {
		t.Errorf("State() = %v, want active on a fresh monitor", m.State())
	}
	if m.IsExpired() {
		t.Error("fresh monitor should not be expired")
	}
	if err := m.Err(); err != nil {
		t.Errorf("Err() = %v, want nil on a fresh monitor", err)
	}
	if m.ProgressEvents() != 0 {
		t.Errorf("ProgressEvents() = %d, want 0", m.ProgressEvents())
	}
}

func TestTimeoutMonitor_StuckTransition(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 50 * time.Millisecond})

	time.Sleep(60 * time.Millisecond)

	if m.State() != TimeoutStateStuck {
		t.Errorf("State() = %v, want stuck after the progress gap", m.State())
	}
	if !m.IsExpired() {
		t.Error("monitor should expire once the stuck limit passes")
	}

	err := m.Err()
	if err == nil {
		t.Fatal("Err() should be non-nil when expired")
	}
	if !err.IsStuck() {
		t.Errorf("Err() = %v, want the stuck limit", err)
	}

	// Progress clears the stuck state but the expiry already happened.
	m.RecordProgress()
	if m.State() != TimeoutStateActive {
		t.Errorf("State() = %v, want active right after progress", m.State())
	}
}

func TestTimeoutMonitor_ActiveLimit(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: 50 * time.Millisecond, Stuck: time.Hour})

	time.Sleep(60 * time.Millisecond)

	if !m.IsExpired() {
		t.Error("monitor should expire once the active limit passes")
	}
	err := m.Err()
	if err == nil {
		t.Fatal("Err() should be non-nil when expired")
	}
	if err.IsStuck() {
		t.Errorf("Err() = %v, want the active limit", err)
	}
}

func TestTimeoutMonitor_ProgressKeepsAlive(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 100 * time.Millisecond})

	for i := 0; i < 3; i++ {
		time.Sleep(50 * time.Millisecond)
		m.RecordProgress()
	}

	if m.IsExpired() {
		t.Error("steady progress should keep the watchdog satisfied")
	}
	if m.ProgressEvents() != 3 {
		t.Errorf("ProgressEvents() = %d, want 3", m.ProgressEvents())
	}
}

func TestTimeoutMonitor_Deadline(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: time.Minute})

	// The stuck deadline is nearer, so it wins.
	want := time.Now().Add(time.Minute)
	if diff := m.Deadline().Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("Deadline() off by %v", diff)
	}

	remaining := m.TimeRemaining()
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("TimeRemaining() = %v, want within (0, 1m]", remaining)
	}

	spent := NewTimeoutMonitor(TimeoutConfig{Active: time.Nanosecond, Stuck: time.Nanosecond})
	time.Sleep(time.Millisecond)
	if spent.TimeRemaining() != 0 {
		t.Errorf("TimeRemaining() = %v on an expired monitor, want 0", spent.TimeRemaining())
	}
}

func TestTimeoutMonitor_Reset(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 50 * time.Millisecond})
	m.RecordProgress()
	time.Sleep(60 * time.Millisecond)

	if !m.IsExpired() {
		t.Fatal("monitor should be expired before Reset")
	}

	m.Reset()

	if m.IsExpired() {
		t.Error("Reset should restart both clocks")
	}
	if m.ProgressEvents() != 0 {
		t.Errorf("ProgressEvents() = %d after Reset, want 0", m.ProgressEvents())
	}
}

func TestTimeoutMonitor_ContextWithDeadline(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 200 * time.Millisecond})

	ctx, cancel := m.ContextWithDeadline(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("watchdog should cancel the context after the stuck limit")
	}
}

func TestTimeoutMonitor_ContextExtendedByProgress(t *testing.T) {
	m := NewTimeoutMonitor(TimeoutConfig{Active: time.Hour, Stuck: 150 * time.Millisecond})

	ctx, cancel := m.ContextWithDeadline(context.Background())
	defer cancel()

	// Feed progress past the original stuck deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		m.RecordProgress()
	}

	select {
	case <-ctx.Done():
		t.Fatal("context should outlive the original deadline while progress arrives")
	default:
	}
}
