package systemd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

type recorder struct {
	mu     sync.Mutex
	states []string
	sent   bool
	err    error
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return r.sent, r.err
}

func (r *recorder) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

func newTestNotifier(rec *recorder, watchdog time.Duration) *Notifier {
	n := NewNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.notify = rec.notify
	n.watchdog = func() (time.Duration, error) { return watchdog, nil }
	return n
}

func TestNotifierReadyAndStopping(t *testing.T) {
	rec := &recorder{sent: true}
	n := newTestNotifier(rec, 0)

	n.Ready(context.Background())
	n.Status("3 services running")
	n.Stopping()

	want := []string{daemon.SdNotifyReady, "STATUS=3 services running", daemon.SdNotifyStopping}
	if got := rec.snapshot(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestNotifierWatchdog(t *testing.T) {
	rec := &recorder{sent: true}
	n := newTestNotifier(rec, 40*time.Millisecond)

	n.Ready(context.Background())
	time.Sleep(150 * time.Millisecond)
	n.Stopping()

	pings := rec.count(daemon.SdNotifyWatchdog)
	if pings < 2 {
		t.Errorf("expected at least 2 watchdog pings, got %d", pings)
	}

	// No pings after Stopping
	time.Sleep(60 * time.Millisecond)
	if after := rec.count(daemon.SdNotifyWatchdog); after != pings {
		t.Errorf("watchdog kept pinging after Stopping: %d -> %d", pings, after)
	}
}

func TestNotifierOutsideSystemd(t *testing.T) {
	rec := &recorder{sent: false}
	n := newTestNotifier(rec, 10*time.Millisecond)

	n.Ready(context.Background())
	time.Sleep(40 * time.Millisecond)
	n.Stopping()

	if got := rec.count(daemon.SdNotifyWatchdog); got != 0 {
		t.Errorf("expected no watchdog pings without a notify socket, got %d", got)
	}
}

func TestNotifierErrorsAreNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("socket closed")}
	n := newTestNotifier(rec, time.Second)

	n.Ready(context.Background())
	n.Stopping()

	if got := len(rec.snapshot()); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestNotifierServiceStatus(t *testing.T) {
	rec := &recorder{sent: true}
	n := newTestNotifier(rec, 0)

	n.ServiceStatus(0, 2)
	n.ServiceStatus(1, 2)
	n.ServiceStatus(1, 2)
	n.ServiceStatus(0, 2)

	want := []string{
		"STATUS=0 of 2 services running",
		"STATUS=1 of 2 services running",
		"STATUS=0 of 2 services running",
	}
	if got := rec.snapshot(); !slices.Equal(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}
