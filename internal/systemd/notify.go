// Package systemd reports servicedeck's lifecycle to systemd through the
// sd_notify protocol. Outside a systemd unit every call is a no-op.
package systemd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/servicedeck/internal/logging"
)

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier sends readiness, status, stopping and watchdog messages.
type Notifier struct {
	notify   notifyFunc
	watchdog func() (time.Duration, error)
	logger   logging.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastStatus string
}

// NewNotifier creates a notifier bound to the NOTIFY_SOCKET of the current process.
func NewNotifier(logger logging.Logger) *Notifier {
	return &Notifier{
		notify: daemon.SdNotify,
		watchdog: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
		logger: logger,
	}
}

func (n *Notifier) send(state string) bool {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	return sent
}

// Ready reports that startup finished and starts watchdog pings when the
// unit has WatchdogSec set.
func (n *Notifier) Ready(ctx context.Context) {
	if !n.send(daemon.SdNotifyReady) {
		return
	}
	n.logger.Debug("Notified systemd of readiness")

	interval, err := n.watchdog()
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		return
	}
	ctx, n.cancel = context.WithCancel(ctx)
	n.wg.Add(1)
	// Ping at half the deadline
	go n.keepalive(ctx, interval/2)
	n.logger.Info("Systemd watchdog enabled", "interval", interval)
}

// Status publishes a free-form status line shown by systemctl status.
// Repeating the current line sends nothing.
func (n *Notifier) Status(status string) {
	n.mu.Lock()
	if status == n.lastStatus {
		n.mu.Unlock()
		return
	}
	n.lastStatus = status
	n.mu.Unlock()

	n.send("STATUS=" + status)
}

// ServiceStatus publishes how many catalog services are running.
func (n *Notifier) ServiceStatus(running, total int) {
	n.Status(fmt.Sprintf("%d of %d services running", running, total))
}

// Stopping reports that shutdown began and ends watchdog pings.
func (n *Notifier) Stopping() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.mu.Unlock()
	n.wg.Wait()

	n.send(daemon.SdNotifyStopping)
}

func (n *Notifier) keepalive(ctx context.Context, every time.Duration) {
	defer n.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
