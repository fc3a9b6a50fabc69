package enforcement

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/metrics"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/notify"
	"github.com/kestrelsec/aegis/internal/store"
)

// Prober checks whether an endpoint is reachable.
type Prober interface {
	Probe(ctx context.Context, ep models.Endpoint) bool
}

// PingProber probes liveness with a single ICMP echo, using the flag style of
// the endpoint's OS family.
type PingProber struct {
	Timeout time.Duration
}

// Probe returns true when the endpoint answers one ping inside the timeout.
func (p PingProber) Probe(ctx context.Context, ep models.Endpoint) bool {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if ep.IsWindows() {
		cmd = exec.CommandContext(ctx, "ping", "-n", "1", "-w",
			strconv.FormatInt(timeout.Milliseconds(), 10), ep.Address())
	} else {
		cmd = exec.CommandContext(ctx, "ping", "-c", "1", "-W",
			strconv.FormatInt(int64(timeout.Seconds()+0.5), 10), ep.Address())
	}

	return cmd.Run() == nil
}

// Monitor tracks endpoint liveness. It only ever demotes endpoints
// ONLINE -> OFFLINE; recovery is owned by external provisioning.
type Monitor struct {
	endpoints *store.EndpointStore
	prober    Prober
	notifier  *notify.Service

	interval time.Duration
	backoff  time.Duration

	log *logrus.Entry
}

// NewMonitor wires an endpoint monitor. notifier may be nil.
func NewMonitor(endpoints *store.EndpointStore, prober Prober, notifier *notify.Service,
	interval, backoff time.Duration) *Monitor {
	return &Monitor{
		endpoints: endpoints,
		prober:    prober,
		notifier:  notifier,
		interval:  interval,
		backoff:   backoff,
		log:       logger.WithComponent("endpoint-monitor"),
	}
}

// Run polls endpoint liveness until ctx is cancelled. Errors back the loop
// off without terminating it.
func (m *Monitor) Run(ctx context.Context) {
	m.log.WithField("interval", m.interval).Info("endpoint monitor started")
	for {
		delay := m.interval
		if err := m.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			m.log.WithError(err).Error("endpoint poll failed; backing off")
			delay = m.backoff
		}

		if !sleep(ctx, delay) {
			break
		}
	}
	m.log.Info("endpoint monitor stopped")
}

// runOnce probes every ONLINE endpoint and demotes the unreachable ones.
func (m *Monitor) runOnce(ctx context.Context) error {
	online, err := m.endpoints.ListByStatus(ctx, models.EndpointOnline)
	if err != nil {
		return fmt.Errorf("list online endpoints: %w", err)
	}

	for _, ep := range online {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if m.prober.Probe(ctx, ep) {
			if err := m.endpoints.TouchCheck(ctx, ep.ID); err != nil {
				return fmt.Errorf("record probe for %s: %w", ep.Hostname, err)
			}
			continue
		}

		m.log.WithField("hostname", ep.Hostname).Warn("endpoint unreachable, marking offline")
		if err := m.endpoints.MarkOffline(ctx, ep.ID); err != nil {
			return fmt.Errorf("mark %s offline: %w", ep.Hostname, err)
		}
		if m.notifier != nil {
			if _, err := m.notifier.Notify(models.NotificationTypeError, "Endpoint offline",
				fmt.Sprintf("endpoint %s (%s) is unreachable", ep.Hostname, ep.Address())); err != nil {
				m.log.WithError(err).Warn("operator notification failed")
			}
		}
	}

	if offline, err := m.endpoints.CountByStatus(ctx, models.EndpointOffline); err == nil {
		metrics.SetEndpointsOffline(float64(offline))
	}
	return nil
}
