package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/abhiruchieats/storefront-api/pkg/metrics"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

type job struct {
	ctx context.Context
	msg StatusNotification
}

// Dispatcher sends notifications on a bounded queue drained by a fixed worker
// pool. Sends outlive the request that queued them but not SendTimeout.
type Dispatcher struct {
	next    Notifier
	queue   chan job
	workers int
	timeout time.Duration
	metrics *metrics.NotificationMetrics
	logg    *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	group   errgroup.Group
}

func NewDispatcher(next Notifier, cfg config.NotificationsConfig, m *metrics.NotificationMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if next == nil {
		return nil, fmt.Errorf("notifier required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		next:    next,
		queue:   make(chan job, size),
		workers: workers,
		timeout: timeout,
		metrics: m,
		logg:    logg,
	}, nil
}

// Start launches the workers. Calling it again is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.group.Go(d.work)
	}
}

// SendOrderStatus queues the notification without blocking.
func (d *Dispatcher) SendOrderStatus(ctx context.Context, msg StatusNotification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		return nil
	default:
		d.metrics.Inc(metrics.ResultDropped)
		return ErrQueueFull
	}
}

// Shutdown stops accepting work and waits for queued sends to drain.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) work() error {
	for j := range d.queue {
		d.deliver(j)
	}
	return nil
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	err := d.next.SendOrderStatus(ctx, j.msg)
	if err != nil {
		d.metrics.Inc(metrics.ResultFailure)
		if d.logg != nil {
			logCtx := d.logg.WithFields(ctx, map[string]any{
				"order_number": j.msg.OrderNumber,
				"status":       string(j.msg.Status),
			})
			d.logg.Error(logCtx, "notification.send_failed", err)
		}
		return
	}
	d.metrics.Inc(metrics.ResultSuccess)
	if d.logg != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"order_number": j.msg.OrderNumber,
			"status":       string(j.msg.Status),
		})
		d.logg.Info(logCtx, "notification.sent")
	}
}
