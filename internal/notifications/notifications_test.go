package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/abhiruchieats/storefront-api/pkg/metrics"
)

func sampleNotification(status enums.OrderStatus) StatusNotification {
	return StatusNotification{
		CustomerEmail: "priya@example.com",
		CustomerName:  "Priya",
		OrderNumber:   "AE-01J0000000-ABCDEF",
		Status:        status,
		Items: []LineItem{
			{ProductName: "Mango Pickle", Quantity: 2, TotalPrice: decimal.RequireFromString("598")},
			{ProductName: "Samosas", Quantity: 1, TotalPrice: decimal.RequireFromString("199")},
		},
		Total: decimal.RequireFromString("836.85"),
	}
}

func TestSubjectPerStatus(t *testing.T) {
	cases := map[enums.OrderStatus]string{
		enums.OrderStatusPending:   "Order Received - AE-1",
		enums.OrderStatusConfirmed: "Order Confirmed - AE-1",
		enums.OrderStatusPreparing: "Order Being Prepared - AE-1",
		enums.OrderStatusReady:     "Order Ready for Pickup - AE-1",
		enums.OrderStatusDelivered: "Order Delivered - AE-1",
		enums.OrderStatusCancelled: "Order Cancelled - AE-1",
		enums.OrderStatus("lost"):  "Order Received - AE-1",
	}
	for status, want := range cases {
		if got := Subject(status, "AE-1"); got != want {
			t.Fatalf("status %q: expected %q got %q", status, want, got)
		}
	}
}

func TestRenderIncludesLinesAndSections(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	subject, html, err := Render(sampleNotification(enums.OrderStatusReady), now)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Order Ready for Pickup - AE-01J0000000-ABCDEF" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Mango Pickle (x2)", "598.00", "199.00", "Dear Priya", "Pickup Information", "14 Mar 2026", "#8b5cf6"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected html to contain %q", want)
		}
	}
	if strings.Contains(html, "Rate Your Experience") {
		t.Fatal("feedback section only belongs to delivered emails")
	}

	_, delivered, err := Render(sampleNotification(enums.OrderStatusDelivered), now)
	if err != nil {
		t.Fatalf("render delivered: %v", err)
	}
	if !strings.Contains(delivered, "Rate Your Experience") || strings.Contains(delivered, "Pickup Information") {
		t.Fatal("delivered email should carry feedback but not pickup copy")
	}
}

func TestRenderEscapesCustomerInput(t *testing.T) {
	n := sampleNotification(enums.OrderStatusConfirmed)
	n.CustomerName = "<script>alert(1)</script>"
	_, html, err := Render(n, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("customer name must be escaped")
	}
}

func TestNewMailerRequiresCredentials(t *testing.T) {
	if _, err := NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewMailer(config.SMTPConfig{Host: "smtp.example.com", User: "u", Password: "p"}); err == nil {
		t.Fatal("expected error without port")
	}
}

func TestMailerBuildsMessage(t *testing.T) {
	m, err := NewMailer(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "orders@abhiruchieats.com",
		Password: "secret",
		FromName: "AbhiruchiEats",
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	var gotFrom, gotTo string
	var gotMsg []byte
	m.deliver = func(_ context.Context, from, to string, msg []byte) error {
		gotFrom, gotTo, gotMsg = from, to, msg
		return nil
	}

	if err := m.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusConfirmed)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotFrom != "orders@abhiruchieats.com" || gotTo != "priya@example.com" {
		t.Fatalf("unexpected envelope %s -> %s", gotFrom, gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{
		"From: \"AbhiruchiEats\" <orders@abhiruchieats.com>\r\n",
		"To: priya@example.com\r\n",
		"Subject: Order Confirmed - AE-01J0000000-ABCDEF\r\n",
		"Content-Type: text/html; charset=\"utf-8\"\r\n",
		"@abhiruchieats.com>\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected message to contain %q", want)
		}
	}
}

func TestMailerRejectsBadRecipient(t *testing.T) {
	m, err := NewMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u@example.com", Password: "p"})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	called := false
	m.deliver = func(context.Context, string, string, []byte) error {
		called = true
		return nil
	}
	n := sampleNotification(enums.OrderStatusPending)
	n.CustomerEmail = "not-an-address"
	if err := m.SendOrderStatus(context.Background(), n); err == nil {
		t.Fatal("expected invalid recipient error")
	}
	if called {
		t.Fatal("nothing should be delivered for a bad recipient")
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []StatusNotification
	err   error
	block bool
}

func (r *recordingNotifier) SendOrderStatus(ctx context.Context, n StatusNotification) error {
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func sendsByResult(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "notification_sends_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestDispatcherDeliversAfterCallerCancels(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := &recordingNotifier{}
	d, err := NewDispatcher(next, config.NotificationsConfig{Workers: 2, QueueSize: 4, SendTimeout: time.Second}, metrics.NewNotificationMetrics(reg), nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	d.Start()

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.SendOrderStatus(ctx, sampleNotification(enums.OrderStatusConfirmed)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	cancel()

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if next.count() != 1 {
		t.Fatalf("expected 1 delivery, got %d", next.count())
	}
	if got := sendsByResult(t, reg, metrics.ResultSuccess); got != 1 {
		t.Fatalf("expected 1 success, got %f", got)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := &recordingNotifier{}
	d, err := NewDispatcher(next, config.NotificationsConfig{Workers: 1, QueueSize: 1, SendTimeout: time.Second}, metrics.NewNotificationMetrics(reg), nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	// Workers are not started so the queue cannot drain.
	if err := d.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusPending)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := d.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusPending)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if got := sendsByResult(t, reg, metrics.ResultDropped); got != 1 {
		t.Fatalf("expected 1 dropped, got %f", got)
	}

	d.Start()
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if next.count() != 1 {
		t.Fatalf("expected queued notification to drain, got %d", next.count())
	}
	if err := d.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusPending)); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestDispatcherCountsFailuresAndTimeouts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewNotificationMetrics(reg)

	failing := &recordingNotifier{err: errors.New("smtp down")}
	d, err := NewDispatcher(failing, config.NotificationsConfig{Workers: 1, QueueSize: 2, SendTimeout: time.Second}, m, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	d.Start()
	_ = d.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusCancelled))
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	slow := &recordingNotifier{block: true}
	d2, err := NewDispatcher(slow, config.NotificationsConfig{Workers: 1, QueueSize: 2, SendTimeout: 20 * time.Millisecond}, m, nil)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	d2.Start()
	_ = d2.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusReady))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d2.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := sendsByResult(t, reg, metrics.ResultFailure); got != 2 {
		t.Fatalf("expected 2 failures, got %f", got)
	}
}

func TestLogNotifierIsNilSafe(t *testing.T) {
	var n *LogNotifier
	if err := n.SendOrderStatus(context.Background(), sampleNotification(enums.OrderStatusPending)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
