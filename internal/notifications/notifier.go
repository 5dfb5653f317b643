package notifications

import (
	"context"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
	"github.com/abhiruchieats/storefront-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// StatusNotification carries what a customer needs to hear about a status change.
type StatusNotification struct {
	CustomerEmail string
	CustomerName  string
	OrderNumber   string
	Status        enums.OrderStatus
	Items         []LineItem
	Total         decimal.Decimal
}

// LineItem is one order line as shown in the email.
type LineItem struct {
	ProductName string
	Quantity    int
	TotalPrice  decimal.Decimal
}

// Notifier delivers order status notifications.
type Notifier interface {
	SendOrderStatus(ctx context.Context, n StatusNotification) error
}

// LogNotifier records notifications in the log instead of sending them.
// It stands in when SMTP is not configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SendOrderStatus(ctx context.Context, msg StatusNotification) error {
	if n == nil || n.logg == nil {
		return nil
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"order_number": msg.OrderNumber,
		"status":       string(msg.Status),
		"to":           msg.CustomerEmail,
		"items":        len(msg.Items),
	})
	n.logg.Info(ctx, "notification.skipped_smtp_disabled")
	return nil
}
