package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/abhiruchieats/storefront-api/pkg/enums"
)

type statusCopy struct {
	Subject string
	Title   string
	Message string
	Color   string
}

var statusCopies = map[enums.OrderStatus]statusCopy{
	enums.OrderStatusPending: {
		Subject: "Order Received - %s",
		Title:   "Order Received!",
		Message: "Thank you for your order! We have received your order and will process it soon.",
		Color:   "#f59e0b",
	},
	enums.OrderStatusConfirmed: {
		Subject: "Order Confirmed - %s",
		Title:   "Order Confirmed!",
		Message: "Great news! Your order has been confirmed and we are preparing it for you.",
		Color:   "#3b82f6",
	},
	enums.OrderStatusPreparing: {
		Subject: "Order Being Prepared - %s",
		Title:   "Order in Kitchen!",
		Message: "Our chefs are now preparing your delicious order with love and care.",
		Color:   "#f97316",
	},
	enums.OrderStatusReady: {
		Subject: "Order Ready for Pickup - %s",
		Title:   "Order Ready!",
		Message: "Your order is ready for pickup! Please collect it at your earliest convenience.",
		Color:   "#8b5cf6",
	},
	enums.OrderStatusDelivered: {
		Subject: "Order Delivered - %s",
		Title:   "Order Delivered!",
		Message: "Your order has been successfully delivered. Thank you for choosing AbhiruchiEats!",
		Color:   "#10b981",
	},
	enums.OrderStatusCancelled: {
		Subject: "Order Cancelled - %s",
		Title:   "Order Cancelled",
		Message: "Your order has been cancelled. If you have any questions, please contact our support team.",
		Color:   "#ef4444",
	},
}

// copyFor falls back to the pending copy for unknown statuses.
func copyFor(status enums.OrderStatus) statusCopy {
	if c, ok := statusCopies[status]; ok {
		return c
	}
	return statusCopies[enums.OrderStatusPending]
}

// Subject returns the email subject line for the status.
func Subject(status enums.OrderStatus, orderNumber string) string {
	return fmt.Sprintf(copyFor(status).Subject, orderNumber)
}

var emailTemplate = template.Must(template.New("order_status").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: 'Segoe UI', Tahoma, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #16a34a;">AbhiruchiEats</h2>
  <h1>{{.Title}}</h1>
  <p style="display: inline-block; padding: 8px 20px; border-radius: 20px; color: #fff; background-color: {{.Color}};">{{.StatusLabel}}</p>
  <p>Dear {{.CustomerName}},</p>
  <p>{{.Message}}</p>
  <h3>Order Details</h3>
  <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
  <p><strong>Status:</strong> {{.StatusLabel}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <h3>Order Items</h3>
  <table style="width: 100%;">
  {{- range .Items}}
    <tr><td>{{.ProductName}} (x{{.Quantity}})</td><td style="text-align: right;">&#8377;{{.TotalPrice.StringFixed 2}}</td></tr>
  {{- end}}
  </table>
  {{- if .ShowPickup}}
  <h4>Pickup Information</h4>
  <p>Please visit our store to collect your order. Don't forget to bring your order number!</p>
  {{- end}}
  {{- if .ShowFeedback}}
  <h4>Rate Your Experience</h4>
  <p>We hope you enjoyed your meal! Your feedback helps us serve you better.</p>
  {{- end}}
  <p>Thank you for choosing AbhiruchiEats!</p>
  <p>For any questions, contact us at support@abhiruchieats.com</p>
  <p style="font-size: 12px; color: #9ca3af;">This is an automated email. Please do not reply to this email.</p>
</body>
</html>`))

type emailView struct {
	Subject      string
	Title        string
	Message      string
	Color        template.CSS
	StatusLabel  string
	CustomerName string
	OrderNumber  string
	Date         string
	Items        []LineItem
	ShowPickup   bool
	ShowFeedback bool
}

// Render builds the subject and HTML body for a notification.
func Render(n StatusNotification, now time.Time) (string, string, error) {
	c := copyFor(n.Status)
	view := emailView{
		Subject:      Subject(n.Status, n.OrderNumber),
		Title:        c.Title,
		Message:      c.Message,
		Color:        template.CSS(c.Color),
		StatusLabel:  statusLabel(n.Status),
		CustomerName: n.CustomerName,
		OrderNumber:  n.OrderNumber,
		Date:         now.Format("02 Jan 2006"),
		Items:        n.Items,
		ShowPickup:   n.Status == enums.OrderStatusReady,
		ShowFeedback: n.Status == enums.OrderStatusDelivered,
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render order status email: %w", err)
	}
	return view.Subject, buf.String(), nil
}

func statusLabel(status enums.OrderStatus) string {
	s := string(status)
	if s == "" {
		s = string(enums.OrderStatusPending)
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
