package notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/abhiruchieats/storefront-api/pkg/config"
	"github.com/google/uuid"
)

// deliverFunc hands a fully formed message to the mail server.
type deliverFunc func(ctx context.Context, from string, to string, msg []byte) error

// Mailer renders order status emails and sends them over SMTP.
type Mailer struct {
	cfg     config.SMTPConfig
	deliver deliverFunc
	now     func() time.Time
}

func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host, user and password are required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	m := &Mailer{cfg: cfg, now: time.Now}
	m.deliver = m.sendSMTP
	return m, nil
}

func (m *Mailer) SendOrderStatus(ctx context.Context, n StatusNotification) error {
	to := strings.TrimSpace(n.CustomerEmail)
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	subject, body, err := Render(n, m.now())
	if err != nil {
		return err
	}

	from := m.cfg.Sender()
	msg := buildMessage(m.cfg.FromName, from, to, subject, body, m.now())
	if err := m.deliver(ctx, from, to, msg); err != nil {
		return fmt.Errorf("send order status email: %w", err)
	}
	return nil
}

func buildMessage(fromName, from, to, subject, html string, now time.Time) []byte {
	sender := (&mail.Address{Name: fromName, Address: from}).String()
	domain := "abhiruchieats.local"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		domain = from[at+1:]
	}

	var b strings.Builder
	b.WriteString("From: " + sender + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: <" + uuid.NewString() + "@" + domain + ">\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(html, "\n", "\r\n"))
	return []byte(b.String())
}

func (m *Mailer) sendSMTP(ctx context.Context, from string, to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}
