package notify

import (
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mailer delivers notification emails over SMTP.  When no SMTP host is
// configured it appends a structured line to logs/notifications.log
// instead, which keeps local development observable without a relay.
type Mailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
	log  *zap.Logger
}

func NewMailer(host, port, user, pass, from string, log *zap.Logger) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Pass: pass, From: from, log: log}
}

// SendTicketConfirmation mails a registration confirmation with the QR
// code inlined as a data URL image.
func (m *Mailer) SendTicketConfirmation(ev TicketConfirmedEvent) error {
	subject := "Ticket Confirmation - " + ev.EventTitle
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Ticket Confirmation</h2>")
	fmt.Fprintf(&b, "<p>Dear %s,</p>", ev.AttendeeName)
	fmt.Fprintf(&b, "<p>Thank you for registering for <strong>%s</strong>!</p>", ev.EventTitle)
	fmt.Fprintf(&b, "<p><strong>Date:</strong> %s<br><strong>Location:</strong> %s<br><strong>Ticket ID:</strong> %s</p>",
		ev.StartDate, ev.EventLocation, ev.TicketCode)
	fmt.Fprintf(&b, `<p><img src=%q alt="QR Code"></p>`, ev.QRCode)
	fmt.Fprintf(&b, "<p>Please present this QR code at the venue for check-in.</p>")
	return m.send([]string{ev.AttendeeEmail}, subject, b.String())
}

// SendEventCancellation mails a cancellation notice to every confirmed
// attendee.
func (m *Mailer) SendEventCancellation(ev EventCancelledEvent) error {
	if len(ev.Emails) == 0 {
		return nil
	}
	subject := "Event Cancelled: " + ev.EventTitle
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Event Cancellation Notice</h2>")
	fmt.Fprintf(&b, "<p>We regret to inform you that the following event has been cancelled:</p>")
	fmt.Fprintf(&b, "<p><strong>%s</strong><br>Date: %s<br>Location: %s</p>", ev.EventTitle, ev.StartDate, ev.Location)
	fmt.Fprintf(&b, "<p>We sincerely apologize for any inconvenience this may cause.</p>")
	return m.send(ev.Emails, subject, b.String())
}

func (m *Mailer) send(to []string, subject, htmlBody string) error {
	if m.Host == "" {
		return m.appendToLog(to, subject)
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + strings.Join(to, ","),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// appendToLog records the would-be delivery when SMTP is not configured.
func (m *Mailer) appendToLog(to []string, subject string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] to=%s subject=%q\n",
		time.Now().UTC().Format(time.RFC3339), strings.Join(to, ","), subject)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write notification log: %w", err)
	}
	m.log.Info("notification recorded", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}
