package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/tripbuddy/tripbuddy-api/internal/platform/logger"
)

// MailerConfig holds the SMTP settings for outcome mail delivery.
type MailerConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string

	// AppBaseURL is the public frontend origin the mail links back to,
	// e.g. https://tripbuddy.example.com.
	AppBaseURL string
}

// Mailer is an SMTP implementation of the Notifier interface. It sends a
// small HTML mail with a link back to the trip page.
type Mailer struct {
	cfg    MailerConfig
	logger *slog.Logger

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates a new SMTP mailer.
func NewMailer(cfg MailerConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "mailer")),
		send:   smtp.SendMail,
	}
}

// Ensure Mailer implements Notifier
var _ Notifier = (*Mailer)(nil)

// Notify implements Notifier.Notify by sending an outcome mail over SMTP.
func (m *Mailer) Notify(ctx context.Context, msg Message) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	if m.cfg.Username == "" || m.cfg.Password == "" {
		return fmt.Errorf("mail credentials not configured")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	subject := m.subject(msg)
	body := m.body(msg)

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.FromEmail)
	fmt.Fprintf(&sb, "To: %s\r\n", msg.To)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	if err := m.send(addr, auth, m.cfg.FromEmail, []string{msg.To}, []byte(sb.String())); err != nil {
		log.Error("failed to send outcome mail",
			slog.String("error", err.Error()),
			slog.String("trip_id", msg.TripID.String()),
			slog.String("outcome", string(msg.Outcome)))
		return fmt.Errorf("failed to send outcome mail: %w", err)
	}

	log.Info("outcome mail sent",
		slog.String("trip_id", msg.TripID.String()),
		slog.String("outcome", string(msg.Outcome)))
	return nil
}

func (m *Mailer) subject(msg Message) string {
	if msg.Outcome == OutcomeCompleted {
		return fmt.Sprintf("Your itinerary for %s is ready!", msg.TripName)
	}
	return fmt.Sprintf("Itinerary generation for %s failed", msg.TripName)
}

func (m *Mailer) body(msg Message) string {
	tripURL := fmt.Sprintf("%s/trip/%s", strings.TrimRight(m.cfg.AppBaseURL, "/"), msg.TripID)

	if msg.Outcome == OutcomeCompleted {
		return fmt.Sprintf(`<div style="font-family:Arial, sans-serif; color:#333;">
<h2>Your Trip Itinerary is Ready</h2>
<p>Hey there! Your itinerary for <b>%s</b> has been successfully created.</p>
<p>Click below to view your detailed plan:</p>
<p><a href="%s" style="background:#2563eb;color:white;padding:10px 20px;border-radius:6px;text-decoration:none;">View Itinerary</a></p>
<p>Happy travels,<br/>The TripBuddy Team</p>
</div>`, msg.TripName, tripURL)
	}

	return fmt.Sprintf(`<div style="font-family:Arial, sans-serif; color:#333;">
<h2>Itinerary Generation Failed</h2>
<p>We couldn't generate your itinerary for <b>%s</b>.</p>
<p>You can retry it anytime from your trip page.</p>
<p><a href="%s" style="background:#2563eb;color:white;padding:10px 20px;border-radius:6px;text-decoration:none;">View Trip</a></p>
<p>Happy travels,<br/>The TripBuddy Team</p>
</div>`, msg.TripName, tripURL)
}
