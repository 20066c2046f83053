// Package mail implements the queue engine's messaging gateway over SMTP,
// plus the HTML templates for the booking confirmation and the "you're
// next" notification.
package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/queue"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPGateway sends mail through an SMTP server. Implements queue.Gateway.
type SMTPGateway struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPGateway(cfg Config) *SMTPGateway {
	return &SMTPGateway{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers one HTML message. The SMTP protocol has no message id
// handshake, so a local uuid identifies the send in logs.
func (g *SMTPGateway) Send(ctx context.Context, to, subject, htmlBody string) (queue.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return queue.SendResult{}, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := g.dialer.DialAndSend(m); err != nil {
		return queue.SendResult{}, fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return queue.SendResult{MessageID: uuid.New().String()}, nil
}

// LogGateway is the development-mode gateway: it logs the message instead of
// sending it, so the service can run without SMTP credentials.
type LogGateway struct {
	logger zerolog.Logger
}

func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "mail").Logger()}
}

func (g *LogGateway) Send(_ context.Context, to, subject, _ string) (queue.SendResult, error) {
	id := uuid.New().String()
	g.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("message_id", id).
		Msg("mail send skipped (development mode)")
	return queue.SendResult{MessageID: id}, nil
}

// Call records a single Send invocation on the mock gateway.
type Call struct {
	To      string
	Subject string
	Body    string
}

// MockGateway is a test double that records sends and can be told to fail.
type MockGateway struct {
	mu         sync.Mutex
	calls      []Call
	ShouldFail bool
	FailError  string
}

func (m *MockGateway) Send(_ context.Context, to, subject, body string) (queue.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return queue.SendResult{}, fmt.Errorf("%s", m.FailError)
	}
	return queue.SendResult{MessageID: uuid.New().String()}, nil
}

// Calls returns a copy of recorded sends.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
