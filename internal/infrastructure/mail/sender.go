package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// Sender delivers a rendered notification.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LogSender writes notifications to the log instead of mailing them. It is
// used when no SMTP host is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.log.Info().
		Str("kind", string(n.Kind)).
		Str("to", n.To).
		Str("subject", n.Subject).
		Str("body", n.Body).
		Msg("notification (smtp disabled)")
	return nil
}
