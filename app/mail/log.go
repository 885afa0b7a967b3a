package mail

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogMailer records messages instead of delivering them. Used when no
// provider is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, e *Email) (*Receipt, error) {
	id := "<" + uuid.NewString() + "@localhost>"
	m.log.Info("mail not delivered, no provider configured",
		zap.String("id", id),
		zap.Strings("to", e.To),
		zap.String("subject", e.Subject),
	)
	return &Receipt{ID: id, Message: "Logged. No mail provider configured."}, nil
}
