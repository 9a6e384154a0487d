package local

import (
	"context"

	"github.com/conneroisu/syllabus/internal/logging"
)

// Message is an emailed action link.
type Message struct {
	To     string
	Action string
	Code   string
	Link   string
}

// Mailer delivers action links.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes action links to the log instead of sending mail. It is
// the default for development.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogMailer{logger: logger.WithComponent("mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "Action link issued", "to", msg.To, "action", msg.Action, "link", msg.Link)
	return nil
}
