package mail

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

type Email struct {
	Subject string
	Name    string
	HTML    string
	Text    string
	To      []string
}

// Receipt is the provider metadata for an accepted message.
type Receipt struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type Mailer interface {
	Send(ctx context.Context, e *Email) (*Receipt, error)
}

type Mailgun struct {
	from string
	mg   *mailgun.MailgunImpl
}

func NewMailer(domain, apiKey, apiBase, from string) *Mailgun {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}

	return &Mailgun{
		from: from,
		mg:   mg,
	}
}

func (m *Mailgun) Send(ctx context.Context, e *Email) (*Receipt, error) {
	message := m.mg.NewMessage(m.from, e.Subject, e.Text, e.To...)
	if e.HTML != "" {
		message.SetHtml(e.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return nil, err
	}

	return &Receipt{ID: id, Message: resp}, nil
}
