// Package mailer sends the transactional emails: the dossier link to the
// lead and the missing-template alert to the sales team.
package mailer

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Sender is who an email appears to come from
type Sender struct {
	Name  string
	Email string
}

type Message struct {
	From    Sender
	To      string
	Subject string
	HTML    string
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	return nil
}

// Client defines the interface shared by every email provider
type Client interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
