package mail

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("mail recipient cannot be empty")

// Mailer delivers one message with a plain text body and an HTML alternative.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Message is the wire form of a queued email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}
