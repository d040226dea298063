package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"time"

	"go.uber.org/zap"
)

// Status classifies the outcome of a delivery attempt.
type Status int

const (
	StatusDelivered Status = iota
	StatusAuthFailed
	StatusRejected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusAuthFailed:
		return "auth_failed"
	case StatusRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Result is the typed outcome of a notification. Err is nil only when delivered.
type Result struct {
	Status Status
	Err    error
}

// Delivered reports whether the message was accepted for delivery.
func (r Result) Delivered() bool {
	return r.Status == StatusDelivered
}

// ContactMessage is a submission of the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Notifier turns site events into emails for the site owner.
type Notifier struct {
	sender    Sender
	recipient string
	timeout   time.Duration
	log       *zap.Logger
}

// NewNotifier creates a Notifier delivering to recipient, giving up after timeout.
func NewNotifier(sender Sender, recipient string, timeout time.Duration, log *zap.Logger) *Notifier {
	return &Notifier{sender: sender, recipient: recipient, timeout: timeout, log: log}
}

// SendContact forwards a contact form submission. Failures are logged and classified, never returned raw.
func (n *Notifier) SendContact(ctx context.Context, m ContactMessage) Result {
	msg := &Message{
		To:      []string{n.recipient},
		ReplyTo: m.Email,
		Subject: "Feedback from " + m.Name,
		Text:    fmt.Sprintf("Name: %s\nEmail Id: %s\nPhone no: %s\nMessage:%s", m.Name, m.Email, m.Phone, m.Message),
	}
	if n.recipient == "" {
		return n.fail(Result{Status: StatusFailed, Err: fmt.Errorf("%w: no contact recipient", ErrNotConfigured)})
	}
	if n.sender == nil {
		return n.fail(Result{Status: StatusFailed, Err: ErrNotConfigured})
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return n.fail(Result{Status: Classify(err), Err: err})
	}
	return Result{Status: StatusDelivered}
}

func (n *Notifier) fail(r Result) Result {
	switch r.Status {
	case StatusAuthFailed:
		n.log.Error("contact mail: authentication failed, check the mail credentials", zap.Error(r.Err))
	case StatusRejected:
		n.log.Error("contact mail: server rejected the message", zap.Error(r.Err))
	default:
		n.log.Error("contact mail: delivery failed", zap.Error(r.Err))
	}
	return r
}

// Classify maps a delivery error to a Status using the SMTP reply code when one is present.
func Classify(err error) Status {
	if err == nil {
		return StatusDelivered
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		switch {
		case tp.Code == 530 || tp.Code == 534 || tp.Code == 535:
			return StatusAuthFailed
		case tp.Code >= 400:
			return StatusRejected
		}
	}
	return StatusFailed
}
