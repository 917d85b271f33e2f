package events

import (
	"context"
	"fmt"
	"time"
)

// Sender delivers one password reset email.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, name, link string, expiresAt time.Time) error
}

// InlineSender publishes by sending right away. It is used when Redis is disabled.
type InlineSender struct {
	sender Sender
}

func NewInlineSender(sender Sender) *InlineSender {
	return &InlineSender{sender: sender}
}

func (s *InlineSender) Publish(ctx context.Context, job *MailJob) error {
	return Dispatch(ctx, s.sender, job)
}

// Dispatch sends a job with the matching sender method.
func Dispatch(ctx context.Context, sender Sender, job *MailJob) error {
	switch job.Kind {
	case KindPasswordReset:
		return sender.SendPasswordReset(ctx, job.To, job.Name, job.Link, job.ExpiresAt)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedJob, job.Kind)
	}
}
