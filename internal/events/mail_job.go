package events

import (
	"errors"
	"fmt"
	"time"
)

const KindPasswordReset = "password_reset"

var ErrMalformedJob = errors.New("malformed mail job")

// MailJob is one email waiting on the mail stream.
type MailJob struct {
	ID        string
	Kind      string
	To        string
	Name      string
	Link      string
	ExpiresAt time.Time
}

func (j *MailJob) fields() map[string]interface{} {
	return map[string]interface{}{
		"kind":       j.Kind,
		"to":         j.To,
		"name":       j.Name,
		"link":       j.Link,
		"expires_at": j.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// DecodeMailJob rebuilds a job from the values of a stream message.
func DecodeMailJob(id string, values map[string]interface{}) (*MailJob, error) {
	get := func(name string) string {
		if v, ok := values[name]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}

	job := &MailJob{
		ID:   id,
		Kind: get("kind"),
		To:   get("to"),
		Name: get("name"),
		Link: get("link"),
	}
	if job.Kind == "" || job.To == "" {
		return nil, fmt.Errorf("%w: message %s has no kind or recipient", ErrMalformedJob, id)
	}

	if raw := get("expires_at"); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: message %s: %v", ErrMalformedJob, id, err)
		}
		job.ExpiresAt = expiresAt
	}

	return job, nil
}

// GiveUpReason says why a job should be dropped instead of sent again, or
// returns "" while it is still worth delivering. deliveries is the stream's
// delivery count for the message; maxDeliveries <= 0 disables that limit.
func (j *MailJob) GiveUpReason(now time.Time, deliveries int64, maxDeliveries int) string {
	if !j.ExpiresAt.IsZero() && !now.Before(j.ExpiresAt) {
		return "link expired at " + j.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if maxDeliveries > 0 && deliveries > int64(maxDeliveries) {
		return fmt.Sprintf("delivered %d times", deliveries)
	}
	return ""
}
