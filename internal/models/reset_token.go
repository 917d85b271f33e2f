package models

import "time"

type PasswordResetToken struct {
	Token     string
	MemberID  string
	ExpiresAt time.Time
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
