package models

import (
	"strings"
	"time"
)

// Member is a club member. Email and names stay nil until the member completes the profile.
type Member struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Email        *string   `json:"email"`
	FirstName    *string   `json:"first_name"`
	LastName     *string   `json:"last_name"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m *Member) IsProfileComplete() bool {
	return nonEmpty(m.Email) && nonEmpty(m.FirstName) && nonEmpty(m.LastName)
}

// DisplayName is used in emails; it falls back to the member id.
func (m *Member) DisplayName() string {
	if nonEmpty(m.FirstName) {
		return *m.FirstName
	}
	return m.ID
}

// MemberInput is the payload of member creation and updates.
type MemberInput struct {
	ID        string `json:"id"`
	Phone     string `json:"phone" valid:"required"`
	Password  string `json:"password"`
	Email     string `json:"email" valid:"email"`
	FirstName string `json:"first_name" valid:"length(0|100)"`
	LastName  string `json:"last_name" valid:"length(0|100)"`
	IsAdmin   bool   `json:"is_admin"`
}

// Normalize trims every text field.
func (in *MemberInput) Normalize() {
	in.ID = strings.ToUpper(strings.TrimSpace(in.ID))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

type CreatedMember struct {
	MemberID string `json:"member_id"`
	OTP      string `json:"otp,omitempty"`
}

type MemberPage struct {
	Items      []*Member `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

func NewMemberPage(items []*Member, total, page, perPage int) *MemberPage {
	if items == nil {
		items = []*Member{}
	}
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return &MemberPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: pages,
	}
}

// NullableString maps "" to nil so empty optional fields are stored as NULL.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
