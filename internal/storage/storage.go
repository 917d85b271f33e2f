package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/clubhouse/internal/models"
)

var (
	ErrDuplicate     = errors.New("duplicate entry")
	ErrDuplicateKey  = fmt.Errorf("%w: primary key", ErrDuplicate)
	ErrForeignKey    = errors.New("foreign key constraint violation")
	ErrSlotTaken     = errors.New("court already reserved for this slot")
	ErrTokenNotFound = errors.New("reset token not found")
	ErrTokenExpired  = errors.New("reset token expired")
)

// ListMembersParams selects one page of members. Search matches id, phone,
// email and names case-insensitively.
type ListMembersParams struct {
	Limit  int
	Offset int
	Search string
}

type MemberStore interface {
	CreateMember(ctx context.Context, member *models.Member) error
	GetMemberByID(ctx context.Context, id string) (*models.Member, error)
	GetMemberByPhone(ctx context.Context, phone string) (*models.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*models.Member, error)
	ListMembers(ctx context.Context, params ListMembersParams) ([]*models.Member, int, error)
	UpdateMember(ctx context.Context, member *models.Member) (bool, error)
	UpdateMemberWithPassword(ctx context.Context, member *models.Member) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error)
	DeleteMember(ctx context.Context, id string) (bool, error)
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListPlanning(ctx context.Context, date time.Time) ([]*models.PlanningEntry, error)
	ListReservationsByMember(ctx context.Context, memberID string) ([]*models.Reservation, error)
	UpdateReservation(ctx context.Context, reservation *models.Reservation) (bool, error)
	DeleteReservation(ctx context.Context, id string) (bool, error)
	AddReservationMember(ctx context.Context, reservationID, memberID string) error
	RemoveReservationMember(ctx context.Context, reservationID, memberID string) (bool, error)
}

type AddressStore interface {
	CreateAddress(ctx context.Context, address *models.Address) error
	GetAddressByMember(ctx context.Context, memberID string) (*models.Address, error)
	UpdateAddressByMember(ctx context.Context, address *models.Address) (bool, error)
	DeleteAddressByMember(ctx context.Context, memberID string) (bool, error)
}

type ResetTokenStore interface {
	// CreateResetToken replaces any earlier token of the member.
	CreateResetToken(ctx context.Context, memberID string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// ConsumeResetToken deletes the token and stores the new password hash atomically.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (string, error)
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Store is everything the API needs from persistence.
type Store interface {
	MemberStore
	ReservationStore
	AddressStore
	ResetTokenStore
}
