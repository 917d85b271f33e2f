package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/idgen"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/qrcode"
	"github.com/Varun5711/clubhouse/internal/storage"
	"github.com/Varun5711/clubhouse/internal/validation"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	memberIDAttempts = 5
)

type MemberService struct {
	store storage.MemberStore
	log   *logger.Logger
}

func NewMemberService(store storage.MemberStore, log *logger.Logger) *MemberService {
	return &MemberService{
		store: store,
		log:   log.With("member"),
	}
}

// MemberCard is what the club door scanner reads.
type MemberCard struct {
	MemberID string `json:"member_id"`
	QRCode   string `json:"qr_code"`
}

func (s *MemberService) Create(ctx context.Context, in *models.MemberInput, actor *Actor) (*models.CreatedMember, error) {
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		return nil, invalidInput(err)
	}

	member, err := s.profileFromInput(in)
	if err != nil {
		return nil, err
	}
	member.IsAdmin = in.IsAdmin && actor.admin()

	created := &models.CreatedMember{}
	password := in.Password
	if password == "" {
		otp, err := idgen.NewOTP()
		if err != nil {
			return nil, err
		}
		password = otp
		created.OTP = otp
	} else if err := validation.ValidatePassword(password); err != nil {
		return nil, invalidInput(err)
	}

	member.PasswordHash, err = auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if in.ID != "" {
		if err := validation.ValidateMemberID(in.ID); err != nil {
			return nil, invalidInput(err)
		}
		member.ID = in.ID
		if err := s.store.CreateMember(ctx, member); err != nil {
			return nil, storeError("create member", err)
		}
	} else if err := s.createWithGeneratedID(ctx, member); err != nil {
		return nil, err
	}

	s.log.Info("Member %s created (admin=%t)", member.ID, member.IsAdmin)
	created.MemberID = member.ID
	return created, nil
}

// createWithGeneratedID retries when the insert hits the primary key. Other
// unique violations are reported.
func (s *MemberService) createWithGeneratedID(ctx context.Context, member *models.Member) error {
	for attempt := 0; attempt < memberIDAttempts; attempt++ {
		id, err := idgen.NewMemberID()
		if err != nil {
			return err
		}

		member.ID = id
		err = s.store.CreateMember(ctx, member)
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.log.Debug("Generated member id %s already taken, retrying", id)
			continue
		}
		if err != nil {
			return storeError("create member", err)
		}
		return nil
	}
	return errors.New("failed to generate a free member id")
}

func (s *MemberService) profileFromInput(in *models.MemberInput) (*models.Member, error) {
	phone := validation.NormalizePhone(in.Phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, invalidInput(err)
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, invalidInput(err)
		}
	}

	return &models.Member{
		ID:        in.ID,
		Phone:     phone,
		Email:     models.NullableString(strings.ToLower(in.Email)),
		FirstName: models.NullableString(in.FirstName),
		LastName:  models.NullableString(in.LastName),
	}, nil
}

func (s *MemberService) Get(ctx context.Context, id string, actor *Actor) (*models.Member, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !actor.CanAccess(id) {
		return nil, ErrForbidden
	}

	member, err := s.store.GetMemberByID(ctx, id)
	if err != nil {
		return nil, storeError("get member", err)
	}
	if member == nil {
		return nil, ErrNotFound
	}
	return member, nil
}

func (s *MemberService) List(ctx context.Context, page, perPage int, search string) (*models.MemberPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	items, total, err := s.store.ListMembers(ctx, storage.ListMembersParams{
		Limit:  perPage,
		Offset: (page - 1) * perPage,
		Search: search,
	})
	if err != nil {
		return nil, storeError("list members", err)
	}

	return models.NewMemberPage(items, total, page, perPage), nil
}

// Update replaces the profile fields. Only admins change the admin flag.
func (s *MemberService) Update(ctx context.Context, in *models.MemberInput, actor *Actor) error {
	member, err := s.prepareUpdate(ctx, in, actor)
	if err != nil {
		return err
	}

	ok, err := s.store.UpdateMember(ctx, member)
	if err != nil {
		return storeError("update member", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemberService) UpdateWithPassword(ctx context.Context, in *models.MemberInput, actor *Actor) error {
	if err := validation.ValidatePassword(in.Password); err != nil {
		return invalidInput(err)
	}

	member, err := s.prepareUpdate(ctx, in, actor)
	if err != nil {
		return err
	}

	member.PasswordHash, err = auth.HashPassword(in.Password)
	if err != nil {
		return err
	}

	ok, err := s.store.UpdateMemberWithPassword(ctx, member)
	if err != nil {
		return storeError("update member", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *MemberService) prepareUpdate(ctx context.Context, in *models.MemberInput, actor *Actor) (*models.Member, error) {
	in.Normalize()
	if in.ID == "" {
		return nil, invalidInput(errors.New("id is required"))
	}
	if !actor.CanAccess(in.ID) {
		return nil, ErrForbidden
	}
	if err := validation.Struct(in); err != nil {
		return nil, invalidInput(err)
	}

	existing, err := s.store.GetMemberByID(ctx, in.ID)
	if err != nil {
		return nil, storeError("get member", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	member, err := s.profileFromInput(in)
	if err != nil {
		return nil, err
	}
	member.IsAdmin = existing.IsAdmin
	if actor.admin() {
		member.IsAdmin = in.IsAdmin
	}
	return member, nil
}

func (s *MemberService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeleteMember(ctx, strings.ToUpper(id))
	if err != nil {
		return storeError("delete member", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.log.Info("Member %s deleted", id)
	return nil
}

func (s *MemberService) ChangePassword(ctx context.Context, id, current, next string) error {
	if err := validation.ValidatePassword(next); err != nil {
		return invalidInput(err)
	}

	member, err := s.store.GetMemberByID(ctx, id)
	if err != nil {
		return storeError("get member", err)
	}
	if member == nil {
		return ErrNotFound
	}

	if err := auth.CheckPassword(member.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrMismatchedPassword) {
			return ErrWrongCredentials
		}
		return err
	}
	if current == next {
		return ErrPasswordUnchanged
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}

	ok, err := s.store.UpdatePassword(ctx, id, hash)
	if err != nil {
		return storeError("update password", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.log.Info("Member %s changed password", id)
	return nil
}

func (s *MemberService) Card(ctx context.Context, id string, actor *Actor) (*MemberCard, error) {
	member, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	code, err := qrcode.GenerateQRCode(member.ID)
	if err != nil {
		return nil, err
	}

	return &MemberCard{MemberID: member.ID, QRCode: code}, nil
}
