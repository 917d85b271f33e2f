package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Varun5711/clubhouse/internal/cache"
	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/storage"
	"github.com/Varun5711/clubhouse/internal/validation"
	"github.com/google/uuid"
)

type ReservationService struct {
	store storage.ReservationStore
	cache *cache.Cache
	club  config.ClubConfig
	log   *logger.Logger
}

func NewReservationService(store storage.ReservationStore, c *cache.Cache, club config.ClubConfig, log *logger.Logger) *ReservationService {
	return &ReservationService{
		store: store,
		cache: c,
		club:  club,
		log:   log.With("reservation"),
	}
}

// slotFromInput validates the court, date and hours of a payload.
func (s *ReservationService) slotFromInput(in *models.ReservationInput) (*models.Reservation, error) {
	if err := validation.Struct(in); err != nil {
		return nil, invalidInput(err)
	}

	date, err := validation.ParseDate(in.ReservationDate)
	if err != nil {
		return nil, invalidInput(err)
	}

	duration := int(in.Duration)
	if duration == 0 {
		duration = 1
	}

	if err := validation.ValidateCourt(in.CourtNumber, s.club.CourtCount); err != nil {
		return nil, invalidInput(err)
	}
	if err := validation.ValidateSlot(in.ReservationTime, duration, s.club.OpeningHour, s.club.ClosingHour); err != nil {
		return nil, invalidInput(err)
	}

	return &models.Reservation{
		CourtNumber:     in.CourtNumber,
		ReservationDate: date.Format(models.DateLayout),
		ReservationTime: in.ReservationTime,
		Duration:        duration,
	}, nil
}

// Create books a court. Members book for themselves; admins for anyone.
func (s *ReservationService) Create(ctx context.Context, in *models.ReservationInput, actor *Actor) (*models.CreatedResource, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	memberID := strings.ToUpper(strings.TrimSpace(in.MemberID))
	if memberID == "" {
		memberID = actor.MemberID
	}
	if !actor.CanAccess(memberID) {
		return nil, ErrForbidden
	}

	r, err := s.slotFromInput(in)
	if err != nil {
		return nil, err
	}
	r.ID = uuid.NewString()
	r.MemberIDs = []string{memberID}

	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, storeError("create reservation", err)
	}
	s.invalidate(ctx, r.ReservationDate)

	s.log.Info("Reservation %s: court %d on %s at %dh for %dh by %s",
		r.ID, r.CourtNumber, r.ReservationDate, r.ReservationTime, r.Duration, memberID)
	return &models.CreatedResource{ID: r.ID}, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, storeError("get reservation", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

// Planning lists the reservations of a day, read through the cache. Entries
// are keyed by the day's cache version, which every write bumps, so a reader
// racing a write can only fill an entry nobody reads anymore.
func (s *ReservationService) Planning(ctx context.Context, day string) ([]*models.PlanningEntry, error) {
	date, err := validation.ParseDate(day)
	if err != nil {
		return nil, invalidInput(err)
	}
	group := cache.PlanningKey(date.Format(models.DateLayout))

	version, err := s.cache.Version(ctx, group)
	if err != nil {
		s.log.Warn("Reading planning %s without cache: %v", group, err)
		return s.listPlanning(ctx, date)
	}
	key := cache.VersionedKey(group, version)

	var entries []*models.PlanningEntry
	found, err := s.cache.GetJSON(ctx, key, &entries)
	if err != nil {
		s.log.Warn("Dropping unreadable planning cache %s: %v", key, err)
	}
	if found {
		return entries, nil
	}

	entries, err = s.listPlanning(ctx, date)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, entries); err != nil {
		s.log.Warn("Failed to cache planning %s: %v", key, err)
	}
	return entries, nil
}

func (s *ReservationService) listPlanning(ctx context.Context, date time.Time) ([]*models.PlanningEntry, error) {
	entries, err := s.store.ListPlanning(ctx, date)
	if err != nil {
		return nil, storeError("list planning", err)
	}
	return entries, nil
}

// authorize loads a reservation the actor is linked to, or any reservation for admins.
func (s *ReservationService) authorize(ctx context.Context, id string, actor *Actor) (*models.Reservation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.admin() && !r.HasMember(actor.MemberID) {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *ReservationService) Update(ctx context.Context, in *models.ReservationInput, actor *Actor) error {
	if in.ID == "" {
		return invalidInput(errors.New("id is required"))
	}

	existing, err := s.authorize(ctx, in.ID, actor)
	if err != nil {
		return err
	}

	r, err := s.slotFromInput(in)
	if err != nil {
		return err
	}
	r.ID = existing.ID

	ok, err := s.store.UpdateReservation(ctx, r)
	if err != nil {
		return storeError("update reservation", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.invalidate(ctx, existing.ReservationDate)
	if r.ReservationDate != existing.ReservationDate {
		s.invalidate(ctx, r.ReservationDate)
	}
	return nil
}

func (s *ReservationService) Delete(ctx context.Context, id string, actor *Actor) error {
	r, err := s.authorize(ctx, id, actor)
	if err != nil {
		return err
	}

	ok, err := s.store.DeleteReservation(ctx, r.ID)
	if err != nil {
		return storeError("delete reservation", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.invalidate(ctx, r.ReservationDate)
	s.log.Info("Reservation %s deleted", r.ID)
	return nil
}

func (s *ReservationService) ListForMember(ctx context.Context, memberID string, actor *Actor) ([]*models.Reservation, error) {
	memberID = strings.ToUpper(strings.TrimSpace(memberID))
	if !actor.CanAccess(memberID) {
		return nil, ErrForbidden
	}

	reservations, err := s.store.ListReservationsByMember(ctx, memberID)
	if err != nil {
		return nil, storeError("list member reservations", err)
	}
	return reservations, nil
}

// AddMember links a partner to a reservation the actor is part of.
func (s *ReservationService) AddMember(ctx context.Context, reservationID, memberID string, actor *Actor) error {
	r, err := s.authorize(ctx, reservationID, actor)
	if err != nil {
		return err
	}

	memberID = strings.ToUpper(strings.TrimSpace(memberID))
	if err := validation.ValidateMemberID(memberID); err != nil {
		return invalidInput(err)
	}

	if err := s.store.AddReservationMember(ctx, r.ID, memberID); err != nil {
		return storeError("add reservation member", err)
	}

	s.invalidate(ctx, r.ReservationDate)
	return nil
}

// RemoveMember unlinks a member. Members may always leave; admins and linked
// members may remove anyone.
func (s *ReservationService) RemoveMember(ctx context.Context, reservationID, memberID string, actor *Actor) error {
	memberID = strings.ToUpper(strings.TrimSpace(memberID))

	r, err := s.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	if !actor.CanAccess(memberID) && !r.HasMember(actor.MemberID) {
		return ErrForbidden
	}

	ok, err := s.store.RemoveReservationMember(ctx, r.ID, memberID)
	if err != nil {
		return storeError("remove reservation member", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.invalidate(ctx, r.ReservationDate)
	return nil
}

func (s *ReservationService) invalidate(ctx context.Context, date string) {
	if err := s.cache.Bump(ctx, cache.PlanningKey(date)); err != nil {
		s.log.Warn("Failed to invalidate planning %s: %v", date, err)
	}
}
