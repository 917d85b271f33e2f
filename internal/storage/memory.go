package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/google/uuid"
)

// MemoryStorage keeps everything in process. It enforces the same unique,
// foreign key and cascade rules as the Postgres schema.
type MemoryStorage struct {
	mu           sync.RWMutex
	members      map[string]*models.Member
	reservations map[string]*models.Reservation
	addresses    map[string]*models.Address
	tokens       map[string]*models.PasswordResetToken
	now          func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		members:      make(map[string]*models.Member),
		reservations: make(map[string]*models.Reservation),
		addresses:    make(map[string]*models.Address),
		tokens:       make(map[string]*models.PasswordResetToken),
		now:          time.Now,
	}
}

func copyMember(m *models.Member) *models.Member {
	c := *m
	return &c
}

func copyReservation(r *models.Reservation) *models.Reservation {
	c := *r
	c.MemberIDs = append([]string(nil), r.MemberIDs...)
	return &c
}

func sameString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (s *MemoryStorage) checkUnique(member *models.Member) error {
	for id, other := range s.members {
		if id == member.ID {
			continue
		}
		if other.Phone == member.Phone {
			return fmt.Errorf("member: %w (member_phone_key)", ErrDuplicate)
		}
		if sameString(other.Email, member.Email) {
			return fmt.Errorf("member: %w (member_email_key)", ErrDuplicate)
		}
	}
	return nil
}

func (s *MemoryStorage) CreateMember(ctx context.Context, member *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[member.ID]; exists {
		return fmt.Errorf("member: %w (member_pkey)", ErrDuplicateKey)
	}
	if err := s.checkUnique(member); err != nil {
		return err
	}

	member.CreatedAt = s.now()
	s.members[member.ID] = copyMember(member)
	return nil
}

func (s *MemoryStorage) GetMemberByID(ctx context.Context, id string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, exists := s.members[id]
	if !exists {
		return nil, nil
	}
	return copyMember(member), nil
}

func (s *MemoryStorage) GetMemberByPhone(ctx context.Context, phone string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, member := range s.members {
		if member.Phone == phone {
			return copyMember(member), nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, member := range s.members {
		if member.Email != nil && strings.EqualFold(*member.Email, email) {
			return copyMember(member), nil
		}
	}
	return nil, nil
}

func matchesSearch(m *models.Member, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	fields := []string{m.ID, m.Phone}
	for _, p := range []*string{m.Email, m.FirstName, m.LastName} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// lessNullsLast orders nil after every value.
func lessNullsLast(a, b *string) (less, equal bool) {
	switch {
	case a == nil && b == nil:
		return false, true
	case a == nil:
		return false, false
	case b == nil:
		return true, false
	case *a == *b:
		return false, true
	default:
		return *a < *b, false
	}
}

func (s *MemoryStorage) ListMembers(ctx context.Context, params ListMembersParams) ([]*models.Member, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(params.Search)
	matched := make([]*models.Member, 0, len(s.members))
	for _, member := range s.members {
		if matchesSearch(member, search) {
			matched = append(matched, member)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if less, equal := lessNullsLast(matched[i].LastName, matched[j].LastName); !equal {
			return less
		}
		if less, equal := lessNullsLast(matched[i].FirstName, matched[j].FirstName); !equal {
			return less
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := params.Offset
	if start > total {
		start = total
	}
	end := total
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}

	page := make([]*models.Member, 0, end-start)
	for _, member := range matched[start:end] {
		page = append(page, copyMember(member))
	}
	return page, total, nil
}

func (s *MemoryStorage) updateMember(member *models.Member, withPassword bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.members[member.ID]
	if !exists {
		return false, nil
	}
	if err := s.checkUnique(member); err != nil {
		return false, err
	}

	updated := copyMember(member)
	updated.CreatedAt = existing.CreatedAt
	if !withPassword {
		updated.PasswordHash = existing.PasswordHash
	}
	s.members[member.ID] = updated
	return true, nil
}

func (s *MemoryStorage) UpdateMember(ctx context.Context, member *models.Member) (bool, error) {
	return s.updateMember(member, false)
}

func (s *MemoryStorage) UpdateMemberWithPassword(ctx context.Context, member *models.Member) (bool, error) {
	return s.updateMember(member, true)
}

func (s *MemoryStorage) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, exists := s.members[id]
	if !exists {
		return false, nil
	}
	member.PasswordHash = passwordHash
	return true, nil
}

func (s *MemoryStorage) DeleteMember(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[id]; !exists {
		return false, nil
	}
	delete(s.members, id)

	for _, r := range s.reservations {
		r.MemberIDs = removeString(r.MemberIDs, id)
	}
	delete(s.addresses, id)
	for token, t := range s.tokens {
		if t.MemberID == id {
			delete(s.tokens, token)
		}
	}
	return true, nil
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}

func (s *MemoryStorage) slotTaken(r *models.Reservation) bool {
	for id, other := range s.reservations {
		if id != r.ID && r.Overlaps(other) {
			return true
		}
	}
	return false
}

func (s *MemoryStorage) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if _, err := parseDate(r.ReservationDate); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reservations[r.ID]; exists {
		return fmt.Errorf("reservation: %w (reservation_pkey)", ErrDuplicateKey)
	}
	for _, memberID := range r.MemberIDs {
		if _, exists := s.members[memberID]; !exists {
			return fmt.Errorf("reservation member: %w (reservation_to_member_member_id_fkey)", ErrForeignKey)
		}
	}
	if s.slotTaken(r) {
		return ErrSlotTaken
	}

	s.reservations[r.ID] = copyReservation(r)
	return nil
}

func (s *MemoryStorage) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reservations[id]
	if !exists {
		return nil, nil
	}
	c := copyReservation(r)
	sort.Strings(c.MemberIDs)
	return c, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *MemoryStorage) ListPlanning(ctx context.Context, date time.Time) ([]*models.PlanningEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.Format(models.DateLayout)
	entries := make([]*models.PlanningEntry, 0)
	for _, r := range s.reservations {
		if r.ReservationDate != day {
			continue
		}

		base := models.PlanningEntry{
			ID:              r.ID,
			CourtNumber:     r.CourtNumber,
			ReservationDate: r.ReservationDate,
			ReservationTime: r.ReservationTime,
			Duration:        r.Duration,
		}
		if len(r.MemberIDs) == 0 {
			e := base
			entries = append(entries, &e)
			continue
		}
		for _, memberID := range r.MemberIDs {
			e := base
			e.MemberID = memberID
			if m, ok := s.members[memberID]; ok {
				e.MemberFirstName = derefOrEmpty(m.FirstName)
				e.MemberLastName = derefOrEmpty(m.LastName)
			}
			entries = append(entries, &e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ReservationTime != b.ReservationTime {
			return a.ReservationTime < b.ReservationTime
		}
		if a.CourtNumber != b.CourtNumber {
			return a.CourtNumber < b.CourtNumber
		}
		return a.MemberLastName < b.MemberLastName
	})
	return entries, nil
}

func (s *MemoryStorage) ListReservationsByMember(ctx context.Context, memberID string) ([]*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]*models.Reservation, 0)
	for _, r := range s.reservations {
		if r.HasMember(memberID) {
			c := copyReservation(r)
			c.MemberIDs = []string{memberID}
			reservations = append(reservations, c)
		}
	}

	sort.Slice(reservations, func(i, j int) bool {
		a, b := reservations[i], reservations[j]
		if a.ReservationDate != b.ReservationDate {
			return a.ReservationDate > b.ReservationDate
		}
		return a.ReservationTime < b.ReservationTime
	})
	return reservations, nil
}

func (s *MemoryStorage) UpdateReservation(ctx context.Context, r *models.Reservation) (bool, error) {
	if _, err := parseDate(r.ReservationDate); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.reservations[r.ID]
	if !exists {
		return false, nil
	}
	if s.slotTaken(r) {
		return false, ErrSlotTaken
	}

	existing.CourtNumber = r.CourtNumber
	existing.ReservationDate = r.ReservationDate
	existing.ReservationTime = r.ReservationTime
	existing.Duration = r.Duration
	return true, nil
}

func (s *MemoryStorage) DeleteReservation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reservations[id]; !exists {
		return false, nil
	}
	delete(s.reservations, id)
	return true, nil
}

func (s *MemoryStorage) AddReservationMember(ctx context.Context, reservationID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reservations[reservationID]
	if !exists {
		return fmt.Errorf("reservation member: %w (reservation_to_member_reservation_id_fkey)", ErrForeignKey)
	}
	if _, exists := s.members[memberID]; !exists {
		return fmt.Errorf("reservation member: %w (reservation_to_member_member_id_fkey)", ErrForeignKey)
	}
	if r.HasMember(memberID) {
		return fmt.Errorf("reservation member: %w (reservation_to_member_pkey)", ErrDuplicate)
	}

	r.MemberIDs = append(r.MemberIDs, memberID)
	return nil
}

func (s *MemoryStorage) RemoveReservationMember(ctx context.Context, reservationID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reservations[reservationID]
	if !exists || !r.HasMember(memberID) {
		return false, nil
	}

	r.MemberIDs = removeString(r.MemberIDs, memberID)
	return true, nil
}

func (s *MemoryStorage) CreateAddress(ctx context.Context, address *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[address.MemberID]; !exists {
		return fmt.Errorf("address: %w (address_member_id_fkey)", ErrForeignKey)
	}
	if _, exists := s.addresses[address.MemberID]; exists {
		return fmt.Errorf("address: %w (address_member_id_key)", ErrDuplicate)
	}

	address.ID = uuid.NewString()
	c := *address
	s.addresses[address.MemberID] = &c
	return nil
}

func (s *MemoryStorage) GetAddressByMember(ctx context.Context, memberID string) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.addresses[memberID]
	if !exists {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (s *MemoryStorage) UpdateAddressByMember(ctx context.Context, address *models.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.addresses[address.MemberID]
	if !exists {
		return false, nil
	}

	address.ID = existing.ID
	c := *address
	s.addresses[address.MemberID] = &c
	return true, nil
}

func (s *MemoryStorage) DeleteAddressByMember(ctx context.Context, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.addresses[memberID]; !exists {
		return false, nil
	}
	delete(s.addresses, memberID)
	return true, nil
}

func (s *MemoryStorage) CreateResetToken(ctx context.Context, memberID string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[memberID]; !exists {
		return nil, fmt.Errorf("reset token: %w (password_reset_token_member_id_fkey)", ErrForeignKey)
	}
	for token, t := range s.tokens {
		if t.MemberID == memberID {
			delete(s.tokens, token)
		}
	}

	t := &models.PasswordResetToken{Token: uuid.NewString(), MemberID: memberID, ExpiresAt: expiresAt}
	s.tokens[t.Token] = t
	c := *t
	return &c, nil
}

func (s *MemoryStorage) GetResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tokens[token]
	if !exists {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *MemoryStorage) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[token]
	if !exists {
		return "", ErrTokenNotFound
	}
	if t.Expired(now) {
		return "", ErrTokenExpired
	}
	delete(s.tokens, token)

	member, exists := s.members[t.MemberID]
	if !exists {
		return "", ErrTokenNotFound
	}
	member.PasswordHash = passwordHash
	return t.MemberID, nil
}

func (s *MemoryStorage) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for token, t := range s.tokens {
		if t.Expired(now) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}
