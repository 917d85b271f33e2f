package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/cache"
	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/events"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/storage"
)

var (
	admin = &Actor{MemberID: "ADM1N0", IsAdmin: true}
	club  = config.ClubConfig{CourtCount: 4, OpeningHour: 8, ClosingHour: 22}
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*events.MailJob
}

func (p *recordingPublisher) Publish(ctx context.Context, job *events.MailJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) last() *events.MailJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.jobs) == 0 {
		return nil
	}
	return p.jobs[len(p.jobs)-1]
}

func createMember(t *testing.T, svc *MemberService, phone, password string) string {
	t.Helper()
	created, err := svc.Create(context.Background(), &models.MemberInput{Phone: phone, Password: password}, admin)
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	return created.MemberID
}

func TestMemberService_CreateGeneratesIDAndOTP(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())

	created, err := svc.Create(context.Background(), &models.MemberInput{Phone: "06 12 34 56 78"}, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created.MemberID) != 6 {
		t.Errorf("expected 6 character id, got %q", created.MemberID)
	}
	if len(created.OTP) != 6 {
		t.Errorf("expected one-time password, got %q", created.OTP)
	}

	member, err := svc.Get(context.Background(), created.MemberID, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if member.Phone != "0612345678" {
		t.Errorf("expected normalized phone, got %s", member.Phone)
	}
	if err := auth.CheckPassword(member.PasswordHash, created.OTP); err != nil {
		t.Errorf("otp should be the password: %v", err)
	}
}

// collidingStore rejects the first inserts as primary key collisions, as a
// race with another instance would.
type collidingStore struct {
	*storage.MemoryStorage
	collisions int
	attempts   int
}

func (s *collidingStore) CreateMember(ctx context.Context, member *models.Member) error {
	s.attempts++
	if s.attempts <= s.collisions {
		return fmt.Errorf("member: %w (member_pkey)", storage.ErrDuplicateKey)
	}
	return s.MemoryStorage.CreateMember(ctx, member)
}

func TestMemberService_CreateRetriesOnIDCollision(t *testing.T) {
	store := &collidingStore{MemoryStorage: storage.NewMemoryStorage(), collisions: 2}
	svc := NewMemberService(store, logger.Discard())

	created, err := svc.Create(context.Background(), &models.MemberInput{Phone: "0600000001"}, admin)
	if err != nil {
		t.Fatalf("expected the collision to be retried, got %v", err)
	}
	if store.attempts != 3 || created.MemberID == "" {
		t.Errorf("expected 3 insert attempts, got %d (id %q)", store.attempts, created.MemberID)
	}

	store = &collidingStore{MemoryStorage: storage.NewMemoryStorage(), collisions: memberIDAttempts}
	svc = NewMemberService(store, logger.Discard())
	if _, err := svc.Create(context.Background(), &models.MemberInput{Phone: "0600000001"}, admin); err == nil || errors.Is(err, ErrConflict) {
		t.Errorf("expected a generation failure, got %v", err)
	}
}

func TestMemberService_CreateRules(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.MemberInput{ID: "ab12cd", Phone: "0600000001", Password: "longenough", IsAdmin: true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.MemberID != "AB12CD" || created.OTP != "" {
		t.Errorf("unexpected result: %+v", created)
	}

	member, _ := svc.Get(ctx, "AB12CD", admin)
	if member.IsAdmin {
		t.Error("non-admin actor must not create admins")
	}

	_, err = svc.Create(ctx, &models.MemberInput{Phone: "0600000001", Password: "longenough"}, admin)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate phone, got %v", err)
	}

	_, err = svc.Create(ctx, &models.MemberInput{Phone: "0600000002", Password: "short"}, admin)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short password, got %v", err)
	}

	_, err = svc.Create(ctx, &models.MemberInput{Phone: "0600000003", Email: "not-an-email"}, admin)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad email, got %v", err)
	}

	_, err = svc.Create(ctx, &models.MemberInput{ID: "ABCDEF", Phone: "0600000004"}, admin)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for id without digit, got %v", err)
	}
}

func TestMemberService_UpdateAccess(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()
	id := createMember(t, svc, "0600000001", "longenough")
	other := createMember(t, svc, "0600000002", "longenough")
	self := &Actor{MemberID: id}

	in := &models.MemberInput{ID: id, Phone: "0600000001", Email: "Ana@Example.com", FirstName: "Ana", LastName: "Lopez", IsAdmin: true}
	if err := svc.Update(ctx, in, self); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	member, _ := svc.Get(ctx, id, self)
	if !member.IsProfileComplete() {
		t.Error("expected complete profile")
	}
	if member.IsAdmin {
		t.Error("member must not promote itself")
	}
	if *member.Email != "ana@example.com" {
		t.Errorf("expected lowercased email, got %s", *member.Email)
	}

	err := svc.Update(ctx, &models.MemberInput{ID: other, Phone: "0600000002"}, self)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.Get(ctx, other, self); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden on get, got %v", err)
	}

	err = svc.Update(ctx, &models.MemberInput{ID: "ZZ99ZZ", Phone: "0600000009"}, admin)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemberService_UpdateWithPassword(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()
	id := createMember(t, svc, "0600000001", "longenough")

	err := svc.UpdateWithPassword(ctx, &models.MemberInput{ID: id, Phone: "0600000001", Password: "brandnewpass"}, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	member, _ := svc.Get(ctx, id, admin)
	if err := auth.CheckPassword(member.PasswordHash, "brandnewpass"); err != nil {
		t.Errorf("expected new password to be stored: %v", err)
	}
}

func TestMemberService_ChangePassword(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()
	id := createMember(t, svc, "0600000001", "longenough")

	if err := svc.ChangePassword(ctx, id, "wrongpassword", "brandnewpass"); !errors.Is(err, ErrWrongCredentials) {
		t.Errorf("expected ErrWrongCredentials, got %v", err)
	}
	if err := svc.ChangePassword(ctx, id, "longenough", "longenough"); !errors.Is(err, ErrPasswordUnchanged) {
		t.Errorf("expected ErrPasswordUnchanged, got %v", err)
	}
	if err := svc.ChangePassword(ctx, id, "longenough", "brandnewpass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	member, _ := svc.Get(ctx, id, admin)
	if err := auth.CheckPassword(member.PasswordHash, "brandnewpass"); err != nil {
		t.Errorf("expected new password: %v", err)
	}
}

func TestMemberService_ListPagination(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()
	for _, phone := range []string{"0600000001", "0600000002", "0600000003"} {
		createMember(t, svc, phone, "longenough")
	}

	page, err := svc.List(ctx, 0, 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Page != 1 || page.PerPage != 2 || page.TotalCount != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected page: %+v", page)
	}

	page, _ = svc.List(ctx, 1, 1000, "")
	if page.PerPage != MaxPerPage {
		t.Errorf("expected per_page capped at %d, got %d", MaxPerPage, page.PerPage)
	}

	page, _ = svc.List(ctx, 1, 0, "0600000002")
	if page.TotalCount != 1 || page.PerPage != DefaultPerPage {
		t.Errorf("unexpected search page: %+v", page)
	}
}

func TestMemberService_DeleteAndCard(t *testing.T) {
	svc := NewMemberService(storage.NewMemoryStorage(), logger.Discard())
	ctx := context.Background()
	id := createMember(t, svc, "0600000001", "longenough")

	card, err := svc.Card(ctx, id, &Actor{MemberID: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.MemberID != id || card.QRCode == "" {
		t.Errorf("unexpected card: %+v", card)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func newAuthService(t *testing.T, store storage.MemberStore) (*AuthService, *auth.JWTManager) {
	t.Helper()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc, err := NewAuthService(store, jwtManager, auth.NewDenylist(nil), logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc, jwtManager
}

func TestAuthService_LoginVerifyLogout(t *testing.T) {
	store := storage.NewMemoryStorage()
	members := NewMemberService(store, logger.Discard())
	id := createMember(t, members, "0600000001", "longenough")
	svc, _ := newAuthService(t, store)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "0600000001", "wrongpassword", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "0699999999", "longenough", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown phone, got %v", err)
	}

	session, err := svc.Login(ctx, "06 00 00 00 01", "longenough", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Member.ID != id {
		t.Errorf("expected member %s, got %s", id, session.Member.ID)
	}

	claims, err := svc.Verify(ctx, session.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.MemberID() != id || claims.IsProfileComplete {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if err := svc.Logout(ctx, claims); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Verify(ctx, session.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected revoked token to be invalid, got %v", err)
	}

	if _, err := svc.Verify(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_VerifyExpired(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newAuthService(t, store)

	expired := auth.NewJWTManager("test-secret", -time.Minute)
	token, _, err := expired.GenerateToken(&models.Member{ID: "A1B2C3", Phone: "0600000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthService_VerifyErrorsMatchAuthSentinels(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc, _ := newAuthService(t, store)
	ctx := context.Background()

	expired := auth.NewJWTManager("test-secret", -time.Minute)
	token, _, _ := expired.GenerateToken(&models.Member{ID: "A1B2C3", Phone: "0600000001"})
	if _, err := svc.Verify(ctx, token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Errorf("expected auth.ErrTokenExpired, got %v", err)
	}
	if _, err := svc.Verify(ctx, "garbage"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected auth.ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	store := storage.NewMemoryStorage()
	members := NewMemberService(store, logger.Discard())
	id := createMember(t, members, "0600000001", "longenough")
	other := createMember(t, members, "0600000002", "longenough")
	svc, _ := newAuthService(t, store)
	ctx := context.Background()

	session, _ := svc.Login(ctx, "0600000001", "longenough", "")
	claims, _ := svc.Verify(ctx, session.Token)

	err := members.Update(ctx, &models.MemberInput{ID: id, Phone: "0600000001", Email: "ana@example.com", FirstName: "Ana", LastName: "Lopez"}, ActorFromClaims(claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, claims, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newClaims, _ := svc.Verify(ctx, refreshed.Token)
	if !newClaims.IsProfileComplete {
		t.Error("expected refreshed token to carry the completed profile")
	}

	if _, err := svc.Refresh(ctx, claims, other); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func newResetService(t *testing.T) (*PasswordResetService, *MemberService, *storage.MemoryStorage, *recordingPublisher) {
	t.Helper()
	store := storage.NewMemoryStorage()
	pub := &recordingPublisher{}
	members := NewMemberService(store, logger.Discard())
	svc := NewPasswordResetService(store, store, pub, "https://club.example.com/", time.Hour, logger.Discard())
	return svc, members, store, pub
}

func parseResetLink(t *testing.T, link string) (token, email string) {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid reset link %q: %v", link, err)
	}
	if u.Scheme != "https" || u.Host != "club.example.com" || u.Path != "/password-reset" {
		t.Fatalf("unexpected reset link %q", link)
	}
	q := u.Query()
	return q.Get("token"), q.Get("email")
}

func TestPasswordResetService_Flow(t *testing.T) {
	svc, members, store, pub := newResetService(t)
	ctx := context.Background()

	created, err := members.Create(ctx, &models.MemberInput{Phone: "0600000001", Password: "longenough", Email: "ana@example.com", FirstName: "Ana"}, admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Forgot(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should succeed silently: %v", err)
	}
	if pub.last() != nil {
		t.Fatal("no mail expected for unknown email")
	}

	if err := svc.Forgot(ctx, "ANA@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job := pub.last()
	if job == nil || job.To != "ana@example.com" || job.Name != "Ana" {
		t.Fatalf("unexpected mail job: %+v", job)
	}

	token, email := parseResetLink(t, job.Link)
	if email != "ana@example.com" {
		t.Errorf("expected link email ana@example.com, got %q", email)
	}

	if err := svc.Reset(ctx, token, "other@example.com", "brandnewpass"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired for mismatched email, got %v", err)
	}
	if err := svc.Reset(ctx, token, "ana@example.com", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for short password, got %v", err)
	}
	if err := svc.Reset(ctx, token, email, "brandnewpass"); err != nil {
		t.Fatalf("reset with the link values failed: %v", err)
	}

	member, _ := store.GetMemberByID(ctx, created.MemberID)
	if err := auth.CheckPassword(member.PasswordHash, "brandnewpass"); err != nil {
		t.Errorf("expected new password: %v", err)
	}

	if err := svc.Reset(ctx, token, "ana@example.com", "anotherpass"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected reused token to be rejected, got %v", err)
	}
	if err := svc.Reset(ctx, "not-a-uuid", "ana@example.com", "anotherpass"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired for malformed token, got %v", err)
	}
}

func TestPasswordResetService_Expired(t *testing.T) {
	svc, members, _, pub := newResetService(t)
	ctx := context.Background()

	members.Create(ctx, &models.MemberInput{Phone: "0600000001", Password: "longenough", Email: "ana@example.com"}, admin)
	svc.Forgot(ctx, "ana@example.com")

	job := pub.last()
	if job == nil {
		t.Fatal("expected mail job")
	}
	token, _ := parseResetLink(t, job.Link)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := svc.Reset(ctx, token, "ana@example.com", "brandnewpass"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func newReservationService(t *testing.T) (*ReservationService, *MemberService) {
	t.Helper()
	store := storage.NewMemoryStorage()
	c := cache.NewMultiTierCache(16, nil, time.Minute)
	return NewReservationService(store, c, club, logger.Discard()), NewMemberService(store, logger.Discard())
}

func TestReservationService_CreateValidation(t *testing.T) {
	svc, members := newReservationService(t)
	ctx := context.Background()
	id := createMember(t, members, "0600000001", "longenough")
	self := &Actor{MemberID: id}

	cases := []struct {
		name string
		in   models.ReservationInput
	}{
		{"court out of range", models.ReservationInput{CourtNumber: 5, ReservationDate: "2025-06-03", ReservationTime: 10}},
		{"before opening", models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 7}},
		{"past closing", models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 21, Duration: 2}},
		{"bad date", models.ReservationInput{CourtNumber: 1, ReservationDate: "03/06/2025", ReservationTime: 10}},
		{"missing date", models.ReservationInput{CourtNumber: 1, ReservationTime: 10}},
		{"negative duration", models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 10, Duration: -1}},
	}

	for _, tc := range cases {
		in := tc.in
		if _, err := svc.Create(ctx, &in, self); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}

	created, err := svc.Create(ctx, &models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 21}, self)
	if err != nil {
		t.Fatalf("last slot of the day should be bookable: %v", err)
	}

	r, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Duration != 1 || !r.HasMember(id) {
		t.Errorf("unexpected reservation: %+v", r)
	}
}

func TestReservationService_HugeSlotValues(t *testing.T) {
	svc, members := newReservationService(t)
	ctx := context.Background()
	id := createMember(t, members, "0600000001", "longenough")
	self := &Actor{MemberID: id}

	if _, err := svc.Create(ctx, &models.ReservationInput{CourtNumber: 1, ReservationDate: "2030-01-01", ReservationTime: 10, Duration: 2}, self); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	huge := []models.ReservationInput{
		{CourtNumber: 1, ReservationDate: "2030-01-01", ReservationTime: 9, Duration: math.MaxInt},
		{CourtNumber: 1, ReservationDate: "2030-01-01", ReservationTime: math.MaxInt},
		{CourtNumber: 1, ReservationDate: "2030-01-01", ReservationTime: math.MaxInt, Duration: math.MaxInt},
	}
	for _, in := range huge {
		in := in
		if _, err := svc.Create(ctx, &in, self); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("time %d duration %d: expected ErrInvalidInput, got %v", in.ReservationTime, in.Duration, err)
		}
	}

	planning, err := svc.Planning(ctx, "2030-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planning) != 1 || planning[0].ReservationTime != 10 || planning[0].Duration != 2 {
		t.Errorf("expected only the original booking, got %+v", planning)
	}
}

func TestReservationService_OverlapAndAccess(t *testing.T) {
	svc, members := newReservationService(t)
	ctx := context.Background()
	ana := createMember(t, members, "0600000001", "longenough")
	bob := createMember(t, members, "0600000002", "longenough")
	asAna := &Actor{MemberID: ana}
	asBob := &Actor{MemberID: bob}

	created, err := svc.Create(ctx, &models.ReservationInput{CourtNumber: 2, ReservationDate: "2025-06-03", ReservationTime: 17, Duration: 2}, asAna)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Create(ctx, &models.ReservationInput{CourtNumber: 2, ReservationDate: "2025-06-03", ReservationTime: 18}, asBob)
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}

	_, err = svc.Create(ctx, &models.ReservationInput{MemberID: ana, CourtNumber: 3, ReservationDate: "2025-06-03", ReservationTime: 10}, asBob)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden when booking for someone else, got %v", err)
	}

	err = svc.Update(ctx, &models.ReservationInput{ID: created.ID, CourtNumber: 2, ReservationDate: "2025-06-03", ReservationTime: 10}, asBob)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for unlinked member, got %v", err)
	}

	if err := svc.AddMember(ctx, created.ID, bob, asAna); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = svc.Update(ctx, &models.ReservationInput{ID: created.ID, CourtNumber: 2, ReservationDate: "2025-06-04", ReservationTime: 10}, asBob)
	if err != nil {
		t.Fatalf("linked partner should update: %v", err)
	}

	list, _ := svc.ListForMember(ctx, bob, asBob)
	if len(list) != 1 || list[0].ReservationDate != "2025-06-04" {
		t.Errorf("unexpected reservations: %+v", list)
	}

	if err := svc.RemoveMember(ctx, created.ID, bob, asBob); err != nil {
		t.Fatalf("member should be able to leave: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, asBob); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden after leaving, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID, asAna); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestReservationService_PlanningCacheInvalidation(t *testing.T) {
	svc, members := newReservationService(t)
	ctx := context.Background()
	id := createMember(t, members, "0600000001", "longenough")
	self := &Actor{MemberID: id}

	planning, err := svc.Planning(ctx, "2025-06-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planning) != 0 {
		t.Fatalf("expected empty planning, got %d", len(planning))
	}

	created, _ := svc.Create(ctx, &models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 9}, self)

	planning, _ = svc.Planning(ctx, "2025-06-03")
	if len(planning) != 1 || planning[0].ID != created.ID || planning[0].MemberID != id {
		t.Fatalf("expected fresh planning after create, got %+v", planning)
	}

	svc.Update(ctx, &models.ReservationInput{ID: created.ID, CourtNumber: 1, ReservationDate: "2025-06-05", ReservationTime: 9}, self)

	planning, _ = svc.Planning(ctx, "2025-06-03")
	if len(planning) != 0 {
		t.Errorf("expected old day to be invalidated, got %+v", planning)
	}
	planning, _ = svc.Planning(ctx, "2025-06-05")
	if len(planning) != 1 {
		t.Errorf("expected new day to list the reservation, got %+v", planning)
	}

	if _, err := svc.Planning(ctx, "tomorrow"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReservationService_PlanningIgnoresLateCacheFill(t *testing.T) {
	svc, members := newReservationService(t)
	ctx := context.Background()
	id := createMember(t, members, "0600000001", "longenough")
	group := cache.PlanningKey("2025-06-03")

	before, err := svc.cache.Version(ctx, group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Create(ctx, &models.ReservationInput{CourtNumber: 1, ReservationDate: "2025-06-03", ReservationTime: 9}, &Actor{MemberID: id}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A reader that loaded before the write stores its empty list late.
	if err := svc.cache.SetJSON(ctx, cache.VersionedKey(group, before), []*models.PlanningEntry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	planning, err := svc.Planning(ctx, "2025-06-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(planning) != 1 {
		t.Errorf("expected the new reservation despite the late fill, got %+v", planning)
	}
}

func TestAddressService(t *testing.T) {
	store := storage.NewMemoryStorage()
	members := NewMemberService(store, logger.Discard())
	svc := NewAddressService(store, logger.Discard())
	ctx := context.Background()
	id := createMember(t, members, "0600000001", "longenough")
	other := createMember(t, members, "0600000002", "longenough")
	self := &Actor{MemberID: id}

	in := &models.AddressInput{Line1: "1 rue de la Paix", PostalCode: "75002", City: "Paris", Country: "France"}
	created, err := svc.Create(ctx, in, self)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected address id")
	}

	if _, err := svc.Create(ctx, in, self); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for second address, got %v", err)
	}

	bad := &models.AddressInput{MemberID: id, Line1: "x", City: "Paris", Country: "France"}
	if _, err := svc.Create(ctx, bad, admin); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing postal code, got %v", err)
	}

	if _, err := svc.Get(ctx, id, &Actor{MemberID: other}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	update := &models.AddressInput{MemberID: id, Line1: "2 rue de la Paix", Line2: "Bat. B", PostalCode: "75002", City: "Paris", Country: "France"}
	if err := svc.Update(ctx, update, self); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := svc.Get(ctx, id, self)
	if got.Line1 != "2 rue de la Paix" || got.Line2 == nil || *got.Line2 != "Bat. B" {
		t.Errorf("unexpected address: %+v", got)
	}

	if err := svc.Delete(ctx, id, self); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, id, self); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
