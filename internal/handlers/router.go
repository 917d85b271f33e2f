package handlers

import (
	"net/http"

	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/idgen"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/middleware"
	"github.com/Varun5711/clubhouse/internal/service"
)

// Services groups the business layer the router dispatches to.
type Services struct {
	Auth           *service.AuthService
	Members        *service.MemberService
	PasswordResets *service.PasswordResetService
	Reservations   *service.ReservationService
	Addresses      *service.AddressService
}

type RouterOptions struct {
	Server       config.ServerConfig
	Auth         config.AuthConfig
	RateLimiter  *middleware.RateLimiter
	RequestIDs   *idgen.RequestIDGenerator
	Dependencies map[string]Dependency
}

// NewRouter registers every route and wraps the mux in the shared middleware chain.
func NewRouter(svc Services, opts RouterOptions, log *logger.Logger) http.Handler {
	authMW := middleware.NewAuthMiddleware(svc.Auth, opts.Auth.CookieName, log)
	member := authMW.RequireAuth
	admin := authMW.RequireAdmin
	limit := opts.RateLimiter.Limit

	hlog := log.With("handlers")
	authHandler := NewAuthHandler(svc.Auth, opts.Auth, opts.RateLimiter, hlog)
	passwordHandler := NewPasswordHandler(svc.Members, svc.PasswordResets, hlog)
	memberHandler := NewMemberHandler(svc.Members, svc.Reservations, hlog)
	addressHandler := NewAddressHandler(svc.Addresses, hlog)
	reservationHandler := NewReservationHandler(svc.Reservations, hlog)
	healthHandler := NewHealthHandler(opts.Dependencies, hlog)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	NewSwaggerHandler().RegisterRoutes(mux)

	mux.HandleFunc("POST /login", limit(authHandler.Login))
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /verify-token", member(authHandler.VerifyToken))
	mux.HandleFunc("GET /jwt-claims", member(authHandler.VerifyToken))
	mux.HandleFunc("POST /refresh-jwt", member(authHandler.RefreshJWT))
	mux.HandleFunc("GET /test-auth", authHandler.TestAuth)

	mux.HandleFunc("POST /password-forgotten", limit(passwordHandler.Forgotten))
	mux.HandleFunc("PATCH /password-reset", limit(passwordHandler.Reset))
	mux.HandleFunc("PATCH /password", member(passwordHandler.Change))

	if opts.Server.SelfSignup {
		mux.HandleFunc("POST /member", limit(memberHandler.Create))
	} else {
		mux.HandleFunc("POST /member", admin(memberHandler.Create))
	}
	mux.HandleFunc("PATCH /member", member(memberHandler.Update))
	mux.HandleFunc("PATCH /member-with-password", member(memberHandler.UpdateWithPassword))
	mux.HandleFunc("GET /members", admin(memberHandler.List))
	mux.HandleFunc("GET /member/{id}", member(memberHandler.Get))
	mux.HandleFunc("DELETE /member/{id}", admin(memberHandler.Delete))
	mux.HandleFunc("GET /member/{id}/card", member(memberHandler.Card))
	mux.HandleFunc("GET /member/{id}/reservations", member(memberHandler.Reservations))

	mux.HandleFunc("POST /address", member(addressHandler.Create))
	mux.HandleFunc("GET /member/{id}/address", member(addressHandler.Get))
	mux.HandleFunc("PATCH /member/{id}/address", member(addressHandler.Update))
	mux.HandleFunc("DELETE /member/{id}/address", member(addressHandler.Delete))

	mux.HandleFunc("POST /reservation", member(reservationHandler.Create))
	mux.HandleFunc("PATCH /reservation", member(reservationHandler.Update))
	mux.HandleFunc("GET /reservations/{date}", member(reservationHandler.Planning))
	mux.HandleFunc("GET /reservation/{id}", member(reservationHandler.Get))
	mux.HandleFunc("DELETE /reservation/{id}", member(reservationHandler.Delete))
	mux.HandleFunc("POST /reservation/{id}/member", member(reservationHandler.AddMember))
	mux.HandleFunc("DELETE /reservation/{id}/member/{member_id}", member(reservationHandler.RemoveMember))

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID(opts.RequestIDs),
		middleware.Logging(log),
		middleware.CORS(opts.Server.FrontendOrigin),
	)
}
