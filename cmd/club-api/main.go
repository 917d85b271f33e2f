package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/cache"
	"github.com/Varun5711/clubhouse/internal/config"
	"github.com/Varun5711/clubhouse/internal/database"
	"github.com/Varun5711/clubhouse/internal/events"
	"github.com/Varun5711/clubhouse/internal/handlers"
	"github.com/Varun5711/clubhouse/internal/idgen"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/mailer"
	"github.com/Varun5711/clubhouse/internal/middleware"
	"github.com/Varun5711/clubhouse/internal/redis"
	"github.com/Varun5711/clubhouse/internal/service"
	"github.com/Varun5711/clubhouse/internal/storage"
)

func main() {
	log := logger.New("club-api")
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}
	if cfg.UsesInsecureSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := make(map[string]handlers.Dependency)

	var store storage.Store
	if cfg.Storage == "memory" {
		log.Warn("Using in-memory storage, data is lost on restart")
		store = storage.NewMemoryStorage()
	} else {
		dbManager, err := database.NewDBManager(ctx, database.Config{
			PrimaryDSN:      cfg.Database.PrimaryDSN,
			ReplicaDSNs:     cfg.Database.ReplicaDSNs,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer dbManager.Close()

		if cfg.Server.AutoMigrate {
			if err := dbManager.CreateSchema(ctx); err != nil {
				log.Fatal("Failed to create schema: %v", err)
			}
		}

		store = storage.NewPostgresStorage(dbManager)
		deps["postgres"] = dbManager
	}

	var redisClient *redis.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		deps["redis"] = redisClient
	} else {
		log.Warn("Redis disabled: rate limits, revoked tokens and cache stay in process")
	}

	var mail service.MailPublisher
	if redisClient != nil {
		mail = events.NewMailProducer(redisClient.GetClient(), cfg.Mailer.StreamName)
	} else {
		mail = events.NewInlineSender(mailer.NewMailer(cfg.SMTP, log))
	}

	authService, err := service.NewAuthService(
		store,
		auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		auth.NewDenylist(redisClient.GetClient()),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create auth service: %v", err)
	}

	planningCache := cache.NewMultiTierCache(cfg.Cache.L1Capacity, redisClient.GetClient(), cfg.Cache.L2TTL)

	services := handlers.Services{
		Auth:           authService,
		Members:        service.NewMemberService(store, log),
		PasswordResets: service.NewPasswordResetService(store, store, mail, cfg.Server.PublicURL, cfg.Auth.ResetTokenTTL, log),
		Reservations:   service.NewReservationService(store, planningCache, cfg.Club, log),
		Addresses:      service.NewAddressService(store, log),
	}

	requestIDs, err := idgen.NewRequestIDGenerator(idgen.NodeIDFromHostname())
	if err != nil {
		log.Fatal("Failed to create request id generator: %v", err)
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES: %v", err)
	}

	router := handlers.NewRouter(services, handlers.RouterOptions{
		Server:       cfg.Server,
		Auth:         cfg.Auth,
		RateLimiter:  middleware.NewRateLimiter(redisClient.GetClient(), cfg.RateLimit.Requests, cfg.RateLimit.Window, proxies, log),
		RequestIDs:   requestIDs,
		Dependencies: deps,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     log.StdLogger(logger.ERROR),
	}

	go func() {
		log.Info("Listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed: %v", err)
	}
}
