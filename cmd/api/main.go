package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"ossideas/internal/backend"
	"ossideas/internal/config"
	"ossideas/internal/db"
	"ossideas/internal/email"
	apihttp "ossideas/internal/http"
	"ossideas/internal/repository"
	"ossideas/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	identityRepo := repository.NewPgIdentityRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	ideaRepo := repository.NewPgIdeaRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		rateLimiter backend.RateLimiter
		tokenStore  backend.TokenStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			rateLimiter = backend.NewRedisRateLimiter(redisClient, 10*time.Minute, 3)
			tokenStore = backend.NewRedisTokenStore(redisClient)
		}
		cancel()
	}

	tokens := backend.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	callbackURL := cfg.AppBaseURL + "/auth/callback"
	var oauth *backend.GoogleOAuth
	if cfg.GoogleClientID != "" {
		oauth = backend.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, callbackURL)
	} else {
		logger.Warn("google oauth not configured")
	}

	provider := backend.NewHostedProvider(logger, identityRepo, profileRepo, tokens, emailSender, backend.HostedProviderOptions{
		ConfirmationRequired: cfg.RequireEmailConfirmation,
		OAuth:                oauth,
		RateLimiter:          rateLimiter,
	})

	controller := service.NewSessionController(logger, provider, callbackURL)
	defer controller.Close()
	controller.Initialize(ctx)

	ideaSvc := service.NewIdeaService(logger, ideaRepo)

	authHandler := apihttp.NewAuthHandler(logger, controller, provider, cfg.AppBaseURL)
	ideaHandler := apihttp.NewIdeaHandler(logger, ideaSvc)
	router := apihttp.NewRouter(logger, tokens, authHandler, ideaHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
