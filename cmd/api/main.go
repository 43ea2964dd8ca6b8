package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/99minutos/storefront-api/internal/api"
	"github.com/99minutos/storefront-api/internal/core/service"
	"github.com/99minutos/storefront-api/internal/infrastructure/config"
	mongostore "github.com/99minutos/storefront-api/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/storefront-api/internal/infrastructure/db/redis"
	"github.com/99minutos/storefront-api/internal/infrastructure/http/handlers"
	"github.com/99minutos/storefront-api/internal/infrastructure/mail"
	"github.com/99minutos/storefront-api/internal/infrastructure/queue"
	"github.com/99minutos/storefront-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title        Storefront API
// @version      1.0
// @description  Admin and customer accounts with OTP login, password reset and a product catalogue.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "storefront-api",
	})

	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	var sender mail.Sender = mail.NewLogSender(logger.Component("mail"))
	if cfg.SMTP.Enabled() {
		smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			UseTLS:   cfg.SMTP.UseTLS,
		})
		if err != nil {
			log.Warn().Err(err).Msg("smtp sender init failed, logging notifications instead")
		} else {
			sender = smtpSender
		}
	}
	dispatcher := queue.NewDispatcher(cfg.NotifyWorkers, sender, logger.Component("notifications"))
	dispatcher.Start(ctx)

	accounts := mongostore.NewAccountRepository(db)
	authService := service.NewAuthService(
		service.AuthStores{
			Accounts:    accounts,
			Credentials: accounts,
			OTPs:        redisstore.NewOTPStore(rdb),
			ResetTokens: redisstore.NewResetTokenStore(rdb),
		},
		dispatcher,
		redisstore.NewRateLimiter(rdb, cfg.Auth.RateWindow, cfg.Auth.RateLimit, logger.Component("ratelimit")),
		service.AuthOptions{
			JWTSecret:      cfg.JWTSecret,
			TokenTTL:       cfg.TokenTTL,
			OTPTTL:         cfg.Auth.OTPTTL,
			ResetTTL:       cfg.Auth.ResetTTL,
			MaxOTPAttempts: cfg.Auth.MaxOTPAttempts,
			ExposeOTP:      cfg.Auth.ExposeOTP,
			HashCost:       cfg.Auth.BcryptCost,
			ResetURL:       cfg.Auth.ResetURL,
		},
		logger.Component("auth"),
	)
	productService := service.NewProductService(
		mongostore.NewProductRepository(db),
		mongostore.NewCategoryRepository(db),
		logger.Component("products"),
	)

	e := api.NewRouter(api.Deps{
		AuthService:     authService,
		ProductService:  productService,
		JWTSecret:       cfg.JWTSecret,
		ProtectProducts: cfg.Products.RequireAuth,
		Readiness: map[string]handlers.Pinger{
			"mongodb": mongostore.Pinger{Client: mongoClient},
			"redis":   redisstore.Pinger{Client: rdb},
		},
		Logger: logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
