package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"guestlist/config"
	_ "guestlist/docs"
	"guestlist/internal/adapters/auth"
	"guestlist/internal/adapters/email"
	"guestlist/internal/adapters/qrtoken"
	httpdelivery "guestlist/internal/delivery/http"
	"guestlist/internal/delivery/http/controllers"
	"guestlist/internal/delivery/http/middleware"
	"guestlist/internal/repository/postgres"
	"guestlist/internal/services"
)

// @title Guestlist API
// @version 1.0
// @description Event invitee confirmation and check-in backend.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}
	logger.Info("connected to postgres")

	// Apply the bundled schema if present. Failures are logged, not fatal:
	// deployments may manage migrations out of band.
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		logger.Warn("migration file not found, skipping", "err", err)
	} else if _, err := db.Exec(string(migration)); err != nil {
		logger.Warn("migration", "err", err)
	} else {
		logger.Info("migration applied")
	}

	// Adapters
	tokens := auth.NewJWTTokens(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(0) // 0 selects the bcrypt default cost
	tokenGen := qrtoken.NewGenerator()
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.Sender,
		FromName:    "Guestlist",
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSKey,
			SecretAccessKey: cfg.Email.AWSSecret,
		},
	})
	if err != nil {
		logger.Error("mailer", "err", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	inviteeRepo := postgres.NewInviteeRepository(db)

	// Services
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer())
	userService := services.NewUserService(userRepo, hasher, tokens, cfg.JWTExpiry, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, cfg.ContextTimeout)
	inviteeService := services.NewInviteeService(eventRepo, inviteeRepo, tokenGen, emailService, cfg.PublicBaseURL, cfg.ContextTimeout)
	confirmationService := services.NewConfirmationService(eventRepo, inviteeRepo, emailService, logger, cfg.PublicBaseURL, cfg.ContextTimeout)
	checkInService := services.NewCheckInService(eventRepo, inviteeRepo, cfg.ContextTimeout)

	// Delivery
	authController := controllers.NewAuthController(logger, userService)
	eventController := controllers.NewEventController(logger, eventService, inviteeService)
	inviteeController := controllers.NewInviteeController(logger, confirmationService, checkInService, inviteeService)

	mux := httpdelivery.NewRouter(logger, tokens, authController, eventController, inviteeController)
	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
