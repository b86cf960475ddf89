// @title Volunteer Match API
// @version 1.0
// @description Volunteer opportunity listings, registration, moderation and attendance.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"

	"volunteermatch/config"
	_ "volunteermatch/docs"
	"volunteermatch/internal/adapters/auth"
	"volunteermatch/internal/adapters/email"
	httpDelivery "volunteermatch/internal/delivery/http"
	"volunteermatch/internal/delivery/http/controllers"
	"volunteermatch/internal/delivery/http/middleware"
	"volunteermatch/internal/projection"
	"volunteermatch/internal/repository/postgres"
	"volunteermatch/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ContextTimeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("connected to database")

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; tokens are signed with an empty key")
	}

	// Repositories
	oppRepo := postgres.NewOpportunityRepository(db)
	regRepo := postgres.NewRegistrationRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Notifications
	mailer, err := email.NewMailer(cfg.Email.Mailer(), logger)
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	// Services share one projection so writes are visible to listings immediately.
	cache := projection.NewCache(cfg.ListCacheTTL, time.Now)
	oppService := services.NewOpportunityService(oppRepo, userRepo, emailService, cache, logger, cfg.DefaultTimezone, cfg.ContextTimeout)
	listingService := services.NewListingService(oppRepo, cache, logger, cfg.ContextTimeout)
	regService := services.NewRegistrationService(oppRepo, regRepo, userRepo, emailService, cache, logger, cfg.ContextTimeout)
	attendanceService := services.NewAttendanceService(oppRepo, regRepo, cache, logger, cfg.ContextTimeout)

	router := httpDelivery.NewRouter(httpDelivery.Controllers{
		Opportunities: controllers.NewOpportunityController(logger, oppService, listingService),
		Moderation:    controllers.NewModerationController(logger, oppService, listingService),
		Registrations: controllers.NewRegistrationController(logger, regService),
		Attendance:    controllers.NewAttendanceController(logger, attendanceService),
	}, auth.NewJWT(cfg.JWTSecret), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, router)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
