package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/bank"
	"github.com/mcvu-symposium/ms-go-registration/app/controller"
	"github.com/mcvu-symposium/ms-go-registration/app/notify"
	"github.com/mcvu-symposium/ms-go-registration/app/repository"
	"github.com/mcvu-symposium/ms-go-registration/app/service"
	"github.com/mcvu-symposium/ms-go-registration/app/types"
	"github.com/mcvu-symposium/ms-go-registration/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the Echo HTTP server for registrations, webhooks, check-in, and admin endpoints.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, registrationService, cleanup := mustCreateRegistrationService()
	defer cleanup()

	registrationController := controller.NewRegistrationController(registrationService)
	webhookController := controller.NewWebhookController(registrationService)
	adminController := controller.NewAdminController(registrationService)

	e := setupHTTPServer(registrationController, webhookController, adminController, cfg.App.AdminAPIKey)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	registrationController *controller.RegistrationController,
	webhookController *controller.WebhookController,
	adminController *controller.AdminController,
	adminAPIKey string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", registrationController.Health)

	api := e.Group("/api")
	api.POST("/registrations", registrationController.CreateRegistration)
	api.GET("/registrations/:id", registrationController.GetRegistration)
	api.GET("/registrations/lookup", registrationController.LookupRegistration)
	api.POST("/check-in", registrationController.CheckIn)
	api.POST("/check-in/:token", registrationController.CheckIn)

	api.POST("/webhooks/moota", webhookController.HandleMootaWebhook)

	admin := e.Group("/admin", requireAPIKey(adminAPIKey))
	admin.GET("/payments", adminController.ListPayments)
	admin.GET("/mutations", adminController.ListMutations)
	admin.GET("/payment-events", adminController.ListPaymentEvents)

	adminAPI := api.Group("/admin", requireAPIKey(adminAPIKey))
	adminAPI.POST("/manual-verify-payment", adminController.ManualVerifyPayment)

	return e
}

func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "admin api key is not configured"})
			}
			provided := strings.TrimSpace(ctx.Request().Header.Get("x-api-key"))
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreateRegistrationService() (*config.Config, *service.RegistrationService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	registrationRepo := repository.NewRegistrationRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	mutationRepo := repository.NewMutationRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	mootaClient := bank.NewMootaClient(bank.MootaConfig{
		BaseURL:     cfg.Moota.BaseURL,
		APIToken:    cfg.Moota.APIToken,
		HTTPTimeout: cfg.Moota.HTTPTimeout,
	})
	bankRegistry := bank.NewRegistry(mootaClient)

	mailer := notify.NewResendClient(cfg.Mail)
	notifier := notify.NewEmailNotifier(mailer, cfg.App.EventName)

	registrationService := service.NewRegistrationService(
		registrationRepo,
		participantRepo,
		paymentRepo,
		mutationRepo,
		taskRepo,
		eventRepo,
		webhookRepo,
		bankRegistry,
		notifier,
		cfg.Payments,
		cfg.Moota,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, registrationService, cleanup
}
