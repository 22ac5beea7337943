package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/service"
	"github.com/mcvu-symposium/ms-go-registration/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	workerMode bool
)

var checkPaymentsCmd = &cobra.Command{
	Use:   "check-payments",
	Short: "Process due payment-check tasks against the bank aggregator",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"check_payments",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.PaymentCheckInterval },
			func(s *service.RegistrationService, ctx context.Context) error {
				return s.RunPaymentCheckBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(checkPaymentsCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.RegistrationService, ctx context.Context) error,
) {
	cfg, registrationService, cleanup := mustCreateRegistrationService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), registrationService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(registrationService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	registrationService *service.RegistrationService,
	fn func(s *service.RegistrationService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(registrationService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(registrationService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
