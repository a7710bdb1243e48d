package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cmlabs-hris/payslip-engine/internal/bootstrap"
	"github.com/cmlabs-hris/payslip-engine/internal/config"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/awsconfig"
	"github.com/cmlabs-hris/payslip-engine/internal/worker"
	"github.com/cmlabs-hris/payslip-engine/internal/worker/recompute"
)

func main() {
	if err := run(); err != nil {
		slog.Error("recompute worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if cfg.Worker.QueueURL == "" {
		return fmt.Errorf("RECOMPUTE_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	services, err := bootstrap.NewServices(cfg, stores)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.New(ctx, cfg)
	if err != nil {
		return err
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	processor := recompute.NewProcessor(services.Payroll)
	worker.NewWorker(sqsClient, cfg.Worker.QueueURL, processor, cfg.Worker.Concurrency).Start(ctx)
	return nil
}
