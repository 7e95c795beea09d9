package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/bjjpoints/internal/config"
	"example.com/bjjpoints/internal/outbox"
	httptransport "example.com/bjjpoints/internal/transport/http"
)

const (
	defaultDLQBatchSize = 50
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.PostgresURL == "" {
		log.Fatal("the DLQ manager needs POSTGRES_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.DLQPollInterval),
		gocron.NewTask(func() {
			processed, err := manager.RunOnce(ctx, defaultDLQBatchSize)
			if err != nil {
				log.Printf("dlq manager error: %v", err)
			} else if processed > 0 {
				log.Printf("dlq manager processed %d entries", processed)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("failed to schedule dlq job: %v", err)
	}
	sched.Start()
	log.Printf("DLQ manager started (interval=%s, maxRetries=%d)", cfg.DLQPollInterval, cfg.DLQMaxRetries)

	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	logger := log.New(log.Writer(), "[metrics] ", log.LstdFlags)
	if err := httptransport.Serve(ctx, httptransport.NewServer(metricsCfg, promhttp.Handler()), metricsCfg.ShutdownTimeout, logger); err != nil {
		log.Printf("metrics server error: %v", err)
		<-ctx.Done()
	}

	log.Println("dlq manager shutting down")
	if err := sched.Shutdown(); err != nil {
		log.Printf("scheduler shutdown error: %v", err)
	}
}
