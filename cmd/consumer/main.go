package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/bjjpoints/internal/config"
	"example.com/bjjpoints/internal/consumer"
	httptransport "example.com/bjjpoints/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.PostgresURL == "" || !cfg.KafkaEnabled() {
		log.Fatal("the audit consumer needs POSTGRES_URL and KAFKA_BROKERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	handler := consumer.NewPersistenceHandler(pool)

	var wg sync.WaitGroup
	metricsCfg := httptransport.DefaultServerConfig(cfg.MetricsAddress)
	metricsSrv := httptransport.NewServer(metricsCfg, promhttp.Handler())
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger := log.New(log.Writer(), "[metrics] ", log.LstdFlags)
		if err := httptransport.Serve(ctx, metricsSrv, metricsCfg.ShutdownTimeout, logger); err != nil {
			log.Printf("metrics server error: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.AuditGroup,
		Topic:           cfg.ChangeTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
	defer reader.Close()

	proc := consumer.NewProcessor(reader, handler)
	log.Printf("consumer started (topic=%s, group=%s)", cfg.ChangeTopic, cfg.AuditGroup)
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("consumer stopped with error: %v", err)
	}

	stop()
	wg.Wait()
}
