package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/bjjpoints/internal/api"
	"example.com/bjjpoints/internal/auth"
	"example.com/bjjpoints/internal/config"
	"example.com/bjjpoints/internal/consumer"
	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/outbox"
	"example.com/bjjpoints/internal/persistence/memory"
	persistence "example.com/bjjpoints/internal/persistence/postgres"
	"example.com/bjjpoints/internal/realtime"
	httptransport "example.com/bjjpoints/internal/transport/http"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	loc, _ := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store domain.Store
		pool  *pgxpool.Pool
	)
	if cfg.PostgresURL == "" {
		log.Println("POSTGRES_URL not set, using the in-memory store")
		store = memory.NewStore()
	} else {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		store = persistence.NewRepository(pool, persistence.WithChangeTopic(cfg.ChangeTopic))
	}

	hub := realtime.NewHub()
	var service *domain.Service
	refresher := realtime.NewRefresher(func(ctx context.Context, scope events.Scope) ([]ledger.LeaderboardEntry, error) {
		return service.Leaderboard(ctx, scope)
	}, hub,
		realtime.WithTimeout(cfg.RefreshTimeout),
		realtime.WithClock(func() time.Time { return time.Now().In(loc) }),
	)
	service = domain.NewService(store,
		domain.WithLocation(loc),
		domain.WithNotifier(refresher),
		domain.WithTrainerEmails(cfg.TrainerEmails...),
	)

	var background sync.WaitGroup
	switch {
	case !cfg.KafkaEnabled():
		log.Println("KAFKA_BROKERS not set, change events stay in-process")
	case pool == nil:
		log.Println("kafka ignored: the in-memory store has no outbox")
	default:
		startKafka(ctx, cfg, pool, refresher, &background)
	}

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL}
	handler := api.NewHandler(service, authCfg,
		api.WithRealtime(hub, refresher),
		api.WithClientConfig(api.ClientConfig{PublicURL: cfg.PublicURL, AnonKey: cfg.AnonKey}),
	)
	router := handler.Router(cfg.CORSOrigin, func(mux *http.ServeMux) {
		mux.Handle("GET /metrics", promhttp.Handler())
	})

	serverCfg := httptransport.DefaultServerConfig(cfg.HTTPAddress)
	server := httptransport.NewServer(serverCfg, router)
	server.RegisterOnShutdown(hub.Close)

	logger := log.New(log.Writer(), "[http] ", log.LstdFlags)
	if err := httptransport.Serve(ctx, server, serverCfg.ShutdownTimeout, logger); err != nil {
		log.Printf("server error: %v", err)
	}

	stop()
	background.Wait()
	refresher.Wait()
}

// startKafka runs the outbox dispatcher and the realtime consumer until ctx is done.
func startKafka(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, refresher *realtime.Refresher, wg *sync.WaitGroup) {
	producer := outbox.NewChangeProducer(cfg.KafkaBrokers)

	var registry outbox.SchemaRegistrar = outbox.StaticRegistry{ID: 1}
	if cfg.SchemaRegistryURL != "" {
		registry = outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	}
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	wg.Add(1)
	go func() {
		defer wg.Done()
		go dispatcher.Start(ctx)
		dispatcher.Wait()
		if err := producer.Close(); err != nil {
			log.Printf("producer close error: %v", err)
		}
	}()

	// Every API process refreshes its own hub, so each one reads the topic in its own group.
	groupID := cfg.RealtimeGroup + "-" + uuid.NewString()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        groupID,
		Topic:          cfg.ChangeTopic,
		StartOffset:    kafka.LastOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
	})
	proc := consumer.NewProcessor(reader, consumer.NewRealtimeHandler(refresher))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()

		log.Printf("realtime consumer started (topic=%s, group=%s)", cfg.ChangeTopic, groupID)
		if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("realtime consumer stopped with error: %v", err)
		}
	}()
}
