package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/azizikri/qr-credits/db"
	"github.com/azizikri/qr-credits/internal/catalog"
	"github.com/azizikri/qr-credits/internal/config"
	httphandler "github.com/azizikri/qr-credits/internal/delivery/http"
	"github.com/azizikri/qr-credits/internal/delivery/kafka"
	"github.com/azizikri/qr-credits/internal/identity"
	"github.com/azizikri/qr-credits/internal/metrics"
	"github.com/azizikri/qr-credits/internal/repository"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cfg := config.Load()

	codes, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Loaded catalog with %d codes", codes.Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := initDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool, db.Migrations, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	recorder := metrics.NewRecorder("credits")
	policies := identity.NewStaticResolver(identity.ParseList(cfg.PrivilegedIdentities))

	var store usecase.LedgerStore = repository.NewLedgerRepository(repository.New(pool))
	var feed usecase.LedgerFeed
	var notifier usecase.Notifier = usecase.LogNotifier{}
	var clients []*kgo.Client
	var producer *kgo.Client

	if cfg.EventDriven() {
		brokers := cfg.Brokers()

		producer, err = kgo.NewClient(
			kgo.SeedBrokers(brokers...),
			kgo.ClientID(cfg.KafkaClientID),
		)
		if err != nil {
			log.Fatalf("Failed to create kafka producer: %v", err)
		}
		clients = append(clients, producer)

		if err := kafka.EnsureTopics(ctx, producer, cfg); err != nil {
			log.Printf("Warning: failed to ensure topics: %v", err)
		}

		snapshotClient, err := kgo.NewClient(
			kgo.SeedBrokers(brokers...),
			kgo.ClientID(cfg.KafkaClientID+"-snapshot"),
			kgo.ConsumeTopics(kafka.TopicSnapshot),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		)
		if err != nil {
			log.Fatalf("Failed to create snapshot kafka client: %v", err)
		}
		clients = append(clients, snapshotClient)

		kfeed := kafka.NewFeed()
		go kfeed.Consume(ctx, snapshotClient)

		store = kafka.NewSnapshotPublisher(store, producer)
		feed = kfeed
		notifier = kafka.NewNotifier(producer)
	}

	service := usecase.NewLedgerService(codes, store, feed, policies,
		usecase.WithNotifier(notifier),
		usecase.WithMetrics(recorder),
		usecase.WithPersistTimeout(cfg.PersistTimeout()),
	)
	defer service.Close()

	var gateway usecase.LedgerGateway
	if cfg.EventDriven() {
		brokers := cfg.Brokers()

		requestClient, err := newConsumerClient(brokers, cfg.KafkaClientID, cfg.KafkaGroupID, kafka.RequestTopics...)
		if err != nil {
			log.Fatalf("Failed to create kafka client: %v", err)
		}
		clients = append(clients, requestClient)

		consumer := kafka.NewConsumer(requestClient, service)
		go consumer.Start(ctx)

		kgateway := kafka.NewGateway(cfg, producer)
		replyTopic := fmt.Sprintf("%s%s", kafka.TopicReplyPrefix, cfg.KafkaInstanceID)
		replyClient, err := newReplyClient(brokers, cfg.KafkaClientID+"-reply", replyTopic)
		if err != nil {
			log.Fatalf("Failed to create reply kafka client: %v", err)
		}
		clients = append(clients, replyClient)
		go kgateway.ConsumeReplies(ctx, replyClient)

		<-consumer.Ready()
		gateway = kgateway
	} else {
		gateway = kafka.NewDirectGateway(service)
	}

	auth := identity.NewAuthenticator(identity.AuthConfig{
		Enabled:    cfg.AuthRequired(),
		HMACSecret: cfg.AuthHMACSecret,
		Issuer:     cfg.AuthIssuer,
	}, nil)
	perMinute, burst := cfg.ScanRate()
	handler := httphandler.NewHandler(gateway, httphandler.NewRateLimiter(perMinute, burst, nil))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", recorder.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		handler.Routes(r)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Starting server on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	service.Close()
	for _, client := range clients {
		client.Close()
	}

	wg.Wait()
	log.Println("Shutdown complete")
}

func initDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func newConsumerClient(brokers []string, clientID, groupID string, topics ...string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
}

func newReplyClient(brokers []string, clientID, topic string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ConsumeTopics(topic),
	)
}
