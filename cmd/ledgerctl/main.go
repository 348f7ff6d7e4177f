package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/azizikri/qr-credits/internal/catalog"
	"github.com/azizikri/qr-credits/internal/cli"
	"github.com/azizikri/qr-credits/internal/config"
	"github.com/azizikri/qr-credits/internal/delivery/kafka"
	"github.com/azizikri/qr-credits/internal/identity"
	"github.com/azizikri/qr-credits/internal/repository"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"
)

func main() {
	cmd := cli.NewRootCommand(openService)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openService connects to the same database as the API. In event-driven
// deployments every write is also published as a snapshot so running
// instances pick it up.
func openService(ctx context.Context, catalogFile string) (*usecase.LedgerService, func(), error) {
	cfg := config.Load()
	if catalogFile == "" {
		catalogFile = cfg.CatalogFile
	}
	codes, err := catalog.Load(catalogFile)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("unable to ping database: %w", err)
	}

	var store usecase.LedgerStore = repository.NewLedgerRepository(repository.New(pool))
	var producer *kgo.Client
	if cfg.EventDriven() {
		producer, err = kgo.NewClient(
			kgo.SeedBrokers(cfg.Brokers()...),
			kgo.ClientID(cfg.KafkaClientID+"-ctl"),
		)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create kafka producer: %w", err)
		}
		store = kafka.NewSnapshotPublisher(store, producer)
	}

	service := usecase.NewLedgerService(codes, store, nil,
		identity.NewStaticResolver(identity.ParseList(cfg.PrivilegedIdentities)),
		usecase.WithNotifier(usecase.LogNotifier{Logger: log.New(os.Stderr, "", log.LstdFlags)}),
		usecase.WithPersistTimeout(cfg.PersistTimeout()),
	)
	release := func() {
		service.Close()
		if producer != nil {
			producer.Close()
		}
		pool.Close()
	}
	return service, release, nil
}
