package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/repository"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/twmb/franz-go/pkg/kgo"
)

// SnapshotPublisher persists through the wrapped store and then publishes
// the saved ledger to the snapshot topic. A publish failure is logged only:
// the write is already durable.
type SnapshotPublisher struct {
	store  usecase.LedgerStore
	client *kgo.Client
}

func NewSnapshotPublisher(store usecase.LedgerStore, client *kgo.Client) *SnapshotPublisher {
	return &SnapshotPublisher{store: store, client: client}
}

func (p *SnapshotPublisher) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	return p.store.LoadLedger(ctx, userID)
}

func (p *SnapshotPublisher) SaveLedger(ctx context.Context, ledger domain.Ledger) error {
	if err := p.store.SaveLedger(ctx, ledger); err != nil {
		return err
	}

	payload, _ := json.Marshal(NewLedgerPayload(ledger))
	record := &kgo.Record{
		Topic: TopicSnapshot,
		Key:   []byte(ledger.UserID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.Printf("Failed to publish snapshot for %s: %v", ledger.UserID, err)
	}
	return nil
}

// Feed turns the snapshot topic into per-user subscriptions. Every instance
// reads the whole topic without a consumer group.
type Feed struct {
	*repository.Broadcaster
}

func NewFeed() *Feed {
	return &Feed{Broadcaster: repository.NewBroadcaster()}
}

func (f *Feed) HandleSnapshot(payload []byte) {
	var snap LedgerPayload
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("Failed to decode snapshot payload: %v", err)
		return
	}
	if snap.UserID == "" {
		return
	}
	f.Publish(snap.Ledger())
}

func (f *Feed) Consume(ctx context.Context, client *kgo.Client) {
	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.Printf("Snapshot poll errors: %v", errs)
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			f.HandleSnapshot(iter.Next().Value)
		}
	}
}

// Notifier publishes user-facing outcome messages without waiting for the
// broker.
type Notifier struct {
	client *kgo.Client
	now    func() time.Time
}

func NewNotifier(client *kgo.Client) *Notifier {
	return &Notifier{client: client, now: time.Now}
}

func (n *Notifier) Notify(ctx context.Context, userID string, outcome domain.Outcome) {
	payload, _ := json.Marshal(NotificationPayload{
		SchemaVersion: SchemaVersion,
		UserID:        userID,
		Outcome:       NewOutcomePayload(outcome),
		SentAt:        n.now().UTC(),
	})
	record := &kgo.Record{
		Topic: TopicNotification,
		Key:   []byte(userID),
		Value: payload,
	}
	n.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			log.Printf("Failed to publish notification for %s: %v", userID, err)
		}
	})
}

var (
	_ usecase.LedgerStore = (*SnapshotPublisher)(nil)
	_ usecase.LedgerFeed  = (*Feed)(nil)
	_ usecase.Notifier    = (*Notifier)(nil)
)
