package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/azizikri/qr-credits/internal/config"
	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Gateway forwards ledger operations to the consumer group and waits for
// the reply on this instance's reply topic.
type Gateway struct {
	client      *kgo.Client
	replyTo     string
	pendingResp sync.Map
}

func NewGateway(cfg *config.Config, client *kgo.Client) *Gateway {
	return &Gateway{
		client:  client,
		replyTo: fmt.Sprintf("%s%s", TopicReplyPrefix, cfg.KafkaInstanceID),
	}
}

func (g *Gateway) newRequest(id domain.Identity) RequestPayload {
	return RequestPayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: uuid.New().String(),
		ReplyTo:       g.replyTo,
		UserID:        id.UserID,
		Role:          id.Role,
	}
}

func (g *Gateway) SubmitScan(ctx context.Context, id domain.Identity, code string) (domain.Outcome, error) {
	req := g.newRequest(id)
	req.Code = code

	resp, err := g.requestReply(ctx, TopicScanRequest, req)
	if err != nil {
		return domain.Outcome{}, err
	}
	return responseOutcome(resp)
}

func (g *Gateway) ScanBatch(ctx context.Context, id domain.Identity, codes []string, permission domain.Permission) ([]domain.Outcome, error) {
	req := g.newRequest(id)
	req.Codes = codes
	req.CameraPermission = string(permission)

	resp, err := g.requestReply(ctx, TopicBatchRequest, req)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.Outcome, 0, len(resp.Outcomes))
	for _, o := range resp.Outcomes {
		outcomes = append(outcomes, o.Outcome())
	}
	if resp.Status == StatusError {
		return outcomes, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	return outcomes, nil
}

func (g *Gateway) ClearLedger(ctx context.Context, id domain.Identity) (domain.Outcome, error) {
	resp, err := g.requestReply(ctx, TopicClearRequest, g.newRequest(id))
	if err != nil {
		return domain.Outcome{}, err
	}
	return responseOutcome(resp)
}

func (g *Gateway) GetLedger(ctx context.Context, id domain.Identity) (domain.Ledger, error) {
	resp, err := g.requestReply(ctx, TopicGetRequest, g.newRequest(id))
	if err != nil {
		return domain.Ledger{}, err
	}
	if resp.Status == StatusError {
		return domain.Ledger{}, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Ledger == nil {
		return domain.Ledger{}, errors.New("reply carries no ledger")
	}
	return resp.Ledger.Ledger(), nil
}

func (g *Gateway) requestReply(ctx context.Context, topic string, req RequestPayload) (*ResponsePayload, error) {
	key := domain.NormalizeUserID(req.UserID)
	if key == "" {
		return nil, domain.ErrMissingIdentity
	}

	respChan := make(chan *ResponsePayload, 1)
	g.pendingResp.Store(req.CorrelationID, respChan)
	defer g.pendingResp.Delete(req.CorrelationID)

	payload, _ := json.Marshal(req)
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	if err := g.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(RequestTimeout):
		return nil, errors.New("timeout waiting for response")
	}
}

// ConsumeReplies feeds records from the reply topic into HandleResponse
// until the client is closed.
func (g *Gateway) ConsumeReplies(ctx context.Context, client *kgo.Client) {
	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		iter := fetches.RecordIter()
		for !iter.Done() {
			g.HandleResponse(iter.Next().Value)
		}
	}
}

func (g *Gateway) HandleResponse(payload []byte) {
	var resp ResponsePayload
	if err := json.Unmarshal(payload, &resp); err != nil {
		log.Printf("Failed to decode response payload: %v", err)
		return
	}

	if ch, ok := g.pendingResp.Load(resp.CorrelationID); ok {
		select {
		case ch.(chan *ResponsePayload) <- &resp:
		default:
		}
		return
	}

	log.Printf("No pending response for correlation ID %s", resp.CorrelationID)
}

func responseOutcome(resp *ResponsePayload) (domain.Outcome, error) {
	var outcome domain.Outcome
	if resp.Outcome != nil {
		outcome = resp.Outcome.Outcome()
	}
	if resp.Status == StatusError {
		return outcome, mapError(resp.ErrorCode, resp.ErrorMessage)
	}
	return outcome, nil
}

var _ usecase.LedgerGateway = (*Gateway)(nil)
