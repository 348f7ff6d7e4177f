package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/scanner"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Consumer serves ledger requests from the request topics and answers on the
// caller's reply topic.
type Consumer struct {
	client  *kgo.Client
	service *usecase.LedgerService
	ready   chan struct{}
}

func NewConsumer(client *kgo.Client, service *usecase.LedgerService) *Consumer {
	return &Consumer{
		client:  client,
		service: service,
		ready:   make(chan struct{}),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	close(c.ready)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			log.Printf("Consumer poll errors: %v", errs)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			c.processRecord(ctx, record)
		}

		if err := c.client.CommitRecords(ctx, fetches.Records()...); err != nil {
			log.Printf("Failed to commit records: %v", err)
		}
	}
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var req RequestPayload
	if err := json.Unmarshal(record.Value, &req); err != nil {
		c.sendError(ctx, record, req, ErrCodeInvalidRequest, "invalid request payload")
		return
	}

	resp := c.handle(ctx, record.Topic, req)
	if resp == nil {
		c.sendError(ctx, record, req, ErrCodeInvalidRequest, "unknown request topic")
		return
	}
	if resp.ErrorCode == ErrCodeInvalidRequest {
		c.sendError(ctx, record, req, resp.ErrorCode, resp.ErrorMessage)
		return
	}
	c.sendResponse(ctx, req.ReplyTo, resp)
}

func (c *Consumer) handle(ctx context.Context, topic string, req RequestPayload) *ResponsePayload {
	switch topic {
	case TopicScanRequest:
		outcome, err := c.service.SubmitScan(ctx, req.Identity(), req.Code)
		return outcomeResponse(req.CorrelationID, outcome, err)

	case TopicBatchRequest:
		permission, err := domain.ParsePermission(req.CameraPermission)
		if err != nil {
			return errorResponse(req.CorrelationID, ErrCodeInvalidRequest, err.Error())
		}
		outcomes, err := c.service.ScanAndRedeem(ctx, req.Identity(), scanner.NewBatch(req.Codes, permission))
		resp := successResponse(req.CorrelationID)
		if err != nil {
			resp = errorResponse(req.CorrelationID, mapErrorCode(err), err.Error())
		}
		for _, o := range outcomes {
			resp.Outcomes = append(resp.Outcomes, NewOutcomePayload(o))
		}
		return resp

	case TopicClearRequest:
		outcome, err := c.service.ClearLedger(ctx, req.Identity())
		return outcomeResponse(req.CorrelationID, outcome, err)

	case TopicGetRequest:
		ledger, err := c.service.GetLedger(ctx, req.Identity())
		if err != nil {
			return errorResponse(req.CorrelationID, mapErrorCode(err), err.Error())
		}
		resp := successResponse(req.CorrelationID)
		payload := NewLedgerPayload(ledger)
		resp.Ledger = &payload
		return resp
	}
	return nil
}

func (c *Consumer) sendResponse(ctx context.Context, topic string, resp *ResponsePayload) {
	if topic == "" {
		return
	}
	payload, _ := json.Marshal(resp)
	record := &kgo.Record{
		Topic: topic,
		Value: payload,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		log.Printf("Failed to send response to %s: %v", topic, err)
	}
}

func (c *Consumer) sendError(ctx context.Context, record *kgo.Record, req RequestPayload, code, message string) {
	c.sendResponse(ctx, req.ReplyTo, errorResponse(req.CorrelationID, code, message))

	dlqRecord := &kgo.Record{
		Topic: record.Topic + TopicDLQSuffix,
		Key:   record.Key,
		Value: record.Value,
		Headers: []kgo.RecordHeader{
			{Key: ErrorHeaderKey, Value: []byte(message)},
		},
	}
	if err := c.client.ProduceSync(ctx, dlqRecord).FirstErr(); err != nil {
		log.Printf("Failed to dead-letter record from %s: %v", record.Topic, err)
	}
}

func outcomeResponse(correlationID string, outcome domain.Outcome, err error) *ResponsePayload {
	resp := successResponse(correlationID)
	if err != nil {
		resp = errorResponse(correlationID, mapErrorCode(err), err.Error())
	}
	if outcome.Kind != "" {
		payload := NewOutcomePayload(outcome)
		resp.Outcome = &payload
	}
	return resp
}

func successResponse(correlationID string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusSuccess,
	}
}

func errorResponse(correlationID, code, message string) *ResponsePayload {
	return &ResponsePayload{
		SchemaVersion: SchemaVersion,
		CorrelationID: correlationID,
		Status:        StatusError,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
}
