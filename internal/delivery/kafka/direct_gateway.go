package kafka

import (
	"context"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/scanner"
	"github.com/azizikri/qr-credits/internal/usecase"
)

// DirectGateway calls the ledger service in process, bypassing Kafka.
type DirectGateway struct {
	service *usecase.LedgerService
}

func NewDirectGateway(service *usecase.LedgerService) usecase.LedgerGateway {
	return &DirectGateway{service: service}
}

func (g *DirectGateway) SubmitScan(ctx context.Context, id domain.Identity, code string) (domain.Outcome, error) {
	return g.service.SubmitScan(ctx, id, code)
}

func (g *DirectGateway) ScanBatch(ctx context.Context, id domain.Identity, codes []string, permission domain.Permission) ([]domain.Outcome, error) {
	return g.service.ScanAndRedeem(ctx, id, scanner.NewBatch(codes, permission))
}

func (g *DirectGateway) ClearLedger(ctx context.Context, id domain.Identity) (domain.Outcome, error) {
	return g.service.ClearLedger(ctx, id)
}

func (g *DirectGateway) GetLedger(ctx context.Context, id domain.Identity) (domain.Ledger, error) {
	return g.service.GetLedger(ctx, id)
}
