package usecase

import (
	"context"
	"log"

	"github.com/azizikri/qr-credits/internal/domain"
)

// LogNotifier writes outcome messages to the process log.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, userID string, outcome domain.Outcome) {
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("notify %s: %s (%s)", userID, outcome.Message(), outcome.Kind)
}
