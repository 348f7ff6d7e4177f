package kafka

import (
	"errors"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	ErrCodeInvalidCode        = "INVALID_CODE"
	ErrCodeAlreadyRedeemed    = "ALREADY_REDEEMED"
	ErrCodeMaxRedemptions     = "MAX_REDEMPTIONS_REACHED"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeScannerUnsupported = "SCANNER_UNSUPPORTED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

type RequestPayload struct {
	SchemaVersion    int      `json:"schema_version"`
	CorrelationID    string   `json:"correlation_id"`
	ReplyTo          string   `json:"reply_to"`
	UserID           string   `json:"user_id"`
	Role             string   `json:"role,omitempty"`
	Code             string   `json:"code,omitempty"`
	Codes            []string `json:"codes,omitempty"`
	CameraPermission string   `json:"camera_permission,omitempty"`
}

func (r RequestPayload) Identity() domain.Identity {
	return domain.Identity{UserID: r.UserID, Role: r.Role}
}

type OutcomePayload struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Credit  int    `json:"credit,omitempty"`
	Balance int    `json:"balance"`
	Message string `json:"message"`
}

func NewOutcomePayload(o domain.Outcome) OutcomePayload {
	return OutcomePayload{
		Kind:    string(o.Kind),
		Code:    o.Code,
		Credit:  o.Credit,
		Balance: o.Balance,
		Message: o.Message(),
	}
}

func (p OutcomePayload) Outcome() domain.Outcome {
	return domain.Outcome{
		Kind:    domain.OutcomeKind(p.Kind),
		Code:    p.Code,
		Credit:  p.Credit,
		Balance: p.Balance,
	}
}

// LedgerPayload is the snapshot document published after every write.
type LedgerPayload struct {
	SchemaVersion         int            `json:"schema_version"`
	UserID                string         `json:"user_id"`
	Balance               int            `json:"balance"`
	RedeemedCodes         []string       `json:"redeemed_codes"`
	AdminRedemptionCounts map[string]int `json:"admin_redemption_counts"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func NewLedgerPayload(l domain.Ledger) LedgerPayload {
	counts := make(map[string]int, len(l.AdminCounts))
	for code, n := range l.AdminCounts {
		counts[code] = n
	}
	return LedgerPayload{
		SchemaVersion:         SchemaVersion,
		UserID:                l.UserID,
		Balance:               l.Balance,
		RedeemedCodes:         l.RedeemedCodes(),
		AdminRedemptionCounts: counts,
		UpdatedAt:             l.UpdatedAt,
	}
}

func (p LedgerPayload) Ledger() domain.Ledger {
	return domain.LedgerFromParts(p.UserID, p.Balance, p.RedeemedCodes, p.AdminRedemptionCounts, p.UpdatedAt)
}

type ResponsePayload struct {
	SchemaVersion int              `json:"schema_version"`
	CorrelationID string           `json:"correlation_id"`
	Status        string           `json:"status"`
	ErrorCode     string           `json:"error_code,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Outcome       *OutcomePayload  `json:"outcome,omitempty"`
	Outcomes      []OutcomePayload `json:"outcomes,omitempty"`
	Ledger        *LedgerPayload   `json:"ledger,omitempty"`
}

type NotificationPayload struct {
	SchemaVersion int            `json:"schema_version"`
	UserID        string         `json:"user_id"`
	Outcome       OutcomePayload `json:"outcome"`
	SentAt        time.Time      `json:"sent_at"`
}

func mapErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return ErrCodeInvalidCode
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return ErrCodeAlreadyRedeemed
	case errors.Is(err, domain.ErrMaxRedemptionsReached):
		return ErrCodeMaxRedemptions
	case errors.Is(err, domain.ErrPersistence):
		return ErrCodePersistenceFailure
	case errors.Is(err, domain.ErrPermissionDenied):
		return ErrCodePermissionDenied
	case errors.Is(err, domain.ErrScannerUnsupported):
		return ErrCodeScannerUnsupported
	case errors.Is(err, domain.ErrMissingIdentity):
		return ErrCodeInvalidRequest
	default:
		return ErrCodeInternalError
	}
}

func mapError(code, message string) error {
	switch code {
	case ErrCodeInvalidCode:
		return domain.ErrInvalidCode
	case ErrCodeAlreadyRedeemed:
		return domain.ErrAlreadyRedeemed
	case ErrCodeMaxRedemptions:
		return domain.ErrMaxRedemptionsReached
	case ErrCodePersistenceFailure:
		return domain.ErrPersistence
	case ErrCodePermissionDenied:
		return domain.ErrPermissionDenied
	case ErrCodeScannerUnsupported:
		return domain.ErrScannerUnsupported
	default:
		return errors.New(message)
	}
}
