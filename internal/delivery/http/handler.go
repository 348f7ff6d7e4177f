package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/identity"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type ScanRequest struct {
	Code string `json:"code"`
}

type BatchScanRequest struct {
	Codes            []string `json:"codes"`
	CameraPermission string   `json:"camera_permission"`
}

type OutcomeResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Credit  int    `json:"credit,omitempty"`
	Balance int    `json:"balance"`
	Message string `json:"message"`
}

type BatchResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
}

type LedgerResponse struct {
	UserID                string         `json:"user_id"`
	Balance               int            `json:"balance"`
	RedeemedCodes         []string       `json:"redeemed_codes"`
	AdminRedemptionCounts map[string]int `json:"admin_redemption_counts"`
	UpdatedAt             *time.Time     `json:"updated_at,omitempty"`
}

type Handler struct {
	gateway usecase.LedgerGateway
	limiter *RateLimiter
}

// NewHandler serves ledger routes through gateway. A nil limiter disables
// scan rate limiting.
func NewHandler(gateway usecase.LedgerGateway, limiter *RateLimiter) *Handler {
	return &Handler{gateway: gateway, limiter: limiter}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/ledgers/{user}", func(r chi.Router) {
		r.Use(h.resolveIdentity)
		r.Get("/", h.GetLedger)
		r.Post("/clear", h.ClearLedger)

		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(h.limiter.Middleware)
			}
			r.Post("/scan", h.SubmitScan)
			r.Post("/scans", h.ScanBatch)
		})
	})
}

// resolveIdentity binds the caller to the {user} path segment. When a token
// was verified upstream its subject must name the same user.
func (h *Handler) resolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		if strings.TrimSpace(user) == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}

		id, ok := identity.FromContext(r.Context())
		if ok {
			if !strings.EqualFold(id.UserID, user) {
				http.Error(w, "token does not match ledger owner", http.StatusForbidden)
				return
			}
		} else {
			id = domain.Identity{UserID: user}
		}
		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, _ := identity.FromContext(r.Context())
	outcome, err := h.gateway.SubmitScan(r.Context(), id, req.Code)
	if err != nil && outcome.Kind == "" {
		http.Error(w, errorText(err), statusFor(err))
		return
	}
	writeJSON(w, statusFor(err), newOutcomeResponse(outcome))
}

func (h *Handler) ScanBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	permission, err := domain.ParsePermission(req.CameraPermission)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, _ := identity.FromContext(r.Context())
	outcomes, err := h.gateway.ScanBatch(r.Context(), id, req.Codes, permission)
	if err != nil && len(outcomes) == 0 {
		http.Error(w, errorText(err), statusFor(err))
		return
	}

	resp := BatchResponse{Outcomes: make([]OutcomeResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		resp.Outcomes = append(resp.Outcomes, newOutcomeResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ClearLedger(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	outcome, err := h.gateway.ClearLedger(r.Context(), id)
	if err != nil && outcome.Kind == "" {
		http.Error(w, errorText(err), statusFor(err))
		return
	}
	writeJSON(w, statusFor(err), newOutcomeResponse(outcome))
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	ledger, err := h.gateway.GetLedger(r.Context(), id)
	if err != nil {
		http.Error(w, errorText(err), statusFor(err))
		return
	}

	resp := LedgerResponse{
		UserID:                ledger.UserID,
		Balance:               ledger.Balance,
		RedeemedCodes:         ledger.RedeemedCodes(),
		AdminRedemptionCounts: ledger.AdminCounts,
	}
	if resp.RedeemedCodes == nil {
		resp.RedeemedCodes = []string{}
	}
	if resp.AdminRedemptionCounts == nil {
		resp.AdminRedemptionCounts = map[string]int{}
	}
	if !ledger.UpdatedAt.IsZero() {
		updated := ledger.UpdatedAt
		resp.UpdatedAt = &updated
	}
	writeJSON(w, http.StatusOK, resp)
}

func newOutcomeResponse(o domain.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Kind:    string(o.Kind),
		Code:    o.Code,
		Credit:  o.Credit,
		Balance: o.Balance,
		Message: o.Message(),
	}
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRedeemed), errors.Is(err, domain.ErrMaxRedemptionsReached):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrScannerUnsupported), errors.Is(err, domain.ErrMissingIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
