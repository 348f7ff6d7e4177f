package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azizikri/qr-credits/internal/delivery/kafka"
	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/identity"
	"github.com/azizikri/qr-credits/internal/repository"
	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type failingStore struct {
	*repository.MemoryStore
}

func (f failingStore) SaveLedger(ctx context.Context, ledger domain.Ledger) error {
	return errors.New("disk full")
}

type testServer struct {
	router http.Handler
	store  *repository.MemoryStore
}

func newTestServer(t *testing.T, store usecase.LedgerStore, limiter *RateLimiter, auth func(http.Handler) http.Handler) *testServer {
	t.Helper()
	catalog, err := domain.NewCatalog(map[string]int{"A": 10, "B": 50, "C": 100})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := repository.NewMemoryStore()
	if store == nil {
		store = mem
	}
	svc := usecase.NewLedgerService(catalog, store, mem, identity.NewStaticResolver([]string{"admin@admin.com"}))
	t.Cleanup(svc.Close)

	r := chi.NewRouter()
	if auth != nil {
		r.Use(auth)
	}
	NewHandler(kafka.NewDirectGateway(svc), limiter).Routes(r)
	return &testServer{router: r, store: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) OutcomeResponse {
	t.Helper()
	var resp OutcomeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	return resp
}

func TestSubmitScan_StatusMapping(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)
	path := "/api/ledgers/user@example.com/scan"

	rec := s.do(t, http.MethodPost, path, ScanRequest{Code: "A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeOutcome(t, rec)
	if resp.Kind != "accepted" || resp.Balance != 10 || resp.Message != "Credit loaded: 10. Total credit: 10" {
		t.Fatalf("unexpected outcome %+v", resp)
	}

	rec = s.do(t, http.MethodPost, path, ScanRequest{Code: "A"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if resp := decodeOutcome(t, rec); resp.Kind != "already_redeemed" || resp.Balance != 10 {
		t.Fatalf("unexpected outcome %+v", resp)
	}

	rec = s.do(t, http.MethodPost, path, ScanRequest{Code: "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestSubmitScan_AdminLimit(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)
	path := "/api/ledgers/admin@admin.com/scan"

	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodPost, path, ScanRequest{Code: "B"}); rec.Code != http.StatusOK {
			t.Fatalf("scan %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := s.do(t, http.MethodPost, path, ScanRequest{Code: "B"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if resp := decodeOutcome(t, rec); resp.Kind != "max_redemptions_reached" || resp.Balance != 100 {
		t.Fatalf("unexpected outcome %+v", resp)
	}
}

func TestSubmitScan_PersistenceFailure(t *testing.T) {
	s := newTestServer(t, failingStore{repository.NewMemoryStore()}, nil, nil)

	rec := s.do(t, http.MethodPost, "/api/ledgers/user@example.com/scan", ScanRequest{Code: "A"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp := decodeOutcome(t, rec); resp.Kind != "persistence_failure" || resp.Balance != 0 {
		t.Fatalf("unexpected outcome %+v", resp)
	}

	rec = s.do(t, http.MethodGet, "/api/ledgers/user@example.com", nil)
	var ledger LedgerResponse
	json.NewDecoder(rec.Body).Decode(&ledger)
	if ledger.Balance != 0 || len(ledger.RedeemedCodes) != 0 {
		t.Fatalf("failed write must not change the ledger, got %+v", ledger)
	}
}

func TestGetLedgerAndClear(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)
	base := "/api/ledgers/user@example.com"

	s.do(t, http.MethodPost, base+"/scan", ScanRequest{Code: "A"})
	s.do(t, http.MethodPost, base+"/scan", ScanRequest{Code: "C"})

	rec := s.do(t, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ledger LedgerResponse
	if err := json.NewDecoder(rec.Body).Decode(&ledger); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if ledger.Balance != 110 || len(ledger.RedeemedCodes) != 2 || ledger.UpdatedAt == nil {
		t.Fatalf("unexpected ledger %+v", ledger)
	}

	rec = s.do(t, http.MethodPost, base+"/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeOutcome(t, rec); resp.Kind != "cleared" || resp.Balance != 0 {
		t.Fatalf("unexpected clear outcome %+v", resp)
	}

	if rec := s.do(t, http.MethodPost, base+"/scan", ScanRequest{Code: "A"}); rec.Code != http.StatusOK {
		t.Fatalf("expected rescan after clear to succeed, got %d", rec.Code)
	}
}

func TestScanBatch(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)
	path := "/api/ledgers/user@example.com/scans"

	rec := s.do(t, http.MethodPost, path, BatchScanRequest{Codes: []string{"A", "B", "A"}, CameraPermission: "limited"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(resp.Outcomes) != 3 || resp.Outcomes[1].Balance != 60 || resp.Outcomes[2].Kind != "already_redeemed" {
		t.Fatalf("unexpected outcomes %+v", resp.Outcomes)
	}

	rec = s.do(t, http.MethodPost, path, BatchScanRequest{Codes: []string{"C"}, CameraPermission: "denied"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, path, BatchScanRequest{Codes: []string{"C"}, CameraPermission: "maybe"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthenticatedIdentity(t *testing.T) {
	withToken := func(id domain.Identity) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
			})
		}
	}

	s := newTestServer(t, nil, nil, withToken(domain.Identity{UserID: "ops@example.com", Role: domain.RoleAdmin}))

	rec := s.do(t, http.MethodPost, "/api/ledgers/someone@example.com/scan", ScanRequest{Code: "A"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched owner, got %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPost, "/api/ledgers/OPS@example.com/scan", ScanRequest{Code: "A"})
		if rec.Code != http.StatusOK {
			t.Fatalf("scan %d: expected admin role to allow a second redemption, got %d", i, rec.Code)
		}
	}
}

func TestScanRateLimit(t *testing.T) {
	limiter := NewRateLimiter(1, 2, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.clockNow = func() time.Time { return now }

	s := newTestServer(t, nil, limiter, nil)
	path := "/api/ledgers/user@example.com/scan"

	codes := []string{"A", "B", "C"}
	statuses := make([]int, 0, len(codes))
	for _, code := range codes {
		statuses = append(statuses, s.do(t, http.MethodPost, path, ScanRequest{Code: code}).Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK || statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %v", statuses)
	}

	if rec := s.do(t, http.MethodPost, "/api/ledgers/other@example.com/scan", ScanRequest{Code: "C"}); rec.Code != http.StatusOK {
		t.Fatalf("limit must be per user, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/ledgers/user@example.com", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads are not rate limited, got %d", rec.Code)
	}
}

func TestUserPathCaseSharesLedger(t *testing.T) {
	s := newTestServer(t, nil, nil, nil)

	for _, path := range []string{"/api/ledgers/Admin@Admin.com/scan", "/api/ledgers/admin@admin.com/scan"} {
		if rec := s.do(t, http.MethodPost, path, ScanRequest{Code: "A"}); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	rec := s.do(t, http.MethodPost, "/api/ledgers/ADMIN@admin.com/scan", ScanRequest{Code: "A"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected the privileged limit to span spellings, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/ledgers/admin@ADMIN.com", nil)
	var ledger LedgerResponse
	json.NewDecoder(rec.Body).Decode(&ledger)
	if ledger.UserID != "admin@admin.com" || ledger.Balance != 20 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}
}
