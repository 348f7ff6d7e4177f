package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/azizikri/qr-credits/internal/identity"
	"github.com/azizikri/qr-credits/internal/repository"
	"github.com/azizikri/qr-credits/internal/usecase"
)

func memoryFactory(t *testing.T, store *repository.MemoryStore) ServiceFactory {
	return func(ctx context.Context, catalogFile string) (*usecase.LedgerService, func(), error) {
		catalog, err := domain.NewCatalog(map[string]int{"A": 10, "B": 50})
		if err != nil {
			t.Fatalf("catalog: %v", err)
		}
		svc := usecase.NewLedgerService(catalog, store, nil, identity.NewStaticResolver(nil))
		return svc, svc.Close, nil
	}
}

func run(t *testing.T, factory ServiceFactory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, name := range []string{"show", "redeem", "clear", "catalog"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Fatalf("command %s missing: %v", name, err)
		}
	}
	if f := cmd.PersistentFlags().Lookup("format"); f == nil || f.DefValue != "text" {
		t.Fatalf("expected --format flag defaulting to text")
	}
}

func TestRedeemShowClear(t *testing.T) {
	store := repository.NewMemoryStore()
	factory := memoryFactory(t, store)

	out, err := run(t, factory, "redeem", "user@example.com", "A")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !strings.Contains(out, "Credit loaded: 10. Total credit: 10") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, factory, "redeem", "user@example.com", "A")
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
	if !strings.Contains(out, "QR code already loaded.") {
		t.Fatalf("expected rejection message, got %q", out)
	}

	out, err = run(t, factory, "--format", "json", "show", "user@example.com")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var shown struct {
		Balance       int      `json:"balance"`
		RedeemedCodes []string `json:"redeemed_codes"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show output %q: %v", out, err)
	}
	if shown.Balance != 10 || len(shown.RedeemedCodes) != 1 {
		t.Fatalf("unexpected ledger %+v", shown)
	}

	if _, err := run(t, factory, "clear", "user@example.com"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	saved, err := store.LoadLedger(context.Background(), "user@example.com")
	if err != nil || saved.Balance != 0 || len(saved.Redeemed) != 0 {
		t.Fatalf("expected cleared ledger, got %+v (%v)", saved, err)
	}
}

func TestRedeemAdminRole(t *testing.T) {
	factory := memoryFactory(t, repository.NewMemoryStore())

	for i := 0; i < 2; i++ {
		if _, err := run(t, factory, "redeem", "--role", "admin", "ops@example.com", "B"); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}
	_, err := run(t, factory, "redeem", "--role", "admin", "ops@example.com", "B")
	if !errors.Is(err, domain.ErrMaxRedemptionsReached) {
		t.Fatalf("expected ErrMaxRedemptionsReached, got %v", err)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, memoryFactory(t, repository.NewMemoryStore()), "--format", "xml", "show", "u")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("expected invalid format error, got %v", err)
	}
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, nil, "catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "Catalog OK: 3 codes") || !strings.Contains(out, "warning:") {
		t.Fatalf("unexpected catalog output %q", out)
	}
}
