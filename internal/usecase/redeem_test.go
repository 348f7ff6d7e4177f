package usecase

import (
	"testing"

	"github.com/azizikri/qr-credits/internal/domain"
)

func testCatalog(t *testing.T) domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog(map[string]int{"A": 10, "B": 50, "C": 100})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestRedeem_InvalidCodeLeavesLedgerUnchanged(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger("user")
	ledger.Balance = 10
	ledger.Redeemed["A"] = struct{}{}

	for _, code := range []string{"", "Z", "a", "A ", " A"} {
		for _, policy := range []domain.Policy{domain.StandardPolicy, domain.PrivilegedPolicy} {
			outcome, next := Redeem(ledger, catalog, policy, code)
			if outcome.Kind != domain.OutcomeInvalidCode {
				t.Fatalf("code %q: expected invalid_code, got %s", code, outcome.Kind)
			}
			if next.Balance != 10 || len(next.Redeemed) != 1 || len(next.AdminCounts) != 0 {
				t.Fatalf("code %q: ledger changed: %+v", code, next)
			}
		}
	}
}

func TestRedeem_StandardScenario(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger("user")

	want := []domain.Outcome{
		{Kind: domain.OutcomeAccepted, Code: "A", Credit: 10, Balance: 10},
		{Kind: domain.OutcomeAccepted, Code: "B", Credit: 50, Balance: 60},
		{Kind: domain.OutcomeAlreadyRedeemed, Code: "A", Balance: 60},
	}

	var outcome domain.Outcome
	for i, code := range []string{"A", "B", "A"} {
		outcome, ledger = Redeem(ledger, catalog, domain.StandardPolicy, code)
		if outcome != want[i] {
			t.Fatalf("scan %d: got %+v, want %+v", i, outcome, want[i])
		}
	}
	if ledger.Balance != 60 {
		t.Fatalf("expected final balance 60, got %d", ledger.Balance)
	}
	if len(ledger.AdminCounts) != 0 {
		t.Fatalf("standard policy must not touch admin counts: %v", ledger.AdminCounts)
	}
}

func TestRedeem_PrivilegedScenario(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger("admin@admin.com")

	want := []domain.Outcome{
		{Kind: domain.OutcomeAccepted, Code: "A", Credit: 10, Balance: 10},
		{Kind: domain.OutcomeAccepted, Code: "A", Credit: 10, Balance: 20},
		{Kind: domain.OutcomeMaxRedemptionsReached, Code: "A", Balance: 20},
	}

	var outcome domain.Outcome
	for i := range want {
		outcome, ledger = Redeem(ledger, catalog, domain.PrivilegedPolicy, "A")
		if outcome != want[i] {
			t.Fatalf("scan %d: got %+v, want %+v", i, outcome, want[i])
		}
	}
	if ledger.AdminCounts["A"] != 2 {
		t.Fatalf("expected count 2, got %d", ledger.AdminCounts["A"])
	}
	if len(ledger.Redeemed) != 0 {
		t.Fatalf("privileged policy must not touch the redeemed set: %v", ledger.Redeemed)
	}
}

func TestRedeem_RejectionIsIdempotent(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger("admin@admin.com")
	ledger.AdminCounts["C"] = 2
	ledger.Balance = 200

	for i := 0; i < 10; i++ {
		var outcome domain.Outcome
		outcome, ledger = Redeem(ledger, catalog, domain.PrivilegedPolicy, "C")
		if outcome.Kind != domain.OutcomeMaxRedemptionsReached {
			t.Fatalf("attempt %d: expected max_redemptions_reached, got %s", i, outcome.Kind)
		}
	}
	if ledger.Balance != 200 || ledger.AdminCounts["C"] != 2 {
		t.Fatalf("rejections changed the ledger: %+v", ledger)
	}
}

func TestRedeem_DoesNotMutateInput(t *testing.T) {
	catalog := testCatalog(t)
	ledger := domain.NewLedger("user")

	_, next := Redeem(ledger, catalog, domain.StandardPolicy, "B")
	if ledger.Balance != 0 || ledger.HasRedeemed("B") {
		t.Fatalf("input ledger was mutated: %+v", ledger)
	}
	if next.Balance != 50 || !next.HasRedeemed("B") {
		t.Fatalf("unexpected next ledger: %+v", next)
	}
}

func TestClear_AllowsRedeemingAgain(t *testing.T) {
	catalog := testCatalog(t)

	for _, policy := range []domain.Policy{domain.StandardPolicy, domain.PrivilegedPolicy} {
		ledger := domain.NewLedger("user")
		_, ledger = Redeem(ledger, catalog, policy, "A")
		_, ledger = Redeem(ledger, catalog, policy, "A")

		outcome, cleared := Clear(ledger)
		if outcome.Kind != domain.OutcomeCleared {
			t.Fatalf("expected cleared outcome, got %s", outcome.Kind)
		}
		if cleared.UserID != "user" || cleared.Balance != 0 || len(cleared.Redeemed) != 0 || len(cleared.AdminCounts) != 0 {
			t.Fatalf("%s: ledger not cleared: %+v", policy.Name, cleared)
		}

		outcome, _ = Redeem(cleared, catalog, policy, "A")
		if !outcome.Accepted() || outcome.Balance != 10 {
			t.Fatalf("%s: expected accepted scan after clear, got %+v", policy.Name, outcome)
		}
	}
}
