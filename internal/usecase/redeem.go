package usecase

import "github.com/azizikri/qr-credits/internal/domain"

// Redeem decides a single scan against the ledger. The input ledger is left
// untouched; on acceptance the returned ledger carries the new state.
func Redeem(ledger domain.Ledger, catalog domain.Catalog, policy domain.Policy, code string) (domain.Outcome, domain.Ledger) {
	credits, ok := catalog.Lookup(code)
	if !ok {
		return domain.Outcome{Kind: domain.OutcomeInvalidCode, Code: code, Balance: ledger.Balance}, ledger
	}

	next := ledger.Clone()
	if policy.Counted() {
		n := next.AdminCounts[code]
		if n >= policy.MaxRedemptions {
			return domain.Outcome{Kind: domain.OutcomeMaxRedemptionsReached, Code: code, Balance: ledger.Balance}, ledger
		}
		next.AdminCounts[code] = n + 1
	} else {
		if next.HasRedeemed(code) {
			return domain.Outcome{Kind: domain.OutcomeAlreadyRedeemed, Code: code, Balance: ledger.Balance}, ledger
		}
		next.Redeemed[code] = struct{}{}
	}

	next.Balance += credits
	return domain.Outcome{
		Kind:    domain.OutcomeAccepted,
		Code:    code,
		Credit:  credits,
		Balance: next.Balance,
	}, next
}

// Clear returns an empty ledger for the same user.
func Clear(ledger domain.Ledger) (domain.Outcome, domain.Ledger) {
	return domain.Outcome{Kind: domain.OutcomeCleared}, domain.NewLedger(ledger.UserID)
}
