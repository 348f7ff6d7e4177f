package domain

import "fmt"

type OutcomeKind string

const (
	OutcomeAccepted              OutcomeKind = "accepted"
	OutcomeInvalidCode           OutcomeKind = "invalid_code"
	OutcomeAlreadyRedeemed       OutcomeKind = "already_redeemed"
	OutcomeMaxRedemptionsReached OutcomeKind = "max_redemptions_reached"
	OutcomePersistenceFailure    OutcomeKind = "persistence_failure"
	OutcomeCleared               OutcomeKind = "cleared"
)

// Outcome is the result of a single scan submission or a ledger clear.
// Credit and Balance are only meaningful for accepted and cleared outcomes.
type Outcome struct {
	Kind    OutcomeKind
	Code    string
	Credit  int
	Balance int
}

func (o Outcome) Accepted() bool {
	return o.Kind == OutcomeAccepted
}

// Rejected reports whether the scan was refused by the redemption rules.
func (o Outcome) Rejected() bool {
	switch o.Kind {
	case OutcomeInvalidCode, OutcomeAlreadyRedeemed, OutcomeMaxRedemptionsReached:
		return true
	}
	return false
}

// Err returns the sentinel error matching a non-successful outcome.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeInvalidCode:
		return ErrInvalidCode
	case OutcomeAlreadyRedeemed:
		return ErrAlreadyRedeemed
	case OutcomeMaxRedemptionsReached:
		return ErrMaxRedemptionsReached
	case OutcomePersistenceFailure:
		return ErrPersistence
	}
	return nil
}

// Message is the text shown to the user for this outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeAccepted:
		return fmt.Sprintf("Credit loaded: %d. Total credit: %d", o.Credit, o.Balance)
	case OutcomeInvalidCode:
		return "Invalid QR code."
	case OutcomeAlreadyRedeemed:
		return "QR code already loaded."
	case OutcomeMaxRedemptionsReached:
		return "This code cannot be loaded more than twice."
	case OutcomePersistenceFailure:
		return "Credit could not be saved, please scan again."
	case OutcomeCleared:
		return "Credits cleared."
	}
	return ""
}
