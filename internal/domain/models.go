package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidCode           = errors.New("invalid qr code")
	ErrAlreadyRedeemed       = errors.New("qr code already redeemed")
	ErrMaxRedemptionsReached = errors.New("qr code redemption limit reached")
	ErrPersistence           = errors.New("ledger persistence failed")
	ErrPermissionDenied      = errors.New("camera permission denied")
	ErrScannerUnsupported    = errors.New("barcode scanner not supported")
	ErrNotFound              = errors.New("ledger not found")
	ErrInvalidCatalog        = errors.New("invalid reward catalog")
	ErrMissingIdentity       = errors.New("missing user identity")
)

const RoleAdmin = "admin"

// Identity is the caller a ledger belongs to. Role is optional and only
// consulted by the policy resolver.
type Identity struct {
	UserID string
	Role   string
}

// NormalizeUserID is the ledger key for a user: trimmed and lower-cased, so
// every spelling of an email address shares one ledger.
func NormalizeUserID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

type Policy struct {
	Name           string
	MaxRedemptions int
}

var (
	StandardPolicy   = Policy{Name: "standard", MaxRedemptions: 1}
	PrivilegedPolicy = Policy{Name: "privileged", MaxRedemptions: 2}
)

// Counted reports whether the policy tracks per-code redemption counts
// instead of the once-only redeemed set.
func (p Policy) Counted() bool {
	return p.MaxRedemptions > 1
}

// Catalog maps a QR payload to the credits it is worth. Keys are matched
// byte for byte, whitespace included.
type Catalog struct {
	values map[string]int
}

func NewCatalog(values map[string]int) (Catalog, error) {
	copied := make(map[string]int, len(values))
	for code, credits := range values {
		if code == "" {
			return Catalog{}, fmt.Errorf("%w: empty code", ErrInvalidCatalog)
		}
		if credits <= 0 {
			return Catalog{}, fmt.Errorf("%w: code %q has non-positive value %d", ErrInvalidCatalog, code, credits)
		}
		copied[code] = credits
	}
	return Catalog{values: copied}, nil
}

// Lookup tests key presence, so it never confuses a missing code with a
// zero value.
func (c Catalog) Lookup(code string) (int, bool) {
	credits, ok := c.values[code]
	return credits, ok
}

func (c Catalog) Len() int {
	return len(c.values)
}

// PaddedCodes returns the codes that carry leading or trailing whitespace.
func (c Catalog) PaddedCodes() []string {
	var padded []string
	for code := range c.values {
		if strings.TrimSpace(code) != code {
			padded = append(padded, code)
		}
	}
	sort.Strings(padded)
	return padded
}

// Ledger is a user's balance and redemption history. Redeemed holds codes
// redeemed under the standard policy, AdminCounts the per-code counts under
// the privileged policy.
type Ledger struct {
	UserID      string
	Balance     int
	Redeemed    map[string]struct{}
	AdminCounts map[string]int
	UpdatedAt   time.Time
}

func NewLedger(userID string) Ledger {
	return Ledger{
		UserID:      userID,
		Redeemed:    map[string]struct{}{},
		AdminCounts: map[string]int{},
	}
}

func (l Ledger) Clone() Ledger {
	out := Ledger{
		UserID:      l.UserID,
		Balance:     l.Balance,
		Redeemed:    make(map[string]struct{}, len(l.Redeemed)),
		AdminCounts: make(map[string]int, len(l.AdminCounts)),
		UpdatedAt:   l.UpdatedAt,
	}
	for code := range l.Redeemed {
		out.Redeemed[code] = struct{}{}
	}
	for code, n := range l.AdminCounts {
		out.AdminCounts[code] = n
	}
	return out
}

func (l Ledger) HasRedeemed(code string) bool {
	_, ok := l.Redeemed[code]
	return ok
}

// RedeemedCodes returns the standard redeemed set in sorted order.
func (l Ledger) RedeemedCodes() []string {
	codes := make([]string, 0, len(l.Redeemed))
	for code := range l.Redeemed {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LedgerFromParts builds a ledger from its persisted form.
func LedgerFromParts(userID string, balance int, redeemed []string, counts map[string]int, updatedAt time.Time) Ledger {
	l := NewLedger(userID)
	l.Balance = balance
	l.UpdatedAt = updatedAt
	for _, code := range redeemed {
		l.Redeemed[code] = struct{}{}
	}
	for code, n := range counts {
		if n > 0 {
			l.AdminCounts[code] = n
		}
	}
	return l
}

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionLimited Permission = "limited"
	PermissionDenied  Permission = "denied"
)

// ParsePermission defaults an empty value to granted.
func ParsePermission(s string) (Permission, error) {
	switch Permission(strings.ToLower(strings.TrimSpace(s))) {
	case "", PermissionGranted:
		return PermissionGranted, nil
	case PermissionLimited:
		return PermissionLimited, nil
	case PermissionDenied:
		return PermissionDenied, nil
	default:
		return "", fmt.Errorf("unknown camera permission %q", s)
	}
}

func (p Permission) Allowed() bool {
	return p == PermissionGranted || p == PermissionLimited
}
