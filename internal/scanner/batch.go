// Package scanner adapts payloads decoded on a device to the scanner
// contract the ledger service consumes.
package scanner

import (
	"context"

	"github.com/azizikri/qr-credits/internal/domain"
)

// Batch replays the codes a device decoded in one camera session together
// with the camera permission the device reported.
type Batch struct {
	codes      []string
	permission domain.Permission
}

func NewBatch(codes []string, permission domain.Permission) *Batch {
	if permission == "" {
		permission = domain.PermissionGranted
	}
	return &Batch{codes: codes, permission: permission}
}

func (b *Batch) IsSupported(ctx context.Context) bool {
	return true
}

func (b *Batch) RequestPermission(ctx context.Context) (domain.Permission, error) {
	return b.permission, nil
}

// Scan returns the decoded payloads untouched, whitespace included.
func (b *Batch) Scan(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(b.codes))
	copy(out, b.codes)
	return out, nil
}
