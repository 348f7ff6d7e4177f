// Package identity decides who a caller is and which redemption policy
// applies to them.
package identity

import (
	"strings"

	"github.com/azizikri/qr-credits/internal/domain"
)

// StaticResolver grants the privileged policy to callers carrying the admin
// role and to a fixed list of user IDs. Everyone else is standard.
type StaticResolver struct {
	privileged map[string]struct{}
}

func NewStaticResolver(privileged []string) *StaticResolver {
	r := &StaticResolver{privileged: make(map[string]struct{}, len(privileged))}
	for _, id := range privileged {
		id = domain.NormalizeUserID(id)
		if id != "" {
			r.privileged[id] = struct{}{}
		}
	}
	return r
}

func (r *StaticResolver) Resolve(id domain.Identity) domain.Policy {
	if strings.EqualFold(id.Role, domain.RoleAdmin) {
		return domain.PrivilegedPolicy
	}
	if _, ok := r.privileged[domain.NormalizeUserID(id.UserID)]; ok {
		return domain.PrivilegedPolicy
	}
	return domain.StandardPolicy
}

// ParseList splits a comma separated list of identities.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
