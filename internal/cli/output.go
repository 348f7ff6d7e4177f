package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/spf13/cobra"
)

type formatter struct {
	format string
	w      io.Writer
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) formatter {
	return formatter{format: opts.Format, w: cmd.OutOrStdout()}
}

func (f formatter) json(v any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f formatter) ledger(l domain.Ledger) error {
	codes := l.RedeemedCodes()
	if f.format == "json" {
		counts := l.AdminCounts
		if counts == nil {
			counts = map[string]int{}
		}
		return f.json(map[string]any{
			"user_id":                 l.UserID,
			"balance":                 l.Balance,
			"redeemed_codes":          append([]string{}, codes...),
			"admin_redemption_counts": counts,
		})
	}

	fmt.Fprintf(f.w, "User:    %s\n", l.UserID)
	fmt.Fprintf(f.w, "Balance: %d\n", l.Balance)
	if len(codes) > 0 {
		fmt.Fprintf(f.w, "Redeemed: %s\n", strings.Join(quoteAll(codes), ", "))
	}
	for code, n := range l.AdminCounts {
		fmt.Fprintf(f.w, "Admin count: %q x%d\n", code, n)
	}
	return nil
}

func (f formatter) outcome(o domain.Outcome) error {
	if f.format == "json" {
		return f.json(map[string]any{
			"kind":    string(o.Kind),
			"code":    o.Code,
			"credit":  o.Credit,
			"balance": o.Balance,
			"message": o.Message(),
		})
	}
	fmt.Fprintln(f.w, o.Message())
	return nil
}

func (f formatter) catalog(c domain.Catalog) error {
	padded := c.PaddedCodes()
	if f.format == "json" {
		return f.json(map[string]any{
			"codes":  c.Len(),
			"padded": append([]string{}, padded...),
		})
	}
	fmt.Fprintf(f.w, "Catalog OK: %d codes\n", c.Len())
	for _, code := range padded {
		fmt.Fprintf(f.w, "warning: code %q has surrounding whitespace and only matches that exact payload\n", code)
	}
	return nil
}

// quoteAll keeps whitespace visible in operator output.
func quoteAll(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = fmt.Sprintf("%q", c)
	}
	return out
}
