// Package cli implements ledgerctl, the operator tool for inspecting and
// correcting credit ledgers.
package cli

import (
	"context"
	"fmt"

	"github.com/azizikri/qr-credits/internal/usecase"
	"github.com/spf13/cobra"
)

// ServiceFactory opens a ledger service. The returned func releases it.
type ServiceFactory func(ctx context.Context, catalogFile string) (*usecase.LedgerService, func(), error)

type RootOptions struct {
	Format      string // "json" | "text"
	CatalogFile string
	OpenService ServiceFactory
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand(open ServiceFactory) *cobra.Command {
	opts := &RootOptions{OpenService: open}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and correct QR credit ledgers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.CatalogFile, "catalog", "", "catalog YAML file (default: built-in table)")

	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewRedeemCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
