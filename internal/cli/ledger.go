package cli

import (
	"context"
	"fmt"

	"github.com/azizikri/qr-credits/internal/catalog"
	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/spf13/cobra"
)

func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Print a user's balance and redeemed codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc ledgerService) error {
				ledger, err := svc.GetLedger(ctx, domain.Identity{UserID: args[0]})
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).ledger(ledger)
			})
		},
	}
}

type RedeemOptions struct {
	*RootOptions
	Role string
}

func NewRedeemCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RedeemOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "redeem <user> <code>",
		Short: "Submit a scanned code on behalf of a user",
		Long: `Submit a scanned code on behalf of a user.

The same rules apply as for a scan from the device: unknown codes and
repeated redemptions are rejected and leave the ledger unchanged.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.Identity{UserID: args[0], Role: opts.Role}
			return withService(cmd.Context(), opts.RootOptions, func(ctx context.Context, svc ledgerService) error {
				outcome, err := svc.SubmitScan(ctx, id, args[1])
				if outcome.Kind != "" {
					if ferr := newFormatter(opts.RootOptions, cmd).outcome(outcome); ferr != nil {
						return ferr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "caller role (\"admin\" selects the privileged policy)")
	return cmd
}

func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <user>",
		Short: "Reset a user's balance and redemption history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc ledgerService) error {
				outcome, err := svc.ClearLedger(ctx, domain.Identity{UserID: args[0]})
				if err != nil {
					return err
				}
				return newFormatter(opts, cmd).outcome(outcome)
			})
		},
	}
}

func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate the catalog and report codes with surrounding whitespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(opts.CatalogFile)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd).catalog(c)
		},
	}
}

type ledgerService interface {
	SubmitScan(ctx context.Context, id domain.Identity, code string) (domain.Outcome, error)
	ClearLedger(ctx context.Context, id domain.Identity) (domain.Outcome, error)
	GetLedger(ctx context.Context, id domain.Identity) (domain.Ledger, error)
}

func withService(ctx context.Context, opts *RootOptions, fn func(context.Context, ledgerService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.OpenService == nil {
		return fmt.Errorf("no ledger backend configured")
	}
	svc, release, err := opts.OpenService(ctx, opts.CatalogFile)
	if err != nil {
		return fmt.Errorf("open ledger service: %w", err)
	}
	defer release()
	return fn(ctx, svc)
}
