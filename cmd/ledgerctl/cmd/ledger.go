package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"papertrade/internal/domain"
	"papertrade/internal/service"
)

func newBalanceCmd(withRuntime runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the cash balance",
		Args:  cobra.NoArgs,
		RunE: withRuntime(true, func(cmd *cobra.Command, _ []string, rt *runtime, userID string) error {
			ledger, err := rt.executor.GetLedger(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatAmount(ledger.Balance, rt.currency))
			return nil
		}),
	}
}

func newHoldingsCmd(withRuntime runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings",
		Short: "List open holdings with their average cost",
		Args:  cobra.NoArgs,
		RunE: withRuntime(true, func(cmd *cobra.Command, _ []string, rt *runtime, userID string) error {
			ledger, err := rt.executor.GetLedger(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if len(ledger.Holdings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No holdings")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tSYMBOL\tAMOUNT\tAVG COST\tINVESTED")
			for _, h := range ledger.Holdings {
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%s\n",
					domain.ChecksumAddress(h.TokenAddress), h.TokenSymbol, h.Amount, h.AverageCost,
					service.FormatAmount(h.TotalInvested, rt.currency))
			}
			return w.Flush()
		}),
	}
}

func newTradesCmd(withRuntime runtimeWrapper) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List trades, most recent first",
		Args:  cobra.NoArgs,
		RunE: withRuntime(true, func(cmd *cobra.Command, _ []string, rt *runtime, userID string) error {
			ledger, err := rt.executor.GetLedger(cmd.Context(), userID)
			if err != nil {
				return err
			}
			trades := ledger.Trades
			if limit > 0 && len(trades) > limit {
				trades = trades[:limit]
			}
			if len(trades) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No trades")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSIDE\tSYMBOL\tAMOUNT\tPRICE\tTOTAL\tREALIZED")
			for _, t := range trades {
				realized := "-"
				if t.RealizedPnL != nil {
					realized = service.FormatAmount(*t.RealizedPnL, rt.currency)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%s\t%s\n",
					t.Timestamp.UTC().Format(time.RFC3339), strings.ToUpper(string(t.Side)), symbolOf(t),
					t.Amount, t.UnitPrice, service.FormatAmount(t.TotalBase, rt.currency), realized)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of trades to show (0 for all)")
	return cmd
}

func newResetCmd(withRuntime runtimeWrapper) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the starting balance and clear holdings and trades",
		Args:  cobra.NoArgs,
		RunE: withRuntime(true, func(cmd *cobra.Command, _ []string, rt *runtime, userID string) error {
			if !yes {
				return fmt.Errorf("reset discards all trades; pass --yes to confirm")
			}
			if err := rt.executor.ResetLedger(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger reset to %s\n", service.FormatAmount(domain.StartingBalance, rt.currency))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func symbolOf(t domain.Trade) string {
	if t.TokenSymbol != "" {
		return t.TokenSymbol
	}
	return domain.ChecksumAddress(t.TokenAddress)
}
