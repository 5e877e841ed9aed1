package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"papertrade/internal/domain"
	"papertrade/internal/service"
)

func newPnLCmd(withRuntime runtimeWrapper) *cobra.Command {
	var (
		sortKey string
		desc    bool
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Show lifetime P&L per token",
		Args:  cobra.NoArgs,
		RunE: withRuntime(true, func(cmd *cobra.Command, _ []string, rt *runtime, userID string) error {
			var (
				report *domain.PnLReport
				text   string
				err    error
			)
			if summary {
				text, report, err = rt.reports.Summary(cmd.Context(), userID)
			} else {
				report, err = rt.reports.Report(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}
			if !service.SortTokenPnL(report.Tokens, sortKey, desc) {
				return fmt.Errorf("unknown sort key %q (want token, realized_pnl, volume or last_trade)", sortKey)
			}

			out := cmd.OutOrStdout()
			if len(report.Tokens) == 0 {
				fmt.Fprintln(out, "No trades")
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYMBOL\tBOUGHT\tSOLD\tAVG BUY\tAVG SELL\tREALIZED\tTRADES")
				for _, t := range report.Tokens {
					symbol := t.TokenSymbol
					if symbol == "" {
						symbol = domain.ChecksumAddress(t.TokenAddress)
					}
					fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%s\t%d\n",
						symbol, t.BuyAmount, t.SellAmount, t.AvgBuyPrice, t.AvgSellPrice,
						service.FormatAmount(t.RealizedPnL, rt.currency), t.TradeCount)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "Total realized: %s (engine: %s)\n",
				service.FormatAmount(report.TotalRealizedPnL, rt.currency),
				service.FormatAmount(report.EngineRealizedPnL, rt.currency))
			if summary {
				fmt.Fprintln(out, text)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&sortKey, "sort", service.SortByToken, "sort by token, realized_pnl, volume or last_trade")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&summary, "summary", false, "append an AI summary")
	return cmd
}

func newPriceCmd(withRuntime runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "price <token-address>",
		Short: "Show the market price of a token",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(false, func(cmd *cobra.Command, args []string, rt *runtime, _ string) error {
			token, err := domain.NormalizeAddress(args[0])
			if err != nil {
				return err
			}
			q, err := rt.prices.GetUnitPrice(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %g (as of %s)\n",
				domain.ChecksumAddress(token), q.Price, q.AsOf.UTC().Format("2006-01-02 15:04:05"))
			return nil
		}),
	}
}
