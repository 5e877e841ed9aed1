package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"papertrade/internal/domain"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
)

// newTradeCmd builds the buy or sell command
func newTradeCmd(side domain.Side, withRuntime runtimeWrapper) *cobra.Command {
	var (
		price  float64
		symbol string
		name   string
	)

	cmd := &cobra.Command{
		Use:   string(side) + " <token-address> <amount>",
		Short: fmt.Sprintf("Paper-%s a token at the market or a given price", side),
		Args:  cobra.ExactArgs(2),
		RunE: withRuntime(true, func(cmd *cobra.Command, args []string, rt *runtime, userID string) error {
			token, err := domain.NormalizeAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: amount %q", domain.ErrInvalidAmount, args[1])
			}

			req := usecase.TradeRequest{
				UserID:       userID,
				TokenAddress: token,
				TokenSymbol:  symbol,
				TokenName:    name,
				Side:         side,
				Amount:       amount,
			}
			var unitPrice *float64
			if cmd.Flags().Changed("price") {
				unitPrice = &price
			}
			if err := usecase.ResolvePrices(cmd.Context(), rt.prices, &req, unitPrice, nil); err != nil {
				return err
			}

			result, err := rt.executor.ExecuteTrade(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
			}
			rt.prices.Invalidate(token)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %g %s @ %g = %s\n", side, result.Trade.Amount, symbolOf(result.Trade),
				result.Trade.UnitPrice, service.FormatAmount(result.Trade.TotalBase, rt.currency))
			if result.RealizedPnL != nil {
				fmt.Fprintf(out, "Realized P&L: %s\n", service.FormatAmount(*result.RealizedPnL, rt.currency))
			}
			fmt.Fprintf(out, "Balance: %s\n", service.FormatAmount(result.Ledger.Balance, rt.currency))
			return nil
		}),
	}
	cmd.Flags().Float64Var(&price, "price", 0, "unit price in the base currency (default: market price)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol to record")
	cmd.Flags().StringVar(&name, "name", "", "token name to record")
	return cmd
}
