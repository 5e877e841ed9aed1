package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"papertrade/configs"
	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
)

// runtime is what every subcommand works against
type runtime struct {
	executor *usecase.TradeExecutor
	prices   domain.PriceSource
	reports  *service.PnLReportService
	currency string
	close    func()
}

type rootOptions struct {
	user       string
	backend    string
	dir        string
	sqlitePath string
	verbose    bool
}

// opener builds the runtime for one command invocation
type opener func(ctx context.Context, opts *rootOptions) (*runtime, error)

// Execute runs ledgerctl against the configured store
func Execute() error {
	return NewRootCmd(openRuntime).Execute()
}

// NewRootCmd builds the command tree. open is called once per subcommand run.
func NewRootCmd(open opener) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and trade a paper-trading ledger",
		Long: `ledgerctl works directly against a paper-trading ledger store on this device.

The store is chosen by STORE_BACKEND (file, sqlite or postgres) and can be
overridden with --store. Every command acts on the wallet given by --user.

Examples:
  ledgerctl --user 0xabc... balance
  ledgerctl --user 0xabc... buy 0x1111... 100 --price 2
  ledgerctl --user 0xabc... pnl --sort realized_pnl --desc`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "wallet address of the ledger owner")
	root.PersistentFlags().StringVar(&opts.backend, "store", "", "store backend: file, sqlite or postgres (default from config)")
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "file store directory (default from config)")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "sqlite database path (default from config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	// withRuntime opens the store around a subcommand
	var withRuntime runtimeWrapper = func(needsUser bool, run runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			var userID string
			if needsUser {
				id, err := domain.NormalizeAddress(opts.user)
				if err != nil {
					return fmt.Errorf("--user: %w", err)
				}
				userID = id
			}

			rt, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.close()
			return run(cmd, args, rt, userID)
		}
	}

	root.AddCommand(
		newBalanceCmd(withRuntime),
		newHoldingsCmd(withRuntime),
		newTradesCmd(withRuntime),
		newTradeCmd(domain.SideBuy, withRuntime),
		newTradeCmd(domain.SideSell, withRuntime),
		newPnLCmd(withRuntime),
		newResetCmd(withRuntime),
		newPriceCmd(withRuntime),
	)
	return root
}

type runFunc func(cmd *cobra.Command, args []string, rt *runtime, userID string) error

type runtimeWrapper func(needsUser bool, run runFunc) func(*cobra.Command, []string) error

func openRuntime(ctx context.Context, opts *rootOptions) (*runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := configs.Load()
	if err != nil {
		return nil, err
	}
	if opts.backend != "" {
		cfg.Store.Backend = opts.backend
	}
	if opts.dir != "" {
		cfg.Store.Dir = opts.dir
	}
	if opts.sqlitePath != "" {
		cfg.Store.SQLitePath = opts.sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = infra.NewLogger("development"); err != nil {
			return nil, err
		}
	}

	store, err := infra.OpenLedgerStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	prices, closePrices := infra.NewPriceSource(ctx, cfg, logger)
	executor := usecase.NewTradeExecutor(store, logger)

	return &runtime{
		executor: executor,
		prices:   prices,
		reports:  service.NewPnLReportService(executor, infra.NewSummarizer(cfg, logger), logger),
		currency: cfg.Price.BaseCurrency,
		close: func() {
			closePrices()
			store.Close()
			_ = logger.Sync()
		},
	}, nil
}
