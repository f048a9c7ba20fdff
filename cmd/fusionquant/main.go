// Command fusionquant is the single entry point for the decision pipeline,
// adapted from the prior main.go wiring order (config → logging →
// collaborators → run), narrowed to cobra subcommands instead of one
// monolithic startup path since this module has no long-lived bot loop to
// anchor a single `main`.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fusionquant/internal/adapters"
	"fusionquant/internal/api"
	"fusionquant/internal/backtest"
	"fusionquant/internal/cache"
	"fusionquant/internal/candle"
	"fusionquant/internal/config"
	"fusionquant/internal/decision"
	"fusionquant/internal/feature"
	"fusionquant/internal/logging"
	"fusionquant/internal/pipeline"
	"fusionquant/internal/position"
	"fusionquant/internal/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "fusionquant",
		Short: "Perpetual-futures decision pipeline: feature aggregation, safety gate, scoring, and position planning.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file (defaults to config.json if present)")

	root.AddCommand(singleCmd(), monitorCmd(), apiCmd(), backtestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadRuntime() (*config.Config, *logging.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		JSONFormat: cfg.Logging.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	return cfg, logger
}

func pipelineConfigFrom(cfg *config.Config) pipeline.Config {
	pcfg := pipeline.DefaultConfig()
	pcfg.FeatureConfig.ShortMAPeriod = nonZero(cfg.Candles.ShortMAPeriod, pcfg.FeatureConfig.ShortMAPeriod)
	pcfg.FeatureConfig.LongMAPeriod = nonZero(cfg.Candles.LongMAPeriod, pcfg.FeatureConfig.LongMAPeriod)
	if cfg.Decision.ExtendedLayout {
		pcfg.FeatureConfig.Layout = feature.Extended
	}
	pcfg.Thresholds = decision.Thresholds{
		BuyScore:       nonZeroFloat(cfg.Thresholds.BuyScore, pcfg.Thresholds.BuyScore),
		SellScore:      nonZeroFloat(cfg.Thresholds.SellScore, pcfg.Thresholds.SellScore),
		MinConsistency: nonZeroFloat(cfg.Thresholds.MinConsistency, pcfg.Thresholds.MinConsistency),
	}
	pcfg.Deadlines = adapters.Deadlines{
		Candles:          secs(cfg.Deadlines.CandlesSecs),
		OrderBook:        secs(cfg.Deadlines.OrderBookSecs),
		Gas:              secs(cfg.Deadlines.GasSecs),
		News:             secs(cfg.Deadlines.NewsSecs),
		Sentiment:        secs(cfg.Deadlines.SentimentSecs),
		Macro:            secs(cfg.Deadlines.MacroSecs),
		Futures:          secs(cfg.Deadlines.FuturesSecs),
		PredictionMarket: secs(cfg.Deadlines.PredictionMarketSecs),
		AIPredictors:     secs(cfg.Deadlines.AIPredictorsSecs),
	}
	if cfg.Deadlines.WholeRequestSecs > 0 {
		pcfg.WholeRequestDeadline = secs(cfg.Deadlines.WholeRequestSecs)
	}
	pcfg.CandleInterval = nonZeroString(cfg.Candles.Interval, pcfg.CandleInterval)
	pcfg.CandleCount = nonZero(cfg.Candles.Window, pcfg.CandleCount)
	return pcfg
}

func secs(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func nonZero(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func nonZeroFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func nonZeroString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func buildBundle(cfg *config.Config, c *cache.Cache) func(symbol string) adapters.Bundle {
	return func(symbol string) adapters.Bundle {
		bundle := adapters.BuildBundle(cfg.Adapters)
		return cache.Wrap(c, symbol, bundle)
	}
}

func singleCmd() *cobra.Command {
	var symbol string
	var balance float64
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Run one decision cycle for a symbol and print the outcome.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadRuntime()
			redisCache := cache.New(cfg.Redis)
			defer redisCache.Close()

			bundle := buildBundle(cfg, redisCache)(symbol)
			pcfg := pipelineConfigFrom(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), pcfg.WholeRequestDeadline+5*time.Second)
			defer cancel()

			outcome := pipeline.Run(ctx, bundle, pipeline.Request{
				Symbol: symbol,
				Account: decision.AccountState{Balance: balance},
				PositionAccount: position.Account{
					Balance:     balance,
					Leverage:    cfg.Account.Leverage,
					RiskPercent: cfg.Account.RiskPercent,
					StopLossPct: cfg.Account.StopLossPct,
				},
			}, pcfg)

			logger.WithField("symbol", symbol).Info("single decision cycle complete")
			return json.NewEncoder(os.Stdout).Encode(outcome)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "trading symbol")
	cmd.Flags().Float64Var(&balance, "balance", 10000, "account balance in quote currency")
	return cmd
}

func monitorCmd() *cobra.Command {
	var symbol string
	var interval time.Duration
	var balance float64
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run decision cycles on a fixed interval until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadRuntime()
			redisCache := cache.New(cfg.Redis)
			defer redisCache.Close()

			st, err := store.Open(context.Background(), cfg.Database)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer st.Close()

			pcfg := pipelineConfigFrom(cfg)
			factory := buildBundle(cfg, redisCache)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			runOnce := func() {
				reqCtx, cancel := context.WithTimeout(ctx, pcfg.WholeRequestDeadline+5*time.Second)
				defer cancel()
				outcome := pipeline.Run(reqCtx, factory(symbol), pipeline.Request{
					Symbol:  symbol,
					Account: decision.AccountState{Balance: balance},
					PositionAccount: position.Account{
						Balance:     balance,
						Leverage:    cfg.Account.Leverage,
						RiskPercent: cfg.Account.RiskPercent,
					},
				}, pcfg)
				if err := st.SaveDecisionSnapshot(reqCtx, outcome.RequestID.String(), symbol, outcome.Decision); err != nil {
					logger.WithError(err).Warn("monitor: failed to persist decision snapshot")
				}
				logger.WithFields(map[string]interface{}{
					"symbol":     symbol,
					"action":     outcome.Decision.Action.String(),
					"confidence": outcome.Decision.Confidence,
				}).Info("monitor cycle complete")
			}

			runOnce()
			for {
				select {
				case <-ctx.Done():
					logger.Info("monitor shutting down")
					return nil
				case <-ticker.C:
					runOnce()
				}
			}
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "trading symbol")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between decision cycles")
	cmd.Flags().Float64Var(&balance, "balance", 10000, "account balance in quote currency")
	return cmd
}

func apiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the HTTP decision API and websocket stream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadRuntime()
			redisCache := cache.New(cfg.Redis)
			defer redisCache.Close()

			st, err := store.Open(context.Background(), cfg.Database)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}
			defer st.Close()

			pcfg := pipelineConfigFrom(cfg)
			server := api.NewServer(cfg.Server, pcfg, redisCache, st, buildBundle(cfg, redisCache))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting api server")
			return server.Run(ctx)
		},
	}
	return cmd
}

func backtestCmd() *cobra.Command {
	var symbol, candlesPath, outDir string
	var balance float64
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a CSV candle series and write trades/summary artefacts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadRuntime()

			series, err := loadCandlesCSV(candlesPath)
			if err != nil {
				return err
			}

			result, err := backtest.Run(series, backtest.Config{
				Symbol:        symbol,
				Balance:       balance,
				Leverage:      cfg.Account.Leverage,
				RiskPercent:   cfg.Account.RiskPercent,
				FeatureConfig: pipelineConfigFrom(cfg).FeatureConfig,
			})
			if err != nil {
				return fmt.Errorf("backtest: %w", err)
			}

			if outDir != "" {
				if err := writeBacktestArtefacts(outDir, symbol, result); err != nil {
					return err
				}
			}

			logger.WithFields(map[string]interface{}{
				"symbol":      symbol,
				"trades":      result.Summary.TotalTrades,
				"win_rate":    result.Summary.WinRate,
				"final_balance": result.Summary.FinalBalance,
			}).Info("backtest complete")
			return json.NewEncoder(os.Stdout).Encode(result.Summary)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "trading symbol")
	cmd.Flags().StringVar(&candlesPath, "candles", "", "path to a CSV file of open_time,open,high,low,close,volume rows")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write trades.csv and summary.txt into (optional)")
	cmd.Flags().Float64Var(&balance, "balance", 10000, "starting balance")
	cmd.MarkFlagRequired("candles")
	return cmd
}

func loadCandlesCSV(path string) (candle.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening candle file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing candle csv: %w", err)
	}

	series := make(candle.Series, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		openTime, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue // header row or malformed line, skip rather than abort
		}
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		close_, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)
		series = append(series, candle.Candle{
			OpenTime: openTime, Open: open, High: high, Low: low, Close: close_, Volume: volume,
		})
	}
	return series, nil
}

func writeBacktestArtefacts(outDir, symbol string, result backtest.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tradesFile, err := os.Create(outDir + "/trades.csv")
	if err != nil {
		return fmt.Errorf("creating trades.csv: %w", err)
	}
	defer tradesFile.Close()

	w := csv.NewWriter(tradesFile)
	w.Write([]string{"side", "open_ts", "close_ts", "entry", "exit", "exit_reason", "pnl_quote", "pnl_pct"})
	for _, t := range result.Trades {
		w.Write([]string{
			t.Side.String(),
			strconv.FormatInt(t.OpenTS, 10),
			strconv.FormatInt(t.CloseTS, 10),
			strconv.FormatFloat(t.Entry, 'f', 8, 64),
			strconv.FormatFloat(t.Exit, 'f', 8, 64),
			t.ExitReason.String(),
			strconv.FormatFloat(t.PnLQuote, 'f', 8, 64),
			strconv.FormatFloat(t.PnLPct, 'f', 6, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing trades.csv: %w", err)
	}

	statsFile, err := os.Create(outDir + "/summary.txt")
	if err != nil {
		return fmt.Errorf("creating summary.txt: %w", err)
	}
	defer statsFile.Close()

	s := result.Summary
	fmt.Fprintf(statsFile, "symbol: %s\n", symbol)
	fmt.Fprintf(statsFile, "total_trades: %d\n", s.TotalTrades)
	fmt.Fprintf(statsFile, "wins: %d\n", s.Wins)
	fmt.Fprintf(statsFile, "losses: %d\n", s.Losses)
	fmt.Fprintf(statsFile, "win_rate: %.4f\n", s.WinRate)
	fmt.Fprintf(statsFile, "profit_factor: %.4f\n", s.ProfitFactor)
	fmt.Fprintf(statsFile, "max_drawdown: %.4f\n", s.MaxDrawdown)
	fmt.Fprintf(statsFile, "sharpe_proxy: %.4f\n", s.SharpeProxy)
	fmt.Fprintf(statsFile, "final_balance: %.2f\n", s.FinalBalance)
	return nil
}
