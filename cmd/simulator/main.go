package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/finscope/walletsim/internal/config"
	"github.com/finscope/walletsim/internal/domain"
	"github.com/finscope/walletsim/internal/metrics"
	"github.com/finscope/walletsim/internal/usecase/fx"
	"github.com/finscope/walletsim/internal/usecase/liquidation"
	"github.com/finscope/walletsim/internal/usecase/report"
	"github.com/finscope/walletsim/internal/usecase/simulate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, collector, logger)
	}

	resolver := fx.NewResolver()
	engine := liquidation.NewEngine(resolver, cfg.Wallet.BaseCurrency)

	startDate := time.Now().UTC().Truncate(24 * time.Hour)
	table := domain.NewExchangeRateTable(cfg.Rates.Pairs, startDate)

	dailyNet := cfg.Wallet.DailyNet
	cashFlow := func(day int, state *domain.WalletState) decimal.Decimal {
		return dailyNet
	}
	stepper := simulate.NewStepper(engine, startDate, cashFlow, nil)
	runner := simulate.NewRunner(stepper, logger, collector)

	initial := domain.WalletState{
		Balance:     cfg.Wallet.InitialBalance,
		Assets:      defaultPortfolio(cfg.Wallet.BaseCurrency, startDate),
		CreditScore: cfg.Wallet.CreditScore,
	}

	runCfg := simulate.RunConfig{
		Days:           cfg.Simulation.Days,
		EnsembleSize:   cfg.Simulation.EnsembleSize,
		Workers:        cfg.Simulation.Workers,
		Seed:           cfg.Simulation.Seed,
		RateVolatility: cfg.Simulation.RateVolatility,
	}

	ensemble, err := runner.Run(ctx, initial, &table, runCfg)
	if err != nil {
		logger.Fatal("ensemble run failed", zap.Error(err))
	}

	aggregator := report.NewAggregator(engine)
	result, err := aggregator.Aggregate(ensemble, &table, startDate.AddDate(0, 0, cfg.Simulation.Days))
	if err != nil {
		logger.Fatal("aggregation failed", zap.Error(err))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Fatal("failed to encode report", zap.Error(err))
	}
}

// defaultPortfolio is the sample starting book every ensemble member holds:
// one asset per liquidity class, with a locked certificate to exercise the
// lock rules.
func defaultPortfolio(baseCurrency string, startDate time.Time) []domain.Asset {
	cdUnlock := startDate.AddDate(0, 0, 45)
	return []domain.Asset{
		{Name: "Checking", Amount: decimal.NewFromInt(1500), Currency: baseCurrency, LiquidityClass: domain.LiquidityClassLiquid},
		{Name: "Certificate of Deposit", Amount: decimal.NewFromInt(3000), Currency: baseCurrency, LiquidityClass: domain.LiquidityClassLiquid, LockedUntil: &cdUnlock},
		{Name: "Bond Fund", Amount: decimal.NewFromInt(4000), Currency: baseCurrency, Volatility: 0.05, LiquidityClass: domain.LiquidityClassYield},
		{Name: "Index Fund", Amount: decimal.NewFromInt(2500), Currency: "EUR", Volatility: 0.25, LiquidityClass: domain.LiquidityClassVolatile},
		{Name: "Collectibles", Amount: decimal.NewFromInt(800), Currency: baseCurrency, Volatility: 0.4, LiquidityClass: domain.LiquidityClassIlliquid},
	}
}

func newLogger(level string) *zap.Logger {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.OutputPaths = []string{"stderr"} // keep stdout clean for the JSON report
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func serveMetrics(addr string, collector *metrics.Collector, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	logger.Info("metrics listener started", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
