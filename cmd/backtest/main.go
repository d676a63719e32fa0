package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pairbot-go/internal/config"
	"pairbot-go/internal/engine"
	"pairbot-go/internal/market"
	"pairbot-go/internal/paper"
	"pairbot-go/internal/risk"
	"pairbot-go/internal/store"
	"pairbot-go/internal/strategy"
	"pairbot-go/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	startStr := flag.String("start", "", "replay start, RFC3339 (default: unbounded)")
	endStr := flag.String("end", "", "replay end, RFC3339, exclusive (default: unbounded)")
	cash := flag.Float64("cash", 1_000_000, "starting cash for the simulated account")
	fillsPath := flag.String("fills", "", "JSONL fill log path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var start, end time.Time
	if *startStr != "" {
		if start, err = time.Parse(time.RFC3339, *startStr); err != nil {
			log.Fatal().Err(err).Msg("parse -start")
		}
	}
	if *endStr != "" {
		if end, err = time.Parse(time.RFC3339, *endStr); err != nil {
			log.Fatal().Err(err).Msg("parse -end")
		}
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Store.RedisURL == "" {
		log.Fatal().Msg("store.redis_url is required for replays")
	}
	st, err := store.NewRedisStore(ctx, cfg.Store.RedisURL, cfg.Store.Prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("connect store")
	}
	defer st.Close()

	strat := strategy.Build(cfg.Pair.Mode, strategy.Params{
		Leg1:              market.InstrumentKey(cfg.Pair.Leg1Key),
		Leg2:              market.InstrumentKey(cfg.Pair.Leg2Key),
		EntryThreshold:    cfg.Pair.EntryThreshold,
		ExitThreshold:     cfg.Pair.ExitThreshold,
		BaseQty:           cfg.Pair.BaseQuantity,
		ProcessNoiseDelta: cfg.Pair.ProcessNoiseDelta,
		MeasurementNoise:  cfg.Pair.MeasurementNoise,
		InitialVariance:   cfg.Pair.InitialVariance,
		HedgeRatio:        cfg.Pair.HedgeRatio,
		Window:            cfg.Pair.Window,
		Warmup:            cfg.Pair.Warmup,
	}, log)
	gate := risk.NewGate(risk.Limits{
		MaxPerWindow: cfg.Risk.MaxSignalsPerWindow,
		Window:       time.Duration(cfg.Risk.WindowSecs) * time.Second,
	}, market.EntryLongSpread, market.EntryShortSpread, market.ExitAll)
	pipe := engine.NewPipeline(
		market.InstrumentKey(cfg.Pair.Leg1Key),
		market.InstrumentKey(cfg.Pair.Leg2Key),
		strat, gate, log,
	)

	var recorder paper.FillRecorder
	path := cfg.Execution.FillsPath
	if *fillsPath != "" {
		path = *fillsPath
	}
	if path != "" {
		jr, err := paper.NewJSONLRecorder(path)
		if err != nil {
			log.Fatal().Err(err).Msg("open fill log")
		}
		defer jr.Close()
		recorder = jr
	}

	bt := engine.NewBacktest(st, pipe, recorder, *cash, log)
	result, err := bt.Run(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	for _, d := range result.Decisions {
		fmt.Printf("%s  %-18s", d.Ts.Format(time.RFC3339), d.Emission.Kind)
		for _, o := range d.Emission.Orders {
			fmt.Printf("  %s %s x%d @ %.4f", o.Side, o.Key, o.Qty, d.Prices[o.Key])
		}
		if z, ok := d.Emission.Meta["z_score"]; ok {
			fmt.Printf("  z=%.3f", z)
		}
		fmt.Println()
	}
	fmt.Printf("\nticks=%d decisions=%d fills=%d\n", result.Ticks, len(result.Decisions), len(result.Fills))
	fmt.Printf("cash=%.2f realized_pnl=%.2f equity=%.2f\n",
		result.Account.Cash, result.Account.RealizedPnL, result.Account.Equity)
	for key, pos := range result.Account.Positions {
		fmt.Printf("open %s qty=%.0f avg_cost=%.4f\n", key, pos.Qty, pos.AvgCost)
	}
}
