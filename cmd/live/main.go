package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pairbot-go/internal/config"
	"pairbot-go/internal/engine"
	"pairbot-go/internal/exchange"
	"pairbot-go/internal/execution"
	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
	"pairbot-go/internal/monitor"
	"pairbot-go/internal/risk"
	"pairbot-go/internal/strategy"
	"pairbot-go/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
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

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instruments := make(map[market.InstrumentKey]string, len(cfg.Instruments))
	for key, inst := range cfg.Instruments {
		instruments[market.InstrumentKey(key)] = inst.Symbol
	}
	var feedOpts []exchange.Option
	if cfg.Feed.PollIntervalMs > 0 {
		feedOpts = append(feedOpts, exchange.WithPollInterval(time.Duration(cfg.Feed.PollIntervalMs)*time.Millisecond))
	}
	if cfg.Feed.NATSURL != "" {
		feedOpts = append(feedOpts, exchange.WithNATS(cfg.Feed.NATSURL, cfg.Feed.SubjectPrefix))
	}
	feed := exchange.NewFeed(cfg.Feed.Provider, instruments, log, feedOpts...)

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

	var exec execution.Executor
	switch cfg.Execution.Mode {
	case "nats":
		ne, err := execution.NewNATSExecutor(cfg.Execution.NATSURL, cfg.Execution.SubjectPrefix, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect nats executor")
		}
		defer ne.Close()
		exec = ne
	default:
		exec = execution.NewLogExecutor(log)
	}

	var telem engine.Telemetry
	if cfg.Engine.HeartbeatPath != "" {
		hb, err := monitor.NewHeartbeat(
			cfg.Engine.HeartbeatPath,
			market.InstrumentKey(cfg.Pair.Leg1Key),
			market.InstrumentKey(cfg.Pair.Leg2Key),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("open heartbeat")
		}
		defer hb.Close()
		telem = hb
	}

	pipe := engine.NewPipeline(
		market.InstrumentKey(cfg.Pair.Leg1Key),
		market.InstrumentKey(cfg.Pair.Leg2Key),
		strat, gate, log,
	)
	cooldown := time.Duration(cfg.Engine.CooldownSecs) * time.Second
	live := engine.NewLive(feed, pipe, exec, telem, cooldown, log)

	if err := live.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("live engine stopped")
	}
	log.Info().Msg("shutdown complete")
}
