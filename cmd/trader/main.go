package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/params"
	"github.com/danhju/mirrorbook/pkg/api"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/metrics"
	"github.com/danhju/mirrorbook/pkg/policy"
	"github.com/danhju/mirrorbook/pkg/recon"
	"github.com/danhju/mirrorbook/pkg/storage"
	"github.com/danhju/mirrorbook/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	var logger *zap.Logger
	var err error
	if cfg.Node.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.Node.LogLevel, cfg.Node.LogFile)
	} else {
		logger, err = util.NewLogger(cfg.Node.LogLevel)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	state := recon.New(cfg.Node.TraderID, sugar, met)

	// ---- Ledger persistence ----
	store, err := storage.Open(filepath.Join(cfg.Node.DataDir, "ledger"))
	if err != nil {
		sugar.Fatalw("ledger store open failed", "err", err)
	}
	defer store.Close()

	if ledger, err := store.LoadLedger(cfg.Node.TraderID); err != nil {
		sugar.Fatalw("ledger load failed", "err", err)
	} else if ledger != nil {
		state.RestoreLedger(*ledger)
		sugar.Infow("ledger restored",
			"cash", ledger.Cash,
			"positions", len(ledger.Positions),
			"open_orders", len(ledger.OpenOrders))
	}

	// ---- Feed source ----
	src, submitter, err := openSource(ctx, cfg.Feed, sugar)
	if err != nil {
		sugar.Fatalw("feed source failed", "mode", cfg.Feed.Mode, "err", err)
	}
	defer src.Close()

	// ---- Handlers: reconciliation first, then consumers ----
	handlers := []feed.Handler{state}

	handlers = append(handlers, storage.NewCheckpointer(store, state, cfg.Node.CheckpointEvery, sugar))

	apiServer := api.NewServer(state, met, sugar)
	handlers = append(handlers, apiServer.StreamHandler())

	if cfg.Policy.Enabled {
		if submitter == nil {
			sugar.Fatalw("policy requires a submitting feed", "mode", cfg.Feed.Mode)
		}
		quoter := policy.NewQuoter(ctx, policy.Config{
			Symbol:      cfg.Policy.Symbol,
			QuoteSize:   cfg.Policy.QuoteSize,
			SkewFactor:  cfg.Policy.SkewFactor,
			SignalDepth: cfg.Policy.SignalDepth,
			MinInterval: cfg.Policy.MinInterval,
		}, state, submitter, util.RealClock{}, sugar)
		handlers = append(handlers, quoter)
		sugar.Infow("quoting enabled",
			"symbol", cfg.Policy.Symbol,
			"quote_size", cfg.Policy.QuoteSize)
	}

	go func() {
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api server failed", "err", err)
		}
	}()

	sugar.Infow("trader starting",
		"trader_id", cfg.Node.TraderID,
		"feed_mode", cfg.Feed.Mode)

	dispatcher := feed.NewDispatcher(src, sugar, met, handlers...)
	runErr := dispatcher.Run(ctx)

	// Persist the ledger on the way out, even after a feed error.
	if err := store.SaveLedger(state.SnapshotLedger()); err != nil {
		sugar.Errorw("final ledger save failed", "err", err)
	} else {
		sugar.Infow("ledger saved", "pnl", state.PnL())
	}

	if runErr != nil && ctx.Err() == nil {
		sugar.Fatalw("dispatcher stopped", "err", runErr)
	}
}

func openSource(ctx context.Context, cfg params.Feed, sugar *zap.SugaredLogger) (feed.Source, feed.Submitter, error) {
	switch cfg.Mode {
	case "ws":
		session, err := feed.DialWS(ctx, cfg.WSURL, sugar)
		if err != nil {
			return nil, nil, err
		}
		return session, session, nil
	case "kafka":
		src, err := feed.NewKafkaSource(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, sugar)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	case "replay":
		src, err := feed.OpenReplay(cfg.ReplayPath)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed mode %q", cfg.Mode)
	}
}
