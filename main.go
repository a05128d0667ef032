package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"crypto-signal-bot/config"
	"crypto-signal-bot/internal/api"
	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/engine"
	"crypto-signal-bot/internal/events"
	"crypto-signal-bot/internal/lifecycle"
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/market"
	"crypto-signal-bot/internal/notification"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
)

func main() {
	serve := flag.Bool("serve", false, "run passes on an interval and host the status API")
	flag.Parse()

	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Fatal("config load failed", "error", err)
	}

	logger := logging.New(&cfg.LoggingConfig)
	logging.SetDefault(logger)
	logger.Info("starting crypto-signal-bot",
		"symbols", cfg.EngineConfig.Symbols,
		"timeframes", cfg.EngineConfig.Timeframes,
		"serve", *serve)

	var provider market.Provider
	if cfg.BinanceConfig.MockMode {
		logger.Warn("mock mode enabled, using simulated market data")
		mock := market.NewMockProvider()
		for _, sym := range cfg.EngineConfig.Symbols {
			for _, tf := range cfg.EngineConfig.Timeframes {
				mock.Add(market.GenerateSeries(sym, tf, 200))
			}
		}
		provider = mock
	} else {
		client := binance.NewClient(cfg.BinanceConfig.BaseURL)
		provider = market.NewBinanceProvider(client, logger.WithComponent("market"))
	}

	storeLog := logger.WithComponent("store")
	history := store.NewStrategyHistory(cfg.StoreConfig.StrategyHistoryPath(), storeLog)
	trades := store.NewActiveTradeStore(cfg.StoreConfig.ActiveTradesPath(), storeLog)

	var deduper store.Deduper
	if cfg.RedisConfig.Enabled {
		deduper = store.NewDeduper(cfg.RedisConfig.Address, cfg.RedisConfig.Password,
			cfg.RedisConfig.DB, cfg.StoreConfig.SignalCachePath(), storeLog)
	} else {
		deduper = store.NewSignalCache(cfg.StoreConfig.SignalCachePath(), storeLog)
	}

	notifier := notification.NewManager(logger.WithComponent("notification"))
	if cfg.NotificationConfig.Enabled {
		notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.NotificationConfig.Telegram.BotToken,
			ChatID:   cfg.NotificationConfig.Telegram.ChatID,
			Enabled:  cfg.NotificationConfig.Telegram.Enabled,
		}))
		notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
			WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
			Enabled:    cfg.NotificationConfig.Discord.Enabled,
		}))
	}

	bus := events.NewEventBus()
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	tracker := lifecycle.NewTracker(provider, trades, history, zl)
	evaluator := strategy.NewEvaluator(strategy.DefaultRules(), logger.WithComponent("strategy"))

	eng := engine.New(cfg.EngineConfig, provider, evaluator, history, trades, deduper,
		tracker, notifier, bus, logger.WithComponent("engine"))

	if !*serve && !cfg.ServerConfig.Enabled {
		if err := eng.Run(); err != nil {
			bus.PublishError("engine", "run failed", err)
			notifier.SendError("Run failed", err.Error())
			logger.Fatal("run failed", "error", err)
		}
		return
	}

	runLoop(cfg, eng, trades, history, bus, notifier, logger)
}

// runLoop hosts the API and repeats passes on the configured interval until
// the process receives SIGINT or SIGTERM.
func runLoop(cfg *config.Config, eng *engine.Engine, trades *store.ActiveTradeStore, history *store.StrategyHistory, bus *events.EventBus, notifier *notification.Manager, logger *logging.Logger) {
	server := api.NewServer(api.ServerConfig{
		Host: cfg.ServerConfig.Host,
		Port: cfg.ServerConfig.Port,
	}, eng, trades, history, bus, logger.WithComponent("api"))

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server stopped", "error", err)
		}
	}()

	interval := time.Duration(cfg.ServerConfig.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() bool {
		if err := eng.Run(); err != nil {
			bus.PublishError("engine", "run failed", err)
			notifier.SendError("Run failed", err.Error())
			logger.Error("run failed, shutting down", "error", err)
			return false
		}
		return true
	}

	if !runOnce() {
		os.Exit(1)
	}

	for {
		select {
		case <-ticker.C:
			if !runOnce() {
				os.Exit(1)
			}
		case sig := <-stop:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("api shutdown failed", "error", err)
			}
			return
		}
	}
}
