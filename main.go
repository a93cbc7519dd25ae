package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"straddle-trading-bot/config"
	"straddle-trading-bot/internal/api"
	"straddle-trading-bot/internal/auth"
	"straddle-trading-bot/internal/bot"
	"straddle-trading-bot/internal/circuit"
	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/logging"
	"straddle-trading-bot/internal/market"
	"straddle-trading-bot/internal/notification"
	"straddle-trading-bot/internal/straddle"
	"straddle-trading-bot/internal/swap"
	"straddle-trading-bot/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logging.Init(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	repo := database.NewRepository(db)

	// Exchange credentials, optionally from Vault
	apiKey := cfg.BinanceConfig.APIKey
	secretKey := cfg.BinanceConfig.SecretKey
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault client failed")
	}
	if vaultClient.IsEnabled() {
		creds, err := vaultClient.GetCredentials(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load credentials from vault")
		}
		apiKey = creds.APIKey
		secretKey = creds.SecretKey
		logger.Info().Msg("exchange credentials loaded from vault")
	}

	// Market data: real client or deterministic mock, with optional Redis cache
	var dataSource market.DataSource
	if cfg.BinanceConfig.MockMode {
		dataSource = market.NewMockClient()
		logger.Warn().Msg("running with simulated market data")
	} else {
		dataSource = market.NewClient(apiKey, secretKey, cfg.BinanceConfig.BaseURL)
	}

	if cfg.RedisConfig.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, market data cache disabled")
		} else {
			dataSource = market.NewCachedClient(dataSource, rdb, cfg.RedisConfig.CacheTTL)
			defer rdb.Close()
		}
	}

	// Swap execution
	var swapper swap.Executor
	if cfg.SwapConfig.MockMode || cfg.StraddleConfig.DryRun {
		swapper = swap.NewMockExecutor()
	} else {
		swapper = swap.NewBinanceExecutor(apiKey, secretKey, cfg.BinanceConfig.BaseURL)
	}

	ranker := market.NewStablecoinRanker(dataSource, cfg.StraddleConfig.StablecoinSymbols)

	// Notifications
	notifier := notification.NewManager()
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

	// Engine
	engine := straddle.NewEngine(straddle.Config{
		Enabled:           cfg.StraddleConfig.Enabled,
		LongInterval:      cfg.StraddleConfig.LongInterval,
		MaxTradeLimit:     cfg.StraddleConfig.MaxTradeLimit,
		MinNotionalUSD:    cfg.StraddleConfig.MinNotionalUSD,
		TradeAmountUSD:    cfg.StraddleConfig.TradeAmountUSD,
		ProfitMultiplier:  cfg.StraddleConfig.ProfitMultiplier,
		StablecoinSymbols: cfg.StraddleConfig.StablecoinSymbols,
		DryRun:            cfg.StraddleConfig.DryRun,
		Breaker:           circuit.DefaultConfig(),
	}, repo, dataSource, swapper, ranker, notifier)

	// Operator API
	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		authService = auth.NewService(
			cfg.AuthConfig.JWTSecret,
			cfg.AuthConfig.AdminUser,
			cfg.AuthConfig.AdminPassHash,
			time.Duration(cfg.AuthConfig.TokenTTLHours)*time.Hour,
		)
	}
	server := api.NewServer(cfg.ServerConfig, engine, repo, authService)

	// Scheduler, broadcasting every result over the WebSocket hub
	scheduler := bot.New(engine, cfg.StraddleConfig.Symbols, cfg.StraddleConfig.MonitorInterval,
		server.Hub().BroadcastCycleResult)
	scheduler.Start(ctx)

	if cfg.ServerConfig.Enabled {
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("api server exited")
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api shutdown incomplete")
	}

	logger.Info().Msg("goodbye")
	os.Exit(0)
}
