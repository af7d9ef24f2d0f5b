package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/trading-bot/internal/api"
	"github.com/mohamedkhairy/trading-bot/internal/bot"
	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/decision"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/internal/rulepack"
	"github.com/mohamedkhairy/trading-bot/internal/telemetry"
	"github.com/mohamedkhairy/trading-bot/internal/wsfeed"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting trading bot",
		logger.String("symbol", cfg.Bot.Symbol),
		logger.String("timeframe", cfg.Bot.Timeframe),
		logger.String("bar_stream", cfg.Bot.BarStream),
		logger.String("consumer_group", cfg.Bot.ConsumerGroup),
		logger.Int("api_port", cfg.API.Port),
		logger.Int("ws_feed_port", cfg.WSFeed.Port),
	)

	// Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}

	// Initialize rule engine and its pack source
	engine := rulepack.NewEngine()
	source := rulePackSource(cfg, rdb)
	var reload api.ReloadFunc
	if source != nil {
		reload = func() error { return reloadRulePack(engine, source) }
		if err := reload(); err != nil {
			// No pack installed means every action is allowed; keep running
			// so an operator can push a pack and reload.
			logger.Warn("Initial rule pack load failed, running without rules",
				logger.ErrorField(err),
				logger.String("source", source.Describe()),
			)
		}
	} else {
		logger.Warn("No rule pack source configured, running without rules")
	}

	// Initialize the bot core
	tradingBot, err := bot.New(cfg, engine)
	if err != nil {
		logger.Fatal("Failed to initialize bot", logger.ErrorField(err))
	}

	// Initialize decision outputs
	var publisher *decision.Publisher
	if cfg.Decision.StreamName != "" {
		publisher = decision.NewPublisher(rdb, decision.DefaultPublisherConfig(cfg.Decision.StreamName))
	}

	var persister *decision.Persister
	if cfg.Decision.PersistEnabled {
		persister, err = decision.NewPersister(cfg.Database, decision.WriteConfig{
			BatchSize:  cfg.Decision.DBWriteBatchSize,
			Interval:   cfg.Decision.DBWriteInterval,
			QueueSize:  cfg.Decision.DBWriteQueueSize,
			MaxRetries: cfg.Decision.DBMaxRetries,
			RetryDelay: cfg.Decision.DBRetryDelay,
		})
		if err != nil {
			logger.Fatal("Failed to initialize decision persister", logger.ErrorField(err))
		}
		if err := persister.Start(); err != nil {
			logger.Fatal("Failed to start decision persister", logger.ErrorField(err))
		}
		defer persister.Close()
	}

	hub := wsfeed.NewHub(cfg.WSFeed, cfg.API.JWTSecret)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Periodic rule pack reload
	if source != nil && cfg.Bot.RuleReloadInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(cfg.Bot.RuleReloadInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := reload(); err != nil {
						logger.Warn("Rule pack reload failed, keeping active pack",
							logger.ErrorField(err),
							logger.String("source", source.Describe()),
						)
					}
				}
			}
		}()
	}

	// Consume bars and run the decision cycle
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeBars(ctx, rdb, cfg, func(bar *models.Bar) {
			d, err := tradingBot.ProcessBar(bar)
			if err != nil {
				logger.Error("Bar cycle failed",
					logger.ErrorField(err),
					logger.Time("bar_time", bar.Timestamp),
				)
			}
			if d == nil {
				return
			}
			if publisher != nil {
				if err := publisher.Publish(ctx, d); err != nil {
					logger.Error("Failed to publish decision", logger.ErrorField(err))
				}
			}
			if persister != nil {
				_ = persister.Write(d)
			}
			hub.Broadcast(d)
		})
	}()

	// REST API server
	apiServer := api.NewServer(cfg.API, api.NewBotHandler(tradingBot, reload))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", logger.ErrorField(err))
		}
	}()

	// WebSocket decision feed server
	feedMux := http.NewServeMux()
	feedMux.HandleFunc("/ws", hub.HandleWS)
	feedServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSFeed.Port),
		Handler: feedMux,
	}
	go func() {
		logger.Info("Starting decision feed server", logger.Int("port", cfg.WSFeed.Port))
		if err := feedServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Decision feed server failed", logger.ErrorField(err))
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Received shutdown signal", logger.String("signal", sig.String()))

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", logger.ErrorField(err))
	}
	if err := feedServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Decision feed server shutdown failed", logger.ErrorField(err))
	}

	logger.Info("Trading bot stopped")
}

// rulePackSource picks where rule packs come from. Redis wins over the file
// path so operators can override a baked-in pack at runtime.
func rulePackSource(cfg *config.Config, rdb *redis.Client) rulepack.Source {
	if cfg.Bot.RulePackRedisKey != "" {
		return rulepack.NewRedisSource(rdb, cfg.Bot.RulePackRedisKey)
	}
	if cfg.Bot.RulePackPath != "" {
		return rulepack.NewFileSource(cfg.Bot.RulePackPath)
	}
	return nil
}

// reloadRulePack fetches, parses and installs the current pack document.
// Any failure leaves the active pack untouched.
func reloadRulePack(engine *rulepack.Engine, source rulepack.Source) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := source.Fetch(ctx)
	if err != nil {
		telemetry.RulePackReloads.WithLabelValues("fetch_error").Inc()
		return err
	}

	pack, err := rulepack.Load(data)
	if err != nil {
		telemetry.RulePackReloads.WithLabelValues("parse_error").Inc()
		return err
	}

	if err := engine.Install(pack); err != nil {
		telemetry.RulePackReloads.WithLabelValues("install_error").Inc()
		return err
	}

	telemetry.RulePackReloads.WithLabelValues("success").Inc()
	logger.Info("Rule pack installed",
		logger.String("rules_version", pack.RulesVersion),
		logger.String("source", source.Describe()),
	)
	return nil
}

// consumeBars reads finalized bars from the Redis stream and hands each one
// to the bot. Messages are acknowledged after processing; a bar the bot
// rejects is still acked since replaying it would fail the same way.
func consumeBars(ctx context.Context, rdb *redis.Client, cfg *config.Config, handle func(*models.Bar)) {
	stream := cfg.Bot.BarStream
	group := cfg.Bot.ConsumerGroup
	consumer := fmt.Sprintf("%s-%d", cfg.Bot.Symbol, os.Getpid())

	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		logger.Error("Failed to create consumer group",
			logger.ErrorField(err),
			logger.String("stream", stream),
			logger.String("group", group),
		)
		return
	}

	logger.Info("Consuming bars",
		logger.String("stream", stream),
		logger.String("group", group),
		logger.String("consumer", consumer),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results, err := rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			logger.Error("Failed to read from bar stream", logger.ErrorField(err))
			time.Sleep(time.Second)
			continue
		}

		for _, res := range results {
			for _, msg := range res.Messages {
				if bar, err := decodeBar(msg.Values); err != nil {
					logger.Error("Failed to decode bar message",
						logger.ErrorField(err),
						logger.String("message_id", msg.ID),
					)
				} else {
					handle(bar)
				}
				if err := rdb.XAck(ctx, stream, group, msg.ID).Err(); err != nil && ctx.Err() == nil {
					logger.Warn("Failed to ack bar message",
						logger.ErrorField(err),
						logger.String("message_id", msg.ID),
					)
				}
			}
		}
	}
}

func decodeBar(values map[string]interface{}) (*models.Bar, error) {
	raw, ok := values["bar"].(string)
	if !ok {
		return nil, fmt.Errorf("message has no bar field")
	}
	var bar models.Bar
	if err := json.Unmarshal([]byte(raw), &bar); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bar: %w", err)
	}
	return &bar, nil
}
