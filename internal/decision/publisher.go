// Package decision carries trade decisions out of the bot: to the Redis
// stream consumed by the execution component and, optionally, into Postgres
// for later analysis.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_publish_total",
			Help: "Total number of decisions published to the stream",
		},
		[]string{"stream", "action"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_publish_errors_total",
			Help: "Total number of decision publish errors",
		},
		[]string{"stream"},
	)

	publishLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decision_publish_latency_seconds",
			Help:    "Decision publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)
)

// PublisherConfig holds configuration for the decision publisher
type PublisherConfig struct {
	StreamName    string
	MaxLen        int64 // Approximate stream cap (0 = unbounded)
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig(streamName string) PublisherConfig {
	return PublisherConfig{
		StreamName:    streamName,
		MaxLen:        10000,
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// Publisher writes decisions to a Redis stream. Decisions arrive one per
// bar, so each is published individually rather than batched.
type Publisher struct {
	config PublisherConfig
	client *redis.Client
}

// NewPublisher creates a decision publisher
func NewPublisher(client *redis.Client, config PublisherConfig) *Publisher {
	return &Publisher{config: config, client: client}
}

// Publish writes one decision to the stream with retries
func (p *Publisher) Publish(ctx context.Context, d *models.TradeDecision) error {
	if d == nil {
		return fmt.Errorf("decision cannot be nil")
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.config.StreamName,
		Values: map[string]interface{}{"decision": string(payload)},
	}
	if p.config.MaxLen > 0 {
		args.MaxLen = p.config.MaxLen
		args.Approx = true
	}

	start := time.Now()
	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		err = p.client.XAdd(ctx, args).Err()
		if err == nil {
			break
		}
		if attempt < p.config.RetryAttempts-1 {
			logger.Warn("Failed to publish decision, retrying",
				logger.ErrorField(err),
				logger.String("stream", p.config.StreamName),
				logger.Int("attempt", attempt+1),
			)
			time.Sleep(p.config.RetryDelay * time.Duration(attempt+1))
		}
	}
	publishLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		publishErrors.WithLabelValues(p.config.StreamName).Inc()
		logger.Error("Failed to publish decision after retries",
			logger.ErrorField(err),
			logger.String("stream", p.config.StreamName),
			logger.String("decision_id", d.ID),
		)
		return err
	}

	publishTotal.WithLabelValues(p.config.StreamName, string(d.Action)).Inc()
	logger.Debug("Published decision",
		logger.String("stream", p.config.StreamName),
		logger.String("decision_id", d.ID),
		logger.String("action", string(d.Action)),
	)
	return nil
}
