package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// Persister writes trade decisions to PostgreSQL asynchronously. Decisions
// are enqueued per bar and flushed in batches so database latency never
// blocks the decision cycle.
type Persister struct {
	db          *sql.DB
	dbConfig    config.DatabaseConfig
	writeConfig WriteConfig

	writeQueue chan *models.TradeDecision
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// WriteConfig holds configuration for write operations
type WriteConfig struct {
	BatchSize  int
	Interval   time.Duration
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// NewPersister opens the database connection and prepares the write queue
func NewPersister(dbConfig config.DatabaseConfig, writeConfig WriteConfig) (*Persister, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	clientCtx, clientCancel := context.WithCancel(context.Background())
	p := &Persister{
		db:          db,
		dbConfig:    dbConfig,
		writeConfig: writeConfig,
		writeQueue:  make(chan *models.TradeDecision, writeConfig.QueueSize),
		ctx:         clientCtx,
		cancel:      clientCancel,
	}

	logger.Info("Decision persister initialized",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)
	return p, nil
}

// Start starts the write queue processor
func (p *Persister) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("persister is already running")
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.processWriteQueue()
	return nil
}

// Stop drains the queue and stops the processor
func (p *Persister) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	close(p.writeQueue)
	p.wg.Wait()
	logger.Info("Decision persister stopped")
}

// Write enqueues one decision for async persistence. A full queue drops the
// decision with a warning rather than blocking the bar cycle.
func (p *Persister) Write(d *models.TradeDecision) error {
	if d == nil {
		return fmt.Errorf("decision cannot be nil")
	}

	select {
	case p.writeQueue <- d:
		return nil
	default:
		logger.Warn("Decision write queue full, dropping",
			logger.String("decision_id", d.ID),
			logger.Int("queue_depth", len(p.writeQueue)),
		)
		return fmt.Errorf("write queue is full")
	}
}

func (p *Persister) processWriteQueue() {
	defer p.wg.Done()

	batch := make([]*models.TradeDecision, 0, p.writeConfig.BatchSize)
	ticker := time.NewTicker(p.writeConfig.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			for d := range p.writeQueue {
				batch = append(batch, d)
			}
			p.writeBatch(batch)
			return

		case d, ok := <-p.writeQueue:
			if !ok {
				p.writeBatch(batch)
				return
			}
			batch = append(batch, d)
			if len(batch) >= p.writeConfig.BatchSize {
				p.writeBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				p.writeBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (p *Persister) writeBatch(decisions []*models.TradeDecision) {
	if len(decisions) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < p.writeConfig.MaxRetries; attempt++ {
		err = p.insertBatch(ctx, decisions)
		if err == nil {
			logger.Debug("Wrote decision batch", logger.Int("count", len(decisions)))
			return
		}
		if attempt < p.writeConfig.MaxRetries-1 {
			logger.Warn("Failed to write decision batch, retrying",
				logger.ErrorField(err),
				logger.Int("attempt", attempt+1),
			)
			time.Sleep(p.writeConfig.RetryDelay)
		}
	}

	logger.Error("Failed to write decision batch after retries",
		logger.ErrorField(err),
		logger.Int("count", len(decisions)),
	)
}

func (p *Persister) insertBatch(ctx context.Context, decisions []*models.TradeDecision) error {
	query := `
		INSERT INTO decision_history (id, symbol, action, side, price, stop_loss, score, regime, reason_codes, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		reasons, err := json.Marshal(d.ReasonCodes)
		if err != nil {
			reasons = []byte("[]")
		}
		if _, err := stmt.ExecContext(ctx,
			d.ID,
			d.Symbol,
			string(d.Action),
			string(d.Side),
			d.Price,
			d.StopLoss,
			d.Score,
			d.Regime,
			string(reasons),
			d.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to insert decision %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close stops the persister and closes the database connection
func (p *Persister) Close() error {
	p.Stop()
	return p.db.Close()
}
