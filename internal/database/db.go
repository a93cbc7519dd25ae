// Package database provides PostgreSQL persistence for positions, trades and
// swap transactions via pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"straddle-trading-bot/internal/logging"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection pool and verifies connectivity
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger := logging.WithComponent("database")
	logger.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes schema migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			strategy VARCHAR(50) NOT NULL DEFAULT 'straddle',
			total_quantity DECIMAL(20, 8) NOT NULL DEFAULT 0,
			average_entry_price DECIMAL(20, 8) NOT NULL DEFAULT 0,
			realized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			unrealized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			open_time TIMESTAMP NOT NULL,
			close_time TIMESTAMP,
			max_trade_limit INTEGER NOT NULL DEFAULT 10,
			trade_amount DECIMAL(20, 8) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,
		// One non-CLOSED position per symbol
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_symbol_active
			ON positions(symbol) WHERE status != 'CLOSED'`,

		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			position_id INTEGER NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			take_profit DECIMAL(20, 8),
			stop_loss DECIMAL(20, 8),
			order_type VARCHAR(20) NOT NULL DEFAULT 'STOP',
			client_order_id VARCHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			entered_at TIMESTAMP,
			closed_at TIMESTAMP,
			close_price DECIMAL(20, 8),
			pnl DECIMAL(20, 8),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_position ON trades(position_id)`,

		`CREATE TABLE IF NOT EXISTS swap_transactions (
			id SERIAL PRIMARY KEY,
			position_id INTEGER REFERENCES positions(id) ON DELETE SET NULL,
			transaction_id VARCHAR(64) NOT NULL,
			from_symbol VARCHAR(20) NOT NULL,
			to_symbol VARCHAR(20) NOT NULL,
			from_amount DECIMAL(20, 8) NOT NULL,
			to_amount DECIMAL(20, 8) NOT NULL,
			rate DECIMAL(20, 8) NOT NULL,
			fee_percentage DECIMAL(10, 4) NOT NULL DEFAULT 0,
			fee_amount DECIMAL(20, 8) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_swaps_position ON swap_transactions(position_id)`,
		`CREATE INDEX IF NOT EXISTS idx_swaps_timestamp ON swap_transactions(timestamp)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	db.logger.Info().Msg("database migrations completed")
	return nil
}
