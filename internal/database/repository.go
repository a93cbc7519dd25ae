package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository provides CRUD operations for positions, trades and swaps
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// ============================================================================
// POSITIONS
// ============================================================================

const positionColumns = `id, symbol, strategy, total_quantity, average_entry_price,
	realized_pnl, unrealized_pnl, status, open_time, close_time,
	max_trade_limit, trade_amount, created_at, updated_at`

func scanPosition(row pgx.Row) (*Position, error) {
	var p Position
	err := row.Scan(&p.ID, &p.Symbol, &p.Strategy, &p.TotalQuantity, &p.AverageEntryPrice,
		&p.RealizedPnL, &p.UnrealizedPnL, &p.Status, &p.OpenTime, &p.CloseTime,
		&p.MaxTradeLimit, &p.TradeAmount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePosition inserts a new position and sets its ID
func (r *Repository) CreatePosition(ctx context.Context, p *Position) error {
	query := `
		INSERT INTO positions (symbol, strategy, total_quantity, average_entry_price,
			realized_pnl, unrealized_pnl, status, open_time, max_trade_limit, trade_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return r.db.Pool.QueryRow(ctx, query,
		p.Symbol, p.Strategy, p.TotalQuantity, p.AverageEntryPrice,
		p.RealizedPnL, p.UnrealizedPnL, p.Status, p.OpenTime,
		p.MaxTradeLimit, p.TradeAmount,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetPositionBySymbolAndStatuses returns the position for a symbol whose
// status is in the given set, or nil when none exists
func (r *Repository) GetPositionBySymbolAndStatuses(ctx context.Context, symbol string, statuses []string) (*Position, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM positions
		WHERE symbol = $1 AND status = ANY($2)
		ORDER BY open_time DESC LIMIT 1`, positionColumns)

	p, err := scanPosition(r.db.Pool.QueryRow(ctx, query, symbol, statuses))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position for %s: %w", symbol, err)
	}
	return p, nil
}

// GetPositionByID returns a position by primary key, or nil when missing
func (r *Repository) GetPositionByID(ctx context.Context, id int64) (*Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE id = $1`, positionColumns)

	p, err := scanPosition(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %d: %w", id, err)
	}
	return p, nil
}

// UpdatePosition persists mutable position fields
func (r *Repository) UpdatePosition(ctx context.Context, p *Position) error {
	query := `
		UPDATE positions SET
			total_quantity = $2, average_entry_price = $3, realized_pnl = $4,
			unrealized_pnl = $5, status = $6, close_time = $7, trade_amount = $8,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.TotalQuantity, p.AverageEntryPrice, p.RealizedPnL,
		p.UnrealizedPnL, p.Status, p.CloseTime, p.TradeAmount)
	if err != nil {
		return fmt.Errorf("failed to update position %d: %w", p.ID, err)
	}
	return nil
}

// ListPositions returns positions ordered most recent first
func (r *Repository) ListPositions(ctx context.Context, limit int) ([]Position, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM positions ORDER BY open_time DESC LIMIT $1`, positionColumns)

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

// ============================================================================
// TRADES
// ============================================================================

const tradeColumns = `id, position_id, symbol, side, quantity, entry_price,
	take_profit, stop_loss, order_type, client_order_id, status,
	entered_at, closed_at, close_price, pnl, created_at, updated_at`

func scanTrade(row pgx.Row) (*Trade, error) {
	var t Trade
	err := row.Scan(&t.ID, &t.PositionID, &t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice,
		&t.TakeProfit, &t.StopLoss, &t.OrderType, &t.ClientOrderID, &t.Status,
		&t.EnteredAt, &t.ClosedAt, &t.ClosePrice, &t.PnL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const insertTradeQuery = `
	INSERT INTO trades (position_id, symbol, side, quantity, entry_price,
		take_profit, stop_loss, order_type, client_order_id, status, entered_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, created_at, updated_at`

// CreateTrade inserts a single trade
func (r *Repository) CreateTrade(ctx context.Context, t *Trade) error {
	return r.db.Pool.QueryRow(ctx, insertTradeQuery,
		t.PositionID, t.Symbol, t.Side, t.Quantity, t.EntryPrice,
		t.TakeProfit, t.StopLoss, t.OrderType, t.ClientOrderID, t.Status, t.EnteredAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// CreateBracket inserts both legs of a bracket in one transaction so a
// half-created bracket can never be observed.
func (r *Repository) CreateBracket(ctx context.Context, buy, sell *Trade) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bracket transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range []*Trade{buy, sell} {
		err := tx.QueryRow(ctx, insertTradeQuery,
			t.PositionID, t.Symbol, t.Side, t.Quantity, t.EntryPrice,
			t.TakeProfit, t.StopLoss, t.OrderType, t.ClientOrderID, t.Status, t.EnteredAt,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert %s bracket leg: %w", t.Side, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bracket: %w", err)
	}
	return nil
}

// GetTradesBySymbolAndStatuses returns trades for a symbol whose status is in
// the given set, oldest first
func (r *Repository) GetTradesBySymbolAndStatuses(ctx context.Context, symbol string, statuses []string) ([]Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		WHERE symbol = $1 AND status = ANY($2)
		ORDER BY created_at ASC`, tradeColumns)

	rows, err := r.db.Pool.Query(ctx, query, symbol, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for %s: %w", symbol, err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// GetTradesByPositionID returns all trades belonging to a position, oldest first
func (r *Repository) GetTradesByPositionID(ctx context.Context, positionID int64) ([]Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades WHERE position_id = $1 ORDER BY created_at ASC`, tradeColumns)

	rows, err := r.db.Pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for position %d: %w", positionID, err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// GetTradesForPeriod returns trades created within [start, end), oldest first
func (r *Repository) GetTradesForPeriod(ctx context.Context, start, end time.Time) ([]Trade, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC`, tradeColumns)

	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for period: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// UpdateTrade persists mutable trade fields
func (r *Repository) UpdateTrade(ctx context.Context, t *Trade) error {
	query := `
		UPDATE trades SET
			status = $2, entered_at = $3, closed_at = $4, close_price = $5,
			pnl = $6, take_profit = $7, stop_loss = $8,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query,
		t.ID, t.Status, t.EnteredAt, t.ClosedAt, t.ClosePrice,
		t.PnL, t.TakeProfit, t.StopLoss)
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", t.ID, err)
	}
	return nil
}

// ============================================================================
// SWAP TRANSACTIONS
// ============================================================================

const swapColumns = `id, position_id, transaction_id, from_symbol, to_symbol,
	from_amount, to_amount, rate, fee_percentage, fee_amount, status, timestamp, created_at`

func scanSwap(row pgx.Row) (*SwapTransaction, error) {
	var s SwapTransaction
	err := row.Scan(&s.ID, &s.PositionID, &s.TransactionID, &s.FromSymbol, &s.ToSymbol,
		&s.FromAmount, &s.ToAmount, &s.Rate, &s.FeePercentage, &s.FeeAmount,
		&s.Status, &s.Timestamp, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSwapTransaction records a completed or failed swap. Rows are immutable
// once written.
func (r *Repository) CreateSwapTransaction(ctx context.Context, s *SwapTransaction) error {
	query := `
		INSERT INTO swap_transactions (position_id, transaction_id, from_symbol, to_symbol,
			from_amount, to_amount, rate, fee_percentage, fee_amount, status, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	return r.db.Pool.QueryRow(ctx, query,
		s.PositionID, s.TransactionID, s.FromSymbol, s.ToSymbol,
		s.FromAmount, s.ToAmount, s.Rate, s.FeePercentage, s.FeeAmount,
		s.Status, s.Timestamp,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetSwapsByPositionID returns all swaps for a position, oldest first
func (r *Repository) GetSwapsByPositionID(ctx context.Context, positionID int64) ([]SwapTransaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM swap_transactions WHERE position_id = $1 ORDER BY timestamp ASC`, swapColumns)

	rows, err := r.db.Pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get swaps for position %d: %w", positionID, err)
	}
	defer rows.Close()

	var swaps []SwapTransaction
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *s)
	}
	return swaps, rows.Err()
}

// GetSwapsForPeriod returns swaps within [start, end), oldest first
func (r *Repository) GetSwapsForPeriod(ctx context.Context, start, end time.Time) ([]SwapTransaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM swap_transactions
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY timestamp ASC`, swapColumns)

	rows, err := r.db.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get swaps for period: %w", err)
	}
	defer rows.Close()

	var swaps []SwapTransaction
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *s)
	}
	return swaps, rows.Err()
}
