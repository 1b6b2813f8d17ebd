// Package trading provides the trade ledger: trade and execution persistence.
package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// TradeRepository handles trade persistence in ledger.db. Trades in a
// terminal status are immutable; updates against them are rejected.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repository", "trade").Logger(),
	}
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const tradeColumns = `id, portfolio_id, session_id, order_id, symbol, action, order_type,
	limit_price, status, requested_quantity, filled_quantity, average_fill_price,
	decision_rationale, confidence_score, created_at, updated_at`

// Create inserts a new trade and returns it with its assigned ID
func (r *TradeRepository) Create(trade *domain.Trade) (*domain.Trade, error) {
	return r.create(r.db, trade)
}

// CreateTx inserts a new trade inside a transaction
func (r *TradeRepository) CreateTx(tx *sql.Tx, trade *domain.Trade) (*domain.Trade, error) {
	return r.create(tx, trade)
}

func (r *TradeRepository) create(e execer, trade *domain.Trade) (*domain.Trade, error) {
	now := time.Now().UTC()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	result, err := e.Exec(`
		INSERT INTO trades (
			portfolio_id, session_id, order_id, symbol, action, order_type,
			limit_price, status, requested_quantity, filled_quantity,
			average_fill_price, decision_rationale, confidence_score,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.PortfolioID, trade.SessionID, trade.OrderID, trade.Symbol,
		string(trade.Action), string(trade.OrderType), trade.LimitPrice,
		string(trade.Status), trade.RequestedQuantity, trade.FilledQuantity,
		trade.AverageFillPrice, trade.DecisionRationale, trade.ConfidenceScore,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get trade id: %w", err)
	}
	trade.ID = id

	return trade, nil
}

// GetByID fetches a trade by ID
func (r *TradeRepository) GetByID(id int64) (*domain.Trade, error) {
	row := r.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)

	trade, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError(
			fmt.Sprintf("trade %d not found", id),
			map[string]interface{}{"trade_id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return trade, nil
}

// GetByOrderID fetches a trade by its gateway order ID, or nil if none
func (r *TradeRepository) GetByOrderID(orderID string) (*domain.Trade, error) {
	row := r.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE order_id = ?`, orderID)

	trade, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by order %s: %w", orderID, err)
	}
	return trade, nil
}

// GetByPortfolio returns trades for a portfolio, newest first
func (r *TradeRepository) GetByPortfolio(portfolioID int64, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(`
		SELECT `+tradeColumns+` FROM trades
		WHERE portfolio_id = ? ORDER BY id DESC LIMIT ?`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// GetOpenTrades returns non-terminal trades for a portfolio
func (r *TradeRepository) GetOpenTrades(portfolioID int64) ([]domain.Trade, error) {
	rows, err := r.db.Query(`
		SELECT `+tradeColumns+` FROM trades
		WHERE portfolio_id = ? AND status NOT IN ('FILLED', 'CANCELLED', 'REJECTED')
		ORDER BY id`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// Update rewrites the mutable fields of a non-terminal trade
func (r *TradeRepository) Update(trade *domain.Trade) error {
	return r.update(r.db, trade)
}

// UpdateTx rewrites the mutable fields of a non-terminal trade inside a
// transaction
func (r *TradeRepository) UpdateTx(tx *sql.Tx, trade *domain.Trade) error {
	return r.update(tx, trade)
}

func (r *TradeRepository) update(e execer, trade *domain.Trade) error {
	trade.UpdatedAt = time.Now().UTC()

	// The status guard enforces terminal-trade immutability at the storage
	// layer, not just in the engine.
	result, err := e.Exec(`
		UPDATE trades SET
			order_id = ?, status = ?, filled_quantity = ?, average_fill_price = ?,
			updated_at = ?
		WHERE id = ? AND status NOT IN ('FILLED', 'CANCELLED', 'REJECTED')`,
		trade.OrderID, string(trade.Status), trade.FilledQuantity,
		trade.AverageFillPrice, trade.UpdatedAt.Format(time.RFC3339), trade.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade %d: %w", trade.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.NewValidationError(
			fmt.Sprintf("trade %d is terminal or does not exist", trade.ID),
			map[string]interface{}{"trade_id": trade.ID})
	}
	return nil
}

func collectTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}
	return trades, rows.Err()
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var trade domain.Trade
	var sessionID sql.NullString
	var limitPrice sql.NullFloat64
	var createdAt, updatedAt string

	if err := row.Scan(
		&trade.ID, &trade.PortfolioID, &sessionID, &trade.OrderID, &trade.Symbol,
		&trade.Action, &trade.OrderType, &limitPrice, &trade.Status,
		&trade.RequestedQuantity, &trade.FilledQuantity, &trade.AverageFillPrice,
		&trade.DecisionRationale, &trade.ConfidenceScore, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if sessionID.Valid {
		trade.SessionID = &sessionID.String
	}
	if limitPrice.Valid {
		trade.LimitPrice = &limitPrice.Float64
	}
	trade.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	trade.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &trade, nil
}
