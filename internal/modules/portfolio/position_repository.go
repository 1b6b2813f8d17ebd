package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// PositionRepository handles position persistence in portfolio.db.
// Positions are keyed by (portfolio_id, symbol); a fully closed position is
// deleted rather than kept at zero quantity.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repository", "position").Logger(),
	}
}

const positionColumns = `id, portfolio_id, symbol, quantity, average_cost, current_price,
	unrealized_pnl, realized_pnl, position_type, peak_pnl_pct, last_updated`

// GetByPortfolio returns all positions for a portfolio ordered by symbol
func (r *PositionRepository) GetByPortfolio(portfolioID int64) ([]domain.Position, error) {
	rows, err := r.db.Query(`
		SELECT `+positionColumns+`
		FROM positions WHERE portfolio_id = ? ORDER BY symbol`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// GetBySymbol returns the position for a symbol, or nil if none is open
func (r *PositionRepository) GetBySymbol(portfolioID int64, symbol string) (*domain.Position, error) {
	row := r.db.QueryRow(`
		SELECT `+positionColumns+`
		FROM positions WHERE portfolio_id = ? AND symbol = ?`, portfolioID, symbol)

	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", symbol, err)
	}
	return pos, nil
}

// Upsert inserts or replaces the position for (portfolio_id, symbol)
func (r *PositionRepository) Upsert(pos *domain.Position) error {
	return r.upsert(r.db, pos)
}

// UpsertTx inserts or replaces the position inside a transaction
func (r *PositionRepository) UpsertTx(tx *sql.Tx, pos *domain.Position) error {
	return r.upsert(tx, pos)
}

func (r *PositionRepository) upsert(e execer, pos *domain.Position) error {
	pos.LastUpdated = time.Now().UTC()

	_, err := e.Exec(`
		INSERT INTO positions (
			portfolio_id, symbol, quantity, average_cost, current_price,
			unrealized_pnl, realized_pnl, position_type, peak_pnl_pct, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_cost = excluded.average_cost,
			current_price = excluded.current_price,
			unrealized_pnl = excluded.unrealized_pnl,
			realized_pnl = excluded.realized_pnl,
			position_type = excluded.position_type,
			peak_pnl_pct = excluded.peak_pnl_pct,
			last_updated = excluded.last_updated`,
		pos.PortfolioID, pos.Symbol, pos.Quantity, pos.AverageCost, pos.CurrentPrice,
		pos.UnrealizedPnl, pos.RealizedPnl, string(pos.PositionType), pos.PeakPnlPct,
		pos.LastUpdated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", pos.Symbol, err)
	}
	return nil
}

// Delete removes the position for (portfolio_id, symbol)
func (r *PositionRepository) Delete(portfolioID int64, symbol string) error {
	return r.delete(r.db, portfolioID, symbol)
}

// DeleteTx removes the position inside a transaction
func (r *PositionRepository) DeleteTx(tx *sql.Tx, portfolioID int64, symbol string) error {
	return r.delete(tx, portfolioID, symbol)
}

func (r *PositionRepository) delete(e execer, portfolioID int64, symbol string) error {
	_, err := e.Exec(`DELETE FROM positions WHERE portfolio_id = ? AND symbol = ?`, portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", symbol, err)
	}
	return nil
}

// UpdateMarketData refreshes price-derived fields for a position
func (r *PositionRepository) UpdateMarketData(portfolioID int64, symbol string, price, unrealizedPnl, peakPnlPct float64) error {
	_, err := r.db.Exec(`
		UPDATE positions
		SET current_price = ?, unrealized_pnl = ?, peak_pnl_pct = ?, last_updated = ?
		WHERE portfolio_id = ? AND symbol = ?`,
		price, unrealizedPnl, peakPnlPct, time.Now().UTC().Format(time.RFC3339),
		portfolioID, symbol)
	if err != nil {
		return fmt.Errorf("failed to update market data for %s: %w", symbol, err)
	}
	return nil
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var pos domain.Position
	var lastUpdated string

	if err := row.Scan(
		&pos.ID, &pos.PortfolioID, &pos.Symbol, &pos.Quantity, &pos.AverageCost,
		&pos.CurrentPrice, &pos.UnrealizedPnl, &pos.RealizedPnl, &pos.PositionType,
		&pos.PeakPnlPct, &lastUpdated,
	); err != nil {
		return nil, err
	}

	pos.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &pos, nil
}
