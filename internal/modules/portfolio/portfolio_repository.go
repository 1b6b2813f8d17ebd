// Package portfolio provides portfolio and position persistence and queries.
package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// PortfolioRepository handles portfolio persistence in portfolio.db
type PortfolioRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repository", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio and returns it with its assigned ID
func (r *PortfolioRepository) Create(p *domain.Portfolio) (*domain.Portfolio, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := r.db.Exec(`
		INSERT INTO portfolios (name, currency, current_capital, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Currency, p.CurrentCapital,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio id: %w", err)
	}
	p.ID = id

	return p, nil
}

// GetByID fetches a portfolio by ID
func (r *PortfolioRepository) GetByID(id int64) (*domain.Portfolio, error) {
	row := r.db.QueryRow(`
		SELECT id, name, currency, current_capital, created_at, updated_at
		FROM portfolios WHERE id = ?`, id)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError(
			fmt.Sprintf("portfolio %d not found", id),
			map[string]interface{}{"portfolio_id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %d: %w", id, err)
	}
	return p, nil
}

// GetAll returns all portfolios ordered by ID
func (r *PortfolioRepository) GetAll() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`
		SELECT id, name, currency, current_capital, created_at, updated_at
		FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, *p)
	}
	return portfolios, rows.Err()
}

// UpdateCapital sets the portfolio's current capital
func (r *PortfolioRepository) UpdateCapital(id int64, capital float64) error {
	return r.updateCapital(r.db, id, capital)
}

// UpdateCapitalTx sets the portfolio's current capital inside a transaction
func (r *PortfolioRepository) UpdateCapitalTx(tx *sql.Tx, id int64, capital float64) error {
	return r.updateCapital(tx, id, capital)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *PortfolioRepository) updateCapital(e execer, id int64, capital float64) error {
	result, err := e.Exec(`
		UPDATE portfolios SET current_capital = ?, updated_at = ? WHERE id = ?`,
		capital, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update capital for portfolio %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError(
			fmt.Sprintf("portfolio %d not found", id),
			map[string]interface{}{"portfolio_id": id})
	}
	return nil
}

// Delete removes a portfolio and, via cascade, its positions
func (r *PortfolioRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %d: %w", id, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.NewNotFoundError(
			fmt.Sprintf("portfolio %d not found", id),
			map[string]interface{}{"portfolio_id": id})
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var createdAt, updatedAt string

	if err := row.Scan(&p.ID, &p.Name, &p.Currency, &p.CurrentCapital, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
