package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/averros/tradecore/internal/domain"
	"github.com/rs/zerolog"
)

// ExecutionRepository handles fill persistence in ledger.db. Executions are
// append-only; there is no update path.
type ExecutionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(db *sql.DB, log zerolog.Logger) *ExecutionRepository {
	return &ExecutionRepository{
		db:  db,
		log: log.With().Str("repository", "execution").Logger(),
	}
}

// Create inserts an execution record
func (r *ExecutionRepository) Create(exec *domain.Execution) (*domain.Execution, error) {
	return r.create(r.db, exec)
}

// CreateTx inserts an execution record inside a transaction
func (r *ExecutionRepository) CreateTx(tx *sql.Tx, exec *domain.Execution) (*domain.Execution, error) {
	return r.create(tx, exec)
}

func (r *ExecutionRepository) create(e execer, exec *domain.Execution) (*domain.Execution, error) {
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now().UTC()
	}

	result, err := e.Exec(`
		INSERT INTO executions (trade_id, quantity, price, commission, fees, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		exec.TradeID, exec.Quantity, exec.Price, exec.Commission, exec.Fees,
		exec.ExecutedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to insert execution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get execution id: %w", err)
	}
	exec.ID = id

	return exec, nil
}

// GetByTrade returns all executions for a trade in fill order
func (r *ExecutionRepository) GetByTrade(tradeID int64) ([]domain.Execution, error) {
	rows, err := r.db.Query(`
		SELECT id, trade_id, quantity, price, commission, fees, executed_at
		FROM executions WHERE trade_id = ? ORDER BY id`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var executions []domain.Execution
	for rows.Next() {
		var exec domain.Execution
		var executedAt string
		if err := rows.Scan(&exec.ID, &exec.TradeID, &exec.Quantity, &exec.Price,
			&exec.Commission, &exec.Fees, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		exec.ExecutedAt, _ = time.Parse(time.RFC3339, executedAt)
		executions = append(executions, exec)
	}
	return executions, rows.Err()
}
