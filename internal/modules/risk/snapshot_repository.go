package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRepository persists risk diagnostics as msgpack blobs in
// portfolio.db so operators can review how the risk picture evolved.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "risk_snapshot").Logger(),
	}
}

// Save stores a diagnostics snapshot
func (r *SnapshotRepository) Save(diag *Diagnostics) error {
	blob, err := msgpack.Marshal(diag)
	if err != nil {
		return fmt.Errorf("failed to encode risk snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO risk_snapshots (portfolio_id, snapshot, created_at)
		VALUES (?, ?, ?)`,
		diag.PortfolioID, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert risk snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for a portfolio, or nil
func (r *SnapshotRepository) GetLatest(portfolioID int64) (*Diagnostics, error) {
	row := r.db.QueryRow(`
		SELECT snapshot FROM risk_snapshots
		WHERE portfolio_id = ? ORDER BY id DESC LIMIT 1`, portfolioID)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest risk snapshot: %w", err)
	}

	var diag Diagnostics
	if err := msgpack.Unmarshal(blob, &diag); err != nil {
		return nil, fmt.Errorf("failed to decode risk snapshot: %w", err)
	}
	return &diag, nil
}

// GetHistory returns up to limit snapshots for a portfolio, newest first
func (r *SnapshotRepository) GetHistory(portfolioID int64, limit int) ([]Diagnostics, error) {
	if limit <= 0 {
		limit = 24
	}

	rows, err := r.db.Query(`
		SELECT snapshot FROM risk_snapshots
		WHERE portfolio_id = ? ORDER BY id DESC LIMIT ?`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Diagnostics
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan risk snapshot: %w", err)
		}

		var diag Diagnostics
		if err := msgpack.Unmarshal(blob, &diag); err != nil {
			return nil, fmt.Errorf("failed to decode risk snapshot: %w", err)
		}
		snapshots = append(snapshots, diag)
	}
	return snapshots, rows.Err()
}
