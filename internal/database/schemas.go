package database

// schemas maps database names to their embedded schema SQL.
// All statements are idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"portfolio": portfolioSchema,
	"ledger":    ledgerSchema,
}

const portfolioSchema = `
CREATE TABLE IF NOT EXISTS portfolios (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL DEFAULT '',
    currency        TEXT NOT NULL DEFAULT 'USD',
    current_capital REAL NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id   INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
    symbol         TEXT NOT NULL,
    quantity       REAL NOT NULL,
    average_cost   REAL NOT NULL,
    current_price  REAL NOT NULL DEFAULT 0,
    unrealized_pnl REAL NOT NULL DEFAULT 0,
    realized_pnl   REAL NOT NULL DEFAULT 0,
    position_type  TEXT NOT NULL DEFAULT 'LONG',
    peak_pnl_pct   REAL NOT NULL DEFAULT 0,
    last_updated   TEXT NOT NULL,
    UNIQUE (portfolio_id, symbol)
);

CREATE INDEX IF NOT EXISTS idx_positions_portfolio ON positions(portfolio_id);

CREATE TABLE IF NOT EXISTS risk_snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id INTEGER NOT NULL,
    snapshot     BLOB NOT NULL,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_snapshots_portfolio ON risk_snapshots(portfolio_id, created_at);
`

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS trades (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id       INTEGER NOT NULL,
    session_id         TEXT,
    order_id           TEXT NOT NULL DEFAULT '',
    symbol             TEXT NOT NULL,
    action             TEXT NOT NULL,
    order_type         TEXT NOT NULL DEFAULT 'MARKET',
    limit_price        REAL,
    status             TEXT NOT NULL,
    requested_quantity REAL NOT NULL,
    filled_quantity    REAL NOT NULL DEFAULT 0,
    average_fill_price REAL NOT NULL DEFAULT 0,
    decision_rationale TEXT NOT NULL DEFAULT '',
    confidence_score   REAL NOT NULL DEFAULT 0,
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades(portfolio_id);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(portfolio_id, symbol);
CREATE INDEX IF NOT EXISTS idx_trades_order_id ON trades(order_id);

CREATE TABLE IF NOT EXISTS executions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    trade_id    INTEGER NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
    quantity    REAL NOT NULL,
    price       REAL NOT NULL,
    commission  REAL NOT NULL DEFAULT 0,
    fees        REAL NOT NULL DEFAULT 0,
    executed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_trade ON executions(trade_id);
`
