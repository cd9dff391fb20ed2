package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"TrendSentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists scan results, run summaries and the score history
// to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a scan writes.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id       TEXT PRIMARY KEY,
			profile      TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			symbols      INTEGER,
			scanned      INTEGER,
			qualifying   INTEGER,
			errors       INTEGER,
			stopped      INTEGER,
			error_sample TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS scan_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			profile           TEXT NOT NULL,
			category          TEXT NOT NULL,
			total             REAL,
			max_score         REAL,
			breakout          TEXT,
			stage2            INTEGER,
			extended          INTEGER,
			is_new            INTEGER,
			close             REAL,
			change_pct        REAL,
			rsi14             REAL,
			volume_ratio      REAL,
			from_high_52w     REAL,
			market_cap        REAL,
			components        TEXT,
			extension_reasons TEXT,
			scanned_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_symbol ON scan_results(symbol, scanned_at)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON scan_results(run_id)`,

		`CREATE TABLE IF NOT EXISTS etf_overview (
			run_id            TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			close             REAL,
			rsi14             REAL,
			above_ma20        INTEGER,
			above_ma50        INTEGER,
			macd_bullish      INTEGER,
			ma20_rising       INTEGER,
			ma50_rising       INTEGER,
			from_ma20_pct     REAL,
			from_ma50_pct     REAL,
			obv_above_ma20    INTEGER,
			obv_rising        INTEGER,
			from_obv_ma20_pct REAL,
			trend_criteria    INTEGER,
			stage2            INTEGER,
			as_of             INTEGER NOT NULL,
			PRIMARY KEY (run_id, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS score_history (
			symbol   TEXT NOT NULL,
			date     TEXT NOT NULL,
			score    REAL NOT NULL,
			category TEXT NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Write inserts results in one transaction.
func (r *SQLiteRecorder) Write(ctx context.Context, results []model.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scan_results
		(run_id, symbol, profile, category, total, max_score, breakout,
		 stage2, extended, is_new,
		 close, change_pct, rsi14, volume_ratio, from_high_52w, market_cap,
		 components, extension_reasons, scanned_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		components, err := json.Marshal(res.Components)
		if err != nil {
			return fmt.Errorf("%s components: %w", res.Symbol, err)
		}
		reasons, err := json.Marshal(res.ExtensionReasons)
		if err != nil {
			return fmt.Errorf("%s extension reasons: %w", res.Symbol, err)
		}
		m := res.Metrics
		if _, err := stmt.ExecContext(ctx,
			res.RunID, res.Symbol, res.Profile, string(res.Category), res.Total, res.Max, res.Breakout.String(),
			boolInt(res.Stage2), boolInt(res.Extended), boolInt(res.IsNew),
			m.Close, m.ChangePct, m.RSI14, m.VolumeRatio, m.FromHigh52w, m.MarketCap,
			string(components), string(reasons), res.ScannedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", res.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Int("rows", len(results)).Msg("scan results recorded")
	return nil
}

// WriteSummary records one row per run; a repeated run ID replaces the row.
func (r *SQLiteRecorder) WriteSummary(ctx context.Context, s model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample, err := json.Marshal(s.ErrorSample)
	if err != nil {
		return fmt.Errorf("error sample: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO scan_runs
		(run_id, profile, started_at, finished_at, symbols, scanned, qualifying, errors, stopped, error_sample)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.Profile, s.StartedAt.Unix(), s.FinishedAt.Unix(),
		s.Symbols, s.Scanned, s.Qualifying, s.Errors, boolInt(s.Stopped), string(sample),
	)
	return err
}

// WriteOverview records the ETF overview rows of a run.
func (r *SQLiteRecorder) WriteOverview(ctx context.Context, rows []model.ETFOverview) error {
	if len(rows) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO etf_overview
		(run_id, symbol, close, rsi14, above_ma20, above_ma50, macd_bullish,
		 ma20_rising, ma50_rising, from_ma20_pct, from_ma50_pct,
		 obv_above_ma20, obv_rising, from_obv_ma20_pct, trend_criteria, stage2, as_of)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range rows {
		if _, err := stmt.ExecContext(ctx,
			o.RunID, o.Symbol, o.Close, o.RSI14,
			boolInt(o.AboveMA20), boolInt(o.AboveMA50), boolInt(o.MACDBullish),
			o.MA20Rising, o.MA50Rising, o.FromMA20Pct, o.FromMA50Pct,
			boolInt(o.OBVAboveMA20), boolInt(o.OBVRising), o.FromOBVMA20Pct,
			o.TrendCriteria, boolInt(o.Stage2), o.AsOf.Unix(),
		); err != nil {
			return fmt.Errorf("insert %s: %w", o.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Int("rows", len(rows)).Msg("etf overview recorded")
	return nil
}

// Load reads the whole score history.
func (r *SQLiteRecorder) Load(ctx context.Context) (model.HistoryMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT symbol, date, score, category FROM score_history`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	m := make(model.HistoryMap)
	for rows.Next() {
		var (
			symbol, date, category string
			score                  float64
		)
		if err := rows.Scan(&symbol, &date, &score, &category); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if m[symbol] == nil {
			m[symbol] = make(model.SymbolHistory)
		}
		m[symbol][date] = model.HistoryEntry{Score: score, Category: model.Category(category)}
	}
	return m, rows.Err()
}

// Save replaces the stored history with m.
func (r *SQLiteRecorder) Save(ctx context.Context, m model.HistoryMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM score_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO score_history (symbol, date, score, category) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	for symbol, days := range m {
		for date, e := range days {
			if _, err := stmt.ExecContext(ctx, symbol, date, e.Score, string(e.Category)); err != nil {
				return fmt.Errorf("insert %s %s: %w", symbol, date, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Int("entries", n).Msg("history saved")
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
