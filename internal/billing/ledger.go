package billing

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/radio-t/doc-podcast/podcast"
)

// Ledger is the SQLite-backed usage store: per (user, billing period) article
// and unit counters plus one record per produced artifact. Usage commit and
// artifact record creation happen in a single transaction.
type Ledger struct {
	db    *sql.DB
	clock func() time.Time
}

// ArtifactRecord is what the ledger keeps about one produced episode.
type ArtifactRecord struct {
	ID              string
	UserID          string
	Period          string
	DurationSeconds int
	AudioBytes      int
	Usage           podcast.Usage
	Units           int
}

// OpenLedger opens (and if needed creates) the ledger database at path.
func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	l := &Ledger{db: db, clock: time.Now}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS usage_periods (
    user_id TEXT NOT NULL,
    period TEXT NOT NULL,
    articles INTEGER NOT NULL DEFAULT 0,
    units INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, period)
);
CREATE TABLE IF NOT EXISTS artifacts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    period TEXT NOT NULL,
    duration_seconds INTEGER NOT NULL,
    audio_bytes INTEGER NOT NULL,
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    total_cost REAL NOT NULL,
    units INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_user_period ON artifacts(user_id, period);
`
	_, err := l.db.ExecContext(ctx, ddl)
	return err
}

// PeriodUsage returns the consumed allowances for one user and period.
// An unknown pair reads as zero usage.
func (l *Ledger) PeriodUsage(ctx context.Context, userID, period string) (PeriodUsage, error) {
	var u PeriodUsage
	err := l.db.QueryRowContext(ctx,
		"SELECT articles, units FROM usage_periods WHERE user_id = ? AND period = ?",
		userID, period).Scan(&u.Articles, &u.Units)
	if err == sql.ErrNoRows {
		return PeriodUsage{}, nil
	}
	if err != nil {
		return PeriodUsage{}, fmt.Errorf("query period usage: %w", err)
	}
	return u, nil
}

// CommitRun records the artifact and increments the period counters in one
// transaction. Either both writes land or neither does; spent external cost
// is never recorded without its artifact, nor the other way around.
func (l *Ledger) CommitRun(ctx context.Context, rec ArtifactRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback() // no-op after a successful commit

	_, err = tx.ExecContext(ctx, `
INSERT INTO usage_periods (user_id, period, articles, units) VALUES (?, ?, 1, ?)
ON CONFLICT (user_id, period) DO UPDATE SET
    articles = articles + 1,
    units = units + excluded.units`,
		rec.UserID, rec.Period, rec.Units)
	if err != nil {
		return fmt.Errorf("upsert usage: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO artifacts (id, user_id, period, duration_seconds, audio_bytes,
    input_tokens, output_tokens, total_cost, units, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Period, rec.DurationSeconds, rec.AudioBytes,
		rec.Usage.InputTokens, rec.Usage.OutputTokens, rec.Usage.TotalCost,
		rec.Units, l.clock().UTC())
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// CurrentPeriod formats t as the billing period key, one per calendar month.
func CurrentPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
