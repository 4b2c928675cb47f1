// Package archive keeps a local, append-only history of pool values
// and bond rates so the display charts survive reconnects. Snapshots
// are authoritative and transient; this is display cache, never a
// source of truth.
package archive

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"mogul/internal/game"
	"mogul/internal/identity"
	"mogul/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_history (
	owner_key TEXT NOT NULL,
	turn      INTEGER NOT NULL,
	value     REAL NOT NULL,
	PRIMARY KEY (owner_key, turn)
);
CREATE TABLE IF NOT EXISTS bond_history (
	owner_key TEXT NOT NULL,
	turn      INTEGER NOT NULL,
	rate      REAL NOT NULL,
	PRIMARY KEY (owner_key, turn)
);
`

// Store wraps the sqlite archive file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the archive at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSnapshot appends one history point per pool and bond series.
// INSERT OR IGNORE keeps turns monotonic per owner: a replayed or
// duplicate frame can never rewrite a recorded sample.
func (s *Store) RecordSnapshot(ctx context.Context, snap *game.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive tx: %w", err)
	}
	defer tx.Rollback()

	for i := range snap.Pools {
		pool := &snap.Pools[i]
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO pool_history (owner_key, turn, value) VALUES (?, ?, ?)`,
			identity.Key(pool.Owner), snap.Turn, pool.PoolValue,
		)
		if err != nil {
			return fmt.Errorf("record pool %s: %w", pool.Owner, err)
		}
	}
	for i := range snap.Bonds {
		series := &snap.Bonds[i]
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO bond_history (owner_key, turn, rate) VALUES (?, ?, ?)`,
			identity.Key(series.Owner), snap.Turn, series.RatePercent,
		)
		if err != nil {
			return fmt.Errorf("record bond %s: %w", series.Owner, err)
		}
	}
	return tx.Commit()
}

// PoolHistory returns the recorded samples for an owner, oldest first.
func (s *Store) PoolHistory(ctx context.Context, owner string) ([]market.PoolSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, value FROM pool_history WHERE owner_key = ? ORDER BY turn`,
		identity.Key(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("pool history: %w", err)
	}
	defer rows.Close()

	var out []market.PoolSample
	for rows.Next() {
		var sample market.PoolSample
		if err := rows.Scan(&sample.Turn, &sample.PoolValue); err != nil {
			return nil, fmt.Errorf("scan pool history: %w", err)
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// BondHistory returns the recorded rate samples, oldest first.
func (s *Store) BondHistory(ctx context.Context, owner string) ([]market.RateSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn, rate FROM bond_history WHERE owner_key = ? ORDER BY turn`,
		identity.Key(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("bond history: %w", err)
	}
	defer rows.Close()

	var out []market.RateSample
	for rows.Next() {
		var sample market.RateSample
		if err := rows.Scan(&sample.Turn, &sample.RatePercent); err != nil {
			return nil, fmt.Errorf("scan bond history: %w", err)
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}
