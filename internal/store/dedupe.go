package store

import (
	"context"
	"fmt"
	"time"

	"leadscout-engine/internal/domain"
)

// PreviousDedupeKeys loads every dedupe key recorded by earlier searches.
// The post-processing pipeline joins against this set to flag repeat hiring
// across runs.
func (d *DB) PreviousDedupeKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT key FROM dedupe_keys;`)
	if err != nil {
		return nil, fmt.Errorf("load dedupe keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

// PersistResults upserts the dedupe keys of a completed search so the next
// search can detect repeats. Only keys are durable; full results stay with
// the caller.
func (d *DB) PersistResults(ctx context.Context, jobs []domain.Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, j := range jobs {
		if j.DedupeKey == "" {
			continue
		}
		_, err := d.Pool.ExecContext(ctx, `
INSERT INTO dedupe_keys(key, company, title, first_seen, last_seen, times_seen)
VALUES(?,?,?,?,?,1)
ON CONFLICT(key) DO UPDATE SET
  last_seen = excluded.last_seen,
  times_seen = times_seen + 1;`,
			j.DedupeKey, j.Company, j.Title, now, now,
		)
		if err != nil {
			return fmt.Errorf("persist dedupe key %q: %w", j.DedupeKey, err)
		}
	}
	return nil
}
