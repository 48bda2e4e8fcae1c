package store

import (
	"context"
	"fmt"
	"time"
)

// MonthKey is the ledger bucket for t, e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// RecordUsage appends one enrichment spend to the monthly ledger.
func (d *DB) RecordUsage(ctx context.Context, provider string, creditsSpent float64, at time.Time) error {
	if creditsSpent <= 0 {
		return nil
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO credit_usage(month, provider, credits, recorded_at)
VALUES(?,?,?,?);`,
		MonthKey(at), provider, creditsSpent, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// UsedInMonth sums recorded spend for one calendar month across providers.
func (d *DB) UsedInMonth(ctx context.Context, month string) (float64, error) {
	var used float64
	err := d.Pool.QueryRowContext(ctx, `
SELECT COALESCE(SUM(credits), 0) FROM credit_usage WHERE month = ?;`, month,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return used, nil
}
