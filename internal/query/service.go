package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FundLedger/internal/observability"
)

// Service provides read-only access to the projection tables and the journal.
// Every response carries as_of_sequence so callers can reason about freshness
// against the processor's live sequence.
type Service struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewService(db *sql.DB, metrics *observability.Metrics) *Service {
	return &Service{db: db, metrics: metrics}
}

func (s *Service) observe(endpoint string, start time.Time) {
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// GetBalance returns one projected account balance, zero when the account has
// never been touched.
func (s *Service) GetBalance(ctx context.Context, accountPath string) (*BalanceEntry, error) {
	defer s.observe("balance", time.Now())

	asOf, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	entry := &BalanceEntry{AccountPath: accountPath, AsOfSequence: asOf}
	err = s.db.QueryRowContext(ctx, `
		SELECT unit, balance FROM fund_proj.balances WHERE account_path = $1`,
		accountPath,
	).Scan(&entry.Unit, &entry.Balance)
	if err == sql.ErrNoRows {
		return entry, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetShareClassSummary aggregates pool assets, equity, and share supply for a
// pair from the projected balances.
func (s *Service) GetShareClassSummary(ctx context.Context, shareClass, asset string) (*ShareClassSummary, error) {
	defer s.observe("summary", time.Now())

	asOf, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	summary := &ShareClassSummary{ShareClass: shareClass, Asset: asset, AsOfSequence: asOf}

	pool, err := s.balanceOf(ctx, fmt.Sprintf("system:pool:%s:%s", shareClass, asset))
	if err != nil {
		return nil, err
	}
	gain, err := s.balanceOf(ctx, fmt.Sprintf("system:gain:%s:%s", shareClass, asset))
	if err != nil {
		return nil, err
	}
	loss, err := s.balanceOf(ctx, fmt.Sprintf("system:loss:%s:%s", shareClass, asset))
	if err != nil {
		return nil, err
	}
	supply, err := s.balanceOf(ctx, fmt.Sprintf("system:supply:%s", shareClass))
	if err != nil {
		return nil, err
	}
	escrow, err := s.balanceOf(ctx, fmt.Sprintf("system:share_escrow:%s", shareClass))
	if err != nil {
		return nil, err
	}

	summary.PoolAssets = pool
	summary.Equity = pool - loss + gain
	summary.OutstandingShares = -supply
	summary.EscrowedShares = escrow
	return summary, nil
}

// GetEpochActivity returns operator epoch actions for a pair, newest first,
// with cursor pagination on sequence.
func (s *Service) GetEpochActivity(ctx context.Context, shareClass, asset string, limit int, beforeSequence *int64) ([]EpochActivityEntry, error) {
	defer s.observe("epoch_activity", time.Now())

	asOf, err := s.watermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT sequence, op_type, epoch_index, amount, price, nav, caller, timestamp
		FROM fund_proj.epoch_activity
		WHERE share_class = $1 AND asset = $2`
	args := []interface{}{shareClass, asset}
	argIdx := 3

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []EpochActivityEntry
	for rows.Next() {
		e := EpochActivityEntry{ShareClass: shareClass, Asset: asset, AsOfSequence: asOf}
		var amount, price, nav sql.NullString
		if err := rows.Scan(&e.Sequence, &e.OpType, &e.EpochIndex, &amount, &price, &nav, &e.Caller, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Amount, e.Price, e.Nav = amount.String, price.String, nav.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetClaimActivity returns claim and cancellation outcomes for an investor,
// newest first.
func (s *Service) GetClaimActivity(ctx context.Context, investor string, limit int, beforeSequence *int64) ([]ClaimActivityEntry, error) {
	defer s.observe("claim_activity", time.Now())

	asOf, err := s.watermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT sequence, share_class, asset, op_type, payout, consumed, cancelled, can_claim_again, timestamp
		FROM fund_proj.claim_activity
		WHERE investor = $1`
	args := []interface{}{investor}
	argIdx := 2

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ClaimActivityEntry
	for rows.Next() {
		e := ClaimActivityEntry{Investor: investor, AsOfSequence: asOf}
		if err := rows.Scan(
			&e.Sequence, &e.ShareClass, &e.Asset, &e.OpType,
			&e.Payout, &e.Consumed, &e.Cancelled, &e.CanClaimAgain, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetJournalHistory returns journal entries touching an account, newest
// first, with cursor pagination on sequence.
func (s *Service) GetJournalHistory(ctx context.Context, accountPath string, limit int, beforeSequence *int64) ([]JournalEntry, error) {
	defer s.observe("journal", time.Now())

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, unit, amount, journal_type, timestamp
		FROM fund_log.journal
		WHERE (debit_account = $1 OR credit_account = $1)`
	args := []interface{}{accountPath}
	argIdx := 2

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.Unit, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VerifyIntegrity checks hash chain continuity in the log and the zero-sum
// invariant per unit in the projected balances.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	defer s.observe("integrity", time.Now())

	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o1.sequence
		FROM fund_log.ops o1
		LEFT JOIN fund_log.ops o2 ON o2.sequence = o1.sequence - 1
		WHERE o2.sequence IS NOT NULL AND o1.prev_hash != o2.state_hash
		ORDER BY o1.sequence
		LIMIT 10`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unitRows, err := s.db.QueryContext(ctx, `
		SELECT unit, SUM(balance)
		FROM fund_proj.balances
		GROUP BY unit
		HAVING SUM(balance) != 0`,
	)
	if err != nil {
		return nil, err
	}
	defer unitRows.Close()

	for unitRows.Next() {
		var u UnbalancedUnit
		if err := unitRows.Scan(&u.Unit, &u.Imbalance); err != nil {
			return nil, err
		}
		report.UnbalancedUnits = append(report.UnbalancedUnits, u)
	}
	if err := unitRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedUnits) == 0
	return report, nil
}

// --- helpers ---

func (s *Service) watermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM fund_proj.watermark WHERE worker_id = 'main'`,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (s *Service) balanceOf(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM fund_proj.balances WHERE account_path = $1`,
		accountPath,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
