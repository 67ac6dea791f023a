package projection

import (
	"context"
	"database/sql"
	"fmt"

	"FundLedger/internal/core"
	"FundLedger/internal/event"
	"FundLedger/internal/observability"

	"github.com/rs/zerolog"
)

// Worker maintains the read-side tables from processed operations. The
// projection channel is non-blocking on the processor side: if this worker
// falls behind, dropped outputs are recovered by rebuilding from the log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan core.CoreOutput
	metrics   *observability.Metrics
	log       zerolog.Logger
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan core.CoreOutput, metrics *observability.Metrics, log zerolog.Logger) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
		log:       log,
	}
}

// Run applies outputs until the context is cancelled. Projection failures are
// logged and skipped; the tables are eventually consistent.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Int64("last_sequence", w.lastSeq).Msg("projection worker stopped")
			return ctx.Err()

		case out, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			if err := w.apply(ctx, out); err != nil {
				w.log.Warn().Err(err).Int64("sequence", out.Envelope.Sequence).Msg("projection update failed")
				continue
			}
			w.lastSeq = out.Envelope.Sequence
		}
	}
}

func (w *Worker) apply(ctx context.Context, out core.CoreOutput) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq := out.Envelope.Sequence

	for _, b := range out.Batches {
		for _, j := range b.Journals {
			if err := w.applyJournal(ctx, tx, seq, j.DebitAccount.AccountPath(), j.CreditAccount.AccountPath(), string(j.Unit), j.Amount); err != nil {
				return fmt.Errorf("balance projection: %w", err)
			}
		}
	}

	if err := w.applyActivity(ctx, tx, out); err != nil {
		return fmt.Errorf("activity projection: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fund_proj.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()`,
		seq,
	); err != nil {
		return fmt.Errorf("watermark: %w", err)
	}

	return tx.Commit()
}

func (w *Worker) applyJournal(ctx context.Context, tx *sql.Tx, seq int64, debit, credit, unit string, amount int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fund_proj.balances (account_path, unit, balance, last_sequence)
		VALUES ($1, $2, -$3, $4)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = fund_proj.balances.balance - $3, last_sequence = $4`,
		debit, unit, amount, seq,
	); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO fund_proj.balances (account_path, unit, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = fund_proj.balances.balance + $3, last_sequence = $4`,
		credit, unit, amount, seq,
	)
	return err
}

// applyActivity records operator epoch actions and investor claim outcomes.
// Request and cancel bookkeeping lives in the engine's in-memory order book;
// only the settled history is projected.
func (w *Worker) applyActivity(ctx context.Context, tx *sql.Tx, out core.CoreOutput) error {
	env := out.Envelope

	op, err := event.UnmarshalOperation(env.OpType, env.Payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch o := op.(type) {
	case *event.ApproveDeposits:
		return w.insertEpochActivity(ctx, tx, env, o.Epoch, o.Amount, o.Price, 0, o.Caller)
	case *event.ApproveRedeems:
		return w.insertEpochActivity(ctx, tx, env, o.Epoch, o.Amount, o.Price, 0, o.Caller)
	case *event.IssueShares:
		return w.insertEpochActivity(ctx, tx, env, o.Epoch, 0, 0, o.Nav, o.Caller)
	case *event.RevokeShares:
		return w.insertEpochActivity(ctx, tx, env, o.Epoch, 0, 0, o.Nav, o.Caller)

	case *event.ClaimDeposit:
		return w.insertClaimActivity(ctx, tx, env, o.Investor.String(), out.Result)
	case *event.ClaimRedeem:
		return w.insertClaimActivity(ctx, tx, env, o.Investor.String(), out.Result)
	case *event.CancelDeposit:
		return w.insertClaimActivity(ctx, tx, env, o.Investor.String(), out.Result)
	case *event.CancelRedeem:
		return w.insertClaimActivity(ctx, tx, env, o.Investor.String(), out.Result)
	case *event.ForceCancel:
		return w.insertClaimActivity(ctx, tx, env, o.Investor.String(), out.Result)
	}

	return nil
}

func (w *Worker) insertEpochActivity(ctx context.Context, tx *sql.Tx, env *event.Envelope, epochIdx uint32, amount, price, nav uint64, caller string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fund_proj.epoch_activity
			(sequence, share_class, asset, op_type, epoch_index, amount, price, nav, caller, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sequence) DO NOTHING`,
		env.Sequence, string(env.ShareClass), string(env.Asset), env.OpType.String(),
		int64(epochIdx), fmt.Sprint(amount), fmt.Sprint(price), fmt.Sprint(nav),
		caller, env.Timestamp.UnixMicro(),
	)
	return err
}

func (w *Worker) insertClaimActivity(ctx context.Context, tx *sql.Tx, env *event.Envelope, investor string, result *core.OpResult) error {
	var payout, consumed, cancelled uint64
	var again bool
	if result != nil {
		cancelled = result.Cancelled
		if result.Claim != nil {
			payout = result.Claim.Payout
			consumed = result.Claim.TotalConsumed
			cancelled += result.Claim.Cancelled
			again = result.Claim.CanClaimAgain
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO fund_proj.claim_activity
			(sequence, share_class, asset, investor, op_type, payout, consumed, cancelled, can_claim_again, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sequence) DO NOTHING`,
		env.Sequence, string(env.ShareClass), string(env.Asset), investor, env.OpType.String(),
		fmt.Sprint(payout), fmt.Sprint(consumed), fmt.Sprint(cancelled), again,
		env.Timestamp.UnixMicro(),
	)
	return err
}

// Rebuild truncates the read-side tables and rebuilds balances from the
// journal. Activity tables rebuild incrementally as the log is replayed.
func Rebuild(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`TRUNCATE fund_proj.balances`,
		`TRUNCATE fund_proj.epoch_activity`,
		`TRUNCATE fund_proj.claim_activity`,
		`DELETE FROM fund_proj.watermark WHERE worker_id = 'main'`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO fund_proj.balances (account_path, unit, balance, last_sequence)
		SELECT credit_account, unit, SUM(amount), MAX(sequence)
		FROM fund_log.journal
		GROUP BY credit_account, unit`,
	); err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO fund_proj.balances (account_path, unit, balance, last_sequence)
		SELECT debit_account, unit, -SUM(amount), MAX(sequence)
		FROM fund_log.journal
		GROUP BY debit_account, unit
		ON CONFLICT (account_path) DO UPDATE
			SET balance = fund_proj.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(fund_proj.balances.last_sequence, EXCLUDED.last_sequence)`,
	); err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	return nil
}
