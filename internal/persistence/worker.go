package persistence

import (
	"context"
	"fmt"
	"time"

	"FundLedger/internal/core"
	"FundLedger/internal/observability"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	defaultBatchSize    = 256
	defaultFlushTimeout = 50 * time.Millisecond
)

// PersistWorker drains the processor's persist channel and writes envelopes
// plus their journal batches to Postgres in a single transaction per flush.
// Writes retry with exponential backoff until the context is cancelled; the
// processor blocks on the channel in the meantime, so nothing applied is
// ever dropped.
type PersistWorker struct {
	writer       *OpLogWriter
	inputChan    <-chan core.CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

type WorkerOption func(*PersistWorker)

func WithBatchSize(n int) WorkerOption {
	return func(w *PersistWorker) { w.batchSize = n }
}

func WithFlushTimeout(d time.Duration) WorkerOption {
	return func(w *PersistWorker) { w.flushTimeout = d }
}

func NewPersistWorker(writer *OpLogWriter, inputChan <-chan core.CoreOutput, metrics *observability.Metrics, log zerolog.Logger, opts ...WorkerOption) *PersistWorker {
	w := &PersistWorker{
		writer:       writer,
		inputChan:    inputChan,
		batchSize:    defaultBatchSize,
		flushTimeout: defaultFlushTimeout,
		metrics:      metrics,
		log:          log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes outputs until the context is cancelled, then performs a final
// flush of whatever is buffered.
func (w *PersistWorker) Run(ctx context.Context) error {
	buffer := make([]core.CoreOutput, 0, w.batchSize)
	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drainRemaining(&buffer)
			if len(buffer) > 0 {
				// Shutdown flush runs on a fresh context so cancellation
				// cannot lose the tail of the log.
				flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				err := w.flush(flushCtx, buffer)
				cancel()
				if err != nil {
					w.log.Error().Err(err).Int("buffered", len(buffer)).Msg("final flush failed")
					return err
				}
			}
			w.log.Info().Msg("persist worker stopped")
			return ctx.Err()

		case out, ok := <-w.inputChan:
			if !ok {
				if len(buffer) > 0 {
					return w.flush(context.Background(), buffer)
				}
				return nil
			}
			buffer = append(buffer, out)
			if len(buffer) >= w.batchSize {
				if err := w.flushWithRetry(ctx, buffer); err != nil {
					return err
				}
				buffer = buffer[:0]
				resetTimer(timer, w.flushTimeout)
			}

		case <-timer.C:
			if len(buffer) > 0 {
				if err := w.flushWithRetry(ctx, buffer); err != nil {
					return err
				}
				buffer = buffer[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

func (w *PersistWorker) drainRemaining(buffer *[]core.CoreOutput) {
	for {
		select {
		case out, ok := <-w.inputChan:
			if !ok {
				return
			}
			*buffer = append(*buffer, out)
		default:
			return
		}
	}
}

// flushWithRetry retries forever with exponential backoff. Returns only when
// the flush succeeds or the context is cancelled.
func (w *PersistWorker) flushWithRetry(ctx context.Context, batch []core.CoreOutput) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := w.flush(ctx, batch)
		if err != nil {
			if w.metrics != nil {
				w.metrics.PersistRetry.Inc()
			}
			w.log.Warn().Err(err).Int("attempt", attempt).Int("batch", len(batch)).Msg("persist flush failed, retrying")
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (w *PersistWorker) flush(ctx context.Context, batch []core.CoreOutput) error {
	start := time.Now()

	ops := make([]OpRow, 0, len(batch))
	var journals []JournalRow
	for _, out := range batch {
		ops = append(ops, toOpRow(out))
		journals = append(journals, toJournalRows(out)...)
	}

	tx, err := w.writer.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := w.writer.WriteOpBatch(ctx, tx, ops); err != nil {
		tx.Rollback()
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("ops").Inc()
		}
		return fmt.Errorf("write ops: %w", err)
	}

	if err := w.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		tx.Rollback()
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("journal").Inc()
		}
		return fmt.Errorf("write journals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("commit").Inc()
		}
		return fmt.Errorf("commit: %w", err)
	}

	lastSeq := batch[len(batch)-1].Envelope.Sequence
	if w.metrics != nil {
		w.metrics.PersistEnvelopesWritten.Add(float64(len(ops)))
		w.metrics.PersistJournalsWritten.Add(float64(len(journals)))
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistLastSequence.Set(float64(lastSeq))
	}

	w.log.Debug().
		Int("ops", len(ops)).
		Int("journals", len(journals)).
		Int64("last_sequence", lastSeq).
		Dur("took", time.Since(start)).
		Msg("persisted batch")

	return nil
}

func toOpRow(out core.CoreOutput) OpRow {
	env := out.Envelope
	return OpRow{
		Sequence:       env.Sequence,
		OpType:         env.OpType.String(),
		IdempotencyKey: env.IdempotencyKey,
		ShareClass:     string(env.ShareClass),
		Asset:          string(env.Asset),
		Payload:        env.Payload,
		StateHash:      env.StateHash[:],
		PrevHash:       env.PrevHash[:],
		Timestamp:      env.Timestamp,
		SourceSequence: env.SourceSequence,
	}
}

func toJournalRows(out core.CoreOutput) []JournalRow {
	var rows []JournalRow
	for _, b := range out.Batches {
		for _, j := range b.Journals {
			rows = append(rows, JournalRow{
				JournalID:     j.JournalID.String(),
				BatchID:       j.BatchID.String(),
				EventRef:      j.EventRef,
				Sequence:      j.Sequence,
				DebitAccount:  j.DebitAccount.AccountPath(),
				CreditAccount: j.CreditAccount.AccountPath(),
				Unit:          string(j.Unit),
				Amount:        j.Amount,
				JournalType:   int32(j.JournalType),
				Timestamp:     j.Timestamp,
			})
		}
	}
	return rows
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
