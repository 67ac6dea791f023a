package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"FundLedger/internal/event"
	"FundLedger/internal/ledger"
	"FundLedger/internal/observability"
	"FundLedger/internal/settle"

	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateOperation marks an operation whose idempotency key was
	// already processed. Callers treat it as success.
	ErrDuplicateOperation = errors.New("duplicate operation")

	// ErrUnknownOperation marks an operation the processor cannot dispatch.
	ErrUnknownOperation = errors.New("unknown operation type")
)

// OpResult is the caller-visible outcome of one operation.
type OpResult struct {
	Queued    bool                `json:"queued,omitempty"`
	Cancelled uint64              `json:"cancelled,omitempty"`
	Cost      uint64              `json:"cost,omitempty"`
	Claim     *settle.ClaimResult `json:"claim,omitempty"`
}

// CoreOutput is what the processor emits per applied operation: the sealed
// envelope, the journal batches it produced, and the canonical state delta.
type CoreOutput struct {
	Envelope   *event.Envelope
	Batches    []*ledger.Batch
	Result     *OpResult
	StateDelta []byte
}

// Processor is the single-threaded deterministic pipeline. Every operation
// flows through idempotency and sequence checks, is dispatched to the
// settlement engine, and leaves as a hash-chained envelope plus journal
// batches on the output channels. The processor never reads the wall clock
// for anything that affects state.
type Processor struct {
	sequence          int64
	hasher            *StateHasher
	engine            *settle.Engine
	acct              *ledger.Accounting
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics
	log               zerolog.Logger

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

const idempotencyLRUCapacity = 1_000_000

func NewProcessor(
	startSequence int64,
	engine *settle.Engine,
	acct *ledger.Accounting,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		engine:            engine,
		acct:              acct,
		idempotency:       NewIdempotencyChecker(idempotencyLRUCapacity, dbChecker),
		sequenceValidator: NewSequenceValidator(),
		metrics:           metrics,
		log:               log,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// Process runs one operation through the full pipeline.
func (c *Processor) Process(op event.Operation) (*OpResult, error) {
	start := time.Now()
	opType := op.Type().String()
	idempotencyKey := op.IdempotencyKey()

	isDuplicate := c.idempotency.IsDuplicate(opType, idempotencyKey)

	// Spoke-originated operations carry a source sequence and must arrive
	// gapless per pair. Operator operations carry none and skip the check.
	scID, assetID := op.Pair()
	sourceSequence := op.SourceSequence()
	if sourceSequence >= 0 {
		partition := fmt.Sprintf("%s:%s", scID, assetID)
		if err := c.sequenceValidator.ValidateSequence(partition, sourceSequence, isDuplicate); err != nil {
			c.reject(opType, "sequence")
			return nil, fmt.Errorf("sequence validation failed: %w", err)
		}
	}

	if isDuplicate {
		c.reject(opType, "duplicate")
		return nil, ErrDuplicateOperation
	}

	c.acct.SetContext(c.sequence, op.OccurredAt())

	result, err := c.dispatch(op)
	if err != nil {
		// The engine calls accounting hooks only after every validation has
		// passed, so a failed dispatch must not have produced journals.
		if leftover := c.acct.TakeBatches(); len(leftover) > 0 {
			panic(fmt.Sprintf("FATAL: %d journal batches emitted by failed %s", len(leftover), opType))
		}
		c.reject(opType, "rejected")
		return nil, err
	}

	batches := c.acct.TakeBatches()

	stateDigest := c.computeStateDigest(batches)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	payload, err := json.Marshal(op)
	if err != nil {
		panic(fmt.Sprintf("FATAL: cannot marshal %s payload: %v", opType, err))
	}

	envelope := &event.Envelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		OpType:         op.Type(),
		ShareClass:     scID,
		Asset:          assetID,
		Timestamp:      time.UnixMicro(op.OccurredAt()),
		SourceSequence: sourceSequence,
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batches:    batches,
		Result:     result,
		StateDelta: stateDigest,
	}
	c.sequence++

	// Persistence gets a blocking send: the processor stalls until the
	// writer drains, so no applied operation can be lost. Projections get a
	// non-blocking send and rebuild from the log if they fall behind.
	select {
	case c.persistChan <- output:
	default:
		if c.metrics != nil {
			c.metrics.PersistBackpressure.Inc()
		}
		c.persistChan <- output
	}
	select {
	case c.projectionChan <- output:
	default:
		if c.metrics != nil {
			c.metrics.ProjectionDrops.WithLabelValues("main").Inc()
		}
	}

	c.idempotency.MarkProcessed(opType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreOpsApplied.WithLabelValues(opType).Inc()
		c.metrics.CoreOpDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	return result, nil
}

func (c *Processor) reject(opType, reason string) {
	if c.metrics != nil {
		c.metrics.CoreOpsRejected.WithLabelValues(opType, reason).Inc()
	}
}

func (c *Processor) dispatch(op event.Operation) (*OpResult, error) {
	switch o := op.(type) {
	case *event.RequestDeposit:
		queued, err := c.engine.RequestDeposit(o.ShareClass, o.Asset, o.Investor, o.Amount)
		return &OpResult{Queued: queued}, err

	case *event.RequestRedeem:
		queued, err := c.engine.RequestRedeem(o.ShareClass, o.Asset, o.Investor, o.Amount)
		return &OpResult{Queued: queued}, err

	case *event.CancelDeposit:
		cancelled, queued, err := c.engine.CancelDepositRequest(o.ShareClass, o.Asset, o.Investor)
		return &OpResult{Cancelled: cancelled, Queued: queued}, err

	case *event.CancelRedeem:
		cancelled, queued, err := c.engine.CancelRedeemRequest(o.ShareClass, o.Asset, o.Investor)
		return &OpResult{Cancelled: cancelled, Queued: queued}, err

	case *event.EnableForceCancel:
		var err error
		if o.Redeem {
			err = c.engine.EnableRedeemForceCancel(o.Caller, o.ShareClass, o.Asset, o.Investor)
		} else {
			err = c.engine.EnableDepositForceCancel(o.Caller, o.ShareClass, o.Asset, o.Investor)
		}
		return &OpResult{}, err

	case *event.ForceCancel:
		var cancelled uint64
		var queued bool
		var err error
		if o.Redeem {
			cancelled, queued, err = c.engine.ForceCancelRedeemRequest(o.Caller, o.ShareClass, o.Asset, o.Investor)
		} else {
			cancelled, queued, err = c.engine.ForceCancelDepositRequest(o.Caller, o.ShareClass, o.Asset, o.Investor)
		}
		return &OpResult{Cancelled: cancelled, Queued: queued}, err

	case *event.ApproveDeposits:
		cost, err := c.engine.ApproveDeposits(o.Caller, o.ShareClass, o.Asset, o.Epoch, o.Amount, o.Price)
		return &OpResult{Cost: cost}, err

	case *event.ApproveRedeems:
		cost, err := c.engine.ApproveRedeems(o.Caller, o.ShareClass, o.Asset, o.Epoch, o.Amount, o.Price)
		return &OpResult{Cost: cost}, err

	case *event.IssueShares:
		cost, err := c.engine.IssueShares(o.Caller, o.ShareClass, o.Asset, o.Epoch, o.Nav, o.Timestamp)
		return &OpResult{Cost: cost}, err

	case *event.RevokeShares:
		cost, err := c.engine.RevokeShares(o.Caller, o.ShareClass, o.Asset, o.Epoch, o.Nav, o.Timestamp)
		return &OpResult{Cost: cost}, err

	case *event.ClaimDeposit:
		res, err := c.engine.ClaimDeposit(o.ShareClass, o.Asset, o.Investor)
		if err != nil {
			return nil, err
		}
		return &OpResult{Claim: &res}, nil

	case *event.ClaimRedeem:
		res, err := c.engine.ClaimRedeem(o.ShareClass, o.Asset, o.Investor)
		if err != nil {
			return nil, err
		}
		return &OpResult{Claim: &res}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOperation, op)
	}
}

// computeStateDigest builds canonical bytes over the balances touched by the
// operation's journals, sorted by account path.
func (c *Processor) computeStateDigest(batches []*ledger.Batch) []byte {
	affected := make(map[ledger.AccountKey]bool)
	for _, b := range batches {
		for _, j := range b.Journals {
			affected[j.DebitAccount] = true
			affected[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affected))
	for key := range affected {
		accounts = append(accounts, key)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	tracker := c.acct.Tracker()
	digest := make([]byte, 0, len(accounts)*64)
	for _, key := range accounts {
		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, tracker.GetBalance(key))
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// GetSequence returns the next sequence to be assigned.
func (c *Processor) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current hash chain tip.
func (c *Processor) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}
