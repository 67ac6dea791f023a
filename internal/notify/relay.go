package notify

import (
	"encoding/json"
	"errors"
	"fmt"

	"FundLedger/internal/observability"
	"FundLedger/internal/orders"
	"FundLedger/internal/registry"
	"FundLedger/internal/settle"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotEnoughGas is returned when the supplied budget does not cover the
// relay cost. The parked notice is retained so the caller can retry with a
// larger budget.
var ErrNotEnoughGas = errors.New("not enough gas for notification relay")

// DefaultRelayCost is the budget consumed per published notice.
const DefaultRelayCost uint64 = 150_000

// NATS subjects for outbound notices, consumed by remote spokes.
const (
	SubjectFulfillDeposit = "fund.fulfillment.deposit"
	SubjectFulfillRedeem  = "fund.fulfillment.redeem"
	SubjectCancelDeposit  = "fund.cancellation.deposit"
	SubjectCancelRedeem   = "fund.cancellation.redeem"
)

// Publisher is the outbound message sink. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// FulfillmentMessage is the wire form of a claim notice.
type FulfillmentMessage struct {
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Payout     uint64                `json:"payout"`
	Consumed   uint64                `json:"consumed"`
}

// CancellationMessage is the wire form of a cancellation notice.
type CancellationMessage struct {
	ShareClass registry.ShareClassID `json:"share_class"`
	Asset      registry.AssetID      `json:"asset"`
	Investor   uuid.UUID             `json:"investor"`
	Amount     uint64                `json:"amount"`
}

// Relay drains parked notices from the settlement engine and publishes them
// to remote consumers. Every relay call carries a prepaid budget; the relay
// charges its cost and returns the surplus. A notice is acknowledged (and
// dropped from the engine) only after a successful publish.
type Relay struct {
	engine  *settle.Engine
	pub     Publisher
	cost    uint64
	metrics *observability.Metrics
	log     zerolog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithRelayCost overrides the per-notice relay cost.
func WithRelayCost(c uint64) Option {
	return func(r *Relay) { r.cost = c }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func NewRelay(engine *settle.Engine, pub Publisher, log zerolog.Logger, opts ...Option) *Relay {
	r := &Relay{
		engine: engine,
		pub:    pub,
		cost:   DefaultRelayCost,
		log:    log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NotifyDeposit publishes the investor's parked deposit fulfillment.
func (r *Relay) NotifyDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error) {
	return r.notifyClaim(scID, assetID, investor, orders.DirectionDeposit, budget)
}

// NotifyRedeem publishes the investor's parked redeem fulfillment.
func (r *Relay) NotifyRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error) {
	return r.notifyClaim(scID, assetID, investor, orders.DirectionRedeem, budget)
}

// NotifyCancelDeposit publishes the investor's parked deposit cancellation.
func (r *Relay) NotifyCancelDeposit(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error) {
	return r.notifyCancel(scID, assetID, investor, orders.DirectionDeposit, budget)
}

// NotifyCancelRedeem publishes the investor's parked redeem cancellation.
func (r *Relay) NotifyCancelRedeem(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, budget uint64) (uint64, error) {
	return r.notifyCancel(scID, assetID, investor, orders.DirectionRedeem, budget)
}

func (r *Relay) notifyClaim(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction, budget uint64) (uint64, error) {
	notice, err := r.engine.ClaimNoticeFor(scID, assetID, investor, dir)
	if err != nil {
		return budget, err
	}

	surplus, err := r.charge(budget)
	if err != nil {
		r.deferred("fulfillment")
		return budget, err
	}

	msg := FulfillmentMessage{
		ShareClass: scID,
		Asset:      assetID,
		Investor:   investor,
		Payout:     notice.Payout,
		Consumed:   notice.Consumed,
	}
	subject := SubjectFulfillDeposit
	if dir == orders.DirectionRedeem {
		subject = SubjectFulfillRedeem
	}

	if err := r.publish(subject, msg); err != nil {
		return budget, err
	}

	r.engine.AckClaimNotice(scID, assetID, investor, dir)
	r.published("fulfillment")

	r.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Str("investor", investor.String()).
		Str("subject", subject).
		Uint64("payout", notice.Payout).
		Msg("fulfillment notice relayed")

	return surplus, nil
}

func (r *Relay) notifyCancel(scID registry.ShareClassID, assetID registry.AssetID, investor uuid.UUID, dir orders.Direction, budget uint64) (uint64, error) {
	notice, err := r.engine.CancelNoticeFor(scID, assetID, investor, dir)
	if err != nil {
		return budget, err
	}

	surplus, err := r.charge(budget)
	if err != nil {
		r.deferred("cancellation")
		return budget, err
	}

	msg := CancellationMessage{
		ShareClass: scID,
		Asset:      assetID,
		Investor:   investor,
		Amount:     notice.Amount,
	}
	subject := SubjectCancelDeposit
	if dir == orders.DirectionRedeem {
		subject = SubjectCancelRedeem
	}

	if err := r.publish(subject, msg); err != nil {
		return budget, err
	}

	r.engine.AckCancelNotice(scID, assetID, investor, dir)
	r.published("cancellation")

	r.log.Info().
		Str("share_class", string(scID)).
		Str("asset", string(assetID)).
		Str("investor", investor.String()).
		Str("subject", subject).
		Uint64("amount", notice.Amount).
		Msg("cancellation notice relayed")

	return surplus, nil
}

func (r *Relay) charge(budget uint64) (uint64, error) {
	if budget < r.cost {
		return 0, fmt.Errorf("%w: budget %d, cost %d", ErrNotEnoughGas, budget, r.cost)
	}
	return budget - r.cost, nil
}

func (r *Relay) publish(subject string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	if err := r.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (r *Relay) published(kind string) {
	if r.metrics != nil {
		r.metrics.NoticesPublished.WithLabelValues(kind).Inc()
	}
}

func (r *Relay) deferred(kind string) {
	if r.metrics != nil {
		r.metrics.NoticesDeferred.WithLabelValues(kind).Inc()
	}
}
