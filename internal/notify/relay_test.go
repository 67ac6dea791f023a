package notify_test

import (
	"encoding/json"
	"errors"
	"testing"

	"FundLedger/internal/notify"
	"FundLedger/internal/registry"
	"FundLedger/internal/settle"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	scID    = registry.ShareClassID("SC-1")
	assetID = registry.AssetID("USDC")

	hub     = "hub"
	manager = "manager"

	priceOne       = uint64(1_000_000_000_000_000_000)
	navOnePointOne = uint64(1_100_000_000_000_000_000)
	tenUSDC        = uint64(10_000_000)
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data})
	return nil
}

func newTestEngine(t *testing.T) *settle.Engine {
	t.Helper()
	reg, err := registry.New(hub,
		[]registry.Asset{{ID: assetID, Decimals: 6}},
		[]registry.ShareClass{{
			ID:           scID,
			PoolDecimals: 18,
			Assets:       []registry.AssetID{assetID},
			Managers:     []string{manager},
		}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return settle.NewEngine(reg, settle.NopAccounting{}, zerolog.Nop())
}

// settleDepositFor walks one investor through request, approve, issue and
// claim, leaving a parked fulfillment notice.
func settleDepositFor(t *testing.T, e *settle.Engine, inv uuid.UUID) settle.ClaimResult {
	t.Helper()
	if _, err := e.RequestDeposit(scID, assetID, inv, tenUSDC); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := e.ApproveDeposits(manager, scID, assetID, 1, tenUSDC, priceOne); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := e.IssueShares(manager, scID, assetID, 1, navOnePointOne, 1_700_000_000_000_000); err != nil {
		t.Fatalf("issue: %v", err)
	}
	res, err := e.ClaimDeposit(scID, assetID, inv)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return res
}

func TestNotifyDepositPublishesAndAcks(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	res := settleDepositFor(t, e, inv)

	pub := &fakePublisher{}
	relay := notify.NewRelay(e, pub, zerolog.Nop())

	surplus, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost+25)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if surplus != 25 {
		t.Errorf("surplus = %d, want 25", surplus)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	if got := pub.msgs[0].subject; got != notify.SubjectFulfillDeposit {
		t.Errorf("subject = %s, want %s", got, notify.SubjectFulfillDeposit)
	}

	var msg notify.FulfillmentMessage
	if err := json.Unmarshal(pub.msgs[0].data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Payout != res.Payout || msg.Consumed != res.TotalConsumed {
		t.Errorf("message payout/consumed = %d/%d, want %d/%d",
			msg.Payout, msg.Consumed, res.Payout, res.TotalConsumed)
	}

	// Notice acknowledged, second relay has nothing to send.
	if _, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost); !errors.Is(err, settle.ErrNoOrderFound) {
		t.Errorf("second notify err = %v, want ErrNoOrderFound", err)
	}
}

func TestNotifyDepositInsufficientBudget(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	settleDepositFor(t, e, inv)

	pub := &fakePublisher{}
	relay := notify.NewRelay(e, pub, zerolog.Nop())

	returned, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost-1)
	if !errors.Is(err, notify.ErrNotEnoughGas) {
		t.Fatalf("err = %v, want ErrNotEnoughGas", err)
	}
	if returned != notify.DefaultRelayCost-1 {
		t.Errorf("returned budget = %d, want %d", returned, notify.DefaultRelayCost-1)
	}
	if len(pub.msgs) != 0 {
		t.Error("message published despite insufficient budget")
	}

	// Notice retained; a sufficient retry succeeds.
	if _, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestNotifyRetainsNoticeOnPublishFailure(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()
	settleDepositFor(t, e, inv)

	pub := &fakePublisher{err: errors.New("nats down")}
	relay := notify.NewRelay(e, pub, zerolog.Nop())

	if _, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost); err == nil {
		t.Fatal("notify succeeded despite publish failure")
	}

	pub.err = nil
	if _, err := relay.NotifyDeposit(scID, assetID, inv, notify.DefaultRelayCost); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}

func TestNotifyCancelDeposit(t *testing.T) {
	e := newTestEngine(t)
	inv := uuid.New()

	if _, err := e.RequestDeposit(scID, assetID, inv, tenUSDC); err != nil {
		t.Fatalf("request: %v", err)
	}
	cancelled, _, err := e.CancelDepositRequest(scID, assetID, inv)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pub := &fakePublisher{}
	relay := notify.NewRelay(e, pub, zerolog.Nop(), notify.WithRelayCost(100))

	surplus, err := relay.NotifyCancelDeposit(scID, assetID, inv, 150)
	if err != nil {
		t.Fatalf("notify cancel: %v", err)
	}
	if surplus != 50 {
		t.Errorf("surplus = %d, want 50", surplus)
	}

	var msg notify.CancellationMessage
	if err := json.Unmarshal(pub.msgs[0].data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Amount != cancelled {
		t.Errorf("message amount = %d, want %d", msg.Amount, cancelled)
	}
	if got := pub.msgs[0].subject; got != notify.SubjectCancelDeposit {
		t.Errorf("subject = %s, want %s", got, notify.SubjectCancelDeposit)
	}

	if _, err := relay.NotifyCancelDeposit(scID, assetID, inv, 100); !errors.Is(err, settle.ErrNoUnclaimedCancellation) {
		t.Errorf("second notify err = %v, want ErrNoUnclaimedCancellation", err)
	}
}

func TestNotifyCancelWithoutNotice(t *testing.T) {
	e := newTestEngine(t)
	relay := notify.NewRelay(e, &fakePublisher{}, zerolog.Nop())

	_, err := relay.NotifyCancelRedeem(scID, assetID, uuid.New(), notify.DefaultRelayCost)
	if !errors.Is(err, settle.ErrNoUnclaimedCancellation) {
		t.Errorf("err = %v, want ErrNoUnclaimedCancellation", err)
	}
}
