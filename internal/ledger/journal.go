package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType is the purpose of a journal entry.
type JournalType int32

const (
	JournalTypeDepositApproval JournalType = iota
	JournalTypeShareIssuance
	JournalTypeRedeemApproval
	JournalTypeShareRevocation
	JournalTypeRedeemPayout
	JournalTypeValuationGain
	JournalTypeValuationLoss
	JournalTypeAdjustment
)

func (t JournalType) String() string {
	switch t {
	case JournalTypeDepositApproval:
		return "deposit_approval"
	case JournalTypeShareIssuance:
		return "share_issuance"
	case JournalTypeRedeemApproval:
		return "redeem_approval"
	case JournalTypeShareRevocation:
		return "share_revocation"
	case JournalTypeRedeemPayout:
		return "redeem_payout"
	case JournalTypeValuationGain:
		return "valuation_gain"
	case JournalTypeValuationLoss:
		return "valuation_loss"
	default:
		return "adjustment"
	}
}

// Journal is a single double-entry transfer: a positive amount moves from the
// credit account to the debit account within one unit.
type Journal struct {
	JournalID     uuid.UUID
	BatchID       uuid.UUID
	EventRef      string
	Sequence      int64
	DebitAccount  AccountKey
	CreditAccount AccountKey
	Unit          Unit
	Amount        int64
	JournalType   JournalType
	Timestamp     int64
}

// Batch is the set of journals produced by one settlement event.
type Batch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed. Each journal is balanced by
// construction (one positive amount, one debit, one credit, same unit), so a
// valid batch keeps every unit zero-sum.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}
		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
		if j.DebitAccount.Unit != j.Unit || j.CreditAccount.Unit != j.Unit {
			return fmt.Errorf("journal %s crosses units: %s/%s vs %s",
				j.JournalID, j.DebitAccount.Unit, j.CreditAccount.Unit, j.Unit)
		}
	}

	return nil
}
