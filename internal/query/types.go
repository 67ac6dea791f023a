package query

// BalanceEntry is one projected account balance.
type BalanceEntry struct {
	AccountPath  string `json:"account_path"`
	Unit         string `json:"unit"`
	Balance      int64  `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// ShareClassSummary aggregates the projected state of one share class / asset
// pair. Equity is assets minus valuation loss plus valuation gain; outstanding
// shares are the negated supply liability.
type ShareClassSummary struct {
	ShareClass        string `json:"share_class"`
	Asset             string `json:"asset"`
	PoolAssets        int64  `json:"pool_assets"`
	Equity            int64  `json:"equity"`
	OutstandingShares int64  `json:"outstanding_shares"`
	EscrowedShares    int64  `json:"escrowed_shares"`
	AsOfSequence      int64  `json:"as_of_sequence"`
}

// EpochActivityEntry is one operator epoch action: an approval that opened an
// epoch, or the issuance/revocation that settled it.
type EpochActivityEntry struct {
	Sequence     int64  `json:"sequence"`
	ShareClass   string `json:"share_class"`
	Asset        string `json:"asset"`
	OpType       string `json:"op_type"`
	EpochIndex   int64  `json:"epoch_index"`
	Amount       string `json:"amount"`
	Price        string `json:"price"`
	Nav          string `json:"nav"`
	Caller       string `json:"caller"`
	Timestamp    int64  `json:"timestamp"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// ClaimActivityEntry is one investor claim or cancellation outcome.
type ClaimActivityEntry struct {
	Sequence      int64  `json:"sequence"`
	ShareClass    string `json:"share_class"`
	Asset         string `json:"asset"`
	Investor      string `json:"investor"`
	OpType        string `json:"op_type"`
	Payout        string `json:"payout"`
	Consumed      string `json:"consumed"`
	Cancelled     string `json:"cancelled"`
	CanClaimAgain bool   `json:"can_claim_again"`
	Timestamp     int64  `json:"timestamp"`
	AsOfSequence  int64  `json:"as_of_sequence"`
}

// JournalEntry is one double-entry transfer from the log.
type JournalEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Unit          string `json:"unit"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of verifying the log and projections.
type IntegrityReport struct {
	IsHealthy       bool             `json:"is_healthy"`
	HashChainBreaks []int64          `json:"hash_chain_breaks,omitempty"`
	UnbalancedUnits []UnbalancedUnit `json:"unbalanced_units,omitempty"`
}

// UnbalancedUnit flags a unit whose balances do not sum to zero.
type UnbalancedUnit struct {
	Unit      string `json:"unit"`
	Imbalance int64  `json:"imbalance"`
}
