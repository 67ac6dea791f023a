package epoch_test

import (
	"FundLedger/internal/epoch"
	"testing"
)

func TestCurrent_StartsAtInitial(t *testing.T) {
	s := epoch.NewSequencer()
	if got := s.Current("SC-1", "USDC", epoch.TrackDepositApprove); got != epoch.InitialEpoch {
		t.Errorf("got %d, want %d", got, epoch.InitialEpoch)
	}
}

func TestAdvance_ByExactlyOne(t *testing.T) {
	s := epoch.NewSequencer()
	got := s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)
	if got != 2 {
		t.Errorf("after one advance: got %d, want 2", got)
	}
	if cur := s.Current("SC-1", "USDC", epoch.TrackDepositApprove); cur != 2 {
		t.Errorf("current: got %d, want 2", cur)
	}
}

func TestTracks_Independent(t *testing.T) {
	s := epoch.NewSequencer()
	s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)
	s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)

	if got := s.Current("SC-1", "USDC", epoch.TrackDepositIssue); got != 1 {
		t.Errorf("issue track moved with approve track: got %d, want 1", got)
	}
	if got := s.Current("SC-1", "USDC", epoch.TrackRedeemApprove); got != 1 {
		t.Errorf("redeem track moved with deposit track: got %d, want 1", got)
	}
}

func TestPairs_Independent(t *testing.T) {
	s := epoch.NewSequencer()
	s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)

	if got := s.Current("SC-1", "WETH", epoch.TrackDepositApprove); got != 1 {
		t.Errorf("counter shared across assets: got %d, want 1", got)
	}
	if got := s.Current("SC-2", "USDC", epoch.TrackDepositApprove); got != 1 {
		t.Errorf("counter shared across share classes: got %d, want 1", got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := epoch.NewSequencer()
	s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)
	s.Advance("SC-1", "USDC", epoch.TrackDepositApprove)
	s.Advance("SC-1", "USDC", epoch.TrackDepositIssue)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot entries: got %d, want 2", len(snap))
	}

	restored := epoch.NewSequencer()
	restored.Restore("SC-1", "USDC", epoch.TrackDepositApprove, 3)
	restored.Restore("SC-1", "USDC", epoch.TrackDepositIssue, 2)

	if got := restored.Current("SC-1", "USDC", epoch.TrackDepositApprove); got != 3 {
		t.Errorf("restored approve: got %d, want 3", got)
	}
	if got := restored.Current("SC-1", "USDC", epoch.TrackDepositIssue); got != 2 {
		t.Errorf("restored issue: got %d, want 2", got)
	}
}
