package epoch

import (
	"fmt"

	"FundLedger/internal/registry"
)

// Track is one of the four independent epoch tracks per (share class, asset).
type Track uint8

const (
	TrackDepositApprove Track = iota
	TrackDepositIssue
	TrackRedeemApprove
	TrackRedeemRevoke
)

func (t Track) String() string {
	switch t {
	case TrackDepositApprove:
		return "deposit_approve"
	case TrackDepositIssue:
		return "deposit_issue"
	case TrackRedeemApprove:
		return "redeem_approve"
	case TrackRedeemRevoke:
		return "redeem_revoke"
	default:
		return "unknown"
	}
}

// ParseTrack is the inverse of Track.String, used when restoring counter
// snapshots.
func ParseTrack(s string) (Track, error) {
	switch s {
	case "deposit_approve":
		return TrackDepositApprove, nil
	case "deposit_issue":
		return TrackDepositIssue, nil
	case "redeem_approve":
		return TrackRedeemApprove, nil
	case "redeem_revoke":
		return TrackRedeemRevoke, nil
	default:
		return 0, fmt.Errorf("unknown epoch track %q", s)
	}
}

// InitialEpoch is the value every counter starts at before any approval or
// settlement has occurred for its track.
const InitialEpoch uint32 = 1

type trackKey struct {
	shareClass registry.ShareClassID
	asset      registry.AssetID
	track      Track
}

// Sequencer keeps the per-(share class, asset) counters for all four tracks.
// Not thread-safe — only accessed from the single-threaded engine.
type Sequencer struct {
	counters map[trackKey]uint32
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		counters: make(map[trackKey]uint32),
	}
}

// Current returns the current epoch for a track. Counters are lazily
// initialized at InitialEpoch.
func (s *Sequencer) Current(scID registry.ShareClassID, assetID registry.AssetID, track Track) uint32 {
	k := trackKey{scID, assetID, track}
	if c, ok := s.counters[k]; ok {
		return c
	}
	return InitialEpoch
}

// Advance moves a track forward by exactly one and returns the new current
// epoch. This is the only way a counter changes; it never decreases.
func (s *Sequencer) Advance(scID registry.ShareClassID, assetID registry.AssetID, track Track) uint32 {
	k := trackKey{scID, assetID, track}
	next := s.Current(scID, assetID, track) + 1
	s.counters[k] = next
	return next
}

// Snapshot returns all non-initial counters keyed by
// "shareClass:asset:track" for persistence.
func (s *Sequencer) Snapshot() map[string]uint32 {
	out := make(map[string]uint32, len(s.counters))
	for k, v := range s.counters {
		out[fmt.Sprintf("%s:%s:%s", k.shareClass, k.asset, k.track)] = v
	}
	return out
}

// Restore re-seeds a single counter from a snapshot entry.
func (s *Sequencer) Restore(scID registry.ShareClassID, assetID registry.AssetID, track Track, value uint32) {
	if value < InitialEpoch {
		value = InitialEpoch
	}
	s.counters[trackKey{scID, assetID, track}] = value
}
