package state

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/position"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Relative change in the band center below which a save is skipped.
// 0.01% keeps write volume down on a fast tick loop without letting the
// persisted center drift meaningfully from the live one.
const centerWriteEpsilon = 0.0001

// Maximum age of a persisted position snapshot before a restart discards
// it instead of resuming the cycle.
const defaultMaxSnapshotAge = 7 * 24 * time.Hour

// CenterRecord is the persisted EMA center.
type CenterRecord struct {
	Center    float64   `json:"center"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CycleFlows are the net asset deltas of the open cycle's fills. They
// travel with the position snapshot so a restart can still realize the
// true cycle PnL when the position eventually closes.
type CycleFlows struct {
	BaseDelta  float64 `json:"base_delta"`
	QuoteDelta float64 `json:"quote_delta"`
}

// positionFile wraps the snapshot with a saved-at stamp for staleness checks.
type positionFile struct {
	SavedAt  time.Time         `json:"saved_at"`
	Snapshot position.Snapshot `json:"position"`
	Flows    CycleFlows        `json:"cycle_flows"`
}

// cooldownFile persists the cooldown clock across restarts.
type cooldownFile struct {
	LastFillAt time.Time `json:"last_fill_at"`
}

// Store persists the warm state of one pair: the EMA band center, the
// open position snapshot and the cooldown clock. All writes go through a
// temp file and an atomic rename so a crash mid-write never corrupts the
// previous good state.
type Store struct {
	dir            string
	maxSnapshotAge time.Duration

	lastSavedCenter float64
	hasSavedCenter  bool
}

// NewStore roots the persisted files for a pair under dataDir. Files are
// namespaced by the pair so several bots can share one data directory.
func NewStore(dataDir string, pair types.Pair) (*Store, error) {
	dir := filepath.Join(dataDir, pairSlug(pair))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &Store{dir: dir, maxSnapshotAge: defaultMaxSnapshotAge}, nil
}

func pairSlug(pair types.Pair) string {
	return strings.ToLower(pair.BaseSymbol + "-" + pair.QuoteSymbol)
}

func (s *Store) centerPath() string   { return filepath.Join(s.dir, "band_center.json") }
func (s *Store) positionPath() string { return filepath.Join(s.dir, "position.json") }
func (s *Store) cooldownPath() string { return filepath.Join(s.dir, "cooldown.json") }

// SaveCenter writes the band center if it moved more than the write
// epsilon since the last save. force bypasses the epsilon gate; shutdown
// uses it so the final center always lands on disk.
func (s *Store) SaveCenter(center float64, updatedAt time.Time, force bool) error {
	if !force && s.hasSavedCenter && s.lastSavedCenter != 0 {
		rel := math.Abs(center-s.lastSavedCenter) / math.Abs(s.lastSavedCenter)
		if rel < centerWriteEpsilon {
			return nil
		}
	}
	rec := CenterRecord{Center: center, UpdatedAt: updatedAt}
	if err := writeJSONAtomic(s.centerPath(), rec); err != nil {
		return err
	}
	s.lastSavedCenter = center
	s.hasSavedCenter = true
	return nil
}

// LoadCenter returns the persisted center, or ok=false when none exists.
// A corrupt or non-positive record is treated as absent; the band will
// re-seed from the first live price.
func (s *Store) LoadCenter() (CenterRecord, bool) {
	var rec CenterRecord
	if !readJSON(s.centerPath(), &rec) || rec.Center <= 0 {
		return CenterRecord{}, false
	}
	s.lastSavedCenter = rec.Center
	s.hasSavedCenter = true
	return rec, true
}

// SavePosition persists the open position snapshot together with the
// cycle's asset flows. A NONE snapshot removes the file so a restart
// does not resurrect a closed cycle.
func (s *Store) SavePosition(snap position.Snapshot, flows CycleFlows, now time.Time) error {
	if snap.Mode == "" || snap.Mode == "NONE" {
		if err := os.Remove(s.positionPath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear position snapshot: %w", err)
		}
		return nil
	}
	return writeJSONAtomic(s.positionPath(), positionFile{SavedAt: now, Snapshot: snap, Flows: flows})
}

// LoadPosition returns the persisted snapshot and cycle flows when they
// exist and are fresh enough to resume. Stale snapshots are discarded:
// the market has moved too far for the saved extremes to mean anything.
func (s *Store) LoadPosition(now time.Time) (position.Snapshot, CycleFlows, bool) {
	var pf positionFile
	if !readJSON(s.positionPath(), &pf) {
		return position.Snapshot{}, CycleFlows{}, false
	}
	if !pf.SavedAt.IsZero() && now.Sub(pf.SavedAt) > s.maxSnapshotAge {
		return position.Snapshot{}, CycleFlows{}, false
	}
	return pf.Snapshot, pf.Flows, true
}

// SaveLastFill persists the cooldown clock.
func (s *Store) SaveLastFill(t time.Time) error {
	return writeJSONAtomic(s.cooldownPath(), cooldownFile{LastFillAt: t})
}

// LoadLastFill returns the persisted cooldown clock, zero when absent.
func (s *Store) LoadLastFill() (time.Time, bool) {
	var cf cooldownFile
	if !readJSON(s.cooldownPath(), &cf) || cf.LastFillAt.IsZero() {
		return time.Time{}, false
	}
	return cf.LastFillAt, true
}

// writeJSONAtomic writes v to path via a sibling temp file and rename.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// readJSON loads path into v, reporting false on absence or corruption.
func readJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
