package pnl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CheckpointGroup freezes the open lot queue of one instrument group, along
// with everything needed to rebuild the holding exactly: the repaired
// metadata and the data-quality notes accumulated so far.
type CheckpointGroup struct {
	Symbol      string    `json:"symbol"`
	Asset       AssetType `json:"asset"`
	ContractKey string    `json:"contract,omitempty"`
	Multiplier  int64     `json:"multiplier"`
	Realized    Money     `json:"realized"`
	Lots        []Lot     `json:"lots"`
	Notes       []string  `json:"notes,omitempty"`
}

// Checkpoint is the full replay state as of the end of day On. Resuming a
// rebuild from a checkpoint and replaying only later transactions yields the
// same holdings, realized PnL and audit events as a full replay.
type Checkpoint struct {
	On               Date                       `json:"on"`
	Groups           map[string]CheckpointGroup `json:"groups"`
	LifetimeRealized Money                      `json:"lifetimeRealized"`
	Wins             int                        `json:"wins"`
	Losses           int                        `json:"losses"`
}

// NewCheckpoint freezes a book that was rebuilt through day `on`.
func NewCheckpoint(book *Book, on Date) *Checkpoint {
	cp := &Checkpoint{
		On:               on,
		Groups:           make(map[string]CheckpointGroup, len(book.Holdings)),
		LifetimeRealized: book.LifetimeRealized,
		Wins:             book.Wins,
		Losses:           book.Losses,
	}
	for key, h := range book.Holdings {
		cp.Groups[key] = CheckpointGroup{
			Symbol:      h.Symbol,
			Asset:       h.Asset,
			ContractKey: h.ContractKey,
			Multiplier:  h.Multiplier,
			Realized:    h.Realized,
			Lots:        append([]Lot(nil), h.Lots...),
			Notes:       append([]string(nil), h.Notes...),
		}
	}
	return cp
}

// seedFromCheckpoint restores lot queues and lifetime metrics so that the
// replay can continue from the day after cp.On.
func seedFromCheckpoint(book *Book, groups map[string]*groupState, cp *Checkpoint) {
	book.LifetimeRealized = cp.LifetimeRealized
	book.Wins = cp.Wins
	book.Losses = cp.Losses

	for key, cg := range cp.Groups {
		g := &groupState{holding: &Holding{
			Symbol:      cg.Symbol,
			Asset:       cg.Asset,
			ContractKey: cg.ContractKey,
			Multiplier:  cg.Multiplier,
			Realized:    cg.Realized,
			Notes:       append([]string(nil), cg.Notes...),
		}}
		for _, lot := range cg.Lots {
			if lot.Quantity.IsNegative() {
				g.shorts = append(g.shorts, lot)
			} else {
				g.longs = append(g.longs, lot)
			}
		}
		groups[key] = g
	}
}

// checkpointFile returns the path of the checkpoint for day `on` in dir.
func checkpointFile(dir string, on Date) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint-%s.json", on))
}

// WriteCheckpoint persists cp in dir as checkpoint-YYYY-MM-DD.json.
func WriteCheckpoint(dir string, cp *Checkpoint) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", " ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return os.WriteFile(checkpointFile(dir, cp.On), data, 0644)
}

// ReadCheckpoint loads the checkpoint for day `on`, or (nil, nil) when none
// has been written yet.
func ReadCheckpoint(dir string, on Date) (*Checkpoint, error) {
	data, err := os.ReadFile(checkpointFile(dir, on))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", checkpointFile(dir, on), err)
	}
	return cp, nil
}

// LatestCheckpoint scans dir for the most recent checkpoint dated on or
// before `on`, or (nil, nil) when there is none.
func LatestCheckpoint(dir string, on Date) (*Checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning checkpoint dir: %w", err)
	}
	var best Date
	for _, e := range entries {
		var y, m, d int
		if _, err := fmt.Sscanf(e.Name(), "checkpoint-%d-%d-%d.json", &y, &m, &d); err != nil {
			continue
		}
		day := NewDate(y, time.Month(m), d)
		if day.After(on) {
			continue
		}
		if best.IsZero() || day.After(best) {
			best = day
		}
	}
	if best.IsZero() {
		return nil, nil
	}
	return ReadCheckpoint(dir, best)
}
