package telemetry

import (
	"encoding/json"
	"sort"

	"github.com/pthm-cable/anthill/neural"
)

// HallEntry is one of the best networks seen during a run.
type HallEntry struct {
	Generation int           `json:"generation"`
	Score      float64       `json:"score"`
	Pickups    int           `json:"pickups"`
	Dropoffs   int           `json:"dropoffs"`
	Network    neural.Record `json:"network"`
}

// HallOfFame keeps the top networks of a run, sorted by descending score.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider inserts an entry if it beats the weakest one or the hall has
// room. Returns true if the entry was added.
func (h *HallOfFame) Consider(entry HallEntry) bool {
	idx := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].Score < entry.Score
	})

	if len(h.entries) >= h.maxSize && idx >= h.maxSize {
		return false
	}

	h.entries = append(h.entries, HallEntry{})
	copy(h.entries[idx+1:], h.entries[idx:])
	h.entries[idx] = entry

	if len(h.entries) > h.maxSize {
		h.entries = h.entries[:h.maxSize]
	}
	return true
}

// Entries returns the hall in descending score order.
func (h *HallOfFame) Entries() []HallEntry { return h.entries }

// Size returns the number of entries.
func (h *HallOfFame) Size() int { return len(h.entries) }

// TopScore returns the best score, or 0 for an empty hall.
func (h *HallOfFame) TopScore() float64 {
	if len(h.entries) == 0 {
		return 0
	}
	return h.entries[0].Score
}

// MarshalJSON serializes the hall.
func (h *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		MaxSize int         `json:"max_size"`
		Entries []HallEntry `json:"entries"`
	}{h.maxSize, h.entries}, "", "  ")
}
