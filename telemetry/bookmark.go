package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstPickup       BookmarkType = "first_pickup"
	BookmarkFirstDropoff      BookmarkType = "first_dropoff"
	BookmarkScoreBreakthrough BookmarkType = "score_breakthrough"
	BookmarkPopulationCrash   BookmarkType = "population_crash"
	BookmarkStagnation        BookmarkType = "stagnation"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType
	Generation  int
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable generations during training.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	seenPickup     bool
	seenDropoff    bool
	recentMeanPeak float64 // highest mean score in recent history
	flatCount      int     // consecutive generations without a new best
	lastBest       float64
	stagnantFired  bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stagnation detection
	}
	return &BookmarkDetector{
		history:     make([]GenerationStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest generation and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats GenerationStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirsts(stats); b != nil {
		bookmarks = append(bookmarks, b...)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Score breakthrough: best > 2x rolling average of bests
		if b := bd.checkScoreBreakthrough(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population crash: mean dropped >30% from recent peak
		if b := bd.checkPopulationCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Stagnation: no new best for a full history window
		if b := bd.checkStagnation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Update history
	bd.addToHistory(stats)

	if stats.MeanScore > bd.recentMeanPeak {
		bd.recentMeanPeak = stats.MeanScore
	}
	bd.lastBest = stats.BestSoFar

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats GenerationStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirsts(stats GenerationStats) []Bookmark {
	var out []Bookmark
	if !bd.seenPickup && stats.BestPickups > 0 {
		bd.seenPickup = true
		out = append(out, Bookmark{
			Type:        BookmarkFirstPickup,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("best colony picked up %d items", stats.BestPickups),
		})
	}
	if !bd.seenDropoff && stats.BestDropoffs > 0 {
		bd.seenDropoff = true
		out = append(out, Bookmark{
			Type:        BookmarkFirstDropoff,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("best colony brought %d items home", stats.BestDropoffs),
		})
	}
	return out
}

func (bd *BookmarkDetector) checkScoreBreakthrough(stats GenerationStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.BestScore
	}
	avg := total / float64(len(history))

	if avg > 0 && stats.BestScore > 2*avg {
		return &Bookmark{
			Type:        BookmarkScoreBreakthrough,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("best score %.2f is %.1fx the rolling average %.2f", stats.BestScore, stats.BestScore/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPopulationCrash(stats GenerationStats) *Bookmark {
	if bd.recentMeanPeak <= 0 {
		return nil
	}

	if stats.MeanScore < 0.7*bd.recentMeanPeak {
		peak := bd.recentMeanPeak
		// Re-arm from the crashed level so a long slump fires once
		bd.recentMeanPeak = stats.MeanScore
		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("mean score fell from %.2f to %.2f", peak, stats.MeanScore),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStagnation(stats GenerationStats) *Bookmark {
	if stats.BestSoFar > bd.lastBest {
		bd.flatCount = 0
		bd.stagnantFired = false
		return nil
	}

	bd.flatCount++
	if bd.flatCount >= bd.historySize && !bd.stagnantFired {
		bd.stagnantFired = true
		return &Bookmark{
			Type:        BookmarkStagnation,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("no improvement over %.2f for %d generations", stats.BestSoFar, bd.flatCount),
		}
	}
	return nil
}
