package telemetry

import (
	"testing"
)

func countType(bms []Bookmark, typ BookmarkType) int {
	n := 0
	for _, bm := range bms {
		if bm.Type == typ {
			n++
		}
	}
	return n
}

func TestBookmarkDetector_ScoreBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Add some history with a flat best score
	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: i, BestScore: 10, MeanScore: 5, BestSoFar: 10})
	}

	// Now add a generation scoring >2x the average
	bookmarks := bd.Check(GenerationStats{Generation: 5, BestScore: 25, MeanScore: 5, BestSoFar: 25})
	if countType(bookmarks, BookmarkScoreBreakthrough) != 1 {
		t.Errorf("expected score_breakthrough bookmark, got %v", bookmarks)
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(GenerationStats{Generation: i, BestScore: 12, MeanScore: 10, BestSoFar: 12})
	}

	// Mean drops by 40%
	bookmarks := bd.Check(GenerationStats{Generation: 5, BestScore: 12, MeanScore: 6, BestSoFar: 12})
	if countType(bookmarks, BookmarkPopulationCrash) != 1 {
		t.Errorf("expected population_crash bookmark, got %v", bookmarks)
	}

	// Staying at the crashed level does not fire again
	bookmarks = bd.Check(GenerationStats{Generation: 6, BestScore: 12, MeanScore: 6, BestSoFar: 12})
	if countType(bookmarks, BookmarkPopulationCrash) != 0 {
		t.Errorf("crash fired twice: %v", bookmarks)
	}
}

func TestBookmarkDetector_Stagnation(t *testing.T) {
	bd := NewBookmarkDetector(5)

	fired := 0
	for i := 0; i < 12; i++ {
		bms := bd.Check(GenerationStats{Generation: i, BestScore: 3, MeanScore: 2, BestSoFar: 3})
		fired += countType(bms, BookmarkStagnation)
	}
	if fired != 1 {
		t.Errorf("stagnation fired %d times, want 1", fired)
	}

	// A new best re-arms the detector
	bd.Check(GenerationStats{Generation: 12, BestScore: 4, MeanScore: 2, BestSoFar: 4})
	fired = 0
	for i := 13; i < 20; i++ {
		bms := bd.Check(GenerationStats{Generation: i, BestScore: 4, MeanScore: 2, BestSoFar: 4})
		fired += countType(bms, BookmarkStagnation)
	}
	if fired != 1 {
		t.Errorf("stagnation after new best fired %d times, want 1", fired)
	}
}

func TestBookmarkDetector_Firsts(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if bms := bd.Check(GenerationStats{Generation: 0}); len(bms) != 0 {
		t.Errorf("empty generation produced %v", bms)
	}

	bms := bd.Check(GenerationStats{Generation: 1, BestPickups: 3})
	if countType(bms, BookmarkFirstPickup) != 1 || countType(bms, BookmarkFirstDropoff) != 0 {
		t.Errorf("generation 1: %v", bms)
	}

	bms = bd.Check(GenerationStats{Generation: 2, BestPickups: 4, BestDropoffs: 1})
	if countType(bms, BookmarkFirstPickup) != 0 || countType(bms, BookmarkFirstDropoff) != 1 {
		t.Errorf("generation 2: %v", bms)
	}
}

func TestBookmarkDetector_NoFalsePositives(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Slowly improving training should only produce the firsts
	for i := 0; i < 8; i++ {
		score := 10 + float64(i)
		bms := bd.Check(GenerationStats{
			Generation:   i,
			BestScore:    score,
			MeanScore:    score / 2,
			BestSoFar:    score,
			BestPickups:  1,
			BestDropoffs: 1,
		})
		for _, bm := range bms {
			if bm.Type != BookmarkFirstPickup && bm.Type != BookmarkFirstDropoff {
				t.Errorf("generation %d: unexpected %s", i, bm.Type)
			}
		}
	}
}
