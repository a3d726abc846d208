package telemetry

import (
	"log/slog"
	"testing"
	"time"
)

func TestPhaseTimings_RollingAverage(t *testing.T) {
	pt := NewPhaseTimings(60)

	pt.Record(PhaseSensing, 60*time.Microsecond)
	if got := pt.Get(PhaseSensing); got != time.Microsecond {
		t.Fatalf("after one sample avg = %v, want 1µs", got)
	}

	pt.Record(PhaseSensing, 60*time.Microsecond)
	// (59·1µs + 60µs) / 60
	want := (59*time.Microsecond + 60*time.Microsecond) / 60
	if got := pt.Get(PhaseSensing); got != want {
		t.Errorf("after two samples avg = %v, want %v", got, want)
	}

	if pt.Get(PhaseInference) != 0 {
		t.Error("unrecorded phase should stay zero")
	}
}

func TestPhaseTimings_Converges(t *testing.T) {
	pt := NewPhaseTimings(10)
	for i := 0; i < 500; i++ {
		pt.Record(PhaseKinematics, time.Millisecond)
	}
	got := pt.Get(PhaseKinematics)
	if got < 990*time.Microsecond || got > time.Millisecond {
		t.Errorf("avg = %v, want ≈1ms", got)
	}
}

func TestPhaseTimings_TotalAndThroughput(t *testing.T) {
	pt := NewPhaseTimings(1)
	pt.Record(PhaseInference, 600*time.Microsecond)
	pt.Record(PhaseSensing, 400*time.Microsecond)

	if pt.Total() != time.Millisecond {
		t.Errorf("Total = %v, want 1ms", pt.Total())
	}
	if sps := pt.StepsPerSecond(); sps < 999 || sps > 1001 {
		t.Errorf("StepsPerSecond = %v, want 1000", sps)
	}

	csv := pt.ToCSV(3)
	if csv.Generation != 3 || csv.InferenceUS != 600 || csv.SensingUS != 400 || csv.StepUS != 1000 {
		t.Errorf("unexpected CSV row %+v", csv)
	}

	pt.Reset()
	if pt.Total() != 0 || pt.StepsPerSecond() != 0 {
		t.Error("Reset did not zero timings")
	}
}

func TestMeanTimings(t *testing.T) {
	a := NewPhaseTimings(1)
	b := NewPhaseTimings(1)
	a.Record(PhaseTrailDecay, 2*time.Millisecond)
	b.Record(PhaseTrailDecay, 4*time.Millisecond)

	m := MeanTimings([]PhaseTimings{a, b})
	if got := m.Get(PhaseTrailDecay); got != 3*time.Millisecond {
		t.Errorf("mean = %v, want 3ms", got)
	}

	if MeanTimings(nil).Total() != 0 {
		t.Error("mean of nothing should be zero")
	}
}

func TestPhaseNames(t *testing.T) {
	seen := make(map[string]bool)
	for p := Phase(0); p < NumPhases; p++ {
		name := p.String()
		if name == "" || name == "unknown" || seen[name] {
			t.Errorf("phase %d has bad name %q", p, name)
		}
		seen[name] = true
	}
	if NumPhases.String() != "unknown" {
		t.Error("out-of-range phase should be unknown")
	}
}

func TestPhaseTimings_LogValue(t *testing.T) {
	pt := NewPhaseTimings(1)
	pt.Record(PhaseFoodPickup, 5*time.Microsecond)

	v := pt.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v, want group", v.Kind())
	}
	found := false
	for _, a := range v.Group() {
		if a.Key == "food_pickup_us" && a.Value.Int64() == 5 {
			found = true
		}
	}
	if !found {
		t.Error("food_pickup_us attribute missing")
	}
}
