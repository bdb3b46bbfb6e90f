package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	timer.now = fakeClock(2 * time.Millisecond)

	start := timer.Begin("start servers")
	timer.End(start, "1 server")
	if err := timer.Measure("settle", func() error { return errors.New("timed out") }); err == nil {
		t.Fatal("expected Measure to return the error")
	}
	timer.End(42, "ignored")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %+v", report.Phases)
	}
	if report.Phases[0].DurationMS != 2 || report.Phases[1].Note != "timed out" {
		t.Fatalf("unexpected phases: %+v", report.Phases)
	}
	if report.TotalMS != 4 {
		t.Fatalf("expected total 4ms, got %v", report.TotalMS)
	}

	summary := timer.Summary()
	for _, want := range []string{"start servers", "// 1 server", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestEmptyTimer(t *testing.T) {
	if got := NewTimer().Report(); got.TotalMS != 0 || got.Phases != nil {
		t.Fatalf("expected empty report, got %+v", got)
	}
}
