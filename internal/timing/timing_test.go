package timing

import (
	"strings"
	"testing"
	"time"
)

func TestMarkRecordsSteps(t *testing.T) {
	timer := New()
	timer.Mark("stage")
	timer.Mark("package")

	steps := timer.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "stage" || steps[1].Name != "package" {
		t.Errorf("wrong step names: %v", steps)
	}
	for _, s := range steps {
		if s.Duration < 0 {
			t.Errorf("step %s has negative duration", s.Name)
		}
	}
}

func TestStepDurationsAreDisjoint(t *testing.T) {
	timer := New()
	time.Sleep(10 * time.Millisecond)
	timer.Mark("first")
	time.Sleep(10 * time.Millisecond)
	timer.Mark("second")

	steps := timer.Steps()
	var sum time.Duration
	for _, s := range steps {
		sum += s.Duration
	}
	if total := timer.Total(); sum > total {
		t.Errorf("step durations %s exceed total %s", sum, total)
	}
}

func TestSummaryMentionsEveryStep(t *testing.T) {
	timer := New()
	timer.Mark("boot")
	timer.Mark("transfer")

	got := timer.Summary()
	for _, want := range []string{"boot=", "transfer=", "total="} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %s", want, got)
		}
	}
}
