package verify

import (
	"reflect"
	"testing"
)

func TestDetectSentinelGating(t *testing.T) {
	signal := "<verification>VERIFICATION_COMPLETE</verification>"

	before := "instructions with example " + signal + "\n" + SentinelToken + "\nreal output, no signal"
	if done, _ := Detect(before, "VERIFICATION_COMPLETE"); done {
		t.Error("signal before sentinel must not count as completion")
	}

	after := "instructions\n" + SentinelToken + "\nwork done\n" + signal
	if done, _ := Detect(after, "VERIFICATION_COMPLETE"); !done {
		t.Error("signal after sentinel must count as completion")
	}
}

func TestDetectFirstSentinelOccurrence(t *testing.T) {
	// A worker echoing the wrapped instructions repeats the sentinel; the
	// search window starts at the first one, not the last.
	transcript := SentinelToken + "\n<verification>VERIFICATION_COMPLETE</verification>\n" +
		"echoed instructions\n" + SentinelToken + "\nnothing after"
	if done, _ := Detect(transcript, "VERIFICATION_COMPLETE"); !done {
		t.Error("completion after the first sentinel must be detected")
	}
}

func TestDetectRetryPrecedence(t *testing.T) {
	transcript := SentinelToken + "\n" +
		"<verification>VERIFICATION_COMPLETE</verification>\n" +
		"<verification>NEEDS_RETRY: tests still failing</verification>\n"

	done, reason := Detect(transcript, "VERIFICATION_COMPLETE")
	if done {
		t.Error("retry signal must override completion")
	}
	if reason != "tests still failing" {
		t.Errorf("reason = %q", reason)
	}
}

func TestDetectCaseAndWhitespaceTolerance(t *testing.T) {
	transcript := SentinelToken + "\n<VERIFICATION>  verification_complete </VERIFICATION>"
	if done, _ := Detect(transcript, "VERIFICATION_COMPLETE"); !done {
		t.Error("detection must be case-insensitive and whitespace-tolerant")
	}
}

func TestDetectCustomMarker(t *testing.T) {
	transcript := SentinelToken + "\n<verification>ALL_DONE</verification>"

	if done, _ := Detect(transcript, "ALL_DONE"); !done {
		t.Error("custom marker not detected")
	}
	if done, _ := Detect(transcript, "VERIFICATION_COMPLETE"); done {
		t.Error("wrong marker must not match")
	}
}

func TestDetectNoSignals(t *testing.T) {
	done, reason := Detect(SentinelToken+"\njust some output", "VERIFICATION_COMPLETE")
	if done || reason != "" {
		t.Errorf("Detect = (%v, %q), want no signal", done, reason)
	}
}

func TestExtractNextStepsBullets(t *testing.T) {
	transcript := `All done for now.

Next steps:
- Wire the config watcher
- Add retry metrics
  with per-worker labels
1. Review error paths

Unrelated trailing text.`

	steps := ExtractNextSteps(transcript)
	got := make([]string, len(steps))
	for i, s := range steps {
		got[i] = s.Text
	}
	want := []string{
		"Wire the config watcher",
		"Add retry metrics with per-worker labels",
		"Review error paths",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestExtractNextStepsInlineAndDedup(t *testing.T) {
	transcript := "TODO: fix the flaky test\n\nRemaining work:\n- Fix the flaky test.\n- Update docs\n"

	steps := ExtractNextSteps(transcript)
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2 (dedup across sections): %v", len(steps), steps)
	}
	if steps[0].Text != "fix the flaky test" {
		t.Errorf("steps[0] = %q", steps[0].Text)
	}
}

func TestExtractNextStepsNone(t *testing.T) {
	if steps := ExtractNextSteps("no suggestions here"); len(steps) != 0 {
		t.Errorf("steps = %v, want none", steps)
	}
}

func TestMergeNextStepsDedup(t *testing.T) {
	ls := &LoopState{}
	ls.MergeNextSteps([]NextStep{{Text: "Add docs"}, {Text: "Fix CI"}}, 1)
	ls.MergeNextSteps([]NextStep{{Text: "add docs"}, {Text: "Tune cache"}}, 2)

	if len(ls.NextSteps) != 3 {
		t.Fatalf("got %d steps, want 3: %v", len(ls.NextSteps), ls.NextSteps)
	}
	if ls.NextSteps[2].SourceIteration != 2 {
		t.Errorf("SourceIteration = %d, want 2", ls.NextSteps[2].SourceIteration)
	}
}
