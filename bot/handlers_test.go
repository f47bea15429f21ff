package bot

import (
	"strings"
	"testing"

	"github.com/quailyquaily/clipshelf/resolve"
)

func TestFormatAmbiguous_ExactPhaseShowsChatsOnly(t *testing.T) {
	disp := resolve.Disposition{
		Kind:  resolve.KindAmbiguous,
		Phase: resolve.PhaseExact,
		Candidates: []resolve.Candidate{
			{ChatTitle: "Math Club", Title: "intro"},
			{ChatTitle: "Physics", Title: "intro"},
		},
	}
	got := formatAmbiguous(disp)
	if !strings.Contains(got, "• Math Club") || !strings.Contains(got, "• Physics") {
		t.Fatalf("chat names missing: %q", got)
	}
	if strings.Contains(got, "intro") {
		t.Fatalf("exact-phase listing should not repeat the queried title: %q", got)
	}
}

func TestFormatAmbiguous_FuzzyPhaseShowsTitles(t *testing.T) {
	disp := resolve.Disposition{
		Kind:  resolve.KindAmbiguous,
		Phase: resolve.PhaseFuzzy,
		Candidates: []resolve.Candidate{
			{ChatTitle: "Math Club", Title: "go talk 1"},
			{ChatTitle: "Math Club", Title: "go talk 2"},
		},
	}
	got := formatAmbiguous(disp)
	if !strings.Contains(got, "Math Club: go talk 1") {
		t.Fatalf("fuzzy listing missing title: %q", got)
	}
}

func TestFormatAmbiguous_ReportsOmitted(t *testing.T) {
	disp := resolve.Disposition{
		Kind:  resolve.KindAmbiguous,
		Phase: resolve.PhaseFuzzy,
		Candidates: []resolve.Candidate{
			{ChatTitle: "A", Title: "x"},
		},
		Omitted: 7,
	}
	got := formatAmbiguous(disp)
	if !strings.Contains(got, "and 7 more") {
		t.Fatalf("omitted count missing: %q", got)
	}
}

func TestFormatAmbiguous_TruncatesLongTitles(t *testing.T) {
	disp := resolve.Disposition{
		Kind:  resolve.KindAmbiguous,
		Phase: resolve.PhaseFuzzy,
		Candidates: []resolve.Candidate{
			{ChatTitle: "A", Title: strings.Repeat("y", 300)},
			{ChatTitle: "B", Title: "short"},
		},
	}
	got := formatAmbiguous(disp)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 120 {
			t.Fatalf("line too long (%d bytes): %q", len(line), line)
		}
	}
}
