package safety

import (
	"testing"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name        string
		description string
		wantVerdict listing.Verdict
		wantUnder   int
		wantAtLeast int
	}{
		{
			name:        "clean description",
			description: "Enjoy the game, good luck everyone!",
			wantVerdict: listing.VerdictSafe,
			wantAtLeast: SafeThreshold,
		},
		{
			name:        "explicit trap warning",
			description: "don't enter, this is a ban trap",
			wantVerdict: listing.VerdictUnsafe,
			wantUnder:   SafeThreshold,
		},
		{
			name:        "do not enter phrasing",
			description: "DO NOT ENTER. Fake giveaway.",
			wantVerdict: listing.VerdictUnsafe,
			wantUnder:   SafeThreshold,
		},
		{
			name:        "false positive words stay safe",
			description: "A banner for the band, plus a banana and a bottle.",
			wantVerdict: listing.VerdictSafe,
			wantAtLeast: SafeThreshold,
		},
		{
			name:        "empty description",
			description: "",
			wantVerdict: listing.VerdictSafe,
			wantAtLeast: SafeThreshold,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.description)
			if got.Verdict != tc.wantVerdict {
				t.Fatalf("verdict = %q, want %q (score %d)", got.Verdict, tc.wantVerdict, got.Score)
			}
			if tc.wantVerdict == listing.VerdictUnsafe && got.Score >= tc.wantUnder {
				t.Fatalf("score = %d, want < %d", got.Score, tc.wantUnder)
			}
			if tc.wantVerdict == listing.VerdictSafe && got.Score < tc.wantAtLeast {
				t.Fatalf("score = %d, want >= %d", got.Score, tc.wantAtLeast)
			}
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	const text = "don't enter this scam, it is a trap set by a bot"
	first := Evaluate(text)
	for i := 0; i < 10; i++ {
		again := Evaluate(text)
		if again.Score != first.Score || again.Verdict != first.Verdict {
			t.Fatalf("evaluation drifted on run %d: %+v vs %+v", i, again, first)
		}
	}
	if len(first.MatchedSignals) == 0 {
		t.Fatal("expected matched signals for trap text")
	}
}
