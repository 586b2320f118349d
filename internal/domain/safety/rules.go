// Package safety scores giveaway descriptions for ban-trap language.
package safety

import (
	"sort"
	"strings"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

// SafeThreshold is the minimum score considered safe.
const SafeThreshold = 50

// BorderlineScore is assigned when a description could not be fetched,
// keeping the listing out of the unchecked queue without vouching for it.
const BorderlineScore = 50

// badSignals are weighted trap phrases. Matching is word-boundary on the
// left only (" " prefix), so "ban" also hits "banned" but not "urban".
var badSignals = map[string]int{
	" do not enter": 3,
	" don't enter":  3,
	" dont enter":   3,
	" not enter":    3,
	" trap":         2,
	" fake":         2,
	" scam":         2,
	" ban":          1,
	" bot":          1,
}

// goodSignals neutralize common false positives of the single-word bad signals.
var goodSignals = map[string]int{
	" banana": 1,
	" band":   1,
	" bang":   1,
	" bank":   1,
	" banner": 1,
	" both":   1,
	" bother": 1,
	" bottle": 1,
}

// Evaluation is the outcome of scoring one description.
type Evaluation struct {
	Verdict        listing.Verdict
	Score          int
	MatchedSignals []string
}

// Evaluate scores a giveaway description. Deterministic: the same text always
// yields the same evaluation.
func Evaluate(description string) Evaluation {
	text := " " + strings.ToLower(description)

	bad := 0
	var matched []string
	for signal, weight := range badSignals {
		n := strings.Count(text, signal)
		if n == 0 {
			continue
		}
		bad += n * weight
		matched = append(matched, strings.TrimSpace(signal))
	}

	good := 0
	for signal, weight := range goodSignals {
		good += strings.Count(text, signal) * weight
	}

	netBad := bad - good
	if netBad < 0 {
		netBad = 0
	}

	score := 100 - netBad*20
	if score < 0 {
		score = 0
	}

	sort.Strings(matched)

	verdict := listing.VerdictSafe
	if score < SafeThreshold {
		verdict = listing.VerdictUnsafe
	}
	return Evaluation{Verdict: verdict, Score: score, MatchedSignals: matched}
}
