package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
	"github.com/riskibarqy/gifthawk/internal/domain/safety"
	"github.com/riskibarqy/gifthawk/internal/domain/settings"
	"github.com/riskibarqy/gifthawk/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/gifthawk/internal/platform/events"
	"github.com/riskibarqy/gifthawk/internal/platform/logging"
)

type fakeDescriptionFetcher struct {
	descriptions map[string]string
	err          error
}

func (f *fakeDescriptionFetcher) FetchListingDescription(_ context.Context, code string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.descriptions[code], nil
}

type fakeHider struct {
	hidden []string
	err    error
}

func (f *fakeHider) HideListing(_ context.Context, gameID string) error {
	if f.err != nil {
		return f.err
	}
	f.hidden = append(f.hidden, gameID)
	return nil
}

func seedUnchecked(t *testing.T, repo *memory.ListingRepository, code, gameID string) {
	t.Helper()

	item := pageListing(code, 30)
	item.GameID = gameID
	if _, err := repo.Upsert(t.Context(), item); err != nil {
		t.Fatalf("seed %s: %v", code, err)
	}
}

func TestCheckNextFlagsAndHidesUnsafeListing(t *testing.T) {
	repo := memory.NewListingRepository()
	seedUnchecked(t, repo, "trap", "440")

	descs := &fakeDescriptionFetcher{descriptions: map[string]string{
		"trap": "Don't enter, this is a ban trap set up by moderators.",
	}}
	hider := &fakeHider{}
	bus := events.NewBus(8)
	defer bus.Close()
	ch, cancel := bus.Subscribe()
	defer cancel()

	svc := NewSafetyService(repo, descs, hider, bus, logging.NewNop())

	cfg := settings.Defaults()
	if err := svc.CheckNext(t.Context(), cfg); err != nil {
		t.Fatalf("check next: %v", err)
	}

	item, _, _ := repo.GetByCode(t.Context(), "trap")
	if item.SafetyVerdict != listing.VerdictUnsafe {
		t.Fatalf("verdict = %q, want unsafe", item.SafetyVerdict)
	}
	if item.SafetyScore == nil || *item.SafetyScore >= safety.SafeThreshold {
		t.Fatalf("score = %v, want below threshold", item.SafetyScore)
	}
	if !item.IsHidden {
		t.Fatal("unsafe listing not hidden despite auto-hide enabled")
	}
	if len(hider.hidden) != 1 || hider.hidden[0] != "440" {
		t.Fatalf("hidden game ids = %v, want [440]", hider.hidden)
	}

	sawFlag := false
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == events.TypeSafetyFlagged {
			sawFlag = true
		}
	}
	if !sawFlag {
		t.Fatal("expected a safety_flagged event")
	}
}

func TestCheckNextMarksBorderlineOnFetchFailure(t *testing.T) {
	repo := memory.NewListingRepository()
	seedUnchecked(t, repo, "flaky", "570")

	descs := &fakeDescriptionFetcher{err: errors.New("timeout")}
	svc := NewSafetyService(repo, descs, nil, nil, logging.NewNop())

	if err := svc.CheckNext(t.Context(), settings.Defaults()); err != nil {
		t.Fatalf("check next: %v", err)
	}

	item, _, _ := repo.GetByCode(t.Context(), "flaky")
	if item.SafetyVerdict != listing.VerdictSafe {
		t.Fatalf("verdict = %q, want borderline safe", item.SafetyVerdict)
	}
	if item.SafetyScore == nil || *item.SafetyScore != safety.BorderlineScore {
		t.Fatalf("score = %v, want borderline %d", item.SafetyScore, safety.BorderlineScore)
	}

	// Borderline listings leave the unchecked queue for good.
	pool, err := repo.ListUnchecked(t.Context(), item.UpdatedAt, 10)
	if err != nil {
		t.Fatalf("list unchecked: %v", err)
	}
	if len(pool) != 0 {
		t.Fatalf("unchecked pool = %d, want empty", len(pool))
	}
}

func TestCheckNextDisabledIsNoop(t *testing.T) {
	repo := memory.NewListingRepository()
	seedUnchecked(t, repo, "waiting", "")

	descs := &fakeDescriptionFetcher{descriptions: map[string]string{"waiting": "scam"}}
	svc := NewSafetyService(repo, descs, nil, nil, logging.NewNop())

	cfg := settings.Defaults()
	cfg.SafetyCheckEnabled = false
	if err := svc.CheckNext(t.Context(), cfg); err != nil {
		t.Fatalf("check next: %v", err)
	}

	item, _, _ := repo.GetByCode(t.Context(), "waiting")
	if item.SafetyVerdict != listing.VerdictUnknown {
		t.Fatalf("verdict = %q, want untouched unknown", item.SafetyVerdict)
	}
}

func TestRescoreAllCoversEveryListing(t *testing.T) {
	repo := memory.NewListingRepository()
	seedUnchecked(t, repo, "aaa", "")
	seedUnchecked(t, repo, "bbb", "")
	seedUnchecked(t, repo, "ccc", "")

	descs := &fakeDescriptionFetcher{descriptions: map[string]string{
		"aaa": "A lovely banana platformer.",
		"bbb": "Do not enter, trap giveaway.",
		"ccc": "Casual puzzle game.",
	}}
	svc := NewSafetyService(repo, descs, nil, nil, logging.NewNop())

	results, err := svc.RescoreAll(t.Context(), 2)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	byCode := map[string]RescoreResult{}
	for _, row := range results {
		byCode[row.Code] = row
	}
	if byCode["aaa"].Verdict != listing.VerdictSafe {
		t.Fatalf("aaa = %+v, want safe", byCode["aaa"])
	}
	if byCode["bbb"].Verdict != listing.VerdictUnsafe {
		t.Fatalf("bbb = %+v, want unsafe", byCode["bbb"])
	}

	// Results come back sorted regardless of worker completion order.
	for i := 1; i < len(results); i++ {
		if results[i-1].Code > results[i].Code {
			t.Fatalf("results out of order: %v before %v", results[i-1].Code, results[i].Code)
		}
	}

	item, _, _ := repo.GetByCode(t.Context(), "bbb")
	if item.SafetyVerdict != listing.VerdictUnsafe {
		t.Fatalf("stored verdict for bbb = %q, want unsafe", item.SafetyVerdict)
	}
}
