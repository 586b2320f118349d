package steamgifts

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const listingsPageHTML = `
<html><body>
<span class="nav__points">1,234</span>
<a class="nav__avatar-outer-wrap" href="/user/operator42/"></a>
<input type="hidden" name="xsrf_token" value="tok123abc">
<div class="pinned-giveaways__outer-wrap">
  <div class="giveaway__row-inner-wrap">
    <div class="giveaway__heading">
      <a class="giveaway__heading__name" href="/giveaway/PINNED/pinned-game">Pinned Game</a>
      <span class="giveaway__heading__thin">(100P)</span>
    </div>
  </div>
</div>
<div class="giveaway__row-inner-wrap">
  <div class="giveaway__heading">
    <a class="giveaway__heading__name" href="/giveaway/AbCd1/some-game">Some Game</a>
    <span class="giveaway__heading__thin">(5 Copies)</span>
    <span class="giveaway__heading__thin">(50P)</span>
  </div>
  <div class="giveaway__columns">
    <span data-timestamp="1767225600">in 2 days</span>
  </div>
  <a class="giveaway_image_thumbnail" href="https://store.steampowered.com/apps/440/"></a>
  <div class="giveaway__links">
    <a href="/giveaway/AbCd1/some-game/entries"><span>1,024 entries</span></a>
  </div>
</div>
<div class="giveaway__row-inner-wrap is-faded">
  <div class="giveaway__heading">
    <a class="giveaway__heading__name" href="/giveaway/EfGh2/other-game">Other Game</a>
    <span class="giveaway__heading__thin">(15P)</span>
  </div>
  <a class="giveaway_image_thumbnail_missing" href="https://store.steampowered.com/subs/98765/"></a>
  <div class="giveaway__links">
    <a href="#"><span>1 entry</span></a>
  </div>
</div>
</body></html>`

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestParseListingsPageSkipsPinnedRows(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, listingsPageHTML)
	items := parseListingsPage(doc, time.Now().UTC())

	if len(items) != 2 {
		t.Fatalf("expected 2 rows (pinned skipped), got=%d", len(items))
	}
	for _, item := range items {
		if item.Code == "PINNED" {
			t.Fatal("pinned row leaked into the result")
		}
	}
}

func TestParseListingRowFields(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, listingsPageHTML)
	items := parseListingsPage(doc, time.Now().UTC())
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got=%d", len(items))
	}

	first := items[0]
	if first.Code != "AbCd1" {
		t.Fatalf("expected code=AbCd1, got=%q", first.Code)
	}
	if first.GameName != "Some Game" {
		t.Fatalf("expected name=Some Game, got=%q", first.GameName)
	}
	if first.PointCost != 50 {
		t.Fatalf("expected cost=50, got=%d", first.PointCost)
	}
	if first.Copies != 5 {
		t.Fatalf("expected copies=5, got=%d", first.Copies)
	}
	if first.EntryCount != 1024 {
		t.Fatalf("expected entries=1024, got=%d", first.EntryCount)
	}
	if first.GameID != "440" {
		t.Fatalf("expected game_id=440, got=%q", first.GameID)
	}
	if first.EndAt == nil || first.EndAt.Unix() != 1767225600 {
		t.Fatalf("expected end_at=1767225600, got=%v", first.EndAt)
	}
	if first.IsEntered {
		t.Fatal("expected first row not entered")
	}

	second := items[1]
	if second.Code != "EfGh2" {
		t.Fatalf("expected code=EfGh2, got=%q", second.Code)
	}
	if second.Copies != 1 {
		t.Fatalf("expected default copies=1, got=%d", second.Copies)
	}
	if second.EntryCount != 1 {
		t.Fatalf("expected entries=1, got=%d", second.EntryCount)
	}
	if second.GameID != "98765" {
		t.Fatalf("expected sub game_id=98765, got=%q", second.GameID)
	}
	if !second.IsEntered {
		t.Fatal("expected is-faded row to be marked entered")
	}
}

func TestParseAccountPoints(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, listingsPageHTML)
	points, ok := parseAccountPoints(doc)
	if !ok {
		t.Fatal("expected points counter to be present")
	}
	if points != 1234 {
		t.Fatalf("expected points=1234, got=%d", points)
	}

	loggedOut := docFromHTML(t, `<html><body><div class="page"></div></body></html>`)
	if _, ok := parseAccountPoints(loggedOut); ok {
		t.Fatal("expected missing counter on logged-out page")
	}
}

func TestParseUsernameAndToken(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, listingsPageHTML)
	if got := parseUsername(doc); got != "operator42" {
		t.Fatalf("expected username=operator42, got=%q", got)
	}
	if got := parseXSRFToken(doc); got != "tok123abc" {
		t.Fatalf("expected token=tok123abc, got=%q", got)
	}
}

func TestParseTableCodesDeduplicates(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
<html><body>
<div class="table__row-inner-wrap">
  <a class="table__column__heading" href="/giveaway/Won01/game-one">Game One</a>
</div>
<div class="table__row-inner-wrap">
  <a class="table__column__heading" href="/giveaway/Won01/game-one">Game One</a>
</div>
<div class="table__row-inner-wrap">
  <a class="table__column__heading" href="/giveaway/Won02/game-two">Game Two</a>
</div>
<div class="table__row-inner-wrap">
  <a class="table__column__heading" href="/no-code-here">Broken</a>
</div>
</body></html>`)

	codes := parseTableCodes(doc)
	if len(codes) != 2 {
		t.Fatalf("expected 2 unique codes, got=%v", codes)
	}
	if codes[0] != "Won01" || codes[1] != "Won02" {
		t.Fatalf("expected [Won01 Won02], got=%v", codes)
	}
}

func TestParseDescriptionJoinsPanels(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
<html><body>
<div class="page__description"><p>First panel.</p></div>
<div class="giveaway__description"><p>Second panel.</p></div>
<div class="giveaway__description">   </div>
</body></html>`)

	got := parseDescription(doc)
	want := "First panel.\nSecond panel."
	if got != want {
		t.Fatalf("expected %q, got=%q", want, got)
	}
}
