package steamgifts

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/gifthawk/internal/domain/listing"
)

var (
	giveawayCodeRegex = regexp.MustCompile(`/giveaway/([^/]+)/`)
	pointCostRegex    = regexp.MustCompile(`\((\d+)P\)`)
	copiesRegex       = regexp.MustCompile(`(\d+) Copies`)
	entryCountRegex   = regexp.MustCompile(`(\d+) entr(?:y|ies)`)
	gameAppRegex      = regexp.MustCompile(`/apps/(\d+)/`)
	gameSubRegex      = regexp.MustCompile(`/subs/(\d+)/`)
	pointsRegex       = regexp.MustCompile(`[\d,]+`)
)

// parseListingsPage extracts giveaway rows from a search/listing page.
// Pinned rows are skipped: they repeat on every page and would inflate
// the scan's new/changed counts.
func parseListingsPage(doc *goquery.Document, now time.Time) []listing.Listing {
	out := make([]listing.Listing, 0, 50)

	doc.Find("div.giveaway__row-inner-wrap").Each(func(_ int, row *goquery.Selection) {
		if row.Closest("div.pinned-giveaways__outer-wrap").Length() > 0 {
			return
		}

		item, ok := parseListingRow(row, now)
		if !ok {
			return
		}
		out = append(out, item)
	})

	return out
}

func parseListingRow(row *goquery.Selection, now time.Time) (listing.Listing, bool) {
	link := row.Find("a.giveaway__heading__name").First()
	href, _ := link.Attr("href")

	code := ""
	if m := giveawayCodeRegex.FindStringSubmatch(href); len(m) == 2 {
		code = m[1]
	}
	if code == "" {
		return listing.Listing{}, false
	}

	item := listing.Listing{
		Code:          code,
		URL:           href,
		GameName:      strings.TrimSpace(link.Text()),
		Copies:        1,
		SafetyVerdict: listing.VerdictUnknown,
		DiscoveredAt:  now,
		UpdatedAt:     now,
	}

	headingText := row.Find("div.giveaway__heading").Text()
	if m := pointCostRegex.FindStringSubmatch(headingText); len(m) == 2 {
		item.PointCost, _ = strconv.Atoi(m[1])
	}
	if m := copiesRegex.FindStringSubmatch(headingText); len(m) == 2 {
		item.Copies, _ = strconv.Atoi(m[1])
	}

	linksText := row.Find("div.giveaway__links").Text()
	if m := entryCountRegex.FindStringSubmatch(strings.ReplaceAll(linksText, ",", "")); len(m) == 2 {
		item.EntryCount, _ = strconv.Atoi(m[1])
	}

	if raw, ok := row.Find("span[data-timestamp]").First().Attr("data-timestamp"); ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			end := time.Unix(unix, 0).UTC()
			item.EndAt = &end
		}
	}

	if thumb, ok := row.Find("a.giveaway_image_thumbnail, a.giveaway_image_thumbnail_missing").First().Attr("href"); ok {
		if m := gameAppRegex.FindStringSubmatch(thumb); len(m) == 2 {
			item.GameID = m[1]
		} else if m := gameSubRegex.FindStringSubmatch(thumb); len(m) == 2 {
			item.GameID = m[1]
		}
	}

	item.IsEntered = row.HasClass("is-faded")

	return item, true
}

// parseAccountPoints reads the nav points counter. A missing node means the
// page was rendered logged-out, i.e. the session cookie is no longer accepted.
func parseAccountPoints(doc *goquery.Document) (int, bool) {
	node := doc.Find("span.nav__points").First()
	if node.Length() == 0 {
		return 0, false
	}
	raw := pointsRegex.FindString(node.Text())
	points, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, false
	}
	return points, true
}

func parseUsername(doc *goquery.Document) string {
	href, ok := doc.Find("a.nav__avatar-outer-wrap").First().Attr("href")
	if !ok {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSuffix(href, "/"), "/user/")
}

// parseXSRFToken pulls the form token embedded in any logged-in page.
func parseXSRFToken(doc *goquery.Document) string {
	token, _ := doc.Find(`input[name="xsrf_token"]`).First().Attr("value")
	return strings.TrimSpace(token)
}

// parseTableCodes extracts giveaway codes from the won-listings page.
func parseTableCodes(doc *goquery.Document) []string {
	seen := make(map[string]struct{}, 16)
	out := make([]string, 0, 16)

	doc.Find("div.table__row-inner-wrap a.table__column__heading").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := giveawayCodeRegex.FindStringSubmatch(href)
		if len(m) != 2 {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	})

	return out
}

// parseDescription concatenates the giveaway description panels on a detail page.
func parseDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find("div.page__description, div.giveaway__description").Each(func(_ int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}
