package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amitsh06/leadgen/internal/models"
)

var (
	reviewCountRe = regexp.MustCompile(`\(([\d,.]+)\)`)
	latitudeRe    = regexp.MustCompile(`!3d(-?[\d.]+)`)
	longitudeRe   = regexp.MustCompile(`!4d(-?[\d.]+)`)
)

// challengeSelectors mark anti-bot interstitials. Hitting one of these
// means the whole job is blocked, not just a single listing.
var challengeSelectors = []string{
	"iframe[src*='recaptcha']",
	"#captcha-form",
	"form[action*='challenge']",
	"div#recaptcha",
}

// isChallengePage detects consent-wall and captcha interstitials
func isChallengePage(doc *goquery.Document) bool {
	for _, sel := range challengeSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// extractPlaceLinks pulls result detail links from the search feed in
// display order, de-duplicated.
func extractPlaceLinks(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("div[role='feed'] a.hfpxzc").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = "https://www.google.com" + href
		}
		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	})
	return links
}

// hasResultFeed reports whether the page shows a multi-result feed.
// Single-match queries skip the feed and land directly on a detail page.
func hasResultFeed(doc *goquery.Document) bool {
	return doc.Find("div[role='feed']").Length() > 0
}

// isDetailPage reports whether the page is a single business profile
func isDetailPage(doc *goquery.Document) bool {
	return doc.Find("h1.DUwDvf, h1.fontHeadlineLarge").Length() > 0
}

// parseBusinessDoc extracts a business profile from a detail page.
// Missing fields stay zero-valued; only a missing name makes the listing
// unusable.
func parseBusinessDoc(doc *goquery.Document, pageURL string) (models.Business, bool) {
	b := models.Business{ListingURL: pageURL}

	b.Name = cleanText(doc.Find("h1.DUwDvf").First().Text())
	if b.Name == "" {
		b.Name = cleanText(doc.Find("h1.fontHeadlineLarge").First().Text())
	}
	if b.Name == "" {
		return b, false
	}

	b.Category = cleanText(doc.Find("button[jsaction*='category']").First().Text())
	if b.Category == "" {
		b.Category = cleanText(doc.Find("span.DkEaL").First().Text())
	}

	b.Address = cleanText(doc.Find("button[data-item-id='address']").First().AttrOr("aria-label", ""))
	if b.Address == "" {
		b.Address = cleanText(doc.Find("button[data-item-id='address'] div.fontBodyMedium").First().Text())
	}
	b.Address = strings.TrimPrefix(b.Address, "Address: ")

	b.Phone = cleanText(doc.Find("button[data-item-id^='phone']").First().AttrOr("aria-label", ""))
	b.Phone = strings.TrimPrefix(b.Phone, "Phone: ")
	if b.Phone == "" {
		b.Phone = cleanText(doc.Find("button[data-item-id^='phone'] div.fontBodyMedium").First().Text())
	}

	if href, ok := doc.Find("a[data-item-id='authority']").First().Attr("href"); ok {
		b.Website = strings.TrimSpace(href)
	}

	ratingText := doc.Find("div.F7nice span[aria-hidden='true']").First().Text()
	b.Rating = parseRating(ratingText)

	reviewsText := doc.Find("div.F7nice").Text()
	b.ReviewCount = parseReviewCount(reviewsText)

	b.Latitude, b.Longitude = coordsFromURL(pageURL)

	return b, true
}

// coordsFromURL extracts the latitude/longitude markers embedded in a
// place URL ("...!3d40.7484!4d-73.9857...").
func coordsFromURL(u string) (lat, lng string) {
	if m := latitudeRe.FindStringSubmatch(u); len(m) == 2 {
		lat = m[1]
	}
	if m := longitudeRe.FindStringSubmatch(u); len(m) == 2 {
		lng = m[1]
	}
	return lat, lng
}

// parseRating converts a localized rating string ("4.5" or "4,5") to a float
func parseRating(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	rating, err := strconv.ParseFloat(s, 64)
	if err != nil || rating < 0 || rating > 5 {
		return 0
	}
	return rating
}

// parseReviewCount pulls the parenthesized review total, e.g. "(1,234)"
func parseReviewCount(s string) int {
	m := reviewCountRe.FindStringSubmatch(s)
	if len(m) != 2 {
		return 0
	}
	digits := strings.NewReplacer(",", "", ".", "").Replace(m[1])
	count, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return count
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
