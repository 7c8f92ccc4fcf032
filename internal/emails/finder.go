package emails

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/models"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// assetExtensions filter out matches that are really file references
// (images named like "logo@2x.png" satisfy the email regex).
var assetExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js", ".woff", ".woff2"}

// preferredPrefixes order candidate addresses; generic contact inboxes
// beat personal ones for cold outreach.
var preferredPrefixes = []string{"contact", "info", "hello", "office", "admin", "sales", "support"}

// contactPathHints mark links worth following from the homepage
var contactPathHints = []string{"contact", "about", "impressum", "kontakt"}

// guessPrefixes build a fallback address when a site exposes nothing
var guessPrefixes = []string{"info", "contact"}

// Finder discovers contact emails by fetching a business website and a
// handful of its contact pages. Implements interfaces.EmailFinder.
type Finder struct {
	config  *common.EmailsConfig
	logger  arbor.ILogger
	client  *http.Client
	limiter *rate.Limiter
}

// NewFinder creates the email finder with a politeness rate limit
func NewFinder(config *common.EmailsConfig, logger arbor.ILogger) *Finder {
	delay := config.RequestDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &Finder{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// FindEmails fetches up to MaxPages pages from the business website and
// returns the discovered addresses sorted by outreach preference. When
// the site yields nothing, a guessed address marked "(generated)" is
// returned as primary so downstream stages still have a contact hint.
func (f *Finder) FindEmails(ctx context.Context, business models.Business) ([]string, string, error) {
	if business.Website == "" {
		return nil, "", fmt.Errorf("no website for %q", business.Name)
	}

	base, err := url.Parse(business.Website)
	if err != nil || base.Host == "" {
		return nil, "", fmt.Errorf("unusable website url %q: %w", business.Website, err)
	}

	found := make(map[string]bool)

	doc, err := f.fetchPage(ctx, base.String())
	if err != nil {
		return nil, "", err
	}
	collectEmails(doc, found)

	// Follow contact-ish links for the remaining page budget
	if len(found) == 0 || f.config.MaxPages > 1 {
		for _, link := range contactLinks(doc, base, f.config.MaxPages-1) {
			sub, err := f.fetchPage(ctx, link)
			if err != nil {
				f.logger.Debug().Err(err).Str("url", link).Msg("Contact page fetch failed")
				continue
			}
			collectEmails(sub, found)
		}
	}

	if len(found) == 0 {
		return nil, guessedEmail(base.Hostname()), nil
	}

	emails := make([]string, 0, len(found))
	for email := range found {
		emails = append(emails, email)
	}
	sortByPreference(emails)

	return emails, emails[0], nil
}

// fetchPage retrieves and parses one HTML page under the rate limit
func (f *Finder) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	// Cap the body read; marketing pages can be arbitrarily heavy
	body := io.LimitReader(resp.Body, 2*1024*1024)
	return goquery.NewDocumentFromReader(body)
}

// collectEmails harvests addresses from mailto links and page text
func collectEmails(doc *goquery.Document, into map[string]bool) {
	doc.Find("a[href^='mailto:']").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		if valid(addr) {
			into[strings.ToLower(addr)] = true
		}
	})

	for _, match := range emailRe.FindAllString(doc.Text(), -1) {
		if valid(match) {
			into[strings.ToLower(match)] = true
		}
	}

	// Addresses sometimes hide in href/content attributes only
	html, err := doc.Html()
	if err == nil {
		for _, match := range emailRe.FindAllString(html, -1) {
			if valid(match) {
				into[strings.ToLower(match)] = true
			}
		}
	}
}

// valid rejects asset filenames that happen to match the email pattern
func valid(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || !emailRe.MatchString(addr) {
		return false
	}
	for _, ext := range assetExtensions {
		if strings.HasSuffix(addr, ext) {
			return false
		}
	}
	return true
}

// contactLinks returns same-host links that look like contact pages
func contactLinks(doc *goquery.Document, base *url.URL, limit int) []string {
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return true
		}

		lower := strings.ToLower(resolved.Path)
		for _, hint := range contactPathHints {
			if strings.Contains(lower, hint) {
				key := resolved.String()
				if !seen[key] {
					seen[key] = true
					links = append(links, key)
				}
				break
			}
		}
		return len(links) < limit
	})

	return links
}

// sortByPreference orders generic contact inboxes first, then alphabetically
func sortByPreference(emails []string) {
	rank := func(email string) int {
		local := email
		if i := strings.Index(email, "@"); i > 0 {
			local = email[:i]
		}
		for r, prefix := range preferredPrefixes {
			if strings.HasPrefix(local, prefix) {
				return r
			}
		}
		return len(preferredPrefixes)
	}

	sort.Slice(emails, func(i, j int) bool {
		ri, rj := rank(emails[i]), rank(emails[j])
		if ri != rj {
			return ri < rj
		}
		return emails[i] < emails[j]
	})
}

// guessedEmail builds a marked fallback address from the site domain
func guessedEmail(host string) string {
	domain := strings.TrimPrefix(strings.ToLower(host), "www.")
	if domain == "" {
		return ""
	}
	return fmt.Sprintf("%s@%s (generated)", guessPrefixes[0], domain)
}
