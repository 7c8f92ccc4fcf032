package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/amitsh06/leadgen/internal/common"
	"github.com/amitsh06/leadgen/internal/interfaces"
	"github.com/amitsh06/leadgen/internal/models"
)

// ErrChallenge aborts a job when the listing site serves an anti-bot
// interstitial instead of results.
var ErrChallenge = errors.New("blocked by anti-bot challenge page")

const searchBaseURL = "https://www.google.com/maps/search/"

// consentJS clicks through the cookie consent wall when present
const consentJS = `(() => {
	const selectors = ["button#L2AGLb", "form[action*='consent'] button", "button[aria-label*='Accept']"];
	for (const sel of selectors) {
		const btn = document.querySelector(sel);
		if (btn) { btn.click(); return true; }
	}
	return false;
})()`

// scrollFeedJS scrolls the result feed to trigger lazy loading
const scrollFeedJS = `(() => {
	const feed = document.querySelector("div[role='feed']");
	if (feed) { feed.scrollTop = feed.scrollHeight; return true; }
	return false;
})()`

// Service scrapes business listings with a headless browser. Implements
// interfaces.ListingScraper.
type Service struct {
	config  *common.ScraperConfig
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// NewService creates the listing scraper
func NewService(config *common.ScraperConfig, logger arbor.ILogger) *Service {
	delay := config.PlaceDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Service{
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Scrape searches for "query in location" and collects up to maxCount
// business profiles. Challenge pages and navigation failures are fatal;
// individual listings that fail to parse are skipped.
func (s *Service) Scrape(ctx context.Context, query, location string, maxCount int, progress interfaces.ProgressFunc) ([]models.Business, error) {
	searchURL := searchBaseURL + url.PathEscape(fmt.Sprintf("%s in %s", query, location))

	s.logger.Info().
		Str("query", query).
		Str("location", location).
		Int("max_results", maxCount).
		Msg("Starting listing scrape")

	sess, err := newSession(ctx, s.config)
	if err != nil {
		return nil, fmt.Errorf("browser start failed: %w", err)
	}
	defer sess.close()

	if err := sess.navigate(ctx, searchURL, s.config); err != nil {
		return nil, fmt.Errorf("search navigation failed: %w", err)
	}

	// Consent walls appear on first contact; dismiss and let the page settle
	if err := sess.evaluate(ctx, consentJS); err != nil {
		s.logger.Debug().Err(err).Msg("Consent dismissal script failed")
	}

	doc, err := s.currentDocument(ctx, sess)
	if err != nil {
		return nil, err
	}

	// Single-match queries land straight on the detail page
	if !hasResultFeed(doc) && isDetailPage(doc) {
		if b, ok := parseBusinessDoc(doc, searchURL); ok {
			if progress != nil {
				progress(1, fmt.Sprintf("Collected 1 business: %s", b.Name))
			}
			return []models.Business{b}, nil
		}
		return nil, nil
	}

	links, err := s.collectPlaceLinks(ctx, sess, maxCount)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		s.logger.Info().Str("query", query).Msg("No listings found")
		return nil, nil
	}

	return s.visitPlaces(ctx, sess, links, progress)
}

// collectPlaceLinks scrolls the result feed until enough links are loaded
// or scrolling stops producing new results.
func (s *Service) collectPlaceLinks(ctx context.Context, sess *session, maxCount int) ([]string, error) {
	var links []string
	stale := 0

	for attempt := 0; attempt < s.config.MaxScrollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := s.currentDocument(ctx, sess)
		if err != nil {
			return nil, err
		}

		found := extractPlaceLinks(doc)
		if len(found) >= maxCount {
			links = found[:maxCount]
			break
		}
		if len(found) == len(links) {
			stale++
			if stale >= 3 {
				links = found
				break
			}
		} else {
			stale = 0
		}
		links = found

		if err := sess.evaluate(ctx, scrollFeedJS); err != nil {
			s.logger.Debug().Err(err).Msg("Feed scroll failed")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.ScrollPause):
		}
	}

	if len(links) > maxCount {
		links = links[:maxCount]
	}
	s.logger.Debug().Int("links", len(links)).Msg("Collected place links")
	return links, nil
}

// visitPlaces opens each detail page and extracts the business profile
func (s *Service) visitPlaces(ctx context.Context, sess *session, links []string, progress interfaces.ProgressFunc) ([]models.Business, error) {
	businesses := make([]models.Business, 0, len(links))

	for i, link := range links {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if err := sess.navigate(ctx, link, s.config); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("url", link).Msg("Place navigation failed, skipping")
			continue
		}

		doc, err := s.currentDocument(ctx, sess)
		if err != nil {
			return nil, err
		}

		b, ok := parseBusinessDoc(doc, link)
		if !ok {
			s.logger.Warn().Str("url", link).Msg("Unparseable listing, skipping")
			continue
		}
		businesses = append(businesses, b)

		if progress != nil {
			progress(float64(i+1)/float64(len(links)),
				fmt.Sprintf("Scraping listings (%d/%d): %s", i+1, len(links), b.Name))
		}
	}

	s.logger.Info().Int("businesses", len(businesses)).Msg("Listing scrape finished")
	return businesses, nil
}

// currentDocument fetches and parses the current page, failing the job on
// challenge interstitials.
func (s *Service) currentDocument(ctx context.Context, sess *session) (*goquery.Document, error) {
	html, err := sess.html(ctx)
	if err != nil {
		return nil, fmt.Errorf("page capture failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("page parse failed: %w", err)
	}

	if isChallengePage(doc) {
		return nil, ErrChallenge
	}
	return doc, nil
}
