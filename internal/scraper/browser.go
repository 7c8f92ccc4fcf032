package scraper

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/amitsh06/leadgen/internal/common"
)

// session owns one headless browser instance for the duration of a job.
// Jobs are independent, so each gets a fresh profile and cookie jar.
type session struct {
	ctx         context.Context
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
}

// newSession starts a browser under the given parent context. Cancelling
// the parent tears the browser down mid-navigation.
func newSession(parent context.Context, config *common.ScraperConfig) (*session, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(config.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	s := &session{
		ctx:         browserCtx,
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
	}

	// Starting the browser eagerly surfaces missing-binary errors before
	// the first navigation.
	if err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": config.Language,
		}),
	); err != nil {
		s.close()
		return nil, err
	}

	return s, nil
}

// navigate loads a URL and waits for client-side rendering to settle
func (s *session) navigate(ctx context.Context, url string, config *common.ScraperConfig) error {
	navCtx, cancel := context.WithTimeout(ctx, config.NavigationTimeout)
	defer cancel()

	return chromedp.Run(s.withContext(navCtx),
		chromedp.Navigate(url),
		chromedp.Sleep(config.RenderWait),
	)
}

// html returns the current page's full markup
func (s *session) html(ctx context.Context) (string, error) {
	var out string
	err := chromedp.Run(s.withContext(ctx), chromedp.OuterHTML("html", &out, chromedp.ByQuery))
	return out, err
}

// evaluate runs a JavaScript expression on the current page
func (s *session) evaluate(ctx context.Context, expression string) error {
	return chromedp.Run(s.withContext(ctx), chromedp.Evaluate(expression, nil))
}

// withContext derives a chromedp-compatible context honoring an external
// deadline. chromedp requires its own context chain, so the external
// context only contributes cancellation.
func (s *session) withContext(external context.Context) context.Context {
	if external == nil {
		return s.ctx
	}
	merged, cancel := context.WithCancel(s.ctx)
	go func() {
		select {
		case <-external.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}

func (s *session) close() {
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
