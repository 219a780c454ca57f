// Package browser wraps chromedp behind per-job rendering sessions. Every
// session runs its own headless Chrome with a fresh profile, so no cookie or
// storage state leaks across jobs or across attempts of the same job.
package browser

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Session is one isolated rendering session. Close must be called on every
// exit path, success or failure.
type Session interface {
	// Navigate loads the URL and waits a short settle period for
	// client-side rendering to finish.
	Navigate(url string, timeout time.Duration) error

	// LocatorText returns the visible text of the first element matching
	// the CSS selector.
	LocatorText(selector string, timeout time.Duration) (string, error)

	// LocatorAttribute returns an attribute of the first element matching
	// the CSS selector.
	LocatorAttribute(selector, attr string, timeout time.Duration) (string, error)

	// BodyText returns the full visible text of the page body.
	BodyText(timeout time.Duration) (string, error)

	// Close tears the browser down. Safe to defer immediately after Launch.
	Close()
}

type chromeSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
	settle  time.Duration
}

// Launch starts a headless Chrome with its own allocator (and therefore its
// own profile directory) and the given user agent. It fails fast when the
// browser cannot start.
func Launch(ctx context.Context, userAgent string, settle time.Duration) (Session, error) {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &chromeSession{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
		settle:  settle,
	}, nil
}

func (s *chromeSession) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(s.settle),
	)
}

func (s *chromeSession) LocatorText(selector string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var text string
	if err := chromedp.Run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *chromeSession) LocatorAttribute(selector, attr string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var value string
	var ok bool
	if err := chromedp.Run(ctx, chromedp.AttributeValue(selector, attr, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("attribute %q not present on %q", attr, selector)
	}
	return value, nil
}

// BodyText grabs the page HTML once and extracts the visible body text from
// it, which is much cheaper than walking the live DOM for large pages.
func (s *chromeSession) BodyText(timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return visibleText(html)
}

func (s *chromeSession) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// visibleText strips script, style, and noscript content and returns the
// remaining body text.
func visibleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Find("body").Text(), nil
}
