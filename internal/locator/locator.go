// Package locator finds the piece of page text most likely to contain a
// product price. It is generic and best-effort: an ordered cascade of
// candidate selectors, first usable result wins, every failure skipped.
package locator

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Page is the read-only view of a rendered page the cascade works against.
// browser.Session satisfies it.
type Page interface {
	// LocatorText returns the visible text of the first element matching
	// the selector.
	LocatorText(selector string, timeout time.Duration) (string, error)

	// LocatorAttribute returns an attribute value of the first element
	// matching the selector.
	LocatorAttribute(selector, attr string, timeout time.Duration) (string, error)

	// BodyText returns the full visible text of the page body.
	BodyText(timeout time.Duration) (string, error)
}

// ErrExtractionNotFound is returned when no candidate and no body-text
// pattern yields price-like text.
var ErrExtractionNotFound = errors.New("unable to locate price on page")

const (
	candidateTimeout = 1500 * time.Millisecond
	bodyTimeout      = 2 * time.Second
)

type candidate func(Page) (string, error)

func textCandidate(selector string) candidate {
	return func(p Page) (string, error) {
		return p.LocatorText(selector, candidateTimeout)
	}
}

// attrCandidate reads an attribute instead of rendered text; meta tags carry
// their value in the content attribute.
func attrCandidate(selector, attr string) candidate {
	return func(p Page) (string, error) {
		return p.LocatorAttribute(selector, attr, candidateTimeout)
	}
}

var genericCandidates = []candidate{
	textCandidate(`[itemprop="price"]`),
	attrCandidate(`meta[property="product:price:amount"]`, "content"),
	attrCandidate(`meta[name="product:price:amount"]`, "content"),
	textCandidate(`[data-test*="price" i]`),
	textCandidate(`[class*="price" i]`),
}

// symbolPatterns are tried in priority order against the full body text when
// every selector candidate fails.
var symbolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s?[0-9][0-9.,]*`),
	regexp.MustCompile(`€\s?[0-9][0-9.,]*`),
	regexp.MustCompile(`£\s?[0-9][0-9.,]*`),
}

// Locate returns raw, unnormalized text containing at least one digit. A
// supplied selector hint is tried before the generic candidates. A candidate
// that errors, times out, or yields digitless text does not abort the
// cascade.
func Locate(page Page, selectorHint string) (string, error) {
	candidates := genericCandidates
	if selectorHint != "" {
		candidates = append([]candidate{textCandidate(selectorHint)}, genericCandidates...)
	}

	for _, read := range candidates {
		text, err := read(page)
		if err != nil {
			continue
		}
		if usable(text) {
			return text, nil
		}
	}

	body, err := page.BodyText(bodyTimeout)
	if err != nil {
		return "", ErrExtractionNotFound
	}
	for _, pattern := range symbolPatterns {
		if match := pattern.FindString(body); match != "" {
			return match, nil
		}
	}

	return "", ErrExtractionNotFound
}

func usable(text string) bool {
	return strings.TrimSpace(text) != "" && strings.ContainsAny(text, "0123456789")
}
