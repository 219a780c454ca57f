package locator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage serves canned selector results and records what was asked for.
type fakePage struct {
	texts    map[string]string
	attrs    map[string]string
	body     string
	bodyErr  error
	askedFor []string
}

func (f *fakePage) LocatorText(selector string, _ time.Duration) (string, error) {
	f.askedFor = append(f.askedFor, selector)
	if text, ok := f.texts[selector]; ok {
		return text, nil
	}
	return "", errors.New("no such element")
}

func (f *fakePage) LocatorAttribute(selector, attr string, _ time.Duration) (string, error) {
	f.askedFor = append(f.askedFor, selector)
	if value, ok := f.attrs[selector+"@"+attr]; ok {
		return value, nil
	}
	return "", errors.New("no such element")
}

func (f *fakePage) BodyText(_ time.Duration) (string, error) {
	return f.body, f.bodyErr
}

func TestLocate_HintTriedFirst(t *testing.T) {
	page := &fakePage{texts: map[string]string{
		".product-cost":      "$99.95",
		`[itemprop="price"]`: "$1.00",
	}}

	text, err := Locate(page, ".product-cost")
	require.NoError(t, err)
	assert.Equal(t, "$99.95", text)
	assert.Equal(t, ".product-cost", page.askedFor[0])
}

func TestLocate_MetaContentAttribute(t *testing.T) {
	// Only a meta tag carries the price; its value lives in the content
	// attribute, not in rendered text.
	page := &fakePage{attrs: map[string]string{
		`meta[property="product:price:amount"]@content`: "42.00",
	}}

	text, err := Locate(page, "")
	require.NoError(t, err)
	assert.Equal(t, "42.00", text)
}

func TestLocate_SkipsFailingAndDigitlessCandidates(t *testing.T) {
	page := &fakePage{texts: map[string]string{
		`[itemprop="price"]`: "Price:", // no digit, not usable
		`[class*="price" i]`: "€12,50",
	}}

	text, err := Locate(page, ".does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "€12,50", text)
}

func TestLocate_BodyFallbackSymbolPriority(t *testing.T) {
	page := &fakePage{body: "Shipping from €4.50, yours for just $12.34 today"}

	text, err := Locate(page, "")
	require.NoError(t, err)
	// "$" patterns are tried before "€" regardless of position in the body.
	assert.Equal(t, "$12.34", text)
}

func TestLocate_NothingFound(t *testing.T) {
	page := &fakePage{body: "nothing for sale here"}

	_, err := Locate(page, "")
	assert.ErrorIs(t, err, ErrExtractionNotFound)
}

func TestLocate_BodyReadFailure(t *testing.T) {
	page := &fakePage{bodyErr: errors.New("read timed out")}

	_, err := Locate(page, "")
	assert.ErrorIs(t, err, ErrExtractionNotFound)
}
