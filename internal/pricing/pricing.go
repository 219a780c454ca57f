// Package pricing normalizes raw scraped price text into an exact decimal
// amount and a currency code. Amounts are kept as decimals end to end so a
// price history never accumulates binary floating-point drift.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyInput is returned when the raw text is blank.
var ErrEmptyInput = errors.New("empty price text")

// ParseError is returned when no numeric value can be recovered from the
// text. It carries both the original and the cleaned string for diagnostics,
// since site markup is untrusted and failures need to be traceable.
type ParseError struct {
	Raw     string
	Cleaned string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no numeric value in %q (cleaned %q)", e.Raw, e.Cleaned)
}

// ParsedPrice is a normalized price observation candidate.
type ParsedPrice struct {
	Amount   decimal.Decimal
	Currency string
}

// currencySymbols maps symbols to ISO codes. A slice keeps the scan order
// fixed: the first symbol present in the text wins.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

var (
	// numberRun matches the first maximal run of a digit followed by
	// digits, separators, and (non-breaking) spaces.
	numberRun  = regexp.MustCompile(`[0-9][0-9.,\s\x{00a0}]*`)
	nonNumeric = regexp.MustCompile(`[^0-9.,]`)
)

// Parse extracts a currency code and exact decimal amount from raw page
// text. When no known currency symbol appears the currency defaults to USD.
func Parse(raw string) (ParsedPrice, error) {
	if strings.TrimSpace(raw) == "" {
		return ParsedPrice{}, ErrEmptyInput
	}

	currency := "USD"
	for _, cs := range currencySymbols {
		if strings.Contains(raw, cs.symbol) {
			currency = cs.code
			break
		}
	}

	run := numberRun.FindString(raw)
	if run == "" {
		return ParsedPrice{}, &ParseError{Raw: raw}
	}

	amount, err := normalizeNumber(raw, run)
	if err != nil {
		return ParsedPrice{}, err
	}

	return ParsedPrice{Amount: amount, Currency: currency}, nil
}

// normalizeNumber turns a matched numeric run into a decimal, resolving the
// decimal-point/thousands-separator ambiguity with a locale-agnostic
// heuristic:
//   - both "," and "." present: the separator appearing last is the decimal
//     point, the other is a thousands separator ("1,234.56" and "1.234,56"
//     both mean 1234.56)
//   - only "," present: "," is the decimal point
//   - only "." or neither: unchanged
func normalizeNumber(raw, run string) (decimal.Decimal, error) {
	s := nonNumeric.ReplaceAllString(run, "")

	hasComma := strings.Contains(s, ",")
	hasPeriod := strings.Contains(s, ".")
	switch {
	case hasComma && hasPeriod:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Raw: raw, Cleaned: s}
	}
	return amount, nil
}
