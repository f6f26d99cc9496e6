// Package currency parses and renders the monetary amounts typed into
// currency fields of a record edit form.
//
// Input is forgiving: a decimal comma is accepted, trailing text is ignored
// and anything unreadable becomes zero. Amounts are kept as decimals rounded
// to cents so values never pick up binary float noise.
package currency

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the suffix shown after an amount.
type Currency string

const (
	Euro   Currency = "€"
	Dollar Currency = "$"
	Pound  Currency = "£"
)

// ParseCurrency accepts a symbol or an ISO 4217 code (EUR, USD, GBP).
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "€", "EUR", "":
		return Euro, nil
	case "$", "USD":
		return Dollar, nil
	case "£", "GBP":
		return Pound, nil
	default:
		return "", fmt.Errorf("unknown currency %q", s)
	}
}

// Amount is a monetary value rounded to two decimal places.
type Amount struct {
	d decimal.Decimal
}

// Zero is the amount used for empty or unreadable input.
var Zero = Amount{d: decimal.Zero}

var leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)

// Parse reads user input. The first comma is read as the decimal point and
// the longest leading number is used, so "12,5 €" reads as 12.50.
func Parse(text string) Amount {
	s := strings.Replace(strings.TrimSpace(text), ",", ".", 1)
	m := leadingNumber.FindString(s)
	if m == "" {
		return Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(m, "."))
	if err != nil {
		return Zero
	}
	return Amount{d: d.Round(2)}
}

// FromFloat converts a stored number to an amount.
func FromFloat(f float64) Amount {
	return Amount{d: decimal.NewFromFloat(f).Round(2)}
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Float64 returns the amount as a float for storage in a record.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// String renders the amount with exactly two decimals ("12.50").
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// Display renders the amount followed by the currency suffix ("12.50 €").
func (a Amount) Display(c Currency) string {
	if c == "" {
		return a.String()
	}
	return a.String() + " " + string(c)
}

// Validator rejects amounts at or above an exclusive maximum.
type Validator struct {
	Max     decimal.Decimal
	Message string
}

// NewValidator builds a Validator; an empty message uses a default.
func NewValidator(max float64, message string) Validator {
	if message == "" {
		message = "Montant non valide."
	}
	return Validator{Max: decimal.NewFromFloat(max), Message: message}
}

// Validate returns the error message for text, or "" when it is accepted.
func (v Validator) Validate(text string) string {
	if Parse(text).d.GreaterThanOrEqual(v.Max) {
		return v.Message
	}
	return ""
}
