// Package money formats currency amounts and quantities for display. The
// locale/currency pairing is fixed at startup; formatting is presentation
// only and never feeds back into payloads sent to the remote store.
package money

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts in a single locale/currency pairing.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// New constructs a Formatter for the given BCP 47 locale and ISO 4217 code.
func New(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("money: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("money: parse currency %q: %w", code, err)
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Amount renders a currency value with symbol prefix and two decimals.
func (f *Formatter) Amount(v float64) string {
	return f.printer.Sprintf("%v", currency.Symbol(f.unit.Amount(v)))
}

// Quantity renders a unit quantity without a currency symbol. Whole numbers
// drop the fraction entirely.
func (f *Formatter) Quantity(v float64) string {
	return f.printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(0),
		number.MaxFractionDigits(3),
	))
}

// Code returns the ISO currency code in use.
func (f *Formatter) Code() string {
	return f.unit.String()
}
