package domain

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormat renders amounts in a currency with no fractional digits
type MoneyFormat struct {
	Locale   language.Tag
	Currency currency.Unit
}

// DefaultMoney formats Colombian pesos the way the cafeteria displays them
var DefaultMoney = MoneyFormat{Locale: language.MustParse("es-CO"), Currency: currency.MustParseISO("COP")}

// NewMoneyFormat parses a BCP 47 locale and an ISO 4217 code, falling back to DefaultMoney parts
func NewMoneyFormat(locale, code string) MoneyFormat {
	f := DefaultMoney
	if tag, err := language.Parse(locale); err == nil {
		f.Locale = tag
	}
	if unit, err := currency.ParseISO(code); err == nil {
		f.Currency = unit
	}
	return f
}

// Format rounds the amount to a whole unit and groups digits per the locale
func (f MoneyFormat) Format(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	p := message.NewPrinter(f.Locale)
	return p.Sprintf("%v %d", currency.NarrowSymbol(f.Currency), int64(math.Round(amount)))
}
