package money

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const CurrencySymbol = "R"

var printer = message.NewPrinter(language.English)

// Round2 rounds half away from zero to cents.
func Round2(value float64) float64 {
	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// FormatCurrency renders an amount as "R 12,345.67".
func FormatCurrency(amount float64) string {
	rounded := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	return sign + CurrencySymbol + " " + printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(2)))
}

// DateInWords renders a date as "17 October 2026".
func DateInWords(t time.Time) string {
	return t.Format("2 January 2006")
}

// MonthsElapsed counts the monthly periods that have started between start
// and now, the first period included. It is 0 before start.
func MonthsElapsed(start, now time.Time) int {
	if start.IsZero() || now.Before(start) {
		return 0
	}

	months := (now.Year()-start.Year())*12 + int(now.Month()-start.Month())
	if now.Day() < start.Day() {
		months--
	}

	return int(math.Max(0, float64(months))) + 1
}
