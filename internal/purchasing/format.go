package purchasing

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is appended to every formatted amount.
const Currency = "FCFA"

var printer = message.NewPrinter(language.French)

// FormatAmount renders an amount French-style, rounded to the unit:
// 160000 becomes "160 000 FCFA".
func FormatAmount(d decimal.Decimal) string {
	return FormatNumber(d.Round(0).IntPart()) + " " + Currency
}

// FormatNumber groups digits by thousands with plain spaces.
func FormatNumber(n int64) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, printer.Sprintf("%d", n))
}
