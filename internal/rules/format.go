package rules

import (
	"context"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
)

var printer = message.NewPrinter(language.English)

// money formats an amount with thousands separators and the configured
// currency code, e.g. "NGN 600,000.00".
func (e *Evaluator) money(ctx context.Context, amount float64) string {
	code := e.config.String(ctx, configstore.KeyCurrencyCode, DefaultCurrencyCode)
	return code + " " + printer.Sprintf("%.2f", amount)
}

// number formats a multiplier without trailing zeros, e.g. "3" or "2.5".
func number(f float64) string {
	s := printer.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
