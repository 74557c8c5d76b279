package utils

import (
	"strings"
)

// NormalizeTicker normalizes user input to the registry ticker format:
// trimmed, uppercased, with any "$" prefix removed. Class-share separators
// are left as typed.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// ToProviderSymbol converts a registry ticker to the provider form. Class
// shares are written with a dot there ("BRK-B" -> "BRK.B").
func ToProviderSymbol(ticker string) string {
	return strings.ReplaceAll(NormalizeTicker(ticker), "-", ".")
}

// FromProviderSymbol converts a provider symbol back to the registry form.
// Index symbols ("^GSPC") pass through.
func FromProviderSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "^") {
		return symbol
	}
	return strings.ReplaceAll(symbol, ".", "-")
}

// SplitSymbols parses a comma separated symbol list, normalizing and
// de-duplicating while preserving first-seen order.
func SplitSymbols(csv string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(csv, ",") {
		s := NormalizeTicker(part)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
