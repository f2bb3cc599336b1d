package provider

import "strings"

// DefaultCountryCode replaces a leading national trunk prefix.
const DefaultCountryCode = "233"

// NormalizePhone converts a phone number to the international form the gateway expects:
// separators and a leading '+' are dropped and a national leading '0' becomes the country code.
func NormalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	cleaned = strings.TrimPrefix(cleaned, "+")
	if strings.HasPrefix(cleaned, "0") {
		cleaned = DefaultCountryCode + strings.TrimPrefix(cleaned, "0")
	}
	return cleaned
}
