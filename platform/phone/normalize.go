// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "US"

const whatsappPrefix = "whatsapp:"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	number, ok := parse(input)
	if !ok {
		return strings.TrimSpace(stripChannelPrefix(input))
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses to a valid number.
func IsValid(input string) bool {
	_, ok := parse(input)
	return ok
}

// Digits returns the E.164 form without the leading plus, as gateways expect.
func Digits(input string) string {
	return strings.TrimPrefix(NormalizeE164(input), "+")
}

func parse(input string) (*phonenumbers.PhoneNumber, bool) {
	trimmed := strings.TrimSpace(stripChannelPrefix(input))
	if trimmed == "" {
		return nil, false
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}

// stripChannelPrefix removes the "whatsapp:" scheme providers put on addresses.
func stripChannelPrefix(input string) string {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) >= len(whatsappPrefix) && strings.EqualFold(trimmed[:len(whatsappPrefix)], whatsappPrefix) {
		return trimmed[len(whatsappPrefix):]
	}
	return trimmed
}
