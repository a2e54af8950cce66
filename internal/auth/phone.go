package auth

import (
	"fmt"
	"strings"
)

// NormalizePhone converts user input to E.164. Bare 10-digit numbers are
// assumed to be US/Canada. Rejection here is a client-side validation
// failure and happens before any backend work.
func NormalizePhone(input string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	hasPlus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	if digits == "" {
		return "", fmt.Errorf("phone number is required")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number contains invalid characters")
		}
	}

	if !hasPlus {
		switch {
		case len(digits) == 10:
			digits = "1" + digits
		case len(digits) == 11 && strings.HasPrefix(digits, "1"):
			// already has US country code
		default:
			return "", fmt.Errorf("phone number must include a country code")
		}
	}

	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("phone number must have 8 to 15 digits")
	}
	return "+" + digits, nil
}
