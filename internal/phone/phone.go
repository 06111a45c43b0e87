// Package phone converts user-entered phone numbers into the canonical
// international form used as the durable key for identities, PINs and
// the last-seen record.
package phone

import (
	"strings"

	"github.com/example/zinco/internal/apperrors"
)

const (
	// CountryCode replaces the local trunk prefix.
	CountryCode = "66"

	minDigits = 10
	maxDigits = 15
)

// Normalize returns raw in canonical form, e.g. "0812345678" -> "66812345678".
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.Wrap(apperrors.ErrMissingInput, "phone number is required")
	}

	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case isSeparator(r):
		default:
			return "", apperrors.Wrapf(apperrors.ErrInvalidFormat, "unexpected character %q", r)
		}
	}

	cleaned := digits.String()
	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = CountryCode + cleaned[1:]
	case !strings.HasPrefix(cleaned, CountryCode):
		cleaned = CountryCode + cleaned
	}

	if len(cleaned) < minDigits || len(cleaned) > maxDigits {
		return "", apperrors.Wrapf(apperrors.ErrInvalidFormat, "%d digits", len(cleaned))
	}

	return cleaned, nil
}

// Suffix returns the last n digits of a phone number.
func Suffix(phone string, n int) string {
	if len(phone) <= n {
		return phone
	}
	return phone[len(phone)-n:]
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '-', '(', ')', '+', '.':
		return true
	}
	return false
}
