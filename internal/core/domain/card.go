package domain

import (
	"regexp"
	"strings"
)

type CardBrand string

const (
	Visa       CardBrand = "VISA"
	Mastercard CardBrand = "MASTERCARD"
	Unknown    CardBrand = "UNKNOWN"
)

var (
	visaPattern       = regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)
	mastercardPattern = regexp.MustCompile(`^5[1-5][0-9]{14}$`)
)

// ValidateCard checks the Luhn digit and that the card is Visa or Mastercard.
func ValidateCard(number string) (bool, CardBrand) {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(number)

	if !passesLuhn(clean) {
		return false, Unknown
	}
	switch {
	case visaPattern.MatchString(clean):
		return true, Visa
	case mastercardPattern.MatchString(clean):
		return true, Mastercard
	}
	return false, Unknown
}

// MaskCard keeps the last four digits.
func MaskCard(number string) string {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(clean) <= 4 {
		return clean
	}
	return strings.Repeat("*", len(clean)-4) + clean[len(clean)-4:]
}

// passesLuhn implements the mod 10 check
func passesLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
