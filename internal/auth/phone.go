package auth

import (
	"fmt"
	"strings"
)

const (
	// DefaultDialCode is used when no country was selected.
	DefaultDialCode = "7"
	minLocalDigits  = 10
)

// Country is a selectable dial code.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DialCode string `json:"dial_code"`
	Emoji    string `json:"emoji"`
}

// Countries lists the dial codes offered for manual entry, default first.
var Countries = []Country{
	{Code: "RU", Name: "Russia", DialCode: "+7", Emoji: "🇷🇺"},
	{Code: "UA", Name: "Ukraine", DialCode: "+380", Emoji: "🇺🇦"},
	{Code: "BY", Name: "Belarus", DialCode: "+375", Emoji: "🇧🇾"},
	{Code: "KZ", Name: "Kazakhstan", DialCode: "+7", Emoji: "🇰🇿"},
	{Code: "US", Name: "United States", DialCode: "+1", Emoji: "🇺🇸"},
	{Code: "GB", Name: "United Kingdom", DialCode: "+44", Emoji: "🇬🇧"},
	{Code: "DE", Name: "Germany", DialCode: "+49", Emoji: "🇩🇪"},
	{Code: "FR", Name: "France", DialCode: "+33", Emoji: "🇫🇷"},
	{Code: "IT", Name: "Italy", DialCode: "+39", Emoji: "🇮🇹"},
	{Code: "ES", Name: "Spain", DialCode: "+34", Emoji: "🇪🇸"},
}

// NormalizeDigits drops every non-digit character.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ManualPhone builds the canonical phone from a dial code and local digits.
// Local digits are stripped of separators and must number at least ten.
func ManualPhone(dialCode, local string) (string, error) {
	digits := NormalizeDigits(local)
	if len(digits) < minLocalDigits {
		return "", ErrInvalidPhoneFormat
	}
	code := NormalizeDigits(dialCode)
	if code == "" {
		code = DefaultDialCode
	}
	return code + digits, nil
}

// FormatPhoneForDisplay renders 11-digit Russian numbers as +7 999 123-45-67
// and returns anything else unchanged.
func FormatPhoneForDisplay(phone string) string {
	d := NormalizeDigits(phone)
	if len(d) == 11 && strings.HasPrefix(d, "7") {
		return fmt.Sprintf("+7 %s %s-%s-%s", d[1:4], d[4:7], d[7:9], d[9:11])
	}
	return phone
}
