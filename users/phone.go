package users

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone returns raw in E.164 form. Numbers without a country prefix
// are read in region. Empty input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", invalidPhoneError(raw)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", invalidPhoneError(raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
