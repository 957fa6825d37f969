package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var supportedRegions = []string{
	"IL",
	"US",
}

func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// NormalizeContactRef canonicalizes a chat contact reference. Refs that
// parse as phone numbers become E.164 so the same customer always keys to
// the same partition; anything else just gets its whitespace cleaned.
func NormalizeContactRef(ref string) string {
	if normalized := NormalizePhone(ref); normalized != "" {
		return normalized
	}
	return TrimAndNormalize(ref)
}
