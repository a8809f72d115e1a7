package listing

import (
	"regexp"
	"strconv"
	"strings"
)

// thousandsDotPattern matches dot-grouped integers such as "1.200" or
// "12.500.000", the common Czech/Slovak thousands formatting
var thousandsDotPattern = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// ParsePrice extracts a numeric value from source price text. Prices arrive
// as "1 200 €", "12.500 Kč" or "4,50 €"; spaces (including NBSP) group
// thousands, a comma is the decimal separator, a dot is a thousands
// separator when it groups triplets. Placeholder texts like "Dohodou"
// (price by agreement) carry no digits and report ok=false.
func ParsePrice(text string) (value float64, ok bool) {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	if strings.Contains(cleaned, ",") {
		// comma decimal, dots can only be thousands grouping
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		if strings.Count(cleaned, ",") > 1 {
			return 0, false
		}
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else if thousandsDotPattern.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
