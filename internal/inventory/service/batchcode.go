package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// batchCodePrefixFallback is used when a title yields no alphabetic words.
const batchCodePrefixFallback = "PROD"

// BatchCode derives a stable, human-readable lot code from a product title,
// its lot sequence position and the creation date:
// up to the first three words each contribute their first two letters
// (capitalized, then lower-cased), joined with the sequence position and
// the date as {Prefix}-{Sequence}-{DDMMYYYY}.
func BatchCode(title string, sequence int, date time.Time) string {
	var prefix strings.Builder

	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}

	for _, word := range words {
		letters := make([]rune, 0, len(word))
		for _, r := range word {
			if unicode.IsLetter(r) {
				letters = append(letters, r)
			}
		}
		if len(letters) == 0 {
			continue
		}

		prefix.WriteRune(unicode.ToUpper(letters[0]))
		if len(letters) > 1 {
			prefix.WriteRune(unicode.ToLower(letters[1]))
		}
	}

	code := prefix.String()
	if code == "" {
		code = batchCodePrefixFallback
	}

	return fmt.Sprintf("%s-%d-%s", code, sequence, date.Format("02012006"))
}
