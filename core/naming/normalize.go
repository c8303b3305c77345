package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// KnownExtensions lists the extensions stripped before comparison.
// Anything else after a dot is treated as part of the name ("v1.5").
var KnownExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".json": true,
	".txt":  true,
}

// RarityCodes are the short words accepted as a rarity suffix after a separator.
// Free-form words are never stripped, so "gold_hat" keeps its "hat".
var RarityCodes = []string{
	"common", "uncommon", "rare", "superrare", "ultrarare", "epic",
	"legendary", "mythic", "mythical", "ssr", "sr", "ur",
}

var raritySuffix = regexp.MustCompile(
	`\s*[#_\-]\s*(\d+|` + strings.Join(RarityCodes, "|") + `)\s*$`,
)

// Normalize canonicalizes a trait value, category or layer filename so that
// two spellings of the same trait compare equal.
//
// The steps are: compose to NFC (file systems may store names decomposed),
// lower-case, strip a known extension, strip trailing rarity
// suffixes ("-07", "#12", "_rare"), then drop every rune that is not a
// letter or digit. Digits that do not follow a separator are kept, so
// "Trait99" and "Trait" stay distinct. The result may be empty.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFC.String(raw)))
	s = stripExtension(s)
	s = stripSuffixes(s)
	return compact(s)
}

// CategoryKey is the canonical form used to partition layers by category.
func CategoryKey(raw string) string {
	return Normalize(raw)
}

func stripExtension(s string) string {
	ext := filepath.Ext(s)
	if ext == "" || ext == s || !KnownExtensions[ext] {
		return s
	}
	return strings.TrimSpace(strings.TrimSuffix(s, ext))
}

// stripSuffixes removes rarity suffixes right to left ("red_rare#50" -> "red").
// A strip that would leave nothing meaningful is not applied.
func stripSuffixes(s string) string {
	for {
		loc := raritySuffix.FindStringIndex(s)
		if loc == nil {
			return s
		}
		rest := s[:loc[0]]
		if compact(rest) == "" {
			return s
		}
		s = rest
	}
}

func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
