package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are stripped during normalization so "Acme GmbH" and
// "Acme" compare equal. Matched case-insensitively against the last token.
var legalSuffixes = map[string]bool{
	"ltd": true, "limited": true, "inc": true, "incorporated": true,
	"llc": true, "llp": true, "plc": true, "corp": true, "corporation": true,
	"gmbh": true, "ag": true, "bv": true, "nv": true, "sa": true, "sas": true,
	"sarl": true, "srl": true, "spa": true, "ab": true, "as": true, "oy": true,
	"aps": true, "kk": true, "co": true, "company": true, "holdings": true,
	"group": true,
}

// Case folding first (so ß becomes ss), then strip combining marks.
var deaccent = transform.Chain(cases.Fold(), norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a company name for comparison and deduplication:
// diacritics removed, punctuation dropped, legal suffixes stripped, lowercase,
// single-spaced. "Süßwasser Technik GmbH" becomes "susswasser technik".
func NormalizeName(name string) string {
	flat, _, err := transform.String(deaccent, name)
	if err != nil {
		flat = name
	}

	var b strings.Builder
	for _, r := range flat {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == ',' || r == '&' || r == '/':
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
