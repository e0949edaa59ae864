package boundary

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// idSuffixLen is how many leading digits of the relation id are appended to
// an area id. It lowers the chance of two areas sharing a name colliding.
const idSuffixLen = 4

var stopWords = map[string]struct{}{
	"province": {}, "Province": {},
	"district": {}, "District": {},
	"division": {}, "Division": {},
	"region": {}, "Region": {},
	"state": {}, "State": {},
}

// CleanName removes administrative words so that "Central Province" becomes
// "Central". Whitespace runs collapse to a single space. CleanName is idempotent.
func CleanName(name string) string {
	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// MakeID builds an area id from an English name and the relation id:
// diacritics are stripped, remaining non-ASCII runes become '?', spaces
// become underscores, then "_" and the first four digits of the id follow.
func MakeID(name string, relationID int64) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded) + idSuffixLen + 1)
	for _, r := range folded {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r > unicode.MaxASCII:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}

	suffix := strconv.FormatInt(relationID, 10)
	if len(suffix) > idSuffixLen {
		suffix = suffix[:idSuffixLen]
	}
	b.WriteByte('_')
	b.WriteString(suffix)

	return b.String()
}
