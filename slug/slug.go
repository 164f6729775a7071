// Package slug derives URL identifiers from post titles.
package slug

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Symbols spelled out in Italian before transliteration. Anything else
// outside ASCII goes through unidecode.
var symbols = map[rune]string{
	'&': "e",
	'$': "dollaro",
	'%': "percento",
	'¢': "centesimo",
	'£': "sterlina",
	'¥': "yen",
	'€': "euro",
	'©': "c",
	'®': "r",
	'™': "tm",
	'<': "minore",
	'>': "maggiore",
	'|': "o",
}

// Derive converts a title to a lowercase, ASCII, dash-separated slug using
// Italian locale rules. Non-Latin scripts are transliterated. Runs of
// anything other than letters and digits collapse to a single "-" and the
// result never starts or ends with one. A title with nothing that
// transliterates to a letter or digit yields "".
func Derive(title string) string {
	lower := cases.Lower(language.Italian).String(title)

	var spelled strings.Builder
	for _, r := range lower {
		if sub, ok := symbols[r]; ok {
			spelled.WriteString(sub)
			continue
		}
		spelled.WriteRune(r)
	}
	// unidecode keeps source case for some scripts (Han gives "Ri Ben Yu").
	s := strings.ToLower(unidecode.Unidecode(spelled.String()))

	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
