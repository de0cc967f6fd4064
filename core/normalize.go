package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacritics, s)
	if err != nil {
		return s
	}
	return out
}

// surnameKey genera la clau de cerca d'un cognom: sense accents, sense
// signes i en majúscules. "Puig-Ferrer" i "puig ferrer" donen PUIGFERRER.
func surnameKey(s string) string {
	return nameKey(s)
}

// givenKey és l'equivalent per als noms de pila.
func givenKey(s string) string {
	return nameKey(s)
}

func nameKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = stripDiacritics(strings.ToLower(s))
	s = strings.NewReplacer("’", "", "'", "", "·", "", "-", " ", ".", " ", ",", " ").Replace(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}
