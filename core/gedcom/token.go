package gedcom

import "strings"

// Token és una línia lògica GEDCOM, ja amb les continuacions CONT/CONC
// incorporades al valor.
type Token struct {
	Level int
	XRef  string
	Tag   string
	Value string
	Line  int
}

// Pointer retorna l'identificador net si el valor és un punter @X@.
func (t Token) Pointer() (string, bool) {
	return PointerValue(t.Value)
}

// Text retorna el valor sense espais als extrems.
func (t Token) Text() string {
	return strings.TrimSpace(t.Value)
}

// PointerValue reconeix valors de la forma @I12@ i en retorna "I12".
func PointerValue(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 3 || raw[0] != '@' || raw[len(raw)-1] != '@' {
		return "", false
	}
	id := TrimXRef(raw)
	if id == "" || strings.ContainsAny(id, "@ ") {
		return "", false
	}
	return id, true
}

// TrimXRef normalitza una referència creuada: treu les arroves i els espais.
func TrimXRef(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "@")
	raw = strings.TrimSuffix(raw, "@")
	return strings.TrimSpace(raw)
}
