package db

import (
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func TestSQLHelperPlaceholders(t *testing.T) {
	cases := map[string]string{
		"sqlite":   "tree = ?",
		"mysql":    "tree = ?",
		"postgres": "tree = $1",
		"POSTGRES": "tree = $1",
	}
	for style, want := range cases {
		h := newSQLHelper(nil, style, "NOW()")
		query, args, err := h.sb.Select("id").From("individuals").Where(sq.Eq{"tree": "arbre-1"}).ToSql()
		if err != nil {
			t.Fatalf("%s: no s'ha pogut construir la consulta: %v", style, err)
		}
		if !strings.Contains(query, want) {
			t.Fatalf("%s: esperava %q a %q", style, want, query)
		}
		if len(args) != 1 || args[0] != "arbre-1" {
			t.Fatalf("%s: arguments inesperats %v", style, args)
		}
	}
}
