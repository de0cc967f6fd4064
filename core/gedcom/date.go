package gedcom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

var gedcomMonths = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var dateModifiers = []string{"ABT", "ABOUT", "CAL", "EST", "BEF", "AFT", "INT", "FROM", "TO", "BET", "BEFORE", "AFTER", "CIRCA", "C."}

// SortableDate converteix una data GEDCOM a "AAAA-MM-DD", amb zeros a les
// parts desconegudes. Els modificadors s'ignoren i dels rangs es pren la
// primera data. Retorna fals si no se'n pot treure cap any.
func SortableDate(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "@#D") {
		end := strings.Index(s[1:], "@")
		if end < 0 {
			return "", false
		}
		cal := s[3 : end+1]
		if cal != "GREGORIAN" && cal != "JULIAN" {
			return "", false
		}
		s = strings.TrimSpace(s[end+2:])
	}
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = firstOfRange(s)
	s = stripDateModifier(s)
	if s == "" {
		return "", false
	}
	if out, ok := parseGedcomDate(s); ok {
		return out, true
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func firstOfRange(s string) string {
	if strings.HasPrefix(s, "BET ") {
		s = strings.TrimPrefix(s, "BET ")
		if i := strings.Index(s, " AND "); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "FROM ") {
		s = strings.TrimPrefix(s, "FROM ")
		if i := strings.Index(s, " TO "); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	return s
}

func stripDateModifier(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 {
		stripped := false
		for _, mod := range dateModifiers {
			if fields[0] == mod {
				fields = fields[1:]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(fields, " ")
}

// parseGedcomDate accepta "D MON AAAA", "MON AAAA" i "AAAA", amb anys dobles
// (1750/51).
func parseGedcomDate(s string) (string, bool) {
	fields := strings.Fields(s)
	day, month, year := 0, 0, 0
	switch len(fields) {
	case 1:
		y, ok := parseYear(fields[0])
		if !ok {
			return "", false
		}
		year = y
	case 2:
		m, ok := gedcomMonths[fields[0]]
		if !ok {
			return "", false
		}
		y, ok := parseYear(fields[1])
		if !ok {
			return "", false
		}
		month, year = m, y
	case 3:
		d, err := strconv.Atoi(fields[0])
		if err != nil || d < 1 || d > 31 {
			return "", false
		}
		m, ok := gedcomMonths[fields[1]]
		if !ok {
			return "", false
		}
		y, ok := parseYear(fields[2])
		if !ok {
			return "", false
		}
		day, month, year = d, m, y
	default:
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func parseYear(s string) (int, bool) {
	if i := strings.Index(s, "/"); i > 0 {
		s = s[:i]
	}
	if len(s) == 0 || len(s) > 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

// SortYear retorna l'any d'una data ordenable o 0.
func SortYear(sortable string) int {
	if len(sortable) < 4 {
		return 0
	}
	y, err := strconv.Atoi(sortable[:4])
	if err != nil {
		return 0
	}
	return y
}
