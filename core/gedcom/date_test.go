package gedcom

import "testing"

func TestSortableDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12 MAY 1875", "1875-05-12", true},
		{"MAY 1875", "1875-05-00", true},
		{"1875", "1875-00-00", true},
		{"abt 1850", "1850-00-00", true},
		{"BEF 3 JAN 1900", "1900-01-03", true},
		{"AFT 1900", "1900-00-00", true},
		{"EST 1700", "1700-00-00", true},
		{"BET 1900 AND 1910", "1900-00-00", true},
		{"FROM 2 FEB 1801 TO 1805", "1801-02-02", true},
		{"11 FEB 1750/51", "1750-02-11", true},
		{"@#DGREGORIAN@ 1 JAN 1800", "1800-01-01", true},
		{"INT 1901 (mentre la guerra)", "1901-00-00", true},
		{"1875-05-12", "1875-05-12", true},
		{"@#DHEBREW@ 1 TSH 5600", "", false},
		{"(desconeguda)", "", false},
		{"", "", false},
		{"never", "", false},
	}
	for _, tc := range cases {
		got, ok := SortableDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("SortableDate(%q) = %q,%v; esperava %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSortYear(t *testing.T) {
	if y := SortYear("1875-05-12"); y != 1875 {
		t.Fatalf("any incorrecte: %d", y)
	}
	if y := SortYear(""); y != 0 {
		t.Fatalf("esperava 0, tinc %d", y)
	}
}

func TestParseName(t *testing.T) {
	cases := []struct {
		in                     string
		given, surname, suffix string
		full                   string
	}{
		{"John William /Smith/", "John William", "Smith", "", "John William Smith"},
		{"Joan /Puig i Serra/ Jr.", "Joan", "Puig i Serra", "Jr.", "Joan Puig i Serra Jr."},
		{"/Anònim/", "", "Anònim", "", "Anònim"},
		{"Maria", "Maria", "", "", "Maria"},
		{"  Pere   /Vila/", "Pere", "Vila", "", "Pere Vila"},
	}
	for _, tc := range cases {
		n := ParseName(tc.in)
		if n.Given != tc.given || n.Surname != tc.surname || n.Suffix != tc.suffix || n.Full != tc.full {
			t.Fatalf("ParseName(%q) = %+v", tc.in, n)
		}
	}
}

func TestCustomCode(t *testing.T) {
	if got := CustomCode("Military  Service!"); got != "custom:military_service" {
		t.Fatalf("codi inesperat: %s", got)
	}
	if got := CustomCode("***"); got != "custom:event" {
		t.Fatalf("codi inesperat: %s", got)
	}
}
