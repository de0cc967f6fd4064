package gedcom

import "strings"

// ParseName separa un valor NAME de la forma "Nom /Cognom/ Sufix".
func ParseName(value string) PersonalName {
	value = strings.TrimSpace(value)
	if value == "" {
		return PersonalName{}
	}
	var n PersonalName
	if i := strings.Index(value, "/"); i >= 0 {
		n.Given = collapseSpaces(value[:i])
		rest := value[i+1:]
		if j := strings.Index(rest, "/"); j >= 0 {
			n.Surname = collapseSpaces(rest[:j])
			n.Suffix = collapseSpaces(strings.ReplaceAll(rest[j+1:], "/", " "))
		} else {
			n.Surname = collapseSpaces(rest)
		}
	} else {
		n.Given = collapseSpaces(value)
	}
	n.Full = n.Compose()
	return n
}

// Compose reconstrueix el nom complet a partir de les parts.
func (n PersonalName) Compose() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{n.Prefix, n.Given, n.SurnamePrefix, n.Surname, n.Suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseName llegeix NAME i els seus fills GIVN/SURN/NPFX/NSFX/SPFX/NICK.
func (p *parser) parseName(tok Token) (PersonalName, error) {
	n := ParseName(tok.Value)
	fromValue := n
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "GIVN":
			n.Given = c.Text()
		case "SURN":
			n.Surname = c.Text()
		case "NPFX":
			n.Prefix = c.Text()
		case "NSFX":
			n.Suffix = c.Text()
		case "SPFX":
			n.SurnamePrefix = c.Text()
			if strings.HasPrefix(n.Surname, n.SurnamePrefix+" ") {
				n.Surname = strings.TrimPrefix(n.Surname, n.SurnamePrefix+" ")
			}
		case "NICK":
			n.Nickname = c.Text()
		case "TYPE", "SOUR", "NOTE", "FONE", "ROMN":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	if n.Given == "" {
		n.Given = fromValue.Given
	}
	if n.Surname == "" {
		n.Surname = fromValue.Surname
	}
	n.Full = n.Compose()
	return n, err
}
