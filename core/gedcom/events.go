package gedcom

import (
	"strings"
	"unicode"
)

// individualEvents és el vocabulari d'esdeveniments i atributs de persona.
var individualEvents = map[string]string{
	"BIRT": "birth",
	"CHR":  "christening",
	"DEAT": "death",
	"BURI": "burial",
	"CREM": "cremation",
	"ADOP": "adoption",
	"BAPM": "baptism",
	"BARM": "bar_mitzvah",
	"BASM": "bas_mitzvah",
	"BLES": "blessing",
	"CHRA": "adult_christening",
	"CONF": "confirmation",
	"FCOM": "first_communion",
	"ORDN": "ordination",
	"NATU": "naturalization",
	"EMIG": "emigration",
	"IMMI": "immigration",
	"CENS": "census",
	"PROB": "probate",
	"WILL": "will",
	"GRAD": "graduation",
	"RETI": "retirement",
	"EVEN": "event",
	"FACT": "fact",
	"RESI": "residence",
	"OCCU": "occupation",
	"EDUC": "education",
	"RELI": "religion",
	"NATI": "nationality",
	"TITL": "title",
	"CAST": "caste",
	"DSCR": "description",
	"IDNO": "id_number",
	"NCHI": "children_count",
	"NMR":  "marriage_count",
	"PROP": "property",
	"SSN":  "ssn",
	"BAPL": "lds_baptism",
	"CONL": "lds_confirmation",
	"ENDL": "lds_endowment",
	"SLGC": "lds_child_sealing",
}

// familyEvents és el vocabulari d'esdeveniments de família.
var familyEvents = map[string]string{
	"ANUL": "annulment",
	"CENS": "census",
	"DIV":  "divorce",
	"DIVF": "divorce_filed",
	"ENGA": "engagement",
	"MARB": "marriage_banns",
	"MARC": "marriage_contract",
	"MARR": "marriage",
	"MARL": "marriage_license",
	"MARS": "marriage_settlement",
	"RESI": "residence",
	"EVEN": "event",
	"FACT": "fact",
	"SLGS": "lds_spouse_sealing",
}

// EventCode retorna el codi estàndard d'una etiqueta d'esdeveniment.
func EventCode(ownerTag, tag string) (string, bool) {
	if ownerTag == "FAM" {
		code, ok := familyEvents[tag]
		return code, ok
	}
	code, ok := individualEvents[tag]
	return code, ok
}

// CustomCode genera el codi sintètic d'un tipus d'esdeveniment propi. Sempre
// porta el prefix "custom:" i per tant no pot coincidir amb un codi estàndard.
func CustomCode(label string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		slug = "event"
	}
	return "custom:" + slug
}

func (p *parser) registerCustom(code, label string) {
	if p.doc.CustomEventTypes == nil {
		p.doc.CustomEventTypes = map[string]string{}
	}
	if _, ok := p.doc.CustomEventTypes[code]; !ok {
		p.doc.CustomEventTypes[code] = label
	}
}

// isEventTag indica si tag s'ha de tractar com a esdeveniment del registre.
func (p *parser) isEventTag(ownerTag, tag string) bool {
	if _, ok := EventCode(ownerTag, tag); ok {
		return true
	}
	return p.opts.AllEvents && strings.HasPrefix(tag, "_") && len(tag) > 1
}

// parseEvent llegeix un esdeveniment i el seu detall.
func (p *parser) parseEvent(ownerTag string, tok Token) (Event, error) {
	ev := Event{Tag: tok.Tag, Value: tok.Text(), Line: tok.Line}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "DATE":
			ev.Date = c.Text()
		case "PLAC":
			return p.parsePlace(c, &ev)
		case "TYPE":
			ev.TypeLabel = c.Text()
		case "AGE":
			ev.Age = c.Text()
		case "CAUS":
			ev.Cause = c.Text()
		case "AGNC":
			ev.Agency = c.Text()
		case "ADDR":
			addr, err := p.parseAddress(c)
			ev.Address = addr.Text
			return err
		case "SOUR":
			cit, err := p.parseCitation(c)
			if cit != nil {
				ev.Citations = append(ev.Citations, *cit)
			}
			return err
		case "NOTE":
			ref, err := p.parseNoteRef(c)
			ev.Notes = append(ev.Notes, ref)
			return err
		case "OBJE":
			ref, err := p.parseMediaRef(c)
			if ref != nil {
				ev.Media = append(ev.Media, *ref)
			}
			return err
		case "HUSB", "WIFE", "FAMC", "PHON", "EMAIL", "WWW", "RESN", "RELI", "CHAN":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	if err != nil {
		return ev, err
	}

	if ev.Date != "" {
		if sortable, ok := SortableDate(ev.Date); ok {
			ev.DateSort = sortable
		} else {
			p.diag.Addf(WarnBadDate, tok.Line, p.s.record, "data no interpretable: %q", ev.Date)
		}
	}

	code, standard := EventCode(ownerTag, tok.Tag)
	switch {
	case !standard:
		label := strings.TrimPrefix(tok.Tag, "_")
		if ev.TypeLabel != "" {
			label = ev.TypeLabel
		}
		ev.Code = CustomCode(label)
		ev.Custom = true
		p.registerCustom(ev.Code, label)
	case (tok.Tag == "EVEN" || tok.Tag == "FACT") && ev.TypeLabel != "":
		ev.Code = CustomCode(ev.TypeLabel)
		ev.Custom = true
		p.registerCustom(ev.Code, ev.TypeLabel)
	default:
		ev.Code = code
	}
	return ev, nil
}

// parsePlace llegeix PLAC amb les coordenades opcionals MAP/LATI/LONG.
func (p *parser) parsePlace(tok Token, ev *Event) error {
	ev.Place = tok.Text()
	return p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "MAP", "_MAP":
			return p.s.children(c.Level, func(m Token) error {
				switch m.Tag {
				case "LATI":
					ev.Latitude = normalizeCoordinate(m.Text(), 'N', 'S')
				case "LONG":
					ev.Longitude = normalizeCoordinate(m.Text(), 'E', 'W')
				}
				return nil
			})
		case "FORM", "FONE", "ROMN", "NOTE", "SOUR":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
}

// normalizeCoordinate converteix "N41.38" o "W2.17" a decimal amb signe.
func normalizeCoordinate(v string, pos, neg byte) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return ""
	}
	switch v[0] {
	case pos:
		return strings.TrimSpace(v[1:])
	case neg:
		n := strings.TrimSpace(v[1:])
		if strings.HasPrefix(n, "-") {
			return n
		}
		return "-" + n
	}
	return v
}
