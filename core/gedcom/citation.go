package gedcom

import (
	"strconv"
	"strings"
	"time"
)

// parseCitation llegeix una cita SOUR. Amb punter és una cita a una font;
// sense punter és una font descrita en línia.
func (p *parser) parseCitation(tok Token) (*Citation, error) {
	cit := &Citation{Quality: -1, Line: tok.Line}
	if ref, ok := tok.Pointer(); ok {
		cit.SourceRef = ref
	} else {
		cit.Text = tok.Text()
	}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "PAGE":
			cit.Page = c.Text()
		case "QUAY":
			if q, err := strconv.Atoi(c.Text()); err == nil && q >= 0 && q <= 3 {
				cit.Quality = q
			}
		case "DATA":
			return p.s.children(c.Level, func(d Token) error {
				switch d.Tag {
				case "DATE":
					cit.Date = d.Text()
				case "TEXT":
					cit.Text = joinText(cit.Text, d.Value)
				}
				return nil
			})
		case "TEXT":
			cit.Text = joinText(cit.Text, c.Value)
		case "NOTE":
			if _, ok := c.Pointer(); !ok {
				cit.Note = joinText(cit.Note, c.Value)
			}
		case "EVEN", "ROLE", "OBJE":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	if cit.SourceRef == "" && cit.Text == "" {
		return nil, err
	}
	return cit, err
}

func (p *parser) parseNoteRef(tok Token) (NoteRef, error) {
	ref := NoteRef{Line: tok.Line}
	if id, ok := tok.Pointer(); ok {
		ref.Ref = id
	} else {
		ref.Text = strings.TrimRight(tok.Value, " ")
	}
	err := p.s.children(tok.Level, func(c Token) error {
		if c.Tag == "_PRIVATE" || c.Tag == "_SECRET" {
			ref.Secret = true
		}
		return nil
	})
	return ref, err
}

// parseMediaRef llegeix OBJE dins d'un registre: punter o objecte en línia.
func (p *parser) parseMediaRef(tok Token) (*MediaRef, error) {
	ref := &MediaRef{Line: tok.Line}
	if id, ok := tok.Pointer(); ok {
		ref.Ref = id
		return ref, p.s.skipSubtree(tok.Level)
	}
	m := &Media{Line: tok.Line}
	err := p.parseMediaBody(tok, m)
	if m.File == "" && m.Title == "" {
		return nil, err
	}
	ref.Inline = m
	return ref, err
}

func (p *parser) parseMediaBody(tok Token, m *Media) error {
	return p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "FILE":
			if m.File == "" {
				m.File = c.Text()
			}
			return p.s.children(c.Level, func(f Token) error {
				switch f.Tag {
				case "FORM":
					m.Format = strings.ToLower(f.Text())
				case "TITL":
					m.Title = f.Text()
				}
				return nil
			})
		case "FORM":
			m.Format = strings.ToLower(c.Text())
		case "TITL":
			m.Title = c.Text()
		case "NOTE":
			ref, err := p.parseNoteRef(c)
			m.Notes = append(m.Notes, ref)
			return err
		case "CHAN":
			changed, err := p.parseChange(c)
			m.Changed = changed
			return err
		case "REFN", "RIN", "BLOB", "SOUR":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
}

func (p *parser) parseAddress(tok Token) (Address, error) {
	addr := Address{Text: strings.TrimSpace(tok.Value)}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "ADR1", "ADR2", "ADR3":
			addr.Text = joinText(addr.Text, c.Value)
		case "CITY":
			addr.City = c.Text()
		case "STAE":
			addr.State = c.Text()
		case "POST":
			addr.PostalCode = c.Text()
		case "CTRY":
			addr.Country = c.Text()
		}
		return nil
	})
	return addr, err
}

var changeLayouts = []string{
	"2 Jan 2006 15:04:05.000",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
}

// parseChange llegeix CHAN DATE/TIME. Una data il·legible dona temps zero.
func (p *parser) parseChange(tok Token) (time.Time, error) {
	var date, clock string
	err := p.s.children(tok.Level, func(c Token) error {
		if c.Tag != "DATE" {
			return nil
		}
		date = c.Text()
		return p.s.children(c.Level, func(t Token) error {
			if t.Tag == "TIME" {
				clock = t.Text()
			}
			return nil
		})
	})
	return ParseChangeDate(date, clock), err
}

// ParseChangeDate interpreta la data i hora d'un bloc CHAN en UTC.
func ParseChangeDate(date, clock string) time.Time {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}
	}
	value := date
	if clock = strings.TrimSpace(clock); clock != "" {
		value += " " + clock
	}
	for _, layout := range changeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	if t, err := time.Parse("2 Jan 2006", date); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func joinText(base, add string) string {
	add = strings.TrimSpace(add)
	switch {
	case base == "":
		return add
	case add == "":
		return base
	default:
		return base + "\n" + add
	}
}
