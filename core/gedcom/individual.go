package gedcom

import "strings"

func (p *parser) parseIndividual(tok Token) (*Individual, error) {
	ind := &Individual{XRef: tok.XRef, Line: tok.Line}
	named := false
	err := p.s.children(tok.Level, func(c Token) error {
		switch {
		case c.Tag == "NAME":
			n, err := p.parseName(c)
			if !named {
				ind.Name = n
				named = true
			} else {
				ind.AltNames = append(ind.AltNames, n)
			}
			return err
		case c.Tag == "SEX":
			ind.Sex = normalizeSex(c.Text())
		case c.Tag == "FAMC":
			return p.parseChildLink(c, ind)
		case c.Tag == "FAMS":
			if ref, ok := c.Pointer(); ok {
				ind.SpouseOf = append(ind.SpouseOf, ref)
			}
		case c.Tag == "SOUR":
			cit, err := p.parseCitation(c)
			if cit != nil {
				ind.Citations = append(ind.Citations, *cit)
			}
			return err
		case c.Tag == "NOTE":
			ref, err := p.parseNoteRef(c)
			ind.Notes = append(ind.Notes, ref)
			return err
		case c.Tag == "OBJE":
			ref, err := p.parseMediaRef(c)
			if ref != nil {
				ind.Media = append(ind.Media, *ref)
			}
			return err
		case c.Tag == "CHAN":
			changed, err := p.parseChange(c)
			ind.Changed = changed
			return err
		case c.Tag == "_LIVING" || c.Tag == "LVG":
			v := flagValue(c.Text())
			ind.Living = &v
		case c.Tag == "_PRIV" || c.Tag == "_PRIVATE":
			v := flagValue(c.Text())
			ind.Private = &v
		case c.Tag == "RESN":
			ind.Restriction = strings.ToLower(c.Text())
		case c.Tag == "REFN" || c.Tag == "RIN" || c.Tag == "AFN" || c.Tag == "_UID" || c.Tag == "RFN":
			if v := c.Text(); v != "" {
				ind.ExternalRefs = append(ind.ExternalRefs, c.Tag+":"+v)
			}
		case p.isEventTag("INDI", c.Tag):
			ev, err := p.parseEvent("INDI", c)
			ind.Events = append(ind.Events, ev)
			return err
		case c.Tag == "ASSO" || c.Tag == "ALIA" || c.Tag == "ANCI" || c.Tag == "DESI" || c.Tag == "SUBM":
			ind.Extra = append(ind.Extra, Extra{Tag: c.Tag, Value: c.Text()})
		case strings.HasPrefix(c.Tag, "_"):
			p.diag.Addf(WarnUnknownTag, c.Line, ind.XRef, "etiqueta pròpia %s ignorada", c.Tag)
		default:
			p.s.unknown(c)
		}
		return nil
	})
	return ind, err
}

func (p *parser) parseChildLink(tok Token, ind *Individual) error {
	ref, ok := tok.Pointer()
	if !ok {
		p.diag.Addf(WarnMalformedLine, tok.Line, ind.XRef, "FAMC sense punter")
		return nil
	}
	link := FamilyLink{Ref: ref}
	err := p.s.children(tok.Level, func(c Token) error {
		if c.Tag == "PEDI" {
			link.Pedigree = strings.ToLower(c.Text())
		}
		return nil
	})
	ind.ChildOf = append(ind.ChildOf, link)
	return err
}

func normalizeSex(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	default:
		return "U"
	}
}

// flagValue interpreta els indicadors propis (_LIVING, _PRIV). Un indicador
// sense valor compta com a cert.
func flagValue(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "N", "NO", "0", "FALSE":
		return false
	default:
		return true
	}
}
