package gedcom

import "strings"

func (p *parser) parseFamily(tok Token) (*Family, error) {
	fam := &Family{XRef: tok.XRef, Line: tok.Line}
	err := p.s.children(tok.Level, func(c Token) error {
		switch {
		case c.Tag == "HUSB":
			if ref, ok := c.Pointer(); ok {
				fam.Husband = ref
			}
		case c.Tag == "WIFE":
			if ref, ok := c.Pointer(); ok {
				fam.Wife = ref
			}
		case c.Tag == "CHIL":
			ref, ok := c.Pointer()
			if !ok {
				p.diag.Addf(WarnMalformedLine, c.Line, fam.XRef, "CHIL sense punter")
				return nil
			}
			child := Child{Ref: ref, Ordinal: len(fam.Children) + 1, Line: c.Line}
			err := p.s.children(c.Level, func(r Token) error {
				switch r.Tag {
				case "_FREL":
					child.FatherRel = strings.ToLower(r.Text())
				case "_MREL":
					child.MotherRel = strings.ToLower(r.Text())
				case "PEDI":
					rel := strings.ToLower(r.Text())
					child.FatherRel, child.MotherRel = rel, rel
				}
				return nil
			})
			fam.Children = append(fam.Children, child)
			return err
		case c.Tag == "NCHI":
			fam.ChildCount = c.Text()
		case c.Tag == "SOUR":
			cit, err := p.parseCitation(c)
			if cit != nil {
				fam.Citations = append(fam.Citations, *cit)
			}
			return err
		case c.Tag == "NOTE":
			ref, err := p.parseNoteRef(c)
			fam.Notes = append(fam.Notes, ref)
			return err
		case c.Tag == "OBJE":
			ref, err := p.parseMediaRef(c)
			if ref != nil {
				fam.Media = append(fam.Media, *ref)
			}
			return err
		case c.Tag == "CHAN":
			changed, err := p.parseChange(c)
			fam.Changed = changed
			return err
		case c.Tag == "_PRIV" || c.Tag == "_PRIVATE":
			v := flagValue(c.Text())
			fam.Private = &v
		case c.Tag == "RESN":
			fam.Restriction = strings.ToLower(c.Text())
		case p.isEventTag("FAM", c.Tag):
			ev, err := p.parseEvent("FAM", c)
			fam.Events = append(fam.Events, ev)
			return err
		case c.Tag == "REFN" || c.Tag == "RIN" || c.Tag == "SUBM":
			fam.Extra = append(fam.Extra, Extra{Tag: c.Tag, Value: c.Text()})
		case strings.HasPrefix(c.Tag, "_"):
			p.diag.Addf(WarnUnknownTag, c.Line, fam.XRef, "etiqueta pròpia %s ignorada", c.Tag)
		default:
			p.s.unknown(c)
		}
		return nil
	})
	return fam, err
}
