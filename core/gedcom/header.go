package gedcom

import "strings"

// parseHeader llegeix HEAD. CHAR canvia la descodificació del Reader per a la
// resta del fitxer.
func (p *parser) parseHeader(tok Token) (Header, error) {
	var h Header
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "SOUR":
			h.SourceID = c.Text()
			return p.s.children(c.Level, func(s Token) error {
				switch s.Tag {
				case "VERS":
					h.SourceVersion = s.Text()
				case "NAME":
					h.SourceName = s.Text()
				case "CORP":
					h.SourceCorp = s.Text()
				}
				return nil
			})
		case "DEST":
			h.Destination = c.Text()
		case "DATE":
			h.Date = c.Text()
			return p.s.children(c.Level, func(t Token) error {
				if t.Tag == "TIME" {
					h.Time = t.Text()
				}
				return nil
			})
		case "SUBM":
			if ref, ok := c.Pointer(); ok {
				h.SubmitterRef = ref
			}
		case "SUBN":
		case "FILE":
			h.FileName = c.Text()
		case "COPR":
			h.Copyright = c.Text()
		case "GEDC":
			return p.s.children(c.Level, func(g Token) error {
				switch g.Tag {
				case "VERS":
					h.GedcomVersion = g.Text()
				case "FORM":
					h.GedcomForm = g.Text()
				}
				return nil
			})
		case "CHAR":
			h.Charset = strings.ToUpper(c.Text())
			if !p.s.rd.SetCharset(h.Charset) {
				p.diag.Addf(WarnCharset, c.Line, "HEAD", "joc de caràcters %s no suportat, es llegeix com a UTF-8", h.Charset)
			}
		case "LANG":
			h.Language = c.Text()
		case "PLAC":
			return p.s.children(c.Level, func(f Token) error {
				if f.Tag == "FORM" {
					h.PlaceForm = f.Text()
				}
				return nil
			})
		case "NOTE":
			h.Note = strings.TrimSpace(c.Value)
		default:
			h.ExtraHeaderTags++
		}
		return nil
	})
	return h, err
}

// resolveSubmitter completa el nom i l'adreça del remitent de la capçalera.
func (d *Document) resolveSubmitter() {
	if d.Header.SubmitterRef == "" {
		return
	}
	for _, s := range d.Submitters {
		if s.XRef != d.Header.SubmitterRef {
			continue
		}
		d.Header.SubmitterName = s.Name
		addr := s.Address.Text
		for _, part := range []string{s.Address.City, s.Address.State, s.Address.PostalCode, s.Address.Country} {
			if part != "" {
				addr = joinText(addr, part)
			}
		}
		d.Header.SubmitterAddr = addr
		return
	}
}
