package gedcom

import "strings"

func (p *parser) parseSource(tok Token) (*Source, error) {
	src := &Source{XRef: tok.XRef, Line: tok.Line}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "TITL":
			src.Title = c.Text()
		case "AUTH":
			src.Author = c.Text()
		case "PUBL":
			src.Publisher = c.Text()
		case "ABBR":
			src.Abbreviation = c.Text()
		case "TEXT":
			src.Text = joinText(src.Text, c.Value)
		case "REPO":
			if ref, ok := c.Pointer(); ok {
				src.RepositoryRef = ref
			}
			return p.s.children(c.Level, func(r Token) error {
				if r.Tag == "CALN" {
					src.CallNumber = r.Text()
				}
				return nil
			})
		case "NOTE":
			ref, err := p.parseNoteRef(c)
			src.Notes = append(src.Notes, ref)
			return err
		case "OBJE":
			ref, err := p.parseMediaRef(c)
			if ref != nil {
				src.Media = append(src.Media, *ref)
			}
			return err
		case "CHAN":
			changed, err := p.parseChange(c)
			src.Changed = changed
			return err
		case "DATA", "REFN", "RIN":
			src.Extra = append(src.Extra, Extra{Tag: c.Tag, Value: c.Text()})
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	return src, err
}

func (p *parser) parseRepository(tok Token) (*Repository, error) {
	repo := &Repository{XRef: tok.XRef, Line: tok.Line}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "NAME":
			repo.Name = c.Text()
		case "ADDR":
			addr, err := p.parseAddress(c)
			repo.Address = addr
			return err
		case "PHON":
			repo.Phone = c.Text()
		case "EMAIL":
			repo.Email = c.Text()
		case "WWW":
			repo.WWW = c.Text()
		case "NOTE":
			ref, err := p.parseNoteRef(c)
			repo.Notes = append(repo.Notes, ref)
			return err
		case "CHAN":
			changed, err := p.parseChange(c)
			repo.Changed = changed
			return err
		case "REFN", "RIN", "FAX":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	return repo, err
}
