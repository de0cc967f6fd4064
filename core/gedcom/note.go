package gedcom

import "strings"

// parseNote llegeix un registre NOTE compartit. El text pot començar a la
// mateixa línia del registre i continuar amb CONT/CONC.
func (p *parser) parseNote(tok Token) (*Note, error) {
	note := &Note{XRef: tok.XRef, Line: tok.Line, Text: strings.TrimRight(tok.Value, " ")}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "SOUR":
			cit, err := p.parseCitation(c)
			if cit != nil {
				note.Citations = append(note.Citations, *cit)
			}
			return err
		case "CHAN":
			changed, err := p.parseChange(c)
			note.Changed = changed
			return err
		case "REFN", "RIN":
		default:
			if !strings.HasPrefix(c.Tag, "_") {
				p.s.unknown(c)
			}
		}
		return nil
	})
	return note, err
}

func (p *parser) parseMediaRecord(tok Token) (*Media, error) {
	m := &Media{XRef: tok.XRef, Line: tok.Line}
	err := p.parseMediaBody(tok, m)
	return m, err
}

func (p *parser) parseSubmitter(tok Token) (*Submitter, error) {
	sub := &Submitter{XRef: tok.XRef, Line: tok.Line}
	err := p.s.children(tok.Level, func(c Token) error {
		switch c.Tag {
		case "NAME":
			sub.Name = c.Text()
		case "ADDR":
			addr, err := p.parseAddress(c)
			sub.Address = addr
			return err
		case "PHON":
			sub.Phone = c.Text()
		case "EMAIL":
			sub.Email = c.Text()
		}
		return nil
	})
	return sub, err
}
