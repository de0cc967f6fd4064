package gedcom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

type parseState int

const (
	stateAwaitingHeader parseState = iota
	stateAwaitingRecord
	stateInsideRecord
	stateDone
)

// ParseOptions controla la primera passada.
type ParseOptions struct {
	// AllEvents converteix les etiquetes pròpies (_XXX) en esdeveniments.
	AllEvents bool
}

type parser struct {
	s     *stream
	diag  *Diagnostics
	opts  ParseOptions
	doc   *Document
	state parseState
	seen  map[string]map[string]int
}

// ParseFile obre i analitza un fitxer GEDCOM.
func ParseFile(ctx context.Context, path string, opts ParseOptions, diag *Diagnostics) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(ctx, f, opts, diag)
}

// Parse llegeix tot el flux i en retorna els registres. Els errors retornats
// són fatals (falta HEAD o TRLR, fitxer buit, error de lectura o cancel·lació);
// la resta d'incidències queden a diag.
func Parse(ctx context.Context, r io.Reader, opts ParseOptions, diag *Diagnostics) (*Document, error) {
	if diag == nil {
		diag = NewDiagnostics(0)
	}
	p := &parser{
		s:    &stream{rd: NewReader(r, diag), diag: diag},
		diag: diag,
		opts: opts,
		doc:  &Document{},
		seen: map[string]map[string]int{},
	}
	return p.run(ctx)
}

func (p *parser) run(ctx context.Context) (*Document, error) {
	tokens := 0
	for p.state != stateDone {
		tok, err := p.s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		tokens++

		if tok.Level != 0 {
			if p.state == stateAwaitingHeader {
				return nil, fmt.Errorf("%w (línia %d)", ErrMissingHeader, tok.Line)
			}
			p.diag.Addf(WarnStrayToken, tok.Line, "", "%s de nivell %d fora de registre", tok.Tag, tok.Level)
			if err := p.s.skipSubtree(tok.Level); err != nil {
				return nil, err
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p.state == stateAwaitingHeader {
			if tok.Tag != "HEAD" {
				return nil, fmt.Errorf("%w (línia %d: %s)", ErrMissingHeader, tok.Line, tok.Tag)
			}
			p.state = stateInsideRecord
			p.s.record = "HEAD"
			h, err := p.parseHeader(tok)
			if err != nil {
				return nil, err
			}
			p.doc.Header = h
			p.state = stateAwaitingRecord
			continue
		}

		p.state = stateInsideRecord
		p.s.record = tok.XRef
		if err := p.dispatch(tok); err != nil {
			return nil, err
		}
		if p.state != stateDone {
			p.state = stateAwaitingRecord
		}
	}

	if tokens == 0 {
		return nil, ErrEmptyFile
	}
	if p.state == stateAwaitingHeader {
		return nil, ErrMissingHeader
	}
	if !p.doc.Trailer {
		return nil, ErrMissingTrailer
	}
	p.doc.resolveSubmitter()
	return p.doc, nil
}

// dispatch envia un registre de nivell 0 al seu analitzador.
func (p *parser) dispatch(tok Token) error {
	switch tok.Tag {
	case "TRLR":
		p.doc.Trailer = true
		p.state = stateDone
		return nil
	case "HEAD":
		p.diag.Addf(WarnDuplicateHeader, tok.Line, "HEAD", "capçalera duplicada ignorada")
		return p.s.skipSubtree(tok.Level)
	case "INDI", "FAM", "SOUR", "REPO", "OBJE", "NOTE", "SUBM":
	default:
		p.diag.Addf(WarnUnknownRecord, tok.Line, tok.XRef, "registre %s ignorat", tok.Tag)
		return p.s.skipSubtree(tok.Level)
	}

	if tok.XRef == "" {
		if tok.Tag == "SUBM" {
			return p.s.skipSubtree(tok.Level)
		}
		p.diag.Addf(WarnMissingXRef, tok.Line, "", "registre %s sense identificador", tok.Tag)
		p.doc.drop(tok.Tag)
		return p.s.skipSubtree(tok.Level)
	}
	if first, dup := p.seen[tok.Tag][tok.XRef]; dup {
		p.diag.Addf(WarnDuplicateRecord, tok.Line, tok.XRef, "%s @%s@ repetit (primer a la línia %d), s'ignora", tok.Tag, tok.XRef, first)
		p.doc.drop(tok.Tag)
		return p.s.skipSubtree(tok.Level)
	}
	if p.seen[tok.Tag] == nil {
		p.seen[tok.Tag] = map[string]int{}
	}
	p.seen[tok.Tag][tok.XRef] = tok.Line

	switch tok.Tag {
	case "INDI":
		ind, err := p.parseIndividual(tok)
		p.doc.Individuals = append(p.doc.Individuals, ind)
		return err
	case "FAM":
		fam, err := p.parseFamily(tok)
		p.doc.Families = append(p.doc.Families, fam)
		return err
	case "SOUR":
		src, err := p.parseSource(tok)
		p.doc.Sources = append(p.doc.Sources, src)
		return err
	case "REPO":
		repo, err := p.parseRepository(tok)
		p.doc.Repositories = append(p.doc.Repositories, repo)
		return err
	case "OBJE":
		m, err := p.parseMediaRecord(tok)
		p.doc.Media = append(p.doc.Media, m)
		return err
	case "NOTE":
		note, err := p.parseNote(tok)
		p.doc.Notes = append(p.doc.Notes, note)
		return err
	case "SUBM":
		sub, err := p.parseSubmitter(tok)
		p.doc.Submitters = append(p.doc.Submitters, sub)
		return err
	}
	return nil
}
