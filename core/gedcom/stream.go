package gedcom

import (
	"errors"
	"io"
)

// stream afegeix lectura anticipada d'un token sobre el Reader.
type stream struct {
	rd     *Reader
	peeked *Token
	diag   *Diagnostics
	record string
}

func (s *stream) next() (Token, error) {
	if s.peeked != nil {
		tok := *s.peeked
		s.peeked = nil
		return tok, nil
	}
	return s.rd.Next()
}

func (s *stream) peek() (Token, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	tok, err := s.rd.Next()
	if err != nil {
		return Token{}, err
	}
	s.peeked = &tok
	return tok, nil
}

func (s *stream) unread(tok Token) {
	s.peeked = &tok
}

// skipSubtree consumeix tots els tokens de nivell superior a level.
func (s *stream) skipSubtree(level int) error {
	for {
		tok, err := s.peek()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if tok.Level <= level {
			return nil
		}
		s.peeked = nil
	}
}

// children recorre els fills directes del token de nivell level. Cada fill es
// passa a fn; el que fn no consumeixi del seu subarbre es descarta. Els salts
// de nivell es descarten amb un avís.
func (s *stream) children(level int, fn func(Token) error) error {
	for {
		tok, err := s.peek()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if tok.Level <= level {
			return nil
		}
		s.peeked = nil
		if tok.Level > level+1 {
			s.diag.Addf(WarnLevelJump, tok.Line, s.record, "salt de nivell %d a %d a %s", level, tok.Level, tok.Tag)
			if err := s.skipSubtree(tok.Level); err != nil {
				return err
			}
			continue
		}
		if err := fn(tok); err != nil {
			return err
		}
		if err := s.skipSubtree(tok.Level); err != nil {
			return err
		}
	}
}

// text retorna el valor d'un token i ignora els seus fills.
func (s *stream) text(tok Token) (string, error) {
	return tok.Text(), s.skipSubtree(tok.Level)
}

func (s *stream) unknown(tok Token) {
	s.diag.Addf(WarnUnknownTag, tok.Line, s.record, "etiqueta %s desconeguda", tok.Tag)
}
