package gedcom

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

const maxLineBytes = 1 << 20

// Reader llegeix línies GEDCOM i les converteix en Tokens. Les línies CONT i
// CONC que segueixen una línia es fusionen amb el seu valor.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	pending *Token
	dec     *encoding.Decoder
	diag    *Diagnostics
	bomSeen bool
}

func NewReader(r io.Reader, diag *Diagnostics) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	sc.Split(scanGedcomLines)
	return &Reader{sc: sc, diag: diag}
}

// SetCharset canvia la descodificació de les línies següents. Retorna fals si
// el joc de caràcters no és suportat; en aquest cas es continua en UTF-8.
func (r *Reader) SetCharset(name string) bool {
	if r.bomSeen {
		return true
	}
	dec, ok := decoderFor(name)
	if !ok {
		return false
	}
	r.dec = dec
	return true
}

// LineNumber retorna el número de l'última línia física llegida.
func (r *Reader) LineNumber() int {
	return r.line
}

// Next retorna el següent token lògic o io.EOF.
func (r *Reader) Next() (Token, error) {
	for {
		tok, err := r.physical()
		if err != nil {
			return Token{}, err
		}
		if tok.Tag == "CONT" || tok.Tag == "CONC" {
			r.diag.Addf(WarnStrayToken, tok.Line, "", "%s sense línia prèvia", tok.Tag)
			continue
		}
		for {
			next, err := r.physical()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return Token{}, err
			}
			if next.Level == tok.Level+1 && (next.Tag == "CONT" || next.Tag == "CONC") {
				if next.Tag == "CONT" {
					tok.Value += "\n" + next.Value
				} else {
					tok.Value += next.Value
				}
				continue
			}
			r.pending = &next
			break
		}
		return tok, nil
	}
}

// physical retorna la següent línia física ben formada.
func (r *Reader) physical() (Token, error) {
	if r.pending != nil {
		tok := *r.pending
		r.pending = nil
		return tok, nil
	}
	for r.sc.Scan() {
		r.line++
		raw := r.sc.Text()
		if r.line == 1 && strings.HasPrefix(raw, "\uFEFF") {
			raw = strings.TrimPrefix(raw, "\uFEFF")
			r.bomSeen = true
			r.dec = nil
		}
		raw = decodeLine(r.dec, raw)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		tok, err := parseLine(raw, r.line)
		if err != nil {
			r.diag.Addf(WarnMalformedLine, r.line, "", "%v", err)
			continue
		}
		return tok, nil
	}
	if err := r.sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Token{}, fmt.Errorf("gedcom: línia %d massa llarga: %w", r.line+1, err)
		}
		return Token{}, err
	}
	return Token{}, io.EOF
}

// parseLine interpreta "NIVELL [@XREF@] TAG [VALOR]".
func parseLine(raw string, lineNo int) (Token, error) {
	s := strings.TrimLeft(raw, " \t")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Token{}, fmt.Errorf("línia sense nivell: %q", abbreviate(raw))
	}
	level, err := strconv.Atoi(s[:i])
	if err != nil || i > 2 {
		return Token{}, fmt.Errorf("nivell invàlid: %q", abbreviate(raw))
	}
	rest := s[i:]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return Token{}, fmt.Errorf("falta l'etiqueta: %q", abbreviate(raw))
	}
	rest = strings.TrimLeft(rest, " \t")

	var xref string
	if strings.HasPrefix(rest, "@") {
		end := strings.IndexByte(rest[1:], '@')
		if end < 0 {
			return Token{}, fmt.Errorf("referència sense tancar: %q", abbreviate(raw))
		}
		xref = TrimXRef(rest[:end+2])
		rest = strings.TrimLeft(rest[end+2:], " \t")
		if xref == "" {
			return Token{}, fmt.Errorf("referència buida: %q", abbreviate(raw))
		}
	}

	tag, value := rest, ""
	if j := strings.IndexAny(rest, " \t"); j >= 0 {
		tag, value = rest[:j], rest[j+1:]
	}
	if !validTag(tag) {
		return Token{}, fmt.Errorf("etiqueta invàlida: %q", abbreviate(raw))
	}
	return Token{Level: level, XRef: xref, Tag: strings.ToUpper(tag), Value: value, Line: lineNo}, nil
}

func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, c := range tag {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

func abbreviate(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// scanGedcomLines separa per LF, CRLF o CR sol.
func scanGedcomLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
