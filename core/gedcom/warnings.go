package gedcom

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile      = errors.New("gedcom: fitxer buit")
	ErrMissingHeader  = errors.New("gedcom: falta la capçalera HEAD")
	ErrMissingTrailer = errors.New("gedcom: falta el tancament TRLR")
)

type WarningCode string

const (
	WarnMalformedLine   WarningCode = "malformed_line"
	WarnLevelJump       WarningCode = "level_jump"
	WarnStrayToken      WarningCode = "stray_token"
	WarnUnknownTag      WarningCode = "unknown_tag"
	WarnUnknownRecord   WarningCode = "unknown_record"
	WarnDuplicateHeader WarningCode = "duplicate_header"
	WarnDuplicateRecord WarningCode = "duplicate_record"
	WarnMissingXRef     WarningCode = "missing_xref"
	WarnDanglingRef     WarningCode = "dangling_reference"
	WarnBadDate         WarningCode = "unparseable_date"
	WarnCharset         WarningCode = "charset"
	WarnStore           WarningCode = "store"
	WarnMedia           WarningCode = "media"
)

// Warning és un avís no fatal amb prou context per localitzar-lo al fitxer.
type Warning struct {
	Code    WarningCode `json:"code" yaml:"code"`
	Line    int         `json:"line,omitempty" yaml:"line,omitempty"`
	Record  string      `json:"record,omitempty" yaml:"record,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Line > 0 && w.Record != "":
		return fmt.Sprintf("línia %d (%s): %s", w.Line, w.Record, w.Message)
	case w.Line > 0:
		return fmt.Sprintf("línia %d: %s", w.Line, w.Message)
	case w.Record != "":
		return fmt.Sprintf("%s: %s", w.Record, w.Message)
	default:
		return w.Message
	}
}

const defaultMaxWarnings = 500

// Diagnostics acumula avisos. En guarda com a màxim Max però els compta tots.
type Diagnostics struct {
	Max      int
	Total    int
	Warnings []Warning
	byCode   map[WarningCode]int
}

func NewDiagnostics(max int) *Diagnostics {
	if max <= 0 {
		max = defaultMaxWarnings
	}
	return &Diagnostics{Max: max, byCode: map[WarningCode]int{}}
}

func (d *Diagnostics) Add(w Warning) {
	if d == nil {
		return
	}
	if d.byCode == nil {
		d.byCode = map[WarningCode]int{}
	}
	d.Total++
	d.byCode[w.Code]++
	if len(d.Warnings) < d.Max {
		d.Warnings = append(d.Warnings, w)
	}
}

func (d *Diagnostics) Addf(code WarningCode, line int, record, format string, args ...interface{}) {
	d.Add(Warning{Code: code, Line: line, Record: record, Message: fmt.Sprintf(format, args...)})
}

// Count retorna quants avisos d'un codi s'han vist.
func (d *Diagnostics) Count(code WarningCode) int {
	if d == nil {
		return 0
	}
	return d.byCode[code]
}
