package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("db: registre no trobat")

// Kind identifica un tipus d'entitat persistida.
type Kind string

const (
	KindIndividual Kind = "individual"
	KindFamily     Kind = "family"
	KindChild      Kind = "family_child"
	KindEvent      Kind = "event"
	KindSource     Kind = "source"
	KindRepository Kind = "repository"
	KindCitation   Kind = "citation"
	KindNote       Kind = "note"
	KindNoteLink   Kind = "note_link"
	KindMedia      Kind = "media"
	KindMediaLink  Kind = "media_link"
)

// ClearOrder és l'ordre de buidatge d'un arbre: primer els enllaços.
var ClearOrder = []Kind{
	KindMediaLink, KindNoteLink, KindCitation, KindEvent, KindChild,
	KindFamily, KindIndividual, KindMedia, KindNote, KindSource, KindRepository,
}

type kindInfo struct {
	table string
	keyed bool
	owner string
}

var kindTables = map[Kind]kindInfo{
	KindIndividual: {table: "individuals", keyed: true},
	KindFamily:     {table: "families", keyed: true},
	KindChild:      {table: "family_children", owner: "family_id"},
	KindEvent:      {table: "events", owner: "owner"},
	KindSource:     {table: "sources", keyed: true},
	KindRepository: {table: "repositories", keyed: true},
	KindCitation:   {table: "citations", owner: "owner"},
	KindNote:       {table: "notes", keyed: true},
	KindNoteLink:   {table: "note_links", owner: "owner"},
	KindMedia:      {table: "media", keyed: true},
	KindMediaLink:  {table: "media_links", owner: "owner"},
}

// Keyed indica si el tipus té identificador extern (external_id).
func (k Kind) Keyed() bool {
	return kindTables[k].keyed
}

// Entity és una fila a persistir.
type Entity interface {
	Kind() Kind
	Columns() map[string]interface{}
}

// Existing és el que cal saber d'una entitat ja guardada per decidir-ne la
// política.
type Existing struct {
	ID         int64
	ExternalID string
	ChangedAt  time.Time
}

// Row és una fila genèrica retornada per List.
type Row map[string]interface{}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func (r Row) Bool(col string) bool {
	return r.Int(col) != 0
}

// Store és el contracte de persistència de l'importador. Totes les
// operacions estan acotades a un arbre.
type Store interface {
	// Find retorna nil, nil si no hi ha cap entitat amb aquest identificador.
	Find(ctx context.Context, tree string, kind Kind, externalID string) (*Existing, error)
	Insert(ctx context.Context, e Entity) (int64, error)
	Update(ctx context.Context, kind Kind, id int64, fields map[string]interface{}) error
	DeleteAll(ctx context.Context, tree string, kind Kind) error
	// DeleteOwned esborra les files d'un tipus que pertanyen a un propietari.
	DeleteOwned(ctx context.Context, tree string, kind Kind, ownerKind, ownerID string) error
	MaxNumericSuffix(ctx context.Context, tree string, kind Kind, prefix string) (int, error)
	Count(ctx context.Context, tree string, kind Kind) (int, error)
	List(ctx context.Context, tree string, kind Kind) ([]Row, error)
	// WithTx executa fn dins d'una transacció. Dins d'una transacció obre un
	// punt de retorn, de manera que un error desfà només el que ha fet fn.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// RunStore guarda la cua d'execucions d'importació.
type RunStore interface {
	CreateImportRun(ctx context.Context, r *ImportRun) (int64, error)
	GetImportRun(ctx context.Context, publicID string) (*ImportRun, error)
	ListImportRuns(ctx context.Context, status string, limit int) ([]ImportRun, error)
	FindActiveImportRun(ctx context.Context, tree, fingerprint string) (*ImportRun, error)
	UpdateImportRunStatus(ctx context.Context, id int64, status, errText, summaryJSON string) error
}

// DB és un motor complet: entitats i cua d'execucions.
type DB interface {
	Store
	RunStore
	Connect() error
	Close()
	Migrate(ctx context.Context) error
	Engine() string
}

// NumericSuffix retorna el número final d'un identificador si el que el
// precedeix és exactament prefix.
func NumericSuffix(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" || len(digits) > 9 {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
