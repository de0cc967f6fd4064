package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

var tagKinds = map[string]db.Kind{
	"INDI": db.KindIndividual,
	"FAM":  db.KindFamily,
	"SOUR": db.KindSource,
	"REPO": db.KindRepository,
	"OBJE": db.KindMedia,
	"NOTE": db.KindNote,
}

// resolver tradueix els identificadors del fitxer als que es guarden.
type resolver struct {
	tree       string
	mode       ReplaceMode
	offset     int
	eventsOnly bool

	ids      map[db.Kind]map[string]string
	offsets  map[string]int
	external map[string]bool
	// written són els identificadors desats en aquesta execució; done, els
	// tipus que ja s'han acabat de desar.
	written map[db.Kind]map[string]bool
	done    map[db.Kind]bool
}

func newResolver(tree string, opts Options) *resolver {
	return &resolver{
		tree:       tree,
		mode:       opts.ReplaceMode,
		offset:     opts.AppendOffset,
		eventsOnly: opts.EventsOnly,
		ids:        map[db.Kind]map[string]string{},
		offsets:    map[string]int{},
		external:   map[string]bool{},
		written:    map[db.Kind]map[string]bool{},
		done:       map[db.Kind]bool{},
	}
}

// defineAll assigna identificador a tots els registres del document. Només
// llegeix de store, i només en mode append.
func (r *resolver) defineAll(ctx context.Context, store db.Store, doc *gedcom.Document) error {
	for tag, xrefs := range doc.Index() {
		kind, ok := tagKinds[tag]
		if !ok {
			continue
		}
		for xref := range xrefs {
			if _, err := r.define(ctx, store, kind, xref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) define(ctx context.Context, store db.Store, kind db.Kind, xref string) (string, error) {
	if r.ids[kind] == nil {
		r.ids[kind] = map[string]string{}
	}
	if id, ok := r.ids[kind][xref]; ok {
		return id, nil
	}
	id := xref
	if r.mode == Append {
		prefix, digits := splitXRef(xref)
		off, err := r.offsetFor(ctx, store, kind, prefix)
		if err != nil {
			return "", err
		}
		id = shiftXRef(prefix, digits, off)
	}
	r.ids[kind][xref] = id
	return id, nil
}

func (r *resolver) offsetFor(ctx context.Context, store db.Store, kind db.Kind, prefix string) (int, error) {
	if r.offset > 0 {
		return r.offset, nil
	}
	key := string(kind) + "|" + prefix
	if off, ok := r.offsets[key]; ok {
		return off, nil
	}
	max, err := store.MaxNumericSuffix(ctx, r.tree, kind, prefix)
	if err != nil {
		return 0, fmt.Errorf("desplaçament per a %s %q: %w", kind, prefix, err)
	}
	r.offsets[key] = max + 1
	return max + 1, nil
}

// id retorna l'identificador assignat a un registre del fitxer.
func (r *resolver) id(kind db.Kind, xref string) string {
	if id, ok := r.ids[kind][xref]; ok {
		return id
	}
	return xref
}

func (r *resolver) markWritten(kind db.Kind, id string) {
	if r.written[kind] == nil {
		r.written[kind] = map[string]bool{}
	}
	r.written[kind][id] = true
}

func (r *resolver) markDone(kind db.Kind) {
	r.done[kind] = true
}

// ref resol una referència. Un registre del fitxer només compta si s'ha desat
// en aquesta execució, si encara s'ha de desar o si ja era al magatzem. Si el
// fitxer no el defineix i el mode conserva dades anteriors, es busca al
// magatzem.
func (r *resolver) ref(ctx context.Context, store db.Store, kind db.Kind, xref string) (string, bool, error) {
	if xref == "" {
		return "", false, nil
	}
	if id, ok := r.ids[kind][xref]; ok {
		if r.written[kind][id] {
			return id, true, nil
		}
		// En match_only un registre pendent només es desa si ja existeix.
		if !r.done[kind] && !r.eventsOnly && r.mode != MatchOnly {
			return id, true, nil
		}
		found, err := r.lookup(ctx, store, kind, id)
		if err != nil {
			return "", false, err
		}
		return id, found, nil
	}
	if !r.eventsOnly && (r.mode == ReplaceAll || r.mode == Append) {
		return "", false, nil
	}
	found, err := r.lookup(ctx, store, kind, xref)
	if err != nil {
		return "", false, err
	}
	return xref, found, nil
}

func (r *resolver) lookup(ctx context.Context, store db.Store, kind db.Kind, id string) (bool, error) {
	key := string(kind) + "|" + id
	if found, ok := r.external[key]; ok {
		return found, nil
	}
	existing, err := store.Find(ctx, r.tree, kind, id)
	if err != nil {
		return false, err
	}
	r.external[key] = existing != nil
	return existing != nil, nil
}

// splitXRef separa el prefix dels dígits finals: "I0012" -> "I", "0012".
func splitXRef(xref string) (prefix, digits string) {
	i := len(xref)
	for i > 0 && xref[i-1] >= '0' && xref[i-1] <= '9' {
		i--
	}
	if len(xref)-i > 9 {
		i = len(xref) - 9
	}
	return xref[:i], xref[i:]
}

// shiftXRef suma off a la part numèrica mantenint-ne l'amplada. Sense dígits,
// el desplaçament s'afegeix al final.
func shiftXRef(prefix, digits string, off int) string {
	if digits == "" {
		return prefix + strconv.Itoa(off)
	}
	n, _ := strconv.Atoi(digits)
	return fmt.Sprintf("%s%0*d", prefix, len(digits), n+off)
}
