package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

const seedGedcom = `0 HEAD
1 CHAR UTF-8
0 @I1@ INDI
1 NAME Joan /Puig/
1 FAMS @F1@
0 @F1@ FAM
1 HUSB @I1@
0 TRLR
`

const spouseGedcom = `0 HEAD
1 CHAR UTF-8
0 @I1@ INDI
1 NAME Joan /Puig/
1 BIRT
2 DATE 1850
2 SOUR @S1@
3 PAGE f. 3
1 FAMS @F1@
0 @I2@ INDI
1 NAME Maria /Serra/
1 FAMS @F1@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
0 @S1@ SOUR
1 TITL Registre
0 TRLR
`

func warningsWith(res *Result, code gedcom.WarningCode) []gedcom.Warning {
	var out []gedcom.Warning
	for _, w := range res.Warnings {
		if w.Code == code {
			out = append(out, w)
		}
	}
	return out
}

func TestImportMatchOnlyDropsLinksToSkippedRecords(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "llavor.ged", seedGedcom), Options{})

	res := importFile(t, store, writeGedcom(t, "parella.ged", spouseGedcom), Options{ReplaceMode: MatchOnly})

	assert.Equal(t, Count{Parsed: 1, Skipped: 1}, res.Stats.Sources)
	assert.Equal(t, Count{Parsed: 1, Skipped: 1}, res.Stats.Citations)
	assert.Equal(t, 1, res.Stats.Individuals.Updated)
	assert.Equal(t, 1, res.Stats.Individuals.Skipped)
	assert.Equal(t, 1, res.Stats.Families.Updated)

	dangling := warningsWith(res, gedcom.WarnDanglingRef)
	require.Len(t, dangling, 2)
	assert.Equal(t, "I1", dangling[0].Record)
	assert.Contains(t, dangling[0].Message, "S1")
	assert.Equal(t, "F1", dangling[1].Record)
	assert.Contains(t, dangling[1].Message, "I2")

	assert.Zero(t, countOf(t, store, db.KindSource))
	assert.Zero(t, countOf(t, store, db.KindCitation))
	fam := rowsByKey(t, store, db.KindFamily)["F1"]
	assert.Equal(t, "I1", fam.String("husband_id"))
	assert.Empty(t, fam.String("wife_id"))
}

func TestImportEventsOnlyDropsCitationsToUnsavedSources(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "llavor.ged", seedGedcom), Options{})

	res := importFile(t, store, writeGedcom(t, "parella.ged", spouseGedcom), Options{EventsOnly: true})

	assert.Equal(t, 1, res.Stats.Events.Inserted)
	assert.Equal(t, Count{Parsed: 1, Skipped: 1}, res.Stats.Citations)
	dangling := warningsWith(res, gedcom.WarnDanglingRef)
	require.Len(t, dangling, 1)
	assert.Contains(t, dangling[0].Message, "S1")
	assert.Equal(t, 1, countOf(t, store, db.KindEvent))
	assert.Zero(t, countOf(t, store, db.KindCitation))
	assert.Zero(t, countOf(t, store, db.KindSource))
}

func TestImportNoReplaceResolvesSkippedExistingSource(t *testing.T) {
	store := db.NewMemory()
	seed := strings.Replace(seedGedcom, "0 TRLR", "0 @S1@ SOUR\n1 TITL Registre\n0 TRLR", 1)
	importFile(t, store, writeGedcom(t, "llavor.ged", seed), Options{})

	content := strings.Replace(spouseGedcom, "0 @I1@ INDI\n1 NAME Joan /Puig/\n1 BIRT", "0 @I1@ INDI\n1 NAME Joan /Puig/\n1 FAMS @F1@\n0 @I3@ INDI\n1 NAME Pere /Puig/\n1 BIRT", 1)
	res := importFile(t, store, writeGedcom(t, "nous.ged", content), Options{ReplaceMode: NoReplace})

	assert.Equal(t, 1, res.Stats.Sources.Skipped)
	assert.Equal(t, 1, res.Stats.Citations.Inserted)
	assert.Empty(t, warningsWith(res, gedcom.WarnDanglingRef))
	cits, err := store.List(context.Background(), testTree, db.KindCitation)
	require.NoError(t, err)
	require.Len(t, cits, 1)
	assert.Equal(t, "I3", cits[0].String("owner_id"))
	assert.Equal(t, "S1", cits[0].String("source_id"))
}

func TestImportEventsOnlyEmptyPartition(t *testing.T) {
	store := db.NewMemory()
	res := importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{EventsOnly: true})

	assert.Zero(t, countOf(t, store, db.KindIndividual))
	assert.Zero(t, countOf(t, store, db.KindFamily))
	assert.Zero(t, countOf(t, store, db.KindEvent))
	assert.Positive(t, res.Stats.Events.Parsed)
	assert.Zero(t, res.Stats.Events.Inserted)
	assert.Equal(t, res.Stats.Events.Parsed, res.Stats.Events.Skipped)
	assert.Equal(t, 6, res.Stats.Individuals.Skipped)
	assert.Equal(t, 2, res.Stats.Families.Skipped)
}

func TestImportCountsDroppedRecords(t *testing.T) {
	content := strings.Replace(familyGedcom, "0 @S1@ SOUR", "0 @I1@ INDI\n1 NAME Copia /Puig/\n0 INDI\n1 NAME Sense /Identificador/\n0 @S1@ SOUR", 1)
	res := importFile(t, db.NewMemory(), writeGedcom(t, "repetits.ged", content), Options{})

	ind := res.Stats.Individuals
	assert.Equal(t, 8, ind.Parsed)
	assert.Equal(t, 6, ind.Inserted)
	assert.Equal(t, 2, ind.Skipped)
	assert.Equal(t, ind.Parsed, ind.Imported()+ind.Skipped)
}

// failingFindStore falla la primera consulta d'una persona i apunta les
// consultes fetes fora del punt de retorn d'un registre.
type failingFindStore struct {
	db.Store
	failID  string
	depth   int
	pending *int
	outside *int
}

func newFailingFindStore(inner db.Store, failID string) *failingFindStore {
	pending, outside := 1, 0
	return &failingFindStore{Store: inner, failID: failID, pending: &pending, outside: &outside}
}

func (s *failingFindStore) Find(ctx context.Context, tree string, kind db.Kind, id string) (*db.Existing, error) {
	if s.depth < 2 {
		*s.outside++
	}
	if kind == db.KindIndividual && id == s.failID && *s.pending > 0 {
		*s.pending--
		return nil, errors.New("connexió perduda")
	}
	return s.Store.Find(ctx, tree, kind, id)
}

func (s *failingFindStore) WithTx(ctx context.Context, fn func(db.Store) error) error {
	return s.Store.WithTx(ctx, func(tx db.Store) error {
		child := *s
		child.Store = tx
		child.depth = s.depth + 1
		return fn(&child)
	})
}

func TestImportLookupFailureSkipsOnlyThatRecord(t *testing.T) {
	base := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)
	importFile(t, base, path, Options{})

	store := newFailingFindStore(base, "I2")
	res := importFile(t, store, path, Options{ReplaceMode: MatchOnly})

	assert.Equal(t, 5, res.Stats.Individuals.Updated)
	assert.Equal(t, 1, res.Stats.Individuals.Skipped)
	assert.Equal(t, 2, res.Stats.Families.Updated)
	failed := warningsWith(res, gedcom.WarnStore)
	require.Len(t, failed, 1)
	assert.Equal(t, "I2", failed[0].Record)
	assert.Zero(t, *store.outside)
	// La família conserva la cònjuge, que continua al magatzem.
	assert.Equal(t, "I2", rowsByKey(t, base, db.KindFamily)["F1"].String("wife_id"))
}

func TestImportEventsOnlyLookupFailure(t *testing.T) {
	base := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)
	importFile(t, base, path, Options{})
	events := countOf(t, base, db.KindEvent)

	store := newFailingFindStore(base, "I2")
	res := importFile(t, store, path, Options{EventsOnly: true})

	failed := warningsWith(res, gedcom.WarnStore)
	require.Len(t, failed, 1)
	assert.Equal(t, "I2", failed[0].Record)
	assert.Zero(t, *store.outside)
	// Els dos esdeveniments de I2 es mantenen tal com eren.
	assert.Equal(t, 2, res.Stats.Events.Skipped)
	assert.Equal(t, events, countOf(t, base, db.KindEvent))
}
