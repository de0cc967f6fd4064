package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

const familyGedcom = `0 HEAD
1 SOUR PROVES
1 GEDC
2 VERS 5.5.1
1 CHAR UTF-8
0 @I1@ INDI
1 NAME Joan /Puig/
1 SEX M
1 BIRT
2 DATE 12 MAR 1850
2 PLAC Vic
3 MAP
4 LATI N41.93
4 LONG E2.25
2 SOUR @S1@
3 PAGE p. 12
1 DEAT
2 DATE 1920
1 FAMS @F1@
1 NOTE Nota llarga
2 CONT segona lí
2 CONC nia
1 CHAN
2 DATE 1 JAN 2020
0 @I2@ INDI
1 NAME Maria /Serra/
1 SEX F
1 BIRT
2 DATE ABT 1855
1 DEAT
2 DATE 1930
1 FAMS @F1@
0 @I3@ INDI
1 NAME Pere /Puig/
1 SEX M
1 BIRT
2 DATE 1880
1 DEAT
2 DATE 1950
1 FAMC @F1@
1 FAMS @F2@
1 SOUR @S99@
0 @I4@ INDI
1 NAME Anna /Puig/
1 SEX F
1 BIRT
2 DATE 1885
1 RESI
2 PLAC Manlleu
1 RESI
2 PLAC Girona
1 FAMC @F1@
2 PEDI adopted
0 @I5@ INDI
1 NAME Laia /Puig/
1 SEX F
1 BIRT
2 DATE 2001
1 FAMC @F2@
0 @I6@ INDI
1 NAME Rosa /Vila/
1 SEX F
1 FAMS @F2@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 CHIL @I3@
1 CHIL @I4@
1 MARR
2 DATE 1878
0 @F2@ FAM
1 HUSB @I3@
1 WIFE @I6@
1 CHIL @I5@
0 @S1@ SOUR
1 TITL Registre parroquial
0 TRLR
`

const testTree = "arbre-1"

func writeGedcom(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countOf(t *testing.T, store db.Store, kind db.Kind) int {
	t.Helper()
	n, err := store.Count(context.Background(), testTree, kind)
	require.NoError(t, err)
	return n
}

func rowsByKey(t *testing.T, store db.Store, kind db.Kind) map[string]db.Row {
	t.Helper()
	rows, err := store.List(context.Background(), testTree, kind)
	require.NoError(t, err)
	out := map[string]db.Row{}
	for _, r := range rows {
		out[r.String("external_id")] = r
	}
	return out
}

func importFile(t *testing.T, store db.Store, path string, opts Options) *Result {
	t.Helper()
	res, err := NewImporter(store).Import(context.Background(), path, testTree, opts)
	require.NoError(t, err)
	require.True(t, res.Success)
	return res
}

func TestImportReplaceAll(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)

	res := importFile(t, store, path, Options{ReplaceMode: ReplaceAll, ImportLatLong: true})

	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, 6, res.Stats.Individuals.Parsed)
	assert.Equal(t, 6, res.Stats.Individuals.Inserted)
	assert.Equal(t, 2, res.Stats.Families.Inserted)
	assert.Equal(t, 6, countOf(t, store, db.KindIndividual))
	assert.Equal(t, 2, countOf(t, store, db.KindFamily))
	assert.Equal(t, 3, countOf(t, store, db.KindChild))
	assert.Equal(t, 1, countOf(t, store, db.KindSource))
	assert.Len(t, res.Fingerprint, 64)
	assert.Equal(t, "PROVES", res.Header.SourceID)

	people := rowsByKey(t, store, db.KindIndividual)
	joan := people["I1"]
	assert.Equal(t, "Joan", joan.String("given_name"))
	assert.Equal(t, "Puig", joan.String("surname"))
	assert.Equal(t, "1850-03-12", joan.String("birth_date_sort"))
	assert.Equal(t, "Vic", joan.String("birth_place"))
	assert.False(t, joan.Bool("living"))
	assert.Equal(t, "F1", people["I3"].String("parent_family"))
	assert.Equal(t, "adopted", people["I4"].String("pedigree"))
	assert.True(t, people["I5"].Bool("living"))
	assert.True(t, people["I5"].Bool("private"))

	// Els esdeveniments repetits no se sobreescriuen.
	events, err := store.List(context.Background(), testTree, db.KindEvent)
	require.NoError(t, err)
	resi := 0
	for _, ev := range events {
		if ev.String("owner_id") == "I4" && ev.String("event_type") == "residence" {
			resi++
		}
		if ev.String("owner_id") == "I1" && ev.String("event_type") == "birth" {
			assert.Equal(t, "41.93", ev.String("latitude"))
			assert.Equal(t, "2.25", ev.String("longitude"))
		}
	}
	assert.Equal(t, 2, resi)

	notes := rowsByKey(t, store, db.KindNote)
	require.Contains(t, notes, "I1#N1")
	assert.Equal(t, "Nota llarga\nsegona línia", notes["I1#N1"].String("body"))
	assert.True(t, notes["I1#N1"].Bool("inline"))
}

func TestImportChildOrdinals(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{})

	rows, err := store.List(context.Background(), testTree, db.KindChild)
	require.NoError(t, err)
	got := map[string]db.Row{}
	for _, r := range rows {
		got[r.String("child_id")] = r
	}
	assert.EqualValues(t, 1, got["I3"].Int("ordinal"))
	assert.EqualValues(t, 2, got["I4"].Int("ordinal"))
	assert.Equal(t, "F1", got["I4"].String("family_id"))
	assert.Equal(t, "natural", got["I3"].String("father_rel"))
	assert.Equal(t, "adopted", got["I4"].String("mother_rel"))
}

func TestImportDanglingCitation(t *testing.T) {
	store := db.NewMemory()
	res := importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{})

	dangling := 0
	for _, w := range res.Warnings {
		if w.Code == gedcom.WarnDanglingRef {
			dangling++
			assert.Equal(t, "I3", w.Record)
			assert.Contains(t, w.Message, "S99")
		}
	}
	assert.Equal(t, 1, dangling)
	assert.Equal(t, 1, res.Stats.Citations.Skipped)
	assert.Equal(t, 1, res.Stats.Citations.Inserted)
	assert.Equal(t, 1, countOf(t, store, db.KindCitation))

	cits, err := store.List(context.Background(), testTree, db.KindCitation)
	require.NoError(t, err)
	assert.Equal(t, "S1", cits[0].String("source_id"))
	assert.Equal(t, "p. 12", cits[0].String("page"))
	assert.NotZero(t, cits[0].Int("event_id"))
}

func TestImportReplaceAllIdempotent(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)

	importFile(t, store, path, Options{ReplaceMode: ReplaceAll})
	before := map[db.Kind]int{}
	for _, k := range db.ClearOrder {
		before[k] = countOf(t, store, k)
	}
	importFile(t, store, path, Options{ReplaceMode: ReplaceAll})
	for _, k := range db.ClearOrder {
		assert.Equal(t, before[k], countOf(t, store, k), "tipus %s", k)
	}
}

func TestImportAppendDoubles(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)

	importFile(t, store, path, Options{ReplaceMode: ReplaceAll})
	res := importFile(t, store, path, Options{ReplaceMode: Append})

	assert.Equal(t, 6, res.Stats.Individuals.Inserted)
	assert.Equal(t, 12, countOf(t, store, db.KindIndividual))
	assert.Equal(t, 4, countOf(t, store, db.KindFamily))

	people := rowsByKey(t, store, db.KindIndividual)
	assert.Len(t, people, 12)
	// Desplaçament automàtic: 1 + el màxim existent (I6), per tant I1 passa a I8.
	require.Contains(t, people, "I8")
	assert.Equal(t, "Joan", people["I8"].String("given_name"))
	assert.Equal(t, "F4", people["I10"].String("parent_family"))
	assert.Equal(t, "Joan", people["I1"].String("given_name"))
}

func TestImportAppendFixedOffset(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)

	importFile(t, store, path, Options{ReplaceMode: Append, AppendOffset: 100})
	people := rowsByKey(t, store, db.KindIndividual)
	assert.Contains(t, people, "I101")
	assert.Contains(t, people, "I106")
	assert.NotContains(t, people, "I1")
}

func TestImportNoReplace(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)

	importFile(t, store, path, Options{ReplaceMode: ReplaceAll})
	events := countOf(t, store, db.KindEvent)
	res := importFile(t, store, path, Options{ReplaceMode: NoReplace})

	assert.Zero(t, res.Stats.Individuals.Inserted)
	assert.Equal(t, 6, res.Stats.Individuals.Skipped)
	assert.Zero(t, res.Stats.Families.Inserted)
	assert.Equal(t, 6, countOf(t, store, db.KindIndividual))
	assert.Equal(t, events, countOf(t, store, db.KindEvent))
}

func TestImportMatchOnly(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{})

	changed := strings.Replace(familyGedcom, "1 NAME Maria /Serra/", "1 NAME Maria /Serra i Font/", 1)
	changed = strings.Replace(changed, "0 @S1@ SOUR", "0 @I9@ INDI\n1 NAME Nou /Nouvingut/\n0 @S1@ SOUR", 1)
	res := importFile(t, store, writeGedcom(t, "canvis.ged", changed), Options{ReplaceMode: MatchOnly})

	assert.Zero(t, res.Stats.Individuals.Inserted)
	assert.Equal(t, 6, res.Stats.Individuals.Updated)
	assert.Equal(t, 1, res.Stats.Individuals.Skipped)
	people := rowsByKey(t, store, db.KindIndividual)
	assert.Len(t, people, 6)
	assert.Equal(t, "Serra i Font", people["I2"].String("surname"))
	// Els esdeveniments es reescriuen, no s'acumulen.
	assert.Equal(t, res.Stats.Events.Inserted, countOf(t, store, db.KindEvent))
}

func TestImportMatchOnlyNewerOnly(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{})

	older := strings.Replace(familyGedcom, "2 DATE 1 JAN 2020", "2 DATE 1 JAN 2019", 1)
	older = strings.Replace(older, "1 NAME Joan /Puig/", "1 NAME Joan /Altre/", 1)
	res := importFile(t, store, writeGedcom(t, "vell.ged", older), Options{ReplaceMode: MatchOnly, NewerOnly: true})
	assert.Equal(t, 1, res.Stats.Individuals.Skipped)
	assert.Equal(t, "Puig", rowsByKey(t, store, db.KindIndividual)["I1"].String("surname"))

	newer := strings.Replace(older, "2 DATE 1 JAN 2019", "2 DATE 2 JAN 2020", 1)
	res = importFile(t, store, writeGedcom(t, "nou.ged", newer), Options{ReplaceMode: MatchOnly, NewerOnly: true})
	assert.Zero(t, res.Stats.Individuals.Skipped)
	assert.Equal(t, "Altre", rowsByKey(t, store, db.KindIndividual)["I1"].String("surname"))
}

func TestImportUppercaseSurnames(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{UppercaseSurnames: true})

	people := rowsByKey(t, store, db.KindIndividual)
	assert.Equal(t, "PUIG", people["I1"].String("surname"))
	assert.Equal(t, "Joan", people["I1"].String("given_name"))
	assert.Equal(t, "Joan PUIG", people["I1"].String("full_name"))
	assert.Equal(t, "PUIG", people["I1"].String("surname_key"))
	assert.Equal(t, "JOAN", people["I1"].String("given_key"))
}

func TestImportSkipLivingRecalculation(t *testing.T) {
	store := db.NewMemory()
	content := strings.Replace(familyGedcom, "1 NAME Laia /Puig/", "1 NAME Laia /Puig/\n1 _LIVING N", 1)
	importFile(t, store, writeGedcom(t, "vius.ged", content), Options{SkipLivingRecalculation: true})

	people := rowsByKey(t, store, db.KindIndividual)
	assert.False(t, people["I5"].Bool("living"))
	assert.False(t, people["I5"].Bool("private"))
}

func TestImportWithoutLatLong(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{ImportLatLong: false})

	events, err := store.List(context.Background(), testTree, db.KindEvent)
	require.NoError(t, err)
	for _, ev := range events {
		assert.Empty(t, ev.String("latitude"))
	}
}

func TestImportEventsOnly(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)
	importFile(t, store, path, Options{})
	events := countOf(t, store, db.KindEvent)

	extra := strings.Replace(familyGedcom, "1 NAME Rosa /Vila/", "1 NAME Rosa /Vila/\n1 OCCU Mestra", 1)
	extra = strings.Replace(extra, "0 @S1@ SOUR", "0 @I9@ INDI\n1 NAME Nou /Nouvingut/\n1 BIRT\n2 DATE 1900\n0 @S1@ SOUR", 1)
	extraPath := writeGedcom(t, "esdeveniments.ged", extra)

	res := importFile(t, store, extraPath, Options{ReplaceMode: MatchOnly, EventsOnly: true})
	assert.Zero(t, res.Stats.Individuals.Imported())
	assert.Equal(t, 7, res.Stats.Individuals.Skipped)
	assert.Equal(t, 6, countOf(t, store, db.KindIndividual))
	assert.Equal(t, events+1, countOf(t, store, db.KindEvent))

	// Una segona passada no duplica res.
	importFile(t, store, extraPath, Options{ReplaceMode: MatchOnly, EventsOnly: true})
	assert.Equal(t, events+1, countOf(t, store, db.KindEvent))
	assert.Equal(t, 1, countOf(t, store, db.KindCitation))
}

func TestImportBranchFilter(t *testing.T) {
	store := db.NewMemory()
	res := importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{BranchFilter: "@I3@"})

	people := rowsByKey(t, store, db.KindIndividual)
	assert.Len(t, people, 3)
	assert.Contains(t, people, "I3")
	assert.Contains(t, people, "I5")
	assert.Contains(t, people, "I6")
	assert.Equal(t, 3, res.Stats.Individuals.Skipped)
	families := rowsByKey(t, store, db.KindFamily)
	assert.Len(t, families, 1)
	assert.Contains(t, families, "F2")
}

func TestImportBranchFilterUnknownRoot(t *testing.T) {
	store := db.NewMemory()
	res, err := NewImporter(store).Import(context.Background(), writeGedcom(t, "familia.ged", familyGedcom), testTree, Options{BranchFilter: "I404"})
	require.Error(t, err)
	assert.Equal(t, StatusAborted, res.Status)
	assert.Zero(t, countOf(t, store, db.KindIndividual))
}

func TestImportCustomEvents(t *testing.T) {
	content := strings.Replace(familyGedcom, "1 NAME Rosa /Vila/", "1 NAME Rosa /Vila/\n1 EVEN\n2 TYPE Servei militar\n2 DATE 1940\n1 _MILT\n2 DATE 1941", 1)
	store := db.NewMemory()
	res := importFile(t, store, writeGedcom(t, "propis.ged", content), Options{AllEvents: true})

	assert.Equal(t, "Servei militar", res.CustomEventTypes["custom:servei_militar"])
	assert.Equal(t, "MILT", res.CustomEventTypes["custom:milt"])
	events, err := store.List(context.Background(), testTree, db.KindEvent)
	require.NoError(t, err)
	custom := 0
	for _, ev := range events {
		if ev.Bool("custom") {
			custom++
			assert.True(t, strings.HasPrefix(ev.String("event_type"), "custom:"))
		}
	}
	assert.Equal(t, 2, custom)
}

func TestImportFatalErrorsLeaveStoreUntouched(t *testing.T) {
	store := db.NewMemory()
	importFile(t, store, writeGedcom(t, "familia.ged", familyGedcom), Options{})

	cases := map[string]struct {
		content string
		want    error
	}{
		"buit":       {"", gedcom.ErrEmptyFile},
		"sense_head": {"0 @I1@ INDI\n1 NAME X /Y/\n0 TRLR\n", gedcom.ErrMissingHeader},
		"sense_trlr": {"0 HEAD\n0 @I1@ INDI\n1 NAME X /Y/\n", gedcom.ErrMissingTrailer},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := NewImporter(store).Import(context.Background(), writeGedcom(t, name+".ged", tc.content), testTree, Options{})
			require.ErrorIs(t, err, tc.want)
			assert.False(t, res.Success)
			assert.Equal(t, StatusAborted, res.Status)
			assert.NotEmpty(t, res.Errors)
			assert.Equal(t, 6, countOf(t, store, db.KindIndividual))
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	res, err := NewImporter(db.NewMemory()).Import(context.Background(), filepath.Join(t.TempDir(), "no.ged"), testTree, Options{})
	require.Error(t, err)
	assert.Equal(t, StatusAborted, res.Status)
}

func TestImportCancelReplaceAllRollsBack(t *testing.T) {
	store := db.NewMemory()
	path := writeGedcom(t, "familia.ged", familyGedcom)
	importFile(t, store, path, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := Options{ReplaceMode: ReplaceAll, Progress: func(status string) {
		if status == db.RunPersisting {
			cancel()
		}
	}}
	res, err := NewImporter(store).Import(ctx, path, testTree, opts)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, 6, countOf(t, store, db.KindIndividual))
	assert.Equal(t, 2, countOf(t, store, db.KindFamily))
}

func TestImportProgressOrder(t *testing.T) {
	var seen []string
	opts := Options{Progress: func(status string) { seen = append(seen, status) }}
	importFile(t, db.NewMemory(), writeGedcom(t, "familia.ged", familyGedcom), opts)
	assert.Equal(t, []string{db.RunParsing, db.RunResolving, db.RunPersisting}, seen)
}

func TestImportInlineSourceText(t *testing.T) {
	content := strings.Replace(familyGedcom, "1 NAME Rosa /Vila/", "1 NAME Rosa /Vila/\n1 SOUR Padró de 1930\n1 OCCU Mestra\n2 SOUR Llibreta escolar", 1)
	store := db.NewMemory()
	res := importFile(t, store, writeGedcom(t, "text.ged", content), Options{})

	assert.Equal(t, 1, res.Stats.Citations.Inserted)
	people := rowsByKey(t, store, db.KindIndividual)
	assert.Contains(t, people["I6"].String("extra"), "Padró de 1930")
	events, err := store.List(context.Background(), testTree, db.KindEvent)
	require.NoError(t, err)
	found := false
	for _, ev := range events {
		if ev.String("owner_id") == "I6" && ev.String("event_type") == "occupation" {
			found = true
			assert.Equal(t, "Mestra; Llibreta escolar", ev.String("detail"))
		}
	}
	assert.True(t, found)
}

func TestNameKeys(t *testing.T) {
	assert.Equal(t, "PUIGFERRER", surnameKey("Puig-Ferrer"))
	assert.Equal(t, "PUIGFERRER", surnameKey(" puig  ferrer "))
	assert.Equal(t, "COLLELL", surnameKey("Col·lell"))
	assert.Equal(t, "DALMAU", surnameKey("d'Almau"))
	assert.Equal(t, "JOSEP", givenKey("Josép"))
	assert.Equal(t, "", surnameKey("  "))
}

func TestParseReplaceMode(t *testing.T) {
	for in, want := range map[string]ReplaceMode{
		"":             ReplaceAll,
		"replace_all":  ReplaceAll,
		"MATCH_ONLY":   MatchOnly,
		" no_replace ": NoReplace,
		"append":       Append,
	} {
		got, err := ParseReplaceMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseReplaceMode("merge")
	assert.Error(t, err)
}

func TestParseAppendOffset(t *testing.T) {
	n, err := ParseAppendOffset("auto")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = ParseAppendOffset("250")
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	_, err = ParseAppendOffset("-3")
	assert.Error(t, err)
}

func TestShiftXRef(t *testing.T) {
	prefix, digits := splitXRef("I0012")
	assert.Equal(t, "I", prefix)
	assert.Equal(t, "0012", digits)
	assert.Equal(t, "I0023", shiftXRef(prefix, digits, 11))
	assert.Equal(t, "I1011", shiftXRef("I", "12", 999))
	assert.Equal(t, "SMITH5", shiftXRef("SMITH", "", 5))
}
