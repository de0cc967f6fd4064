package gedcom

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, src string, opts ParseOptions) (*Document, *Diagnostics) {
	t.Helper()
	diag := NewDiagnostics(0)
	doc, err := Parse(context.Background(), strings.NewReader(src), opts, diag)
	if err != nil {
		t.Fatalf("error analitzant: %v", err)
	}
	return doc, diag
}

const smallTree = `0 HEAD
1 SOUR TESTGEN
2 VERS 1.2
1 GEDC
2 VERS 5.5.1
1 CHAR UTF-8
1 SUBM @U1@
0 @U1@ SUBM
1 NAME Maria Puig
0 @I1@ INDI
1 NAME John William /Smith/
1 SEX M
1 BIRT
2 DATE ABT 1850
2 PLAC Vic, Osona
3 MAP
4 LATI N41.93
4 LONG E2.25
1 FAMS @F1@
0 @I2@ INDI
1 NAME Anna /Serra/
1 SEX F
1 FAMS @F1@
0 @I3@ INDI
1 NAME Pere /Smith/
1 FAMC @F1@
2 PEDI birth
0 @I4@ INDI
1 NAME Joan /Smith/
1 FAMC @F1@
0 @F1@ FAM
1 HUSB @I1@
1 WIFE @I2@
1 CHIL @I3@
1 CHIL @I4@
1 MARR
2 DATE 12 MAY 1875
0 TRLR
`

func TestParseSmallTree(t *testing.T) {
	doc, diag := parseString(t, smallTree, ParseOptions{})
	require.Len(t, doc.Individuals, 4)
	require.Len(t, doc.Families, 1)
	assert.Equal(t, 0, diag.Total, "avisos inesperats: %v", diag.Warnings)

	john := doc.Individuals[0]
	assert.Equal(t, "I1", john.XRef)
	assert.Equal(t, "John William", john.Name.Given)
	assert.Equal(t, "Smith", john.Name.Surname)
	assert.Equal(t, "John William Smith", john.Name.Full)
	assert.Equal(t, "M", john.Sex)
	require.Len(t, john.Events, 1)
	birth := john.Events[0]
	assert.Equal(t, "birth", birth.Code)
	assert.Equal(t, "1850-00-00", birth.DateSort)
	assert.Equal(t, "Vic, Osona", birth.Place)
	assert.Equal(t, "41.93", birth.Latitude)
	assert.Equal(t, "2.25", birth.Longitude)

	fam := doc.Families[0]
	assert.Equal(t, "I1", fam.Husband)
	assert.Equal(t, "I2", fam.Wife)
	require.Len(t, fam.Children, 2)
	assert.Equal(t, 1, fam.Children[0].Ordinal)
	assert.Equal(t, "I3", fam.Children[0].Ref)
	assert.Equal(t, 2, fam.Children[1].Ordinal)
	assert.Equal(t, "I4", fam.Children[1].Ref)

	assert.Equal(t, "birth", doc.Individuals[2].ChildOf[0].Pedigree)
	assert.Equal(t, "Maria Puig", doc.Header.SubmitterName)
	assert.Equal(t, "5.5.1", doc.Header.GedcomVersion)
}

func TestParseContinuations(t *testing.T) {
	src := "0 HEAD\n0 @N1@ NOTE First\n1 CONT second\n1 CONC  half\n0 TRLR\n"
	doc, _ := parseString(t, src, ParseOptions{})
	require.Len(t, doc.Notes, 1)
	assert.Equal(t, "First\nsecond half", doc.Notes[0].Text)
}

func TestParseFatalErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"buit", "", ErrEmptyFile},
		{"només blancs", "\n\n  \n", ErrEmptyFile},
		{"sense HEAD", "0 @I1@ INDI\n0 TRLR\n", ErrMissingHeader},
		{"sense TRLR", "0 HEAD\n0 @I1@ INDI\n1 NAME A /B/\n", ErrMissingTrailer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), strings.NewReader(tc.src), ParseOptions{}, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("esperava %v, tinc %v", tc.want, err)
			}
		})
	}
}

func TestParseRecoversFromBadInput(t *testing.T) {
	src := strings.Join([]string{
		"\uFEFF0 HEAD",
		"0 HEAD",
		"1 SOUR other",
		"this line is garbage",
		"0 @X1@ _PLAC Somewhere",
		"1 NOTE skipped",
		"0 @I1@ INDI",
		"1 NAME Ada /Byron/",
		"3 DATE 1815",
		"1 SEX F",
		"0 @I1@ INDI",
		"1 NAME Duplicate /Person/",
		"0 INDI",
		"0 TRLR",
		"0 @I9@ INDI",
	}, "\r\n")
	doc, diag := parseString(t, src, ParseOptions{})

	require.Len(t, doc.Individuals, 1)
	assert.Equal(t, "Byron", doc.Individuals[0].Name.Surname)
	assert.Equal(t, "F", doc.Individuals[0].Sex)
	assert.Equal(t, 1, diag.Count(WarnDuplicateHeader))
	assert.Equal(t, 1, diag.Count(WarnMalformedLine))
	assert.Equal(t, 1, diag.Count(WarnUnknownRecord))
	assert.Equal(t, 1, diag.Count(WarnLevelJump))
	assert.Equal(t, 1, diag.Count(WarnDuplicateRecord))
	assert.Equal(t, 1, diag.Count(WarnMissingXRef))
	assert.Equal(t, 2, doc.Dropped["INDI"])
}

func TestNormalizeSex(t *testing.T) {
	cases := map[string]string{
		"M": "M", "male": "M", "F": "F", " f ": "F",
		"X": "U", "U": "U", "": "U", "?": "U",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSex(in), "SEX %q", in)
	}
}

func TestParseCharsetANSI(t *testing.T) {
	// "Martí" en Windows-1252
	src := "0 HEAD\n1 CHAR ANSI\n0 @I1@ INDI\n1 NAME Mart\xed /Vila/\n0 TRLR\n"
	doc, diag := parseString(t, src, ParseOptions{})
	require.Len(t, doc.Individuals, 1)
	assert.Equal(t, "Martí", doc.Individuals[0].Name.Given)
	assert.Zero(t, diag.Count(WarnCharset))
}

func TestParseUnsupportedCharsetWarns(t *testing.T) {
	src := "0 HEAD\n1 CHAR ANSEL\n0 TRLR\n"
	_, diag := parseString(t, src, ParseOptions{})
	assert.Equal(t, 1, diag.Count(WarnCharset))
}

func TestParseCustomEvents(t *testing.T) {
	src := `0 HEAD
0 @I1@ INDI
1 NAME A /B/
1 EVEN
2 TYPE Military service
2 DATE 1914
1 EVEN
2 TYPE Birth
1 _MILT Infantry
2 DATE 1916
0 TRLR
`
	doc, diag := parseString(t, src, ParseOptions{})
	ind := doc.Individuals[0]
	require.Len(t, ind.Events, 2)
	assert.Equal(t, "custom:military_service", ind.Events[0].Code)
	assert.Equal(t, "custom:birth", ind.Events[1].Code, "un tipus propi no pot fer ombra a un estàndard")
	assert.Equal(t, 1, diag.Count(WarnUnknownTag))

	doc, _ = parseString(t, src, ParseOptions{AllEvents: true})
	ind = doc.Individuals[0]
	require.Len(t, ind.Events, 3)
	assert.Equal(t, "custom:milt", ind.Events[2].Code)
	assert.Equal(t, "Infantry", ind.Events[2].Detail())
	assert.Equal(t, "Military service", doc.CustomEventTypes["custom:military_service"])
}

func TestParseCitationsAndChange(t *testing.T) {
	src := `0 HEAD
0 @S1@ SOUR
1 TITL Parish register
1 REPO @R1@
2 CALN 123
0 @R1@ REPO
1 NAME Arxiu
0 @I1@ INDI
1 NAME A /B/
1 SOUR @S1@
2 PAGE f. 12
2 QUAY 3
1 DEAT
2 SOUR @S99@
1 CHAN
2 DATE 3 MAR 2021
3 TIME 10:15:30
0 TRLR
`
	doc, _ := parseString(t, src, ParseOptions{})
	ind := doc.Individuals[0]
	require.Len(t, ind.Citations, 1)
	assert.Equal(t, "S1", ind.Citations[0].SourceRef)
	assert.Equal(t, "f. 12", ind.Citations[0].Page)
	assert.Equal(t, 3, ind.Citations[0].Quality)
	require.Len(t, ind.Events[0].Citations, 1)
	assert.Equal(t, "S99", ind.Events[0].Citations[0].SourceRef)
	assert.Equal(t, "2021-03-03T10:15:30Z", ind.Changed.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "R1", doc.Sources[0].RepositoryRef)
	assert.Equal(t, "123", doc.Sources[0].CallNumber)
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader(smallTree), ParseOptions{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
