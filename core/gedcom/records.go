package gedcom

import "time"

// Header conté les metadades de la capçalera HEAD.
type Header struct {
	SourceID        string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	SourceName      string `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	SourceVersion   string `json:"source_version,omitempty" yaml:"source_version,omitempty"`
	SourceCorp      string `json:"source_corp,omitempty" yaml:"source_corp,omitempty"`
	Destination     string `json:"destination,omitempty" yaml:"destination,omitempty"`
	Date            string `json:"date,omitempty" yaml:"date,omitempty"`
	Time            string `json:"time,omitempty" yaml:"time,omitempty"`
	SubmitterRef    string `json:"submitter_ref,omitempty" yaml:"submitter_ref,omitempty"`
	SubmitterName   string `json:"submitter_name,omitempty" yaml:"submitter_name,omitempty"`
	SubmitterAddr   string `json:"submitter_address,omitempty" yaml:"submitter_address,omitempty"`
	GedcomVersion   string `json:"gedcom_version,omitempty" yaml:"gedcom_version,omitempty"`
	GedcomForm      string `json:"gedcom_form,omitempty" yaml:"gedcom_form,omitempty"`
	Charset         string `json:"charset,omitempty" yaml:"charset,omitempty"`
	FileName        string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Copyright       string `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	Language        string `json:"language,omitempty" yaml:"language,omitempty"`
	PlaceForm       string `json:"place_form,omitempty" yaml:"place_form,omitempty"`
	Note            string `json:"note,omitempty" yaml:"note,omitempty"`
	ExtraHeaderTags int    `json:"-" yaml:"-"`
}

type Address struct {
	Text       string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Citation és una cita SOUR dins d'un registre o d'un esdeveniment.
// SourceRef és buit quan la cita és de text lliure.
type Citation struct {
	SourceRef string
	Page      string
	Quality   int
	Date      string
	Text      string
	Note      string
	Line      int
}

// NoteRef apunta a una nota NOTE compartida o porta text en línia.
type NoteRef struct {
	Ref    string
	Text   string
	Secret bool
	Line   int
}

// MediaRef apunta a un objecte OBJE compartit o en porta un en línia.
type MediaRef struct {
	Ref    string
	Inline *Media
	Line   int
}

type Extra struct {
	Tag   string
	Value string
}

// Event és un esdeveniment o atribut d'una persona o família.
type Event struct {
	Tag       string
	Code      string
	Custom    bool
	TypeLabel string
	Value     string
	Date      string
	DateSort  string
	Place     string
	Latitude  string
	Longitude string
	Address   string
	Age       string
	Cause     string
	Agency    string
	Citations []Citation
	Notes     []NoteRef
	Media     []MediaRef
	Line      int
}

// Detail retorna el text descriptiu de l'esdeveniment (p. ex. l'ofici a OCCU).
func (e Event) Detail() string {
	if e.Value == "" || e.Value == "Y" || e.Value == "y" {
		return ""
	}
	return e.Value
}

type PersonalName struct {
	Full          string
	Given         string
	Surname       string
	Prefix        string
	Suffix        string
	SurnamePrefix string
	Nickname      string
}

type FamilyLink struct {
	Ref      string
	Pedigree string
}

type Individual struct {
	XRef         string
	Line         int
	Name         PersonalName
	AltNames     []PersonalName
	Sex          string
	Events       []Event
	ChildOf      []FamilyLink
	SpouseOf     []string
	Living       *bool
	Private      *bool
	Restriction  string
	Changed      time.Time
	Citations    []Citation
	Notes        []NoteRef
	Media        []MediaRef
	Extra        []Extra
	ExternalRefs []string
}

type Child struct {
	Ref       string
	Ordinal   int
	FatherRel string
	MotherRel string
	Line      int
}

type Family struct {
	XRef        string
	Line        int
	Husband     string
	Wife        string
	Children    []Child
	ChildCount  string
	Events      []Event
	Private     *bool
	Restriction string
	Changed     time.Time
	Citations   []Citation
	Notes       []NoteRef
	Media       []MediaRef
	Extra       []Extra
}

type Source struct {
	XRef          string
	Line          int
	Title         string
	Author        string
	Publisher     string
	Abbreviation  string
	Text          string
	RepositoryRef string
	CallNumber    string
	Changed       time.Time
	Notes         []NoteRef
	Media         []MediaRef
	Extra         []Extra
}

type Repository struct {
	XRef    string
	Line    int
	Name    string
	Address Address
	Phone   string
	Email   string
	WWW     string
	Changed time.Time
	Notes   []NoteRef
}

type Media struct {
	XRef    string
	Line    int
	Title   string
	Format  string
	File    string
	Changed time.Time
	Notes   []NoteRef
}

type Note struct {
	XRef      string
	Line      int
	Text      string
	Changed   time.Time
	Citations []Citation
}

type Submitter struct {
	XRef    string
	Line    int
	Name    string
	Address Address
	Phone   string
	Email   string
}

// Document és el resultat de la primera passada: tots els registres del
// fitxer amb les referències encara sense resoldre.
type Document struct {
	Header       Header
	Individuals  []*Individual
	Families     []*Family
	Sources      []*Source
	Repositories []*Repository
	Media        []*Media
	Notes        []*Note
	Submitters   []*Submitter
	Trailer      bool

	// CustomEventTypes associa cada codi sintètic a la seva etiqueta.
	CustomEventTypes map[string]string
	// Dropped compta, per etiqueta, els registres descartats en l'anàlisi
	// (sense identificador o repetits).
	Dropped map[string]int
}

func (d *Document) drop(tag string) {
	if d.Dropped == nil {
		d.Dropped = map[string]int{}
	}
	d.Dropped[tag]++
}

// Index retorna els identificadors definits per tipus de registre.
func (d *Document) Index() map[string]map[string]bool {
	idx := map[string]map[string]bool{
		"INDI": {}, "FAM": {}, "SOUR": {}, "REPO": {}, "OBJE": {}, "NOTE": {}, "SUBM": {},
	}
	for _, r := range d.Individuals {
		idx["INDI"][r.XRef] = true
	}
	for _, r := range d.Families {
		idx["FAM"][r.XRef] = true
	}
	for _, r := range d.Sources {
		idx["SOUR"][r.XRef] = true
	}
	for _, r := range d.Repositories {
		idx["REPO"][r.XRef] = true
	}
	for _, r := range d.Media {
		idx["OBJE"][r.XRef] = true
	}
	for _, r := range d.Notes {
		idx["NOTE"][r.XRef] = true
	}
	for _, r := range d.Submitters {
		idx["SUBM"][r.XRef] = true
	}
	return idx
}

// EventCount compta tots els esdeveniments de persones i famílies.
func (d *Document) EventCount() int {
	n := 0
	for _, r := range d.Individuals {
		n += len(r.Events)
	}
	for _, r := range d.Families {
		n += len(r.Events)
	}
	return n
}
