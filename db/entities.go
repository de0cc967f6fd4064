package db

import "time"

// Propietaris possibles d'esdeveniments, cites i enllaços.
const (
	OwnerIndividual = "INDI"
	OwnerFamily     = "FAM"
	OwnerSource     = "SOUR"
	OwnerNote       = "NOTE"
	OwnerMedia      = "OBJE"
	OwnerRepository = "REPO"
)

type Individual struct {
	Tree             string
	ExternalID       string
	GivenName        string
	Surname          string
	NamePrefix       string
	NameSuffix       string
	SurnamePrefix    string
	Nickname         string
	FullName         string
	SurnameKey       string
	GivenKey         string
	Sex              string
	BirthDate        string
	BirthDateSort    string
	BirthPlace       string
	ChristeningDate  string
	ChristeningPlace string
	DeathDate        string
	DeathDateSort    string
	DeathPlace       string
	BurialDate       string
	BurialPlace      string
	ParentFamily     string
	Pedigree         string
	Living           bool
	Private          bool
	ChangedAt        time.Time
	Extra            string
}

func (Individual) Kind() Kind { return KindIndividual }

func (i Individual) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":              i.Tree,
		"external_id":       i.ExternalID,
		"given_name":        i.GivenName,
		"surname":           i.Surname,
		"name_prefix":       i.NamePrefix,
		"name_suffix":       i.NameSuffix,
		"surname_prefix":    i.SurnamePrefix,
		"nickname":          i.Nickname,
		"full_name":         i.FullName,
		"surname_key":       i.SurnameKey,
		"given_key":         i.GivenKey,
		"sex":               i.Sex,
		"birth_date":        i.BirthDate,
		"birth_date_sort":   i.BirthDateSort,
		"birth_place":       i.BirthPlace,
		"christening_date":  i.ChristeningDate,
		"christening_place": i.ChristeningPlace,
		"death_date":        i.DeathDate,
		"death_date_sort":   i.DeathDateSort,
		"death_place":       i.DeathPlace,
		"burial_date":       i.BurialDate,
		"burial_place":      i.BurialPlace,
		"parent_family":     i.ParentFamily,
		"pedigree":          i.Pedigree,
		"living":            boolInt(i.Living),
		"private":           boolInt(i.Private),
		"changed_at":        formatTime(i.ChangedAt),
		"extra":             i.Extra,
	}
}

type Family struct {
	Tree             string
	ExternalID       string
	HusbandID        string
	WifeID           string
	MarriageDate     string
	MarriageDateSort string
	MarriagePlace    string
	DivorceDate      string
	ChildrenCount    int
	Living           bool
	Private          bool
	ChangedAt        time.Time
	Extra            string
}

func (Family) Kind() Kind { return KindFamily }

func (f Family) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":               f.Tree,
		"external_id":        f.ExternalID,
		"husband_id":         f.HusbandID,
		"wife_id":            f.WifeID,
		"marriage_date":      f.MarriageDate,
		"marriage_date_sort": f.MarriageDateSort,
		"marriage_place":     f.MarriagePlace,
		"divorce_date":       f.DivorceDate,
		"children_count":     f.ChildrenCount,
		"living":             boolInt(f.Living),
		"private":            boolInt(f.Private),
		"changed_at":         formatTime(f.ChangedAt),
		"extra":              f.Extra,
	}
}

type FamilyChild struct {
	Tree      string
	FamilyID  string
	ChildID   string
	Ordinal   int
	FatherRel string
	MotherRel string
}

func (FamilyChild) Kind() Kind { return KindChild }

func (c FamilyChild) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":       c.Tree,
		"family_id":  c.FamilyID,
		"child_id":   c.ChildID,
		"ordinal":    c.Ordinal,
		"father_rel": c.FatherRel,
		"mother_rel": c.MotherRel,
	}
}

type Event struct {
	Tree      string
	OwnerKind string
	OwnerID   string
	EventType string
	Tag       string
	Custom    bool
	TypeLabel string
	Date      string
	DateSort  string
	Place     string
	Latitude  string
	Longitude string
	Address   string
	Age       string
	Cause     string
	Agency    string
	Detail    string
}

func (Event) Kind() Kind { return KindEvent }

func (e Event) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":            e.Tree,
		"owner_kind":      e.OwnerKind,
		"owner_id":        e.OwnerID,
		"event_type":      e.EventType,
		"tag":             e.Tag,
		"custom":          boolInt(e.Custom),
		"type_label":      e.TypeLabel,
		"event_date":      e.Date,
		"event_date_sort": e.DateSort,
		"place":           e.Place,
		"latitude":        e.Latitude,
		"longitude":       e.Longitude,
		"address":         e.Address,
		"age":             e.Age,
		"cause":           e.Cause,
		"agency":          e.Agency,
		"detail":          e.Detail,
	}
}

type Source struct {
	Tree         string
	ExternalID   string
	Title        string
	Author       string
	Publisher    string
	Abbreviation string
	Text         string
	RepositoryID string
	CallNumber   string
	ChangedAt    time.Time
	Extra        string
}

func (Source) Kind() Kind { return KindSource }

func (s Source) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":          s.Tree,
		"external_id":   s.ExternalID,
		"title":         s.Title,
		"author":        s.Author,
		"publisher":     s.Publisher,
		"abbreviation":  s.Abbreviation,
		"body":          s.Text,
		"repository_id": s.RepositoryID,
		"call_number":   s.CallNumber,
		"changed_at":    formatTime(s.ChangedAt),
		"extra":         s.Extra,
	}
}

type Repository struct {
	Tree       string
	ExternalID string
	Name       string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Email      string
	WWW        string
	ChangedAt  time.Time
}

func (Repository) Kind() Kind { return KindRepository }

func (r Repository) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":        r.Tree,
		"external_id": r.ExternalID,
		"name":        r.Name,
		"address":     r.Address,
		"city":        r.City,
		"state":       r.State,
		"postal_code": r.PostalCode,
		"country":     r.Country,
		"phone":       r.Phone,
		"email":       r.Email,
		"www":         r.WWW,
		"changed_at":  formatTime(r.ChangedAt),
	}
}

// Citation enllaça un registre (o un dels seus esdeveniments, EventID) amb
// una font.
type Citation struct {
	Tree      string
	OwnerKind string
	OwnerID   string
	EventID   int64
	SourceID  string
	Page      string
	Quality   int
	Date      string
	Text      string
	Note      string
}

func (Citation) Kind() Kind { return KindCitation }

func (c Citation) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":          c.Tree,
		"owner_kind":    c.OwnerKind,
		"owner_id":      c.OwnerID,
		"event_id":      c.EventID,
		"source_id":     c.SourceID,
		"page":          c.Page,
		"quality":       c.Quality,
		"citation_date": c.Date,
		"body":          c.Text,
		"note":          c.Note,
	}
}

type Note struct {
	Tree       string
	ExternalID string
	Text       string
	Inline     bool
	ChangedAt  time.Time
}

func (Note) Kind() Kind { return KindNote }

func (n Note) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":        n.Tree,
		"external_id": n.ExternalID,
		"body":        n.Text,
		"inline":      boolInt(n.Inline),
		"changed_at":  formatTime(n.ChangedAt),
	}
}

type NoteLink struct {
	Tree      string
	NoteID    string
	OwnerKind string
	OwnerID   string
	EventID   int64
	Secret    bool
	Ordinal   int
}

func (NoteLink) Kind() Kind { return KindNoteLink }

func (l NoteLink) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":       l.Tree,
		"note_id":    l.NoteID,
		"owner_kind": l.OwnerKind,
		"owner_id":   l.OwnerID,
		"event_id":   l.EventID,
		"secret":     boolInt(l.Secret),
		"ordinal":    l.Ordinal,
	}
}

type Media struct {
	Tree       string
	ExternalID string
	Title      string
	Format     string
	FilePath   string
	Width      int
	Height     int
	Inline     bool
	ChangedAt  time.Time
}

func (Media) Kind() Kind { return KindMedia }

func (m Media) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":        m.Tree,
		"external_id": m.ExternalID,
		"title":       m.Title,
		"format":      m.Format,
		"file_path":   m.FilePath,
		"width":       m.Width,
		"height":      m.Height,
		"inline":      boolInt(m.Inline),
		"changed_at":  formatTime(m.ChangedAt),
	}
}

type MediaLink struct {
	Tree      string
	MediaID   string
	OwnerKind string
	OwnerID   string
	EventID   int64
	Ordinal   int
}

func (MediaLink) Kind() Kind { return KindMediaLink }

func (l MediaLink) Columns() map[string]interface{} {
	return map[string]interface{}{
		"tree":       l.Tree,
		"media_id":   l.MediaID,
		"owner_kind": l.OwnerKind,
		"owner_id":   l.OwnerID,
		"event_id":   l.EventID,
		"ordinal":    l.Ordinal,
	}
}
