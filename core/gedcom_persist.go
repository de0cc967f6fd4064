package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

var errImportCancelled = errors.New("importació cancel·lada")

// persister escriu un document ja analitzat dins de la transacció tx.
type persister struct {
	tx    db.Store
	ctx   context.Context
	stop  context.Context
	tree  string
	opts  Options
	res   *resolver
	doc   *gedcom.Document
	keep  *branch
	diag  *gedcom.Diagnostics
	stats *Stats
	log   *slog.Logger
	now   time.Time

	pedigree map[string]string
}

// linkSeq numera les notes i els multimèdia d'un registre.
type linkSeq struct {
	notes       int
	media       int
	inlineNotes int
	inlineMedia int
}

func (p *persister) run() error {
	p.pedigree = map[string]string{}
	for _, ind := range p.doc.Individuals {
		for _, link := range ind.ChildOf {
			if link.Pedigree != "" {
				p.pedigree[link.Ref+"|"+ind.XRef] = link.Pedigree
			}
		}
	}
	if p.opts.EventsOnly {
		return p.eventsOnly()
	}
	steps := []struct {
		kind db.Kind
		fn   func() error
	}{
		{db.KindRepository, p.repositories},
		{db.KindSource, p.sources},
		{db.KindNote, p.notes},
		{db.KindMedia, p.mediaRecords},
		{db.KindIndividual, p.individuals},
		{db.KindFamily, p.families},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return err
		}
		p.res.markDone(step.kind)
	}
	return nil
}

func (p *persister) checkStop() error {
	if err := p.stop.Err(); err != nil {
		return fmt.Errorf("%w: %w", errImportCancelled, err)
	}
	return nil
}

type writeFunc func(tx db.Store, id string, d decision, delta *Stats) error

// apply decideix què fer amb un registre i, si cal, l'escriu. Tant la
// consulta com l'escriptura van dins d'un punt de retorn propi: un error del
// magatzem només descarta aquell registre.
func (p *persister) apply(kind db.Kind, xref string, changed time.Time, count *Count, onSkip func(), write writeFunc) error {
	if err := p.checkStop(); err != nil {
		return err
	}
	skip := func() {
		count.Skipped++
		if onSkip != nil {
			onSkip()
		}
	}
	id := p.res.id(kind, xref)
	var (
		d         decision
		delta     Stats
		lookupErr error
	)
	err := p.tx.WithTx(p.ctx, func(tx db.Store) error {
		delta = Stats{}
		d, lookupErr = decide(p.ctx, tx, p.tree, p.opts, kind, id, changed)
		if lookupErr != nil {
			return lookupErr
		}
		if d.action == actionSkip {
			return nil
		}
		return write(tx, id, d, &delta)
	})
	switch {
	case lookupErr != nil:
		p.diag.Addf(gedcom.WarnStore, 0, xref, "no s'ha pogut consultar: %v", lookupErr)
		skip()
		return nil
	case err != nil:
		p.diag.Addf(gedcom.WarnStore, 0, xref, "no s'ha pogut desar: %v", err)
		skip()
		return nil
	case d.action == actionSkip:
		p.log.Debug("registre omès", "xref", xref, "motiu", d.reason)
		skip()
		return nil
	}
	if d.action == actionUpdate {
		count.Updated++
	} else {
		count.Inserted++
	}
	p.res.markWritten(kind, id)
	p.stats.add(delta)
	return nil
}

// upsert insereix o actualitza una entitat amb clau segons la decisió.
func (p *persister) upsert(tx db.Store, e db.Entity, d decision) (int64, error) {
	if d.action == actionUpdate {
		return d.id, tx.Update(p.ctx, e.Kind(), d.id, e.Columns())
	}
	return tx.Insert(p.ctx, e)
}

// clearOwned esborra el que penja d'un registre abans de reescriure'l.
func (p *persister) clearOwned(tx db.Store, ownerKind, ownerID string, kinds ...db.Kind) error {
	for _, k := range kinds {
		if err := tx.DeleteOwned(p.ctx, p.tree, k, ownerKind, ownerID); err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) skipOwned(cits []gedcom.Citation, events []gedcom.Event) {
	p.stats.Events.Skipped += len(events)
	p.stats.Citations.Skipped += countCitations(cits, events)
}

func (p *persister) repositories() error {
	for _, repo := range p.doc.Repositories {
		repo := repo
		err := p.apply(db.KindRepository, repo.XRef, repo.Changed, &p.stats.Repositories, nil,
			func(tx db.Store, id string, d decision, delta *Stats) error {
				row := db.Repository{
					Tree:       p.tree,
					ExternalID: id,
					Name:       repo.Name,
					Address:    repo.Address.Text,
					City:       repo.Address.City,
					State:      repo.Address.State,
					PostalCode: repo.Address.PostalCode,
					Country:    repo.Address.Country,
					Phone:      repo.Phone,
					Email:      repo.Email,
					WWW:        repo.WWW,
					ChangedAt:  repo.Changed,
				}
				if _, err := p.upsert(tx, row, d); err != nil {
					return err
				}
				if d.action == actionUpdate {
					if err := p.clearOwned(tx, db.OwnerRepository, id, db.KindNoteLink); err != nil {
						return err
					}
				}
				return p.writeNotes(tx, db.OwnerRepository, id, repo.XRef, 0, repo.Notes, &linkSeq{}, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) sources() error {
	for _, src := range p.doc.Sources {
		src := src
		err := p.apply(db.KindSource, src.XRef, src.Changed, &p.stats.Sources, nil,
			func(tx db.Store, id string, d decision, delta *Stats) error {
				row := db.Source{
					Tree:         p.tree,
					ExternalID:   id,
					Title:        src.Title,
					Author:       src.Author,
					Publisher:    src.Publisher,
					Abbreviation: src.Abbreviation,
					Text:         src.Text,
					CallNumber:   src.CallNumber,
					ChangedAt:    src.Changed,
					Extra:        extraJSON(src.Extra, nil, nil, nil),
				}
				if src.RepositoryRef != "" {
					repoID, ok, err := p.res.ref(p.ctx, tx, db.KindRepository, src.RepositoryRef)
					if err != nil {
						return err
					}
					if ok {
						row.RepositoryID = repoID
					} else {
						p.diag.Addf(gedcom.WarnDanglingRef, src.Line, src.XRef, "dipòsit inexistent %s", src.RepositoryRef)
					}
				}
				if _, err := p.upsert(tx, row, d); err != nil {
					return err
				}
				if d.action == actionUpdate {
					if err := p.clearOwned(tx, db.OwnerSource, id, db.KindNoteLink, db.KindMediaLink); err != nil {
						return err
					}
				}
				seq := &linkSeq{}
				if err := p.writeNotes(tx, db.OwnerSource, id, src.XRef, 0, src.Notes, seq, delta); err != nil {
					return err
				}
				return p.writeMedia(tx, db.OwnerSource, id, src.XRef, 0, src.Media, seq, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) notes() error {
	for _, note := range p.doc.Notes {
		note := note
		err := p.apply(db.KindNote, note.XRef, note.Changed, &p.stats.Notes,
			func() { p.stats.Citations.Skipped += countCitations(note.Citations, nil) },
			func(tx db.Store, id string, d decision, delta *Stats) error {
				row := db.Note{Tree: p.tree, ExternalID: id, Text: note.Text, ChangedAt: note.Changed}
				if _, err := p.upsert(tx, row, d); err != nil {
					return err
				}
				if d.action == actionUpdate {
					if err := p.clearOwned(tx, db.OwnerNote, id, db.KindCitation); err != nil {
						return err
					}
				}
				return p.writeCitations(tx, db.OwnerNote, id, note.XRef, 0, note.Citations, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) mediaRecords() error {
	for _, m := range p.doc.Media {
		if !p.opts.ImportMedia {
			p.stats.Media.Skipped++
			continue
		}
		m := m
		err := p.apply(db.KindMedia, m.XRef, m.Changed, &p.stats.Media, nil,
			func(tx db.Store, id string, d decision, delta *Stats) error {
				row := p.mediaRow(id, m, false)
				if _, err := p.upsert(tx, row, d); err != nil {
					return err
				}
				if d.action == actionUpdate {
					if err := p.clearOwned(tx, db.OwnerMedia, id, db.KindNoteLink); err != nil {
						return err
					}
				}
				return p.writeNotes(tx, db.OwnerMedia, id, m.XRef, 0, m.Notes, &linkSeq{}, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) mediaRow(id string, m *gedcom.Media, inline bool) db.Media {
	row := db.Media{
		Tree:       p.tree,
		ExternalID: id,
		Title:      m.Title,
		Format:     strings.ToLower(m.Format),
		FilePath:   m.File,
		Inline:     inline,
		ChangedAt:  m.Changed,
	}
	if m.File != "" && isImageFormat(m.Format, m.File) {
		w, h, err := probeMedia(p.opts.MediaRoot, m.File)
		switch {
		case err == nil:
			row.Width, row.Height = w, h
		case errors.Is(err, errMediaNotFound) && p.opts.MediaRoot == "":
			p.log.Debug("multimèdia sense fitxer local", "xref", m.XRef, "file", m.File)
		default:
			p.diag.Addf(gedcom.WarnMedia, m.Line, m.XRef, "no s'han pogut llegir les dimensions: %v", err)
		}
	}
	return row
}

func (p *persister) individuals() error {
	for _, ind := range p.doc.Individuals {
		ind := ind
		if !p.keep.hasIndividual(ind.XRef) {
			p.stats.Individuals.Skipped++
			p.skipOwned(ind.Citations, ind.Events)
			continue
		}
		err := p.apply(db.KindIndividual, ind.XRef, ind.Changed, &p.stats.Individuals,
			func() { p.skipOwned(ind.Citations, ind.Events) },
			func(tx db.Store, id string, d decision, delta *Stats) error {
				return p.writeIndividual(tx, ind, id, d, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) writeIndividual(tx db.Store, ind *gedcom.Individual, id string, d decision, delta *Stats) error {
	name := ind.Name
	if p.opts.UppercaseSurnames {
		name.Surname = strings.ToUpper(name.Surname)
		name.Full = name.Compose()
	}
	living, private := livingFlags(ind, p.opts, p.now)
	row := db.Individual{
		Tree:          p.tree,
		ExternalID:    id,
		GivenName:     name.Given,
		Surname:       name.Surname,
		NamePrefix:    name.Prefix,
		NameSuffix:    name.Suffix,
		SurnamePrefix: name.SurnamePrefix,
		Nickname:      name.Nickname,
		FullName:      name.Full,
		SurnameKey:    surnameKey(name.Surname),
		GivenKey:      givenKey(name.Given),
		Sex:           ind.Sex,
		Living:        living,
		Private:       private,
		ChangedAt:     ind.Changed,
	}
	if ev := firstEvent(ind.Events, "BIRT"); ev != nil {
		row.BirthDate, row.BirthDateSort, row.BirthPlace = ev.Date, ev.DateSort, ev.Place
	}
	if ev := firstEvent(ind.Events, "CHR", "BAPM"); ev != nil {
		row.ChristeningDate, row.ChristeningPlace = ev.Date, ev.Place
	}
	if ev := firstEvent(ind.Events, "DEAT"); ev != nil {
		row.DeathDate, row.DeathDateSort, row.DeathPlace = ev.Date, ev.DateSort, ev.Place
	}
	if ev := firstEvent(ind.Events, "BURI"); ev != nil {
		row.BurialDate, row.BurialPlace = ev.Date, ev.Place
	}
	for _, link := range ind.ChildOf {
		if !p.keep.hasFamily(link.Ref) {
			continue
		}
		famID, ok, err := p.res.ref(p.ctx, tx, db.KindFamily, link.Ref)
		if err != nil {
			return err
		}
		if !ok {
			p.diag.Addf(gedcom.WarnDanglingRef, ind.Line, ind.XRef, "família d'origen inexistent %s", link.Ref)
			continue
		}
		if row.ParentFamily == "" {
			row.ParentFamily, row.Pedigree = famID, childRelation(link.Pedigree)
		}
	}
	for _, famRef := range ind.SpouseOf {
		if _, ok, err := p.res.ref(p.ctx, tx, db.KindFamily, famRef); err != nil {
			return err
		} else if !ok {
			p.diag.Addf(gedcom.WarnDanglingRef, ind.Line, ind.XRef, "família com a cònjuge inexistent %s", famRef)
		}
	}
	var altNames []string
	for _, alt := range ind.AltNames {
		altNames = append(altNames, alt.Full)
	}
	row.Extra = extraJSON(ind.Extra, altNames, ind.ExternalRefs, inlineSources(ind.Citations))

	if _, err := p.upsert(tx, row, d); err != nil {
		return err
	}
	return p.writeOwned(tx, db.OwnerIndividual, id, ind.XRef, d, ind.Events, ind.Citations, ind.Notes, ind.Media, delta)
}

func (p *persister) families() error {
	for _, fam := range p.doc.Families {
		fam := fam
		if !p.keep.hasFamily(fam.XRef) {
			p.stats.Families.Skipped++
			p.stats.Children.Skipped += len(fam.Children)
			p.skipOwned(fam.Citations, fam.Events)
			continue
		}
		onSkip := func() {
			p.stats.Children.Skipped += len(fam.Children)
			p.skipOwned(fam.Citations, fam.Events)
		}
		err := p.apply(db.KindFamily, fam.XRef, fam.Changed, &p.stats.Families, onSkip,
			func(tx db.Store, id string, d decision, delta *Stats) error {
				return p.writeFamily(tx, fam, id, d, delta)
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) writeFamily(tx db.Store, fam *gedcom.Family, id string, d decision, delta *Stats) error {
	row := db.Family{
		Tree:       p.tree,
		ExternalID: id,
		ChangedAt:  fam.Changed,
		Extra:      extraJSON(fam.Extra, nil, nil, inlineSources(fam.Citations)),
	}
	spouse := func(ref, role string) (string, error) {
		if ref == "" {
			return "", nil
		}
		sid, ok, err := p.res.ref(p.ctx, tx, db.KindIndividual, ref)
		if err != nil {
			return "", err
		}
		if !ok {
			p.diag.Addf(gedcom.WarnDanglingRef, fam.Line, fam.XRef, "%s inexistent %s", role, ref)
			return "", nil
		}
		return sid, nil
	}
	var err error
	if row.HusbandID, err = spouse(fam.Husband, "HUSB"); err != nil {
		return err
	}
	if row.WifeID, err = spouse(fam.Wife, "WIFE"); err != nil {
		return err
	}
	if ev := firstEvent(fam.Events, "MARR"); ev != nil {
		row.MarriageDate, row.MarriageDateSort, row.MarriagePlace = ev.Date, ev.DateSort, ev.Place
	}
	if ev := firstEvent(fam.Events, "DIV"); ev != nil {
		row.DivorceDate = ev.Date
	}
	restricted := fam.Restriction == "privacy" || fam.Restriction == "confidential"
	row.Private = restricted || (fam.Private != nil && *fam.Private)

	var children []db.FamilyChild
	for _, c := range fam.Children {
		childID, ok, err := p.res.ref(p.ctx, tx, db.KindIndividual, c.Ref)
		if err != nil {
			return err
		}
		if !ok {
			p.diag.Addf(gedcom.WarnDanglingRef, c.Line, fam.XRef, "fill inexistent %s", c.Ref)
			delta.Children.Skipped++
			continue
		}
		father, mother := c.FatherRel, c.MotherRel
		if ped := p.pedigree[fam.XRef+"|"+c.Ref]; ped != "" {
			if father == "" {
				father = ped
			}
			if mother == "" {
				mother = ped
			}
		}
		children = append(children, db.FamilyChild{
			Tree:      p.tree,
			FamilyID:  id,
			ChildID:   childID,
			Ordinal:   len(children) + 1,
			FatherRel: childRelation(father),
			MotherRel: childRelation(mother),
		})
	}
	row.ChildrenCount = len(children)
	if n := parseIntDefault(fam.ChildCount, 0); n > row.ChildrenCount {
		row.ChildrenCount = n
	}

	if _, err := p.upsert(tx, row, d); err != nil {
		return err
	}
	if d.action == actionUpdate {
		if err := p.clearOwned(tx, db.OwnerFamily, id, db.KindChild); err != nil {
			return err
		}
	}
	for _, c := range children {
		if _, err := tx.Insert(p.ctx, c); err != nil {
			return err
		}
		delta.Children.Inserted++
	}
	return p.writeOwned(tx, db.OwnerFamily, id, fam.XRef, d, fam.Events, fam.Citations, fam.Notes, fam.Media, delta)
}

// writeOwned escriu els esdeveniments, cites, notes i multimèdia d'una
// persona o família. En una actualització primer esborra els anteriors.
func (p *persister) writeOwned(tx db.Store, ownerKind, ownerID, record string, d decision, events []gedcom.Event, cits []gedcom.Citation, notes []gedcom.NoteRef, media []gedcom.MediaRef, delta *Stats) error {
	if d.action == actionUpdate {
		if err := p.clearOwned(tx, ownerKind, ownerID, db.KindMediaLink, db.KindNoteLink, db.KindCitation, db.KindEvent); err != nil {
			return err
		}
	}
	seq := &linkSeq{}
	if err := p.writeEvents(tx, ownerKind, ownerID, record, events, seq, delta, true); err != nil {
		return err
	}
	if err := p.writeCitations(tx, ownerKind, ownerID, record, 0, cits, delta); err != nil {
		return err
	}
	if err := p.writeNotes(tx, ownerKind, ownerID, record, 0, notes, seq, delta); err != nil {
		return err
	}
	return p.writeMedia(tx, ownerKind, ownerID, record, 0, media, seq, delta)
}

func (p *persister) writeEvents(tx db.Store, ownerKind, ownerID, record string, events []gedcom.Event, seq *linkSeq, delta *Stats, links bool) error {
	for _, ev := range events {
		row := db.Event{
			Tree:      p.tree,
			OwnerKind: ownerKind,
			OwnerID:   ownerID,
			EventType: ev.Code,
			Tag:       ev.Tag,
			Custom:    ev.Custom,
			TypeLabel: ev.TypeLabel,
			Date:      ev.Date,
			DateSort:  ev.DateSort,
			Place:     ev.Place,
			Address:   ev.Address,
			Age:       ev.Age,
			Cause:     ev.Cause,
			Agency:    ev.Agency,
			Detail:    ev.Detail(),
		}
		if p.opts.ImportLatLong {
			row.Latitude, row.Longitude = ev.Latitude, ev.Longitude
		}
		for _, text := range inlineSources(ev.Citations) {
			row.Detail = joinDetail(row.Detail, text)
		}
		evID, err := tx.Insert(p.ctx, row)
		if err != nil {
			return err
		}
		delta.Events.Inserted++
		if err := p.writeCitations(tx, ownerKind, ownerID, record, evID, ev.Citations, delta); err != nil {
			return err
		}
		if !links {
			continue
		}
		if err := p.writeNotes(tx, ownerKind, ownerID, record, evID, ev.Notes, seq, delta); err != nil {
			return err
		}
		if err := p.writeMedia(tx, ownerKind, ownerID, record, evID, ev.Media, seq, delta); err != nil {
			return err
		}
	}
	return nil
}

// writeCitations desa les cites amb punter. Les de text lliure ja s'han
// incorporat al propietari.
func (p *persister) writeCitations(tx db.Store, ownerKind, ownerID, record string, eventID int64, cits []gedcom.Citation, delta *Stats) error {
	for _, c := range cits {
		if c.SourceRef == "" {
			continue
		}
		srcID, ok, err := p.res.ref(p.ctx, tx, db.KindSource, c.SourceRef)
		if err != nil {
			return err
		}
		if !ok {
			p.diag.Addf(gedcom.WarnDanglingRef, c.Line, record, "cita a una font inexistent %s", c.SourceRef)
			delta.Citations.Skipped++
			continue
		}
		row := db.Citation{
			Tree:      p.tree,
			OwnerKind: ownerKind,
			OwnerID:   ownerID,
			EventID:   eventID,
			SourceID:  srcID,
			Page:      c.Page,
			Quality:   c.Quality,
			Date:      c.Date,
			Text:      c.Text,
			Note:      c.Note,
		}
		if _, err := tx.Insert(p.ctx, row); err != nil {
			return err
		}
		delta.Citations.Inserted++
	}
	return nil
}

func (p *persister) writeNotes(tx db.Store, ownerKind, ownerID, record string, eventID int64, refs []gedcom.NoteRef, seq *linkSeq, delta *Stats) error {
	for _, ref := range refs {
		var noteID string
		if ref.Ref != "" {
			id, ok, err := p.res.ref(p.ctx, tx, db.KindNote, ref.Ref)
			if err != nil {
				return err
			}
			if !ok {
				p.diag.Addf(gedcom.WarnDanglingRef, ref.Line, record, "nota inexistent %s", ref.Ref)
				continue
			}
			noteID = id
		} else {
			if strings.TrimSpace(ref.Text) == "" {
				continue
			}
			seq.inlineNotes++
			noteID = fmt.Sprintf("%s#N%d", ownerID, seq.inlineNotes)
			row := db.Note{Tree: p.tree, ExternalID: noteID, Text: ref.Text, Inline: true}
			if err := p.upsertInline(tx, row, &delta.Notes); err != nil {
				return err
			}
		}
		seq.notes++
		link := db.NoteLink{
			Tree:      p.tree,
			NoteID:    noteID,
			OwnerKind: ownerKind,
			OwnerID:   ownerID,
			EventID:   eventID,
			Secret:    ref.Secret,
			Ordinal:   seq.notes,
		}
		if _, err := tx.Insert(p.ctx, link); err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) writeMedia(tx db.Store, ownerKind, ownerID, record string, eventID int64, refs []gedcom.MediaRef, seq *linkSeq, delta *Stats) error {
	if !p.opts.ImportMedia {
		return nil
	}
	for _, ref := range refs {
		var mediaID string
		switch {
		case ref.Ref != "":
			id, ok, err := p.res.ref(p.ctx, tx, db.KindMedia, ref.Ref)
			if err != nil {
				return err
			}
			if !ok {
				p.diag.Addf(gedcom.WarnDanglingRef, ref.Line, record, "objecte multimèdia inexistent %s", ref.Ref)
				continue
			}
			mediaID = id
		case ref.Inline != nil:
			seq.inlineMedia++
			mediaID = fmt.Sprintf("%s#M%d", ownerID, seq.inlineMedia)
			if err := p.upsertInline(tx, p.mediaRow(mediaID, ref.Inline, true), &delta.Media); err != nil {
				return err
			}
		default:
			continue
		}
		seq.media++
		link := db.MediaLink{
			Tree:      p.tree,
			MediaID:   mediaID,
			OwnerKind: ownerKind,
			OwnerID:   ownerID,
			EventID:   eventID,
			Ordinal:   seq.media,
		}
		if _, err := tx.Insert(p.ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// upsertInline desa una nota o un multimèdia en línia. La clau deriva del
// propietari, de manera que una reimportació la sobreescriu.
func (p *persister) upsertInline(tx db.Store, e db.Entity, count *Count) error {
	count.Parsed++
	key := e.Columns()["external_id"].(string)
	existing, err := tx.Find(p.ctx, p.tree, e.Kind(), key)
	if err != nil {
		return err
	}
	if existing != nil {
		count.Updated++
		return tx.Update(p.ctx, e.Kind(), existing.ID, e.Columns())
	}
	if _, err := tx.Insert(p.ctx, e); err != nil {
		return err
	}
	count.Inserted++
	return nil
}

// eventsOnly només escriu esdeveniments i cites de persones i famílies que
// ja existeixen. Els esdeveniments anteriors del propietari es substitueixen.
func (p *persister) eventsOnly() error {
	p.stats.Sources.Skipped = p.stats.Sources.Parsed
	p.stats.Repositories.Skipped = p.stats.Repositories.Parsed
	p.stats.Notes.Skipped = p.stats.Notes.Parsed
	p.stats.Media.Skipped = p.stats.Media.Parsed
	for _, n := range p.doc.Notes {
		p.stats.Citations.Skipped += countCitations(n.Citations, nil)
	}
	for _, ind := range p.doc.Individuals {
		p.stats.Individuals.Skipped++
		if !p.keep.hasIndividual(ind.XRef) {
			p.skipOwned(ind.Citations, ind.Events)
			continue
		}
		if err := p.ownerEvents(db.KindIndividual, db.OwnerIndividual, ind.XRef, ind.Events, ind.Citations); err != nil {
			return err
		}
	}
	for _, fam := range p.doc.Families {
		p.stats.Families.Skipped++
		p.stats.Children.Skipped += len(fam.Children)
		if !p.keep.hasFamily(fam.XRef) {
			p.skipOwned(fam.Citations, fam.Events)
			continue
		}
		if err := p.ownerEvents(db.KindFamily, db.OwnerFamily, fam.XRef, fam.Events, fam.Citations); err != nil {
			return err
		}
	}
	return nil
}

func (p *persister) ownerEvents(kind db.Kind, ownerKind, xref string, events []gedcom.Event, cits []gedcom.Citation) error {
	if err := p.checkStop(); err != nil {
		return err
	}
	id := p.res.id(kind, xref)
	var (
		delta     Stats
		missing   bool
		lookupErr error
	)
	err := p.tx.WithTx(p.ctx, func(tx db.Store) error {
		delta = Stats{}
		var existing *db.Existing
		existing, lookupErr = tx.Find(p.ctx, p.tree, kind, id)
		if lookupErr != nil {
			return lookupErr
		}
		if missing = existing == nil; missing {
			return nil
		}
		if err := p.clearOwned(tx, ownerKind, id, db.KindCitation, db.KindEvent); err != nil {
			return err
		}
		if err := p.writeEvents(tx, ownerKind, id, xref, events, &linkSeq{}, &delta, false); err != nil {
			return err
		}
		return p.writeCitations(tx, ownerKind, id, xref, 0, cits, &delta)
	})
	switch {
	case lookupErr != nil:
		p.diag.Addf(gedcom.WarnStore, 0, xref, "no s'ha pogut consultar: %v", lookupErr)
		p.skipOwned(cits, events)
		return nil
	case err != nil:
		p.diag.Addf(gedcom.WarnStore, 0, xref, "no s'han pogut desar els esdeveniments: %v", err)
		p.skipOwned(cits, events)
		return nil
	case missing:
		p.log.Debug("propietari inexistent, esdeveniments omesos", "xref", xref)
		p.skipOwned(cits, events)
		return nil
	}
	p.stats.add(delta)
	return nil
}

func firstEvent(events []gedcom.Event, tags ...string) *gedcom.Event {
	for _, tag := range tags {
		for i := range events {
			if events[i].Tag == tag {
				return &events[i]
			}
		}
	}
	return nil
}

// childRelation normalitza PEDI, _FREL i _MREL.
func childRelation(rel string) string {
	switch rel = strings.ToLower(strings.TrimSpace(rel)); rel {
	case "", "birth", "natural", "biological":
		return "natural"
	case "adopted":
		return "adopted"
	case "foster":
		return "foster"
	case "sealing":
		return "sealing"
	case "step", "stepchild":
		return "step"
	default:
		return rel
	}
}

func inlineSources(cits []gedcom.Citation) []string {
	var out []string
	for _, c := range cits {
		if c.SourceRef == "" && strings.TrimSpace(c.Text) != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

func joinDetail(base, add string) string {
	if base == "" {
		return add
	}
	return base + "; " + add
}

// extraJSON guarda el que no té columna pròpia.
func extraJSON(extra []gedcom.Extra, altNames, refs, sources []string) string {
	m := map[string][]string{}
	for _, e := range extra {
		if e.Value != "" {
			m[e.Tag] = append(m[e.Tag], e.Value)
		}
	}
	if len(altNames) > 0 {
		m["NAME"] = altNames
	}
	if len(refs) > 0 {
		m["REFN"] = refs
	}
	if len(sources) > 0 {
		m["SOUR"] = sources
	}
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
