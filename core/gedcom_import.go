package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

// Importer carrega fitxers GEDCOM en un arbre del magatzem.
type Importer struct {
	store db.Store
	now   func() time.Time
}

func NewImporter(store db.Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// Import executa una importació completa. Sempre retorna un Result; l'error
// és no nul quan l'execució no acaba en StatusDone.
func (im *Importer) Import(ctx context.Context, path, tree string, opts Options) (*Result, error) {
	if opts.ReplaceMode == "" {
		opts.ReplaceMode = ReplaceAll
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{
		RunID:     runID,
		Tree:      tree,
		File:      filepath.Base(path),
		Options:   opts,
		StartedAt: im.now().UTC(),
	}
	log := runLogger(runID, tree)
	diag := gedcom.NewDiagnostics(opts.MaxWarnings)
	defer func() {
		res.FinishedAt = im.now().UTC()
		res.Warnings = diag.Warnings
		res.WarningsTotal = diag.Total
		log.Info("importació acabada",
			"status", res.Status,
			"individus", res.Stats.Individuals.Imported(),
			"families", res.Stats.Families.Imported(),
			"avisos", res.WarningsTotal,
			"durada", res.Duration().String())
	}()

	abort := func(err error) (*Result, error) {
		res.fail(StatusAborted, err)
		log.Error("importació avortada", "err", err)
		return res, err
	}

	// Init
	if err := opts.validate(); err != nil {
		return abort(err)
	}
	if strings.TrimSpace(tree) == "" {
		return abort(errors.New("cal indicar l'arbre de destinació"))
	}
	f, err := os.Open(path)
	if err != nil {
		return abort(fmt.Errorf("no s'ha pogut obrir %s: %w", path, err))
	}
	defer f.Close()
	if st, err := f.Stat(); err != nil {
		return abort(err)
	} else if st.IsDir() {
		return abort(fmt.Errorf("%s és un directori", path))
	} else if st.Size() == 0 {
		return abort(gedcom.ErrEmptyFile)
	}

	// ParseAndStage
	opts.progress(db.RunParsing)
	log.Info("analitzant", "file", path, "mode", opts.ReplaceMode)
	h, err := blake2b.New256(nil)
	if err != nil {
		return abort(err)
	}
	tee := io.TeeReader(f, h)
	doc, err := gedcom.Parse(ctx, tee, gedcom.ParseOptions{AllEvents: opts.AllEvents}, diag)
	if err != nil {
		if ctx.Err() != nil {
			res.fail(StatusCancelled, err)
			return res, err
		}
		return abort(err)
	}
	if _, err := io.Copy(io.Discard, tee); err != nil {
		return abort(err)
	}
	res.Fingerprint = hex.EncodeToString(h.Sum(nil))
	res.Header = doc.Header
	res.CustomEventTypes = doc.CustomEventTypes
	res.Stats = parsedStats(doc)

	keep, err := selectBranch(doc, opts.BranchFilter)
	if err != nil {
		return abort(err)
	}

	// ResolveCrossReferences
	opts.progress(db.RunResolving)
	xrefs := newResolver(tree, opts)
	if err := xrefs.defineAll(context.WithoutCancel(ctx), im.store, doc); err != nil {
		return abort(err)
	}

	// ApplyPolicyAndPersist
	opts.progress(db.RunPersisting)
	p := &persister{
		ctx:   context.WithoutCancel(ctx),
		stop:  ctx,
		tree:  tree,
		opts:  opts,
		res:   xrefs,
		doc:   doc,
		keep:  keep,
		diag:  diag,
		stats: &res.Stats,
		log:   log,
		now:   im.now(),
	}
	var cancelled error
	err = im.store.WithTx(p.ctx, func(tx db.Store) error {
		p.tx = tx
		if opts.ReplaceMode == ReplaceAll && !opts.EventsOnly {
			for _, kind := range db.ClearOrder {
				if err := tx.DeleteAll(p.ctx, tree, kind); err != nil {
					return fmt.Errorf("no s'ha pogut buidar l'arbre (%s): %w", kind, err)
				}
			}
			log.Debug("arbre buidat")
		}
		err := p.run()
		if errors.Is(err, errImportCancelled) {
			cancelled = err
			if opts.ReplaceMode == ReplaceAll && !opts.EventsOnly {
				return err
			}
			return nil
		}
		return err
	})
	if cancelled != nil {
		res.fail(StatusCancelled, cancelled)
		log.Warn("importació cancel·lada", "mode", opts.ReplaceMode)
		return res, cancelled
	}
	if err != nil {
		return abort(err)
	}

	// Finalize
	res.Success = true
	res.Status = StatusDone
	return res, nil
}
