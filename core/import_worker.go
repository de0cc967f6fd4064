package core

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/semaphore"

	"github.com/marcmoiagese/gedcomimport/db"
)

// ErrTreeBusy indica que l'arbre ja té una importació en curs.
var ErrTreeBusy = errors.New("l'arbre ja té una importació en curs")

const (
	importWorkerDefaultPollSeconds = 5
	importWorkerDefaultBatch       = 10
	importWorkerDefaultConcurrency = 2
)

type importWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

type importWorkerState struct {
	mu     sync.Mutex
	trees  map[string]int64
	active map[int64]struct{}
}

func newImportWorkerState() *importWorkerState {
	return &importWorkerState{
		trees:  map[string]int64{},
		active: map[int64]struct{}{},
	}
}

func (a *App) importWorkerConfig() importWorkerConfig {
	pollSeconds := parseIntDefault(a.Config["IMPORT_WORKER_POLL_SECONDS"], importWorkerDefaultPollSeconds)
	if pollSeconds <= 0 {
		pollSeconds = importWorkerDefaultPollSeconds
	}
	batch := parseIntDefault(a.Config["IMPORT_WORKER_BATCH"], importWorkerDefaultBatch)
	if batch <= 0 {
		batch = importWorkerDefaultBatch
	}
	concurrency := parseIntDefault(a.Config["IMPORT_WORKER_CONCURRENCY"], importWorkerDefaultConcurrency)
	if concurrency <= 0 {
		concurrency = importWorkerDefaultConcurrency
	}
	return importWorkerConfig{
		PollInterval: time.Duration(pollSeconds) * time.Second,
		BatchSize:    batch,
		Concurrency:  concurrency,
	}
}

// tryStart reserva l'arbre per a una execució. Només una per arbre.
func (w *importWorkerState) tryStart(tree string, runID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.active[runID]; ok {
		return false
	}
	if _, ok := w.trees[tree]; ok {
		return false
	}
	w.active[runID] = struct{}{}
	w.trees[tree] = runID
	return true
}

func (w *importWorkerState) finish(tree string, runID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.trees[tree] == runID {
		delete(w.trees, tree)
	}
	delete(w.active, runID)
}

// FileFingerprint és el resum BLAKE2b-256 del fitxer.
func FileFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// QueueImport encua una importació. Si el mateix fitxer ja és a la cua per a
// l'arbre, retorna aquella execució i queued=false.
func (a *App) QueueImport(ctx context.Context, path, tree string, opts Options) (*db.ImportRun, bool, error) {
	if err := opts.validate(); err != nil {
		return nil, false, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	fp, err := FileFingerprint(abs)
	if err != nil {
		return nil, false, fmt.Errorf("no s'ha pogut llegir %s: %w", path, err)
	}
	existing, err := a.DB.FindActiveImportRun(ctx, tree, fp)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		Infof("fitxer ja encuat per a %s (%s)", tree, existing.PublicID)
		return existing, false, nil
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, false, err
	}
	run := &db.ImportRun{
		PublicID:    uuid.NewString(),
		Tree:        tree,
		FilePath:    abs,
		Fingerprint: fp,
		OptionsJSON: string(optsJSON),
		Status:      db.RunQueued,
	}
	if _, err := a.DB.CreateImportRun(ctx, run); err != nil {
		return nil, false, err
	}
	Infof("importació encuada %s per a l'arbre %s", run.PublicID, tree)
	return run, true, nil
}

// ImportNow executa una importació immediatament i en deixa constància a la
// taula d'execucions.
func (a *App) ImportNow(ctx context.Context, path, tree string, opts Options) (*Result, error) {
	fp, err := FileFingerprint(path)
	if err != nil {
		fp = ""
	}
	optsJSON, _ := json.Marshal(opts)
	run := &db.ImportRun{
		PublicID:    uuid.NewString(),
		Tree:        tree,
		FilePath:    path,
		Fingerprint: fp,
		OptionsJSON: string(optsJSON),
		Status:      db.RunQueued,
	}
	if _, err := a.DB.CreateImportRun(ctx, run); err != nil {
		return nil, err
	}
	if !a.worker.tryStart(tree, run.ID) {
		_ = a.DB.UpdateImportRunStatus(context.WithoutCancel(ctx), run.ID, db.RunError, ErrTreeBusy.Error(), "")
		return nil, ErrTreeBusy
	}
	defer a.worker.finish(tree, run.ID)
	return a.executeRun(ctx, run, opts)
}

// executeRun fa la importació d'una execució ja reservada.
func (a *App) executeRun(ctx context.Context, run *db.ImportRun, opts Options) (*Result, error) {
	statusCtx := context.WithoutCancel(ctx)
	opts.RunID = run.PublicID
	opts.Progress = func(status string) {
		if err := a.DB.UpdateImportRunStatus(statusCtx, run.ID, status, "", ""); err != nil {
			Errorf("no s'ha pogut actualitzar l'execució %s: %v", run.PublicID, err)
		}
	}
	res, err := a.Importer.Import(ctx, run.FilePath, run.Tree, opts)
	status := db.RunDone
	errText := ""
	switch {
	case res != nil && res.Status == StatusCancelled:
		status = db.RunCancelled
	case err != nil:
		status = db.RunError
	}
	if err != nil {
		errText = err.Error()
	}
	summary := ""
	if res != nil {
		summary = res.SummaryJSON()
	}
	if uerr := a.DB.UpdateImportRunStatus(statusCtx, run.ID, status, errText, summary); uerr != nil {
		Errorf("no s'ha pogut tancar l'execució %s: %v", run.PublicID, uerr)
	}
	return res, err
}

// RunImportWorker processa la cua fins que ctx es cancel·la.
func (a *App) RunImportWorker(ctx context.Context) error {
	cfg := a.importWorkerConfig()
	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	Infof("treballador d'importació en marxa (cada %s, %d en paral·lel)", cfg.PollInterval, cfg.Concurrency)
	for {
		a.dispatchImports(ctx, cfg, sem, &wg)
		select {
		case <-ctx.Done():
			Infof("treballador d'importació aturat")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessQueue executa una sola passada de la cua i espera que acabi.
func (a *App) ProcessQueue(ctx context.Context) int {
	cfg := a.importWorkerConfig()
	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	var wg sync.WaitGroup
	n := a.dispatchImports(ctx, cfg, sem, &wg)
	wg.Wait()
	return n
}

func (a *App) dispatchImports(ctx context.Context, cfg importWorkerConfig, sem *semaphore.Weighted, wg *sync.WaitGroup) int {
	if a == nil || a.DB == nil || ctx.Err() != nil {
		return 0
	}
	runs, err := a.DB.ListImportRuns(ctx, db.RunQueued, cfg.BatchSize)
	if err != nil {
		Errorf("no s'ha pogut llegir la cua: %v", err)
		return 0
	}
	started := 0
	for _, run := range runs {
		if !a.worker.tryStart(run.Tree, run.ID) {
			continue
		}
		if !sem.TryAcquire(1) {
			a.worker.finish(run.Tree, run.ID)
			break
		}
		runCopy := run
		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			a.runImportJob(ctx, &runCopy)
		}()
	}
	return started
}

func (a *App) runImportJob(ctx context.Context, run *db.ImportRun) {
	defer a.worker.finish(run.Tree, run.ID)

	var opts Options
	if run.OptionsJSON != "" {
		if err := json.Unmarshal([]byte(run.OptionsJSON), &opts); err != nil {
			_ = a.DB.UpdateImportRunStatus(context.WithoutCancel(ctx), run.ID, db.RunError, err.Error(), "")
			return
		}
	}
	if _, err := a.executeRun(ctx, run, opts); err != nil {
		Errorf("importació %s: %v", run.PublicID, err)
	}
}
