package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcmoiagese/gedcomimport/db"
)

func newTestApp() *App {
	return NewApp(map[string]string{"IMPORT_WORKER_CONCURRENCY": "1"}, db.NewMemory())
}

func TestQueueImportDeduplicates(t *testing.T) {
	app := newTestApp()
	path := writeGedcom(t, "familia.ged", familyGedcom)
	ctx := context.Background()

	first, queued, err := app.QueueImport(ctx, path, testTree, Options{})
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, db.RunQueued, first.Status)
	assert.NotEmpty(t, first.Fingerprint)

	second, queued, err := app.QueueImport(ctx, path, testTree, Options{})
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, first.PublicID, second.PublicID)

	// Un altre arbre és una altra execució.
	_, queued, err = app.QueueImport(ctx, path, "arbre-2", Options{})
	require.NoError(t, err)
	assert.True(t, queued)
}

func TestProcessQueueRunsToDone(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()
	run, _, err := app.QueueImport(ctx, writeGedcom(t, "familia.ged", familyGedcom), testTree, Options{UppercaseSurnames: true})
	require.NoError(t, err)

	assert.Equal(t, 1, app.ProcessQueue(ctx))

	got, err := app.DB.GetImportRun(ctx, run.PublicID)
	require.NoError(t, err)
	assert.Equal(t, db.RunDone, got.Status)
	assert.Empty(t, got.ErrorText)

	var res Result
	require.NoError(t, json.Unmarshal([]byte(got.SummaryJSON), &res))
	assert.True(t, res.Success)
	assert.Equal(t, run.PublicID, res.RunID)
	assert.Equal(t, 6, res.Stats.Individuals.Inserted)
	assert.True(t, res.Options.UppercaseSurnames)

	// La cua queda buida.
	assert.Equal(t, 0, app.ProcessQueue(ctx))
}

func TestProcessQueueRecordsFailure(t *testing.T) {
	app := newTestApp()
	ctx := context.Background()
	run, _, err := app.QueueImport(ctx, writeGedcom(t, "buit.ged", "0 HEAD\n1 CHAR UTF-8\n"), testTree, Options{})
	require.NoError(t, err)

	app.ProcessQueue(ctx)

	got, err := app.DB.GetImportRun(ctx, run.PublicID)
	require.NoError(t, err)
	assert.Equal(t, db.RunError, got.Status)
	assert.NotEmpty(t, got.ErrorText)
}

func TestImportNowTreeBusy(t *testing.T) {
	app := newTestApp()
	require.True(t, app.worker.tryStart(testTree, 999))
	defer app.worker.finish(testTree, 999)

	res, err := app.ImportNow(context.Background(), writeGedcom(t, "familia.ged", familyGedcom), testTree, Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTreeBusy)

	runs, err := app.DB.ListImportRuns(context.Background(), db.RunError, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ErrTreeBusy.Error(), runs[0].ErrorText)
}

func TestImportNowRecordsRun(t *testing.T) {
	app := newTestApp()
	res, err := app.ImportNow(context.Background(), writeGedcom(t, "familia.ged", familyGedcom), testTree, Options{})
	require.NoError(t, err)

	got, err := app.DB.GetImportRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunDone, got.Status)
	assert.Equal(t, res.Fingerprint, got.Fingerprint)
}

func TestWorkerStateOneRunPerTree(t *testing.T) {
	w := newImportWorkerState()
	assert.True(t, w.tryStart("a", 1))
	assert.False(t, w.tryStart("a", 2))
	assert.True(t, w.tryStart("b", 2))
	w.finish("a", 1)
	assert.True(t, w.tryStart("a", 3))
}

func TestWatchedExtension(t *testing.T) {
	exts := importWatchDefaultExtensions
	assert.True(t, watchedExtension("/tmp/familia.ged", exts))
	assert.True(t, watchedExtension("/tmp/FAMILIA.GEDCOM", exts))
	assert.False(t, watchedExtension("/tmp/familia.ged.part", exts))
	assert.False(t, watchedExtension("/tmp/notes.txt", exts))
}
