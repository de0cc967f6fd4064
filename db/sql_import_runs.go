package db

import (
	"context"
	"database/sql"
	"time"
)

const importRunColumns = `id, public_id, tree, file_path, fingerprint, options_json, status, summary_json, error_text, created_at, started_at, finished_at, updated_at`

func (h *sqlHelper) CreateImportRun(ctx context.Context, r *ImportRun) (int64, error) {
	now := formatTime(time.Now())
	if r.Status == "" {
		r.Status = RunQueued
	}
	query := `INSERT INTO import_runs (public_id, tree, file_path, fingerprint, options_json, status, summary_json, error_text, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{r.PublicID, r.Tree, r.FilePath, r.Fingerprint, r.OptionsJSON, r.Status, r.SummaryJSON, r.ErrorText, now, now}
	if h.style == "postgres" {
		query += " RETURNING id"
		if err := h.q.QueryRowContext(ctx, formatPlaceholders(h.style, query), args...).Scan(&r.ID); err != nil {
			return 0, err
		}
		return r.ID, nil
	}
	res, err := h.q.ExecContext(ctx, formatPlaceholders(h.style, query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func (h *sqlHelper) GetImportRun(ctx context.Context, publicID string) (*ImportRun, error) {
	query := formatPlaceholders(h.style, `SELECT `+importRunColumns+` FROM import_runs WHERE public_id = ?`)
	rows, err := h.q.QueryContext(ctx, query, publicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	r, err := scanImportRun(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (h *sqlHelper) ListImportRuns(ctx context.Context, status string, limit int) ([]ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.q.QueryContext(ctx, formatPlaceholders(h.style, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportRun
	for rows.Next() {
		r, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (h *sqlHelper) FindActiveImportRun(ctx context.Context, tree, fingerprint string) (*ImportRun, error) {
	query := formatPlaceholders(h.style, `SELECT `+importRunColumns+` FROM import_runs
        WHERE tree = ? AND fingerprint = ? AND status NOT IN (?, ?, ?) ORDER BY id DESC LIMIT 1`)
	rows, err := h.q.QueryContext(ctx, query, tree, fingerprint, RunDone, RunCancelled, RunError)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanImportRun(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (h *sqlHelper) UpdateImportRunStatus(ctx context.Context, id int64, status, errText, summaryJSON string) error {
	now := formatTime(time.Now())
	query := `UPDATE import_runs SET status = ?, error_text = ?, updated_at = ?`
	args := []interface{}{status, errText, now}
	if summaryJSON != "" {
		query += `, summary_json = ?`
		args = append(args, summaryJSON)
	}
	if status == RunParsing {
		query += `, started_at = COALESCE(started_at, ?)`
		args = append(args, now)
	}
	if RunFinished(status) {
		query += `, finished_at = ?`
		args = append(args, now)
	}
	query += ` WHERE id = ?`
	args = append(args, id)
	res, err := h.q.ExecContext(ctx, formatPlaceholders(h.style, query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && h.style != "mysql" {
		return ErrNotFound
	}
	return nil
}

func scanImportRun(rows *sql.Rows) (ImportRun, error) {
	var (
		r                                      ImportRun
		fingerprint, options, summary, errText sql.NullString
		created, started, finished, updated    sql.NullString
	)
	err := rows.Scan(&r.ID, &r.PublicID, &r.Tree, &r.FilePath, &fingerprint, &options, &r.Status,
		&summary, &errText, &created, &started, &finished, &updated)
	if err != nil {
		return r, err
	}
	r.Fingerprint = fingerprint.String
	r.OptionsJSON = options.String
	r.SummaryJSON = summary.String
	r.ErrorText = errText.String
	r.CreatedAt = parseTime(created.String)
	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)
	r.UpdatedAt = parseTime(updated.String)
	return r, nil
}
