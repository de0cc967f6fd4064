package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// formatPlaceholders converteix "?" a "$n" per a postgres.
func formatPlaceholders(style, query string) string {
	if strings.ToLower(style) != "postgres" {
		return query
	}
	var b strings.Builder
	idx := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", idx))
			idx++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

// querier és comú a *sql.DB i *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlHelper struct {
	db     *sql.DB
	q      querier
	style  string
	nowFun string
	sb     sq.StatementBuilderType
	depth  int
}

func newSQLHelper(db *sql.DB, style, nowFun string) sqlHelper {
	style = strings.ToLower(style)
	var format sq.PlaceholderFormat = sq.Question
	if style == "postgres" {
		format = sq.Dollar
	}
	return sqlHelper{
		db:     db,
		q:      db,
		style:  style,
		nowFun: nowFun,
		sb:     sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func (h *sqlHelper) Engine() string {
	return h.style
}

func tableFor(kind Kind) (string, error) {
	info, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("db: tipus d'entitat desconegut %q", kind)
	}
	return info.table, nil
}

func (h *sqlHelper) Find(ctx context.Context, tree string, kind Kind, externalID string) (*Existing, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query, args, err := h.sb.Select("id", "external_id", "changed_at").
		From(table).
		Where(sq.Eq{"tree": tree, "external_id": externalID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var (
		ex      Existing
		changed sql.NullString
	)
	err = h.q.QueryRowContext(ctx, query, args...).Scan(&ex.ID, &ex.ExternalID, &changed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if changed.Valid {
		ex.ChangedAt = parseTime(changed.String)
	}
	return &ex, nil
}

func (h *sqlHelper) Insert(ctx context.Context, e Entity) (int64, error) {
	table, err := tableFor(e.Kind())
	if err != nil {
		return 0, err
	}
	cols := e.Columns()
	if e.Kind().Keyed() {
		cols["imported_at"] = formatTime(time.Now())
	}
	b := h.sb.Insert(table).SetMap(cols)
	if h.style == "postgres" {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := h.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := h.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (h *sqlHelper) Update(ctx context.Context, kind Kind, id int64, fields map[string]interface{}) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	set := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if k == "tree" || k == "external_id" {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil
	}
	query, args, err := h.sb.Update(table).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := h.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && h.style != "mysql" {
		return ErrNotFound
	}
	return nil
}

func (h *sqlHelper) DeleteAll(ctx context.Context, tree string, kind Kind) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query, args, err := h.sb.Delete(table).Where(sq.Eq{"tree": tree}).ToSql()
	if err != nil {
		return err
	}
	_, err = h.q.ExecContext(ctx, query, args...)
	return err
}

func (h *sqlHelper) DeleteOwned(ctx context.Context, tree string, kind Kind, ownerKind, ownerID string) error {
	info, ok := kindTables[kind]
	if !ok {
		return fmt.Errorf("db: tipus d'entitat desconegut %q", kind)
	}
	where := sq.Eq{"tree": tree}
	switch info.owner {
	case "owner":
		where["owner_kind"] = ownerKind
		where["owner_id"] = ownerID
	case "family_id":
		where["family_id"] = ownerID
	default:
		return fmt.Errorf("db: %s no té propietari", kind)
	}
	query, args, err := h.sb.Delete(info.table).Where(where).ToSql()
	if err != nil {
		return err
	}
	_, err = h.q.ExecContext(ctx, query, args...)
	return err
}

func (h *sqlHelper) MaxNumericSuffix(ctx context.Context, tree string, kind Kind, prefix string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query, args, err := h.sb.Select("external_id").
		From(table).
		Where(sq.Eq{"tree": tree}).
		Where(sq.Like{"external_id": prefix + "%"}).
		ToSql()
	if err != nil {
		return 0, err
	}
	rows, err := h.q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	max := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if n, ok := NumericSuffix(id, prefix); ok && n > max {
			max = n
		}
	}
	return max, rows.Err()
}

func (h *sqlHelper) Count(ctx context.Context, tree string, kind Kind) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query, args, err := h.sb.Select("COUNT(*)").From(table).Where(sq.Eq{"tree": tree}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = h.q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (h *sqlHelper) List(ctx context.Context, tree string, kind Kind) ([]Row, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query, args, err := h.sb.Select("*").From(table).Where(sq.Eq{"tree": tree}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	return h.queryRows(ctx, query, args...)
}

// queryRows llegeix qualsevol consulta com a files genèriques.
func (h *sqlHelper) queryRows(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	rows, err := h.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// WithTx obre una transacció, o un SAVEPOINT si ja n'hi ha una d'oberta. La
// transacció no depèn de la cancel·lació de ctx: qui la fa servir decideix si
// confirma la feina parcial.
func (h *sqlHelper) WithTx(ctx context.Context, fn func(Store) error) error {
	ctx = context.WithoutCancel(ctx)
	if tx, ok := h.q.(*sql.Tx); ok {
		name := fmt.Sprintf("sp_%d", h.depth)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return err
		}
		child := *h
		child.depth++
		if err := fn(&child); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
				return fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return err
		}
		_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	child := *h
	child.q = tx
	child.depth = 1
	if err := fn(&child); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logErrorf("rollback fallit: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}
