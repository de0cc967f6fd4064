package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memRow struct {
	id   int64
	tree string
	key  string
	cols map[string]interface{}
}

type memData struct {
	rows   map[Kind]map[int64]*memRow
	keys   map[Kind]map[string]int64
	runs   []*ImportRun
	nextID int64
}

// Memory és un motor en memòria. Serveix per a proves i per a importacions
// de prova sense base de dades.
type Memory struct {
	mu   *sync.Mutex
	data *memData
	tx   *memTx
}

// memTx guarda les operacions inverses per desfer una transacció.
type memTx struct {
	undo []func()
}

func NewMemory() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		data: &memData{
			rows: map[Kind]map[int64]*memRow{},
			keys: map[Kind]map[string]int64{},
		},
	}
}

func (m *Memory) Connect() error { return nil }
func (m *Memory) Close() {}
func (m *Memory) Migrate(ctx context.Context) error { return nil }
func (m *Memory) Engine() string { return "memory" }

func (m *Memory) lock() func() {
	if m.tx != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) record(fn func()) {
	if m.tx != nil {
		m.tx.undo = append(m.tx.undo, fn)
	}
}

func memKey(tree, key string) string {
	return tree + "\x00" + key
}

func (m *Memory) Find(ctx context.Context, tree string, kind Kind, externalID string) (*Existing, error) {
	defer m.lock()()
	id, ok := m.data.keys[kind][memKey(tree, externalID)]
	if !ok {
		return nil, nil
	}
	row := m.data.rows[kind][id]
	changed, _ := row.cols["changed_at"].(string)
	return &Existing{ID: id, ExternalID: row.key, ChangedAt: parseTime(changed)}, nil
}

func (m *Memory) Insert(ctx context.Context, e Entity) (int64, error) {
	defer m.lock()()
	kind := e.Kind()
	cols := e.Columns()
	tree, _ := cols["tree"].(string)
	key, _ := cols["external_id"].(string)
	if kind.Keyed() {
		if key == "" {
			return 0, fmt.Errorf("db: %s sense external_id", kind)
		}
		if _, dup := m.data.keys[kind][memKey(tree, key)]; dup {
			return 0, fmt.Errorf("db: %s %s ja existeix a l'arbre %s", kind, key, tree)
		}
	}
	m.data.nextID++
	row := &memRow{id: m.data.nextID, tree: tree, key: key, cols: cols}
	m.put(kind, row)
	m.record(func() { m.drop(kind, row) })
	return row.id, nil
}

func (m *Memory) put(kind Kind, row *memRow) {
	if m.data.rows[kind] == nil {
		m.data.rows[kind] = map[int64]*memRow{}
	}
	m.data.rows[kind][row.id] = row
	if kind.Keyed() {
		if m.data.keys[kind] == nil {
			m.data.keys[kind] = map[string]int64{}
		}
		m.data.keys[kind][memKey(row.tree, row.key)] = row.id
	}
}

func (m *Memory) drop(kind Kind, row *memRow) {
	delete(m.data.rows[kind], row.id)
	if kind.Keyed() {
		delete(m.data.keys[kind], memKey(row.tree, row.key))
	}
}

func (m *Memory) Update(ctx context.Context, kind Kind, id int64, fields map[string]interface{}) error {
	defer m.lock()()
	row, ok := m.data.rows[kind][id]
	if !ok {
		return ErrNotFound
	}
	old := make(map[string]interface{}, len(row.cols))
	for k, v := range row.cols {
		old[k] = v
	}
	for k, v := range fields {
		if k == "tree" || k == "external_id" {
			continue
		}
		row.cols[k] = v
	}
	m.record(func() { row.cols = old })
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context, tree string, kind Kind) error {
	defer m.lock()()
	m.deleteWhere(kind, func(r *memRow) bool { return r.tree == tree })
	return nil
}

func (m *Memory) DeleteOwned(ctx context.Context, tree string, kind Kind, ownerKind, ownerID string) error {
	defer m.lock()()
	info := kindTables[kind]
	switch info.owner {
	case "owner":
		m.deleteWhere(kind, func(r *memRow) bool {
			return r.tree == tree && r.cols["owner_kind"] == ownerKind && r.cols["owner_id"] == ownerID
		})
	case "family_id":
		m.deleteWhere(kind, func(r *memRow) bool {
			return r.tree == tree && r.cols["family_id"] == ownerID
		})
	default:
		return fmt.Errorf("db: %s no té propietari", kind)
	}
	return nil
}

func (m *Memory) deleteWhere(kind Kind, match func(*memRow) bool) {
	var removed []*memRow
	for _, row := range m.data.rows[kind] {
		if match(row) {
			removed = append(removed, row)
		}
	}
	for _, row := range removed {
		m.drop(kind, row)
	}
	if len(removed) > 0 {
		m.record(func() {
			for _, row := range removed {
				m.put(kind, row)
			}
		})
	}
}

func (m *Memory) MaxNumericSuffix(ctx context.Context, tree string, kind Kind, prefix string) (int, error) {
	defer m.lock()()
	max := 0
	for _, row := range m.data.rows[kind] {
		if row.tree != tree {
			continue
		}
		if n, ok := NumericSuffix(row.key, prefix); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func (m *Memory) Count(ctx context.Context, tree string, kind Kind) (int, error) {
	defer m.lock()()
	n := 0
	for _, row := range m.data.rows[kind] {
		if row.tree == tree {
			n++
		}
	}
	return n, nil
}

func (m *Memory) List(ctx context.Context, tree string, kind Kind) ([]Row, error) {
	defer m.lock()()
	var out []Row
	for _, row := range m.data.rows[kind] {
		if row.tree != tree {
			continue
		}
		r := Row{"id": row.id}
		for k, v := range row.cols {
			r[k] = v
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Int("id") < out[j].Int("id") })
	return out, nil
}

func (m *Memory) WithTx(ctx context.Context, fn func(Store) error) error {
	if m.tx == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	child := &Memory{mu: m.mu, data: m.data, tx: &memTx{}}
	if err := fn(child); err != nil {
		for i := len(child.tx.undo) - 1; i >= 0; i-- {
			child.tx.undo[i]()
		}
		return err
	}
	if m.tx != nil {
		m.tx.undo = append(m.tx.undo, child.tx.undo...)
	}
	return nil
}

func (m *Memory) CreateImportRun(ctx context.Context, r *ImportRun) (int64, error) {
	defer m.lock()()
	m.data.nextID++
	cp := *r
	cp.ID = m.data.nextID
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.data.runs = append(m.data.runs, &cp)
	r.ID = cp.ID
	return cp.ID, nil
}

func (m *Memory) GetImportRun(ctx context.Context, publicID string) (*ImportRun, error) {
	defer m.lock()()
	for _, r := range m.data.runs {
		if r.PublicID == publicID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListImportRuns(ctx context.Context, status string, limit int) ([]ImportRun, error) {
	defer m.lock()()
	var out []ImportRun
	for _, r := range m.data.runs {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) FindActiveImportRun(ctx context.Context, tree, fingerprint string) (*ImportRun, error) {
	defer m.lock()()
	for _, r := range m.data.runs {
		if r.Tree == tree && r.Fingerprint == fingerprint && !RunFinished(r.Status) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpdateImportRunStatus(ctx context.Context, id int64, status, errText, summaryJSON string) error {
	defer m.lock()()
	for _, r := range m.data.runs {
		if r.ID != id {
			continue
		}
		now := time.Now().UTC()
		r.Status = status
		r.ErrorText = errText
		if summaryJSON != "" {
			r.SummaryJSON = summaryJSON
		}
		if status == RunParsing && r.StartedAt.IsZero() {
			r.StartedAt = now
		}
		if RunFinished(status) {
			r.FinishedAt = now
		}
		r.UpdatedAt = now
		return nil
	}
	return ErrNotFound
}
