package store

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"

	"sentryd/internal/logging"
)

func init() {
	// vec0 + vector_distance_cos are registered once, process-wide, against
	// the pure-Go modernc.org/sqlite driver so ANN search degrades to a
	// correct (if O(n)) implementation even without cgo. Builds compiled
	// with -tags sqlite_vec,cgo additionally load the real
	// sqlite-vec-go-bindings extension (vec_cgo.go) for true ANN indexing;
	// when both are present the cgo path wins because its virtual table is
	// registered against the mattn/go-sqlite3 driver used in that build.
	_ = vtab.RegisterModule(nil, "vec0", &patternVecModule{})
	_ = sqlite.RegisterDeterministicScalarFunction("vector_distance_cos", 2, vectorDistanceCos)
}

// initVecIndex creates the vec_index virtual table sized for dim dimensions
// and reports whether it succeeded. Called whenever an embedding engine is
// attached, since D is only known once the engine reports Dimensions().
func initVecIndex(db *sql.DB, dim int) bool {
	if db == nil || dim <= 0 {
		return false
	}
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d], pattern_id TEXT, metadata TEXT)", dim)
	if _, err := db.Exec(stmt); err != nil {
		logging.StoreWarn("failed to create vec_index: %v", err)
		return false
	}
	return true
}

// detectVecExtension probes for vec0 availability by creating and dropping a
// throwaway virtual table; used right after schema init, before any
// embedding engine (and its dimension count) is known.
func detectVecExtension(db *sql.DB) bool {
	if db == nil {
		return false
	}
	if _, err := db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding BLOB)"); err != nil {
		return false
	}
	_, _ = db.Exec("DROP TABLE IF EXISTS vec_probe")
	return true
}

// encodeEmbedding packs a float32 vector into the little-endian byte layout
// vectorDistanceCos and the sqlite-vec cgo extension both expect.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(v driver.Value) ([]float32, error) {
	if v == nil {
		return nil, nil
	}
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return nil, fmt.Errorf("vector_distance_cos: unsupported type %T", v)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector_distance_cos: blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// vectorDistanceCos is a SQL scalar function returning 1-cosine_similarity,
// so ORDER BY ascending ranks nearest neighbors first, matching sqlite-vec's
// own vec_distance_cosine convention.
func vectorDistanceCos(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vector_distance_cos expects 2 arguments")
	}
	a, err := decodeEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := decodeEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return float64(1), nil
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(1), nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

// patternVecModule is a minimal in-memory vec0 virtual table: enough to give
// modernc.org/sqlite builds exact nearest-neighbor search without cgo. Rows
// are not persisted across process restarts; the caller backfills from the
// patterns table's embedding column on demand (see search.go).
type patternVecModule struct{}

var (
	vecTablesMu sync.RWMutex
	vecTables   = make(map[string]*vecTable)
)

type vecTable struct {
	name      string
	mu        sync.RWMutex
	rows      []vecRow
	nextRowID int64
}

type vecRow struct {
	rowid     int64
	embedding []byte
	patternID string
	metadata  string
}

func (m *patternVecModule) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *patternVecModule) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.connect(ctx, args)
}

func (m *patternVecModule) connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec0: insufficient args")
	}
	name := args[2]
	if err := ctx.Declare("CREATE TABLE x(embedding BLOB, pattern_id TEXT, metadata TEXT)"); err != nil {
		return nil, err
	}
	vecTablesMu.Lock()
	defer vecTablesMu.Unlock()
	tbl, ok := vecTables[name]
	if !ok {
		tbl = &vecTable{name: name, nextRowID: 1}
		vecTables[name] = tbl
	}
	return tbl, nil
}

func (t *vecTable) BestIndex(info *vtab.IndexInfo) error {
	info.EstimatedRows = int64(len(t.rows))
	return nil
}

func (t *vecTable) Open() (vtab.Cursor, error) { return &vecCursor{tbl: t, idx: -1}, nil }
func (t *vecTable) Disconnect() error          { return nil }
func (t *vecTable) Destroy() error             { return nil }

func (t *vecTable) Insert(cols []vtab.Value, rowid *int64) error {
	if len(cols) < 3 {
		return fmt.Errorf("vec0: insert expects 3 columns")
	}
	emb, err := coerceBlob(cols[0])
	if err != nil {
		return err
	}
	patternID := toString(cols[1])
	meta := toString(cols[2])

	t.mu.Lock()
	defer t.mu.Unlock()
	rid := *rowid
	if rid <= 0 {
		rid = t.nextRowID
		t.nextRowID++
	}
	for i := range t.rows {
		if t.rows[i].rowid == rid {
			t.rows[i] = vecRow{rowid: rid, embedding: emb, patternID: patternID, metadata: meta}
			*rowid = rid
			return nil
		}
	}
	t.rows = append(t.rows, vecRow{rowid: rid, embedding: emb, patternID: patternID, metadata: meta})
	*rowid = rid
	return nil
}

func (t *vecTable) Update(oldRowid int64, cols []vtab.Value, newRowid *int64) error {
	if len(cols) < 3 {
		return fmt.Errorf("vec0: update expects 3 columns")
	}
	emb, err := coerceBlob(cols[0])
	if err != nil {
		return err
	}
	patternID := toString(cols[1])
	meta := toString(cols[2])

	t.mu.Lock()
	defer t.mu.Unlock()
	target := oldRowid
	if newRowid != nil && *newRowid > 0 {
		target = *newRowid
	}
	for i := range t.rows {
		if t.rows[i].rowid == oldRowid {
			t.rows[i] = vecRow{rowid: target, embedding: emb, patternID: patternID, metadata: meta}
			return nil
		}
	}
	t.rows = append(t.rows, vecRow{rowid: target, embedding: emb, patternID: patternID, metadata: meta})
	if target >= t.nextRowID {
		t.nextRowID = target + 1
	}
	return nil
}

func (t *vecTable) Delete(oldRowid int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.rows[i].rowid == oldRowid {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	return nil
}

type vecCursor struct {
	tbl *vecTable
	idx int
}

func (c *vecCursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.idx = -1
	return c.Next()
}

func (c *vecCursor) Next() error {
	c.idx++
	return nil
}

func (c *vecCursor) Eof() bool {
	c.tbl.mu.RLock()
	defer c.tbl.mu.RUnlock()
	return c.idx >= len(c.tbl.rows)
}

func (c *vecCursor) Column(col int) (vtab.Value, error) {
	c.tbl.mu.RLock()
	defer c.tbl.mu.RUnlock()
	if c.idx < 0 || c.idx >= len(c.tbl.rows) {
		return nil, fmt.Errorf("vec0: cursor out of range")
	}
	row := c.tbl.rows[c.idx]
	switch col {
	case 0:
		return row.embedding, nil
	case 1:
		return row.patternID, nil
	case 2:
		return row.metadata, nil
	default:
		return nil, fmt.Errorf("vec0: invalid column %d", col)
	}
}

func (c *vecCursor) Rowid() (int64, error) {
	c.tbl.mu.RLock()
	defer c.tbl.mu.RUnlock()
	if c.idx < 0 || c.idx >= len(c.tbl.rows) {
		return 0, fmt.Errorf("vec0: cursor out of range")
	}
	return c.tbl.rows[c.idx].rowid, nil
}

func (c *vecCursor) Close() error { return nil }

func coerceBlob(v vtab.Value) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		cp := make([]byte, len(x))
		copy(cp, x)
		return cp, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("vec0: unsupported embedding type %T", v)
	}
}

func toString(v vtab.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
