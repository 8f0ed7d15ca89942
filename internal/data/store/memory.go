package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type record struct {
	seq int64
	doc []byte
}

// memoryStore keeps every collection in its own non-expiring cache. The
// mutex makes multi step operations (unique checks, compare and swap,
// snapshots) atomic across the cache.
type memoryStore struct {
	mu   sync.RWMutex
	seq  int64
	data map[Collection]*gocache.Cache
}

// NewMemory returns an empty in-process store.
func NewMemory() Gateway {
	m := &memoryStore{data: make(map[Collection]*gocache.Cache, len(Collections))}
	for _, c := range Collections {
		m.data[c] = gocache.New(gocache.NoExpiration, 0)
	}
	return m
}

func (m *memoryStore) FindByID(ctx context.Context, coll Collection, id uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.FindByID(ctx, coll, id)
}

func (m *memoryStore) Find(ctx context.Context, coll Collection, f Filter) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.Find(ctx, coll, f)
}

func (m *memoryStore) Aggregate(ctx context.Context, coll Collection, p Pipeline) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.Aggregate(ctx, coll, p)
}

func (m *memoryStore) Count(ctx context.Context, coll Collection, f Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memReader{m}.Count(ctx, coll, f)
}

func (m *memoryStore) Insert(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	decoded, err := decode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique(coll, id, decoded); err != nil {
		return err
	}
	m.seq++
	if err := c.Add(id.String(), record{seq: m.seq, doc: clone(doc)}, gocache.NoExpiration); err != nil {
		return fmt.Errorf("insert %s: %w", id, &DuplicateKeyError{Collection: coll, Key: KeyID})
	}
	return nil
}

func (m *memoryStore) Replace(ctx context.Context, coll Collection, id uuid.UUID, doc []byte) error {
	return m.replace(ctx, coll, id, nil, doc)
}

func (m *memoryStore) ReplaceIf(ctx context.Context, coll Collection, id uuid.UUID, expected, doc []byte) error {
	if expected == nil {
		return fmt.Errorf("replace %s %s: missing expected document", coll, id)
	}
	return m.replace(ctx, coll, id, expected, doc)
}

func (m *memoryStore) replace(ctx context.Context, coll Collection, id uuid.UUID, expected, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.collection(coll)
	if err != nil {
		return err
	}
	decoded, err := decode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := c.Get(id.String())
	if !ok {
		return fmt.Errorf("replace %s %s: %w", coll, id, ErrNoMatch)
	}
	current := v.(record)
	if expected != nil {
		same, err := sameDocument(current.doc, expected)
		if err != nil {
			return err
		}
		if !same {
			return fmt.Errorf("replace %s %s: %w", coll, id, ErrNoMatch)
		}
	}
	if err := m.checkUnique(coll, id, decoded); err != nil {
		return err
	}
	c.Set(id.String(), record{seq: current.seq, doc: clone(doc)}, gocache.NoExpiration)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, coll Collection, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.collection(coll)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := c.Get(id.String()); !ok {
		return fmt.Errorf("delete %s %s: %w", coll, id, ErrNoMatch)
	}
	c.Delete(id.String())
	return nil
}

// ReadOnly holds the read lock for the whole callback, so writers wait
// until the snapshot is released.
func (m *memoryStore) ReadOnly(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(ctx, memReader{m})
}

func (m *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *memoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data {
		c.Flush()
	}
}

func (m *memoryStore) collection(coll Collection) (*gocache.Cache, error) {
	if err := coll.validate(); err != nil {
		return nil, err
	}
	return m.data[coll], nil
}

// checkUnique must be called with the write lock held.
func (m *memoryStore) checkUnique(coll Collection, id uuid.UUID, doc map[string]any) error {
	keys := UniqueKeys[coll]
	if len(keys) == 0 {
		return nil
	}
	for key, item := range m.data[coll].Items() {
		if key == id.String() {
			continue
		}
		other, err := decode(item.Object.(record).doc)
		if err != nil {
			return err
		}
		for _, field := range keys {
			v, ok := doc[field]
			if ok && reflect.DeepEqual(v, other[field]) {
				return fmt.Errorf("%s: %w", id, &DuplicateKeyError{Collection: coll, Key: field})
			}
		}
	}
	return nil
}

// memReader reads without locking; callers hold m.mu.
type memReader struct {
	m *memoryStore
}

func (r memReader) FindByID(ctx context.Context, coll Collection, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := r.m.collection(coll)
	if err != nil {
		return nil, err
	}
	v, ok := c.Get(id.String())
	if !ok {
		return nil, nil
	}
	return clone(v.(record).doc), nil
}

func (r memReader) Find(ctx context.Context, coll Collection, f Filter) ([][]byte, error) {
	return r.Aggregate(ctx, coll, Pipeline{Match(f)})
}

func (r memReader) Count(ctx context.Context, coll Collection, f Filter) (int64, error) {
	docs, err := r.Find(ctx, coll, f)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (r memReader) Aggregate(ctx context.Context, coll Collection, p Pipeline) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := r.m.collection(coll)
	if err != nil {
		return nil, err
	}
	pl, err := p.compile()
	if err != nil {
		return nil, err
	}

	type row struct {
		seq     int64
		doc     []byte
		decoded map[string]any
	}
	rows := make([]row, 0)
	for _, item := range c.Items() {
		rec := item.Object.(record)
		decoded, err := decode(rec.doc)
		if err != nil {
			return nil, err
		}
		ok, err := pl.filter.match(decoded)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row{seq: rec.seq, doc: rec.doc, decoded: decoded})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	if pl.sort != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			cmp := compareValues(rows[i].decoded[pl.sort], rows[j].decoded[pl.sort])
			if pl.desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	start := int(min(pl.skip, int64(len(rows))))
	end := len(rows)
	if pl.limited && pl.limit < int64(end-start) {
		end = start + int(pl.limit)
	}

	docs := make([][]byte, 0, end-start)
	for _, rw := range rows[start:end] {
		docs = append(docs, clone(rw.doc))
	}
	return docs, nil
}

func decode(doc []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func sameDocument(a, b []byte) (bool, error) {
	da, err := decode(a)
	if err != nil {
		return false, err
	}
	db, err := decode(b)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(da, db), nil
}

// compareValues follows the jsonb type order (null < string < number < bool).
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case bool:
		y := b.(bool)
		if x != y {
			if !x {
				return -1
			}
			return 1
		}
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
