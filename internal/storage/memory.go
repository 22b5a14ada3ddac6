package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process RecordStore
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
	now    func() time.Time

	// called with the lock held after every successful mutation
	onChange func(tables map[string]map[string]Record) error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]map[string]Record),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns matching records ordered by creation time
func (ms *MemoryStore) Get(ctx context.Context, table string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Record
	for _, r := range ms.tables[table] {
		if filter.Matches(r) {
			out = append(out, r.clone())
		}
	}
	sortRecords(out)
	return out, nil
}

// Insert stores a new record, assigning an ID when none is set
func (ms *MemoryStore) Insert(ctx context.Context, table string, record Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	r := record.clone()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	t, ok := ms.tables[table]
	if !ok {
		t = make(map[string]Record)
		ms.tables[table] = t
	}
	if _, exists := t[r.ID]; exists {
		return Record{}, &ConflictError{Table: table, ID: r.ID}
	}

	now := ms.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	t[r.ID] = r

	if err := ms.changed(); err != nil {
		delete(t, r.ID)
		return Record{}, err
	}
	return r.clone(), nil
}

// Update merges partial into an existing record's fields
func (ms *MemoryStore) Update(ctx context.Context, table, id string, partial map[string]string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	old, ok := ms.tables[table][id]
	if !ok {
		return Record{}, ErrNotFound
	}

	r := old.clone()
	for k, v := range partial {
		r.Fields[k] = v
	}
	r.UpdatedAt = ms.now()
	ms.tables[table][id] = r

	if err := ms.changed(); err != nil {
		ms.tables[table][id] = old
		return Record{}, err
	}
	return r.clone(), nil
}

// Delete removes a record
func (ms *MemoryStore) Delete(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	old, ok := ms.tables[table][id]
	if !ok {
		return ErrNotFound
	}
	delete(ms.tables[table], id)

	if err := ms.changed(); err != nil {
		ms.tables[table][id] = old
		return err
	}
	return nil
}

func (ms *MemoryStore) changed() error {
	if ms.onChange == nil {
		return nil
	}
	return ms.onChange(ms.tables)
}
