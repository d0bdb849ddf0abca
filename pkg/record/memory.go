package record

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory store for tests and one-shot evaluation.
type Memory struct {
	mu     sync.RWMutex
	things map[uuid.UUID]*Thing
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		things: make(map[uuid.UUID]*Thing),
	}
}

// Get retrieves a copy of a thing by ID.
func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*Thing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.things[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

// Put stores a copy of t.
func (m *Memory) Put(ctx context.Context, t *Thing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.things[t.ID] = clone(t)
	return nil
}

// Delete removes a thing by ID.
func (m *Memory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.things, id)
	return nil
}

// List returns copies of the things of a schema ordered by creation time.
func (m *Memory) List(ctx context.Context, schemaName string) ([]*Thing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Thing
	for _, t := range m.things {
		if t.SchemaName == schemaName {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

func clone(t *Thing) *Thing {
	c := *t
	c.Properties = maps.Clone(t.Properties)
	if c.Properties == nil {
		c.Properties = make(map[string]any)
	}
	return &c
}
