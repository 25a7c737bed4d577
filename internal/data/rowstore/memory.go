package rowstore

import (
	"context"
	"fmt"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

// NewMemoryStore keeps every table in process memory.
func NewMemoryStore() Store {
	return &memoryStore{tables: map[string][][]string{}}
}

func (m *memoryStore) EnsureTables(ctx context.Context, tables ...Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tables {
		if _, ok := m.tables[t.Name]; !ok {
			m.tables[t.Name] = nil
		}
	}
	return nil
}

func (m *memoryStore) FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for i, values := range m.tables[table.Name] {
		row := Row{Ref: i + 1, Values: copyValues(values)}
		if match == nil || match(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryStore) AppendRow(ctx context.Context, table Table, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table.Name] = append(m.tables[table.Name], copyValues(values))
	return nil
}

func (m *memoryStore) UpdateRow(ctx context.Context, table Table, ref int, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table.Name]
	if ref < 1 || ref > len(rows) {
		return fmt.Errorf("%s ref %d: %w", table.Name, ref, ErrRowNotFound)
	}
	rows[ref-1] = copyValues(values)
	return nil
}

func (m *memoryStore) DeleteRows(ctx context.Context, table Table, refs []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table.Name]
	for _, ref := range descendingRefs(refs) {
		if ref > len(rows) {
			return fmt.Errorf("%s ref %d: %w", table.Name, ref, ErrRowNotFound)
		}
		rows = append(rows[:ref-1], rows[ref:]...)
	}
	m.tables[table.Name] = rows
	return nil
}
