package rowstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Row is one stored data row. Ref is its 1-based position among the data
// rows of its table at read time; deleting rows shifts later refs.
type Row struct {
	Ref    int
	Values []string
}

// Field returns the value of col, or "" when the row is short or col unknown.
func (r Row) Field(t Table, col string) string {
	i := t.Index(col)
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Store is the positional row store the survey dataset lives in.
type Store interface {
	FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error)
	AppendRow(ctx context.Context, table Table, values []string) error
	UpdateRow(ctx context.Context, table Table, ref int, values []string) error
	DeleteRows(ctx context.Context, table Table, refs []int) error
}

// Initializer is implemented by stores that can create missing tables.
type Initializer interface {
	EnsureTables(ctx context.Context, tables ...Table) error
}

var ErrRowNotFound = errors.New("row not found")

// SchemaError reports a write whose width differs from the table schema.
// It is never retried and values are never padded or truncated.
type SchemaError struct {
	Table string
	Want  int
	Got   int
	Msg   string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "row schema violation"
	}
	if e.Msg != "" {
		return fmt.Sprintf("row schema violation (table=%s): %s", e.Table, e.Msg)
	}
	return fmt.Sprintf("row schema violation (table=%s want=%d got=%d)", e.Table, e.Want, e.Got)
}

// RateLimitError marks a transient quota rejection from the backing store.
type RateLimitError struct {
	Op    string
	Cause error
}

func (e *RateLimitError) Error() string {
	if e == nil {
		return "row store rate limited"
	}
	if e.Cause != nil {
		return fmt.Sprintf("row store rate limited (op=%s): %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("row store rate limited (op=%s)", e.Op)
}

func (e *RateLimitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *RateLimitError) HTTPStatusCode() int { return 429 }

// CheckWidth asserts len(values) == table width.
func CheckWidth(t Table, values []string) error {
	if len(values) != t.Width() {
		return &SchemaError{Table: t.Name, Want: t.Width(), Got: len(values)}
	}
	return nil
}

// All matches every row.
func All(Row) bool { return true }

// FieldEquals matches rows whose col equals value.
func FieldEquals(t Table, col, value string) func(Row) bool {
	return func(r Row) bool { return r.Field(t, col) == value }
}

// ClearTable deletes every data row of t and returns how many were removed.
func ClearTable(ctx context.Context, s Store, t Table) (int, error) {
	rows, err := s.FindRows(ctx, t, All)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	refs := make([]int, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, r.Ref)
	}
	if err := s.DeleteRows(ctx, t, refs); err != nil {
		return 0, err
	}
	return len(refs), nil
}

// descendingRefs returns the distinct positive refs, highest first, so that
// deleting in order never shifts a ref still to be deleted.
func descendingRefs(refs []int) []int {
	seen := make(map[int]bool, len(refs))
	out := make([]int, 0, len(refs))
	for _, r := range refs {
		if r < 1 || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func copyValues(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
