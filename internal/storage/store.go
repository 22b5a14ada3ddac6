package storage

import (
	"context"
	"errors"
	"maps"
	"sort"
	"time"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Record is an opaque row: every field is a string the store never interprets
type Record struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Filter selects records by ID and/or exact field values. The zero Filter
// matches every record in the table.
type Filter struct {
	ID     string
	Fields map[string]string
}

// Matches reports whether r satisfies the filter
func (f Filter) Matches(r Record) bool {
	if f.ID != "" && f.ID != r.ID {
		return false
	}
	for k, v := range f.Fields {
		if r.Fields[k] != v {
			return false
		}
	}
	return true
}

// RecordStore is the remote record store the journal is kept in
type RecordStore interface {
	Get(ctx context.Context, table string, filter Filter) ([]Record, error)
	Insert(ctx context.Context, table string, record Record) (Record, error)
	Update(ctx context.Context, table, id string, partial map[string]string) (Record, error)
	Delete(ctx context.Context, table, id string) error
}

func (r Record) clone() Record {
	r.Fields = maps.Clone(r.Fields)
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	return r
}

// sortRecords orders records by creation time, then ID
func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
