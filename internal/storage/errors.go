package storage

import "fmt"

// ConflictError is returned when inserting a record whose ID already exists
type ConflictError struct {
	Table string
	ID    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s already exists in %s", e.ID, e.Table)
}
