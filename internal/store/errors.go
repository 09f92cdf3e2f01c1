package store

import (
	"errors"
	"fmt"
)

// ErrLoadTimeout is returned when a load exceeds the caller's deadline.
// Retrying is the caller's decision; the store never retries on its own.
var ErrLoadTimeout = errors.New("persona load exceeded deadline")

// MalformedDefinitionError reports a record missing a required field or
// failing to parse. In non-strict mode the record is skipped and the load
// continues; in strict mode the whole load fails.
type MalformedDefinitionError struct {
	Origin string // file path or row reference
	Reason string
}

func (e *MalformedDefinitionError) Error() string {
	return fmt.Sprintf("malformed persona definition at %s: %s", e.Origin, e.Reason)
}

// DuplicateIDError reports two records sharing an ID. Always fatal for the
// load: ambiguous routing must never silently proceed.
type DuplicateIDError struct {
	ID     string
	First  string // origin of the record seen first
	Second string // origin of the conflicting record
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate persona id %q: declared in %s and %s", e.ID, e.First, e.Second)
}
