package types

import (
	"errors"
	"fmt"
)

// Transient store failures. Wrapped around the driver error so callers can
// match with errors.Is; the pipeline never retries these itself, re-running
// the stage is the external scheduler's responsibility.
var (
	ErrSourceRead  = errors.New("source read failed")
	ErrTargetWrite = errors.New("target write failed")
)

// Store lookup and lifecycle errors.
var (
	ErrNotFound      = errors.New("document not found")
	ErrStoreClosed   = errors.New("store is closed")
	ErrMappingFrozen = errors.New("mapping entry is write-once")
)

// MappingConflictError reports two distinct source ids resolving to the same
// target identifier under the natural-key scheme (duplicate code). Fatal:
// the run aborts rather than silently overwriting a mapping.
type MappingConflictError struct {
	EntityType EntityType
	Code       string
	SourceID   int64 // the source id whose resolution collided
	ExistingID int64 // the source id that already owns the target identifier
	TargetID   string
}

func (e *MappingConflictError) Error() string {
	return fmt.Sprintf("mapping conflict: %s %d and %d both resolve to %s (code %q)",
		e.EntityType, e.ExistingID, e.SourceID, e.TargetID, e.Code)
}

// HierarchyCycleError reports a view whose parent chain revisits itself
// before reaching a root. Fatal.
type HierarchyCycleError struct {
	SourceID int64
	Code     string
	Path     []int64 // source ids along the parent chain, starting at SourceID
}

func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("hierarchy cycle: view %d (code %q) is its own ancestor via %v",
		e.SourceID, e.Code, e.Path)
}

// MalformedRowError reports a source row with a required field null or
// invalid, or a reference to a row that does not exist. Fatal: the run aborts
// rather than silently dropping data.
type MalformedRowError struct {
	EntityType EntityType
	SourceID   int64
	Field      string
	Reason     string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed %s row %d: field %q: %s",
		e.EntityType, e.SourceID, e.Field, e.Reason)
}

// WriteConflictError reports an existing target document whose code matches
// an incoming document but whose immutable identity does not (a different
// target identifier under the same code). Fatal for that entity; sibling
// writes proceed and conflicts are collected in the load statistics.
type WriteConflictError struct {
	EntityType EntityType
	Code       string
	WantID     string
	HaveID     string
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write conflict: %s %q exists with id %s, incoming id %s",
		e.EntityType, e.Code, e.HaveID, e.WantID)
}
