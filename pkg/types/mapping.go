package types

import "time"

// MappingEntry records the stable target identifier allocated for one source
// entity. Entries are keyed by (EntityType, SourceID), created once, and never
// mutated; the mapping is the only cross-run persistent state the pipeline
// requires.
//
// Allocation derives the target identifier from the normalized natural key
// (Code) when present, so an unchanged code yields the same identifier on
// every run. A changed code therefore allocates a fresh identifier and the
// entity is treated as new; the previous document is left in place.
type MappingEntry struct {
	EntityType EntityType `json:"entityType"`
	SourceID   int64      `json:"sourceId"`
	TargetID   string     `json:"targetId"`
	Code       string     `json:"code"`
	CreatedAt  time.Time  `json:"createdAt"`
}
