package types

import "time"

// Validation check names.
const (
	CheckCountParity          = "count_parity"
	CheckStructural           = "structural"
	CheckReferentialIntegrity = "referential_integrity"
	CheckHierarchyIntegrity   = "hierarchy_integrity"
)

// Check is the outcome of a single validation check: pass/fail plus one
// detail line per discrepancy found.
type Check struct {
	Name    string   `json:"name"`
	Passed  bool     `json:"passed"`
	Details []string `json:"details,omitempty"`
}

// Report aggregates all validation checks. Success is the AND of every
// check's Passed flag and is the authoritative success signal for the run.
type Report struct {
	Checks      []Check   `json:"checks"`
	Success     bool      `json:"success"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// NewReport returns an empty report with Success true; adding a failed
// check flips it permanently.
func NewReport() *Report {
	return &Report{Success: true, GeneratedAt: time.Now().UTC()}
}

// Add appends a check and folds its result into the overall success flag.
func (r *Report) Add(c Check) {
	r.Checks = append(r.Checks, c)
	r.Success = r.Success && c.Passed
}

// EntityStats counts documents written per entity type during a load.
type EntityStats struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Total returns the number of documents the loader attempted for this type.
func (s EntityStats) Total() int {
	return s.Created + s.Updated + s.Unchanged + s.Failed
}

// LoadStats is the loader's result: per-type upsert counters plus every
// write conflict encountered. Conflicts are fatal for the affected entity
// but do not abort sibling writes.
type LoadStats struct {
	Roles     EntityStats           `json:"roles"`
	Views     EntityStats           `json:"views"`
	Conflicts []*WriteConflictError `json:"-"`
	Patched   int                   `json:"patched"` // documents re-applied in phase 2
}

// Clean reports whether the load completed without conflicts or failures.
func (s *LoadStats) Clean() bool {
	return len(s.Conflicts) == 0 && s.Roles.Failed == 0 && s.Views.Failed == 0
}
