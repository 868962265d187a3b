// Package pipeline wires the four migration stages — extract, transform,
// load, validate — into a sequential run. No stage begins before its
// predecessor completes: the mapping must be total before any reference is
// resolved, and all documents must exist before validation. Each stage
// returns a success payload or a typed failure; nothing is caught and
// downgraded along the way. Retry policy lives entirely outside this package.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/accessmigrate/internal/mapper"
	"github.com/mesh-intelligence/accessmigrate/internal/source"
	"github.com/mesh-intelligence/accessmigrate/internal/target"
	"github.com/mesh-intelligence/accessmigrate/internal/transform"
	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Stage names as reported to the external scheduler.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
	StageValidate  = "validate"
)

// Stage status values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StageStatus is the aggregated outcome of one stage.
type StageStatus struct {
	Stage    string        `json:"stage"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunResult aggregates a full pipeline run for the external scheduler. The
// validator's report is the authoritative success signal; Success is false
// if any stage failed or any validation check did.
type RunResult struct {
	Stages  []StageStatus       `json:"stages"`
	Source  target.SourceCounts `json:"source"`
	Stats   *types.LoadStats    `json:"stats,omitempty"`
	Report  *types.Report       `json:"report,omitempty"`
	Success bool                `json:"success"`
}

// Pipeline holds the stage collaborators for one migration run.
type Pipeline struct {
	cfg         *types.Config
	extractor   *source.Extractor
	mapper      *mapper.Mapper
	transformer *transform.Transformer
	store       target.Store
	loader      *target.Loader
	validator   *target.Validator
	log         zerolog.Logger
}

// New assembles a Pipeline from opaque connection handles: the source SQL
// database, the target document store, and the mapping store (pre-populated
// when resuming a prior run).
func New(cfg *types.Config, sourceDB *sql.DB, store target.Store, mapStore mapper.Store, log zerolog.Logger) (*Pipeline, error) {
	m, err := mapper.New(mapStore)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:         cfg,
		extractor:   source.New(sourceDB, log),
		mapper:      m,
		transformer: transform.New(m, log),
		store:       store,
		loader:      target.NewLoader(store, cfg.BatchSize, log),
		validator:   target.NewValidator(store, log),
		log:         log,
	}, nil
}

// Extract runs the extract stage under the configured timeout.
func (p *Pipeline) Extract(ctx context.Context) (*types.RawSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	return p.extractor.Extract(ctx)
}

// ValidateSource runs the pre-flight source checks.
func (p *Pipeline) ValidateSource(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	return p.extractor.ValidateSource(ctx)
}

// SourceCounts reads the source row counts for count-parity validation.
func (p *Pipeline) SourceCounts(ctx context.Context) (target.SourceCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	roles, views, err := p.extractor.Counts(ctx)
	return target.SourceCounts{Roles: roles, Views: views}, err
}

// Transform runs the transform stage. It does not touch the target store.
func (p *Pipeline) Transform(ctx context.Context, raw *types.RawSnapshot) (*types.MappedSnapshot, []types.MappingEntry, error) {
	return p.transformer.Transform(ctx, raw)
}

// Load runs the load stage under the configured timeout, ensuring target
// indexes exist first.
func (p *Pipeline) Load(ctx context.Context, snap *types.MappedSnapshot) (*types.LoadStats, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	if err := p.store.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return p.loader.Load(ctx, snap)
}

// Validate runs the validate stage against the given source counts.
func (p *Pipeline) Validate(ctx context.Context, counts target.SourceCounts) (*types.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	return p.validator.Validate(ctx, counts)
}

// Run executes the full pipeline sequentially. A fatal stage failure skips
// the remaining stages; a validation mismatch completes the run but flips
// Success to false. The returned error is non-nil only for fatal failures,
// and the RunResult is always populated as far as the run got.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{Success: true}

	var raw *types.RawSnapshot
	err := p.runStage(result, StageExtract, func() error {
		var err error
		raw, err = p.Extract(ctx)
		if err != nil {
			return err
		}
		result.Source, err = p.SourceCounts(ctx)
		return err
	})
	if err != nil {
		p.skipRemaining(result, StageTransform, StageLoad, StageValidate)
		return result, err
	}

	var snap *types.MappedSnapshot
	err = p.runStage(result, StageTransform, func() error {
		var err error
		snap, _, err = p.Transform(ctx, raw)
		return err
	})
	if err != nil {
		p.skipRemaining(result, StageLoad, StageValidate)
		return result, err
	}

	err = p.runStage(result, StageLoad, func() error {
		stats, err := p.Load(ctx, snap)
		result.Stats = stats
		if err != nil {
			return err
		}
		if !stats.Clean() {
			return errors.New("load completed with write conflicts")
		}
		return nil
	})
	if err != nil {
		// Conflicts are fatal for the affected entities but the target state
		// is still worth validating; only transport-level failures skip it.
		if result.Stats == nil {
			p.skipRemaining(result, StageValidate)
			return result, err
		}
	}

	verr := p.runStage(result, StageValidate, func() error {
		report, err := p.Validate(ctx, result.Source)
		result.Report = report
		return err
	})
	if verr != nil {
		return result, verr
	}
	if result.Report != nil && !result.Report.Success {
		result.Success = false
	}
	return result, err
}

// runStage times a stage, records its status, and folds failure into the
// overall success flag.
func (p *Pipeline) runStage(result *RunResult, name string, fn func() error) error {
	start := time.Now()
	p.log.Info().Str("stage", name).Msg("stage starting")

	err := fn()
	status := StageStatus{Stage: name, Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		status.Status = StatusFailed
		status.Error = err.Error()
		result.Success = false
		p.log.Error().Str("stage", name).Err(err).Dur("duration", status.Duration).Msg("stage failed")
	} else {
		p.log.Info().Str("stage", name).Dur("duration", status.Duration).Msg("stage complete")
	}
	result.Stages = append(result.Stages, status)
	return err
}

func (p *Pipeline) skipRemaining(result *RunResult, stages ...string) {
	for _, s := range stages {
		result.Stages = append(result.Stages, StageStatus{Stage: s, Status: StatusSkipped})
	}
}

// Mapping exposes the completed mapping snapshot, for reporting.
func (p *Pipeline) Mapping() []types.MappingEntry {
	return p.mapper.Snapshot()
}
