package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/accessmigrate/internal/mapper"
	"github.com/mesh-intelligence/accessmigrate/internal/pipeline"
	"github.com/mesh-intelligence/accessmigrate/internal/target"
	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// session bundles the pipeline with the resources it borrows, so commands
// can release everything with one Close.
type session struct {
	Pipeline *pipeline.Pipeline
	Config   *types.Config

	sourceDB *sql.DB
	store    target.Store
	mapStore mapper.Store
}

// openSession builds a pipeline from the resolved configuration: source SQL
// connection, target document store, and persistent mapping store. Commands
// that never write to the target (extract, transform) pass withTarget false
// and get an in-memory stand-in instead of a live connection.
func openSession(ctx context.Context, withTarget bool) (*session, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	log := pipeline.NewLogger(os.Stderr, cfg.LogLevel)

	sourceDB, err := sql.Open("sqlite", cfg.SourceDSN)
	if err != nil {
		return nil, fmt.Errorf("opening source store: %w", err)
	}

	var store target.Store = target.NewMemStore()
	if withTarget {
		store, err = target.OpenMongoStore(ctx, cfg.TargetURI, cfg.TargetDatabase)
		if err != nil {
			sourceDB.Close()
			return nil, err
		}
	}

	mapStore, err := mapper.OpenSQLiteStore(cfg.MappingPath)
	if err != nil {
		sourceDB.Close()
		_ = store.Close(ctx)
		return nil, err
	}

	p, err := pipeline.New(cfg, sourceDB, store, mapStore, log)
	if err != nil {
		sourceDB.Close()
		_ = store.Close(ctx)
		_ = mapStore.Close()
		return nil, err
	}

	return &session{
		Pipeline: p,
		Config:   cfg,
		sourceDB: sourceDB,
		store:    store,
		mapStore: mapStore,
	}, nil
}

// Close releases all session resources.
func (s *session) Close(ctx context.Context) {
	if s.sourceDB != nil {
		_ = s.sourceDB.Close()
	}
	if s.store != nil {
		_ = s.store.Close(ctx)
	}
	if s.mapStore != nil {
		_ = s.mapStore.Close()
	}
}

// printResult writes v as indented JSON when --json is set, otherwise hands
// off to the plain-text printer.
func printResult(v any, plain func()) error {
	if flagJSON {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	plain()
	return nil
}
