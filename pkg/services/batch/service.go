package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/export-consolidator/pkg/adapters"
	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/models/store"
	"github.com/de-tools/export-consolidator/pkg/store/artifact"
	"github.com/rs/zerolog"
)

// Engine runs one batch against the remote store.
type Engine interface {
	Run(ctx context.Context, desc domain.ConnectionDescriptor, requests []domain.FetchRequest) (*domain.BatchReport, error)
}

// Ledger records finished runs.
type Ledger interface {
	Record(ctx context.Context, run *store.BatchRun) (string, error)
}

// Result is a finished batch plus what happened to its artifacts.
type Result struct {
	RunID  string
	Report *domain.BatchReport
	// Locations holds the stored artifact location per request, "" when not stored.
	Locations []string
}

type Service interface {
	Consolidate(ctx context.Context, requests []domain.FetchRequest) (*Result, error)
}

type DefaultService struct {
	engine     Engine
	descriptor func() (domain.ConnectionDescriptor, error)
	artifacts  artifact.Store
	ledger     Ledger
}

// NewService wires the engine to its collaborators. artifacts and ledger are optional.
func NewService(
	engine Engine,
	descriptor func() (domain.ConnectionDescriptor, error),
	artifacts artifact.Store,
	ledger Ledger,
) *DefaultService {
	return &DefaultService{
		engine:     engine,
		descriptor: descriptor,
		artifacts:  artifacts,
		ledger:     ledger,
	}
}

// Consolidate runs the batch, stores the artifact of every successful request
// and records the run. A connection failure is returned together with a
// result carrying the report log.
func (s *DefaultService) Consolidate(ctx context.Context, requests []domain.FetchRequest) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	desc, err := s.descriptor()
	if err != nil {
		return nil, fmt.Errorf("resolve connection: %w", err)
	}

	report, runErr := s.engine.Run(ctx, desc, requests)
	if report == nil {
		return nil, runErr
	}
	result := &Result{Report: report, Locations: make([]string, len(report.Requests))}

	var storeErrs []error
	if s.artifacts != nil {
		for i, rr := range report.Requests {
			if !rr.Success {
				continue
			}
			loc, err := s.artifacts.Put(ctx, rr.ArtifactName, []byte(rr.Artifact))
			if err != nil {
				logger.Error().Err(err).Str("artifact", rr.ArtifactName).Msg("failed to store artifact")
				storeErrs = append(storeErrs, err)
				continue
			}
			logger.Info().Str("artifact", rr.ArtifactName).Str("location", loc).Msg("artifact stored")
			result.Locations[i] = loc
		}
	}

	if s.ledger != nil {
		id, err := s.ledger.Record(ctx, adapters.MapDomainReportToStore(report, result.Locations, runErr))
		if err != nil {
			logger.Error().Err(err).Msg("failed to record run")
		} else {
			result.RunID = id
		}
	}

	if runErr != nil {
		return result, runErr
	}
	if len(storeErrs) > 0 {
		return result, fmt.Errorf("store artifacts: %w", errors.Join(storeErrs...))
	}
	return result, nil
}
