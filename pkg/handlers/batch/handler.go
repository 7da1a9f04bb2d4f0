package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/de-tools/export-consolidator/pkg/adapters"
	"github.com/de-tools/export-consolidator/pkg/models/api"
	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/models/store"
	"github.com/de-tools/export-consolidator/pkg/services/batch"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/rs/zerolog"
)

const (
	defaultRunsLimit = 20
	maxRequests      = 50
)

type RunLister interface {
	List(ctx context.Context, limit int) ([]store.BatchRun, error)
}

type Handler struct {
	service     batch.Service
	runs        RunLister
	defaultFile string
	clock       func() time.Time
}

// NewHandler serves batch runs. runs may be nil when no ledger is configured.
func NewHandler(service batch.Service, runs RunLister, defaultFile string) *Handler {
	return &Handler{
		service:     service,
		runs:        runs,
		defaultFile: defaultFile,
		clock:       time.Now,
	}
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var body api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	requests, err := h.mapRequests(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Consolidate(ctx, requests)
	var connErr *domain.ConnectionError
	switch {
	case errors.As(err, &connErr):
		logger.Error().Err(err).Msg("batch could not connect")
		if result == nil {
			writeError(w, r, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, r, http.StatusBadGateway, adapters.MapDomainReportToAPI(result.RunID, result.Report, result.Locations))
		return
	case result == nil:
		logger.Error().Err(err).Msg("batch failed")
		writeError(w, r, http.StatusInternalServerError, err)
		return
	case err != nil:
		logger.Warn().Err(err).Msg("batch finished with errors")
	}

	writeJSON(w, r, http.StatusOK, adapters.MapDomainReportToAPI(result.RunID, result.Report, result.Locations))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.runs == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("run ledger is not configured"))
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	runs, err := h.runs.List(ctx, limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list runs")
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	response := make([]api.RunSummary, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapStoreRunToAPI(run))
	}
	writeJSON(w, r, http.StatusOK, response)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) mapRequests(body api.BatchRequest) ([]domain.FetchRequest, error) {
	if len(body.Requests) == 0 {
		return nil, fmt.Errorf("at least one request is required")
	}
	if len(body.Requests) > maxRequests {
		return nil, fmt.Errorf("at most %d requests are allowed", maxRequests)
	}

	now := h.clock()
	requests := make([]domain.FetchRequest, 0, len(body.Requests))
	for i, in := range body.Requests {
		dateRange, err := config.ResolveRange(in.Start, in.End, now)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		owner := config.Owner{ExportID: in.OwnerID, Label: in.OwnerLabel, Name: in.OwnerID}
		req := config.Requests([]config.Owner{owner}, dateRange, in.FileName, h.defaultFile)[0]
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, r, status, api.ErrorResponse{Error: err.Error()})
}
