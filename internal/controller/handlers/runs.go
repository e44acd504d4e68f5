package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"marketcap/internal/orchestrator"
	"marketcap/internal/store"
	"marketcap/pkg/api"
)

// TriggerRun handles POST /runs.
// It executes one ingestion run synchronously and returns the summary;
// the response is the source of truth, not a later status poll.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.JobName == "" {
		h.httpError(w, "job_name is required", http.StatusBadRequest)
		return
	}

	params := orchestrator.Params{
		JobName:    req.JobName,
		Sources:    req.Sources,
		MaxItems:   req.MaxItems,
		MaxRuntime: time.Duration(req.MaxRuntimeSeconds) * time.Second,
		DryRun:     req.DryRun,
	}
	if params.MaxItems <= 0 {
		params.MaxItems = h.defaultMaxItems
	}
	if params.MaxRuntime <= 0 {
		params.MaxRuntime = h.defaultMaxRuntime
	}

	summary, err := h.runner.Run(ctx, params)
	if err != nil {
		h.respondJson(w, http.StatusInternalServerError, summaryToResponse(summary))
		return
	}

	status := http.StatusOK
	if summary.Status == orchestrator.StatusAlreadyRunning {
		// Accepted but not performed; the caller should retry later.
		status = http.StatusConflict
	}
	h.respondJson(w, status, summaryToResponse(summary))
}

// GetRun handles GET /runs/{id}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	run, err := h.store.GetRunByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	resp := api.RunRecordResponse{
		ID:         run.ID.String(),
		JobName:    run.JobName,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if len(run.Stats) > 0 {
		var stats map[string]api.SourceStatsResponse
		if err := json.Unmarshal(run.Stats, &stats); err == nil {
			resp.Stats = stats
		}
	}
	h.respondJson(w, http.StatusOK, resp)
}

func summaryToResponse(s *orchestrator.Summary) api.RunResponse {
	resp := api.RunResponse{
		JobName:    s.JobName,
		Status:     string(s.Status),
		DryRun:     s.DryRun,
		Sources:    make(map[string]api.SourceStatsResponse, len(s.Sources)),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if s.RunID != uuid.Nil {
		resp.RunID = s.RunID.String()
	}
	for name, st := range s.Sources {
		resp.Sources[name] = api.SourceStatsResponse{
			Seen:      st.Seen,
			Created:   st.Created,
			Updated:   st.Updated,
			Invalid:   st.Invalid,
			Errors:    st.Errors,
			Skipped:   st.Skipped,
			LastRunAt: st.LastRunAt,
		}
	}
	return resp
}
