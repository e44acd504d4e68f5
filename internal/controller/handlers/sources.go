package handlers

import (
	"net/http"

	"marketcap/pkg/api"
)

// defaultJob is the job name cursors and switches are reported against
// when the query does not name one.
const defaultJob = "ingest"

// ListSources handles GET /sources.
// It reports each registered adapter with its kill-switch state and the
// persisted cursor for the requested job.
func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job := r.URL.Query().Get("job")
	if job == "" {
		job = defaultJob
	}

	switches, err := h.state.SnapshotSwitches(ctx, h.registry.Names())
	if err != nil {
		h.httpError(w, "KV store unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := api.SourcesResponse{}
	for _, adapter := range h.registry.All() {
		info := api.SourceInfo{
			Name:       adapter.Name(),
			Confidence: adapter.NominalConfidence(),
			Enabled:    switches.Enabled(adapter.Name()),
		}
		if cursor, err := h.state.Cursor(ctx, job, adapter.Name()); err == nil {
			info.Cursor = cursor
		}
		resp.Sources = append(resp.Sources, info)
	}

	h.respondJson(w, http.StatusOK, resp)
}
