// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// TriggerRunRequest is the request body for starting an ingestion run.
type TriggerRunRequest struct {
	JobName string `json:"job_name"`

	// Sources limits the run to the named sources; empty means all.
	Sources []string `json:"sources,omitempty"`

	MaxItems          int  `json:"max_items,omitempty"`
	MaxRuntimeSeconds int  `json:"max_runtime_seconds,omitempty"`
	DryRun            bool `json:"dry_run,omitempty"`
}

// SourceStatsResponse is the per-source counter block of a run report.
type SourceStatsResponse struct {
	Seen      int       `json:"seen"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Invalid   int       `json:"invalid"`
	Errors    int       `json:"errors"`
	Skipped   bool      `json:"skipped,omitempty"`
	LastRunAt time.Time `json:"last_run_at"`
}

// RunResponse is the synchronous run report.
type RunResponse struct {
	RunID      string                         `json:"run_id,omitempty"`
	JobName    string                         `json:"job_name"`
	Status     string                         `json:"status"`
	DryRun     bool                           `json:"dry_run,omitempty"`
	Sources    map[string]SourceStatsResponse `json:"sources"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
}

// RunRecordResponse is a stored run returned by status queries.
type RunRecordResponse struct {
	ID         string                         `json:"id"`
	JobName    string                         `json:"job_name"`
	Status     string                         `json:"status"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt *time.Time                     `json:"finished_at,omitempty"`
	Stats      map[string]SourceStatsResponse `json:"stats,omitempty"`
}

// ValuationResponse is a company's coarse valuation range.
type ValuationResponse struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// CompanyResponse represents a company in API responses.
type CompanyResponse struct {
	ID         string   `json:"id"`
	Slug       string   `json:"slug"`
	Name       string   `json:"name"`
	TaxID      string   `json:"tax_id,omitempty"`
	IsSkeleton bool     `json:"is_skeleton"`
	Score      *int     `json:"score,omitempty"`
	Confidence *int     `json:"confidence,omitempty"`
	RiskFlags  []string `json:"risk_flags,omitempty"`

	Revenue   *int64  `json:"revenue,omitempty"`
	Profit    *int64  `json:"profit,omitempty"`
	Employees *int    `json:"employees,omitempty"`
	Website   *string `json:"website,omitempty"`

	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	ScoredAt   *time.Time `json:"scored_at,omitempty"`

	Sources []ProvenanceResponse `json:"sources,omitempty"`
}

// ProvenanceResponse is one source assertion about a company.
type ProvenanceResponse struct {
	Source      string    `json:"source"`
	Confidence  int       `json:"confidence"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// SourcesResponse lists the registered sources.
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
}

// SourceInfo describes one registered source adapter.
type SourceInfo struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
	Enabled    bool   `json:"enabled"`
	Cursor     string `json:"cursor,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
