// Package store contains the database layer for marketcap.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Company is the canonical entity derived from all sources.
type Company struct {
	ID           uuid.UUID
	Slug         string
	TaxID        *string // nil until verified
	Name         string
	CountySlug   *string
	IndustrySlug *string

	// Financial snapshot, all nullable until enrichment
	Revenue   *int64
	Profit    *int64
	Employees *int
	Website   *string
	FoundedAt *time.Time

	// IsSkeleton means the identifier is known but no further facts yet.
	IsSkeleton bool

	Score      *int
	Confidence *int
	RiskFlags  []string

	VerifiedAt *time.Time
	EnrichedAt *time.Time
	ScoredAt   *time.Time

	// MergedInto forwards to the surviving company after a merge. The chain
	// is strictly acyclic and terminal.
	MergedInto *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DiscoveryStatus represents the state of a staging record.
type DiscoveryStatus string

const (
	DiscoveryStatusNew       DiscoveryStatus = "NEW"
	DiscoveryStatusVerified  DiscoveryStatus = "VERIFIED"
	DiscoveryStatusInvalid   DiscoveryStatus = "INVALID"
	DiscoveryStatusError     DiscoveryStatus = "ERROR"
	DiscoveryStatusRejected  DiscoveryStatus = "REJECTED"
	DiscoveryStatusDuplicate DiscoveryStatus = "DUPLICATE"
)

// Terminal reports whether the status ends the staging lifecycle.
func (s DiscoveryStatus) Terminal() bool {
	switch s {
	case DiscoveryStatusVerified, DiscoveryStatusInvalid, DiscoveryStatusRejected:
		return true
	}
	return false
}

// DiscoveredCompany is a staging record produced by a source adapter.
// The pair (TaxID, Source) is unique.
type DiscoveredCompany struct {
	ID          uuid.UUID
	TaxID       string // normalized
	Source      string
	Name        string
	Status      DiscoveryStatus
	Attempts    int
	LastTriedAt *time.Time
	LastError   *string
	CompanyID   *uuid.UUID // set once VERIFIED
	CreatedAt   time.Time
}

// ProvenanceEntry records one (company, source, content-hash) sighting.
// Re-ingesting identical content bumps LastSeenAt only.
type ProvenanceEntry struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	Source        string
	ContentHash   string
	Evidence      json.RawMessage // opaque source payload, retained verbatim for audit
	Confidence    int             // contributed by this source
	ExternalRef   *string
	ContractValue *int64
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
}

// RunStatus represents the state of an orchestrator invocation.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "STARTED"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
)

// IngestRun is the advisory record of one orchestrator invocation. The
// distributed lock, not this record, is what enforces single-run exclusion.
type IngestRun struct {
	ID         uuid.UUID
	JobName    string
	Status     RunStatus
	DryRun     bool
	StartedAt  time.Time
	FinishedAt *time.Time
	// Stats holds the per-source counters blob for dashboards.
	Stats json.RawMessage
	// Cursors snapshots the per-source cursor state at finish.
	Cursors json.RawMessage
}

// RunError is one per-item error detail in the append-only audit trail.
type RunError struct {
	ID        int64
	RunID     uuid.UUID
	Source    string
	ItemRef   string
	Message   string
	CreatedAt time.Time
}

// ScoreSnapshot is one point of a company's score history, consumed by the
// oscillation detector.
type ScoreSnapshot struct {
	CompanyID  uuid.UUID
	Score      int
	RecordedAt time.Time
}

// Claim is a user's ownership claim on a company. Ingestion only reads
// claims, as input to the coordinated-claim abuse signal.
type Claim struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	UserRef   string
	Approved  bool
	CreatedAt time.Time
}
