package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrMergeCycle is returned when a merge would create a forwarding cycle.
var ErrMergeCycle = errors.New("merge would create a cycle")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// CompanyStore handles the canonical company records.
type CompanyStore interface {
	// CreateCompany inserts a new company. The slug and tax_id uniqueness
	// constraints are the storage-level backstop against duplicate creation.
	CreateCompany(ctx context.Context, tx DBTransaction, company *Company) error

	// GetCompanyByID returns a company by its ID.
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error)

	// GetCompanyByTaxID returns a company by its normalized identifier.
	GetCompanyByTaxID(ctx context.Context, taxID string) (*Company, error)

	// GetCompanyBySlug returns a company by its canonical slug.
	GetCompanyBySlug(ctx context.Context, slug string) (*Company, error)

	// ResolveCompany follows the merge-forwarding chain from id to its
	// terminal node, bounded by a maximum hop count.
	ResolveCompany(ctx context.Context, id uuid.UUID) (*Company, error)

	// MergeCompanies points source at target. Rejects self-merges, merges
	// of already-merged sources, and anything that would create a cycle.
	MergeCompanies(ctx context.Context, sourceID, targetID uuid.UUID) error

	// UpdateCompanyScore persists score, confidence and risk flags, appends
	// a score history snapshot and promotes the company out of skeleton
	// state.
	UpdateCompanyScore(ctx context.Context, tx DBTransaction, id uuid.UUID, score, confidence int, riskFlags []string) error

	// ScoreHistory returns the most recent score snapshots, newest first.
	ScoreHistory(ctx context.Context, id uuid.UUID, limit int) ([]ScoreSnapshot, error)

	// ClaimsForCompany returns all claims on a company, newest first.
	ClaimsForCompany(ctx context.Context, id uuid.UUID) ([]Claim, error)
}

// DiscoveryStore handles staging records.
type DiscoveryStore interface {
	// UpsertDiscovered inserts a staging record for (taxID, source) or
	// returns the existing one. Never overwrites an existing status.
	UpsertDiscovered(ctx context.Context, tx DBTransaction, taxID, source, name string) (*DiscoveredCompany, error)

	// GetDiscoveredByID returns a staging record by its ID.
	GetDiscoveredByID(ctx context.Context, id uuid.UUID) (*DiscoveredCompany, error)

	// TouchDiscovered increments the attempt counter and stamps the try
	// time. Observability, not correctness.
	TouchDiscovered(ctx context.Context, tx DBTransaction, id uuid.UUID) error

	// SetDiscoveredStatus transitions the staging record, optionally
	// recording the verified company link or the last error.
	SetDiscoveredStatus(ctx context.Context, tx DBTransaction, id uuid.UUID, status DiscoveryStatus, companyID *uuid.UUID, lastError *string) error
}

// ProvenanceStore is the per-fact lineage ledger.
type ProvenanceStore interface {
	// UpsertProvenance enforces (company, source, content_hash) uniqueness
	// atomically: a conflict bumps last_seen_at only. Returns true when a
	// new entry was created.
	UpsertProvenance(ctx context.Context, tx DBTransaction, entry *ProvenanceEntry) (bool, error)

	// ProvenanceForCompany returns every source assertion about a company.
	ProvenanceForCompany(ctx context.Context, companyID uuid.UUID) ([]ProvenanceEntry, error)

	// SourceSeesCompany reports whether the source has asserted anything
	// about the company since the given time.
	SourceSeesCompany(ctx context.Context, companyID uuid.UUID, source string, since time.Time) (bool, error)
}

// RunStore persists the run audit trail.
type RunStore interface {
	// CreateRun inserts a STARTED run record.
	CreateRun(ctx context.Context, run *IngestRun) error

	// FinishRun records the terminal status, counters and cursor snapshot.
	FinishRun(ctx context.Context, id uuid.UUID, status RunStatus, stats, cursors json.RawMessage) error

	// GetRunByID returns a run record by its ID.
	GetRunByID(ctx context.Context, id uuid.UUID) (*IngestRun, error)

	// AddRunError appends one per-item error detail.
	AddRunError(ctx context.Context, runID uuid.UUID, source, itemRef, message string) error
}
