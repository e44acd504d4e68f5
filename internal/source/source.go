// Package source contains the adapters that discover candidate company
// records from external public-data sources. The orchestrator treats all
// sources uniformly through the Adapter interface: given a cursor and a
// limit, produce up to limit records and a new cursor.
package source

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one discovered candidate. A bad upstream row never becomes an
// error; it becomes a skip counter on the batch.
type Record struct {
	// RawTaxID is the identifier exactly as the source published it;
	// normalization happens downstream at the single choke point.
	RawTaxID string

	// Name is the best-effort company name from the source.
	Name string

	// Evidence is the source-specific payload, retained verbatim in the
	// provenance ledger.
	Evidence json.RawMessage

	// ExternalRef is the source's own reference for this row, if any.
	ExternalRef string

	// ContractValue carries monetary metadata where the source has it.
	ContractValue *int64

	DiscoveredAt time.Time
}

// Batch is the result of one Discover call.
type Batch struct {
	Records []Record

	// Skipped counts malformed rows quarantined during this call.
	Skipped int

	// NextCursor resumes discovery after the last record of this batch.
	NextCursor string

	// Exhausted reports that the source has no further records beyond
	// NextCursor right now.
	Exhausted bool
}

// Adapter wraps one external data source.
type Adapter interface {
	// Name identifies the source; it keys cursors, kill switches and
	// provenance entries.
	Name() string

	// NominalConfidence is the trust level seeded into provenance entries
	// and freshly created companies, 0-100.
	NominalConfidence() int

	// Discover returns up to limit records starting after cursor. An empty
	// cursor starts from the beginning. Supplying the cursor returned
	// after the Nth record resumes at N+1.
	Discover(ctx context.Context, cursor string, limit int) (*Batch, error)
}
