package postgres

import (
	"context"
	"fmt"
	"time"

	"marketcap/internal/store"

	"github.com/google/uuid"
)

// UpsertProvenance enforces the (company, source, content_hash) invariant in
// a single atomic statement: the conditional insert either creates the entry
// or bumps last_seen_at on the existing one. This is what makes re-running
// the same batch a no-op beyond a timestamp bump.
func (s *Store) UpsertProvenance(ctx context.Context, tx store.DBTransaction, entry *store.ProvenanceEntry) (bool, error) {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO provenance_entries (
			id, company_id, source, content_hash, evidence,
			confidence, external_ref, contract_value
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, source, content_hash)
		DO UPDATE SET last_seen_at = NOW()
		RETURNING (first_seen_at = last_seen_at)
	`

	var created bool
	err := executor.QueryRowContext(ctx, query,
		entry.ID, entry.CompanyID, entry.Source, entry.ContentHash,
		[]byte(entry.Evidence), entry.Confidence, entry.ExternalRef, entry.ContractValue,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert provenance %s/%s: %w", entry.Source, entry.ContentHash, err)
	}
	return created, nil
}

// ProvenanceForCompany returns every source assertion about a company.
func (s *Store) ProvenanceForCompany(ctx context.Context, companyID uuid.UUID) ([]store.ProvenanceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, source, content_hash, evidence,
		       confidence, external_ref, contract_value,
		       first_seen_at, last_seen_at
		FROM provenance_entries
		WHERE company_id = $1
		ORDER BY first_seen_at ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query provenance for %s: %w", companyID, err)
	}
	defer rows.Close()

	var entries []store.ProvenanceEntry
	for rows.Next() {
		var e store.ProvenanceEntry
		var evidence []byte
		err := rows.Scan(
			&e.ID, &e.CompanyID, &e.Source, &e.ContentHash, &evidence,
			&e.Confidence, &e.ExternalRef, &e.ContractValue,
			&e.FirstSeenAt, &e.LastSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provenance entry: %w", err)
		}
		e.Evidence = evidence
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SourceSeesCompany reports whether the source has asserted anything about
// the company since the given time. Used by freshness/coverage reporting.
func (s *Store) SourceSeesCompany(ctx context.Context, companyID uuid.UUID, source string, since time.Time) (bool, error) {
	var seen bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM provenance_entries
			WHERE company_id = $1 AND source = $2 AND last_seen_at >= $3
		)
	`, companyID, source, since).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to check source coverage: %w", err)
	}
	return seen, nil
}
