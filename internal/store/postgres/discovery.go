package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketcap/internal/store"

	"github.com/google/uuid"
)

const discoveredColumns = `
	id, tax_id, source, name, status, attempts,
	last_tried_at, last_error, company_id, created_at
`

// UpsertDiscovered inserts a staging record for (taxID, source) or returns
// the existing one untouched. The DO UPDATE on a no-op column lets RETURNING
// yield the existing row without a second round trip; the status of an
// existing record is never overwritten here.
func (s *Store) UpsertDiscovered(ctx context.Context, tx store.DBTransaction, taxID, source, name string) (*store.DiscoveredCompany, error) {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO discovered_companies (id, tax_id, source, name, status)
		VALUES ($1, $2, $3, $4, 'NEW')
		ON CONFLICT (tax_id, source) DO UPDATE SET tax_id = EXCLUDED.tax_id
		RETURNING ` + discoveredColumns

	row := executor.QueryRowContext(ctx, query, uuid.New(), taxID, source, name)
	d, err := scanDiscovered(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert discovery %s/%s: %w", source, taxID, err)
	}
	return d, nil
}

// GetDiscoveredByID returns a staging record by its ID.
func (s *Store) GetDiscoveredByID(ctx context.Context, id uuid.UUID) (*store.DiscoveredCompany, error) {
	query := `SELECT ` + discoveredColumns + ` FROM discovered_companies WHERE id = $1`

	d, err := scanDiscovered(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discovery %s: %w", id, err)
	}
	return d, nil
}

// TouchDiscovered increments the attempt counter and stamps the try time.
func (s *Store) TouchDiscovered(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		UPDATE discovered_companies
		SET attempts = attempts + 1, last_tried_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to touch discovery %s: %w", id, err)
	}
	return nil
}

// SetDiscoveredStatus transitions the staging record.
func (s *Store) SetDiscoveredStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.DiscoveryStatus, companyID *uuid.UUID, lastError *string) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		UPDATE discovered_companies
		SET status = $1, company_id = COALESCE($2, company_id), last_error = $3
		WHERE id = $4
	`, string(status), companyID, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to set discovery %s status %s: %w", id, status, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiscovered(row rowScanner) (*store.DiscoveredCompany, error) {
	var d store.DiscoveredCompany
	var status string
	err := row.Scan(
		&d.ID, &d.TaxID, &d.Source, &d.Name, &status, &d.Attempts,
		&d.LastTriedAt, &d.LastError, &d.CompanyID, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = store.DiscoveryStatus(status)
	return &d, nil
}
