package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketcap/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// maxMergeHops bounds merge-chain resolution so a latent cycle fails safe
// instead of looping.
const maxMergeHops = 10

const companyColumns = `
	id, slug, tax_id, name, county_slug, industry_slug,
	revenue, profit, employees, website, founded_at,
	is_skeleton, score, confidence, risk_flags,
	verified_at, enriched_at, scored_at, merged_into,
	created_at, updated_at
`

// CreateCompany inserts a new company. Slug and tax_id uniqueness are
// enforced by the schema as the final backstop against duplicate creation.
func (s *Store) CreateCompany(ctx context.Context, tx store.DBTransaction, company *store.Company) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO companies (
			id, slug, tax_id, name, county_slug, industry_slug,
			revenue, profit, employees, website, founded_at,
			is_skeleton, score, confidence, risk_flags, verified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := executor.ExecContext(ctx, query,
		company.ID, company.Slug, company.TaxID, company.Name,
		company.CountySlug, company.IndustrySlug,
		company.Revenue, company.Profit, company.Employees,
		company.Website, company.FoundedAt,
		company.IsSkeleton, company.Score, company.Confidence,
		pq.Array(company.RiskFlags), company.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create company %s: %w", company.Slug, err)
	}
	return nil
}

// GetCompanyByID returns a company by its ID.
func (s *Store) GetCompanyByID(ctx context.Context, id uuid.UUID) (*store.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return s.scanCompany(s.db.QueryRowContext(ctx, query, id))
}

// GetCompanyByTaxID returns a company by its normalized identifier.
func (s *Store) GetCompanyByTaxID(ctx context.Context, taxID string) (*store.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE tax_id = $1`
	return s.scanCompany(s.db.QueryRowContext(ctx, query, taxID))
}

// GetCompanyBySlug returns a company by its canonical slug.
func (s *Store) GetCompanyBySlug(ctx context.Context, slug string) (*store.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE slug = $1`
	return s.scanCompany(s.db.QueryRowContext(ctx, query, slug))
}

// ResolveCompany follows the merge-forwarding chain to its terminal node.
func (s *Store) ResolveCompany(ctx context.Context, id uuid.UUID) (*store.Company, error) {
	current := id
	for hop := 0; hop < maxMergeHops; hop++ {
		company, err := s.GetCompanyByID(ctx, current)
		if err != nil {
			return nil, err
		}
		if company.MergedInto == nil {
			return company, nil
		}
		current = *company.MergedInto
	}
	return nil, fmt.Errorf("merge chain from %s exceeds %d hops", id, maxMergeHops)
}

// MergeCompanies points source at target after walking target's chain to
// guarantee the write cannot close a cycle.
func (s *Store) MergeCompanies(ctx context.Context, sourceID, targetID uuid.UUID) error {
	if sourceID == targetID {
		return store.ErrMergeCycle
	}

	source, err := s.GetCompanyByID(ctx, sourceID)
	if err != nil {
		return err
	}
	if source.MergedInto != nil {
		return fmt.Errorf("company %s is already merged", sourceID)
	}

	// Walk the target's forwarding chain; reaching source means a cycle.
	current := targetID
	for hop := 0; hop < maxMergeHops; hop++ {
		if current == sourceID {
			return store.ErrMergeCycle
		}
		target, err := s.GetCompanyByID(ctx, current)
		if err != nil {
			return err
		}
		if target.MergedInto == nil {
			break
		}
		current = *target.MergedInto
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE companies
		SET merged_into = $1, updated_at = NOW()
		WHERE id = $2
	`, targetID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to merge company %s into %s: %w", sourceID, targetID, err)
	}
	return nil
}

// UpdateCompanyScore persists the recomputed score, appends a history
// snapshot and promotes the company out of skeleton state.
func (s *Store) UpdateCompanyScore(ctx context.Context, tx store.DBTransaction, id uuid.UUID, score, confidence int, riskFlags []string) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		UPDATE companies
		SET score = $1, confidence = $2, risk_flags = $3,
		    is_skeleton = FALSE, scored_at = NOW(), updated_at = NOW()
		WHERE id = $4
	`, score, confidence, pq.Array(riskFlags), id)
	if err != nil {
		return fmt.Errorf("failed to update score for %s: %w", id, err)
	}

	_, err = executor.ExecContext(ctx, `
		INSERT INTO score_history (company_id, score) VALUES ($1, $2)
	`, id, score)
	if err != nil {
		return fmt.Errorf("failed to append score history for %s: %w", id, err)
	}
	return nil
}

// ScoreHistory returns the most recent snapshots, newest first.
func (s *Store) ScoreHistory(ctx context.Context, id uuid.UUID, limit int) ([]store.ScoreSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, score, recorded_at
		FROM score_history
		WHERE company_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query score history: %w", err)
	}
	defer rows.Close()

	var snapshots []store.ScoreSnapshot
	for rows.Next() {
		var snap store.ScoreSnapshot
		if err := rows.Scan(&snap.CompanyID, &snap.Score, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// ClaimsForCompany returns all claims on a company, newest first.
func (s *Store) ClaimsForCompany(ctx context.Context, id uuid.UUID) ([]store.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, user_ref, approved, created_at
		FROM claims
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var claims []store.Claim
	for rows.Next() {
		var c store.Claim
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.UserRef, &c.Approved, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (s *Store) scanCompany(row *sql.Row) (*store.Company, error) {
	var c store.Company
	err := row.Scan(
		&c.ID, &c.Slug, &c.TaxID, &c.Name, &c.CountySlug, &c.IndustrySlug,
		&c.Revenue, &c.Profit, &c.Employees, &c.Website, &c.FoundedAt,
		&c.IsSkeleton, &c.Score, &c.Confidence, pq.Array(&c.RiskFlags),
		&c.VerifiedAt, &c.EnrichedAt, &c.ScoredAt, &c.MergedInto,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}
	return &c, nil
}

// CountSkeletonCompanies reports how many companies still await enrichment.
// Feeds the skeleton gauge scraped from /metrics.
func (s *Store) CountSkeletonCompanies(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE is_skeleton = TRUE AND merged_into IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count skeleton companies: %w", err)
	}
	return count, nil
}
