package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"marketcap/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func companyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "slug", "tax_id", "name", "county_slug", "industry_slug",
		"revenue", "profit", "employees", "website", "founded_at",
		"is_skeleton", "score", "confidence", "risk_flags",
		"verified_at", "enriched_at", "scored_at", "merged_into",
		"created_at", "updated_at",
	})
}

func addCompanyRow(rows *sqlmock.Rows, id uuid.UUID, slug, taxID string, mergedInto *uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, slug, taxID, "Dedeman SRL", nil, nil,
		nil, nil, nil, nil, nil,
		true, nil, nil, pq.Array([]string{}),
		now, nil, nil, mergedInto,
		now, now,
	)
}

func TestCreateCompany_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	taxID := "14592450"
	company := &store.Company{
		ID:         uuid.New(),
		Slug:       "dedeman-14592450",
		TaxID:      &taxID,
		Name:       "Dedeman SRL",
		IsSkeleton: true,
	}

	mock.ExpectExec(`INSERT INTO companies`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateCompany(ctx, nil, company); err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateCompany_DuplicateTaxID(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	taxID := "14592450"
	company := &store.Company{ID: uuid.New(), Slug: "x-14592450", TaxID: &taxID}

	mock.ExpectExec(`INSERT INTO companies`).
		WillReturnError(&pq.Error{Code: "23505"})

	if err := s.CreateCompany(ctx, nil, company); err == nil {
		t.Error("expected unique violation to surface as an error")
	}
}

func TestGetCompanyByTaxID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT .* FROM companies WHERE tax_id`).
		WithArgs("14592450").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetCompanyByTaxID(context.Background(), "14592450")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetCompanyBySlug_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM companies WHERE slug`).
		WithArgs("dedeman-14592450").
		WillReturnRows(addCompanyRow(companyRows(), id, "dedeman-14592450", "14592450", nil))

	company, err := s.GetCompanyBySlug(context.Background(), "dedeman-14592450")
	if err != nil {
		t.Fatalf("GetCompanyBySlug failed: %v", err)
	}
	if company.ID != id {
		t.Errorf("got id %v, want %v", company.ID, id)
	}
	if !company.IsSkeleton {
		t.Error("expected skeleton company")
	}
}

func TestResolveCompany_FollowsChain(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	terminal := uuid.New()
	middle := uuid.New()
	first := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(first).
		WillReturnRows(addCompanyRow(companyRows(), first, "a-1", "10", &middle))
	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(middle).
		WillReturnRows(addCompanyRow(companyRows(), middle, "b-2", "20", &terminal))
	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(terminal).
		WillReturnRows(addCompanyRow(companyRows(), terminal, "c-3", "30", nil))

	company, err := s.ResolveCompany(context.Background(), first)
	if err != nil {
		t.Fatalf("ResolveCompany failed: %v", err)
	}
	if company.ID != terminal {
		t.Errorf("resolved to %v, want terminal %v", company.ID, terminal)
	}
}

func TestMergeCompanies_RejectsSelfMerge(t *testing.T) {
	s, _ := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	err := s.MergeCompanies(context.Background(), id, id)
	if !errors.Is(err, store.ErrMergeCycle) {
		t.Errorf("got %v, want ErrMergeCycle", err)
	}
}

func TestMergeCompanies_RejectsCycle(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	a := uuid.New()
	b := uuid.New()

	// a is unmerged; b already forwards to a, so merging a into b would
	// close a cycle.
	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(a).
		WillReturnRows(addCompanyRow(companyRows(), a, "a-1", "10", nil))
	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(b).
		WillReturnRows(addCompanyRow(companyRows(), b, "b-2", "20", &a))

	err := s.MergeCompanies(context.Background(), a, b)
	if !errors.Is(err, store.ErrMergeCycle) {
		t.Errorf("got %v, want ErrMergeCycle", err)
	}
}

func TestMergeCompanies_RejectsAlreadyMergedSource(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	a := uuid.New()
	b := uuid.New()
	elsewhere := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(a).
		WillReturnRows(addCompanyRow(companyRows(), a, "a-1", "10", &elsewhere))

	if err := s.MergeCompanies(context.Background(), a, b); err == nil {
		t.Error("expected error merging an already-merged company")
	}
}

func TestMergeCompanies_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	a := uuid.New()
	b := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(a).
		WillReturnRows(addCompanyRow(companyRows(), a, "a-1", "10", nil))
	mock.ExpectQuery(`SELECT .* FROM companies WHERE id`).
		WithArgs(b).
		WillReturnRows(addCompanyRow(companyRows(), b, "b-2", "20", nil))
	mock.ExpectExec(`UPDATE companies`).
		WithArgs(b, a).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MergeCompanies(context.Background(), a, b); err != nil {
		t.Fatalf("MergeCompanies failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateCompanyScore_AppendsHistory(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()

	mock.ExpectExec(`UPDATE companies`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO score_history`).
		WithArgs(id, 64).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpdateCompanyScore(context.Background(), nil, id, 64, 55, []string{"missing_website"})
	if err != nil {
		t.Fatalf("UpdateCompanyScore failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScoreHistory_NewestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT company_id, score, recorded_at FROM score_history`).
		WithArgs(id, 5).
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "score", "recorded_at"}).
			AddRow(id, 70, now).
			AddRow(id, 60, now.Add(-time.Hour)))

	snaps, err := s.ScoreHistory(context.Background(), id, 5)
	if err != nil {
		t.Fatalf("ScoreHistory failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}
	if snaps[0].Score != 70 {
		t.Errorf("first snapshot score = %d, want 70", snaps[0].Score)
	}
}

func TestCountSkeletonCompanies(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM companies WHERE is_skeleton = TRUE AND merged_into IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(17)))

	count, err := s.CountSkeletonCompanies(context.Background())
	if err != nil {
		t.Fatalf("CountSkeletonCompanies failed: %v", err)
	}
	if count != 17 {
		t.Errorf("count = %d, want 17", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
