package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketcap/internal/kv"
	"marketcap/internal/orchestrator"
	"marketcap/internal/source"
	"marketcap/internal/store"
)

// Mock Store
type mockStore struct {
	pingErr error

	// Company hooks
	getBySlugResp *store.Company
	getBySlugErr  error
	resolveResp   *store.Company
	resolveErr    error

	// Provenance hooks
	provenanceResp []store.ProvenanceEntry
	provenanceErr  error

	// Run hooks
	getRunResp *store.IngestRun
	getRunErr  error
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) CreateCompany(ctx context.Context, tx store.DBTransaction, c *store.Company) error {
	return nil
}

func (m *mockStore) GetCompanyByID(ctx context.Context, id uuid.UUID) (*store.Company, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetCompanyByTaxID(ctx context.Context, taxID string) (*store.Company, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetCompanyBySlug(ctx context.Context, slug string) (*store.Company, error) {
	return m.getBySlugResp, m.getBySlugErr
}

func (m *mockStore) ResolveCompany(ctx context.Context, id uuid.UUID) (*store.Company, error) {
	return m.resolveResp, m.resolveErr
}

func (m *mockStore) MergeCompanies(ctx context.Context, sourceID, targetID uuid.UUID) error {
	return nil
}

func (m *mockStore) UpdateCompanyScore(ctx context.Context, tx store.DBTransaction, id uuid.UUID, score, confidence int, riskFlags []string) error {
	return nil
}

func (m *mockStore) ScoreHistory(ctx context.Context, id uuid.UUID, limit int) ([]store.ScoreSnapshot, error) {
	return nil, nil
}

func (m *mockStore) ClaimsForCompany(ctx context.Context, id uuid.UUID) ([]store.Claim, error) {
	return nil, nil
}

func (m *mockStore) UpsertProvenance(ctx context.Context, tx store.DBTransaction, e *store.ProvenanceEntry) (bool, error) {
	return false, nil
}

func (m *mockStore) ProvenanceForCompany(ctx context.Context, companyID uuid.UUID) ([]store.ProvenanceEntry, error) {
	return m.provenanceResp, m.provenanceErr
}

func (m *mockStore) SourceSeesCompany(ctx context.Context, companyID uuid.UUID, src string, since time.Time) (bool, error) {
	return false, nil
}

func (m *mockStore) CreateRun(ctx context.Context, run *store.IngestRun) error { return nil }

func (m *mockStore) FinishRun(ctx context.Context, id uuid.UUID, status store.RunStatus, stats, cursors json.RawMessage) error {
	return nil
}

func (m *mockStore) GetRunByID(ctx context.Context, id uuid.UUID) (*store.IngestRun, error) {
	return m.getRunResp, m.getRunErr
}

func (m *mockStore) AddRunError(ctx context.Context, runID uuid.UUID, src, itemRef, message string) error {
	return nil
}

// Mock Runner
type mockRunner struct {
	summary        *orchestrator.Summary
	err            error
	capturedParams orchestrator.Params
}

func (m *mockRunner) Run(ctx context.Context, params orchestrator.Params) (*orchestrator.Summary, error) {
	m.capturedParams = params
	return m.summary, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// stubSource is a registry entry for handler tests; it never discovers.
type stubSource struct {
	name       string
	confidence int
}

func (s *stubSource) Name() string           { return s.name }
func (s *stubSource) NominalConfidence() int { return s.confidence }
func (s *stubSource) Discover(ctx context.Context, cursor string, limit int) (*source.Batch, error) {
	return &source.Batch{Exhausted: true}, nil
}

func newTestHandlers(ms *mockStore, runner *mockRunner, kvStore *kv.MemoryStore) *Handlers {
	if kvStore == nil {
		kvStore = kv.NewMemoryStore()
	}
	registry := source.NewRegistry(
		&stubSource{name: "seap", confidence: 70},
		&stubSource{name: "provider", confidence: 50},
	)
	return New(ms, runner, &mockPinger{}, registry, kv.NewRunState(kvStore), 500, 10*time.Minute)
}
