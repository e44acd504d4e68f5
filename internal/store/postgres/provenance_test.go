package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"marketcap/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestUpsertProvenance_Created(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	entry := &store.ProvenanceEntry{
		ID:          uuid.New(),
		CompanyID:   uuid.New(),
		Source:      "seap",
		ContentHash: "b94d27b9934d3e08a52e52d7da7dabfa",
		Evidence:    json.RawMessage(`{"contract":"RFQ-123"}`),
		Confidence:  70,
	}

	mock.ExpectQuery(`INSERT INTO provenance_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := s.UpsertProvenance(context.Background(), nil, entry)
	if err != nil {
		t.Fatalf("UpsertProvenance failed: %v", err)
	}
	if !created {
		t.Error("expected created=true for a new entry")
	}
}

func TestUpsertProvenance_ConflictRefreshes(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	entry := &store.ProvenanceEntry{
		ID:          uuid.New(),
		CompanyID:   uuid.New(),
		Source:      "seap",
		ContentHash: "b94d27b9934d3e08a52e52d7da7dabfa",
		Evidence:    json.RawMessage(`{"contract":"RFQ-123"}`),
		Confidence:  70,
	}

	// Conflict path: first_seen_at stays behind last_seen_at.
	mock.ExpectQuery(`INSERT INTO provenance_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(false))

	created, err := s.UpsertProvenance(context.Background(), nil, entry)
	if err != nil {
		t.Fatalf("UpsertProvenance failed: %v", err)
	}
	if created {
		t.Error("expected created=false when the same content hash exists")
	}
}

func TestProvenanceForCompany(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	companyID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM provenance_entries`).
		WithArgs(companyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "source", "content_hash", "evidence",
			"confidence", "external_ref", "contract_value",
			"first_seen_at", "last_seen_at",
		}).
			AddRow(uuid.New(), companyID, "seap", "hash-1", []byte(`{}`), 70, nil, nil, now, now).
			AddRow(uuid.New(), companyID, "eufunds", "hash-2", []byte(`{}`), 60, "POCU/123", int64(250000), now, now))

	entries, err := s.ProvenanceForCompany(context.Background(), companyID)
	if err != nil {
		t.Fatalf("ProvenanceForCompany failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Source != "eufunds" || entries[1].ContractValue == nil {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestSourceSeesCompany(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	companyID := uuid.New()
	since := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(companyID, "seap", since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := s.SourceSeesCompany(context.Background(), companyID, "seap", since)
	if err != nil {
		t.Fatalf("SourceSeesCompany failed: %v", err)
	}
	if !seen {
		t.Error("expected source to see company")
	}
}
