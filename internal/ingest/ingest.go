// Package ingest implements the verification and upsert stage: it takes one
// staged discovery, confirms it against the registry, materializes or reuses
// the canonical company, records provenance and triggers rescoring.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"marketcap/internal/budget"
	"marketcap/internal/scoring"
	"marketcap/internal/slug"
	"marketcap/internal/store"
	"marketcap/internal/verify"
)

// maxAttempts is the retry ceiling; the attempt that would exceed it tips
// an ERROR outcome into terminal REJECTED.
const maxAttempts = 5

// rescoreReserve holds back item budget for discovery: existing companies
// are only rescored while at least this much budget remains.
const rescoreReserve = 10

// ErrBudgetExhausted reports that the run ran out of budget before this
// item could be attempted.
var ErrBudgetExhausted = errors.New("run budget exhausted")

// Item is one unit of verification work: a staged discovery plus the
// source evidence that produced it.
type Item struct {
	DiscoveredID  uuid.UUID
	Evidence      json.RawMessage
	ExternalRef   string
	ContractValue *int64

	// Confidence is the discovering source's nominal trust level.
	Confidence int
}

// Outcome is the result of one VerifyAndUpsert call.
type Outcome struct {
	Status    store.DiscoveryStatus
	CompanyID *uuid.UUID

	// Created is true when a new skeleton company was materialized.
	Created bool

	// Err carries the failure for ERROR/REJECTED outcomes. Budget
	// exhaustion surfaces here as ErrBudgetExhausted.
	Err error
}

// Stage wires the verification pipeline to its collaborators.
type Stage struct {
	companies  store.CompanyStore
	discovery  store.DiscoveryStore
	provenance store.ProvenanceStore
	verifier   verify.Verifier
	logger     *slog.Logger
}

// NewStage creates the verification and upsert stage.
func NewStage(
	companies store.CompanyStore,
	discovery store.DiscoveryStore,
	provenance store.ProvenanceStore,
	verifier verify.Verifier,
	logger *slog.Logger,
) *Stage {
	return &Stage{
		companies:  companies,
		discovery:  discovery,
		provenance: provenance,
		verifier:   verifier,
		logger:     logger,
	}
}

// VerifyAndUpsert runs one staged discovery through verification, company
// upsert, provenance and scoring. Re-entering a terminal record returns the
// cached outcome, so retrying a batch after a crash is safe.
func (s *Stage) VerifyAndUpsert(ctx context.Context, item Item, b *budget.Budget) Outcome {
	if b.Exhausted() {
		return Outcome{Status: store.DiscoveryStatusError, Err: ErrBudgetExhausted}
	}
	b.Spend()

	rec, err := s.discovery.GetDiscoveredByID(ctx, item.DiscoveredID)
	if err != nil {
		return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("load staging record: %w", err)}
	}
	if rec.Status.Terminal() {
		return Outcome{Status: rec.Status, CompanyID: rec.CompanyID}
	}

	if err := s.discovery.TouchDiscovered(ctx, nil, rec.ID); err != nil {
		// Attempt bookkeeping is observability, not correctness.
		s.logger.Warn("touch staging record failed", "discovered_id", rec.ID, "error", err)
	}

	outcome := s.process(ctx, rec, item, b)
	if outcome.Err != nil && outcome.Status == store.DiscoveryStatusError {
		status := store.DiscoveryStatusError
		if rec.Attempts+1 >= maxAttempts {
			status = store.DiscoveryStatusRejected
		}
		msg := outcome.Err.Error()
		if err := s.discovery.SetDiscoveredStatus(ctx, nil, rec.ID, status, nil, &msg); err != nil {
			s.logger.Error("record staging failure", "discovered_id", rec.ID, "error", err)
		}
		outcome.Status = status
	}
	return outcome
}

func (s *Stage) process(ctx context.Context, rec *store.DiscoveredCompany, item Item, b *budget.Budget) Outcome {
	vr := s.verifier.Verify(ctx, rec.TaxID)
	if vr.Status != verify.StatusSuccess {
		return Outcome{
			Status: store.DiscoveryStatusError,
			Err:    fmt.Errorf("registry unavailable for %s", rec.TaxID),
		}
	}

	if !vr.IsActive {
		if err := s.discovery.SetDiscoveredStatus(ctx, nil, rec.ID, store.DiscoveryStatusInvalid, nil, nil); err != nil {
			return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("mark invalid: %w", err)}
		}
		return Outcome{Status: store.DiscoveryStatusInvalid}
	}

	company, created, err := s.lookupOrCreate(ctx, rec, item, vr)
	if err != nil {
		return Outcome{Status: store.DiscoveryStatusError, Err: err}
	}

	if company.MergedInto != nil {
		// The identifier resolved to a merged-away record; forward to the
		// survivor and park the staging row instead of resurrecting it.
		resolved, err := s.companies.ResolveCompany(ctx, company.ID)
		if err != nil {
			return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("resolve merged company: %w", err)}
		}
		if err := s.discovery.SetDiscoveredStatus(ctx, nil, rec.ID, store.DiscoveryStatusDuplicate, &resolved.ID, nil); err != nil {
			return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("mark duplicate: %w", err)}
		}
		return Outcome{Status: store.DiscoveryStatusDuplicate, CompanyID: &resolved.ID}
	}

	hash, err := contentHash(item.Evidence)
	if err != nil {
		return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("hash evidence: %w", err)}
	}

	// The id column carries no default; the stage mints it.
	entry := &store.ProvenanceEntry{
		ID:            uuid.New(),
		CompanyID:     company.ID,
		Source:        rec.Source,
		ContentHash:   hash,
		Evidence:      item.Evidence,
		Confidence:    item.Confidence,
		ContractValue: item.ContractValue,
	}
	if item.ExternalRef != "" {
		entry.ExternalRef = &item.ExternalRef
	}
	if _, err := s.provenance.UpsertProvenance(ctx, nil, entry); err != nil {
		return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("upsert provenance: %w", err)}
	}

	// New companies must be scored before the run ends; existing ones are
	// rescored opportunistically while budget allows.
	if created || b.RemainingItems() >= rescoreReserve {
		if err := s.rescore(ctx, company); err != nil {
			if created {
				return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("score company: %w", err)}
			}
			s.logger.Warn("opportunistic rescore failed", "company_id", company.ID, "error", err)
		}
	}

	if err := s.discovery.SetDiscoveredStatus(ctx, nil, rec.ID, store.DiscoveryStatusVerified, &company.ID, nil); err != nil {
		return Outcome{Status: store.DiscoveryStatusError, Err: fmt.Errorf("mark verified: %w", err)}
	}
	return Outcome{Status: store.DiscoveryStatusVerified, CompanyID: &company.ID, Created: created}
}

// lookupOrCreate finds the company owning the identifier or materializes a
// skeleton. Existing records are reused as-is: discovered data never
// overwrites richer or claimed data.
func (s *Stage) lookupOrCreate(ctx context.Context, rec *store.DiscoveredCompany, item Item, vr verify.Result) (*store.Company, bool, error) {
	company, err := s.companies.GetCompanyByTaxID(ctx, rec.TaxID)
	if err == nil {
		return company, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup company by tax id: %w", err)
	}

	name := rec.Name
	if vr.OfficialName != "" {
		name = vr.OfficialName
	}
	taxID := rec.TaxID
	now := vr.VerifiedAt
	conf := item.Confidence

	company = &store.Company{
		ID:         uuid.New(),
		Slug:       slug.ForCompany(name, taxID),
		TaxID:      &taxID,
		Name:       name,
		IsSkeleton: true,
		Confidence: &conf,
		VerifiedAt: &now,
	}
	if err := s.companies.CreateCompany(ctx, nil, company); err != nil {
		return nil, false, fmt.Errorf("create skeleton company: %w", err)
	}
	return company, true, nil
}

// rescore recomputes the company score from its current facts, provenance
// breadth and claim activity.
func (s *Stage) rescore(ctx context.Context, company *store.Company) error {
	entries, err := s.provenance.ProvenanceForCompany(ctx, company.ID)
	if err != nil {
		return fmt.Errorf("load provenance: %w", err)
	}
	claims, err := s.companies.ClaimsForCompany(ctx, company.ID)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	history, err := s.companies.ScoreHistory(ctx, company.ID, 50)
	if err != nil {
		return fmt.Errorf("load score history: %w", err)
	}

	now := time.Now().UTC()
	facts := scoring.Facts{
		Revenue:      company.Revenue,
		Profit:       company.Profit,
		Employees:    company.Employees,
		Website:      company.Website,
		FoundedAt:    company.FoundedAt,
		Verified:     company.VerifiedAt != nil,
		Now:          now,
		AbuseSignals: scoring.DetectAbuse(abuseInputs(company, claims, history, now)),
	}

	sources := map[string]bool{}
	var lastSeen *time.Time
	for i := range entries {
		sources[entries[i].Source] = true
		if lastSeen == nil || entries[i].LastSeenAt.After(*lastSeen) {
			t := entries[i].LastSeenAt
			lastSeen = &t
		}
	}
	facts.SourceCount = len(sources)
	facts.LastSeenAt = lastSeen

	for _, c := range claims {
		if c.Approved {
			facts.ClaimedBy++
		}
	}

	result := scoring.Score(facts)
	if err := s.companies.UpdateCompanyScore(ctx, nil, company.ID, result.Score, result.Confidence, result.RiskFlags); err != nil {
		return fmt.Errorf("persist score: %w", err)
	}
	return nil
}

func abuseInputs(company *store.Company, claims []store.Claim, history []store.ScoreSnapshot, now time.Time) scoring.AbuseInputs {
	in := scoring.AbuseInputs{
		EnrichedAt: company.EnrichedAt,
		Now:        now,
	}
	for _, c := range claims {
		in.Claims = append(in.Claims, scoring.ClaimEvent{UserRef: c.UserRef, CreatedAt: c.CreatedAt})
		in.Submissions = append(in.Submissions, c.CreatedAt)
	}
	// History arrives newest first; the detector wants chronological order.
	for i := len(history) - 1; i >= 0; i-- {
		in.ScoreHistory = append(in.ScoreHistory, scoring.ScorePoint{
			Score:      history[i].Score,
			RecordedAt: history[i].RecordedAt,
		})
	}
	return in
}

// contentHash derives the idempotency key for a provenance entry: SHA-256
// over the canonical (JCS) form of the evidence, so formatting differences
// in upstream JSON do not defeat deduplication.
func contentHash(evidence json.RawMessage) (string, error) {
	if len(evidence) == 0 {
		evidence = json.RawMessage("null")
	}
	canonical, err := jcs.Transform(evidence)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
