package handlers

import (
	"errors"
	"net/http"

	"marketcap/internal/store"
	"marketcap/pkg/api"
)

// GetCompany handles GET /companies/{slug}.
// Merged companies forward to their survivor transparently.
func (h *Handlers) GetCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slug := r.PathValue("slug")
	if slug == "" {
		h.httpError(w, "Missing company slug", http.StatusBadRequest)
		return
	}

	company, err := h.store.GetCompanyBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		h.httpError(w, "Company not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.httpError(w, "Internal database error", http.StatusInternalServerError)
		return
	}

	if company.MergedInto != nil {
		company, err = h.store.ResolveCompany(ctx, company.ID)
		if err != nil {
			h.httpError(w, "Internal database error", http.StatusInternalServerError)
			return
		}
	}

	resp := api.CompanyResponse{
		ID:         company.ID.String(),
		Slug:       company.Slug,
		Name:       company.Name,
		IsSkeleton: company.IsSkeleton,
		Score:      company.Score,
		Confidence: company.Confidence,
		RiskFlags:  company.RiskFlags,
		Revenue:    company.Revenue,
		Profit:     company.Profit,
		Employees:  company.Employees,
		Website:    company.Website,
		VerifiedAt: company.VerifiedAt,
		ScoredAt:   company.ScoredAt,
	}
	if company.TaxID != nil {
		resp.TaxID = *company.TaxID
	}

	entries, err := h.store.ProvenanceForCompany(ctx, company.ID)
	if err == nil {
		for _, e := range entries {
			resp.Sources = append(resp.Sources, api.ProvenanceResponse{
				Source:      e.Source,
				Confidence:  e.Confidence,
				FirstSeenAt: e.FirstSeenAt,
				LastSeenAt:  e.LastSeenAt,
			})
		}
	}

	h.respondJson(w, http.StatusOK, resp)
}
