// Package verify calls the fiscal authority's registry API to confirm a
// normalized tax identifier belongs to an active registered entity.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// Status classifies the outcome of a verification attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
	StatusPending Status = "PENDING"
)

// Result is the outcome of verifying one identifier. Status ERROR means
// the registry could not be consulted, not that the entity is inactive.
type Result struct {
	IsActive        bool
	IsVATRegistered bool
	OfficialName    string
	VerifiedAt      time.Time
	Status          Status
}

// Verifier confirms identifiers against an authoritative registry.
// Implementations must not return transport errors; failures are reported
// through Result.Status so callers always receive a well-formed outcome.
type Verifier interface {
	Verify(ctx context.Context, taxID string) Result
}

// registryRequest is the batch-of-one lookup the registry API accepts.
type registryRequest struct {
	CUI  string `json:"cui"`
	Date string `json:"data"`
}

type registryResponse struct {
	Found []struct {
		GeneralData struct {
			CUI          int64  `json:"cui"`
			Name         string `json:"denumire"`
			Inactive     bool   `json:"statusInactivi"`
			Registration string `json:"dataInregistrare"`
		} `json:"date_generale"`
		VATRegistration struct {
			VATPayer bool `json:"scpTVA"`
		} `json:"inregistrare_scop_Tva"`
	} `json:"found"`
}

// Client verifies identifiers against the national registry over HTTP.
type Client struct {
	http    *resty.Client
	logger  *slog.Logger
	retries uint64
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    http,
		logger:  logger,
		retries: 2,
	}
}

// Verify looks up the identifier. Transient registry failures are retried
// with exponential backoff before being reported as ERROR.
func (c *Client) Verify(ctx context.Context, taxID string) (result Result) {
	result = Result{Status: StatusError, VerifiedAt: time.Now().UTC()}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("verification panicked", "tax_id", taxID, "panic", r)
			result = Result{Status: StatusError, VerifiedAt: time.Now().UTC()}
		}
	}()

	var body registryResponse
	op := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody([]registryRequest{{CUI: taxID, Date: time.Now().UTC().Format("2006-01-02")}}).
			SetResult(&body).
			Post("/v9/ws/tva")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("registry status %d", resp.StatusCode())
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		c.logger.Warn("verification unavailable", "tax_id", taxID, "error", err)
		return result
	}

	result.VerifiedAt = time.Now().UTC()
	if len(body.Found) == 0 {
		// Unknown to the registry: a definitive answer, not an error.
		result.Status = StatusSuccess
		result.IsActive = false
		return result
	}

	entity := body.Found[0]
	result.Status = StatusSuccess
	// The registry reports an inactive marker; active is its negation.
	result.IsActive = !entity.GeneralData.Inactive
	result.IsVATRegistered = entity.VATRegistration.VATPayer
	result.OfficialName = entity.GeneralData.Name
	return result
}
