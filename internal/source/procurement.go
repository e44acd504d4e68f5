package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ProcurementAdapter discovers contract-awarded companies from the public
// procurement registry's paginated JSON API. The cursor is a decimal record
// offset, so a saved cursor addresses the same rows whatever page size the
// next run asks for.
type ProcurementAdapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// procurementAward is one row of the registry response.
type procurementAward struct {
	SupplierCUI  string `json:"supplierCui"`
	SupplierName string `json:"supplierName"`
	ContractRef  string `json:"contractRef"`
	ValueRON     *int64 `json:"valueRon"`
	AwardedAt    string `json:"awardedAt"`
}

type procurementPage struct {
	Awards  []json.RawMessage `json:"awards"`
	HasMore bool              `json:"hasMore"`
}

// NewProcurementAdapter creates the adapter. rps bounds the request rate
// against the shared public API quota.
func NewProcurementAdapter(baseURL string, rps float64, logger *slog.Logger) *ProcurementAdapter {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(20 * time.Second).
		SetHeader("Accept", "application/json")

	return &ProcurementAdapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (a *ProcurementAdapter) Name() string { return "seap" }

func (a *ProcurementAdapter) NominalConfidence() int { return 70 }

func (a *ProcurementAdapter) Discover(ctx context.Context, cursor string, limit int) (*Batch, error) {
	offset := 0
	if cursor != "" {
		o, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid procurement cursor %q: %w", cursor, err)
		}
		offset = o
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body procurementPage
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.Itoa(offset)).
		SetQueryParam("pageSize", strconv.Itoa(limit)).
		SetResult(&body).
		Get("/awards")
	if err != nil {
		return nil, fmt.Errorf("procurement fetch offset %d: %w", offset, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("procurement fetch offset %d: status %d", offset, resp.StatusCode())
	}

	batch := &Batch{
		NextCursor: strconv.Itoa(offset + len(body.Awards)),
		Exhausted:  !body.HasMore,
	}

	now := time.Now().UTC()
	for _, raw := range body.Awards {
		var award procurementAward
		if err := json.Unmarshal(raw, &award); err != nil || award.SupplierCUI == "" {
			// One corrupt upstream row must not abort the run.
			batch.Skipped++
			a.logger.Warn("skipping malformed procurement row", "offset", offset, "error", err)
			continue
		}
		batch.Records = append(batch.Records, Record{
			RawTaxID:      award.SupplierCUI,
			Name:          award.SupplierName,
			Evidence:      raw,
			ExternalRef:   award.ContractRef,
			ContractValue: award.ValueRON,
			DiscoveredAt:  now,
		})
	}

	return batch, nil
}
