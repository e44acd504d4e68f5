package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// ProviderAdapter discovers companies from a commercial data provider's
// bulk export endpoint, which streams newline-delimited JSON. The cursor is
// a decimal record offset understood by the endpoint.
type ProviderAdapter struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

type providerRecord struct {
	CUI      string `json:"cui"`
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Revenue  *int64 `json:"revenue,omitempty"`
	EmployNo *int   `json:"employees,omitempty"`
}

// NewProviderAdapter creates the adapter. The provider meters by request,
// so the limiter guards the paid quota.
func NewProviderAdapter(baseURL, apiKey string, rps float64, logger *slog.Logger) *ProviderAdapter {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+apiKey)

	return &ProviderAdapter{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (a *ProviderAdapter) Name() string { return "provider" }

func (a *ProviderAdapter) NominalConfidence() int { return 50 }

func (a *ProviderAdapter) Discover(ctx context.Context, cursor string, limit int) (*Batch, error) {
	offset := 0
	if cursor != "" {
		o, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid provider cursor %q: %w", cursor, err)
		}
		offset = o
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.Itoa(offset)).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get("/export")
	if err != nil {
		return nil, fmt.Errorf("provider fetch offset %d: %w", offset, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider fetch offset %d: status %d", offset, resp.StatusCode())
	}

	batch := &Batch{}
	now := time.Now().UTC()
	lines := 0

	scanner := bufio.NewScanner(bytes.NewReader(resp.Body()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++

		var rec providerRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.CUI == "" {
			batch.Skipped++
			a.logger.Warn("skipping malformed provider line", "offset", offset+lines-1, "error", err)
			continue
		}

		evidence := make(json.RawMessage, len(line))
		copy(evidence, line)
		batch.Records = append(batch.Records, Record{
			RawTaxID:     rec.CUI,
			Name:         rec.Name,
			Evidence:     evidence,
			DiscoveredAt: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("provider stream at offset %d: %w", offset, err)
	}

	batch.NextCursor = strconv.Itoa(offset + lines)
	batch.Exhausted = lines < limit
	return batch, nil
}
