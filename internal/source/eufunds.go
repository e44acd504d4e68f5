package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
)

// EUFundsAdapter discovers beneficiaries from the published EU-funds
// spreadsheet. The list is one XLSX document refreshed periodically; the
// adapter caches a download for euFundsRefreshTTL and pages through it with
// a row-offset cursor. A failed download is never cached, so a transient
// publisher hiccup only costs the current run.
type EUFundsAdapter struct {
	client  *resty.Client
	fileURL string
	logger  *slog.Logger

	mu       sync.Mutex
	rows     [][]string
	loadedAt time.Time
}

// euFundsRefreshTTL bounds how long a downloaded beneficiary list is served
// before the published spreadsheet is fetched again.
const euFundsRefreshTTL = time.Hour

// Expected column layout of the beneficiary sheet.
const (
	colBeneficiary = 0
	colCUI         = 1
	colProgramme   = 2
	colValue       = 3
	minColumns     = 3
)

type euFundsEvidence struct {
	Beneficiary string `json:"beneficiary"`
	CUI         string `json:"cui"`
	Programme   string `json:"programme"`
	ValueRON    *int64 `json:"valueRon,omitempty"`
}

// NewEUFundsAdapter creates the adapter for the given spreadsheet URL.
func NewEUFundsAdapter(fileURL string, logger *slog.Logger) *EUFundsAdapter {
	client := resty.New().
		SetTimeout(60 * time.Second) // the full beneficiary list is large

	return &EUFundsAdapter{
		client:  client,
		fileURL: fileURL,
		logger:  logger,
	}
}

func (a *EUFundsAdapter) Name() string { return "eufunds" }

func (a *EUFundsAdapter) NominalConfidence() int { return 60 }

func (a *EUFundsAdapter) Discover(ctx context.Context, cursor string, limit int) (*Batch, error) {
	offset := 0
	if cursor != "" {
		o, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid eufunds cursor %q: %w", cursor, err)
		}
		offset = o
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return nil, err
	}

	batch := &Batch{}
	now := time.Now().UTC()
	row := offset
	for ; row < len(a.rows) && len(batch.Records) < limit; row++ {
		record, ok := a.parseRow(a.rows[row], now)
		if !ok {
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, record)
	}

	batch.NextCursor = strconv.Itoa(row)
	batch.Exhausted = row >= len(a.rows)
	return batch, nil
}

// load ensures a fresh enough row set under a.mu. A stale cached list keeps
// serving when a refresh fails; only a run with no list at all fails.
func (a *EUFundsAdapter) load(ctx context.Context) error {
	if !a.loadedAt.IsZero() && time.Since(a.loadedAt) < euFundsRefreshTTL {
		return nil
	}

	rows, err := a.fetch(ctx)
	if err != nil {
		if !a.loadedAt.IsZero() {
			a.logger.Warn("eufunds refresh failed, serving cached list", "error", err)
			return nil
		}
		return err
	}

	a.rows = rows
	a.loadedAt = time.Now()
	a.logger.Info("loaded eufunds beneficiary list", "rows", len(rows))
	return nil
}

// fetch downloads and parses the spreadsheet. The header row is dropped.
func (a *EUFundsAdapter) fetch(ctx context.Context) ([][]string, error) {
	resp, err := a.client.R().SetContext(ctx).Get(a.fileURL)
	if err != nil {
		return nil, fmt.Errorf("eufunds download: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("eufunds download: status %d", resp.StatusCode())
	}

	f, err := excelize.OpenReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("eufunds parse: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("eufunds read sheet %s: %w", sheet, err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

func (a *EUFundsAdapter) parseRow(cells []string, now time.Time) (Record, bool) {
	if len(cells) < minColumns || cells[colCUI] == "" {
		return Record{}, false
	}

	ev := euFundsEvidence{
		Beneficiary: cells[colBeneficiary],
		CUI:         cells[colCUI],
		Programme:   cells[colProgramme],
	}
	if len(cells) > colValue {
		if v, err := strconv.ParseInt(cells[colValue], 10, 64); err == nil {
			ev.ValueRON = &v
		}
	}

	evidence, err := json.Marshal(ev)
	if err != nil {
		return Record{}, false
	}

	return Record{
		RawTaxID:      ev.CUI,
		Name:          ev.Beneficiary,
		Evidence:      evidence,
		ExternalRef:   ev.Programme,
		ContractValue: ev.ValueRON,
		DiscoveredAt:  now,
	}, true
}
