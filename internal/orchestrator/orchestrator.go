// Package orchestrator drives one ingestion run end to end: lock, kill-switch
// snapshot, per-source discovery, verification, cursor persistence and the
// final run verdict.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"marketcap/internal/budget"
	"marketcap/internal/ingest"
	"marketcap/internal/kv"
	"marketcap/internal/lock"
	"marketcap/internal/logger"
	"marketcap/internal/source"
	"marketcap/internal/store"
	"marketcap/internal/taxid"
)

const (
	lockKeyPrefix = "lock:ingest:"
	batchSize     = 100

	lockRetries    = 2
	lockRetryDelay = 2 * time.Second
)

// Status is the overall verdict of one orchestrator invocation.
type Status string

const (
	// StatusAlreadyRunning means the run lock was held; nothing was done.
	// This is a clean outcome, not a failure.
	StatusAlreadyRunning Status = "ALREADY_RUNNING"
	StatusCompleted      Status = "COMPLETED"
	StatusPartial        Status = "PARTIAL"
	StatusFailed         Status = "FAILED"
)

// Params describes one requested run.
type Params struct {
	JobName string

	// Sources selects a subset of registered sources; empty means all.
	Sources []string

	MaxItems   int
	MaxRuntime time.Duration

	// DryRun discovers and counts without any persistence side effect.
	DryRun bool
}

// Summary is the synchronous run report, the source of truth for callers.
type Summary struct {
	RunID      uuid.UUID                  `json:"run_id,omitempty"`
	JobName    string                     `json:"job_name"`
	Status     Status                     `json:"status"`
	DryRun     bool                       `json:"dry_run,omitempty"`
	Sources    map[string]*kv.SourceStats `json:"sources"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// totals sums the per-source counters.
func (s *Summary) totals() (seen, errors int) {
	for _, st := range s.Sources {
		seen += st.Seen
		errors += st.Errors
	}
	return seen, errors
}

// Orchestrator coordinates one run at a time per job name.
type Orchestrator struct {
	registry  *source.Registry
	stage     *ingest.Stage
	discovery store.DiscoveryStore
	runs      store.RunStore
	lock      *lock.Lock
	state     *kv.RunState
	alerter   *Alerter
	logger    *slog.Logger
	lockTTL   time.Duration

	itemsProcessed metric.Int64Counter
}

// New wires an orchestrator. alerter may be a no-op Alerter.
func New(
	registry *source.Registry,
	stage *ingest.Stage,
	discovery store.DiscoveryStore,
	runs store.RunStore,
	l *lock.Lock,
	state *kv.RunState,
	alerter *Alerter,
	lockTTL time.Duration,
	log *slog.Logger,
) *Orchestrator {
	meter := otel.Meter("marketcap-orchestrator")
	itemsProcessed, err := meter.Int64Counter("marketcap.ingest.items",
		metric.WithDescription("Items processed by the ingestion pipeline"))
	if err != nil {
		log.Warn("register items counter failed", "error", err)
	}

	return &Orchestrator{
		registry:       registry,
		stage:          stage,
		discovery:      discovery,
		runs:           runs,
		lock:           l,
		state:          state,
		alerter:        alerter,
		logger:         log,
		lockTTL:        lockTTL,
		itemsProcessed: itemsProcessed,
	}
}

// Run executes one orchestration invocation. It always returns a Summary;
// the error is non-nil only for the FAILED verdict.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*Summary, error) {
	runID := uuid.New()
	ctx = logger.WithRunID(ctx, runID.String())
	log := logger.FromContext(ctx, o.logger).With("job", params.JobName)

	tracer := otel.Tracer("marketcap-orchestrator")
	ctx, span := tracer.Start(ctx, "ingest_run",
		trace.WithAttributes(
			attribute.String("job.name", params.JobName),
			attribute.Bool("dry_run", params.DryRun),
		))
	defer span.End()

	summary := &Summary{
		RunID:     runID,
		JobName:   params.JobName,
		DryRun:    params.DryRun,
		Sources:   make(map[string]*kv.SourceStats),
		StartedAt: time.Now().UTC(),
	}

	lockKey := lockKeyPrefix + params.JobName
	token, err := o.lock.AcquireWithRetry(ctx, lockKey, o.lockTTL, lockRetries, lockRetryDelay)
	if err != nil {
		// The lock backend itself is unreachable: the one class of failure
		// that aborts a run before it starts.
		return o.fail(ctx, summary, fmt.Errorf("acquire run lock: %w", err))
	}
	if token == "" {
		log.Info("run lock held, skipping invocation")
		summary.Status = StatusAlreadyRunning
		summary.FinishedAt = time.Now().UTC()
		return summary, nil
	}

	defer func() {
		released, err := o.lock.Release(context.WithoutCancel(ctx), lockKey, token)
		if err != nil {
			log.Error("release run lock failed", "error", err)
		} else if !released {
			log.Warn("run lock expired before release")
		}
	}()

	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("unexpected panic: %v", r)
			}
		}()
		return o.execute(ctx, params, summary, log)
	}()
	summary.FinishedAt = time.Now().UTC()
	if err != nil {
		return o.fail(ctx, summary, err)
	}

	seen, errors := summary.totals()
	// Coarse health heuristic: a run drowning in errors is PARTIAL even
	// though it terminated normally.
	if seen > 0 && errors > seen/2 {
		summary.Status = StatusPartial
	} else {
		summary.Status = StatusCompleted
	}

	o.finishRun(ctx, params, summary, log)
	log.Info("run finished", "status", summary.Status, "seen", seen, "errors", errors)
	return summary, nil
}

func (o *Orchestrator) execute(ctx context.Context, params Params, summary *Summary, log *slog.Logger) error {
	adapters := o.registry.Select(params.Sources)
	names := append([]string{params.JobName}, o.registry.Names()...)
	switches, err := o.state.SnapshotSwitches(ctx, names)
	if err != nil {
		return fmt.Errorf("snapshot kill switches: %w", err)
	}

	if !switches.Enabled(params.JobName) {
		log.Info("job disabled by kill switch")
		for _, a := range adapters {
			summary.Sources[a.Name()] = &kv.SourceStats{Skipped: true, LastRunAt: time.Now().UTC()}
		}
		return nil
	}

	if !params.DryRun {
		if err := o.runs.CreateRun(ctx, &store.IngestRun{
			ID:        summary.RunID,
			JobName:   params.JobName,
			Status:    store.RunStatusStarted,
			DryRun:    false,
			StartedAt: summary.StartedAt,
		}); err != nil {
			return fmt.Errorf("create run record: %w", err)
		}
	}

	b := budget.New(params.MaxItems, params.MaxRuntime)

	for _, adapter := range adapters {
		name := adapter.Name()
		stats := &kv.SourceStats{LastRunAt: time.Now().UTC()}
		summary.Sources[name] = stats

		if !switches.Enabled(name) {
			log.Info("source disabled by kill switch", "source", name)
			stats.Skipped = true
			continue
		}
		if b.Exhausted() {
			stats.Skipped = true
			continue
		}

		o.runSource(ctx, params, summary.RunID, adapter, stats, b, log.With("source", name))

		if !params.DryRun {
			if err := o.state.SaveStats(ctx, params.JobName, name, *stats); err != nil {
				log.Warn("save source stats failed", "source", name, "error", err)
			}
		}
	}
	return nil
}

// runSource drains one adapter until the source or the budget is exhausted.
// Adapter and verification failures become counters, never propagated errors.
func (o *Orchestrator) runSource(ctx context.Context, params Params, runID uuid.UUID, adapter source.Adapter, stats *kv.SourceStats, b *budget.Budget, log *slog.Logger) {
	cursor, err := o.state.Cursor(ctx, params.JobName, adapter.Name())
	if err != nil {
		log.Error("read cursor failed", "error", err)
		stats.Errors++
		return
	}

	for !b.Exhausted() {
		limit := min(batchSize, b.RemainingItems())
		batch, err := adapter.Discover(ctx, cursor, limit)
		if err != nil {
			log.Error("discovery failed", "cursor", cursor, "error", err)
			stats.Errors++
			o.recordError(ctx, params, runID, adapter.Name(), cursor, err.Error())
			return
		}

		// Malformed upstream rows are quarantined, not fatal.
		stats.Seen += batch.Skipped
		stats.Errors += batch.Skipped

		processed := 0
		for _, record := range batch.Records {
			if b.Exhausted() {
				break
			}
			o.processRecord(ctx, params, runID, adapter, record, stats, b, log)
			processed++
		}

		if processed < len(batch.Records) {
			// The budget died mid-batch. The cursor stays at the batch
			// start so the unprocessed tail is re-read next run; the head
			// is safe to re-process through the staging upserts.
			return
		}

		cursor = batch.NextCursor
		if !params.DryRun {
			// Cursor persistence is incremental so a crash never restarts
			// a source from scratch.
			if err := o.state.SaveCursor(ctx, params.JobName, adapter.Name(), cursor); err != nil {
				log.Error("save cursor failed", "error", err)
			}
		}

		if batch.Exhausted || len(batch.Records) == 0 {
			return
		}
	}
}

func (o *Orchestrator) processRecord(ctx context.Context, params Params, runID uuid.UUID, adapter source.Adapter, record source.Record, stats *kv.SourceStats, b *budget.Budget, log *slog.Logger) {
	stats.Seen++
	if o.itemsProcessed != nil {
		o.itemsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("source", adapter.Name())))
	}

	id, ok := taxid.Normalize(record.RawTaxID)
	if !ok {
		stats.Invalid++
		return
	}

	if params.DryRun {
		b.Spend()
		return
	}

	rec, err := o.discovery.UpsertDiscovered(ctx, nil, id, adapter.Name(), record.Name)
	if err != nil {
		stats.Errors++
		log.Error("stage discovery failed", "tax_id", id, "error", err)
		o.recordError(ctx, params, runID, adapter.Name(), id, err.Error())
		return
	}

	outcome := o.stage.VerifyAndUpsert(ctx, ingest.Item{
		DiscoveredID:  rec.ID,
		Evidence:      record.Evidence,
		ExternalRef:   record.ExternalRef,
		ContractValue: record.ContractValue,
		Confidence:    adapter.NominalConfidence(),
	}, b)

	switch outcome.Status {
	case store.DiscoveryStatusVerified:
		if outcome.Created {
			stats.Created++
		} else {
			stats.Updated++
		}
	case store.DiscoveryStatusDuplicate:
		stats.Updated++
	case store.DiscoveryStatusInvalid:
		stats.Invalid++
	default:
		stats.Errors++
		if outcome.Err != nil {
			o.recordError(ctx, params, runID, adapter.Name(), id, outcome.Err.Error())
		}
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, params Params, summary *Summary, log *slog.Logger) {
	if params.DryRun {
		return
	}

	stats, err := json.Marshal(summary.Sources)
	if err != nil {
		stats = json.RawMessage("{}")
	}
	cursors := o.cursorSnapshot(ctx, params)

	if err := o.runs.FinishRun(ctx, summary.RunID, store.RunStatus(summary.Status), stats, cursors); err != nil {
		log.Error("finish run record failed", "error", err)
	}
}

func (o *Orchestrator) cursorSnapshot(ctx context.Context, params Params) json.RawMessage {
	snapshot := make(map[string]string)
	for _, name := range o.registry.Names() {
		cursor, err := o.state.Cursor(ctx, params.JobName, name)
		if err == nil && cursor != "" {
			snapshot[name] = cursor
		}
	}
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return json.RawMessage("{}")
	}
	return blob
}

// fail finalizes a FAILED run: best-effort audit record, fire-and-forget
// critical alert, error returned to the caller.
func (o *Orchestrator) fail(ctx context.Context, summary *Summary, err error) (*Summary, error) {
	summary.Status = StatusFailed
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now().UTC()
	}
	o.logger.Error("run failed", "job", summary.JobName, "run_id", summary.RunID, "error", err)

	if !summary.DryRun {
		stats, mErr := json.Marshal(summary.Sources)
		if mErr != nil {
			stats = json.RawMessage("{}")
		}
		if fErr := o.runs.FinishRun(context.WithoutCancel(ctx), summary.RunID, store.RunStatusFailed, stats, json.RawMessage("{}")); fErr != nil {
			o.logger.Error("record failed run", "run_id", summary.RunID, "error", fErr)
		}
	}

	o.alerter.Critical(summary.JobName, summary.RunID, err)
	return summary, err
}

func (o *Orchestrator) recordError(ctx context.Context, params Params, runID uuid.UUID, sourceName, itemRef, message string) {
	if params.DryRun {
		return
	}
	if err := o.runs.AddRunError(ctx, runID, sourceName, itemRef, message); err != nil {
		o.logger.Warn("record run error failed", "source", sourceName, "error", err)
	}
}
