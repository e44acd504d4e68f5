package orchestrator

import (
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Alerter posts critical run failures to an external webhook. Delivery is
// fire and forget: a broken alert channel must never be able to disturb the
// run cleanup path.
type Alerter struct {
	client     *resty.Client
	webhookURL string
	logger     *slog.Logger
}

// NewAlerter creates an alerter; an empty webhook URL makes it a no-op.
func NewAlerter(webhookURL string, logger *slog.Logger) *Alerter {
	return &Alerter{
		client:     resty.New().SetTimeout(10 * time.Second),
		webhookURL: webhookURL,
		logger:     logger,
	}
}

type alertPayload struct {
	Severity string    `json:"severity"`
	Job      string    `json:"job"`
	RunID    string    `json:"run_id"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

// Critical notifies the webhook of a failed run in the background.
func (a *Alerter) Critical(job string, runID uuid.UUID, cause error) {
	if a == nil || a.webhookURL == "" {
		return
	}

	payload := alertPayload{
		Severity: "critical",
		Job:      job,
		RunID:    runID.String(),
		Error:    cause.Error(),
		At:       time.Now().UTC(),
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("alert delivery panicked", "panic", r)
			}
		}()

		resp, err := a.client.R().SetBody(payload).Post(a.webhookURL)
		if err != nil {
			a.logger.Error("alert delivery failed", "job", job, "error", err)
			return
		}
		if resp.IsError() {
			a.logger.Error("alert webhook rejected", "job", job, "status", resp.StatusCode())
		}
	}()
}
