package scoring

import "time"

// Abuse-signal thresholds.
const (
	spikeWindow    = 24 * time.Hour
	spikeThreshold = 5 // submissions within the window

	coordinationWindow   = 7 * 24 * time.Hour
	coordinationUsersMin = 3 // distinct users claiming one company

	staleAttemptsMin = 3 // enrichment attempts without an enrichment

	oscillationReversals = 3
	oscillationSwing     = 5 // minimum score delta per swing
	oscillationWindow    = 30 * 24 * time.Hour
)

// ClaimEvent is one user claim on a company.
type ClaimEvent struct {
	UserRef   string
	CreatedAt time.Time
}

// ScorePoint is one score observation, oldest first.
type ScorePoint struct {
	Score      int
	RecordedAt time.Time
}

// AbuseInputs gathers everything the detector inspects. All inputs are
// plain data so detection stays deterministic and testable.
type AbuseInputs struct {
	Submissions        []time.Time // discovery/claim submissions touching the company
	Claims             []ClaimEvent
	EnrichmentAttempts int
	EnrichedAt         *time.Time
	ScoreHistory       []ScorePoint // oldest first
	Now                time.Time
}

// DetectAbuse returns the abuse-signal flags for a company. Flags are
// appended to the risk set, never scored probabilistically.
func DetectAbuse(in AbuseInputs) []string {
	var flags []string

	if submissionSpike(in) {
		flags = append(flags, "submission_spike")
	}
	if coordinatedClaims(in) {
		flags = append(flags, "coordinated_claims")
	}
	if staleEnrichment(in) {
		flags = append(flags, "stale_enrichment")
	}
	if scoreOscillation(in) {
		flags = append(flags, "score_oscillation")
	}
	return flags
}

func submissionSpike(in AbuseInputs) bool {
	cutoff := in.Now.Add(-spikeWindow)
	count := 0
	for _, t := range in.Submissions {
		if t.After(cutoff) {
			count++
		}
	}
	return count >= spikeThreshold
}

func coordinatedClaims(in AbuseInputs) bool {
	cutoff := in.Now.Add(-coordinationWindow)
	users := make(map[string]struct{})
	for _, c := range in.Claims {
		if c.CreatedAt.After(cutoff) {
			users[c.UserRef] = struct{}{}
		}
	}
	return len(users) >= coordinationUsersMin
}

func staleEnrichment(in AbuseInputs) bool {
	return in.EnrichmentAttempts >= staleAttemptsMin && in.EnrichedAt == nil
}

// scoreOscillation fires when the score reverses direction at least
// oscillationReversals times inside the lookback window, with every
// counted swing of magnitude >= oscillationSwing.
func scoreOscillation(in AbuseInputs) bool {
	cutoff := in.Now.Add(-oscillationWindow)

	var points []ScorePoint
	for _, p := range in.ScoreHistory {
		if p.RecordedAt.After(cutoff) {
			points = append(points, p)
		}
	}
	if len(points) < 3 {
		return false
	}

	reversals := 0
	prevDir := 0
	for i := 1; i < len(points); i++ {
		delta := points[i].Score - points[i-1].Score
		if delta >= oscillationSwing {
			if prevDir == -1 {
				reversals++
			}
			prevDir = 1
		} else if delta <= -oscillationSwing {
			if prevDir == 1 {
				reversals++
			}
			prevDir = -1
		}
	}
	return reversals >= oscillationReversals
}
