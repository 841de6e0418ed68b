package domain

// CycleResult classifies how a poll cycle ended.
type CycleResult string

const (
	CycleIdle        CycleResult = "idle"         // no actionable mention
	CycleProcessed   CycleResult = "processed"    // pipeline ran for at least one mention
	CycleRateLimited CycleResult = "rate_limited" // mentions fetch throttled
	CycleFetchFailed CycleResult = "fetch_failed" // transient or upstream fetch error
	CycleFailed      CycleResult = "failed"       // pipeline error or panic
)

// String returns the string representation of CycleResult.
func (r CycleResult) String() string {
	return string(r)
}

// CycleOutcome is one row of the cycle history.
// Corresponds to the cycle_outcomes table in ClickHouse.
type CycleOutcome struct {
	BotID      string      `json:"bot_id"`
	StartedAt  int64       `json:"started_at"` // unix ms
	DurationMs int64       `json:"duration_ms"`
	Result     CycleResult `json:"result"`
	Mentions   int         `json:"mentions"`             // mentions returned by the fetch
	MentionID  string      `json:"mention_id,omitempty"` // mention acted on, empty if none
	SourceURL  string      `json:"source_url,omitempty"`
	Status     string      `json:"status,omitempty"` // pipeline status of the last processed mention
	SleepMs    int64       `json:"sleep_ms"`         // sleep scheduled after the cycle
	Error      string      `json:"error,omitempty"`
}
