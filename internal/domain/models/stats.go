package models

import "time"

// SchedulerState is the collection scheduler's run state.
type SchedulerState string

const (
	StateIdle    SchedulerState = "idle"
	StateRunning SchedulerState = "running"
)

// RunStatistics counts collection attempts. Ticks dropped because an attempt
// was still in flight are tracked separately and never count as runs.
type RunStatistics struct {
	TotalRuns      uint64     `json:"total_runs"`
	SuccessfulRuns uint64     `json:"successful_runs"`
	FailedRuns     uint64     `json:"failed_runs"`
	DroppedTicks   uint64     `json:"dropped_ticks"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	RecentErrors   []string   `json:"recent_errors"`
}

// SchedulerStatus is a read-only view of the scheduler for operators.
type SchedulerStatus struct {
	State    SchedulerState  `json:"state"`
	AutoMode bool            `json:"auto_mode"`
	Symbol   string          `json:"symbol"`
	Market   MarketKind      `json:"market"`
	Cadence  time.Duration   `json:"cadence_ns"`
	Session  *TradingSession `json:"session,omitempty"`
}

// AttemptResult describes one finished collection attempt.
type AttemptResult struct {
	Symbol  string        `json:"symbol"`
	Market  MarketKind    `json:"market"`
	At      time.Time     `json:"at"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Stats   RunStatistics `json:"stats"`
}
