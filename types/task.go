package types

import "time"

// TaskMode selects which analysis pipeline a task runs.
type TaskMode string

const (
	ModeFlood         TaskMode = "flood"
	ModeDeforestation TaskMode = "deforestation"
)

// TaskState is the lifecycle state of an analysis task.
// Legal transitions: Pending -> Running -> {Succeeded, Failed}. A task
// cancelled while still Pending is removed from the table instead.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether the state is immutable.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// AnalysisResult is the mode-specific payload of a succeeded task.
// Exactly one of Risk/Change is set, Story is always set.
type AnalysisResult struct {
	Risk     *RiskAssessment   `json:"riskAssessment,omitempty"`
	Forecast *ForecastFeatures `json:"forecast,omitempty"`
	Change   *ChangeVerdict    `json:"changeVerdict,omitempty"`
	Story    *Narrative        `json:"story"`
}

// AnalysisTask is one unit of background work. Created by the orchestrator
// on submission; mutated only by the orchestrator's store and the single
// worker that owns the task id.
type AnalysisTask struct {
	ID          string          `json:"taskId"`
	Mode        TaskMode        `json:"mode"`
	AOI         AreaOfInterest  `json:"aoi"`
	State       TaskState       `json:"state"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       ErrorKind       `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}
