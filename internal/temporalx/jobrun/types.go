package jobrun

const (
	WorkflowName = "job_run"
	ActivityTick = "job_run_tick"
)

// maxAttempts matches the DB worker's retry ceiling.
const maxAttempts = 5

type TickResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}
