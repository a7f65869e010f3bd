package model

const (
	TaskNeedsAction = "needsAction"
	TaskCompleted   = "completed"
)

// RemoteTask is a Google Tasks item as seen by the sync engine.
type RemoteTask struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Notes   string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Status  string `json:"status" yaml:"status"`
	Due     string `json:"due,omitempty" yaml:"due,omitempty"`
	Updated string `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// TaskPayload is the write shape for creating or replacing a remote task.
// An empty Due means the field is left out of the request.
type TaskPayload struct {
	Title  string
	Notes  string
	Status string
	Due    string
}

// TaskList represents a remote task list.
type TaskList struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}
