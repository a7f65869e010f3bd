package model

type SkipReason string

const (
	SkipNoDueDate SkipReason = "no_due_date"
	SkipUpToDate  SkipReason = "up_to_date"
)

type Action string

const (
	ActionSkipped   Action = "skipped"
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionRecreated Action = "recreated"
	ActionFailed    Action = "failed"
)

// SyncResult is the outcome of one assignment in a reconciliation pass.
type SyncResult struct {
	AssignmentID    string      `json:"assignmentId,omitempty" yaml:"assignmentId,omitempty"`
	AssignmentTitle string      `json:"assignmentTitle" yaml:"assignmentTitle"`
	Success         bool        `json:"success" yaml:"success"`
	Action          Action      `json:"action" yaml:"action"`
	SkippedReason   SkipReason  `json:"skippedReason,omitempty" yaml:"skippedReason,omitempty"`
	RemoteTask      *RemoteTask `json:"remoteTask,omitempty" yaml:"remoteTask,omitempty"`
	ErrorMessage    string      `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
	Err             error       `json:"-" yaml:"-"`
}

func (r SyncResult) Skipped() bool {
	return r.SkippedReason != ""
}
