package l3agi

import "context"

// Run log kinds.
const (
	RunLogToolStart   = "tool_start"
	RunLogToolEnd     = "tool_end"
	RunLogToolError   = "tool_error"
	RunLogAgentAction = "agent_action"
	RunLogAgentFinish = "agent_finish"
)

// RunLog records one step of an agent run for later inspection.
type RunLog struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	Input     string `json:"input,omitempty"`
	Output    string `json:"output,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RunLogStore persists run logs.
type RunLogStore interface {
	StoreRunLog(ctx context.Context, log RunLog) error
	// ListRunLogs returns a session's run logs, oldest first.
	ListRunLogs(ctx context.Context, sessionID string, limit int) ([]RunLog, error)
}
