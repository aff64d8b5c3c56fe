package client

// Task status values reported by the validation server. The client never sets
// these itself.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// SubmitOptions is the fixed per-submission configuration. Built once from
// user input, sent as multipart form fields alongside the file, never mutated
// afterwards.
type SubmitOptions struct {
	// TimeoutSeconds is the per-address check timeout applied server-side.
	TimeoutSeconds int
	// CheckSMTP enables the SMTP mailbox probe stage.
	CheckSMTP bool
	// SeparateInvalid puts rejected addresses on their own output sheet.
	SeparateInvalid bool
	// MaxEmails caps the number of addresses processed; 0 means no cap.
	MaxEmails int
}

// StatusResponse is the payload of GET /api/status/{task_id}.
// Total 0 means the server does not know the amount of work yet; a nil
// ETASeconds means no estimate is available.
type StatusResponse struct {
	Status      string   `json:"status"`
	Progress    float64  `json:"progress"`
	Message     string   `json:"message"`
	CurrentFile string   `json:"current_file"`
	Processed   int      `json:"processed"`
	Total       int      `json:"total"`
	ETASeconds  *float64 `json:"eta_seconds"`
	Error       string   `json:"error"`
}

type uploadResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}
