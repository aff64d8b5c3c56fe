package client

// Fallback messages used when the server supplies no error text.
const (
	genericUploadError   = "upload failed"
	genericPollError     = "status request failed"
	genericDownloadError = "download failed"
)

// UploadError aborts a submission before any task exists.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return e.Message }

// PollError terminates the polling loop; transport and server-reported
// failures are not distinguished.
type PollError struct {
	Message string
}

func (e *PollError) Error() string { return e.Message }

// DownloadError leaves the task completed and the download retriable.
type DownloadError struct {
	Message string
}

func (e *DownloadError) Error() string { return e.Message }
