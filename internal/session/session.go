package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mailvalid/internal/client"
	"mailvalid/internal/file"
	"mailvalid/internal/filegate"
	"mailvalid/internal/notify"
	"mailvalid/internal/progress"
)

// DefaultPollInterval matches the upstream frontend's status cadence.
const DefaultPollInterval = 2 * time.Second

// Level classifies a user-visible status message. Success messages are meant
// to be short-lived; info and error messages stay until replaced.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// API is what the session needs from the validation server client.
type API interface {
	Upload(ctx context.Context, filePath string, opts client.SubmitOptions) (string, error)
	Status(ctx context.Context, taskID string) (client.StatusResponse, error)
	Download(ctx context.Context, taskID string) (data []byte, filename string, err error)
}

// Options configures a Session.
type Options struct {
	API          API
	Gate         *filegate.Gate
	Notifier     notify.Notifier
	Submit       client.SubmitOptions
	PollInterval time.Duration
	DownloadDir  string
	OnProgress   func(progress.Display)
	OnMessage    func(Level, string)
}

// Session owns the lifecycle of at most one active validation task: the
// submission guard, the polling schedule and the retained task id of a
// completed run. A fresh process has no memory of prior tasks.
type Session struct {
	api         API
	gate        *filegate.Gate
	notifier    notify.Notifier
	submitOpts  client.SubmitOptions
	interval    time.Duration
	downloadDir string
	onProgress  func(progress.Display)
	onMessage   func(Level, string)

	mu            sync.Mutex
	isProcessing  bool
	currentTaskID string
	downloadReady bool
	pollCancel    context.CancelFunc
	done          chan struct{}
}

// New builds a session. A nil notifier degrades to notify.Noop; nil callbacks
// are allowed, the session stays fully functional headless.
func New(opts Options) *Session {
	s := &Session{
		api:         opts.API,
		gate:        opts.Gate,
		notifier:    opts.Notifier,
		submitOpts:  opts.Submit,
		interval:    opts.PollInterval,
		downloadDir: opts.DownloadDir,
		onProgress:  opts.OnProgress,
		onMessage:   opts.OnMessage,
	}
	if s.gate == nil {
		s.gate = filegate.New(nil)
	}
	if s.notifier == nil {
		s.notifier = notify.Noop{}
	}
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	if s.onProgress == nil {
		s.onProgress = func(progress.Display) {}
	}
	if s.onMessage == nil {
		s.onMessage = func(Level, string) {}
	}
	return s
}

// AcceptFile runs the candidate through the file gate and fires the
// fileAccepted event on success.
func (s *Session) AcceptFile(path string) error {
	if err := s.gate.Accept(path); err != nil {
		s.onMessage(LevelError, err.Error())
		return err
	}
	s.notifier.FileAccepted(filepath.Base(path))
	return nil
}

// ClearFile forgets the accepted file, disabling submission.
func (s *Session) ClearFile() { s.gate.Clear() }

// Submit packages the accepted file with the submission options, uploads it
// and starts the polling loop. While a task is in flight further calls are
// no-ops. Once the upload succeeds the server holds a queued job; cancellation
// from here on is advisory only.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		log.Debug().Msg("submit ignored: task already in flight")
		return nil
	}
	inputPath, accepted := s.gate.Accepted()
	if !accepted {
		s.mu.Unlock()
		s.onMessage(LevelError, ErrNoFileAccepted.Error())
		return ErrNoFileAccepted
	}
	s.isProcessing = true
	s.downloadReady = false
	s.currentTaskID = ""
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	taskID, err := s.api.Upload(ctx, inputPath, s.submitOpts)
	if err != nil {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
		close(done)
		s.onMessage(LevelError, err.Error())
		return err
	}

	log.Info().Str("task_id", taskID).Str("file", filepath.Base(inputPath)).Msg("task submitted")
	s.mu.Lock()
	if !s.isProcessing {
		// cancelled while the upload was in flight; the queued job stays
		// on the server but this session will not track it
		s.mu.Unlock()
		close(done)
		return nil
	}
	s.currentTaskID = taskID
	s.mu.Unlock()

	s.notifier.TaskSubmitted(taskID)
	s.onMessage(LevelInfo, "file uploaded, validation started")
	s.startPolling(taskID, done)
	return nil
}

// startPolling installs the recurring status schedule for taskID. Any prior
// schedule is cancelled first; exactly one is live at a time.
func (s *Session) startPolling(taskID string, done chan struct{}) {
	s.mu.Lock()
	if s.pollCancel != nil {
		s.pollCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	s.mu.Unlock()

	go s.pollLoop(ctx, taskID, done)
}

func (s *Session) pollLoop(ctx context.Context, taskID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// the select may pick the tick even after cancellation
			if ctx.Err() != nil {
				return
			}
			st, err := s.api.Status(ctx, taskID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.failTask(taskID, err.Error())
				return
			}
			if s.handleStatus(taskID, st) {
				return
			}
		}
	}
}

// handleStatus evaluates one status payload; it reports whether the loop
// reached a terminal state.
func (s *Session) handleStatus(taskID string, st client.StatusResponse) bool {
	s.onProgress(progress.Render(st.Progress, st.Message, st.CurrentFile, st.Processed, st.Total, st.ETASeconds))

	switch st.Status {
	case client.StatusCompleted:
		return s.completeTask(taskID, st)
	case client.StatusError:
		msg := st.Error
		if msg == "" {
			msg = st.Message
		}
		if msg == "" {
			msg = "validation failed"
		}
		s.failTask(taskID, msg)
		return true
	default:
		// pending and running keep the schedule alive
		return false
	}
}

// completeTask performs the terminal transition for a successful task. The
// task id is retained so the result can still be downloaded.
func (s *Session) completeTask(taskID string, st client.StatusResponse) bool {
	if !s.leaveProcessing(taskID) {
		return true
	}
	s.mu.Lock()
	s.downloadReady = true
	s.mu.Unlock()

	log.Info().Str("task_id", taskID).Msg("validation completed")
	s.notifier.TaskCompleted(taskID)
	msg := st.Message
	if msg == "" {
		msg = "validation completed successfully"
	}
	s.onMessage(LevelSuccess, msg)
	return true
}

// failTask performs the terminal transition for a server-reported error or a
// failed status request; the surfaced message is shown verbatim.
func (s *Session) failTask(taskID, msg string) {
	if !s.leaveProcessing(taskID) {
		return
	}
	s.mu.Lock()
	s.currentTaskID = ""
	s.mu.Unlock()

	log.Warn().Str("task_id", taskID).Str("reason", msg).Msg("validation failed")
	s.onMessage(LevelError, msg)
}

// leaveProcessing clears the processing guard and the live schedule for
// taskID. It reports false when another terminal transition (or Cancel)
// already won the race, making terminal handling fire exactly once.
func (s *Session) leaveProcessing(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isProcessing || s.currentTaskID != taskID {
		return false
	}
	s.isProcessing = false
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
	return true
}

// Cancel stops the polling schedule and returns the session to idle. The
// server is not informed: a queued job may keep running unobserved, and this
// session will not reattach to it.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.isProcessing {
		s.mu.Unlock()
		return
	}
	s.isProcessing = false
	s.currentTaskID = ""
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
	s.mu.Unlock()

	log.Info().Msg("validation cancelled by user")
	s.onMessage(LevelInfo, "validation cancelled")
}

// Download fetches the result of the completed task and saves it into the
// download directory, returning the destination path. It is user-triggered
// and retriable; a failure leaves the task completed.
func (s *Session) Download(ctx context.Context) (string, error) {
	s.mu.Lock()
	taskID, ready := s.currentTaskID, s.downloadReady
	s.mu.Unlock()
	if !ready || taskID == "" {
		return "", ErrNoCompletedTask
	}

	data, filename, err := s.api.Download(ctx, taskID)
	if err != nil {
		s.onMessage(LevelError, err.Error())
		return "", err
	}
	dest, err := file.SaveResult(s.downloadDir, filename, data)
	if err != nil {
		s.onMessage(LevelError, err.Error())
		return "", err
	}
	log.Info().Str("task_id", taskID).Str("path", dest).Msg("result saved")
	s.onMessage(LevelSuccess, "result saved to "+dest)
	return dest, nil
}

// Processing reports whether a task is currently submitted or polling.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isProcessing
}

// DownloadReady reports whether a completed task's result can be fetched.
func (s *Session) DownloadReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadReady
}

// TaskID returns the identifier of the active or completed task, if any.
func (s *Session) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTaskID
}

// Done returns a channel closed when the current task leaves the polling
// loop for any reason; nil when nothing was ever submitted.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
