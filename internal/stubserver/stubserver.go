// Package stubserver is a local stand-in for the validation server. It speaks
// the same /api/upload, /api/status and /api/download surface but performs no
// real validation: each task replays a scripted sequence of status frames.
// Useful for demos against no backend and for exercising the client end to
// end in tests.
package stubserver

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mailvalid/internal/client"
)

func etaPtr(v float64) *float64 { return &v }

// DefaultScript walks a task through pending, two running frames and
// completion.
var DefaultScript = []client.StatusResponse{
	{Status: client.StatusPending, Message: "waiting for processing to start"},
	{Status: client.StatusRunning, Progress: 30, Message: "checking addresses", Processed: 3, Total: 10, ETASeconds: etaPtr(45)},
	{Status: client.StatusRunning, Progress: 80, Message: "checking addresses", Processed: 8, Total: 10, ETASeconds: etaPtr(10)},
	{Status: client.StatusCompleted, Progress: 100, Message: "validation completed successfully", Processed: 10, Total: 10, ETASeconds: etaPtr(0)},
}

// Options configures the stub.
type Options struct {
	AllowedExtensions []string
	// Script is replayed frame by frame for every submitted task; the last
	// frame is sticky. Empty means DefaultScript.
	Script []client.StatusResponse
	// Result is the artifact body served on download.
	Result         []byte
	ResultFilename string
}

type taskState struct {
	frames []client.StatusResponse
	cursor int
}

// current returns the active frame and advances the cursor; the final frame
// repeats forever.
func (t *taskState) current() client.StatusResponse {
	frame := t.frames[t.cursor]
	if t.cursor < len(t.frames)-1 {
		t.cursor++
	}
	return frame
}

func (t *taskState) completed() bool {
	return t.frames[t.cursor].Status == client.StatusCompleted
}

// Server holds scripted tasks behind a gin engine.
type Server struct {
	mu      sync.Mutex
	tasks   map[string]*taskState
	allowed map[string]struct{}
	opts    Options
	engine  *gin.Engine
}

func New(opts Options) *Server {
	if len(opts.Script) == 0 {
		opts.Script = DefaultScript
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{".xlsx", ".xls", ".csv"}
	}
	if opts.Result == nil {
		opts.Result = []byte("stub validation result")
	}
	if opts.ResultFilename == "" {
		opts.ResultFilename = "validated.xlsx"
	}

	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	s := &Server{
		tasks:   make(map[string]*taskState),
		allowed: allowed,
		opts:    opts,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	s.RegisterRoutes(engine)
	s.engine = engine
	return s
}

// Handler exposes the stub as a plain http.Handler for httptest servers.
func (s *Server) Handler() http.Handler { return s.engine }

// RegisterRoutes registers the validation API surface on the provided engine.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/upload", s.Upload)
	router.GET("/api/status/:id", s.Status)
	router.GET("/api/download/:id", s.Download)
}

// Upload accepts the multipart submission and registers a scripted task.
func (s *Server) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is missing"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := s.allowed[ext]; !ok {
		log.Warn().Str("filename", fileHeader.Filename).Msg("rejecting upload: extension not allowed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file format: use .xlsx, .xls or .csv"})
		return
	}

	taskID := uuid.NewString()
	frames := make([]client.StatusResponse, len(s.opts.Script))
	copy(frames, s.opts.Script)

	s.mu.Lock()
	s.tasks[taskID] = &taskState{frames: frames}
	s.mu.Unlock()

	log.Info().Str("task_id", taskID).Str("filename", fileHeader.Filename).Msg("task created")
	c.JSON(http.StatusOK, gin.H{"task_id": taskID})
}

// Status serves the next scripted frame for the task.
func (s *Server) Status(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	frame := task.current()
	s.mu.Unlock()
	c.JSON(http.StatusOK, frame)
}

// Download serves the placeholder artifact once the script reached the
// completed frame.
func (s *Server) Download(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	task, ok := s.tasks[id]
	completed := ok && task.completed()
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if !completed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task is not finished yet"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+s.opts.ResultFilename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", s.opts.Result)
}
