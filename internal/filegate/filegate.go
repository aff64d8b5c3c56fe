package filegate

import (
	"path/filepath"
	"strings"
	"sync"
)

// DefaultExtensions is the allow-set for spreadsheet inputs.
var DefaultExtensions = []string{".xlsx", ".xls", ".csv"}

// ValidationError reports a rejected input file.
type ValidationError struct {
	Filename string
	Ext      string
}

func (e *ValidationError) Error() string {
	return "unsupported file format " + e.Ext + ": use .xlsx, .xls or .csv"
}

// Gate accepts or rejects candidate input files by extension and tracks the
// one currently accepted file. A rejected candidate never disturbs a
// previously accepted one.
type Gate struct {
	mu       sync.Mutex
	allowed  map[string]struct{}
	path     string
	accepted bool
}

// New builds a gate for the given extensions; empty input falls back to
// DefaultExtensions. Extensions are normalized the same way regardless of
// case or a leading dot.
func New(extensions []string) *Gate {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = struct{}{}
	}
	return &Gate{allowed: allowed}
}

// Accept validates the candidate path by extension (case-insensitive) and, on
// success, makes it the current accepted file. On rejection the previous
// accepted file, if any, stays in place.
func (g *Gate) Accept(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.allowed[ext]; !ok {
		return &ValidationError{Filename: filepath.Base(path), Ext: ext}
	}
	g.path = path
	g.accepted = true
	return nil
}

// Clear forgets the accepted file, disabling submission.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.path = ""
	g.accepted = false
	g.mu.Unlock()
}

// Accepted returns the currently accepted file path and whether submission is
// allowed.
func (g *Gate) Accepted() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.path, g.accepted
}
