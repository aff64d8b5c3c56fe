package notify

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Notifier receives lifecycle events. Implementations render feedback (sound,
// desktop notification, UI highlight); they are fire-and-forget and must not
// influence the task lifecycle.
type Notifier interface {
	FileAccepted(filename string)
	TaskSubmitted(taskID string)
	TaskCompleted(taskID string)
}

// Noop is the default notifier: the orchestrator runs correctly with no
// feedback sinks registered.
type Noop struct{}

func (Noop) FileAccepted(string)  {}
func (Noop) TaskSubmitted(string) {}
func (Noop) TaskCompleted(string) {}

// Fanout dispatches every event to all registered notifiers. A panicking
// notifier is logged and skipped; cosmetic feedback never breaks the core
// flow.
type Fanout struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Register adds a notifier to the fan-out set.
func (f *Fanout) Register(n Notifier) {
	f.mu.Lock()
	f.notifiers = append(f.notifiers, n)
	f.mu.Unlock()
}

func (f *Fanout) FileAccepted(filename string) {
	f.each("fileAccepted", func(n Notifier) { n.FileAccepted(filename) })
}

func (f *Fanout) TaskSubmitted(taskID string) {
	f.each("taskSubmitted", func(n Notifier) { n.TaskSubmitted(taskID) })
}

func (f *Fanout) TaskCompleted(taskID string) {
	f.each("taskCompleted", func(n Notifier) { n.TaskCompleted(taskID) })
}

func (f *Fanout) each(event string, fire func(Notifier)) {
	f.mu.RLock()
	notifiers := make([]Notifier, len(f.notifiers))
	copy(notifiers, f.notifiers)
	f.mu.RUnlock()

	for _, n := range notifiers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn().Str("event", event).Interface("panic", r).Msg("notifier failed")
				}
			}()
			fire(n)
		}()
	}
}
