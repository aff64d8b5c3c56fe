package session

import "errors"

var (
	ErrNoFileAccepted  = errors.New("no input file accepted")
	ErrNoCompletedTask = errors.New("no completed task to download")
)
