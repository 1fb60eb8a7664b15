package connectivity

import "time"

// Task is a scheduled one-shot callback.
type Task interface {
	// Stop cancels the task and reports whether it was still pending.
	Stop() bool
}

// Timer schedules one-shot callbacks. Callbacks run on their own goroutine.
type Timer interface {
	AfterFunc(d time.Duration, f func()) Task
}

type realTimer struct{}

func (realTimer) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
