package main

import "deskmux/internal/sessionlog"

// GetSessionLog returns the captured warn/error log entries, oldest first.
// The frontend polls this after an app:session-log-updated event.
func (a *App) GetSessionLog() []sessionlog.Entry {
	return a.recorder.Entries()
}
