package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEngineStopped        = errors.New("notification engine stopped")
	ErrEngineRunning        = errors.New("notification engine already running")
)
