package room

import "errors"

var (
	ErrRoomAlreadyRunning = errors.New("room already running")
	ErrRoomNotRunning     = errors.New("room not running")
	ErrEventQueueFull     = errors.New("room event queue full")
)
