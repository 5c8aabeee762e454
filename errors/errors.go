package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrDeviceNotFound   = fmt.Errorf("device not found")
	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrTransportFailure = fmt.Errorf("transport failure")
	ErrInvalidDraft     = fmt.Errorf("invalid message draft")
	ErrInvalidRoom      = fmt.Errorf("invalid room definition")
)
