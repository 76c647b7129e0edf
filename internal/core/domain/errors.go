package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrDuplicateRoom       = errors.New("room already exists")
)
