package models

import "errors"

var (
	ErrBadgeNotFound          = errors.New("badge not found")
	ErrPersonalBadgeNotFound  = errors.New("personal badge not found")
	ErrCheckInConflict        = errors.New("check-in sequence already taken")
	ErrInvalidParticipantType = errors.New("invalid participant type")
	ErrInvalidBadgeRequest    = errors.New("invalid badge request")
	ErrInvalidQRHandle        = errors.New("invalid qr handle")
	ErrQRHandleTaken          = errors.New("qr handle already in use")
)
