package domain

import "errors"

var (
	ErrInvalidRoom    = errors.New("invalid room")
	ErrInvalidBooking = errors.New("invalid booking")
	ErrRoomNotFound   = errors.New("room not found")
)
