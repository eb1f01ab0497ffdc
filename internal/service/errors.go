package service

import "errors"

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrRoomIDGenerationFailed = errors.New("failed to generate unique room ID after multiple attempts")
)
