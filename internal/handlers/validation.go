package handlers

import "fmt"

const maxRoomIdLength = 128

// validateRoomId は空または長すぎるルームIDを拒否します
func validateRoomId(roomId string) error {
	id := normalizeID(roomId)
	if id == "" {
		return fmt.Errorf("roomId required")
	}
	if len(id) > maxRoomIdLength {
		return fmt.Errorf("roomId too long (max %d)", maxRoomIdLength)
	}
	return nil
}
