package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bytetube/bytetube-chat/internal/service"
)

// RoomHandler はルーム関連のREST APIを提供します
type RoomHandler struct {
	svc        *service.RoomService
	hub        *RoomHub
	instanceID string
}

func NewRoomHandler(s *service.RoomService, hub *RoomHub, instanceID string) *RoomHandler {
	return &RoomHandler{svc: s, hub: hub, instanceID: instanceID}
}

// Health はインスタンスIDと接続数を返します
func (h *RoomHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"instance":          h.instanceID,
		"connected_clients": h.hub.ClientCount(),
	})
}

// Create は新しいルームを作成します
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Create(r.Context())
	if err != nil {
		log.Printf("Create room error: %v", err)
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "roomId": id})
}

// Get はルーム情報と接続数を返します
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	room, n, err := h.svc.Get(r.Context(), roomId)
	if err != nil {
		if !errors.Is(err, service.ErrRoomNotFound) {
			log.Printf("Get room error (roomId=%s): %v", roomId, err)
		}
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"room":        room,
		"connections": n,
		"local":       h.hub.RoomClientCount(roomId),
	})
}

// Touch はルームのTTLを延長します
func (h *RoomHandler) Touch(w http.ResponseWriter, r *http.Request) {
	roomId := normalizeID(chi.URLParam(r, "roomId"))
	if err := validateRoomId(roomId); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Touch(r.Context(), roomId); err != nil {
		if !errors.Is(err, service.ErrRoomNotFound) {
			log.Printf("Touch room error (roomId=%s): %v", roomId, err)
		}
		h.writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeServiceError はサービス層のエラーをHTTPステータスに変換します
func (h *RoomHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRoomIDGenerationFailed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
