package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/pressroom/internal/types"
)

// createSlotRequest is the management-API body for creating a content slot.
type createSlotRequest struct {
	Name               string               `json:"name" validate:"required,min=1"`
	Platform           types.PlatformType   `json:"platform" validate:"required,oneof=wordpress telegram vk"`
	ContentType        types.ContentType    `json:"content_type" validate:"required,oneof=longform shortform"`
	Topics             []types.TopicCluster `json:"topics" validate:"required,min=1"`
	CooldownSeconds    int64                `json:"cooldown_seconds,omitempty" validate:"gte=0"`
	MinPoolSize        int                  `json:"min_pool_size,omitempty" validate:"gte=0"`
	Language           string               `json:"language,omitempty"`
	ImageCount         int                  `json:"image_count,omitempty" validate:"gte=0,lte=10"`
	TargetWords        int                  `json:"target_words,omitempty" validate:"gte=0"`
	CrossPostPlatforms []types.PlatformType `json:"cross_post_platforms,omitempty" validate:"dive,oneof=wordpress telegram vk"`
}

// handleListSlots returns the authenticated user's content slots.
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	slots, err := s.deps.Store.ListSlots(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if slots == nil {
		slots = []types.ContentSlot{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"slots": slots})
}

// handleCreateSlot creates a content slot for the authenticated user.
func (s *Server) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid request body"})
		return
	}
	if err := validator.New().Struct(&req); err != nil {
		s.errorResponse(w, &ValidationError{Message: err.Error()})
		return
	}

	slot := &types.ContentSlot{
		UserID:             userID,
		Name:               req.Name,
		Platform:           req.Platform,
		ContentType:        req.ContentType,
		Topics:             req.Topics,
		MinPoolSize:        req.MinPoolSize,
		Language:           req.Language,
		ImageCount:         req.ImageCount,
		TargetWords:        req.TargetWords,
		CrossPostPlatforms: req.CrossPostPlatforms,
	}
	if req.CooldownSeconds > 0 {
		slot.CooldownWindow = time.Duration(req.CooldownSeconds) * time.Second
	}

	id, err := s.deps.Store.CreateSlot(r.Context(), slot)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	slot.ID = id

	s.log.WithFields(map[string]any{"slot_id": id, "user_id": userID}).Info("slot created")
	s.jsonResponse(w, http.StatusCreated, slot)
}

// handleGetSlot returns one of the authenticated user's slots.
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid slot id"})
		return
	}

	slot, err := s.deps.Store.GetSlot(r.Context(), slotID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if slot == nil || slot.UserID != userID {
		s.errorResponse(w, &NotFoundError{Resource: "slot"})
		return
	}
	s.jsonResponse(w, http.StatusOK, slot)
}

// handleListPublications returns a slot's publication history, newest first.
func (s *Server) handleListPublications(w http.ResponseWriter, r *http.Request) {
	userID, err := authedUser(r)
	if err != nil {
		s.errorResponse(w, &UnauthorizedError{Message: "not authenticated"})
		return
	}

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, &ValidationError{Message: "invalid slot id"})
		return
	}

	slot, err := s.deps.Store.GetSlot(r.Context(), slotID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if slot == nil || slot.UserID != userID {
		s.errorResponse(w, &NotFoundError{Resource: "slot"})
		return
	}

	records, err := s.deps.Store.ListPublications(r.Context(), slotID, 0)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if records == nil {
		records = []types.PublicationRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"publications": records})
}
