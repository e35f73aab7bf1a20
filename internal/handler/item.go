package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/activityform"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// CreateItem handles POST /groups/{groupId}/itinerary/days/{dayId}/items.
// The body goes through the activity form, so field errors come back as a 422
// with one message per field and the store is not called.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createItemRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	form := activityform.New(st, dayID)
	if user, err := uuid.Parse(r.Header.Get("X-User-ID")); err == nil {
		form.SetCreator(user)
	}
	form.Open()
	form.Fill(activityform.Values{
		Title:       req.Title,
		Location:    deref(req.Location),
		Description: deref(req.Description),
		StartTime:   deref(req.StartTime),
		EndTime:     deref(req.EndTime),
	})

	item, err := form.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemToResponse(item))
}

// UpdateItem handles PATCH /groups/{groupId}/itinerary/days/{dayId}/items/{itemId}.
// The item keeps its position; reorder to move it.
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.StartTime.Value != nil && req.EndTime.Value != nil && *req.EndTime.Value <= *req.StartTime.Value {
		s.writeError(w, r, fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation))
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := st.UpdateItem(r.Context(), itemID, dayID, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(item))
}

// DeleteItem handles DELETE /groups/{groupId}/itinerary/days/{dayId}/items/{itemId}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.DeleteItem(r.Context(), itemID, dayID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderItems handles PUT /groups/{groupId}/itinerary/days/{dayId}/items/order.
// item_ids must list every item of the day exactly once.
func (s *Server) ReorderItems(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ids := make([]uuid.UUID, len(req.ItemIDs))
	copy(ids, req.ItemIDs)
	if err := st.ReorderByID(r.Context(), dayID, ids); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsToResponse(st.Items(dayID)))
}

// GetItem handles GET /groups/{groupId}/itinerary/items/{itemId}.
// It reads the database directly and does not touch the loaded itinerary.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "itemId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := st.FetchItem(r.Context(), itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(item))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
