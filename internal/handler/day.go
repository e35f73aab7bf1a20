package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// CreateDay handles POST /groups/{groupId}/itinerary/days.
// An absent or null date adds a free day.
func (s *Server) CreateDay(w http.ResponseWriter, r *http.Request) {
	var req createDayRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	it, _ := st.Itinerary()
	var date *time.Time
	if req.Date != nil {
		d := req.Date.Time
		date = &d
	}
	day, err := st.AddDay(r.Context(), it.ID, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dayToResponse(day, nil))
}

// UpdateDay handles PATCH /groups/{groupId}/itinerary/days/{dayId}.
// Fields present in the body are written; null clears them.
func (s *Server) UpdateDay(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateDayRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.UpdateDay(r.Context(), dayID, req.patch()); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := st.Snapshot()
	day, ok := p.DayByID(dayID)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: day %s", domain.ErrNotFound, dayID))
		return
	}
	writeJSON(w, http.StatusOK, dayToResponse(day, p.ItemsByDayID[dayID]))
}

// DeleteDay handles DELETE /groups/{groupId}/itinerary/days/{dayId}.
// Later days move up one number.
func (s *Server) DeleteDay(w http.ResponseWriter, r *http.Request) {
	dayID, err := pathUUID(r, "dayId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, st, _, err := s.session(r, nil, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.DeleteDay(r.Context(), dayID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
