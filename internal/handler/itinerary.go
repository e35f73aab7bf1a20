package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// GetItinerary handles GET /groups/{groupId}/itinerary.
// It (re)loads the itinerary, creating it with one day per date of
// ?start_date..?end_date when the group has none, and returns the projection.
func (s *Server) GetItinerary(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID, err := pathUUID(r, "groupId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st, _ := s.sessions(groupID)
	if err := st.LoadItinerary(r.Context(), groupID, start, end); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectionToResponse(st.Snapshot()))
}

// GetTabs handles GET /groups/{groupId}/itinerary/tabs.
// With ?start_date and ?end_date the strip covers that range; otherwise it
// lists the existing days.
func (s *Server) GetTabs(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, _, tabs, err := s.session(r, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTabs(w, r, tabs, start, end, http.StatusOK)
}

// SelectTab handles POST /groups/{groupId}/itinerary/tabs/select.
// Selecting a date without a day creates the day.
func (s *Server) SelectTab(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req selectTabRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		s.writeError(w, r, fmt.Errorf("%w: key is required", domain.ErrValidation))
		return
	}
	_, _, tabs, err := s.session(r, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := tabs.Select(r.Context(), req.Key); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTabs(w, r, tabs, start, end, http.StatusOK)
}

// AddFreeDay handles POST /groups/{groupId}/itinerary/tabs/free-day.
// It appends a day without a date and selects it.
func (s *Server) AddFreeDay(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, _, tabs, err := s.session(r, start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := tabs.AddFreeDay(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTabs(w, r, tabs, start, end, http.StatusCreated)
}

func (s *Server) writeTabs(w http.ResponseWriter, r *http.Request, tabs TabSelector, start, end *time.Time, status int) {
	v, err := tabs.View(start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, tabsToResponse(v))
}
