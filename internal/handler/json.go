package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trip-itinerary/backend/internal/daytabs"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
)

// --- response types ---------------------------------------------------------

type itineraryResponse struct {
	ID        openapi_types.UUID `json:"id"`
	GroupID   openapi_types.UUID `json:"group_id"`
	CreatedAt time.Time          `json:"created_at"`
	Status    string             `json:"status"`
	Loading   bool               `json:"loading"`
	Error     *string            `json:"error"`
	Days      []dayResponse      `json:"days"`
}

type dayResponse struct {
	ID          openapi_types.UUID  `json:"id"`
	ItineraryID openapi_types.UUID  `json:"itinerary_id"`
	DayNumber   int                 `json:"day_number"`
	Date        *openapi_types.Date `json:"date"`
	Title       *string             `json:"title"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []itemResponse      `json:"items"`
}

type itemResponse struct {
	ID          openapi_types.UUID  `json:"id"`
	DayID       openapi_types.UUID  `json:"day_id"`
	Title       string              `json:"title"`
	Location    *string             `json:"location"`
	Description *string             `json:"description"`
	StartTime   *domain.ClockTime   `json:"start_time"`
	EndTime     *domain.ClockTime   `json:"end_time"`
	Position    int                 `json:"position"`
	ImageURL    *string             `json:"image_url"`
	CreatedBy   *openapi_types.UUID `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
}

type tabResponse struct {
	Key      string              `json:"key"`
	Date     *openapi_types.Date `json:"date"`
	DayID    *openapi_types.UUID `json:"day_id"`
	Top      string              `json:"top_label"`
	Bottom   string              `json:"bottom_label"`
	Backed   bool                `json:"has_day"`
	Selected bool                `json:"selected"`
}

type tabsResponse struct {
	Tabs      []tabResponse  `json:"tabs"`
	Selected  string         `json:"selected"`
	ActiveDay *dayResponse   `json:"active_day"`
	Items     []itemResponse `json:"items"`
}

func projectionToResponse(p store.Projection) itineraryResponse {
	resp := itineraryResponse{
		Status:  p.Status.String(),
		Loading: p.Loading,
		Days:    make([]dayResponse, len(p.Days)),
	}
	if p.Err != "" {
		msg := p.Err
		resp.Error = &msg
	}
	if p.Itinerary != nil {
		resp.ID = p.Itinerary.ID
		resp.GroupID = p.Itinerary.GroupID
		resp.CreatedAt = p.Itinerary.CreatedAt
	}
	for i, d := range p.Days {
		resp.Days[i] = dayToResponse(d, p.ItemsByDayID[d.ID])
	}
	return resp
}

func dayToResponse(d domain.Day, items []domain.Item) dayResponse {
	resp := dayResponse{
		ID:          d.ID,
		ItineraryID: d.ItineraryID,
		DayNumber:   d.DayNumber,
		Date:        dateToResponse(d.Date),
		Title:       d.Title,
		CreatedAt:   d.CreatedAt,
		Items:       itemsToResponse(items),
	}
	return resp
}

func itemsToResponse(items []domain.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = itemToResponse(it)
	}
	return out
}

func itemToResponse(it domain.Item) itemResponse {
	resp := itemResponse{
		ID:          it.ID,
		DayID:       it.DayID,
		Title:       it.Title,
		Location:    it.Location,
		Description: it.Description,
		StartTime:   it.StartTime,
		EndTime:     it.EndTime,
		Position:    it.Position,
		ImageURL:    it.ImageURL,
		CreatedAt:   it.CreatedAt,
	}
	if it.CreatedBy != nil {
		id := openapi_types.UUID(*it.CreatedBy)
		resp.CreatedBy = &id
	}
	return resp
}

func tabsToResponse(v daytabs.View) tabsResponse {
	resp := tabsResponse{
		Tabs:     make([]tabResponse, len(v.Entries)),
		Selected: v.Selected,
		Items:    itemsToResponse(v.Items),
	}
	for i, e := range v.Entries {
		tab := tabResponse{
			Key:      e.Key,
			Date:     dateToResponse(e.Date),
			Top:      e.Top,
			Bottom:   e.Bottom,
			Backed:   e.Backed(),
			Selected: e.Selected,
		}
		if e.DayID != nil {
			id := openapi_types.UUID(*e.DayID)
			tab.DayID = &id
		}
		resp.Tabs[i] = tab
	}
	if v.ActiveDay != nil {
		d := dayToResponse(*v.ActiveDay, v.Items)
		resp.ActiveDay = &d
	}
	return resp
}

func dateToResponse(d *time.Time) *openapi_types.Date {
	if d == nil {
		return nil
	}
	return &openapi_types.Date{Time: *d}
}

// --- request types ----------------------------------------------------------

// nullable is a request field that distinguishes absent from null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n nullable[T]) optional() domain.Optional[T] {
	return domain.Optional[T]{Set: n.Set, Value: n.Value}
}

type createDayRequest struct {
	Date *openapi_types.Date `json:"date"`
}

type updateDayRequest struct {
	Title nullable[string]             `json:"title"`
	Date  nullable[openapi_types.Date] `json:"date"`
}

func (req updateDayRequest) patch() domain.DayPatch {
	p := domain.DayPatch{Title: req.Title.optional()}
	if req.Date.Set {
		p.Date = domain.Null[time.Time]()
		if req.Date.Value != nil {
			p.Date = domain.Some(req.Date.Value.Time)
		}
	}
	return p
}

type createItemRequest struct {
	Title       string  `json:"title"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
}

type updateItemRequest struct {
	Title       *string                    `json:"title"`
	Location    nullable[string]           `json:"location"`
	Description nullable[string]           `json:"description"`
	StartTime   nullable[domain.ClockTime] `json:"start_time"`
	EndTime     nullable[domain.ClockTime] `json:"end_time"`
	ImageURL    nullable[string]           `json:"image_url"`
}

func (req updateItemRequest) patch() domain.ItemPatch {
	return domain.ItemPatch{
		Title:       req.Title,
		Location:    req.Location.optional(),
		Description: req.Description.optional(),
		StartTime:   req.StartTime.optional(),
		EndTime:     req.EndTime.optional(),
		ImageURL:    req.ImageURL.optional(),
	}
}

type reorderRequest struct {
	ItemIDs []openapi_types.UUID `json:"item_ids"`
}

type selectTabRequest struct {
	Key string `json:"key"`
}

// decodeBody decodes a JSON request body into v. Unknown fields are rejected.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", domain.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", domain.ErrValidation, name)
	}
	return id, nil
}

// dateRange reads ?start_date and ?end_date. A range is only used when both
// are given; a lone bound is ignored. A malformed date is a validation error.
func dateRange(r *http.Request) (*time.Time, *time.Time, error) {
	q := r.URL.Query()
	start, err := optionalDate(q.Get("start_date"))
	if err != nil {
		return nil, nil, err
	}
	end, err := optionalDate(q.Get("end_date"))
	if err != nil {
		return nil, nil, err
	}
	if start == nil || end == nil {
		return nil, nil, nil
	}
	return start, end, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
