// Package handler implements the HTTP API of the trip itinerary service.
// Routes are plain chi handlers on Server. Each request resolves the group's
// itinerary session and drives the store, the day tabs, or the activity form.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/daytabs"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
	"github.com/pkordes/trip-itinerary/backend/spec"
)

// ItineraryStore is the store surface the handlers use. *store.Store
// satisfies it; tests inject a mock.
type ItineraryStore interface {
	LoadItinerary(ctx context.Context, groupID uuid.UUID, start, end *time.Time) error
	Snapshot() store.Projection
	Itinerary() (domain.Itinerary, bool)
	Items(dayID uuid.UUID) []domain.Item

	AddDay(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error)
	UpdateDay(ctx context.Context, dayID uuid.UUID, patch domain.DayPatch) error
	DeleteDay(ctx context.Context, dayID uuid.UUID) error

	AddItem(ctx context.Context, dayID uuid.UUID, item domain.NewItem) (domain.Item, error)
	UpdateItem(ctx context.Context, itemID, dayID uuid.UUID, patch domain.ItemPatch) (domain.Item, error)
	DeleteItem(ctx context.Context, itemID, dayID uuid.UUID) error
	ReorderByID(ctx context.Context, dayID uuid.UUID, ids []uuid.UUID) error
	FetchItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error)
}

// TabSelector is the day-tab surface the handlers use.
type TabSelector interface {
	Select(ctx context.Context, key string) (domain.Day, error)
	AddFreeDay(ctx context.Context) (domain.Day, error)
	View(start, end *time.Time) (daytabs.View, error)
}

// SessionFunc returns the store and tab selector of a group.
type SessionFunc func(groupID uuid.UUID) (ItineraryStore, TabSelector)

// RegistrySessions adapts a store.Registry to a SessionFunc.
func RegistrySessions(reg *store.Registry) SessionFunc {
	return func(groupID uuid.UUID) (ItineraryStore, TabSelector) {
		s := reg.Session(groupID)
		return s.Store, s.Tabs
	}
}

// BackgroundStats reports on background persistence.
type BackgroundStats interface {
	Pending() int64
	Failed() int64
	Succeeded() int64
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	sessions SessionFunc
	stats    BackgroundStats
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(sessions SessionFunc, stats BackgroundStats, log *slog.Logger) *Server {
	return &Server{sessions: sessions, stats: stats, log: log}
}

// Routes returns the router of every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveSpec)
	r.Get("/reconciler", s.GetReconciler)

	r.Route("/groups/{groupId}/itinerary", func(r chi.Router) {
		r.Get("/", s.GetItinerary)
		r.Get("/tabs", s.GetTabs)
		r.Post("/tabs/select", s.SelectTab)
		r.Post("/tabs/free-day", s.AddFreeDay)

		r.Post("/days", s.CreateDay)
		r.Patch("/days/{dayId}", s.UpdateDay)
		r.Delete("/days/{dayId}", s.DeleteDay)

		r.Post("/days/{dayId}/items", s.CreateItem)
		r.Put("/days/{dayId}/items/order", s.ReorderItems)
		r.Patch("/days/{dayId}/items/{itemId}", s.UpdateItem)
		r.Delete("/days/{dayId}/items/{itemId}", s.DeleteItem)
		r.Get("/items/{itemId}", s.GetItem)
	})
	return r
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}

// session resolves the group of the request and makes sure its itinerary is
// loaded, creating it (with days for the range, if given) on first use.
func (s *Server) session(r *http.Request, start, end *time.Time) (uuid.UUID, ItineraryStore, TabSelector, error) {
	groupID, err := pathUUID(r, "groupId")
	if err != nil {
		return uuid.Nil, nil, nil, err
	}
	st, tabs := s.sessions(groupID)
	if _, ok := st.Itinerary(); !ok {
		if err := st.LoadItinerary(r.Context(), groupID, start, end); err != nil {
			return uuid.Nil, nil, nil, err
		}
	}
	return groupID, st, tabs, nil
}

var (
	_ ItineraryStore  = (*store.Store)(nil)
	_ TabSelector     = (*daytabs.Controller)(nil)
	_ BackgroundStats = (*store.Reconciler)(nil)
)
