package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-itinerary/backend/internal/daytabs"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/handler"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
)

// mockStore is a test double for handler.ItineraryStore.
// Set only the method fields your test needs. itinerary defaults to a loaded
// itinerary so handlers do not trigger a load.
type mockStore struct {
	itinerary *domain.Itinerary
	loads     int

	loadItinerary func(ctx context.Context, groupID uuid.UUID, start, end *time.Time) error
	snapshot      func() store.Projection
	items         func(dayID uuid.UUID) []domain.Item
	addDay        func(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error)
	updateDay     func(ctx context.Context, dayID uuid.UUID, patch domain.DayPatch) error
	deleteDay     func(ctx context.Context, dayID uuid.UUID) error
	addItem       func(ctx context.Context, dayID uuid.UUID, item domain.NewItem) (domain.Item, error)
	updateItem    func(ctx context.Context, itemID, dayID uuid.UUID, patch domain.ItemPatch) (domain.Item, error)
	deleteItem    func(ctx context.Context, itemID, dayID uuid.UUID) error
	reorderByID   func(ctx context.Context, dayID uuid.UUID, ids []uuid.UUID) error
	fetchItem     func(ctx context.Context, itemID uuid.UUID) (domain.Item, error)
}

func newMockStore() *mockStore {
	return &mockStore{itinerary: &domain.Itinerary{ID: uuid.New(), GroupID: uuid.New()}}
}

func (m *mockStore) LoadItinerary(ctx context.Context, groupID uuid.UUID, start, end *time.Time) error {
	m.loads++
	if m.loadItinerary == nil {
		return nil
	}
	return m.loadItinerary(ctx, groupID, start, end)
}
func (m *mockStore) Snapshot() store.Projection { return m.snapshot() }
func (m *mockStore) Itinerary() (domain.Itinerary, bool) {
	if m.itinerary == nil {
		return domain.Itinerary{}, false
	}
	return *m.itinerary, true
}
func (m *mockStore) Items(dayID uuid.UUID) []domain.Item { return m.items(dayID) }
func (m *mockStore) AddDay(ctx context.Context, itineraryID uuid.UUID, date *time.Time) (domain.Day, error) {
	return m.addDay(ctx, itineraryID, date)
}
func (m *mockStore) UpdateDay(ctx context.Context, dayID uuid.UUID, patch domain.DayPatch) error {
	return m.updateDay(ctx, dayID, patch)
}
func (m *mockStore) DeleteDay(ctx context.Context, dayID uuid.UUID) error {
	return m.deleteDay(ctx, dayID)
}
func (m *mockStore) AddItem(ctx context.Context, dayID uuid.UUID, item domain.NewItem) (domain.Item, error) {
	return m.addItem(ctx, dayID, item)
}
func (m *mockStore) UpdateItem(ctx context.Context, itemID, dayID uuid.UUID, patch domain.ItemPatch) (domain.Item, error) {
	return m.updateItem(ctx, itemID, dayID, patch)
}
func (m *mockStore) DeleteItem(ctx context.Context, itemID, dayID uuid.UUID) error {
	return m.deleteItem(ctx, itemID, dayID)
}
func (m *mockStore) ReorderByID(ctx context.Context, dayID uuid.UUID, ids []uuid.UUID) error {
	return m.reorderByID(ctx, dayID, ids)
}
func (m *mockStore) FetchItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return m.fetchItem(ctx, itemID)
}

// mockTabs is a test double for handler.TabSelector.
type mockTabs struct {
	selectKey  func(ctx context.Context, key string) (domain.Day, error)
	addFreeDay func(ctx context.Context) (domain.Day, error)
	view       func(start, end *time.Time) (daytabs.View, error)
}

func (m *mockTabs) Select(ctx context.Context, key string) (domain.Day, error) {
	return m.selectKey(ctx, key)
}
func (m *mockTabs) AddFreeDay(ctx context.Context) (domain.Day, error) { return m.addFreeDay(ctx) }
func (m *mockTabs) View(start, end *time.Time) (daytabs.View, error) { return m.view(start, end) }

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.ItineraryStore = (*mockStore)(nil)
	_ handler.TabSelector    = (*mockTabs)(nil)
)

type stubStats struct{ pending, failed, succeeded int64 }

func (s stubStats) Pending() int64   { return s.pending }
func (s stubStats) Failed() int64    { return s.failed }
func (s stubStats) Succeeded() int64 { return s.succeeded }

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server over the given doubles, the same way main.go
// wires it over the registry.
func newHTTPHandler(st *mockStore, tabs *mockTabs) http.Handler {
	sessions := func(uuid.UUID) (handler.ItineraryStore, handler.TabSelector) { return st, tabs }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(sessions, stubStats{pending: 2, failed: 1, succeeded: 7}, logger).Routes()
}

func itineraryPath(groupID uuid.UUID, rest string) string {
	return "/groups/" + groupID.String() + "/itinerary" + rest
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func ptr[T any](v T) *T { return &v }
