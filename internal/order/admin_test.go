package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopease/storefront/internal/events"
)

func newAdminRouter(store Store, bus *events.Bus) http.Handler {
	h := &AdminHandler{Store: store, Bus: bus, Log: zerolog.Nop()}
	r := chi.NewRouter()
	r.Patch("/admin/orders/{orderId}/status", h.UpdateStatus)
	return r
}

func seedOrder(t *testing.T, store *MemoryStore, status Status) Order {
	t.Helper()
	o := draftOrder()
	o.ID = "ORD-1-001"
	o.Status = status
	_, err := store.Create(context.Background(), o)
	require.NoError(t, err)
	return o
}

func patchStatus(t *testing.T, router http.Handler, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/"+id+"/status",
		strings.NewReader(`{"status":"`+status+`"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdminUpdateStatusAdvances(t *testing.T) {
	store := NewMemoryStore()
	captured := &capturingNotifier{}
	router := newAdminRouter(store, events.NewBus(zerolog.Nop(), captured))
	seedOrder(t, store, StatusPending)

	rec := patchStatus(t, router, "ORD-1-001", "shipped")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, StatusShipped, body.Data.Status)

	stored, err := store.Get(context.Background(), "ORD-1-001")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, stored.Status)

	require.Len(t, captured.events, 1)
	require.Equal(t, events.TopicOrderStatusChanged, captured.events[0].Topic)
	var payload events.OrderStatusChanged
	require.NoError(t, json.Unmarshal(captured.events[0].Payload, &payload))
	require.Equal(t, "pending", payload.OldStatus)
	require.Equal(t, "shipped", payload.NewStatus)
}

func TestAdminUpdateStatusRejectsUnknown(t *testing.T) {
	store := NewMemoryStore()
	router := newAdminRouter(store, nil)
	seedOrder(t, store, StatusPending)

	rec := patchStatus(t, router, "ORD-1-001", "teleported")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_STATUS")

	stored, err := store.Get(context.Background(), "ORD-1-001")
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestAdminUpdateStatusRejectsRegression(t *testing.T) {
	store := NewMemoryStore()
	captured := &capturingNotifier{}
	router := newAdminRouter(store, events.NewBus(zerolog.Nop(), captured))
	seedOrder(t, store, StatusShipped)

	rec := patchStatus(t, router, "ORD-1-001", "processing")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "STATUS_REGRESSION")

	stored, err := store.Get(context.Background(), "ORD-1-001")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, stored.Status)
	require.Empty(t, captured.events)
}

func TestAdminUpdateStatusUnknownOrder(t *testing.T) {
	router := newAdminRouter(NewMemoryStore(), nil)

	rec := patchStatus(t, router, "ORD-9-999", "shipped")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
