package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtbook/internal/session"
	"nbtbook/internal/stafftoken"
	"nbtbook/internal/venue"
	"nbtbook/pkg/testutil"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestRouter(t *testing.T) (chi.Router, *venue.Venue, venue.Room, string, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	venues := venue.NewService(venue.NewInMemoryStore(), venue.WithClock(fixedClock))
	v, err := venues.Create(context.Background(), "Campus", "City", "")
	require.NoError(t, err)
	room, err := venues.AddRoom(context.Background(), v.ID, "Hall A", 50)
	require.NoError(t, err)

	svc := session.NewService(session.NewInMemoryStore(), venues, session.WithClock(fixedClock))
	tokens := stafftoken.New("test-signing-key", "nbtbook-test")

	adminToken, err := tokens.GenerateAccessToken(uuid.New(), "admin@example.com", "admin", time.Hour)
	require.NoError(t, err)
	operatorToken, err := tokens.GenerateAccessToken(uuid.New(), "ops@example.com", "operator", time.Hour)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, tokens, logger).Register(r)
	return r, v, room, adminToken, operatorToken
}

func createBody(v *venue.Venue, room venue.Room) map[string]any {
	return map[string]any{
		"venue_id":               v.ID.String(),
		"room_id":                room.ID.String(),
		"starts_at":              testNow.Add(30 * 24 * time.Hour),
		"registration_opens_at":  testNow.Add(-24 * time.Hour),
		"registration_closes_at": testNow.Add(20 * 24 * time.Hour),
		"fee_cents":              15000,
	}
}

func TestScheduleSession(t *testing.T) {
	r, v, room, adminToken, _ := newTestRouter(t)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/sessions", createBody(v, room)), adminToken)
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	created := testutil.UnmarshalResponse[session.Session](t, rr)
	assert.Equal(t, session.StatusScheduled, created.Status)
	assert.Equal(t, 50, created.Capacity, "defaults to the room capacity")
}

func TestScheduleRequiresAdmin(t *testing.T) {
	r, v, room, _, operatorToken := newTestRouter(t)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/sessions", createBody(v, room)), operatorToken)
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestTimetableIsPublic(t *testing.T) {
	r, v, room, adminToken, _ := newTestRouter(t)

	create := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/sessions", createBody(v, room)), adminToken)
	testutil.AssertStatus(t, testutil.DoRequest(r, create), http.StatusCreated)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/sessions", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	listed := *testutil.UnmarshalResponse[[]*session.Session](t, rr)
	assert.Len(t, listed, 1)

	availRR := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/sessions/availability", nil))
	testutil.AssertStatus(t, availRR, http.StatusOK)
	avail := *testutil.UnmarshalResponse[[]session.Availability](t, availRR)
	require.Len(t, avail, 1)
	assert.Equal(t, 50, avail[0].Remaining)
}

func TestScheduleValidation(t *testing.T) {
	r, v, room, adminToken, _ := newTestRouter(t)

	body := createBody(v, room)
	delete(body, "room_id")
	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/sessions", body), adminToken)
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "validation")
}

func TestBadSessionID(t *testing.T) {
	r, _, _, _, _ := newTestRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/sessions/not-a-uuid", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "bad_request")
}
