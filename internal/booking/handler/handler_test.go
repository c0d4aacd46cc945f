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

	"nbtbook/internal/booking"
	"nbtbook/internal/numbering"
	"nbtbook/internal/session"
	"nbtbook/internal/stafftoken"
	"nbtbook/internal/student"
	"nbtbook/internal/venue"
	"nbtbook/pkg/testutil"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	router        chi.Router
	token         string
	studentNumber string
	sessionID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	studentStore := student.NewInMemoryStore()
	students := student.NewService(studentStore,
		numbering.New(studentStore, numbering.WithClock(fixedClock)),
		student.WithClock(fixedClock),
	)
	st, err := students.Register(ctx, student.RegisterInput{
		DocumentKind:  "passport",
		DocumentValue: "P0000001",
		FirstName:     "Thandi",
		LastName:      "Nkosi",
	})
	require.NoError(t, err)

	venues := venue.NewService(venue.NewInMemoryStore(), venue.WithClock(fixedClock))
	v, err := venues.Create(ctx, "Campus", "City", "")
	require.NoError(t, err)
	room, err := venues.AddRoom(ctx, v.ID, "Hall A", 50)
	require.NoError(t, err)

	store := booking.NewInMemoryStore()
	sessions := session.NewService(session.NewInMemoryStore(), venues,
		session.WithClock(fixedClock),
		session.WithBookingCounter(store),
	)
	sess, err := sessions.Create(ctx, session.CreateInput{
		VenueID:              v.ID,
		RoomID:               room.ID,
		StartsAt:             testNow.Add(30 * 24 * time.Hour),
		RegistrationOpensAt:  testNow.Add(-24 * time.Hour),
		RegistrationClosesAt: testNow.Add(20 * 24 * time.Hour),
		FeeCents:             15000,
	})
	require.NoError(t, err)

	bookings := booking.NewService(store, students, sessions, booking.WithClock(fixedClock))
	tokens := stafftoken.New("test-signing-key", "nbtbook-test")
	token, err := tokens.GenerateAccessToken(uuid.New(), "ops@example.com", "operator", time.Hour)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(bookings, tokens, logger).Register(r)
	return &fixture{
		router:        r,
		token:         token,
		studentNumber: st.StudentNumber.String(),
		sessionID:     sess.ID,
	}
}

func (f *fixture) createBooking(t *testing.T) booking.Booking {
	t.Helper()
	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
		"student_number": f.studentNumber,
		"session_id":     f.sessionID.String(),
	}), f.token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[booking.Booking](t, rr)
}

func TestCreateAndGetBooking(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t)
	assert.Equal(t, booking.StatusActive, b.Status)
	assert.Equal(t, f.studentNumber, b.StudentNumber)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/bookings/"+b.ID.String(), nil), f.token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestBookingsRequireStaffToken(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/bookings", map[string]string{
		"student_number": f.studentNumber,
		"session_id":     f.sessionID.String(),
	})
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestRecordPaymentOverHTTP(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/bookings/"+b.ID.String()+"/payments", map[string]string{
		"reference": "EFT-1001",
	}), f.token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	p := testutil.UnmarshalResponse[booking.Payment](t, rr)
	assert.Equal(t, int64(15000), p.AmountCents, "amount comes from the session fee")
	assert.Equal(t, "manual", p.Provider)
}

func TestCancelBookingOverHTTP(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodDelete, "/bookings/"+b.ID.String(), map[string]string{
		"reason": "student request",
	}), f.token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	cancelled := testutil.UnmarshalResponse[booking.Booking](t, rr)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)

	list := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/students/"+f.studentNumber+"/bookings", nil), f.token)
	listRR := testutil.DoRequest(f.router, list)
	testutil.AssertStatus(t, listRR, http.StatusOK)
	history := *testutil.UnmarshalResponse[[]*booking.Booking](t, listRR)
	require.Len(t, history, 1)
}

func TestBadBookingID(t *testing.T) {
	f := newFixture(t)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/bookings/not-a-uuid", nil), f.token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "bad_request")
}
