package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbtbook/internal/venue"
	dErrors "nbtbook/pkg/domain-errors"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type stubCounter struct {
	counts map[uuid.UUID]int
}

func (c *stubCounter) CountActiveBySession(_ context.Context, id uuid.UUID) (int, error) {
	return c.counts[id], nil
}

func newTestService(t *testing.T) (*Service, *venue.Venue, venue.Room, *stubCounter) {
	t.Helper()
	venues := venue.NewService(venue.NewInMemoryStore(), venue.WithClock(fixedClock))
	v, err := venues.Create(context.Background(), "Campus", "City", "")
	require.NoError(t, err)
	room, err := venues.AddRoom(context.Background(), v.ID, "Hall A", 100)
	require.NoError(t, err)

	counter := &stubCounter{counts: map[uuid.UUID]int{}}
	svc := NewService(NewInMemoryStore(), venues, WithClock(fixedClock), WithBookingCounter(counter))
	return svc, v, room, counter
}

func validInput(v *venue.Venue, room venue.Room) CreateInput {
	return CreateInput{
		VenueID:              v.ID,
		RoomID:               room.ID,
		StartsAt:             testNow.Add(30 * 24 * time.Hour),
		RegistrationOpensAt:  testNow.Add(-24 * time.Hour),
		RegistrationClosesAt: testNow.Add(20 * 24 * time.Hour),
		FeeCents:             15000,
	}
}

func TestCreateSession(t *testing.T) {
	svc, v, room, _ := newTestService(t)

	sess, err := svc.Create(context.Background(), validInput(v, room))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, sess.Status)
	assert.Equal(t, 100, sess.Capacity, "defaults to the room capacity")
	assert.True(t, sess.RegistrationOpen(testNow))
}

func TestCreateSessionRejections(t *testing.T) {
	svc, v, room, _ := newTestService(t)
	ctx := context.Background()

	t.Run("capacity above room", func(t *testing.T) {
		input := validInput(v, room)
		input.Capacity = 101
		_, err := svc.Create(ctx, input)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("closes after start", func(t *testing.T) {
		input := validInput(v, room)
		input.RegistrationClosesAt = input.StartsAt.Add(time.Hour)
		_, err := svc.Create(ctx, input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("opens after closes", func(t *testing.T) {
		input := validInput(v, room)
		input.RegistrationOpensAt = input.RegistrationClosesAt.Add(time.Hour)
		_, err := svc.Create(ctx, input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("start in the past", func(t *testing.T) {
		input := validInput(v, room)
		input.StartsAt = testNow.Add(-time.Hour)
		input.RegistrationOpensAt = testNow.Add(-48 * time.Hour)
		input.RegistrationClosesAt = testNow.Add(-24 * time.Hour)
		_, err := svc.Create(ctx, input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown room", func(t *testing.T) {
		input := validInput(v, room)
		input.RoomID = uuid.New()
		_, err := svc.Create(ctx, input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestRegistrationWindow(t *testing.T) {
	svc, v, room, _ := newTestService(t)
	sess, err := svc.Create(context.Background(), validInput(v, room))
	require.NoError(t, err)

	assert.False(t, sess.RegistrationOpen(sess.RegistrationOpensAt.Add(-time.Minute)))
	assert.True(t, sess.RegistrationOpen(sess.RegistrationOpensAt))
	assert.False(t, sess.RegistrationOpen(sess.RegistrationClosesAt), "closing instant is closed")
}

func TestCancel(t *testing.T) {
	svc, v, room, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Create(ctx, validInput(v, room))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.RegistrationOpen(testNow))

	_, err = svc.Cancel(ctx, sess.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAvailability(t *testing.T) {
	svc, v, room, counter := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput(v, room))
	require.NoError(t, err)
	input := validInput(v, room)
	input.StartsAt = input.StartsAt.Add(24 * time.Hour)
	second, err := svc.Create(ctx, input)
	require.NoError(t, err)

	counter.counts[first.ID] = 40

	out, err := svc.UpcomingAvailability(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := map[uuid.UUID]Availability{}
	for _, a := range out {
		byID[a.SessionID] = a
	}
	assert.Equal(t, 60, byID[first.ID].Remaining)
	assert.Equal(t, 100, byID[second.ID].Remaining)
}

func TestAvailabilityNeverNegative(t *testing.T) {
	svc, v, room, counter := newTestService(t)
	sess, err := svc.Create(context.Background(), validInput(v, room))
	require.NoError(t, err)

	counter.counts[sess.ID] = 150
	out, err := svc.AvailabilityFor(context.Background(), []uuid.UUID{sess.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].Remaining)
}
