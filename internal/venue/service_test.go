package venue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "nbtbook/pkg/domain-errors"
)

func TestCreateAndAddRoom(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	v, err := svc.Create(ctx, "  Cape Town Campus ", "Cape Town", "1 Main Rd")
	require.NoError(t, err)
	assert.Equal(t, "Cape Town Campus", v.Name, "name is trimmed")
	assert.True(t, v.Active)

	room, err := svc.AddRoom(ctx, v.ID, "Hall A", 120)
	require.NoError(t, err)
	assert.Equal(t, 120, room.Capacity)

	loaded, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Rooms, 1)
	found, ok := loaded.Room(room.ID)
	require.True(t, ok)
	assert.Equal(t, "Hall A", found.Name)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "Cape Town Campus", "Cape Town", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "cape town campus", "Cape Town", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAddRoomRejections(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	v, err := svc.Create(ctx, "Campus", "City", "")
	require.NoError(t, err)

	_, err = svc.AddRoom(ctx, v.ID, "", 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.AddRoom(ctx, v.ID, "Hall", 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.AddRoom(ctx, v.ID, "Hall", MaxRoomCapacity+1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.AddRoom(ctx, uuid.New(), "Hall", 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = svc.AddRoom(ctx, v.ID, "Hall A", 10)
	require.NoError(t, err)
	_, err = svc.AddRoom(ctx, v.ID, "hall a", 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeactivateBlocksNewRooms(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	v, err := svc.Create(ctx, "Campus", "City", "")
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = svc.AddRoom(ctx, v.ID, "Hall A", 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = svc.Deactivate(ctx, v.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestList(t *testing.T) {
	svc := NewService(NewInMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "Zeta Campus", "City", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Alpha Campus", "City", "")
	require.NoError(t, err)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha Campus", out[0].Name, "sorted by name")
}
