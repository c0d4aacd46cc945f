// Package venue manages test venues and their rooms.
package venue

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "nbtbook/pkg/domain-errors"
)

// MaxRoomCapacity caps a single room; larger values are almost always typos.
const MaxRoomCapacity = 1000

// Venue is a physical location where test sessions run.
type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	Rooms     []Room    `json:"rooms"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a bookable space inside a venue. Capacity bounds the seats a
// session held in this room can offer.
type Room struct {
	ID       uuid.UUID `json:"id"`
	VenueID  uuid.UUID `json:"venue_id"`
	Name     string    `json:"name"`
	Capacity int       `json:"capacity"`
}

func NewVenue(name, city, address string, now time.Time) (*Venue, error) {
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	if name == "" || len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "venue name must be 1 to 128 characters")
	}
	if city == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "venue city cannot be empty")
	}
	return &Venue{
		ID:        uuid.New(),
		Name:      name,
		City:      city,
		Address:   strings.TrimSpace(address),
		Active:    true,
		Rooms:     []Room{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func NewRoom(venueID uuid.UUID, name string, capacity int) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, dErrors.New(dErrors.CodeValidation, "room name cannot be empty")
	}
	if capacity < 1 || capacity > MaxRoomCapacity {
		return Room{}, dErrors.Newf(dErrors.CodeValidation, "room capacity must be between 1 and %d", MaxRoomCapacity)
	}
	return Room{
		ID:       uuid.New(),
		VenueID:  venueID,
		Name:     name,
		Capacity: capacity,
	}, nil
}

// Room returns the room with the given ID, if the venue has it.
func (v *Venue) Room(roomID uuid.UUID) (Room, bool) {
	for _, r := range v.Rooms {
		if r.ID == roomID {
			return r, true
		}
	}
	return Room{}, false
}

// Deactivate takes the venue out of service for new sessions.
func (v *Venue) Deactivate(now time.Time) error {
	if !v.Active {
		return dErrors.New(dErrors.CodeConflict, "venue is already inactive")
	}
	v.Active = false
	v.UpdatedAt = now
	return nil
}
