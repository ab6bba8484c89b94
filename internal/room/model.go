package room

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, apperror.KindNotFound, "room not found")
	ErrEmptyName        = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "name cannot be empty")
	ErrNameAlreadyUsed  = apperror.New(http.StatusConflict, apperror.KindInvalidInput, "room name already used")
	ErrInvalidDuration  = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "duration_minutes must be positive")
	ErrInvalidCapacity  = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "capacity must satisfy 1 <= capacity_min <= capacity_max")
	ErrSelfLink         = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "a room cannot be linked to itself")
	ErrUnknownLink      = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "linked room does not exist")
	ErrInvalidSchedule  = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "invalid schedule")
	ErrInvalidPriceRows = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "price rows need positive players and non-negative price")
	ErrHasBookings      = apperror.New(http.StatusConflict, apperror.KindInvalidInput, "room still has bookings; deactivate it instead")
)

// Room is a bookable escape room with its own schedule, pricing and capacity.
// LinkedRoomIDs lists rooms sharing physical space with this one.
type Room struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Active          bool              `json:"active"`
	DurationMinutes int               `json:"duration_minutes"`
	CapacityMin     int               `json:"capacity_min"`
	CapacityMax     int               `json:"capacity_max"`
	Prices          pricing.Table     `json:"prices"`
	Schedule        schedule.Schedule `json:"schedule"`
	LinkedRoomIDs   []string          `json:"linked_room_ids"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Fits reports whether a party of the given size may book the room.
func (r *Room) Fits(players int) bool {
	return players >= r.CapacityMin && players <= r.CapacityMax
}

// Filter defines parameters for listing rooms.
type Filter struct {
	Name      string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Seed is the declarative description of a room loaded from the rooms file.
// Links reference other seeds by name.
type Seed struct {
	Name            string
	Description     string
	Active          bool
	DurationMinutes int
	CapacityMin     int
	CapacityMax     int
	Prices          []pricing.Row
	Schedule        schedule.Schedule
	Links           []string
}

// SyncResult summarizes a Sync run.
type SyncResult struct {
	Created int
	Updated int
}
