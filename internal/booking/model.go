package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "booking not found")
	ErrRoomNotFound      = apperror.New(http.StatusNotFound, apperror.KindNotFound, "room not found")
	ErrFormat            = apperror.New(http.StatusBadRequest, apperror.KindFormat, "invalid date or time format")
	ErrInvalidInput      = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "invalid input parameters")
	ErrInvalidPlayers    = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "players outside room capacity")
	ErrInvalidTimeRange  = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "start time must be before end time")
	ErrSlotUnavailable   = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "start time is not an offered session")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "invalid booking status")
	ErrInvalidTransition = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "booking status transition not allowed")
	ErrNotEditable       = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "booking can no longer be edited")
	ErrSlotConflict      = apperror.New(http.StatusConflict, apperror.KindConflict, "time slot already booked")
	ErrPriceNotFound     = apperror.New(http.StatusUnprocessableEntity, apperror.KindNoPrice, "no price for this party size")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Blocks reports whether a booking in this status occupies its interval.
func (s Status) Blocks() bool {
	return s != StatusCancelled
}

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID            string
	RoomID        string
	RoomName      string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StartTime     time.Time
	EndTime       time.Time
	Players       int
	Price         float64
	Status        Status
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Filter struct {
	RoomID        string
	CustomerID    string
	CustomerEmail string
	Status        string
	StartTime     *time.Time // Filter bookings ending after this time
	EndTime       *time.Time // Filter bookings starting before this time
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
