package http

import (
	"strings"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/booking"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/request"
	roomHttp "github.com/nekogravitycat/escape-room-booking/internal/room/http"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	RoomID        string     `form:"room_id" binding:"omitempty,uuid"`
	CustomerID    string     `form:"customer_id" binding:"omitempty,uuid"`
	CustomerEmail string     `form:"customer_email" binding:"omitempty,email"`
	Status        string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy        string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status players"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

func (r *ListBookingsRequest) Filter() booking.Filter {
	return booking.Filter{
		RoomID:        r.RoomID,
		CustomerID:    r.CustomerID,
		CustomerEmail: r.CustomerEmail,
		Status:        r.Status,
		StartTime:     r.From,
		EndTime:       r.To,
		Page:          r.Page,
		PageSize:      r.PageSize,
		SortBy:        r.SortBy,
		SortOrder:     r.SortOrder,
	}
}

type CustomerTag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type BookingResponse struct {
	ID        string           `json:"id"`
	Room      roomHttp.RoomTag `json:"room"`
	Customer  CustomerTag      `json:"customer"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Players   int              `json:"players"`
	Price     float64          `json:"price"`
	Status    string           `json:"status"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:   b.ID,
		Room: roomHttp.RoomTag{ID: b.RoomID, Name: b.RoomName},
		Customer: CustomerTag{
			ID:    b.CustomerID,
			Name:  b.CustomerName,
			Email: b.CustomerEmail,
			Phone: b.CustomerPhone,
		},
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Players:   b.Players,
		Price:     b.Price,
		Status:    string(b.Status),
		Notes:     b.Notes,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// CreateBookingRequest is a customer's reservation request. Date and start
// time are wall-clock values in the venue's zone.
type CreateBookingRequest struct {
	RoomID    string          `json:"room_id" binding:"required,uuid"`
	Date      string          `json:"date" binding:"required"`
	StartTime string          `json:"start_time" binding:"required"`
	Players   int             `json:"players" binding:"required"`
	Customer  CustomerRequest `json:"customer"`
	Notes     string          `json:"notes" binding:"max=1000"`
}

type EditBookingRequest struct {
	RoomID    *string `json:"room_id" binding:"omitempty,uuid"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Players   *int    `json:"players"`
	Notes     *string `json:"notes" binding:"omitempty,max=1000"`
}

// Normalize trims the wall-clock fields the way Create does.
func (r *EditBookingRequest) Normalize() {
	r.Date = trimmed(r.Date)
	r.StartTime = trimmed(r.StartTime)
	r.EndTime = trimmed(r.EndTime)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
}

type AvailabilityRequest struct {
	Date string `form:"date" binding:"required"`
}

type SessionResponse struct {
	Start     schedule.ClockTime `json:"start"`
	End       schedule.ClockTime `json:"end"`
	Available bool               `json:"available"`
}

type AvailabilityResponse struct {
	RoomID   string              `json:"room_id"`
	Date     string              `json:"date"`
	Closed   bool                `json:"closed"`
	Reason   string              `json:"reason,omitempty"`
	Windows  []schedule.TimeSlot `json:"windows"`
	Sessions []SessionResponse   `json:"sessions"`
}

func NewAvailabilityResponse(a *booking.Availability) AvailabilityResponse {
	windows := a.Windows
	if windows == nil {
		windows = []schedule.TimeSlot{}
	}
	sessions := make([]SessionResponse, len(a.Sessions))
	for i, s := range a.Sessions {
		sessions[i] = SessionResponse{Start: s.Start, End: s.End, Available: s.Available}
	}
	return AvailabilityResponse{
		RoomID:   a.RoomID,
		Date:     a.Date,
		Closed:   a.Closed,
		Reason:   a.Reason,
		Windows:  windows,
		Sessions: sessions,
	}
}
