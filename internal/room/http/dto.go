package http

import (
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/request"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// RoomTag is the short form of a room embedded in other responses.
type RoomTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RoomResponse struct {
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

func NewResponse(r *room.Room) RoomResponse {
	prices := r.Prices
	if prices == nil {
		prices = pricing.Table{}
	}
	linked := r.LinkedRoomIDs
	if linked == nil {
		linked = []string{}
	}
	return RoomResponse{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Active:          r.Active,
		DurationMinutes: r.DurationMinutes,
		CapacityMin:     r.CapacityMin,
		CapacityMax:     r.CapacityMax,
		Prices:          prices,
		Schedule:        r.Schedule,
		LinkedRoomIDs:   linked,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ListRoomsRequest defines query parameters for listing rooms.
type ListRoomsRequest struct {
	request.ListParams
	Name   string `form:"name"`
	Active *bool  `form:"active"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=name created_at duration_minutes"`
}

type CreateRequest struct {
	Name            string            `json:"name" binding:"required"`
	Description     string            `json:"description"`
	Active          *bool             `json:"active"`
	DurationMinutes int               `json:"duration_minutes" binding:"required,min=1"`
	CapacityMin     int               `json:"capacity_min" binding:"required,min=1"`
	CapacityMax     int               `json:"capacity_max" binding:"required,min=1"`
	Prices          []pricing.Row     `json:"prices"`
	Schedule        schedule.Schedule `json:"schedule"`
	LinkedRoomIDs   []string          `json:"linked_room_ids" binding:"omitempty,dive,uuid"`
}

// Validate performs custom validation for CreateRequest.
func (r *CreateRequest) Validate() error {
	if r.CapacityMin > r.CapacityMax {
		return room.ErrInvalidCapacity
	}
	return nil
}

type UpdateRequest struct {
	Name            *string   `json:"name"`
	Description     *string   `json:"description"`
	Active          *bool     `json:"active"`
	DurationMinutes *int      `json:"duration_minutes" binding:"omitempty,min=1"`
	CapacityMin     *int      `json:"capacity_min" binding:"omitempty,min=1"`
	CapacityMax     *int      `json:"capacity_max" binding:"omitempty,min=1"`
	LinkedRoomIDs   *[]string `json:"linked_room_ids" binding:"omitempty,dive,uuid"`
}

// Validate performs custom validation for UpdateRequest.
func (r *UpdateRequest) Validate() error {
	if r.CapacityMin != nil && r.CapacityMax != nil && *r.CapacityMin > *r.CapacityMax {
		return room.ErrInvalidCapacity
	}
	return nil
}
