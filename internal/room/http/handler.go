package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/request"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/response"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

type Handler struct {
	service room.Service
}

func NewHandler(service room.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid query parameters")
		return
	}
	req.Normalize()

	// Inactive rooms are hidden unless explicitly asked for.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	filter := room.Filter{
		Name:      strings.TrimSpace(req.Name),
		Active:    &active,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: strings.ToUpper(req.SortOrder),
	}

	rooms, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RoomResponse, len(rooms))
	for i, r := range rooms {
		items[i] = NewResponse(r)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	rm, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(rm))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	rm, err := h.service.Create(c.Request.Context(), room.CreateRequest{
		Name:            body.Name,
		Description:     body.Description,
		Active:          body.Active,
		DurationMinutes: body.DurationMinutes,
		CapacityMin:     body.CapacityMin,
		CapacityMax:     body.CapacityMax,
		Prices:          body.Prices,
		Schedule:        body.Schedule,
		LinkedRoomIDs:   body.LinkedRoomIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewResponse(rm))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	rm, err := h.service.Update(c.Request.Context(), uri.ID, room.UpdateRequest{
		Name:            body.Name,
		Description:     body.Description,
		Active:          body.Active,
		DurationMinutes: body.DurationMinutes,
		CapacityMin:     body.CapacityMin,
		CapacityMax:     body.CapacityMax,
		LinkedRoomIDs:   body.LinkedRoomIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(rm))
}

func (h *Handler) SetSchedule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	var body schedule.Schedule
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid schedule document")
		return
	}

	rm, err := h.service.SetSchedule(c.Request.Context(), uri.ID, body)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(rm))
}

func (h *Handler) SetPrices(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	var body []pricing.Row
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid price table")
		return
	}

	rm, err := h.service.SetPrices(c.Request.Context(), uri.ID, body)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewResponse(rm))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
