package http

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/escape-room-booking/internal/booking"
	"github.com/nekogravitycat/escape-room-booking/internal/customer"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/request"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "invalid request body: "+err.Error())
		return
	}

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		RoomID:    body.RoomID,
		Date:      strings.TrimSpace(body.Date),
		StartTime: strings.TrimSpace(body.StartTime),
		Players:   body.Players,
		Customer: customer.Contact{
			Name:  body.Customer.Name,
			Email: body.Customer.Email,
			Phone: body.Customer.Phone,
		},
		Notes: body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid query parameters")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize()

	bookings, total, err := h.service.List(c.Request.Context(), req.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid booking id")
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Edit(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid booking id")
		return
	}

	var body EditBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "invalid request body: "+err.Error())
		return
	}
	body.Normalize()

	b, err := h.service.Edit(c.Request.Context(), uri.ID, booking.EditRequest{
		RoomID:    body.RoomID,
		Date:      body.Date,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Players:   body.Players,
		Notes:     body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid booking id")
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, apperror.KindInvalidInput, "invalid booking status")
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), uri.ID, booking.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Export(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid query parameters")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), req.Filter(), &buf); err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, apperror.KindFormat, "invalid room id")
		return
	}

	var query AvailabilityRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, apperror.KindFormat, "date is required (YYYY-MM-DD)")
		return
	}

	a, err := h.service.Availability(c.Request.Context(), uri.ID, strings.TrimSpace(query.Date))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAvailabilityResponse(a))
}
