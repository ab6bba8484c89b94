package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/response"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

const roomID = "6f1c2a3e-8d1b-4c55-9a0e-1f2b3c4d5e6f"

type stubService struct {
	room.Service
	filter   room.Filter
	created  room.CreateRequest
	prices   []pricing.Row
	sched    schedule.Schedule
	setErr   error
	adminHit bool
}

func (s *stubService) List(_ context.Context, filter room.Filter) ([]*room.Room, int, error) {
	s.filter = filter
	return []*room.Room{{ID: roomID, Name: "Vault", Active: true}}, 1, nil
}

func (s *stubService) GetByID(_ context.Context, id string) (*room.Room, error) {
	if id != roomID {
		return nil, room.ErrNotFound
	}
	return &room.Room{ID: roomID, Name: "Vault"}, nil
}

func (s *stubService) Create(_ context.Context, req room.CreateRequest) (*room.Room, error) {
	s.created = req
	return &room.Room{ID: roomID, Name: req.Name, DurationMinutes: req.DurationMinutes}, nil
}

func (s *stubService) SetSchedule(_ context.Context, id string, sched schedule.Schedule) (*room.Room, error) {
	s.sched = sched
	if s.setErr != nil {
		return nil, s.setErr
	}
	return &room.Room{ID: id, Schedule: sched}, nil
}

func (s *stubService) SetPrices(_ context.Context, id string, rows []pricing.Row) (*room.Room, error) {
	s.prices = rows
	return &room.Room{ID: id, Prices: pricing.Normalize(rows)}, nil
}

func (s *stubService) Delete(_ context.Context, id string) error {
	return room.ErrHasBookings
}

func newRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	markAdmin := func(c *gin.Context) {
		svc.adminHit = true
		c.Next()
	}
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), pass, markAdmin)
	return r
}

func executeRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestList_HidesInactiveByDefault(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w := executeRequest(r, http.MethodGet, "/v1/rooms?sort_order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.Active)
	assert.True(t, *svc.filter.Active)
	assert.Equal(t, "DESC", svc.filter.SortOrder)
	assert.False(t, svc.adminHit)

	var page response.PageResponse[RoomResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, []string{}, page.Items[0].LinkedRoomIDs)

	executeRequest(r, http.MethodGet, "/v1/rooms?active=false", nil)
	assert.False(t, *svc.filter.Active)
}

func TestGet(t *testing.T) {
	r := newRouter(&stubService{})

	assert.Equal(t, http.StatusOK, executeRequest(r, http.MethodGet, "/v1/rooms/"+roomID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, executeRequest(r, http.MethodGet, "/v1/rooms/vault", nil).Code)
	assert.Equal(t, http.StatusNotFound, executeRequest(r, http.MethodGet, "/v1/rooms/0b6c7d8e-1a2b-4c3d-8e9f-a0b1c2d3e4f5", nil).Code)
}

func TestCreate(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	body := map[string]any{
		"name":             "Vault",
		"duration_minutes": 60,
		"capacity_min":     2,
		"capacity_max":     6,
		"prices":           []map[string]any{{"players": 2, "price": 40}},
		"schedule": map[string]any{
			"template": map[string]any{"monday": []map[string]string{{"start": "09:00", "end": "12:00"}}},
			"daysOff":  []map[string]string{{"date": "2024-12-25"}},
		},
	}
	w := executeRequest(r, http.MethodPost, "/v1/rooms", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, svc.adminHit)
	assert.Equal(t, "Vault", svc.created.Name)
	assert.Equal(t, []schedule.TimeSlot{{Start: "09:00", End: "12:00"}}, svc.created.Schedule.Template.Monday)
	assert.Equal(t, "2024-12-25", svc.created.Schedule.DaysOff[0].Date)

	body["capacity_min"] = 8
	w = executeRequest(r, http.MethodPost, "/v1/rooms", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetScheduleAndPrices(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	w := executeRequest(r, http.MethodPut, "/v1/rooms/"+roomID+"/prices", []map[string]any{
		{"players": 4, "price": 70},
		{"players": 2, "price": 40},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pricing.Table{{Players: 2, Price: 40}, {Players: 4, Price: 70}}, resp.Prices)

	svc.setErr = room.ErrInvalidSchedule
	w = executeRequest(r, http.MethodPut, "/v1/rooms/"+roomID+"/schedule", map[string]any{"overrides": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete_WithBookings(t *testing.T) {
	w := executeRequest(newRouter(&stubService{}), http.MethodDelete, "/v1/rooms/"+roomID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
