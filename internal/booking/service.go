package booking

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/customer"
	"github.com/nekogravitycat/escape-room-booking/internal/metrics"
	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// RoomProvider is the slice of the room service bookings depend on.
type RoomProvider interface {
	GetByID(ctx context.Context, id string) (*room.Room, error)
	LinkGroup(ctx context.Context, rm *room.Room) ([]string, error)
}

type CreateRequest struct {
	RoomID    string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	Players   int
	Customer  customer.Contact
	Notes     string
	Status    Status // pending (default) or confirmed
}

type EditRequest struct {
	RoomID    *string
	Date      *string
	StartTime *string
	EndTime   *string
	Players   *int
	Notes     *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Edit(ctx context.Context, id string, req EditRequest) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Booking, error)
	Cancel(ctx context.Context, id string) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Availability(ctx context.Context, roomID, date string) (*Availability, error)
	Export(ctx context.Context, filter Filter, w io.Writer) error
}

type Options struct {
	// Location is the zone wall-clock times are interpreted in.
	Location *time.Location
	// StrictPricing rejects party sizes missing from the price table.
	StrictPricing bool
	// WriteTimeout bounds the locked write transaction. Zero means no limit.
	WriteTimeout time.Duration
}

type service struct {
	repo   Repository
	rooms  RoomProvider
	opts   Options
	logger zerolog.Logger
}

func NewService(repo Repository, rooms RoomProvider, opts Options, logger zerolog.Logger) Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &service{
		repo:   repo,
		rooms:  rooms,
		opts:   opts,
		logger: logger.With().Str("component", "booking").Logger(),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	b, err := s.create(ctx, req)
	if err != nil {
		s.rejected("create", req.RoomID, err)
		return nil, err
	}
	metrics.IncBookingCreated(string(b.Status))
	s.logger.Info().
		Str("booking_id", b.ID).
		Str("room_id", b.RoomID).
		Time("start", b.StartTime).
		Int("players", b.Players).
		Msg("booking created")
	return b, nil
}

func (s *service) create(ctx context.Context, req CreateRequest) (*Booking, error) {
	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if status != StatusPending && status != StatusConfirmed {
		return nil, ErrInvalidStatus
	}

	// 1. Room
	rm, err := s.room(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !rm.Active {
		return nil, ErrRoomNotFound
	}

	// 2. Input format and party size
	start, err := s.instant(req.Date, req.StartTime)
	if err != nil {
		return nil, err
	}
	if err := checkPlayers(rm, req.Players); err != nil {
		return nil, err
	}
	if err := customer.Validate(req.Customer); err != nil {
		return nil, err
	}

	// 3. Offered session
	end := schedule.AddMinutes(start, rm.DurationMinutes)
	if err := s.checkOffered(rm, req.Date, req.StartTime); err != nil {
		return nil, err
	}

	// 4. Conflicts across the link group
	linked, err := s.rooms.LinkGroup(ctx, rm)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, s.repo, start, end, rm.ID, linked, ""); err != nil {
		return nil, err
	}

	// 5. Price
	price, err := s.price(rm, req.Players)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		RoomID:    rm.ID,
		RoomName:  rm.Name,
		StartTime: start,
		EndTime:   end,
		Players:   req.Players,
		Price:     price,
		Status:    status,
		Notes:     strings.TrimSpace(req.Notes),
	}

	// 6. Customer and insert under the link-group lock
	err = s.locked(ctx, rm.ID, linked, func(ctx context.Context, tx Tx) error {
		if err := s.checkConflict(ctx, tx, start, end, rm.ID, linked, ""); err != nil {
			return err
		}
		c, err := customer.Resolve(ctx, tx.Customers(), req.Customer)
		if err != nil {
			return err
		}
		b.CustomerID = c.ID
		b.CustomerName = c.Name
		b.CustomerEmail = c.Email
		b.CustomerPhone = c.Phone
		return tx.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) Edit(ctx context.Context, id string, req EditRequest) (*Booking, error) {
	b, err := s.edit(ctx, id, req)
	if err != nil {
		s.rejected("edit", id, err)
		return nil, err
	}
	s.logger.Info().Str("booking_id", b.ID).Time("start", b.StartTime).Msg("booking edited")
	return b, nil
}

func (s *service) edit(ctx context.Context, id string, req EditRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled || b.Status == StatusCompleted {
		return nil, ErrNotEditable
	}

	roomChanged := req.RoomID != nil && *req.RoomID != b.RoomID
	roomID := b.RoomID
	if roomChanged {
		roomID = *req.RoomID
	}
	rm, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if roomChanged && !rm.Active {
		return nil, ErrRoomNotFound
	}

	local := b.StartTime.In(s.opts.Location)
	date := local.Format(schedule.DateLayout)
	startClock := local.Format(schedule.ClockLayout)
	slotChanged := roomChanged
	if req.Date != nil && *req.Date != date {
		date = *req.Date
		slotChanged = true
	}
	if req.StartTime != nil && *req.StartTime != startClock {
		startClock = *req.StartTime
		slotChanged = true
	}

	players := b.Players
	if req.Players != nil {
		players = *req.Players
	}
	if err := checkPlayers(rm, players); err != nil {
		return nil, err
	}

	start, end := b.StartTime, b.EndTime
	if slotChanged {
		if start, err = s.instant(date, startClock); err != nil {
			return nil, err
		}
		if err := s.checkOffered(rm, date, startClock); err != nil {
			return nil, err
		}
		end = schedule.AddMinutes(start, rm.DurationMinutes)
	}
	if req.EndTime != nil {
		if end, err = s.instant(date, *req.EndTime); err != nil {
			return nil, err
		}
	}
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	linked, err := s.rooms.LinkGroup(ctx, rm)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflict(ctx, s.repo, start, end, rm.ID, linked, b.ID); err != nil {
		return nil, err
	}

	price := b.Price
	if roomChanged || players != b.Players {
		if price, err = s.price(rm, players); err != nil {
			return nil, err
		}
	}

	b.RoomID = rm.ID
	b.RoomName = rm.Name
	b.StartTime = start
	b.EndTime = end
	b.Players = players
	b.Price = price
	if req.Notes != nil {
		b.Notes = strings.TrimSpace(*req.Notes)
	}

	err = s.locked(ctx, rm.ID, linked, func(ctx context.Context, tx Tx) error {
		if err := s.checkConflict(ctx, tx, start, end, rm.ID, linked, b.ID); err != nil {
			return err
		}
		return tx.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == status {
		return b, nil
	}
	if !CanTransition(b.Status, status) {
		return nil, ErrInvalidTransition
	}

	// Reviving a cancelled booking is not a transition, so a status change
	// never adds occupancy and needs no conflict check.
	updatedAt, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = updatedAt

	metrics.IncBookingStatusChanged(string(status))
	s.logger.Info().Str("booking_id", id).Str("status", string(status)).Msg("booking status changed")
	return b, nil
}

func (s *service) Cancel(ctx context.Context, id string) (*Booking, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) room(ctx context.Context, id string) (*room.Room, error) {
	rm, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, room.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

func (s *service) instant(date, clock string) (time.Time, error) {
	ct, err := schedule.ParseClock(clock)
	if err != nil {
		return time.Time{}, apperror.With(ErrFormat, err)
	}
	t, err := schedule.CombineIn(date, ct, s.opts.Location)
	if err != nil {
		if errors.Is(err, schedule.ErrFormat) {
			return time.Time{}, apperror.With(ErrFormat, err)
		}
		return time.Time{}, err
	}
	return t, nil
}

func (s *service) checkOffered(rm *room.Room, date, clock string) error {
	ok, err := schedule.Offers(rm.Schedule, date, schedule.ClockTime(clock), rm.DurationMinutes)
	if err != nil {
		if errors.Is(err, schedule.ErrFormat) {
			return apperror.With(ErrFormat, err)
		}
		return apperror.With(ErrInvalidInput, err)
	}
	if !ok {
		return ErrSlotUnavailable
	}
	return nil
}

func (s *service) checkConflict(ctx context.Context, q Querier, start, end time.Time, roomID string, linked []string, excludeID string) error {
	conflict, err := HasConflict(ctx, q, start, end, roomID, linked, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotConflict
	}
	return nil
}

func (s *service) price(rm *room.Room, players int) (float64, error) {
	res := pricing.Lookup(rm.Prices, players)
	if !res.Found && s.opts.StrictPricing {
		return 0, ErrPriceNotFound
	}
	return res.Price, nil
}

func (s *service) locked(ctx context.Context, roomID string, linked []string, fn func(ctx context.Context, tx Tx) error) error {
	if s.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
	}
	return s.repo.WithRoomLock(ctx, RoomGroup(roomID, linked), fn)
}

func (s *service) rejected(op, ref string, err error) {
	kind := apperror.KindOf(err)
	metrics.IncBookingRejected(string(kind))
	if kind == apperror.KindInternal {
		s.logger.Error().Err(err).Str("op", op).Str("ref", ref).Msg("booking write failed")
		return
	}
	s.logger.Debug().Err(err).Str("op", op).Str("ref", ref).Str("kind", string(kind)).Msg("booking rejected")
}

func checkPlayers(rm *room.Room, players int) error {
	if players <= 0 {
		return ErrInvalidInput
	}
	if !rm.Fits(players) {
		return ErrInvalidPlayers
	}
	return nil
}
