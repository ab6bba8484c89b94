package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

type CreateRequest struct {
	Name            string
	Description     string
	Active          *bool
	DurationMinutes int
	CapacityMin     int
	CapacityMax     int
	Prices          []pricing.Row
	Schedule        schedule.Schedule
	LinkedRoomIDs   []string
}

type UpdateRequest struct {
	Name            *string
	Description     *string
	Active          *bool
	DurationMinutes *int
	CapacityMin     *int
	CapacityMax     *int
	LinkedRoomIDs   *[]string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Room, error)
	SetSchedule(ctx context.Context, id string, s schedule.Schedule) (*Room, error)
	SetPrices(ctx context.Context, id string, rows []pricing.Row) (*Room, error)
	Delete(ctx context.Context, id string) error

	// LinkGroup returns the rooms that share capacity with rm, in both link
	// directions, excluding rm itself. The result is sorted.
	LinkGroup(ctx context.Context, rm *Room) ([]string, error)

	// Sync upserts rooms by name from declarative seeds.
	Sync(ctx context.Context, seeds []Seed) (SyncResult, error)
}

type service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With().Str("component", "room").Logger(),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Room, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rm := &Room{
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Active:          active,
		DurationMinutes: req.DurationMinutes,
		CapacityMin:     req.CapacityMin,
		CapacityMax:     req.CapacityMax,
		Schedule:        req.Schedule,
		LinkedRoomIDs:   dedupe(req.LinkedRoomIDs),
	}

	prices, err := checkedPrices(req.Prices)
	if err != nil {
		return nil, err
	}
	rm.Prices = prices

	if err := s.validate(ctx, rm); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rm); err != nil {
		return nil, err
	}
	s.logger.Info().Str("room_id", rm.ID).Str("name", rm.Name).Msg("room created")
	return rm, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Room, error) {
	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rm.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rm.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		rm.Active = *req.Active
	}
	if req.DurationMinutes != nil {
		rm.DurationMinutes = *req.DurationMinutes
	}
	if req.CapacityMin != nil {
		rm.CapacityMin = *req.CapacityMin
	}
	if req.CapacityMax != nil {
		rm.CapacityMax = *req.CapacityMax
	}
	if req.LinkedRoomIDs != nil {
		rm.LinkedRoomIDs = dedupe(*req.LinkedRoomIDs)
	}

	if err := s.validate(ctx, rm); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) SetSchedule(ctx context.Context, id string, sched schedule.Schedule) (*Room, error) {
	if err := sched.Validate(); err != nil {
		return nil, apperror.With(ErrInvalidSchedule, err)
	}

	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.Schedule = sched

	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) SetPrices(ctx context.Context, id string, rows []pricing.Row) (*Room, error) {
	prices, err := checkedPrices(rows)
	if err != nil {
		return nil, err
	}

	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.Prices = prices

	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("room_id", id).Msg("room deleted")
	return nil
}

func (s *service) LinkGroup(ctx context.Context, rm *Room) ([]string, error) {
	linking, err := s.repo.ListLinking(ctx, rm.ID)
	if err != nil {
		return nil, err
	}

	group := make([]string, 0, len(rm.LinkedRoomIDs)+len(linking))
	group = append(group, rm.LinkedRoomIDs...)
	group = append(group, linking...)
	group = without(dedupe(group), rm.ID)
	sort.Strings(group)
	return group, nil
}

func (s *service) Sync(ctx context.Context, seeds []Seed) (SyncResult, error) {
	var result SyncResult
	ids := make(map[string]string, len(seeds))

	// Links are resolved in a second pass so seeds may reference each other in any order.
	for _, seed := range seeds {
		prices, err := checkedPrices(seed.Prices)
		if err != nil {
			return result, fmt.Errorf("room %q: %w", seed.Name, err)
		}

		existing, err := s.repo.GetByName(ctx, seed.Name)
		switch {
		case errors.Is(err, ErrNotFound):
			rm := seed.toRoom(prices)
			if err := s.validate(ctx, rm); err != nil {
				return result, fmt.Errorf("room %q: %w", seed.Name, err)
			}
			if err := s.repo.Create(ctx, rm); err != nil {
				return result, fmt.Errorf("room %q: %w", seed.Name, err)
			}
			ids[seed.Name] = rm.ID
			result.Created++
		case err != nil:
			return result, fmt.Errorf("room %q: %w", seed.Name, err)
		default:
			rm := seed.toRoom(prices)
			rm.ID = existing.ID
			rm.CreatedAt = existing.CreatedAt
			rm.LinkedRoomIDs = existing.LinkedRoomIDs
			if err := s.validate(ctx, rm); err != nil {
				return result, fmt.Errorf("room %q: %w", seed.Name, err)
			}
			if err := s.repo.Update(ctx, rm); err != nil {
				return result, fmt.Errorf("room %q: %w", seed.Name, err)
			}
			ids[seed.Name] = rm.ID
			result.Updated++
		}
	}

	for _, seed := range seeds {
		linked := make([]string, 0, len(seed.Links))
		for _, name := range seed.Links {
			id, ok := ids[name]
			if !ok {
				other, err := s.repo.GetByName(ctx, name)
				if err != nil {
					return result, fmt.Errorf("room %q: link %q: %w", seed.Name, name, err)
				}
				id = other.ID
			}
			linked = append(linked, id)
		}

		rm, err := s.repo.GetByID(ctx, ids[seed.Name])
		if err != nil {
			return result, err
		}
		rm.LinkedRoomIDs = dedupe(linked)
		if err := s.validate(ctx, rm); err != nil {
			return result, fmt.Errorf("room %q: %w", seed.Name, err)
		}
		if err := s.repo.Update(ctx, rm); err != nil {
			return result, fmt.Errorf("room %q: %w", seed.Name, err)
		}
	}

	s.logger.Info().Int("created", result.Created).Int("updated", result.Updated).Msg("rooms synced")
	return result, nil
}

func (s *service) validate(ctx context.Context, rm *Room) error {
	if rm.Name == "" {
		return ErrEmptyName
	}
	if rm.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if rm.CapacityMin < 1 || rm.CapacityMin > rm.CapacityMax {
		return ErrInvalidCapacity
	}
	if err := rm.Schedule.Validate(); err != nil {
		return apperror.With(ErrInvalidSchedule, err)
	}

	for _, id := range rm.LinkedRoomIDs {
		if id == rm.ID {
			return ErrSelfLink
		}
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnknownLink
			}
			return err
		}
	}
	return nil
}

func (seed Seed) toRoom(prices pricing.Table) *Room {
	return &Room{
		Name:            strings.TrimSpace(seed.Name),
		Description:     strings.TrimSpace(seed.Description),
		Active:          seed.Active,
		DurationMinutes: seed.DurationMinutes,
		CapacityMin:     seed.CapacityMin,
		CapacityMax:     seed.CapacityMax,
		Prices:          prices,
		Schedule:        seed.Schedule,
		LinkedRoomIDs:   []string{},
	}
}

// checkedPrices rejects malformed rows outright instead of letting
// Normalize drop them silently.
func checkedPrices(rows []pricing.Row) (pricing.Table, error) {
	for _, r := range rows {
		if r.Players <= 0 || r.Price < 0 {
			return nil, ErrInvalidPriceRows
		}
	}
	return pricing.Normalize(rows), nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
