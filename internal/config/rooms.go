package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
	"github.com/nekogravitycat/escape-room-booking/internal/room"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// RoomConfig describes one room in the rooms file.
type RoomConfig struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	Active          *bool             `yaml:"active,omitempty"` // default true
	DurationMinutes int               `yaml:"duration_minutes"`
	Capacity        CapacityConfig    `yaml:"capacity"`
	Prices          []pricing.Row     `yaml:"prices"`
	Schedule        schedule.Schedule `yaml:"schedule"`
	Links           []string          `yaml:"links,omitempty"`
}

type CapacityConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// RoomsConfig is the root of the rooms file. Holidays close every room.
type RoomsConfig struct {
	Rooms    []RoomConfig      `yaml:"rooms"`
	Holidays []schedule.DayOff `yaml:"holidays"`
}

// LoadRoomsConfig reads, expands ${ENV} references in, and validates a rooms file.
func LoadRoomsConfig(path string) (*RoomsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms config: %w", err)
	}

	var cfg RoomsConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse rooms config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate rooms config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *RoomsConfig) Validate() error {
	if len(c.Rooms) == 0 {
		return fmt.Errorf("at least one room is required")
	}

	names := make(map[string]bool, len(c.Rooms))
	for i, r := range c.Rooms {
		if r.Name == "" {
			return fmt.Errorf("rooms[%d]: name is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("rooms[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true

		if r.DurationMinutes <= 0 {
			return fmt.Errorf("room %q: duration_minutes must be positive", r.Name)
		}
		if r.Capacity.Min < 1 || r.Capacity.Min > r.Capacity.Max {
			return fmt.Errorf("room %q: capacity must satisfy 1 <= min <= max", r.Name)
		}
		for j, p := range r.Prices {
			if p.Players <= 0 || p.Price < 0 {
				return fmt.Errorf("room %q: prices[%d]: players must be positive and price non-negative", r.Name, j)
			}
		}
		if err := r.Schedule.Validate(); err != nil {
			return fmt.Errorf("room %q: schedule: %w", r.Name, err)
		}
	}

	for _, r := range c.Rooms {
		for _, link := range r.Links {
			if link == r.Name {
				return fmt.Errorf("room %q: cannot link to itself", r.Name)
			}
			if !names[link] {
				return fmt.Errorf("room %q: unknown linked room %q", r.Name, link)
			}
		}
	}

	for i, h := range c.Holidays {
		if _, err := schedule.ParseDate(h.Date); err != nil {
			return fmt.Errorf("holidays[%d]: %w", i, err)
		}
	}

	return nil
}

// Seeds converts the file into room seeds, merging holidays into each
// room's days off. A room-level day off wins over a holiday on the same date.
func (c *RoomsConfig) Seeds() []room.Seed {
	seeds := make([]room.Seed, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		active := true
		if r.Active != nil {
			active = *r.Active
		}

		sched := r.Schedule
		sched.DaysOff = mergeDaysOff(r.Schedule.DaysOff, c.Holidays)

		seeds = append(seeds, room.Seed{
			Name:            r.Name,
			Description:     r.Description,
			Active:          active,
			DurationMinutes: r.DurationMinutes,
			CapacityMin:     r.Capacity.Min,
			CapacityMax:     r.Capacity.Max,
			Prices:          r.Prices,
			Schedule:        sched,
			Links:           r.Links,
		})
	}
	return seeds
}

func mergeDaysOff(own, holidays []schedule.DayOff) []schedule.DayOff {
	out := make([]schedule.DayOff, 0, len(own)+len(holidays))
	seen := make(map[string]bool, len(own))
	for _, d := range own {
		seen[d.Date] = true
		out = append(out, d)
	}
	for _, h := range holidays {
		if seen[h.Date] {
			continue
		}
		seen[h.Date] = true
		out = append(out, h)
	}
	return out
}
