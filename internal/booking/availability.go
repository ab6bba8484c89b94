package booking

import (
	"context"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// Availability is the bookable picture of one room on one date.
type Availability struct {
	RoomID   string
	Date     string
	Closed   bool
	Reason   string
	Windows  []schedule.TimeSlot
	Sessions []SessionAvailability
}

type SessionAvailability struct {
	Start     schedule.ClockTime
	End       schedule.ClockTime
	Available bool
}

func (s *service) Availability(ctx context.Context, roomID, date string) (*Availability, error) {
	rm, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.Active {
		return nil, ErrRoomNotFound
	}

	windows, err := schedule.ResolveDay(rm.Schedule, date)
	if err != nil {
		return nil, apperror.With(ErrFormat, err)
	}
	sessions, err := schedule.GenerateSessions(rm.Schedule, date, rm.DurationMinutes)
	if err != nil {
		return nil, apperror.With(ErrInvalidInput, err)
	}

	out := &Availability{
		RoomID:   rm.ID,
		Date:     date,
		Windows:  windows,
		Sessions: make([]SessionAvailability, 0, len(sessions)),
	}
	if off, reason := rm.Schedule.IsDayOff(date); off {
		out.Closed = true
		out.Reason = reason
	} else if len(windows) == 0 {
		out.Closed = true
	}
	if len(sessions) == 0 {
		return out, nil
	}

	dayStart, err := s.instant(date, "00:00")
	if err != nil {
		return nil, err
	}
	linked, err := s.rooms.LinkGroup(ctx, rm)
	if err != nil {
		return nil, err
	}
	booked, err := Conflicting(ctx, s.repo, dayStart, dayStart.AddDate(0, 0, 1), rm.ID, linked, "")
	if err != nil {
		return nil, err
	}

	for _, session := range sessions {
		start, err := s.instant(date, string(session.Start))
		if err != nil {
			return nil, err
		}
		end := schedule.AddMinutes(start, rm.DurationMinutes)

		available := true
		for _, b := range booked {
			if schedule.Overlaps(b.StartTime, b.EndTime, start, end) {
				available = false
				break
			}
		}
		out.Sessions = append(out.Sessions, SessionAvailability{
			Start:     session.Start,
			End:       session.End,
			Available: available,
		})
	}
	return out, nil
}
