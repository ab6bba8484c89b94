package booking

import (
	"context"
	"sort"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/schedule"
)

// ConflictQuery selects non-cancelled bookings on any of RoomIDs whose
// interval overlaps [Start, End), excluding ExcludeBookingID when set.
type ConflictQuery struct {
	RoomIDs          []string
	Start            time.Time
	End              time.Time
	ExcludeBookingID string
}

// Querier is the persistence capability the conflict detector needs.
type Querier interface {
	FindConflicting(ctx context.Context, q ConflictQuery) ([]*Booking, error)
}

// RoomGroup returns roomID and its linked rooms, deduplicated and sorted.
// The order doubles as the lock acquisition order for writes.
func RoomGroup(roomID string, linked []string) []string {
	seen := map[string]bool{roomID: true}
	group := []string{roomID}
	for _, id := range linked {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		group = append(group, id)
	}
	sort.Strings(group)
	return group
}

// HasConflict reports whether a non-cancelled booking on roomID or any of
// linked overlaps [start, end). excludeID, when set, is never counted, so a
// booking does not conflict with itself on edit.
func HasConflict(ctx context.Context, q Querier, start, end time.Time, roomID string, linked []string, excludeID string) (bool, error) {
	found, err := Conflicting(ctx, q, start, end, roomID, linked, excludeID)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Conflicting is HasConflict returning the overlapping bookings.
func Conflicting(ctx context.Context, q Querier, start, end time.Time, roomID string, linked []string, excludeID string) ([]*Booking, error) {
	if !start.Before(end) {
		return nil, ErrInvalidTimeRange
	}

	group := RoomGroup(roomID, linked)
	candidates, err := q.FindConflicting(ctx, ConflictQuery{
		RoomIDs:          group,
		Start:            start,
		End:              end,
		ExcludeBookingID: excludeID,
	})
	if err != nil {
		return nil, err
	}

	// Re-apply the filter; the querier is trusted for the shape, not the semantics.
	inGroup := make(map[string]bool, len(group))
	for _, id := range group {
		inGroup[id] = true
	}
	var out []*Booking
	for _, b := range candidates {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if !b.Status.Blocks() || !inGroup[b.RoomID] {
			continue
		}
		if schedule.Overlaps(b.StartTime, b.EndTime, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}
