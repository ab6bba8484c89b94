package schedule

// Session is one offerable session on a day.
type Session struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// GenerateStartTimes subdivides the open windows of date into session start
// times of durationMinutes. A start is emitted only if the whole session fits
// in its window. Windows are walked in stored order; a start already emitted
// by an earlier window is skipped.
func GenerateStartTimes(s Schedule, date string, durationMinutes int) ([]ClockTime, error) {
	sessions, err := GenerateSessions(s, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	starts := make([]ClockTime, len(sessions))
	for i, session := range sessions {
		starts[i] = session.Start
	}
	return starts, nil
}

// GenerateSessions is GenerateStartTimes with the matching end times.
func GenerateSessions(s Schedule, date string, durationMinutes int) ([]Session, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	windows, err := ResolveDay(s, date)
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0)
	seen := make(map[int]bool)
	for _, w := range windows {
		// ResolveDay only returns valid windows.
		start, _ := ToMinutes(w.Start)
		end, _ := ToMinutes(w.End)

		for t := start; t+durationMinutes <= end; t += durationMinutes {
			if seen[t] {
				continue
			}
			seen[t] = true
			sessions = append(sessions, Session{
				Start: FromMinutes(t),
				End:   FromMinutes(t + durationMinutes),
			})
		}
	}
	return sessions, nil
}

// Offers reports whether start is one of the generated start times of date.
func Offers(s Schedule, date string, start ClockTime, durationMinutes int) (bool, error) {
	starts, err := GenerateStartTimes(s, date, durationMinutes)
	if err != nil {
		return false, err
	}
	for _, t := range starts {
		if t == start {
			return true, nil
		}
	}
	return false, nil
}
