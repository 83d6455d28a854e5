package merchants

import (
	"strconv"
	"strings"
	"time"
)

// StoreState classifies a store at a point in time.
type StoreState string

const (
	StateOpen       StoreState = "open"
	StateClosed     StoreState = "closed"
	StateNoSchedule StoreState = "no_schedule"
)

// nearClosingWindow is how close to closing time a store is flagged as
// about to close.
const nearClosingWindow = 90 * time.Minute

// StoreStatus is the derived open/closed state shown on listings.
type StoreStatus struct {
	State       StoreState `json:"state"`
	NearClosing bool       `json:"near_closing"`
}

// StatusAt derives the store status for the given instant. Windows that
// cross midnight (open > close, e.g. 22:00 to 06:00) are honored: such a
// store is open late in the evening and into the following morning.
// Malformed or missing entries yield StateNoSchedule rather than an error.
func (ws WeekSchedule) StatusAt(now time.Time) StoreStatus {
	if len(ws) == 0 {
		return StoreStatus{State: StateNoSchedule}
	}
	day, ok := ws[strings.ToLower(now.Weekday().String())]
	if !ok {
		// A window that crosses midnight on the previous day can keep the
		// store open during the early hours of a day with no entry.
		if status, carried := ws.carriedOver(now); carried {
			return status
		}
		return StoreStatus{State: StateNoSchedule}
	}
	if day.Closed {
		if status, carried := ws.carriedOver(now); carried {
			return status
		}
		return StoreStatus{State: StateClosed}
	}

	openMin, okOpen := parseClock(day.Open)
	closeMin, okClose := parseClock(day.Close)
	if !okOpen || !okClose {
		return StoreStatus{State: StateNoSchedule}
	}

	cur := now.Hour()*60 + now.Minute()
	if openMin <= closeMin {
		if cur >= openMin && cur < closeMin {
			return openStatus(closeMin - cur)
		}
	} else if cur >= openMin {
		// Crossed-midnight window, evening side.
		return openStatus(minutesPerDay - cur + closeMin)
	}

	if status, carried := ws.carriedOver(now); carried {
		return status
	}
	return StoreStatus{State: StateClosed}
}

const minutesPerDay = 24 * 60

// carriedOver checks whether yesterday's window crossed midnight and still
// covers the current time.
func (ws WeekSchedule) carriedOver(now time.Time) (StoreStatus, bool) {
	yesterday := now.AddDate(0, 0, -1)
	day, ok := ws[strings.ToLower(yesterday.Weekday().String())]
	if !ok || day.Closed {
		return StoreStatus{}, false
	}
	openMin, okOpen := parseClock(day.Open)
	closeMin, okClose := parseClock(day.Close)
	if !okOpen || !okClose || openMin <= closeMin {
		return StoreStatus{}, false
	}
	cur := now.Hour()*60 + now.Minute()
	if cur < closeMin {
		return openStatus(closeMin - cur), true
	}
	return StoreStatus{}, false
}

func openStatus(minutesLeft int) StoreStatus {
	return StoreStatus{
		State:       StateOpen,
		NearClosing: time.Duration(minutesLeft)*time.Minute <= nearClosingWindow,
	}
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
