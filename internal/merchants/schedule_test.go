package merchants

import (
	"testing"
	"time"
)

// at builds a time on a fixed Monday at the given clock.
func at(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+clock)
	if err != nil {
		t.Fatalf("parse clock %q: %v", clock, err)
	}
	if ts.Weekday() != time.Monday {
		t.Fatalf("fixture date is %s, want Monday", ts.Weekday())
	}
	return ts
}

func TestStatusAtRegularWindow(t *testing.T) {
	ws := WeekSchedule{"monday": {Open: "08:00", Close: "18:00"}}

	if got := ws.StatusAt(at(t, "10:00")); got.State != StateOpen || got.NearClosing {
		t.Fatalf("10:00: got %+v, want open, not near closing", got)
	}
	if got := ws.StatusAt(at(t, "17:00")); got.State != StateOpen || !got.NearClosing {
		t.Fatalf("17:00: got %+v, want open and near closing", got)
	}
	if got := ws.StatusAt(at(t, "07:59")); got.State != StateClosed {
		t.Fatalf("07:59: got %+v, want closed", got)
	}
	if got := ws.StatusAt(at(t, "18:00")); got.State != StateClosed {
		t.Fatalf("18:00: got %+v, want closed at closing time", got)
	}
}

func TestStatusAtMidnightWrap(t *testing.T) {
	ws := WeekSchedule{
		"monday":  {Open: "22:00", Close: "06:00"},
		"tuesday": {Closed: true},
	}

	if got := ws.StatusAt(at(t, "23:00")); got.State != StateOpen {
		t.Fatalf("23:00: got %+v, want open", got)
	}
	if got := ws.StatusAt(at(t, "21:00")); got.State != StateClosed {
		t.Fatalf("21:00: got %+v, want closed before opening", got)
	}

	// Tuesday 05:00 is still covered by Monday's window even though
	// Tuesday itself is marked closed.
	tue5 := at(t, "05:00").AddDate(0, 0, 1)
	if got := ws.StatusAt(tue5); got.State != StateOpen || !got.NearClosing {
		t.Fatalf("tuesday 05:00: got %+v, want open and near closing", got)
	}
	tue7 := at(t, "07:00").AddDate(0, 0, 1)
	if got := ws.StatusAt(tue7); got.State != StateClosed {
		t.Fatalf("tuesday 07:00: got %+v, want closed", got)
	}
}

func TestStatusAtNoSchedule(t *testing.T) {
	if got := (WeekSchedule)(nil).StatusAt(at(t, "12:00")); got.State != StateNoSchedule {
		t.Fatalf("nil schedule: got %+v, want no_schedule", got)
	}
	ws := WeekSchedule{"monday": {Open: "8h", Close: "18:00"}}
	if got := ws.StatusAt(at(t, "12:00")); got.State != StateNoSchedule {
		t.Fatalf("malformed open: got %+v, want no_schedule", got)
	}
	ws = WeekSchedule{"tuesday": {Open: "08:00", Close: "18:00"}}
	if got := ws.StatusAt(at(t, "12:00")); got.State != StateNoSchedule {
		t.Fatalf("missing day: got %+v, want no_schedule", got)
	}
}

func TestStatusAtClosedDay(t *testing.T) {
	ws := WeekSchedule{"monday": {Closed: true}}
	if got := ws.StatusAt(at(t, "12:00")); got.State != StateClosed {
		t.Fatalf("closed day: got %+v, want closed", got)
	}
}
