// Package merchants manages merchant accounts: signup, approval, profile
// data, opening hours and account lifecycle.
package merchants

import "time"

// Status is the lifecycle state of a merchant account.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// DaySchedule holds the opening window for a single weekday.
// Times are "HH:MM" in the store's local time. Closed marks the whole
// day as closed regardless of the window.
type DaySchedule struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// WeekSchedule maps lowercase English weekday names ("monday".."sunday")
// to their opening windows. Days without an entry have no schedule.
type WeekSchedule map[string]DaySchedule

// Merchant is a store account. Coordinates are kept as entered, possibly
// broken; repair happens at search time.
type Merchant struct {
	ID             string
	AuthUserID     string
	Name           string
	Email          string
	SecondaryEmail string
	PasswordHash   string
	WhatsApp       string
	Description    string

	Street     string
	Number     string
	Complement string
	City       string
	State      string
	PostalCode string

	Latitude  *float64
	Longitude *float64

	Delivers bool
	PhotoURL string
	Schedule WeekSchedule
	Socials  map[string]string

	Status       Status
	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccessEntry is a login record kept for the admin panel.
type AccessEntry struct {
	MerchantID string
	At         time.Time
	IP         string
	UserAgent  string
}
