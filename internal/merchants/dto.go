package merchants

import "time"

// SignupRequest is the payload for merchant registration. The account is
// created in the pending queue and only becomes visible after approval.
type SignupRequest struct {
	Name           string  `json:"name" validate:"required,min=2,max=120"`
	Email          string  `json:"email" validate:"required,email"`
	SecondaryEmail string  `json:"secondary_email" validate:"omitempty,email"`
	Password       string  `json:"password" validate:"required,min=8,max=72"`
	WhatsApp       string  `json:"whatsapp" validate:"omitempty,max=20"`
	Street         string  `json:"street" validate:"max=200"`
	Number         string  `json:"number" validate:"max=20"`
	Complement     string  `json:"complement" validate:"max=100"`
	City           string  `json:"city" validate:"required,max=100"`
	State          string  `json:"state" validate:"required,len=2"`
	PostalCode     string  `json:"postal_code" validate:"omitempty,max=10"`
	Latitude       *string `json:"latitude"`
	Longitude      *string `json:"longitude"`
	Delivers       bool    `json:"delivers"`
	Description    string  `json:"description" validate:"max=2000"`
}

// UpdateProfileRequest carries partial profile edits. Nil fields are left
// untouched.
type UpdateProfileRequest struct {
	Name           *string           `json:"name" validate:"omitempty,min=2,max=120"`
	SecondaryEmail *string           `json:"secondary_email" validate:"omitempty,email"`
	WhatsApp       *string           `json:"whatsapp" validate:"omitempty,max=20"`
	Street         *string           `json:"street" validate:"omitempty,max=200"`
	Number         *string           `json:"number" validate:"omitempty,max=20"`
	Complement     *string           `json:"complement" validate:"omitempty,max=100"`
	City           *string           `json:"city" validate:"omitempty,max=100"`
	State          *string           `json:"state" validate:"omitempty,len=2"`
	PostalCode     *string           `json:"postal_code" validate:"omitempty,max=10"`
	Latitude       *string           `json:"latitude"`
	Longitude      *string           `json:"longitude"`
	Delivers       *bool             `json:"delivers"`
	Description    *string           `json:"description" validate:"omitempty,max=2000"`
	Schedule       WeekSchedule      `json:"schedule"`
	Socials        map[string]string `json:"socials"`
}

// MerchantJSON is the API projection of a merchant profile.
type MerchantJSON struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	SecondaryEmail string            `json:"secondary_email,omitempty"`
	WhatsApp       string            `json:"whatsapp,omitempty"`
	Street         string            `json:"street,omitempty"`
	Number         string            `json:"number,omitempty"`
	Complement     string            `json:"complement,omitempty"`
	City           string            `json:"city"`
	State          string            `json:"state"`
	PostalCode     string            `json:"postal_code,omitempty"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	Delivers       bool              `json:"delivers"`
	Description    string            `json:"description,omitempty"`
	PhotoURL       string            `json:"photo_url,omitempty"`
	Schedule       WeekSchedule      `json:"schedule,omitempty"`
	Socials        map[string]string `json:"socials,omitempty"`
	Status         Status            `json:"status"`
	StoreStatus    StoreStatus       `json:"store_status"`
	RegisteredAt   time.Time         `json:"registered_at"`
}

// ToJSON projects a merchant for API responses, deriving the live store
// status at the given instant.
func ToJSON(m *Merchant, now time.Time) MerchantJSON {
	return MerchantJSON{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		SecondaryEmail: m.SecondaryEmail,
		WhatsApp:       m.WhatsApp,
		Street:         m.Street,
		Number:         m.Number,
		Complement:     m.Complement,
		City:           m.City,
		State:          m.State,
		PostalCode:     m.PostalCode,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Delivers:       m.Delivers,
		Description:    m.Description,
		PhotoURL:       m.PhotoURL,
		Schedule:       m.Schedule,
		Socials:        m.Socials,
		Status:         m.Status,
		StoreStatus:    m.Schedule.StatusAt(now),
		RegisteredAt:   m.RegisteredAt,
	}
}
