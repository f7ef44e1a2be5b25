package meeting

import "time"

// Meeting is a scheduled call between a prospect and the team. It mirrors
// the meetings table; the HTTP layer renders it through its own DTO.
type Meeting struct {
	ID        string
	Name      string
	Email     string
	Role      *string
	Date      time.Time
	TimeSlot  string
	Agenda    *string
	UserID    *string
	CreatedAt time.Time
}

// CreateRequest is the booking form as submitted. Date accepts RFC 3339 or
// a bare YYYY-MM-DD day.
type CreateRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     *string `json:"role"`
	Date     string  `json:"date"`
	TimeSlot string  `json:"timeSlot"`
	Agenda   *string `json:"agenda"`
	UserID   *string `json:"userId"`
}
