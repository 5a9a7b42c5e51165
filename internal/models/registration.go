package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a finalized hackathon signup. Rows never change after
// insert; corrections happen out of band.
type Registration struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	WhatsappNumber *string   `json:"whatsapp_number,omitempty"`
	LinkedinURL    *string   `json:"linkedin_url,omitempty"`
	ResumePath     *string   `json:"resume_path,omitempty"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	AccessToken    *string   `json:"-"`
	IsWaitlist     bool      `json:"is_waitlist"`
	CreatedAt      time.Time `json:"created_at"`
}

// RegistrationStats summarizes signups for the admin dashboard.
type RegistrationStats struct {
	Total      int `json:"total"`
	Confirmed  int `json:"confirmed"`
	Waitlisted int `json:"waitlisted"`
	Today      int `json:"today"`
	Incomplete int `json:"incomplete"`
	Capacity   int `json:"capacity"`
}
