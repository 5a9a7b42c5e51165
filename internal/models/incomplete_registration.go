package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IncompleteRegistration captures a partially filled form for follow-up.
// Rows are created and updated by the public API but only ever read
// through the admin API.
type IncompleteRegistration struct {
	ID             uuid.UUID       `json:"id"`
	Email          *string         `json:"email,omitempty"`
	WhatsappNumber *string         `json:"whatsapp_number,omitempty"`
	FullName       *string         `json:"full_name,omitempty"`
	FormSnapshot   json.RawMessage `json:"form_snapshot,omitempty"`
	IPAddress      *string         `json:"ip_address,omitempty"`
	UserAgent      *string         `json:"user_agent,omitempty"`
	Completed      bool            `json:"completed"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	FirstEnteredAt time.Time       `json:"first_entered_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}
