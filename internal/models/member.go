package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamMember is one roster entry in a chapter department.
type TeamMember struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Department  string    `json:"department"`
	RollNo      string    `json:"roll_no,omitempty"`
	LinkedinURL string    `json:"linkedin_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
