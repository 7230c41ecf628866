package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationChallenge is one outstanding email OTP attempt.
//
// PollToken lets the requesting client retrieve the code out of band once the
// recipient has clicked the allow-autofill link. Consumption clears PollToken
// and AutofillAllowed in one atomic step so only the first poller wins. Only
// the most recently created challenge per email is ever trusted.
type VerificationChallenge struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Code            string    `json:"-"`
	PollToken       *string   `json:"-"`
	AutofillAllowed bool      `json:"autofill_allowed"`
	CreatedAt       time.Time `json:"created_at"`
}
