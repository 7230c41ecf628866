package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AgendaItem is one slot in an event's schedule.
type AgendaItem struct {
	Time  string `json:"time"`
	Title string `json:"title"`
}

// Speaker is a listed guest or host for an event.
type Speaker struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Event is a published chapter event.
//
// DeleteScheduledAt drives the soft-delete lifecycle: nil means the event is
// active, a future timestamp means it is scheduled for deletion and can still
// be restored, a past timestamp makes it eligible for reclamation.
type Event struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	EventDate         *time.Time      `json:"event_date,omitempty"`
	EventTime         string          `json:"event_time"`
	Venue             string          `json:"venue"`
	PosterURL         string          `json:"poster_url,omitempty"`
	MediaURLs         []string        `json:"media_urls,omitempty"`
	Agenda            json.RawMessage `json:"agenda,omitempty"`
	Speakers          json.RawMessage `json:"speakers,omitempty"`
	CreatedBy         *uuid.UUID      `json:"created_by,omitempty"`
	DeleteScheduledAt *time.Time      `json:"delete_scheduled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AssetURLs returns every externally stored media URL attached to the event.
func (e *Event) AssetURLs() []string {
	urls := make([]string, 0, len(e.MediaURLs)+1)
	if e.PosterURL != "" {
		urls = append(urls, e.PosterURL)
	}
	urls = append(urls, e.MediaURLs...)
	return urls
}
