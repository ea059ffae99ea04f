package models

import (
	"time"

	"github.com/google/uuid"
)

// NoticeCategory distinguishes the four kinds of police bulletins published
// by the portal.
type NoticeCategory string

const (
	CategoryWantedPerson  NoticeCategory = "wanted_person"
	CategoryMissingPerson NoticeCategory = "missing_person"
	CategoryUnknownDead   NoticeCategory = "unknown_dead"
	CategoryStolenGoods   NoticeCategory = "stolen_goods"
)

// Categories lists all valid notice categories, used for input validation
// and list filtering.
var Categories = []NoticeCategory{
	CategoryWantedPerson,
	CategoryMissingPerson,
	CategoryUnknownDead,
	CategoryStolenGoods,
}

// NoticeStatus represents the publishing state of a notice.
type NoticeStatus string

const (
	NoticeStatusDraft     NoticeStatus = "draft"
	NoticeStatusPublished NoticeStatus = "published"
	NoticeStatusClosed    NoticeStatus = "closed"
)

// NoticePriority flags urgent bulletins for prominent placement.
type NoticePriority string

const (
	PriorityNormal NoticePriority = "normal"
	PriorityUrgent NoticePriority = "urgent"
)

// Notice is one published or draft bulletin. Attached media live in the
// media catalog and are referenced by ID.
type Notice struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	Slug         string         `json:"slug"`
	CaseNumber   string         `json:"case_number"`
	Category     NoticeCategory `json:"category"`
	Status       NoticeStatus   `json:"status"`
	Priority     NoticePriority `json:"priority"`
	Summary      string         `json:"summary"`
	Description  string         `json:"description"`
	Station      string         `json:"station"`
	Location     string         `json:"location"`
	IncidentDate *time.Time     `json:"incident_date,omitempty"`
	ContactInfo  string         `json:"contact_info"`
	MediaIDs     []string       `json:"media_ids"`
	AuthorID     uuid.UUID      `json:"author_id"`
	PublishedAt  *time.Time     `json:"published_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsPublished returns true if the notice is visible on the public portal.
func (n *Notice) IsPublished() bool {
	return n.Status == NoticeStatusPublished
}

// ValidCategory reports whether the given string names a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}
