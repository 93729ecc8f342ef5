package domain

import (
	"strings"
	"time"
)

// Event is the canonical domain object held by the store.
// date is a calendar date (YYYY-MM-DD); time is display-only.
type Event struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	City        string `json:"city,omitempty"`
	Address     string `json:"address,omitempty"`
	Host        string `json:"host,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Image       string `json:"image,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Attendees   int    `json:"attendees"`
	IsRsvped    bool   `json:"isRsvped"`
}

// Draft is the input to Create: everything the organizer supplies.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	City        string `json:"city"`
	Address     string `json:"address"`
	Host        string `json:"host"`
	ImageURL    string `json:"imageUrl"`
	Capacity    int    `json:"capacity,omitempty"`
}

// Event types offered by the create form. The list filter only offers the
// first five; Entertainment and Fitness are the extended variants.
const (
	TypeWorkshop      = "Workshop"
	TypeEntertainment = "Entertainment"
	TypeFitness       = "Fitness"
	TypeMusic         = "Music"
	TypeSports        = "Sports"
	TypeMeetup        = "Meetup"
	TypeOther         = "Other"
)

var EventTypes = []string{
	TypeWorkshop, TypeEntertainment, TypeFitness, TypeMusic, TypeSports, TypeMeetup, TypeOther,
}

// Validation constraints
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 5000
	DateLayout        = "2006-01-02"
)

// NewEvent materializes a draft into an event with the given id.
func NewEvent(id int, d Draft) Event {
	return Event{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Type:        d.Type,
		Date:        d.Date,
		Time:        d.Time,
		Location:    JoinLocation(d.Address, d.City),
		City:        d.City,
		Address:     d.Address,
		Host:        d.Host,
		ImageURL:    d.ImageURL,
		Capacity:    d.Capacity,
	}
}

// JoinLocation renders "address, city" skipping empty parts.
func JoinLocation(address, city string) string {
	parts := make([]string, 0, 2)
	if a := strings.TrimSpace(address); a != "" {
		parts = append(parts, a)
	}
	if c := strings.TrimSpace(city); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns
// midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
