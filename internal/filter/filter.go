// Package filter derives the displayed subset of events from the canonical
// collection. Everything here is a pure function of its inputs.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/golocalevents/internal/domain"
)

// Any is accepted in place of an empty value to mean "no constraint".
const Any = "any"

// Criteria is the search term plus the structured filter set.
// Zero values are inactive.
type Criteria struct {
	Search    string
	Type      string
	Location  string
	StartDate time.Time
}

// ParseCriteria builds Criteria from raw text inputs (query string, CLI flags).
func ParseCriteria(search, typ, location, startDate string) (Criteria, error) {
	c := Criteria{
		Search:   strings.TrimSpace(search),
		Type:     unset(typ),
		Location: unset(location),
	}
	if sd := unset(startDate); sd != "" {
		t, err := domain.ParseDate(sd)
		if err != nil {
			return Criteria{}, fmt.Errorf("startDate: %w", err)
		}
		c.StartDate = t
	}
	return c, nil
}

func unset(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, Any) {
		return ""
	}
	return v
}

// Active reports whether any predicate is set.
func (c Criteria) Active() bool {
	return c.Search != "" || c.Type != "" || c.Location != "" || !c.StartDate.IsZero()
}

// Apply returns the events satisfying every active predicate, in input order.
// The input slice is never modified; the result is always a new slice.
func Apply(events []domain.Event, c Criteria) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	search := strings.ToLower(c.Search)
	location := strings.ToLower(c.Location)

	for _, ev := range events {
		if search != "" && !matchesSearch(ev, search) {
			continue
		}
		if c.Type != "" && ev.Type != c.Type {
			continue
		}
		if location != "" && !containsFold(ev.Location, location) {
			continue
		}
		if !c.StartDate.IsZero() && !onOrAfter(ev.Date, c.StartDate) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Limit keeps the first n events; n <= 0 keeps all of them. The home view's
// featured list is Limit(events, 3) over the unfiltered collection.
func Limit(events []domain.Event, n int) []domain.Event {
	if n <= 0 || n >= len(events) {
		return events
	}
	return events[:n:n]
}

// ParseLimit accepts an empty string (no limit) or a non-negative integer.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit: want a non-negative integer, got %q", raw)
	}
	return n, nil
}

// Matches reports whether a single event passes c.
func Matches(ev domain.Event, c Criteria) bool {
	return len(Apply([]domain.Event{ev}, c)) == 1
}

func matchesSearch(ev domain.Event, lowerTerm string) bool {
	return containsFold(ev.Title, lowerTerm) || containsFold(ev.Description, lowerTerm)
}

// lowerNeedle must already be lower-cased; empty haystacks never match.
func containsFold(haystack, lowerNeedle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func onOrAfter(date string, from time.Time) bool {
	if date == "" {
		return false
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return false
	}
	return !d.Before(from)
}
