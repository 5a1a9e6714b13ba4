package models

import (
	"strings"
	"time"

	"lovenest/internal/apperr"
)

// MoodCategory is the fixed set of moods a check-in may record
type MoodCategory string

const (
	MoodHappy   MoodCategory = "happy"
	MoodExcited MoodCategory = "excited"
	MoodNeutral MoodCategory = "neutral"
	MoodTired   MoodCategory = "tired"
	MoodSad     MoodCategory = "sad"
)

// MoodCategories lists every valid category in display order
var MoodCategories = []MoodCategory{MoodHappy, MoodExcited, MoodNeutral, MoodTired, MoodSad}

// Valid reports whether m is one of the enumerated categories
func (m MoodCategory) Valid() bool {
	for _, c := range MoodCategories {
		if c == m {
			return true
		}
	}
	return false
}

// ParseMoodCategory validates raw input
func ParseMoodCategory(s string) (MoodCategory, error) {
	m := MoodCategory(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", apperr.Invalid("mood", "unknown mood "+`"`+s+`"`)
	}
	return m, nil
}

// Mood is one daily check-in
type Mood struct {
	ID        ID           `json:"id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	Mood      MoodCategory `json:"mood"`
	Note      *string      `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitzero"`
}

func (m Mood) EntityID() string { return string(m.ID) }

// SameDay reports whether a and b fall on the same calendar day in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
