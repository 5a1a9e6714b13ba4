package models

import (
	"encoding/json"
	"time"
)

// Keys of the rows in the app_settings table
const (
	SettingCountdown = "countdown"
	SettingMusic     = "music"
	SettingNextDate  = "next_date"
	SettingStreaks   = "streaks"
)

// DefaultMusicURL plays when no song has been chosen yet
const DefaultMusicURL = "https://open.spotify.com/embed/track/2Lhdl74nwwVGOE2Gv35QuK"

// DefaultCountdownTitle labels the fallback countdown
const DefaultCountdownTitle = "Valentine's Day"

// AppSetting is one keyed JSON blob
type AppSetting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (s AppSetting) EntityID() string { return s.Key }

// Countdown is the target shown by the countdown widget
type Countdown struct {
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
}

// Remaining splits the time left until the target. Past targets yield zeros.
func (c Countdown) Remaining(now time.Time) (days, hours, minutes, seconds int) {
	left := c.Date.Sub(now)
	if left <= 0 {
		return 0, 0, 0, 0
	}
	total := int(left / time.Second)
	days = total / 86400
	hours = total % 86400 / 3600
	minutes = total % 3600 / 60
	seconds = total % 60
	return days, hours, minutes, seconds
}

// Music is the shared song link
type Music struct {
	URL string `json:"url"`
}

// NextDate describes the next planned date
type NextDate struct {
	Date  string `json:"date"`
	Place string `json:"place"`
	Note  string `json:"note,omitempty"`
}

// Streaks is the daily check-in streak
type Streaks struct {
	Count int `json:"count"`
}

// Settings is the typed view over the app_settings rows
type Settings struct {
	Countdown Countdown `json:"countdown"`
	Music     Music     `json:"music"`
	NextDate  *NextDate `json:"next_date,omitempty"`
	Streaks   Streaks   `json:"streaks"`
}

// DefaultCountdown targets the next February 14th after now
func DefaultCountdown(now time.Time) Countdown {
	target := time.Date(now.Year(), time.February, 14, 0, 0, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(1, 0, 0)
	}
	return Countdown{Date: target, Title: DefaultCountdownTitle}
}

// DefaultSettings is what the home screen shows before anything was saved
func DefaultSettings(now time.Time) Settings {
	return Settings{
		Countdown: DefaultCountdown(now),
		Music:     Music{URL: DefaultMusicURL},
	}
}

// SettingsFrom overlays rows onto the defaults. Rows that are missing or do
// not decode keep the default.
func SettingsFrom(rows []AppSetting, now time.Time) Settings {
	s := DefaultSettings(now)
	for _, row := range rows {
		switch row.Key {
		case SettingCountdown:
			var c Countdown
			if json.Unmarshal(row.Value, &c) == nil && !c.Date.IsZero() {
				if c.Title == "" {
					c.Title = DefaultCountdownTitle
				}
				s.Countdown = c
			}
		case SettingMusic:
			var m Music
			if json.Unmarshal(row.Value, &m) == nil && m.URL != "" {
				s.Music = m
			}
		case SettingNextDate:
			var n NextDate
			if json.Unmarshal(row.Value, &n) == nil {
				s.NextDate = &n
			}
		case SettingStreaks:
			var st Streaks
			if json.Unmarshal(row.Value, &st) == nil {
				s.Streaks = st
			}
		}
	}
	return s
}
