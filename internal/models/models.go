package models

import (
	"strings"
	"time"

	"lovenest/internal/apperr"
)

// Entity is anything kept in a keyed collection
type Entity interface {
	EntityID() string
}

// Identity is the authenticated user
type Identity struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
}

// Session is the backend session of the signed-in user
type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         Identity  `json:"user" yaml:"user"`
}

// Expired reports whether the access token is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// WishCategory groups wish-list items
type WishCategory string

const (
	WishTravel    WishCategory = "travel"
	WishMovies    WishCategory = "movies"
	WishShopping  WishCategory = "shopping"
	WishAdventure WishCategory = "adventure"
	WishFood      WishCategory = "food"
	WishOther     WishCategory = "other"
)

// WishCategories lists the known categories in display order
var WishCategories = []WishCategory{WishTravel, WishMovies, WishShopping, WishAdventure, WishFood, WishOther}

// NormalizeWishCategory maps unknown or empty categories to WishOther
func NormalizeWishCategory(c string) WishCategory {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range WishCategories {
		if string(known) == c {
			return known
		}
	}
	return WishOther
}

// WishItem is a shared wish-list ("bucket list") entry
type WishItem struct {
	ID          ID           `json:"id,omitempty" yaml:"id"`
	Text        string       `json:"text" yaml:"text"`
	Category    WishCategory `json:"category" yaml:"category"`
	Description *string      `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool         `json:"completed" yaml:"completed"`
	CreatedAt   time.Time    `json:"created_at,omitzero" yaml:"created_at"`
}

func (w WishItem) EntityID() string { return string(w.ID) }

// Coupon is a redeemable favour voucher
type Coupon struct {
	ID        ID        `json:"id,omitempty" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Redeemed  bool      `json:"redeemed" yaml:"redeemed"`
	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at"`
}

func (c Coupon) EntityID() string { return string(c.ID) }

// Location is where a milestone happened
type Location struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
	Name string  `json:"name" yaml:"name"`
}

// Milestone is a dated event in the couple's story
type Milestone struct {
	ID          ID        `json:"id,omitempty" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Date        string    `json:"date" yaml:"date"`
	Description string    `json:"description" yaml:"description"`
	Image       *string   `json:"image,omitempty" yaml:"image,omitempty"`
	Location    *Location `json:"location,omitempty" yaml:"location,omitempty"`
}

func (m Milestone) EntityID() string { return string(m.ID) }

// Validate checks the fields required by the milestone form
func (m Milestone) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return apperr.Invalid("title", "title is required")
	}
	if _, err := time.Parse(time.DateOnly, m.Date); err != nil {
		return apperr.Invalid("date", "date must be YYYY-MM-DD")
	}
	return nil
}

// NoteColor is the colour of a sticky note
type NoteColor string

const (
	NoteYellow NoteColor = "yellow"
	NoteRose   NoteColor = "rose"
	NoteBlue   NoteColor = "blue"
	NoteGreen  NoteColor = "green"
	NotePurple NoteColor = "purple"
)

// NormalizeNoteColor maps unknown colours to yellow
func NormalizeNoteColor(c string) NoteColor {
	switch NoteColor(c) {
	case NoteYellow, NoteRose, NoteBlue, NoteGreen, NotePurple:
		return NoteColor(c)
	}
	return NoteYellow
}

// Note is a sticky note on the shared board
type Note struct {
	ID        ID        `json:"id,omitempty"`
	Content   string    `json:"content"`
	Color     NoteColor `json:"color"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (n Note) EntityID() string { return string(n.ID) }

// Message is a chat message between the two partners
type Message struct {
	ID        ID        `json:"id,omitempty"`
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	Read      bool      `json:"read"`
}

func (m Message) EntityID() string { return string(m.ID) }

// PushNotification is the body accepted by the push relay function
type PushNotification struct {
	Message  string `json:"message"`
	Heading  string `json:"heading,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// Theme is the view colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
