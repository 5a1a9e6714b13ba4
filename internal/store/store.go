// Package store is the application state container. It owns the signed-in
// identity and every shared collection, and is the only place that
// mutates them.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/cache"
	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
)

// Gateway is the remote backend as seen by the store
type Gateway interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context) error

	ListMoods(ctx context.Context) ([]models.Mood, error)
	CreateMood(ctx context.Context, userID string, mood models.MoodCategory, note *string) (models.Mood, error)

	ListWishes(ctx context.Context) ([]models.WishItem, error)
	CreateWish(ctx context.Context, item models.WishItem) (models.WishItem, error)
	SetWishCompleted(ctx context.Context, id string, completed bool) error
	DeleteWish(ctx context.Context, id string) error

	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	CreateCoupon(ctx context.Context, title string) (models.Coupon, error)
	RedeemCoupon(ctx context.Context, id string) error
	DeleteCoupon(ctx context.Context, id string) error

	ListMilestones(ctx context.Context) ([]models.Milestone, error)
	CreateMilestone(ctx context.Context, m models.Milestone) (models.Milestone, error)

	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, content string, color models.NoteColor, author string) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListMessages(ctx context.Context) ([]models.Message, error)
	SendMessage(ctx context.Context, senderID, content string) (models.Message, error)
	MarkMessagesRead(ctx context.Context, ids []string) error

	ListSettings(ctx context.Context) ([]models.AppSetting, error)
	PutSetting(ctx context.Context, key string, value json.RawMessage) error

	ListFolders(ctx context.Context, parentID *models.ID) ([]models.Folder, error)
	CreateFolder(ctx context.Context, name string, parentID *models.ID) (models.Folder, error)
	RenameFolder(ctx context.Context, id, name string) (models.Folder, error)
	DeleteFolder(ctx context.Context, id string) error

	ListMemories(ctx context.Context, folderID *models.ID) ([]models.Memory, error)
	UploadMemory(ctx context.Context, in models.MemoryUpload) (models.Memory, error)
	UpdateMemory(ctx context.Context, id string, patch models.MemoryPatch) (models.Memory, error)
	DeleteMemory(ctx context.Context, id string) error

	Notify(ctx context.Context, n models.PushNotification) (json.RawMessage, error)
}

// Cache persists device-local state between runs
type Cache interface {
	Load() (cache.Snapshot, error)
	Save(cache.Snapshot) error
}

// NoticeLevel is the severity of a toast
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeSuccess NoticeLevel = "success"
)

// Notice is a transient message for the user
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Observer is told about every state change. Calls are made without the
// store lock held and may come from any goroutine.
type Observer interface {
	Changed(collection string)
	Notice(n Notice)
}

// Option configures a Store
type Option func(*Store)

// WithCache persists theme, session and the fallback collections in c
func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

// WithObserver registers o for change and notice callbacks
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLocation sets the timezone that decides calendar days
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithAnniversary sets the date the couple got together
func WithAnniversary(t time.Time) Option {
	return func(s *Store) { s.anniversary = t }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds the session and every per-user collection
type Store struct {
	gw          Gateway
	cache       Cache
	observer    Observer
	loc         *time.Location
	anniversary time.Time
	now         func() time.Time

	mu         sync.Mutex
	generation uint64
	session    *models.Session
	theme      models.Theme
	detach     func()
	onToken    TokenFunc
	refreshMu  sync.Mutex

	moods      collection[models.Mood]
	wishes     collection[models.WishItem]
	coupons    collection[models.Coupon]
	milestones collection[models.Milestone]
	notes      collection[models.Note]
	messages   collection[models.Message]
	settings   collection[models.AppSetting]
	folders    collection[models.Folder]

	persistMu sync.Mutex
}

// New creates a store on top of gw and restores any cached state
func New(gw Gateway, opts ...Option) *Store {
	s := &Store{
		gw:         gw,
		loc:        time.Local,
		now:        time.Now,
		theme:      models.ThemeLight,
		moods:      collection[models.Mood]{name: CollectionMoods},
		wishes:     collection[models.WishItem]{name: CollectionWishes},
		coupons:    collection[models.Coupon]{name: CollectionCoupons},
		milestones: collection[models.Milestone]{name: CollectionMilestones},
		notes:      collection[models.Note]{name: CollectionNotes},
		messages:   collection[models.Message]{name: CollectionMessages},
		settings:   collection[models.AppSetting]{name: CollectionSettings},
		folders:    collection[models.Folder]{name: CollectionFolders},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

// Identity returns the signed-in user
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.Identity{}, false
	}
	return s.session.User, true
}

// AccessToken returns the token of the current session
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// Login signs in with a password. A rejected login returns the backend's
// AuthError unchanged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	sess, err := s.gw.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.establish(sess)
	log.Info().Str("user_id", sess.User.ID).Msg("Signed in")
	return nil
}

// SignUp registers an account and signs it in when the backend hands out
// a session right away
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	sess, err := s.gw.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if sess == nil {
		s.notify(Notice{Level: NoticeSuccess, Message: "Check your e-mail to confirm the account"})
		return nil
	}
	s.establish(sess)
	log.Info().Str("user_id", sess.User.ID).Msg("Signed up")
	return nil
}

// Resume restores the cached session by refreshing it. A rejected refresh
// drops the cached session.
func (s *Store) Resume(ctx context.Context) error {
	s.mu.Lock()
	cached := s.session
	s.mu.Unlock()
	if cached == nil {
		return apperr.Auth("resume session", "no session", nil)
	}

	sess, err := s.gw.Refresh(ctx, cached.RefreshToken)
	if err != nil {
		if apperr.IsAuth(err) {
			s.mu.Lock()
			if s.session == cached {
				s.session = nil
				s.generation++
			}
			s.mu.Unlock()
			s.changed(CollectionSession)
		}
		return err
	}
	s.establish(sess)
	log.Info().Str("user_id", sess.User.ID).Msg("Session resumed")
	return nil
}

// establish installs sess. A different user starts a new generation.
func (s *Store) establish(sess *models.Session) {
	s.mu.Lock()
	if s.session == nil || s.session.User.ID != sess.User.ID {
		s.generation++
	}
	s.session = sess
	s.mu.Unlock()
	s.changed(CollectionSession)
}

// Logout clears the identity and every per-user collection. The remote
// sign-out is best effort; its failure is only logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	detach := s.clear()
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	if err := s.gw.SignOut(ctx); err != nil {
		log.Error().Err(err).Msg("Remote sign-out failed")
	}
	log.Info().Msg("Signed out")
	s.changedAll()
}

// clear drops the session and every per-user collection and starts a new
// generation. It returns the detach func of the change feed, if any. The
// caller holds s.mu.
func (s *Store) clear() func() {
	s.generation++
	s.session = nil
	detach := s.detach
	s.detach = nil
	s.moods.reset()
	s.wishes.reset()
	s.coupons.reset()
	s.milestones.reset()
	s.notes.reset()
	s.messages.reset()
	s.settings.reset()
	s.folders.reset()
	return detach
}

func (s *Store) changedAll() {
	for _, name := range []string{
		CollectionSession, CollectionMoods, CollectionWishes, CollectionCoupons,
		CollectionMilestones, CollectionNotes, CollectionMessages,
		CollectionSettings, CollectionFolders,
	} {
		s.changed(name)
	}
}

// Theme returns the current colour scheme
func (s *Store) Theme() models.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// ToggleTheme switches between light and dark
func (s *Store) ToggleTheme() models.Theme {
	s.mu.Lock()
	s.theme = s.theme.Toggle()
	t := s.theme
	s.mu.Unlock()
	s.changed(CollectionTheme)
	return t
}

// DaysTogether counts whole days since the anniversary, or zero when none
// is configured
func (s *Store) DaysTogether(now time.Time) int {
	if s.anniversary.IsZero() {
		return 0
	}
	start := time.Date(s.anniversary.Year(), s.anniversary.Month(), s.anniversary.Day(), 0, 0, 0, 0, s.loc)
	n := now.In(s.loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
	if today.Before(start) {
		return 0
	}
	return int(today.Sub(start).Hours()+12) / 24
}

// State is a copy of everything the view renders
type State struct {
	Identity   *models.Identity   `json:"identity"`
	Theme      models.Theme       `json:"theme"`
	Moods      []models.Mood      `json:"moods"`
	Wishes     []models.WishItem  `json:"wishes"`
	Coupons    []models.Coupon    `json:"coupons"`
	Milestones []models.Milestone `json:"milestones"`
	Notes      []models.Note      `json:"notes"`
	Messages   []models.Message   `json:"messages"`
	Settings   models.Settings    `json:"settings"`
	Folders    []models.Folder    `json:"folders"`
	Days       int                `json:"days_together"`
}

// State returns a snapshot of the whole store
func (s *Store) State() State {
	now := s.now()
	s.mu.Lock()
	st := State{
		Theme:      s.theme,
		Moods:      s.moods.snapshot(),
		Wishes:     s.wishes.snapshot(),
		Coupons:    s.coupons.snapshot(),
		Milestones: s.milestones.snapshot(),
		Notes:      s.notes.snapshot(),
		Messages:   s.messages.snapshot(),
		Settings:   models.SettingsFrom(s.settings.items, now),
		Folders:    s.folders.snapshot(),
	}
	if s.session != nil {
		id := s.session.User
		st.Identity = &id
	}
	s.mu.Unlock()
	st.Days = s.DaysTogether(now)
	return st
}

func (s *Store) changed(name string) {
	switch name {
	case CollectionSession, CollectionTheme, CollectionWishes, CollectionCoupons, CollectionMilestones:
		s.persist()
	}
	if s.observer != nil {
		s.observer.Changed(name)
	}
}

func (s *Store) notify(n Notice) {
	if s.observer != nil {
		s.observer.Notice(n)
	}
}
