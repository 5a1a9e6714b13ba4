package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/cache"
	"lovenest/internal/models"
	"lovenest/internal/realtime"

	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

// fakeGateway is an in-memory backend. Calls named in fail return that
// error; calls named in hold wait until the channel is closed.
type fakeGateway struct {
	mu       sync.Mutex
	fail     map[string]error
	hold     map[string]chan struct{}
	entered  chan string
	calls    []string
	nextID   int
	notified []models.PushNotification
	readIDs  []string
	settings []models.AppSetting
	notes    []models.Note
	messages []models.Message
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		fail:    map[string]error{},
		hold:    map[string]chan struct{}{},
		entered: make(chan string, 16),
	}
}

func (f *fakeGateway) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// holdOn makes op block until the returned func is called
func (f *fakeGateway) holdOn(op string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[op] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeGateway) call(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.hold[op]
	err := f.fail[op]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- op
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeGateway) id() models.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return models.ID(fmt.Sprintf("srv-%d", f.nextID))
}

func (f *fakeGateway) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeGateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if err := f.call(ctx, "SignIn"); err != nil {
		return nil, err
	}
	if password != "secret" {
		return nil, apperr.Auth("sign in", "Invalid login credentials", nil)
	}
	return testSession(email), nil
}

func (f *fakeGateway) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	if err := f.call(ctx, "SignUp"); err != nil {
		return nil, err
	}
	return testSession(email), nil
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if err := f.call(ctx, "Refresh"); err != nil {
		return nil, err
	}
	sess := testSession("ana@example.com")
	sess.AccessToken = "renewed-" + refreshToken
	return sess, nil
}

func (f *fakeGateway) SignOut(ctx context.Context) error {
	return f.call(ctx, "SignOut")
}

func (f *fakeGateway) ListMoods(ctx context.Context) ([]models.Mood, error) {
	return nil, f.call(ctx, "ListMoods")
}

func (f *fakeGateway) CreateMood(ctx context.Context, userID string, mood models.MoodCategory, note *string) (models.Mood, error) {
	if err := f.call(ctx, "CreateMood"); err != nil {
		return models.Mood{}, err
	}
	return models.Mood{ID: f.id(), UserID: userID, Mood: mood, Note: note, CreatedAt: time.Now()}, nil
}

func (f *fakeGateway) ListWishes(ctx context.Context) ([]models.WishItem, error) {
	if err := f.call(ctx, "ListWishes"); err != nil {
		return nil, err
	}
	return []models.WishItem{{ID: "w1", Text: "Paris", Category: models.WishTravel}}, nil
}

func (f *fakeGateway) CreateWish(ctx context.Context, item models.WishItem) (models.WishItem, error) {
	if err := f.call(ctx, "CreateWish"); err != nil {
		return models.WishItem{}, err
	}
	item.ID = f.id()
	return item, nil
}

func (f *fakeGateway) SetWishCompleted(ctx context.Context, id string, completed bool) error {
	return f.call(ctx, "SetWishCompleted")
}

func (f *fakeGateway) DeleteWish(ctx context.Context, id string) error {
	return f.call(ctx, "DeleteWish")
}

func (f *fakeGateway) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return nil, f.call(ctx, "ListCoupons")
}

func (f *fakeGateway) CreateCoupon(ctx context.Context, title string) (models.Coupon, error) {
	if err := f.call(ctx, "CreateCoupon"); err != nil {
		return models.Coupon{}, err
	}
	return models.Coupon{ID: f.id(), Title: title}, nil
}

func (f *fakeGateway) RedeemCoupon(ctx context.Context, id string) error {
	return f.call(ctx, "RedeemCoupon")
}

func (f *fakeGateway) DeleteCoupon(ctx context.Context, id string) error {
	return f.call(ctx, "DeleteCoupon")
}

func (f *fakeGateway) ListMilestones(ctx context.Context) ([]models.Milestone, error) {
	return nil, f.call(ctx, "ListMilestones")
}

func (f *fakeGateway) CreateMilestone(ctx context.Context, m models.Milestone) (models.Milestone, error) {
	if err := f.call(ctx, "CreateMilestone"); err != nil {
		return models.Milestone{}, err
	}
	m.ID = f.id()
	return m, nil
}

func (f *fakeGateway) ListNotes(ctx context.Context) ([]models.Note, error) {
	if err := f.call(ctx, "ListNotes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note(nil), f.notes...), nil
}

func (f *fakeGateway) CreateNote(ctx context.Context, content string, color models.NoteColor, author string) (models.Note, error) {
	if err := f.call(ctx, "CreateNote"); err != nil {
		return models.Note{}, err
	}
	return models.Note{ID: f.id(), Content: content, Color: color, Author: author}, nil
}

func (f *fakeGateway) DeleteNote(ctx context.Context, id string) error {
	return f.call(ctx, "DeleteNote")
}

func (f *fakeGateway) ListMessages(ctx context.Context) ([]models.Message, error) {
	if err := f.call(ctx, "ListMessages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.messages...), nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, senderID, content string) (models.Message, error) {
	if err := f.call(ctx, "SendMessage"); err != nil {
		return models.Message{}, err
	}
	return models.Message{ID: "m-1", Content: content, SenderID: senderID}, nil
}

func (f *fakeGateway) MarkMessagesRead(ctx context.Context, ids []string) error {
	if err := f.call(ctx, "MarkMessagesRead"); err != nil {
		return err
	}
	f.mu.Lock()
	f.readIDs = append(f.readIDs, ids...)
	f.mu.Unlock()
	return nil
}

func (f *fakeGateway) ListSettings(ctx context.Context) ([]models.AppSetting, error) {
	if err := f.call(ctx, "ListSettings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeGateway) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	return f.call(ctx, "PutSetting")
}

func (f *fakeGateway) ListFolders(ctx context.Context, parentID *models.ID) ([]models.Folder, error) {
	if err := f.call(ctx, "ListFolders"); err != nil {
		return nil, err
	}
	return []models.Folder{{ID: "f1", Name: "Trips", ParentID: parentID}}, nil
}

func (f *fakeGateway) CreateFolder(ctx context.Context, name string, parentID *models.ID) (models.Folder, error) {
	if err := f.call(ctx, "CreateFolder"); err != nil {
		return models.Folder{}, err
	}
	return models.Folder{ID: f.id(), Name: name, ParentID: parentID}, nil
}

func (f *fakeGateway) RenameFolder(ctx context.Context, id, name string) (models.Folder, error) {
	if err := f.call(ctx, "RenameFolder"); err != nil {
		return models.Folder{}, err
	}
	return models.Folder{ID: models.ID(id), Name: name}, nil
}

func (f *fakeGateway) DeleteFolder(ctx context.Context, id string) error {
	return f.call(ctx, "DeleteFolder")
}

func (f *fakeGateway) ListMemories(ctx context.Context, folderID *models.ID) ([]models.Memory, error) {
	return nil, f.call(ctx, "ListMemories")
}

func (f *fakeGateway) UploadMemory(ctx context.Context, in models.MemoryUpload) (models.Memory, error) {
	if err := f.call(ctx, "UploadMemory"); err != nil {
		return models.Memory{}, err
	}
	return models.Memory{ID: f.id(), Title: in.Title}, nil
}

func (f *fakeGateway) UpdateMemory(ctx context.Context, id string, patch models.MemoryPatch) (models.Memory, error) {
	return models.Memory{ID: models.ID(id)}, f.call(ctx, "UpdateMemory")
}

func (f *fakeGateway) DeleteMemory(ctx context.Context, id string) error {
	return f.call(ctx, "DeleteMemory")
}

func (f *fakeGateway) Notify(ctx context.Context, n models.PushNotification) (json.RawMessage, error) {
	if err := f.call(ctx, "Notify"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.notified = append(f.notified, n)
	f.mu.Unlock()
	return json.RawMessage(`{"id":"push-1"}`), nil
}

func testSession(email string) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         models.Identity{ID: "user-" + email, Email: email},
	}
}

// recorder collects observer callbacks
type recorder struct {
	mu      sync.Mutex
	changed []string
	notices []Notice
}

func (r *recorder) Changed(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, collection)
}

func (r *recorder) Notice(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// memCache is a Cache held in memory
type memCache struct {
	mu    sync.Mutex
	snap  cache.Snapshot
	saves int
}

func (c *memCache) Load() (cache.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, nil
}

func (c *memCache) Save(s cache.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = s
	c.saves++
	return nil
}

func (c *memCache) Snapshot() cache.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// fakeSource is a change feed driven by the test
type fakeSource struct {
	events chan realtime.Event
	closed chan struct{}
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan realtime.Event), closed: make(chan struct{})}
}

func (f *fakeSource) Events() <-chan realtime.Event { return f.events }

func (f *fakeSource) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// signedIn returns a store with a signed-in user
func signedIn(t *testing.T, gw *fakeGateway, opts ...Option) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(gw, append([]Option{WithObserver(rec)}, opts...)...)
	require.NoError(t, s.Login(context.Background(), "ana@example.com", "secret"))
	return s, rec
}

func insertEvent(t *testing.T, table string, v any) realtime.Event {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return realtime.Event{Table: table, Kind: realtime.Insert, Record: raw}
}

func deleteEvent(table, id string) realtime.Event {
	return realtime.Event{
		Table:     table,
		Kind:      realtime.Delete,
		Record:    json.RawMessage(`{}`),
		OldRecord: json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func ids[T models.Entity](items []T) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, v.EntityID())
	}
	return out
}
