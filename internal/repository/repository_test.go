package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnonKey = "anon-key"

// fakeBackend serves routes and counts every request it sees
type fakeBackend struct {
	*httptest.Server
	requests atomic.Int64
}

func newFakeBackend(t *testing.T, routes func(r chi.Router)) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fb.requests.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	routes(r)
	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Close)

	client, err := NewClient(fb.URL, testAnonKey, fb.Client())
	require.NoError(t, err)
	return fb, client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSignInReturnsSessionAndSetsToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "user-1", "ana@example.com", exp)

	var gotKey, gotGrant string
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
			gotKey = req.Header.Get("apikey")
			gotGrant = req.URL.Query().Get("grant_type")
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  token,
				"refresh_token": "refresh-1",
			})
		})
	})

	sess, err := NewAuthRepository(client).SignIn(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, testAnonKey, gotKey)
	assert.Equal(t, "password", gotGrant)
	assert.Equal(t, "user-1", sess.User.ID)
	assert.Equal(t, "ana@example.com", sess.User.Email)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.Equal(t, token, client.AccessToken())
}

func TestSignInRejectedIsAuthError(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/auth/v1/token", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
		})
	})

	_, err := NewAuthRepository(client).SignIn(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperr.IsAuth(err))
	assert.Equal(t, "Invalid login credentials", apperr.Message(err))
	assert.Empty(t, client.AccessToken())
}

func TestSignUpWithoutSessionNeedsConfirmation(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/auth/v1/signup", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"id": "user-2", "email": "ben@example.com"})
		})
	})

	sess, err := NewAuthRepository(client).SignUp(context.Background(), "ben@example.com", "secret")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignOutDropsTokenEvenOnFailure(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/auth/v1/logout", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		})
	})
	client.SetAccessToken("token")

	err := NewAuthRepository(client).SignOut(context.Background())
	assert.True(t, apperr.IsRemote(err))
	assert.Empty(t, client.AccessToken())
}

func TestRemoteErrorCarriesBackendDescription(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/rest/v1/coupons", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"message": "duplicate key value violates unique constraint",
				"code":    "23505",
			})
		})
	})

	_, err := NewCouponRepository(client).CreateCoupon(context.Background(), "Massage")
	require.Error(t, err)

	var remote *apperr.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusConflict, remote.Status)
	assert.Equal(t, "23505", remote.Code)
	assert.Equal(t, "duplicate key value violates unique constraint", remote.Message)
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Get("/rest/v1/notes", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "JWT expired"})
		})
	})

	_, err := NewNoteRepository(client).ListNotes(context.Background())
	assert.True(t, apperr.IsAuth(err))
}

func TestTransportFailureIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(srv.URL, testAnonKey, srv.Client())
	require.NoError(t, err)
	srv.Close()

	_, err = NewMoodRepository(client).ListMoods(context.Background())
	assert.True(t, apperr.IsRemote(err))
}

func TestInsertSendsRepresentationRequest(t *testing.T) {
	var (
		prefer string
		body   []map[string]any
		bearer string
	)
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/rest/v1/moods", func(w http.ResponseWriter, req *http.Request) {
			prefer = req.Header.Get("Prefer")
			bearer = req.Header.Get("Authorization")
			json.NewDecoder(req.Body).Decode(&body)
			writeJSON(w, http.StatusCreated, []map[string]any{{
				"id": 42, "user_id": "user-1", "mood": "happy", "created_at": "2026-02-14T10:00:00Z",
			}})
		})
	})
	client.SetAccessToken("user-token")

	mood, err := NewMoodRepository(client).CreateMood(context.Background(), "user-1", models.MoodHappy, nil)
	require.NoError(t, err)

	assert.Equal(t, "return=representation", prefer)
	assert.Equal(t, "Bearer user-token", bearer)
	require.Len(t, body, 1)
	assert.Equal(t, "happy", body[0]["mood"])
	assert.NotContains(t, body[0], "id")
	assert.Equal(t, models.ID("42"), mood.ID)
}

func TestListMessagesQuery(t *testing.T) {
	var query map[string][]string
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Get("/rest/v1/messages", func(w http.ResponseWriter, req *http.Request) {
			query = req.URL.Query()
			writeJSON(w, http.StatusOK, []models.Message{{ID: "m1", Content: "hi"}})
		})
	})

	msgs, err := NewMessageRepository(client).ListMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Equal(t, []string{"created_at.asc"}, query["order"])
	assert.Equal(t, []string{"100"}, query["limit"])
}

func TestMarkMessagesReadFiltersByID(t *testing.T) {
	var (
		filter string
		patch  map[string]bool
	)
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Patch("/rest/v1/messages", func(w http.ResponseWriter, req *http.Request) {
			filter = req.URL.Query().Get("id")
			json.NewDecoder(req.Body).Decode(&patch)
			writeJSON(w, http.StatusOK, []models.Message{})
		})
	})

	require.NoError(t, NewMessageRepository(client).MarkMessagesRead(context.Background(), []string{"a", "b"}))
	assert.Equal(t, `in.("a","b")`, filter)
	assert.Equal(t, map[string]bool{"read": true}, patch)
}

func TestUpdateOfMissingRowFails(t *testing.T) {
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Patch("/rest/v1/bucket_list", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, []models.WishItem{})
		})
	})

	err := NewWishRepository(client).SetWishCompleted(context.Background(), "1", true)
	var remote *apperr.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusNotFound, remote.Status)
}

func TestPutSettingUpserts(t *testing.T) {
	var prefer string
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/rest/v1/app_settings", func(w http.ResponseWriter, req *http.Request) {
			prefer = req.Header.Get("Prefer")
			w.WriteHeader(http.StatusCreated)
		})
	})

	err := NewSettingsRepository(client).PutSetting(context.Background(), models.SettingStreaks, json.RawMessage(`{"count":3}`))
	require.NoError(t, err)
	assert.Contains(t, prefer, "resolution=merge-duplicates")
}

// fakeObjects records uploads
type fakeObjects struct {
	mu   sync.Mutex
	puts []string
	ct   string
	fail error
}

func (f *fakeObjects) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, key)
	f.ct = contentType
	return f.fail
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example.com/couple_uploads/" + key
}

func memoryInsertRoute(inserted *models.Memory) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/rest/v1/memories", func(w http.ResponseWriter, req *http.Request) {
			var rows []models.Memory
			json.NewDecoder(req.Body).Decode(&rows)
			rows[0].ID = "mem-1"
			*inserted = rows[0]
			writeJSON(w, http.StatusCreated, rows)
		})
	}
}

func TestUploadOversizedFileFailsBeforeAnyNetworkCall(t *testing.T) {
	var inserted models.Memory
	backend, client := newFakeBackend(t, memoryInsertRoute(&inserted))
	objects := &fakeObjects{}
	repo := NewMemoryRepository(client, objects)

	_, err := repo.UploadMemory(context.Background(), models.MemoryUpload{
		Title:    "Beach",
		File:     strings.NewReader("x"),
		Size:     MaxUploadSize + 1,
		Filename: "beach.mp4",
	})

	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, objects.puts)
	assert.Zero(t, backend.requests.Load())
}

func TestUploadRequiresFileOrLink(t *testing.T) {
	backend, client := newFakeBackend(t, func(r chi.Router) {})
	repo := NewMemoryRepository(client, &fakeObjects{})

	_, err := repo.UploadMemory(context.Background(), models.MemoryUpload{Title: "Beach"})
	assert.True(t, apperr.IsValidation(err))

	_, err = repo.UploadMemory(context.Background(), models.MemoryUpload{Title: "Beach", ExternalURL: "ftp://x"})
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, backend.requests.Load())
}

func TestUploadExternalLinkSkipsStorage(t *testing.T) {
	var inserted models.Memory
	_, client := newFakeBackend(t, memoryInsertRoute(&inserted))
	objects := &fakeObjects{}

	mem, err := NewMemoryRepository(client, objects).UploadMemory(context.Background(), models.MemoryUpload{
		Title:       "Our song",
		ExternalURL: "https://youtu.be/abc",
	})
	require.NoError(t, err)

	assert.Empty(t, objects.puts)
	assert.Equal(t, models.MediaVideo, mem.MediaType)
	require.NotNil(t, inserted.ExternalURL)
	assert.Equal(t, "https://youtu.be/abc", *inserted.ExternalURL)
	assert.Empty(t, inserted.MediaURL)
}

func TestUploadFileStoresPublicURL(t *testing.T) {
	var inserted models.Memory
	_, client := newFakeBackend(t, memoryInsertRoute(&inserted))
	objects := &fakeObjects{}

	mem, err := NewMemoryRepository(client, objects).UploadMemory(context.Background(), models.MemoryUpload{
		Title:    "Trip",
		File:     strings.NewReader("data"),
		Size:     4,
		Filename: "Trip.MP4",
	})
	require.NoError(t, err)

	require.Len(t, objects.puts, 1)
	assert.True(t, strings.HasSuffix(objects.puts[0], ".mp4"))
	assert.Equal(t, "video/mp4", objects.ct)
	assert.Equal(t, models.MediaVideo, mem.MediaType)
	assert.Equal(t, "https://cdn.example.com/couple_uploads/"+objects.puts[0], inserted.MediaURL)
	assert.Equal(t, models.ID("mem-1"), mem.ID)
}

func TestUploadStorageFailureSkipsInsert(t *testing.T) {
	var inserted models.Memory
	backend, client := newFakeBackend(t, memoryInsertRoute(&inserted))
	objects := &fakeObjects{fail: apperr.Remote("upload", io.ErrUnexpectedEOF)}

	_, err := NewMemoryRepository(client, objects).UploadMemory(context.Background(), models.MemoryUpload{
		Title:       "Trip",
		File:        strings.NewReader("data"),
		Size:        4,
		Filename:    "trip.jpg",
		ContentType: "image/jpeg",
	})
	assert.True(t, apperr.IsRemote(err))
	assert.Zero(t, backend.requests.Load())
}

func TestPushRelay(t *testing.T) {
	var got models.PushNotification
	_, client := newFakeBackend(t, func(r chi.Router) {
		r.Post("/functions/v1/push-notification", func(w http.ResponseWriter, req *http.Request) {
			json.NewDecoder(req.Body).Decode(&got)
			if got.PlayerID == "blocked" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player not subscribed"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "notif-1", "recipients": 1})
		})
	})

	t.Run("requires a player id", func(t *testing.T) {
		relay := NewPushRelay(client, "push-notification", "New note", "")
		_, err := relay.Notify(context.Background(), models.PushNotification{Message: "hi"})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("fills defaults", func(t *testing.T) {
		relay := NewPushRelay(client, "push-notification", "New note", "player-9")
		resp, err := relay.Notify(context.Background(), models.PushNotification{Message: "hi"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"notif-1","recipients":1}`, string(resp))
		assert.Equal(t, "New note", got.Heading)
		assert.Equal(t, "player-9", got.PlayerID)
	})

	t.Run("relays the error body", func(t *testing.T) {
		relay := NewPushRelay(client, "push-notification", "New note", "blocked")
		_, err := relay.Notify(context.Background(), models.PushNotification{Message: "hi"})
		assert.True(t, apperr.IsRemote(err))
		assert.Equal(t, "player not subscribed", apperr.Message(err))
	})
}

func TestQueryEncoding(t *testing.T) {
	q := NewQuery().Eq("folder_id", "7").IsNull("parent_id").Order("date", false).Limit(5)
	v := q.encode()

	assert.Equal(t, "*", v.Get("select"))
	assert.Equal(t, "eq.7", v.Get("folder_id"))
	assert.Equal(t, "is.null", v.Get("parent_id"))
	assert.Equal(t, "date.desc", v.Get("order"))
	assert.Equal(t, "5", v.Get("limit"))

	f := q.filters()
	assert.Empty(t, f.Get("select"))
	assert.Empty(t, f.Get("order"))
	assert.Equal(t, "eq.7", f.Get("folder_id"))
}
