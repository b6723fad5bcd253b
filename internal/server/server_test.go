package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialgraph/internal/config"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/notifications"
	"socialgraph/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, actor identity.Actor, filename string, content []byte) (string, error) {
	args := m.Called(ctx, actor, filename, content)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	server   *Server
	verifier *identity.JWTVerifier
}

func newTestEnv(t *testing.T, images ImageUploader) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewDB(t)
	verifier := identity.NewJWTVerifier(testSecret)
	cfg := &config.Config{
		Port:                 "0",
		Env:                  "test",
		AllowedOrigins:       "*",
		FeatureFlags:         "realtime_notifications=on",
		ImageMaxUploadSizeMB: 1,
	}
	notifier := notifications.NewNotifier(rdb)
	s := NewServerWithDeps(cfg, Deps{
		DB:         db,
		Redis:      rdb,
		Verifier:   verifier,
		Events:     notifier,
		Subscriber: notifier,
		Images:     images,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testEnv{t: t, db: db, server: s, verifier: verifier}
}

func (e *testEnv) token(subject, email string) string {
	e.t.Helper()
	tok, err := e.verifier.Sign(identity.External{Subject: subject, Email: email}, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) tokenFor(u *models.User) string {
	return e.token(u.ExternalID, u.Email)
}

// settle waits for asynchronous invalidations and deliveries.
func (e *testEnv) settle() {
	e.server.invalidator.Wait()
	e.server.dispatcher.Wait()
}

func (e *testEnv) do(method, target, token string, body interface{}) (*http.Response, map[string]interface{}) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) (*http.Response, map[string]interface{}) {
	e.t.Helper()
	resp, err := e.server.App().Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestPosts_CreateListDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")

	resp, body := env.do(http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])

	resp, body = env.do(http.MethodPost, "/api/posts", env.tokenFor(alice), jsonBody{"content": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	postID := body["post"].(map[string]interface{})["id"].(string)
	env.settle()

	_, body = env.do(http.MethodGet, "/api/posts", "", nil)
	posts := body["data"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].(map[string]interface{})["content"])

	resp, body = env.do(http.MethodDelete, "/api/posts/"+postID, env.tokenFor(bob), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthorized, body["code"])

	resp, _ = env.do(http.MethodDelete, "/api/posts/"+postID, env.tokenFor(alice), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env.settle()

	_, body = env.do(http.MethodGet, "/api/posts", "", nil)
	assert.Empty(t, body["data"])
}

func TestPosts_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	post := testutil.CreatePost(t, env.db, alice.ID, "hi")

	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"anonymous create", http.MethodPost, "/api/posts", "", jsonBody{"content": "x"}, http.StatusUnauthorized, models.CodeUnauthenticated},
		{"empty post", http.MethodPost, "/api/posts", env.tokenFor(alice), jsonBody{"content": "  "}, http.StatusBadRequest, models.CodeValidation},
		{"bad image url", http.MethodPost, "/api/posts", env.tokenFor(alice), jsonBody{"image_url": "not a url"}, http.StatusBadRequest, models.CodeValidation},
		{"missing post delete", http.MethodDelete, "/api/posts/missing", env.tokenFor(alice), nil, http.StatusNotFound, models.CodeNotFound},
		{"like missing post", http.MethodPost, "/api/posts/missing/like", env.tokenFor(alice), nil, http.StatusNotFound, models.CodeNotFound},
		{"empty comment", http.MethodPost, "/api/posts/" + post.ID + "/comments", env.tokenFor(alice), jsonBody{"content": ""}, http.StatusBadRequest, models.CodeValidation},
		{"self follow", http.MethodPost, "/api/users/" + alice.ID + "/follow", env.tokenFor(alice), nil, http.StatusUnprocessableEntity, models.CodeSelfActionForbidden},
		{"follow missing user", http.MethodPost, "/api/users/missing/follow", env.tokenFor(alice), nil, http.StatusNotFound, models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(tt.method, tt.target, tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestToggleLike_AndNotificationInbox(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	post := testutil.CreatePost(t, env.db, alice.ID, "hi")

	resp, body := env.do(http.MethodPost, "/api/posts/"+post.ID+"/like", env.tokenFor(bob), jsonBody{"view_path": "/profile/alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])

	resp, body = env.do(http.MethodPost, "/api/posts/"+post.ID+"/like?view_path=/profile/alice", env.tokenFor(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["liked"])
	env.settle()

	_, body = env.do(http.MethodGet, "/api/notifications", env.tokenFor(alice), nil)
	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	note := items[0].(map[string]interface{})
	assert.Equal(t, string(models.NotificationLike), note["type"])

	_, body = env.do(http.MethodGet, "/api/notifications", env.tokenFor(bob), nil)
	assert.Empty(t, body["data"])

	resp, _ = env.do(http.MethodDelete, "/api/notifications", env.tokenFor(alice), jsonBody{"ids": []string{"not-a-uuid"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(http.MethodDelete, "/api/notifications", env.tokenFor(alice), jsonBody{"ids": []string{note["id"].(string)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["data"].(map[string]interface{})["dismissed"])
}

func TestFollowAndProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	testutil.CreatePost(t, env.db, alice.ID, "hi")

	resp, body := env.do(http.MethodPost, "/api/users/"+alice.ID+"/follow", env.tokenFor(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["following"])

	resp, body = env.do(http.MethodGet, "/api/users/alice", env.tokenFor(bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_following"])
	assert.Len(t, data["posts"], 1)
	assert.Empty(t, data["liked_posts"])
	user := data["user"].(map[string]interface{})
	assert.EqualValues(t, 1, user["follower_count"])
	assert.EqualValues(t, 1, user["post_count"])

	_, body = env.do(http.MethodGet, "/api/users/alice", "", nil)
	assert.Equal(t, false, body["data"].(map[string]interface{})["is_following"])

	resp, _ = env.do(http.MethodGet, "/api/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsers_SyncAndMe(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.token("ext_carol", "Carol@Example.com")

	resp, _ := env.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := env.do(http.MethodPost, "/api/users/sync", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "carol", body["data"].(map[string]interface{})["username"])

	resp, body = env.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "carol@example.com", body["data"].(map[string]interface{})["email"])

	resp, _ = env.do(http.MethodPost, "/api/users/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(http.MethodGet, "/api/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, body["code"])
	assert.Equal(t, `Bearer error="invalid_token"`, resp.Header.Get("WWW-Authenticate"))
}

func TestPosts_BadCredentialsStillReadFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	testutil.CreatePost(t, env.db, alice.ID, "public")

	for name, header := range map[string]string{
		"expired token": "Bearer garbage",
		"bad scheme":    "Basic dXNlcjpwYXNz",
		"no token":      "Bearer",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
		req.Header.Set("Authorization", header)
		resp, body := env.send(req)
		require.Equal(t, http.StatusOK, resp.StatusCode, name)
		assert.Equal(t, true, body["success"], name)
		require.Len(t, body["data"], 1, name)
	}

	// Mutations still need a real actor.
	resp, body := env.do(http.MethodPost, "/api/posts", "garbage", jsonBody{"content": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, body["code"])
}

func TestPosts_FeedReadsAreNotGloballyThrottled(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 150; i++ {
		resp, _ := env.do(http.MethodGet, "/api/posts", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i)
	}
}

func TestUsers_Suggestions(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	testutil.CreateUser(t, env.db, "bob")
	testutil.CreateUser(t, env.db, "carol")

	_, body := env.do(http.MethodGet, "/api/users/suggestions", env.tokenFor(alice), nil)
	assert.Len(t, body["data"], 2)

	_, body = env.do(http.MethodGet, "/api/users/suggestions?limit=1", env.tokenFor(alice), nil)
	assert.Len(t, body["data"], 1)

	_, body = env.do(http.MethodGet, "/api/users/suggestions", "", nil)
	assert.Empty(t, body["data"])

	resp, _ := env.do(http.MethodGet, "/api/users/suggestions?limit=abc", env.tokenFor(alice), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImage(t *testing.T) {
	uploader := new(mockUploader)
	env := newTestEnv(t, uploader)
	alice := testutil.CreateUser(t, env.db, "alice")
	content := []byte("\x89PNG\r\n\x1a\nrest")

	uploader.On("Upload", mock.Anything, identity.For(alice.ID), "cat.png", content).
		Return("https://cdn.example.com/posts/cat.png", nil).Once()

	newRequest := func(token string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "cat.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/uploads/images", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}

	resp, body := env.send(newRequest(env.tokenFor(alice)))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/posts/cat.png", body["data"].(map[string]interface{})["url"])

	resp, _ = env.send(newRequest(""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	uploader.AssertExpectations(t)
}

func TestUploadImage_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")

	resp, body := env.do(http.MethodPost, "/api/uploads/images", env.tokenFor(alice), nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeStoreFailure, body["code"])
}

func TestHealthAndFlags(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")

	resp, _ := env.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	_, body = env.do(http.MethodGet, "/api/feature-flags", env.tokenFor(alice), nil)
	assert.Equal(t, true, body["data"].(map[string]interface{})["realtime_notifications"])
}

func TestNotificationStream_RequiresUpgradeAndActor(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")

	resp, _ := env.do(http.MethodGet, "/ws/notifications", env.tokenFor(alice), nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, body := env.send(req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, models.CodeUnauthenticated, body["code"])
}

type jsonBody = map[string]interface{}
