package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialnet/internal/auth"
	"socialnet/internal/db"
	"socialnet/internal/metrics"
	"socialnet/internal/models"
	"socialnet/internal/seed"
	"socialnet/internal/store"
)

type testServer struct {
	*httptest.Server
	store   *store.Store
	latency *metrics.Latency
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	dbc, err := db.Open(filepath.Join(t.TempDir(), "social.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(dbc))

	st := store.New(store.WithLogger(log))
	require.NoError(t, st.Load(seed.Users(), seed.Posts()))
	sessions := auth.NewManager(dbc, st, store.NewMemorySnapshots(),
		auth.Config{MaxAge: time.Hour, SnapshotKey: "currentUser"}, log)
	latency := metrics.NewLatency()

	srv := httptest.NewServer(New(st, sessions, latency, log).Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st, latency: latency}
}

// client is one browser: it keeps cookies and does not follow redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (ts *testServer) newClient(t *testing.T) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) login(email string) models.User {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/login", map[string]string{"email": email, "password": "whatever"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var u models.User
	decodeBody(c.t, resp, &u)
	return u
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRouteGuards(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)

	for _, path := range []string{"/", "/profile/", "/profile/1"} {
		resp := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/login", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/me", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/posts", map[string]string{"content": "x"}).StatusCode)

	c.login("john@example.com")

	resp := c.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var home struct {
		Page        string        `json:"page"`
		User        models.User   `json:"user"`
		Posts       []models.Post `json:"posts"`
		Suggestions []models.User `json:"suggestions"`
		Stats       models.Stats  `json:"stats"`
	}
	decodeBody(t, resp, &home)
	assert.Equal(t, "home", home.Page)
	assert.Equal(t, "1", home.User.ID)
	assert.Len(t, home.Posts, 5)
	assert.Len(t, home.Suggestions, 2)
	assert.Equal(t, models.Stats{Posts: 1, Followers: 4, Following: 3}, home.Stats)
}

func TestLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)

	resp := c.do(http.MethodPost, "/api/login", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var e map[string]string
	decodeBody(t, resp, &e)
	assert.Equal(t, "Invalid email or password", e["error"])

	u := c.login("john@example.com")
	assert.Equal(t, "1", u.ID)
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/login", map[string]string{"email": "sarah@example.com"}).StatusCode)

	resp = c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &u)
	assert.Equal(t, "john@example.com", u.Email)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/api/logout", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/me", nil).StatusCode)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)

	resp := c.do(http.MethodPost, "/api/register", map[string]string{"email": "new@example.com", "username": "newuser"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodPost, "/api/register", models.NewUser{
		Username: "newuser",
		FullName: "New User",
		Email:    "new@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var u models.User
	decodeBody(t, resp, &u)
	assert.Equal(t, "newuser", u.Username)
	assert.Equal(t, defaultBio, u.Bio)
	assert.Equal(t, models.DefaultAvatar, u.Avatar)
	assert.Empty(t, u.Followers)
	assert.Empty(t, u.Following)
	assert.Len(t, ts.store.Users(), 7)

	resp = c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, u.ID, me.ID)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.login("emily@example.com")

	resp := c.do(http.MethodPatch, "/api/profile", map[string]string{"bio": "Watercolours mostly"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u models.User
	decodeBody(t, resp, &u)
	assert.Equal(t, "Watercolours mostly", u.Bio)
	assert.Equal(t, "Emily Davis", u.FullName)

	stored, _ := ts.store.User("4")
	assert.Equal(t, "Watercolours mostly", stored.Bio)
}

func TestPostLifecycle(t *testing.T) {
	ts := newTestServer(t)
	john := ts.newClient(t)
	john.login("john@example.com")
	sarah := ts.newClient(t)
	sarah.login("sarah@example.com")

	assert.Equal(t, http.StatusBadRequest, john.do(http.MethodPost, "/api/posts", map[string]string{"content": "   "}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, john.do(http.MethodPost, "/api/posts", map[string]string{"content": strings.Repeat("é", 501)}).StatusCode)
	assert.Equal(t, http.StatusCreated, john.do(http.MethodPost, "/api/posts", map[string]string{"content": strings.Repeat("é", 500)}).StatusCode)

	resp := john.do(http.MethodPost, "/api/posts", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p models.Post
	decodeBody(t, resp, &p)
	assert.Equal(t, "1", p.UserID)

	resp = sarah.do(http.MethodGet, "/api/feed", nil)
	var feed []models.Post
	decodeBody(t, resp, &feed)
	require.NotEmpty(t, feed)
	assert.Equal(t, "hello", feed[0].Content)

	resp = sarah.do(http.MethodPost, "/api/posts/"+p.ID+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var like struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}
	decodeBody(t, resp, &like)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)
	assert.Equal(t, http.StatusNotFound, sarah.do(http.MethodPost, "/api/posts/missing/like", nil).StatusCode)

	resp = sarah.do(http.MethodPost, "/api/posts/"+p.ID+"/comments", map[string]string{"content": "Nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cm models.Comment
	decodeBody(t, resp, &cm)
	assert.Equal(t, "2", cm.UserID)
	assert.Equal(t, http.StatusBadRequest, sarah.do(http.MethodPost, "/api/posts/"+p.ID+"/comments", map[string]string{"content": ""}).StatusCode)

	assert.Equal(t, http.StatusForbidden, john.do(http.MethodDelete, "/api/posts/"+p.ID+"/comments/"+cm.ID, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, sarah.do(http.MethodDelete, "/api/posts/"+p.ID+"/comments/missing", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, sarah.do(http.MethodDelete, "/api/posts/"+p.ID+"/comments/"+cm.ID, nil).StatusCode)

	assert.Equal(t, http.StatusForbidden, sarah.do(http.MethodDelete, "/api/posts/"+p.ID, nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, john.do(http.MethodDelete, "/api/posts/"+p.ID, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, john.do(http.MethodDelete, "/api/posts/"+p.ID, nil).StatusCode)
	_, found := ts.store.Post(p.ID)
	assert.False(t, found)
}

func TestFollowEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.login("john@example.com")

	type result struct {
		Changed   bool `json:"changed"`
		Following bool `json:"following"`
	}
	var r result

	resp := c.do(http.MethodPost, "/api/users/6/follow", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &r)
	assert.Equal(t, result{Changed: true, Following: true}, r)

	resp = c.do(http.MethodPost, "/api/users/6/follow", nil)
	decodeBody(t, resp, &r)
	assert.Equal(t, result{Changed: false, Following: true}, r)

	jordan, _ := ts.store.User("6")
	assert.Equal(t, []string{"1"}, jordan.Followers)

	resp = c.do(http.MethodDelete, "/api/users/6/follow", nil)
	decodeBody(t, resp, &r)
	assert.Equal(t, result{Changed: true, Following: false}, r)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/users/missing/follow", nil).StatusCode)

	resp = c.do(http.MethodGet, "/api/suggestions", nil)
	var sugg []models.User
	decodeBody(t, resp, &sugg)
	assert.Len(t, sugg, 2)
}

func TestSearchAndUsers(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.login("john@example.com")

	var users []models.User
	decodeBody(t, c.do(http.MethodGet, "/api/users?q=gam", nil), &users)
	require.Len(t, users, 1)
	assert.Equal(t, "mikejohnson", users[0].Username)

	decodeBody(t, c.do(http.MethodGet, "/api/users?q=", nil), &users)
	assert.Empty(t, users)

	var u models.User
	decodeBody(t, c.do(http.MethodGet, "/api/users/2", nil), &u)
	assert.Equal(t, "Sarah Smith", u.FullName)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/users/missing", nil).StatusCode)
}

func TestProfilePages(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.login("emily@example.com")

	var page struct {
		Profile     models.ProfilePage `json:"profile"`
		IsFollowing bool               `json:"isFollowing"`
	}
	resp := c.do(http.MethodGet, "/profile/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.True(t, page.Profile.IsSelf)
	assert.Equal(t, "4", page.Profile.User.ID)
	assert.Len(t, page.Profile.Posts, 1)

	resp = c.do(http.MethodGet, "/profile/2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &page)
	assert.False(t, page.Profile.IsSelf)
	assert.True(t, page.IsFollowing)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/profile/missing", nil).StatusCode)
}

func TestFollowingTab(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.login("emily@example.com")

	var feed []models.Post
	decodeBody(t, c.do(http.MethodGet, "/api/feed?tab=following", nil), &feed)
	var got []string
	for _, p := range feed {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{"2", "3", "4"}, got)
}

func TestLatencyEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := ts.newClient(t)
	c.do(http.MethodGet, "/login", nil)

	var s metrics.Summary
	decodeBody(t, c.do(http.MethodGet, "/api/debug/latency", nil), &s)
	assert.GreaterOrEqual(t, s.Count, int64(1))
}

func TestWithRecover(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	h := WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logrus.NewEntry(l))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestWithRecoverAfterResponseStarted(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	h := WithRecover(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("partial"))
		panic("boom")
	}), logrus.NewEntry(l))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}
