package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"socialnet/internal/auth"
	"socialnet/internal/metrics"
	"socialnet/internal/models"
	"socialnet/internal/store"
)

// defaultBio is what the sign-up form fills in when the bio is left empty.
const defaultBio = "New to SocialConnect!"

type Handler struct {
	store    *store.Store
	sessions *auth.Manager
	latency  *metrics.Latency
	log      *logrus.Entry
}

func New(st *store.Store, sessions *auth.Manager, latency *metrics.Latency, log *logrus.Entry) *Handler {
	return &Handler{store: st, sessions: sessions, latency: latency, log: log}
}

// Routes returns the full HTTP surface wrapped in logging and panic
// recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// pages
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("GET /{$}", h.RequirePage(h.HomePage))
	mux.HandleFunc("GET /profile/{$}", h.RequirePage(h.ProfilePage))
	mux.HandleFunc("GET /profile/{id}", h.RequirePage(h.ProfilePage))

	// identity
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/me", h.RequireAuth(h.Me))
	mux.HandleFunc("PATCH /api/profile", h.RequireAuth(h.UpdateProfile))

	// users and the follow graph
	mux.HandleFunc("GET /api/users", h.RequireAuth(h.SearchUsers))
	mux.HandleFunc("GET /api/users/{id}", h.RequireAuth(h.UserByID))
	mux.HandleFunc("POST /api/users/{id}/follow", h.RequireAuth(h.Follow))
	mux.HandleFunc("DELETE /api/users/{id}/follow", h.RequireAuth(h.Unfollow))
	mux.HandleFunc("GET /api/suggestions", h.RequireAuth(h.Suggestions))

	// posts
	mux.HandleFunc("GET /api/feed", h.RequireAuth(h.Feed))
	mux.HandleFunc("POST /api/posts", h.RequireAuth(h.CreatePost))
	mux.HandleFunc("DELETE /api/posts/{id}", h.RequireAuth(h.DeletePost))
	mux.HandleFunc("POST /api/posts/{id}/like", h.RequireAuth(h.LikePost))
	mux.HandleFunc("POST /api/posts/{id}/comments", h.RequireAuth(h.CreateComment))
	mux.HandleFunc("DELETE /api/posts/{id}/comments/{commentID}", h.RequireAuth(h.DeleteComment))

	mux.HandleFunc("GET /api/debug/latency", h.Latency)

	return WithRecover(WithLogging(mux, h.log, h.latency), h.log)
}

type sessionKey struct{}

func sessionFrom(r *http.Request) *store.Session {
	return r.Context().Value(sessionKey{}).(*store.Session)
}

// signedIn returns the request's session when it is signed in.
func (h *Handler) signedIn(r *http.Request) (*store.Session, bool) {
	sess, ok := h.sessions.Current(r)
	if !ok || !sess.SignedIn() {
		return nil, false
	}
	return sess, true
}

// RequireAuth rejects signed-out API calls with 401.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.signedIn(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

// RequirePage sends signed-out page views to /login.
func (h *Handler) RequirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.signedIn(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// -------- Pages

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.signedIn(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": "login"})
}

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	me, _ := sess.Current()
	tab := feedTab(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"page":        "home",
		"user":        me,
		"tab":         tab,
		"posts":       h.store.Feed(me.ID, tab),
		"suggestions": h.store.Suggestions(me.ID, store.DefaultSuggestions),
		"stats":       h.store.Stats(me.ID),
	})
}

func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	viewer := sessionFrom(r).UserID()
	id := r.PathValue("id")
	if id == "" {
		id = viewer
	}
	page, ok := h.store.Profile(viewer, id)
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":        "profile",
		"profile":     page,
		"isFollowing": h.store.IsFollowing(viewer, id),
	})
}

// -------- Identity

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.signedIn(r); ok {
		writeError(w, http.StatusConflict, "Already signed in")
		return
	}
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.sessions.Release(r)
	id, sess := h.sessions.Begin()
	ok, err := sess.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.log.WithError(err).Error("login")
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := h.sessions.Create(r.Context(), w, id, sess); err != nil {
		h.log.WithError(err).Error("create session")
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	me, _ := sess.Current()
	writeJSON(w, http.StatusOK, me)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.signedIn(r); ok {
		writeError(w, http.StatusConflict, "Already signed in")
		return
	}
	var nu models.NewUser
	if err := decode(r, &nu); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	nu.Email = strings.TrimSpace(nu.Email)
	nu.Username = strings.TrimSpace(nu.Username)
	nu.FullName = strings.TrimSpace(nu.FullName)
	if nu.Email == "" || nu.Username == "" || nu.FullName == "" {
		writeError(w, http.StatusBadRequest, "Please fill in all required fields")
		return
	}
	if nu.Bio == "" {
		nu.Bio = defaultBio
	}

	h.sessions.Release(r)
	id, sess := h.sessions.Begin()
	me, err := sess.Register(r.Context(), nu)
	if err != nil {
		h.log.WithError(err).Error("register")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if err := h.sessions.Create(r.Context(), w, id, sess); err != nil {
		h.log.WithError(err).Error("create session")
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	writeJSON(w, http.StatusCreated, me)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := h.sessions.Current(r); ok {
		if err := sess.Logout(r.Context()); err != nil {
			h.log.WithError(err).Warn("logout")
		}
	}
	h.sessions.Destroy(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	me, ok := sessionFrom(r).Current()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	me, ok, err := sessionFrom(r).UpdateProfile(r.Context(), upd)
	if err != nil {
		h.log.WithError(err).Error("update profile")
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// -------- Users

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).SearchUsers(r.URL.Query().Get("q")))
}

func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	u, ok := h.store.User(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, (*store.Session).FollowUser)
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.follow(w, r, (*store.Session).UnfollowUser)
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request, op func(*store.Session, context.Context, string) (bool, error)) {
	target := r.PathValue("id")
	if _, ok := h.store.User(target); !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	sess := sessionFrom(r)
	changed, err := op(sess, r.Context(), target)
	if err != nil {
		h.log.WithError(err).Error("follow")
		writeError(w, http.StatusInternalServerError, "could not save follow")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changed":   changed,
		"following": h.store.IsFollowing(sess.UserID(), target),
	})
}

func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Suggestions(sessionFrom(r).UserID(), store.DefaultSuggestions))
}

// -------- Posts

func feedTab(r *http.Request) models.FeedTab {
	if models.FeedTab(r.URL.Query().Get("tab")) == models.FeedFollowing {
		return models.FeedFollowing
	}
	return models.FeedAll
}

func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Feed(sessionFrom(r).UserID(), feedTab(r)))
}

type postRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.Image == "" {
		writeError(w, http.StatusBadRequest, "Post needs text or an image")
		return
	}
	if utf8.RuneCountInString(content) > models.MaxPostLength {
		writeError(w, http.StatusBadRequest, "Post is longer than 500 characters")
		return
	}
	p, ok := sessionFrom(r).CreatePost(content, req.Image)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// postFromPath loads the post named in the path or answers 404.
func (h *Handler) postFromPath(w http.ResponseWriter, r *http.Request) (models.Post, bool) {
	p, ok := h.store.Post(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return models.Post{}, false
	}
	return p, true
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	p, ok := h.postFromPath(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	if p.UserID != sess.UserID() {
		writeError(w, http.StatusForbidden, "Only the author can delete this post")
		return
	}
	sess.DeletePost(p.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	liked, ok := sessionFrom(r).LikePost(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	p, _ := h.store.Post(id)
	writeJSON(w, http.StatusOK, map[string]any{"liked": liked, "likes": len(p.Likes)})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "Empty comments are not allowed")
		return
	}
	c, ok := sessionFrom(r).AddComment(r.PathValue("id"), content)
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.postFromPath(w, r)
	if !ok {
		return
	}
	commentID := r.PathValue("commentID")
	sess := sessionFrom(r)
	for _, c := range p.Comments {
		if c.ID != commentID {
			continue
		}
		if c.UserID != sess.UserID() {
			writeError(w, http.StatusForbidden, "Only the author can delete this comment")
			return
		}
		sess.DeleteComment(p.ID, c.ID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, "Comment not found")
}

func (h *Handler) Latency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.latency.Snapshot())
}
