package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"socialnet/internal/models"
)

// SnapshotStore keeps one serialized value per key. Get reports false when
// nothing is stored under key.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ErrMalformedSnapshot is returned by Restore when the stored value is not a
// user.
var ErrMalformedSnapshot = errors.New("malformed identity snapshot")

// Session is one signed-in identity over a Store. It is either signed out or
// signed in as exactly one user. Every mutation other than Login, Register
// and Logout is a no-op while signed out. Identity changes are written to the
// SnapshotStore under key as the user's JSON.
type Session struct {
	mu     sync.Mutex
	store  *Store
	snaps  SnapshotStore
	key    string
	userID string
	log    *logrus.Entry
}

func NewSession(st *Store, snaps SnapshotStore, key string) *Session {
	return &Session{
		store: st,
		snaps: snaps,
		key:   key,
		log:   st.log.WithField("snapshot", key),
	}
}

func (s *Session) Key() string { return s.key }

// UserID returns the signed-in user's id, or "" when signed out.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) SignedIn() bool {
	return s.UserID() != ""
}

// Current returns the signed-in user as the store sees it now.
func (s *Session) Current() (models.User, bool) {
	id := s.UserID()
	if id == "" {
		return models.User{}, false
	}
	return s.store.User(id)
}

// persist writes the signed-in user's snapshot. Callers hold s.mu.
func (s *Session) persist(ctx context.Context) error {
	u, ok := s.store.User(s.userID)
	if !ok {
		return nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := s.snaps.Put(ctx, s.key, b); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	return nil
}

// Restore reads the persisted snapshot, if any, and signs its user back in.
// The snapshot's profile and following list are written back into the store,
// and a user missing from the store is put back. It reports whether a
// snapshot was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	b, ok, err := s.snaps.Get(ctx, s.key)
	if err != nil {
		return false, errors.Wrap(err, "read snapshot")
	}
	if !ok {
		return false, nil
	}
	var u models.User
	if err := json.Unmarshal(b, &u); err != nil {
		return false, errors.Wrap(ErrMalformedSnapshot, err.Error())
	}
	if u.ID == "" {
		return false, errors.Wrap(ErrMalformedSnapshot, "missing id")
	}
	s.store.Rehydrate(u)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = u.ID
	s.log.WithField("user", u.ID).Debug("session restored")
	return true, nil
}

// Login signs in the user whose email matches exactly. It returns false when
// there is no such user, or when the store checks passwords and password is
// wrong.
func (s *Session) Login(ctx context.Context, email, password string) (bool, error) {
	u, ok := s.store.Authenticate(email, password)
	if !ok {
		s.log.WithField("email", email).Info("login rejected")
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = u.ID
	s.log.WithField("user", u.ID).Info("signed in")
	return true, s.persist(ctx)
}

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != "" {
		s.log.WithField("user", s.userID).Info("signed out")
	}
	s.userID = ""
	return errors.Wrap(s.snaps.Delete(ctx, s.key), "delete snapshot")
}

// Register adds a user and signs it in.
func (s *Session) Register(ctx context.Context, nu models.NewUser) (models.User, error) {
	u, err := s.store.AddUser(nu)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = u.ID
	s.log.WithField("user", u.ID).Info("registered")
	return u, s.persist(ctx)
}

// UpdateProfile merges upd into the signed-in user.
func (s *Session) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return models.User{}, false, nil
	}
	u, ok := s.store.UpdateUser(s.userID, upd)
	if !ok {
		return models.User{}, false, nil
	}
	return u, true, s.persist(ctx)
}

func (s *Session) CreatePost(content, image string) (models.Post, bool) {
	id := s.UserID()
	if id == "" {
		return models.Post{}, false
	}
	return s.store.CreatePost(id, content, image), true
}

func (s *Session) DeletePost(postID string) bool {
	if !s.SignedIn() {
		return false
	}
	return s.store.DeletePost(postID)
}

// LikePost toggles the signed-in user's like. liked is the state afterwards.
func (s *Session) LikePost(postID string) (liked bool, ok bool) {
	id := s.UserID()
	if id == "" {
		return false, false
	}
	return s.store.ToggleLike(postID, id)
}

func (s *Session) AddComment(postID, content string) (models.Comment, bool) {
	id := s.UserID()
	if id == "" {
		return models.Comment{}, false
	}
	return s.store.AddComment(postID, id, content)
}

func (s *Session) DeleteComment(postID, commentID string) bool {
	if !s.SignedIn() {
		return false
	}
	return s.store.DeleteComment(postID, commentID)
}

// FollowUser makes the signed-in user follow target and re-persists the
// snapshot.
func (s *Session) FollowUser(ctx context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return false, nil
	}
	if !s.store.Follow(s.userID, target) {
		return false, nil
	}
	return true, s.persist(ctx)
}

func (s *Session) UnfollowUser(ctx context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return false, nil
	}
	if !s.store.Unfollow(s.userID, target) {
		return false, nil
	}
	return true, s.persist(ctx)
}

func (s *Session) SearchUsers(q string) []models.User {
	return s.store.SearchUsers(q)
}
