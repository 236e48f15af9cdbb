// Package store holds the in-memory social graph: users, posts with their
// likes and comments, and the follow relationship. Every operation is
// synchronous and none of them fail; an operation on something that does not
// exist is a no-op.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"socialnet/internal/models"
)

// DefaultSuggestions is how many users Suggestions returns when asked for a
// non-positive limit by the feed page.
const DefaultSuggestions = 4

// Credentials hashes and checks passwords. A store without Credentials ignores
// passwords entirely and signs users in by email alone.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type Option func(*Store)

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithCredentials(c Credentials) Option {
	return func(s *Store) { s.creds = c }
}

// WithSeedPassword gives every loaded user without a hash this password. It
// only has an effect together with WithCredentials.
func WithSeedPassword(pw string) Option {
	return func(s *Store) { s.seedPassword = pw }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) { s.log = log }
}

type Store struct {
	mu      sync.RWMutex
	users   []*models.User
	posts   []*models.Post
	follows *followTable

	newID        func() string
	now          func() time.Time
	creds        Credentials
	seedPassword string
	log          *logrus.Entry
}

func New(opts ...Option) *Store {
	s := &Store{
		follows: newFollowTable(),
		newID:   uuid.NewString,
		now:     time.Now,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the collections with users and posts. The follow table is
// built from both the following and followers lists of every user, so a
// one-sided entry in the input still yields a symmetric relationship.
func (s *Store) Load(users []models.User, posts []models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = s.users[:0]
	s.posts = s.posts[:0]
	s.follows = newFollowTable()

	known := map[string]bool{}
	for _, u := range users {
		rec := u
		rec.Followers, rec.Following = nil, nil
		if s.creds != nil && s.seedPassword != "" && rec.PasswordHash == "" {
			hash, err := s.creds.Hash(s.seedPassword)
			if err != nil {
				return errors.Wrapf(err, "hash seed password for %s", rec.Email)
			}
			rec.PasswordHash = hash
		}
		s.users = append(s.users, &rec)
		known[rec.ID] = true
	}
	for _, u := range users {
		for _, id := range u.Following {
			if known[id] && id != u.ID {
				s.follows.add(u.ID, id)
			}
		}
	}
	for _, u := range users {
		for _, id := range u.Followers {
			if known[id] && id != u.ID {
				s.follows.add(id, u.ID)
			}
		}
	}
	for i := range posts {
		p := clonePost(&posts[i])
		s.posts = append(s.posts, &p)
	}

	s.log.WithFields(logrus.Fields{
		"users":   len(s.users),
		"posts":   len(s.posts),
		"follows": s.follows.len(),
	}).Info("store loaded")
	return nil
}

// ---- users

func (s *Store) findUser(id string) *models.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Store) view(u *models.User) models.User {
	out := *u
	out.Followers = s.follows.followers(u.ID)
	out.Following = s.follows.following(u.ID)
	return out
}

func (s *Store) views(in []*models.User) []models.User {
	out := make([]models.User, 0, len(in))
	for _, u := range in {
		out = append(out, s.view(u))
	}
	return out
}

func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views(s.users)
}

func (s *Store) User(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.findUser(id)
	if u == nil {
		return models.User{}, false
	}
	return s.view(u), true
}

// UserByEmail returns the first user whose email matches exactly.
func (s *Store) UserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return s.view(u), true
		}
	}
	return models.User{}, false
}

// Authenticate finds the user for email. The password is only checked when
// the store has Credentials.
func (s *Store) Authenticate(email, password string) (models.User, bool) {
	u, ok := s.UserByEmail(email)
	if !ok {
		return models.User{}, false
	}
	if s.creds != nil && !s.creds.Verify(password, u.PasswordHash) {
		return models.User{}, false
	}
	return u, true
}

// AddUser appends a new user. Email and username are not checked for
// uniqueness.
func (s *Store) AddUser(nu models.NewUser) (models.User, error) {
	rec := &models.User{
		ID:       s.newID(),
		Username: nu.Username,
		Email:    nu.Email,
		FullName: nu.FullName,
		Avatar:   nu.Avatar,
		Bio:      nu.Bio,
	}
	if rec.Avatar == "" {
		rec.Avatar = models.DefaultAvatar
	}
	if s.creds != nil && nu.Password != "" {
		hash, err := s.creds.Hash(nu.Password)
		if err != nil {
			return models.User{}, errors.Wrap(err, "hash password")
		}
		rec.PasswordHash = hash
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.CreatedAt = s.now().UTC()
	s.users = append(s.users, rec)
	s.log.WithFields(logrus.Fields{"user": rec.ID, "username": rec.Username}).Debug("user added")
	return s.view(rec), nil
}

// Rehydrate applies a persisted snapshot of u. A user missing from the
// collection is put back together with its follow edges to users that exist.
// A user already present takes the snapshot's non-empty profile fields and,
// when the snapshot carries one, its following list. It reports whether u was
// inserted.
func (s *Store) Rehydrate(u models.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		return false
	}
	if rec := s.findUser(u.ID); rec != nil {
		s.applySnapshot(rec, u)
		return false
	}
	rec := u
	rec.Followers, rec.Following = nil, nil
	s.users = append(s.users, &rec)
	for _, id := range u.Following {
		if id != u.ID && s.findUser(id) != nil {
			s.follows.add(u.ID, id)
		}
	}
	for _, id := range u.Followers {
		if id != u.ID && s.findUser(id) != nil {
			s.follows.add(id, u.ID)
		}
	}
	s.log.WithField("user", u.ID).Info("user rehydrated from snapshot")
	return true
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// applySnapshot merges snap into rec. Callers hold s.mu.
func (s *Store) applySnapshot(rec *models.User, snap models.User) {
	upd := models.ProfileUpdate{
		Username: nonEmpty(snap.Username),
		Email:    nonEmpty(snap.Email),
		FullName: nonEmpty(snap.FullName),
		Avatar:   nonEmpty(snap.Avatar),
		Bio:      nonEmpty(snap.Bio),
	}
	if err := copier.CopyWithOption(rec, &upd, copier.Option{IgnoreEmpty: true}); err != nil {
		s.log.WithError(err).WithField("user", rec.ID).Warn("snapshot merge failed")
	}

	if snap.Following != nil {
		want := map[string]bool{}
		for _, id := range snap.Following {
			want[id] = true
		}
		for _, id := range s.follows.following(rec.ID) {
			if !want[id] {
				s.follows.remove(rec.ID, id)
			}
		}
		for _, id := range snap.Following {
			if id != rec.ID && s.findUser(id) != nil {
				s.follows.add(rec.ID, id)
			}
		}
	}
	s.log.WithField("user", rec.ID).Debug("snapshot applied to existing user")
}

// UpdateUser merges the non-nil fields of upd into the user with id.
func (s *Store) UpdateUser(id string, upd models.ProfileUpdate) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(id)
	if u == nil {
		return models.User{}, false
	}
	if err := copier.CopyWithOption(u, &upd, copier.Option{IgnoreEmpty: true}); err != nil {
		s.log.WithError(err).WithField("user", id).Warn("profile merge failed")
		return s.view(u), false
	}
	s.log.WithField("user", id).Debug("profile updated")
	return s.view(u), true
}

// SearchUsers does a case-insensitive substring match of q against full name,
// username and bio. A blank query matches nothing.
func (s *Store) SearchUsers(q string) []models.User {
	if strings.TrimSpace(q) == "" {
		return []models.User{}
	}
	q = strings.ToLower(q)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []*models.User
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.FullName), q) ||
			strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Bio), q) {
			hits = append(hits, u)
		}
	}
	return s.views(hits)
}

// ---- follow graph

// Follow records that follower follows followee. Following yourself, an
// unknown user, or someone already followed changes nothing.
func (s *Store) Follow(follower, followee string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if follower == followee || s.findUser(follower) == nil || s.findUser(followee) == nil {
		return false
	}
	added := s.follows.add(follower, followee)
	if added {
		s.log.WithFields(logrus.Fields{"follower": follower, "followee": followee}).Debug("follow added")
	}
	return added
}

func (s *Store) Unfollow(follower, followee string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.follows.remove(follower, followee)
	if removed {
		s.log.WithFields(logrus.Fields{"follower": follower, "followee": followee}).Debug("follow removed")
	}
	return removed
}

func (s *Store) IsFollowing(follower, followee string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.follows.has(follower, followee)
}

func (s *Store) Followers(id string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(s.follows.followers(id))
}

func (s *Store) Following(id string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(s.follows.following(id))
}

// resolve maps ids to users in collection order, the way the profile page
// lists them.
func (s *Store) resolve(ids []string) []models.User {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var hits []*models.User
	for _, u := range s.users {
		if want[u.ID] {
			hits = append(hits, u)
		}
	}
	return s.views(hits)
}

// Suggestions lists users that viewer neither is nor follows, at most limit of
// them. A non-positive limit means DefaultSuggestions.
func (s *Store) Suggestions(viewer string, limit int) []models.User {
	if limit <= 0 {
		limit = DefaultSuggestions
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []*models.User
	for _, u := range s.users {
		if len(hits) == limit {
			break
		}
		if u.ID != viewer && !s.follows.has(viewer, u.ID) {
			hits = append(hits, u)
		}
	}
	return s.views(hits)
}

func (s *Store) Stats(id string) models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats(id)
}

func (s *Store) stats(id string) models.Stats {
	st := models.Stats{
		Followers: len(s.follows.followers(id)),
		Following: len(s.follows.following(id)),
	}
	for _, p := range s.posts {
		if p.UserID == id {
			st.Posts++
		}
	}
	return st
}

// Profile assembles everything the profile page shows for user id.
func (s *Store) Profile(viewer, id string) (models.ProfilePage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.findUser(id)
	if u == nil {
		return models.ProfilePage{}, false
	}
	return models.ProfilePage{
		User:      s.view(u),
		Posts:     s.postsWhere(func(p *models.Post) bool { return p.UserID == id }),
		Followers: s.resolve(s.follows.followers(id)),
		Following: s.resolve(s.follows.following(id)),
		Stats:     s.stats(id),
		IsSelf:    viewer == id,
	}, true
}
