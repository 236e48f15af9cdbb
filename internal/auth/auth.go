package auth

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"socialnet/internal/store"
)

const sessionCookie = "socialnet_session"

// Manager ties browser cookies to store sessions. Session rows live in SQLite
// so that a restarted process can find the snapshot each cookie refers to.
type Manager struct {
	db          *sql.DB
	store       *store.Store
	snaps       store.SnapshotStore
	maxAge      time.Duration
	snapshotKey string
	log         *logrus.Entry

	mu       sync.RWMutex
	sessions map[string]*store.Session
}

type Config struct {
	MaxAge      time.Duration
	SnapshotKey string
}

func NewManager(db *sql.DB, st *store.Store, snaps store.SnapshotStore, cfg Config, log *logrus.Entry) *Manager {
	return &Manager{
		db:          db,
		store:       st,
		snaps:       snaps,
		maxAge:      cfg.MaxAge,
		snapshotKey: cfg.SnapshotKey,
		log:         log,
		sessions:    map[string]*store.Session{},
	}
}

func (m *Manager) key(id string) string {
	return m.snapshotKey + ":" + id
}

// Begin returns a fresh, signed-out session that is not yet bound to a
// cookie. Call Create once it has signed in.
func (m *Manager) Begin() (string, *store.Session) {
	id := uuid.New().String()
	return id, store.NewSession(m.store, m.snaps, m.key(id))
}

// Create records the session and hands its cookie to the client.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, id string, sess *store.Session) error {
	expires := time.Now().UTC().Add(m.maxAge)
	_, err := m.db.ExecContext(ctx, `INSERT INTO sessions(id,user_id,expires_at) VALUES(?,?,?)`, id, sess.UserID(), expires)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

// drop removes the session row and its in-memory session.
func (m *Manager) drop(ctx context.Context, id string) {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		m.log.WithError(err).WithField("session", id).Warn("delete session row")
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Release forgets the request's session without touching its cookie. Login
// and registration call it before a new session replaces the cookie.
func (m *Manager) Release(r *http.Request) {
	if c, _ := r.Cookie(sessionCookie); c != nil && c.Value != "" {
		m.drop(r.Context(), c.Value)
	}
}

// Destroy forgets the request's session and expires its cookie. It does not
// touch the snapshot; Session.Logout does that.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	m.Release(r)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// Current returns the session behind the request's cookie, if it is known
// and unexpired. The session may still be signed out.
func (m *Manager) Current(r *http.Request) (*store.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	var exp time.Time
	err = m.db.QueryRowContext(r.Context(), `SELECT expires_at FROM sessions WHERE id = ?`, c.Value).Scan(&exp)
	if err != nil {
		return nil, false
	}
	if time.Now().After(exp) {
		m.drop(r.Context(), c.Value)
		if err := m.snaps.Delete(r.Context(), m.key(c.Value)); err != nil {
			m.log.WithError(err).WithField("session", c.Value).Warn("purge snapshot")
		}
		return nil, false
	}

	m.mu.RLock()
	sess, ok := m.sessions[c.Value]
	m.mu.RUnlock()
	if ok {
		return sess, true
	}

	// Row without an in-memory session: another process wrote it after our
	// Restore ran.
	sess = store.NewSession(m.store, m.snaps, m.key(c.Value))
	if _, err := sess.Restore(r.Context()); err != nil {
		m.log.WithError(err).WithField("session", c.Value).Warn("restore session")
		return nil, false
	}
	m.mu.Lock()
	m.sessions[c.Value] = sess
	m.mu.Unlock()
	return sess, true
}

// CurrentUserID returns the signed-in user behind the request, if any.
func (m *Manager) CurrentUserID(r *http.Request) (string, bool) {
	sess, ok := m.Current(r)
	if !ok {
		return "", false
	}
	id := sess.UserID()
	return id, id != ""
}

// Restore loads every unexpired session and signs its snapshot back in. It
// runs once at startup and drops expired rows along the way.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, expires_at FROM sessions`)
	if err != nil {
		return 0, errors.Wrap(err, "select sessions")
	}
	type row struct {
		id  string
		exp time.Time
	}
	var live, expired []string
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.exp); err != nil {
			rows.Close()
			return 0, errors.Wrap(err, "scan session")
		}
		if time.Now().After(rw.exp) {
			expired = append(expired, rw.id)
		} else {
			live = append(live, rw.id)
		}
	}
	rows.Close()

	for _, id := range expired {
		if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return 0, errors.Wrap(err, "purge session")
		}
		if err := m.snaps.Delete(ctx, m.key(id)); err != nil {
			m.log.WithError(err).WithField("session", id).Warn("purge snapshot")
		}
	}

	restored := 0
	for _, id := range live {
		sess := store.NewSession(m.store, m.snaps, m.key(id))
		found, err := sess.Restore(ctx)
		if err != nil {
			m.log.WithError(err).WithField("session", id).Warn("skipping unreadable snapshot")
			continue
		}
		m.mu.Lock()
		m.sessions[id] = sess
		m.mu.Unlock()
		if found {
			restored++
		}
	}
	m.log.WithFields(logrus.Fields{"restored": restored, "purged": len(expired)}).Info("sessions restored")
	return restored, nil
}
