package auportal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const sessionTtl = time.Minute * 10

// Session is the portal state captured at init time: the cookies and
// hidden anti-forgery fields that must be replayed on submit, plus the
// resolved captcha audio location. A session is good for at most one
// successful submission.
type Session struct {
	Cookies         map[string]string
	HiddenFields    map[string]string
	CaptchaAudioUrl string
	CreatedAt       time.Time
}

// Store owns every live Session. Nothing outside the store keeps a
// reference between calls, lookups always go through it.
type Store struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, Session]
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		cache: expirable.NewLRU[string, Session](2048, nil, sessionTtl),
		now:   time.Now,
	}
}

func (s *Store) Create(cookies, hidden map[string]string, captchaAudioUrl string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(id, Session{
		Cookies:         cookies,
		HiddenFields:    hidden,
		CaptchaAudioUrl: captchaAudioUrl,
		CreatedAt:       s.now(),
	})
	return id
}

// Get returns the session when it exists and is inside the expiry
// window. The backing LRU sweeps on its own cadence, so age is checked
// again here, a session is never observable past the 10 minute mark.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (Session, bool) {
	session, ok := s.cache.Get(id)
	if !ok {
		return Session{}, false
	}
	if s.now().Sub(session.CreatedAt) > sessionTtl {
		s.cache.Remove(id)
		return Session{}, false
	}
	return session, true
}

// Consume removes and returns the session in one step, so two submits
// racing on the same id cannot both win.
func (s *Store) Consume(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.getLocked(id)
	if !ok {
		return Session{}, false
	}
	s.cache.Remove(id)
	return session, true
}

// Restore puts a consumed session back under its original creation
// time. Used when a submit fails authentication: the portal keeps its
// own session alive in that case, so ours stays retryable until it
// ages out.
func (s *Store) Restore(id string, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(id, session)
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}
