package memory

import (
	"sync"
	"time"

	"finagent-be/internal/entity"
	"finagent-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// sessionEntry serializes every mutation of one session.
type sessionEntry struct {
	mu      sync.Mutex
	session *entity.ChatSession
	deleted bool
}

type SessionRepository struct {
	cache *cache.Cache
	// createMu makes lookup-then-create atomic.
	createMu sync.Mutex
	now      func() time.Time
	// beforeAppend runs between lookup and lock in AppendTurn; tests only.
	beforeAppend func(id string)
}

var _ contract.ChatSessionRepository = (*SessionRepository)(nil)

// NewSessionRepository expires sessions idle for ttl and purges them every cleanupInterval.
func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
		now:   time.Now,
	}
}

func (r *SessionRepository) GetOrCreate(id string) (*entity.ChatSession, bool) {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	if id != "" {
		if e, ok := r.entry(id); ok {
			return e.snapshot(), false
		}
	}

	session := &entity.ChatSession{
		Id:         uuid.New(),
		AgentUsage: map[string]int{},
		CreatedAt:  r.now(),
	}
	r.cache.Set(session.Id.String(), &sessionEntry{session: session}, cache.DefaultExpiration)
	return session.Clone(), true
}

func (r *SessionRepository) Get(id string) (*entity.ChatSession, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, contract.ErrSessionNotFound
	}
	return e.snapshot(), nil
}

func (r *SessionRepository) AppendTurn(id string, user, assistant entity.ChatMessage, agent string) error {
	e, ok := r.entry(id)
	if !ok {
		return contract.ErrSessionNotFound
	}

	if r.beforeAppend != nil {
		r.beforeAppend(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return contract.ErrSessionNotFound
	}

	now := r.now()
	e.session.Messages = append(e.session.Messages, user.Clone(), assistant.Clone())
	if agent != "" {
		e.session.AgentUsage[agent]++
	}
	e.session.UpdatedAt = &now

	// refresh the idle expiry; Replace fails if the key expired meanwhile
	if err := r.cache.Replace(id, e, cache.DefaultExpiration); err != nil {
		return contract.ErrSessionNotFound
	}
	return nil
}

// Delete marks the entry under its lock so an in-flight AppendTurn cannot bring it back.
func (r *SessionRepository) Delete(id string) error {
	e, ok := r.entry(id)
	if !ok {
		return contract.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return contract.ErrSessionNotFound
	}
	e.deleted = true
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) entry(id string) (*sessionEntry, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*sessionEntry), true
	}
	return nil, false
}

func (e *sessionEntry) snapshot() *entity.ChatSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}
