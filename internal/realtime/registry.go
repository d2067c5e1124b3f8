package realtime

import (
	"context"
	"sync"

	"github.com/yungbote/companion-backend/internal/platform/logger"
)

// Registry maps a user id to the set of sockets that user currently has open.
type Registry struct {
	mu    sync.RWMutex
	log   *logger.Logger
	conns map[int64]map[Conn]struct{}
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		log:   log.With("component", "ConnectionRegistry"),
		conns: make(map[int64]map[Conn]struct{}),
	}
}

func (r *Registry) Register(userID int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[userID] = set
	}
	set[c] = struct{}{}
	r.log.Debug("socket registered", "user_id", userID, "conn_id", c.ID(), "open", len(set))
}

// Unregister is idempotent. A conn not found under userID is looked up under
// every user before giving up.
func (r *Registry) Unregister(userID int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.removeLocked(userID, c) {
		return
	}
	for uid := range r.conns {
		if r.removeLocked(uid, c) {
			return
		}
	}
}

func (r *Registry) removeLocked(userID int64, c Conn) bool {
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
	r.log.Debug("socket unregistered", "user_id", userID, "conn_id", c.ID(), "open", len(set))
	return true
}

// Fanout sends payload once to every socket of userID and returns how many
// sends succeeded. Failures are logged; the failing socket stays registered
// until its own handler detaches it.
func (r *Registry) Fanout(ctx context.Context, userID int64, payload []byte) int {
	r.mu.RLock()
	set := r.conns[userID]
	targets := make([]Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.Send(ctx, payload); err != nil {
			r.log.Warn("socket send failed", "user_id", userID, "conn_id", c.ID(), "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (r *Registry) Count(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// Users lists every user id with at least one open socket.
func (r *Registry) Users() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.conns))
	for uid := range r.conns {
		out = append(out, uid)
	}
	return out
}
