package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime/bus"
)

var errHubClosed = errors.New("hub closed")

// Hub keeps one bus subscription per user that has at least one socket open
// on this process and relays every payload from it into the Registry.
type Hub struct {
	mu     sync.Mutex
	log    *logger.Logger
	reg    *Registry
	bus    bus.Bus
	relays map[int64]*relayHandle
	wg     sync.WaitGroup
	closed bool
}

func NewHub(reg *Registry, b bus.Bus, log *logger.Logger) *Hub {
	return &Hub{
		log:    log.With("component", "RealtimeHub"),
		reg:    reg,
		bus:    b,
		relays: make(map[int64]*relayHandle),
	}
}

func (h *Hub) Registry() *Registry { return h.reg }

// Attach registers c and makes sure userID has a running relay. The bus
// subscription is made without holding the hub lock; a concurrent Attach
// for the same user may subscribe too, and the loser closes its copy.
func (h *Hub) Attach(ctx context.Context, userID int64, c Conn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errHubClosed
	}
	h.reg.Register(userID, c)
	_, running := h.relays[userID]
	h.mu.Unlock()
	if running {
		return nil
	}

	relayCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := h.bus.Subscribe(relayCtx, UserChannel(userID))

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		cancel()
		h.reg.Unregister(userID, c)
		return fmt.Errorf("subscribe %s: %w", UserChannel(userID), err)
	}
	if _, ok := h.relays[userID]; ok || h.closed || h.reg.Count(userID) == 0 {
		cancel()
		_ = sub.Close()
		if h.closed {
			h.reg.Unregister(userID, c)
			return errHubClosed
		}
		return nil
	}
	rh := &relayHandle{cancel: cancel}
	h.relays[userID] = rh

	h.wg.Add(1)
	go h.relay(relayCtx, userID, sub, rh)
	return nil
}

// Detach unregisters c and stops the user's relay once no socket remains.
func (h *Hub) Detach(userID int64, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reg.Unregister(userID, c)
	if h.reg.Count(userID) > 0 {
		return
	}
	if rh, ok := h.relays[userID]; ok {
		rh.cancel()
		delete(h.relays, userID)
	}
}

// Relaying reports whether userID currently has a live relay.
func (h *Hub) Relaying(userID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.relays[userID]
	return ok
}

type relayHandle struct {
	cancel context.CancelFunc
}

func (h *Hub) relay(ctx context.Context, userID int64, sub bus.Subscription, rh *relayHandle) {
	defer h.wg.Done()
	defer func() { _ = sub.Close() }()

	log := h.log.With("user_id", userID)
	log.Debug("relay started")
	for {
		select {
		case <-ctx.Done():
			log.Debug("relay stopped")
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				if ctx.Err() != nil {
					return
				}
				// broker dropped us; forget the relay so the next Attach restarts it
				log.Warn("relay subscription closed")
				h.mu.Lock()
				if h.relays[userID] == rh {
					delete(h.relays, userID)
				}
				h.mu.Unlock()
				rh.cancel()
				return
			}
			h.reg.Fanout(ctx, userID, payload)
		}
	}
}

// Close stops every relay and waits for them to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for uid, rh := range h.relays {
		rh.cancel()
		delete(h.relays, uid)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
