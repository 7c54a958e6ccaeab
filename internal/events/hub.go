// Package events fans study-session changes out to live subscribers
// (Server-Sent Events and WebSocket clients), one room per owner.
package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/models"
)

// Event types sent to subscribers
const (
	SessionCreated  = "created"
	SessionUpdated  = "updated"
	SessionDeleted  = "deleted"
	SessionReminder = "reminder"
)

// Event is the JSON message delivered to subscribers.
type Event struct {
	Type    string               `json:"type"`
	Session *models.StudySession `json:"session,omitempty"`
	ID      string               `json:"id,omitempty"`
}

const defaultBuffer = 16

// Subscriber receives encoded events on C until it is unsubscribed or the hub closes.
type Subscriber struct {
	C       <-chan []byte
	ch      chan []byte
	ownerID string
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]struct{} // ownerID -> subscribers
	buffer int
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		buffer: defaultBuffer,
		log:    log.Named("events"),
	}
}

// Subscribe joins the owner's room. On a closed hub the returned
// subscriber's channel is already closed.
func (h *Hub) Subscribe(ownerID string) *Subscriber {
	ch := make(chan []byte, h.buffer)
	sub := &Subscriber{C: ch, ch: ch, ownerID: ownerID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	if h.rooms[ownerID] == nil {
		h.rooms[ownerID] = make(map[*Subscriber]struct{})
	}
	h.rooms[ownerID][sub] = struct{}{}
	h.log.Debug("subscriber joined", zap.String("owner", ownerID), zap.Int("total", len(h.rooms[ownerID])))
	return sub
}

// Unsubscribe leaves the room and closes the subscriber's channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[sub.ownerID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.rooms, sub.ownerID)
	}
	h.log.Debug("subscriber left", zap.String("owner", sub.ownerID), zap.Int("remaining", len(subs)))
}

// Publish delivers event to every subscriber of ownerID. A subscriber whose
// buffer is full misses the event; Publish never blocks.
func (h *Hub) Publish(ownerID string, event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for sub := range h.rooms[ownerID] {
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("slow subscribers dropped event",
			zap.String("owner", ownerID), zap.String("type", event.Type), zap.Int("dropped", dropped))
	}
}

// Count returns the number of live subscribers across all rooms.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.rooms {
		n += len(subs)
	}
	return n
}

// Close disconnects every subscriber; later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for owner, subs := range h.rooms {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.rooms, owner)
	}
}
