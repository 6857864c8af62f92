package session

import (
	"context"
	"log/slog"
	"sync"
)

// Room groups the sessions viewing one document.
type Room struct {
	documentID string
	sessions   map[string]*Session // clientID -> session
	presence   *PresenceManager
}

func NewRoom(documentID string) *Room {
	return &Room{
		documentID: documentID,
		sessions:   make(map[string]*Session),
		presence:   NewPresenceManager(),
	}
}

// Hub tracks live sessions per document and relays presence and save
// notices between them. Each session renders its own view; the hub never
// touches an engine.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Session
	unregister chan *Session
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case s := <-h.register:
			h.addSession(s)
		case s := <-h.unregister:
			h.removeSession(s)
		case <-ctx.Done():
			slog.Info("session hub stopped", "rooms", h.RoomCount())
			return
		}
	}
}

// Register adds s to its document's room. It returns false if the hub has
// stopped or ctx ends first.
func (h *Hub) Register(ctx context.Context, s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Unregister removes s. It does not block once the hub has stopped.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Viewers returns the number of sessions open on a document.
func (h *Hub) Viewers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[documentID]; ok {
		return len(room.sessions)
	}
	return 0
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.DocumentID]
	if !ok {
		room = NewRoom(s.DocumentID)
		h.rooms[s.DocumentID] = room
	}
	room.sessions[s.ClientID] = s
	room.presence.Update(&PresencePayload{ClientID: s.ClientID, UserID: s.UserID})
	h.mu.Unlock()

	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		s.deliver(stateMsg)
	}

	joinMsg, err := newMessage(TypePresenceJoin, PresencePayload{ClientID: s.ClientID, UserID: s.UserID})
	if err == nil {
		h.broadcastToRoom(s.DocumentID, joinMsg, s.ClientID)
	}

	slog.Info("session joined", "client", s.ClientID, "user", s.UserID, "document", s.DocumentID)
}

func (h *Hub) removeSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.sessions, s.ClientID)
	room.presence.Remove(s.ClientID)

	if len(room.sessions) == 0 {
		delete(h.rooms, s.DocumentID)
	}
	h.mu.Unlock()

	leaveMsg, err := newMessage(TypePresenceLeave, PresencePayload{ClientID: s.ClientID, UserID: s.UserID})
	if err == nil {
		h.broadcastToRoom(s.DocumentID, leaveMsg, "")
	}

	slog.Info("session left", "client", s.ClientID, "document", s.DocumentID)
}

// updatePresence records a viewer's cursor and relays it to the others.
func (h *Hub) updatePresence(sender *Session, p *PresencePayload) {
	h.mu.RLock()
	room, ok := h.rooms[sender.DocumentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(p)

	msg, err := newMessage(TypePresenceUpdate, p)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	h.broadcastToRoom(sender.DocumentID, msg, sender.ClientID)
}

// notifySaved tells the other viewers that a new version exists.
func (h *Hub) notifySaved(sender *Session, version int) {
	msg, err := newMessage(TypeDocSaved, DocSavedPayload{Version: version})
	if err != nil {
		return
	}
	msg.ClientID = sender.ClientID
	h.broadcastToRoom(sender.DocumentID, msg, sender.ClientID)
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	sessions := make([]*Session, 0, len(room.sessions))
	for _, s := range room.sessions {
		if s.ClientID != excludeClientID {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.deliver(msg)
	}
}
