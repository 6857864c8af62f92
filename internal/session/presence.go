package session

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// PresenceManager tracks the viewers of one document.
type PresenceManager struct {
	mu      sync.RWMutex
	viewers map[string]*PresencePayload // clientID -> viewer
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		viewers: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	cp := *p
	pm.viewers[p.ClientID] = &cp
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.viewers, clientID)
}

// GetAll returns copies of every viewer ordered by client id.
func (pm *PresenceManager) GetAll() []*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make([]*PresencePayload, 0, len(pm.viewers))
	for _, v := range pm.viewers {
		cp := *v
		result = append(result, &cp)
	}
	slices.SortFunc(result, func(a, b *PresencePayload) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Viewers: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}
