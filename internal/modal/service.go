// Package modal holds the single transient notification shown to the user.
package modal

import (
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/enums"
)

// StoreName tags modal changes on the hub.
const StoreName = "modal"

type Snapshot struct {
	Visible bool            `json:"visible"`
	Message string          `json:"message"`
	Type    enums.ModalType `json:"type"`
}

type Service struct {
	mu    sync.RWMutex
	state Snapshot
	hub   *state.Hub
}

func NewService(hub *state.Hub) *Service {
	return &Service{
		state: Snapshot{Type: enums.ModalTypeInfo},
		hub:   hub,
	}
}

// Show replaces the current notification. Unknown types fall back to info.
func (s *Service) Show(message string, typ enums.ModalType) {
	if !typ.IsValid() {
		typ = enums.ModalTypeInfo
	}
	s.mu.Lock()
	s.state = Snapshot{Visible: true, Message: message, Type: typ}
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: StoreName, Op: "show"})
}

func (s *Service) Hide() {
	s.mu.Lock()
	s.state = Snapshot{Type: enums.ModalTypeInfo}
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: StoreName, Op: "hide"})
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
