// Package menu provides the main-menu and post-game phases and the game
// state that survives into them.
package menu

import (
	"sync"

	"github.com/mcoot/arenasession/internal/model"
)

// PersistentGameState carries the last round's outcome across scene loads
type PersistentGameState struct {
	mu       sync.RWMutex
	winState model.WinState
}

// NewPersistentGameState starts with no outcome
func NewPersistentGameState() *PersistentGameState {
	return &PersistentGameState{winState: model.WinStateInvalid}
}

// SetWinState records the outcome
func (s *PersistentGameState) SetWinState(w model.WinState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winState = w
}

// WinState returns the recorded outcome
func (s *PersistentGameState) WinState() model.WinState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.winState
}

// Reset clears the outcome for a new round
func (s *PersistentGameState) Reset() {
	s.SetWinState(model.WinStateInvalid)
}
