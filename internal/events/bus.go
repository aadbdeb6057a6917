// Package events bundles the typed channels shared by the server's components.
package events

import (
	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/model"
)

// Bus is the set of channels one role's components publish and subscribe on
type Bus struct {
	// Gameplay
	LifeStateChanged  *eventbus.Channel[model.LifeStateChanged]
	ObjectiveDefeated *eventbus.Channel[model.ObjectiveDefeated]

	// Connection lifecycle
	ClientConnected    *eventbus.Channel[model.ClientConnected]
	ClientDisconnected *eventbus.Channel[model.ClientDisconnected]

	// Scene lifecycle
	LoadCompleted      *eventbus.Channel[model.LoadCompleted]
	ClientSynchronized *eventbus.Channel[model.ClientSynchronized]
	ProgressUpdated    *eventbus.Channel[model.ProgressUpdated]

	// Client intents routed from the transport
	MovementIntent *eventbus.Channel[model.MovementIntent]
	RotationIntent *eventbus.Channel[model.RotationIntent]
}

// NewBus creates a Bus with empty channels
func NewBus() *Bus {
	return &Bus{
		LifeStateChanged:   eventbus.NewChannel[model.LifeStateChanged](),
		ObjectiveDefeated:  eventbus.NewChannel[model.ObjectiveDefeated](),
		ClientConnected:    eventbus.NewChannel[model.ClientConnected](),
		ClientDisconnected: eventbus.NewChannel[model.ClientDisconnected](),
		LoadCompleted:      eventbus.NewChannel[model.LoadCompleted](),
		ClientSynchronized: eventbus.NewChannel[model.ClientSynchronized](),
		ProgressUpdated:    eventbus.NewChannel[model.ProgressUpdated](),
		MovementIntent:     eventbus.NewChannel[model.MovementIntent](),
		RotationIntent:     eventbus.NewChannel[model.RotationIntent](),
	}
}

// Dispose releases every channel
func (b *Bus) Dispose() {
	b.LifeStateChanged.Dispose()
	b.ObjectiveDefeated.Dispose()
	b.ClientConnected.Dispose()
	b.ClientDisconnected.Dispose()
	b.LoadCompleted.Dispose()
	b.ClientSynchronized.Dispose()
	b.ProgressUpdated.Dispose()
	b.MovementIntent.Dispose()
	b.RotationIntent.Dispose()
}
