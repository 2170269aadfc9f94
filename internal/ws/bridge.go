package ws

import (
	"log"

	"community_energy/internal/simulator"
)

// Bridge implements simulator.Callback and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnState(s simulator.State) {
	msg, err := NewEnvelope(TypeSimState, SimStateFromEngine(s))
	if err != nil {
		log.Printf("Error marshaling sim state: %v", err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnTick(r simulator.TickResult, s simulator.Summary) {
	msg, err := NewEnvelope(TypeTickResult, TickResultFromEngine(r, s))
	if err != nil {
		log.Printf("Error marshaling tick %d: %v", r.Tick, err)
		return
	}
	b.hub.Broadcast(msg)
}
