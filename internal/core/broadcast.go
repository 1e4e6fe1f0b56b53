package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// Fanout delivers one event to every connection currently bound to a room.
// Delivery is best-effort per connection: a slow or dead receiver is
// skipped, never blocks the others, and never fails the caller.
type Fanout struct {
	registry *Registry
}

func NewFanout(registry *Registry) *Fanout {
	return &Fanout{registry: registry}
}

// Publish encodes v once and enqueues it to the room's audience as
// snapshotted at call time. Connections that bind afterwards simply miss
// this event.
func (f *Fanout) Publish(room domain.RoomCode, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.fanout").Msg("marshal event")
		return
	}

	sent, dropped := 0, 0
	for _, snap := range f.registry.ConnectionsInRoom(room) {
		if err := snap.Conn.TrySend(data); err != nil {
			dropped++
			log.Warn().Err(err).Str("module", "core.fanout").Str("conn", string(snap.ID)).
				Str("room", string(room)).Msg("dropped event for connection")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "core.fanout").Str("room", string(room)).
		Int("sent_to", sent).Int("dropped", dropped).Msg("publish result")
}
