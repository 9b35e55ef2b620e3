package hub

import (
	"sync"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

// Subscriber is one connected overlay.
// Deliver must not block, it reports false when the packet was dropped.
type Subscriber interface {
	Deliver(packet []byte) bool
	Evict()
}

// Registry maps distribution keys to the overlays currently joined on them.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Subscriber]struct{}
}

var R = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]map[Subscriber]struct{})}
}

// Join subscribes sub to the channel of key. The returned func leaves it again.
func (v *Registry) Join(key string, sub Subscriber) func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.channels[key]; !ok {
		v.channels[key] = make(map[Subscriber]struct{})
	}
	v.channels[key][sub] = struct{}{}

	return func() {
		v.leave(key, sub)
	}
}

func (v *Registry) leave(key string, sub Subscriber) {
	v.mu.Lock()
	defer v.mu.Unlock()

	members, ok := v.channels[key]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(v.channels, key)
	}
}

// Emit pushes the snapshot to every overlay joined on key and returns how many accepted it.
// Overlays joining later simply wait for the next emission.
func (v *Registry) Emit(key string, snapshot models.PollSnapshot) int {
	packet, err := models.NewPacket(models.PacketPollUpdate, snapshot)
	if err != nil {
		log.Error().Err(err).Str("poll", snapshot.ID).Msg("Unable to encode poll update...")
		return 0
	}
	raw := packet.Marshal()

	v.mu.RLock()
	members := make([]Subscriber, 0, len(v.channels[key]))
	for sub := range v.channels[key] {
		members = append(members, sub)
	}
	v.mu.RUnlock()

	var delivered int
	for _, sub := range members {
		if sub.Deliver(raw) {
			delivered++
		} else {
			log.Debug().Str("poll", snapshot.ID).Msg("Dropped poll update for a slow overlay.")
		}
	}
	return delivered
}

// Close evicts every overlay joined on key.
func (v *Registry) Close(key string) int {
	v.mu.Lock()
	members := v.channels[key]
	delete(v.channels, key)
	v.mu.Unlock()

	for sub := range members {
		sub.Evict()
	}
	return len(members)
}

func (v *Registry) Count(key string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.channels[key])
}
