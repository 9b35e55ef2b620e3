package testutil

import (
	"sync"
	"testing"

	"git.solsynth.dev/hypernet/livepoll/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

// RecordingSubscriber keeps every packet an overlay would have received.
type RecordingSubscriber struct {
	mu      sync.Mutex
	packets [][]byte
	evicted bool
}

func (v *RecordingSubscriber) Deliver(packet []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.packets = append(v.packets, packet)
	return true
}

func (v *RecordingSubscriber) Evict() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.evicted = true
}

func (v *RecordingSubscriber) Evicted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.evicted
}

func (v *RecordingSubscriber) Snapshots(t *testing.T) []models.PollSnapshot {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []models.PollSnapshot
	for _, raw := range v.packets {
		var packet models.Packet
		require.NoError(t, jsoniter.Unmarshal(raw, &packet))
		require.Equal(t, models.PacketPollUpdate, packet.Event)
		var snapshot models.PollSnapshot
		require.NoError(t, jsoniter.Unmarshal(packet.Data, &snapshot))
		out = append(out, snapshot)
	}
	return out
}
