package proto

import jsoniter "github.com/json-iterator/go"

// Packets exchanged with overlay connections.
const (
	PacketJoin       = "join"
	PacketJoined     = "joined"
	PacketError      = "error"
	PacketPollUpdate = "poll:update"
)

type Packet struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

func NewPacket(event string, data any) (Packet, error) {
	packet := Packet{Event: event}
	if data == nil {
		return packet, nil
	}
	raw, err := jsoniter.Marshal(data)
	if err != nil {
		return packet, err
	}
	packet.Data = raw
	return packet, nil
}

func (v Packet) Marshal() []byte {
	raw, _ := jsoniter.Marshal(v)
	return raw
}
