package models

import "git.solsynth.dev/hypernet/livepoll/pkg/proto"

const (
	PacketJoin       = proto.PacketJoin
	PacketJoined     = proto.PacketJoined
	PacketError      = proto.PacketError
	PacketPollUpdate = proto.PacketPollUpdate
)

type Packet = proto.Packet

func NewPacket(event string, data any) (Packet, error) {
	return proto.NewPacket(event, data)
}
