package models

import "git.solsynth.dev/hypernet/livepoll/pkg/proto"

type (
	PollSnapshot = proto.PollSnapshot
	PollChoice   = proto.PollChoice
)

func NewPollSnapshot(id, title, status string, choices []PollChoice) PollSnapshot {
	return proto.NewPollSnapshot(id, title, status, choices)
}
