package overlay

import (
	"git.solsynth.dev/hypernet/livepoll/pkg/proto"
	"github.com/samber/lo"
)

const NoVotesLabel = "No votes"

// Outcome is the result shown when a poll ends.
type Outcome struct {
	// Winners are the labels tied for the highest vote count. Empty when NoVotes is set.
	Winners    []string `json:"winners"`
	TopVotes   int      `json:"top_votes"`
	TotalVotes int      `json:"total_votes"`
	NoVotes    bool     `json:"no_votes"`
}

func ComputeOutcome(snapshot proto.PollSnapshot) Outcome {
	top := lo.Max(lo.Map(snapshot.Choices, func(item proto.PollChoice, _ int) int {
		return item.Votes
	}))
	if top <= 0 {
		return Outcome{NoVotes: true}
	}

	return Outcome{
		Winners: lo.FilterMap(snapshot.Choices, func(item proto.PollChoice, _ int) (string, bool) {
			return item.Title, item.Votes == top
		}),
		TopVotes:   top,
		TotalVotes: snapshot.TotalVotes(),
	}
}

// Label is the text of the winner overlay.
func (v Outcome) Label() string {
	if v.NoVotes {
		return NoVotesLabel
	}
	label := v.Winners[0]
	for _, winner := range v.Winners[1:] {
		label += ", " + winner
	}
	return label
}
