package overlay

import (
	"fmt"
	"io"
	"strings"

	"git.solsynth.dev/hypernet/livepoll/pkg/proto"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

const barWidth = 30

// ConsoleRenderer draws the overlay as colored text.
type ConsoleRenderer struct {
	Out io.Writer
}

func (v ConsoleRenderer) DrawBars(snapshot proto.PollSnapshot) {
	total := snapshot.TotalVotes()

	fmt.Fprintln(v.Out, color.New(color.FgHiYellow, color.Bold).Sprint(snapshot.Title))
	for _, choice := range snapshot.Choices {
		var percent int
		if total > 0 {
			percent = choice.Votes * 100 / total
		}
		filled := lo.Clamp(percent*barWidth/100, 0, barWidth)
		fmt.Fprintf(v.Out, "  %-25s %s%s %3d%% (%d)\n",
			choice.Title,
			color.CyanString(strings.Repeat("█", filled)),
			color.HiBlackString(strings.Repeat("░", barWidth-filled)),
			percent,
			choice.Votes,
		)
	}
}

func (v ConsoleRenderer) ShowOutcome(snapshot proto.PollSnapshot, outcome Outcome) {
	if outcome.NoVotes {
		fmt.Fprintf(v.Out, "%s %s\n", color.HiBlackString("%s:", snapshot.Title), color.YellowString(outcome.Label()))
		return
	}
	fmt.Fprintf(v.Out, "%s %s %s\n",
		color.HiBlackString("%s:", snapshot.Title),
		color.New(color.FgHiGreen, color.Bold).Sprint(outcome.Label()),
		color.HiBlackString("(%d of %d votes)", outcome.TopVotes, outcome.TotalVotes),
	)
}

func (v ConsoleRenderer) Clear() {
	fmt.Fprintln(v.Out, color.HiBlackString(strings.Repeat("-", barWidth+36)))
}
