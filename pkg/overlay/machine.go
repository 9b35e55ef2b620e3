package overlay

import (
	"context"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/livepoll/pkg/proto"
)

const DefaultRevealDuration = 10 * time.Second

type State int

const (
	StateIdle State = iota
	StateActive
	StateRevealing
	StateHidden
)

func (v State) String() string {
	switch v {
	case StateActive:
		return "active"
	case StateRevealing:
		return "revealing"
	case StateHidden:
		return "hidden-after-reveal"
	default:
		return "idle"
	}
}

// Renderer draws the overlay. DrawBars replaces whatever is currently shown.
type Renderer interface {
	DrawBars(snapshot proto.PollSnapshot)
	ShowOutcome(snapshot proto.PollSnapshot, outcome Outcome)
	Clear()
}

type Timer interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct{}

func (clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Event is one input of the machine.
type Event interface {
	event()
}

type SnapshotReceived struct {
	Snapshot proto.PollSnapshot
}

// RevealExpired fires when the reveal timer of the given generation runs out.
// Expiries of a cancelled timer are ignored.
type RevealExpired struct {
	Generation uint64
}

func (SnapshotReceived) event() {}
func (RevealExpired) event()    {}

// Machine is the presentation state of one overlay. Transitions are serialized,
// timer expiries and snapshots never run at the same time.
type Machine struct {
	mu        sync.Mutex
	renderer  Renderer
	scheduler Scheduler
	reveal    time.Duration

	state      State
	pollID     string
	timer      Timer
	generation uint64
}

// NewMachine uses the wall clock when scheduler is nil and DefaultRevealDuration when reveal is not positive.
func NewMachine(renderer Renderer, scheduler Scheduler, reveal time.Duration) *Machine {
	if scheduler == nil {
		scheduler = clock{}
	}
	if reveal <= 0 {
		reveal = DefaultRevealDuration
	}
	return &Machine{
		renderer:  renderer,
		scheduler: scheduler,
		reveal:    reveal,
	}
}

func (v *Machine) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// PollID is the poll the machine last looked at.
func (v *Machine) PollID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pollID
}

func (v *Machine) Handle(snapshot proto.PollSnapshot) {
	v.Dispatch(SnapshotReceived{Snapshot: snapshot})
}

func (v *Machine) Dispatch(event Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e := event.(type) {
	case SnapshotReceived:
		v.receive(e.Snapshot)
	case RevealExpired:
		v.expire(e.Generation)
	}
}

// Run feeds snapshots into the machine until updates is closed or ctx is done.
func (v *Machine) Run(ctx context.Context, updates <-chan proto.PollSnapshot) error {
	for {
		select {
		case <-ctx.Done():
			v.cancelTimer()
			return ctx.Err()
		case snapshot, ok := <-updates:
			if !ok {
				return nil
			}
			v.Handle(snapshot)
		}
	}
}

func (v *Machine) receive(snapshot proto.PollSnapshot) {
	switch {
	case snapshot.IsActive():
		v.stopTimer()
		v.state = StateActive
		v.pollID = snapshot.ID
		v.renderer.DrawBars(snapshot)

	case snapshot.IsTerminal():
		switch {
		case v.state == StateActive && v.pollID == snapshot.ID:
			v.stopTimer()
			v.state = StateRevealing
			v.renderer.ShowOutcome(snapshot, ComputeOutcome(snapshot))
			generation := v.generation
			v.timer = v.scheduler.AfterFunc(v.reveal, func() {
				v.Dispatch(RevealExpired{Generation: generation})
			})
		case (v.state == StateRevealing || v.state == StateHidden) && v.pollID == snapshot.ID:
			// A repeat of the same ended poll never cancels the reveal timer.
		default:
			v.reset(snapshot.ID)
		}

	default:
		v.reset(snapshot.ID)
	}
}

func (v *Machine) expire(generation uint64) {
	if generation != v.generation || v.state != StateRevealing {
		return
	}
	v.timer = nil
	v.state = StateHidden
	v.renderer.Clear()
}

func (v *Machine) reset(pollID string) {
	v.stopTimer()
	if v.state == StateActive || v.state == StateRevealing {
		v.renderer.Clear()
	}
	v.state = StateIdle
	v.pollID = pollID
}

func (v *Machine) stopTimer() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.generation++
}

func (v *Machine) cancelTimer() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopTimer()
}
