// Package phase drives the lifecycle of a single game phase: how long
// it may run, when it is functionally complete, and firing exactly one
// transition per phase instance regardless of whether completion or the
// hard deadline gets there first.
package phase

import (
	"math"
	"time"

	"github.com/duskhollow/duskhollow/internal/game"
)

// Timings holds the phase duration policy. Most phases are fixed;
// night shrinks as rounds pass and discussion scales with the number of
// living speakers.
type Timings struct {
	Waiting        time.Duration
	RoleAssignment time.Duration
	NightBase      time.Duration
	Revelation     time.Duration
	Voting         time.Duration

	// Discussion runs one allotment per living speaker plus a fixed
	// buffer for the floor to change hands.
	SpeakerAllotment time.Duration
	DiscussionBuffer time.Duration

	// Night shortens by NightDecay per completed round, but never below
	// NightFloor of the base.
	NightDecay float64
	NightFloor float64
}

// DefaultTimings returns the standard table pace.
func DefaultTimings() Timings {
	return Timings{
		Waiting:          5 * time.Minute,
		RoleAssignment:   10 * time.Second,
		NightBase:        90 * time.Second,
		Revelation:       15 * time.Second,
		Voting:           60 * time.Second,
		SpeakerAllotment: 45 * time.Second,
		DiscussionBuffer: 10 * time.Second,
		NightDecay:       0.9,
		NightFloor:       0.7,
	}
}

// Duration computes how long a phase instance may run. Round is
// 1-based; alive is the current living count (only discussion uses it).
func (t Timings) Duration(p game.Phase, round, alive int) time.Duration {
	switch p {
	case game.PhaseWaiting:
		return t.Waiting
	case game.PhaseRoleAssignment:
		return t.RoleAssignment
	case game.PhaseNight:
		return t.night(round)
	case game.PhaseRevelation:
		return t.Revelation
	case game.PhaseDiscussion:
		return time.Duration(alive)*t.SpeakerAllotment + t.DiscussionBuffer
	case game.PhaseVoting:
		return t.Voting
	default:
		return 0
	}
}

// night applies the per-round decay with its floor. Early rounds give
// role-holders room to deliberate; later ones keep the endgame moving.
func (t Timings) night(round int) time.Duration {
	if round < 1 {
		round = 1
	}
	scaled := float64(t.NightBase) * math.Pow(t.NightDecay, float64(round-1))
	floor := float64(t.NightBase) * t.NightFloor
	if scaled < floor {
		scaled = floor
	}
	return time.Duration(math.Round(scaled))
}
