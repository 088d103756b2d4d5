package event

import (
	"time"

	"github.com/duskhollow/duskhollow/internal/game"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "phase.started", "vote.cast").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers emitted by the core.
const (
	TypePhaseStarted      = "phase.started"
	TypePhaseTransition   = "phase.transition"
	TypePlayerJoined      = "player.joined"
	TypePlayerLeft        = "player.left"
	TypeRolesAssigned     = "roles.assigned"
	TypeNightStarted      = "night.started"
	TypeDiscussionStarted = "discussion.started"
	TypeVotingStarted     = "voting.started"
	TypeVoteCast          = "vote.cast"
	TypePlayerEliminated  = "player.eliminated"
	TypeNoElimination     = "elimination.none"
	TypeVoteTied          = "vote.tied"
	TypeGameEnded         = "game.ended"
	TypeObserverUpdate    = "observer.update"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// PhaseStartedEvent is emitted when a phase begins.
type PhaseStartedEvent struct {
	baseEvent
	GameID   string
	Phase    game.Phase
	Round    int
	Deadline time.Time
}

// NewPhaseStartedEvent creates a PhaseStartedEvent.
func NewPhaseStartedEvent(gameID string, phase game.Phase, round int, deadline time.Time) PhaseStartedEvent {
	return PhaseStartedEvent{
		baseEvent: newBaseEvent(TypePhaseStarted),
		GameID:    gameID,
		Phase:     phase,
		Round:     round,
		Deadline:  deadline,
	}
}

// PhaseTransitionEvent is emitted when one phase gives way to the next.
// Reason is "completed" when the completion predicate ended the phase
// early, "deadline" when the hard timer fired.
type PhaseTransitionEvent struct {
	baseEvent
	GameID string
	From   game.Phase
	To     game.Phase
	Round  int
	Reason string
}

// NewPhaseTransitionEvent creates a PhaseTransitionEvent.
func NewPhaseTransitionEvent(gameID string, from, to game.Phase, round int, reason string) PhaseTransitionEvent {
	return PhaseTransitionEvent{
		baseEvent: newBaseEvent(TypePhaseTransition),
		GameID:    gameID,
		From:      from,
		To:        to,
		Round:     round,
		Reason:    reason,
	}
}

// PlayerJoinedEvent is emitted when a participant joins the table.
// It carries only the display name; internal ids never leave the core.
type PlayerJoinedEvent struct {
	baseEvent
	GameID string
	Name   string
	Kind   game.ParticipantKind
	Seats  int // roster size after the join
}

// NewPlayerJoinedEvent creates a PlayerJoinedEvent.
func NewPlayerJoinedEvent(gameID, name string, kind game.ParticipantKind, seats int) PlayerJoinedEvent {
	return PlayerJoinedEvent{
		baseEvent: newBaseEvent(TypePlayerJoined),
		GameID:    gameID,
		Name:      name,
		Kind:      kind,
		Seats:     seats,
	}
}

// PlayerLeftEvent is emitted when a participant leaves the table.
type PlayerLeftEvent struct {
	baseEvent
	GameID string
	Name   string
	Seats  int // roster size after the leave
}

// NewPlayerLeftEvent creates a PlayerLeftEvent.
func NewPlayerLeftEvent(gameID, name string, seats int) PlayerLeftEvent {
	return PlayerLeftEvent{
		baseEvent: newBaseEvent(TypePlayerLeft),
		GameID:    gameID,
		Name:      name,
		Seats:     seats,
	}
}

// RolesAssignedEvent is emitted once roles are dealt. Only the counts are
// public; who holds which role stays inside the core.
type RolesAssignedEvent struct {
	baseEvent
	GameID      string
	Antagonists int
	Wardens     int
	Residents   int
}

// NewRolesAssignedEvent creates a RolesAssignedEvent.
func NewRolesAssignedEvent(gameID string, antagonists, wardens, residents int) RolesAssignedEvent {
	return RolesAssignedEvent{
		baseEvent:   newBaseEvent(TypeRolesAssigned),
		GameID:      gameID,
		Antagonists: antagonists,
		Wardens:     wardens,
		Residents:   residents,
	}
}

// NightStartedEvent is emitted when a night phase begins.
type NightStartedEvent struct {
	baseEvent
	GameID string
	Round  int
}

// NewNightStartedEvent creates a NightStartedEvent.
func NewNightStartedEvent(gameID string, round int) NightStartedEvent {
	return NightStartedEvent{
		baseEvent: newBaseEvent(TypeNightStarted),
		GameID:    gameID,
		Round:     round,
	}
}

// DiscussionStartedEvent is emitted when a discussion phase begins.
type DiscussionStartedEvent struct {
	baseEvent
	GameID       string
	Round        int
	SpeakerOrder []string // display names in speaking order
}

// NewDiscussionStartedEvent creates a DiscussionStartedEvent.
func NewDiscussionStartedEvent(gameID string, round int, speakerOrder []string) DiscussionStartedEvent {
	order := make([]string, len(speakerOrder))
	copy(order, speakerOrder)
	return DiscussionStartedEvent{
		baseEvent:    newBaseEvent(TypeDiscussionStarted),
		GameID:       gameID,
		Round:        round,
		SpeakerOrder: order,
	}
}

// VotingStartedEvent is emitted when a voting phase begins.
type VotingStartedEvent struct {
	baseEvent
	GameID string
	Round  int
	Alive  []string // display names eligible to vote
}

// NewVotingStartedEvent creates a VotingStartedEvent.
func NewVotingStartedEvent(gameID string, round int, alive []string) VotingStartedEvent {
	names := make([]string, len(alive))
	copy(names, alive)
	return VotingStartedEvent{
		baseEvent: newBaseEvent(TypeVotingStarted),
		GameID:    gameID,
		Round:     round,
		Alive:     names,
	}
}

// VoteCastEvent is emitted for every accepted vote.
type VoteCastEvent struct {
	baseEvent
	GameID string
	Voter  string // display name
	Target string // display name
}

// NewVoteCastEvent creates a VoteCastEvent.
func NewVoteCastEvent(gameID, voter, target string) VoteCastEvent {
	return VoteCastEvent{
		baseEvent: newBaseEvent(TypeVoteCast),
		GameID:    gameID,
		Voter:     voter,
		Target:    target,
	}
}

// PlayerEliminatedEvent is emitted when a participant dies, by vote or at
// night. The role becomes public on elimination.
type PlayerEliminatedEvent struct {
	baseEvent
	GameID string
	Name   string
	Role   game.Role
	Cause  string // "vote" or "night"
	Round  int
}

// NewPlayerEliminatedEvent creates a PlayerEliminatedEvent.
func NewPlayerEliminatedEvent(gameID, name string, role game.Role, cause string, round int) PlayerEliminatedEvent {
	return PlayerEliminatedEvent{
		baseEvent: newBaseEvent(TypePlayerEliminated),
		GameID:    gameID,
		Name:      name,
		Role:      role,
		Cause:     cause,
		Round:     round,
	}
}

// NoEliminationEvent is emitted when a night resolves without a death.
type NoEliminationEvent struct {
	baseEvent
	GameID    string
	Round     int
	Protected bool // a shield saved the target
}

// NewNoEliminationEvent creates a NoEliminationEvent.
func NewNoEliminationEvent(gameID string, round int, protected bool) NoEliminationEvent {
	return NoEliminationEvent{
		baseEvent: newBaseEvent(TypeNoElimination),
		GameID:    gameID,
		Round:     round,
		Protected: protected,
	}
}

// VoteTiedEvent is emitted when a voting phase ends in a tie and nobody
// is eliminated.
type VoteTiedEvent struct {
	baseEvent
	GameID string
	Round  int
	Count  int // votes the tied leaders shared
}

// NewVoteTiedEvent creates a VoteTiedEvent.
func NewVoteTiedEvent(gameID string, round, count int) VoteTiedEvent {
	return VoteTiedEvent{
		baseEvent: newBaseEvent(TypeVoteTied),
		GameID:    gameID,
		Round:     round,
		Count:     count,
	}
}

// GameEndedEvent is emitted exactly once, when a win condition is met.
type GameEndedEvent struct {
	baseEvent
	GameID string
	Winner game.Winner
	Rounds int
}

// NewGameEndedEvent creates a GameEndedEvent.
func NewGameEndedEvent(gameID string, winner game.Winner, rounds int) GameEndedEvent {
	return GameEndedEvent{
		baseEvent: newBaseEvent(TypeGameEnded),
		GameID:    gameID,
		Winner:    winner,
		Rounds:    rounds,
	}
}

// ObserverUpdateEvent carries a spectator-only record. Unlike every other
// event it names the participant and their role; transports must route it
// to spectator channels only.
type ObserverUpdateEvent struct {
	baseEvent
	GameID string
	Update game.ObserverUpdate
}

// NewObserverUpdateEvent creates an ObserverUpdateEvent.
func NewObserverUpdateEvent(gameID string, update game.ObserverUpdate) ObserverUpdateEvent {
	return ObserverUpdateEvent{
		baseEvent: newBaseEvent(TypeObserverUpdate),
		GameID:    gameID,
		Update:    update,
	}
}
