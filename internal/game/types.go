package game

import "time"

// ParticipantKind distinguishes human seats from AI-controlled ones.
type ParticipantKind string

const (
	KindHuman ParticipantKind = "human"
	KindAgent ParticipantKind = "agent"
)

// Participant is one seat at the table. The ID is internal-only; Name is
// the per-game display name and the only identity other participants or
// agents ever see.
type Participant struct {
	ID         string
	Name       string
	Kind       ParticipantKind
	Role       Role
	Alive      bool
	Ready      bool
	LastActive time.Time
}

// ActionKind identifies a night action.
type ActionKind string

const (
	ActionEliminate ActionKind = "eliminate"
	ActionProtect   ActionKind = "protect"
)

// Vote is one participant's live vote. A newer vote from the same voter
// replaces the prior one.
type Vote struct {
	VoterID  string
	TargetID string
	Reason   string
	CastAt   time.Time
}

// NightAction is one role-holder's night submission. At most one live
// action per actor per night.
type NightAction struct {
	ActorID     string
	Kind        ActionKind
	TargetID    string // empty for abstention where legal
	SubmittedAt time.Time
}

// ChatMessage is a discussion-phase message. Only the participant whose
// turn it is may send one.
type ChatMessage struct {
	SenderID string
	Content  string
	Phase    Phase
	SentAt   time.Time
}

// GameEvent is one append-only history entry. The event log is the full
// record of a game and drives analytics and client hydration.
type GameEvent struct {
	Type      string
	Timestamp time.Time
	Phase     Phase
	Round     int
	Payload   map[string]any
}

// ObserverKind classifies spectator-only records.
type ObserverKind string

const (
	// ObserverCoordination is conspiracy chatter between antagonists.
	ObserverCoordination ObserverKind = "coordination"
	// ObserverReasoning is an agent's private decision reasoning.
	ObserverReasoning ObserverKind = "reasoning"
	// ObserverNarration describes a private action as it happens.
	ObserverNarration ObserverKind = "narration"
)

// ObserverUpdate is a privileged record visible only to spectators. It
// carries full identity and role context, unlike anything
// participant-facing.
type ObserverUpdate struct {
	Kind          ObserverKind
	ParticipantID string
	Name          string
	Role          Role
	Content       string
	Timestamp     time.Time
}

// Winner identifies the side a finished game went to.
type Winner string

const (
	WinnerNone        Winner = ""
	WinnerAntagonists Winner = "antagonists"
	WinnerTown        Winner = "town"
)

// PhaseRecord captures how long a completed phase actually ran and why it
// ended.
type PhaseRecord struct {
	Phase     Phase
	Round     int
	StartedAt time.Time
	EndedAt   time.Time
	Reason    string // "completed" or "deadline"
}
