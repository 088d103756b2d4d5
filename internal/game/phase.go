package game

// Phase is a named stage of the round cycle.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseRoleAssignment Phase = "role_assignment"
	PhaseNight          Phase = "night"
	PhaseRevelation     Phase = "revelation"
	PhaseDiscussion     Phase = "discussion"
	PhaseVoting         Phase = "voting"
	PhaseGameOver       Phase = "game_over"
)

// Next returns the phase that follows p in the strict cycle:
// waiting → role_assignment → night → revelation → discussion → voting →
// night. Voting may instead terminate the game; that decision belongs to
// the orchestrator, not the table. game_over is terminal.
func (p Phase) Next() Phase {
	switch p {
	case PhaseWaiting:
		return PhaseRoleAssignment
	case PhaseRoleAssignment:
		return PhaseNight
	case PhaseNight:
		return PhaseRevelation
	case PhaseRevelation:
		return PhaseDiscussion
	case PhaseDiscussion:
		return PhaseVoting
	case PhaseVoting:
		return PhaseNight
	default:
		return PhaseGameOver
	}
}

// Skippable reports whether the phase permits early termination once its
// required actions are satisfied.
func (p Phase) Skippable() bool {
	switch p {
	case PhaseWaiting, PhaseNight, PhaseDiscussion, PhaseVoting:
		return true
	default:
		return false
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseRoleAssignment, PhaseNight, PhaseRevelation,
		PhaseDiscussion, PhaseVoting, PhaseGameOver:
		return true
	}
	return false
}
