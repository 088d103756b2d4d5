package game

// TallyResult is the outcome of counting a vote set.
type TallyResult struct {
	TargetID string // eliminated target, empty on tie or no votes
	Count    int    // votes the max target(s) received
	Tied     bool   // two or more targets shared the maximum
}

// TallyVotes counts the live vote set and selects the unique
// maximum-vote target. Two or more targets sharing the maximum is a tie
// and eliminates nobody.
func TallyVotes(votes []Vote) TallyResult {
	if len(votes) == 0 {
		return TallyResult{}
	}

	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.TargetID]++
	}

	var leader string
	max, holders := 0, 0
	for target, n := range counts {
		switch {
		case n > max:
			max, holders, leader = n, 1, target
		case n == max:
			holders++
		}
	}

	if holders > 1 {
		return TallyResult{Count: max, Tied: true}
	}
	return TallyResult{TargetID: leader, Count: max}
}

// NightResult is the outcome of resolving a night's actions.
type NightResult struct {
	EliminatedID string // empty if nobody died
	Protected    bool   // the elimination target was shielded
}

// ResolveNight applies the night's actions: a protect action naming the
// same target as the eliminate action cancels the elimination; any other
// combination (or no protect) lets it proceed. An eliminate action with
// no target is an abstention.
func ResolveNight(actions []NightAction) NightResult {
	var eliminate, protect string
	var haveEliminate bool
	for _, a := range actions {
		switch a.Kind {
		case ActionEliminate:
			eliminate = a.TargetID
			haveEliminate = a.TargetID != ""
		case ActionProtect:
			protect = a.TargetID
		}
	}

	if !haveEliminate {
		return NightResult{}
	}
	if protect != "" && protect == eliminate {
		return NightResult{Protected: true}
	}
	return NightResult{EliminatedID: eliminate}
}

// EvaluateWin checks the win condition over the living roster.
// Antagonists win when their living count reaches parity with everyone
// else combined (and at least one antagonist lives); the town wins when
// no antagonist remains. Idempotent: the same roster always yields the
// same winner.
func EvaluateWin(participants []Participant) Winner {
	var antagonists, others int
	for _, p := range participants {
		if !p.Alive {
			continue
		}
		if p.Role.IsAntagonist() {
			antagonists++
		} else {
			others++
		}
	}

	if antagonists == 0 {
		return WinnerTown
	}
	if antagonists >= others {
		return WinnerAntagonists
	}
	return WinnerNone
}
