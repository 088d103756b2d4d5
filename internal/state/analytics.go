package state

import "strings"

// Heuristic suspicion deltas. The matrix is spectator analytics and AI
// context, never an input to game rules, so the exact weights only need
// to move scores in a plausible direction.
const (
	accusationDelta = 1.5
	overheardDelta  = 0.5
	trustDelta      = -1.0
	vindicatedDelta = -1.0
	misledDelta     = 0.5
)

var accusationWords = []string{"suspicious", "suspect", "lying", "liar", "hiding"}
var trustWords = []string{"trust", "innocent", "believe"}

// applyMessageHeuristics scans an accepted discussion message for
// references to living participants and shifts suspicion accordingly.
// An accusation moves the sender's score sharply and every listener's a
// little; a statement of trust moves only the sender's. Caller must hold
// the lock.
func (s *Store) applyMessageHeuristics(senderID, content string) {
	lower := strings.ToLower(content)

	accusing := containsAny(lower, accusationWords)
	trusting := containsAny(lower, trustWords)
	if !accusing && !trusting {
		return
	}

	for id, p := range s.participants {
		if id == senderID || !p.Alive {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(p.Name)) {
			continue
		}
		if accusing {
			s.suspicion.Adjust(senderID, id, accusationDelta)
			for listenerID, listener := range s.participants {
				if listenerID == senderID || listenerID == id || !listener.Alive {
					continue
				}
				s.suspicion.Adjust(listenerID, id, overheardDelta)
			}
		} else {
			s.suspicion.Adjust(senderID, id, trustDelta)
		}
	}
}

// applyEliminationHeuristics reacts to a reveal. Voters who named an
// antagonist were right, and everyone trusts them a little more; voters
// who condemned an ordinary resident look worse. Called before the
// eliminated participant's live vote is cleared; caller must hold the
// lock.
func (s *Store) applyEliminationHeuristics(eliminatedID string) {
	eliminated, exists := s.participants[eliminatedID]
	if !exists {
		return
	}

	delta := misledDelta
	if eliminated.Role.IsAntagonist() {
		delta = vindicatedDelta
	}

	for voterID, vote := range s.votes {
		if vote.TargetID != eliminatedID {
			continue
		}
		for observerID, observer := range s.participants {
			if observerID == voterID || !observer.Alive {
				continue
			}
			s.suspicion.Adjust(observerID, voterID, delta)
		}
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
