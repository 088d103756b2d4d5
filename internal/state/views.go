package state

import (
	"time"

	"github.com/duskhollow/duskhollow/internal/game"
)

// Snapshot is the orchestrator's full, trusted copy of the table. It
// never leaves the process.
type Snapshot struct {
	GameID         string
	Phase          game.Phase
	Round          int
	Deadline       time.Time
	CurrentSpeaker string
	Winner         game.Winner
	Participants   []game.Participant
	Votes          []game.Vote
	NightActions   []game.NightAction
}

// SeatView is one seat as a participant sees it. Role is empty unless
// the viewer is entitled to it.
type SeatView struct {
	Name  string
	Kind  game.ParticipantKind
	Alive bool
	Role  game.Role
}

// MessageView is a discussion message with the sender resolved to a
// display name.
type MessageView struct {
	Sender  string
	Content string
	SentAt  time.Time
}

// ParticipantView is the sanitized projection handed to one participant:
// display names only, own role always visible, other roles only once
// revealed by elimination, shared allegiance, or the end of the game.
type ParticipantView struct {
	Phase          game.Phase
	Round          int
	Deadline       time.Time
	You            SeatView
	Seats          []SeatView
	Messages       []MessageView
	CurrentSpeaker string
	YourVote       string
}

// SpectatorView is the privileged projection for non-playing observers:
// every role, the observer side channel, suspicion analytics, and phase
// timing history.
type SpectatorView struct {
	Phase        game.Phase
	Round        int
	Winner       game.Winner
	Seats        []SeatView
	Observer     []game.ObserverUpdate
	Suspicion    map[string]map[string]float64
	PhaseHistory []game.PhaseRecord
}

// Phase returns the current phase.
func (s *Store) Phase() game.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Round returns the current round number.
func (s *Store) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Deadline returns the current phase's hard deadline.
func (s *Store) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseEnd
}

// CurrentSpeaker returns the id of the participant holding the floor,
// or empty.
func (s *Store) CurrentSpeaker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSpeaker
}

// Winner returns the recorded outcome, or WinnerNone while running.
func (s *Store) Winner() game.Winner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

// Participant returns a copy of one seat.
func (s *Store) Participant(id string) (game.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.participants[id]
	if !exists {
		return game.Participant{}, false
	}
	return *p, true
}

// Participants returns copies of every seat in join order.
func (s *Store) Participants() []game.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantsLocked()
}

// Alive returns copies of the living seats in join order.
func (s *Store) Alive() []game.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []game.Participant
	for _, id := range s.joinOrder {
		if p := s.participants[id]; p.Alive {
			out = append(out, *p)
		}
	}
	return out
}

// AllReady reports whether every seated participant has marked ready.
func (s *Store) AllReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.participants) == 0 {
		return false
	}
	for _, p := range s.participants {
		if !p.Ready {
			return false
		}
	}
	return true
}

// PhaseCounts returns how many messages, votes, and night actions the
// current phase has accepted.
func (s *Store) PhaseCounts() (messages, votes, actions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseMessages, s.phaseVotes, s.phaseActions
}

// Votes returns copies of the live votes.
func (s *Store) Votes() []game.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votesLocked()
}

// NightActions returns copies of the live night actions.
func (s *Store) NightActions() []game.NightAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nightActionsLocked()
}

// Events returns a copy of the append-only history.
func (s *Store) Events() []game.GameEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]game.GameEvent, len(s.events))
	copy(out, s.events)
	return out
}

// SuspicionSnapshot returns a deep copy of the suspicion matrix keyed by
// participant id. For anything that leaves the core, use SpectatorView,
// which rekeys by display name.
func (s *Store) SuspicionSnapshot() map[string]map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspicion.Snapshot()
}

// PhaseHistory returns a copy of the completed-phase records.
func (s *Store) PhaseHistory() []game.PhaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]game.PhaseRecord, len(s.phaseHistory))
	copy(out, s.phaseHistory)
	return out
}

// InternalSnapshot returns the full trusted state in one consistent
// read.
func (s *Store) InternalSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		GameID:         s.gameID,
		Phase:          s.phase,
		Round:          s.round,
		Deadline:       s.phaseEnd,
		CurrentSpeaker: s.currentSpeaker,
		Winner:         s.winner,
		Participants:   s.participantsLocked(),
		Votes:          s.votesLocked(),
		NightActions:   s.nightActionsLocked(),
	}
}

// View builds the sanitized projection for one participant. Returns
// false for unknown viewers.
func (s *Store) View(viewerID string) (ParticipantView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewer, exists := s.participants[viewerID]
	if !exists {
		return ParticipantView{}, false
	}

	over := s.phase == game.PhaseGameOver
	view := ParticipantView{
		Phase:    s.phase,
		Round:    s.round,
		Deadline: s.phaseEnd,
		You: SeatView{
			Name:  viewer.Name,
			Kind:  viewer.Kind,
			Alive: viewer.Alive,
			Role:  viewer.Role,
		},
	}

	for _, id := range s.joinOrder {
		if id == viewerID {
			continue
		}
		p := s.participants[id]
		seat := SeatView{Name: p.Name, Kind: p.Kind, Alive: p.Alive}
		// Roles surface only through elimination, shared allegiance,
		// or the end of the game.
		if over || !p.Alive || (viewer.Role.IsAntagonist() && p.Role.IsAntagonist()) {
			seat.Role = p.Role
		}
		view.Seats = append(view.Seats, seat)
	}

	for _, msg := range s.messages {
		sender := msg.SenderID
		if p, ok := s.participants[sender]; ok {
			sender = p.Name
		}
		view.Messages = append(view.Messages, MessageView{
			Sender:  sender,
			Content: msg.Content,
			SentAt:  msg.SentAt,
		})
	}

	if s.currentSpeaker != "" {
		if p, ok := s.participants[s.currentSpeaker]; ok {
			view.CurrentSpeaker = p.Name
		}
	}
	if vote, ok := s.votes[viewerID]; ok {
		if p, ok := s.participants[vote.TargetID]; ok {
			view.YourVote = p.Name
		}
	}
	return view, true
}

// Spectate builds the privileged observer projection. Suspicion scores
// are rekeyed by display name so internal ids never leave the core.
func (s *Store) Spectate() SpectatorView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := SpectatorView{
		Phase:  s.phase,
		Round:  s.round,
		Winner: s.winner,
	}

	for _, id := range s.joinOrder {
		p := s.participants[id]
		view.Seats = append(view.Seats, SeatView{
			Name:  p.Name,
			Kind:  p.Kind,
			Alive: p.Alive,
			Role:  p.Role,
		})
	}

	view.Observer = make([]game.ObserverUpdate, len(s.observerLog))
	copy(view.Observer, s.observerLog)

	view.Suspicion = make(map[string]map[string]float64)
	for a, row := range s.suspicion.Snapshot() {
		pa, ok := s.participants[a]
		if !ok {
			continue
		}
		named := make(map[string]float64, len(row))
		for b, score := range row {
			if pb, ok := s.participants[b]; ok {
				named[pb.Name] = score
			}
		}
		view.Suspicion[pa.Name] = named
	}

	view.PhaseHistory = make([]game.PhaseRecord, len(s.phaseHistory))
	copy(view.PhaseHistory, s.phaseHistory)
	return view
}

func (s *Store) participantsLocked() []game.Participant {
	out := make([]game.Participant, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		out = append(out, *s.participants[id])
	}
	return out
}

func (s *Store) votesLocked() []game.Vote {
	out := make([]game.Vote, 0, len(s.votes))
	for _, v := range s.votes {
		out = append(out, v)
	}
	return out
}

func (s *Store) nightActionsLocked() []game.NightAction {
	out := make([]game.NightAction, 0, len(s.nightActions))
	for _, a := range s.nightActions {
		out = append(out, a)
	}
	return out
}
