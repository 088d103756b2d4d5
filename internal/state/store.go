// Package state holds the single authoritative record of a running game.
//
// All mutation goes through the Store's mutator methods, which validate,
// append exactly one history event on success, update derived analytics
// synchronously, and publish to the event bus. Mutators report validation
// failures by returning false; they are expected conditions (an agent
// voting for a dead seat, a message out of turn), never errors.
package state

import (
	"sync"
	"time"

	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/logging"
)

// maxObserverLog caps the spectator side channel at the most recent
// entries.
const maxObserverLog = 100

// Store is the authoritative mutable state of one game.
// Safe for concurrent use; every mutator is atomic.
type Store struct {
	mu     sync.Mutex
	gameID string
	logger *logging.Logger
	bus    *event.Bus
	now    func() time.Time

	phase          game.Phase
	phaseStart     time.Time
	phaseEnd       time.Time
	round          int
	currentSpeaker string
	winner         game.Winner

	participants map[string]*game.Participant
	joinOrder    []string
	messages     []game.ChatMessage
	votes        map[string]game.Vote        // voter id -> live vote
	nightActions map[string]game.NightAction // actor id -> live action
	events       []game.GameEvent
	observerLog  []game.ObserverUpdate
	suspicion    *game.SuspicionMatrix
	phaseHistory []game.PhaseRecord

	// Per-phase acceptance counters, reset on every phase change.
	phaseMessages int
	phaseVotes    int
	phaseActions  int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Tests use this to make
// timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store for one game. The bus is required: every
// accepted mutation is announced on it. The logger may be nil-equivalent
// (logging.NopLogger()).
func NewStore(gameID string, bus *event.Bus, logger *logging.Logger, opts ...Option) *Store {
	s := &Store{
		gameID:       gameID,
		bus:          bus,
		logger:       logger.WithGame(gameID),
		now:          time.Now,
		phase:        game.PhaseWaiting,
		participants: make(map[string]*game.Participant),
		votes:        make(map[string]game.Vote),
		nightActions: make(map[string]game.NightAction),
		suspicion:    game.NewSuspicionMatrix(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.phaseStart = s.now()
	return s
}

// GameID returns the game identifier.
func (s *Store) GameID() string { return s.gameID }

// AddParticipant seats a participant. Legal only while waiting for the
// game to start, with a free seat and an unused id.
func (s *Store) AddParticipant(p game.Participant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseWaiting {
		return false
	}
	if len(s.participants) >= game.FullRoster {
		return false
	}
	if _, exists := s.participants[p.ID]; exists {
		return false
	}

	p.Role = game.RoleUnassigned
	p.Alive = true
	p.LastActive = s.now()
	s.participants[p.ID] = &p
	s.joinOrder = append(s.joinOrder, p.ID)

	s.appendEvent("player_joined", map[string]any{"name": p.Name, "kind": string(p.Kind)})
	s.bus.Publish(event.NewPlayerJoinedEvent(s.gameID, p.Name, p.Kind, len(s.participants)))
	s.logger.Info("participant joined", "name", p.Name, "kind", p.Kind, "seats", len(s.participants))
	return true
}

// RemoveParticipant takes a participant out of the game entirely.
func (s *Store) RemoveParticipant(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.participants[id]
	if !exists {
		return false
	}

	delete(s.participants, id)
	for i, jid := range s.joinOrder {
		if jid == id {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}
	delete(s.votes, id)
	delete(s.nightActions, id)
	s.suspicion.Remove(id)

	s.appendEvent("player_left", map[string]any{"name": p.Name})
	s.bus.Publish(event.NewPlayerLeftEvent(s.gameID, p.Name, len(s.participants)))
	s.logger.Info("participant left", "name", p.Name, "seats", len(s.participants))
	return true
}

// SetReady marks a participant ready during the waiting phase.
func (s *Store) SetReady(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseWaiting {
		return false
	}
	p, exists := s.participants[id]
	if !exists {
		return false
	}
	p.Ready = true
	p.LastActive = s.now()
	return true
}

// AssignRoles deals the given roles. Legal only during role assignment,
// and only when every seated participant receives one.
func (s *Store) AssignRoles(roles map[string]game.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseRoleAssignment {
		return false
	}
	if len(roles) != len(s.participants) {
		return false
	}
	for id := range roles {
		if _, exists := s.participants[id]; !exists {
			return false
		}
	}

	var antagonists, wardens, residents int
	for id, role := range roles {
		s.participants[id].Role = role
		switch {
		case role.IsAntagonist():
			antagonists++
		case role == game.RoleWarden:
			wardens++
		default:
			residents++
		}
	}

	s.appendEvent("roles_assigned", map[string]any{
		"antagonists": antagonists,
		"wardens":     wardens,
		"residents":   residents,
	})
	s.bus.Publish(event.NewRolesAssignedEvent(s.gameID, antagonists, wardens, residents))
	s.logger.Info("roles assigned", "antagonists", antagonists, "wardens", wardens, "residents", residents)
	return true
}

// AddMessage accepts a discussion message. Valid only during discussion,
// from the living participant whose turn it currently is.
func (s *Store) AddMessage(senderID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseDiscussion || content == "" {
		return false
	}
	p, exists := s.participants[senderID]
	if !exists || !p.Alive {
		return false
	}
	if s.currentSpeaker != senderID {
		return false
	}

	msg := game.ChatMessage{
		SenderID: senderID,
		Content:  content,
		Phase:    s.phase,
		SentAt:   s.now(),
	}
	s.messages = append(s.messages, msg)
	s.phaseMessages++
	p.LastActive = msg.SentAt

	s.applyMessageHeuristics(senderID, content)
	s.appendEvent("message", map[string]any{"sender": p.Name, "content": content})
	s.logger.Debug("message accepted", "sender", p.Name)
	return true
}

// AddVote accepts or replaces a participant's live vote. Voter and
// target must both be alive, distinct, and it must be the voting phase.
func (s *Store) AddVote(voterID, targetID, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseVoting {
		return false
	}
	if voterID == targetID {
		return false
	}
	voter, exists := s.participants[voterID]
	if !exists || !voter.Alive {
		return false
	}
	target, exists := s.participants[targetID]
	if !exists || !target.Alive {
		return false
	}

	_, replacing := s.votes[voterID]
	s.votes[voterID] = game.Vote{
		VoterID:  voterID,
		TargetID: targetID,
		Reason:   reason,
		CastAt:   s.now(),
	}
	if !replacing {
		s.phaseVotes++
	}
	voter.LastActive = s.now()

	s.suspicion.Adjust(voterID, targetID, 1.0)
	s.appendEvent("vote_cast", map[string]any{"voter": voter.Name, "target": target.Name})
	s.bus.Publish(event.NewVoteCastEvent(s.gameID, voter.Name, target.Name))
	s.logger.Debug("vote accepted", "voter", voter.Name, "target", target.Name)
	return true
}

// AddNightAction accepts or replaces a role-holder's night action.
// "eliminate" is legal only for the ringleader, "protect" only for the
// warden; actors must be alive, targets (when named) alive, and an
// eliminate may not name its own actor.
func (s *Store) AddNightAction(actorID string, kind game.ActionKind, targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != game.PhaseNight {
		return false
	}
	actor, exists := s.participants[actorID]
	if !exists || !actor.Alive {
		return false
	}

	switch kind {
	case game.ActionEliminate:
		if actor.Role != game.RoleRingleader {
			return false
		}
		if targetID == actorID {
			return false
		}
	case game.ActionProtect:
		if actor.Role != game.RoleWarden {
			return false
		}
	default:
		return false
	}

	if targetID != "" {
		target, exists := s.participants[targetID]
		if !exists || !target.Alive {
			return false
		}
	}

	_, replacing := s.nightActions[actorID]
	s.nightActions[actorID] = game.NightAction{
		ActorID:     actorID,
		Kind:        kind,
		TargetID:    targetID,
		SubmittedAt: s.now(),
	}
	if !replacing {
		s.phaseActions++
	}
	actor.LastActive = s.now()

	s.appendEvent("night_action", map[string]any{"kind": string(kind)})
	s.logger.Debug("night action accepted", "actor", actor.Name, "kind", kind)
	return true
}

// EliminateParticipant kills a living participant. Cause is "vote" or
// "night". The role is revealed in the published event.
func (s *Store) EliminateParticipant(id, cause string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.participants[id]
	if !exists || !p.Alive {
		return false
	}

	p.Alive = false
	s.applyEliminationHeuristics(id)
	delete(s.votes, id)
	delete(s.nightActions, id)

	s.appendEvent("player_eliminated", map[string]any{
		"name":  p.Name,
		"role":  string(p.Role),
		"cause": cause,
	})
	s.bus.Publish(event.NewPlayerEliminatedEvent(s.gameID, p.Name, p.Role, cause, s.round))
	s.logger.Info("participant eliminated", "name", p.Name, "role", p.Role, "cause", cause)
	return true
}

// UpdatePhase moves the table to a new phase, recording the duration of
// the one just ended and resetting per-phase state. Reason is carried in
// the history ("completed" or "deadline").
func (s *Store) UpdatePhase(next game.Phase, deadline time.Time, round int, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !next.Valid() {
		return false
	}

	now := s.now()
	// The bootstrap update that opens the waiting phase ends nothing, so
	// it leaves no history record.
	if s.phase != next || len(s.phaseHistory) > 0 {
		s.phaseHistory = append(s.phaseHistory, game.PhaseRecord{
			Phase:     s.phase,
			Round:     s.round,
			StartedAt: s.phaseStart,
			EndedAt:   now,
			Reason:    reason,
		})
	}

	prev := s.phase
	s.phase = next
	s.phaseStart = now
	s.phaseEnd = deadline
	s.round = round
	s.currentSpeaker = ""
	s.votes = make(map[string]game.Vote)
	s.nightActions = make(map[string]game.NightAction)
	s.phaseMessages, s.phaseVotes, s.phaseActions = 0, 0, 0

	s.appendEvent("phase_change", map[string]any{
		"from":   string(prev),
		"to":     string(next),
		"reason": reason,
	})
	s.logger.Info("phase updated", "from", prev, "to", next, "round", round, "reason", reason)
	return true
}

// SetCurrentSpeaker hands the discussion floor to a participant. An
// empty id clears the floor. Only the orchestrator's cursor calls this.
func (s *Store) SetCurrentSpeaker(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.currentSpeaker = ""
		return true
	}
	p, exists := s.participants[id]
	if !exists || !p.Alive {
		return false
	}
	s.currentSpeaker = id
	return true
}

// SetWinner records the game outcome.
func (s *Store) SetWinner(w game.Winner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winner = w
}

// AddObserverUpdate appends a spectator-only record. The caller supplies
// only the actor id and content; identity and role context are attached
// here, at write time. The log keeps the most recent entries only.
func (s *Store) AddObserverUpdate(kind game.ObserverKind, actorID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.participants[actorID]
	if !exists {
		return false
	}

	update := game.ObserverUpdate{
		Kind:          kind,
		ParticipantID: actorID,
		Name:          p.Name,
		Role:          p.Role,
		Content:       content,
		Timestamp:     s.now(),
	}
	s.observerLog = append(s.observerLog, update)
	if len(s.observerLog) > maxObserverLog {
		s.observerLog = s.observerLog[len(s.observerLog)-maxObserverLog:]
	}

	s.bus.Publish(event.NewObserverUpdateEvent(s.gameID, update))
	return true
}

// appendEvent records one history entry. Caller must hold the lock.
func (s *Store) appendEvent(eventType string, payload map[string]any) {
	s.events = append(s.events, game.GameEvent{
		Type:      eventType,
		Timestamp: s.now(),
		Phase:     s.phase,
		Round:     s.round,
		Payload:   payload,
	})
}
