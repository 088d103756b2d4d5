package orchestrator

import (
	"context"
	"time"

	"github.com/duskhollow/duskhollow/internal/distributor"
	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/phase"
	"github.com/duskhollow/duskhollow/internal/sink"
)

// enterPhaseLocked moves the table into a phase, announces it, kicks
// off whatever the phase needs, and arms the completion poller and
// deadline timer. Caller must hold o.mu.
func (o *Orchestrator) enterPhaseLocked(ctx context.Context, next game.Phase, reason string) {
	if o.closed {
		return
	}

	prev := o.store.Phase()
	o.epoch++
	epoch := o.epoch

	round := o.store.Round()
	if next == game.PhaseNight {
		round++
	}

	alive := len(o.store.Alive())
	deadline := time.Now().Add(o.timings.Duration(next, round, alive))
	o.store.UpdatePhase(next, deadline, round, reason)

	if prev != next {
		o.bus.Publish(event.NewPhaseTransitionEvent(o.gameID, prev, next, round, reason))
	}
	o.bus.Publish(event.NewPhaseStartedEvent(o.gameID, next, round, deadline))
	o.dist.Push(distributor.Datum{Type: "phase_started", Payload: map[string]any{
		"phase": string(next),
		"round": round,
	}})

	if next == game.PhaseGameOver {
		o.finishGameLocked()
		return
	}

	switch next {
	case game.PhaseRoleAssignment:
		o.kickoffRolesLocked()
	case game.PhaseNight:
		o.kickoffNightLocked(ctx, epoch)
	case game.PhaseDiscussion:
		o.kickoffDiscussionLocked(ctx, epoch)
	case game.PhaseVoting:
		o.kickoffVotingLocked(ctx, epoch)
	}

	complete := o.completionFor(next)
	o.instance = o.runner.Start(ctx, next, deadline, complete, func(endReason string) {
		o.advance(ctx, epoch, endReason)
	})
}

// advance ends the current phase and enters the next one. Stale epochs
// are dropped: each phase instance transitions at most once.
func (o *Orchestrator) advance(ctx context.Context, epoch int, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || epoch != o.epoch {
		return
	}

	cur := o.store.Phase()
	o.dist.CancelAll()
	if o.instance != nil {
		o.instance.Stop()
		o.instance = nil
	}

	// A waiting phase that times out before the table fills cannot
	// become a game.
	if cur == game.PhaseWaiting && len(o.store.Participants()) < game.FullRoster {
		o.logger.Warn("table never filled, abandoning game",
			"seats", len(o.store.Participants()), "reason", reason)
		o.shutdownLocked()
		return
	}

	o.finishPhaseLocked(cur)

	next := cur.Next()
	if o.winner != game.WinnerNone {
		next = game.PhaseGameOver
	}
	o.enterPhaseLocked(ctx, next, reason)
}

// completionFor returns the predicate that decides when a phase is
// functionally done. Revelation has none: it always runs its clock.
func (o *Orchestrator) completionFor(p game.Phase) phase.CompletionFunc {
	switch p {
	case game.PhaseWaiting:
		return func() bool {
			return len(o.store.Participants()) == game.FullRoster && o.store.AllReady()
		}
	case game.PhaseRoleAssignment:
		return func() bool {
			for _, p := range o.store.Participants() {
				if p.Role == game.RoleUnassigned {
					return false
				}
			}
			return true
		}
	case game.PhaseNight:
		return func() bool {
			_, _, actions := o.store.PhaseCounts()
			return actions >= o.nightActorCount()
		}
	case game.PhaseDiscussion:
		return func() bool {
			o.mu.Lock()
			defer o.mu.Unlock()
			return o.cursor >= len(o.speakOrder)
		}
	case game.PhaseVoting:
		return func() bool {
			_, votes, _ := o.store.PhaseCounts()
			return votes >= len(o.store.Alive())
		}
	default:
		return nil
	}
}

// nightActorCount returns how many living seats owe a night action.
func (o *Orchestrator) nightActorCount() int {
	n := 0
	for _, p := range o.store.Alive() {
		if p.Role.HasNightAction() {
			n++
		}
	}
	return n
}

// finishPhaseLocked applies end-of-phase resolution and runs the win
// check wherever an elimination can happen.
func (o *Orchestrator) finishPhaseLocked(cur game.Phase) {
	switch cur {
	case game.PhaseNight:
		o.resolveNightLocked()
	case game.PhaseVoting:
		o.resolveVotesLocked()
	case game.PhaseDiscussion:
		o.stopTurnTimerLocked()
		o.store.SetCurrentSpeaker("")
		o.speakOrder = nil
		o.cursor = 0
	}
}

func (o *Orchestrator) resolveNightLocked() {
	result := game.ResolveNight(o.store.NightActions())
	round := o.store.Round()

	if result.EliminatedID == "" {
		o.bus.Publish(event.NewNoEliminationEvent(o.gameID, round, result.Protected))
		o.logger.Info("night resolved with no elimination", "protected", result.Protected)
	} else {
		o.store.EliminateParticipant(result.EliminatedID, "night")
		o.checkWinLocked()
	}
}

func (o *Orchestrator) resolveVotesLocked() {
	tally := game.TallyVotes(o.store.Votes())
	round := o.store.Round()

	switch {
	case tally.Tied:
		o.bus.Publish(event.NewVoteTiedEvent(o.gameID, round, tally.Count))
		o.logger.Info("vote tied, nobody eliminated", "count", tally.Count)
	case tally.TargetID == "":
		o.bus.Publish(event.NewNoEliminationEvent(o.gameID, round, false))
	default:
		o.store.EliminateParticipant(tally.TargetID, "vote")
		o.checkWinLocked()
	}
}

// checkWinLocked evaluates the win condition. Called after every
// elimination.
func (o *Orchestrator) checkWinLocked() {
	w := game.EvaluateWin(o.store.Participants())
	if w == game.WinnerNone {
		return
	}
	o.winner = w
	o.store.SetWinner(w)
}

// finishGameLocked publishes the outcome and shuts the table down.
func (o *Orchestrator) finishGameLocked() {
	rounds := o.store.Round()
	stats := o.dist.Stats()

	o.bus.Publish(event.NewGameEndedEvent(o.gameID, o.winner, rounds))
	o.writeSink(sink.TypeGameEnd, map[string]any{
		"winner":     string(o.winner),
		"rounds":     rounds,
		"triggers":   stats.Triggers,
		"errors":     stats.Errors,
		"error_rate": stats.ErrorRate,
	})
	o.logger.Info("game over", "winner", o.winner, "rounds", rounds)
	o.shutdownLocked()
}

// kickoffRolesLocked deals roles. The short role-assignment phase exists
// so clients see the transition; the deal itself is immediate.
func (o *Orchestrator) kickoffRolesLocked() {
	ids := make([]string, 0, game.FullRoster)
	for _, p := range o.store.Participants() {
		ids = append(ids, p.ID)
	}

	o.rngMu.Lock()
	roles := game.AssignRoles(ids, o.rng)
	o.rngMu.Unlock()

	o.store.AssignRoles(roles)

	// Private role notifications. Antagonists also learn their allies.
	var antagonists []string
	for id, role := range roles {
		if role.IsAntagonist() {
			if p, ok := o.store.Participant(id); ok {
				antagonists = append(antagonists, p.Name)
			}
		}
	}
	for id, role := range roles {
		payload := map[string]any{"role": string(role)}
		if role.IsAntagonist() {
			payload["allies"] = allNamesExcept(antagonists, o.displayName(id))
		}
		o.dist.Update(id, distributor.Datum{Type: "role", Payload: payload})
	}
}

// kickoffNightLocked announces the night and prompts each living
// role-holder for its action.
func (o *Orchestrator) kickoffNightLocked(ctx context.Context, epoch int) {
	o.bus.Publish(event.NewNightStartedEvent(o.gameID, o.store.Round()))

	for _, p := range o.store.Alive() {
		if !p.Role.HasNightAction() || p.Kind != game.KindAgent {
			continue
		}
		go o.promptNightAction(ctx, epoch, p.ID)
	}
}

// kickoffDiscussionLocked reshuffles the speaking order and hands the
// floor to the first speaker. The cursor is the only thing that ever
// moves the floor.
func (o *Orchestrator) kickoffDiscussionLocked(ctx context.Context, epoch int) {
	living := o.store.Alive()

	order := make([]string, len(living))
	names := make([]string, len(living))
	for i, p := range living {
		order[i] = p.ID
	}
	o.rngMu.Lock()
	o.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	o.rngMu.Unlock()
	for i, id := range order {
		names[i] = o.displayName(id)
	}

	o.speakOrder = order
	o.cursor = 0
	o.bus.Publish(event.NewDiscussionStartedEvent(o.gameID, o.store.Round(), names))
	o.giveFloorLocked(ctx, epoch)
}

// giveFloorLocked points the store at the speaker under the cursor,
// arms the turn deadline, and prompts agent seats. Caller must hold
// o.mu.
func (o *Orchestrator) giveFloorLocked(ctx context.Context, epoch int) {
	o.stopTurnTimerLocked()
	if o.cursor >= len(o.speakOrder) {
		o.store.SetCurrentSpeaker("")
		return
	}

	speakerID := o.speakOrder[o.cursor]
	p, ok := o.store.Participant(speakerID)
	if !ok || !p.Alive {
		// Speaker died mid-phase; skip the slot.
		o.cursor++
		o.giveFloorLocked(ctx, epoch)
		return
	}

	o.store.SetCurrentSpeaker(speakerID)

	// A seat that says nothing within its allotment forfeits only its
	// own turn; the floor never waits on one speaker for the whole
	// phase.
	o.turnTimer = time.AfterFunc(o.timings.SpeakerAllotment, func() {
		o.advanceCursor(ctx, epoch, speakerID)
	})

	if p.Kind == game.KindAgent {
		go o.promptSpeaker(ctx, epoch, speakerID)
	}
}

// advanceCursor moves the floor past the named speaker's slot. The
// speaker guard makes the call idempotent: whichever of a delivered
// message, a skipped turn, or the turn deadline gets there first moves
// the floor, and the rest are no-ops. The cursor moving past the last
// slot is the discussion's completion signal.
func (o *Orchestrator) advanceCursor(ctx context.Context, epoch int, speakerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || epoch != o.epoch {
		return
	}
	if o.cursor >= len(o.speakOrder) || o.speakOrder[o.cursor] != speakerID {
		return
	}
	o.cursor++
	o.giveFloorLocked(ctx, epoch)
}

func (o *Orchestrator) stopTurnTimerLocked() {
	if o.turnTimer != nil {
		o.turnTimer.Stop()
		o.turnTimer = nil
	}
}

// kickoffVotingLocked announces the electorate and prompts every living
// agent for a vote.
func (o *Orchestrator) kickoffVotingLocked(ctx context.Context, epoch int) {
	living := o.store.Alive()
	names := make([]string, len(living))
	for i, p := range living {
		names[i] = p.Name
	}
	o.bus.Publish(event.NewVotingStartedEvent(o.gameID, o.store.Round(), names))

	for _, p := range living {
		if p.Kind != game.KindAgent {
			continue
		}
		go o.promptVote(ctx, epoch, p.ID)
	}
}

// Speak submits a discussion message on behalf of a participant. Only
// the floor holder's message is accepted; acceptance passes the floor.
func (o *Orchestrator) Speak(id, content string) bool {
	o.mu.Lock()
	epoch := o.epoch
	o.mu.Unlock()

	if !o.store.AddMessage(id, content) {
		return false
	}
	o.advanceCursor(context.Background(), epoch, id)
	return true
}

// CastVote submits a vote by target display name.
func (o *Orchestrator) CastVote(id, targetName, reason string) bool {
	targetID, err := o.registry.ResolveID(targetName, o.gameID)
	if err != nil {
		return false
	}
	return o.store.AddVote(id, targetID, reason)
}

// NightAct submits a night action by target display name. An empty
// target is an abstention where the role allows it.
func (o *Orchestrator) NightAct(id string, kind game.ActionKind, targetName string) bool {
	targetID := ""
	if targetName != "" {
		resolved, err := o.registry.ResolveID(targetName, o.gameID)
		if err != nil {
			return false
		}
		targetID = resolved
	}
	return o.store.AddNightAction(id, kind, targetID)
}

func (o *Orchestrator) displayName(id string) string {
	if p, ok := o.store.Participant(id); ok {
		return p.Name
	}
	return ""
}

func allNamesExcept(names []string, excluded string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != excluded {
			out = append(out, n)
		}
	}
	return out
}
