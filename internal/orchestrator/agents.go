package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/duskhollow/duskhollow/internal/decision"
	"github.com/duskhollow/duskhollow/internal/distributor"
	"github.com/duskhollow/duskhollow/internal/errs"
	"github.com/duskhollow/duskhollow/internal/game"
)

// historyDepth is how many recent table messages an agent sees when
// deciding.
const historyDepth = 12

// personalities are the descriptors handed to the decision service so
// agent seats do not all argue in the same voice. Assignment is
// deterministic per display name.
var personalities = []string{
	"blunt and quick to accuse",
	"cautious, weighs every word before committing",
	"warm and trusting, reluctant to point fingers",
	"sardonic, needles other players to see how they react",
	"methodical, keeps returning to the voting record",
	"anxious, changes their mind under pressure",
	"quiet until provoked, then relentless",
}

func personalityFor(name string) string {
	h := 0
	for _, r := range name {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return personalities[h%len(personalities)]
}

// agentReceiver adapts the decision service to the distributor's
// Receiver. Updates need no handling for agents: everything an agent
// may know arrives inside its next decision context.
type agentReceiver struct {
	svc decision.Service
}

func (r *agentReceiver) Trigger(ctx context.Context, p distributor.Prompt) (distributor.Reply, error) {
	dc, ok := p.Payload["context"].(decision.Context)
	if !ok {
		return distributor.Reply{}, fmt.Errorf("agent trigger without decision context")
	}

	resp, err := r.svc.Decide(ctx, dc)
	if err != nil {
		return distributor.Reply{}, err
	}
	return distributor.Reply{
		Content: resp.Content,
		Target:  resp.Target,
		Metadata: map[string]any{
			"reasoning":  resp.Reasoning,
			"confidence": resp.Confidence,
			"model":      resp.Metadata.Model,
			"tokens":     resp.Metadata.Tokens,
			"latency_ms": resp.Metadata.Latency.Milliseconds(),
			"cost_usd":   resp.Metadata.CostUSD,
		},
	}, nil
}

func (r *agentReceiver) Update(distributor.Datum) {}

// buildContext assembles everything a participant may legitimately know
// for one decision. Names only; internal ids never enter the context.
func (o *Orchestrator) buildContext(id, kind string) decision.Context {
	p, ok := o.store.Participant(id)
	if !ok {
		return decision.Context{Kind: kind}
	}

	dc := decision.Context{
		Kind:          kind,
		Name:          p.Name,
		Role:          p.Role,
		Personality:   personalityFor(p.Name),
		Phase:         o.store.Phase(),
		Round:         o.store.Round(),
		TimeRemaining: time.Until(o.store.Deadline()),
	}

	var allies []string
	for _, other := range o.store.Participants() {
		if other.Alive {
			dc.Living = append(dc.Living, other.Name)
		} else {
			dc.Eliminated = append(dc.Eliminated, other.Name)
		}
		if p.Role.IsAntagonist() && other.Role.IsAntagonist() && other.ID != id {
			allies = append(allies, other.Name)
		}
	}
	dc.Allies = allies
	dc.Targets = o.legalTargets(p, kind)

	if view, ok := o.store.View(id); ok {
		msgs := view.Messages
		if len(msgs) > historyDepth {
			msgs = msgs[len(msgs)-historyDepth:]
		}
		for _, m := range msgs {
			dc.History = append(dc.History, m.Sender+": "+m.Content)
		}
	}

	if row, ok := o.store.SuspicionSnapshot()[id]; ok {
		dc.Suspicion = make(map[string]float64, len(row))
		for otherID, score := range row {
			if other, ok := o.store.Participant(otherID); ok {
				dc.Suspicion[other.Name] = score
			}
		}
	}
	return dc
}

// legalTargets lists the display names a decision of this kind may
// legally name. Only the warden may target itself.
func (o *Orchestrator) legalTargets(p game.Participant, kind string) []string {
	var targets []string
	for _, other := range o.store.Alive() {
		if other.ID == p.ID && !(kind == decision.KindNightAction && p.Role == game.RoleWarden) {
			continue
		}
		targets = append(targets, other.Name)
	}
	return targets
}

// promptVote asks one agent for its vote, applying the uniform fallback
// if the decision times out or comes back unusable.
func (o *Orchestrator) promptVote(ctx context.Context, epoch int, id string) {
	dc := o.buildContext(id, decision.KindVote)
	reply, err := o.dist.Trigger(ctx, id, distributor.Prompt{
		Kind:    "vote",
		Payload: map[string]any{"context": dc},
	})
	if errs.Is(err, errs.ErrTriggerCanceled) {
		return
	}

	target := reply.Target
	reason := reply.Content
	if err != nil {
		target = o.pick(dc.Targets)
		reason = ""
		o.logger.Warn("vote decision failed, falling back", "participant", dc.Name, "error", err)
	}
	if target == "" {
		return
	}

	time.Sleep(o.pacingDelay())
	if !o.CastVote(id, target, reason) {
		// The named target was illegal or has since died; fall back.
		if fallback := o.pick(dc.Targets); fallback != "" && fallback != target {
			o.CastVote(id, fallback, "")
		}
		return
	}
	o.recordReasoning(id, reply.Metadata)
}

// promptSpeaker asks the floor holder for its utterance. Whatever
// happens, the floor moves on: a failed decision skips the slot rather
// than stalling the table.
func (o *Orchestrator) promptSpeaker(ctx context.Context, epoch int, id string) {
	dc := o.buildContext(id, decision.KindSpeak)
	reply, err := o.dist.Trigger(ctx, id, distributor.Prompt{
		Kind:    "speak",
		Payload: map[string]any{"context": dc},
	})
	if errs.Is(err, errs.ErrTriggerCanceled) {
		return
	}
	if err != nil || reply.Content == "" {
		if err != nil {
			o.logger.Warn("speak decision failed, skipping turn", "participant", dc.Name, "error", err)
		}
		o.advanceCursor(ctx, epoch, id)
		return
	}

	time.Sleep(o.pacingDelay())
	if o.store.AddMessage(id, reply.Content) {
		o.recordReasoning(id, reply.Metadata)
	}
	o.advanceCursor(ctx, epoch, id)
}

// promptNightAction asks a role-holder for its night action and
// narrates it on the observer channel.
func (o *Orchestrator) promptNightAction(ctx context.Context, epoch int, id string) {
	p, ok := o.store.Participant(id)
	if !ok {
		return
	}
	kind := p.Role.NightActionKind()
	if kind == "" {
		return
	}

	dc := o.buildContext(id, decision.KindNightAction)
	reply, err := o.dist.Trigger(ctx, id, distributor.Prompt{
		Kind:    "night_action",
		Payload: map[string]any{"context": dc},
	})
	if errs.Is(err, errs.ErrTriggerCanceled) {
		return
	}

	target := reply.Target
	if err != nil {
		target = o.pick(dc.Targets)
		o.logger.Warn("night decision failed, falling back", "participant", dc.Name, "error", err)
	}

	time.Sleep(o.pacingDelay())
	if !o.NightAct(id, kind, target) && target != "" {
		// Abstention is always legal for the roles that act at night.
		o.NightAct(id, kind, "")
		target = ""
	}

	o.narrateNight(id, p, kind, target)
	o.recordReasoning(id, reply.Metadata)
}

// narrateNight writes the spectator-only account of a night action and
// keeps the accomplice in the loop on the ringleader's plan.
func (o *Orchestrator) narrateNight(id string, p game.Participant, kind game.ActionKind, target string) {
	switch {
	case target == "":
		o.store.AddObserverUpdate(game.ObserverNarration, id,
			fmt.Sprintf("%s holds back tonight", p.Name))
	case kind == game.ActionEliminate:
		o.store.AddObserverUpdate(game.ObserverNarration, id,
			fmt.Sprintf("%s moves to eliminate %s", p.Name, target))
	case kind == game.ActionProtect:
		o.store.AddObserverUpdate(game.ObserverNarration, id,
			fmt.Sprintf("%s stands guard over %s", p.Name, target))
	}

	if kind != game.ActionEliminate {
		return
	}
	for _, other := range o.store.Alive() {
		if other.Role != game.RoleAccomplice {
			continue
		}
		o.store.AddObserverUpdate(game.ObserverCoordination, id,
			fmt.Sprintf("%s signals the plan to %s: %s", p.Name, other.Name, targetOrNobody(target)))
		o.dist.Update(other.ID, distributor.Datum{Type: "night_plan", Payload: map[string]any{
			"target": target,
		}})
	}
}

// recordReasoning surfaces an agent's private reasoning to spectators.
func (o *Orchestrator) recordReasoning(id string, metadata map[string]any) {
	reasoning, _ := metadata["reasoning"].(string)
	if reasoning == "" {
		return
	}
	o.store.AddObserverUpdate(game.ObserverReasoning, id, reasoning)
}

func targetOrNobody(target string) string {
	if target == "" {
		return "nobody"
	}
	return target
}
