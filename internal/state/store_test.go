package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/logging"
)

// testNames index into the ten-seat roster used throughout these tests.
var testNames = []string{
	"Rowan", "Sage", "Marlow", "Wren", "Hollis",
	"Ashby", "Quinn", "Tamsin", "Bram", "Isolde",
}

func newTestStore(t *testing.T) (*Store, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore("game-1", bus, logging.NopLogger(), WithClock(func() time.Time { return now }))
	return s, bus
}

// seatRoster fills the table with ten participants: ids p-0..p-9, the
// first two antagonists, the third the warden.
func seatRoster(t *testing.T, s *Store) {
	t.Helper()
	for i := 0; i < game.FullRoster; i++ {
		p := game.Participant{
			ID:   fmt.Sprintf("p-%d", i),
			Name: testNames[i],
			Kind: game.KindAgent,
		}
		if !s.AddParticipant(p) {
			t.Fatalf("AddParticipant(%s) rejected", p.ID)
		}
	}

	if !s.UpdatePhase(game.PhaseRoleAssignment, time.Time{}, 0, "completed") {
		t.Fatal("transition to role assignment rejected")
	}
	roles := map[string]game.Role{
		"p-0": game.RoleRingleader,
		"p-1": game.RoleAccomplice,
		"p-2": game.RoleWarden,
	}
	for i := 3; i < game.FullRoster; i++ {
		roles[fmt.Sprintf("p-%d", i)] = game.RoleResident
	}
	if !s.AssignRoles(roles) {
		t.Fatal("AssignRoles rejected")
	}
}

func TestStore_AddParticipant(t *testing.T) {
	s, bus := newTestStore(t)

	var joined []string
	bus.Subscribe(event.TypePlayerJoined, func(e event.Event) {
		joined = append(joined, e.(event.PlayerJoinedEvent).Name)
	})

	if !s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan", Kind: game.KindHuman}) {
		t.Fatal("first join rejected")
	}
	if s.AddParticipant(game.Participant{ID: "p-1", Name: "Sage"}) {
		t.Error("duplicate id should be rejected")
	}
	if len(joined) != 1 || joined[0] != "Rowan" {
		t.Errorf("bus saw %v, want [Rowan]", joined)
	}

	p, ok := s.Participant("p-1")
	if !ok || !p.Alive || p.Role != game.RoleUnassigned {
		t.Errorf("new seat = %+v, want alive and unassigned", p)
	}
}

func TestStore_AddParticipantFullRoster(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i < game.FullRoster; i++ {
		s.AddParticipant(game.Participant{ID: fmt.Sprintf("p-%d", i), Name: testNames[i]})
	}
	if s.AddParticipant(game.Participant{ID: "p-extra", Name: "Late"}) {
		t.Error("eleventh seat should be rejected")
	}
}

func TestStore_AddParticipantWrongPhase(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)

	if s.AddParticipant(game.Participant{ID: "p-new", Name: "Late"}) {
		t.Error("joining after the waiting phase should be rejected")
	}
}

func TestStore_RemoveParticipant(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"})

	if !s.RemoveParticipant("p-1") {
		t.Fatal("remove rejected")
	}
	if s.RemoveParticipant("p-1") {
		t.Error("second remove should be rejected")
	}
	if len(s.Participants()) != 0 {
		t.Error("seat should be gone")
	}
}

func TestStore_AssignRolesWrongPhase(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"})

	if s.AssignRoles(map[string]game.Role{"p-1": game.RoleResident}) {
		t.Error("role assignment outside its phase should be rejected")
	}
}

func TestStore_AssignRolesIncomplete(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"})
	s.AddParticipant(game.Participant{ID: "p-2", Name: "Sage"})
	s.UpdatePhase(game.PhaseRoleAssignment, time.Time{}, 0, "completed")

	if s.AssignRoles(map[string]game.Role{"p-1": game.RoleResident}) {
		t.Error("partial assignment should be rejected")
	}
	if s.AssignRoles(map[string]game.Role{"p-1": game.RoleResident, "p-9": game.RoleResident}) {
		t.Error("assignment naming a stranger should be rejected")
	}
}

func TestStore_AddMessageTurnOrder(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseDiscussion, time.Time{}, 1, "completed")

	if s.AddMessage("p-3", "hello") {
		t.Error("message with no floor holder should be rejected")
	}

	s.SetCurrentSpeaker("p-3")
	if !s.AddMessage("p-3", "hello") {
		t.Error("floor holder's message should be accepted")
	}
	if s.AddMessage("p-4", "interrupting") {
		t.Error("out-of-turn message should be rejected")
	}

	msgs, _, _ := s.PhaseCounts()
	if msgs != 1 {
		t.Errorf("phase message count = %d, want 1", msgs)
	}
}

func TestStore_AddMessageWrongPhase(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")
	s.SetCurrentSpeaker("p-3")

	if s.AddMessage("p-3", "psst") {
		t.Error("messages outside discussion should be rejected")
	}
}

func TestStore_AddVote(t *testing.T) {
	s, bus := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")

	var cast int
	bus.Subscribe(event.TypeVoteCast, func(e event.Event) { cast++ })

	if !s.AddVote("p-3", "p-0", "acting oddly") {
		t.Fatal("legal vote rejected")
	}
	if s.AddVote("p-3", "p-3", "") {
		t.Error("self-vote should be rejected")
	}

	// A replacement vote counts once.
	if !s.AddVote("p-3", "p-1", "changed my mind") {
		t.Fatal("replacement vote rejected")
	}
	_, votes, _ := s.PhaseCounts()
	if votes != 1 {
		t.Errorf("phase vote count = %d, want 1", votes)
	}
	if cast != 2 {
		t.Errorf("bus saw %d vote events, want 2", cast)
	}

	live := s.Votes()
	if len(live) != 1 || live[0].TargetID != "p-1" {
		t.Errorf("live votes = %+v, want one for p-1", live)
	}
}

func TestStore_AddVoteDeadParties(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")
	s.EliminateParticipant("p-5", "night")

	if s.AddVote("p-5", "p-0", "") {
		t.Error("dead voter should be rejected")
	}
	if s.AddVote("p-3", "p-5", "") {
		t.Error("dead target should be rejected")
	}
}

func TestStore_VoteRaisesSuspicion(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")

	s.AddVote("p-3", "p-0", "")

	snap := s.SuspicionSnapshot()
	if got := snap["p-3"]["p-0"]; got <= game.SuspicionNeutral {
		t.Errorf("voter's suspicion of target = %v, want above neutral", got)
	}
}

func TestStore_AddNightActionRoleLegality(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")

	cases := []struct {
		name    string
		actor   string
		kind    game.ActionKind
		target  string
		allowed bool
	}{
		{"ringleader eliminates", "p-0", game.ActionEliminate, "p-5", true},
		{"resident cannot eliminate", "p-3", game.ActionEliminate, "p-5", false},
		{"accomplice cannot eliminate", "p-1", game.ActionEliminate, "p-5", false},
		{"warden protects", "p-2", game.ActionProtect, "p-5", true},
		{"resident cannot protect", "p-3", game.ActionProtect, "p-5", false},
		{"ringleader cannot self-target", "p-0", game.ActionEliminate, "p-0", false},
		{"ringleader abstains", "p-0", game.ActionEliminate, "", true},
		{"warden self-protects", "p-2", game.ActionProtect, "p-2", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.AddNightAction(tc.actor, tc.kind, tc.target); got != tc.allowed {
				t.Errorf("AddNightAction(%s, %s, %q) = %v, want %v",
					tc.actor, tc.kind, tc.target, got, tc.allowed)
			}
		})
	}
}

func TestStore_AddNightActionReplaces(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")

	s.AddNightAction("p-0", game.ActionEliminate, "p-5")
	s.AddNightAction("p-0", game.ActionEliminate, "p-6")

	actions := s.NightActions()
	if len(actions) != 1 || actions[0].TargetID != "p-6" {
		t.Errorf("live actions = %+v, want one for p-6", actions)
	}
	_, _, count := s.PhaseCounts()
	if count != 1 {
		t.Errorf("phase action count = %d, want 1", count)
	}
}

func TestStore_EliminateParticipant(t *testing.T) {
	s, bus := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")

	var revealed event.PlayerEliminatedEvent
	bus.Subscribe(event.TypePlayerEliminated, func(e event.Event) {
		revealed = e.(event.PlayerEliminatedEvent)
	})

	if !s.EliminateParticipant("p-2", "night") {
		t.Fatal("elimination rejected")
	}
	if s.EliminateParticipant("p-2", "night") {
		t.Error("eliminating the dead should be rejected")
	}

	p, _ := s.Participant("p-2")
	if p.Alive {
		t.Error("eliminated seat should be dead")
	}
	if revealed.Name != "Marlow" || revealed.Role != game.RoleWarden {
		t.Errorf("reveal event = %+v, want Marlow the warden", revealed)
	}
}

func TestStore_EliminationClearsVote(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")
	s.AddVote("p-3", "p-0", "")

	s.EliminateParticipant("p-3", "vote")

	if len(s.Votes()) != 0 {
		t.Error("a dead participant's vote should not survive")
	}
}

func TestStore_EliminationHeuristics(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")

	// p-3 correctly votes for the ringleader.
	s.AddVote("p-3", "p-0", "seen at night")
	s.EliminateParticipant("p-0", "vote")

	snap := s.SuspicionSnapshot()
	if got := snap["p-4"]["p-3"]; got >= game.SuspicionNeutral {
		t.Errorf("suspicion of a vindicated voter = %v, want below neutral", got)
	}
}

func TestStore_UpdatePhase(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")
	s.AddNightAction("p-0", game.ActionEliminate, "p-5")

	if s.UpdatePhase("twilight", time.Time{}, 1, "completed") {
		t.Error("unknown phase should be rejected")
	}
	if !s.UpdatePhase(game.PhaseRevelation, time.Time{}, 1, "deadline") {
		t.Fatal("legal transition rejected")
	}

	// Live actions and per-phase counters reset on transition.
	if len(s.NightActions()) != 0 {
		t.Error("night actions should be cleared by the transition")
	}
	m, v, a := s.PhaseCounts()
	if m != 0 || v != 0 || a != 0 {
		t.Errorf("counters = %d/%d/%d, want zeros", m, v, a)
	}

	history := s.PhaseHistory()
	last := history[len(history)-1]
	if last.Phase != game.PhaseNight || last.Reason != "deadline" {
		t.Errorf("last record = %+v, want night ended by deadline", last)
	}
}

func TestStore_UpdatePhaseBootstrapLeavesNoRecord(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)

	// Opening the waiting phase at start ends nothing, even though the
	// joins already landed in the event log.
	if !s.UpdatePhase(game.PhaseWaiting, time.Time{}, 0, "completed") {
		t.Fatal("bootstrap update rejected")
	}
	if got := s.PhaseHistory(); len(got) != 0 {
		t.Fatalf("history after bootstrap = %+v, want empty", got)
	}

	if !s.UpdatePhase(game.PhaseRoleAssignment, time.Time{}, 1, "completed") {
		t.Fatal("legal transition rejected")
	}
	history := s.PhaseHistory()
	if len(history) != 1 || history[0].Phase != game.PhaseWaiting {
		t.Fatalf("history = %+v, want a single waiting record", history)
	}
}

func TestStore_AllReady(t *testing.T) {
	s, _ := newTestStore(t)

	if s.AllReady() {
		t.Error("empty table should not read as ready")
	}
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"})
	s.AddParticipant(game.Participant{ID: "p-2", Name: "Sage"})
	s.SetReady("p-1")
	if s.AllReady() {
		t.Error("one unready seat should hold the gate")
	}
	s.SetReady("p-2")
	if !s.AllReady() {
		t.Error("all seats ready should pass")
	}
}

func TestStore_ObserverLogCapped(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)

	for i := 0; i < maxObserverLog+20; i++ {
		if !s.AddObserverUpdate(game.ObserverReasoning, "p-0", fmt.Sprintf("thought %d", i)) {
			t.Fatalf("observer update %d rejected", i)
		}
	}

	view := s.Spectate()
	if len(view.Observer) != maxObserverLog {
		t.Fatalf("observer log length = %d, want %d", len(view.Observer), maxObserverLog)
	}
	// Oldest entries fall off; the newest survives.
	last := view.Observer[len(view.Observer)-1]
	if last.Content != fmt.Sprintf("thought %d", maxObserverLog+19) {
		t.Errorf("newest entry = %q", last.Content)
	}
	if last.Name != "Rowan" || last.Role != game.RoleRingleader {
		t.Errorf("entry should carry identity and role, got %+v", last)
	}
}

func TestStore_ObserverUpdateUnknownActor(t *testing.T) {
	s, _ := newTestStore(t)
	if s.AddObserverUpdate(game.ObserverNarration, "p-404", "ghost") {
		t.Error("unknown actor should be rejected")
	}
}

func TestStore_ViewHidesRoles(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")
	s.EliminateParticipant("p-5", "night")

	view, ok := s.View("p-3")
	if !ok {
		t.Fatal("View rejected a seated participant")
	}
	if view.You.Role != game.RoleResident {
		t.Errorf("own role = %s, want resident", view.You.Role)
	}
	for _, seat := range view.Seats {
		switch seat.Name {
		case "Ashby": // p-5, eliminated
			if seat.Role == "" {
				t.Error("eliminated seat's role should be revealed")
			}
		default:
			if seat.Alive && seat.Role != "" {
				t.Errorf("living seat %s leaked role %s", seat.Name, seat.Role)
			}
		}
	}
}

func TestStore_ViewAntagonistsKnowEachOther(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseNight, time.Time{}, 1, "completed")

	view, _ := s.View("p-0")
	for _, seat := range view.Seats {
		if seat.Name == "Sage" && seat.Role != game.RoleAccomplice {
			t.Errorf("ringleader should see the accomplice's role, got %q", seat.Role)
		}
		if seat.Name == "Marlow" && seat.Role != "" {
			t.Error("the warden's role should stay hidden from antagonists")
		}
	}
}

func TestStore_ViewRevealsAllAtGameOver(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseGameOver, time.Time{}, 3, "completed")

	view, _ := s.View("p-3")
	for _, seat := range view.Seats {
		if seat.Role == "" {
			t.Errorf("seat %s should be revealed after the game", seat.Name)
		}
	}
}

func TestStore_SpectateUsesDisplayNames(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseVoting, time.Time{}, 1, "completed")
	s.AddVote("p-3", "p-0", "")

	view := s.Spectate()

	if len(view.Seats) != game.FullRoster {
		t.Fatalf("seat count = %d, want %d", len(view.Seats), game.FullRoster)
	}
	if view.Seats[0].Role != game.RoleRingleader {
		t.Error("spectators see every role")
	}
	if _, ok := view.Suspicion["Wren"]["Rowan"]; !ok {
		t.Errorf("suspicion should be keyed by display name: %+v", view.Suspicion)
	}
	for a, row := range view.Suspicion {
		if len(a) > 2 && a[:2] == "p-" {
			t.Errorf("internal id %q leaked into spectator view", a)
		}
		for b := range row {
			if len(b) > 2 && b[:2] == "p-" {
				t.Errorf("internal id %q leaked into spectator view", b)
			}
		}
	}
}

func TestStore_MessageHeuristics(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)
	s.UpdatePhase(game.PhaseDiscussion, time.Time{}, 1, "completed")

	s.SetCurrentSpeaker("p-3")
	s.AddMessage("p-3", "Rowan has been acting suspicious all round")

	snap := s.SuspicionSnapshot()
	if got := snap["p-3"]["p-0"]; got <= game.SuspicionNeutral {
		t.Errorf("accuser's suspicion of Rowan = %v, want above neutral", got)
	}
	if got := snap["p-4"]["p-0"]; got <= game.SuspicionNeutral {
		t.Errorf("listener's suspicion of Rowan = %v, want above neutral", got)
	}

	s.SetCurrentSpeaker("p-4")
	s.AddMessage("p-4", "I trust Wren completely")
	snap = s.SuspicionSnapshot()
	if got := snap["p-4"]["p-3"]; got >= game.SuspicionNeutral {
		t.Errorf("trusting message should lower suspicion, got %v", got)
	}
}

func TestStore_EventLogGrowsPerMutation(t *testing.T) {
	s, _ := newTestStore(t)

	before := len(s.Events())
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"})
	s.AddParticipant(game.Participant{ID: "p-1", Name: "Rowan"}) // rejected
	after := len(s.Events())

	if after-before != 1 {
		t.Errorf("event log grew by %d, want exactly 1 for one accepted mutation", after-before)
	}
}

func TestStore_InternalSnapshotIsConsistentCopy(t *testing.T) {
	s, _ := newTestStore(t)
	seatRoster(t, s)

	snap := s.InternalSnapshot()
	snap.Participants[0].Alive = false

	p, _ := s.Participant("p-0")
	if !p.Alive {
		t.Error("mutating a snapshot should not touch the store")
	}
}
