package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/duskhollow/duskhollow/internal/decision"
	"github.com/duskhollow/duskhollow/internal/distributor"
	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/phase"
	"github.com/duskhollow/duskhollow/internal/sink"
)

// silentSeat is a human receiver that never acts.
type silentSeat struct{}

func (silentSeat) Trigger(context.Context, distributor.Prompt) (distributor.Reply, error) {
	return distributor.Reply{}, context.Canceled
}

func (silentSeat) Update(distributor.Datum) {}

// memSink records writes for assertions.
type memSink struct {
	mu      sync.Mutex
	records []sink.Record
}

func (s *memSink) Write(rec sink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memSink) Close() error { return nil }

func (s *memSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Type
	}
	return out
}

// failingDecider errors on every decision, forcing the fallback policy.
type failingDecider struct{}

func (failingDecider) Name() decision.BackendName { return "failing" }

func (failingDecider) Decide(context.Context, decision.Context) (decision.Response, error) {
	return decision.Response{}, fmt.Errorf("model unavailable")
}

func fastTimings() phase.Timings {
	return phase.Timings{
		Waiting:          5 * time.Second,
		RoleAssignment:   time.Second,
		NightBase:        2 * time.Second,
		Revelation:       30 * time.Millisecond,
		Voting:           2 * time.Second,
		SpeakerAllotment: 500 * time.Millisecond,
		DiscussionBuffer: 500 * time.Millisecond,
		NightDecay:       0.9,
		NightFloor:       0.7,
	}
}

func newTestOrchestrator(t *testing.T, decider decision.Service, snk sink.Sink) (*Orchestrator, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	opts := []Option{
		WithTimings(fastTimings()),
		WithSeed(1),
		WithPacing(0, 0),
		WithPollInterval(5 * time.Millisecond),
		WithTriggerTimeout(500 * time.Millisecond),
		WithSnapshotInterval(time.Hour),
	}
	if snk != nil {
		opts = append(opts, WithSink(snk))
	}
	o, err := New(Config{Bus: bus, Decider: decider}, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o, bus
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Config{Decider: decision.NewScripted(0)}); err == nil {
		t.Error("missing bus should be rejected")
	}
	if _, err := New(Config{Bus: event.NewBus()}); err == nil {
		t.Error("missing decider should be rejected")
	}
}

func TestOrchestrator_FullGame(t *testing.T) {
	snk := &memSink{}
	o, bus := newTestOrchestrator(t, decision.NewScripted(7), snk)

	var mu sync.Mutex
	var ended *event.GameEndedEvent
	eliminations := 0
	bus.Subscribe(event.TypeGameEnded, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		ev := e.(event.GameEndedEvent)
		ended = &ev
	})
	bus.Subscribe(event.TypePlayerEliminated, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		eliminations++
	})

	if err := o.SeatAgents(game.FullRoster); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-o.Done():
	case <-time.After(30 * time.Second):
		o.Stop()
		t.Fatal("game never finished")
	}

	winner := o.Winner()
	if winner == game.WinnerNone {
		t.Fatal("finished game must have a winner")
	}
	if got := o.Store().Phase(); got != game.PhaseGameOver {
		t.Errorf("final phase = %s, want game_over", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if ended == nil {
		t.Fatal("no game-ended event was published")
	}
	if ended.Winner != winner {
		t.Errorf("event winner %s != recorded winner %s", ended.Winner, winner)
	}
	if eliminations == 0 {
		t.Error("a finished game should have eliminations")
	}

	// Roles stay hidden from participants until the end, then reveal.
	view := o.Store().Spectate()
	antagonists := 0
	for _, seat := range view.Seats {
		if seat.Role.IsAntagonist() {
			antagonists++
		}
	}
	if antagonists != game.AntagonistCount {
		t.Errorf("spectator view shows %d antagonists, want %d", antagonists, game.AntagonistCount)
	}

	types := snk.types()
	if len(types) < 2 || types[0] != sink.TypeGameStart || types[len(types)-1] != sink.TypeGameEnd {
		t.Errorf("sink records = %v, want game_start first and game_end last", types)
	}

	if stats := o.Stats(); stats.Triggers == 0 {
		t.Error("agents should have been triggered")
	}
}

func TestOrchestrator_FallsBackWhenDecisionsFail(t *testing.T) {
	o, _ := newTestOrchestrator(t, failingDecider{}, nil)

	if err := o.SeatAgents(game.FullRoster); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-o.Done():
	case <-time.After(30 * time.Second):
		o.Stop()
		t.Fatal("game should finish on fallbacks alone")
	}

	if o.Winner() == game.WinnerNone {
		t.Error("fallback-driven game must still conclude")
	}
	stats := o.Stats()
	if stats.Errors == 0 {
		t.Error("failed decisions should be counted")
	}
	if stats.ErrorRate == 0 {
		t.Error("error rate should be non-zero")
	}
}

func TestOrchestrator_AbandonsUnfilledTable(t *testing.T) {
	timings := fastTimings()
	timings.Waiting = 50 * time.Millisecond

	bus := event.NewBus()
	o, err := New(Config{Bus: bus, Decider: decision.NewScripted(0)},
		WithTimings(timings),
		WithSeed(1),
		WithPacing(0, 0),
		WithPollInterval(5*time.Millisecond),
		WithSnapshotInterval(time.Hour),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := o.SeatAgents(3); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-o.Done():
	case <-time.After(5 * time.Second):
		o.Stop()
		t.Fatal("unfilled table should be abandoned at the waiting deadline")
	}

	if o.Winner() != game.WinnerNone {
		t.Errorf("abandoned game has winner %s, want none", o.Winner())
	}
}

func TestOrchestrator_SilentHumanForfeitsOnlyTheirTurn(t *testing.T) {
	timings := fastTimings()
	timings.NightBase = time.Second
	timings.Voting = time.Second
	timings.SpeakerAllotment = 300 * time.Millisecond
	timings.DiscussionBuffer = 300 * time.Millisecond

	bus := event.NewBus()
	o, err := New(Config{Bus: bus, Decider: decision.NewScripted(5)},
		WithTimings(timings),
		WithSeed(5),
		WithPacing(0, 0),
		WithPollInterval(5*time.Millisecond),
		WithTriggerTimeout(500*time.Millisecond),
		WithSnapshotInterval(time.Hour),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := o.SeatAgents(game.FullRoster - 1); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	id, _, err := o.JoinHuman(silentSeat{})
	if err != nil {
		t.Fatalf("JoinHuman failed: %v", err)
	}
	if !o.Ready(id) {
		t.Fatal("Ready failed")
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-o.Done():
	case <-time.After(45 * time.Second):
		o.Stop()
		t.Fatal("game never finished with a silent human seated")
	}

	if o.Winner() == game.WinnerNone {
		t.Fatal("finished game must have a winner")
	}

	// A mute floor-holder forfeits after the speaker allotment, so
	// every discussion still finishes through the cursor rather than
	// running out its whole-phase clock.
	sawDiscussion := false
	for _, rec := range o.Store().PhaseHistory() {
		if rec.Phase != game.PhaseDiscussion {
			continue
		}
		sawDiscussion = true
		if rec.Reason != phase.ReasonCompleted {
			t.Errorf("discussion round %d ended by %s, want %s", rec.Round, rec.Reason, phase.ReasonCompleted)
		}
	}
	if !sawDiscussion {
		t.Fatal("no discussion phase was recorded")
	}
}

func TestOrchestrator_TableStopsSeatingWhenFull(t *testing.T) {
	o, _ := newTestOrchestrator(t, decision.NewScripted(0), nil)

	if err := o.SeatAgents(game.FullRoster); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	if err := o.SeatAgents(1); err == nil {
		t.Error("an eleventh seat should be refused")
	}
}

func TestOrchestrator_LeaveFreesSeat(t *testing.T) {
	o, _ := newTestOrchestrator(t, decision.NewScripted(0), nil)

	if err := o.SeatAgents(game.FullRoster); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	id := o.Store().Participants()[0].ID

	if !o.Leave(id) {
		t.Fatal("Leave failed")
	}
	if err := o.SeatAgents(1); err != nil {
		t.Errorf("freed seat should be seatable again: %v", err)
	}
}

func TestOrchestrator_StartIsExclusive(t *testing.T) {
	o, _ := newTestOrchestrator(t, decision.NewScripted(0), nil)
	defer o.Stop()

	if err := o.SeatAgents(3); err != nil {
		t.Fatalf("SeatAgents failed: %v", err)
	}
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := o.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestOrchestrator_StopIsIdempotent(t *testing.T) {
	o, _ := newTestOrchestrator(t, decision.NewScripted(0), nil)

	o.Stop()
	o.Stop()

	select {
	case <-o.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}
