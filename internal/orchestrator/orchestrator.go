// Package orchestrator wires the game components together and drives a
// table from the first seat to the final reveal. It owns the only
// goroutines that apply game mutations, so every phase transition and
// every resolution is strictly serialized.
package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duskhollow/duskhollow/internal/decision"
	"github.com/duskhollow/duskhollow/internal/distributor"
	"github.com/duskhollow/duskhollow/internal/event"
	"github.com/duskhollow/duskhollow/internal/game"
	"github.com/duskhollow/duskhollow/internal/identity"
	"github.com/duskhollow/duskhollow/internal/logging"
	"github.com/duskhollow/duskhollow/internal/phase"
	"github.com/duskhollow/duskhollow/internal/sink"
	"github.com/duskhollow/duskhollow/internal/state"
)

// Config holds required dependencies for creating an Orchestrator.
type Config struct {
	Bus     *event.Bus
	Decider decision.Service
	Logger  *logging.Logger
}

// Orchestrator runs one game. It composes the state store, the
// distributor, the phase runner, and the decision service, and is the
// single writer of phase transitions.
type Orchestrator struct {
	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	gameID   string
	logger   *logging.Logger
	bus      *event.Bus
	store    *state.Store
	registry *identity.Registry
	dist     *distributor.Distributor
	runner   *phase.Runner
	decider  decision.Service
	sink     sink.Sink
	timings  phase.Timings

	// epoch counts phase instances. A transition callback carrying a
	// stale epoch is ignored, so a phase can never be ended twice.
	epoch    int
	instance *phase.Instance
	winner   game.Winner

	speakOrder []string
	cursor     int
	turnTimer  *time.Timer

	rngMu      sync.Mutex
	rng        *rand.Rand
	pacingMin  time.Duration
	pacingMax  time.Duration
	snapshotIv time.Duration
}

type orchConfig struct {
	gameID         string
	timings        phase.Timings
	sink           sink.Sink
	registry       *identity.Registry
	seed           int64
	seeded         bool
	pacingMin      time.Duration
	pacingMax      time.Duration
	pollInterval   time.Duration
	triggerTimeout time.Duration
	snapshotIv     time.Duration
}

// Option configures an Orchestrator.
type Option func(*orchConfig)

// WithGameID sets the game identifier. One is generated otherwise.
func WithGameID(id string) Option {
	return func(c *orchConfig) { c.gameID = id }
}

// WithTimings overrides the phase duration policy.
func WithTimings(t phase.Timings) Option {
	return func(c *orchConfig) { c.timings = t }
}

// WithSink sets where game records are written. Defaults to discarding
// them.
func WithSink(s sink.Sink) Option {
	return func(c *orchConfig) { c.sink = s }
}

// WithRegistry shares an identity registry across games. A private one
// is created otherwise.
func WithRegistry(r *identity.Registry) Option {
	return func(c *orchConfig) { c.registry = r }
}

// WithSeed makes role assignment, speaking order, and fallback choices
// reproducible.
func WithSeed(seed int64) Option {
	return func(c *orchConfig) { c.seed, c.seeded = seed, true }
}

// WithPacing bounds the randomized delay before agent actions land.
func WithPacing(min, max time.Duration) Option {
	return func(c *orchConfig) { c.pacingMin, c.pacingMax = min, max }
}

// WithPollInterval sets how often phase completion is checked.
func WithPollInterval(d time.Duration) Option {
	return func(c *orchConfig) { c.pollInterval = d }
}

// WithTriggerTimeout bounds how long one agent decision may take.
func WithTriggerTimeout(d time.Duration) Option {
	return func(c *orchConfig) { c.triggerTimeout = d }
}

// WithSnapshotInterval sets how often a running game is written to the
// sink.
func WithSnapshotInterval(d time.Duration) Option {
	return func(c *orchConfig) { c.snapshotIv = d }
}

// New creates an Orchestrator for a fresh game.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	if cfg.Bus == nil {
		return nil, errors.New("orchestrator: Bus is required")
	}
	if cfg.Decider == nil {
		return nil, errors.New("orchestrator: Decider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	oc := &orchConfig{
		timings:        phase.DefaultTimings(),
		pacingMin:      800 * time.Millisecond,
		pacingMax:      2500 * time.Millisecond,
		pollInterval:   500 * time.Millisecond,
		triggerTimeout: 30 * time.Second,
		snapshotIv:     time.Minute,
	}
	for _, opt := range opts {
		opt(oc)
	}

	seed := oc.seed
	if !oc.seeded {
		seed = time.Now().UnixNano()
	}
	registry := oc.registry
	if registry == nil {
		registry = identity.NewRegistry()
	}
	snk := oc.sink
	if snk == nil {
		snk = sink.Nop{}
	}

	gameID := oc.gameID
	if gameID == "" {
		gameID = uuid.NewString()
	}
	o := &Orchestrator{
		gameID:     gameID,
		logger:     logger.WithGame(gameID),
		bus:        cfg.Bus,
		store:      state.NewStore(gameID, cfg.Bus, logger),
		registry:   registry,
		runner:     phase.NewRunner(logger, phase.WithPollInterval(oc.pollInterval)),
		decider:    cfg.Decider,
		sink:       snk,
		timings:    oc.timings,
		done:       make(chan struct{}),
		rng:        rand.New(rand.NewSource(seed)),
		pacingMin:  oc.pacingMin,
		pacingMax:  oc.pacingMax,
		snapshotIv: oc.snapshotIv,
	}
	o.dist = distributor.New(logger, distributor.WithTimeout(oc.triggerTimeout))
	return o, nil
}

// GameID returns the game identifier.
func (o *Orchestrator) GameID() string { return o.gameID }

// Store exposes the game's projections (views, spectator feed, event
// log). Mutation stays with the orchestrator.
func (o *Orchestrator) Store() *state.Store { return o.store }

// Stats returns the distributor's delivery counters.
func (o *Orchestrator) Stats() distributor.Stats { return o.dist.Stats() }

// Winner returns the outcome, or WinnerNone while the game runs.
func (o *Orchestrator) Winner() game.Winner {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.winner
}

// Done is closed when the game reaches its end.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// JoinHuman seats a human participant with the given receiver and
// returns the internal id and assigned display name.
func (o *Orchestrator) JoinHuman(r distributor.Receiver) (id, name string, err error) {
	return o.join(game.KindHuman, r)
}

// SeatAgents fills n seats with AI participants backed by the decision
// service. Agent seats are ready immediately.
func (o *Orchestrator) SeatAgents(n int) error {
	for i := 0; i < n; i++ {
		id, _, err := o.join(game.KindAgent, &agentReceiver{svc: o.decider})
		if err != nil {
			return err
		}
		o.store.SetReady(id)
	}
	return nil
}

func (o *Orchestrator) join(kind game.ParticipantKind, r distributor.Receiver) (string, string, error) {
	id := uuid.NewString()
	name, err := o.registry.AssignName(id, o.gameID)
	if err != nil {
		return "", "", err
	}

	if !o.store.AddParticipant(game.Participant{ID: id, Name: name, Kind: kind}) {
		o.registry.Unregister(id, o.gameID)
		return "", "", errors.New("orchestrator: table is not seating")
	}
	o.dist.Register(id, r)
	return id, name, nil
}

// Ready marks a seat ready during the waiting phase.
func (o *Orchestrator) Ready(id string) bool {
	return o.store.SetReady(id)
}

// Leave removes a participant before the game starts.
func (o *Orchestrator) Leave(id string) bool {
	if !o.store.RemoveParticipant(id) {
		return false
	}
	o.dist.Unregister(id)
	o.registry.Unregister(id, o.gameID)
	return true
}

// Start opens the table. The waiting phase begins immediately and the
// game advances on its own from there.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return errors.New("orchestrator: already started")
	}
	o.started = true

	ctx, o.cancel = context.WithCancel(ctx)
	o.writeSink(sink.TypeGameStart, map[string]any{
		"seats": len(o.store.Participants()),
	})
	go o.snapshotLoop(ctx)

	o.logger.Info("game starting")
	o.enterPhaseLocked(ctx, game.PhaseWaiting, phase.ReasonCompleted)
	return nil
}

// Stop abandons the game without declaring a winner. Idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shutdownLocked()
}

func (o *Orchestrator) shutdownLocked() {
	if o.closed {
		return
	}
	o.closed = true
	o.stopTurnTimerLocked()
	if o.instance != nil {
		o.instance.Stop()
		o.instance = nil
	}
	o.dist.CancelAll()
	if o.cancel != nil {
		o.cancel()
	}
	o.sink.Close()
	o.registry.ReleaseGame(o.gameID)
	close(o.done)
}

// snapshotLoop periodically writes a running-game record to the sink.
func (o *Orchestrator) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(o.snapshotIv)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := o.store.InternalSnapshot()
			alive := 0
			for _, p := range snap.Participants {
				if p.Alive {
					alive++
				}
			}
			stats := o.dist.Stats()
			o.writeSink(sink.TypeSnapshot, map[string]any{
				"phase":        string(snap.Phase),
				"round":        snap.Round,
				"alive":        alive,
				"triggers":     stats.Triggers,
				"updates":      stats.Updates,
				"pushes":       stats.Pushes,
				"error_rate":   stats.ErrorRate,
				"mean_latency": stats.MeanLatency.Milliseconds(),
			})
		}
	}
}

func (o *Orchestrator) writeSink(recType string, payload map[string]any) {
	if err := o.sink.Write(sink.Record{
		Type:    recType,
		GameID:  o.gameID,
		Payload: event.Sanitize(payload),
	}); err != nil {
		o.logger.Warn("sink write failed", "type", recType, "error", err)
	}
}

// pacingDelay returns a randomized human-feeling delay.
func (o *Orchestrator) pacingDelay() time.Duration {
	if o.pacingMax <= o.pacingMin {
		return o.pacingMin
	}
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return o.pacingMin + time.Duration(o.rng.Int63n(int64(o.pacingMax-o.pacingMin)))
}

// pick returns a uniformly random element, used by the fallback policy.
func (o *Orchestrator) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return options[o.rng.Intn(len(options))]
}
