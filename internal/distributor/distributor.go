// Package distributor delivers work to participants and collects their
// replies. It knows three delivery shapes: Trigger (request-response
// with a deadline), Update (idempotent state refresh), and Push (the
// same idempotent refresh fanned out to a target set or to everyone).
//
// At most one trigger is live per participant. Issuing a new one cancels
// the prior, and a reply arriving for a superseded trigger is discarded
// rather than handed back, so stale responses can never reach game
// state.
package distributor

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/duskhollow/duskhollow/internal/errs"
	"github.com/duskhollow/duskhollow/internal/logging"
)

// Prompt asks one participant for a decision or utterance.
type Prompt struct {
	Kind    string // "speak", "vote", "night_action", ...
	Payload map[string]any
}

// Reply is a participant's answer to a Prompt.
type Reply struct {
	Content  string
	Target   string
	Metadata map[string]any
}

// Datum is a keyed piece of state pushed at a participant. Deliveries
// are idempotent per (participant, Type): an identical payload is not
// re-sent.
type Datum struct {
	Type    string
	Payload map[string]any
}

// Receiver is one participant's endpoint. Agent seats are backed by a
// decision service, human seats by whatever surface the embedding
// program provides.
type Receiver interface {
	Trigger(ctx context.Context, p Prompt) (Reply, error)
	Update(d Datum)
}

// Stats is a point-in-time snapshot of delivery counters.
type Stats struct {
	Triggers    int64
	Updates     int64
	Pushes      int64
	Errors      int64
	Outstanding int
	MeanLatency time.Duration
	ErrorRate   float64
}

type liveTrigger struct {
	cancel context.CancelFunc
	seq    uint64
}

// Distributor routes prompts, updates, and notifications to registered
// receivers. Safe for concurrent use.
type Distributor struct {
	mu        sync.Mutex
	logger    *logging.Logger
	timeout   time.Duration
	now       func() time.Time
	receivers map[string]Receiver
	live      map[string]*liveTrigger
	lastDatum map[string]map[string]map[string]any // participant -> datum type -> payload
	seq       uint64

	triggers     int64
	updates      int64
	pushes       int64
	errors       int64
	totalLatency time.Duration
	completed    int64
}

// Option configures a Distributor.
type Option func(*Distributor)

// WithTimeout sets the default trigger deadline.
func WithTimeout(d time.Duration) Option {
	return func(dist *Distributor) { dist.timeout = d }
}

// WithClock overrides the time source used for latency accounting.
func WithClock(now func() time.Time) Option {
	return func(dist *Distributor) { dist.now = now }
}

// New creates a Distributor with no receivers registered.
func New(logger *logging.Logger, opts ...Option) *Distributor {
	d := &Distributor{
		logger:    logger,
		timeout:   30 * time.Second,
		now:       time.Now,
		receivers: make(map[string]Receiver),
		live:      make(map[string]*liveTrigger),
		lastDatum: make(map[string]map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a participant id to its receiver, replacing any prior
// binding.
func (d *Distributor) Register(participantID string, r Receiver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receivers[participantID] = r
}

// Unregister removes a participant's receiver and cancels any live
// trigger aimed at it.
func (d *Distributor) Unregister(participantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if live, ok := d.live[participantID]; ok {
		live.cancel()
		delete(d.live, participantID)
	}
	delete(d.receivers, participantID)
	delete(d.lastDatum, participantID)
}

// Trigger sends a prompt and waits for the reply, the deadline, or
// supersession. A deadline expiry returns a TimeoutError and counts as
// a delivery error; supersession by a newer trigger for the same
// participant returns ErrTriggerCanceled and the stale reply is
// discarded.
func (d *Distributor) Trigger(ctx context.Context, participantID string, p Prompt) (Reply, error) {
	d.mu.Lock()
	r, ok := d.receivers[participantID]
	if !ok {
		d.mu.Unlock()
		return Reply{}, errs.NewNotFoundError("receiver", participantID)
	}

	// A new trigger supersedes the live one.
	if prior, exists := d.live[participantID]; exists {
		prior.cancel()
	}
	triggerCtx, cancel := context.WithTimeout(ctx, d.timeout)
	d.seq++
	mine := &liveTrigger{cancel: cancel, seq: d.seq}
	d.live[participantID] = mine
	d.triggers++
	start := d.now()
	d.mu.Unlock()

	defer cancel()

	type result struct {
		reply Reply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := r.Trigger(triggerCtx, p)
		done <- result{reply, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-triggerCtx.Done():
		res = result{err: triggerCtx.Err()}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	superseded := d.live[participantID] == nil || d.live[participantID].seq != mine.seq
	if !superseded {
		delete(d.live, participantID)
	}

	switch {
	case superseded:
		// The reply belongs to a trigger that no longer exists.
		d.logger.Debug("stale trigger reply discarded", "participant", participantID, "kind", p.Kind)
		return Reply{}, errs.ErrTriggerCanceled
	case errs.Is(res.err, context.Canceled):
		return Reply{}, errs.ErrTriggerCanceled
	case res.err != nil:
		d.errors++
		if errs.Is(res.err, context.DeadlineExceeded) {
			d.logger.Warn("trigger timed out", "participant", participantID, "kind", p.Kind)
			return Reply{}, errs.NewTimeoutError("trigger " + p.Kind)
		}
		d.logger.Warn("trigger failed", "participant", participantID, "kind", p.Kind, "error", res.err)
		return Reply{}, res.err
	default:
		d.completed++
		d.totalLatency += d.now().Sub(start)
		return res.reply, nil
	}
}

// Update delivers a datum if it differs from the last one of its type
// delivered to that participant. Returns true when a delivery actually
// happened.
func (d *Distributor) Update(participantID string, datum Datum) bool {
	d.mu.Lock()
	r, deliver := d.upsertLocked(participantID, datum)
	if deliver {
		d.updates++
	}
	d.mu.Unlock()

	if !deliver {
		return false
	}
	r.Update(datum)
	return true
}

// Push fans a datum out to the named participants, or to every
// registered receiver when no targets are given. Each delivery goes
// through the same keyed upsert as Update, so a participant that
// already holds an identical payload of that type is skipped. Returns
// how many deliveries actually happened.
func (d *Distributor) Push(datum Datum, targets ...string) int {
	d.mu.Lock()
	ids := targets
	if len(ids) == 0 {
		ids = make([]string, 0, len(d.receivers))
		for id := range d.receivers {
			ids = append(ids, id)
		}
	}
	delivered := make([]Receiver, 0, len(ids))
	for _, id := range ids {
		if r, deliver := d.upsertLocked(id, datum); deliver {
			delivered = append(delivered, r)
			d.pushes++
		}
	}
	d.mu.Unlock()

	for _, r := range delivered {
		r.Update(datum)
	}
	return len(delivered)
}

// upsertLocked records the datum as the participant's latest of its
// type and reports whether it differs from the prior one. Caller must
// hold d.mu.
func (d *Distributor) upsertLocked(participantID string, datum Datum) (Receiver, bool) {
	r, ok := d.receivers[participantID]
	if !ok {
		return nil, false
	}

	prior, ok := d.lastDatum[participantID]
	if !ok {
		prior = make(map[string]map[string]any)
		d.lastDatum[participantID] = prior
	}
	if last, delivered := prior[datum.Type]; delivered && reflect.DeepEqual(last, datum.Payload) {
		return nil, false
	}
	prior[datum.Type] = datum.Payload
	return r, true
}

// CancelAll cancels every live trigger. Called on phase transitions so
// no stale prompt survives into the next phase.
func (d *Distributor) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, live := range d.live {
		live.cancel()
		delete(d.live, id)
	}
}

// Stats returns a snapshot of the delivery counters.
func (d *Distributor) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Triggers:    d.triggers,
		Updates:     d.updates,
		Pushes:      d.pushes,
		Errors:      d.errors,
		Outstanding: len(d.live),
	}
	if d.completed > 0 {
		s.MeanLatency = d.totalLatency / time.Duration(d.completed)
	}
	if d.triggers > 0 {
		s.ErrorRate = float64(d.errors) / float64(d.triggers)
	}
	return s
}
