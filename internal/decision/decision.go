// Package decision produces agent decisions. A Service turns a
// structured view of the table into one utterance, vote, or night
// action. The scripted backend plays a competent deterministic game
// with no external calls; the http backend defers to a remote model
// endpoint.
package decision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duskhollow/duskhollow/internal/config"
	"github.com/duskhollow/duskhollow/internal/game"
)

// BackendName identifies a supported decision backend.
type BackendName string

const (
	BackendScripted BackendName = "scripted"
	BackendHTTP     BackendName = "http"
)

// Request kinds a Service may be asked to decide.
const (
	KindSpeak       = "speak"
	KindVote        = "vote"
	KindNightAction = "night_action"
)

// Context is everything an agent may legitimately know when deciding:
// its own role, the public table state, its suspicion row, and the
// legal targets. Participants appear as display names only.
type Context struct {
	Kind        string
	Name        string
	Role        game.Role
	Personality string

	Phase game.Phase
	Round int

	Living     []string
	Eliminated []string
	History    []string

	// Suspicion is the deciding agent's own row, keyed by display name.
	Suspicion map[string]float64
	// Targets are the legal targets for a vote or night action.
	Targets []string
	// Allies are fellow antagonists, present only for antagonist roles.
	Allies []string

	TimeRemaining time.Duration
}

// Metadata describes how a response was produced.
type Metadata struct {
	Model   string
	Tokens  int
	Latency time.Duration
	CostUSD float64
}

// Response is one decision. Target is a display name and is empty for
// pure utterances or abstentions.
type Response struct {
	Content    string
	Target     string
	Confidence float64
	Reasoning  string
	Metadata   Metadata
}

// Service produces decisions for agent seats.
type Service interface {
	Name() BackendName
	Decide(ctx context.Context, dc Context) (Response, error)
}

// ErrUnknownBackend is returned when the configured backend is unsupported.
var ErrUnknownBackend = fmt.Errorf("unknown decision backend")

// NewFromConfig builds a Service from configuration.
func NewFromConfig(cfg *config.Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing config")
	}

	switch strings.ToLower(cfg.Decision.Backend) {
	case string(BackendScripted), "":
		return NewScripted(0), nil
	case string(BackendHTTP):
		return NewHTTPService(cfg.Decision.HTTP), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Decision.Backend)
	}
}
