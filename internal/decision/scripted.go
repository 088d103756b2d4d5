package decision

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// speakLines are cycled per round; %s is filled with the speaker's
// current prime suspect.
var speakLines = []string{
	"I've been watching %s, and something doesn't add up.",
	"Has anyone else noticed how quiet %s has been?",
	"I'm not certain yet, but %s worries me the most.",
	"If I had to name someone right now it would be %s.",
	"%s keeps deflecting every time the pressure rises.",
}

// Scripted is the deterministic decision backend. Given the same
// context it always produces the same decision, which makes it the test
// double for everything above it and a workable offline opponent: it
// votes its strongest suspicion, antagonists spare their allies, and
// wardens guard whoever the table distrusts most (the likeliest night
// target).
type Scripted struct {
	seed int64
}

// NewScripted creates a scripted backend. The seed only perturbs
// utterance wording, never target choice; zero is fine.
func NewScripted(seed int64) *Scripted {
	return &Scripted{seed: seed}
}

func (s *Scripted) Name() BackendName { return BackendScripted }

// Decide implements Service without any external calls.
func (s *Scripted) Decide(_ context.Context, dc Context) (Response, error) {
	start := time.Now()

	var resp Response
	switch dc.Kind {
	case KindSpeak:
		resp = s.speak(dc)
	case KindVote:
		resp = s.vote(dc)
	case KindNightAction:
		resp = s.nightAction(dc)
	default:
		return Response{}, fmt.Errorf("scripted backend: unknown decision kind %q", dc.Kind)
	}

	resp.Metadata = Metadata{
		Model:   "scripted",
		Latency: time.Since(start),
	}
	return resp, nil
}

func (s *Scripted) speak(dc Context) Response {
	suspect := s.primeSuspect(dc)
	if suspect == "" {
		return Response{
			Content:    "I don't have a read on anyone yet. Let's hear from the quiet ones.",
			Confidence: 0.3,
			Reasoning:  "no suspicion data and no legal targets",
		}
	}

	rng := rand.New(rand.NewSource(s.seed + int64(dc.Round)*31 + int64(len(dc.Name))))
	line := speakLines[rng.Intn(len(speakLines))]
	return Response{
		Content:    fmt.Sprintf(line, suspect),
		Confidence: 0.6,
		Reasoning:  fmt.Sprintf("%s holds my highest suspicion score", suspect),
	}
}

func (s *Scripted) vote(dc Context) Response {
	target := s.primeSuspect(dc)
	if target == "" {
		return Response{
			Confidence: 0.2,
			Reasoning:  "no legal vote target",
		}
	}
	return Response{
		Target:     target,
		Content:    fmt.Sprintf("I vote for %s.", target),
		Confidence: 0.7,
		Reasoning:  fmt.Sprintf("%s is my strongest suspicion", target),
	}
}

func (s *Scripted) nightAction(dc Context) Response {
	if dc.Role.IsAntagonist() {
		// Strike the least suspicious non-ally: the seat most likely to
		// steer the town against us later.
		target := s.pickTarget(dc, false)
		if target == "" {
			return Response{Confidence: 0.2, Reasoning: "no legal elimination target"}
		}
		return Response{
			Target:     target,
			Confidence: 0.8,
			Reasoning:  fmt.Sprintf("%s looks trusted by the table and dangerous to us", target),
		}
	}

	// Warden: guard whoever the table seems most likely to lose.
	target := s.pickTarget(dc, false)
	if target == "" && len(dc.Targets) > 0 {
		target = dc.Targets[0]
	}
	return Response{
		Target:     target,
		Confidence: 0.6,
		Reasoning:  fmt.Sprintf("guarding %s against a night strike", target),
	}
}

// primeSuspect returns the legal target with the highest suspicion
// score, breaking ties by target order. Allies are never suspects.
func (s *Scripted) primeSuspect(dc Context) string {
	return s.pickTarget(dc, true)
}

// pickTarget scans dc.Targets for the extreme suspicion score. With
// highest=false it returns the least suspicious target instead.
func (s *Scripted) pickTarget(dc Context, highest bool) string {
	allies := make(map[string]bool, len(dc.Allies))
	for _, a := range dc.Allies {
		allies[a] = true
	}

	best := ""
	var bestScore float64
	for _, t := range dc.Targets {
		if t == dc.Name || allies[t] {
			continue
		}
		score, ok := dc.Suspicion[t]
		if !ok {
			score = 5.0
		}
		if best == "" || (highest && score > bestScore) || (!highest && score < bestScore) {
			best, bestScore = t, score
		}
	}
	return best
}
