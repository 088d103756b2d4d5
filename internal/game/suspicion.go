package game

const (
	// SuspicionMin and SuspicionMax bound every pairwise score.
	SuspicionMin = 1.0
	SuspicionMax = 10.0

	// SuspicionNeutral is the starting score for every ordered pair.
	SuspicionNeutral = 5.0
)

// SuspicionMatrix holds per-ordered-pair suspicion scores: how suspicious
// participant A currently is of participant B. Scores are heuristic
// analytics input for spectators and AI context, never an authority for
// game rules.
type SuspicionMatrix struct {
	scores map[string]map[string]float64
}

// NewSuspicionMatrix creates an empty matrix.
func NewSuspicionMatrix() *SuspicionMatrix {
	return &SuspicionMatrix{scores: make(map[string]map[string]float64)}
}

// Get returns A's suspicion of B, defaulting to neutral for unseen pairs.
func (m *SuspicionMatrix) Get(a, b string) float64 {
	if row, ok := m.scores[a]; ok {
		if v, ok := row[b]; ok {
			return v
		}
	}
	return SuspicionNeutral
}

// Adjust shifts A's suspicion of B by delta, clamped to [1, 10].
// Self-pairs are ignored.
func (m *SuspicionMatrix) Adjust(a, b string, delta float64) {
	if a == b {
		return
	}
	v := clamp(m.Get(a, b) + delta)
	row, ok := m.scores[a]
	if !ok {
		row = make(map[string]float64)
		m.scores[a] = row
	}
	row[b] = v
}

// Set assigns A's suspicion of B directly, clamped to [1, 10].
func (m *SuspicionMatrix) Set(a, b string, value float64) {
	if a == b {
		return
	}
	row, ok := m.scores[a]
	if !ok {
		row = make(map[string]float64)
		m.scores[a] = row
	}
	row[b] = clamp(value)
}

// Remove drops every score involving the given participant.
func (m *SuspicionMatrix) Remove(id string) {
	delete(m.scores, id)
	for _, row := range m.scores {
		delete(row, id)
	}
}

// Snapshot returns a deep copy safe to hand to consumers.
func (m *SuspicionMatrix) Snapshot() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(m.scores))
	for a, row := range m.scores {
		cp := make(map[string]float64, len(row))
		for b, v := range row {
			cp[b] = v
		}
		out[a] = cp
	}
	return out
}

func clamp(v float64) float64 {
	if v < SuspicionMin {
		return SuspicionMin
	}
	if v > SuspicionMax {
		return SuspicionMax
	}
	return v
}
