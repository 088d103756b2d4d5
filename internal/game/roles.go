package game

import "math/rand"

// Role identifies a participant's role for the duration of a game.
type Role string

const (
	// RoleUnassigned is the role of every participant before role assignment.
	RoleUnassigned Role = "unassigned"

	// RoleRingleader leads the conspiracy and chooses the nightly elimination.
	RoleRingleader Role = "ringleader"

	// RoleAccomplice is the second conspirator. No night action of their own;
	// they coordinate with the ringleader.
	RoleAccomplice Role = "accomplice"

	// RoleWarden may shield one participant per night from elimination.
	RoleWarden Role = "warden"

	// RoleResident is the ordinary majority role with no special action.
	RoleResident Role = "resident"
)

// IsAntagonist reports whether the role belongs to the conspiracy.
func (r Role) IsAntagonist() bool {
	return r == RoleRingleader || r == RoleAccomplice
}

// HasNightAction reports whether the role acts during the night phase.
func (r Role) HasNightAction() bool {
	return r == RoleRingleader || r == RoleWarden
}

// NightActionKind returns the action kind this role submits at night,
// or "" for roles without one.
func (r Role) NightActionKind() ActionKind {
	switch r {
	case RoleRingleader:
		return ActionEliminate
	case RoleWarden:
		return ActionProtect
	default:
		return ""
	}
}

// Role counts for a full 10-seat table: 2 antagonists, 1 warden,
// 7 residents.
const (
	AntagonistCount = 2
	WardenCount     = 1
	FullRoster      = 10
)

// AssignRoles deals roles for the given participant ids using rng for the
// shuffle. The first two shuffled seats become ringleader and accomplice,
// the third becomes warden, everyone else is a resident. Returns a map
// from participant id to role.
func AssignRoles(ids []string, rng *rand.Rand) map[string]Role {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	roles := make(map[string]Role, len(shuffled))
	for i, id := range shuffled {
		switch {
		case i == 0:
			roles[id] = RoleRingleader
		case i < AntagonistCount:
			roles[id] = RoleAccomplice
		case i < AntagonistCount+WardenCount:
			roles[id] = RoleWarden
		default:
			roles[id] = RoleResident
		}
	}
	return roles
}
