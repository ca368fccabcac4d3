package scanner

import "github.com/kasuganosora/autoinvite/game/actor"

// Scan returns the players around local that can receive a company invite.
// The result is a new slice in table order: valid players other than local,
// within maxRange yalms, without a company tag.
func Scan(local actor.Snapshot, all []actor.Snapshot, maxRange float32) []actor.Snapshot {
	var result []actor.Snapshot
	for _, a := range all {
		if a.ID == local.ID || !IsValid(a) {
			continue
		}
		if actor.Distance(local.Position, a.Position) > maxRange {
			continue
		}
		if a.HasFreeCompany() {
			continue
		}
		result = append(result, a)
	}
	return result
}

// IsValid reports whether a is a real, targetable player character.
func IsValid(a actor.Snapshot) bool {
	return a.Kind == actor.KindPlayer && a.Name != "" && a.Targetable
}
