// Copyright © 2024 Galvanized Logic Inc.

package physics

// broad.go produces the set of body pairs that might be touching, cheaply
// enough to run every step. It is deliberately naive: a full O(n^2) sweep
// of axis aligned bounding boxes. Anything that does not overlap here is
// guaranteed not to be touching; anything that does overlap still needs
// the narrow phase to confirm and measure an actual contact.

// broadPhasePair names two candidate bodies by id, lower id first so the
// pairing is stable regardless of iteration order.
type broadPhasePair struct {
	idA, idB uint32
}

// broadPhase returns every pair of bodies whose margin-padded world AABBs
// overlap. Static/static pairs are skipped; two immovable bodies never
// need a contact solved between them.
func broadPhase(bodies map[uint32]*body, margin float64) []broadPhasePair {
	ids := make([]uint32, 0, len(bodies))
	for id := range bodies {
		ids = append(ids, id)
	}
	boxes := make(map[uint32]*Abox, len(bodies))
	for _, id := range ids {
		boxes[id] = bodies[id].predictedAabb(&Abox{}, margin)
	}

	pairs := []broadPhasePair{}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := bodies[ids[i]], bodies[ids[j]]
			if !a.movable && !b.movable {
				continue
			}
			if !boxes[ids[i]].Overlaps(boxes[ids[j]]) {
				continue
			}
			idA, idB := ids[i], ids[j]
			if idA > idB {
				idA, idB = idB, idA
			}
			pairs = append(pairs, broadPhasePair{idA, idB})
		}
	}
	return pairs
}
