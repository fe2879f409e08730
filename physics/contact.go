// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// maxManifoldPoints bounds how many simultaneous points of contact a
// single contactPair tracks. Four is the smallest number that can
// represent a stable box-on-box face contact without wobble.
const maxManifoldPoints = 4

// contactPair tracks two bodies that broad phase considers close enough
// to possibly be touching. It owns a small manifold of contact points
// that persists, and is incrementally updated, across steps rather than
// being rebuilt from scratch every frame - this is what lets resting
// contacts warm start their solver impulses instead of popping.
type contactPair struct {
	bodyA *body             // (A, 0) partner body.
	bodyB *body             // (B, 1) reference body for normal and point.
	pid   uint64            // Unique pair identifier.
	pocs  []*pointOfContact // Current manifold points, len() <= maxManifoldPoints.
	valid bool              // Broadphase check for deleted bodies.

	// Fields below are consulted only while merging/solving this pair.
	processingLimit float64 // Points further apart than this are dropped by the solver.
	breakingLimit   float64 // Points that drift this far from their cached position are discarded.

	// scratch vectors avoid per-step allocation in the hot merge/solve path.
	v0, v1, v2 *lin.V3
}

// newContactPair allocates a manifold for two bodies that broad phase has
// just started tracking.
func newContactPair(bodyA, bodyB *body) *contactPair {
	con := &contactPair{
		bodyA:           bodyA,
		bodyB:           bodyB,
		pocs:            newManifold()[:0],
		breakingLimit:   0.02,
		processingLimit: lin.Large,
		v0:              lin.NewV3(),
		v1:              lin.NewV3(),
		v2:              lin.NewV3(),
	}
	if bodyA != nil && bodyB != nil {
		con.pid = bodyA.pairID(bodyB)
	}
	return con
}

// refreshContacts re-projects every cached point onto the pair's current
// world transforms and drops any point that has drifted too far from the
// contact plane or too far laterally along it. What survives is what
// mergeContacts will try to match new narrow phase points against.
func (con *contactPair) refreshContacts(wtA, wtB *lin.T) {
	for _, poc := range con.pocs {
		sp := poc.sp
		sp.worldA.AppT(wtA, sp.localA)
		sp.worldB.AppT(wtB, sp.localB)
		sp.distance = con.v0.Sub(sp.worldA, sp.worldB).Dot(sp.normalWorldB)
	}

	kept := con.pocs[:0]
	for _, poc := range con.pocs {
		if con.hasDrifted(poc) {
			continue
		}
		kept = append(kept, poc)
	}
	con.pocs = kept
}

// hasDrifted reports whether a cached point has separated past the
// breaking margin, either along the contact normal or laterally across
// the contact plane.
func (con *contactPair) hasDrifted(poc *pointOfContact) bool {
	sp := poc.sp
	if sp.distance > con.breakingLimit {
		return true
	}
	projection := con.v0.Sub(sp.worldA, con.v1.Scale(sp.normalWorldB, sp.distance))
	lateral := con.v2.Sub(sp.worldB, projection).LenSqr()
	return lateral > con.breakingLimit*con.breakingLimit
}

// mergeContacts folds freshly generated narrow phase points into the
// persistent manifold: a point near an existing one replaces it in
// place (preserving its warm start impulse), a genuinely new point is
// appended while there is room, and once the manifold is full the point
// giving the worst contact-area coverage is evicted in favor of the new
// one. Bodies with no new points keep whatever manifold they already
// had - that is resting contact, and the solver still needs it each step
// to counteract gravity.
func (con *contactPair) mergeContacts(fresh []*pointOfContact) {
	for _, poc := range fresh {
		poc.prepForSolver(con)
		switch idx := con.closestPoint(poc); {
		case idx >= 0:
			con.pocs[idx].set(poc)
		case len(con.pocs) < maxManifoldPoints:
			n := len(con.pocs)
			con.pocs = con.pocs[:n+1]
			con.pocs[n].set(poc)
			con.pocs[n].sp.warmImpulse = 0
		default:
			con.pocs[con.largestArea(con.pocs, poc)].set(poc)
		}
	}
}

// closestPoint returns the manifold index whose local-space A point is
// nearest the given point, or -1 if nothing is within the breaking
// margin. A hit here means "this is the same contact as last step",
// which is what lets its warm start impulse carry forward.
func (con *contactPair) closestPoint(point *pointOfContact) int {
	bestDist := con.breakingLimit * con.breakingLimit
	bestIdx := -1
	diff := con.v0
	for i, poc := range con.pocs {
		diff.Sub(poc.sp.localA, point.sp.localA)
		if d := diff.Dot(diff); d < bestDist {
			bestDist, bestIdx = d, i
		}
	}
	return bestIdx
}

// largestArea decides which of four existing manifold points to evict in
// favor of a fifth candidate point that didn't match anything via
// closestPoint: for each slot, compute the area spanned by the candidate
// plus the other three points, and evict whichever slot's replacement
// gives the largest resulting area. This is Bullet's
// btPersistentManifold::sortCachedPoints heuristic for keeping manifold
// coverage as wide as possible. Always returns an index into
// existingPoints.
func (con *contactPair) largestArea(existingPoints []*pointOfContact, point *pointOfContact) int {
	best, bestIdx := -1.0, 0
	for excluded := range existingPoints {
		area := con.quadArea(point.sp.localA, existingPoints, excluded)
		if area > best {
			best, bestIdx = area, excluded
		}
	}
	return bestIdx
}

// quadArea computes the contact-spanning area of the four points formed
// by substituting the candidate point into existingPoints at the given
// excluded slot.
func (con *contactPair) quadArea(candidate *lin.V3, existingPoints []*pointOfContact, excluded int) float64 {
	pts := make([]*lin.V3, 0, 4)
	pts = append(pts, candidate)
	for i, poc := range existingPoints {
		if i != excluded {
			pts = append(pts, poc.sp.localA)
		}
	}
	return con.quadrilateralArea(pts[0], pts[1], pts[2], pts[3])
}

// quadrilateralArea returns the largest of the three possible diagonal
// pairings' cross-product magnitudes for four points - a cheap proxy
// for the area spanned by the quadrilateral they form.
func (con *contactPair) quadrilateralArea(p0, p1, p2, p3 *lin.V3) float64 {
	v0, v1, vx := con.v0, con.v1, con.v2
	d0 := vx.Cross(v0.Sub(p0, p1), v1.Sub(p2, p3)).LenSqr()
	d1 := vx.Cross(v0.Sub(p0, p2), v1.Sub(p1, p3)).LenSqr()
	d2 := vx.Cross(v0.Sub(p0, p3), v1.Sub(p1, p2)).LenSqr()
	return math.Max(math.Max(d0, d1), d2)
}

// contactPair
// ============================================================================
// pointOfContact

// pointOfContact is one point where two shapes touch or overlap, as
// found by narrow phase. point/normal/depth alone are enough to push
// the shapes apart; sp carries the extra bookkeeping the solver and
// manifold maintenance need and that narrow phase doesn't compute.
//
// The matching point on the other body is point - normal*depth.
type pointOfContact struct {
	point  *lin.V3 // Point of contact on B, world space.
	normal *lin.V3 // Unit normal on B, world space, A toward B.
	depth  float64 // Penetration depth.
	sp     *contactSolverData

	v0 *lin.V3 // scratch.
}

// newPoc allocates one pointOfContact, including its solver bookkeeping.
func newPoc() *pointOfContact {
	return &pointOfContact{
		point:  lin.NewV3(),
		normal: lin.NewV3(),
		sp:     newSolverPoint(),
		v0:     lin.NewV3(),
	}
}

// newManifold allocates a full set of manifold point slots.
func newManifold() []*pointOfContact {
	pocs := make([]*pointOfContact, maxManifoldPoints)
	for i := range pocs {
		pocs[i] = newPoc()
	}
	return pocs
}

// prepForSolver fills in poc.sp from poc and the owning pair: world and
// local space contact positions on each body, the combined material
// properties, and the contact normal. Called once per fresh narrow
// phase point before it is merged into a manifold.
func (poc *pointOfContact) prepForSolver(con *contactPair) {
	sp := poc.sp
	sp.distance = poc.depth
	sp.worldA.Set(poc.point).Add(sp.worldA, poc.v0.Scale(poc.normal, -poc.depth))
	sp.localA = con.bodyA.world.Inv(sp.localA.Set(sp.worldA))
	sp.worldB.Set(poc.point)
	sp.localB = con.bodyB.world.Inv(sp.localB.Set(poc.point))
	sp.normalWorldB.Neg(poc.normal) // the solver's normal points from B toward A.
	sp.combinedFriction = con.bodyA.combinedFriction(con.bodyB)
	sp.combinedRestitution = con.bodyA.combinedRestitution(con.bodyB)

	// sp.lateralFrictionDir is recomputed by the solver each step, not here.
}

// set copies cp's point and solver data into poc, replacing poc's prior
// contents in place (no new allocation).
func (poc *pointOfContact) set(cp *pointOfContact) {
	poc.point.Set(cp.point)
	poc.normal.Set(cp.normal)
	poc.depth = cp.depth
	poc.sp.set(cp.sp)
}
