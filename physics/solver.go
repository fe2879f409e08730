// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.
//
// Solver is a un-optimized, scaled-down, golang version of the Bullet physics
//     bullet-2.81-rev2613/src/.../btSequentialImpulseConstraintSolver.(cpp/h)
// which has the following license:
//
//    Bullet Continuous Collision Detection and Physics Library
//    Copyright (c) 2003-2006 Erwin Coumans  http://continuousphysics.com/Bullet/
//
//    This software is provided 'as-is', without any express or implied warranty.
//    In no event will the authors be held liable for any damages arising from the use of this software.
//    Permission is granted to anyone to use this software for any purpose,
//    including commercial applications, and to alter it and redistribute it freely,
//    subject to the following restrictions:
//
//    1. The origin of this software must not be misrepresented; you must not claim that you wrote the original software.
//       If you use this software in a product, an acknowledgment in the product documentation would be appreciated but is not required.
//    2. Altered source versions must be plainly marked as such, and must not be misrepresented as being the original software.
//    3. This notice may not be removed or altered from any source distribution.

package physics

import (
	"log/slog"
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// solver turns the current set of contacting pairs into a system of
// one-dimensional constraints - one row per contact normal, one row per
// friction axis - and drives each body's velocity toward a solution
// using Projected Gauss-Seidel (PGS), also known as sequential impulses:
// each row is resolved in turn against the velocities left by the rows
// solved before it, and the sweep repeats until the velocities settle.
//
//	http://en.wikipedia.org/wiki/Linear_complementarity_problem
//	http://en.wikipedia.org/wiki/Gauss–Seidel_method
//	http://image.diku.dk/kenny/download/vriphys10_course/lcp.pdf
type solver struct {
	tunables *tunables
	contacts []*constraintRow // one row per active point of contact.
	friction []*constraintRow // one paired friction row per contact row.

	// scratch vectors avoid per-step allocation in the hot setup/solve path.
	v0, v1, v2 *lin.V3
	ra, rb     *lin.V3 // scratch relative positions, contact point to body origin.
}

// newSolver allocates a solver ready for repeated Step calls.
func newSolver() *solver {
	return &solver{
		tunables: newTunables(),
		contacts: []*constraintRow{},
		friction: []*constraintRow{},
		v0:       lin.NewV3(),
		v1:       lin.NewV3(),
		v2:       lin.NewV3(),
		ra:       lin.NewV3(),
		rb:       lin.NewV3(),
	}
}

// configure copies the given tunables onto the solver's internal constants.
func (sol *solver) configure(cfg *SolverConfig) { cfg.applyTo(sol.tunables) }

// solve runs one full PGS pass: build rows from the current contact
// pairs, iterate them to convergence, then write the resulting
// velocities (and, for split impulse, positions) back onto the bodies.
func (sol *solver) solve(bodies map[uint32]*body, pairs map[uint64]*contactPair, dt float64) {
	sol.tunables.timestep = dt
	sol.prepare(bodies, pairs)
	sol.runIterations()
	sol.writeback(bodies)
}

// solver construction
// ============================================================================

// prepare rebuilds the row lists for this step: it seeds each movable
// body's delta velocity with the impulse its accumulated forces would
// apply over dt, then emits a contact row and a friction row for every
// point of contact still within processing range.
func (sol *solver) prepare(bodies map[uint32]*body, pairs map[uint64]*contactPair) {
	for _, b := range bodies {
		sol.seedExternalForces(b)
	}

	sol.contacts = sol.contacts[:0]
	sol.friction = sol.friction[:0]
	for _, pair := range pairs {
		sol.buildPairRows(pair)
	}
}

// seedExternalForces gives a movable body's solver state an initial
// delta velocity equal to the impulse its currently accumulated forces
// would impart over this step - gravity and anything else applied via
// ApplyForce/ApplyTorque before this Step.
func (sol *solver) seedExternalForces(b *body) {
	sb := b.initSolverBody()
	if sb.oBody == nil {
		return // static bodies have no solver state to seed.
	}
	sb.linearVelocity.Add(sb.linearVelocity, sol.v0.Scale(b.lfor, b.imass*sol.tunables.timestep))
	sb.angularVelocity.Add(sb.angularVelocity, sol.v0.MultMv(b.iitw, b.afor).Scale(sol.v0, sol.tunables.timestep))
}

// buildPairRows turns every still-contacting point in pair's manifold
// into a contact row and a matching friction row. Pairs between two
// static bodies never need rows since neither side can move.
func (sol *solver) buildPairRows(pair *contactPair) {
	sbodA, sbodB := pair.bodyA.sbod, pair.bodyB.sbod
	if (sbodA == nil || sbodA.oBody == nil) && (sbodB == nil || sbodB.oBody == nil) {
		slog.Warn("ignoring collision between two static bodies")
		return
	}

	for _, poc := range pair.pocs {
		if poc.sp.distance > pair.processingLimit {
			continue
		}

		relA := sol.ra.Sub(poc.sp.worldA, sbodA.world.Loc)
		relB := sol.rb.Sub(poc.sp.worldB, sbodB.world.Loc)

		row := poc.sp.normalRow
		row.sbodA, row.sbodB = sbodA, sbodB
		row.oPoint = poc
		relVel := sol.buildNormalRow(row, sbodA, sbodB, poc, relA, relB, poc.sp.vel)
		sol.contacts = append(sol.contacts, row)

		friction := poc.sp.frictionRow
		friction.frictionIndex, row.frictionIndex = row, friction
		dir := sol.frictionDirection(poc.sp, relVel)
		sol.buildFrictionRow(friction, dir, sbodA, sbodB, poc.sp, relA, relB)
		sol.friction = append(sol.friction, friction)
	}
}

// frictionDirection picks the axis the friction row will act along: the
// component of relative surface velocity lying in the contact plane,
// normalized, or an arbitrary in-plane direction when the bodies aren't
// sliding relative to each other.
func (sol *solver) frictionDirection(sp *contactSolverData, normalComponent float64) *lin.V3 {
	dir := sp.lateralFrictionDir.Sub(sp.vel, sol.v0.Scale(sp.normalWorldB, normalComponent))
	if lenSqr := dir.LenSqr(); lenSqr > lin.Epsilon {
		dir.Scale(dir, 1.0/math.Sqrt(lenSqr))
	} else {
		sp.normalWorldB.Plane(dir, sol.v0)
	}
	return dir
}

// buildNormalRow computes the Jacobian, bias, and warm start impulse
// for one contact point's normal-direction constraint row.
func (sol *solver) buildNormalRow(row *constraintRow, sbodA, sbodB *bodyState,
	poc *pointOfContact, relA, relB, vel *lin.V3) (relativeVelocity float64) {
	bodyA, bodyB := sbodA.oBody, sbodB.oBody // either may be nil: the body is static.

	torqueA := sol.v0.Cross(relA, poc.sp.normalWorldB)
	row.angularComponentA.SetS(0, 0, 0)
	if bodyA != nil {
		row.angularComponentA.MultMv(bodyA.iitw, torqueA)
	}
	torqueB := sol.v1.Cross(relB, poc.sp.normalWorldB)
	row.angularComponentB.SetS(0, 0, 0)
	if bodyB != nil {
		row.angularComponentB.MultMv(bodyB.iitw, sol.v2.Neg(torqueB))
	}

	denomA, denomB := 0.0, 0.0
	if bodyA != nil {
		vec := sol.v2.Cross(row.angularComponentA, relA)
		denomA = bodyA.imass + poc.sp.normalWorldB.Dot(vec)
	}
	if bodyB != nil {
		sol.v2.Neg(row.angularComponentB).Cross(sol.v2, relB)
		denomB = bodyB.imass + poc.sp.normalWorldB.Dot(sol.v2)
	}
	row.jacDiagABInv = 1.0 / (denomA + denomB)
	row.normal.Set(poc.sp.normalWorldB)
	row.relpos1CrossNormal.Set(torqueA)
	row.relpos2CrossNormal.Neg(torqueB)

	penetration := poc.sp.distance + sol.tunables.linearSlop
	v0, v1 := sol.v0.SetS(0, 0, 0), sol.v1.SetS(0, 0, 0)
	if bodyA != nil {
		bodyA.getVelocityInLocalPoint(relA, v0)
	}
	if bodyB != nil {
		bodyB.getVelocityInLocalPoint(relB, v1)
	}
	vel.Sub(v0, v1)
	row.friction = poc.sp.combinedFriction
	relativeVelocity = poc.sp.normalWorldB.Dot(vel)
	restitution := math.Max(0, poc.sp.combinedRestitution*-relativeVelocity)

	// Warm start: seed this row's impulse from the previous step's result.
	row.appliedImpulse = poc.sp.warmImpulse * sol.tunables.warmstartingFactor
	linc, angc := sol.v0, sol.v1
	if bodyA != nil {
		sbodA.applyImpulse(linc.Scale(row.normal, bodyA.imass), angc.Set(row.angularComponentA), row.appliedImpulse)
	}
	if bodyB != nil {
		sbodB.applyImpulse(linc.Scale(row.normal, bodyB.imass), angc.Neg(row.angularComponentB), -row.appliedImpulse)
	}
	row.appliedPushImpulse = 0.0

	vel1Dotn, vel2Dotn := 0.0, 0.0
	if bodyA != nil {
		vel1Dotn = row.normal.Dot(sbodA.linearVelocity) + row.relpos1CrossNormal.Dot(sbodA.angularVelocity)
	}
	if bodyB != nil {
		vel2Dotn = sol.v0.Neg(row.normal).Dot(sbodB.linearVelocity) + row.relpos2CrossNormal.Dot(sbodB.angularVelocity)
	}
	velocityError := restitution - (vel1Dotn + vel2Dotn)
	erp := sol.tunables.erp2
	if !sol.tunables.splitImpulse || penetration > sol.tunables.splitImpulsePenetrationLimit {
		erp = sol.tunables.erp
	}
	positionalError := 0.0
	if penetration > 0 {
		velocityError -= penetration / sol.tunables.timestep
	} else {
		positionalError = -penetration * erp / sol.tunables.timestep
		maxBias := sol.tunables.maxErrorReduction / sol.tunables.timestep
		positionalError = lin.Clamp(positionalError, -maxBias, maxBias)
	}
	penetrationImpulse := positionalError * row.jacDiagABInv
	velocityImpulse := velocityError * row.jacDiagABInv
	if !sol.tunables.splitImpulse || penetration > sol.tunables.splitImpulsePenetrationLimit {
		row.rhs = penetrationImpulse + velocityImpulse
		row.rhsPenetration = 0.0
	} else {
		// split position correction out from the velocity solve.
		row.rhs = velocityImpulse
		row.rhsPenetration = penetrationImpulse
	}
	row.cfm = 0
	row.lowerLimit = 0
	row.upperLimit = 1e10
	return relativeVelocity
}

// buildFrictionRow computes the Jacobian and bias for one contact
// point's friction row, along the given in-plane axis. Its impulse
// limits are filled in later, once the paired contact row's impulse
// magnitude is known.
func (sol *solver) buildFrictionRow(row *constraintRow, axis *lin.V3, sbodA, sbodB *bodyState,
	sp *contactSolverData, relA, relB *lin.V3) {
	bodyA, bodyB := sbodA.oBody, sbodB.oBody // either may be nil: the body is static.
	row.sbodA, row.sbodB = sbodA, sbodB
	row.normal.Set(axis)
	row.friction = sp.combinedFriction
	row.oPoint = nil
	row.appliedImpulse = 0.0
	row.appliedPushImpulse = 0.0

	torqueA := row.relpos1CrossNormal.Cross(relA, row.normal)
	row.angularComponentA.SetS(0, 0, 0)
	if bodyA != nil {
		row.angularComponentA.MultMv(bodyA.iitw, torqueA)
	}
	torqueB := row.relpos2CrossNormal.Cross(relB, sol.v0.Neg(row.normal))
	row.angularComponentB.SetS(0, 0, 0)
	if bodyB != nil {
		row.angularComponentB.MultMv(bodyB.iitw, torqueB)
	}

	denomA, denomB := 0.0, 0.0
	if bodyA != nil {
		sol.v0.Cross(row.angularComponentA, relA)
		denomA = bodyA.imass + axis.Dot(sol.v0)
	}
	if bodyB != nil {
		sol.v0.Cross(sol.v1.Neg(row.angularComponentB), relB)
		denomB = bodyB.imass + axis.Dot(sol.v0)
	}
	row.jacDiagABInv = 1.0 / (denomA + denomB)

	vel1Dotn, vel2Dotn := 0.0, 0.0
	if bodyA != nil {
		vel1Dotn = row.normal.Dot(sbodA.linearVelocity) + row.relpos1CrossNormal.Dot(sbodA.angularVelocity)
	}
	if bodyB != nil {
		vel2Dotn = sol.v0.Neg(row.normal).Dot(sbodB.linearVelocity) + row.relpos2CrossNormal.Dot(sbodB.angularVelocity)
	}
	velocityError := -(vel1Dotn + vel2Dotn)
	row.rhs = velocityError * row.jacDiagABInv
	row.cfm = 0
	row.lowerLimit = 0
	row.upperLimit = 1e10
	row.rhsPenetration = 0
}

// solver iteration
// ============================================================================

// runIterations sweeps every row repeatedly, letting each row's solution
// push back on the ones already solved this pass, until the configured
// iteration count is spent. Split impulse penetration recovery, when
// enabled, gets its own independent sweep over the push/turn velocities
// before the main velocity solve begins.
func (sol *solver) runIterations() {
	if sol.tunables.splitImpulse {
		for i := 0; i < sol.tunables.numIterations; i++ {
			for _, row := range sol.contacts {
				sol.applyPenetrationImpulse(row.sbodA, row.sbodB, row)
			}
		}
	}
	for i := 0; i < sol.tunables.numIterations; i++ {
		sol.iterateOnce()
	}
}

// iterateOnce resolves every contact row once, then every friction row
// whose paired contact row ended up with a nonzero impulse - friction
// can never exceed what the contact normal is actually pressing with.
func (sol *solver) iterateOnce() {
	for _, row := range sol.contacts {
		sol.applyRowImpulse(row.sbodA, row.sbodB, row, true)
	}
	for _, row := range sol.friction {
		normalImpulse := row.frictionIndex.appliedImpulse
		if normalImpulse > 0 {
			row.lowerLimit = -(row.friction * normalImpulse)
			row.upperLimit = row.friction * normalImpulse
			sol.applyRowImpulse(row.sbodA, row.sbodB, row, false)
		}
	}
}

// applyRowImpulse is a single Projected Gauss-Seidel / sequential
// impulse step: figure out the impulse that would drive this row's
// constraint to zero given the bodies' current delta velocities, clamp
// it to the row's limits, and apply the (possibly clamped) change.
func (sol *solver) applyRowImpulse(sbod1, sbod2 *bodyState, row *constraintRow, doUpper bool) {
	deltaImpulse := row.rhs - row.appliedImpulse*row.cfm
	deltaVel1Dotn := row.normal.Dot(sbod1.deltaLinearVelocity) + row.relpos1CrossNormal.Dot(sbod1.deltaAngularVelocity)
	deltaVel2Dotn := sol.v0.Neg(row.normal).Dot(sbod2.deltaLinearVelocity) + row.relpos2CrossNormal.Dot(sbod2.deltaAngularVelocity)
	deltaImpulse -= deltaVel1Dotn * row.jacDiagABInv
	deltaImpulse -= deltaVel2Dotn * row.jacDiagABInv

	sum := row.appliedImpulse + deltaImpulse
	switch {
	case sum < row.lowerLimit:
		deltaImpulse = row.lowerLimit - row.appliedImpulse
		row.appliedImpulse = row.lowerLimit
	case doUpper && sum > row.upperLimit:
		deltaImpulse = row.upperLimit - row.appliedImpulse
		row.appliedImpulse = row.upperLimit
	default:
		row.appliedImpulse = sum
	}

	linc, angc := sol.v0, sol.v1
	sbod1.applyImpulse(linc.Mult(row.normal, sbod1.invMass), angc.Set(row.angularComponentA), deltaImpulse)
	sbod2.applyImpulse(linc.Mult(linc.Neg(row.normal), sbod2.invMass), angc.Set(row.angularComponentB), deltaImpulse)
}

// applyPenetrationImpulse is applyRowImpulse's split-impulse sibling: it
// solves the same row against the bodies' push/turn velocities rather
// than their real velocities, so penetration recovery never adds energy
// to the velocity solve.
func (sol *solver) applyPenetrationImpulse(sbod1, sbod2 *bodyState, row *constraintRow) {
	if row.rhsPenetration == 0 {
		return
	}
	deltaImpulse := row.rhsPenetration - row.appliedPushImpulse*row.cfm
	deltaVel1Dotn := row.normal.Dot(sbod1.pushVelocity) + row.relpos1CrossNormal.Dot(sbod1.turnVelocity)
	deltaVel2Dotn := sol.v0.Neg(row.normal).Dot(sbod2.pushVelocity) + row.relpos2CrossNormal.Dot(sbod2.turnVelocity)
	deltaImpulse -= deltaVel1Dotn * row.jacDiagABInv
	deltaImpulse -= deltaVel2Dotn * row.jacDiagABInv

	sum := row.appliedPushImpulse + deltaImpulse
	if sum < row.lowerLimit {
		deltaImpulse = row.lowerLimit - row.appliedPushImpulse
		row.appliedPushImpulse = row.lowerLimit
	} else {
		row.appliedPushImpulse = sum
	}

	linc, angc := sol.v0, sol.v1
	sbod1.applyPushImpulse(linc.Mult(row.normal, sbod1.invMass), angc.Set(row.angularComponentA), deltaImpulse)
	sbod2.applyPushImpulse(linc.Mult(linc.Neg(row.normal), sbod2.invMass), angc.Set(row.angularComponentB), deltaImpulse)
}

// writeback copies the solved velocities (and, under split impulse, the
// corrected transform) from each movable body's solver state back onto
// the body, and saves this step's contact impulses so next step's
// warm start has something to seed from.
func (sol *solver) writeback(bodies map[uint32]*body) {
	for _, row := range sol.contacts {
		row.oPoint.sp.warmImpulse = row.appliedImpulse
	}

	for _, b := range bodies {
		if !b.movable {
			continue
		}
		if sol.tunables.splitImpulse {
			b.sbod.writebackVelocityAndTransform(sol.tunables.timestep, sol.tunables.splitImpulseTurnErp)
		} else {
			b.sbod.writebackVelocity()
		}
		b.lvel.Set(b.sbod.linearVelocity)
		b.avel.Set(b.sbod.angularVelocity)
		if sol.tunables.splitImpulse {
			b.world.Set(b.sbod.world)
		}
	}
}

// solver
// ============================================================================
// tunables

// tunables holds the fixed numeric constants the solver resolves its
// constraint rows against.
type tunables struct {
	numIterations                int
	damping                      float64
	friction                     float64
	timestep                     float64
	restitution                  float64
	maxErrorReduction            float64
	erp                          float64 // Baumgarte stabilization factor.
	erp2                         float64 // Baumgarte factor used under split impulse.
	splitImpulseTurnErp          float64
	linearSlop                   float64
	warmstartingFactor           float64 // damps the previous step's applied impulse.
	splitImpulsePenetrationLimit float64
	splitImpulse                 bool
}

// newTunables returns the solver's built-in default constants.
func newTunables() *tunables {
	return &tunables{
		damping:                      1.0,
		friction:                     0.3,
		timestep:                     1.0 / 50.0,
		restitution:                  0.0,
		maxErrorReduction:            20.0,
		numIterations:                10,
		erp:                          0.2,
		erp2:                         0.8,
		splitImpulse:                 true,
		splitImpulsePenetrationLimit: -0.04,
		splitImpulseTurnErp:          0.1,
		linearSlop:                   0.0,
		warmstartingFactor:           0.85,
	}
}

// tunables
// ============================================================================
// constraintRow

// constraintRow is a single scalar row of the solver's linear system: a
// constraint along one axis (a contact normal, or a friction direction)
// between two bodies. Contact and friction rows share this same shape;
// only how their Jacobian and limits are built differs.
type constraintRow struct {
	normal             *lin.V3
	relpos1CrossNormal *lin.V3
	relpos2CrossNormal *lin.V3
	angularComponentA  *lin.V3
	angularComponentB  *lin.V3
	appliedPushImpulse float64
	appliedImpulse     float64
	friction           float64
	jacDiagABInv       float64
	rhs                float64
	cfm                float64
	lowerLimit         float64
	upperLimit         float64
	rhsPenetration     float64
	oPoint             *pointOfContact
	sbodA              *bodyState
	sbodB              *bodyState

	// frictionIndex points the other way across a contact/friction pair:
	// a friction row points at its contact row (to read its impulse for
	// the Coulomb limit) and vice versa.
	frictionIndex *constraintRow
}

// newConstraintRow allocates one row's vector storage.
func newConstraintRow() *constraintRow {
	return &constraintRow{
		normal:             lin.NewV3(),
		relpos1CrossNormal: lin.NewV3(),
		relpos2CrossNormal: lin.NewV3(),
		angularComponentA:  lin.NewV3(),
		angularComponentB:  lin.NewV3(),
	}
}

// constraintRow
// ============================================================================
// bodyState

// bodyState attaches the extra bookkeeping the solver needs - working
// velocities, split-impulse push/turn velocities, an inverse mass
// vector - onto a body for the duration of one solve.
type bodyState struct {
	oBody                *body // nil for the shared static bodyState.
	world                *lin.T
	linearVelocity       *lin.V3
	angularVelocity      *lin.V3
	deltaLinearVelocity  *lin.V3
	deltaAngularVelocity *lin.V3
	pushVelocity         *lin.V3
	turnVelocity         *lin.V3
	invMass              *lin.V3
	t0                   *lin.T  // scratch
	v0                   *lin.V3 // scratch
}

// fixedBody is the single shared bodyState used by every static body,
// lazily created since most simulations have at least a ground plane.
var fixedBody *bodyState

// fixedSolverBody returns the shared static bodyState, creating it on
// first use.
func fixedSolverBody() *bodyState {
	if fixedBody == nil {
		fixedBody = &bodyState{
			world:                lin.NewT().SetI(),
			linearVelocity:       lin.NewV3(),
			angularVelocity:      lin.NewV3(),
			deltaLinearVelocity:  lin.NewV3(),
			deltaAngularVelocity: lin.NewV3(),
			pushVelocity:         lin.NewV3(),
			turnVelocity:         lin.NewV3(),
			invMass:              lin.NewV3(),
			t0:                   lin.NewT(),
			v0:                   lin.NewV3(),
		}
	}
	return fixedBody
}

// newSolverBody allocates bodyState for a movable body - one with mass,
// able to carry velocity.
func newSolverBody(bod *body) *bodyState {
	return &bodyState{
		oBody:                bod,
		world:                lin.NewT().Set(bod.world),
		linearVelocity:       lin.NewV3().Set(bod.lvel),
		angularVelocity:      lin.NewV3().Set(bod.avel),
		deltaLinearVelocity:  lin.NewV3(),
		deltaAngularVelocity: lin.NewV3(),
		pushVelocity:         lin.NewV3(),
		turnVelocity:         lin.NewV3(),
		invMass:              lin.NewV3().SetS(bod.imass, bod.imass, bod.imass),
		t0:                   lin.NewT(),
		v0:                   lin.NewV3(),
	}
}

// reset refreshes an existing bodyState with the body's current
// velocities and mass, and clears the accumulators from last step.
func (sb *bodyState) reset(bod *body) {
	sb.oBody = bod
	sb.world.Set(bod.world)
	sb.linearVelocity.Set(bod.lvel)
	sb.angularVelocity.Set(bod.avel)
	sb.deltaLinearVelocity.SetS(0, 0, 0)
	sb.deltaAngularVelocity.SetS(0, 0, 0)
	sb.pushVelocity.SetS(0, 0, 0)
	sb.turnVelocity.SetS(0, 0, 0)
	sb.invMass.SetS(bod.imass, bod.imass, bod.imass)
}

// applyPushImpulse accumulates a penetration-recovery impulse into the
// push/turn velocities used by split impulse.
func (sb *bodyState) applyPushImpulse(linearComponent, angularComponent *lin.V3, impulseMagnitude float64) {
	if sb.oBody == nil {
		return // static: nothing to push.
	}
	sb.pushVelocity.Add(sb.pushVelocity, linearComponent.Scale(linearComponent, impulseMagnitude))
	sb.turnVelocity.Add(sb.turnVelocity, angularComponent.Scale(angularComponent, impulseMagnitude))
}

// applyImpulse accumulates a constraint impulse into the delta linear
// and angular velocities the solver is converging.
func (sb *bodyState) applyImpulse(linearComponent, angularComponent *lin.V3, impulseMagnitude float64) {
	if sb.oBody == nil {
		return // static: nothing to move.
	}
	sb.deltaLinearVelocity.Add(sb.deltaLinearVelocity, linearComponent.Scale(linearComponent, impulseMagnitude))
	sb.deltaAngularVelocity.Add(sb.deltaAngularVelocity, angularComponent.Scale(angularComponent, impulseMagnitude))
}

// writebackVelocity folds the solved delta velocities into this body's
// working velocities.
func (sb *bodyState) writebackVelocity() {
	if sb.oBody == nil {
		return
	}
	sb.linearVelocity.Add(sb.linearVelocity, sb.deltaLinearVelocity)
	sb.angularVelocity.Add(sb.angularVelocity, sb.deltaAngularVelocity)
}

// writebackVelocityAndTransform does writebackVelocity, then if this
// step accumulated any push/turn recovery, integrates it directly into
// the body's world transform - this is how split impulse separates
// inter-penetrating bodies without adding energy to their velocities.
func (sb *bodyState) writebackVelocityAndTransform(timestep, splitImpulseTurnErp float64) {
	if sb.oBody == nil {
		return
	}
	sb.linearVelocity.Add(sb.linearVelocity, sb.deltaLinearVelocity)
	sb.angularVelocity.Add(sb.angularVelocity, sb.deltaAngularVelocity)

	if sb.pushVelocity.X == 0 && sb.pushVelocity.Y == 0 && sb.pushVelocity.Z == 0 &&
		sb.turnVelocity.X == 0 && sb.turnVelocity.Y == 0 && sb.turnVelocity.Z == 0 {
		return
	}
	turnVelocity := sb.v0.Scale(sb.turnVelocity, splitImpulseTurnErp)
	sb.t0.Integrate(sb.world, sb.pushVelocity, turnVelocity, timestep)
	sb.world.Set(sb.t0)
}

// bodyState
// ============================================================================
// contactSolverData

// contactSolverData is the solver-facing half of a pointOfContact: the
// world/local positions, combined material properties, and row pool
// (one contact row, one friction row) the solver needs but narrow phase
// doesn't compute. One of these lives on every manifold point for its
// entire lifetime, reused across steps.
type contactSolverData struct {
	localA              *lin.V3 // Contact point in A's local space.
	localB              *lin.V3 // Contact point in B's local space.
	worldA              *lin.V3 // Contact point for A, world space.
	worldB              *lin.V3 // Contact point for B, world space.
	normalWorldB        *lin.V3 // Contact normal, world space, from B toward A.
	lateralFrictionDir  *lin.V3 // Friction row's axis.
	distance            float64 // Separation between A and B along the normal.
	combinedFriction    float64
	combinedRestitution float64
	warmImpulse         float64 // last step's contact row impulse, carried forward.

	normalRow   *constraintRow // pooled, reused every step this point survives.
	frictionRow *constraintRow
	vel         *lin.V3 // scratch vector needed by row setup.
}

// newSolverPoint allocates a contactSolverData and its pooled rows.
func newSolverPoint() *contactSolverData {
	return &contactSolverData{
		localA:             &lin.V3{},
		localB:             &lin.V3{},
		worldA:             &lin.V3{},
		worldB:             &lin.V3{},
		normalWorldB:       &lin.V3{},
		lateralFrictionDir: &lin.V3{},
		normalRow:          newConstraintRow(),
		frictionRow:        newConstraintRow(),
		vel:                &lin.V3{},
	}
}

// reuse carries a matched point's warm start impulse forward. Every
// other field has already been refreshed by pointOfContact.prepForSolver.
func (sp *contactSolverData) reuse(oldp *contactSolverData) {
	sp.warmImpulse = oldp.warmImpulse // zero this to disable warm starting.
}

// set copies s0's contact data into sp, replacing sp's prior contents
// in place.
func (sp *contactSolverData) set(s0 *contactSolverData) {
	sp.localA.Set(s0.localA)
	sp.localB.Set(s0.localB)
	sp.worldA.Set(s0.worldA)
	sp.worldB.Set(s0.worldB)
	sp.normalWorldB.Set(s0.normalWorldB)
	sp.lateralFrictionDir.Set(s0.lateralFrictionDir)
	sp.distance = s0.distance
	sp.combinedFriction = s0.combinedFriction
	sp.combinedRestitution = s0.combinedRestitution
	sp.warmImpulse = s0.warmImpulse
}
