// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"
	"math"
	"sync"

	"github.com/galvanized/rigid3d/math/lin"
)

// Body is a single object contained within a physics simulation.
// Bodies generally relate to a scene node that is displayed to the user.
// Only add bodies that need to participate in physics.
// Bodies that are added to physics are expected to have their movement
// controlled by the physics simulation and not the application.
type Body interface {
	Shapes() []BodyShape  // Physics shapes for this body, in local space.
	World() *lin.T         // Get the location and direction
	SetWorld(world *lin.T) // ...or set the location and direction.

	Eq(b Body) bool           // True if the two bodies are the same.
	Speed() (x, y, z float64) // Current linear velocity.
	Whirl() (x, y, z float64) // Current angular velocity.
	Push(x, y, z float64)     // Add to the body's linear velocity.
	Turn(x, y, z float64)     // Add to the body's angular velocity.
	Stop()                    // Stops linear velocity.
	Rest()                    // Stops angular velocity.

	// SetMaterial associates physical properties with a body. The physical
	// properties are combined with the body's shape to determine its behaviour
	// during collisions. The updated Body is returned.
	//     mass:       use zero mass for unmoving (static/fixed) bodies.
	//     bounciness: total bounciness is determined by multiplying the bounciness
	//                 of the two colliding bodies. If one of the bodies has 0
	//                 bounciness then there is no bounce effect.
	SetMaterial(mass, bounciness float64) Body
}

// BodyShape pairs a Shape with its fixed offset from the body's own origin.
// A body may carry more than one shape (a compound body); the common case
// is a single shape positioned at the identity transform.
type BodyShape struct {
	Local *lin.T // shape offset within the body, immutable once added.
	Shape Shape  // the collision primitive.
}

// BodyBuilder accumulates the construction parameters for a Body before it
// is added to a World. Fields left at their zero value get the World's
// documented defaults (zero mass -> static, zero friction -> frictionless).
type BodyBuilder struct {
	Pose        *lin.T      // initial position/orientation. Defaults to identity.
	LinVelocity *lin.V3     // initial linear velocity.
	AngVelocity *lin.V3     // initial angular velocity.
	Mass        float64     // zero denotes an immovable, infinite-mass body.
	Friction    float64     // combined by product-then-clamp with the other body.
	Restitution float64     // combined by product with the other body.
	Shapes      []BodyShape // one or more shapes, in body-local space.
}

// NewBodyBuilder returns a builder with a single shape at the identity
// offset, no velocity, and zero friction/restitution (static unless Mass
// is set).
func NewBodyBuilder(shape Shape) *BodyBuilder {
	return &BodyBuilder{Shapes: []BodyShape{{Local: lin.NewT(), Shape: shape}}}
}

// AddShape appends another shape at the given local offset, turning the
// body into a compound body.
func (bb *BodyBuilder) AddShape(local *lin.T, shape Shape) *BodyBuilder {
	bb.Shapes = append(bb.Shapes, BodyShape{Local: local, Shape: shape})
	return bb
}

// Body interface
// ===========================================================================
// body implementation.

// body is the default implementation of the Body interface.
type body struct {
	bid    uint32      // Unique body id for generating pair identfiers.
	shapes []BodyShape // Body shapes for collisions, in local space.
	world  *lin.T      // World transform for the given shape.
	v0     *lin.V3     // Scratch vector.

	guess   *lin.T // Predicted world transform for the given shape.
	movable bool   // Body has mass. It is able to move.

	// Motion data
	imass float64 // Inverse mass is calcuated once on object creation.
	lvel  *lin.V3 // Linear velocity in meters per second.
	lfor  *lin.V3 // Linear forces acting on this body.
	ldamp float64 // Linear damping.
	avel  *lin.V3 // Angular velocity.
	afor  *lin.V3 // Angular forces (torque) acting on this body.
	adamp float64 // Angular damping.
	iit   *lin.M3 // Inverse inertia tensor, body-local axes.
	iitw  *lin.M3 // Inverse inertia tensor world. Tracks oriented inertia amount.

	// Bodys take part in collision resolution. Tracks the extra information
	// needed by the solver. It is initialized and consumed by the solver as needed.
	friction    float64     // Ideally non-zero.
	restitution float64     // Bounciness. Zero to one expected.
	sbod        *bodyState // Body related solver data.

	// Scratch variables are optimizations that avoid creating/destroying
	// temporary objects that are needed each timestep.
	m0, m1, m2 *lin.M3 // Scratch matrices.
	t0         *lin.T  // Scratch transform.
}

// bodyUuid is a cheap simple global id. Allows 4 billion bodies before
// luck takes over.
var bodyUUID uint32
var bodyUUIDMutex sync.Mutex // Concurrency safety.

// NewBody returns a new Body structure using a single shape. The body will
// be positioned, with no rotation, at the origin.
func NewBody(shape Shape) Body { return newBody(NewBodyBuilder(shape)) }

// newBody creates a body from a builder, combining every shape's inertia
// (about the body origin, not yet about the body's own center of mass --
// callers that need a true compound-body COM should pre-offset shapes).
func newBody(bb *BodyBuilder) *body {
	b := &body{}
	b.shapes = bb.Shapes
	b.imass = 0      // no mass, static body by default
	b.friction = 0.5 // good to have some friction
	b.world = lin.NewT().SetI()
	b.guess = lin.NewT().SetI()
	if bb.Pose != nil {
		b.world.Set(bb.Pose)
		b.guess.Set(bb.Pose)
	}

	// allocate linear and angular motion data
	b.lvel = lin.NewV3()
	b.lfor = lin.NewV3()
	b.avel = lin.NewV3()
	b.afor = lin.NewV3()
	if bb.LinVelocity != nil {
		b.lvel.Set(bb.LinVelocity)
	}
	if bb.AngVelocity != nil {
		b.avel.Set(bb.AngVelocity)
	}
	b.iitw = lin.NewM3().Set(lin.M3I)
	b.iit = lin.NewM3()

	// allocate scratch variables
	b.m0 = &lin.M3{}
	b.m1 = &lin.M3{}
	b.m2 = &lin.M3{}
	b.v0 = &lin.V3{}
	b.t0 = lin.NewT()

	// create a unique body identifier
	bodyUUIDMutex.Lock()
	b.bid = bodyUUID
	if bodyUUID++; bodyUUID == 0 {
		slog.Error("unique body id wrapped")
	}
	bodyUUIDMutex.Unlock()

	b.setMaterial(bb.Mass, bb.Restitution)
	b.friction = bb.Friction
	return b
}

// Form interface implementation.
func (b *body) Shapes() []BodyShape { return b.shapes }

// Allow world to be injected so that it becomes shared data.
// Lazy create the world transform if one was not set.
func (b *body) SetWorld(world *lin.T) { b.world = world }
func (b *body) World() *lin.T {
	if b.world == nil {
		b.world = lin.NewT().SetI()
	}
	return b.world
}

// Body interface implementation.
func (b *body) Eq(a Body) bool           { return b.bid == a.(*body).bid }
func (b *body) Speed() (x, y, z float64) { return b.lvel.X, b.lvel.Y, b.lvel.Z }
func (b *body) Whirl() (x, y, z float64) { return b.avel.X, b.avel.Y, b.avel.Z }
func (b *body) Stop()                    { b.lvel.X, b.lvel.Y, b.lvel.Z = 0, 0, 0 }
func (b *body) Rest()                    { b.avel.X, b.avel.Y, b.avel.Z = 0, 0, 0 }
func (b *body) Push(x, y, z float64) {
	b.lvel.X += x
	b.lvel.Y += y
	b.lvel.Z += z
}
func (b *body) Turn(x, y, z float64) {
	b.avel.X += x
	b.avel.Y += y
	b.avel.Z += z
}
func (b *body) SetMaterial(mass, bounciness float64) Body {
	return b.setMaterial(mass, bounciness)
}

// setMaterial combines the inertia of every shape on the body (about the
// body origin) before inverting it.
func (b *body) setMaterial(mass, bounciness float64) *body {
	b.imass = 0 // static unless there is mass.
	b.iit.SetS(0, 0, 0, 0, 0, 0, 0, 0, 0)
	if !lin.AeqZ(mass) {
		b.imass = 1.0 / mass
		total := lin.NewM3()
		scratch := lin.NewM3()
		perShapeMass := mass / float64(len(b.shapes))
		for _, bs := range b.shapes {
			if i := bs.Shape.Inertia(perShapeMass, scratch); i != nil {
				total.Add(total, i)
			}
		}
		if total.Det() != 0 {
			b.iit.Inv(total)
		}
	}
	b.restitution = bounciness
	b.movable = b.imass != 0
	return b
}

// pairID generates a unique id for bodies a and b.
// The pair id is independent of calling order.
func (b *body) pairID(a *body) uint64 {
	id0, id1 := b.bid, a.bid
	if id0 > id1 {
		id0, id1 = id1, id0 // calling order independence
	}
	return uint64(id0)<<32 + uint64(id1)
}

// applyForce adds the given world-space force to the total forces acting
// on this body. Static bodies are ignored.
func (b *body) applyForce(force *lin.V3) {
	if b.movable {
		b.lfor.Add(b.lfor, force)
	}
}

// updateInertiaTensor reacalculates the inertia tensor for this body. The
// local inverse inertia tensor is not generally diagonal (a compound body,
// or a hull whose local axes aren't its own principal axes), so this is a
// full conjugation R*iit*R^T rather than a per-axis scale.
func (b *body) updateInertiaTensor() {
	worldBasis, basisTransposed, tmp := b.m0, b.m1, b.m2 // scratch m0, m1, m2
	worldBasis.SetQ(b.world.Rot)                         //
	basisTransposed.Transpose(worldBasis)                //
	tmp.Mult(worldBasis, b.iit)                          //
	b.iitw.Mult(tmp, basisTransposed)                    // scratch m0, m1, m2 free
}

// integrateVelocities updates this bodies linear and angular velocities based
// on the bodies current forces. Static bodies are ignored.
//
//	v(t+dt) = v(t) + a(t) * dt
//	x(t+dt) = x(t) + v(t+dt) * dt
func (b *body) integrateVelocities(ts float64) {
	if !b.movable {
		return
	}

	// update linear velocity
	m, v, force := b.imass*ts, b.lvel, b.lfor
	v.X, v.Y, v.Z = v.X+force.X*m, v.Y+force.Y*m, v.Z+force.Z*m

	// update angular velocity
	{ // scratch v0
		torq, a := b.v0, b.avel
		torq.MultMv(b.iitw, b.afor)
		a.X, a.Y, a.Z = a.X+torq.X*ts, a.Y+torq.Y*ts, a.Z+torq.Z*ts
	} // scratch v0 free

	// clamp angular velocity. Collision calculations will fail if its to high.
	avel := b.avel.Len()
	if avel*ts > lin.HalfPi {
		b.avel.Scale(b.avel, lin.HalfPi/ts/avel)
	}
}

// applyDamping adjust linear and angular velocity by their respective
// damping factors.
func (b *body) applyDamping(timestep float64) {
	b.lvel.Scale(b.lvel, math.Pow(1.0-b.ldamp, timestep))
	b.avel.Scale(b.avel, math.Pow(1.0-b.adamp, timestep))
}

// getVelocityInLocalPoint updates vector v to be the linear and angular
// velocity of this body at the given point. The point is expected to be
// in local coordinate space.
func (b *body) getVelocityInLocalPoint(localPoint, v *lin.V3) *lin.V3 {
	return v.Cross(b.avel, localPoint).Add(v, b.lvel)
}

// combinedFriction calculates the combined friction of the two bodies.
// Returned friction value clamped to reasonable range.
func (b *body) combinedFriction(a *body) float64 {
	return lin.Clamp(a.friction*b.friction, -maxFriction, maxFriction)
}

// combinedRestitution calculates the total bounciess of the two
// bodies.
func (b *body) combinedRestitution(a *body) float64 {
	return a.restitution * b.restitution
}

// initSolverBody initializes, and creates if necessary, solver specific
// data structures related to a body. All colliding bodies need solver bodies.
func (b *body) initSolverBody() *bodyState {
	switch {
	case b.sbod == nil && b.movable: // unique to this body.
		b.sbod = newSolverBody(b)
	case b.sbod != nil && b.movable: // reuse existing solver body.
		b.sbod.reset(b)
	case b.sbod == nil && !b.movable: // shared fixed solver body.
		b.sbod = fixedSolverBody()
	}
	return b.sbod
}

// worldAabb updates Abox ab to be the union of all of the bodies' shapes'
// axis-aligned bounding boxes in world coordinates. The updated Abox is
// returned.
func (b *body) worldAabb(ab *Abox) *Abox { return b.shapeAabb(b.world, ab, 0) }

// predictedAabb updates Abox ab to be the bodies axis-aligned bounding box
// in the predicted world coordinates.
func (b *body) predictedAabb(ab *Abox, margin float64) *Abox {
	return b.shapeAabb(b.guess, ab, margin)
}

func (b *body) shapeAabb(world *lin.T, ab *Abox, margin float64) *Abox {
	ab.Sx, ab.Sy, ab.Sz = MaxNumber, MaxNumber, MaxNumber
	ab.Lx, ab.Ly, ab.Lz = -MaxNumber, -MaxNumber, -MaxNumber
	shapeWorld := b.t0
	for _, bs := range b.shapes {
		shapeWorld.Mult(world, bs.Local)
		one := bs.Shape.Aabb(shapeWorld, &Abox{}, margin)
		if one == nil {
			if bs.Shape.Type() == PlaneShape { // a plane is unbounded.
				ab.Sx, ab.Sy, ab.Sz = -MaxNumber, -MaxNumber, -MaxNumber
				ab.Lx, ab.Ly, ab.Lz = MaxNumber, MaxNumber, MaxNumber
			}
			continue
		}
		ab.Sx, ab.Sy, ab.Sz = math.Min(ab.Sx, one.Sx), math.Min(ab.Sy, one.Sy), math.Min(ab.Sz, one.Sz)
		ab.Lx, ab.Ly, ab.Lz = math.Max(ab.Lx, one.Lx), math.Max(ab.Ly, one.Ly), math.Max(ab.Lz, one.Lz)
	}
	return ab
}

// updatePredictedTransform provides a guess where the body would appear using
// the current linear and angular velocities within the supplied timestep.
func (b *body) updatePredictedTransform(timestep float64) {
	b.guess.Integrate(b.world, b.lvel, b.avel, timestep)
}

// updateWorldTransform sets the world transform based on the current linear
// and angular velocities. Expected to be called after the solver completes.
func (b *body) updateWorldTransform(timestep float64) {
	b.t0.Integrate(b.world, b.lvel, b.avel, timestep) // scratch t0
	b.world.Set(b.t0)                                 // scratch t0 free
}

// clearForces sets the forces applied to the body back to zero.
func (b *body) clearForces() {
	b.lfor.SetS(0, 0, 0)
	b.afor.SetS(0, 0, 0)
}
