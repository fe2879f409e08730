// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/galvanized/rigid3d/math/lin"
)

// BodyId identifies a body added to a World. It stays valid for the
// lifetime of the body; it is never reused after RemoveBody.
type BodyId uint32

// contactMargin pads broad phase AABBs so fast-moving bodies are not
// missed between one step's prediction and the next step's actual contact.
const contactMargin = 0.04

// World owns every body, runs the collision pipeline, and steps the
// simulation forward in time.
//
//	apply forces -> broad phase -> narrow phase -> solve constraints ->
//	integrate positions -> clear forces
type World struct {
	mu      sync.Mutex
	bodies  map[uint32]*body
	nextId  uint32
	gravity *lin.V3
	cfg     *SolverConfig
	log     *slog.Logger
	sol     *solver
	pairs   map[uint64]*contactPair
}

// New creates a World ready to have bodies added to it. Gravity defaults
// to (0, 0, -9.82); pass WithGravity to override it.
func New(opts ...WorldOption) *World {
	w := &World{
		bodies:  map[uint32]*body{},
		gravity: DefaultGravity(),
		cfg:     defaultSolverConfig(),
		log:     slog.Default(),
		sol:     newSolver(),
		pairs:   map[uint64]*contactPair{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.sol.configure(w.cfg)
	return w
}

// SetGravity overrides the world's gravity vector.
func (w *World) SetGravity(x, y, z float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gravity.SetS(x, y, z)
}

// AddBody adds a new body built from bb to the world and returns its id.
func (w *World) AddBody(bb *BodyBuilder) BodyId {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := newBody(bb)
	w.bodies[b.bid] = b
	return BodyId(b.bid)
}

// RemoveBody deletes a body and any contact pairs that reference it.
// Returns ErrUnknownBody if id was never returned by AddBody or was
// already removed.
func (w *World) RemoveBody(id BodyId) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	bid := uint32(id)
	if _, ok := w.bodies[bid]; !ok {
		return ErrUnknownBody
	}
	delete(w.bodies, bid)
	for pid, pair := range w.pairs {
		if pair.bodyA.bid == bid || pair.bodyB.bid == bid {
			delete(w.pairs, pid)
		}
	}
	return nil
}

// bodyByID returns the body for id, or nil with a logged warning if the
// id is unknown. Internal callers treat a missing body as a no-op rather
// than a hard error; a removed body simply drops out of the simulation.
func (w *World) bodyByID(id BodyId) *body {
	b, ok := w.bodies[uint32(id)]
	if !ok {
		w.log.Warn("unknown body id", "id", id)
	}
	return b
}

// Step advances the simulation by dt seconds:
//
//	apply gravity -> broad phase -> narrow phase -> merge contacts ->
//	solve constraints -> integrate positions -> clear forces
func (w *World) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dt <= 0 {
		return
	}

	for _, b := range w.bodies {
		b.applyForce(w.v3scaled(w.gravity, b))
		b.updatePredictedTransform(dt)
	}

	candidates := broadPhase(w.bodies, contactMargin)
	seen := map[uint64]bool{}
	for _, c := range candidates {
		a, b := w.bodies[c.idA], w.bodies[c.idB]
		pid := a.pairID(b)
		seen[pid] = true
		pair, ok := w.pairs[pid]
		if !ok {
			pair = newContactPair(a, b)
			w.pairs[pid] = pair
		}
		pair.refreshContacts(a.world, b.world)
		pair.mergeContacts(generateContacts(a, b))
		pair.valid = true
	}
	// drop pairs whose bodies no longer pass broad phase.
	for pid := range w.pairs {
		if !seen[pid] {
			delete(w.pairs, pid)
		}
	}

	w.sol.solve(w.bodies, w.pairs, dt)

	for _, b := range w.bodies {
		b.integrateVelocities(dt)
		b.applyDamping(dt)
		b.updateWorldTransform(dt)
		b.clearForces()
	}
}

// v3scaled returns gravity as a force: mass * gravity acceleration. Static
// bodies have zero mass; applyForce is itself a no-op for them, so the
// multiplication by an infinite/undefined mass never matters.
func (w *World) v3scaled(gravity *lin.V3, b *body) *lin.V3 {
	if !b.movable {
		return &lin.V3{}
	}
	mass := 1.0 / b.imass
	return &lin.V3{X: gravity.X * mass, Y: gravity.Y * mass, Z: gravity.Z * mass}
}

// BodyView exposes a read-only snapshot of one body's simulation state.
type BodyView struct {
	World  lin.T
	LinVel lin.V3
	AngVel lin.V3
}

// Body returns a snapshot of the named body's current state.
func (w *World) Body(id BodyId) (BodyView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[uint32(id)]
	if !ok {
		return BodyView{}, ErrUnknownBody
	}
	return snapshotBody(b), nil
}

// snapshotBody deep-copies a body's transform and velocities so the
// returned BodyView stays valid after later Step calls mutate the body.
func snapshotBody(b *body) BodyView {
	view := BodyView{}
	view.World.Loc = &lin.V3{}
	view.World.Rot = &lin.Q{}
	view.World.Loc.Set(b.world.Loc)
	view.World.Rot.Set(b.world.Rot)
	view.LinVel.Set(b.lvel)
	view.AngVel.Set(b.avel)
	return view
}

// IterBodies calls fn once per body currently in the world, stopping
// early if fn returns false. Iteration order is unspecified.
func (w *World) IterBodies(fn func(id BodyId, view BodyView) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for bid, b := range w.bodies {
		view := snapshotBody(b)
		if !fn(BodyId(bid), view) {
			return
		}
	}
}

// Contacts returns the currently tracked contact points, useful for
// debug visualization and tests. The returned slice is a defensive copy.
func (w *World) Contacts() []ContactEquation {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []ContactEquation{}
	for _, pair := range w.pairs {
		for _, poc := range pair.pocs {
			out = append(out, ContactEquation{
				BodyA:  BodyId(pair.bodyA.bid),
				BodyB:  BodyId(pair.bodyB.bid),
				Point:  *poc.point,
				Normal: *poc.normal,
				Depth:  poc.depth,
			})
		}
	}
	return out
}

// ContactEquation is a debug-facing view of a single solved contact point.
type ContactEquation struct {
	BodyA, BodyB BodyId
	Point        lin.V3
	Normal       lin.V3
	Depth        float64
}

// Raycast finds the nearest body struck by a ray starting at from and
// travelling in direction (need not be a unit vector). Returns ok=false
// if the ray hits nothing.
func (w *World) Raycast(from, direction *lin.V3) (hit RaycastHit, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	dir := &lin.V3{}
	dir.Set(direction)
	dir.Unit()

	bestDist := MaxNumber
	found := false
	for bid, b := range w.bodies {
		for _, bs := range b.shapes {
			shapeWorld := lin.NewT().Mult(b.world, bs.Local)
			var didHit bool
			var point *lin.V3
			var dist float64
			var normal *lin.V3
			switch s := bs.Shape.(type) {
			case *plane:
				n := worldPlaneNormal(s, shapeWorld)
				didHit, point, dist = castRayPlane(from, dir, n, shapeWorld.Loc)
				normal = n
			case *sphere:
				didHit, point, dist = castRaySphere(from, dir, shapeWorld.Loc, s.R)
				if didHit {
					normal = sub(point, shapeWorld.Loc)
					normal.Unit()
				}
			case *Convex:
				hull := PlaceIn(shapeWorld, s)
				didHit, point, dist, normal = castRayConvex(from, dir, hull)
			}
			if didHit && dist < bestDist {
				bestDist = dist
				found = true
				hit = RaycastHit{Body: BodyId(bid), Point: *point, Dist: dist}
				if normal != nil {
					hit.Normal = *normal
				}
			}
		}
	}
	return hit, found
}

func (w *World) String() string {
	return fmt.Sprintf("World{bodies=%d pairs=%d}", len(w.bodies), len(w.pairs))
}
