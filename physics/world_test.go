// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/galvanized/rigid3d/math/lin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConvexSphereSingleContact checks a box/sphere pair that overlaps
// along the box's top face produces exactly one contact, with the
// normal and contact point both close to the box's +Z face.
func TestConvexSphereSingleContact(t *testing.T) {
	box := newTestBody(NewBox(1, 1, 1))
	sphere := newTestBody(NewSphere(5))
	sphere.World().Loc.SetS(0, 0, 5.9) // overlaps the box's top face by 0.1.

	pocs := generateContacts(box, sphere)
	require.Len(t, pocs, 1)

	poc := pocs[0]
	assert.InDelta(t, 0, poc.normal.X, 1e-6)
	assert.InDelta(t, 0, poc.normal.Y, 1e-6)
	assert.InDelta(t, 1, poc.normal.Z, 1e-6)
	assert.InDelta(t, -0.1, poc.depth, 1e-6)
	assert.InDelta(t, 0.9, poc.point.Z, 1e-6) // point on the sphere's surface nearest the box.
}

// TestHeadOnRestitutionReversesRelativeVelocity runs scenario 5: two
// unit spheres on a collision course with restitution 1 should have
// their relative velocity along the line of centers flip sign after
// one solver pass, not merely shrink toward zero.
func TestHeadOnRestitutionReversesRelativeVelocity(t *testing.T) {
	w := New(WithGravity(0, 0, 0))
	a := w.AddBody(&BodyBuilder{
		Mass: 1, Restitution: 1,
		Pose:        lin.NewT(),
		LinVelocity: lin.NewV3S(1, 0, 0),
		Shapes:      []BodyShape{{Local: lin.NewT(), Shape: NewSphere(1)}},
	})
	bPose := lin.NewT()
	bPose.Loc.SetS(1.5, 0, 0)
	b := w.AddBody(&BodyBuilder{
		Mass: 1, Restitution: 1,
		Pose:        bPose,
		LinVelocity: lin.NewV3S(-1, 0, 0),
		Shapes:      []BodyShape{{Local: lin.NewT(), Shape: NewSphere(1)}},
	})

	beforeA, _ := w.Body(a)
	beforeB, _ := w.Body(b)
	beforeRel := beforeB.LinVel.X - beforeA.LinVel.X
	require.Less(t, beforeRel, 0.0, "spheres should start on a collision course")

	w.Step(1.0 / 60.0)

	afterA, _ := w.Body(a)
	afterB, _ := w.Body(b)
	afterRel := afterB.LinVel.X - afterA.LinVel.X
	assert.Greater(t, afterRel, 0.0, "relative velocity should reverse sign after an elastic collision")
}

// TestZeroStepIsIdempotent checks the warm-start idempotence property: a
// resting body stepped with dt=0 must not move or change velocity.
func TestZeroStepIsIdempotent(t *testing.T) {
	w := New()
	id := w.AddBody(&BodyBuilder{
		Mass:     1,
		Friction: 0.5,
		Pose:     lin.NewT(),
		Shapes:   []BodyShape{{Local: lin.NewT(), Shape: NewSphere(1)}},
	})

	before, err := w.Body(id)
	require.NoError(t, err)

	w.Step(0)

	after, err := w.Body(id)
	require.NoError(t, err)
	assert.Equal(t, before.World.Loc.X, after.World.Loc.X)
	assert.Equal(t, before.World.Loc.Y, after.World.Loc.Y)
	assert.Equal(t, before.World.Loc.Z, after.World.Loc.Z)
	assert.Equal(t, before.LinVel.X, after.LinVel.X)
	assert.Equal(t, before.LinVel.Y, after.LinVel.Y)
	assert.Equal(t, before.LinVel.Z, after.LinVel.Z)
}

// TestRaycastHitsSphere checks scenario 6: a ray fired straight down the
// z axis at a unit sphere at the origin hits at distance 9 with an
// outward-pointing normal.
func TestRaycastHitsSphere(t *testing.T) {
	w := New()
	w.AddBody(&BodyBuilder{
		Mass:   1,
		Pose:   lin.NewT(),
		Shapes: []BodyShape{{Local: lin.NewT(), Shape: NewSphere(1)}},
	})

	from := lin.NewV3S(0, 0, 10)
	dir := lin.NewV3S(0, 0, -1)
	hit, ok := w.Raycast(from, dir)
	require.True(t, ok)
	assert.InDelta(t, 9, hit.Dist, 1e-6)
	assert.InDelta(t, 1, hit.Point.Z, 1e-6)
	assert.InDelta(t, 1, hit.Normal.Z, 1e-6)
}
