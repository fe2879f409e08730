// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"testing"

	"github.com/galvanized/rigid3d/math/lin"
)

// Check unique pair unique ids. Assign fixed body ids for an easy visual check.
func TestPairID(t *testing.T) {
	b0, b1 := newTestBody(NewSphere(1)), newTestBody(NewSphere(1))
	b0.bid, b1.bid = 1, 2
	con := newContactPair(b0, b1)
	pid0, pid1 := b0.pairID(b1), b1.pairID(b0)
	if pid0 != 0x100000002 || pid1 != 0x100000002 || con.pid != 0x100000002 {
		t.Error("Pair id's should be the same regardless of body order")
	}
}

// TestClosestPoint checks that a point matches itself in the manifold cache
// regardless of which index it ends up stored at.
func TestClosestPoint(t *testing.T) {
	b0, b1 := newTestBody(NewBox(0.5, 0.5, 0.5)), newTestBody(NewBox(1, 1, 1))
	b0.World().Loc.SetS(0, 0, 1.49)
	con := newContactPair(b0, b1)
	found := generateContacts(b0, b1)
	if len(found) < 3 {
		t.Fatalf("Expecting a multi-point face/face manifold, got %d points", len(found))
	}
	for _, poc := range found {
		poc.prepForSolver(con)
		con.pocs = append(con.pocs, poc)
	}
	for want, poc := range con.pocs {
		if got := con.closestPoint(poc); got != want {
			t.Errorf("Point at index %d should match itself, got %d", want, got)
		}
	}
}

// TestPrepForSolver checks a resting sphere/box contact produces a shallow
// penetration along the box's supporting axis.
func TestPrepForSolver(t *testing.T) {
	ball := newTestBody(NewSphere(1)).SetMaterial(1, 0).(*body)
	ball.World().Loc.SetS(-5, 0.99, -3)
	box := newTestBody(NewBox(50, 50, 50)).SetMaterial(0, 0).(*body)
	box.World().Loc.SetS(0, -50, 0)
	con := newContactPair(ball, box)
	con.pocs = generateContacts(ball, box)
	if len(con.pocs) != 1 {
		t.Fatalf("Should have a single contact point, got %d", len(con.pocs))
	}

	cp0 := con.pocs[0]
	cp0.prepForSolver(con)
	if cp0.sp.distance >= 0 || cp0.sp.distance < -0.1 {
		t.Errorf("Expecting a shallow penetration depth, got %f", cp0.sp.distance)
	}
	n := cp0.sp.normalWorldB
	if !lin.Aeq(math.Abs(n.Y), 1) || !lin.AeqZ(n.X) || !lin.AeqZ(n.Z) {
		t.Errorf("Expecting contact normal aligned with the box's up axis, got %s", dumpV3(n))
	}
	if !lin.Aeq(cp0.sp.combinedFriction, 0) {
		t.Errorf("Expecting combined friction 0, got %f", cp0.sp.combinedFriction)
	}
	if cp0.sp.combinedRestitution != 0 {
		t.Errorf("Expecting zero combined restitution, got %f", cp0.sp.combinedRestitution)
	}
}

func TestLargestArea(t *testing.T) {
	con := &contactPair{}
	con.v0, con.v1, con.v2 = lin.NewV3(), lin.NewV3(), lin.NewV3()

	// Existing points: essentially 14,0,+-1, 16,0,+-1
	manifold := newManifold()
	manifold[0].sp.localA.SetS(13.993946, 25.000000, -0.999210) // 14,0,-1
	manifold[1].sp.localA.SetS(14.006243, 25.000000, 0.979937)  // 14,0,1
	manifold[2].sp.localA.SetS(15.989870, 25.000000, 0.996212)  // 16,0,1
	manifold[3].sp.localA.SetS(15.993749, 25.000000, -0.999743) // 16,0,-1

	// new point A should replace existing point 0.
	ptA := newPoc()
	ptA.sp.localA.SetS(14.024626, 25.000000, -1.020002) // 14,0,-1
	if index := con.largestArea(manifold, ptA); index != 0 {
		t.Errorf("Wrong replacement ptA for best contact area %d", index)
	}

	// new point B should replace existing point 1.
	ptB := newPoc()
	ptB.sp.localA.SetS(14.008444, 25.000000, 0.979925) // 14,0,1
	if index := con.largestArea(manifold, ptB); index != 1 {
		t.Errorf("Wrong replacement ptB for best contact area %d", index)
	}
}
