// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// narrow.go turns a broad phase candidate pair into actual contact points.
// The dispatch covers every combination of the closed shape-type set
// {Plane, Sphere, Convex}.

// generateContacts returns the points of contact, if any, between the two
// given bodies. Every shape on bodyA is checked against every shape on
// bodyB; a compound body with several shapes produces contacts for every
// overlapping pair.
func generateContacts(bodyA, bodyB *body) []*pointOfContact {
	pocs := []*pointOfContact{}
	for _, sa := range bodyA.shapes {
		wa := lin.NewT().Mult(bodyA.world, sa.Local)
		for _, sb := range bodyB.shapes {
			wb := lin.NewT().Mult(bodyB.world, sb.Local)
			pocs = append(pocs, shapePairContacts(sa.Shape, wa, sb.Shape, wb)...)
		}
	}
	return pocs
}

// shapePairContacts dispatches on the shape-type pair. Where the
// underlying algorithm only handles one argument order, the arguments
// are swapped and the resulting contact normals flipped back so that
// every returned pointOfContact's normal still points from a toward b.
func shapePairContacts(sa Shape, wa *lin.T, sb Shape, wb *lin.T) []*pointOfContact {
	switch a := sa.(type) {
	case *plane:
		switch b := sb.(type) {
		case *sphere:
			return planeSphereContacts(a, wa, b, wb)
		case *Convex:
			return planeConvexContacts(a, wa, PlaceIn(wb, b))
		}
	case *sphere:
		switch b := sb.(type) {
		case *plane:
			return flipContacts(planeSphereContacts(b, wb, a, wa))
		case *sphere:
			return sphereSphereContacts(a, wa, b, wb)
		case *Convex:
			return flipContacts(convexSphereContacts(PlaceIn(wb, b), a, wa))
		}
	case *Convex:
		switch b := sb.(type) {
		case *plane:
			return flipContacts(planeConvexContacts(b, wb, PlaceIn(wa, a)))
		case *sphere:
			return convexSphereContacts(PlaceIn(wa, a), b, wb)
		case *Convex:
			return convexConvexContacts(PlaceIn(wa, a), PlaceIn(wb, b))
		}
	}
	return nil
}

// flipContacts swaps the roles of a and b in the given contacts: the
// contact point (previously on b) is reconstructed on the new b from
// point-normal*depth, and the normal is negated.
func flipContacts(pocs []*pointOfContact) []*pointOfContact {
	for _, poc := range pocs {
		newPoint := &lin.V3{}
		newPoint.Scale(poc.normal, -poc.depth)
		newPoint.Add(newPoint, poc.point)
		poc.point.Set(newPoint)
		poc.normal.Scale(poc.normal, -1)
	}
	return pocs
}

func newContactPoc(point, normal *lin.V3, depth float64) *pointOfContact {
	poc := newPoc()
	poc.point.Set(point)
	poc.normal.Set(normal)
	poc.depth = depth
	return poc
}

// planeSphereContacts treats plane as body A and sphere as body B.
func planeSphereContacts(p *plane, wp *lin.T, s *sphere, ws *lin.T) []*pointOfContact {
	normal := worldPlaneNormal(p, wp)
	toCenter := &lin.V3{X: ws.Loc.X - wp.Loc.X, Y: ws.Loc.Y - wp.Loc.Y, Z: ws.Loc.Z - wp.Loc.Z}
	dist := toCenter.Dot(normal) - s.R
	if dist >= 0 {
		return nil
	}
	point := &lin.V3{}
	point.Scale(normal, -s.R)
	point.Add(point, ws.Loc)
	return []*pointOfContact{newContactPoc(point, normal, dist)}
}

// sphereSphereContacts treats s1 as body A and s2 as body B.
func sphereSphereContacts(s1 *sphere, w1 *lin.T, s2 *sphere, w2 *lin.T) []*pointOfContact {
	diff := &lin.V3{X: w2.Loc.X - w1.Loc.X, Y: w2.Loc.Y - w1.Loc.Y, Z: w2.Loc.Z - w1.Loc.Z}
	dist := diff.Len()
	depth := dist - (s1.R + s2.R)
	if depth >= 0 {
		return nil
	}
	normal := &lin.V3{X: 0, Y: 0, Z: 1}
	if dist > Precision {
		normal.Scale(diff, 1.0/dist)
	}
	point := &lin.V3{}
	point.Scale(normal, -s2.R)
	point.Add(point, w2.Loc)
	return []*pointOfContact{newContactPoc(point, normal, depth)}
}

// convexSphereContacts treats hull (already placed in world space) as
// body A and the sphere as body B.
func convexSphereContacts(hull *Convex, s *sphere, ws *lin.T) []*pointOfContact {
	center := &lin.V3{}
	center.Set(ws.Loc)
	closest, separation := hull.closestPointTo(center)
	depth := separation - s.R
	if depth >= 0 {
		return nil
	}
	normal := sub(center, closest)
	if l := normal.Len(); l > Precision {
		normal.Scale(normal, 1.0/l)
	} else {
		normal.SetS(0, 0, 1)
	}
	point := &lin.V3{}
	point.Scale(normal, -s.R)
	point.Add(point, center)
	return []*pointOfContact{newContactPoc(point, normal, depth)}
}

// planeConvexContacts treats plane as body A and hull (already placed in
// world space) as body B, testing every hull vertex against the plane.
func planeConvexContacts(p *plane, wp *lin.T, hull *Convex) []*pointOfContact {
	normal := worldPlaneNormal(p, wp)
	pocs := []*pointOfContact{}
	for _, v := range hull.verts {
		diff := &lin.V3{X: v.X - wp.Loc.X, Y: v.Y - wp.Loc.Y, Z: v.Z - wp.Loc.Z}
		depth := diff.Dot(normal)
		if depth < 0 {
			pocs = append(pocs, newContactPoc(v, normal, depth))
		}
	}
	return pocs
}

func worldPlaneNormal(p *plane, wp *lin.T) *lin.V3 {
	n := &lin.V3{}
	rx, ry, rz := wp.AppR(p.nx, p.ny, p.nz)
	n.SetS(rx, ry, rz)
	return n.Unit()
}

// convexConvexContacts runs the separating axis search over both hulls'
// face normals and every pair of edges, then clips the reference/incident
// faces (or closest edge pair) at the chosen axis into a contact manifold.
// hullA and hullB must already be placed in world space.
func convexConvexContacts(hullA, hullB *Convex) []*pointOfContact {
	axis, overlap, found := findSeparatingAxis(hullA, hullB)
	if !found {
		return nil
	}

	// orient the axis from A toward B.
	toB := sub(hullB.com, hullA.com)
	if toB.Dot(axis) < 0 {
		axis = axis.Neg(axis)
	}

	clips := convex_convex_contact_manifold(hullA, hullB, axis)
	pocs := make([]*pointOfContact, 0, len(clips))
	for _, c := range clips {
		depth := c.depth
		if depth == 0 {
			depth = -overlap
		}
		pocs = append(pocs, newContactPoc(&c.pointB, &c.normal, depth))
	}
	return pocs
}

// findSeparatingAxis searches both hulls' unique face normals plus every
// pair of (hullA edge, hullB edge) cross products for the axis with the
// least positive overlap. Returns found=false the moment any axis shows
// separation (overlap <= 0).
func findSeparatingAxis(hullA, hullB *Convex) (axis *lin.V3, minOverlap float64, found bool) {
	minOverlap = math.MaxFloat64
	test := func(ax *lin.V3) bool {
		if ax.Len() < Precision {
			return true // degenerate axis (parallel edges), skip.
		}
		unit := &lin.V3{}
		unit.Set(ax)
		unit.Unit()
		aMin, aMax := projectHull(hullA, unit)
		bMin, bMax := projectHull(hullB, unit)
		overlap := math.Min(aMax, bMax) - math.Max(aMin, bMin)
		if overlap <= 0 {
			return false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			axis = unit
		}
		return true
	}
	for _, n := range hullA.normals {
		if !test(n) {
			return nil, 0, false
		}
	}
	for _, n := range hullB.normals {
		if !test(n) {
			return nil, 0, false
		}
	}
	for _, eA := range hullA.edges {
		dA := sub(eA.A, eA.B)
		for _, eB := range hullB.edges {
			dB := sub(eB.A, eB.B)
			cross := &lin.V3{}
			cross.Cross(dA, dB)
			if !test(cross) {
				return nil, 0, false
			}
		}
	}
	if axis == nil {
		return nil, 0, false
	}
	return axis, minOverlap, true
}

func projectHull(hull *Convex, axis *lin.V3) (min, max float64) {
	min, max = math.MaxFloat64, -math.MaxFloat64
	for _, v := range hull.verts {
		d := v.Dot(axis)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}
