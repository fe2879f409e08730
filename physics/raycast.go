// Copyright © 2014-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

// raycast.go contains ray casting logic. It is separate from full collision
// tracking and often used to answer the question "what is the user
// clicking on?".

import (
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// RaycastHit describes the nearest point where a ray struck a body.
type RaycastHit struct {
	Body   BodyId  // the body that was hit.
	Point  lin.V3  // world space point of contact.
	Normal lin.V3  // world space surface normal at the point of contact.
	Dist   float64 // distance from the ray origin to Point.
}

// castRayPlane calculates the point of collision between a ray, given by
// origin and unit direction dir, and an infinite plane with the given
// world space normal and a point loc known to lie on the plane.
// http://en.wikipedia.org/wiki/Line-plane_intersection
func castRayPlane(origin, dir, normal, loc *lin.V3) (hit bool, point *lin.V3, dist float64) {
	denom := dir.Dot(normal)
	if lin.AeqZ(denom) || denom < 0 {
		return false, nil, 0 // plane is behind ray or ray is parallel to plane.
	}
	diff := &lin.V3{X: loc.X - origin.X, Y: loc.Y - origin.Y, Z: loc.Z - origin.Z}
	dlen := diff.Dot(normal) / denom
	if dlen < 0 {
		return false, nil, 0
	}
	p := &lin.V3{X: dir.X*dlen + origin.X, Y: dir.Y*dlen + origin.Y, Z: dir.Z*dlen + origin.Z}
	return true, p, dlen
}

// castRaySphere calculates the nearest point of collision between a ray,
// given by origin and unit direction dir, and a sphere with the given
// world space center and radius.
// http://www.scratchapixel.com/lessons/3d-basic-lessons/lesson-7-intersecting-simple-shapes/ray-sphere-intersection/
func castRaySphere(origin, dir, center *lin.V3, radius float64) (hit bool, point *lin.V3, dist float64) {
	sc := &lin.V3{X: center.X - origin.X, Y: center.Y - origin.Y, Z: center.Z - origin.Z}
	d0 := dir.Dot(sc)
	if d0 < 0 {
		return false, nil, 0 // sphere is behind the ray.
	}
	radius2 := radius * radius
	d1 := sc.Dot(sc) - d0*d0
	if d1 > radius2 {
		return false, nil, 0 // ray misses the sphere.
	}
	dlen := d0 - math.Sqrt(radius2-d1)
	if dlen < 0 {
		return false, nil, 0
	}
	p := &lin.V3{X: dir.X*dlen + origin.X, Y: dir.Y*dlen + origin.Y, Z: dir.Z*dlen + origin.Z}
	return true, p, dlen
}

// castRayConvex intersects a ray against a convex hull given in world
// space by testing the ray against each face's supporting plane and
// keeping the entry point that lies within every face's half space
// (the standard slab-by-plane convex ray cast).
func castRayConvex(origin, dir *lin.V3, hull *Convex) (hit bool, point *lin.V3, dist float64, normal *lin.V3) {
	tNear, tFar := -math.MaxFloat64, math.MaxFloat64
	var nearNormal *lin.V3
	for i := range hull.faces {
		f := &hull.faces[i]
		denom := dir.Dot(f.Normal)
		toPlane := sub(f.Vertices[0], origin)
		dNum := toPlane.Dot(f.Normal)
		if lin.AeqZ(denom) {
			if dNum < 0 {
				return false, nil, 0, nil // ray origin outside this face's plane, parallel: no hit.
			}
			continue
		}
		t := dNum / denom
		if denom < 0 {
			if t > tNear {
				tNear, nearNormal = t, f.Normal
			}
		} else {
			if t < tFar {
				tFar = t
			}
		}
		if tNear > tFar {
			return false, nil, 0, nil
		}
	}
	if tNear < 0 {
		return false, nil, 0, nil // hull is behind the ray origin.
	}
	p := &lin.V3{X: origin.X + dir.X*tNear, Y: origin.Y + dir.Y*tNear, Z: origin.Z + dir.Z*tNear}
	return true, p, tNear, nearNormal
}
