// Copyright © 2014-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/galvanized/rigid3d/math/lin"
)

func TestCastRayPlane(t *testing.T) {
	origin := &lin.V3{X: 0, Y: 0, Z: 0}
	dir := &lin.V3{X: 0, Y: 0.70710678, Z: 0.70710678}
	normal := &lin.V3{X: 0, Y: 0, Z: 1}
	loc := &lin.V3{X: 0, Y: 0, Z: 20}
	hit, p, _ := castRayPlane(origin, dir, normal, loc)
	cx, cy, cz := 0.0, 20.0, 20.0
	if !hit || !lin.Aeq(p.X, cx) || !lin.Aeq(p.Y, cy) || !lin.Aeq(p.Z, cz) {
		t.Errorf("%t expected ray-plane hit at %f %f %f, got %v", hit, cx, cy, cz, p)
	}
}

func TestCastRotatedRayPlane(t *testing.T) {
	origin := &lin.V3{X: 0, Y: 0, Z: 20}
	dir := &lin.V3{X: 0, Y: 0.70710678, Z: -0.70710678}
	normal := &lin.V3{X: 0, Y: 0, Z: -1}
	loc := &lin.V3{X: 0, Y: 0, Z: 0}
	hit, p, _ := castRayPlane(origin, dir, normal, loc)
	cx, cy, cz := 0.0, 20.0, 0.0
	if !hit || !lin.Aeq(p.X, cx) || !lin.Aeq(p.Y, cy) || !lin.Aeq(p.Z, cz) {
		t.Errorf("%t expected ray-plane hit at %f %f %f, got %v", hit, cx, cy, cz, p)
	}
}

func TestCastRaySphere(t *testing.T) {
	origin := &lin.V3{X: 0, Y: 0, Z: 0}
	dir := &lin.V3{X: 0.57735027, Y: 0.57735027, Z: 0.57735027}
	center := &lin.V3{X: 20, Y: 20, Z: 20}
	hit, p, _ := castRaySphere(origin, dir, center, 1)
	cx, cy, cz := 19.4226497, 19.4226497, 19.4226497
	if !hit || !lin.Aeq(p.X, cx) || !lin.Aeq(p.Y, cy) || !lin.Aeq(p.Z, cz) {
		t.Errorf("%t expected ray-sphere hit at %2.7f %2.7f %2.7f, got %v", hit, cx, cy, cz, p)
	}
}

func TestCastRotatedRaySphere(t *testing.T) {
	origin := &lin.V3{X: 0, Y: 0, Z: 20}
	dir := &lin.V3{X: 0, Y: 0.70710678, Z: -0.70710678}
	center := &lin.V3{X: 0, Y: 20, Z: 0}
	hit, p, _ := castRaySphere(origin, dir, center, 1)
	cx, cy, cz := 0.0, 19.2928932, 0.7071068
	if !hit || !lin.Aeq(p.X, cx) || !lin.Aeq(p.Y, cy) || !lin.Aeq(p.Z, cz) {
		t.Errorf("%t expected ray-sphere hit at %2.7f %2.7f %2.7f, got %v", hit, cx, cy, cz, p)
	}
}

func TestCastRayConvexBox(t *testing.T) {
	hull := FromBlock(1, 1, 1)
	origin := &lin.V3{X: -5, Y: 0, Z: 0}
	dir := &lin.V3{X: 1, Y: 0, Z: 0}
	hit, p, dist, _ := castRayConvex(origin, dir, hull)
	if !hit || !lin.Aeq(dist, 4) || !lin.Aeq(p.X, -1) {
		t.Errorf("expected hit at x=-1 dist=4, got hit=%t p=%v dist=%f", hit, p, dist)
	}
}
