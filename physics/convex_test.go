// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"testing"

	"github.com/galvanized/rigid3d/math/lin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnitCubeMassProperties pins down FromBlock against the same
// quantities an independent triangle-mesh decomposition must agree on:
// volume, the three deduplicated axis normals, and the diagonal inertia
// of a solid cube.
func TestUnitCubeMassProperties(t *testing.T) {
	cube := FromBlock(1, 1, 1)
	require.Equal(t, 8.0, cube.Volume())

	normals := cube.Normals()
	assert.Len(t, normals, 3, "opposite face normals should collapse to one axis each")
	for _, n := range normals {
		axes := 0
		if !lin.AeqZ(n.X) {
			axes++
		}
		if !lin.AeqZ(n.Y) {
			axes++
		}
		if !lin.AeqZ(n.Z) {
			axes++
		}
		assert.Equal(t, 1, axes, "a cube face normal should be axis-aligned, got %v", n)
	}

	var inertia lin.M3
	cube.Inertia(cube.Volume(), &inertia)
	want := 8.0 / 12.0 * (4 + 4)
	assert.InDelta(t, want, inertia.Xx, 1e-6)
	assert.InDelta(t, want, inertia.Yy, 1e-6)
	assert.InDelta(t, want, inertia.Zz, 1e-6)
	assert.InDelta(t, 0, inertia.Xy, 1e-9, "a cube's own axes are its principal axes")
	assert.InDelta(t, 0, inertia.Xz, 1e-9)
	assert.InDelta(t, 0, inertia.Yz, 1e-9)
}

// TestCubeFacesArePlanarAndOutward checks the §8 face invariants: every
// vertex of a face lies on that face's plane, and the normal points away
// from the hull's own center of mass.
func TestCubeFacesArePlanarAndOutward(t *testing.T) {
	cube := FromBlock(2, 3, 1)
	for _, f := range cube.Faces() {
		for _, v := range f.Vertices {
			d := sub(v, f.Vertices[0]).Dot(f.Normal)
			assert.InDelta(t, 0, d, 1e-6, "face vertex should lie on its own plane")
		}
		toVertex := sub(f.Vertices[0], &lin.V3{})
		assert.Greater(t, toVertex.Dot(f.Normal), 0.0, "normal should point outward from the centered hull")
	}
}

// squarePyramid builds a 5-vertex pyramid: a unit square base in the z=0
// plane and an apex above its center, as a fixture for the merge/topology
// pipeline independent of the box/cylinder analytic constructors.
func squarePyramid(height float64) (*Convex, error) {
	verts := []*lin.V3{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: -1, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: height},
	}
	tris := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // base, wound so the normal faces -z
		{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}, // four lateral faces
	}
	return FromTriangularMesh(verts, tris)
}

// TestSquarePyramidTopology checks that the two base triangles merge into
// a single quad face (since they're coplanar) while the four lateral
// triangles stay distinct, matching the pack's flood-fill merge contract.
func TestSquarePyramidTopology(t *testing.T) {
	pyramid, err := squarePyramid(3)
	require.NoError(t, err)

	wantVolume := (1.0 / 3.0) * 4.0 * 3.0 // (1/3) * base area * height
	assert.InDelta(t, wantVolume, pyramid.Volume(), 1e-9)

	assert.Len(t, pyramid.Faces(), 5, "merged base + 4 lateral faces")
	assert.Len(t, pyramid.Normals(), 5, "no two of this pyramid's face normals are parallel")

	for _, f := range pyramid.Faces() {
		if len(f.Vertices) == 4 {
			assert.InDelta(t, 0, f.Normal.Z+1, 1e-6, "merged base face should face -z")
		}
	}
}

// TestExtendContourMergesCoplanarTriangles exercises the flood-fill merge
// this package's buildFace/extendContour pipeline performs directly: two
// triangles from the same mesh sharing an edge and a normal merge into
// one quad face whose boundary loop visits all four distinct vertices.
func TestExtendContourMergesCoplanarTriangles(t *testing.T) {
	verts := []*lin.V3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
	}
	tris := [][3]int{{0, 1, 2}, {0, 2, 3}}
	adjacency := buildTriAdjacency(tris)
	visited := make([]bool, len(tris))

	group := extendContour(0, tris, adjacency, visited, verts)
	assert.ElementsMatch(t, []int{0, 1}, group, "both triangles share a plane and an edge")

	face := buildFace(group, tris, verts)
	assert.Len(t, face.Vertices, 4, "the merged boundary loop should visit every distinct vertex once")
}

// TestPlaceInPreservesVolumeAndRotatesInertia checks the §8 invariant
// that PlaceIn never changes volume, and rotates inertia by R I R^T
// rather than leaving it in the hull's local frame. The transform below
// is deliberately oblique (not a multiple of 90 degrees about a coordinate
// axis): for a non-cubic box, any axis-permuting rotation would only
// shuffle the diagonal and could pass even if PlaceIn dropped the
// off-diagonal terms entirely.
func TestPlaceInPreservesVolumeAndRotatesInertia(t *testing.T) {
	cube := FromBlock(1, 2, 3)

	xf := lin.NewT()
	xf.Rot.SetAa(1, 1, 1, math.Pi/5)
	xf.Loc.SetS(5, -2, 0)

	placed := PlaceIn(xf, cube)
	assert.InDelta(t, cube.Volume(), placed.Volume(), 1e-9)

	wantCom := &lin.V3{}
	wantCom.Set(cube.com)
	xf.App(wantCom)
	assert.InDelta(t, wantCom.X, placed.com.X, 1e-6)
	assert.InDelta(t, wantCom.Y, placed.com.Y, 1e-6)
	assert.InDelta(t, wantCom.Z, placed.com.Z, 1e-6)

	var localInertia, gotInertia lin.M3
	cube.Inertia(cube.Volume(), &localInertia)
	placed.Inertia(placed.Volume(), &gotInertia)

	rot := lin.NewM3().SetQ(xf.Rot)
	wantInertia := lin.NewM3().Conjugate(rot, &localInertia)

	assert.InDelta(t, wantInertia.Xx, gotInertia.Xx, 1e-6)
	assert.InDelta(t, wantInertia.Yy, gotInertia.Yy, 1e-6)
	assert.InDelta(t, wantInertia.Zz, gotInertia.Zz, 1e-6)
	assert.InDelta(t, wantInertia.Xy, gotInertia.Xy, 1e-6)
	assert.InDelta(t, wantInertia.Xz, gotInertia.Xz, 1e-6)
	assert.InDelta(t, wantInertia.Yz, gotInertia.Yz, 1e-6)

	// guard against a vacuous pass: an oblique rotation of a non-cubic box
	// must actually introduce off-diagonal coupling, or this test could
	// never have caught a PlaceIn that silently truncates to the diagonal.
	assert.Greater(t, math.Abs(gotInertia.Xy)+math.Abs(gotInertia.Xz)+math.Abs(gotInertia.Yz), 1e-3)
}
