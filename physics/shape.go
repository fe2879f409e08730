// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// Shape is a physics collision primitive generally used 3D model collision
// detection. A Shape is always in local space centered at the origin.
// Combine a shape with a transform to position the shape anywhere in world space.
// Shapes do not allocate memory. They expect to be given the necessary
// structures when doing calculations like filling in bounding boxes.
type Shape interface {
	Type() int       // Type returns the shape type.
	Volume() float64 // Volume is useful for mass = density*volume.

	// Aabb updates ab to be the axis aligned bounding box for this shape.
	// The updated Abox ab will be in the space defined by the transform.
	//    ab     : Output structure. Providing a nil Abox will cause a panic.
	//    margin : Optional small positive value that increases the size
	//             of the surrounding box. Use 0 for no margin.
	// The updated Abox ab is returned, or nil for shapes with no volume.
	Aabb(transform *lin.T, ab *Abox, margin float64) *Abox

	// Inertia is needed by collision resolution.
	//    mass   : can be set directly or as density*Volume()
	// The input matrix, inertia, is updated and returned with the full
	// symmetric inertia tensor about the shape's own center of mass, or
	// nil for shapes with no mass.
	Inertia(mass float64, inertia *lin.M3) *lin.M3
}

// Enumerate the shapes handled by physics and returned by Shape.Type().
// This set is intentionally closed: every collision shape reduces to one
// of a plane, a sphere, or a convex hull. Boxes and cylinders are built
// as convex hulls by FromBlock/FromCylinder rather than being distinct
// primitive types.
const (
	SphereShape  = iota // Considered convex (curving outwards).
	ConvexShape         // Polyhedral (flat faces, straight edges).
	VolumeShapes        // Separates shapes with volume from those without.
	PlaneShape          // Area, no volume or mass.
	NumShapes           // Keep this last.
)

// Shape interface
// ============================================================================
// sphere shape

// sphere is a collision shape primitive that is defined by a radius around
// the origin.
type sphere struct {
	R float64
}

// NewSphere creates a Sphere shape. Negative radius values are turned positive.
// Input values of zero are ignored, but not recommended.
func NewSphere(radius float64) Shape { return &sphere{math.Abs(radius)} }

// Implements Shape.Type
func (s *sphere) Type() int { return SphereShape }

// Implements Shape.Aabb
func (s *sphere) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	sides := s.R + margin
	ab.Sx, ab.Sy, ab.Sz = t.Loc.X-sides, t.Loc.Y-sides, t.Loc.Z-sides
	ab.Lx, ab.Ly, ab.Lz = t.Loc.X+sides, t.Loc.Y+sides, t.Loc.Z+sides
	return ab
}

// Implements Shape.Volume
func (s *sphere) Volume() float64 { return 4.0 / 3.0 * math.Pi * s.R * s.R * s.R }

// Implements Shape.Inertia. A sphere's inertia is isotropic: every axis
// through its center of mass is a principal axis, so the tensor is
// diagonal regardless of orientation.
func (s *sphere) Inertia(mass float64, inertia *lin.M3) *lin.M3 {
	elem := 0.4 * mass * s.R * s.R
	inertia.SetS(
		elem, 0, 0,
		0, elem, 0,
		0, 0, elem)
	return inertia
}

// sphere
// ============================================================================
// box convenience constructor

// NewBox creates a Convex hull shaped like an axis aligned box with the
// given half-lengths. Negative input values are turned positive. Input
// values of zero are ignored, but not recommended.
func NewBox(hx, hy, hz float64) Shape { return FromBlock(hx, hy, hz) }

// ============================================================================
// Abox

// Abox is an axis aligned bounding box used with the Shape interface.
// Its primary purpose is to surround arbitrary shapes during broad phase
// collision detection. Abox is not a primitive shape for collision - use
// NewBox instead. Vertices for the full axis aligned box are:
//
//	Sx, Sy, Sz -- smallest vertex (left, bottom, back = minimum point)
//	Sx, Sy, Lz |
//	Sx, Ly, Sz |
//	Sx, Ly, Lz |- generate if necessary.
//	Lx, Sy, Sz |
//	Lx, Sy, Lz |
//	Lx, Ly, Sz |
//	Lx, Ly, Lz -- largest vertex (right, top, front = maximum point)
type Abox struct {
	Sx, Sy, Sz float64 // Smallest point.
	Lx, Ly, Lz float64 // Largest point.
}

// Overlaps returns true if Abox a and b are intersecting. Returns false
// if Abox a and b are not intersecting or are just touching along one or
// more points, edges, or faces.
func (a *Abox) Overlaps(b *Abox) bool {
	return a.Lx > b.Sx && a.Sx < b.Lx && a.Ly > b.Sy && a.Sy < b.Ly && a.Lz > b.Sz && a.Sz < b.Lz
}

// Abox
// ============================================================================
// plane

// plane describes an infinite flat 2D area with the origin as the defining
// point on the plane.
type plane struct {
	nx, ny, nz float64 // plane normal.
}

// NewPlane creates a plane shape using the given plane normal x, y, z.
func NewPlane(x, y, z float64) Shape { return &plane{x, y, z} }

// SetPlane allows a plane's normal to be changed. Body b is expected
// to be a plane created from NewPlane() with a single shape.
func SetPlane(b Body, x, y, z float64) {
	p := b.Shapes()[0].Shape.(*plane)
	p.nx, p.ny, p.nz = x, y, z
}

// Plane is not a full physics shape having no volume, mass or bounding box.
func (p *plane) Type() int                                { return PlaneShape }
func (p *plane) Aabb(t *lin.T, ab *Abox, m float64) *Abox { return nil }
func (p *plane) Volume() float64                          { return 0 }
func (p *plane) Inertia(m float64, i *lin.M3) *lin.M3     { return nil }
