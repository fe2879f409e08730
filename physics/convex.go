// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"log/slog"
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// Face is one planar polygon of a Convex hull, wound counter-clockwise
// when viewed from outside the hull along -normal.
type Face struct {
	Vertices []*lin.V3 // hull vertices making up this face, ccw wound.
	Normal   *lin.V3   // outward unit normal.
}

// edge identifies an undirected hull edge by its two endpoint indices,
// smaller index first, for deduplication purposes.
type edge struct{ a, b int }

// Convex is a collision shape primitive built from an arbitrary closed
// triangle mesh, reduced to a minimal set of planar faces. Vertices,
// faces, edges and normals are all stored in the hull's own local space,
// already recentered so the origin is the hull's center of mass.
type Convex struct {
	verts   []*lin.V3  // hull vertices, local space, centered at center of mass.
	faces   []Face     // merged planar faces.
	edges   []hullEdge // deduplicated edges, one per unique hull edge.
	normals []*lin.V3  // deduplicated unique face normals, for SAT axis search.

	// topology, built once, used by narrow phase clipping to walk the
	// hull's feature adjacency the same way a half-edge structure would.
	vertexFaces     map[*lin.V3][]int        // vertex -> face indices touching it.
	vertexNeighbors map[*lin.V3][]*lin.V3    // vertex -> adjacent hull vertices.
	faceNeighbors   [][]int                   // face idx -> neighboring face indices.

	volume float64
	com    *lin.V3 // center of mass, in the original (pre-recenter) mesh space.
	ibody  *lin.M3 // full symmetric inertia tensor about the hull's own center of mass, unit density, hull-local axes.
}

// Implements Shape.Type
func (c *Convex) Type() int { return ConvexShape }

// Implements Shape.Volume
func (c *Convex) Volume() float64 { return c.volume }

// Implements Shape.Aabb
func (c *Convex) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	ab.Sx, ab.Sy, ab.Sz = MaxNumber, MaxNumber, MaxNumber
	ab.Lx, ab.Ly, ab.Lz = -MaxNumber, -MaxNumber, -MaxNumber
	wp := &lin.V3{}
	for _, v := range c.verts {
		wp.Set(v)
		t.App(wp)
		ab.Sx, ab.Sy, ab.Sz = math.Min(ab.Sx, wp.X), math.Min(ab.Sy, wp.Y), math.Min(ab.Sz, wp.Z)
		ab.Lx, ab.Ly, ab.Lz = math.Max(ab.Lx, wp.X), math.Max(ab.Ly, wp.Y), math.Max(ab.Lz, wp.Z)
	}
	ab.Sx, ab.Sy, ab.Sz = ab.Sx-margin, ab.Sy-margin, ab.Sz-margin
	ab.Lx, ab.Ly, ab.Lz = ab.Lx+margin, ab.Ly+margin, ab.Lz+margin
	return ab
}

// Implements Shape.Inertia. The hull's own inertia was computed once,
// about its center of mass, at unit density; scale it by mass/volume here.
func (c *Convex) Inertia(mass float64, inertia *lin.M3) *lin.M3 {
	if c.volume <= 0 {
		return inertia.SetS(0, 0, 0, 0, 0, 0, 0, 0, 0)
	}
	density := mass / c.volume
	return inertia.Set(c.ibody).Scale(density)
}

// Faces returns the hull's planar faces, local space.
func (c *Convex) Faces() []Face { return c.faces }

// Vertices returns the hull's vertices, local space.
func (c *Convex) Vertices() []*lin.V3 { return c.verts }

// Normals returns the deduplicated set of unique face normals. Face
// normals that are near-parallel collapse to a single entry; this keeps
// the separating axis search in narrow.go from testing duplicate axes.
func (c *Convex) Normals() []*lin.V3 { return c.normals }

// FromBlock builds a Convex box hull with the given half extents,
// centered at the origin.
func FromBlock(hx, hy, hz float64) *Convex {
	hx, hy, hz = math.Abs(hx), math.Abs(hy), math.Abs(hz)
	v := [8]*lin.V3{
		{X: -hx, Y: -hy, Z: -hz}, {X: hx, Y: -hy, Z: -hz},
		{X: hx, Y: hy, Z: -hz}, {X: -hx, Y: hy, Z: -hz},
		{X: -hx, Y: -hy, Z: hz}, {X: hx, Y: -hy, Z: hz},
		{X: hx, Y: hy, Z: hz}, {X: -hx, Y: hy, Z: hz},
	}
	tris := [][3]int{
		{0, 2, 1}, {0, 3, 2}, // -z
		{4, 5, 6}, {4, 6, 7}, // +z
		{0, 1, 5}, {0, 5, 4}, // -y
		{2, 3, 7}, {2, 7, 6}, // +y
		{0, 4, 7}, {0, 7, 3}, // -x
		{1, 2, 6}, {1, 6, 5}, // +x
	}
	hull, err := FromTriangularMesh(v[:], tris)
	if err != nil {
		slog.Error("degenerate block hull", "err", err)
		return &Convex{volume: 0, com: &lin.V3{}, ibody: &lin.M3{}}
	}
	return hull
}

// FromCylinder builds a convex approximation of a cylinder standing along
// the z axis, using the given number of radial subdivisions.
func FromCylinder(subdivisions int, radius, length float64) *Convex {
	if subdivisions < 3 {
		subdivisions = 3
	}
	hz := length * 0.5
	verts := make([]*lin.V3, 0, subdivisions*2)
	for i := 0; i < subdivisions; i++ {
		ang := 2 * math.Pi * float64(i) / float64(subdivisions)
		x, y := radius*math.Cos(ang), radius*math.Sin(ang)
		verts = append(verts, &lin.V3{X: x, Y: y, Z: -hz})
	}
	for i := 0; i < subdivisions; i++ {
		ang := 2 * math.Pi * float64(i) / float64(subdivisions)
		x, y := radius*math.Cos(ang), radius*math.Sin(ang)
		verts = append(verts, &lin.V3{X: x, Y: y, Z: hz})
	}
	top := subdivisions
	tris := make([][3]int, 0, subdivisions*4)
	// bottom fan
	for i := 1; i < subdivisions-1; i++ {
		tris = append(tris, [3]int{0, i + 1, i})
	}
	// top fan
	for i := 1; i < subdivisions-1; i++ {
		tris = append(tris, [3]int{top, top + i, top + i + 1})
	}
	// side quads, two triangles each
	for i := 0; i < subdivisions; i++ {
		n := (i + 1) % subdivisions
		b0, b1 := i, n
		t0, t1 := subdivisions+i, subdivisions+n
		tris = append(tris, [3]int{b0, b1, t1})
		tris = append(tris, [3]int{b0, t1, t0})
	}

	hull, err := FromTriangularMesh(verts, tris)
	if err != nil {
		slog.Error("degenerate cylinder hull", "err", err)
		return &Convex{volume: 0, com: &lin.V3{}, ibody: &lin.M3{}}
	}
	return hull
}

// FromTriangularMesh builds a Convex hull from a closed triangle mesh:
// a vertex pool and a list of (a, b, c) index triples, ccw wound as seen
// from outside. Coplanar adjoining triangles are merged into single
// polygonal faces via extendContour. Mass properties (volume, center of
// mass, inertia about the center of mass) are computed once by signed
// tetrahedron decomposition against the origin.
//
// Returns ErrDegenerateGeometry if the mesh resolves to zero or negative
// volume.
func FromTriangularMesh(verts []*lin.V3, tris [][3]int) (*Convex, error) {
	volume, com, ibodyOrigin := tetrahedronMassProperties(verts, tris)
	if volume <= Precision {
		return nil, ErrDegenerateGeometry
	}

	// recenter vertices about the computed center of mass, then apply the
	// parallel axis theorem to move the inertia tensor from the origin to
	// the center of mass: I_com = I_origin - I_point(m, com). Subtraction,
	// not addition: the origin is always farther from any mass element
	// than the center of mass is, so I_origin over-counts by I_point.
	// Off-diagonal (product of inertia) terms carry the opposite sign in
	// the shift, since I_point's off-diagonal entries have no δij to cancel.
	recentered := make([]*lin.V3, len(verts))
	for i, v := range verts {
		recentered[i] = &lin.V3{X: v.X - com.X, Y: v.Y - com.Y, Z: v.Z - com.Z}
	}
	d2 := com.X*com.X + com.Y*com.Y + com.Z*com.Z
	ibody := lin.NewM3().Set(ibodyOrigin)
	ibody.Xx -= volume * (d2 - com.X*com.X)
	ibody.Yy -= volume * (d2 - com.Y*com.Y)
	ibody.Zz -= volume * (d2 - com.Z*com.Z)
	ibody.Xy += volume * com.X * com.Y
	ibody.Xz += volume * com.X * com.Z
	ibody.Yz += volume * com.Y * com.Z
	ibody.Yx, ibody.Zx, ibody.Zy = ibody.Xy, ibody.Xz, ibody.Yz

	faces := mergeCoplanarFaces(recentered, tris)
	normals := uniqueNormals(faces)
	vertexFaces, vertexNeighbors, faceNeighbors := buildTopology(faces)
	edges := uniqueEdgesFromTopology(vertexNeighbors)

	return &Convex{
		verts:           recentered,
		faces:           faces,
		edges:           edges,
		normals:         normals,
		vertexFaces:     vertexFaces,
		vertexNeighbors: vertexNeighbors,
		faceNeighbors:   faceNeighbors,
		volume:          volume,
		com:             com,
		ibody:           ibody,
	}, nil
}

// buildTopology derives vertex-to-face, vertex-to-neighbor and
// face-to-neighbor adjacency directly from the merged polygon faces,
// walking each face's boundary loop rather than the original (now
// discarded) triangle adjacency.
func buildTopology(faces []Face) (vertexFaces map[*lin.V3][]int, vertexNeighbors map[*lin.V3][]*lin.V3, faceNeighbors [][]int) {
	vertexFaces = map[*lin.V3][]int{}
	vertexNeighbors = map[*lin.V3][]*lin.V3{}
	edgeOwner := map[[2]*lin.V3]int{} // directed edge -> face index that owns it.

	for fi, f := range faces {
		n := len(f.Vertices)
		for i := 0; i < n; i++ {
			v := f.Vertices[i]
			nextV := f.Vertices[(i+1)%n]
			vertexFaces[v] = appendUnique(vertexFaces[v], fi)
			vertexNeighbors[v] = appendUniqueV(vertexNeighbors[v], nextV)
			vertexNeighbors[nextV] = appendUniqueV(vertexNeighbors[nextV], v)
			edgeOwner[[2]*lin.V3{v, nextV}] = fi
		}
	}

	faceNeighbors = make([][]int, len(faces))
	for fi, f := range faces {
		n := len(f.Vertices)
		neighbors := make([]int, 0, n)
		for i := 0; i < n; i++ {
			v := f.Vertices[i]
			nextV := f.Vertices[(i+1)%n]
			if owner, ok := edgeOwner[[2]*lin.V3{nextV, v}]; ok && owner != fi {
				neighbors = append(neighbors, owner)
			}
		}
		faceNeighbors[fi] = neighbors
	}
	return vertexFaces, vertexNeighbors, faceNeighbors
}

func appendUnique(s []int, v int) []int {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

func appendUniqueV(s []*lin.V3, v *lin.V3) []*lin.V3 {
	for _, e := range s {
		if e == v {
			return s
		}
	}
	return append(s, v)
}

// tetrahedronMassProperties decomposes the mesh into signed tetrahedra,
// each spanning the origin and one triangle, and accumulates volume,
// first moment (for the center of mass) and the full second moment
// (inertia tensor about the origin) at unit density.
func tetrahedronMassProperties(verts []*lin.V3, tris [][3]int) (volume float64, com *lin.V3, inertiaOrigin *lin.M3) {
	com = &lin.V3{}
	inertiaOrigin = &lin.M3{}
	var moment lin.V3
	var ixx, iyy, izz, ixy, ixz, iyz float64
	for _, tri := range tris {
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]

		// signed volume of the tetrahedron (origin, a, b, c).
		cross := &lin.V3{}
		cross.Cross(b, c)
		vol6 := a.Dot(cross)
		vol := vol6 / 6.0
		volume += vol

		cx := (a.X + b.X + c.X) / 4.0
		cy := (a.Y + b.Y + c.Y) / 4.0
		cz := (a.Z + b.Z + c.Z) / 4.0
		moment.X += vol * cx
		moment.Y += vol * cy
		moment.Z += vol * cz

		ixx += vol6 * tetInertiaTerm(a.Y, b.Y, c.Y, a.Z, b.Z, c.Z)
		iyy += vol6 * tetInertiaTerm(a.X, b.X, c.X, a.Z, b.Z, c.Z)
		izz += vol6 * tetInertiaTerm(a.X, b.X, c.X, a.Y, b.Y, c.Y)
		ixy += vol6 * tetProductTerm(a.X, b.X, c.X, a.Y, b.Y, c.Y)
		ixz += vol6 * tetProductTerm(a.X, b.X, c.X, a.Z, b.Z, c.Z)
		iyz += vol6 * tetProductTerm(a.Y, b.Y, c.Y, a.Z, b.Z, c.Z)
	}
	if volume > Precision {
		com.X, com.Y, com.Z = moment.X/volume, moment.Y/volume, moment.Z/volume
	}

	// ∫x²dV over a tetrahedron with one vertex at the origin is
	// (vol6/60)*bracket; ∫xydV is (vol6/120)*productBracket. Both follow
	// from the Dirichlet integral over the tetrahedron's barycentric
	// parameter domain. Products of inertia carry the usual minus sign.
	inertiaOrigin.Xx, inertiaOrigin.Yy, inertiaOrigin.Zz = ixx/60.0, iyy/60.0, izz/60.0
	inertiaOrigin.Xy, inertiaOrigin.Yx = -ixy/120.0, -ixy/120.0
	inertiaOrigin.Xz, inertiaOrigin.Zx = -ixz/120.0, -ixz/120.0
	inertiaOrigin.Yz, inertiaOrigin.Zy = -iyz/120.0, -iyz/120.0
	return volume, com, inertiaOrigin
}

// tetInertiaTerm computes the covariance-like sum used by the standard
// polyhedral inertia formula for a tetrahedron spanned by the origin and
// three points, combining the two axes not being measured about.
func tetInertiaTerm(u0, u1, u2, v0, v1, v2 float64) float64 {
	return u0*u0 + u1*u1 + u2*u2 + u0*u1 + u1*u2 + u0*u2 +
		v0*v0 + v1*v1 + v2*v2 + v0*v1 + v1*v2 + v0*v2
}

// tetProductTerm computes the same family of sum used for a tetrahedron's
// product of inertia: one coordinate triple from each of two axes, with
// the self-vertex products weighted twice relative to the cross-vertex
// products.
func tetProductTerm(u0, u1, u2, v0, v1, v2 float64) float64 {
	return 2*(u0*v0+u1*v1+u2*v2) + u0*v1 + u1*v0 + u0*v2 + u2*v0 + u1*v2 + u2*v1
}

// mergeCoplanarFaces flood-fills adjoining triangles sharing a plane into
// single polygonal faces via extendContour, then discards the interior
// edges shared by merged triangles.
func mergeCoplanarFaces(verts []*lin.V3, tris [][3]int) []Face {
	visited := make([]bool, len(tris))
	adjacency := buildTriAdjacency(tris)
	faces := make([]Face, 0, len(tris))

	for seed := range tris {
		if visited[seed] {
			continue
		}
		group := extendContour(seed, tris, adjacency, visited, verts)
		faces = append(faces, buildFace(group, tris, verts))
	}
	return faces
}

// buildTriAdjacency maps each undirected edge to the triangles sharing it.
func buildTriAdjacency(tris [][3]int) map[edge][]int {
	adj := make(map[edge][]int, len(tris)*3)
	for ti, tri := range tris {
		es := [3]edge{
			normEdge(tri[0], tri[1]),
			normEdge(tri[1], tri[2]),
			normEdge(tri[2], tri[0]),
		}
		for _, e := range es {
			adj[e] = append(adj[e], ti)
		}
	}
	return adj
}

func normEdge(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// extendContour flood-fills outward from the seed triangle, absorbing
// every adjacent triangle whose normal is parallel to the seed's, and
// returns the set of triangle indices belonging to the merged face.
func extendContour(seed int, tris [][3]int, adjacency map[edge][]int, visited []bool, verts []*lin.V3) []int {
	normal := triNormal(tris[seed], verts)
	group := []int{seed}
	visited[seed] = true
	queue := []int{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		tri := tris[cur]
		es := [3]edge{normEdge(tri[0], tri[1]), normEdge(tri[1], tri[2]), normEdge(tri[2], tri[0])}
		for _, e := range es {
			for _, nb := range adjacency[e] {
				if visited[nb] {
					continue
				}
				if !normal.Aeq(triNormal(tris[nb], verts)) {
					continue
				}
				visited[nb] = true
				group = append(group, nb)
				queue = append(queue, nb)
			}
		}
	}
	return group
}

func triNormal(tri [3]int, verts []*lin.V3) *lin.V3 {
	a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
	ab, ac := &lin.V3{}, &lin.V3{}
	ab.Sub(b, a)
	ac.Sub(c, a)
	n := &lin.V3{}
	n.Cross(ab, ac)
	return n.Unit()
}

// buildFace walks the boundary edges of a merged triangle group (any edge
// used by exactly one triangle in the group) and orders them into a
// single ccw polygon loop.
func buildFace(group []int, tris [][3]int, verts []*lin.V3) Face {
	count := map[edge]int{}
	dir := map[edge][2]int{} // remembers one winding direction seen for the edge
	for _, ti := range group {
		tri := tris[ti]
		pairs := [3][2]int{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[2], tri[0]}}
		for _, p := range pairs {
			e := normEdge(p[0], p[1])
			count[e]++
			dir[e] = [2]int{p[0], p[1]}
		}
	}
	next := map[int]int{}
	for e, c := range count {
		if c != 1 {
			continue
		}
		from, to := dir[e][0], dir[e][1]
		next[from] = to
	}
	normal := triNormal(tris[group[0]], verts)
	if len(next) == 0 {
		// degenerate single closed triangle fallback.
		tri := tris[group[0]]
		return Face{Vertices: []*lin.V3{verts[tri[0]], verts[tri[1]], verts[tri[2]]}, Normal: normal}
	}
	var start int
	for k := range next {
		start = k
		break
	}
	loop := []*lin.V3{verts[start]}
	cur := next[start]
	for cur != start && len(loop) <= len(next) {
		loop = append(loop, verts[cur])
		cur = next[cur]
	}
	return Face{Vertices: loop, Normal: normal}
}

// hullEdge identifies one physical hull edge by its two endpoint vertex
// pointers, used by the separating axis search for edge-edge SAT tests.
type hullEdge struct{ A, B *lin.V3 }

// uniqueEdgesFromTopology extracts the deduplicated set of hull edges
// from the vertex adjacency built by buildTopology, one per physical
// edge regardless of which face(s) reference it.
func uniqueEdgesFromTopology(vertexNeighbors map[*lin.V3][]*lin.V3) []hullEdge {
	seen := map[*lin.V3]map[*lin.V3]bool{}
	result := make([]hullEdge, 0, len(vertexNeighbors))
	for v, neighbors := range vertexNeighbors {
		for _, n := range neighbors {
			if seen[v][n] || seen[n][v] {
				continue
			}
			result = append(result, hullEdge{v, n})
			if seen[v] == nil {
				seen[v] = map[*lin.V3]bool{}
			}
			seen[v][n] = true
		}
	}
	return result
}

// uniqueNormals deduplicates near-parallel face normals so the separating
// axis search tests each physical direction once.
func uniqueNormals(faces []Face) []*lin.V3 {
	result := make([]*lin.V3, 0, len(faces))
	for _, f := range faces {
		dup := false
		negN := &lin.V3{}
		for _, n := range result {
			negN.Neg(n)
			if f.Normal.Aeq(n) || f.Normal.Aeq(negN) {
				dup = true
				break
			}
		}
		if !dup {
			result = append(result, f.Normal)
		}
	}
	return result
}

// PlaceIn returns a new Convex that is hull c transformed by t. Faces,
// vertices, normals and inertia all move; volume and the relative shape
// of the hull are unchanged.
func PlaceIn(t *lin.T, c *Convex) *Convex {
	out := &Convex{volume: c.volume, com: &lin.V3{}}
	out.com.Set(c.com)
	t.App(out.com)

	out.verts = make([]*lin.V3, len(c.verts))
	for i, v := range c.verts {
		nv := &lin.V3{}
		nv.Set(v)
		t.App(nv)
		out.verts[i] = nv
	}
	remap := make(map[*lin.V3]*lin.V3, len(c.verts))
	for i, v := range c.verts {
		remap[v] = out.verts[i]
	}
	out.faces = make([]Face, len(c.faces))
	for i, f := range c.faces {
		nf := Face{Vertices: make([]*lin.V3, len(f.Vertices)), Normal: &lin.V3{}}
		for j, v := range f.Vertices {
			nf.Vertices[j] = remap[v]
		}
		rx, ry, rz := t.AppR(f.Normal.X, f.Normal.Y, f.Normal.Z) // rotate only, normals are directions.
		nf.Normal.SetS(rx, ry, rz)
		out.faces[i] = nf
	}
	out.normals = make([]*lin.V3, len(c.normals))
	for i, n := range c.normals {
		nn := &lin.V3{}
		nn.Set(n)
		rx, ry, rz := t.AppR(nn.X, nn.Y, nn.Z)
		nn.SetS(rx, ry, rz)
		out.normals[i] = nn
	}
	out.edges = make([]hullEdge, len(c.edges))
	for i, e := range c.edges {
		out.edges[i] = hullEdge{remap[e.A], remap[e.B]}
	}

	out.vertexFaces = make(map[*lin.V3][]int, len(c.vertexFaces))
	for v, fs := range c.vertexFaces {
		out.vertexFaces[remap[v]] = fs
	}
	out.vertexNeighbors = make(map[*lin.V3][]*lin.V3, len(c.vertexNeighbors))
	for v, ns := range c.vertexNeighbors {
		remapped := make([]*lin.V3, len(ns))
		for i, n := range ns {
			remapped[i] = remap[n]
		}
		out.vertexNeighbors[remap[v]] = remapped
	}
	out.faceNeighbors = c.faceNeighbors

	rot := lin.NewM3().SetQ(t.Rot)
	out.ibody = lin.NewM3().Conjugate(rot, c.ibody)
	return out
}

// supportPoint returns the hull vertex farthest along direction dir, used
// by SAT's edge-pair axis tests and by sphere-convex closest point queries.
func (c *Convex) supportPoint(dir *lin.V3) *lin.V3 {
	best := c.verts[0]
	bestDot := best.Dot(dir)
	for _, v := range c.verts[1:] {
		d := v.Dot(dir)
		if d > bestDot {
			bestDot, best = d, v
		}
	}
	return best
}

// closestPointTo projects p onto the plane of the hull face with the
// greatest signed distance to p, and returns that projection and distance
// (negative if p is inside the hull). Edges and vertices are not searched:
// when p lies outside beyond an edge or corner, the returned point can lie
// outside that face's polygon and the distance is to the face plane, not
// to the hull. Used by sphere-convex narrow phase.
func (c *Convex) closestPointTo(p *lin.V3) (closest *lin.V3, separation float64) {
	best := -math.MaxFloat64
	var bestFace *Face
	for i := range c.faces {
		f := &c.faces[i]
		d := f.Normal.Dot(sub(p, f.Vertices[0]))
		if d > best {
			best, bestFace = d, f
		}
	}
	if bestFace == nil {
		return p, 0
	}
	d := bestFace.Normal.Dot(sub(p, bestFace.Vertices[0]))
	cp := &lin.V3{}
	cp.Scale(bestFace.Normal, -d)
	cp.Add(cp, p)
	return cp, d
}

func sub(a, b *lin.V3) *lin.V3 {
	r := &lin.V3{}
	r.Sub(a, b)
	return r
}
