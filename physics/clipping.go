// SPDX-FileCopyrightText : © 2024 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package physics

import (
	"log/slog"
	"math"

	"github.com/galvanized/rigid3d/math/lin"
)

// cPlane
type cPlane struct {
	normal lin.V3
	point  lin.V3
}

// clipContact is a single witness-point pair produced by clipping two
// convex faces against each other. pointA/pointB live on the surface of
// hull1 and hull2 respectively; normal points from hull1 toward hull2.
type clipContact struct {
	pointA, pointB lin.V3
	normal         lin.V3
	depth          float64
}

// is_point_in_plane
func is_point_in_plane(plane *cPlane, position lin.V3) bool {
	distance := -plane.normal.Dot(&plane.point)
	if position.Dot(&plane.normal)+distance < 0.0 {
		return false
	}
	return true
}

// plane_edge_intersection
func plane_edge_intersection(plane *cPlane, start lin.V3, end lin.V3, out_point *lin.V3) bool {
	const EPSILON float64 = 0.000001
	ab := lin.NewV3().Sub(&end, &start)

	// Check that the edge and plane are not parallel and thus never intersect
	// by projecting the edge direction onto the plane normal.
	ab_p := plane.normal.Dot(ab)
	if math.Abs(ab_p) > EPSILON {
		// Generate a point on the plane (any point on the plane will suffice).
		distance := -plane.normal.Dot(&plane.point)
		p_co := lin.NewV3().Scale(&plane.normal, -distance)

		// Work out how far along the edge to traverse before it meets the plane.
		fac := -plane.normal.Dot(lin.NewV3().Sub(&start, p_co)) / ab_p
		fac = math.Min(math.Max(fac, 0.0), 1.0)

		out_point.Add(&start, ab.Scale(ab, fac))
		return true
	}
	return false
}

// sutherland_hodgman clips the input polygon to the input clip planes.
// If remove_instead_of_clipping is true, vertices lying outside the
// clipping planes are removed instead of clipped onto the plane.
// Based on https://research.ncl.ac.uk/game/mastersdegree/gametechnologies/previousinformation/physics5collisionmanifolds/
func sutherland_hodgman(input_polygon []lin.V3, clip_planes []cPlane, remove_instead_of_clipping bool) (out_polygon []lin.V3) {
	if len(clip_planes) <= 0 {
		slog.Error("sutherland_hodgman called with no clip planes")
		return out_polygon
	}

	input := append([]lin.V3{}, input_polygon...)
	output := []lin.V3{}

	for i := 0; i < len(clip_planes); i++ {
		if len(input) == 0 {
			break
		}
		plane := &clip_planes[i]

		temp_point, start_point := lin.NewV3(), input[len(input)-1]
		for j := 0; j < len(input); j++ {
			end_point := input[j]
			start_in_plane := is_point_in_plane(plane, start_point)
			end_in_plane := is_point_in_plane(plane, end_point)

			if remove_instead_of_clipping {
				if end_in_plane {
					output = append(output, end_point)
				}
			} else {
				if start_in_plane && end_in_plane {
					output = append(output, end_point)
				} else if start_in_plane && !end_in_plane {
					if plane_edge_intersection(plane, start_point, end_point, temp_point) {
						output = append(output, *temp_point)
					}
				} else if !start_in_plane && end_in_plane {
					if plane_edge_intersection(plane, start_point, end_point, temp_point) {
						output = append(output, *temp_point)
					}
					output = append(output, end_point)
				}
			}
			start_point = end_point
		}
		tmp := input
		input = output
		output = tmp[:0]
	}
	return input
}

// get_closest_point_polygon projects position onto reference_plane.
func get_closest_point_polygon(position lin.V3, reference_plane *cPlane) lin.V3 {
	d := lin.NewV3().Scale(&reference_plane.normal, -1.0).Dot(&reference_plane.point)
	t := lin.NewV3().Sub(&position, lin.NewV3().Scale(&reference_plane.normal, reference_plane.normal.Dot(&position)+d))
	return *t
}

// build_boundary_planes returns one inward-facing clip plane per edge
// neighbor of the target face, used to clip the incident face down to
// the reference face's silhouette.
func build_boundary_planes(hull *Convex, target_face_idx int) []cPlane {
	result := []cPlane{}
	for _, neighborIdx := range hull.faceNeighbors[target_face_idx] {
		neighbor := hull.faces[neighborIdx]
		p := cPlane{}
		p.point = *neighbor.Vertices[0]
		p.normal.Neg(neighbor.Normal)
		result = append(result, p)
	}
	return result
}

// get_face_with_most_fitting_normal picks, among the faces touching
// support_vertex, the one whose normal is most aligned with normal.
func get_face_with_most_fitting_normal(support_vertex *lin.V3, hull *Convex, normal *lin.V3) int {
	max_proj := -math.MaxFloat64
	selected_face_idx := hull.vertexFaces[support_vertex][0]
	for _, faceIdx := range hull.vertexFaces[support_vertex] {
		face := hull.faces[faceIdx]
		proj := face.Normal.Dot(normal)
		if proj > max_proj {
			max_proj = proj
			selected_face_idx = faceIdx
		}
	}
	return selected_face_idx
}

// get_edge_with_most_fitting_normal searches every edge incident to
// support1 on hull1 paired with every edge incident to support2 on hull2,
// looking for the edge pair whose cross product best matches normal.
// Returns the two edges' endpoints and, via edge_normal, the winning
// cross-product direction.
func get_edge_with_most_fitting_normal(
	support1, support2 *lin.V3,
	hull1, hull2 *Convex,
	normal *lin.V3, edge_normal *lin.V3) (a1, b1, a2, b2 *lin.V3) {

	max_dot := -math.MaxFloat64
	for _, neighbor1 := range hull1.vertexNeighbors[support1] {
		edge1 := lin.NewV3().Sub(support1, neighbor1)
		for _, neighbor2 := range hull2.vertexNeighbors[support2] {
			edge2 := lin.NewV3().Sub(support2, neighbor2)

			current_normal := lin.NewV3().Cross(edge1, edge2).Unit()
			current_normal_inverted := lin.NewV3().Neg(current_normal)

			if dot := current_normal.Dot(normal); dot > max_dot {
				max_dot = dot
				a1, b1, a2, b2 = support1, neighbor1, support2, neighbor2
				*edge_normal = *current_normal
			}
			if dot := current_normal_inverted.Dot(normal); dot > max_dot {
				max_dot = dot
				a1, b1, a2, b2 = support1, neighbor1, support2, neighbor2
				*edge_normal = *current_normal_inverted
			}
		}
	}
	return a1, b1, a2, b2
}

// collision_distance_between_skew_lines calculates the distance between
// two indepedent skew lines in the 3D world.
// The first line is given by a known point P1 and a direction vector D1.
// The second line is given by a known point P2 and a direction vector D2.
//
//	L1 is the closest POINT to the second line that belongs to the first line
//	L2 is the closest POINT to the first line that belongs to the second line
func collision_distance_between_skew_lines(p1, d1, p2, d2 lin.V3, l1, l2 *lin.V3) bool {
	n1 := d1.X*d2.X + d1.Y*d2.Y + d1.Z*d2.Z
	n2 := d2.X*d2.X + d2.Y*d2.Y + d2.Z*d2.Z
	m1 := -d1.X*d1.X - d1.Y*d1.Y - d1.Z*d1.Z
	m2 := -d2.X*d1.X - d2.Y*d1.Y - d2.Z*d1.Z
	r1 := -d1.X*p2.X + d1.X*p1.X - d1.Y*p2.Y + d1.Y*p1.Y - d1.Z*p2.Z + d1.Z*p1.Z
	r2 := -d2.X*p2.X + d2.X*p1.X - d2.Y*p2.Y + d2.Y*p1.Y - d2.Z*p2.Z + d2.Z*p1.Z

	if (n1*m2)-(n2*m1) == 0 {
		return false
	}
	n := ((r1 * m2) - (r2 * m1)) / ((n1 * m2) - (n2 * m1))
	m := ((n1 * r2) - (n2 * r1)) / ((n1 * m2) - (n2 * m1))
	if l1 != nil {
		l1.Add(&p1, l1.Scale(&d1, m))
	}
	if l2 != nil {
		l2.Add(&p2, l2.Scale(&d2, n))
	}
	return true
}

// get_vertices_of_face flattens a face's vertex pointers into values, for
// use as a Sutherland-Hodgman input polygon.
func get_vertices_of_face(face Face) []lin.V3 {
	vertices := make([]lin.V3, len(face.Vertices))
	for i, v := range face.Vertices {
		vertices[i] = *v
	}
	return vertices
}

// convex_convex_contact_manifold builds the contact manifold between two
// convex hulls given the SAT-chosen separating axis normal (pointing from
// hull1 toward hull2). Deep, near-parallel face overlap produces a
// clipped polygon of contacts; a shallow edge-edge overlap produces a
// single contact at the closest points of the two witness edges.
func convex_convex_contact_manifold(hull1, hull2 *Convex, normal *lin.V3) []clipContact {
	const EPSILON float64 = 0.0001
	contacts := []clipContact{}

	inverted_normal := lin.NewV3().Neg(normal)
	support1 := hull1.supportPoint(normal)
	support2 := hull2.supportPoint(inverted_normal)
	face1_idx := get_face_with_most_fitting_normal(support1, hull1, normal)
	face2_idx := get_face_with_most_fitting_normal(support2, hull2, inverted_normal)
	face1 := hull1.faces[face1_idx]
	face2 := hull2.faces[face2_idx]
	edge_normal := lin.NewV3()
	ea1, eb1, ea2, eb2 := get_edge_with_most_fitting_normal(support1, support2, hull1, hull2, normal, edge_normal)

	chosen_normal1_dot := face1.Normal.Dot(normal)
	chosen_normal2_dot := face2.Normal.Dot(inverted_normal)
	edge_normal_dot := edge_normal.Dot(normal)

	if ea1 != nil && edge_normal_dot > chosen_normal1_dot+EPSILON && edge_normal_dot > chosen_normal2_dot+EPSILON {
		// Edge-edge contact: closest points between the two witness edges.
		l1, l2 := lin.NewV3(), lin.NewV3()
		d1 := lin.NewV3().Sub(eb1, ea1)
		d2 := lin.NewV3().Sub(eb2, ea2)
		if collision_distance_between_skew_lines(*ea1, *d1, *ea2, *d2, l1, l2) {
			contacts = append(contacts, clipContact{pointA: *l1, pointB: *l2, normal: *normal})
		}
		return contacts
	}

	// Face contact: clip the incident face down against the reference
	// face's edge neighbor planes, then project onto the reference plane.
	var referenceFace, incidentFace Face
	var referenceFaceIdx int
	var referenceHull *Convex
	is_face1_the_reference_face := chosen_normal1_dot > chosen_normal2_dot
	if is_face1_the_reference_face {
		referenceFace, incidentFace, referenceFaceIdx, referenceHull = face1, face2, face1_idx, hull1
	} else {
		referenceFace, incidentFace, referenceFaceIdx, referenceHull = face2, face1, face2_idx, hull2
	}
	boundary_planes := build_boundary_planes(referenceHull, referenceFaceIdx)
	incident_points := get_vertices_of_face(incidentFace)
	clipped_points := sutherland_hodgman(incident_points, boundary_planes, false)

	var reference_plane cPlane
	reference_plane.normal.Neg(referenceFace.Normal)
	reference_plane.point = *referenceFace.Vertices[0]

	final_clipped_points := sutherland_hodgman(clipped_points, []cPlane{reference_plane}, true)

	for _, point := range final_clipped_points {
		closest_point := get_closest_point_polygon(point, &reference_plane)
		point_diff := lin.NewV3().Sub(&point, &closest_point)

		var contact clipContact
		contact.normal = *normal
		if is_face1_the_reference_face {
			depth := point_diff.Dot(normal)
			contact.pointA.Sub(&point, lin.NewV3().Scale(normal, depth))
			contact.pointB = point
			contact.depth = depth
		} else {
			depth := -point_diff.Dot(normal)
			contact.pointA = point
			contact.pointB.Add(&point, lin.NewV3().Scale(normal, depth))
			contact.depth = depth
		}
		if contact.depth < 0.0 {
			contacts = append(contacts, contact)
		}
	}
	if len(contacts) == 0 {
		slog.Debug("convex_convex_contact_manifold: no intersection was found")
	}
	return contacts
}
