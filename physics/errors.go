// Copyright © 2024 Galvanized Logic Inc.

package physics

import "errors"

// Sentinel errors returned at the package's API boundaries. Physics math
// itself never returns an error; only construction and query methods do.
var (
	// ErrDegenerateGeometry is returned by FromTriangularMesh when the
	// input mesh is non-closed, self-intersecting, or resolves to zero
	// volume. The caller must handle this before the hull is used to
	// build a Body.
	ErrDegenerateGeometry = errors.New("physics: degenerate convex mesh")

	// ErrUnknownBody is returned by World queries (RemoveBody, Body)
	// given an id that was never returned by AddBody, or has since been
	// removed.
	ErrUnknownBody = errors.New("physics: unknown body id")
)
