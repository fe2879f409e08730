// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"log/slog"

	"github.com/galvanized/rigid3d/math/lin"
)

// Numeric tunables for the collision and solver pipeline. These mirror the
// solver's internal tunables struct-of-constants but are promoted to an
// exported, overridable configuration object so host applications can tune
// a World without reaching into package internals.

const (
	// Precision is the tolerance used throughout geometry and contact code
	// to decide when two values are "close enough" to be treated equal.
	Precision = lin.Epsilon

	// MaxNumber stands in for +infinity, eg. a plane's unbounded AABB.
	MaxNumber = 1e38

	maxFriction = 100.0 // clamp applied to combined body friction.
)

// DefaultGravity is applied to a World unless overridden with SetGravity.
func DefaultGravity() *lin.V3 { return &lin.V3{X: 0, Y: 0, Z: -9.82} }

// SolverConfig holds the constants that control contact solving.
type SolverConfig struct {
	Iterations          int     // PGS iterations per step. Default 10.
	Baumgarte           float64 // Baumgarte stabilization factor (β). Default 0.2.
	Slop                float64 // Penetration allowed before bias kicks in. Default 0.01.
	MaxBias             float64 // Clamp on the Baumgarte bias term, applied as MaxBias/dt.
	WarmStartFactor     float64 // Damps the previous step's accumulated impulse. Default 0.85.
	SplitImpulse        bool    // Separate penetration recovery from velocity solving.
	SplitImpulseLimit   float64 // Penetration depth below which split impulse engages.
	SplitImpulseTurnErp float64 // Damping applied to split impulse position correction.
}

// defaultSolverConfig matches the values the original solver shipped with.
func defaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		Iterations:          10,
		Baumgarte:           0.2,
		Slop:                0.01,
		MaxBias:             20.0,
		WarmStartFactor:     0.85,
		SplitImpulse:        true,
		SplitImpulseLimit:   -0.04,
		SplitImpulseTurnErp: 0.1,
	}
}

// WorldOption configures a World at construction time.
type WorldOption func(w *World)

// WithGravity overrides the default gravity vector.
func WithGravity(x, y, z float64) WorldOption {
	return func(w *World) { w.gravity.SetS(x, y, z) }
}

// WithSolverIterations overrides the default PGS iteration count.
func WithSolverIterations(n int) WorldOption {
	return func(w *World) {
		if n > 0 {
			w.cfg.Iterations = n
		}
	}
}

// WithLogger redirects the World's diagnostic logging.
func WithLogger(log *slog.Logger) WorldOption {
	return func(w *World) { w.log = log }
}

// applyTo copies the tunables in cfg onto a solver's internal tunables,
// which keeps the iterative PGS math untouched while exposing a friendlier
// configuration surface at the World boundary.
func (cfg *SolverConfig) applyTo(info *tunables) {
	info.numIterations = cfg.Iterations
	info.erp = cfg.Baumgarte
	info.linearSlop = cfg.Slop
	info.maxErrorReduction = cfg.MaxBias
	info.warmstartingFactor = cfg.WarmStartFactor
	info.splitImpulse = cfg.SplitImpulse
	info.splitImpulsePenetrationLimit = cfg.SplitImpulseLimit
	info.splitImpulseTurnErp = cfg.SplitImpulseTurnErp
}
