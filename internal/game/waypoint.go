package game

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Waypoint is a target coordinate. It carries no identity besides its
// position inside a route.
type Waypoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func NewWaypoint(x, y, z float64) Waypoint {
	return Waypoint{X: x, Y: y, Z: z}
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%s, %s, %s)", formatCoord(w.X), formatCoord(w.Y), formatCoord(w.Z))
}

// Finite reports whether every coordinate is a real number.
func (w Waypoint) Finite() bool {
	for _, c := range []float64{w.X, w.Y, w.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func formatCoord(c float64) string {
	if c == math.Trunc(c) && math.Abs(c) < 1e15 {
		return strconv.FormatInt(int64(c), 10)
	}
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// RetryPolicy bounds how hard the movement controller tries a single goal.
type RetryPolicy struct {
	MaxAttempts  int
	AttemptDelay time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, AttemptDelay: 5 * time.Second}

var ErrInvalidPolicy = errors.New("invalid retry policy")

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: maxAttempts must be >= 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.AttemptDelay < 0 {
		return fmt.Errorf("%w: attemptDelay must be >= 0, got %s", ErrInvalidPolicy, p.AttemptDelay)
	}
	return nil
}

// Clamped returns the closest valid policy.
func (p RetryPolicy) Clamped() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.AttemptDelay < 0 {
		p.AttemptDelay = 0
	}
	return p
}
