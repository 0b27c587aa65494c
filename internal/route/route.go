package route

import (
	"context"
	"errors"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
)

// ErrMalformedRoute marks route data that cannot be trusted. It is fatal for
// the session that tried to load it, never for the process.
var ErrMalformedRoute = errors.New("malformed route")

// Leg is one step of a route: an optional scripted pause, then a movement
// goal.
type Leg struct {
	Goal  game.Waypoint
	Label string
	// DwellBefore is waited before moving to Goal.
	DwellBefore time.Duration
	// Policy overrides the executor default for this leg only.
	Policy *game.RetryPolicy
}

type Route []Leg

func (r Route) Waypoints() []game.Waypoint {
	out := make([]game.Waypoint, 0, len(r))
	for _, l := range r {
		out = append(out, l.Goal)
	}
	return out
}

// FromWaypoints builds a route with default labels and no dwell.
func FromWaypoints(wps ...game.Waypoint) Route {
	r := make(Route, 0, len(wps))
	for _, wp := range wps {
		r = append(r, Leg{Goal: wp})
	}
	return r
}

// Source hands out a fresh route for each session.
type Source interface {
	Load(ctx context.Context) (Route, error)
}

type SourceFunc func(ctx context.Context) (Route, error)

func (f SourceFunc) Load(ctx context.Context) (Route, error) { return f(ctx) }

// Inline is a constant route, typically from configuration.
type Inline Route

func (i Inline) Load(context.Context) (Route, error) {
	out := make(Route, len(i))
	copy(out, i)
	return out, nil
}

// Default is the stock three-point route.
func Default() Route {
	return Route{
		{Goal: game.NewWaypoint(5, 100, 0), Label: "first point"},
		{Goal: game.NewWaypoint(-52, 102, -18), Label: "second point", DwellBefore: 2 * time.Second},
		{Goal: game.NewWaypoint(-83, 102, -14), Label: "third point", DwellBefore: 6 * time.Second},
	}
}
