package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gigaz-dev/walker/internal/event"
	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/route"
)

type ResultKind int

const (
	ResultCompleted ResultKind = iota
	ResultAborted
	// ResultFailed means the route data could not be loaded; nothing moved.
	ResultFailed
)

type Result struct {
	Kind  ResultKind
	Index int
	Err   error
}

func Completed() Result            { return Result{Kind: ResultCompleted, Index: -1} }
func AbortedAt(index int) Result   { return Result{Kind: ResultAborted, Index: index} }
func RouteFailed(err error) Result { return Result{Kind: ResultFailed, Index: -1, Err: err} }

func (r Result) String() string {
	switch r.Kind {
	case ResultCompleted:
		return "Completed"
	case ResultAborted:
		return fmt.Sprintf("AbortedAt(%d)", r.Index)
	default:
		return fmt.Sprintf("Failed(%v)", r.Err)
	}
}

// RunRoute walks the legs in order and stops at the first leg the mover
// gives up on. Later legs are never attempted.
func (m *Mover) RunRoute(ctx context.Context, loco game.Locomotion, r route.Route) Result {
	m.emit(event.RouteStarted(event.Text(m.Supervisor, fmt.Sprintf("Route started, %d waypoints", len(r))), len(r)))
	if len(r) == 0 {
		m.Logger.Info("Route is empty, nothing to do")
		m.emit(event.RouteFinished(event.Text(m.Supervisor, "Route completed"), event.RouteCompleted, -1))
		return Completed()
	}

	for i, leg := range r {
		label := leg.Label
		if label == "" {
			label = fmt.Sprintf("waypoint %d", i+1)
		}

		if leg.DwellBefore > 0 {
			m.Logger.Info(fmt.Sprintf("Waiting %s before %s", leg.DwellBefore, label))
			if err := m.Sleeper.Sleep(ctx, leg.DwellBefore); err != nil {
				return m.abort(i, label)
			}
		}

		policy := m.Policy
		if leg.Policy != nil {
			policy = *leg.Policy
		}
		if !m.MoveTo(ctx, loco, leg.Goal, label, policy) {
			return m.abort(i, label)
		}
		m.emit(event.WaypointReached(event.Text(m.Supervisor, "Reached "+label), i, label, leg.Goal))
	}

	m.Logger.Info("Finished every waypoint of the route", slog.Int("waypoints", len(r)))
	m.emit(event.RouteFinished(event.Text(m.Supervisor, "Route completed"), event.RouteCompleted, -1))
	return Completed()
}

func (m *Mover) abort(index int, label string) Result {
	m.Logger.Warn(fmt.Sprintf("Stopping route, could not reach %s", label), slog.Int("index", index))
	m.emit(event.RouteFinished(event.Text(m.Supervisor, "Route aborted at "+label), event.RouteAborted, index))
	return AbortedAt(index)
}

// RunRouteFrom loads a fresh route from src and runs it. Route data that
// cannot be loaded fails the run before any movement.
func (m *Mover) RunRouteFrom(ctx context.Context, loco game.Locomotion, src route.Source) Result {
	r, err := src.Load(ctx)
	if err != nil {
		m.Logger.Error("Could not load route, no movement will be attempted", slog.Any("error", err))
		m.emit(event.RouteFinished(event.Text(m.Supervisor, "Route data unusable: "+err.Error()), event.RouteFailed, -1))
		return RouteFailed(err)
	}
	return m.RunRoute(ctx, loco, r)
}
