package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gigaz-dev/walker/internal/action/step"
	"github.com/gigaz-dev/walker/internal/event"
	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/utils"
)

// Mover drives one client toward its goals. A session builds one Mover and
// uses it from a single goroutine, so at most one movement attempt is ever
// in flight.
type Mover struct {
	Supervisor string
	Logger     *slog.Logger
	Sleeper    utils.Sleeper
	Recovery   step.Recovery
	// Policy is the default for legs without their own.
	Policy game.RetryPolicy
	Send   event.Sender
}

type MoverOption func(*Mover)

func WithSleeper(s utils.Sleeper) MoverOption { return func(m *Mover) { m.Sleeper = s } }

func WithRecovery(r step.Recovery) MoverOption { return func(m *Mover) { m.Recovery = r } }

func WithPolicy(p game.RetryPolicy) MoverOption { return func(m *Mover) { m.Policy = p } }

func WithEventSender(s event.Sender) MoverOption { return func(m *Mover) { m.Send = s } }

func NewMover(supervisor string, logger *slog.Logger, opts ...MoverOption) *Mover {
	m := &Mover{
		Supervisor: supervisor,
		Logger:     logger,
		Sleeper:    utils.RealSleeper,
		Recovery:   step.JumpForward(step.DefaultGestureHold),
		Policy:     game.DefaultRetryPolicy,
		Send:       event.Send,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// MoveTo tries to bring the client to goal, at most policy.MaxAttempts
// times. Every failure kind is retried the same way; between attempts the
// recovery gesture runs and then the attempt delay is waited. It returns
// false once the attempts are exhausted or ctx is done, never an error.
func (m *Mover) MoveTo(ctx context.Context, loco game.Locomotion, goal game.Waypoint, label string, policy game.RetryPolicy) bool {
	if err := policy.Validate(); err != nil {
		m.Logger.Warn("Invalid retry policy, clamping", slog.String("goal", label), slog.Any("error", err))
		policy = policy.Clamped()
	}
	if label == "" {
		label = goal.String()
	}

	for i := 1; i <= policy.MaxAttempts; i++ {
		m.Logger.Info(fmt.Sprintf("Attempt %d/%d: moving to %s %s", i, policy.MaxAttempts, label, goal))

		err := loco.Goto(ctx, goal)
		if err == nil {
			m.Logger.Info(fmt.Sprintf("Arrived at %s", label), slog.Int("attempt", i))
			m.emit(event.MovementAttempt(event.Text(m.Supervisor, "Arrived at "+label), label, goal, i, policy.MaxAttempts, game.Arrived()))
			return true
		}

		outcome := game.Failed(err)
		m.narrateFailure(label, i, policy.MaxAttempts, outcome)
		m.emit(event.MovementAttempt(event.Text(m.Supervisor, outcome.String()), label, goal, i, policy.MaxAttempts, outcome))

		if ctx.Err() != nil {
			m.Logger.Info("Movement cancelled", slog.String("goal", label))
			return false
		}
		if i == policy.MaxAttempts {
			break
		}

		m.Logger.Info(fmt.Sprintf("Retrying in %s, trying to shake the client loose", policy.AttemptDelay),
			slog.String("gesture", m.Recovery.Name()))
		if err := m.Recovery.Recover(ctx, loco, m.Sleeper); err != nil {
			m.Logger.Warn("Recovery gesture failed", slog.String("gesture", m.Recovery.Name()), slog.Any("error", err))
		}
		if err := m.Sleeper.Sleep(ctx, policy.AttemptDelay); err != nil {
			m.Logger.Info("Movement cancelled while waiting to retry", slog.String("goal", label))
			return false
		}
	}

	m.Logger.Warn(fmt.Sprintf("Could not reach %s after %d attempts", label, policy.MaxAttempts))
	return false
}

func (m *Mover) narrateFailure(label string, attempt, maxAttempts int, o game.MovementOutcome) {
	prefix := fmt.Sprintf("Attempt %d/%d: ", attempt, maxAttempts)
	switch o.Kind {
	case game.FailureNoPath:
		m.Logger.Warn(prefix+"no path to "+label+", it may be blocked or too far", slog.Any("error", o.Err))
	case game.FailureUnreachable:
		m.Logger.Warn(prefix+label+" is unreachable", slog.Any("error", o.Err))
	default:
		m.Logger.Warn(prefix+"error moving to "+label, slog.Any("error", o.Err))
	}
}

func (m *Mover) emit(e event.Event) {
	if m.Send != nil {
		m.Send(e)
	}
}
