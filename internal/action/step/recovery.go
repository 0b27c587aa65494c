package step

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/utils"
)

const DefaultGestureHold = 200 * time.Millisecond

// Recovery is what the movement controller does between two failed attempts
// to shake the client loose from whatever it is wedged against.
type Recovery interface {
	Name() string
	Recover(ctx context.Context, loco game.Locomotion, sleeper utils.Sleeper) error
}

type NoRecovery struct{}

func (NoRecovery) Name() string { return "none" }

func (NoRecovery) Recover(context.Context, game.Locomotion, utils.Sleeper) error { return nil }

// Press holds each control for Hold, one after the other, releasing every
// control before pressing the next one.
type Press struct {
	Controls []game.Control
	Hold     time.Duration
}

// JumpForward is the default gesture: jump, then step forward.
func JumpForward(hold time.Duration) Press {
	return Press{Controls: []game.Control{game.ControlJump, game.ControlForward}, Hold: hold}
}

func (p Press) Name() string {
	names := make([]string, 0, len(p.Controls))
	for _, c := range p.Controls {
		names = append(names, string(c))
	}
	return "press(" + strings.Join(names, "+") + ")"
}

func (p Press) Recover(ctx context.Context, loco game.Locomotion, sleeper utils.Sleeper) error {
	for _, c := range p.Controls {
		if err := holdControl(ctx, loco, sleeper, c, p.Hold); err != nil {
			return err
		}
	}
	return nil
}

func holdControl(ctx context.Context, loco game.Locomotion, sleeper utils.Sleeper, c game.Control, hold time.Duration) error {
	if err := loco.SetControl(c, true); err != nil {
		return fmt.Errorf("pressing %s: %w", c, err)
	}
	waitErr := sleeper.Sleep(ctx, hold)
	// always release, a stuck key outlives the gesture
	if err := loco.SetControl(c, false); err != nil {
		return fmt.Errorf("releasing %s: %w", c, err)
	}
	return waitErr
}

// Sequence runs several recoveries in order and stops on the first error.
type Sequence []Recovery

func (s Sequence) Name() string {
	names := make([]string, 0, len(s))
	for _, r := range s {
		names = append(names, r.Name())
	}
	return strings.Join(names, ",")
}

func (s Sequence) Recover(ctx context.Context, loco game.Locomotion, sleeper utils.Sleeper) error {
	for _, r := range s {
		if err := r.Recover(ctx, loco, sleeper); err != nil {
			return err
		}
	}
	return nil
}

var ErrUnknownRecovery = errors.New("unknown recovery gesture")

// RecoveryByName resolves the gesture configured for a profile.
func RecoveryByName(name string, hold time.Duration) (Recovery, error) {
	if hold <= 0 {
		hold = DefaultGestureHold
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jumpforward", "jump_forward":
		return JumpForward(hold), nil
	case "jump":
		return Press{Controls: []game.Control{game.ControlJump}, Hold: hold}, nil
	case "backstep":
		return Press{Controls: []game.Control{game.ControlBack, game.ControlJump, game.ControlForward}, Hold: hold}, nil
	case "none":
		return NoRecovery{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecovery, name)
	}
}
