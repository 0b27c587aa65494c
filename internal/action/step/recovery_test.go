package step

import (
	"context"
	"testing"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/game/gametest"
	"github.com/gigaz-dev/walker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpForwardGesture(t *testing.T) {
	loco := gametest.NewLocomotion()
	sleeper := &utils.RecordingSleeper{}

	require.NoError(t, JumpForward(DefaultGestureHold).Recover(context.Background(), loco, sleeper))

	assert.Equal(t, []gametest.ControlCall{
		{Control: game.ControlJump, On: true},
		{Control: game.ControlJump, On: false},
		{Control: game.ControlForward, On: true},
		{Control: game.ControlForward, On: false},
	}, loco.Controls())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, sleeper.Calls())
}

func TestPressReleasesOnCancel(t *testing.T) {
	loco := gametest.NewLocomotion()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := JumpForward(time.Second).Recover(ctx, loco, utils.RealSleeper)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []gametest.ControlCall{
		{Control: game.ControlJump, On: true},
		{Control: game.ControlJump, On: false},
	}, loco.Controls())
}

func TestRecoveryByName(t *testing.T) {
	r, err := RecoveryByName("", 0)
	require.NoError(t, err)
	assert.Equal(t, JumpForward(DefaultGestureHold), r)

	r, err = RecoveryByName("none", 0)
	require.NoError(t, err)
	assert.Equal(t, "none", r.Name())

	r, err = RecoveryByName("jump", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "press(jump)", r.Name())

	_, err = RecoveryByName("cartwheel", 0)
	assert.ErrorIs(t, err, ErrUnknownRecovery)
}

func TestSequenceStopsOnError(t *testing.T) {
	loco := gametest.NewLocomotion()
	sleeper := &utils.RecordingSleeper{}
	seq := Sequence{NoRecovery{}, JumpForward(10 * time.Millisecond)}

	require.NoError(t, seq.Recover(context.Background(), loco, sleeper))
	assert.Len(t, loco.Controls(), 4)
	assert.Equal(t, "none,press(jump+forward)", seq.Name())
}
