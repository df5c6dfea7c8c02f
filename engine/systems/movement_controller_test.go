package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/scene"
)

func TestMovementForwardFollowsYaw(t *testing.T) {
	input := core.NewInputState(16)
	controller := NewKeyboardMovementController()
	viewer := scene.NewGameObject()

	input.ProcessKey(core.KEY_W, true)
	controller.MoveInPlaneXZ(input, 1, viewer)
	assert.True(t, viewer.Transform.Translation.Compare(math.NewVec3(0, 0, 3), 1e-5))

	viewer.Transform.Translation = math.NewVec3Zero()
	viewer.Transform.Rotation.Y = math.K_HALF_PI
	controller.MoveInPlaneXZ(input, 1, viewer)
	assert.True(t, viewer.Transform.Translation.Compare(math.NewVec3(3, 0, 0), 1e-5))
}

func TestMovementDiagonalIsNormalized(t *testing.T) {
	input := core.NewInputState(16)
	controller := NewKeyboardMovementController()
	viewer := scene.NewGameObject()

	input.ProcessKey(core.KEY_W, true)
	input.ProcessKey(core.KEY_D, true)
	input.ProcessKey(core.KEY_E, true)
	controller.MoveInPlaneXZ(input, 0.5, viewer)
	assert.InDelta(t, 1.5, viewer.Transform.Translation.Length(), 1e-5)
	// E moves against DefaultUp, towards -Y.
	assert.Less(t, viewer.Transform.Translation.Y, float32(0))
}

func TestMovementOpposingKeysCancel(t *testing.T) {
	input := core.NewInputState(16)
	controller := NewKeyboardMovementController()
	viewer := scene.NewGameObject()

	input.ProcessKey(core.KEY_A, true)
	input.ProcessKey(core.KEY_D, true)
	input.ProcessKey(core.KEY_LEFT, true)
	input.ProcessKey(core.KEY_RIGHT, true)
	controller.MoveInPlaneXZ(input, 1, viewer)
	assert.Equal(t, math.NewVec3Zero(), viewer.Transform.Translation)
	assert.Equal(t, math.NewVec3Zero(), viewer.Transform.Rotation)
}

func TestMovementLookLimits(t *testing.T) {
	input := core.NewInputState(16)
	controller := NewKeyboardMovementController()
	viewer := scene.NewGameObject()

	input.ProcessKey(core.KEY_DOWN, true)
	controller.MoveInPlaneXZ(input, 10, viewer)
	assert.Equal(t, float32(1.5), viewer.Transform.Rotation.X)

	input.ProcessKey(core.KEY_DOWN, false)
	input.ProcessKey(core.KEY_LEFT, true)
	controller.MoveInPlaneXZ(input, 1, viewer)
	assert.InDelta(t, 1.5, viewer.Transform.Rotation.Y, 1e-5)

	input.ProcessKey(core.KEY_LEFT, false)
	viewer.Transform.Rotation.Y = -0.5
	controller.MoveInPlaneXZ(input, 1, viewer)
	assert.InDelta(t, math.K_PI_2-0.5, viewer.Transform.Rotation.Y, 1e-5)
}
