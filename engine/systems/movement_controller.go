package systems

import (
	"github.com/chewxy/math32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/scene"
)

const maxPitch float32 = 1.5

type KeyMappings struct {
	MoveLeft     core.KeyCode
	MoveRight    core.KeyCode
	MoveForward  core.KeyCode
	MoveBackward core.KeyCode
	MoveUp       core.KeyCode
	MoveDown     core.KeyCode
	LookLeft     core.KeyCode
	LookRight    core.KeyCode
	LookUp       core.KeyCode
	LookDown     core.KeyCode
}

func DefaultKeyMappings() KeyMappings {
	return KeyMappings{
		MoveLeft:     core.KEY_A,
		MoveRight:    core.KEY_D,
		MoveForward:  core.KEY_W,
		MoveBackward: core.KEY_S,
		MoveUp:       core.KEY_E,
		MoveDown:     core.KEY_Q,
		LookLeft:     core.KEY_LEFT,
		LookRight:    core.KEY_RIGHT,
		LookUp:       core.KEY_UP,
		LookDown:     core.KEY_DOWN,
	}
}

// KeyboardMovementController flies a game object (usually the camera rig)
// around the XZ plane relative to its yaw.
type KeyboardMovementController struct {
	Keys      KeyMappings
	MoveSpeed float32
	LookSpeed float32
}

func NewKeyboardMovementController() *KeyboardMovementController {
	return &KeyboardMovementController{
		Keys:      DefaultKeyMappings(),
		MoveSpeed: 3.0,
		LookSpeed: 1.5,
	}
}

func axis(input *core.InputState, negative, positive core.KeyCode) float32 {
	var v float32
	if input.IsKeyDown(negative) {
		v--
	}
	if input.IsKeyDown(positive) {
		v++
	}
	return v
}

// MoveInPlaneXZ applies dt seconds of the currently held keys to obj.
func (c *KeyboardMovementController) MoveInPlaneXZ(input *core.InputState, dt float32, obj *scene.GameObject) {
	rotate := math.NewVec3(
		axis(input, c.Keys.LookUp, c.Keys.LookDown),
		axis(input, c.Keys.LookRight, c.Keys.LookLeft),
		0,
	)
	if rotate.Dot(rotate) > math.K_FLOAT_EPSILON {
		obj.Transform.Rotation = obj.Transform.Rotation.Add(rotate.Normalized().MulScalar(c.LookSpeed * dt))
	}

	obj.Transform.Rotation.X = math.Clamp(obj.Transform.Rotation.X, -maxPitch, maxPitch)
	yaw := math.WrapAngle(obj.Transform.Rotation.Y)
	obj.Transform.Rotation.Y = yaw

	forward := math.NewVec3(math32.Sin(yaw), 0, math32.Cos(yaw))
	right := math.NewVec3(forward.Z, 0, -forward.X)
	up := math.NewVec3(0, -1, 0)

	// forward matches the view direction SetViewYXZ derives from the same yaw.
	move := math.NewVec3Zero()
	move = move.Add(forward.MulScalar(axis(input, c.Keys.MoveBackward, c.Keys.MoveForward)))
	move = move.Add(right.MulScalar(axis(input, c.Keys.MoveLeft, c.Keys.MoveRight)))
	move = move.Add(up.MulScalar(axis(input, c.Keys.MoveDown, c.Keys.MoveUp)))
	if move.Dot(move) > math.K_FLOAT_EPSILON {
		obj.Transform.Translation = obj.Transform.Translation.Add(move.Normalized().MulScalar(c.MoveSpeed * dt))
	}
}
