package engine

import (
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/scene"
)

// Context is what the game callbacks may touch. Objects and Viewer belong to
// the engine; models created on Device are released with Objects.
type Context struct {
	Device  vulkan.Device
	Input   *core.InputState
	Objects scene.Map
	// Viewer carries the camera transform the movement controller drives.
	Viewer *scene.GameObject
}
