package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/ember/engine/core"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.KeyCode{
		glfw.KeyA:      core.KEY_A,
		glfw.KeyW:      core.KEY_W,
		glfw.KeyZ:      core.KEY_Z,
		glfw.KeyEscape: core.KEY_ESCAPE,
		glfw.KeyLeft:   core.KEY_LEFT,
		glfw.KeyDown:   core.KEY_DOWN,
		glfw.Key0:      core.KEY_UNKNOWN,
		glfw.KeyF12:    core.KEY_UNKNOWN,
	}
	for key, want := range cases {
		assert.Equal(t, want, TranslateKey(key), "glfw key %d", key)
	}
}
