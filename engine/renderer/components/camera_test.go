package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/math"
)

func TestCameraPositionFromInverseView(t *testing.T) {
	c := NewCamera()
	position := math.NewVec3(1, -2, 3)

	c.SetViewYXZ(position, math.NewVec3(0.3, 1.1, -0.4))
	assert.True(t, c.Position().Compare(position, 1e-5))

	c.SetViewTarget(position, math.NewVec3(0, 0, 10), DefaultUp)
	assert.True(t, c.Position().Compare(position, 1e-5))
}

func TestCameraViewTimesInverseIsIdentity(t *testing.T) {
	c := NewCamera()
	c.SetViewYXZ(math.NewVec3(4, 5, -6), math.NewVec3(-0.7, 2.0, 0.25))

	product := c.View().Mul(c.InverseView())
	assert.True(t, product.Compare(math.NewMat4Identity(), 1e-5))
}

func TestCameraViewDirectionMapsForwardToPositiveZ(t *testing.T) {
	c := NewCamera()
	c.SetViewDirection(math.NewVec3Zero(), math.NewVec3(0, 0, 1), DefaultUp)

	ahead := c.View().TransformPoint(math.NewVec3(0, 0, 5))
	assert.True(t, ahead.Compare(math.NewVec3(0, 0, 5), 1e-5))

	// With up = -Y, a point below the camera keeps positive Y in view space.
	below := c.View().TransformPoint(math.NewVec3(0, 1, 5))
	assert.Greater(t, below.Y, float32(0))
}

func TestCameraPerspectiveDepthRange(t *testing.T) {
	c := NewCamera()
	require.NoError(t, c.SetPerspectiveProjection(math.DegToRad(50), 4.0/3.0, 0.1, 100))

	project := func(z float32) float32 {
		clip := c.Projection().MulVec4(math.NewVec4(0, 0, z, 1))
		return clip.Z / clip.W
	}
	assert.InDelta(t, 0, project(0.1), 1e-5)
	assert.InDelta(t, 1, project(100), 1e-5)

	assert.Error(t, c.SetPerspectiveProjection(1, 0, 0.1, 100))
}

func TestCameraOrthographicProjection(t *testing.T) {
	c := NewCamera()
	c.SetOrthographicProjection(-2, 2, -1, 1, 0, 10)

	corner := c.Projection().MulVec4(math.NewVec4(2, 1, 10, 1))
	assert.InDelta(t, 1, corner.X, 1e-6)
	assert.InDelta(t, 1, corner.Y, 1e-6)
	assert.InDelta(t, 1, corner.Z, 1e-6)

	origin := c.Projection().MulVec4(math.NewVec4(-2, -1, 0, 1))
	assert.InDelta(t, -1, origin.X, 1e-6)
	assert.InDelta(t, -1, origin.Y, 1e-6)
	assert.InDelta(t, 0, origin.Z, 1e-6)
}
