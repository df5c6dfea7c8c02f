package components

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/spaghettifunk/ember/engine/math"
)

/** @brief The up vector used when none is given. Y points down in clip space. */
var DefaultUp = math.NewVec3(0, -1, 0)

/**
 * @brief Represents a camera: a projection plus a view transform and its
 * inverse. All matrices are column-major.
 */
type Camera struct {
	projection  math.Mat4
	view        math.Mat4
	inverseView math.Mat4
}

func NewCamera() *Camera {
	return &Camera{
		projection:  math.NewMat4Identity(),
		view:        math.NewMat4Identity(),
		inverseView: math.NewMat4Identity(),
	}
}

// SetOrthographicProjection maps the box to clip space with depth in [0, 1].
func (c *Camera) SetOrthographicProjection(left, right, top, bottom, near, far float32) {
	p := math.NewMat4Identity()
	p.Data[0] = 2 / (right - left)
	p.Data[5] = 2 / (bottom - top)
	p.Data[10] = 1 / (far - near)
	p.Data[12] = -(right + left) / (right - left)
	p.Data[13] = -(bottom + top) / (bottom - top)
	p.Data[14] = -near / (far - near)
	c.projection = p
}

// SetPerspectiveProjection takes the vertical field of view in radians. Depth
// maps to [0, 1].
func (c *Camera) SetPerspectiveProjection(fovy, aspect, near, far float32) error {
	if math32.Abs(aspect) < math.K_FLOAT_EPSILON {
		return fmt.Errorf("perspective projection needs a non zero aspect ratio")
	}
	tanHalfFovy := math32.Tan(fovy / 2)
	var p math.Mat4
	p.Data[0] = 1 / (aspect * tanHalfFovy)
	p.Data[5] = 1 / tanHalfFovy
	p.Data[10] = far / (far - near)
	p.Data[11] = 1
	p.Data[14] = -(far * near) / (far - near)
	c.projection = p
	return nil
}

// SetViewDirection looks from position along direction.
func (c *Camera) SetViewDirection(position, direction, up math.Vec3) {
	w := direction.Normalized()
	u := w.Cross(up).Normalized()
	v := w.Cross(u)
	c.setView(position, u, v, w)
}

// SetViewTarget keeps the camera locked on target.
func (c *Camera) SetViewTarget(position, target, up math.Vec3) {
	c.SetViewDirection(position, target.Sub(position), up)
}

// SetViewYXZ orients the camera with Tait-Bryan angles applied Y, X, Z, the
// same convention TransformComponent uses.
func (c *Camera) SetViewYXZ(position, rotation math.Vec3) {
	c3 := math32.Cos(rotation.Z)
	s3 := math32.Sin(rotation.Z)
	c2 := math32.Cos(rotation.X)
	s2 := math32.Sin(rotation.X)
	c1 := math32.Cos(rotation.Y)
	s1 := math32.Sin(rotation.Y)
	u := math.NewVec3(c1*c3+s1*s2*s3, c2*s3, c1*s2*s3-c3*s1)
	v := math.NewVec3(c3*s1*s2-c1*s3, c2*c3, c1*c3*s2+s1*s3)
	w := math.NewVec3(c2*s1, -s2, c1*c2)
	c.setView(position, u, v, w)
}

// setView builds the view from an orthonormal basis (u right, v up, w
// forward) and its inverse in closed form.
func (c *Camera) setView(position, u, v, w math.Vec3) {
	view := math.NewMat4Identity()
	view.Data[0], view.Data[4], view.Data[8] = u.X, u.Y, u.Z
	view.Data[1], view.Data[5], view.Data[9] = v.X, v.Y, v.Z
	view.Data[2], view.Data[6], view.Data[10] = w.X, w.Y, w.Z
	view.Data[12] = -u.Dot(position)
	view.Data[13] = -v.Dot(position)
	view.Data[14] = -w.Dot(position)
	c.view = view

	inv := math.NewMat4Identity()
	inv.Data[0], inv.Data[1], inv.Data[2] = u.X, u.Y, u.Z
	inv.Data[4], inv.Data[5], inv.Data[6] = v.X, v.Y, v.Z
	inv.Data[8], inv.Data[9], inv.Data[10] = w.X, w.Y, w.Z
	inv.Data[12], inv.Data[13], inv.Data[14] = position.X, position.Y, position.Z
	c.inverseView = inv
}

func (c *Camera) Projection() math.Mat4 {
	return c.projection
}

func (c *Camera) View() math.Mat4 {
	return c.view
}

func (c *Camera) InverseView() math.Mat4 {
	return c.inverseView
}

// Position is the camera's world position, the translation column of the
// inverse view.
func (c *Camera) Position() math.Vec3 {
	return c.inverseView.Column(3).ToVec3()
}
