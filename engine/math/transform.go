package math

// TransformComponent places an object in the world. Rotation holds
// Tait-Bryan angles in radians applied in Y, X, Z order.
type TransformComponent struct {
	Translation Vec3
	Scale       Vec3
	Rotation    Vec3
}

func NewTransformComponent() TransformComponent {
	return TransformComponent{Scale: NewVec3One()}
}

func (t TransformComponent) angles() (c1, s1, c2, s2, c3, s3 float32) {
	c3 = kcos(t.Rotation.Z)
	s3 = ksin(t.Rotation.Z)
	c2 = kcos(t.Rotation.X)
	s2 = ksin(t.Rotation.X)
	c1 = kcos(t.Rotation.Y)
	s1 = ksin(t.Rotation.Y)
	return
}

// Mat4 returns translate * Ry * Rx * Rz * scale in closed form.
func (t TransformComponent) Mat4() Mat4 {
	c1, s1, c2, s2, c3, s3 := t.angles()
	return Mat4{Data: [16]float32{
		t.Scale.X * (c1*c3 + s1*s2*s3),
		t.Scale.X * (c2 * s3),
		t.Scale.X * (c1*s2*s3 - c3*s1),
		0,

		t.Scale.Y * (c3*s1*s2 - c1*s3),
		t.Scale.Y * (c2 * c3),
		t.Scale.Y * (c1*c3*s2 + s1*s3),
		0,

		t.Scale.Z * (c2 * s1),
		t.Scale.Z * (-s2),
		t.Scale.Z * (c1 * c2),
		0,

		t.Translation.X, t.Translation.Y, t.Translation.Z, 1,
	}}
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of Mat4, widened
// to a Mat4 with no translation. Zero scale components yield infinities.
func (t TransformComponent) NormalMatrix() Mat4 {
	c1, s1, c2, s2, c3, s3 := t.angles()
	inv := Vec3{1 / t.Scale.X, 1 / t.Scale.Y, 1 / t.Scale.Z}
	return Mat4{Data: [16]float32{
		inv.X * (c1*c3 + s1*s2*s3),
		inv.X * (c2 * s3),
		inv.X * (c1*s2*s3 - c3*s1),
		0,

		inv.Y * (c3*s1*s2 - c1*s3),
		inv.Y * (c2 * c3),
		inv.Y * (c1*c3*s2 + s1*s3),
		0,

		inv.Z * (c2 * s1),
		inv.Z * (-s2),
		inv.Z * (c1 * c2),
		0,

		0, 0, 0, 1,
	}}
}
