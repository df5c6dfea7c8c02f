package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-5

func TestMat4MulAppliesRightOperandFirst(t *testing.T) {
	tr := NewMat4Translation(Vec3{1, 2, 3})
	sc := NewMat4Scale(Vec3{2, 2, 2})

	p := tr.Mul(sc).TransformPoint(Vec3{1, 1, 1})
	assert.True(t, p.Compare(Vec3{3, 4, 5}, eps), "got %v", p)

	p = sc.Mul(tr).TransformPoint(Vec3{1, 1, 1})
	assert.True(t, p.Compare(Vec3{4, 6, 8}, eps), "got %v", p)
}

func TestMat4Inverse(t *testing.T) {
	m := NewMat4Translation(Vec3{1, -2, 5}).Mul(NewMat4EulerY(0.7)).Mul(NewMat4Scale(Vec3{2, 3, 4}))
	assert.True(t, m.Mul(m.Inverse()).Compare(NewMat4Identity(), eps))
	assert.True(t, m.Inverse().Mul(m).Compare(NewMat4Identity(), eps))
}

func TestMat4Transposed(t *testing.T) {
	m := NewMat4Translation(Vec3{1, 2, 3})
	tr := m.Transposed()
	assert.Equal(t, float32(1), tr.At(0, 3))
	assert.Equal(t, float32(2), tr.At(1, 3))
	assert.Equal(t, m, tr.Transposed())
}

func TestTransformComponentMatchesComposition(t *testing.T) {
	tc := TransformComponent{
		Translation: Vec3{1, 2, 3},
		Scale:       Vec3{2, 0.5, 1.5},
		Rotation:    Vec3{0.3, -1.1, 0.7},
	}
	want := NewMat4Translation(tc.Translation).
		Mul(NewMat4EulerY(tc.Rotation.Y)).
		Mul(NewMat4EulerX(tc.Rotation.X)).
		Mul(NewMat4EulerZ(tc.Rotation.Z)).
		Mul(NewMat4Scale(tc.Scale))
	assert.True(t, tc.Mat4().Compare(want, eps))
}

func TestTransformComponentNormalMatrix(t *testing.T) {
	tc := TransformComponent{
		Scale:    Vec3{2, 4, 0.5},
		Rotation: Vec3{0.2, 0.9, -0.4},
	}
	m := tc.Mat4()
	m.Data[12], m.Data[13], m.Data[14] = 0, 0, 0
	want := m.Inverse().Transposed()
	assert.True(t, tc.NormalMatrix().Compare(want, 1e-4))
}

func TestAxisAngleMatchesEuler(t *testing.T) {
	assert.True(t, NewMat4AxisAngle(0.5, Vec3{0, 1, 0}).Compare(NewMat4EulerY(0.5), eps))
	assert.True(t, NewMat4AxisAngle(0.5, Vec3{0, -1, 0}).Compare(NewMat4EulerY(-0.5), eps))
	assert.True(t, NewMat4AxisAngle(0.5, Vec3{3, 0, 0}).Compare(NewMat4EulerX(0.5), eps))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1.5), Clamp(float32(2), -1.5, 1.5))
	assert.Equal(t, -1.5, Clamp(-7.0, -1.5, 1.5))
	assert.Equal(t, 3, Clamp(3, 0, 10))
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, 0.5, WrapAngle(0.5), 1e-6)
	assert.InDelta(t, K_PI_2-0.5, WrapAngle(-0.5), 1e-5)
	assert.InDelta(t, 1, WrapAngle(K_PI_2+1), 1e-5)
	assert.Equal(t, float32(0), WrapAngle(0))
}

func TestGenerateCube(t *testing.T) {
	vertices, indices := GenerateCube(NewVec3Zero())
	assert.Len(t, vertices, 24)
	assert.Len(t, indices, 36)
	for _, v := range vertices {
		assert.InDelta(t, 1.0, v.Normal.Length(), eps)
	}
}
