package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/ember/engine/math"
)

/** @brief The maximum number of point lights the global uniform can carry. */
const MaxLights = 10

/** @brief Size in bytes of the packed GlobalUbo. */
const GlobalUboSize = 3*64 + 16 + MaxLights*32 + 4

/** @brief A point light as the shaders see it. */
type PointLight struct {
	/** @brief World position; W is ignored. */
	Position math.Vec4
	/** @brief Colour in XYZ, intensity in W. */
	Color math.Vec4
}

/**
 * @brief The per-frame global uniform. Bytes produces the exact layout
 * bound at set 0, binding 0 of every pipeline.
 */
type GlobalUbo struct {
	Projection  math.Mat4
	View        math.Mat4
	InverseView math.Mat4
	/** @brief Colour in XYZ, intensity in W. */
	AmbientLightColor math.Vec4
	PointLights       [MaxLights]PointLight
	NumLights         int32
}

// NewGlobalUbo returns a uniform with identity matrices and a faint white
// ambient light.
func NewGlobalUbo() GlobalUbo {
	return GlobalUbo{
		Projection:        math.NewMat4Identity(),
		View:              math.NewMat4Identity(),
		InverseView:       math.NewMat4Identity(),
		AmbientLightColor: math.NewVec4(1, 1, 1, 0.02),
	}
}

// Bytes packs the uniform little-endian with no padding between fields.
func (u *GlobalUbo) Bytes() []byte {
	out, err := binary.Append(make([]byte, 0, GlobalUboSize), binary.LittleEndian, u)
	if err != nil {
		// Every field is fixed size, so encoding cannot fail.
		panic(fmt.Sprintf("global ubo encoding: %s", err))
	}
	return out
}
