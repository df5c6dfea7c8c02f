package metadata

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

type ShaderFlags uint32

const (
	SHADER_FLAG_NONE        ShaderFlags = 0x0
	SHADER_FLAG_DEPTH_TEST  ShaderFlags = 0x1
	SHADER_FLAG_DEPTH_WRITE ShaderFlags = 0x2
	// Blend the fragment over the target using its alpha.
	SHADER_FLAG_ALPHA_BLEND ShaderFlags = 0x4
)

/** @brief A range, typically of memory */
type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}
