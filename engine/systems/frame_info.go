package systems

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/scene"
)

// FrameInfo is what every draw system sees while recording one frame.
type FrameInfo struct {
	FrameIndex          int
	FrameTime           float32
	CommandBuffer       vk.CommandBuffer
	Camera              *components.Camera
	GlobalDescriptorSet vk.DescriptorSet
	GameObjects         scene.Map
}

// pushStages matches the stage mask NewPipelineLayout gives every range.
var pushStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
