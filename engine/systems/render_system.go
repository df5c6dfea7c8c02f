package systems

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/scene"
)

// SimplePushConstantSize is a model matrix followed by a normal matrix.
const SimplePushConstantSize = 2 * 64

type simplePushConstantData struct {
	ModelMatrix  math.Mat4
	NormalMatrix math.Mat4
}

// RenderSystem draws every game object that has a model.
type RenderSystem struct {
	device          vulkan.Device
	globalSetLayout vk.DescriptorSetLayout
	pipeline        *vulkan.VulkanPipeline
}

func NewRenderSystem(device vulkan.Device, renderPass *vulkan.VulkanRenderpass, globalSetLayout vk.DescriptorSetLayout, program *assets.ShaderProgram) (*RenderSystem, error) {
	rs := &RenderSystem{
		device:          device,
		globalSetLayout: globalSetLayout,
	}
	if err := rs.Reload(renderPass, program); err != nil {
		return nil, err
	}
	return rs, nil
}

// Reload rebuilds the pipeline from new shader code. The previous pipeline is
// only released once the new one exists, and must not be in use on the GPU.
func (rs *RenderSystem) Reload(renderPass *vulkan.VulkanRenderpass, program *assets.ShaderProgram) error {
	pipeline, err := buildPipeline(rs.device, renderPass, rs.globalSetLayout, program, func(config *vulkan.VulkanPipelineConfig) {
		config.BindingDescriptions = scene.VertexBindingDescriptions()
		config.Attributes = scene.VertexAttributeDescriptions()
		config.PushConstantRanges = []*metadata.MemoryRange{{Offset: 0, Size: SimplePushConstantSize}}
	})
	if err != nil {
		core.LogError("failed to create render system pipeline: %s", err)
		return err
	}
	if rs.pipeline != nil {
		rs.pipeline.Destroy()
	}
	rs.pipeline = pipeline
	return nil
}

// RenderGameObjects records one draw per model, in object id order.
func (rs *RenderSystem) RenderGameObjects(frameInfo *FrameInfo) {
	cb := frameInfo.CommandBuffer
	rs.pipeline.Bind(rs.device, cb)
	rs.device.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, rs.pipeline.PipelineLayout, 0, []vk.DescriptorSet{frameInfo.GlobalDescriptorSet})

	buf := make([]byte, 0, SimplePushConstantSize)
	for _, id := range frameInfo.GameObjects.SortedIDs() {
		obj := frameInfo.GameObjects[id]
		if obj.Model == nil {
			continue
		}
		push := simplePushConstantData{
			ModelMatrix:  obj.Transform.Mat4(),
			NormalMatrix: obj.Transform.NormalMatrix(),
		}
		data, err := binary.Append(buf[:0], binary.LittleEndian, &push)
		if err != nil {
			core.LogError("failed to encode push constants for object %d: %s", id, err)
			continue
		}
		rs.device.CmdPushConstants(cb, rs.pipeline.PipelineLayout, pushStages, 0, data)
		obj.Model.Bind(rs.device, cb)
		obj.Model.Draw(rs.device, cb)
	}
}

func (rs *RenderSystem) Destroy() {
	if rs.pipeline != nil {
		rs.pipeline.Destroy()
		rs.pipeline = nil
	}
}
