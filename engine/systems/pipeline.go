package systems

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// buildPipeline creates the shader stages, bakes them into a pipeline and
// releases the modules again. configure fills in everything but the stages
// and the descriptor set layouts.
func buildPipeline(
	device vulkan.Device,
	renderPass *vulkan.VulkanRenderpass,
	globalSetLayout vk.DescriptorSetLayout,
	program *assets.ShaderProgram,
	configure func(*vulkan.VulkanPipelineConfig)) (*vulkan.VulkanPipeline, error) {

	vert, err := vulkan.NewShaderStage(device, program.Vertex, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	defer vert.Destroy(device)

	frag, err := vulkan.NewShaderStage(device, program.Fragment, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	defer frag.Destroy(device)

	config := vulkan.DefaultPipelineConfig(renderPass)
	config.Stages = []*vulkan.VulkanShaderStage{vert, frag}
	config.DescriptorSetLayouts = []vk.DescriptorSetLayout{globalSetLayout}
	configure(config)

	return vulkan.NewGraphicsPipeline(device, config)
}
