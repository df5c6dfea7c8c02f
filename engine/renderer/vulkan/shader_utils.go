package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage wraps SPIR-V words in a shader module whose entry point is
// "main".
func NewShaderStage(device Device, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("empty SPIR-V code for shader stage %d", stage)
	}
	handle, err := device.CreateShaderModule(code)
	if err != nil {
		err = fmt.Errorf("failed to create shader module: %w", err)
		core.LogError(err.Error())
		return nil, err
	}

	s := &VulkanShaderStage{Handle: handle}
	s.ShaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	s.ShaderStageCreateInfo.Stage = stage
	s.ShaderStageCreateInfo.Module = handle
	s.ShaderStageCreateInfo.PName = VulkanSafeString("main")
	return s, nil
}

// Destroy may be called as soon as the pipelines using the stage exist.
func (s *VulkanShaderStage) Destroy(device Device) {
	if s.Handle != nil {
		device.DestroyShaderModule(s.Handle)
		s.Handle = nil
	}
}
