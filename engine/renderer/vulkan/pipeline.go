package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	device Device
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	Subpass    uint32
	/** @brief Vertex buffer bindings. Empty for pipelines that generate their vertices. */
	BindingDescriptions []vk.VertexInputBindingDescription
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief An array of descriptor set layouts. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief An array of stages. */
	Stages []*VulkanShaderStage
	/** @brief The face cull mode. */
	CullMode metadata.FaceCullMode
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	/** @brief The shader flags used for creating the pipeline. */
	ShaderFlags metadata.ShaderFlags
	/** @brief An array of push constant data ranges. */
	PushConstantRanges []*metadata.MemoryRange
}

// DefaultPipelineConfig is an opaque, depth tested triangle list pipeline with
// no culling.
func DefaultPipelineConfig(renderpass *VulkanRenderpass) *VulkanPipelineConfig {
	return &VulkanPipelineConfig{
		Renderpass:  renderpass,
		CullMode:    metadata.FaceCullModeNone,
		ShaderFlags: metadata.SHADER_FLAG_DEPTH_TEST | metadata.SHADER_FLAG_DEPTH_WRITE,
	}
}

func (c *VulkanPipelineConfig) EnableAlphaBlending() {
	c.ShaderFlags |= metadata.SHADER_FLAG_ALPHA_BLEND
}

func NewGraphicsPipeline(device Device, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	if config.Renderpass == nil || config.Renderpass.Handle == nil {
		return nil, fmt.Errorf("cannot create graphics pipeline: no render pass provided in config")
	}
	if len(config.Stages) == 0 {
		return nil, fmt.Errorf("cannot create graphics pipeline: no shader stages provided in config")
	}

	outPipeline := &VulkanPipeline{device: device}

	// Viewport and scissor are dynamic; only the counts are baked in.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeLine,
		LineWidth:               1.0,
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
		DepthBiasConstantFactor: 0.0,
		DepthBiasClamp:          0.0,
		DepthBiasSlopeFactor:    0.0,
	}
	if !config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeFill
	}
	switch config.CullMode {
	case metadata.FaceCullModeNone:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		fallthrough
	case metadata.FaceCullModeBack:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
		MinDepthBounds:    0.0,
		MaxDepthBounds:    1.0,
	}
	if (config.ShaderFlags & metadata.SHADER_FLAG_DEPTH_TEST) != 0 {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
		depthStencil.DepthBoundsTestEnable = vk.False
	}
	if (config.ShaderFlags & metadata.SHADER_FLAG_DEPTH_WRITE) != 0 {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if (config.ShaderFlags & metadata.SHADER_FLAG_ALPHA_BLEND) != 0 {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorZero
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}

	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.BindingDescriptions)),
		PVertexBindingDescriptions:      config.BindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	layout, err := NewPipelineLayout(device, config.DescriptorSetLayouts, config.PushConstantRanges)
	if err != nil {
		return nil, err
	}
	outPipeline.PipelineLayout = layout

	stages := make([]vk.PipelineShaderStageCreateInfo, len(config.Stages))
	for i, s := range config.Stages {
		stages[i] = s.ShaderStageCreateInfo
	}

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             config.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handle, err := device.CreateGraphicsPipeline(&pipelineCreateInfo)
	if err != nil {
		outPipeline.Destroy()
		err = fmt.Errorf("failed to create graphics pipeline: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	outPipeline.Handle = handle

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

// NewPipelineLayout builds a layout whose push constant ranges are visible to
// the vertex and fragment stages.
func NewPipelineLayout(device Device, setLayouts []vk.DescriptorSetLayout, pushConstantRanges []*metadata.MemoryRange) (vk.PipelineLayout, error) {
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}

	// Push constants
	if len(pushConstantRanges) > 0 {
		// NOTE: 32 is the max number of ranges we can ever have, since only 128 bytes with 4-byte alignment are guaranteed.
		if len(pushConstantRanges) > 32 {
			err := fmt.Errorf("cannot have more than 32 push constant ranges. Passed count: %d", len(pushConstantRanges))
			core.LogError(err.Error())
			return nil, err
		}

		ranges := make([]vk.PushConstantRange, len(pushConstantRanges))
		for i := 0; i < len(pushConstantRanges); i++ {
			ranges[i].StageFlags = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
			ranges[i].Offset = uint32(pushConstantRanges[i].Offset)
			ranges[i].Size = uint32(pushConstantRanges[i].Size)
		}
		pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(ranges))
		pipelineLayoutCreateInfo.PPushConstantRanges = ranges
	}

	layout, err := device.CreatePipelineLayout(&pipelineLayoutCreateInfo)
	if err != nil {
		err = fmt.Errorf("failed to create pipeline layout: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func (pipeline *VulkanPipeline) Destroy() {
	if pipeline.Handle != nil {
		pipeline.device.DestroyPipeline(pipeline.Handle)
		pipeline.Handle = nil
	}
	if pipeline.PipelineLayout != nil {
		pipeline.device.DestroyPipelineLayout(pipeline.PipelineLayout)
		pipeline.PipelineLayout = nil
	}
}

func (pipeline *VulkanPipeline) Bind(recorder CommandRecorder, commandBuffer vk.CommandBuffer) {
	recorder.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, pipeline.Handle)
}
