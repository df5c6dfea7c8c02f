package vulkan

import (
	vk "github.com/goki/vulkan"
)

// MaxFramesInFlight bounds how many frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// PresentationSurface is the window the swapchain presents into.
type PresentationSurface interface {
	// Extent is the current drawable size in pixels.
	Extent() vk.Extent2D
	WasResized() bool
	ResetResizedFlag()
	// WaitEvents blocks until the platform delivers at least one event.
	WaitEvents()
}

// SurfaceFactory creates the platform surface during device creation.
type SurfaceFactory interface {
	CreateWindowSurface(instance vk.Instance) (vk.Surface, error)
	RequiredInstanceExtensions() []string
}

type SwapchainSupportDetails struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type QueueFamilyIndices struct {
	GraphicsFamily    uint32
	PresentFamily     uint32
	HasGraphicsFamily bool
	HasPresentFamily  bool
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.HasGraphicsFamily && q.HasPresentFamily
}

// CommandRecorder records commands into a command buffer.
type CommandRecorder interface {
	BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(cb vk.CommandBuffer) error
	CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(cb vk.CommandBuffer)
	CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport)
	CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D)
	CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet)
	CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// Device owns the logical GPU connection, the graphics command pool and the
// queues. Every GPU object the renderer creates goes through it.
type Device interface {
	CommandRecorder

	SwapchainSupport() (SwapchainSupportDetails, error)
	QueueFamilies() QueueFamilyIndices
	Surface() vk.Surface
	MinUniformBufferOffsetAlignment() vk.DeviceSize
	FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error)
	FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error)
	WaitIdle() error

	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(swapchain vk.Swapchain)
	GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)
	QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(info *vk.PresentInfo) vk.Result

	CreateImageWithInfo(info *vk.ImageCreateInfo, properties vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error)
	DestroyImage(image vk.Image)
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(framebuffer vk.Framebuffer)

	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	WaitForFence(fence vk.Fence, timeout uint64) vk.Result
	ResetFence(fence vk.Fence) vk.Result

	AllocateCommandBuffers(count uint32) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(buffers []vk.CommandBuffer)

	CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error)
	DestroyBuffer(buffer vk.Buffer)
	FreeMemory(memory vk.DeviceMemory)
	MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, error)
	UnmapMemory(memory vk.DeviceMemory)
	FlushMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error
	InvalidateMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error
	CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error

	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result)
	FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) error
	ResetDescriptorPool(pool vk.DescriptorPool) error
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	CreateShaderModule(code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)
}
