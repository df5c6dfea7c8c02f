package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

func (d *VulkanDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.LogicalDevice, info, nil, &swapchain); res != vk.Success {
		return nil, resultError("vkCreateSwapchainKHR", res)
	}
	return swapchain, nil
}

func (d *VulkanDevice) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.LogicalDevice, swapchain, nil)
}

func (d *VulkanDevice) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if res := vk.GetSwapchainImages(d.LogicalDevice, swapchain, &count, nil); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.LogicalDevice, swapchain, &count, images); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	return images, nil
}

func (d *VulkanDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(d.LogicalDevice, swapchain, timeout, semaphore, vk.NullFence, &imageIndex)
	return imageIndex, res
}

func (d *VulkanDevice) QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	var res vk.Result
	d.locks.SafeQueueCall(d.queueFamilies.GraphicsFamily, func() error {
		res = vk.QueueSubmit(d.GraphicsQueue, uint32(len(submits)), submits, fence)
		return nil
	})
	return res
}

func (d *VulkanDevice) QueuePresent(info *vk.PresentInfo) vk.Result {
	var res vk.Result
	d.locks.SafeQueueCall(d.queueFamilies.PresentFamily, func() error {
		res = vk.QueuePresent(d.PresentQueue, info)
		return nil
	})
	return res
}

// CreateImageWithInfo creates an image and binds freshly allocated memory
// with the requested properties to it.
func (d *VulkanDevice) CreateImageWithInfo(info *vk.ImageCreateInfo, properties vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error) {
	var image vk.Image
	if res := vk.CreateImage(d.LogicalDevice, info, nil, &image); res != vk.Success {
		return nil, nil, resultError("vkCreateImage", res)
	}

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.LogicalDevice, image, &memRequirements)
	memRequirements.Deref()

	memory, err := d.allocate(memRequirements, properties)
	if err != nil {
		vk.DestroyImage(d.LogicalDevice, image, nil)
		return nil, nil, err
	}
	if res := vk.BindImageMemory(d.LogicalDevice, image, memory, 0); res != vk.Success {
		vk.FreeMemory(d.LogicalDevice, memory, nil)
		vk.DestroyImage(d.LogicalDevice, image, nil)
		return nil, nil, resultError("vkBindImageMemory", res)
	}
	return image, memory, nil
}

func (d *VulkanDevice) allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	memoryType, err := d.FindMemoryType(requirements.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.LogicalDevice, &allocInfo, nil, &memory); res != vk.Success {
		return nil, resultError("vkAllocateMemory", res)
	}
	return memory, nil
}

func (d *VulkanDevice) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.LogicalDevice, image, nil)
}

func (d *VulkanDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if res := vk.CreateImageView(d.LogicalDevice, info, nil, &view); res != vk.Success {
		return nil, resultError("vkCreateImageView", res)
	}
	return view, nil
}

func (d *VulkanDevice) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.LogicalDevice, view, nil)
}

func (d *VulkanDevice) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(d.LogicalDevice, info, nil, &renderPass); res != vk.Success {
		return nil, resultError("vkCreateRenderPass", res)
	}
	return renderPass, nil
}

func (d *VulkanDevice) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.LogicalDevice, renderPass, nil)
}

func (d *VulkanDevice) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(d.LogicalDevice, info, nil, &framebuffer); res != vk.Success {
		return nil, resultError("vkCreateFramebuffer", res)
	}
	return framebuffer, nil
}

func (d *VulkanDevice) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.LogicalDevice, framebuffer, nil)
}

func (d *VulkanDevice) CreateSemaphore() (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.LogicalDevice, &semaphoreCreateInfo, nil, &semaphore); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res)
	}
	return semaphore, nil
}

func (d *VulkanDevice) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.LogicalDevice, semaphore, nil)
}

func (d *VulkanDevice) CreateFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.LogicalDevice, &fenceCreateInfo, nil, &fence); res != vk.Success {
		return nil, resultError("vkCreateFence", res)
	}
	return fence, nil
}

func (d *VulkanDevice) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.LogicalDevice, fence, nil)
}

func (d *VulkanDevice) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.LogicalDevice, 1, []vk.Fence{fence}, vk.True, timeout)
}

func (d *VulkanDevice) ResetFence(fence vk.Fence) vk.Result {
	return vk.ResetFences(d.LogicalDevice, 1, []vk.Fence{fence})
}

func (d *VulkanDevice) AllocateCommandBuffers(count uint32) ([]vk.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	err := d.locks.SafeCall(CommandPoolManagement, func() error {
		return resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(d.LogicalDevice, &allocateInfo, buffers))
	})
	if err != nil {
		return nil, err
	}
	return buffers, nil
}

func (d *VulkanDevice) FreeCommandBuffers(buffers []vk.CommandBuffer) {
	d.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(d.LogicalDevice, d.GraphicsCommandPool, uint32(len(buffers)), buffers)
		return nil
	})
}

func (d *VulkanDevice) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(d.LogicalDevice, &bufferInfo, nil, &buffer); res != vk.Success {
		return nil, nil, resultError("vkCreateBuffer", res)
	}

	// Ask device about its memory requirements.
	var memRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, buffer, &memRequirements)
	memRequirements.Deref()

	memory, err := d.allocate(memRequirements, properties)
	if err != nil {
		vk.DestroyBuffer(d.LogicalDevice, buffer, nil)
		return nil, nil, err
	}
	if res := vk.BindBufferMemory(d.LogicalDevice, buffer, memory, 0); res != vk.Success {
		vk.FreeMemory(d.LogicalDevice, memory, nil)
		vk.DestroyBuffer(d.LogicalDevice, buffer, nil)
		return nil, nil, resultError("vkBindBufferMemory", res)
	}
	return buffer, memory, nil
}

func (d *VulkanDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.LogicalDevice, buffer, nil)
}

func (d *VulkanDevice) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.LogicalDevice, memory, nil)
}

// MapMemory maps size bytes at offset and exposes them as a byte slice that
// stays valid until UnmapMemory.
func (d *VulkanDevice) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, error) {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(d.LogicalDevice, memory, offset, size, 0, &ptr); res != vk.Success {
		return nil, resultError("vkMapMemory", res)
	}
	return unsafe.Slice((*byte)(ptr), int(size)), nil
}

func (d *VulkanDevice) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.LogicalDevice, memory)
}

func (d *VulkanDevice) FlushMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error {
	mappedRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: memory,
		Offset: offset,
		Size:   size,
	}
	return resultError("vkFlushMappedMemoryRanges", vk.FlushMappedMemoryRanges(d.LogicalDevice, 1, []vk.MappedMemoryRange{mappedRange}))
}

func (d *VulkanDevice) InvalidateMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error {
	mappedRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: memory,
		Offset: offset,
		Size:   size,
	}
	return resultError("vkInvalidateMappedMemoryRanges", vk.InvalidateMappedMemoryRanges(d.LogicalDevice, 1, []vk.MappedMemoryRange{mappedRange}))
}

// CopyBuffer records a one time copy and waits for the graphics queue to
// finish it.
func (d *VulkanDevice) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error {
	buffers, err := d.AllocateCommandBuffers(1)
	if err != nil {
		return err
	}
	defer d.FreeCommandBuffers(buffers)
	cb := &VulkanCommandBuffer{Handle: buffers[0], State: COMMAND_BUFFER_STATE_READY}

	if err := cb.Begin(d, true, false, false); err != nil {
		return err
	}
	vk.CmdCopyBuffer(cb.Handle, src, dst, 1, []vk.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}})
	if err := cb.End(d); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	return d.locks.SafeQueueCall(d.queueFamilies.GraphicsFamily, func() error {
		if res := vk.QueueSubmit(d.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			err := fmt.Errorf("failed to submit buffer copy: %w", resultError("vkQueueSubmit", res))
			core.LogError(err.Error())
			return err
		}
		cb.UpdateSubmitted()
		return resultError("vkQueueWaitIdle", vk.QueueWaitIdle(d.GraphicsQueue))
	})
}

func (d *VulkanDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.LogicalDevice, info, nil, &layout); res != vk.Success {
		return nil, resultError("vkCreateDescriptorSetLayout", res)
	}
	return layout, nil
}

func (d *VulkanDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.LogicalDevice, layout, nil)
}

func (d *VulkanDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.LogicalDevice, info, nil, &pool); res != vk.Success {
		return nil, resultError("vkCreateDescriptorPool", res)
	}
	return pool, nil
}

func (d *VulkanDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.LogicalDevice, pool, nil)
}

func (d *VulkanDevice) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	var res vk.Result
	d.locks.SafeCall(DescriptorManagement, func() error {
		res = vk.AllocateDescriptorSets(d.LogicalDevice, &allocInfo, &set)
		return nil
	})
	return set, res
}

func (d *VulkanDevice) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) error {
	if len(sets) == 0 {
		return nil
	}
	return d.locks.SafeCall(DescriptorManagement, func() error {
		return resultError("vkFreeDescriptorSets", vk.FreeDescriptorSets(d.LogicalDevice, pool, uint32(len(sets)), &sets[0]))
	})
}

func (d *VulkanDevice) ResetDescriptorPool(pool vk.DescriptorPool) error {
	return d.locks.SafeCall(DescriptorManagement, func() error {
		return resultError("vkResetDescriptorPool", vk.ResetDescriptorPool(d.LogicalDevice, pool, 0))
	})
}

func (d *VulkanDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (d *VulkanDevice) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.LogicalDevice, &createInfo, nil, &module); res != vk.Success {
		return nil, resultError("vkCreateShaderModule", res)
	}
	return module, nil
}

func (d *VulkanDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.LogicalDevice, module, nil)
}

func (d *VulkanDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.LogicalDevice, info, nil, &layout); res != vk.Success {
		return nil, resultError("vkCreatePipelineLayout", res)
	}
	return layout, nil
}

func (d *VulkanDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.LogicalDevice, layout, nil)
}

func (d *VulkanDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.LogicalDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines)
	if res != vk.Success {
		return nil, resultError("vkCreateGraphicsPipelines", res)
	}
	return pipelines[0], nil
}

func (d *VulkanDevice) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.LogicalDevice, pipeline, nil)
}

func (d *VulkanDevice) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(cb, info))
}

func (d *VulkanDevice) EndCommandBuffer(cb vk.CommandBuffer) error {
	return resultError("vkEndCommandBuffer", vk.EndCommandBuffer(cb))
}

func (d *VulkanDevice) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(cb, info, contents)
}

func (d *VulkanDevice) CmdEndRenderPass(cb vk.CommandBuffer) {
	vk.CmdEndRenderPass(cb)
}

func (d *VulkanDevice) CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport) {
	vk.CmdSetViewport(cb, first, uint32(len(viewports)), viewports)
}

func (d *VulkanDevice) CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D) {
	vk.CmdSetScissor(cb, first, uint32(len(scissors)), scissors)
}

func (d *VulkanDevice) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cb, bindPoint, pipeline)
}

func (d *VulkanDevice) CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cb, bindPoint, layout, firstSet, uint32(len(sets)), sets, 0, nil)
}

func (d *VulkanDevice) CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cb, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *VulkanDevice) CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cb, firstBinding, uint32(len(buffers)), buffers, offsets)
}

func (d *VulkanDevice) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cb, buffer, offset, indexType)
}

func (d *VulkanDevice) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cb, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (d *VulkanDevice) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
