package vulkantest

import (
	vk "github.com/goki/vulkan"
)

func (d *Device) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BeginCommandBuffer")
	delete(d.lastPush, cb)
	delete(d.lastSets, cb)
	return nil
}

func (d *Device) EndCommandBuffer(cb vk.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("EndCommandBuffer")
	return nil
}

func (d *Device) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdBeginRenderPass")
}

func (d *Device) CmdEndRenderPass(cb vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdEndRenderPass")
}

func (d *Device) CmdSetViewport(cb vk.CommandBuffer, first uint32, viewports []vk.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdSetViewport")
}

func (d *Device) CmdSetScissor(cb vk.CommandBuffer, first uint32, scissors []vk.Rect2D) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdSetScissor")
}

func (d *Device) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdBindPipeline")
}

func (d *Device) CmdBindDescriptorSets(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdBindDescriptorSets")
	d.lastSets[cb] = append([]vk.DescriptorSet(nil), sets...)
}

func (d *Device) CmdPushConstants(cb vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdPushConstants")
	d.lastPush[cb] = append([]byte(nil), data...)
}

func (d *Device) CmdBindVertexBuffers(cb vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdBindVertexBuffers")
}

func (d *Device) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdBindIndexBuffer")
}

func (d *Device) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdDraw")
	d.draws = append(d.draws, DrawCall{
		CommandBuffer:  cb,
		Count:          vertexCount,
		InstanceCount:  instanceCount,
		PushConstants:  d.lastPush[cb],
		DescriptorSets: d.lastSets[cb],
	})
}

func (d *Device) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CmdDrawIndexed")
	d.draws = append(d.draws, DrawCall{
		CommandBuffer:  cb,
		Indexed:        true,
		Count:          indexCount,
		InstanceCount:  instanceCount,
		PushConstants:  d.lastPush[cb],
		DescriptorSets: d.lastSets[cb],
	})
}
