package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// FrameResources holds the uniform buffer and global descriptor set of every
// frame in flight slot. A slot may only be written after its fence has been
// observed signaled, which BeginFrame guarantees for the returned frame index.
type FrameResources struct {
	device Device

	setLayout      *DescriptorSetLayout
	pool           *DescriptorPool
	uniformBuffers []*Buffer
	descriptorSets []vk.DescriptorSet
}

// NewFrameResources creates MaxFramesInFlight mapped uniform buffers of
// uniformSize bytes, each bound at binding 0 of its own descriptor set.
func NewFrameResources(device Device, uniformSize vk.DeviceSize) (*FrameResources, error) {
	fr := &FrameResources{device: device}

	layout, err := NewDescriptorSetLayout(device, LayoutBinding(
		0,
		vk.DescriptorTypeUniformBuffer,
		vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
		1,
	))
	if err != nil {
		return nil, err
	}
	fr.setLayout = layout

	pool, err := NewDescriptorPool(device, DescriptorPoolConfig{
		MaxSets: MaxFramesInFlight,
		PoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: MaxFramesInFlight},
		},
	})
	if err != nil {
		fr.Destroy()
		return nil, err
	}
	fr.pool = pool

	for i := 0; i < MaxFramesInFlight; i++ {
		buffer, err := NewBuffer(
			device,
			uniformSize,
			1,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
			device.MinUniformBufferOffsetAlignment(),
		)
		if err != nil {
			fr.Destroy()
			return nil, err
		}
		fr.uniformBuffers = append(fr.uniformBuffers, buffer)
		if err := buffer.Map(WholeSize, 0); err != nil {
			fr.Destroy()
			return nil, err
		}

		set, ok, err := NewDescriptorWriter(layout, pool).
			WriteBuffer(0, buffer.DescriptorInfo(WholeSize, 0)).
			Build()
		if err == nil && !ok {
			err = fmt.Errorf("global descriptor pool exhausted at frame %d", i)
		}
		if err != nil {
			core.LogError(err.Error())
			fr.Destroy()
			return nil, err
		}
		fr.descriptorSets = append(fr.descriptorSets, set)
	}
	return fr, nil
}

// Write copies data into the slot's uniform buffer and flushes it. Memory is
// host visible but not necessarily coherent.
func (fr *FrameResources) Write(frameIndex int, data []byte) error {
	if frameIndex < 0 || frameIndex >= len(fr.uniformBuffers) {
		return fmt.Errorf("frame index %d out of range", frameIndex)
	}
	buffer := fr.uniformBuffers[frameIndex]
	if err := buffer.WriteToBuffer(data, WholeSize, 0); err != nil {
		return err
	}
	return buffer.Flush(WholeSize, 0)
}

func (fr *FrameResources) DescriptorSet(frameIndex int) vk.DescriptorSet {
	return fr.descriptorSets[frameIndex]
}

func (fr *FrameResources) SetLayout() *DescriptorSetLayout {
	return fr.setLayout
}

func (fr *FrameResources) UniformBuffer(frameIndex int) *Buffer {
	return fr.uniformBuffers[frameIndex]
}

// Destroy releases the buffers, then the pool (and with it the sets), then
// the layout.
func (fr *FrameResources) Destroy() {
	for _, b := range fr.uniformBuffers {
		b.Destroy()
	}
	fr.uniformBuffers = nil
	fr.descriptorSets = nil
	if fr.pool != nil {
		fr.pool.Destroy()
		fr.pool = nil
	}
	if fr.setLayout != nil {
		fr.setLayout.Destroy()
		fr.setLayout = nil
	}
}
