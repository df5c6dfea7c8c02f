package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// WholeSize selects the remainder of a buffer starting at the given offset.
const WholeSize = vk.DeviceSize(vk.WholeSize)

/**
 * @brief A buffer of instanceCount equally sized instances. Each instance
 * starts on a multiple of alignmentSize so it can be bound as a dynamic or
 * per-frame range.
 */
type Buffer struct {
	device Device

	Handle vk.Buffer
	Memory vk.DeviceMemory
	mapped []byte

	bufferSize          vk.DeviceSize
	instanceCount       uint32
	instanceSize        vk.DeviceSize
	alignmentSize       vk.DeviceSize
	usageFlags          vk.BufferUsageFlags
	memoryPropertyFlags vk.MemoryPropertyFlags
}

// NewBuffer creates the buffer and binds its memory. minOffsetAlignment is
// the device's required alignment for this usage; 1 means tightly packed.
func NewBuffer(
	device Device,
	instanceSize vk.DeviceSize,
	instanceCount uint32,
	usageFlags vk.BufferUsageFlags,
	memoryPropertyFlags vk.MemoryPropertyFlags,
	minOffsetAlignment vk.DeviceSize) (*Buffer, error) {

	if instanceSize == 0 || instanceCount == 0 {
		return nil, fmt.Errorf("buffer needs a non zero instance size and count, got %d x %d", instanceSize, instanceCount)
	}

	b := &Buffer{
		device:              device,
		instanceCount:       instanceCount,
		instanceSize:        instanceSize,
		alignmentSize:       getAlignment(instanceSize, minOffsetAlignment),
		usageFlags:          usageFlags,
		memoryPropertyFlags: memoryPropertyFlags,
	}
	b.bufferSize = b.alignmentSize * vk.DeviceSize(instanceCount)

	handle, memory, err := device.CreateBuffer(b.bufferSize, usageFlags, memoryPropertyFlags)
	if err != nil {
		err = fmt.Errorf("failed to create buffer of %d bytes: %w", b.bufferSize, err)
		core.LogError(err.Error())
		return nil, err
	}
	b.Handle = handle
	b.Memory = memory
	return b, nil
}

// getAlignment rounds instanceSize up to the next multiple of
// minOffsetAlignment, which must be zero or a power of two.
func getAlignment(instanceSize, minOffsetAlignment vk.DeviceSize) vk.DeviceSize {
	if minOffsetAlignment > 0 {
		return vk.DeviceSize(metadata.GetAligned(uint64(instanceSize), uint64(minOffsetAlignment)))
	}
	return instanceSize
}

// Map maps size bytes of the buffer starting at offset. Pass WholeSize to map
// the whole buffer.
func (b *Buffer) Map(size, offset vk.DeviceSize) error {
	if b.Handle == nil || b.Memory == nil {
		return fmt.Errorf("called map on buffer before create")
	}
	if size == WholeSize {
		size = b.bufferSize - offset
	}
	if offset+size > b.bufferSize {
		return fmt.Errorf("map range [%d, %d) exceeds buffer size %d", offset, offset+size, b.bufferSize)
	}
	mapped, err := b.device.MapMemory(b.Memory, offset, size)
	if err != nil {
		err = fmt.Errorf("failed to map buffer memory: %w", err)
		core.LogError(err.Error())
		return err
	}
	b.mapped = mapped
	return nil
}

func (b *Buffer) Unmap() {
	if b.mapped != nil {
		b.device.UnmapMemory(b.Memory)
		b.mapped = nil
	}
}

func (b *Buffer) IsMapped() bool {
	return b.mapped != nil
}

// WriteToBuffer copies data into the mapped range. With WholeSize the data is
// written at the start of the mapping, otherwise size bytes land at offset.
func (b *Buffer) WriteToBuffer(data []byte, size, offset vk.DeviceSize) error {
	if b.mapped == nil {
		return fmt.Errorf("cannot copy to unmapped buffer")
	}
	if size == WholeSize {
		if len(data) > len(b.mapped) {
			return fmt.Errorf("write of %d bytes exceeds mapped size %d", len(data), len(b.mapped))
		}
		copy(b.mapped, data)
		return nil
	}
	if vk.DeviceSize(len(data)) < size {
		return fmt.Errorf("write of %d bytes given only %d bytes of data", size, len(data))
	}
	if offset+size > vk.DeviceSize(len(b.mapped)) {
		return fmt.Errorf("write range [%d, %d) exceeds mapped size %d", offset, offset+size, len(b.mapped))
	}
	copy(b.mapped[offset:offset+size], data[:size])
	return nil
}

// Flush makes a host write visible to the device. Only required for non
// coherent memory.
func (b *Buffer) Flush(size, offset vk.DeviceSize) error {
	return b.device.FlushMappedMemory(b.Memory, offset, size)
}

// Invalidate makes a device write visible to the host. Only required for non
// coherent memory.
func (b *Buffer) Invalidate(size, offset vk.DeviceSize) error {
	return b.device.InvalidateMappedMemory(b.Memory, offset, size)
}

func (b *Buffer) DescriptorInfo(size, offset vk.DeviceSize) vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.Handle,
		Offset: offset,
		Range:  size,
	}
}

// WriteToIndex writes one instance at index * alignmentSize.
func (b *Buffer) WriteToIndex(data []byte, index uint32) error {
	if index >= b.instanceCount {
		return fmt.Errorf("instance index %d out of range (%d instances)", index, b.instanceCount)
	}
	return b.WriteToBuffer(data, b.instanceSize, vk.DeviceSize(index)*b.alignmentSize)
}

func (b *Buffer) FlushIndex(index uint32) error {
	return b.Flush(b.alignmentSize, vk.DeviceSize(index)*b.alignmentSize)
}

func (b *Buffer) DescriptorInfoForIndex(index uint32) vk.DescriptorBufferInfo {
	return b.DescriptorInfo(b.alignmentSize, vk.DeviceSize(index)*b.alignmentSize)
}

func (b *Buffer) InvalidateIndex(index uint32) error {
	return b.Invalidate(b.alignmentSize, vk.DeviceSize(index)*b.alignmentSize)
}

func (b *Buffer) MappedMemory() []byte {
	return b.mapped
}

func (b *Buffer) InstanceCount() uint32 {
	return b.instanceCount
}

func (b *Buffer) InstanceSize() vk.DeviceSize {
	return b.instanceSize
}

func (b *Buffer) AlignmentSize() vk.DeviceSize {
	return b.alignmentSize
}

func (b *Buffer) UsageFlags() vk.BufferUsageFlags {
	return b.usageFlags
}

func (b *Buffer) MemoryPropertyFlags() vk.MemoryPropertyFlags {
	return b.memoryPropertyFlags
}

func (b *Buffer) BufferSize() vk.DeviceSize {
	return b.bufferSize
}

// Destroy unmaps the buffer if needed and releases the handle and its memory.
func (b *Buffer) Destroy() {
	b.Unmap()
	if b.Handle != nil {
		b.device.DestroyBuffer(b.Handle)
		b.Handle = nil
	}
	if b.Memory != nil {
		b.device.FreeMemory(b.Memory)
		b.Memory = nil
	}
}
