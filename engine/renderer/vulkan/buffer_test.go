package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

var hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)

func newUniformBuffer(t *testing.T, dev *vulkantest.Device, size vk.DeviceSize, count uint32, alignment vk.DeviceSize) *vulkan.Buffer {
	t.Helper()
	b, err := vulkan.NewBuffer(dev, size, count, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, alignment)
	require.NoError(t, err)
	t.Cleanup(b.Destroy)
	return b
}

func TestBufferAlignment(t *testing.T) {
	dev := vulkantest.NewDevice()

	aligned := newUniformBuffer(t, dev, 100, 3, 256)
	assert.Equal(t, vk.DeviceSize(256), aligned.AlignmentSize())
	assert.Equal(t, vk.DeviceSize(768), aligned.BufferSize())
	assert.Equal(t, vk.DeviceSize(100), aligned.InstanceSize())
	assert.Equal(t, uint32(3), aligned.InstanceCount())

	packed := newUniformBuffer(t, dev, 100, 3, 0)
	assert.Equal(t, vk.DeviceSize(100), packed.AlignmentSize())
	assert.Equal(t, vk.DeviceSize(300), packed.BufferSize())

	exact := newUniformBuffer(t, dev, 64, 2, 64)
	assert.Equal(t, vk.DeviceSize(64), exact.AlignmentSize())
}

func TestBufferRejectsEmptySizes(t *testing.T) {
	dev := vulkantest.NewDevice()
	_, err := vulkan.NewBuffer(dev, 0, 1, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, 1)
	assert.Error(t, err)
	_, err = vulkan.NewBuffer(dev, 16, 0, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, 1)
	assert.Error(t, err)
	assert.Empty(t, dev.Live())
}

func TestBufferWriteToIndex(t *testing.T) {
	dev := vulkantest.NewDevice()
	b := newUniformBuffer(t, dev, 4, 3, 256)

	assert.Error(t, b.WriteToIndex([]byte{1, 2, 3, 4}, 0), "unmapped buffer")
	require.NoError(t, b.Map(vulkan.WholeSize, 0))
	assert.True(t, b.IsMapped())
	assert.Len(t, b.MappedMemory(), 768)

	require.NoError(t, b.WriteToIndex([]byte{1, 2, 3, 4}, 1))
	require.NoError(t, b.FlushIndex(1))
	memory := dev.Memory(b.Memory)
	assert.Equal(t, []byte{1, 2, 3, 4}, memory[256:260])
	assert.Equal(t, []byte{0, 0, 0, 0}, memory[0:4])

	assert.Error(t, b.WriteToIndex([]byte{1, 2, 3, 4}, 3))

	info := b.DescriptorInfoForIndex(2)
	assert.True(t, vulkantest.SameHandle(b.Handle, info.Buffer))
	assert.Equal(t, vk.DeviceSize(512), info.Offset)
	assert.Equal(t, vk.DeviceSize(256), info.Range)
}

func TestBufferWriteBounds(t *testing.T) {
	dev := vulkantest.NewDevice()
	b := newUniformBuffer(t, dev, 16, 1, 0)

	assert.Error(t, b.Map(8, 12))
	require.NoError(t, b.Map(vulkan.WholeSize, 0))

	assert.Error(t, b.WriteToBuffer(make([]byte, 17), vulkan.WholeSize, 0))
	assert.Error(t, b.WriteToBuffer(make([]byte, 4), 8, 0), "fewer bytes than size")
	assert.Error(t, b.WriteToBuffer(make([]byte, 8), 8, 12))

	require.NoError(t, b.WriteToBuffer([]byte{9, 9}, 2, 14))
	assert.Equal(t, []byte{9, 9}, dev.Memory(b.Memory)[14:16])
}

func TestBufferDestroyUnmapsAndFrees(t *testing.T) {
	dev := vulkantest.NewDevice()
	b, err := vulkan.NewBuffer(dev, 16, 1, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, 1)
	require.NoError(t, err)
	require.NoError(t, b.Map(vulkan.WholeSize, 0))

	b.Destroy()
	assert.False(t, b.IsMapped())
	assert.Equal(t, 1, dev.Count("UnmapMemory"))
	assert.Empty(t, dev.Live())

	// Safe to repeat.
	b.Destroy()
	assert.Equal(t, 1, dev.Count("DestroyBuffer"))
}
