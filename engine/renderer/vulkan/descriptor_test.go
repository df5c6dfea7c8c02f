package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

var allGraphics = vk.ShaderStageFlags(vk.ShaderStageAllGraphics)

func uniformLayout(t *testing.T, dev *vulkantest.Device) *vulkan.DescriptorSetLayout {
	t.Helper()
	layout, err := vulkan.NewDescriptorSetLayout(dev,
		vulkan.LayoutBinding(0, vk.DescriptorTypeUniformBuffer, allGraphics, 1),
		vulkan.LayoutBinding(1, vk.DescriptorTypeCombinedImageSampler, allGraphics, 4),
	)
	require.NoError(t, err)
	t.Cleanup(layout.Destroy)
	return layout
}

func uniformPool(t *testing.T, dev *vulkantest.Device, maxSets uint32) *vulkan.DescriptorPool {
	t.Helper()
	pool, err := vulkan.NewDescriptorPool(dev, vulkan.DescriptorPoolConfig{
		MaxSets:   maxSets,
		Flags:     vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizes: []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets}},
	})
	require.NoError(t, err)
	t.Cleanup(pool.Destroy)
	return pool
}

func TestDescriptorSetLayoutRejectsDuplicateBindings(t *testing.T) {
	dev := vulkantest.NewDevice()
	_, err := vulkan.NewDescriptorSetLayout(dev,
		vulkan.LayoutBinding(0, vk.DescriptorTypeUniformBuffer, allGraphics, 1),
		vulkan.LayoutBinding(0, vk.DescriptorTypeStorageBuffer, allGraphics, 1),
	)
	assert.ErrorIs(t, err, vulkan.ErrDuplicateBinding)
	assert.Zero(t, dev.Count("CreateDescriptorSetLayout"))
}

func TestDescriptorSetLayoutBindings(t *testing.T) {
	dev := vulkantest.NewDevice()
	layout := uniformLayout(t, dev)

	b, ok := layout.Binding(1)
	require.True(t, ok)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, b.DescriptorType)
	assert.Equal(t, uint32(4), b.DescriptorCount)

	_, ok = layout.Binding(7)
	assert.False(t, ok)
}

func TestDescriptorPoolExhaustion(t *testing.T) {
	dev := vulkantest.NewDevice()
	layout := uniformLayout(t, dev)
	pool := uniformPool(t, dev, 2)

	first, ok, err := pool.AllocateDescriptor(layout)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = pool.AllocateDescriptor(layout)
	require.NoError(t, err)
	require.True(t, ok)

	set, ok, err := pool.AllocateDescriptor(layout)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, set)

	require.NoError(t, pool.FreeDescriptors(first))
	_, ok, err = pool.AllocateDescriptor(layout)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, pool.ResetPool())
	for i := 0; i < 2; i++ {
		_, ok, err = pool.AllocateDescriptor(layout)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestDescriptorWriterBuild(t *testing.T) {
	dev := vulkantest.NewDevice()
	layout := uniformLayout(t, dev)
	pool := uniformPool(t, dev, 4)
	buffer := newUniformBuffer(t, dev, 64, 1, 256)

	set, ok, err := vulkan.NewDescriptorWriter(layout, pool).
		WriteBuffer(0, buffer.DescriptorInfo(vulkan.WholeSize, 0)).
		Build()
	require.NoError(t, err)
	require.True(t, ok)

	writes := dev.DescriptorWrites()
	require.Len(t, writes, 1)
	assert.True(t, vulkantest.SameHandle(set, writes[0].DstSet))
	assert.Equal(t, uint32(0), writes[0].DstBinding)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, writes[0].DescriptorType)
	require.Len(t, writes[0].PBufferInfo, 1)
	assert.True(t, vulkantest.SameHandle(buffer.Handle, writes[0].PBufferInfo[0].Buffer))
}

func TestDescriptorWriterRejectsBadBindings(t *testing.T) {
	dev := vulkantest.NewDevice()
	layout := uniformLayout(t, dev)
	pool := uniformPool(t, dev, 4)

	_, ok, err := vulkan.NewDescriptorWriter(layout, pool).
		WriteBuffer(5, vk.DescriptorBufferInfo{}).
		Build()
	assert.ErrorIs(t, err, vulkan.ErrUnknownBinding)
	assert.False(t, ok)

	// Binding 1 is an array of four; single writes do not fit it.
	_, _, err = vulkan.NewDescriptorWriter(layout, pool).
		WriteImage(1, vk.DescriptorImageInfo{}).
		Build()
	assert.Error(t, err)

	assert.Zero(t, dev.Count("AllocateDescriptorSet"))
	assert.Empty(t, dev.DescriptorWrites())
}

func TestDescriptorWriterExhaustedPool(t *testing.T) {
	dev := vulkantest.NewDevice()
	layout := uniformLayout(t, dev)
	pool := uniformPool(t, dev, 1)
	buffer := newUniformBuffer(t, dev, 64, 1, 256)

	writer := vulkan.NewDescriptorWriter(layout, pool).WriteBuffer(0, buffer.DescriptorInfo(vulkan.WholeSize, 0))
	_, ok, err := writer.Build()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = writer.Build()
	assert.NoError(t, err)
	assert.False(t, ok)
}
