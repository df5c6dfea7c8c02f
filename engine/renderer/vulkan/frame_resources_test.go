package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

func TestFrameResourcesOnePerSlot(t *testing.T) {
	dev := vulkantest.NewDevice()
	fr, err := vulkan.NewFrameResources(dev, 100)
	require.NoError(t, err)
	defer fr.Destroy()

	assert.NotNil(t, fr.SetLayout().Handle)
	assert.False(t, vulkantest.SameHandle(fr.DescriptorSet(0), fr.DescriptorSet(1)))
	for i := 0; i < vulkan.MaxFramesInFlight; i++ {
		b := fr.UniformBuffer(i)
		assert.True(t, b.IsMapped())
		assert.Equal(t, vk.DeviceSize(256), b.AlignmentSize())
	}
	assert.False(t, vulkantest.SameHandle(fr.UniformBuffer(0).Handle, fr.UniformBuffer(1).Handle))
	assert.Len(t, dev.DescriptorWrites(), vulkan.MaxFramesInFlight)
}

func TestFrameResourcesWrite(t *testing.T) {
	dev := vulkantest.NewDevice()
	fr, err := vulkan.NewFrameResources(dev, vk.DeviceSize(metadata.GlobalUboSize))
	require.NoError(t, err)
	defer fr.Destroy()

	ubo := metadata.NewGlobalUbo()
	ubo.NumLights = 2
	require.NoError(t, fr.Write(1, ubo.Bytes()))

	written := dev.Memory(fr.UniformBuffer(1).Memory)
	assert.Equal(t, ubo.Bytes(), written[:metadata.GlobalUboSize])
	assert.Equal(t, make([]byte, metadata.GlobalUboSize), dev.Memory(fr.UniformBuffer(0).Memory)[:metadata.GlobalUboSize])
	assert.Equal(t, 1, dev.Count("FlushMappedMemory"))

	assert.Error(t, fr.Write(vulkan.MaxFramesInFlight, ubo.Bytes()))
	assert.Error(t, fr.Write(-1, ubo.Bytes()))
}

func TestFrameResourcesDestroy(t *testing.T) {
	dev := vulkantest.NewDevice()
	fr, err := vulkan.NewFrameResources(dev, 64)
	require.NoError(t, err)

	fr.Destroy()
	assert.Empty(t, dev.Live())
	fr.Destroy()
}
