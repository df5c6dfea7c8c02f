package vulkan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

func TestFenceWaitCachesSignal(t *testing.T) {
	dev := vulkantest.NewDevice()
	fence, err := vulkan.NewFence(dev, true)
	require.NoError(t, err)
	defer fence.Destroy(dev)

	require.NoError(t, fence.WaitForever(dev))
	assert.Zero(t, dev.Count("WaitForFence"))
}

func TestFenceResetIgnoresCache(t *testing.T) {
	dev := vulkantest.NewDevice()
	fence, err := vulkan.NewFence(dev, false)
	require.NoError(t, err)
	defer fence.Destroy(dev)

	// Never waited on, so only the driver knows its state.
	require.NoError(t, fence.Reset(dev))
	require.NoError(t, fence.Reset(dev))
	assert.Equal(t, 2, dev.Count("ResetFence"))
	assert.False(t, fence.IsSignaled)
}
