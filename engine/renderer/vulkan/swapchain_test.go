package vulkan_test

import (
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

func newSwapchain(t *testing.T, dev *vulkantest.Device, width, height uint32) *vulkan.Swapchain {
	t.Helper()
	sc, err := vulkan.NewSwapchain(dev, vk.Extent2D{Width: width, Height: height})
	require.NoError(t, err)
	t.Cleanup(sc.Destroy)
	return sc
}

func indexOf(calls []string, name string) (first, last int) {
	first, last = -1, -1
	for i, c := range calls {
		if c != name {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last
}

func TestSwapchainCreation(t *testing.T) {
	dev := vulkantest.NewDevice()
	sc := newSwapchain(t, dev, 800, 600)

	assert.Equal(t, uint32(800), sc.Width())
	assert.Equal(t, uint32(600), sc.Height())
	assert.InDelta(t, 800.0/600.0, sc.ExtentAspectRatio(), 1e-6)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, sc.ImageFormat())
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, sc.ColorSpace())
	assert.Equal(t, vk.PresentModeMailbox, sc.PresentMode())
	assert.Equal(t, vk.FormatD32SfloatS8Uint, sc.DepthFormat())

	// One above the surface minimum of two.
	assert.Equal(t, 3, sc.ImageCount())
	assert.Equal(t, sc.ImageCount(), sc.DepthImageCount())
	assert.Equal(t, sc.ImageCount(), sc.FramebufferCount())
	assert.NotNil(t, sc.RenderPass().Handle)
	assert.Equal(t, 0, sc.CurrentFrame())
}

func TestSwapchainKeepsExtraImages(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.ExtraImages = 2
	sc := newSwapchain(t, dev, 800, 600)

	assert.Equal(t, 5, sc.ImageCount())
	assert.Equal(t, 5, sc.FramebufferCount())
}

func TestSwapchainUsesFixedSurfaceExtent(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	sc := newSwapchain(t, dev, 800, 600)

	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, sc.Extent())
}

func TestSwapchainClampsExtent(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.Support.Capabilities.MinImageExtent = vk.Extent2D{Width: 100, Height: 100}
	sc := newSwapchain(t, dev, 10000, 10)

	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 100}, sc.Extent())
}

func TestChooseSwapSurfaceFormat(t *testing.T) {
	unorm := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, vulkan.ChooseSwapSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}))
	assert.Equal(t, unorm, vulkan.ChooseSwapSurfaceFormat([]vk.SurfaceFormat{unorm}))
}

func TestChooseSwapPresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, vulkan.ChooseSwapPresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, vulkan.ChooseSwapPresentMode([]vk.PresentMode{vk.PresentModeImmediate}))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), vulkan.ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2}))
	assert.Equal(t, uint32(2), vulkan.ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
	assert.Equal(t, uint32(4), vulkan.ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 8}))
}

func TestSwapchainDepthFormatPreference(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.DepthFormats = []vk.Format{vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint}
	sc := newSwapchain(t, dev, 800, 600)

	assert.Equal(t, vk.FormatD24UnormS8Uint, sc.DepthFormat())
}

func TestSwapchainWithoutDepthFormatCleansUp(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.DepthFormats = nil

	_, err := vulkan.NewSwapchain(dev, vk.Extent2D{Width: 800, Height: 600})
	require.ErrorIs(t, err, vulkan.ErrNoSuitableFormat)
	assert.Empty(t, dev.Live())
}

func TestSwapchainHandoff(t *testing.T) {
	dev := vulkantest.NewDevice()
	old, err := vulkan.NewSwapchain(dev, vk.Extent2D{Width: 800, Height: 600})
	require.NoError(t, err)

	next, err := vulkan.NewSwapchainFrom(dev, vk.Extent2D{Width: 1280, Height: 720}, old)
	require.NoError(t, err)
	assert.True(t, old.CompareSwapFormats(next))
	assert.NotEqual(t, old.ID, next.ID)
	assert.Equal(t, uint32(1280), next.Width())

	old.Destroy()
	next.Destroy()
	assert.Empty(t, dev.Live())
}

func TestCompareSwapFormatsDetectsChange(t *testing.T) {
	dev := vulkantest.NewDevice()
	old := newSwapchain(t, dev, 800, 600)

	dev.Support.Formats = []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}}
	next := newSwapchain(t, dev, 800, 600)
	assert.False(t, old.CompareSwapFormats(next))

	dev.Support.Formats = []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}}
	dev.DepthFormats = []vk.Format{vk.FormatD32Sfloat}
	other := newSwapchain(t, dev, 800, 600)
	assert.False(t, old.CompareSwapFormats(other))
}

func TestSwapchainDestroyOrder(t *testing.T) {
	dev := vulkantest.NewDevice()
	sc, err := vulkan.NewSwapchain(dev, vk.Extent2D{Width: 800, Height: 600})
	require.NoError(t, err)

	dev.ResetCalls()
	sc.Destroy()
	calls := dev.Calls()

	_, lastFence := indexOf(calls, "DestroyFence")
	_, lastSemaphore := indexOf(calls, "DestroySemaphore")
	firstFramebuffer, lastFramebuffer := indexOf(calls, "DestroyFramebuffer")
	firstImage, lastImage := indexOf(calls, "DestroyImage")
	_, lastView := indexOf(calls, "DestroyImageView")
	renderPass, _ := indexOf(calls, "DestroyRenderPass")
	swapchain, _ := indexOf(calls, "DestroySwapchain")

	require.NotEqual(t, -1, firstFramebuffer)
	assert.Less(t, lastFence, firstFramebuffer)
	assert.Less(t, lastSemaphore, firstFramebuffer)
	assert.Less(t, lastFramebuffer, firstImage)
	assert.Less(t, lastImage, lastView)
	assert.Less(t, lastView, renderPass)
	assert.Less(t, renderPass, swapchain)
	assert.Empty(t, dev.Live())

	// A second call is a no-op.
	dev.ResetCalls()
	sc.Destroy()
	assert.Empty(t, dev.Calls())
}

func TestSwapchainFrameSlotsAdvance(t *testing.T) {
	dev := vulkantest.NewDevice()
	sc := newSwapchain(t, dev, 800, 600)

	for i := 0; i < 4; i++ {
		assert.Equal(t, i%vulkan.MaxFramesInFlight, sc.CurrentFrame())
		imageIndex, result, err := sc.AcquireNextImage()
		require.NoError(t, err)
		require.Equal(t, vk.Success, result)
		assert.Equal(t, uint32(i%sc.ImageCount()), imageIndex)

		result, err = sc.SubmitCommandBuffers(nil, imageIndex)
		require.NoError(t, err)
		assert.Equal(t, vk.Success, result)
	}
	assert.Equal(t, 4, dev.Submits())
	assert.Equal(t, 4, dev.Presents())
}

func TestSwapchainAcquireResults(t *testing.T) {
	dev := vulkantest.NewDevice()
	sc := newSwapchain(t, dev, 800, 600)

	dev.QueueAcquireResults(vk.ErrorOutOfDate, vk.Suboptimal, vk.ErrorSurfaceLost)

	_, result, err := sc.AcquireNextImage()
	require.NoError(t, err)
	assert.Equal(t, vk.ErrorOutOfDate, result)

	_, result, err = sc.AcquireNextImage()
	require.NoError(t, err)
	assert.Equal(t, vk.Suboptimal, result)

	_, _, err = sc.AcquireNextImage()
	assert.ErrorIs(t, err, vulkan.ErrAcquireImage)
}

func TestSwapchainPresentResults(t *testing.T) {
	dev := vulkantest.NewDevice()
	sc := newSwapchain(t, dev, 800, 600)

	dev.QueuePresentResults(vk.Suboptimal, vk.ErrorSurfaceLost)

	imageIndex, _, err := sc.AcquireNextImage()
	require.NoError(t, err)
	result, err := sc.SubmitCommandBuffers(nil, imageIndex)
	require.NoError(t, err)
	assert.Equal(t, vk.Suboptimal, result)

	imageIndex, _, err = sc.AcquireNextImage()
	require.NoError(t, err)
	_, err = sc.SubmitCommandBuffers(nil, imageIndex)
	assert.ErrorIs(t, err, vulkan.ErrPresent)

	_, err = sc.SubmitCommandBuffers(nil, 99)
	assert.Error(t, err)
}

func TestSwapchainAcquireWaitsForSlotFence(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.AutoSignal = false
	sc := newSwapchain(t, dev, 800, 600)

	// Both slots start signaled, so two frames go through.
	for i := 0; i < vulkan.MaxFramesInFlight; i++ {
		imageIndex, _, err := sc.AcquireNextImage()
		require.NoError(t, err)
		_, err = sc.SubmitCommandBuffers(nil, imageIndex)
		require.NoError(t, err)
	}
	require.Equal(t, 2, dev.PendingFences())

	done := make(chan error, 1)
	go func() {
		_, _, err := sc.AcquireNextImage()
		done <- err
	}()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	dev.SignalFences()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not resume after the fence was signaled")
	}
}

func TestSwapchainSubmitWaitsForImageStillInFlight(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.Support.Capabilities.MinImageCount = 1
	dev.AutoSignal = false
	sc := newSwapchain(t, dev, 800, 600)
	require.Equal(t, 2, sc.ImageCount())

	// The driver hands out image 0 to both frame slots.
	dev.QueueImageIndices(0, 0)

	imageIndex, _, err := sc.AcquireNextImage()
	require.NoError(t, err)
	require.Equal(t, uint32(0), imageIndex)
	_, err = sc.SubmitCommandBuffers(nil, imageIndex)
	require.NoError(t, err)

	// Slot 1 is free, so the acquire itself does not block.
	imageIndex, _, err = sc.AcquireNextImage()
	require.NoError(t, err)
	require.Equal(t, uint32(0), imageIndex)

	done := make(chan error, 1)
	go func() {
		_, err := sc.SubmitCommandBuffers(nil, imageIndex)
		done <- err
	}()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, dev.Submits())

	dev.SignalFences()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not resume after the image fence was signaled")
	}
	assert.Equal(t, 2, dev.Submits())
}

func TestSwapchainDeviceLost(t *testing.T) {
	dev := vulkantest.NewDevice()
	dev.AutoSignal = false
	sc := newSwapchain(t, dev, 800, 600)

	for i := 0; i < vulkan.MaxFramesInFlight; i++ {
		imageIndex, _, err := sc.AcquireNextImage()
		require.NoError(t, err)
		_, err = sc.SubmitCommandBuffers(nil, imageIndex)
		require.NoError(t, err)
	}
	dev.LoseDevice()

	_, _, err := sc.AcquireNextImage()
	assert.ErrorIs(t, err, vulkan.ErrDeviceLost)
}
