package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

// Depth formats in order of preference. Formats carrying a stencil aspect come first.
var depthFormatCandidates = []vk.Format{
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
	vk.FormatD32Sfloat,
}

// Swapchain owns the presentable images, their views, one depth attachment per
// image, the render pass, one framebuffer per image and the per-slot
// synchronization objects.
type Swapchain struct {
	ID uuid.UUID

	device       Device
	handle       vk.Swapchain
	imageFormat  vk.SurfaceFormat
	depthFormat  vk.Format
	presentMode  vk.PresentMode
	extent       vk.Extent2D
	windowExtent vk.Extent2D

	images       []vk.Image
	imageViews   []vk.ImageView
	depthImages  []*VulkanImage
	renderPass   *VulkanRenderpass
	framebuffers []*VulkanFramebuffer

	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []*VulkanFence
	// Fence of the slot currently rendering into each image, nil if none.
	imagesInFlight []*VulkanFence
	currentFrame   int

	destroyed bool
}

// NewSwapchain builds a swapchain for windowExtent.
func NewSwapchain(device Device, windowExtent vk.Extent2D) (*Swapchain, error) {
	return newSwapchain(device, windowExtent, nil)
}

// NewSwapchainFrom builds a swapchain that takes over from previous. previous
// stays valid and owned by the caller, who must check CompareSwapFormats and
// then Destroy it.
func NewSwapchainFrom(device Device, windowExtent vk.Extent2D, previous *Swapchain) (*Swapchain, error) {
	return newSwapchain(device, windowExtent, previous)
}

func newSwapchain(device Device, windowExtent vk.Extent2D, previous *Swapchain) (*Swapchain, error) {
	sc := &Swapchain{
		ID:           uuid.New(),
		device:       device,
		windowExtent: windowExtent,
	}

	var oldHandle vk.Swapchain
	if previous != nil && !previous.destroyed {
		oldHandle = previous.handle
	}

	if err := sc.init(oldHandle); err != nil {
		sc.Destroy()
		return nil, err
	}

	if previous != nil {
		core.LogInfo("swapchain %s replaces %s: %dx%d, %d images",
			sc.ID, previous.ID, sc.extent.Width, sc.extent.Height, len(sc.images))
	} else {
		core.LogInfo("swapchain %s created: %dx%d, %d images",
			sc.ID, sc.extent.Width, sc.extent.Height, len(sc.images))
	}
	return sc, nil
}

func (sc *Swapchain) init(oldHandle vk.Swapchain) error {
	if err := sc.createSwapchain(oldHandle); err != nil {
		return err
	}
	if err := sc.createImageViews(); err != nil {
		return err
	}
	if err := sc.createRenderPass(); err != nil {
		return err
	}
	if err := sc.createDepthResources(); err != nil {
		return err
	}
	if err := sc.createFramebuffers(); err != nil {
		return err
	}
	return sc.createSyncObjects()
}

// ChooseSwapSurfaceFormat prefers 8 bit BGRA sRGB with the sRGB nonlinear
// colorspace and falls back to the first format offered.
func ChooseSwapSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// ChooseSwapPresentMode prefers mailbox and falls back to FIFO, which every
// implementation supports.
func ChooseSwapPresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseSwapExtent uses the surface's fixed extent when it reports one, and
// otherwise clamps desired to the allowed range.
func ChooseSwapExtent(capabilities vk.SurfaceCapabilities, desired vk.Extent2D) vk.Extent2D {
	if capabilities.CurrentExtent.Width != vk.MaxUint32 {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(desired.Width, min.Width, max.Width),
		Height: math.Clamp(desired.Height, min.Height, max.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, capped at the
// maximum when the surface has one.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func (sc *Swapchain) createSwapchain(oldHandle vk.Swapchain) error {
	support, err := sc.device.SwapchainSupport()
	if err != nil {
		err = fmt.Errorf("failed to query swapchain support: %w", err)
		core.LogError(err.Error())
		return err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		err := fmt.Errorf("surface reports no formats or present modes")
		core.LogError(err.Error())
		return err
	}

	sc.imageFormat = ChooseSwapSurfaceFormat(support.Formats)
	sc.presentMode = ChooseSwapPresentMode(support.PresentModes)
	sc.extent = ChooseSwapExtent(support.Capabilities, sc.windowExtent)
	imageCount := ChooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sc.device.Surface(),
		MinImageCount:    imageCount,
		ImageFormat:      sc.imageFormat.Format,
		ImageColorSpace:  sc.imageFormat.ColorSpace,
		ImageExtent:      sc.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      sc.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldHandle,
	}

	// Setup the queue family indices
	indices := sc.device.QueueFamilies()
	if indices.GraphicsFamily != indices.PresentFamily {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{indices.GraphicsFamily, indices.PresentFamily}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	handle, err := sc.device.CreateSwapchain(&swapchainCreateInfo)
	if err != nil {
		err = fmt.Errorf("failed to create swapchain: %w", err)
		core.LogError(err.Error())
		return err
	}
	sc.handle = handle

	// The implementation may create more images than requested.
	images, err := sc.device.GetSwapchainImages(handle)
	if err != nil {
		err = fmt.Errorf("failed to get swapchain images: %w", err)
		core.LogError(err.Error())
		return err
	}
	sc.images = images
	return nil
}

func (sc *Swapchain) createImageViews() error {
	sc.imageViews = make([]vk.ImageView, 0, len(sc.images))
	for i, image := range sc.images {
		view, err := sc.device.CreateImageView(&vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   sc.imageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			err = fmt.Errorf("failed to create image view %d: %w", i, err)
			core.LogError(err.Error())
			return err
		}
		sc.imageViews = append(sc.imageViews, view)
	}
	return nil
}

func (sc *Swapchain) createRenderPass() error {
	depthFormat, err := sc.device.FindSupportedFormat(
		depthFormatCandidates,
		vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
	)
	if err != nil {
		err = fmt.Errorf("failed to find a supported depth format: %w", err)
		core.LogError(err.Error())
		return err
	}
	sc.depthFormat = depthFormat

	renderPass, err := RenderpassCreate(sc.device, sc.imageFormat.Format, depthFormat)
	if err != nil {
		return err
	}
	sc.renderPass = renderPass
	return nil
}

func (sc *Swapchain) createDepthResources() error {
	sc.depthImages = make([]*VulkanImage, 0, len(sc.images))
	for range sc.images {
		img, err := NewDepthImage(sc.device, sc.extent.Width, sc.extent.Height, sc.depthFormat)
		if err != nil {
			return err
		}
		sc.depthImages = append(sc.depthImages, img)
	}
	return nil
}

func (sc *Swapchain) createFramebuffers() error {
	sc.framebuffers = make([]*VulkanFramebuffer, 0, len(sc.images))
	for i := range sc.images {
		attachments := []vk.ImageView{sc.imageViews[i], sc.depthImages[i].View}
		fb, err := FramebufferCreate(sc.device, sc.renderPass, sc.extent.Width, sc.extent.Height, attachments)
		if err != nil {
			return err
		}
		sc.framebuffers = append(sc.framebuffers, fb)
	}
	return nil
}

func (sc *Swapchain) createSyncObjects() error {
	sc.imageAvailableSemaphores = make([]vk.Semaphore, 0, MaxFramesInFlight)
	sc.renderFinishedSemaphores = make([]vk.Semaphore, 0, MaxFramesInFlight)
	sc.inFlightFences = make([]*VulkanFence, 0, MaxFramesInFlight)
	sc.imagesInFlight = make([]*VulkanFence, len(sc.images))

	for i := 0; i < MaxFramesInFlight; i++ {
		imageAvailable, err := sc.device.CreateSemaphore()
		if err != nil {
			err = fmt.Errorf("failed to create synchronization objects for frame %d: %w", i, err)
			core.LogError(err.Error())
			return err
		}
		sc.imageAvailableSemaphores = append(sc.imageAvailableSemaphores, imageAvailable)

		renderFinished, err := sc.device.CreateSemaphore()
		if err != nil {
			err = fmt.Errorf("failed to create synchronization objects for frame %d: %w", i, err)
			core.LogError(err.Error())
			return err
		}
		sc.renderFinishedSemaphores = append(sc.renderFinishedSemaphores, renderFinished)

		// Created signaled so the first wait on each slot returns immediately.
		fence, err := NewFence(sc.device, true)
		if err != nil {
			return err
		}
		sc.inFlightFences = append(sc.inFlightFences, fence)
	}
	return nil
}

// AcquireNextImage waits for the current slot's fence and then asks for the
// next presentable image. Success, Suboptimal and ErrorOutOfDate are returned
// without an error; anything else is fatal.
func (sc *Swapchain) AcquireNextImage() (uint32, vk.Result, error) {
	if err := sc.inFlightFences[sc.currentFrame].WaitForever(sc.device); err != nil {
		return 0, vk.ErrorDeviceLost, err
	}

	imageIndex, result := sc.device.AcquireNextImage(
		sc.handle,
		vk.MaxUint64,
		sc.imageAvailableSemaphores[sc.currentFrame],
	)
	switch result {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
		return imageIndex, result, nil
	default:
		err := fmt.Errorf("%w: %w", ErrAcquireImage, resultError("vkAcquireNextImageKHR", result))
		core.LogError(err.Error())
		return imageIndex, result, err
	}
}

// SubmitCommandBuffers submits buffers for imageIndex and presents it. The
// present result is returned as reported; the frame slot advances on every
// call.
func (sc *Swapchain) SubmitCommandBuffers(buffers []vk.CommandBuffer, imageIndex uint32) (vk.Result, error) {
	if int(imageIndex) >= len(sc.images) {
		return vk.ErrorUnknown, fmt.Errorf("image index %d out of range (%d images)", imageIndex, len(sc.images))
	}
	defer func() {
		sc.currentFrame = (sc.currentFrame + 1) % MaxFramesInFlight
	}()

	// Another slot may still be rendering into this image.
	if inFlight := sc.imagesInFlight[imageIndex]; inFlight != nil {
		if err := inFlight.WaitForever(sc.device); err != nil {
			return vk.ErrorDeviceLost, err
		}
	}
	fence := sc.inFlightFences[sc.currentFrame]
	sc.imagesInFlight[imageIndex] = fence

	if err := fence.Reset(sc.device); err != nil {
		return vk.ErrorUnknown, err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sc.imageAvailableSemaphores[sc.currentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.renderFinishedSemaphores[sc.currentFrame]},
	}
	if res := sc.device.QueueSubmit([]vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
		err := fmt.Errorf("failed to submit draw command buffer: %w", resultError("vkQueueSubmit", res))
		core.LogError(err.Error())
		return res, err
	}

	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sc.renderFinishedSemaphores[sc.currentFrame]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := sc.device.QueuePresent(&presentInfo)
	switch result {
	case vk.Success, vk.Suboptimal, vk.ErrorOutOfDate:
		return result, nil
	default:
		err := fmt.Errorf("%w: %w", ErrPresent, resultError("vkQueuePresentKHR", result))
		core.LogError(err.Error())
		return result, err
	}
}

// CompareSwapFormats reports whether both swapchains use the same color and
// depth formats, meaning render passes and pipelines built for one work with
// the other.
func (sc *Swapchain) CompareSwapFormats(other *Swapchain) bool {
	return sc.imageFormat.Format == other.imageFormat.Format &&
		sc.depthFormat == other.depthFormat
}

func (sc *Swapchain) Framebuffer(index int) vk.Framebuffer {
	return sc.framebuffers[index].Handle
}

func (sc *Swapchain) RenderPass() *VulkanRenderpass {
	return sc.renderPass
}

func (sc *Swapchain) ImageView(index int) vk.ImageView {
	return sc.imageViews[index]
}

func (sc *Swapchain) ImageCount() int {
	return len(sc.images)
}

// DepthImageCount is the number of depth attachments, one per image.
func (sc *Swapchain) DepthImageCount() int {
	return len(sc.depthImages)
}

// FramebufferCount is the number of framebuffers, one per image.
func (sc *Swapchain) FramebufferCount() int {
	return len(sc.framebuffers)
}

func (sc *Swapchain) ImageFormat() vk.Format {
	return sc.imageFormat.Format
}

func (sc *Swapchain) ColorSpace() vk.ColorSpace {
	return sc.imageFormat.ColorSpace
}

func (sc *Swapchain) DepthFormat() vk.Format {
	return sc.depthFormat
}

func (sc *Swapchain) PresentMode() vk.PresentMode {
	return sc.presentMode
}

func (sc *Swapchain) Extent() vk.Extent2D {
	return sc.extent
}

func (sc *Swapchain) Width() uint32 {
	return sc.extent.Width
}

func (sc *Swapchain) Height() uint32 {
	return sc.extent.Height
}

func (sc *Swapchain) ExtentAspectRatio() float32 {
	return float32(sc.extent.Width) / float32(sc.extent.Height)
}

// CurrentFrame is the frame in flight slot the next acquire will use.
func (sc *Swapchain) CurrentFrame() int {
	return sc.currentFrame
}

// Destroy releases everything in reverse order of creation. It is safe to call
// more than once and on a partially built swapchain.
func (sc *Swapchain) Destroy() {
	if sc.destroyed {
		return
	}
	sc.destroyed = true

	for _, fence := range sc.inFlightFences {
		fence.Destroy(sc.device)
	}
	for _, s := range sc.renderFinishedSemaphores {
		sc.device.DestroySemaphore(s)
	}
	for _, s := range sc.imageAvailableSemaphores {
		sc.device.DestroySemaphore(s)
	}
	sc.inFlightFences = nil
	sc.imagesInFlight = nil
	sc.renderFinishedSemaphores = nil
	sc.imageAvailableSemaphores = nil

	for _, fb := range sc.framebuffers {
		fb.Destroy(sc.device)
	}
	sc.framebuffers = nil

	for _, img := range sc.depthImages {
		img.Destroy(sc.device)
	}
	sc.depthImages = nil

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range sc.imageViews {
		sc.device.DestroyImageView(view)
	}
	sc.imageViews = nil

	if sc.renderPass != nil {
		sc.renderPass.Destroy(sc.device)
		sc.renderPass = nil
	}

	if sc.handle != nil {
		sc.device.DestroySwapchain(sc.handle)
		sc.handle = nil
	}
	sc.images = nil
	core.LogDebug("swapchain %s destroyed", sc.ID)
}
