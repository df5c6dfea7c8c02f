package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// Renderer drives the per-frame acquire, record, submit and present cycle on
// top of a Swapchain, rebuilding the swapchain when the surface changes.
type Renderer struct {
	surface   PresentationSurface
	device    Device
	swapchain *Swapchain

	commandBuffers    []*VulkanCommandBuffer
	currentImageIndex uint32
	currentFrameIndex int
	isFrameStarted    bool
}

func NewRenderer(surface PresentationSurface, device Device) (*Renderer, error) {
	r := &Renderer{
		surface: surface,
		device:  device,
	}
	if err := r.recreateSwapchain(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.createCommandBuffers(); err != nil {
		r.Close()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return r, nil
}

// Close waits for the device to go idle and releases the command buffers and
// the swapchain.
func (r *Renderer) Close() {
	if r.device == nil {
		return
	}
	if err := r.device.WaitIdle(); err != nil {
		core.LogWarn("device wait idle on shutdown failed: %s", err)
	}
	FreeCommandBuffers(r.device, r.commandBuffers)
	r.commandBuffers = nil
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	r.isFrameStarted = false
}

// BeginFrame acquires the next image and starts recording into the current
// frame's command buffer. A nil command buffer with a nil error means the
// swapchain was out of date and has been rebuilt; the caller skips this frame.
func (r *Renderer) BeginFrame() (vk.CommandBuffer, error) {
	if r.isFrameStarted {
		return nil, ErrFrameInProgress
	}

	imageIndex, result, err := r.swapchain.AcquireNextImage()
	if err != nil {
		return nil, err
	}
	if result == vk.ErrorOutOfDate {
		core.LogDebug("swapchain out of date on acquire, recreating")
		if err := r.recreateSwapchain(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	r.currentImageIndex = imageIndex
	r.isFrameStarted = true

	cb := r.commandBuffers[r.currentFrameIndex]
	cb.Reset()
	if err := cb.Begin(r.device, false, false, false); err != nil {
		return nil, err
	}
	return cb.Handle, nil
}

// EndFrame finishes recording, submits and presents. The frame index advances
// even when presentation asked for a rebuild.
func (r *Renderer) EndFrame() error {
	if !r.isFrameStarted {
		return ErrFrameNotInProgress
	}
	cb := r.commandBuffers[r.currentFrameIndex]
	if cb.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return fmt.Errorf("%w: frame ended inside a render pass", ErrRenderPassState)
	}
	if err := cb.End(r.device); err != nil {
		return err
	}

	result, err := r.swapchain.SubmitCommandBuffers([]vk.CommandBuffer{cb.Handle}, r.currentImageIndex)
	cb.UpdateSubmitted()
	r.isFrameStarted = false
	r.currentFrameIndex = (r.currentFrameIndex + 1) % MaxFramesInFlight
	if err != nil {
		return err
	}

	if result == vk.ErrorOutOfDate || result == vk.Suboptimal || r.surface.WasResized() {
		r.surface.ResetResizedFlag()
		core.LogDebug("swapchain needs rebuilding after present (%s)", VulkanResultString(result, false))
		return r.recreateSwapchain()
	}
	return nil
}

// BeginSwapchainRenderPass begins the swapchain render pass on the current
// image and sets a full extent viewport and scissor.
func (r *Renderer) BeginSwapchainRenderPass(commandBuffer vk.CommandBuffer) error {
	cb, err := r.checkCommandBuffer(commandBuffer)
	if err != nil {
		return err
	}
	if cb.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return fmt.Errorf("%w: render pass already begun", ErrRenderPassState)
	}

	extent := r.swapchain.Extent()
	r.swapchain.RenderPass().Begin(r.device, commandBuffer, r.swapchain.Framebuffer(int(r.currentImageIndex)), extent)

	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	r.device.CmdSetViewport(commandBuffer, 0, []vk.Viewport{viewport})
	r.device.CmdSetScissor(commandBuffer, 0, []vk.Rect2D{scissor})

	cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	return nil
}

func (r *Renderer) EndSwapchainRenderPass(commandBuffer vk.CommandBuffer) error {
	cb, err := r.checkCommandBuffer(commandBuffer)
	if err != nil {
		return err
	}
	if cb.State != COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return fmt.Errorf("%w: no render pass to end", ErrRenderPassState)
	}
	r.swapchain.RenderPass().End(r.device, commandBuffer)
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (r *Renderer) checkCommandBuffer(commandBuffer vk.CommandBuffer) (*VulkanCommandBuffer, error) {
	if !r.isFrameStarted {
		return nil, ErrFrameNotInProgress
	}
	cb := r.commandBuffers[r.currentFrameIndex]
	if cb.Handle != commandBuffer {
		return nil, ErrCommandBufferMismatch
	}
	return cb, nil
}

// CurrentCommandBuffer is only valid while a frame is in progress.
func (r *Renderer) CurrentCommandBuffer() (vk.CommandBuffer, error) {
	if !r.isFrameStarted {
		return nil, ErrFrameNotInProgress
	}
	return r.commandBuffers[r.currentFrameIndex].Handle, nil
}

// FrameIndex is the frame in flight slot, in [0, MaxFramesInFlight). Per-frame
// resources are indexed by it.
func (r *Renderer) FrameIndex() (int, error) {
	if !r.isFrameStarted {
		return 0, ErrFrameNotInProgress
	}
	return r.currentFrameIndex, nil
}

func (r *Renderer) IsFrameInProgress() bool {
	return r.isFrameStarted
}

func (r *Renderer) AspectRatio() float32 {
	return r.swapchain.ExtentAspectRatio()
}

func (r *Renderer) SwapchainRenderPass() *VulkanRenderpass {
	return r.swapchain.RenderPass()
}

func (r *Renderer) Swapchain() *Swapchain {
	return r.swapchain
}

func (r *Renderer) ImageCount() int {
	return r.swapchain.ImageCount()
}

func (r *Renderer) createCommandBuffers() error {
	if len(r.commandBuffers) == MaxFramesInFlight {
		return nil
	}
	FreeCommandBuffers(r.device, r.commandBuffers)
	cbs, err := AllocateCommandBuffers(r.device, MaxFramesInFlight)
	if err != nil {
		return err
	}
	r.commandBuffers = cbs
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

// recreateSwapchain blocks while the surface has a zero extent (minimized),
// waits for the device to idle and builds a replacement swapchain. The
// replacement must keep the old image and depth formats.
func (r *Renderer) recreateSwapchain() error {
	extent := r.surface.Extent()
	for extent.Width == 0 || extent.Height == 0 {
		r.surface.WaitEvents()
		extent = r.surface.Extent()
	}

	if err := r.device.WaitIdle(); err != nil {
		return err
	}

	if r.swapchain == nil {
		sc, err := NewSwapchain(r.device, extent)
		if err != nil {
			return err
		}
		r.swapchain = sc
		return nil
	}

	old := r.swapchain
	next, err := NewSwapchainFrom(r.device, extent, old)
	if err != nil {
		return err
	}
	r.swapchain = next
	compatible := old.CompareSwapFormats(next)
	old.Destroy()
	if !compatible {
		err := fmt.Errorf("%w: %d/%d -> %d/%d", ErrSwapchainFormatChanged,
			old.ImageFormat(), old.DepthFormat(), next.ImageFormat(), next.DepthFormat())
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("swapchain recreated at %dx%d", extent.Width, extent.Height)
	return nil
}
