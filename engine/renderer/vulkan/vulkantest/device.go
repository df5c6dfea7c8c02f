// Package vulkantest provides an in-memory Device and PresentationSurface for
// exercising the renderer without a GPU.
package vulkantest

// #include <stdlib.h>
import "C"

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// DrawCall is one recorded CmdDraw or CmdDrawIndexed.
type DrawCall struct {
	CommandBuffer vk.CommandBuffer
	Indexed       bool
	Count         uint32
	InstanceCount uint32
	// PushConstants holds the bytes pushed most recently before the draw.
	PushConstants []byte
	// DescriptorSets bound most recently before the draw.
	DescriptorSets []vk.DescriptorSet
}

type fenceState struct {
	signaled bool
}

type poolState struct {
	maxSets   uint32
	allocated uint32
}

type swapchainState struct {
	images []vk.Image
	next   uint32
}

// Device records every call and keeps just enough state to behave like a
// driver: fences block until signaled, descriptor pools run out, memory can be
// mapped and buffers copied.
type Device struct {
	mu   sync.Mutex
	cond *sync.Cond

	Support      vulkan.SwapchainSupportDetails
	Families     vulkan.QueueFamilyIndices
	DepthFormats []vk.Format
	// Images created in addition to the requested minimum.
	ExtraImages         uint32
	UniformAlignment    vk.DeviceSize
	FailCreateSwapchain error
	// FailFlush is returned by FlushMappedMemory while set.
	FailFlush error
	// AutoSignal signals a submitted fence immediately. When false the fence
	// stays pending until SignalFences.
	AutoSignal bool

	acquireResults []vk.Result
	imageIndices   []uint32
	presentResults []vk.Result
	lost           bool

	calls         []string
	draws         []DrawCall
	submits       int
	presents      int
	lastPush      map[vk.CommandBuffer][]byte
	lastSets      map[vk.CommandBuffer][]vk.DescriptorSet
	updateWrites  []vk.WriteDescriptorSet
	fences        map[vk.Fence]*fenceState
	pendingFences []vk.Fence
	pools         map[vk.DescriptorPool]*poolState
	swapchains    map[vk.Swapchain]*swapchainState
	memory        map[vk.DeviceMemory][]byte
	bufferMemory  map[vk.Buffer]vk.DeviceMemory
	mapped        map[vk.DeviceMemory]bool
	live          map[unsafe.Pointer]string
}

var _ vulkan.Device = (*Device)(nil)

// NewDevice returns a device with a single queue family, an 800x600 capable
// surface offering BGRA sRGB, FIFO and mailbox, and every depth format.
func NewDevice() *Device {
	d := &Device{
		Support: vulkan.SwapchainSupportDetails{
			Capabilities: vk.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  8,
				CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []vk.SurfaceFormat{
				{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
				{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		},
		Families: vulkan.QueueFamilyIndices{
			HasGraphicsFamily: true,
			HasPresentFamily:  true,
		},
		DepthFormats: []vk.Format{
			vk.FormatD32SfloatS8Uint,
			vk.FormatD24UnormS8Uint,
			vk.FormatD32Sfloat,
		},
		UniformAlignment: 256,
		AutoSignal:       true,
		lastPush:         make(map[vk.CommandBuffer][]byte),
		lastSets:         make(map[vk.CommandBuffer][]vk.DescriptorSet),
		fences:           make(map[vk.Fence]*fenceState),
		pools:            make(map[vk.DescriptorPool]*poolState),
		swapchains:       make(map[vk.Swapchain]*swapchainState),
		memory:           make(map[vk.DeviceMemory][]byte),
		bufferMemory:     make(map[vk.Buffer]vk.DeviceMemory),
		mapped:           make(map[vk.DeviceMemory]bool),
		live:             make(map[unsafe.Pointer]string),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// newHandle returns a unique non-nil handle. The memory comes from the C
// heap: goki handle types point at incomplete C structs, and reflect refuses
// such pointers when they point into the Go heap.
func newHandle() unsafe.Pointer {
	return unsafe.Pointer(C.calloc(1, 8))
}

// SameHandle reports whether two handles of the same type are identical.
// Handles carry no data, so they must be compared by address.
func SameHandle(a, b any) bool {
	return a == b
}

// record must be called with mu held.
func (d *Device) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *Device) track(h unsafe.Pointer, kind string) {
	d.live[h] = kind
}

func (d *Device) untrack(h unsafe.Pointer) {
	delete(d.live, h)
}

// QueueAcquireResults scripts the results of upcoming acquires. Once drained
// acquires succeed.
func (d *Device) QueueAcquireResults(results ...vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquireResults = append(d.acquireResults, results...)
}

// QueueImageIndices scripts the image indices of upcoming successful
// acquires. Once drained images are handed out round-robin again.
func (d *Device) QueueImageIndices(indices ...uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.imageIndices = append(d.imageIndices, indices...)
}

// QueuePresentResults scripts the results of upcoming presents.
func (d *Device) QueuePresentResults(results ...vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentResults = append(d.presentResults, results...)
}

// SetAutoSignal changes AutoSignal while other goroutines may be waiting.
func (d *Device) SetAutoSignal(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AutoSignal = on
}

// SignalFences completes every pending submission.
func (d *Device) SignalFences() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.pendingFences {
		if st, ok := d.fences[f]; ok {
			st.signaled = true
		}
	}
	d.pendingFences = nil
	d.cond.Broadcast()
}

// PendingFences is the number of submissions the "GPU" has not finished.
func (d *Device) PendingFences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pendingFences)
}

// LoseDevice makes every current and future fence wait fail.
func (d *Device) LoseDevice() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
	d.cond.Broadcast()
}

// Calls returns a copy of the call log.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
	d.draws = nil
}

// Count is the number of logged calls named call.
func (d *Device) Count(call string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (d *Device) Draws() []DrawCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DrawCall(nil), d.draws...)
}

func (d *Device) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

func (d *Device) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

// DescriptorWrites returns every write passed to UpdateDescriptorSets.
func (d *Device) DescriptorWrites() []vk.WriteDescriptorSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]vk.WriteDescriptorSet(nil), d.updateWrites...)
}

// Live lists the kinds of objects created and not yet destroyed.
func (d *Device) Live() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.live))
	for _, kind := range d.live {
		out = append(out, kind)
	}
	return out
}

// Memory returns the backing bytes of an allocation.
func (d *Device) Memory(memory vk.DeviceMemory) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.memory[memory]
}

func (d *Device) SwapchainSupport() (vulkan.SwapchainSupportDetails, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SwapchainSupport")
	support := d.Support
	support.Formats = append([]vk.SurfaceFormat(nil), d.Support.Formats...)
	support.PresentModes = append([]vk.PresentMode(nil), d.Support.PresentModes...)
	return support, nil
}

func (d *Device) QueueFamilies() vulkan.QueueFamilyIndices {
	return d.Families
}

func (d *Device) Surface() vk.Surface {
	return nil
}

func (d *Device) MinUniformBufferOffsetAlignment() vk.DeviceSize {
	return d.UniformAlignment
}

func (d *Device) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range candidates {
		for _, f := range d.DepthFormats {
			if c == f {
				return c, nil
			}
		}
	}
	return vk.FormatUndefined, vulkan.ErrNoSuitableFormat
}

func (d *Device) FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	return 0, nil
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WaitIdle")
	for _, f := range d.pendingFences {
		if st, ok := d.fences[f]; ok {
			st.signaled = true
		}
	}
	d.pendingFences = nil
	d.cond.Broadcast()
	return nil
}

func (d *Device) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateSwapchain")
	if d.FailCreateSwapchain != nil {
		return nil, d.FailCreateSwapchain
	}
	h := newHandle()
	st := &swapchainState{}
	for i := uint32(0); i < info.MinImageCount+d.ExtraImages; i++ {
		st.images = append(st.images, vk.Image(newHandle()))
	}
	sc := vk.Swapchain(h)
	d.swapchains[sc] = st
	d.track(h, "Swapchain")
	return sc, nil
}

func (d *Device) DestroySwapchain(swapchain vk.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroySwapchain")
	delete(d.swapchains, swapchain)
	d.untrack(unsafe.Pointer(swapchain))
}

func (d *Device) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetSwapchainImages")
	st, ok := d.swapchains[swapchain]
	if !ok {
		return nil, fmt.Errorf("unknown swapchain")
	}
	return append([]vk.Image(nil), st.images...), nil
}

func (d *Device) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AcquireNextImage")
	result := vk.Success
	if len(d.acquireResults) > 0 {
		result = d.acquireResults[0]
		d.acquireResults = d.acquireResults[1:]
	}
	st, ok := d.swapchains[swapchain]
	if !ok {
		return 0, vk.ErrorSurfaceLost
	}
	if result != vk.Success && result != vk.Suboptimal {
		return 0, result
	}
	if len(d.imageIndices) > 0 {
		index := d.imageIndices[0]
		d.imageIndices = d.imageIndices[1:]
		return index, result
	}
	index := st.next
	st.next = (st.next + 1) % uint32(len(st.images))
	return index, result
}

func (d *Device) QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("QueueSubmit")
	d.submits++
	if fence == nil {
		return vk.Success
	}
	st, ok := d.fences[fence]
	if !ok {
		return vk.ErrorInitializationFailed
	}
	if d.AutoSignal {
		st.signaled = true
	} else {
		d.pendingFences = append(d.pendingFences, fence)
	}
	d.cond.Broadcast()
	return vk.Success
}

func (d *Device) QueuePresent(info *vk.PresentInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("QueuePresent")
	d.presents++
	if len(d.presentResults) > 0 {
		result := d.presentResults[0]
		d.presentResults = d.presentResults[1:]
		return result
	}
	return vk.Success
}

func (d *Device) CreateImageWithInfo(info *vk.ImageCreateInfo, properties vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateImage")
	img, mem := newHandle(), newHandle()
	d.track(img, "Image")
	d.track(mem, "DeviceMemory")
	return vk.Image(img), vk.DeviceMemory(mem), nil
}

func (d *Device) DestroyImage(image vk.Image) {
	d.destroy("DestroyImage", unsafe.Pointer(image))
}

func (d *Device) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	return vk.ImageView(d.create("CreateImageView", "ImageView")), nil
}

func (d *Device) DestroyImageView(view vk.ImageView) {
	d.destroy("DestroyImageView", unsafe.Pointer(view))
}

func (d *Device) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	return vk.RenderPass(d.create("CreateRenderPass", "RenderPass")), nil
}

func (d *Device) DestroyRenderPass(renderPass vk.RenderPass) {
	d.destroy("DestroyRenderPass", unsafe.Pointer(renderPass))
}

func (d *Device) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	return vk.Framebuffer(d.create("CreateFramebuffer", "Framebuffer")), nil
}

func (d *Device) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	d.destroy("DestroyFramebuffer", unsafe.Pointer(framebuffer))
}

func (d *Device) CreateSemaphore() (vk.Semaphore, error) {
	return vk.Semaphore(d.create("CreateSemaphore", "Semaphore")), nil
}

func (d *Device) DestroySemaphore(semaphore vk.Semaphore) {
	d.destroy("DestroySemaphore", unsafe.Pointer(semaphore))
}

func (d *Device) CreateFence(signaled bool) (vk.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateFence")
	h := newHandle()
	d.track(h, "Fence")
	fence := vk.Fence(h)
	d.fences[fence] = &fenceState{signaled: signaled}
	return fence, nil
}

func (d *Device) DestroyFence(fence vk.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyFence")
	delete(d.fences, fence)
	d.untrack(unsafe.Pointer(fence))
}

// WaitForFence blocks until the fence is signaled. Any finite timeout is
// treated as already expired.
func (d *Device) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WaitForFence")
	for {
		if d.lost {
			return vk.ErrorDeviceLost
		}
		st, ok := d.fences[fence]
		if !ok {
			return vk.ErrorInitializationFailed
		}
		if st.signaled {
			return vk.Success
		}
		if timeout != math.MaxUint64 {
			return vk.Timeout
		}
		d.cond.Wait()
	}
}

func (d *Device) ResetFence(fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResetFence")
	st, ok := d.fences[fence]
	if !ok {
		return vk.ErrorInitializationFailed
	}
	st.signaled = false
	return vk.Success
}

func (d *Device) AllocateCommandBuffers(count uint32) ([]vk.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AllocateCommandBuffers")
	out := make([]vk.CommandBuffer, count)
	for i := range out {
		h := newHandle()
		d.track(h, "CommandBuffer")
		out[i] = vk.CommandBuffer(h)
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(buffers []vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FreeCommandBuffers")
	for _, b := range buffers {
		d.untrack(unsafe.Pointer(b))
	}
}

func (d *Device) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBuffer")
	b, m := newHandle(), newHandle()
	d.track(b, "Buffer")
	d.track(m, "DeviceMemory")
	buffer, memory := vk.Buffer(b), vk.DeviceMemory(m)
	d.memory[memory] = make([]byte, size)
	d.bufferMemory[buffer] = memory
	return buffer, memory, nil
}

func (d *Device) DestroyBuffer(buffer vk.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyBuffer")
	delete(d.bufferMemory, buffer)
	d.untrack(unsafe.Pointer(buffer))
}

func (d *Device) FreeMemory(memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FreeMemory")
	delete(d.memory, memory)
	delete(d.mapped, memory)
	d.untrack(unsafe.Pointer(memory))
}

func (d *Device) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("MapMemory")
	backing, ok := d.memory[memory]
	if !ok {
		return nil, fmt.Errorf("memory is not host visible")
	}
	if d.mapped[memory] {
		return nil, fmt.Errorf("memory already mapped")
	}
	if size == vulkan.WholeSize {
		size = vk.DeviceSize(len(backing)) - offset
	}
	if offset+size > vk.DeviceSize(len(backing)) {
		return nil, fmt.Errorf("map range exceeds allocation")
	}
	d.mapped[memory] = true
	return backing[offset : offset+size : offset+size], nil
}

func (d *Device) UnmapMemory(memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UnmapMemory")
	delete(d.mapped, memory)
}

func (d *Device) FlushMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FlushMappedMemory")
	return d.FailFlush
}

func (d *Device) InvalidateMappedMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("InvalidateMappedMemory")
	return nil
}

func (d *Device) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CopyBuffer")
	from, to := d.memory[d.bufferMemory[src]], d.memory[d.bufferMemory[dst]]
	if vk.DeviceSize(len(from)) < size || vk.DeviceSize(len(to)) < size {
		return fmt.Errorf("copy of %d bytes out of range", size)
	}
	copy(to[:size], from[:size])
	return nil
}

func (d *Device) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	return vk.DescriptorSetLayout(d.create("CreateDescriptorSetLayout", "DescriptorSetLayout")), nil
}

func (d *Device) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	d.destroy("DestroyDescriptorSetLayout", unsafe.Pointer(layout))
}

func (d *Device) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateDescriptorPool")
	h := newHandle()
	d.track(h, "DescriptorPool")
	pool := vk.DescriptorPool(h)
	d.pools[pool] = &poolState{maxSets: info.MaxSets}
	return pool, nil
}

func (d *Device) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyDescriptorPool")
	delete(d.pools, pool)
	d.untrack(unsafe.Pointer(pool))
}

// AllocateDescriptorSet fails with ErrorOutOfPoolMemory once the pool's
// MaxSets sets are live.
func (d *Device) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AllocateDescriptorSet")
	st, ok := d.pools[pool]
	if !ok {
		return nil, vk.ErrorInitializationFailed
	}
	if st.allocated >= st.maxSets {
		return nil, vk.ErrorOutOfPoolMemory
	}
	st.allocated++
	return vk.DescriptorSet(newHandle()), vk.Success
}

func (d *Device) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("FreeDescriptorSets")
	st, ok := d.pools[pool]
	if !ok {
		return fmt.Errorf("unknown descriptor pool")
	}
	n := uint32(len(sets))
	if n > st.allocated {
		n = st.allocated
	}
	st.allocated -= n
	return nil
}

func (d *Device) ResetDescriptorPool(pool vk.DescriptorPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResetDescriptorPool")
	if st, ok := d.pools[pool]; ok {
		st.allocated = 0
	}
	return nil
}

func (d *Device) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UpdateDescriptorSets")
	d.updateWrites = append(d.updateWrites, writes...)
}

func (d *Device) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	return vk.ShaderModule(d.create("CreateShaderModule", "ShaderModule")), nil
}

func (d *Device) DestroyShaderModule(module vk.ShaderModule) {
	d.destroy("DestroyShaderModule", unsafe.Pointer(module))
}

func (d *Device) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	return vk.PipelineLayout(d.create("CreatePipelineLayout", "PipelineLayout")), nil
}

func (d *Device) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.destroy("DestroyPipelineLayout", unsafe.Pointer(layout))
}

func (d *Device) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	return vk.Pipeline(d.create("CreateGraphicsPipeline", "Pipeline")), nil
}

func (d *Device) DestroyPipeline(pipeline vk.Pipeline) {
	d.destroy("DestroyPipeline", unsafe.Pointer(pipeline))
}

func (d *Device) create(call, kind string) unsafe.Pointer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(call)
	h := newHandle()
	d.track(h, kind)
	return h
}

func (d *Device) destroy(call string, h unsafe.Pointer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(call)
	d.untrack(h)
}
