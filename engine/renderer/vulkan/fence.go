package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

// VulkanFence caches whether the fence is known to be signaled so repeated
// waits on an already observed fence skip the driver call.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device Device, createSignaled bool) (*VulkanFence, error) {
	handle, err := device.CreateFence(createSignaled)
	if err != nil {
		err = fmt.Errorf("failed to create fence: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) Destroy(device Device) {
	if vf.Handle != nil {
		device.DestroyFence(vf.Handle)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled. Only device loss and out of memory
// results are errors; a timeout returns false.
func (vf *VulkanFence) Wait(device Device, timeoutNs uint64) (bool, error) {
	if vf.IsSignaled {
		return true, nil
	}
	result := device.WaitForFence(vf.Handle, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true, nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return false, nil
	default:
		err := resultError("vk_fence_wait", result)
		core.LogError(err.Error())
		return false, err
	}
}

// WaitForever waits with the "no timeout" sentinel.
func (vf *VulkanFence) WaitForever(device Device) error {
	_, err := vf.Wait(device, math.MaxUint64)
	return err
}

// Reset always calls the driver. The cache only records signals a wait has
// observed.
func (vf *VulkanFence) Reset(device Device) error {
	if res := device.ResetFence(vf.Handle); res != vk.Success {
		err := resultError("failed to reset fence", res)
		core.LogError(err.Error())
		return err
	}
	vf.IsSignaled = false
	return nil
}
