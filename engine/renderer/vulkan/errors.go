package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
)

var (
	ErrFrameInProgress        = errors.New("cannot begin frame while a frame is already in progress")
	ErrFrameNotInProgress     = errors.New("no frame in progress")
	ErrCommandBufferMismatch  = errors.New("command buffer does not belong to the current frame")
	ErrRenderPassState        = errors.New("render pass begin and end calls are unbalanced")
	ErrSwapchainFormatChanged = errors.New("swapchain image or depth format changed")
	ErrAcquireImage           = errors.New("failed to acquire swapchain image")
	ErrPresent                = errors.New("failed to present swapchain image")
	ErrDeviceLost             = errors.New("device lost")
	ErrNoSuitableFormat       = errors.New("no supported format")
	ErrNoSuitableMemoryType   = errors.New("no suitable memory type")
)

// VulkanError carries the raw result of a failed call.
type VulkanError struct {
	Op     string
	Result vk.Result
}

func (e *VulkanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, VulkanResultString(e.Result, false))
}

func (e *VulkanError) Unwrap() error {
	if e.Result == vk.ErrorDeviceLost {
		return ErrDeviceLost
	}
	return nil
}

// resultError returns nil on vk.Success and a *VulkanError otherwise.
func resultError(op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return &VulkanError{Op: op, Result: res}
}
