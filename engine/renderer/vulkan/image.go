package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

// NewDepthImage creates a device local depth attachment and its view.
func NewDepthImage(device Device, width, height uint32, format vk.Format) (*VulkanImage, error) {
	img := &VulkanImage{Format: format, Width: width, Height: height}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	handle, memory, err := device.CreateImageWithInfo(&imageInfo, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		err = fmt.Errorf("failed to create depth image: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	img.Handle = handle
	img.Memory = memory

	view, err := device.CreateImageView(&vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: depthAspect(format),
			LevelCount: 1,
			LayerCount: 1,
		},
	})
	if err != nil {
		img.Destroy(device)
		err = fmt.Errorf("failed to create depth image view: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	img.View = view
	return img, nil
}

// Destroy releases the view, then the image, then its memory.
func (img *VulkanImage) Destroy(device Device) {
	if img.View != nil {
		device.DestroyImageView(img.View)
		img.View = nil
	}
	if img.Handle != nil {
		device.DestroyImage(img.Handle)
		img.Handle = nil
	}
	if img.Memory != nil {
		device.FreeMemory(img.Memory)
		img.Memory = nil
	}
}

func hasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

func depthAspect(format vk.Format) vk.ImageAspectFlags {
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencilComponent(format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return aspect
}
