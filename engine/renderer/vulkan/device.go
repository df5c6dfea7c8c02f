package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
)

type VulkanDeviceConfig struct {
	ApplicationName  string
	EnableValidation bool
}

// VulkanDevice is the goki/vulkan implementation of Device. It owns the
// instance, the debug callback, the surface, the logical device, its queues
// and the graphics command pool.
type VulkanDevice struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface

	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	queueFamilies  QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	locks            *VulkanLockPool
	enableValidation bool
}

var _ Device = (*VulkanDevice)(nil)

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// NewVulkanDevice brings up everything between the loader and a usable
// command pool. vk.Init must already have been called by the platform layer.
func NewVulkanDevice(surfaceFactory SurfaceFactory, config VulkanDeviceConfig) (*VulkanDevice, error) {
	d := &VulkanDevice{
		locks:            NewVulkanLockPool(),
		enableValidation: config.EnableValidation,
	}

	if err := d.createInstance(config.ApplicationName, surfaceFactory.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}
	if err := d.setupDebugCallback(); err != nil {
		d.Destroy()
		return nil, err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := surfaceFactory.CreateWindowSurface(d.instance)
	if err != nil {
		d.Destroy()
		err = fmt.Errorf("failed to create window surface: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	d.surface = surface
	core.LogDebug("Vulkan surface created.")

	if err := d.selectPhysicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := d.createLogicalDevice(); err != nil {
		d.Destroy()
		return nil, err
	}
	if err := d.createCommandPool(); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *VulkanDevice) createInstance(appName string, platformExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Ember Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := append([]string{}, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if d.enableValidation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogInfo("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	if d.enableValidation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		if err := checkValidationLayerSupport(validationLayers); err != nil {
			return err
		}
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	d.instance = instance

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkValidationLayerSupport(required []string) error {
	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}

	// Verify all required layers are available.
	for _, name := range required {
		core.LogDebug("Searching for layer: %s...", name)
		found := false
		for j := range availableLayers {
			availableLayers[j].Deref()
			end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
			if name == vk.ToString(availableLayers[j].LayerName[:end+1]) {
				found = true
				break
			}
		}
		if !found {
			err := fmt.Errorf("required validation layer is missing: %s", name)
			core.LogError(err.Error())
			return err
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (d *VulkanDevice) setupDebugCallback() error {
	if !d.enableValidation {
		return nil
	}
	core.LogDebug("Creating Vulkan debugger...")

	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(d.instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return err
	}
	d.debugCallback = dbg

	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

// selectPhysicalDevice takes the first discrete GPU meeting the requirements,
// or the first suitable device of any type when there is none.
func (d *VulkanDevice) selectPhysicalDevice() error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(d.instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	selected := -1
	var selectedQueues QueueFamilyIndices
	for i, candidate := range physicalDevices {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		queues, ok := d.physicalDeviceMeetsRequirements(candidate, &properties, &requirements)
		if !ok {
			continue
		}
		if selected < 0 || properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			selected = i
			selectedQueues = queues
		}
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	if selected < 0 {
		err := fmt.Errorf("no physical devices were found which meet the requirements")
		core.LogError(err.Error())
		return err
	}

	d.PhysicalDevice = physicalDevices[selected]
	d.queueFamilies = selectedQueues

	// Keep a copy of properties, features and memory info for later use.
	vk.GetPhysicalDeviceProperties(d.PhysicalDevice, &d.Properties)
	d.Properties.Deref()
	d.Properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(d.PhysicalDevice, &d.Features)
	d.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &d.Memory)
	d.Memory.Deref()

	core.LogInfo("Selected device: '%s'.", vk.ToString(d.Properties.DeviceName[:]))
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(d.Properties.ApiVersion)),
		vk.Version.Minor(vk.Version(d.Properties.ApiVersion)),
		vk.Version.Patch(vk.Version(d.Properties.ApiVersion)),
	)
	for j := 0; j < int(d.Memory.MemoryHeapCount); j++ {
		d.Memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(d.Memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(d.Memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	core.LogInfo("Physical device selected.")
	return nil
}

func (d *VulkanDevice) physicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (QueueFamilyIndices, bool) {
	name := vk.ToString(properties.DeviceName[:])
	queues := findQueueFamilies(device, d.surface)
	if (requirements.Graphics && !queues.HasGraphicsFamily) || (requirements.Present && !queues.HasPresentFamily) {
		core.LogInfo("Device '%s' lacks the required queues, skipping.", name)
		return queues, false
	}

	for _, ext := range requirements.DeviceExtensionNames {
		if !deviceSupportsExtension(device, ext) {
			core.LogInfo("Required extension not found: '%s', skipping device '%s'.", ext, name)
			return queues, false
		}
	}

	support, err := querySwapchainSupport(device, d.surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device '%s'.", name)
		return queues, false
	}

	if requirements.SamplerAnisotropy {
		features := vk.PhysicalDeviceFeatures{}
		vk.GetPhysicalDeviceFeatures(device, &features)
		features.Deref()
		if features.SamplerAnisotropy == vk.False {
			core.LogInfo("Device '%s' does not support samplerAnisotropy, skipping.", name)
			return queues, false
		}
	}

	core.LogDebug("Device '%s' meets the requirements. Graphics family %d, present family %d.",
		name, queues.GraphicsFamily, queues.PresentFamily)
	return queues, true
}

func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) QueueFamilyIndices {
	indices := QueueFamilyIndices{}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueCount > 0 &&
			queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 && !indices.HasGraphicsFamily {
			indices.GraphicsFamily = i
			indices.HasGraphicsFamily = true
		}

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent)
		if queueFamilies[i].QueueCount > 0 && supportsPresent == vk.True && !indices.HasPresentFamily {
			indices.PresentFamily = i
			indices.HasPresentFamily = true
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices
}

func deviceExtensions(device vk.PhysicalDevice) []string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return nil
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		end := FindFirstZeroInByteArray(available[i].ExtensionName[:])
		names = append(names, vk.ToString(available[i].ExtensionName[:end+1]))
	}
	return names
}

func deviceSupportsExtension(device vk.PhysicalDevice, name string) bool {
	for _, ext := range deviceExtensions(device) {
		if ext == name {
			return true
		}
	}
	return false
}

func querySwapchainSupport(device vk.PhysicalDevice, surface vk.Surface) (SwapchainSupportDetails, error) {
	details := SwapchainSupportDetails{}

	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &details.Capabilities); res != vk.Success {
		return details, resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	details.Capabilities.Deref()
	details.Capabilities.CurrentExtent.Deref()
	details.Capabilities.MinImageExtent.Deref()
	details.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil); res != vk.Success {
		return details, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount != 0 {
		details.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, details.Formats); res != vk.Success {
			return details, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range details.Formats {
			details.Formats[i].Deref()
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, nil); res != vk.Success {
		return details, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if presentModeCount != 0 {
		details.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &presentModeCount, details.PresentModes); res != vk.Success {
			return details, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return details, nil
}

func (d *VulkanDevice) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	families := []uint32{d.queueFamilies.GraphicsFamily}
	if d.queueFamilies.PresentFamily != d.queueFamilies.GraphicsFamily {
		families = append(families, d.queueFamilies.PresentFamily)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if deviceSupportsExtension(d.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{SamplerAnisotropy: vk.True}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}
	// Deprecated and ignored by current loaders, set for older implementations.
	if d.enableValidation {
		deviceCreateInfo.EnabledLayerCount = uint32(len(validationLayers))
		deviceCreateInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)
	}

	var device vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, nil, &device); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %w", resultError("vkCreateDevice", res))
		core.LogError(err.Error())
		return err
	}
	d.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(d.LogicalDevice, d.queueFamilies.GraphicsFamily, 0, &graphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, d.queueFamilies.PresentFamily, 0, &presentQueue)
	d.GraphicsQueue = graphicsQueue
	d.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")
	return nil
}

func (d *VulkanDevice) createCommandPool() error {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueFamilies.GraphicsFamily,
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit) |
			vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, nil, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool: %w", resultError("vkCreateCommandPool", res))
		core.LogError(err.Error())
		return err
	}
	d.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")
	return nil
}

// Destroy tears down in reverse order of creation. Every object created
// through the device must already be destroyed.
func (d *VulkanDevice) Destroy() {
	if d.GraphicsCommandPool != nil {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, nil)
		d.GraphicsCommandPool = nil
	}
	d.GraphicsQueue = nil
	d.PresentQueue = nil

	if d.LogicalDevice != nil {
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, nil)
		d.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	d.PhysicalDevice = nil

	if d.surface != nil {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(d.instance, d.surface, nil)
		d.surface = nil
	}
	if d.debugCallback != nil {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(d.instance, d.debugCallback, nil)
		d.debugCallback = nil
	}
	if d.instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

func (d *VulkanDevice) SwapchainSupport() (SwapchainSupportDetails, error) {
	return querySwapchainSupport(d.PhysicalDevice, d.surface)
}

func (d *VulkanDevice) QueueFamilies() QueueFamilyIndices {
	return d.queueFamilies
}

func (d *VulkanDevice) Surface() vk.Surface {
	return d.surface
}

func (d *VulkanDevice) MinUniformBufferOffsetAlignment() vk.DeviceSize {
	return d.Properties.Limits.MinUniformBufferOffsetAlignment
}

// FindSupportedFormat returns the first candidate whose tiling features
// include features.
func (d *VulkanDevice) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, format, &props)
		props.Deref()

		if tiling == vk.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vk.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return vk.FormatUndefined, ErrNoSuitableFormat
}

func (d *VulkanDevice) FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		d.Memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && d.Memory.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, ErrNoSuitableMemoryType
}

// WaitIdle blocks until the device has no pending work. Queues are
// externally synchronized, so their locks are held for the duration.
func (d *VulkanDevice) WaitIdle() error {
	return d.locks.SafeQueueCall(d.queueFamilies.GraphicsFamily, func() error {
		wait := func() error {
			if res := vk.DeviceWaitIdle(d.LogicalDevice); res != vk.Success {
				err := resultError("vkDeviceWaitIdle", res)
				core.LogError(err.Error())
				return err
			}
			return nil
		}
		if d.queueFamilies.PresentFamily == d.queueFamilies.GraphicsFamily {
			return wait()
		}
		return d.locks.SafeQueueCall(d.queueFamilies.PresentFamily, wait)
	})
}
