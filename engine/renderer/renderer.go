package renderer

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/scene"
	"github.com/spaghettifunk/ember/engine/systems"
)

// Shader programs the renderer needs from the asset manager.
const (
	SimpleShaderProgram = "simple_shader"
	PointLightProgram   = "point_light"
)

// Renderer records one frame per DrawFrame call: opaque models first, then
// the blended point light billboards, both inside the swapchain render pass.
type Renderer struct {
	device  vulkan.Device
	frames  *vulkan.Renderer
	globals *vulkan.FrameResources
	shaders *assets.AssetManager

	renderSystem     *systems.RenderSystem
	pointLightSystem *systems.PointLightSystem

	ubo metadata.GlobalUbo
}

// New builds the frame orchestrator, the per-frame globals and both draw
// systems. shaders stays owned by the caller.
func New(device vulkan.Device, surface vulkan.PresentationSurface, shaders *assets.AssetManager) (*Renderer, error) {
	r := &Renderer{
		device:  device,
		shaders: shaders,
		ubo:     metadata.NewGlobalUbo(),
	}

	frames, err := vulkan.NewRenderer(surface, device)
	if err != nil {
		return nil, err
	}
	r.frames = frames

	r.globals, err = vulkan.NewFrameResources(device, metadata.GlobalUboSize)
	if err != nil {
		r.Shutdown()
		return nil, err
	}

	simple, err := shaders.LoadShaderProgram(SimpleShaderProgram)
	if err != nil {
		r.Shutdown()
		return nil, err
	}
	r.renderSystem, err = systems.NewRenderSystem(device, frames.SwapchainRenderPass(), r.globalSetLayout(), simple)
	if err != nil {
		r.Shutdown()
		return nil, err
	}

	lights, err := shaders.LoadShaderProgram(PointLightProgram)
	if err != nil {
		r.Shutdown()
		return nil, err
	}
	r.pointLightSystem, err = systems.NewPointLightSystem(device, frames.SwapchainRenderPass(), r.globalSetLayout(), lights)
	if err != nil {
		r.Shutdown()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) globalSetLayout() vk.DescriptorSetLayout {
	return r.globals.SetLayout().Handle
}

func (r *Renderer) AspectRatio() float32 {
	return r.frames.AspectRatio()
}

// DrawFrame animates the lights, publishes the camera and lights to this
// frame's uniform buffer and records every draw. A frame skipped because the
// swapchain had to be rebuilt returns nil.
func (r *Renderer) DrawFrame(frameTime float32, camera *components.Camera, objects scene.Map) error {
	r.reloadChangedShaders()

	info := &systems.FrameInfo{
		FrameTime:   frameTime,
		Camera:      camera,
		GameObjects: objects,
	}
	if err := r.pointLightSystem.Update(info, &r.ubo); err != nil {
		return err
	}
	r.ubo.Projection = camera.Projection()
	r.ubo.View = camera.View()
	r.ubo.InverseView = camera.InverseView()

	cb, err := r.frames.BeginFrame()
	if err != nil {
		return err
	}
	if cb == nil {
		return nil
	}

	info.CommandBuffer = cb
	if err := r.recordFrame(info); err != nil {
		return errors.Join(err, r.frames.EndFrame())
	}
	return r.frames.EndFrame()
}

// recordFrame fills the open frame's command buffer. Any error leaves the
// frame for the caller to end.
func (r *Renderer) recordFrame(info *systems.FrameInfo) error {
	var err error
	info.FrameIndex, err = r.frames.FrameIndex()
	if err != nil {
		return err
	}
	info.GlobalDescriptorSet = r.globals.DescriptorSet(info.FrameIndex)
	if err := r.globals.Write(info.FrameIndex, r.ubo.Bytes()); err != nil {
		return fmt.Errorf("failed to write frame globals: %w", err)
	}

	if err := r.frames.BeginSwapchainRenderPass(info.CommandBuffer); err != nil {
		return err
	}
	r.renderSystem.RenderGameObjects(info)
	r.pointLightSystem.Render(info)
	return r.frames.EndSwapchainRenderPass(info.CommandBuffer)
}

// IsFrameDropped reports whether a DrawFrame error only cost the current
// frame. Everything else, acquire and present failures included, is fatal.
func IsFrameDropped(err error) bool {
	return errors.Is(err, systems.ErrTooManyLights)
}

// reloadChangedShaders rebuilds the pipelines whose programs changed on disk.
// A program that fails to load or link keeps its previous pipeline.
func (r *Renderer) reloadChangedShaders() {
	changed := r.shaders.ChangedPrograms()
	if len(changed) == 0 {
		return
	}
	if err := r.device.WaitIdle(); err != nil {
		core.LogError("cannot reload shaders: %s", err)
		return
	}
	for _, name := range changed {
		program, err := r.shaders.LoadShaderProgram(name)
		if err != nil {
			core.LogWarn("keeping previous %s pipeline: %s", name, err)
			continue
		}
		switch name {
		case SimpleShaderProgram:
			err = r.renderSystem.Reload(r.frames.SwapchainRenderPass(), program)
		case PointLightProgram:
			err = r.pointLightSystem.Reload(r.frames.SwapchainRenderPass(), program)
		default:
			core.LogDebug("no pipeline uses shader program %s", name)
			continue
		}
		if err != nil {
			core.LogWarn("keeping previous %s pipeline: %s", name, err)
			continue
		}
		core.LogInfo("reloaded shader program %s", name)
	}
}

// Shutdown waits for the GPU and releases everything New created, in reverse.
func (r *Renderer) Shutdown() {
	if r.device != nil {
		if err := r.device.WaitIdle(); err != nil {
			core.LogWarn("device wait idle on shutdown failed: %s", err)
		}
	}
	if r.pointLightSystem != nil {
		r.pointLightSystem.Destroy()
		r.pointLightSystem = nil
	}
	if r.renderSystem != nil {
		r.renderSystem.Destroy()
		r.renderSystem = nil
	}
	if r.globals != nil {
		r.globals.Destroy()
		r.globals = nil
	}
	if r.frames != nil {
		r.frames.Close()
		r.frames = nil
	}
}
