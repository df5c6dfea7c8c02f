package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/scene"
	"github.com/spaghettifunk/ember/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const (
	inputQueueSize = 256
	fieldOfView    = 50.0
	nearPlane      = 0.1
	farPlane       = 100.0
	// Frames longer than this are clamped so a stall does not teleport the
	// viewer or the lights.
	maxFrameTime = 0.25
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool

	window   *platform.Window
	device   *vulkan.VulkanDevice
	shaders  *assets.AssetManager
	renderer *renderer.Renderer

	ctx        *Context
	camera     *components.Camera
	controller *systems.KeyboardMovementController
	clock      *core.Clock
	metrics    *core.Metrics
	dropped    int
}

func New(g *Game) (*Engine, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(g.Config.LogLevel); err != nil {
		return nil, err
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		camera:       components.NewCamera(),
		controller:   systems.NewKeyboardMovementController(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

// Initialize opens the window and brings up the device, the shader assets and
// the renderer, then lets the game populate the scene. It must run on the
// main thread.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.Config

	input := core.NewInputState(inputQueueSize)
	window, err := platform.NewWindow(cfg.Window, input)
	if err != nil {
		return err
	}
	e.window = window

	e.device, err = vulkan.NewVulkanDevice(window, vulkan.VulkanDeviceConfig{
		ApplicationName:  cfg.Window.Title,
		EnableValidation: cfg.Renderer.EnableValidation,
	})
	if err != nil {
		e.release()
		return err
	}

	e.shaders, err = assets.NewAssetManager(cfg.Renderer.ShaderDir, cfg.Renderer.HotReload)
	if err != nil {
		e.release()
		return err
	}

	e.renderer, err = renderer.New(e.device, window, e.shaders)
	if err != nil {
		e.release()
		return err
	}

	e.ctx = &Context{
		Device:  e.device,
		Input:   input,
		Objects: make(scene.Map),
		Viewer:  scene.NewGameObject(),
	}
	if err := e.gameInstance.FnInitialize(e.ctx); err != nil {
		e.release()
		return err
	}
	extent := window.Extent()
	if err := e.gameInstance.FnOnResize(extent.Width, extent.Height); err != nil {
		e.release()
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with %d game objects", len(e.ctx.Objects))
	return nil
}

// Run drives frames until the window closes, Escape is pressed or Shutdown is
// called, then releases everything. It must run on the main thread.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	defer e.release()

	e.clock.Start()
	for e.isRunning.Load() && !e.window.ShouldClose() {
		e.window.PollEvents()
		if err := e.handleEvents(); err != nil {
			return err
		}

		frameTime := e.clock.Lap()
		if e.metrics.Update(frameTime) {
			core.LogDebug("%.1f fps, %.3f ms/frame", e.metrics.FPS(), e.metrics.FrameTime())
		}
		frameTime = math.Clamp(frameTime, 0, maxFrameTime)

		if err := e.gameInstance.FnUpdate(e.ctx, frameTime); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			return err
		}

		e.controller.MoveInPlaneXZ(e.ctx.Input, float32(frameTime), e.ctx.Viewer)
		e.camera.SetViewYXZ(e.ctx.Viewer.Transform.Translation, e.ctx.Viewer.Transform.Rotation)
		if err := e.camera.SetPerspectiveProjection(math.DegToRad(fieldOfView), e.renderer.AspectRatio(), nearPlane, farPlane); err != nil {
			// Zero sized surface; DrawFrame waits it out.
			core.LogDebug("keeping previous projection: %s", err)
		}

		if err := e.renderer.DrawFrame(float32(frameTime), e.camera, e.ctx.Objects); err != nil {
			if !renderer.IsFrameDropped(err) {
				core.LogError("renderer failed, shutting down: %s", err)
				return err
			}
			core.LogWarn("frame dropped: %s", err)
		}
		e.ctx.Input.Update()
	}
	return nil
}

// handleEvents drains the input events queued by the window callbacks.
func (e *Engine) handleEvents() error {
	for _, ev := range e.ctx.Input.Events().Drain() {
		switch ev.Code {
		case core.EVENT_CODE_KEY_PRESSED:
			if ev.Key == core.KEY_ESCAPE {
				core.LogInfo("escape pressed, shutting down")
				e.isRunning.Store(false)
			}
		case core.EVENT_CODE_RESIZED:
			width, height := uint32(ev.X), uint32(ev.Y)
			core.LogDebug("window resize: %d, %d", width, height)
			if err := e.gameInstance.FnOnResize(width, height); err != nil {
				return err
			}
		case core.EVENT_CODE_APPLICATION_QUIT:
			e.isRunning.Store(false)
		}
	}
	if n := e.ctx.Input.Events().Dropped(); n > e.dropped {
		core.LogWarn("input queue overflowed, %d events dropped", n-e.dropped)
		e.dropped = n
	}
	return nil
}

// Shutdown asks Run to stop after the current frame. Safe from any goroutine.
func (e *Engine) Shutdown() error {
	e.isRunning.Store(false)
	return nil
}

// release tears down in reverse creation order once the GPU is idle.
func (e *Engine) release() {
	e.currentStage = EngineStageShuttingDown
	if e.device != nil {
		if err := e.device.WaitIdle(); err != nil {
			core.LogWarn("device wait idle on shutdown failed: %s", err)
		}
	}
	if e.ctx != nil {
		e.ctx.Objects.Destroy()
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if e.shaders != nil {
		if err := e.shaders.Close(); err != nil {
			core.LogWarn("failed to stop shader watcher: %s", err)
		}
		e.shaders = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
	e.currentStage = EngineStageUninitialized
}
