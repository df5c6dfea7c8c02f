package renderer

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
	"github.com/spaghettifunk/ember/engine/scene"
	"github.com/spaghettifunk/ember/engine/systems"
)

func writeProgram(t *testing.T, dir, name string, word uint32) {
	t.Helper()
	for _, stage := range []string{".vert.spv", ".frag.spv"} {
		data := binary.LittleEndian.AppendUint32(nil, loaders.SPIRVMagic)
		data = binary.LittleEndian.AppendUint32(data, word)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+stage), data, 0o644))
	}
}

type fixture struct {
	dev     *vulkantest.Device
	surface *vulkantest.Surface
	dir     string
	r       *Renderer
	camera  *components.Camera
	objects scene.Map
}

func newFixture(t *testing.T, hotReload bool) *fixture {
	t.Helper()
	f := &fixture{
		dev:     vulkantest.NewDevice(),
		surface: vulkantest.NewSurface(800, 600),
		dir:     t.TempDir(),
		camera:  components.NewCamera(),
		objects: make(scene.Map),
	}
	writeProgram(t, f.dir, SimpleShaderProgram, 1)
	writeProgram(t, f.dir, PointLightProgram, 2)

	shaders, err := assets.NewAssetManager(f.dir, hotReload)
	require.NoError(t, err)
	t.Cleanup(func() { shaders.Close() })

	f.r, err = New(f.dev, f.surface, shaders)
	require.NoError(t, err)
	t.Cleanup(f.r.Shutdown)

	f.camera.SetViewYXZ(math.NewVec3(0, 0, -2.5), math.NewVec3Zero())
	require.NoError(t, f.camera.SetPerspectiveProjection(math.DegToRad(50), f.r.AspectRatio(), 0.1, 100))

	cube, err := scene.NewModel(f.dev, scene.NewCubeBuilder(math.NewVec3Zero()))
	require.NoError(t, err)
	obj := scene.NewGameObject()
	obj.Model = cube
	f.objects.Add(obj)
	for _, x := range []float32{-1, 1} {
		light := scene.MakePointLight(scene.DefaultLightIntensity, scene.DefaultLightRadius, math.NewVec3One())
		light.Transform.Translation = math.NewVec3(x, -1, 0)
		f.objects.Add(light)
	}
	t.Cleanup(f.objects.Destroy)
	return f
}

func TestDrawFrameRecordsModelsThenLights(t *testing.T) {
	f := newFixture(t, false)
	f.dev.ResetCalls()

	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))

	draws := f.dev.Draws()
	require.Len(t, draws, 3)
	assert.True(t, draws[0].Indexed)
	assert.False(t, draws[1].Indexed)
	assert.False(t, draws[2].Indexed)
	for _, d := range draws {
		require.Len(t, d.DescriptorSets, 1)
		assert.True(t, vulkantest.SameHandle(f.r.globals.DescriptorSet(0), d.DescriptorSets[0]))
	}
	assert.Equal(t, 1, f.dev.Submits())
	assert.Equal(t, 1, f.dev.Presents())
}

func TestDrawFramePublishesGlobals(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))

	for slot := 0; slot < 2; slot++ {
		memory := f.dev.Memory(f.r.globals.UniformBuffer(slot).Memory)
		var ubo metadata.GlobalUbo
		_, err := binary.Decode(memory[:metadata.GlobalUboSize], binary.LittleEndian, &ubo)
		require.NoError(t, err)
		assert.Equal(t, int32(2), ubo.NumLights)
		assert.Equal(t, f.camera.Projection(), ubo.Projection)
		assert.Equal(t, f.camera.View(), ubo.View)
		assert.Equal(t, f.camera.InverseView(), ubo.InverseView)
	}
}

func TestDrawFrameSkipsOutOfDateFrame(t *testing.T) {
	f := newFixture(t, false)
	f.dev.QueueAcquireResults(vk.ErrorOutOfDate)
	f.dev.ResetCalls()

	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
	assert.Empty(t, f.dev.Draws())
	assert.Zero(t, f.dev.Submits())

	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
	assert.Len(t, f.dev.Draws(), 3)
}

func TestDrawFrameTooManyLights(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < metadata.MaxLights-1; i++ {
		f.objects.Add(scene.MakePointLight(1, 0.1, math.NewVec3One()))
	}
	f.dev.ResetCalls()

	err := f.r.DrawFrame(0.01, f.camera, f.objects)
	assert.ErrorIs(t, err, systems.ErrTooManyLights)
	assert.Zero(t, f.dev.Submits())

	// No frame was left open.
	delete(f.objects, f.objects.SortedIDs()[len(f.objects)-1])
	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
}

func TestDrawFrameAcquireAndPresentFailuresAreFatal(t *testing.T) {
	f := newFixture(t, false)

	f.dev.QueueAcquireResults(vk.ErrorSurfaceLost)
	err := f.r.DrawFrame(0.01, f.camera, f.objects)
	assert.ErrorIs(t, err, vulkan.ErrAcquireImage)
	assert.False(t, IsFrameDropped(err))

	f.dev.QueuePresentResults(vk.ErrorSurfaceLost)
	err = f.r.DrawFrame(0.01, f.camera, f.objects)
	assert.ErrorIs(t, err, vulkan.ErrPresent)
	assert.False(t, IsFrameDropped(err))
	assert.False(t, f.r.frames.IsFrameInProgress())
}

func TestDrawFrameTooManyLightsOnlyDropsTheFrame(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < metadata.MaxLights; i++ {
		f.objects.Add(scene.MakePointLight(1, 0.1, math.NewVec3One()))
	}

	err := f.r.DrawFrame(0.01, f.camera, f.objects)
	require.Error(t, err)
	assert.True(t, IsFrameDropped(err))
}

func TestDrawFrameRecordingFailureEndsTheFrame(t *testing.T) {
	f := newFixture(t, false)
	flushErr := errors.New("flush failed")
	f.dev.FailFlush = flushErr

	err := f.r.DrawFrame(0.01, f.camera, f.objects)
	assert.ErrorIs(t, err, flushErr)
	assert.False(t, IsFrameDropped(err))
	assert.False(t, f.r.frames.IsFrameInProgress())
	assert.Equal(t, 1, f.dev.Submits())

	f.dev.FailFlush = nil
	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
	assert.Equal(t, 2, f.dev.Submits())
}

func TestDrawFrameReloadsChangedShaders(t *testing.T) {
	f := newFixture(t, true)
	require.Equal(t, 2, f.dev.Count("CreateGraphicsPipeline"))

	writeProgram(t, f.dir, PointLightProgram, 3)

	deadline := time.Now().Add(5 * time.Second)
	for f.dev.Count("CreateGraphicsPipeline") < 3 && time.Now().Before(deadline) {
		require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))
		time.Sleep(10 * time.Millisecond)
	}
	// Every rebuild replaces exactly one pipeline.
	created := f.dev.Count("CreateGraphicsPipeline")
	assert.GreaterOrEqual(t, created, 3)
	assert.Equal(t, created-2, f.dev.Count("DestroyPipeline"))
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.r.DrawFrame(0.01, f.camera, f.objects))

	f.objects.Destroy()
	f.r.Shutdown()
	assert.Empty(t, f.dev.Live())
}
