package systems

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/components"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
	"github.com/spaghettifunk/ember/engine/scene"
)

var testShaders = &assets.ShaderProgram{
	Name:     "test",
	Vertex:   []uint32{0x07230203, 1},
	Fragment: []uint32{0x07230203, 2},
}

func newRenderPass(t *testing.T, dev *vulkantest.Device) *vulkan.VulkanRenderpass {
	t.Helper()
	rp, err := vulkan.RenderpassCreate(dev, vk.FormatB8g8r8a8Srgb, vk.FormatD32Sfloat)
	require.NoError(t, err)
	t.Cleanup(func() { rp.Destroy(dev) })
	return rp
}

func newFrameInfo(objects scene.Map) *FrameInfo {
	camera := components.NewCamera()
	camera.SetViewYXZ(math.NewVec3Zero(), math.NewVec3Zero())
	return &FrameInfo{
		FrameIndex:          1,
		FrameTime:           0.016,
		CommandBuffer:       nil,
		Camera:              camera,
		GlobalDescriptorSet: nil,
		GameObjects:         objects,
	}
}

func TestRenderSystemPipelineReleasesShaderModules(t *testing.T) {
	dev := vulkantest.NewDevice()
	rs, err := NewRenderSystem(dev, newRenderPass(t, dev), nil, testShaders)
	require.NoError(t, err)

	assert.Equal(t, 2, dev.Count("CreateShaderModule"))
	assert.Equal(t, 2, dev.Count("DestroyShaderModule"))
	assert.Equal(t, 1, dev.Count("CreateGraphicsPipeline"))

	require.NoError(t, rs.Reload(newRenderPass(t, dev), testShaders))
	assert.Equal(t, 1, dev.Count("DestroyPipeline"))

	rs.Destroy()
	assert.Equal(t, 2, dev.Count("DestroyPipeline"))
	assert.Equal(t, 2, dev.Count("DestroyPipelineLayout"))
}

func TestRenderSystemRejectsEmptyShader(t *testing.T) {
	dev := vulkantest.NewDevice()
	_, err := NewRenderSystem(dev, newRenderPass(t, dev), nil, &assets.ShaderProgram{Name: "broken", Vertex: testShaders.Vertex})
	assert.Error(t, err)
	assert.Zero(t, dev.Count("CreateGraphicsPipeline"))
	assert.Equal(t, dev.Count("CreateShaderModule"), dev.Count("DestroyShaderModule"))
}

func TestRenderSystemDrawsModelsInIDOrder(t *testing.T) {
	dev := vulkantest.NewDevice()
	rs, err := NewRenderSystem(dev, newRenderPass(t, dev), nil, testShaders)
	require.NoError(t, err)
	defer rs.Destroy()

	objects := make(scene.Map)
	var withModels []*scene.GameObject
	for i := 0; i < 3; i++ {
		model, err := scene.NewModel(dev, scene.NewCubeBuilder(math.NewVec3Zero()))
		require.NoError(t, err)
		obj := scene.NewGameObject()
		obj.Model = model
		obj.Transform.Translation = math.NewVec3(float32(i), 0, 0)
		objects.Add(obj)
		withModels = append(withModels, obj)
	}
	objects.Add(scene.MakePointLight(scene.DefaultLightIntensity, scene.DefaultLightRadius, math.NewVec3One()))
	defer objects.Destroy()

	dev.ResetCalls()
	rs.RenderGameObjects(newFrameInfo(objects))

	assert.Equal(t, 1, dev.Count("CmdBindPipeline"))
	assert.Equal(t, 1, dev.Count("CmdBindDescriptorSets"))
	draws := dev.Draws()
	require.Len(t, draws, 3)
	for i, d := range draws {
		assert.True(t, d.Indexed)
		require.Len(t, d.PushConstants, SimplePushConstantSize)
		var push simplePushConstantData
		_, err := binary.Decode(d.PushConstants, binary.LittleEndian, &push)
		require.NoError(t, err)
		assert.Equal(t, withModels[i].Transform.Mat4(), push.ModelMatrix)
		assert.Equal(t, withModels[i].Transform.NormalMatrix(), push.NormalMatrix)
	}
}

func TestPointLightSystemUpdateFillsUbo(t *testing.T) {
	dev := vulkantest.NewDevice()
	ps, err := NewPointLightSystem(dev, newRenderPass(t, dev), nil, testShaders)
	require.NoError(t, err)
	defer ps.Destroy()

	objects := make(scene.Map)
	red := scene.MakePointLight(4, 0.2, math.NewVec3(1, 0, 0))
	red.Transform.Translation = math.NewVec3(1, 0, 0)
	blue := scene.MakePointLight(2, 0.1, math.NewVec3(0, 0, 1))
	blue.Transform.Translation = math.NewVec3(0, -1, 0)
	objects.Add(red)
	objects.Add(blue)
	objects.Add(scene.NewGameObject())

	frame := newFrameInfo(objects)
	frame.FrameTime = math.K_HALF_PI
	ubo := metadata.NewGlobalUbo()
	require.NoError(t, ps.Update(frame, &ubo))

	assert.Equal(t, int32(2), ubo.NumLights)
	// A quarter turn about -Y takes +X to +Z.
	assert.True(t, red.Transform.Translation.Compare(math.NewVec3(0, 0, 1), 1e-5))
	assert.True(t, ubo.PointLights[0].Position.ToVec3().Compare(math.NewVec3(0, 0, 1), 1e-5))
	assert.Equal(t, float32(1), ubo.PointLights[0].Position.W)
	assert.Equal(t, math.NewVec4(1, 0, 0, 4), ubo.PointLights[0].Color)
	// Lights on the axis stay put.
	assert.True(t, blue.Transform.Translation.Compare(math.NewVec3(0, -1, 0), 1e-5))
	assert.Equal(t, math.NewVec4(0, 0, 1, 2), ubo.PointLights[1].Color)
}

func TestPointLightSystemTooManyLights(t *testing.T) {
	dev := vulkantest.NewDevice()
	ps, err := NewPointLightSystem(dev, newRenderPass(t, dev), nil, testShaders)
	require.NoError(t, err)
	defer ps.Destroy()

	objects := make(scene.Map)
	for i := 0; i <= metadata.MaxLights; i++ {
		light := scene.MakePointLight(1, 0.1, math.NewVec3One())
		light.Transform.Translation = math.NewVec3(1, 0, 0)
		objects.Add(light)
	}
	ubo := metadata.NewGlobalUbo()
	err = ps.Update(newFrameInfo(objects), &ubo)
	assert.ErrorIs(t, err, ErrTooManyLights)
	assert.Zero(t, ubo.NumLights)
	for _, obj := range objects {
		assert.Equal(t, math.NewVec3(1, 0, 0), obj.Transform.Translation)
	}
}

func TestPointLightSystemRendersFarthestFirst(t *testing.T) {
	dev := vulkantest.NewDevice()
	ps, err := NewPointLightSystem(dev, newRenderPass(t, dev), nil, testShaders)
	require.NoError(t, err)
	defer ps.Destroy()

	objects := make(scene.Map)
	positions := []math.Vec3{
		math.NewVec3(0, 0, 1),
		math.NewVec3(0, 0, 5),
		math.NewVec3(5, 0, 0), // same distance as the one before
		math.NewVec3(0, 0, 3),
	}
	for _, p := range positions {
		light := scene.MakePointLight(scene.DefaultLightIntensity, scene.DefaultLightRadius, math.NewVec3One())
		light.Transform.Translation = p
		objects.Add(light)
	}

	dev.ResetCalls()
	ps.Render(newFrameInfo(objects))

	draws := dev.Draws()
	require.Len(t, draws, len(positions))
	want := []math.Vec3{positions[1], positions[2], positions[3], positions[0]}
	for i, d := range draws {
		assert.False(t, d.Indexed)
		assert.Equal(t, uint32(6), d.Count)
		require.Len(t, d.PushConstants, PointLightPushConstantSize)
		var push pointLightPushConstants
		_, err := binary.Decode(d.PushConstants, binary.LittleEndian, &push)
		require.NoError(t, err)
		assert.Equal(t, want[i].ToVec4(1), push.Position)
		assert.Equal(t, math.NewVec4(1, 1, 1, scene.DefaultLightIntensity), push.Color)
		assert.Equal(t, scene.DefaultLightRadius, push.Radius)
	}
}
