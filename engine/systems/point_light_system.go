package systems

import (
	"encoding/binary"
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/engine/scene"
	"golang.org/x/exp/slices"
)

// PointLightPushConstantSize covers position, colour and radius, padded to a
// multiple of 16 bytes.
const PointLightPushConstantSize = 48

// lightOrbitAxis is the axis lights circle around, one radian per second.
var lightOrbitAxis = math.NewVec3(0, -1, 0)

var ErrTooManyLights = errors.New("too many point lights")

type pointLightPushConstants struct {
	Position math.Vec4
	Color    math.Vec4
	Radius   float32
	_        [3]float32
}

// PointLightSystem animates the point lights, publishes them to the global
// uniform and draws each one as a camera facing billboard.
type PointLightSystem struct {
	device          vulkan.Device
	globalSetLayout vk.DescriptorSetLayout
	pipeline        *vulkan.VulkanPipeline
}

func NewPointLightSystem(device vulkan.Device, renderPass *vulkan.VulkanRenderpass, globalSetLayout vk.DescriptorSetLayout, program *assets.ShaderProgram) (*PointLightSystem, error) {
	ps := &PointLightSystem{
		device:          device,
		globalSetLayout: globalSetLayout,
	}
	if err := ps.Reload(renderPass, program); err != nil {
		return nil, err
	}
	return ps, nil
}

// Reload rebuilds the billboard pipeline. The old pipeline must be idle.
func (ps *PointLightSystem) Reload(renderPass *vulkan.VulkanRenderpass, program *assets.ShaderProgram) error {
	pipeline, err := buildPipeline(ps.device, renderPass, ps.globalSetLayout, program, func(config *vulkan.VulkanPipelineConfig) {
		// Billboard corners come from gl_VertexIndex.
		config.BindingDescriptions = nil
		config.Attributes = nil
		config.EnableAlphaBlending()
		config.PushConstantRanges = []*metadata.MemoryRange{{Offset: 0, Size: PointLightPushConstantSize}}
	})
	if err != nil {
		core.LogError("failed to create point light pipeline: %s", err)
		return err
	}
	if ps.pipeline != nil {
		ps.pipeline.Destroy()
	}
	ps.pipeline = pipeline
	return nil
}

// Update orbits every light by FrameTime radians and copies the lights into
// ubo in object id order. Nothing is changed when there are more lights than
// the uniform can hold.
func (ps *PointLightSystem) Update(frameInfo *FrameInfo, ubo *metadata.GlobalUbo) error {
	lights := make([]*scene.GameObject, 0, metadata.MaxLights)
	for _, id := range frameInfo.GameObjects.SortedIDs() {
		if obj := frameInfo.GameObjects[id]; obj.PointLight != nil {
			lights = append(lights, obj)
		}
	}
	if len(lights) > metadata.MaxLights {
		return fmt.Errorf("%w: %d, the limit is %d", ErrTooManyLights, len(lights), metadata.MaxLights)
	}

	rotate := math.NewMat4AxisAngle(frameInfo.FrameTime, lightOrbitAxis)
	for i, obj := range lights {
		obj.Transform.Translation = rotate.TransformPoint(obj.Transform.Translation)
		ubo.PointLights[i] = metadata.PointLight{
			Position: obj.Transform.Translation.ToVec4(1),
			Color:    obj.Color.ToVec4(obj.PointLight.LightIntensity),
		}
	}
	ubo.NumLights = int32(len(lights))
	return nil
}

// Render draws the lights farthest from the camera first so that blending
// composes correctly. Lights at the same distance keep their id order.
func (ps *PointLightSystem) Render(frameInfo *FrameInfo) {
	type sortedLight struct {
		obj         *scene.GameObject
		distSquared float32
	}
	camera := frameInfo.Camera.Position()
	var sorted []sortedLight
	for _, id := range frameInfo.GameObjects.SortedIDs() {
		obj := frameInfo.GameObjects[id]
		if obj.PointLight == nil {
			continue
		}
		sorted = append(sorted, sortedLight{obj: obj, distSquared: camera.DistanceSquared(obj.Transform.Translation)})
	}
	slices.SortStableFunc(sorted, func(a, b sortedLight) int {
		switch {
		case a.distSquared > b.distSquared:
			return -1
		case a.distSquared < b.distSquared:
			return 1
		}
		return 0
	})

	cb := frameInfo.CommandBuffer
	ps.pipeline.Bind(ps.device, cb)
	ps.device.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, ps.pipeline.PipelineLayout, 0, []vk.DescriptorSet{frameInfo.GlobalDescriptorSet})

	buf := make([]byte, 0, PointLightPushConstantSize)
	for _, light := range sorted {
		push := pointLightPushConstants{
			Position: light.obj.Transform.Translation.ToVec4(1),
			Color:    light.obj.Color.ToVec4(light.obj.PointLight.LightIntensity),
			Radius:   light.obj.Transform.Scale.X,
		}
		data, err := binary.Append(buf[:0], binary.LittleEndian, &push)
		if err != nil {
			core.LogError("failed to encode point light %d: %s", light.obj.ID(), err)
			continue
		}
		ps.device.CmdPushConstants(cb, ps.pipeline.PipelineLayout, pushStages, 0, data)
		ps.device.CmdDraw(cb, 6, 1, 0, 0)
	}
}

func (ps *PointLightSystem) Destroy() {
	if ps.pipeline != nil {
		ps.pipeline.Destroy()
		ps.pipeline = nil
	}
}
