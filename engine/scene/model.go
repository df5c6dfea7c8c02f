package scene

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// Builder carries vertex and optional index data until it is uploaded.
type Builder struct {
	Vertices []math.Vertex3D
	Indices  []uint32
}

// NewCubeBuilder returns a unit cube centred on offset.
func NewCubeBuilder(offset math.Vec3) *Builder {
	vertices, indices := math.GenerateCube(offset)
	return &Builder{Vertices: vertices, Indices: indices}
}

// NewQuadBuilder returns a flat square of the given size in the XZ plane.
func NewQuadBuilder(size float32) *Builder {
	vertices, indices := math.GenerateQuad(size)
	return &Builder{Vertices: vertices, Indices: indices}
}

// Model owns device local vertex and index buffers.
type Model struct {
	vertexBuffer *vulkan.Buffer
	vertexCount  uint32
	indexBuffer  *vulkan.Buffer
	indexCount   uint32
}

// NewModel uploads the builder's data through host visible staging buffers.
func NewModel(device vulkan.Device, builder *Builder) (*Model, error) {
	if len(builder.Vertices) < 3 {
		err := fmt.Errorf("model needs at least 3 vertices, got %d", len(builder.Vertices))
		core.LogError(err.Error())
		return nil, err
	}

	m := &Model{vertexCount: uint32(len(builder.Vertices))}
	vertexData, err := binary.Append(nil, binary.LittleEndian, builder.Vertices)
	if err != nil {
		return nil, err
	}
	m.vertexBuffer, err = upload(device, vertexData, math.Vertex3DSize, m.vertexCount, vk.BufferUsageVertexBufferBit)
	if err != nil {
		return nil, err
	}

	if len(builder.Indices) > 0 {
		m.indexCount = uint32(len(builder.Indices))
		indexData, err := binary.Append(nil, binary.LittleEndian, builder.Indices)
		if err != nil {
			m.Destroy()
			return nil, err
		}
		m.indexBuffer, err = upload(device, indexData, 4, m.indexCount, vk.BufferUsageIndexBufferBit)
		if err != nil {
			m.Destroy()
			return nil, err
		}
	}
	return m, nil
}

func upload(device vulkan.Device, data []byte, instanceSize vk.DeviceSize, count uint32, usage vk.BufferUsageFlagBits) (*vulkan.Buffer, error) {
	staging, err := vulkan.NewBuffer(
		device,
		instanceSize,
		count,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		1,
	)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := staging.Map(vulkan.WholeSize, 0); err != nil {
		return nil, err
	}
	if err := staging.WriteToBuffer(data, vulkan.WholeSize, 0); err != nil {
		return nil, err
	}

	buffer, err := vulkan.NewBuffer(
		device,
		instanceSize,
		count,
		vk.BufferUsageFlags(usage)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		1,
	)
	if err != nil {
		return nil, err
	}
	if err := device.CopyBuffer(staging.Handle, buffer.Handle, staging.BufferSize()); err != nil {
		buffer.Destroy()
		err = fmt.Errorf("failed to upload model data: %w", err)
		core.LogError(err.Error())
		return nil, err
	}
	return buffer, nil
}

func (m *Model) VertexCount() uint32 {
	return m.vertexCount
}

func (m *Model) IndexCount() uint32 {
	return m.indexCount
}

func (m *Model) Bind(recorder vulkan.CommandRecorder, commandBuffer vk.CommandBuffer) {
	recorder.CmdBindVertexBuffers(commandBuffer, 0, []vk.Buffer{m.vertexBuffer.Handle}, []vk.DeviceSize{0})
	if m.indexBuffer != nil {
		recorder.CmdBindIndexBuffer(commandBuffer, m.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	}
}

func (m *Model) Draw(recorder vulkan.CommandRecorder, commandBuffer vk.CommandBuffer) {
	if m.indexBuffer != nil {
		recorder.CmdDrawIndexed(commandBuffer, m.indexCount, 1, 0, 0, 0)
		return
	}
	recorder.CmdDraw(commandBuffer, m.vertexCount, 1, 0, 0)
}

func (m *Model) Destroy() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
}

// VertexBindingDescriptions describes the single interleaved vertex stream.
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    math.Vertex3DSize,
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions matches the field order of math.Vertex3D.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 24},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 36},
	}
}
