package scene

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan/vulkantest"
)

func TestModelUploadsThroughStaging(t *testing.T) {
	dev := vulkantest.NewDevice()
	builder := NewCubeBuilder(math.NewVec3Zero())

	m, err := NewModel(dev, builder)
	require.NoError(t, err)
	defer m.Destroy()

	assert.Equal(t, uint32(len(builder.Vertices)), m.VertexCount())
	assert.Equal(t, uint32(len(builder.Indices)), m.IndexCount())
	assert.Equal(t, 2, dev.Count("CopyBuffer"))

	// Only the two device local buffers survive the upload.
	assert.Equal(t, 4, dev.Count("CreateBuffer"))
	assert.Equal(t, 2, dev.Count("DestroyBuffer"))

	vertices := dev.Memory(m.vertexBuffer.Memory)
	require.Len(t, vertices, len(builder.Vertices)*math.Vertex3DSize)
	var first math.Vertex3D
	_, err = binary.Decode(vertices, binary.LittleEndian, &first)
	require.NoError(t, err)
	assert.Equal(t, builder.Vertices[0], first)

	indices := dev.Memory(m.indexBuffer.Memory)
	assert.Equal(t, builder.Indices[1], binary.LittleEndian.Uint32(indices[4:8]))
}

func TestModelRejectsTooFewVertices(t *testing.T) {
	dev := vulkantest.NewDevice()
	_, err := NewModel(dev, &Builder{Vertices: make([]math.Vertex3D, 2)})
	assert.Error(t, err)
	assert.Empty(t, dev.Live())
}

func TestModelDrawIndexedAndPlain(t *testing.T) {
	dev := vulkantest.NewDevice()
	cb := vk.CommandBuffer(nil)

	indexed, err := NewModel(dev, NewQuadBuilder(2))
	require.NoError(t, err)
	indexed.Bind(dev, cb)
	indexed.Draw(dev, cb)

	plain, err := NewModel(dev, &Builder{Vertices: make([]math.Vertex3D, 3)})
	require.NoError(t, err)
	plain.Bind(dev, cb)
	plain.Draw(dev, cb)

	assert.Equal(t, 2, dev.Count("CmdBindVertexBuffers"))
	assert.Equal(t, 1, dev.Count("CmdBindIndexBuffer"))

	draws := dev.Draws()
	require.Len(t, draws, 2)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, uint32(6), draws[0].Count)
	assert.False(t, draws[1].Indexed)
	assert.Equal(t, uint32(3), draws[1].Count)

	indexed.Destroy()
	plain.Destroy()
	assert.Empty(t, dev.Live())
}

func TestVertexLayout(t *testing.T) {
	bindings := VertexBindingDescriptions()
	require.Len(t, bindings, 1)
	assert.Equal(t, uint32(44), bindings[0].Stride)

	attributes := VertexAttributeDescriptions()
	require.Len(t, attributes, 4)
	offsets := []uint32{0, 12, 24, 36}
	for i, a := range attributes {
		assert.Equal(t, uint32(i), a.Location)
		assert.Equal(t, offsets[i], a.Offset)
	}
	assert.Equal(t, vk.FormatR32g32Sfloat, attributes[3].Format)
}
