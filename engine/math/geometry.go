package math

// GeometryGenerateNormals writes a flat face normal into each vertex of
// every indexed triangle.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GenerateCube returns an indexed unit cube centered on the origin with one
// colour per face. Each face has its own four vertices so normals stay flat.
func GenerateCube(offset Vec3) ([]Vertex3D, []uint32) {
	type face struct {
		corners [4]Vec3
		colour  Vec3
	}
	faces := []face{
		// left (x = -0.5)
		{[4]Vec3{{-.5, -.5, -.5}, {-.5, .5, .5}, {-.5, -.5, .5}, {-.5, .5, -.5}}, Vec3{.9, .9, .9}},
		// right (x = 0.5)
		{[4]Vec3{{.5, -.5, -.5}, {.5, .5, .5}, {.5, -.5, .5}, {.5, .5, -.5}}, Vec3{.8, .8, .1}},
		// top (y = -0.5, y points down)
		{[4]Vec3{{-.5, -.5, -.5}, {.5, -.5, .5}, {-.5, -.5, .5}, {.5, -.5, -.5}}, Vec3{.9, .6, .1}},
		// bottom (y = 0.5)
		{[4]Vec3{{-.5, .5, -.5}, {.5, .5, .5}, {-.5, .5, .5}, {.5, .5, -.5}}, Vec3{.8, .1, .1}},
		// nose (z = 0.5)
		{[4]Vec3{{-.5, -.5, .5}, {.5, .5, .5}, {-.5, .5, .5}, {.5, -.5, .5}}, Vec3{.1, .1, .8}},
		// tail (z = -0.5)
		{[4]Vec3{{-.5, -.5, -.5}, {.5, .5, -.5}, {-.5, .5, -.5}, {.5, -.5, -.5}}, Vec3{.1, .8, .1}},
	}

	vertices := make([]Vertex3D, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range f.corners {
			vertices = append(vertices, Vertex3D{Position: c.Add(offset), Colour: f.colour})
		}
		indices = append(indices, base+0, base+1, base+2, base+0, base+3, base+1)
	}

	GeometryGenerateNormals(vertices, indices)
	return vertices, indices
}

// GenerateQuad returns a flat size x size quad in the XZ plane facing -Y.
func GenerateQuad(size float32) ([]Vertex3D, []uint32) {
	h := size / 2
	vertices := []Vertex3D{
		{Position: Vec3{-h, 0, -h}, Colour: NewVec3One(), Texcoord: Vec2{0, 0}},
		{Position: Vec3{h, 0, h}, Colour: NewVec3One(), Texcoord: Vec2{1, 1}},
		{Position: Vec3{-h, 0, h}, Colour: NewVec3One(), Texcoord: Vec2{0, 1}},
		{Position: Vec3{h, 0, -h}, Colour: NewVec3One(), Texcoord: Vec2{1, 0}},
	}
	indices := []uint32{0, 1, 2, 0, 3, 1}
	for i := range vertices {
		vertices[i].Normal = Vec3{0, -1, 0}
	}
	return vertices, indices
}
