package scene

import (
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"golang.org/x/exp/slices"
)

type ID uint64

const (
	DefaultLightIntensity float32 = 10.0
	DefaultLightRadius    float32 = 0.1
)

var ids core.IDGenerator

// PointLightComponent marks an object as a point light. The light's colour is
// the object's Color and its radius is Transform.Scale.X.
type PointLightComponent struct {
	LightIntensity float32
}

// GameObject is anything placed in the world. Model and PointLight are
// optional and owned by the object.
type GameObject struct {
	id ID

	Transform  math.TransformComponent
	Color      math.Vec3
	Model      *Model
	PointLight *PointLightComponent
}

// NewGameObject returns an object with a fresh id and unit scale.
func NewGameObject() *GameObject {
	return &GameObject{
		id:        ID(ids.Next()),
		Transform: math.NewTransformComponent(),
	}
}

// MakePointLight returns a new object carrying a point light. Use
// DefaultLightIntensity, DefaultLightRadius and white for the usual light.
func MakePointLight(intensity, radius float32, color math.Vec3) *GameObject {
	obj := NewGameObject()
	obj.Color = color
	obj.Transform.Scale.X = radius
	obj.PointLight = &PointLightComponent{LightIntensity: intensity}
	return obj
}

func (g *GameObject) ID() ID {
	return g.id
}

// Destroy releases the model, if any.
func (g *GameObject) Destroy() {
	if g.Model != nil {
		g.Model.Destroy()
		g.Model = nil
	}
}

// Map holds the scene's objects by id.
type Map map[ID]*GameObject

func (m Map) Add(obj *GameObject) {
	m[obj.ID()] = obj
}

// SortedIDs lists the ids in ascending order, which is creation order.
func (m Map) SortedIDs() []ID {
	out := make([]ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Destroy releases every object's model and empties the map.
func (m Map) Destroy() {
	for id, obj := range m {
		obj.Destroy()
		delete(m, id)
	}
}
