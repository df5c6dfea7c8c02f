package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/ember/engine/math"
)

func TestGameObjectIDsIncrease(t *testing.T) {
	a := NewGameObject()
	b := NewGameObject()
	assert.Greater(t, b.ID(), a.ID())
	assert.Equal(t, math.NewVec3One(), a.Transform.Scale)
	assert.Nil(t, a.PointLight)
}

func TestMakePointLight(t *testing.T) {
	light := MakePointLight(DefaultLightIntensity, DefaultLightRadius, math.NewVec3(1, 0.5, 0))

	if assert.NotNil(t, light.PointLight) {
		assert.Equal(t, float32(10), light.PointLight.LightIntensity)
	}
	assert.Equal(t, float32(0.1), light.Transform.Scale.X)
	assert.Equal(t, math.NewVec3(1, 0.5, 0), light.Color)
	assert.Nil(t, light.Model)
}

func TestMapSortedIDs(t *testing.T) {
	objects := make(Map)
	var created []ID
	for i := 0; i < 5; i++ {
		obj := NewGameObject()
		objects.Add(obj)
		created = append(created, obj.ID())
	}
	assert.Equal(t, created, objects.SortedIDs())
	assert.Empty(t, Map{}.SortedIDs())
}
