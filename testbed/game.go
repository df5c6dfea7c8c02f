package testbed

import (
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/scene"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width   uint32
	height  uint32
	elapsed float64
	// The cube that spins in place.
	spinner *scene.GameObject
}

var lightColors = []math.Vec3{
	{X: 1, Y: 0.1, Z: 0.1},
	{X: 0.1, Y: 0.1, Z: 1},
	{X: 0.1, Y: 1, Z: 0.1},
	{X: 1, Y: 1, Z: 0.1},
	{X: 0.1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: 1},
}

func NewTestGame(config core.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: config,
			State:  &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Initialize builds two cubes on a floor, ringed by coloured point lights.
func (g *TestGame) Initialize(ctx *engine.Context) error {
	ctx.Viewer.Transform.Translation.Z = -2.5

	for i, x := range []float32{-0.5, 0.5} {
		model, err := scene.NewModel(ctx.Device, scene.NewCubeBuilder(math.NewVec3Zero()))
		if err != nil {
			return err
		}
		cube := scene.NewGameObject()
		cube.Model = model
		cube.Transform.Translation = math.NewVec3(x, 0.5, 0)
		cube.Transform.Scale = math.NewVec3(0.3, 0.3, 0.3)
		ctx.Objects.Add(cube)
		if i == 0 {
			g.state().spinner = cube
		}
	}

	floorModel, err := scene.NewModel(ctx.Device, scene.NewQuadBuilder(1))
	if err != nil {
		return err
	}
	floor := scene.NewGameObject()
	floor.Model = floorModel
	floor.Transform.Translation = math.NewVec3(0, 0.5, 0)
	floor.Transform.Scale = math.NewVec3(3, 1, 3)
	ctx.Objects.Add(floor)

	for i, color := range lightColors {
		light := scene.MakePointLight(0.2, scene.DefaultLightRadius, color)
		angle := float32(i) * math.K_PI_2 / float32(len(lightColors))
		rotate := math.NewMat4AxisAngle(angle, math.NewVec3(0, -1, 0))
		light.Transform.Translation = rotate.TransformPoint(math.NewVec3(-1, -1, -1))
		ctx.Objects.Add(light)
	}
	return nil
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	s := g.state()
	s.elapsed += deltaTime
	s.spinner.Transform.Rotation.Y = math.Mod(float32(s.elapsed)*0.5, math.K_PI_2)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width = width
	s.height = height
	core.LogDebug("testbed viewport is now %dx%d", width, height)
	return nil
}
