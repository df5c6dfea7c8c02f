package engine

import "github.com/spaghettifunk/ember/engine/core"

type Game struct {
	Config       core.Config
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
}

type Initialize func(ctx *Context) error
type Update func(ctx *Context, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
