package ecs

import (
	"errors"
	"time"
)

// World is the top-level container. It owns the lifecycle engine shared by
// all pools and the pool registry. Update and Cleanup are driven by systems
// once per tick; Cleanup is the only point where requests are granted.
type World struct {
	engine   *Engine
	registry *Registry
	notify   func(Notice)
}

func NewWorld() *World {
	return &World{
		engine:   NewEngine(),
		registry: NewRegistry(),
	}
}

func (w *World) Engine() *Engine     { return w.engine }
func (w *World) Registry() *Registry { return w.registry }

// SetNotify installs fn on every pool, current and future.
func (w *World) SetNotify(fn func(Notice)) {
	w.notify = fn
	for _, p := range w.registry.Pools() {
		p.SetNotify(fn)
	}
}

// AddPool registers p with the world and hands it the world's notify hook.
func AddPool[T Object](w *World, p *Pool[T]) *Pool[T] {
	if w.notify != nil {
		p.SetNotify(w.notify)
	}
	w.registry.Register(p)
	return p
}

// NewWorldPool creates a pool on the world's engine and registers it.
func NewWorldPool[T Object](w *World, name string, capacity int, newSlot func(int) T) *Pool[T] {
	return AddPool(w, NewPool(name, w.engine, capacity, newSlot))
}

// Update steps every pool by one phase.
func (w *World) Update(dt time.Duration) error {
	var errs []error
	for _, p := range w.registry.Pools() {
		if err := p.Update(dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cleanup runs the grant pass of every pool.
func (w *World) Cleanup() error {
	var errs []error
	for _, p := range w.registry.Pools() {
		if err := p.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Live counts occupied slots over all pools.
func (w *World) Live() int {
	n := 0
	for _, p := range w.registry.Pools() {
		n += p.Len()
	}
	return n
}
