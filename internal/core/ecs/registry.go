package ecs

import (
	"errors"
	"time"
)

// Managed is the type-erased view of a Pool used by systems that drive every
// pool without knowing its entity type.
type Managed interface {
	Name() string
	Update(dt time.Duration) error
	Cleanup() error
	FreeAll() error
	Len() int
	Cap() int
	FreeLen() int
	SetNotify(fn func(Notice))
}

// Registry tracks all pools in registration order.
type Registry struct {
	pools []Managed
}

func NewRegistry() *Registry {
	return &Registry{
		pools: make([]Managed, 0, 8),
	}
}

// Register adds a pool to the registry.
func (r *Registry) Register(p Managed) {
	r.pools = append(r.pools, p)
}

func (r *Registry) Pools() []Managed { return r.pools }

// Lookup finds a pool by name.
func (r *Registry) Lookup(name string) (Managed, bool) {
	for _, p := range r.pools {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// FreeAll retires every entity of every registered pool.
func (r *Registry) FreeAll() error {
	var errs []error
	for _, p := range r.pools {
		if err := p.FreeAll(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
