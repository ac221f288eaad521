package ecs

import "errors"

// ErrPoolExhausted is returned by Spawn when no slot could be allocated.
var ErrPoolExhausted = errors.New("pool exhausted")
