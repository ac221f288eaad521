package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/world"
)

const handleTypeName = "entity"

func (e *Engine) registerBindings() {
	mt := e.vm.NewTypeMetatable(handleTypeName)
	e.vm.SetField(mt, "__tostring", e.vm.NewFunction(func(L *lua.LState) int {
		id, _ := checkHandle(L, 1)
		L.Push(lua.LString(handleString(id)))
		return 1
	}))

	fns := map[string]lua.LGFunction{
		"entity_name":       e.entityName,
		"entity_action":     e.entityAction,
		"entity_guid":       e.entityGUID,
		"entity_life":       e.entityLife,
		"is_defined":        e.predicate((*ecs.Base).Defined),
		"is_active":         e.predicate((*ecs.Base).Active),
		"is_on":             e.predicate((*ecs.Base).On),
		"is_killed":         e.predicate((*ecs.Base).Killed),
		"is_processing":     e.predicate((*ecs.Base).IsProcessing),
		"is_waiting":        e.predicate((*ecs.Base).IsWaiting),
		"kill_requested":    e.predicate((*ecs.Base).KillRequested),
		"request_terminate": e.predicate(ecs.ReqTerminate),
		"request_on":        e.requestBool(ecs.ReqOn),
		"request_pause":     e.requestBool(ecs.ReqPause),
		"damage":            e.damage,
		"spawn_particle":    e.spawnParticle,
		"log_info":          e.logAt(zap.InfoLevel),
		"log_warn":          e.logAt(zap.WarnLevel),
	}
	for name, fn := range fns {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

func (e *Engine) handle(id ecs.EntityID) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = id
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(handleTypeName))
	return ud
}

func checkHandle(L *lua.LState, n int) (ecs.EntityID, bool) {
	ud, ok := L.Get(n).(*lua.LUserData)
	if !ok {
		return 0, false
	}
	id, ok := ud.Value.(ecs.EntityID)
	return id, ok
}

func handleString(id ecs.EntityID) string {
	return fmt.Sprintf("entity(%d:%d)", id.Index(), id.GUID())
}

// lookup resolves argument n to a live base, or nil.
func (e *Engine) lookup(L *lua.LState, n int) *ecs.Base {
	if e.state == nil {
		return nil
	}
	id, ok := checkHandle(L, n)
	if !ok {
		return nil
	}
	b, ok := e.state.Lookup(id)
	if !ok {
		return nil
	}
	return b
}

// predicate wraps a query or request taking only the entity.
func (e *Engine) predicate(fn func(*ecs.Base) bool) lua.LGFunction {
	return func(L *lua.LState) int {
		b := e.lookup(L, 1)
		L.Push(lua.LBool(b != nil && fn(b)))
		return 1
	}
}

func (e *Engine) requestBool(fn func(*ecs.Base, bool) bool) lua.LGFunction {
	return func(L *lua.LState) int {
		b := e.lookup(L, 1)
		val := L.OptBool(2, true)
		L.Push(lua.LBool(b != nil && fn(b, val)))
		return 1
	}
}

func (e *Engine) entityName(L *lua.LState) int {
	b := e.lookup(L, 1)
	if b == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(b.Name()))
	return 1
}

func (e *Engine) entityAction(L *lua.LState) int {
	b := e.lookup(L, 1)
	if b == nil {
		L.Push(lua.LString("nothing"))
		return 1
	}
	L.Push(lua.LString(b.Action().String()))
	return 1
}

func (e *Engine) entityGUID(L *lua.LState) int {
	id, ok := checkHandle(L, 1)
	if !ok {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(id.GUID()))
	return 1
}

func (e *Engine) character(L *lua.LState, n int) *world.Character {
	if e.state == nil {
		return nil
	}
	id, ok := checkHandle(L, n)
	if !ok {
		return nil
	}
	c, ok := e.state.Character(id)
	if !ok {
		return nil
	}
	return c
}

func (e *Engine) entityLife(L *lua.LState) int {
	c := e.character(L, 1)
	if c == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(c.Life()))
	return 1
}

func (e *Engine) damage(L *lua.LState) int {
	c := e.character(L, 1)
	amount := L.CheckInt(2)
	if c != nil {
		c.Damage(amount)
	}
	return 0
}

// spawn_particle(name [, attach]) returns a handle or nil.
func (e *Engine) spawnParticle(L *lua.LState) int {
	name := L.CheckString(1)
	var attach ecs.EntityID
	if L.GetTop() >= 2 {
		attach, _ = checkHandle(L, 2)
	}
	if e.state == nil {
		L.Push(lua.LNil)
		return 1
	}
	p, err := e.state.SpawnParticle(name, attach, false)
	if err != nil {
		e.log.Warn("lua spawn_particle failed", zap.String("profile", name), zap.Error(err))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.handle(p.ID()))
	return 1
}

func (e *Engine) logAt(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := e.log.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}
