package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/world"
)

// ErrScriptNotLoaded is returned by RunHook for a script that was never loaded.
var ErrScriptNotLoaded = errors.New("script not loaded")

// Engine wraps a single gopher-lua VM running per-profile lifecycle hooks.
// Every script file gets its own environment table so hook names do not
// collide; the environments fall back to the shared globals.
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	log   *zap.Logger
	dir   string
	envs  map[string]*lua.LTable
	state *world.State
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:   vm,
		log:  log,
		dir:  scriptsDir,
		envs: make(map[string]*lua.LTable),
	}
	e.registerBindings()

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// Bind attaches the world the bindings operate on.
func (e *Engine) Bind(state *world.State) { e.state = state }

// Require fails if any of the named scripts is not loaded.
func (e *Engine) Require(names []string) error {
	for _, name := range names {
		if _, ok := e.envs[name]; !ok {
			return fmt.Errorf("%s: %w", name, ErrScriptNotLoaded)
		}
	}
	return nil
}

// Loaded lists the loaded script names in order.
func (e *Engine) Loaded() []string {
	names := make([]string, 0, len(e.envs))
	for name := range e.envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.Reload(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

// Reload compiles and runs one script into a fresh environment. The old
// environment stays in place if anything fails.
func (e *Engine) Reload(name string) error {
	path := filepath.Join(e.dir, name)
	fn, err := e.vm.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	env := e.vm.NewTable()
	meta := e.vm.NewTable()
	meta.RawSetString("__index", e.vm.G.Global)
	e.vm.SetMetatable(env, meta)
	fn.Env = env

	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}

	e.envs[name] = env
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// RunHook calls hook(self) in script's environment. A script without that
// hook is fine. Lua runtime errors are logged, not returned, so a broken
// hook does not hold the entity in its phase.
func (e *Engine) RunHook(script, hook string, id ecs.EntityID) error {
	env, ok := e.envs[script]
	if !ok {
		return fmt.Errorf("%s: %w", script, ErrScriptNotLoaded)
	}
	fn := env.RawGetString(hook)
	if fn == lua.LNil {
		return nil
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, e.handle(id)); err != nil {
		e.log.Error("lua hook error",
			zap.String("script", script),
			zap.String("hook", hook),
			zap.Uint32("guid", id.GUID()),
			zap.Error(err))
	}
	return nil
}

// Eval runs a chunk in the global environment.
func (e *Engine) Eval(src string) error {
	return e.vm.DoString(src)
}

// Global returns the printed form of a global value.
func (e *Engine) Global(name string) string {
	return e.vm.GetGlobal(name).String()
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
