// Package script runs Lua scripts against a scene through gopher-lua.
package script

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Runtime is a single Lua VM bound to at most one scene.
// Every method except LoadFiles' compile phase runs on the caller's goroutine, so a
// Runtime must only be used from the frame goroutine.
type Runtime interface {
	scene.ScriptRunner

	// Bind makes s the scene the scene.* bindings operate on. Passing nil unbinds.
	//
	// Parameters:
	//   - s: the scene scripts manipulate
	Bind(s scene.Scene)

	// LoadFiles compiles the files concurrently and then runs them in order.
	// A file that fails to read or compile is skipped; the remaining files still run.
	//
	// Parameters:
	//   - ctx: cancels compilation of files not yet started
	//   - paths: Lua files to run
	//
	// Returns:
	//   - error: every read, compile and run failure combined, nil if all succeeded
	LoadFiles(ctx context.Context, paths ...string) error

	// Close releases the VM. The runtime must not be used afterwards.
	Close()
}

type compiled struct {
	source string
	proto  *lua.FunctionProto
}

type luaRuntime struct {
	vm     *lua.LState
	logger *zap.Logger
	scene  scene.Scene

	compileLimit int
	cache        map[string]compiled
}

var _ Runtime = &luaRuntime{}

// NewRuntime creates a VM with the standard libraries, the scene bindings and a print
// function that writes through the logger.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Runtime: the runtime
func NewRuntime(options ...RuntimeBuilderOption) Runtime {
	r := &luaRuntime{
		logger:       zap.NewNop(),
		compileLimit: runtime.GOMAXPROCS(0),
		cache:        make(map[string]compiled),
	}
	for _, opt := range options {
		opt(r)
	}

	r.vm = lua.NewState(lua.Options{SkipOpenLibs: false})
	r.vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	r.vm.SetGlobal("print", r.vm.NewFunction(r.print))
	r.vm.SetGlobal("scene", r.vm.SetFuncs(r.vm.NewTable(), r.sceneFuncs()))
	return r
}

func (r *luaRuntime) Bind(s scene.Scene) {
	r.scene = s
}

func (r *luaRuntime) RunScript(name, source string) error {
	c, ok := r.cache[name]
	if !ok || c.source != source {
		proto, err := compile(name, []byte(source))
		if err != nil {
			return err
		}
		c = compiled{source: source, proto: proto}
		r.cache[name] = c
	}
	return r.call(name, c.proto)
}

func (r *luaRuntime) LoadFiles(ctx context.Context, paths ...string) error {
	protos := make([]*lua.FunctionProto, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(max(r.compileLimit, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("compile %s: %w", path, err)
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				errs[i] = fmt.Errorf("read script %s: %w", path, err)
				return nil
			}
			protos[i], errs[i] = compile(path, data)
			return nil
		})
	}
	_ = g.Wait()

	for i, proto := range protos {
		if proto == nil {
			continue
		}
		if err := r.call(paths[i], proto); err != nil {
			errs[i] = err
			continue
		}
		r.logger.Debug("loaded lua script", zap.String("file", paths[i]))
	}
	return multierr.Combine(errs...)
}

func (r *luaRuntime) Close() {
	if r.vm != nil {
		r.vm.Close()
		r.vm = nil
	}
}

// compile parses and compiles source without touching a VM, so it is safe to call concurrently.
func compile(name string, source []byte) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(bytes.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return proto, nil
}

func (r *luaRuntime) call(name string, proto *lua.FunctionProto) error {
	fn := r.vm.NewFunctionFromProto(proto)
	if err := r.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

func (r *luaRuntime) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.logger.Info("lua", zap.String("output", strings.Join(parts, "\t")))
	return 0
}
