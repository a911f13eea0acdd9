// Package script runs Lua scripts against an alignment session.
//
// Scripts see a global table named tiewarp whose functions edit the session
// and drive its history. Indices are 1-based on the Lua side. Only the base,
// table, string and math libraries are opened; io, os, debug and package are
// not available.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tiewarp/internal/tiepoint"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 30 * time.Second

// ErrClosed is returned when running a script on a closed Runner.
var ErrClosed = errors.New("script runner is closed")

// History is the part of the history manager scripts can drive.
type History interface {
	RecordAction() (bool, error)
	Undo() (bool, error)
	Redo() (bool, error)
	UndoCount() int
	RedoCount() int
}

// Runner owns a Lua state bound to one session.
//
// gopher-lua states are not goroutine-safe; the mutex serializes runs.
type Runner struct {
	L *lua.LState

	mu      sync.Mutex
	session *tiepoint.Session
	history History
	out     io.Writer
	timeout time.Duration
	closed  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput redirects print.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithTimeout sets the per-run timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a Runner for session and history.
func New(session *tiepoint.Session, history History, opts ...Option) *Runner {
	r := &Runner{
		session: session,
		history: history,
		out:     os.Stdout,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(r.L)
	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
	r.install()
	return r
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base registers these loaders; scripts get no file or module access.
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// Run executes code. name is used in error messages.
func (r *Runner) Run(ctx context.Context, name, code string) error {
	return r.do(ctx, func() error {
		fn, err := r.L.Load(strings.NewReader(code), name)
		if err != nil {
			return err
		}
		r.L.Push(fn)
		return r.L.PCall(0, lua.MultRet, nil)
	})
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.do(ctx, func() error {
		return r.L.DoFile(path)
	})
}

func (r *Runner) do(ctx context.Context, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	top := r.L.GetTop()
	defer r.L.SetTop(top)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()

	if err := fn(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("script stopped: %w", ctxErr)
		}
		return err
	}
	return nil
}

// Close releases the Lua state.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.L.Close()
	r.closed = true
	return nil
}

func (r *Runner) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	for i := 1; i <= n; i++ {
		if i > 1 {
			fmt.Fprint(r.out, "\t")
		}
		fmt.Fprint(r.out, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(r.out)
	return 0
}
