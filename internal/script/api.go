package script

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tiewarp/internal/history"
	"github.com/dshills/tiewarp/internal/tiepoint"
	"github.com/dshills/tiewarp/internal/warp"
)

// ModuleName is the global table scripts use.
const ModuleName = "tiewarp"

func (r *Runner) install() {
	mod := r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"add_image":  r.addPoint(tiepoint.SideImage),
		"add_map":    r.addPoint(tiepoint.SideMap),
		"move_image": r.movePoint(tiepoint.SideImage),
		"move_map":   r.movePoint(tiepoint.SideMap),
		"delete":     r.deletePoint,
		"select":     r.selectPoint,
		"selected":   r.selected,
		"mode":       r.mode,
		"point":      r.point,
		"count":      r.count,
		"record":     r.record,
		"undo":       r.undo,
		"redo":       r.redo,
		"undo_depth": r.undoDepth,
		"redo_depth": r.redoDepth,
		"state":      r.state,
		"fit":        r.fit,
	})
	r.L.SetGlobal(ModuleName, mod)
}

func checkPoint(L *lua.LState, at int) tiepoint.Point {
	return tiepoint.Point{X: float64(L.CheckNumber(at)), Y: float64(L.CheckNumber(at + 1))}
}

// checkIndex reads a 1-based Lua index and returns it 0-based.
func checkIndex(L *lua.LState, at int) int {
	return L.CheckInt(at) - 1
}

// add_image(x, y) / add_map(x, y) -> index
func (r *Runner) addPoint(side tiepoint.Side) lua.LGFunction {
	return func(L *lua.LState) int {
		p := checkPoint(L, 1)
		idx, err := r.session.Place(side, p)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		L.Push(lua.LNumber(idx + 1))
		return 1
	}
}

// move_image(i, x, y) / move_map(i, x, y)
func (r *Runner) movePoint(side tiepoint.Side) lua.LGFunction {
	return func(L *lua.LState) int {
		i := checkIndex(L, 1)
		p := checkPoint(L, 2)
		if err := r.session.Move(side, i, p); err != nil {
			L.RaiseError("%v", err)
		}
		return 0
	}
}

// delete(i)
func (r *Runner) deletePoint(L *lua.LState) int {
	if err := r.session.Delete(checkIndex(L, 1)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// select(i); select(nil) clears the selection.
func (r *Runner) selectPoint(L *lua.LState) int {
	i := -1
	if L.Get(1) != lua.LNil {
		i = checkIndex(L, 1)
	}
	if err := r.session.Select(i); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// selected() -> index or nil
func (r *Runner) selected(L *lua.LState) int {
	if i := r.session.Selected(); i >= 0 {
		L.Push(lua.LNumber(i + 1))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// mode() -> name; mode(name) switches modes.
func (r *Runner) mode(L *lua.LState) int {
	if L.GetTop() >= 1 {
		m, err := tiepoint.ParseMode(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		r.session.SetMode(m)
	}
	L.Push(lua.LString(r.session.Mode()))
	return 1
}

// point(i) -> {id=, image={x=,y=}, map={x=,y=}}
func (r *Runner) point(L *lua.LState) int {
	i := checkIndex(L, 1)
	o := r.session.Overlay()
	if i < 0 || i >= len(o.Points) {
		L.RaiseError("%v: %d", tiepoint.ErrNoSuchPoint, i+1)
		return 0
	}
	tp := o.Points[i]
	t := L.NewTable()
	t.RawSetString("id", lua.LString(tp.ID))
	if tp.Image != nil {
		t.RawSetString("image", pointTable(L, *tp.Image))
	}
	if tp.Map != nil {
		t.RawSetString("map", pointTable(L, *tp.Map))
	}
	L.Push(t)
	return 1
}

func pointTable(L *lua.LState, p tiepoint.Point) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("x", lua.LNumber(p.X))
	t.RawSetString("y", lua.LNumber(p.Y))
	return t
}

// count() -> number of tie points
func (r *Runner) count(L *lua.LState) int {
	L.Push(lua.LNumber(r.session.Len()))
	return 1
}

// record() -> pushed
func (r *Runner) record(L *lua.LState) int {
	return r.pushResult(L, r.history.RecordAction)
}

// undo() -> restored
func (r *Runner) undo(L *lua.LState) int {
	return r.pushResult(L, r.history.Undo)
}

// redo() -> restored
func (r *Runner) redo(L *lua.LState) int {
	return r.pushResult(L, r.history.Redo)
}

func (r *Runner) pushResult(L *lua.LState, fn func() (bool, error)) int {
	ok, err := fn()
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (r *Runner) undoDepth(L *lua.LState) int {
	L.Push(lua.LNumber(r.history.UndoCount()))
	return 1
}

func (r *Runner) redoDepth(L *lua.LState) int {
	L.Push(lua.LNumber(r.history.RedoCount()))
	return 1
}

// state() -> canonical JSON of the session
func (r *Runner) state(L *lua.LState) int {
	v, err := r.session.Capture()
	if err == nil {
		var snap history.Snapshot
		if snap, err = history.Encode(v); err == nil {
			L.Push(lua.LString(snap.String()))
			return 1
		}
	}
	L.RaiseError("%v", err)
	return 0
}

// fit() -> kind, rms  |  nil, message
func (r *Runner) fit(L *lua.LState) int {
	o := r.session.Overlay()
	t, err := warp.FitOverlay(o)
	if err != nil {
		if errors.Is(err, warp.ErrTooFewPoints) {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.RaiseError("%v", err)
		return 0
	}
	image, mapped := o.Pairs()
	L.Push(lua.LString(t.Kind))
	L.Push(lua.LNumber(t.RMSError(image, mapped)))
	return 2
}
