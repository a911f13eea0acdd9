// Package ui is the terminal front end: an image pane and a map pane with a
// crosshair cursor each, numbered tie point markers, and a status line.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/tiewarp/internal/input/keymap"
	"github.com/dshills/tiewarp/internal/tiepoint"
	"github.com/dshills/tiewarp/internal/warp"
)

// History is the part of the history manager the UI drives.
type History interface {
	Undo() (bool, error)
	Redo() (bool, error)
	UndoCount() int
	RedoCount() int
}

// Logger receives UI diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// pickRadius is how close, in cells, the cursor must be to a marker to pick it.
const pickRadius = 2

// Styles
var (
	styleDefault  = tcell.StyleDefault
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleActive   = tcell.StyleDefault.Bold(true).Reverse(true)
	styleDivider  = tcell.StyleDefault.Dim(true)
	styleCursor   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	stylePartial  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Dim(true)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true).Reverse(true)
	styleStatus   = tcell.StyleDefault.Reverse(true)
)

// UI owns the screen and routes key presses to the session and history.
type UI struct {
	term    *Terminal
	session *tiepoint.Session
	history History
	keys    *keymap.Keymap
	logger  Logger

	panes  [2]pane
	active tiepoint.Side
	status string
}

// Option configures a UI.
type Option func(*UI)

// WithLogger sets the UI logger.
func WithLogger(l Logger) Option {
	return func(u *UI) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithKeymap replaces the default keymap.
func WithKeymap(km *keymap.Keymap) Option {
	return func(u *UI) {
		if km != nil {
			u.keys = km
		}
	}
}

// New creates a UI over an initialized terminal.
func New(term *Terminal, session *tiepoint.Session, history History, opts ...Option) *UI {
	u := &UI{
		term:    term,
		session: session,
		history: history,
		keys:    keymap.Default(),
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(u)
	}

	o := session.Overlay()
	u.panes[tiepoint.SideImage] = pane{side: tiepoint.SideImage, title: "image: " + o.Name, extent: imageExtent(o.ImageWidth, o.ImageHeight)}
	u.panes[tiepoint.SideMap] = pane{side: tiepoint.SideMap, title: "map", extent: mapExtent()}
	u.Resize()
	return u
}

// SetKeymap swaps the active keymap. Call it from the event loop, e.g. via Do.
func (u *UI) SetKeymap(km *keymap.Keymap) {
	if km != nil {
		u.keys = km
	}
}

// Status returns the last status message.
func (u *UI) Status() string {
	return u.status
}

// ActiveSide returns the pane that receives placements.
func (u *UI) ActiveSide() tiepoint.Side {
	return u.active
}

// Cursor returns the world position under the active pane's cursor.
func (u *UI) Cursor() tiepoint.Point {
	return u.panes[u.active].cursor()
}

// MoveCursor moves the active pane's cursor by (dx, dy) cells.
func (u *UI) MoveCursor(dx, dy int) {
	u.panes[u.active].moveCursor(dx, dy)
}

// Resize recomputes the layout from the terminal size.
func (u *UI) Resize() {
	w, h := u.term.Size()
	img, mp := layout(w, h)
	u.panes[tiepoint.SideImage].resize(img)
	u.panes[tiepoint.SideMap].resize(mp)
}

// Do runs fn on the event loop goroutine. It is safe to call from any
// goroutine while Run is active. It reports false, and logs, when the event
// queue is full and fn was dropped.
func (u *UI) Do(fn func()) bool {
	if err := u.term.screen.PostEvent(tcell.NewEventInterrupt(fn)); err != nil {
		u.logger.Error("dropped queued ui call: %v", err)
		return false
	}
	return true
}

// Run processes events until quit is requested or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			u.term.Interrupt()
		case <-stop:
		}
	}()

	u.Resize()
	u.Draw()
	for {
		ev := u.term.PollEvent()
		if ev == nil {
			return nil
		}
		switch e := ev.(type) {
		case *tcell.EventResize:
			u.Resize()
			u.term.Sync()
		case *tcell.EventKey:
			if u.HandleKey(e) {
				return nil
			}
		case *tcell.EventInterrupt:
			if fn, ok := e.Data().(func()); ok {
				fn()
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		u.Draw()
	}
}

// HandleKey performs the action bound to ev. It reports whether the user
// asked to quit.
func (u *UI) HandleKey(ev *tcell.EventKey) bool {
	action, ok := u.keys.Lookup(ev)
	if !ok {
		return false
	}
	u.logger.Debug("key %s -> %s", ev.Name(), action)
	return u.Perform(action)
}

// Perform runs a single action. It reports whether the action was quit.
func (u *UI) Perform(action keymap.Action) bool {
	switch action {
	case keymap.ActionQuit:
		return true
	case keymap.ActionUndo:
		u.undo()
	case keymap.ActionRedo:
		u.redo()
	case keymap.ActionModeAdd:
		u.setMode(tiepoint.ModeAdd)
	case keymap.ActionModeDelete:
		u.setMode(tiepoint.ModeDelete)
	case keymap.ActionModeNavigate:
		u.setMode(tiepoint.ModeNavigate)
	case keymap.ActionPaneToggle:
		if u.active == tiepoint.SideImage {
			u.active = tiepoint.SideMap
		} else {
			u.active = tiepoint.SideImage
		}
		u.status = u.active.String() + " pane"
	case keymap.ActionCursorUp:
		u.MoveCursor(0, -1)
	case keymap.ActionCursorDown:
		u.MoveCursor(0, 1)
	case keymap.ActionCursorLeft:
		u.MoveCursor(-1, 0)
	case keymap.ActionCursorRight:
		u.MoveCursor(1, 0)
	case keymap.ActionPlace:
		u.place()
	case keymap.ActionPointMove:
		u.moveSelected()
	case keymap.ActionSelectNext:
		u.cycleSelection(1)
	case keymap.ActionSelectPrev:
		u.cycleSelection(-1)
	case keymap.ActionDelete:
		u.deleteSelected()
	}
	return false
}

func (u *UI) undo() {
	ok, err := u.history.Undo()
	switch {
	case err != nil:
		u.fail("undo", err)
	case !ok:
		u.status = "nothing to undo"
	default:
		u.status = "undo"
	}
}

func (u *UI) redo() {
	ok, err := u.history.Redo()
	switch {
	case err != nil:
		u.fail("redo", err)
	case !ok:
		u.status = "nothing to redo"
	default:
		u.status = "redo"
	}
}

func (u *UI) setMode(m tiepoint.Mode) {
	u.session.SetMode(m)
	u.status = string(m) + " mode"
}

// place acts on the cursor according to the mode: add a point, delete the
// nearest one, or select the nearest one.
func (u *UI) place() {
	switch u.session.Mode() {
	case tiepoint.ModeAdd:
		idx, err := u.session.Place(u.active, u.Cursor())
		if err != nil {
			u.fail("place", err)
			return
		}
		u.status = fmt.Sprintf("placed %s point %d", u.active, idx+1)
	case tiepoint.ModeDelete:
		idx, ok := u.nearest()
		if !ok {
			u.status = "no point under cursor"
			return
		}
		if err := u.session.Delete(idx); err != nil {
			u.fail("delete", err)
			return
		}
		u.status = fmt.Sprintf("deleted point %d", idx+1)
	case tiepoint.ModeNavigate:
		idx, ok := u.nearest()
		if !ok {
			u.status = "no point under cursor"
			return
		}
		_ = u.session.Select(idx) // idx comes from the current overlay
		u.status = fmt.Sprintf("selected point %d", idx+1)
	}
}

func (u *UI) moveSelected() {
	idx := u.session.Selected()
	if idx < 0 {
		u.status = "no point selected"
		return
	}
	if err := u.session.Move(u.active, idx, u.Cursor()); err != nil {
		u.fail("move", err)
		return
	}
	u.status = fmt.Sprintf("moved %s point %d", u.active, idx+1)
}

func (u *UI) deleteSelected() {
	idx := u.session.Selected()
	if idx < 0 {
		u.status = "no point selected"
		return
	}
	if err := u.session.Delete(idx); err != nil {
		u.fail("delete", err)
		return
	}
	u.status = fmt.Sprintf("deleted point %d", idx+1)
}

func (u *UI) cycleSelection(step int) {
	n := u.session.Len()
	if n == 0 {
		u.status = "no points"
		return
	}
	idx := u.session.Selected()
	if idx < 0 {
		idx = 0
	} else {
		idx = ((idx+step)%n + n) % n
	}
	_ = u.session.Select(idx) // always in range
	u.status = fmt.Sprintf("selected point %d", idx+1)
}

// nearest finds the tie point whose marker on the active pane is closest to
// the cursor, within pickRadius cells.
func (u *UI) nearest() (int, bool) {
	p := &u.panes[u.active]
	best, bestDist := -1, pickRadius*pickRadius+1
	for i, tp := range u.session.Overlay().Points {
		pt := sidePoint(tp, u.active)
		if pt == nil {
			continue
		}
		cx, cy, ok := p.toCell(*pt)
		if !ok {
			continue
		}
		dx, dy := cx-p.curX, cy-p.curY
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

func (u *UI) fail(op string, err error) {
	u.logger.Error("%s: %v", op, err)
	u.status = fmt.Sprintf("%s failed: %v", op, err)
}

func sidePoint(tp tiepoint.TiePoint, side tiepoint.Side) *tiepoint.Point {
	if side == tiepoint.SideMap {
		return tp.Map
	}
	return tp.Image
}

// Draw repaints the whole screen.
func (u *UI) Draw() {
	u.term.Clear()
	w, h := u.term.Size()
	o := u.session.Overlay()

	for i := range u.panes {
		p := &u.panes[i]
		style := styleTitle
		if p.side == u.active {
			style = styleActive
		}
		u.term.Text(p.rect.X, 0, p.rect.W, p.title, style)
		u.drawMarkers(p, o)
		if p.side == u.active && p.rect.W > 0 && p.rect.H > 0 {
			u.term.SetCell(p.rect.X+p.curX, p.rect.Y+p.curY, '+', styleCursor)
		}
	}
	img := u.panes[tiepoint.SideImage].rect
	u.term.Fill(Rect{X: img.X + img.W, Y: 0, W: 1, H: h - 1}, '│', styleDivider)

	if h > 0 {
		u.term.Fill(Rect{X: 0, Y: h - 1, W: w, H: 1}, ' ', styleStatus)
		u.term.Text(0, h-1, w, u.StatusLine(), styleStatus)
	}
	u.term.Show()
}

func (u *UI) drawMarkers(p *pane, o tiepoint.Overlay) {
	for i, tp := range o.Points {
		pt := sidePoint(tp, p.side)
		if pt == nil {
			continue
		}
		cx, cy, ok := p.toCell(*pt)
		if !ok {
			continue
		}
		style := styleMarker
		switch {
		case i == o.Selected:
			style = styleSelected
		case !tp.Complete():
			style = stylePartial
		}
		label := strconv.Itoa(i + 1)
		u.term.Text(p.rect.X+cx, p.rect.Y+cy, p.rect.W-cx, label, style)
	}
}

// StatusLine renders the mode, point counts, fit quality and history depths,
// followed by the last message.
func (u *UI) StatusLine() string {
	o := u.session.Overlay()
	complete := 0
	for _, tp := range o.Points {
		if tp.Complete() {
			complete++
		}
	}

	fit := "fit none"
	if t, err := warp.FitOverlay(o); err == nil {
		image, mapped := o.Pairs()
		fit = fmt.Sprintf("fit %s rms %.3g", t.Kind, t.RMSError(image, mapped))
	} else if !errors.Is(err, warp.ErrTooFewPoints) {
		fit = "fit error"
	}

	line := fmt.Sprintf(" %s | %s | points %d/%d | %s | undo %d redo %d",
		o.Mode, u.active, complete, len(o.Points), fit, u.history.UndoCount(), u.history.RedoCount())
	if u.status != "" {
		line += " | " + u.status
	}
	return line
}
