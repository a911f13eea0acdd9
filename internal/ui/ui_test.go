package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/tiewarp/internal/history"
	"github.com/dshills/tiewarp/internal/input/keymap"
	"github.com/dshills/tiewarp/internal/tiepoint"
)

type testRig struct {
	ui      *UI
	sim     tcell.SimulationScreen
	session *tiepoint.Session
	history *history.Manager
}

func newRig(t *testing.T) *testRig {
	t.Helper()

	sim := tcell.NewSimulationScreen("")
	term := NewTerminalWithScreen(sim)
	if err := term.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(term.Shutdown)
	sim.SetSize(81, 24)

	n := 0
	mgr := history.New(history.WithStrictHooks())
	sess := tiepoint.NewSession(
		tiepoint.Overlay{Name: "scan", ImageWidth: 780, ImageHeight: 210},
		mgr,
		tiepoint.WithIDFunc(func() string { n++; return fmt.Sprintf("tp%d", n) }),
	)
	mgr.Configure(sess.Capture, sess.Restore)
	if err := sess.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	return &testRig{ui: New(term, sess, mgr), sim: sim, session: sess, history: mgr}
}

func (r *testRig) key(k tcell.Key, ch rune, mod tcell.ModMask) bool {
	return r.ui.HandleKey(tcell.NewEventKey(k, ch, mod))
}

func (r *testRig) rune(ch rune) bool {
	return r.key(tcell.KeyRune, ch, tcell.ModNone)
}

func (r *testRig) row(y int) string {
	w, _ := r.sim.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		mainc, _, _, _ := r.sim.GetContent(x, y)
		if mainc == 0 {
			mainc = ' '
		}
		b.WriteRune(mainc)
	}
	return b.String()
}

func TestLayout(t *testing.T) {
	img, mp := layout(81, 24)
	if img != (Rect{X: 0, Y: 1, W: 40, H: 22}) {
		t.Errorf("image rect = %+v", img)
	}
	if mp != (Rect{X: 41, Y: 1, W: 40, H: 22}) {
		t.Errorf("map rect = %+v", mp)
	}

	img, mp = layout(0, 0)
	if img.W != 0 || img.H != 0 || mp.W != 0 {
		t.Errorf("degenerate layout = %+v %+v", img, mp)
	}
}

func TestPaneCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		ext    extent
		cx, cy int
		want   tiepoint.Point
	}{
		{"image origin", imageExtent(780, 210), 0, 0, tiepoint.Point{X: 0, Y: 0}},
		{"image corner", imageExtent(780, 210), 39, 21, tiepoint.Point{X: 780, Y: 210}},
		{"map top left", mapExtent(), 0, 0, tiepoint.Point{X: -180, Y: 90}},
		{"map bottom right", mapExtent(), 39, 21, tiepoint.Point{X: 180, Y: -90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pane{rect: Rect{W: 40, H: 22}, extent: tt.ext}
			got := p.toWorld(tt.cx, tt.cy)
			if got != tt.want {
				t.Errorf("toWorld(%d, %d) = %+v, want %+v", tt.cx, tt.cy, got, tt.want)
			}
			cx, cy, ok := p.toCell(got)
			if !ok || cx != tt.cx || cy != tt.cy {
				t.Errorf("toCell(%+v) = %d, %d, %v", got, cx, cy, ok)
			}
		})
	}
}

func TestCursorClamped(t *testing.T) {
	r := newRig(t)
	r.key(tcell.KeyLeft, 0, tcell.ModNone)
	r.key(tcell.KeyUp, 0, tcell.ModNone)
	if got := r.ui.Cursor(); got != (tiepoint.Point{}) {
		t.Errorf("cursor = %+v, want origin", got)
	}
	for i := 0; i < 100; i++ {
		r.key(tcell.KeyRight, 0, tcell.ModNone)
	}
	if got := r.ui.Cursor(); got.X != 780 {
		t.Errorf("cursor x = %v, want 780", got.X)
	}
}

func TestPlaceUndoRedo(t *testing.T) {
	r := newRig(t)

	// image point at cell (2, 1), then map point at the map pane origin
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.key(tcell.KeyEnter, 0, tcell.ModNone)
	r.key(tcell.KeyTab, 0, tcell.ModNone)
	r.rune(' ')

	o := r.session.Overlay()
	if len(o.Points) != 1 || !o.Points[0].Complete() {
		t.Fatalf("points = %+v, want one complete tie point", o.Points)
	}
	if got := *o.Points[0].Image; got != (tiepoint.Point{X: 40, Y: 10}) {
		t.Errorf("image point = %+v", got)
	}
	if got := *o.Points[0].Map; got != (tiepoint.Point{X: -180, Y: 90}) {
		t.Errorf("map point = %+v", got)
	}

	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl)
	o = r.session.Overlay()
	if o.Points[0].Map != nil {
		t.Errorf("undo should remove the map side, got %+v", o.Points[0])
	}
	if r.ui.Status() != "undo" {
		t.Errorf("status = %q", r.ui.Status())
	}

	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl)
	if n := r.session.Len(); n != 0 {
		t.Errorf("Len = %d after second undo, want 0", n)
	}

	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl)
	if r.ui.Status() != "nothing to undo" {
		t.Errorf("status = %q, want nothing to undo", r.ui.Status())
	}

	r.key(tcell.KeyCtrlY, 0, tcell.ModCtrl)
	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl|tcell.ModShift)
	o = r.session.Overlay()
	if len(o.Points) != 1 || !o.Points[0].Complete() {
		t.Errorf("after redo twice points = %+v", o.Points)
	}

	r.key(tcell.KeyCtrlY, 0, tcell.ModCtrl)
	if r.ui.Status() != "nothing to redo" {
		t.Errorf("status = %q, want nothing to redo", r.ui.Status())
	}
}

func TestDeleteModePicksNearest(t *testing.T) {
	r := newRig(t)
	r.rune(' ')
	for i := 0; i < 10; i++ {
		r.key(tcell.KeyRight, 0, tcell.ModNone)
	}
	r.rune(' ')
	if r.session.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.session.Len())
	}

	r.rune('d')
	r.key(tcell.KeyLeft, 0, tcell.ModNone)
	r.rune(' ')
	if r.session.Len() != 1 {
		t.Fatalf("Len = %d after delete, want 1", r.session.Len())
	}
	if got := r.session.Overlay().Points[0].Image.X; got != 0 {
		t.Errorf("remaining point x = %v, want 0", got)
	}

	for i := 0; i < 10; i++ {
		r.key(tcell.KeyLeft, 0, tcell.ModNone)
	}
	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.rune(' ')
	if r.ui.Status() != "no point under cursor" {
		t.Errorf("status = %q", r.ui.Status())
	}
}

func TestNavigateSelectAndMove(t *testing.T) {
	r := newRig(t)
	r.rune(' ')
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.rune(' ')

	r.rune('n')
	r.rune('[')
	if got := r.session.Selected(); got != 0 {
		t.Fatalf("Selected = %d after select.prev, want 0", got)
	}
	r.rune(']')
	if got := r.session.Selected(); got != 1 {
		t.Fatalf("Selected = %d after select.next, want 1", got)
	}

	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.rune('m')
	if got := *r.session.Overlay().Points[1].Image; got != (tiepoint.Point{X: 80, Y: 10}) {
		t.Errorf("moved point = %+v", got)
	}

	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl)
	if got := *r.session.Overlay().Points[1].Image; got != (tiepoint.Point{X: 80, Y: 0}) {
		t.Errorf("after undo point = %+v", got)
	}

	r.key(tcell.KeyDelete, 0, tcell.ModNone)
	if r.session.Len() != 1 {
		t.Errorf("Len = %d after delete, want 1", r.session.Len())
	}
}

func TestDrawShowsMarkersAndStatus(t *testing.T) {
	r := newRig(t)
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.key(tcell.KeyDown, 0, tcell.ModNone)
	r.rune(' ')
	r.ui.Draw()

	if got := r.row(0); !strings.HasPrefix(got, "image: scan") {
		t.Errorf("title row = %q", got)
	}
	if got := r.row(2); got[1] != '+' {
		t.Errorf("cursor row = %q, want '+' over the marker", got)
	}

	r.rune('n')
	r.key(tcell.KeyRight, 0, tcell.ModNone)
	r.ui.Draw()
	if got := r.row(2); got[1] != '1' || got[2] != '+' {
		t.Errorf("marker row = %q", got)
	}

	status := r.row(23)
	for _, want := range []string{"navigate", "points 0/1", "fit none", "undo 2 redo 0"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q missing %q", status, want)
		}
	}
}

func TestStatusLineFit(t *testing.T) {
	r := newRig(t)
	r.rune(' ')
	r.key(tcell.KeyTab, 0, tcell.ModNone)
	r.rune(' ')

	if got := r.ui.StatusLine(); !strings.Contains(got, "fit translate rms 0") {
		t.Errorf("status line = %q", got)
	}
}

func TestKeymapOverride(t *testing.T) {
	r := newRig(t)
	km := keymap.Default()
	if err := km.Override(map[string]string{"undo": "u"}); err != nil {
		t.Fatal(err)
	}
	r.ui.SetKeymap(km)

	r.rune(' ')
	r.key(tcell.KeyCtrlZ, 0, tcell.ModCtrl)
	if r.session.Len() != 1 {
		t.Fatal("Ctrl+Z should no longer undo")
	}
	r.rune('u')
	if r.session.Len() != 0 {
		t.Error("u should undo")
	}
}

func TestRunQuits(t *testing.T) {
	r := newRig(t)
	r.sim.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	r.sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	done := make(chan error, 1)
	go func() { done <- r.ui.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
	if r.session.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.session.Len())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.ui.Run(ctx) }()

	ran := make(chan struct{})
	r.ui.Do(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Do callback not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

func TestDoReportsFullQueue(t *testing.T) {
	r := newRig(t)
	logs := &recordingLogger{}
	u := New(r.ui.term, r.session, r.history, WithLogger(logs))

	// Nothing polls the queue, so it fills up.
	dropped := false
	for i := 0; i < 1000 && !dropped; i++ {
		dropped = !u.Do(func() {})
	}
	if !dropped {
		t.Fatal("Do never reported a full event queue")
	}
	if len(logs.errors) != 1 || !strings.Contains(logs.errors[0], "dropped queued ui call") {
		t.Errorf("logged errors = %q", logs.errors)
	}
}
