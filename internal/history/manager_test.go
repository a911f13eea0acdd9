package history

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// fakeHost is a minimal application whose whole state is a flat map.
type fakeHost struct {
	state      map[string]any
	restored   []string
	captureErr error
	restoreErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{state: map[string]any{}}
}

func (h *fakeHost) set(key string, value any) {
	h.state[key] = value
}

func (h *fakeHost) capture() (any, error) {
	if h.captureErr != nil {
		return nil, h.captureErr
	}
	out := make(map[string]any, len(h.state))
	for k, v := range h.state {
		out[k] = v
	}
	return out, nil
}

func (h *fakeHost) restore(s Snapshot) error {
	if h.restoreErr != nil {
		return h.restoreErr
	}
	var next map[string]any
	if err := s.Decode(&next); err != nil {
		return err
	}
	h.state = next
	h.restored = append(h.restored, s.String())
	return nil
}

func (h *fakeHost) current(t *testing.T) string {
	t.Helper()
	snap, err := Encode(h.state)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return snap.String()
}

func newTestManager(h *fakeHost, opts ...Option) *Manager {
	m := New(opts...)
	m.Configure(h.capture, h.restore)
	return m
}

func strs(snaps []Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.String()
	}
	return out
}

func n(v int) string {
	return fmt.Sprintf(`{"n":%d}`, v)
}

func mustRecord(t *testing.T, m *Manager) bool {
	t.Helper()
	pushed, err := m.RecordAction()
	if err != nil {
		t.Fatalf("RecordAction failed: %v", err)
	}
	return pushed
}

func mustUndo(t *testing.T, m *Manager) bool {
	t.Helper()
	ok, err := m.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	return ok
}

func mustRedo(t *testing.T, m *Manager) bool {
	t.Helper()
	ok, err := m.Redo()
	if err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	return ok
}

func checkStacks(t *testing.T, m *Manager, wantUndo, wantRedo []string) {
	t.Helper()
	if got := strs(m.UndoStack()); !slices.Equal(got, wantUndo) {
		t.Errorf("undo stack = %v, want %v", got, wantUndo)
	}
	if got := strs(m.RedoStack()); !slices.Equal(got, wantRedo) {
		t.Errorf("redo stack = %v, want %v", got, wantRedo)
	}
}

func TestManagerScenario(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)

	h.set("x", 1)
	if !mustRecord(t, m) {
		t.Error("first record should push")
	}
	checkStacks(t, m, []string{`{"x":1}`}, []string{})

	if mustRecord(t, m) {
		t.Error("unchanged state should not push")
	}
	checkStacks(t, m, []string{`{"x":1}`}, []string{})

	h.set("x", 2)
	if !mustRecord(t, m) {
		t.Error("changed state should push")
	}
	checkStacks(t, m, []string{`{"x":1}`, `{"x":2}`}, []string{})

	if !mustUndo(t, m) {
		t.Fatal("undo should apply")
	}
	if got := h.restored[len(h.restored)-1]; got != `{"x":1}` {
		t.Errorf("undo restored %s, want {\"x\":1}", got)
	}
	checkStacks(t, m, []string{`{"x":1}`}, []string{`{"x":2}`})

	if !mustRedo(t, m) {
		t.Fatal("redo should apply")
	}
	if got := h.restored[len(h.restored)-1]; got != `{"x":2}` {
		t.Errorf("redo restored %s, want {\"x\":2}", got)
	}
	checkStacks(t, m, []string{`{"x":1}`, `{"x":2}`}, []string{})
}

func TestRecordActionSuppressesDuplicates(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	h.set("n", 0)

	pushes := 0
	for i := 0; i < 5; i++ {
		if mustRecord(t, m) {
			pushes++
		}
	}
	if pushes != 1 {
		t.Errorf("pushes = %d, want 1", pushes)
	}
	if m.UndoCount() != 1 {
		t.Errorf("UndoCount() = %d, want 1", m.UndoCount())
	}
}

func TestRecordActionKeyOrderIrrelevant(t *testing.T) {
	calls := 0
	m := New()
	m.Configure(func() (any, error) {
		calls++
		if calls == 1 {
			return []byte(`{"b":2, "a":{"y":1,"x":0}}`), nil
		}
		return []byte(`{"a":{"x":0,"y":1},"b":2}`), nil
	}, func(Snapshot) error { return nil })

	mustRecord(t, m)
	if mustRecord(t, m) {
		t.Error("same logical state with different key order should be a duplicate")
	}
	checkStacks(t, m, []string{`{"a":{"x":0,"y":1},"b":2}`}, []string{})
}

func TestUndoRedoSymmetry(t *testing.T) {
	for _, count := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("N=%d", count), func(t *testing.T) {
			h := newFakeHost()
			m := newTestManager(h)

			for i := 0; i <= count; i++ {
				h.set("n", i)
				mustRecord(t, m)
			}
			beforeUndo := strs(m.UndoStack())
			beforeRedo := strs(m.RedoStack())

			mustUndo(t, m)
			if got := h.current(t); got != n(count-1) {
				t.Errorf("after undo state = %s, want %s", got, n(count-1))
			}
			mustRedo(t, m)
			if got := h.current(t); got != n(count) {
				t.Errorf("after redo state = %s, want %s", got, n(count))
			}
			checkStacks(t, m, beforeUndo, beforeRedo)
		})
	}
}

func TestUndoRedoSymmetryRecordBeforeEdit(t *testing.T) {
	// Hosts may record the state just before mutating it instead of after.
	h := newFakeHost()
	m := newTestManager(h)

	h.set("n", 0)
	mustRecord(t, m)
	h.set("n", 1)
	mustRecord(t, m)
	h.set("n", 2)

	checkStacks(t, m, []string{n(0), n(1)}, []string{})

	mustUndo(t, m)
	if got := h.current(t); got != n(1) {
		t.Errorf("after undo state = %s, want %s", got, n(1))
	}
	checkStacks(t, m, []string{n(0)}, []string{n(2)})

	mustRedo(t, m)
	if got := h.current(t); got != n(2) {
		t.Errorf("after redo state = %s, want %s", got, n(2))
	}
	checkStacks(t, m, []string{n(0), n(1)}, []string{})
}

func TestMultipleUndoThenRedo(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	for i := 0; i <= 3; i++ {
		h.set("n", i)
		mustRecord(t, m)
	}

	for want := 2; want >= 0; want-- {
		mustUndo(t, m)
		if got := h.current(t); got != n(want) {
			t.Fatalf("undo: state = %s, want %s", got, n(want))
		}
	}
	if mustUndo(t, m) {
		t.Error("undo past the first recorded state should be a no-op")
	}
	checkStacks(t, m, []string{n(0)}, []string{n(3), n(2), n(1)})

	for want := 1; want <= 3; want++ {
		mustRedo(t, m)
		if got := h.current(t); got != n(want) {
			t.Fatalf("redo: state = %s, want %s", got, n(want))
		}
	}
	checkStacks(t, m, []string{n(0), n(1), n(2), n(3)}, []string{})
}

func TestRecordActionDrainsRedoStack(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	for i := 0; i <= 3; i++ {
		h.set("n", i)
		mustRecord(t, m)
	}

	mustUndo(t, m)
	mustUndo(t, m)
	checkStacks(t, m, []string{n(0), n(1)}, []string{n(3), n(2)})

	// A fresh edit while at n=1.
	h.set("n", 10)
	if !mustRecord(t, m) {
		t.Error("new distinct action should push")
	}
	checkStacks(t, m, []string{n(0), n(1), n(2), n(3), n(10)}, []string{})
	if m.CanRedo() {
		t.Error("redo should be unavailable after a new action")
	}

	// The undone states are reachable again through undo.
	mustUndo(t, m)
	if got := h.current(t); got != n(3) {
		t.Errorf("undo after new action restored %s, want %s", got, n(3))
	}
	checkStacks(t, m, []string{n(0), n(1), n(2), n(3)}, []string{n(10)})
}

func TestRecordActionDrainReversesOrder(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)

	// The latest edit stays unrecorded so each undo pops a distinct entry.
	for i := 0; i < 4; i++ {
		h.set("n", i)
		mustRecord(t, m)
	}
	h.set("n", 4)
	mustUndo(t, m) // at 3
	mustUndo(t, m) // at 2
	mustUndo(t, m) // at 1
	checkStacks(t, m, []string{n(0)}, []string{n(4), n(3), n(2)})

	h.set("n", 7)
	mustRecord(t, m)
	checkStacks(t, m, []string{n(0), n(2), n(3), n(4), n(7)}, []string{})
}

func TestRestoreIsIdempotent(t *testing.T) {
	h := newFakeHost()
	h.set("n", 1)
	h.set("mode", "add")
	snap, err := Encode(h.state)
	if err != nil {
		t.Fatal(err)
	}

	h.set("n", 5)
	if err := h.restore(snap); err != nil {
		t.Fatal(err)
	}
	once := h.current(t)
	if err := h.restore(snap); err != nil {
		t.Fatal(err)
	}
	if twice := h.current(t); twice != once {
		t.Errorf("second restore changed state: %s != %s", twice, once)
	}
}

func TestEmptyStacksAreNoOps(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)

	if ok, err := m.Undo(); ok || err != nil {
		t.Errorf("Undo() on empty = (%v, %v), want (false, nil)", ok, err)
	}
	if ok, err := m.Redo(); ok || err != nil {
		t.Errorf("Redo() on empty = (%v, %v), want (false, nil)", ok, err)
	}
	if len(h.restored) != 0 {
		t.Errorf("restore called %d times, want 0", len(h.restored))
	}
	checkStacks(t, m, []string{}, []string{})
}

func TestUndoOnlyPresentState(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	h.set("n", 0)
	mustRecord(t, m)

	if mustUndo(t, m) {
		t.Error("undo with only the present state recorded should be a no-op")
	}
	checkStacks(t, m, []string{n(0)}, []string{})
	if len(h.restored) != 0 {
		t.Errorf("restore called %d times, want 0", len(h.restored))
	}
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(msg, args...))
}

func TestStubHooks(t *testing.T) {
	log := &recordingLogger{}
	m := New(WithLogger(log))

	if m.Configured() {
		t.Error("Configured() should be false without hooks")
	}
	if !mustRecord(t, m) {
		t.Error("stub capture should record the empty state once")
	}
	if mustRecord(t, m) {
		t.Error("repeated stub capture should be suppressed")
	}
	checkStacks(t, m, []string{`{}`}, []string{})
	if len(log.warnings) != 2 || log.warnings[0] != "capture stub was called" {
		t.Errorf("warnings = %v", log.warnings)
	}

	// A restore stub only logs.
	m.Configure(func() (any, error) { return map[string]int{"n": 1}, nil }, nil)
	mustRecord(t, m)
	if !mustUndo(t, m) {
		t.Error("undo should succeed with the restore stub")
	}
	if got := log.warnings[len(log.warnings)-1]; got != "restore stub was called" {
		t.Errorf("last warning = %q", got)
	}
}

func TestStrictHooks(t *testing.T) {
	m := New(WithStrictHooks())

	if _, err := m.RecordAction(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RecordAction() error = %v, want ErrNotConfigured", err)
	}

	h := newFakeHost()
	m = New(WithStrictHooks(), WithHooks(h.capture, h.restore))
	h.set("n", 1)
	if _, err := m.RecordAction(); err != nil {
		t.Errorf("RecordAction() with hooks error = %v", err)
	}
}

func TestCaptureErrorLeavesStacks(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	for i := 0; i < 3; i++ {
		h.set("n", i)
		mustRecord(t, m)
	}
	mustUndo(t, m)
	undoBefore, redoBefore := strs(m.UndoStack()), strs(m.RedoStack())

	boom := errors.New("boom")
	h.captureErr = boom

	for name, op := range map[string]func() (bool, error){
		"record": m.RecordAction,
		"undo":   m.Undo,
		"redo":   m.Redo,
	} {
		_, err := op()
		var ce *CaptureError
		if !errors.As(err, &ce) || !errors.Is(err, boom) {
			t.Errorf("%s: error = %v, want CaptureError wrapping boom", name, err)
		}
	}
	checkStacks(t, m, undoBefore, redoBefore)
}

func TestCaptureUnserializable(t *testing.T) {
	m := New()
	m.Configure(func() (any, error) { return make(chan int), nil }, func(Snapshot) error { return nil })

	_, err := m.RecordAction()
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("RecordAction() error = %v, want ErrInvalidSnapshot", err)
	}
	if m.UndoCount() != 0 {
		t.Errorf("UndoCount() = %d, want 0", m.UndoCount())
	}
}

func TestRestoreErrorPropagates(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	h.set("x", 1)
	mustRecord(t, m)
	h.set("x", 2)
	mustRecord(t, m)

	broken := errors.New("render failed")
	h.restoreErr = broken

	ok, err := m.Undo()
	if ok {
		t.Error("failed undo should report false")
	}
	var re *RestoreError
	if !errors.As(err, &re) || !errors.Is(err, broken) {
		t.Fatalf("Undo() error = %v, want RestoreError wrapping cause", err)
	}
	if re.Snapshot.String() != `{"x":1}` {
		t.Errorf("RestoreError snapshot = %s", re.Snapshot)
	}
	// No rollback: the present was already moved to the redo stack.
	checkStacks(t, m, []string{`{"x":1}`}, []string{`{"x":2}`})
}

func TestPeekAndClear(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)

	if _, ok := m.PeekUndo(); ok {
		t.Error("PeekUndo() on empty should be false")
	}
	for i := 0; i < 3; i++ {
		h.set("n", i)
		mustRecord(t, m)
	}
	mustUndo(t, m)

	if top, ok := m.PeekUndo(); !ok || top.String() != n(1) {
		t.Errorf("PeekUndo() = %s, %v", top, ok)
	}
	if top, ok := m.PeekRedo(); !ok || top.String() != n(2) {
		t.Errorf("PeekRedo() = %s, %v", top, ok)
	}
	if !m.CanUndo() || !m.CanRedo() {
		t.Error("CanUndo/CanRedo should both be true")
	}

	m.Clear()
	if m.UndoCount() != 0 || m.RedoCount() != 0 {
		t.Errorf("after Clear counts = %d/%d", m.UndoCount(), m.RedoCount())
	}
	if !m.Configured() {
		t.Error("Clear should keep hooks")
	}
}

func TestStackCopiesAreIndependent(t *testing.T) {
	h := newFakeHost()
	m := newTestManager(h)
	h.set("n", 0)
	mustRecord(t, m)

	copied := m.UndoStack()
	copied[0] = Snapshot(`{"n":99}`)
	if top, _ := m.PeekUndo(); top.String() != n(0) {
		t.Errorf("UndoStack() copy aliases internal state: top = %s", top)
	}
}
