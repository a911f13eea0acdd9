package history

// CaptureFunc returns the current host state as a JSON-serializable value.
type CaptureFunc func() (any, error)

// RestoreFunc re-applies a previously captured snapshot to the host.
// It must be safe to call repeatedly with the same snapshot.
type RestoreFunc func(Snapshot) error

// Manager keeps an undo stack and a redo stack of state snapshots.
type Manager struct {
	undoStack stack
	redoStack stack

	capture CaptureFunc
	restore RestoreFunc

	strict bool
	logger Logger
}

// New creates a history manager with empty stacks.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configure registers the capture and restore hooks. A nil hook leaves the
// corresponding stub (or, in strict mode, ErrNotConfigured) in effect.
func (m *Manager) Configure(capture CaptureFunc, restore RestoreFunc) {
	m.capture = capture
	m.restore = restore
}

// Configured reports whether both hooks are registered.
func (m *Manager) Configured() bool {
	return m.capture != nil && m.restore != nil
}

// RecordAction captures the present state and pushes it onto the undo stack
// unless it equals the current top. Any pending redo entries are drained onto
// the undo stack first. It reports whether a new snapshot was pushed.
func (m *Manager) RecordAction() (bool, error) {
	if err := m.checkHooks(); err != nil {
		return false, err
	}
	present, err := m.capturePresent("record")
	if err != nil {
		return false, err
	}

	if moved := m.redoStack.drainInto(&m.undoStack); moved > 0 {
		m.logger.Debug("history: drained %d redo entries onto undo stack", moved)
	}

	pushed := m.undoStack.pushDistinct(present)
	if !pushed {
		m.logger.Debug("history: duplicate snapshot suppressed")
	}
	return pushed, nil
}

// Undo restores the most recent undoable state, saving the present state onto
// the redo stack first. It reports whether a state was restored; with nothing
// to undo it is a silent no-op.
func (m *Manager) Undo() (bool, error) {
	if m.undoStack.len() < 1 {
		return false, nil
	}
	if err := m.checkHooks(); err != nil {
		return false, err
	}
	present, err := m.capturePresent("undo")
	if err != nil {
		return false, err
	}

	// The host usually records after each action, which leaves the present
	// state on top of the undo stack. That entry is not history to go back
	// to; the one beneath it is.
	presentOnTop := m.undoStack.top().Equal(present)
	if presentOnTop && m.undoStack.len() < 2 {
		return false, nil
	}

	m.redoStack.pushDistinct(present)
	target := m.undoStack.pop()
	if presentOnTop {
		target = m.undoStack.top()
	}
	if err := m.apply("undo", target); err != nil {
		return false, err
	}
	return true, nil
}

// Redo restores the most recently undone state, saving the present state onto
// the undo stack first. With nothing to redo it is a silent no-op.
func (m *Manager) Redo() (bool, error) {
	if m.redoStack.len() < 1 {
		return false, nil
	}
	if err := m.checkHooks(); err != nil {
		return false, err
	}
	present, err := m.capturePresent("redo")
	if err != nil {
		return false, err
	}

	saved := m.undoStack.pushDistinct(present)
	target := m.redoStack.pop()
	if err := m.apply("redo", target); err != nil {
		return false, err
	}
	if !saved {
		// The present was already on top; keep the redone state there too.
		m.undoStack.pushDistinct(target)
	}
	return true, nil
}

// CanUndo returns true if undo is available.
func (m *Manager) CanUndo() bool {
	return m.undoStack.len() > 0
}

// CanRedo returns true if redo is available.
func (m *Manager) CanRedo() bool {
	return m.redoStack.len() > 0
}

// UndoCount returns the number of snapshots on the undo stack.
func (m *Manager) UndoCount() int {
	return m.undoStack.len()
}

// RedoCount returns the number of snapshots on the redo stack.
func (m *Manager) RedoCount() int {
	return m.redoStack.len()
}

// PeekUndo returns the top of the undo stack without removing it.
func (m *Manager) PeekUndo() (Snapshot, bool) {
	if m.undoStack.len() == 0 {
		return nil, false
	}
	return m.undoStack.top(), true
}

// PeekRedo returns the top of the redo stack without removing it.
func (m *Manager) PeekRedo() (Snapshot, bool) {
	if m.redoStack.len() == 0 {
		return nil, false
	}
	return m.redoStack.top(), true
}

// UndoStack returns a copy of the undo stack, oldest first.
func (m *Manager) UndoStack() []Snapshot {
	return m.undoStack.snapshot()
}

// RedoStack returns a copy of the redo stack, oldest first.
func (m *Manager) RedoStack() []Snapshot {
	return m.redoStack.snapshot()
}

// Clear removes all undo/redo history. Hooks stay registered.
func (m *Manager) Clear() {
	m.undoStack.clear()
	m.redoStack.clear()
}

func (m *Manager) checkHooks() error {
	if m.strict && !m.Configured() {
		return ErrNotConfigured
	}
	return nil
}

// capturePresent runs the capture hook, or the stub when none is registered.
func (m *Manager) capturePresent(op string) (Snapshot, error) {
	if m.capture == nil {
		m.logger.Warn("capture stub was called")
		return emptySnapshot, nil
	}
	v, err := m.capture()
	if err != nil {
		return nil, &CaptureError{Op: op, Err: err}
	}
	snap, err := Encode(v)
	if err != nil {
		return nil, &CaptureError{Op: op, Err: err}
	}
	return snap, nil
}

// apply hands target to the restore hook, or the stub when none is registered.
func (m *Manager) apply(op string, target Snapshot) error {
	if m.restore == nil {
		m.logger.Warn("restore stub was called")
		return nil
	}
	if err := m.restore(target); err != nil {
		return &RestoreError{Op: op, Snapshot: target, Err: err}
	}
	return nil
}
