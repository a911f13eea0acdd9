package tiepoint

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/tiewarp/internal/history"
)

// Recorder is notified after every discrete edit.
// *history.Manager satisfies it.
type Recorder interface {
	RecordAction() (bool, error)
}

// Session owns the overlay being aligned and reports edits to a Recorder.
// Tie point edits (place, move, delete) are recorded; selection and mode
// changes are carried along in the next snapshot but are not actions.
type Session struct {
	overlay  Overlay
	recorder Recorder
	newID    func() string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIDFunc overrides tie point ID generation.
func WithIDFunc(fn func() string) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewSession creates a session for the given overlay.
func NewSession(o Overlay, rec Recorder, opts ...SessionOption) *Session {
	s := &Session{
		overlay:  o.Clone(),
		recorder: rec,
		newID:    uuid.NewString,
	}
	if s.overlay.Mode == "" {
		s.overlay.Mode = ModeAdd
	}
	if len(s.overlay.Points) == 0 {
		s.overlay.Selected = -1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRecorder replaces the recorder.
func (s *Session) SetRecorder(rec Recorder) {
	s.recorder = rec
}

// Overlay returns a copy of the current overlay state.
func (s *Session) Overlay() Overlay {
	return s.overlay.Clone()
}

// Len returns the number of tie points.
func (s *Session) Len() int {
	return len(s.overlay.Points)
}

// Checkpoint records the present state without editing it.
func (s *Session) Checkpoint() error {
	return s.record()
}

// Place sets side s of the first tie point still missing it, or starts a new
// tie point when every existing one has that side. It returns the index of
// the tie point that was updated.
func (s *Session) Place(side Side, p Point) (int, error) {
	idx := s.overlay.firstIncomplete(side)
	if idx < 0 {
		s.overlay.Points = append(s.overlay.Points, TiePoint{ID: s.newID()})
		idx = len(s.overlay.Points) - 1
	}
	setSide(&s.overlay.Points[idx], side, p)
	s.overlay.Selected = idx
	return idx, s.record()
}

// AddImagePoint places an image-side point.
func (s *Session) AddImagePoint(p Point) (int, error) {
	return s.Place(SideImage, p)
}

// AddMapPoint places a map-side point.
func (s *Session) AddMapPoint(p Point) (int, error) {
	return s.Place(SideMap, p)
}

// Move repositions side s of tie point i.
func (s *Session) Move(side Side, i int, p Point) error {
	if err := s.check(i); err != nil {
		return err
	}
	setSide(&s.overlay.Points[i], side, p)
	s.overlay.Selected = i
	return s.record()
}

// Delete removes tie point i. The selection stays on the same tie point
// when another one is deleted. Deleting the selected tie point moves the
// selection to its successor, or to the new last point when it was last.
func (s *Session) Delete(i int) error {
	if err := s.check(i); err != nil {
		return err
	}
	pts := s.overlay.Points
	s.overlay.Points = append(pts[:i:i], pts[i+1:]...)

	sel, n := s.overlay.Selected, len(s.overlay.Points)
	switch {
	case n == 0:
		sel = -1
	case i < sel:
		sel--
	case sel >= n:
		sel = n - 1
	}
	s.overlay.Selected = sel
	return s.record()
}

// Select marks tie point i as selected; -1 clears the selection.
func (s *Session) Select(i int) error {
	if i != -1 {
		if err := s.check(i); err != nil {
			return err
		}
	}
	s.overlay.Selected = i
	return nil
}

// Selected returns the selected index, or -1.
func (s *Session) Selected() int {
	return s.overlay.Selected
}

// SetMode switches the interaction mode.
func (s *Session) SetMode(m Mode) {
	s.overlay.Mode = m
}

// Mode returns the interaction mode.
func (s *Session) Mode() Mode {
	return s.overlay.Mode
}

// Capture returns the whole overlay for the history manager.
func (s *Session) Capture() (any, error) {
	return s.overlay.Clone(), nil
}

// Restore replaces the overlay with the one encoded in snap.
func (s *Session) Restore(snap history.Snapshot) error {
	var o Overlay
	if err := snap.Decode(&o); err != nil {
		return fmt.Errorf("decode overlay: %w", err)
	}
	if o.Points == nil {
		o.Points = []TiePoint{}
	}
	if o.Selected >= len(o.Points) {
		o.Selected = len(o.Points) - 1
	}
	s.overlay = o
	return nil
}

func (s *Session) check(i int) error {
	if i < 0 || i >= len(s.overlay.Points) {
		return fmt.Errorf("%w: %d (have %d)", ErrNoSuchPoint, i, len(s.overlay.Points))
	}
	return nil
}

func (s *Session) record() error {
	if s.recorder == nil {
		return nil
	}
	_, err := s.recorder.RecordAction()
	return err
}

func setSide(tp *TiePoint, side Side, p Point) {
	pt := p
	if side == SideMap {
		tp.Map = &pt
		return
	}
	tp.Image = &pt
}
