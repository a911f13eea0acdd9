// Package tiepoint models an image overlay being warped onto a map and the
// tie points that pair image positions with map positions.
package tiepoint

import (
	"errors"
	"fmt"
)

// Errors returned by tie point operations.
var (
	// ErrNoSuchPoint indicates a tie point index is out of range.
	ErrNoSuchPoint = errors.New("no such tie point")

	// ErrUnknownMode indicates an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown mode")
)

// Point is a position in image pixels or map coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TiePoint pairs an image position with a map position.
// Either side may be unset while the user is still placing it.
type TiePoint struct {
	ID    string `json:"id"`
	Image *Point `json:"image,omitempty"`
	Map   *Point `json:"map,omitempty"`
}

// Complete reports whether both sides are placed.
func (tp TiePoint) Complete() bool {
	return tp.Image != nil && tp.Map != nil
}

func (tp TiePoint) clone() TiePoint {
	out := TiePoint{ID: tp.ID}
	if tp.Image != nil {
		p := *tp.Image
		out.Image = &p
	}
	if tp.Map != nil {
		p := *tp.Map
		out.Map = &p
	}
	return out
}

// Side selects the image or map half of a tie point.
type Side int

const (
	// SideImage is the image viewer side.
	SideImage Side = iota
	// SideMap is the map viewer side.
	SideMap
)

func (s Side) String() string {
	if s == SideMap {
		return "map"
	}
	return "image"
}

// Mode is the interaction mode of the alignment view.
type Mode string

const (
	// ModeNavigate pans and selects without editing.
	ModeNavigate Mode = "navigate"
	// ModeAdd places and drags tie points.
	ModeAdd Mode = "add"
	// ModeDelete removes tie points on selection.
	ModeDelete Mode = "delete"
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNavigate, ModeAdd, ModeDelete:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Overlay is the complete interface state of one alignment session.
type Overlay struct {
	Name        string     `json:"name"`
	ImageWidth  int        `json:"imageWidth"`
	ImageHeight int        `json:"imageHeight"`
	Points      []TiePoint `json:"points"`
	Selected    int        `json:"selected"`
	Mode        Mode       `json:"mode"`
}

// Clone returns a deep copy of the overlay.
func (o Overlay) Clone() Overlay {
	out := o
	out.Points = make([]TiePoint, len(o.Points))
	for i, tp := range o.Points {
		out.Points[i] = tp.clone()
	}
	return out
}

// Pairs returns the image and map positions of every complete tie point,
// in tie point order.
func (o Overlay) Pairs() (image, mapped []Point) {
	for _, tp := range o.Points {
		if tp.Complete() {
			image = append(image, *tp.Image)
			mapped = append(mapped, *tp.Map)
		}
	}
	return image, mapped
}

// firstIncomplete returns the index of the first tie point missing side s.
func (o Overlay) firstIncomplete(s Side) int {
	for i, tp := range o.Points {
		if s == SideImage && tp.Image == nil {
			return i
		}
		if s == SideMap && tp.Map == nil {
			return i
		}
	}
	return -1
}
