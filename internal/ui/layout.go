package ui

import (
	"math"

	"github.com/dshills/tiewarp/internal/tiepoint"
)

// Rect is a cell rectangle on the screen.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Map pane extent in degrees.
const (
	minLon, maxLon = -180.0, 180.0
	minLat, maxLat = -90.0, 90.0
)

// pane is one of the two viewers. The cursor is kept in pane-relative cells.
type pane struct {
	side   tiepoint.Side
	title  string
	rect   Rect
	curX   int
	curY   int
	extent extent
}

// extent is the world rectangle a pane shows. Y grows downward for images
// and upward (latitude) for maps.
type extent struct {
	minX, maxX float64
	minY, maxY float64
	flipY      bool
}

func imageExtent(w, h int) extent {
	return extent{maxX: float64(w), maxY: float64(h)}
}

func mapExtent() extent {
	return extent{minX: minLon, maxX: maxLon, minY: minLat, maxY: maxLat, flipY: true}
}

func span(n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(n - 1)
}

// toWorld converts pane-relative cell coordinates to world coordinates.
func (p *pane) toWorld(cx, cy int) tiepoint.Point {
	e := p.extent
	fx := float64(cx) / span(p.rect.W)
	fy := float64(cy) / span(p.rect.H)
	if e.flipY {
		fy = 1 - fy
	}
	return tiepoint.Point{
		X: e.minX + fx*(e.maxX-e.minX),
		Y: e.minY + fy*(e.maxY-e.minY),
	}
}

// toCell converts world coordinates to pane-relative cells. ok is false when
// the point falls outside the pane.
func (p *pane) toCell(pt tiepoint.Point) (cx, cy int, ok bool) {
	e := p.extent
	if e.maxX == e.minX || e.maxY == e.minY {
		return 0, 0, false
	}
	fx := (pt.X - e.minX) / (e.maxX - e.minX)
	fy := (pt.Y - e.minY) / (e.maxY - e.minY)
	if e.flipY {
		fy = 1 - fy
	}
	cx = int(math.Round(fx * span(p.rect.W)))
	cy = int(math.Round(fy * span(p.rect.H)))
	ok = cx >= 0 && cx < p.rect.W && cy >= 0 && cy < p.rect.H
	return cx, cy, ok
}

func (p *pane) cursor() tiepoint.Point {
	return p.toWorld(p.curX, p.curY)
}

func (p *pane) moveCursor(dx, dy int) {
	p.curX = clamp(p.curX+dx, 0, p.rect.W-1)
	p.curY = clamp(p.curY+dy, 0, p.rect.H-1)
}

func (p *pane) resize(r Rect) {
	p.rect = r
	p.moveCursor(0, 0)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// layout splits a width x height screen into a title row, two panes side
// by side with a one-column divider, and a status row.
func layout(width, height int) (image, mapped Rect) {
	paneH := height - 2
	if paneH < 0 {
		paneH = 0
	}
	left := (width - 1) / 2
	if left < 0 {
		left = 0
	}
	right := width - left - 1
	if right < 0 {
		right = 0
	}
	return Rect{X: 0, Y: 1, W: left, H: paneH}, Rect{X: left + 1, Y: 1, W: right, H: paneH}
}
