// Package warp fits the transform that carries image coordinates onto map
// coordinates from a set of tie points.
package warp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/dshills/tiewarp/internal/tiepoint"
)

// Errors returned by Fit.
var (
	// ErrTooFewPoints indicates there are no complete tie points to fit.
	ErrTooFewPoints = errors.New("too few tie points")

	// ErrMismatchedPoints indicates the point lists differ in length.
	ErrMismatchedPoints = errors.New("mismatched point lists")

	// ErrDegenerate indicates the tie points carry no usable geometry.
	ErrDegenerate = errors.New("degenerate tie points")
)

// Kind names the family of a fitted transform.
type Kind string

const (
	// KindTranslate shifts without rotating or scaling.
	KindTranslate Kind = "translate"
	// KindSimilarity rotates, scales uniformly and shifts.
	KindSimilarity Kind = "similarity"
	// KindAffine is a full 2x3 affine transform.
	KindAffine Kind = "affine"
)

// Point counts at which a richer transform family takes over.
const (
	minSimilarityPoints = 2
	minAffinePoints     = 3
)

// rcond is the relative singular value cutoff below which a direction of
// the design matrix counts as unconstrained.
const rcond = 1e-10

// Transform maps image coordinates to map coordinates:
//
//	x' = A*x + B*y + TX
//	y' = C*x + D*y + TY
type Transform struct {
	Kind Kind

	A, B, TX float64
	C, D, TY float64
}

// Forward applies the transform to p.
func (t Transform) Forward(p tiepoint.Point) tiepoint.Point {
	return tiepoint.Point{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// RMSError returns the root mean square distance between Forward(from[i])
// and to[i].
func (t Transform) RMSError(from, to []tiepoint.Point) float64 {
	if len(from) == 0 || len(from) != len(to) {
		return math.Inf(1)
	}
	var sum float64
	for i := range from {
		got := t.Forward(from[i])
		dx, dy := got.X-to[i].X, got.Y-to[i].Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(from)))
}

func (t Transform) String() string {
	return fmt.Sprintf("%s [%.4g %.4g %.4g; %.4g %.4g %.4g]", t.Kind, t.A, t.B, t.TX, t.C, t.D, t.TY)
}

// Fit chooses the transform family by point count: one pair gives a
// translation, two a rotate-scale-translate fit, three or more a
// least-squares affine fit. Collinear or coincident points do not fail; the
// unconstrained directions take the minimum-norm solution.
func Fit(from, to []tiepoint.Point) (Transform, error) {
	if len(from) != len(to) {
		return Transform{}, fmt.Errorf("%w: %d vs %d", ErrMismatchedPoints, len(from), len(to))
	}
	switch n := len(from); {
	case n == 0:
		return Transform{}, ErrTooFewPoints
	case n < minSimilarityPoints:
		return fitTranslate(from, to), nil
	case n < minAffinePoints:
		return fitSimilarity(from, to)
	default:
		return fitAffine(from, to)
	}
}

// FitOverlay fits the complete tie points of o.
func FitOverlay(o tiepoint.Overlay) (Transform, error) {
	image, mapped := o.Pairs()
	return Fit(image, mapped)
}

func fitTranslate(from, to []tiepoint.Point) Transform {
	var dx, dy float64
	for i := range from {
		dx += to[i].X - from[i].X
		dy += to[i].Y - from[i].Y
	}
	n := float64(len(from))
	return Transform{Kind: KindTranslate, A: 1, D: 1, TX: dx / n, TY: dy / n}
}

// fitSimilarity solves x' = a*x - b*y + tx, y' = b*x + a*y + ty.
func fitSimilarity(from, to []tiepoint.Point) (Transform, error) {
	n := len(from)
	A := mat.NewDense(n*2, 4, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := from[i].X, from[i].Y

		A.SetRow(i*2, []float64{x, -y, 1, 0})
		B.SetVec(i*2, to[i].X)

		A.SetRow(i*2+1, []float64{y, x, 0, 1})
		B.SetVec(i*2+1, to[i].Y)
	}

	p, err := solve(A, B)
	if err != nil {
		return Transform{}, fmt.Errorf("similarity fit: %w", err)
	}
	a, b := p.AtVec(0), p.AtVec(1)
	return Transform{
		Kind: KindSimilarity,
		A:    a,
		B:    -b,
		TX:   p.AtVec(2),
		C:    b,
		D:    a,
		TY:   p.AtVec(3),
	}, nil
}

func fitAffine(from, to []tiepoint.Point) (Transform, error) {
	n := len(from)
	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := from[i].X, from[i].Y

		A.SetRow(i*2, []float64{x, y, 1, 0, 0, 0})
		B.SetVec(i*2, to[i].X)

		A.SetRow(i*2+1, []float64{0, 0, 0, x, y, 1})
		B.SetVec(i*2+1, to[i].Y)
	}

	p, err := solve(A, B)
	if err != nil {
		return Transform{}, fmt.Errorf("affine fit: %w", err)
	}
	return Transform{
		Kind: KindAffine,
		A:    p.AtVec(0),
		B:    p.AtVec(1),
		TX:   p.AtVec(2),
		C:    p.AtVec(3),
		D:    p.AtVec(4),
		TY:   p.AtVec(5),
	}, nil
}

// solve returns the minimum-norm least-squares solution of A*x = b using
// the SVD, so rank-deficient systems still produce a fit.
func solve(A *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return nil, ErrDegenerate
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, ErrDegenerate
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, b, rank)
	return &x, nil
}
