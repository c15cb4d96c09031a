package optics

import (
	"fmt"
	"math"

	"github.com/chazu/tocloak/pkg/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Glens is a generalised thin lens: a planar surface whose imaging is the
// central collineation I + C pᵀ. The centre C is the nodal point in
// homogeneous coordinates; unlike an ideal lens it need not lie in the plane.
type Glens struct {
	Surf   geom.Plane
	Centre Homogeneous
	Coat   Coating
}

// GlensFromConjugatePair returns the glens in pl with the given nodal point
// that images object to image. The three points must be collinear.
func GlensFromConjugatePair(pl geom.Plane, nodal, object, image r3.Vec) (*Glens, error) {
	p := pl.Covector()
	q := Point(object)
	qi := Point(image)
	n := Point(nodal)

	// Solve κ N (p·Q) - λ Q' = -Q for κ and λ.
	a := mat.NewDense(4, 2, nil)
	b := mat.NewVecDense(4, nil)
	pq := q.Dot(p)
	for r := 0; r < 4; r++ {
		a.Set(r, 0, n[r]*pq)
		a.Set(r, 1, -qi[r])
		b.SetVec(r, -q[r])
	}
	x, err := solveExact(a, b)
	if err != nil {
		return nil, fmt.Errorf("glens through %v imaging %v -> %v: %w", nodal, object, image, err)
	}
	kappa := x.AtVec(0)
	c := n
	for i := range c {
		c[i] *= kappa
	}
	return &Glens{Surf: pl, Centre: c, Coat: DefaultCoating}, nil
}

// GlensFromConjugatePairs returns the glens in pl that images two objects to
// their two images, if one exists.
func GlensFromConjugatePairs(pl geom.Plane, objects, images [2]r3.Vec) (*Glens, error) {
	p := pl.Covector()

	// Unknowns are C (4) and the two scale factors λ1, λ2:
	// C (p·Q_k) - λ_k Q'_k = -Q_k.
	a := mat.NewDense(8, 6, nil)
	b := mat.NewVecDense(8, nil)
	for k := 0; k < 2; k++ {
		q := Point(objects[k])
		qi := Point(images[k])
		pq := q.Dot(p)
		for r := 0; r < 4; r++ {
			row := 4*k + r
			a.Set(row, r, pq)
			a.Set(row, 4+k, -qi[r])
			b.SetVec(row, -q[r])
		}
	}
	x, err := solveExact(a, b)
	if err != nil {
		return nil, fmt.Errorf("glens imaging %v -> %v: %w", objects, images, err)
	}
	var c Homogeneous
	for i := range c {
		c[i] = x.AtVec(i)
	}
	return &Glens{Surf: pl, Centre: c, Coat: DefaultCoating}, nil
}

// solveExact solves a x = b in the least-squares sense and fails unless the
// residual vanishes.
func solveExact(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	_, cols := a.Dims()
	x := mat.NewVecDense(cols, nil)
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrNotRealizable)
	}
	var res mat.VecDense
	res.MulVec(a, x)
	res.SubVec(&res, b)
	if mat.Norm(&res, 2) > 1e-7*math.Max(1, mat.Norm(b, 2)) {
		return nil, fmt.Errorf("residual %g: %w", mat.Norm(&res, 2), ErrNotRealizable)
	}
	return x, nil
}

func (g *Glens) Kind() Kind { return KindGlens }

func (g *Glens) Coating() Coating { return g.Coat }

func (g *Glens) Plane() geom.Plane { return g.Surf }

func (g *Glens) Collineation() Collineation { return CentralCollineation(g.Surf, g.Centre) }

func (g *Glens) ImagePosition(q, dir r3.Vec) (r3.Vec, error) { return imageThrough(g, q, dir) }

// NodalPoint returns the nodal point. ok is false if it lies at infinity.
func (g *Glens) NodalPoint() (r3.Vec, bool) {
	return g.Centre.Finite()
}

// FocalLengths returns the focal lengths in positive and negative space,
// measured along the plane normal from the plane. For an ideal lens they
// are f and -f.
func (g *Glens) FocalLengths() (gPlus, gMinus float64) {
	w := g.Centre[3]
	if w == 0 {
		return math.Inf(1), math.Inf(-1)
	}
	pc := g.Centre.Dot(g.Surf.Covector())
	return (1 + pc) / w, -1 / w
}
