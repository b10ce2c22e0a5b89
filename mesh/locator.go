package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Locator answers nearest vertex queries over a fixed set of points.
type Locator struct {
	tree *kdtree.Tree
	n    int
}

// NewLocator builds a kd-tree over the vertices of s.
func NewLocator(s *Surface) *Locator {
	pts := make(locPoints, len(s.Vertices))
	for i, v := range s.Vertices {
		pts[i] = locPoint{p: v, idx: i}
	}
	if len(pts) == 0 {
		return &Locator{}
	}
	return &Locator{tree: kdtree.New(pts, false), n: len(pts)}
}

// Nearest returns the index of the vertex closest to p and its distance to p.
// It returns -1 and +Inf for an empty locator.
func (l *Locator) Nearest(p r3.Vec) (int, float64) {
	if l.n == 0 {
		return -1, math.Inf(1)
	}
	got, dist2 := l.tree.Nearest(&locPoint{p: p, idx: -1})
	return got.(*locPoint).idx, math.Sqrt(dist2)
}

type locPoint struct {
	p   r3.Vec
	idx int
}

func (lp *locPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*locPoint)
	switch d {
	case 0:
		return lp.p.X - q.p.X
	case 1:
		return lp.p.Y - q.p.Y
	case 2:
		return lp.p.Z - q.p.Z
	}
	panic("unreachable")
}

func (lp *locPoint) Dims() int { return 3 }

func (lp *locPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(lp.p, c.(*locPoint).p))
}

type locPoints []locPoint

// Index returns the ith element of the list of points.
func (l locPoints) Index(i int) kdtree.Comparable { return &l[i] }

// Len returns the length of the list.
func (l locPoints) Len() int { return len(l) }

// Pivot partitions the list based on the dimension specified.
func (l locPoints) Pivot(d kdtree.Dim) int {
	p := locPlane{dim: d, pts: l}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (l locPoints) Slice(start, end int) kdtree.Interface { return l[start:end] }

type locPlane struct {
	dim kdtree.Dim
	pts locPoints
}

func (p locPlane) Less(i, j int) bool {
	return p.pts[i].Compare(&p.pts[j], p.dim) < 0
}
func (p locPlane) Swap(i, j int) {
	p.pts[i], p.pts[j] = p.pts[j], p.pts[i]
}
func (p locPlane) Len() int {
	return len(p.pts)
}
func (p locPlane) Slice(start, end int) kdtree.SortSlicer {
	p.pts = p.pts[start:end]
	return p
}
