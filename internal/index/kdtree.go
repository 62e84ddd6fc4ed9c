package index

import (
	"container/heap"
	"math"
	"sort"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// Point pairs a code block ID with its embedding vector.
type Point struct {
	ID     int64
	Vector []float32
}

// Neighbor is one k-nearest-neighbor result: a block ID and its Euclidean
// distance to the query vector.
type Neighbor struct {
	ID       int64
	Distance float64
}

const noChild = int32(-1)

// node is one arena slot. Children are addressed by arena index so a rebuild
// discards the whole tree in one allocation cycle.
type node struct {
	point int32 // index into points
	axis  int32 // splitting dimension at this level
	left  int32
	right int32
}

// Tree is a balanced k-d tree over (block ID, embedding) pairs. It is
// immutable after Build and safe for concurrent queries.
//
// Split rule (fixed, affects tie-breaking only): at each level the dimension
// with the widest spread is chosen, and the median point becomes the node.
type Tree struct {
	dim    int
	points []Point
	nodes  []node
	root   int32
}

// Build constructs a balanced k-d tree over the given points. Points must all
// share one dimension; a *types.DimensionError is returned otherwise. An
// empty point set yields an empty tree, which every query rejects with
// types.ErrEmptyIndex.
func Build(points []Point) (*Tree, error) {
	t := &Tree{root: noChild}
	if len(points) == 0 {
		return t, nil
	}

	t.dim = len(points[0].Vector)
	for _, p := range points {
		if len(p.Vector) != t.dim {
			return nil, &types.DimensionError{Want: t.dim, Got: len(p.Vector)}
		}
	}

	t.points = make([]Point, len(points))
	copy(t.points, points)
	t.nodes = make([]node, 0, len(points))

	order := make([]int32, len(points))
	for i := range order {
		order[i] = int32(i)
	}
	t.root = t.build(order)
	return t, nil
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return len(t.points) }

// Dimension returns the vector dimension the tree was built with, or 0 for an
// empty tree.
func (t *Tree) Dimension() int { return t.dim }

// build recursively partitions order (indices into t.points) and returns the
// arena index of the subtree root.
func (t *Tree) build(order []int32) int32 {
	if len(order) == 0 {
		return noChild
	}

	axis := t.widestAxis(order)

	// Median-of-points split; ID order breaks value ties so construction is
	// deterministic for identical inputs.
	sort.Slice(order, func(i, j int) bool {
		a, b := t.points[order[i]], t.points[order[j]]
		if a.Vector[axis] != b.Vector[axis] {
			return a.Vector[axis] < b.Vector[axis]
		}
		return a.ID < b.ID
	})
	mid := len(order) / 2

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{point: order[mid], axis: int32(axis)})

	// Children are built after the append; the arena may grow, so assign
	// through the index rather than a held pointer.
	left := t.build(order[:mid])
	right := t.build(order[mid+1:])
	t.nodes[idx].left = left
	t.nodes[idx].right = right
	return idx
}

// widestAxis picks the dimension with the widest spread across the given points.
func (t *Tree) widestAxis(order []int32) int {
	axis := 0
	widest := float32(-1)
	for d := 0; d < t.dim; d++ {
		lo, hi := t.points[order[0]].Vector[d], t.points[order[0]].Vector[d]
		for _, i := range order[1:] {
			v := t.points[i].Vector[d]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if spread := hi - lo; spread > widest {
			widest = spread
			axis = d
		}
	}
	return axis
}

// Nearest answers an exact k-nearest-neighbor query. Results are sorted by
// non-decreasing distance, equal distances tie-broken by ascending block ID.
//
// Exactness: when the query coordinate ties a splitting value exactly, both
// branches are explored; pruning uses <= against the current worst distance,
// so equal-distance candidates are never silently discarded.
func (t *Tree) Nearest(query []float32, k int) ([]Neighbor, error) {
	if t.Len() == 0 {
		return nil, types.ErrEmptyIndex
	}
	if len(query) != t.dim {
		return nil, &types.DimensionError{Want: t.dim, Got: len(query)}
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}
	if k > t.Len() {
		k = t.Len()
	}

	h := &neighborHeap{}
	heap.Init(h)
	t.search(t.root, query, k, h)

	// Pop worst-first, fill back to front
	results := make([]Neighbor, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		n := heap.Pop(h).(Neighbor)
		n.Distance = math.Sqrt(n.Distance)
		results[i] = n
	}
	return results, nil
}

// search walks the subtree rooted at ni, maintaining a bounded max-heap of
// the k best candidates seen so far. Distances in the heap are squared.
func (t *Tree) search(ni int32, query []float32, k int, h *neighborHeap) {
	if ni == noChild {
		return
	}
	n := &t.nodes[ni]
	p := &t.points[n.point]

	h.offer(Neighbor{ID: p.ID, Distance: sqDistance(query, p.Vector)}, k)

	diff := float64(query[n.axis]) - float64(p.Vector[n.axis])
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}

	t.search(near, query, k, h)

	// Visit the far side while the heap is unfilled, the hyperplane is within
	// the current worst distance, or the splitting value ties exactly
	if h.Len() < k || diff*diff <= h.worst().Distance {
		t.search(far, query, k, h)
	}
}

// sqDistance computes squared Euclidean distance in float64 to avoid
// accumulating float32 rounding error over high-dimensional vectors.
func sqDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// neighborHeap is a max-heap by (distance, ID): the root is the current worst
// candidate, where a larger ID loses ties so smaller IDs are retained.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int { return len(h) }

func (h neighborHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	return h[i].ID > h[j].ID
}

func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h neighborHeap) worst() Neighbor { return h[0] }

// offer inserts a candidate, evicting the current worst when the heap is full
// and the candidate beats it on (distance, ID).
func (h *neighborHeap) offer(cand Neighbor, k int) {
	if h.Len() < k {
		heap.Push(h, cand)
		return
	}
	w := h.worst()
	if cand.Distance < w.Distance || (cand.Distance == w.Distance && cand.ID < w.ID) {
		(*h)[0] = cand
		heap.Fix(h, 0)
	}
}
