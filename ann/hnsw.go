package ann

import (
	"math"
	"math/rand"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/relate/dissim"
	"github.com/hupe1980/relate/internal/queue"
	"github.com/hupe1980/relate/params"
)

// HNSW configures the graph strategy.
type HNSW struct {
	// M is the number of links established for every new node. Layer 0
	// keeps up to 2*M links. Reasonable range is 2-100; M < 2 is raised to 2.
	M int

	// EF is the size of the dynamic candidate list during construction.
	EF int

	// EFSearch is the size of the dynamic candidate list during search.
	// Larger values improve recall at the cost of search time.
	EFSearch int

	// Heuristic selects diverse neighbors instead of the plain nearest M.
	Heuristic bool

	// Seed drives the level generator.
	Seed int64
}

// DefaultHNSW is the default graph configuration.
var DefaultHNSW = HNSW{
	M:         8,
	EF:        200,
	EFSearch:  64,
	Heuristic: true,
	Seed:      42,
}

// Params implements Strategy.
func (h HNSW) Params() params.Params {
	return params.Params{
		"index":           params.String("hnsw"),
		"index_m":         params.Int(h.M),
		"index_ef":        params.Int(h.EF),
		"index_ef_search": params.Int(h.EFSearch),
		"index_heuristic": params.Bool(h.Heuristic),
		"index_seed":      params.Int(h.Seed),
	}
}

// Build implements Strategy. Vectors are inserted in order; the first one
// is the initial entry point.
func (h HNSW) Build(vectors [][]float64, d dissim.Func) (Index, error) {
	dim, err := checkVectors(vectors)
	if err != nil {
		return nil, err
	}

	g := newGraph(dim, h, d)
	for _, v := range vectors {
		g.insert(v)
	}
	return g, nil
}

type node struct {
	vector []float64
	level  int
	links  [][]int // per level, up to level
}

// Graph is a built HNSW index.
type Graph struct {
	dim       int
	m         int
	mmax0     int
	ef        int
	efSearch  int
	heuristic bool
	ml        float64
	rng       *rand.Rand
	dissim    dissim.Func

	nodes    []*node
	ep       int
	maxLevel int
}

func newGraph(dim int, h HNSW, d dissim.Func) *Graph {
	m := h.M
	if m < 2 {
		// M == 1 would make ml = 1/log(1) infinite.
		m = 2
	}
	ef := max(h.EF, m)
	efSearch := max(h.EFSearch, 1)

	return &Graph{
		dim:       dim,
		m:         m,
		mmax0:     2 * m,
		ef:        ef,
		efSearch:  efSearch,
		heuristic: h.Heuristic,
		ml:        1 / math.Log(float64(m)),
		rng:       rand.New(rand.NewSource(h.Seed)), // nolint gosec
		dissim:    d,
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) distance(q []float64, id int) float64 {
	return g.dissim.Dissimilarity(q, g.nodes[id].vector)
}

func (g *Graph) randomLevel() int {
	// 1-Float64 is in (0, 1], so the log is finite.
	return int(math.Floor(-math.Log(1-g.rng.Float64()) * g.ml))
}

func (g *Graph) insert(v []float64) {
	id := len(g.nodes)
	n := &node{vector: v, level: g.randomLevel()}
	n.links = make([][]int, n.level+1)
	g.nodes = append(g.nodes, n)

	if id == 0 {
		g.ep, g.maxLevel = 0, n.level
		return
	}

	cur := Result{Node: g.ep, Distance: g.distance(v, g.ep)}
	for level := g.maxLevel; level > n.level; level-- {
		cur = g.greedy(v, cur, level)
	}

	for level := min(n.level, g.maxLevel); level >= 0; level-- {
		candidates := g.searchLayer(v, cur, g.ef, level, id)
		neighbours := g.selectNeighbours(candidates, g.m)

		n.links[level] = make([]int, len(neighbours))
		for i, c := range neighbours {
			n.links[level][i] = c.Node
		}
		cur = candidates[0]
	}

	for level := min(n.level, g.maxLevel); level >= 0; level-- {
		for _, neighbour := range n.links[level] {
			g.link(neighbour, id, level)
		}
	}

	if n.level > g.maxLevel {
		g.ep, g.maxLevel = id, n.level
	}
}

// greedy walks level towards q until no link improves the distance.
func (g *Graph) greedy(q []float64, cur Result, level int) Result {
	for changed := true; changed; {
		changed = false
		for _, id := range g.nodes[cur.Node].links[level] {
			d := g.distance(q, id)
			if d < cur.Distance || (d == cur.Distance && id < cur.Node) {
				cur = Result{Node: id, Distance: d}
				changed = true
			}
		}
	}
	return cur
}

// searchLayer returns up to ef nodes of level closest to q, closest first.
// skip is excluded from traversal (the node being inserted).
func (g *Graph) searchLayer(q []float64, ep Result, ef, level, skip int) []Result {
	visited := bitset.New(uint(len(g.nodes)))
	visited.Set(uint(ep.Node))
	if skip >= 0 {
		visited.Set(uint(skip))
	}

	candidates := queue.NewMin(ef)
	candidates.Push(ep)
	top := queue.NewMax(ef + 1)
	top.Push(ep)

	for candidates.Len() > 0 {
		c, _ := candidates.Pop()
		if worst, _ := top.Top(); c.Distance > worst.Distance {
			break
		}

		for _, id := range g.nodes[c.Node].links[level] {
			if visited.Test(uint(id)) {
				continue
			}
			visited.Set(uint(id))

			d := g.distance(q, id)
			if worst, _ := top.Top(); top.Len() < ef || d < worst.Distance {
				item := Result{Node: id, Distance: d}
				candidates.Push(item)
				top.Push(item)
				if top.Len() > ef {
					top.Pop()
				}
			}
		}
	}

	return drain(top)
}

// selectNeighbours picks up to m of the candidates (closest first). With the
// heuristic, a candidate closer to an already selected neighbour than to the
// base is skipped, then skipped candidates fill remaining slots.
func (g *Graph) selectNeighbours(candidates []Result, m int) []Result {
	if len(candidates) <= m {
		return candidates
	}
	if !g.heuristic {
		return candidates[:m]
	}

	selected := make([]Result, 0, m)
	var pruned []Result
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if g.dissim.Dissimilarity(g.nodes[s.Node].vector, g.nodes[c.Node].vector) < c.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}

	for _, c := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, c)
	}
	return selected
}

// link adds a link from first to second at level, shrinking first's link
// list when it exceeds the level's capacity.
func (g *Graph) link(first, second, level int) {
	maxLinks := g.m
	if level == 0 {
		maxLinks = g.mmax0
	}

	n := g.nodes[first]
	n.links[level] = append(n.links[level], second)
	if len(n.links[level]) <= maxLinks {
		return
	}

	candidates := make([]Result, len(n.links[level]))
	for i, id := range n.links[level] {
		candidates[i] = Result{Node: id, Distance: g.distance(n.vector, id)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance == candidates[j].Distance {
			return candidates[i].Node < candidates[j].Node
		}
		return candidates[i].Distance < candidates[j].Distance
	})

	selected := g.selectNeighbours(candidates, maxLinks)
	n.links[level] = n.links[level][:0]
	for _, c := range selected {
		n.links[level] = append(n.links[level], c.Node)
	}
}

// Search implements Index.
func (g *Graph) Search(q []float64, k int) ([]Result, error) {
	if len(q) != g.dim {
		return nil, &DimensionMismatchError{Expected: g.dim, Actual: len(q)}
	}
	if len(g.nodes) == 0 {
		return nil, ErrEmptyIndex
	}
	if k <= 0 {
		return nil, nil
	}

	cur := Result{Node: g.ep, Distance: g.distance(q, g.ep)}
	for level := g.maxLevel; level > 0; level-- {
		cur = g.greedy(q, cur, level)
	}

	res := g.searchLayer(q, cur, max(g.efSearch, k), 0, -1)
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

// GraphStats summarizes the graph structure.
type GraphStats struct {
	Nodes    int
	MaxLevel int
	// LevelNodes[l] is the number of nodes whose top level is l.
	LevelNodes []int
	// LevelLinks[l] is the total number of links at level l.
	LevelLinks []int
}

// AvgLinks returns the average number of links per node present at level.
func (s GraphStats) AvgLinks(level int) float64 {
	present := 0
	for l := level; l < len(s.LevelNodes); l++ {
		present += s.LevelNodes[l]
	}
	if present == 0 {
		return 0
	}
	return float64(s.LevelLinks[level]) / float64(present)
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() GraphStats {
	s := GraphStats{
		Nodes:      len(g.nodes),
		MaxLevel:   g.maxLevel,
		LevelNodes: make([]int, g.maxLevel+1),
		LevelLinks: make([]int, g.maxLevel+1),
	}
	for _, n := range g.nodes {
		s.LevelNodes[n.level]++
		for l, links := range n.links {
			s.LevelLinks[l] += len(links)
		}
	}
	return s
}
