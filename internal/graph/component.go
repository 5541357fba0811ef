package graph

import "github.com/orneryd/corpusgraph/internal/annokey"

// Edge is a directed pair stored inside exactly one component. Edges may
// carry their own annotations.
type Edge struct {
	Source, Target uint64
	Annotations    map[annokey.Key]string
}

type edgeKey struct {
	source, target uint64
}

// EdgeStore holds every edge of one component, with adjacency indexes
// supporting outgoing/incoming lookup and bounded depth-first reachability.
type EdgeStore struct {
	component annokey.Component
	edges     map[edgeKey]*Edge
	outgoing  map[uint64][]uint64
	incoming  map[uint64][]uint64
}

func newEdgeStore(c annokey.Component) *EdgeStore {
	return &EdgeStore{
		component: c,
		edges:     make(map[edgeKey]*Edge),
		outgoing:  make(map[uint64][]uint64),
		incoming:  make(map[uint64][]uint64),
	}
}

// Component returns the (type, layer, name) triple this store indexes.
func (s *EdgeStore) Component() annokey.Component { return s.component }

func (s *EdgeStore) add(source, target uint64) {
	key := edgeKey{source, target}
	if _, exists := s.edges[key]; exists {
		return
	}
	s.edges[key] = &Edge{Source: source, Target: target, Annotations: map[annokey.Key]string{}}
	s.outgoing[source] = append(s.outgoing[source], target)
	s.incoming[target] = append(s.incoming[target], source)
}

func (s *EdgeStore) remove(source, target uint64) error {
	key := edgeKey{source, target}
	if _, exists := s.edges[key]; !exists {
		return ErrEdgeNotFound
	}
	delete(s.edges, key)
	s.outgoing[source] = removeValue(s.outgoing[source], target)
	s.incoming[target] = removeValue(s.incoming[target], source)
	return nil
}

// removeIncident deletes every edge with id as source or target, used when a
// node is deleted.
func (s *EdgeStore) removeIncident(id uint64) {
	for _, target := range append([]uint64(nil), s.outgoing[id]...) {
		s.remove(id, target)
	}
	for _, source := range append([]uint64(nil), s.incoming[id]...) {
		s.remove(source, id)
	}
}

func (s *EdgeStore) setLabel(source, target uint64, key annokey.Key, value string) error {
	e, ok := s.edges[edgeKey{source, target}]
	if !ok {
		return ErrEdgeNotFound
	}
	e.Annotations[key] = value
	return nil
}

func (s *EdgeStore) deleteLabel(source, target uint64, key annokey.Key) error {
	e, ok := s.edges[edgeKey{source, target}]
	if !ok {
		return ErrEdgeNotFound
	}
	if _, had := e.Annotations[key]; !had {
		return ErrAnnotationNotFound
	}
	delete(e.Annotations, key)
	return nil
}

// Edge returns the edge (source, target), if present.
func (s *EdgeStore) Edge(source, target uint64) (*Edge, bool) {
	e, ok := s.edges[edgeKey{source, target}]
	return e, ok
}

// Outgoing returns every edge with node as its source.
func (s *EdgeStore) Outgoing(node uint64) []*Edge {
	targets := s.outgoing[node]
	out := make([]*Edge, 0, len(targets))
	for _, t := range targets {
		if e, ok := s.edges[edgeKey{node, t}]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns every edge with node as its target.
func (s *EdgeStore) Incoming(node uint64) []*Edge {
	sources := s.incoming[node]
	in := make([]*Edge, 0, len(sources))
	for _, src := range sources {
		if e, ok := s.edges[edgeKey{src, node}]; ok {
			in = append(in, e)
		}
	}
	return in
}

// All returns every edge in the store. Order is unspecified.
func (s *EdgeStore) All() []*Edge {
	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	return out
}

// StartNodes returns every node that has at least one outgoing edge in this
// store but no incoming edge: the head of an Ordering chain (there should be
// exactly one per document). Order is unspecified; callers that need
// determinism sort the result.
func (s *EdgeStore) StartNodes() []uint64 {
	var out []uint64
	for node := range s.outgoing {
		if len(s.incoming[node]) == 0 {
			out = append(out, node)
		}
	}
	return out
}

// Direction selects which adjacency DFS walks.
type Direction uint8

const (
	Out Direction = iota
	In
)

// Reached pairs a node with its depth from the DFS start (0 for the start
// itself).
type Reached struct {
	Node  uint64
	Depth int
}

// DFS walks the component depth-first from start, yielding (node, depth) for
// every node reached with minDepth <= depth <= maxDepth (maxDepth < 0 means
// unbounded). A node is never revisited on one path, which makes the walk
// safe over a component that happens to contain a cycle even though Ordering
// and Dominance forbid cycles by construction; Pointing is unconstrained and
// may legitimately cycle.
func (s *EdgeStore) DFS(start uint64, minDepth, maxDepth int, dir Direction) []Reached {
	var out []Reached
	visited := map[uint64]struct{}{start: {}}
	var walk func(node uint64, depth int)
	walk = func(node uint64, depth int) {
		if depth >= minDepth && (maxDepth < 0 || depth <= maxDepth) {
			out = append(out, Reached{Node: node, Depth: depth})
		}
		if maxDepth >= 0 && depth >= maxDepth {
			return
		}
		var next []uint64
		if dir == Out {
			next = s.outgoing[node]
		} else {
			next = s.incoming[node]
		}
		for _, n := range next {
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			walk(n, depth+1)
			delete(visited, n)
		}
	}
	walk(start, 0)
	return out
}

func removeValue(s []uint64, v uint64) []uint64 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
