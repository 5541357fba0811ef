package graph

import "github.com/orneryd/corpusgraph/internal/annokey"

// NodesWithAnnotation returns an iterator function yielding node ids that
// carry key. If value is non-nil, only nodes with that exact value are
// yielded; if value is nil, every node carrying key under any value is
// yielded. The returned function returns ok=false once exhausted.
func (g *Graph) NodesWithAnnotation(key annokey.Key, value *string) func() (uint64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []uint64
	byValue, ok := g.annoIndex[key]
	if ok {
		if value != nil {
			for id := range byValue[*value] {
				ids = append(ids, id)
			}
		} else {
			for _, set := range byValue {
				for id := range set {
					ids = append(ids, id)
				}
			}
		}
	}
	i := 0
	return func() (uint64, bool) {
		if i >= len(ids) {
			return 0, false
		}
		id := ids[i]
		i++
		return id, true
	}
}

// AnnotationsOf returns a copy of node's annotation map, or nil if the node
// does not exist.
func (g *Graph) AnnotationsOf(id uint64) map[annokey.Key]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make(map[annokey.Key]string, len(n.Annotations))
	for k, v := range n.Annotations {
		out[k] = v
	}
	return out
}

// AnnotationValue returns node's value for key and whether it was present.
func (g *Graph) AnnotationValue(id uint64, key annokey.Key) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.Annotations[key]
	return v, ok
}

// Component returns the edge store for (type, layer, name), or ok=false if
// no edge has ever been added to it.
func (g *Graph) Component(c annokey.Component) (*EdgeStore, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	store, ok := g.components[c]
	return store, ok
}

// Components returns every component an edge has ever been added to. A
// component whose edges have all been removed is still listed.
func (g *Graph) Components() []annokey.Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]annokey.Component, 0, len(g.components))
	for c := range g.components {
		out = append(out, c)
	}
	return out
}

// NodeByID returns the node with the given id, or ok=false.
func (g *Graph) NodeByID(id uint64) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByName returns the node with the given ANNIS::node_name, or ok=false.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.idFor(name)
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// HasNode reports whether a node with the given name exists.
func (g *Graph) HasNode(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.idFor(name)
	return ok
}

// Nodes returns every live node. Order is unspecified.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}
