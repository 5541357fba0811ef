// Package collapse implements a supporting manipulator that folds every
// weakly-connected group of nodes in one component ("hyperedge") into a
// single new node, unioning their non-reserved annotations and rewriting
// every other component's edges to the new node.
package collapse

import (
	"context"
	"fmt"
	"sort"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Config is the collapse manipulator's [graph_op.config] table.
type Config struct {
	// Component is the "type/layer/name" wire form of the component whose
	// hyperedges are collapsed.
	Component string `toml:"component"`
}

// Manipulator is the collapse stage.
type Manipulator struct {
	stage.Base
	Config Config
}

// New returns a collapse manipulator with the given configuration.
func New(cfg Config) *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "CollapseComponent"}, Config: cfg}
}

var _ stage.Manipulator = (*Manipulator)(nil)

func (m *Manipulator) Manipulate(_ context.Context, g *graph.Graph, _ string, sink progress.Sender) error {
	comp, ok := annokey.ParseComponent(m.Config.Component)
	if !ok {
		return &corpuserr.ManipulatorError{Manipulator: "CollapseComponent", Reason: fmt.Sprintf("invalid component %q", m.Config.Component)}
	}
	store, ok := g.Component(comp)
	if !ok {
		sink.Send(progress.NewWarning(fmt.Sprintf("collapse: no component %s found", comp)))
		return nil
	}

	groups := connectedGroups(store)
	var labelEvents, deleteEvents []updatelog.Event

	for i, group := range groups {
		hyperName := fmt.Sprintf("hypernode#%d", i)
		le, de := foldGroup(g, group, hyperName)
		labelEvents = append(labelEvents, le...)
		deleteEvents = append(deleteEvents, de...)
	}

	// Edge events are built against hypernode names directly (the hypernodes
	// do not exist yet in g, only in the AddNode events above) rather than
	// ids, since no numeric id is assigned until the log is applied.
	skip := map[annokey.Component]struct{}{comp: {}}
	edgeEvents := mergeByName(g, skip, groupNameMap(groups))

	events := make([]updatelog.Event, 0, len(labelEvents)+len(edgeEvents)+len(deleteEvents))
	events = append(events, labelEvents...)
	events = append(events, edgeEvents...)
	events = append(events, deleteEvents...)

	if err := g.ApplyEvents(events, false); err != nil {
		return err
	}
	sink.Send(progress.NewInfo(fmt.Sprintf("collapse: folded %d hyperedge(s)", len(groups))))
	return nil
}

// connectedGroups partitions every node touched by store into its
// weakly-connected component, treating edges as undirected.
func connectedGroups(store *graph.EdgeStore) [][]uint64 {
	parent := make(map[uint64]uint64)
	var find func(uint64) uint64
	find = func(x uint64) uint64 {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b uint64) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, e := range store.All() {
		find(e.Source)
		find(e.Target)
		union(e.Source, e.Target)
	}

	byRoot := make(map[uint64][]uint64)
	for node := range parent {
		root := find(node)
		byRoot[root] = append(byRoot[root], node)
	}
	var out [][]uint64
	for _, g := range byRoot {
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// foldGroup emits the AddNode/AddNodeLabel events creating hyperName's node
// with the union of every member's non-reserved annotations, and DeleteNode
// for each member.
func foldGroup(g *graph.Graph, group []uint64, hyperName string) (labels, deletes []updatelog.Event) {
	labels = append(labels, updatelog.NewAddNode(hyperName, annokey.NodeTypeNode))
	for _, id := range group {
		n, ok := g.NodeByID(id)
		if !ok {
			continue
		}
		for key, value := range n.Annotations {
			if key.Namespace == annokey.AnnisNS {
				continue
			}
			labels = append(labels, updatelog.NewAddNodeLabel(hyperName, key, value))
		}
		deletes = append(deletes, updatelog.NewDeleteNode(n.Name()))
	}
	return labels, deletes
}

// groupNameMap maps every member node id to the name of the hypernode it
// was absorbed into.
func groupNameMap(groups [][]uint64) map[uint64]string {
	out := make(map[uint64]string)
	for i, group := range groups {
		name := fmt.Sprintf("hypernode#%d", i)
		for _, id := range group {
			out[id] = name
		}
	}
	return out
}

// mergeByName rewrites every edge in every non-skipped component that
// touches an absorbed node onto the corresponding hypernode name.
func mergeByName(g *graph.Graph, skip map[annokey.Component]struct{}, nodeNames map[uint64]string) []updatelog.Event {
	var events []updatelog.Event
	comps := g.Components()
	sort.Slice(comps, func(i, j int) bool { return comps[i].String() < comps[j].String() })
	for _, comp := range comps {
		if _, skipped := skip[comp]; skipped {
			continue
		}
		store, ok := g.Component(comp)
		if !ok {
			continue
		}
		edges := store.All()
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Source != edges[j].Source {
				return edges[i].Source < edges[j].Source
			}
			return edges[i].Target < edges[j].Target
		})
		for _, e := range edges {
			oldSrc, ok1 := g.NodeByID(e.Source)
			oldTgt, ok2 := g.NodeByID(e.Target)
			if !ok1 || !ok2 {
				continue
			}
			srcName, srcChanged := nodeNames[e.Source]
			if !srcChanged {
				srcName = oldSrc.Name()
			}
			tgtName, tgtChanged := nodeNames[e.Target]
			if !tgtChanged {
				tgtName = oldTgt.Name()
			}
			if !srcChanged && !tgtChanged {
				continue
			}
			events = append(events, updatelog.NewDeleteEdge(oldSrc.Name(), oldTgt.Name(), comp))
			events = append(events, updatelog.NewAddEdge(srcName, tgtName, comp))
			for key, value := range e.Annotations {
				if key.Namespace == annokey.AnnisNS {
					continue
				}
				events = append(events, updatelog.NewAddEdgeLabel(srcName, tgtName, comp, key, value))
			}
		}
	}
	return events
}
