package graph

import (
	"fmt"

	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Apply consumes log and mutates the graph, applying events in order. An
// event whose precondition fails (unknown node, unknown edge, ...) is
// reported on sink as a warning but does not halt application unless strict
// is set, in which case Apply returns an *corpuserr.UpdateGraphError for the
// first such failure. Apply returns nil once the log is exhausted.
func (g *Graph) Apply(log updatelog.Log, sink progress.Sender, strict bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := log.Iterate()
	for {
		entry, ok := next()
		if !ok {
			return nil
		}
		if err := g.applyEvent(entry.Event); err != nil {
			msg := fmt.Sprintf("%s: %v (seq %d)", entry.Event.Kind, err, entry.Seq)
			sink.Send(progress.NewWarning(msg))
			if strict {
				return &corpuserr.UpdateGraphError{Reason: msg, Err: err}
			}
		}
	}
}

func (g *Graph) applyEvent(e updatelog.Event) error {
	switch e.Kind {
	case updatelog.AddNode:
		return g.addNode(e.NodeName, e.NodeType)
	case updatelog.DeleteNode:
		return g.deleteNode(e.NodeName)
	case updatelog.AddNodeLabel:
		return g.addNodeLabel(e.NodeName, e.Key, e.Value)
	case updatelog.DeleteNodeLabel:
		return g.deleteNodeLabel(e.NodeName, e.Key)
	case updatelog.AddEdge:
		return g.addEdge(e.Source, e.Target, e.Component)
	case updatelog.DeleteEdge:
		return g.deleteEdge(e.Source, e.Target, e.Component)
	case updatelog.AddEdgeLabel:
		return g.addEdgeLabel(e.Source, e.Target, e.Component, e.Key, e.Value)
	case updatelog.DeleteEdgeLabel:
		return g.deleteEdgeLabel(e.Source, e.Target, e.Component, e.Key)
	default:
		return fmt.Errorf("graph: unknown event kind %v", e.Kind)
	}
}

// ApplyEvents is a convenience wrapper for callers (manipulators) that build
// a handful of events directly rather than going through an updatelog.Log,
// applying them with the same semantics as Apply but reporting failures to
// the caller without a progress sink. It is used by manipulators composing
// their own events in-process rather than producing a log another stage
// will read once.
func (g *Graph) ApplyEvents(events []updatelog.Event, strict bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range events {
		if err := g.applyEvent(e); err != nil && strict {
			return &corpuserr.UpdateGraphError{Reason: err.Error(), Err: err}
		}
	}
	return nil
}
