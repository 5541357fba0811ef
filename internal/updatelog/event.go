// Package updatelog implements the append-only update log: the sole
// inter-stage carrier between importers, manipulators, and the in-memory
// annotation graph. A Log is owned by exactly one writer at a time;
// ownership transfers explicitly (importer -> executor -> next manipulator)
// and each reader consumes the sequence exactly once.
package updatelog

import "github.com/orneryd/corpusgraph/internal/annokey"

// Kind is the closed set of update events. No other event shapes exist; a
// Log is a sequence of these eight kinds.
type Kind uint8

const (
	AddNode Kind = iota
	DeleteNode
	AddNodeLabel
	DeleteNodeLabel
	AddEdge
	DeleteEdge
	AddEdgeLabel
	DeleteEdgeLabel
)

func (k Kind) String() string {
	switch k {
	case AddNode:
		return "AddNode"
	case DeleteNode:
		return "DeleteNode"
	case AddNodeLabel:
		return "AddNodeLabel"
	case DeleteNodeLabel:
		return "DeleteNodeLabel"
	case AddEdge:
		return "AddEdge"
	case DeleteEdge:
		return "DeleteEdge"
	case AddEdgeLabel:
		return "AddEdgeLabel"
	case DeleteEdgeLabel:
		return "DeleteEdgeLabel"
	default:
		return "unknown"
	}
}

// Event is one update-log entry. Every Kind uses a different subset of the
// fields below; which fields are meaningful is determined entirely by Kind.
//
//	AddNode          NodeName, NodeType
//	DeleteNode       NodeName
//	AddNodeLabel     NodeName, Key, Value
//	DeleteNodeLabel  NodeName, Key
//	AddEdge          Source, Target, Component
//	DeleteEdge       Source, Target, Component
//	AddEdgeLabel     Source, Target, Component, Key, Value
//	DeleteEdgeLabel  Source, Target, Component, Key
type Event struct {
	Kind Kind

	NodeName string
	NodeType annokey.NodeType

	Source string
	Target string
	Component annokey.Component

	Key   annokey.Key
	Value string
}

// NewAddNode builds an AddNode event.
func NewAddNode(nodeName string, nodeType annokey.NodeType) Event {
	return Event{Kind: AddNode, NodeName: nodeName, NodeType: nodeType}
}

// NewDeleteNode builds a DeleteNode event.
func NewDeleteNode(nodeName string) Event {
	return Event{Kind: DeleteNode, NodeName: nodeName}
}

// NewAddNodeLabel builds an AddNodeLabel event.
func NewAddNodeLabel(nodeName string, key annokey.Key, value string) Event {
	return Event{Kind: AddNodeLabel, NodeName: nodeName, Key: key, Value: value}
}

// NewDeleteNodeLabel builds a DeleteNodeLabel event.
func NewDeleteNodeLabel(nodeName string, key annokey.Key) Event {
	return Event{Kind: DeleteNodeLabel, NodeName: nodeName, Key: key}
}

// NewAddEdge builds an AddEdge event.
func NewAddEdge(source, target string, component annokey.Component) Event {
	return Event{Kind: AddEdge, Source: source, Target: target, Component: component}
}

// NewDeleteEdge builds a DeleteEdge event.
func NewDeleteEdge(source, target string, component annokey.Component) Event {
	return Event{Kind: DeleteEdge, Source: source, Target: target, Component: component}
}

// NewAddEdgeLabel builds an AddEdgeLabel event.
func NewAddEdgeLabel(source, target string, component annokey.Component, key annokey.Key, value string) Event {
	return Event{Kind: AddEdgeLabel, Source: source, Target: target, Component: component, Key: key, Value: value}
}

// NewDeleteEdgeLabel builds a DeleteEdgeLabel event.
func NewDeleteEdgeLabel(source, target string, component annokey.Component, key annokey.Key) Event {
	return Event{Kind: DeleteEdgeLabel, Source: source, Target: target, Component: component, Key: key}
}
