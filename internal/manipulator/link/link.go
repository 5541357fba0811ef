// Package link implements a supporting manipulator that creates edges
// between nodes based on matching annotation values: every source node is
// paired with every target node whose computed value is equal, and an edge
// in a configured component is created between each pair.
package link

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Config is the link manipulator's [graph_op.config] table.
type Config struct {
	// SourceKeys/TargetKeys each name one or more qualified annotation key
	// wire forms read from a candidate node; their values are concatenated
	// with ValueSep to produce the value nodes are matched on.
	SourceKeys []string `toml:"source_keys"`
	TargetKeys []string `toml:"target_keys"`
	// Component is the "type/layer/name" wire form of the edge component
	// built between matched pairs.
	Component string `toml:"component"`
	ValueSep  string `toml:"value_sep"`
}

// Run matches source and target nodes by equal computed value and returns
// the AddEdge events linking every matched pair.
func Run(g *graph.Graph, cfg Config) ([]updatelog.Event, bool) {
	comp, ok := annokey.ParseComponent(cfg.Component)
	if !ok {
		return nil, false
	}
	srcKeys := parseKeys(cfg.SourceKeys)
	tgtKeys := parseKeys(cfg.TargetKeys)

	nodes := g.Nodes()

	targetsByValue := make(map[string][]uint64)
	for _, n := range nodes {
		v, ok := computeValue(g, n.ID, tgtKeys, cfg.ValueSep)
		if !ok {
			continue
		}
		targetsByValue[v] = append(targetsByValue[v], n.ID)
	}

	var events []updatelog.Event
	for _, n := range nodes {
		id := n.ID
		v, ok := computeValue(g, id, srcKeys, cfg.ValueSep)
		if !ok {
			continue
		}
		targets := targetsByValue[v]
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		srcNode, ok := g.NodeByID(id)
		if !ok {
			continue
		}
		for _, tgtID := range targets {
			if tgtID == id {
				continue
			}
			tgtNode, ok := g.NodeByID(tgtID)
			if !ok {
				continue
			}
			events = append(events, updatelog.NewAddEdge(srcNode.Name(), tgtNode.Name(), comp))
		}
	}
	return events, true
}

// Manipulator is the link stage.
type Manipulator struct {
	stage.Base
	Config Config
}

// New returns a link manipulator with the given configuration.
func New(cfg Config) *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "LinkNodes"}, Config: cfg}
}

var _ stage.Manipulator = (*Manipulator)(nil)

func (m *Manipulator) Manipulate(_ context.Context, g *graph.Graph, _ string, sink progress.Sender) error {
	events, ok := Run(g, m.Config)
	if !ok {
		return &corpuserr.ManipulatorError{Manipulator: "LinkNodes", Reason: fmt.Sprintf("invalid component %q", m.Config.Component)}
	}
	if err := g.ApplyEvents(events, false); err != nil {
		return err
	}
	sink.Send(progress.NewInfo(fmt.Sprintf("link: created %d edge(s)", len(events))))
	return nil
}

func parseKeys(raw []string) []annokey.Key {
	keys := make([]annokey.Key, 0, len(raw))
	for _, r := range raw {
		keys = append(keys, annokey.ParseQName(r))
	}
	return keys
}

func computeValue(g *graph.Graph, id uint64, keys []annokey.Key, sep string) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := g.AnnotationValue(id, k)
		if !ok {
			return "", false
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, sep), true
}
