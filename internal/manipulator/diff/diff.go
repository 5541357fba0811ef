// Package diff implements a supporting manipulator that compares two node
// orderings across matching sub-graphs (by default, same-named documents)
// and annotates the difference: a longest-common-subsequence alignment over
// a value read from each side. Equal pairs are linked with a Pointing "diff"
// edge whose "diff::op" edge annotation is "="; every deleted, inserted, or
// replaced node gets a "diff::op" node annotation of "-", "+", or "~".
package diff

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

// Config is the diff manipulator's [graph_op.config] table.
type Config struct {
	// By is the qualified annotation key wire form grouping source and
	// target nodes into comparable pairs; defaults to "annis::doc".
	By string `toml:"by"`
	// SourceComponent/TargetComponent name the Ordering components whose
	// chains, grouped by By, are compared.
	SourceComponent string `toml:"source_component"`
	TargetComponent string `toml:"target_component"`
	// SourceKey/TargetKey name the annotation compared at each position.
	SourceKey string `toml:"source_key"`
	TargetKey string `toml:"target_key"`
}

func (c Config) byKey() annokey.Key {
	if c.By == "" {
		return annokey.Annis(annokey.Doc)
	}
	return annokey.ParseQName(c.By)
}

// Manipulator is the diff stage.
type Manipulator struct {
	stage.Base
	Config Config
}

// New returns a diff manipulator with the given configuration.
func New(cfg Config) *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "MarkDiffs"}, Config: cfg}
}

var _ stage.Manipulator = (*Manipulator)(nil)

func (m *Manipulator) Manipulate(_ context.Context, g *graph.Graph, _ string, sink progress.Sender) error {
	srcComp, ok := annokey.ParseComponent(m.Config.SourceComponent)
	if !ok {
		return &corpuserr.ManipulatorError{Manipulator: "MarkDiffs", Reason: fmt.Sprintf("invalid source_component %q", m.Config.SourceComponent)}
	}
	tgtComp, ok := annokey.ParseComponent(m.Config.TargetComponent)
	if !ok {
		return &corpuserr.ManipulatorError{Manipulator: "MarkDiffs", Reason: fmt.Sprintf("invalid target_component %q", m.Config.TargetComponent)}
	}

	srcStore, ok := g.Component(srcComp)
	if !ok {
		sink.Send(progress.NewWarning(fmt.Sprintf("diff: no component %s found", srcComp)))
		return nil
	}
	tgtStore, ok := g.Component(tgtComp)
	if !ok {
		sink.Send(progress.NewWarning(fmt.Sprintf("diff: no component %s found", tgtComp)))
		return nil
	}

	srcChains := chainsByGroup(g, srcStore, m.Config.byKey())
	tgtChains := chainsByGroup(g, tgtStore, m.Config.byKey())

	groups := unionKeys(srcChains, tgtChains)
	var events []updatelog.Event
	for _, group := range groups {
		events = append(events, diffPair(g, srcChains[group], tgtChains[group], annokey.ParseQName(m.Config.SourceKey), annokey.ParseQName(m.Config.TargetKey))...)
	}

	if err := g.ApplyEvents(events, false); err != nil {
		return err
	}
	sink.Send(progress.NewInfo(fmt.Sprintf("diff: compared %d group(s)", len(groups))))
	return nil
}

// chainsByGroup walks every ordering chain in store and groups its start
// node's chain by the value of groupKey on the chain's first node.
func chainsByGroup(g *graph.Graph, store *graph.EdgeStore, groupKey annokey.Key) map[string][]uint64 {
	out := make(map[string][]uint64)
	starts := store.StartNodes()
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for _, start := range starts {
		n, ok := g.NodeByID(start)
		if !ok {
			continue
		}
		doc := annokey.DocumentName(n.Name())
		if v, ok := g.AnnotationValue(start, groupKey); ok {
			doc = v
		}
		chain := []uint64{start}
		for _, r := range store.DFS(start, 1, -1, graph.Out) {
			chain = append(chain, r.Node)
		}
		out[doc] = chain
	}
	return out
}

func unionKeys(a, b map[string][]uint64) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// opKind is the closed set of diff operations, matching the common
// equal/delete/insert/replace opcode shape.
type opKind string

const (
	opEqual   opKind = "="
	opDelete  opKind = "-"
	opInsert  opKind = "+"
	opReplace opKind = "~"
)

// diffPair aligns src and tgt by the longest common subsequence of their
// compared values and emits the corresponding diff::op labels.
func diffPair(g *graph.Graph, src, tgt []uint64, srcKey, tgtKey annokey.Key) []updatelog.Event {
	srcVals := values(g, src, srcKey)
	tgtVals := values(g, tgt, tgtKey)
	ops := lcsOpcodes(srcVals, tgtVals)

	var events []updatelog.Event
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			for i := 0; i < op.length; i++ {
				srcNode, ok1 := g.NodeByID(src[op.srcStart+i])
				tgtNode, ok2 := g.NodeByID(tgt[op.tgtStart+i])
				if !ok1 || !ok2 {
					continue
				}
				diffComp := annokey.Component{Type: annokey.Pointing, Layer: "", Name: "diff"}
				events = append(events,
					updatelog.NewAddEdge(srcNode.Name(), tgtNode.Name(), diffComp),
					updatelog.NewAddEdgeLabel(srcNode.Name(), tgtNode.Name(), diffComp, annokey.New("diff", "op"), string(opEqual)),
				)
			}
		case opDelete:
			for i := 0; i < op.length; i++ {
				events = append(events, labelOp(g, src[op.srcStart+i], opDelete))
			}
		case opInsert:
			for i := 0; i < op.length; i++ {
				events = append(events, labelOp(g, tgt[op.tgtStart+i], opInsert))
			}
		case opReplace:
			for i := 0; i < op.length; i++ {
				events = append(events, labelOp(g, src[op.srcStart+i], opReplace))
			}
			for i := 0; i < op.tgtLength; i++ {
				events = append(events, labelOp(g, tgt[op.tgtStart+i], opReplace))
			}
		}
	}
	return events
}

func labelOp(g *graph.Graph, id uint64, kind opKind) updatelog.Event {
	n, _ := g.NodeByID(id)
	name := ""
	if n != nil {
		name = n.Name()
	}
	return updatelog.NewAddNodeLabel(name, annokey.New("diff", "op"), string(kind))
}

func values(g *graph.Graph, ids []uint64, key annokey.Key) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		v, _ := g.AnnotationValue(id, key)
		out[i] = v
	}
	return out
}

type opcode struct {
	kind               opKind
	srcStart, length   int
	tgtStart, tgtLength int
}

// lcsOpcodes aligns a and b via dynamic-programming LCS and returns the
// equal/delete/insert/replace runs covering both sequences in order.
func lcsOpcodes(a, b []string) []opcode {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var runs []opcode
	i, j := 0, 0
	flushNonEqual := func(srcStart, srcLen, tgtStart, tgtLen int) {
		switch {
		case srcLen == 0 && tgtLen == 0:
			return
		case srcLen == 0:
			runs = append(runs, opcode{kind: opInsert, tgtStart: tgtStart, tgtLength: tgtLen, length: tgtLen})
		case tgtLen == 0:
			runs = append(runs, opcode{kind: opDelete, srcStart: srcStart, length: srcLen})
		default:
			runs = append(runs, opcode{kind: opReplace, srcStart: srcStart, length: srcLen, tgtStart: tgtStart, tgtLength: tgtLen})
		}
	}

	pendingSrc, pendingTgt := 0, 0
	for i < n && j < m {
		if a[i] == b[j] {
			flushNonEqual(i-pendingSrc, pendingSrc, j-pendingTgt, pendingTgt)
			pendingSrc, pendingTgt = 0, 0
			runStart := i
			tgtStart := j
			length := 0
			for i < n && j < m && a[i] == b[j] {
				i++
				j++
				length++
			}
			runs = append(runs, opcode{kind: opEqual, srcStart: runStart, tgtStart: tgtStart, length: length})
			continue
		}
		if dp[i+1][j] >= dp[i][j+1] {
			i++
			pendingSrc++
		} else {
			j++
			pendingTgt++
		}
	}
	pendingSrc += n - i
	pendingTgt += m - j
	flushNonEqual(n-pendingSrc, pendingSrc, m-pendingTgt, pendingTgt)
	return runs
}
