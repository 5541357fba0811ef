// Package merge implements the document-stream merger: the hardest
// manipulator in this module. It fuses several parallel token orderings
// imported for the same document into one canonical chain, rewriting every
// edge that referenced an absorbed node.
//
// The text value compared at each alignment position is read from a plain
// (unqualified) annotation key named after the ordering itself (e.g. a node
// on the "dipl" ordering carries its token text under annotation key
// (ns="", name="dipl")), not from ANNIS::tok. Folding an absorbed node
// therefore must not copy that key back onto the keep node (it would
// resurrect the very key the merge consumed): the surviving node ends up
// carrying "tok", "dipl", and "norm::pos" but not a bare "norm" key.
package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
	"github.com/orneryd/corpusgraph/pkg/pool"
)

// ErrorPolicy is the closed set of ways the manipulator may react to a
// misaligned document.
type ErrorPolicy string

const (
	Fail    ErrorPolicy = "fail"
	Drop    ErrorPolicy = "drop"
	Forward ErrorPolicy = "forward"
)

// Config is the merge manipulator's [graph_op.config] table.
type Config struct {
	// CheckNames is the list of ordering names that must be aligned with one
	// another. KeepName must be one of them.
	CheckNames []string `toml:"check_names"`
	// KeepName is the ordering whose nodes survive; its sequence defines the
	// alignment positions.
	KeepName string `toml:"keep_name"`
	// OptionalValues may be skipped in the keep stream without counting as a
	// misalignment.
	OptionalValues []string `toml:"optional_values"`
	// OptionalChars are stripped from both sides before comparing.
	OptionalChars string `toml:"optional_chars"`
	// ErrorPolicy is one of fail/drop/forward. Defaults to fail.
	ErrorPolicy ErrorPolicy `toml:"error_policy"`
	// SkipComponents lists "Type/layer/name" triples excluded from edge
	// rewriting.
	SkipComponents []string `toml:"skip_components"`
	ReportDetails  bool     `toml:"report_details"`
	Silent         bool     `toml:"silent"`
}

func (c Config) errorPolicy() ErrorPolicy {
	if c.ErrorPolicy == "" {
		return Fail
	}
	return c.ErrorPolicy
}

// Manipulator is the merge stage.
type Manipulator struct {
	stage.Base
	Config Config
}

// New returns a merge manipulator with the given configuration.
func New(cfg Config) *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "Merger"}, Config: cfg}
}

var _ stage.Manipulator = (*Manipulator)(nil)

// chain is one ordering's node sequence for one document, in chain order.
type chain []uint64

// docChains maps an ordering name to its chain, for one document.
type docChains map[string]chain

func (m *Manipulator) Manipulate(_ context.Context, g *graph.Graph, _ string, sink progress.Sender) error {
	if !m.Config.Silent {
		sink.Send(progress.NewInfo("merge: starting"))
	}

	byDoc, err := m.retrieveOrderedNodes(g)
	if err != nil {
		return err
	}

	labelEvents, deleteEvents, nodeMap, misaligned, err := m.mapTextNodes(g, byDoc)
	if err != nil {
		return err
	}

	skip := m.skipComponents(g)
	edgeEvents := m.mergeAllComponents(g, skip, nodeMap, sink)

	policy := m.Config.errorPolicy()
	if len(misaligned) > 0 && policy == Fail {
		names := sortedKeys(misaligned)
		return fmt.Errorf("documents with misaligned tokens: %s", strings.Join(names, ", "))
	}

	events := pool.GetEventBatch()
	defer pool.PutEventBatch(events)
	events = append(events, labelEvents...)
	events = append(events, edgeEvents...)
	events = append(events, deleteEvents...)

	if len(misaligned) > 0 {
		names := sortedKeys(misaligned)
		switch policy {
		case Drop:
			events = append(events, m.dropDocumentEvents(g, names)...)
			sink.Send(progress.NewWarning(fmt.Sprintf("merge: dropping misaligned documents: %s", strings.Join(names, ", "))))
		case Forward:
			sink.Send(progress.NewWarning(fmt.Sprintf("merge: misaligned documents kept: %s", strings.Join(names, ", "))))
		}
	}

	if err := g.ApplyEvents(events, false); err != nil {
		return err
	}
	if m.Config.ReportDetails && !m.Config.Silent {
		sink.Send(progress.NewInfo(fmt.Sprintf("merge: folded %d node(s) across %d document(s)", len(nodeMap), len(byDoc))))
	}
	return nil
}

// retrieveOrderedNodes collects, per document, the full chain of each
// checked ordering.
func (m *Manipulator) retrieveOrderedNodes(g *graph.Graph) (map[string]docChains, error) {
	byDoc := make(map[string]docChains)
	for _, name := range m.Config.CheckNames {
		comp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: name}
		store, ok := g.Component(comp)
		if !ok {
			if name == m.Config.KeepName {
				return nil, fmt.Errorf("merge: required ordering %q does not exist", name)
			}
			// An absent non-keep ordering leaves every document without a
			// chain for it, which the alignment loop reports as a misalignment.
			continue
		}
		starts := store.StartNodes()
		sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
		for _, start := range starts {
			n, ok := g.NodeByID(start)
			if !ok {
				continue
			}
			doc := annokey.DocumentName(n.Name())
			rest := dfsChain(store, start)
			walk := make(chain, 0, 1+len(rest))
			walk = append(walk, start)
			walk = append(walk, rest...)
			pool.PutNodeIDStack(rest)
			if byDoc[doc] == nil {
				byDoc[doc] = make(docChains)
			}
			byDoc[doc][name] = walk
		}
	}
	return byDoc, nil
}

// dfsChain walks the rest of an ordering chain past start, using a pooled
// node-id stack as scratch space for the duration of this one walk; the
// caller copies it into the chain it keeps and returns it to the pool.
func dfsChain(store *graph.EdgeStore, start uint64) []uint64 {
	reached := store.DFS(start, 1, -1, graph.Out)
	out := pool.GetNodeIDStack()
	for _, r := range reached {
		out = append(out, r.Node)
	}
	return out
}

// otherState tracks one non-keep ordering's read cursor for one document:
// pos is the next unconsumed index in chain; pending holds a node put back
// when the keep value is optional but the candidate other value is not, so
// the candidate is retried against the next keep position.
type otherState struct {
	chain   chain
	pos     int
	pending *uint64
}

func (s *otherState) next() (uint64, bool) {
	if s.pending != nil {
		v := *s.pending
		s.pending = nil
		return v, true
	}
	if s.pos >= len(s.chain) {
		return 0, false
	}
	v := s.chain[s.pos]
	s.pos++
	return v, true
}

func (s *otherState) putBack(id uint64) { s.pending = &id }

// mapTextNodes runs the per-document alignment loop, producing the
// AddNodeLabel/DeleteNode events that fold absorbed nodes into their keep
// node, the absorbed->keep id mapping edge rewriting needs, and the set of
// misaligned document names.
func (m *Manipulator) mapTextNodes(g *graph.Graph, byDoc map[string]docChains) ([]updatelog.Event, []updatelog.Event, map[uint64]uint64, map[string]struct{}, error) {
	nodeMap := make(map[uint64]uint64)
	misaligned := make(map[string]struct{})
	var labelEvents, deleteEvents []updatelog.Event

	optional := make(map[string]struct{}, len(m.Config.OptionalValues))
	for _, v := range m.Config.OptionalValues {
		optional[v] = struct{}{}
	}
	strip := stripFunc(m.Config.OptionalChars)

	otherNames := make([]string, 0, len(m.Config.CheckNames))
	for _, n := range m.Config.CheckNames {
		if n != m.Config.KeepName {
			otherNames = append(otherNames, n)
		}
	}
	sort.Strings(otherNames)

	docNames := sortedDocKeys(byDoc)
	for _, doc := range docNames {
		chains := byDoc[doc]
		keepChain := chains[m.Config.KeepName]

		states := make(map[string]*otherState, len(otherNames))
		for _, name := range otherNames {
			states[name] = &otherState{chain: chains[name]}
		}

		keepKey := annokey.New("", m.Config.KeepName)
		for _, keepID := range keepChain {
			rawKeepVal, _ := g.AnnotationValue(keepID, keepKey)
			keepVal := strip(rawKeepVal)
			keepOptional := isOptional(keepVal, optional)

			for _, name := range otherNames {
				state := states[name]
				otherKey := annokey.New("", name)

			otherLoop:
				for {
					otherID, ok := state.next()
					if !ok {
						if !keepOptional {
							misaligned[doc] = struct{}{}
						}
						break otherLoop
					}
					rawOtherVal, _ := g.AnnotationValue(otherID, otherKey)
					otherVal := strip(rawOtherVal)

					if keepVal == otherVal {
						le, de := foldEvents(g, otherID, keepID, otherNames)
						labelEvents = append(labelEvents, le...)
						deleteEvents = append(deleteEvents, de...)
						nodeMap[otherID] = keepID
						break otherLoop
					}

					otherOptional := isOptional(otherVal, optional)
					switch {
					case keepOptional && !otherOptional:
						state.putBack(otherID)
						break otherLoop
					case !keepOptional && otherOptional:
						// The skipped optional node is consumed: delete it.
						if n, ok := g.NodeByID(otherID); ok {
							deleteEvents = append(deleteEvents, updatelog.NewDeleteNode(n.Name()))
						}
						continue otherLoop
					case !keepOptional && !otherOptional:
						misaligned[doc] = struct{}{}
						le, de := foldEvents(g, otherID, keepID, otherNames)
						labelEvents = append(labelEvents, le...)
						deleteEvents = append(deleteEvents, de...)
						nodeMap[otherID] = keepID
						break otherLoop
					default: // both optional, differ: advance both without matching
						break otherLoop
					}
				}
			}
		}
	}
	return labelEvents, deleteEvents, nodeMap, misaligned, nil
}

// foldEvents copies every non-ANNIS, non-alignment-key annotation of
// otherID onto keepID and deletes otherID. otherNames is excluded from the
// copy because those keys exist only to drive alignment — excluding the
// ordering-name keys themselves is what keeps "norm" off the merged node
// while "norm::pos" survives.
func foldEvents(g *graph.Graph, otherID, keepID uint64, otherNames []string) (labels []updatelog.Event, deletes []updatelog.Event) {
	excluded := make(map[string]struct{}, len(otherNames))
	for _, n := range otherNames {
		excluded[n] = struct{}{}
	}

	keepNode, _ := g.NodeByID(keepID)
	otherNode, ok := g.NodeByID(otherID)
	if !ok || keepNode == nil {
		return nil, nil
	}
	keepName := keepNode.Name()

	// Snapshot the absorbed node's annotations under their wire-form keys
	// before emitting events, so the otherwise-transient copy used only to
	// drive this one fold comes from the pool rather than a fresh map.
	snapshot := pool.GetAnnoSnapshot()
	defer pool.PutAnnoSnapshot(snapshot)
	for key, value := range otherNode.Annotations {
		if key.Namespace == annokey.AnnisNS {
			continue
		}
		if _, skip := excluded[key.Name]; skip {
			continue
		}
		snapshot[key.String()] = value
	}

	for qname, value := range snapshot {
		labels = append(labels, updatelog.NewAddNodeLabel(keepName, annokey.ParseQName(qname), value))
	}
	deletes = append(deletes, updatelog.NewDeleteNode(otherNode.Name()))
	return labels, deletes
}

// skipComponents resolves the configured skip_components plus every
// non-keep checked ordering, which must never be rewritten into the keep
// ordering.
func (m *Manipulator) skipComponents(g *graph.Graph) map[annokey.Component]struct{} {
	skip := make(map[annokey.Component]struct{})
	for _, name := range m.Config.CheckNames {
		if name == m.Config.KeepName {
			continue
		}
		skip[annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: name}] = struct{}{}
	}
	for _, spec := range m.Config.SkipComponents {
		if c, ok := annokey.ParseComponent(spec); ok {
			skip[c] = struct{}{}
		}
	}
	return skip
}

// mergeAllComponents walks every remaining component and rewrites edges
// whose endpoints were absorbed.
func (m *Manipulator) mergeAllComponents(g *graph.Graph, skip map[annokey.Component]struct{}, nodeMap map[uint64]uint64, sink progress.Sender) []updatelog.Event {
	var events []updatelog.Event
	for _, comp := range sortedComponents(g.Components()) {
		if _, skipped := skip[comp]; skipped {
			if !m.Config.Silent {
				sink.Send(progress.NewInfo(fmt.Sprintf("merge: skipping component %s", comp)))
			}
			continue
		}
		store, ok := g.Component(comp)
		if !ok {
			continue
		}
		// Coverage and Dominance only ever rewrite the target endpoint;
		// every other component type may have either endpoint rewritten.
		switchSource := comp.Type != annokey.Coverage && comp.Type != annokey.Dominance
		events = append(events, mergeComponent(g, store, comp, switchSource, nodeMap)...)
	}
	return events
}

func mergeComponent(g *graph.Graph, store *graph.EdgeStore, comp annokey.Component, switchSource bool, nodeMap map[uint64]uint64) []updatelog.Event {
	var events []updatelog.Event
	for _, edge := range sortedEdges(store.All()) {
		newSource, sourceChanged := edge.Source, false
		if switchSource {
			if mapped, ok := nodeMap[edge.Source]; ok {
				newSource, sourceChanged = mapped, true
			}
		}
		newTarget, targetChanged := edge.Target, false
		if mapped, ok := nodeMap[edge.Target]; ok {
			newTarget, targetChanged = mapped, true
		}
		if !sourceChanged && !targetChanged {
			continue
		}

		oldSrcNode, ok1 := g.NodeByID(edge.Source)
		oldTgtNode, ok2 := g.NodeByID(edge.Target)
		if !ok1 || !ok2 {
			continue
		}
		newSrcNode, ok3 := g.NodeByID(newSource)
		newTgtNode, ok4 := g.NodeByID(newTarget)
		if !ok3 || !ok4 {
			continue
		}

		events = append(events, updatelog.NewDeleteEdge(oldSrcNode.Name(), oldTgtNode.Name(), comp))
		events = append(events, updatelog.NewAddEdge(newSrcNode.Name(), newTgtNode.Name(), comp))
		for key, value := range edge.Annotations {
			if key.Namespace == annokey.AnnisNS {
				continue
			}
			events = append(events, updatelog.NewAddEdgeLabel(newSrcNode.Name(), newTgtNode.Name(), comp, key, value))
		}
	}
	return events
}

// dropDocumentEvents emits DeleteNode for the corpus node of every name in
// misalignedDocs, used by the drop error policy. A corpus node matches when
// the last segment of its node name (annokey.DocumentName) is the document
// name.
func (m *Manipulator) dropDocumentEvents(g *graph.Graph, misalignedDocs []string) []updatelog.Event {
	drop := make(map[string]struct{}, len(misalignedDocs))
	for _, doc := range misalignedDocs {
		drop[doc] = struct{}{}
	}
	corpusType := string(annokey.NodeTypeCorpus)
	var names []string
	next := g.NodesWithAnnotation(annokey.NodeTypeKey, &corpusType)
	for {
		id, ok := next()
		if !ok {
			break
		}
		n, ok := g.NodeByID(id)
		if !ok {
			continue
		}
		if _, hit := drop[annokey.DocumentName(n.Name())]; hit {
			names = append(names, n.Name())
		}
	}
	sort.Strings(names)
	var events []updatelog.Event
	for _, name := range names {
		events = append(events, updatelog.NewDeleteNode(name))
	}
	return events
}

func isOptional(v string, optional map[string]struct{}) bool {
	_, ok := optional[v]
	return ok
}

func stripFunc(chars string) func(string) string {
	if chars == "" {
		return func(s string) string { return s }
	}
	cut := func(r rune) bool { return strings.ContainsRune(chars, r) }
	return func(s string) string { return strings.TrimFunc(s, cut) }
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedDocKeys(m map[string]docChains) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedComponents(cs []annokey.Component) []annokey.Component {
	sort.Slice(cs, func(i, j int) bool { return cs[i].String() < cs[j].String() })
	return cs
}

func sortedEdges(es []*graph.Edge) []*graph.Edge {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Source != es[j].Source {
			return es[i].Source < es[j].Source
		}
		return es[i].Target < es[j].Target
	})
	return es
}
