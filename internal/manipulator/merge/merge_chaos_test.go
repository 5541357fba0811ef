package merge

import (
	"context"
	"strings"
	"testing"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/updatelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CHAOS AND MISALIGNMENT EDGE CASE TESTS
// =============================================================================

// buildDocIn appends one document's dipl/norm orderings onto an existing log,
// letting a single test apply several documents in one graph.
func buildDocIn(log updatelog.Log, doc string, diplVals, normVals []string) {
	log.Append(updatelog.NewAddNode("corpus/"+doc, annokey.NodeTypeCorpus))
	log.Append(updatelog.NewAddNodeLabel("corpus/"+doc, annokey.Annis(annokey.Doc), doc))

	diplComp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: "dipl"}
	var prevDipl string
	for i, v := range diplVals {
		name := nodeName(doc, "dipl", i)
		log.Append(updatelog.NewAddNode(name, annokey.NodeTypeNode))
		log.Append(updatelog.NewAddNodeLabel(name, annokey.New("", "dipl"), v))
		if prevDipl != "" {
			log.Append(updatelog.NewAddEdge(prevDipl, name, diplComp))
		}
		prevDipl = name
	}

	normComp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: "norm"}
	var prevNorm string
	for i, v := range normVals {
		name := nodeName(doc, "norm", i)
		log.Append(updatelog.NewAddNode(name, annokey.NodeTypeNode))
		log.Append(updatelog.NewAddNodeLabel(name, annokey.New("", "norm"), v))
		if prevNorm != "" {
			log.Append(updatelog.NewAddEdge(prevNorm, name, normComp))
		}
		prevNorm = name
	}
}

func TestChaos_EmptyOtherOrdering(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "doc1", []string{"I", "am", "here"}, nil)
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl", ErrorPolicy: Forward})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	_, ok := g.NodeByName("corpus/doc1")
	assert.True(t, ok, "an empty other ordering is a misalignment, not a crash")
}

func TestChaos_UnicodeTokenValuesAlign(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "doc1", []string{"日本語", "テスト", "🚀"}, []string{"日本語", "テスト", "🚀"})
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl"})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	keep, ok := g.NodeByName(nodeName("doc1", "dipl", 0))
	require.True(t, ok)
	assert.Equal(t, "日本語", keep.Annotations[annokey.New("", "dipl")])
	_, stillThere := g.NodeByName(nodeName("doc1", "norm", 0))
	assert.False(t, stillThere, "unicode-identical tokens fold like any other match")
}

func TestChaos_VeryLongChain(t *testing.T) {
	const n = 500
	vals := make([]string, n)
	for i := range vals {
		vals[i] = strings.Repeat("a", i%7+1)
	}

	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "doc1", vals, vals)
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl"})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	// n tokens + 1 doc node + 1 corpus root, norm side fully absorbed.
	assert.Equal(t, n+2, g.NodeCount())
}

func TestChaos_OptionalCharsStrippedBeforeCompare(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "doc1", []string{"cat.", "dog,"}, []string{"cat", "dog"})
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{
		CheckNames:    []string{"dipl", "norm"},
		KeepName:      "dipl",
		OptionalChars: ".,",
	})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	_, stillThere := g.NodeByName(nodeName("doc1", "norm", 0))
	assert.False(t, stillThere, "trailing punctuation configured as optional must not block alignment")
}

func TestChaos_MixedAlignmentAcrossDocumentsDropPolicy(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "clean", []string{"I", "am", "here"}, []string{"I", "am", "here"})
	buildDocIn(log, "broken", []string{"I", "am", "here"}, []string{"I", "was", "here"})
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl", ErrorPolicy: Drop})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	_, cleanOk := g.NodeByName("corpus/clean")
	_, brokenOk := g.NodeByName("corpus/broken")
	assert.True(t, cleanOk, "a cleanly aligned document must survive even when a sibling document misaligns")
	assert.False(t, brokenOk, "only the misaligned document is dropped")
}

func TestChaos_RepeatedIdenticalTokenValues(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	buildDocIn(log, "doc1", []string{"the", "the", "the"}, []string{"the", "the", "the"})
	require.NoError(t, g.Apply(log, sendSink(), true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl"})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	// Repeated values must still align positionally, not collapse into one node.
	assert.Equal(t, 5, g.NodeCount())
}
