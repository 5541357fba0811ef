package merge

import (
	"context"
	"testing"

	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/updatelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendSink() progress.Sender {
	s, r := progress.New(64)
	go func() {
		for {
			if _, ok := r.Recv(); !ok {
				return
			}
		}
	}()
	return s
}

// buildDoc creates a corpus/doc1 tree with two parallel token orderings:
// dipl carries diplVals under the plain "dipl" key, norm carries normVals
// under the plain "norm" key plus a "pos"-under-norm-namespace annotation.
func buildDoc(t *testing.T, diplVals, normVals, normPos []string) *graph.Graph {
	t.Helper()
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("corpus", annokey.NodeTypeCorpus))
	log.Append(updatelog.NewAddNode("corpus/doc1", annokey.NodeTypeCorpus))
	log.Append(updatelog.NewAddNodeLabel("corpus/doc1", annokey.Annis(annokey.Doc), "doc1"))

	diplComp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: "dipl"}
	var prevDipl string
	for i, v := range diplVals {
		name := nodeName("doc1", "dipl", i)
		log.Append(updatelog.NewAddNode(name, annokey.NodeTypeNode))
		log.Append(updatelog.NewAddNodeLabel(name, annokey.TokKey, v))
		log.Append(updatelog.NewAddNodeLabel(name, annokey.New("", "dipl"), v))
		if prevDipl != "" {
			log.Append(updatelog.NewAddEdge(prevDipl, name, diplComp))
		}
		prevDipl = name
	}

	normComp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: "norm"}
	var prevNorm string
	for i, v := range normVals {
		name := nodeName("doc1", "norm", i)
		log.Append(updatelog.NewAddNode(name, annokey.NodeTypeNode))
		log.Append(updatelog.NewAddNodeLabel(name, annokey.New("", "norm"), v))
		if i < len(normPos) {
			log.Append(updatelog.NewAddNodeLabel(name, annokey.New("norm", "pos"), normPos[i]))
		}
		if prevNorm != "" {
			log.Append(updatelog.NewAddEdge(prevNorm, name, normComp))
		}
		prevNorm = name
	}

	require.NoError(t, g.Apply(log, sendSink(), true))
	return g
}

func nodeName(doc, ordering string, i int) string {
	return "corpus/" + doc + "#" + ordering + "-" + itoa(i)
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

func TestMergeCleanAlignment(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "am", "here"}, []string{"PRON", "VERB", "ADV"})

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl"})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	// 3 tokens + 1 doc + 1 corpus root.
	assert.Equal(t, 5, g.NodeCount())

	keep, ok := g.NodeByName(nodeName("doc1", "dipl", 0))
	require.True(t, ok)
	assert.Equal(t, "I", keep.Annotations[annokey.TokKey])
	assert.Equal(t, "I", keep.Annotations[annokey.New("", "dipl")])
	assert.Equal(t, "PRON", keep.Annotations[annokey.New("norm", "pos")])
	_, hasNorm := keep.Annotations[annokey.New("", "norm")]
	assert.False(t, hasNorm, "alignment-only key must not survive the fold")

	_, stillThere := g.NodeByName(nodeName("doc1", "norm", 0))
	assert.False(t, stillThere)

	normComp := annokey.Component{Type: annokey.Ordering, Layer: annokey.AnnisNS, Name: "norm"}
	store, ok := g.Component(normComp)
	if ok {
		assert.Empty(t, store.All())
	}
}

func TestMergeOptionalToken(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "am", "NOISE", "here"}, nil)

	m := New(Config{
		CheckNames:     []string{"dipl", "norm"},
		KeepName:       "dipl",
		OptionalValues: []string{"NOISE"},
	})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	assert.Equal(t, 5, g.NodeCount())
	_, stillThere := g.NodeByName(nodeName("doc1", "norm", 2))
	assert.False(t, stillThere, "the NOISE node must be consumed and deleted")
}

func TestMergeMisalignmentFailPolicy(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "was", "here"}, nil)

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl", ErrorPolicy: Fail})
	err := m.Manipulate(context.Background(), g, "", sendSink())
	assert.Error(t, err)
}

func TestMergeMisalignmentDropPolicy(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "was", "here"}, nil)

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl", ErrorPolicy: Drop})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	_, ok := g.NodeByName("corpus/doc1")
	assert.False(t, ok, "the misaligned document's corpus node must be dropped")
}

func TestMergeMisalignmentForwardPolicy(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "was", "here"}, nil)

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl", ErrorPolicy: Forward})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	_, ok := g.NodeByName("corpus/doc1")
	assert.True(t, ok, "forward policy keeps the document")
}

func TestMergeRewritesPointingEdge(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "am", "here"}, nil)

	depComp := annokey.Component{Type: annokey.Pointing, Layer: "dep", Name: ""}
	src := nodeName("doc1", "norm", 1)
	tgt := nodeName("doc1", "norm", 2)
	require.NoError(t, g.ApplyEvents([]updatelog.Event{
		updatelog.NewAddEdge(src, tgt, depComp),
		updatelog.NewAddEdgeLabel(src, tgt, depComp, annokey.New("", "dep"), "subj"),
	}, true))

	m := New(Config{CheckNames: []string{"dipl", "norm"}, KeepName: "dipl"})
	require.NoError(t, m.Manipulate(context.Background(), g, "", sendSink()))

	store, ok := g.Component(depComp)
	require.True(t, ok)
	keepSrc, _ := g.NodeByName(nodeName("doc1", "dipl", 1))
	keepTgt, _ := g.NodeByName(nodeName("doc1", "dipl", 2))
	edge, ok := store.Edge(keepSrc.ID, keepTgt.ID)
	require.True(t, ok, "pointing edge must be rewritten onto the keep nodes")
	assert.Equal(t, "subj", edge.Annotations[annokey.New("", "dep")])
}

func TestMergeSecondRunOnAlreadyMergedGraphIsANoOp(t *testing.T) {
	g := buildDoc(t, []string{"I", "am", "here"}, []string{"I", "am", "here"}, []string{"PRON", "VERB", "ADV"})
	cfg := Config{CheckNames: []string{"dipl"}, KeepName: "dipl"}

	require.NoError(t, New(cfg).Manipulate(context.Background(), g, "", sendSink()))
	before := g.NodeCount()

	require.NoError(t, New(cfg).Manipulate(context.Background(), g, "", sendSink()))
	assert.Equal(t, before, g.NodeCount(), "re-running against a single already-canonical ordering changes nothing")
}
