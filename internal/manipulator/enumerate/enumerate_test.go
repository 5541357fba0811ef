package enumerate

import (
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

func buildGraph(t *testing.T, docs map[string][]string) *graph.Graph {
	t.Helper()
	g := graph.New()
	log := updatelog.NewMemory()
	for doc, toks := range docs {
		for i, v := range toks {
			name := doc + "#tok-" + string(rune('0'+i))
			log.Append(updatelog.NewAddNode(name, annokey.NodeTypeNode))
			log.Append(updatelog.NewAddNodeLabel(name, annokey.New("", "pos"), v))
			log.Append(updatelog.NewAddNodeLabel(name, annokey.Annis(annokey.Doc), doc))
		}
	}
	require.NoError(t, g.Apply(log, sendSink(), true))
	return g
}

func TestRunAssignsSequentialCounter(t *testing.T) {
	g := buildGraph(t, map[string][]string{"doc1": {"NOUN", "VERB"}})
	events := Run(g, Config{Queries: []string{"::pos"}, Label: "i"})
	assert.Len(t, events, 2)
}

func TestRunResetsOnByTuple(t *testing.T) {
	g := buildGraph(t, map[string][]string{"doc1": {"NOUN"}, "doc2": {"VERB"}})
	events := Run(g, Config{Queries: []string{"::pos"}, By: []string{"annis::doc"}, Label: "i"})
	counters := make(map[string]string)
	for _, e := range events {
		counters[e.NodeName] = e.Value
	}
	for _, v := range counters {
		assert.Equal(t, "0", v, "each document's first match restarts the counter at Start")
	}
}
