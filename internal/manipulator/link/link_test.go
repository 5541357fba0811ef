package link

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

func TestRunLinksMatchingValues(t *testing.T) {
	g := graph.New()
	log := updatelog.NewMemory()
	log.Append(updatelog.NewAddNode("a1", annokey.NodeTypeNode))
	log.Append(updatelog.NewAddNodeLabel("a1", annokey.New("", "ref"), "x"))
	log.Append(updatelog.NewAddNode("b1", annokey.NodeTypeNode))
	log.Append(updatelog.NewAddNodeLabel("b1", annokey.New("", "id"), "x"))
	log.Append(updatelog.NewAddNode("b2", annokey.NodeTypeNode))
	log.Append(updatelog.NewAddNodeLabel("b2", annokey.New("", "id"), "y"))
	require.NoError(t, g.Apply(log, sendSink(), true))

	events, ok := Run(g, Config{
		SourceKeys: []string{"::ref"},
		TargetKeys: []string{"::id"},
		Component:  "Pointing/link/ref",
	})
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "a1", events[0].Source)
	assert.Equal(t, "b1", events[0].Target)
}

func TestRunRejectsUnparsableComponent(t *testing.T) {
	g := graph.New()
	_, ok := Run(g, Config{Component: "not-a-component"})
	assert.False(t, ok)
}
