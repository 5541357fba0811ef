package donothing

import (
	"context"
	"testing"

	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoNothingTriple(t *testing.T) {
	sender, receiver := progress.New(1)
	defer receiver.Close()

	imp := NewImporter("/tmp/in")
	log, err := imp.Import(context.Background(), "/tmp/in", sender)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, "DoNothingImporter(/tmp/in)", imp.StepID().String())

	g := graph.New()
	man := NewManipulator()
	require.NoError(t, man.Manipulate(context.Background(), g, "/tmp/wf", sender))
	assert.Equal(t, 0, g.NodeCount())

	exp := NewExporter("/tmp/out")
	require.NoError(t, exp.Export(context.Background(), g, "/tmp/out", sender))
}
