package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/orneryd/corpusgraph/internal/adapter/donothing"
	"github.com/orneryd/corpusgraph/internal/annokey"
	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImporter emits a fixed list of events, or fails if err is set.
type fakeImporter struct {
	stage.Base
	events []updatelog.Event
	err    error
}

func (f *fakeImporter) Import(_ context.Context, _ string, _ progress.Sender) (updatelog.Log, error) {
	if f.err != nil {
		return nil, f.err
	}
	log := updatelog.NewMemory()
	for _, e := range f.events {
		log.Append(e)
	}
	return log, nil
}

// fakeExporter records whether it ran, or fails if err is set.
type fakeExporter struct {
	stage.Base
	err error
	ran *bool
}

func (f *fakeExporter) Export(_ context.Context, _ *graph.Graph, _ string, _ progress.Sender) error {
	if f.err != nil {
		return f.err
	}
	if f.ran != nil {
		*f.ran = true
	}
	return nil
}

// fakeManipulator optionally fails.
type fakeManipulator struct {
	stage.Base
	err error
}

func (f *fakeManipulator) Manipulate(_ context.Context, _ *graph.Graph, _ string, _ progress.Sender) error {
	return f.err
}

func discardSink(t *testing.T) progress.Sender {
	t.Helper()
	sender, receiver := progress.New(256)
	t.Cleanup(receiver.Close)
	go func() {
		for {
			if _, ok := receiver.Recv(); !ok {
				return
			}
		}
	}()
	return sender
}

func TestExecutorDoNothingRunsCleanly(t *testing.T) {
	exec := New(
		[]stage.Importer{donothing.NewImporter("/in")},
		[]stage.Manipulator{donothing.NewManipulator()},
		[]stage.Exporter{donothing.NewExporter("/out")},
		"/wf",
	)
	g, err := exec.Run(context.Background(), discardSink(t))
	require.NoError(t, err)
	assert.Equal(t, 0, g.NodeCount())
}

func TestExecutorImportFailureAborts(t *testing.T) {
	exec := New(
		[]stage.Importer{&fakeImporter{Base: stage.Base{Module: "broken", Path: "/bad"}, err: errors.New("boom")}},
		nil,
		nil,
		"/wf",
	)
	_, err := exec.Run(context.Background(), discardSink(t))
	require.Error(t, err)
	var importErr *corpuserr.ImportError
	assert.ErrorAs(t, err, &importErr)
	assert.Equal(t, "broken", importErr.Importer)
}

func TestExecutorDeterministicFanIn(t *testing.T) {
	key := annokey.Annis("doc")
	first := &fakeImporter{
		Base: stage.Base{Module: "A", Path: "/a"},
		events: []updatelog.Event{
			updatelog.NewAddNode("root/doc1", annokey.NodeTypeCorpus),
			updatelog.NewAddNodeLabel("root/doc1", key, "from-A"),
		},
	}
	second := &fakeImporter{
		Base: stage.Base{Module: "B", Path: "/b"},
		events: []updatelog.Event{
			updatelog.NewAddNodeLabel("root/doc1", key, "from-B"),
		},
	}

	exec := New([]stage.Importer{first, second}, nil, nil, "/wf")
	g, err := exec.Run(context.Background(), discardSink(t))
	require.NoError(t, err)

	n, ok := g.NodeByName("root/doc1")
	require.True(t, ok)
	assert.Equal(t, "from-B", n.Annotations[key], "later declared importer's label must win regardless of completion order")
}

func TestExecutorSpillThresholdRehomesImporterLog(t *testing.T) {
	key := annokey.Annis("doc")
	imp := &fakeImporter{
		Base: stage.Base{Module: "A", Path: "/a"},
		events: []updatelog.Event{
			updatelog.NewAddNode("root/doc1", annokey.NodeTypeCorpus),
			updatelog.NewAddNodeLabel("root/doc1", key, "v1"),
			updatelog.NewAddNodeLabel("root/doc1", key, "v2"),
		},
	}

	exec := New([]stage.Importer{imp}, nil, nil, "/wf")
	exec.SpillThreshold = 1
	exec.SpillDir = t.TempDir()

	g, err := exec.Run(context.Background(), discardSink(t))
	require.NoError(t, err)

	n, ok := g.NodeByName("root/doc1")
	require.True(t, ok)
	assert.Equal(t, "v2", n.Annotations[key], "events rehomed into a spilling log must still apply in order")
}

func TestExecutorManipulatorFailFast(t *testing.T) {
	exec := New(nil, []stage.Manipulator{
		&fakeManipulator{Base: stage.Base{Module: "boom"}, err: errors.New("manipulator exploded")},
	}, nil, "/wf")

	_, err := exec.Run(context.Background(), discardSink(t))
	require.Error(t, err)
	var manErr *corpuserr.ManipulatorError
	assert.ErrorAs(t, err, &manErr)
	assert.Equal(t, "boom", manErr.Manipulator)
}

func TestExecutorExportFanOutIsolation(t *testing.T) {
	var ranOK1, ranOK2 bool
	exec := New(nil, nil, []stage.Exporter{
		&fakeExporter{Base: stage.Base{Module: "ok1", Path: "/out1"}, ran: &ranOK1},
		&fakeExporter{Base: stage.Base{Module: "bad", Path: "/out-bad"}, err: errors.New("disk full")},
		&fakeExporter{Base: stage.Base{Module: "ok2", Path: "/out2"}, ran: &ranOK2},
	}, "/wf")

	_, err := exec.Run(context.Background(), discardSink(t))
	require.Error(t, err)
	assert.True(t, ranOK1, "sibling exporters must still run to completion")
	assert.True(t, ranOK2, "sibling exporters must still run to completion")

	var exportErr *corpuserr.ExportError
	assert.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "bad", exportErr.Exporter)
}
