// Package donothing implements the one concrete format adapter this module
// ships: an importer/manipulator/exporter triple that performs no I/O.
// Format adapters for real corpus formats (CoNLL-U, EXMARaLDA, ...) are out
// of scope; this triple exists only so the pipeline executor and its tests
// have at least one real stage of each kind to drive without building a
// format parser. A no-op importer returns an empty log; a no-op manipulator
// and exporter return nil immediately.
package donothing

import (
	"context"

	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Importer emits an empty update log.
type Importer struct {
	stage.Base
}

// NewImporter returns a do-nothing importer addressed at path.
func NewImporter(path string) *Importer {
	return &Importer{Base: stage.Base{Module: "DoNothingImporter", Path: path}}
}

func (i *Importer) Import(_ context.Context, _ string, _ progress.Sender) (updatelog.Log, error) {
	return updatelog.NewMemory(), nil
}

// Manipulator leaves the graph untouched.
type Manipulator struct {
	stage.Base
}

// NewManipulator returns a do-nothing manipulator.
func NewManipulator() *Manipulator {
	return &Manipulator{Base: stage.Base{Module: "DoNothingManipulator"}}
}

func (m *Manipulator) Manipulate(_ context.Context, _ *graph.Graph, _ string, _ progress.Sender) error {
	return nil
}

// Exporter writes nothing.
type Exporter struct {
	stage.Base
}

// NewExporter returns a do-nothing exporter addressed at path.
func NewExporter(path string) *Exporter {
	return &Exporter{Base: stage.Base{Module: "DoNothingExporter", Path: path}}
}

func (e *Exporter) Export(_ context.Context, _ *graph.Graph, _ string, _ progress.Sender) error {
	return nil
}

var (
	_ stage.Importer    = (*Importer)(nil)
	_ stage.Manipulator = (*Manipulator)(nil)
	_ stage.Exporter    = (*Exporter)(nil)
)
