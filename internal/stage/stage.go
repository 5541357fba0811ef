// Package stage implements the closed stage contract: every stage declares
// a module name and step identity, and is exactly one of Importer,
// Manipulator, or Exporter. Stages are pure with respect to the graph model:
// any state they carry between calls is configuration, set at construction
// time by the workflow decoder (internal/workflow).
package stage

import (
	"context"

	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stageid"
	"github.com/orneryd/corpusgraph/internal/updatelog"
)

// Named is the capability every stage has: a module name and a step
// identity.
type Named interface {
	ModuleName() string
	StepID() stageid.ID
}

// Importer reads a directory tree of source files and emits a fresh update
// log describing the nodes and edges it found. Inputs beyond inputPath are
// whatever configuration the concrete importer captured at construction.
type Importer interface {
	Named
	Import(ctx context.Context, inputPath string, progress progress.Sender) (updatelog.Log, error)
}

// Manipulator receives exclusive mutable access to the graph and rewrites or
// augments it in place.
type Manipulator interface {
	Named
	Manipulate(ctx context.Context, g *graph.Graph, workflowDir string, progress progress.Sender) error
}

// Exporter receives shared read access to the finished graph and serializes
// it (or document-sized subgraphs of it) to outputPath.
type Exporter interface {
	Named
	Export(ctx context.Context, g *graph.Graph, outputPath string, progress progress.Sender) error
}

// Base provides the Named capability for concrete stages to embed, so a
// name field is carried directly rather than re-derived ad hoc at each call
// site.
type Base struct {
	Module string
	Path   string
}

func (b Base) ModuleName() string { return b.Module }
func (b Base) StepID() stageid.ID { return stageid.ID{ModuleName: b.Module, Path: b.Path} }
