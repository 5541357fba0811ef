// Package workflow decodes a TOML workflow file into the ordered
// importer/manipulator/exporter descriptors the pipeline executor runs, and
// builds the corresponding stage.Importer/Manipulator/Exporter values.
//
// Build dispatches on each step's "format"/"action" tag through a single
// closed switch rather than an open plugin registry: adding a new adapter
// or manipulator means adding a case here, not registering a constructor
// somewhere else at init time.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/orneryd/corpusgraph/internal/adapter/donothing"
	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/manipulator/collapse"
	"github.com/orneryd/corpusgraph/internal/manipulator/diff"
	"github.com/orneryd/corpusgraph/internal/manipulator/enumerate"
	"github.com/orneryd/corpusgraph/internal/manipulator/link"
	"github.com/orneryd/corpusgraph/internal/manipulator/merge"
	"github.com/orneryd/corpusgraph/internal/stage"
)

// Descriptor is the raw, declaration-ordered shape of a workflow file:
// three array-of-tables, each entry carrying a tag naming the concrete
// adapter/manipulator plus its own opaque configuration table.
type Descriptor struct {
	Import   []ImportStep   `toml:"import"`
	GraphOp  []GraphOpStep  `toml:"graph_op"`
	Export   []ExportStep   `toml:"export"`
}

// ImportStep is one [[import]] entry.
type ImportStep struct {
	Path   string         `toml:"path"`
	Format string         `toml:"format"`
	Config map[string]any `toml:"config"`
}

// GraphOpStep is one [[graph_op]] entry (a manipulator).
type GraphOpStep struct {
	Action string         `toml:"action"`
	Config map[string]any `toml:"config"`
}

// ExportStep is one [[export]] entry.
type ExportStep struct {
	Path   string         `toml:"path"`
	Format string         `toml:"format"`
	Config map[string]any `toml:"config"`
}

// ReadFile parses a workflow file at path.
func ReadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &corpuserr.ReadWorkflowError{Reason: fmt.Sprintf("reading %s", path), Err: err}
	}
	var desc Descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return nil, &corpuserr.ReadWorkflowError{Reason: fmt.Sprintf("parsing %s", path), Err: err}
	}
	return &desc, nil
}

// Dir returns the directory a workflow file lives in, the value manipulators
// receive as their workflow_dir argument.
func Dir(workflowFile string) string {
	return filepath.Dir(workflowFile)
}

// Built is the concrete importer/manipulator/exporter stages built from one
// Descriptor, in declaration order.
type Built struct {
	Importers    []stage.Importer
	Manipulators []stage.Manipulator
	Exporters    []stage.Exporter
}

// Build resolves every step's format/action tag to a concrete stage. An
// unknown tag is a ReadWorkflowError; a step whose config table fails to
// decode into its stage's typed Config is also a ReadWorkflowError, caught
// here rather than deferred to the pipeline executor.
func Build(desc *Descriptor) (*Built, error) {
	built := &Built{}
	for _, step := range desc.Import {
		imp, err := buildImporter(step)
		if err != nil {
			return nil, err
		}
		built.Importers = append(built.Importers, imp)
	}
	for _, step := range desc.GraphOp {
		man, err := buildManipulator(step)
		if err != nil {
			return nil, err
		}
		built.Manipulators = append(built.Manipulators, man)
	}
	for _, step := range desc.Export {
		exp, err := buildExporter(step)
		if err != nil {
			return nil, err
		}
		built.Exporters = append(built.Exporters, exp)
	}
	return built, nil
}

func buildImporter(step ImportStep) (stage.Importer, error) {
	switch step.Format {
	case "none", "":
		return donothing.NewImporter(step.Path), nil
	default:
		return nil, &corpuserr.ReadWorkflowError{Reason: fmt.Sprintf("unknown import format %q", step.Format)}
	}
}

func buildExporter(step ExportStep) (stage.Exporter, error) {
	switch step.Format {
	case "none", "":
		return donothing.NewExporter(step.Path), nil
	default:
		return nil, &corpuserr.ReadWorkflowError{Reason: fmt.Sprintf("unknown export format %q", step.Format)}
	}
}

func buildManipulator(step GraphOpStep) (stage.Manipulator, error) {
	switch step.Action {
	case "none", "":
		return donothing.NewManipulator(), nil
	case "merge":
		var cfg merge.Config
		if err := DecodeConfig(step.Config, &cfg); err != nil {
			return nil, &corpuserr.ReadWorkflowError{Reason: "decoding merge config", Err: err}
		}
		return merge.New(cfg), nil
	case "enumerate":
		var cfg enumerate.Config
		if err := DecodeConfig(step.Config, &cfg); err != nil {
			return nil, &corpuserr.ReadWorkflowError{Reason: "decoding enumerate config", Err: err}
		}
		return enumerate.New(cfg), nil
	case "link":
		var cfg link.Config
		if err := DecodeConfig(step.Config, &cfg); err != nil {
			return nil, &corpuserr.ReadWorkflowError{Reason: "decoding link config", Err: err}
		}
		return link.New(cfg), nil
	case "collapse":
		var cfg collapse.Config
		if err := DecodeConfig(step.Config, &cfg); err != nil {
			return nil, &corpuserr.ReadWorkflowError{Reason: "decoding collapse config", Err: err}
		}
		return collapse.New(cfg), nil
	case "diff":
		var cfg diff.Config
		if err := DecodeConfig(step.Config, &cfg); err != nil {
			return nil, &corpuserr.ReadWorkflowError{Reason: "decoding diff config", Err: err}
		}
		return diff.New(cfg), nil
	default:
		return nil, &corpuserr.ReadWorkflowError{Reason: fmt.Sprintf("unknown graph_op action %q", step.Action)}
	}
}

// DecodeConfig re-encodes an opaque per-stage config table (already
// TOML-decoded into map[string]any by ReadFile) and decodes it into out, a
// pointer to a stage's typed config struct. Re-encoding keeps the module to
// one TOML library rather than adding a second map-to-struct decoder.
func DecodeConfig(raw map[string]any, out any) error {
	if raw == nil {
		return nil
	}
	buf, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("workflow: re-encoding config: %w", err)
	}
	return toml.Unmarshal(buf, out)
}
