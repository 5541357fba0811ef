// Package corpuserr implements a closed error taxonomy: one typed error per
// kind, each wrapping the underlying cause and carrying the fields needed
// to report which stage failed and why. Stages and the executor construct
// these directly rather than reaching for errors.New.
package corpuserr

import "fmt"

// ImportError is raised by an importer stage.
type ImportError struct {
	Reason   string
	Importer string
	Path     string
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s (%s): %s", e.Importer, e.Path, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ManipulatorError is raised by a manipulator stage.
type ManipulatorError struct {
	Reason      string
	Manipulator string
	Err         error
}

func (e *ManipulatorError) Error() string {
	return fmt.Sprintf("manipulate %s: %s", e.Manipulator, e.Reason)
}

func (e *ManipulatorError) Unwrap() error { return e.Err }

// ExportError is raised by an exporter stage.
type ExportError struct {
	Reason   string
	Exporter string
	Path     string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s (%s): %s", e.Exporter, e.Path, e.Reason)
}

func (e *ExportError) Unwrap() error { return e.Err }

// CreateGraphError is raised by the executor while creating the fresh graph
// the fan-in phase applies the super-log to.
type CreateGraphError struct {
	Reason string
	Err    error
}

func (e *CreateGraphError) Error() string { return fmt.Sprintf("create graph: %s", e.Reason) }
func (e *CreateGraphError) Unwrap() error { return e.Err }

// ReadWorkflowError is raised by the executor while parsing the workflow
// file.
type ReadWorkflowError struct {
	Reason string
	Err    error
}

func (e *ReadWorkflowError) Error() string { return fmt.Sprintf("read workflow: %s", e.Reason) }
func (e *ReadWorkflowError) Unwrap() error { return e.Err }

// UpdateGraphError is raised by the executor during the apply phase.
type UpdateGraphError struct {
	Reason string
	Err    error
}

func (e *UpdateGraphError) Error() string { return fmt.Sprintf("update graph: %s", e.Reason) }
func (e *UpdateGraphError) Unwrap() error { return e.Err }

// ConversionError aggregates one or more inner errors, used by the executor
// when a phase (e.g. export fan-out) must report every failure rather than
// just the first.
type ConversionError struct {
	Inner []error
}

func (e *ConversionError) Error() string {
	if len(e.Inner) == 1 {
		return e.Inner[0].Error()
	}
	return fmt.Sprintf("%d stage(s) failed: %s (and %d more)", len(e.Inner), e.Inner[0].Error(), len(e.Inner)-1)
}

func (e *ConversionError) Unwrap() []error { return e.Inner }

// SendStatusError wraps a failure to deliver a progress message. It is
// non-fatal to the stage that raised it; the executor logs it rather than
// failing the stage on account of it.
type SendStatusError struct {
	Reason string
	Err    error
}

func (e *SendStatusError) Error() string { return fmt.Sprintf("send status: %s", e.Reason) }
func (e *SendStatusError) Unwrap() error { return e.Err }
